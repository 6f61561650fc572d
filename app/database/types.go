package database

import (
	"time"
)

// SourceStatus is the last known fetch state of one source.
type SourceStatus struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind"`
	Name          string     `json:"name"`
	Endpoint      string     `json:"endpoint"`
	Dialect       string     `json:"dialect"`
	LastFetchedAt *time.Time `json:"lastFetchedAt,omitempty"`
	LastSuccessAt *time.Time `json:"lastSuccessAt,omitempty"`
	LastStatus    int        `json:"lastStatus"`
	LastError     string     `json:"lastError,omitempty"`
	RecordCount   int        `json:"recordCount"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Healthy reports whether the most recent fetch succeeded.
func (s SourceStatus) Healthy() bool {
	return s.LastFetchedAt != nil && s.LastError == ""
}
