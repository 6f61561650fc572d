package source

import (
	"github.com/lysyi3m/memo-comb/app/filter"
)

type Kind string

const (
	KindMemo Kind = "memo"
	KindFeed Kind = "feed"
)

// Dialect selects the request builder and normalizer for a source.
type Dialect string

const (
	DialectLegacyAll   Dialect = "memo-all"
	DialectV1Filtered  Dialect = "v1"
	DialectXML         Dialect = "xml"
	DialectJSONCustomA Dialect = "json-custom-cf"
	DialectJSONCustomB Dialect = "json-shinian"
)

func (d Dialect) Kind() Kind {
	switch d {
	case DialectLegacyAll, DialectV1Filtered:
		return KindMemo
	default:
		return KindFeed
	}
}

func (d Dialect) Valid() bool {
	switch d {
	case DialectLegacyAll, DialectV1Filtered, DialectXML, DialectJSONCustomA, DialectJSONCustomB:
		return true
	}
	return false
}

// CommentConfig holds the comment widget settings of a memo instance.
type CommentConfig struct {
	TwikooEnvID  string `json:"twikoo,omitempty"`
	ArtalkServer string `json:"artalk,omitempty"`
	ArtalkSite   string `json:"artSite,omitempty"`
}

func (c CommentConfig) Empty() bool {
	return c == CommentConfig{}
}

// AuxMeta is copied onto every record a source produces.
type AuxMeta struct {
	AvatarURL  string
	WebsiteURL string
	Comments   CommentConfig
}

// Descriptor is an immutable upstream source definition.
type Descriptor struct {
	ID          string
	DisplayName string
	Endpoint    string
	Dialect     Dialect
	CreatorID   string
	Enabled     bool
	Aux         AuxMeta
	Filters     []filter.Rule
}

func (d Descriptor) Kind() Kind {
	return d.Dialect.Kind()
}

// View names a subset of memo sources.
type View string

const (
	ViewAll    View = "bbs"
	ViewHome   View = "home"
	ViewRandom View = "random"
	ViewUser   View = "user"
)
