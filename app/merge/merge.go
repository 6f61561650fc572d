// Package merge combines normalized entries from several sources into one
// de-duplicated sequence ordered newest first.
package merge

import (
	"cmp"
	"errors"
	"slices"
)

// ErrNoNewRecords is returned by Incorporate when the incoming batch holds
// nothing that is not already present. It is a terminal signal, not a failure.
var ErrNoNewRecords = errors.New("no new records")

// Entry is anything that can be merged: it has an identity and a timestamp.
type Entry interface {
	Key() string
	SortKey() int64
}

// Merge concatenates the batches in the given order, drops repeated keys
// (first occurrence wins) and sorts by SortKey descending. Equal timestamps
// keep their concatenation order.
func Merge[T Entry](batches ...[]T) []T {
	total := 0
	for _, batch := range batches {
		total += len(batch)
	}

	seen := make(map[string]struct{}, total)
	merged := make([]T, 0, total)
	for _, batch := range batches {
		merged = appendUnseen(merged, batch, seen)
	}

	sortNewestFirst(merged)
	return merged
}

// Incorporate appends the incoming entries whose keys are not yet held and
// re-sorts the combined sequence. When nothing new arrives the existing slice
// is returned untouched together with ErrNoNewRecords.
func Incorporate[T Entry](existing, incoming []T) ([]T, error) {
	seen := keySet(existing, len(incoming))

	combined := make([]T, len(existing), len(existing)+len(incoming))
	copy(combined, existing)
	combined = appendUnseen(combined, incoming, seen)

	if len(combined) == len(existing) {
		return existing, ErrNoNewRecords
	}

	sortNewestFirst(combined)
	return combined, nil
}

// keySet returns the identities held by entries, sized for extra more.
func keySet[T Entry](entries []T, extra int) map[string]struct{} {
	keys := make(map[string]struct{}, len(entries)+extra)
	for _, entry := range entries {
		keys[entry.Key()] = struct{}{}
	}
	return keys
}

func appendUnseen[T Entry](dst, src []T, seen map[string]struct{}) []T {
	for _, entry := range src {
		key := entry.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		dst = append(dst, entry)
	}
	return dst
}

func sortNewestFirst[T Entry](entries []T) {
	slices.SortStableFunc(entries, func(a, b T) int {
		return cmp.Compare(b.SortKey(), a.SortKey())
	})
}
