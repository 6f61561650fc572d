package filter

import (
	"fmt"
	"strings"
)

// Rule is one include/exclude clause applied to a named field.
type Rule struct {
	Field    string   `yaml:"field" json:"field"`
	Includes []string `yaml:"includes" json:"includes,omitempty"`
	Excludes []string `yaml:"excludes" json:"excludes,omitempty"`
}

// Fielder exposes the text of a named field for matching.
type Fielder interface {
	FieldValue(field string) string
}

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Match reports whether item is excluded by rules, and why.
func (f *Filterer) Match(item Fielder, rules []Rule) (bool, string) {
	for _, rule := range rules {
		value := item.FieldValue(rule.Field)

		for _, exclude := range rule.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", rule.Field, exclude)
			}
		}

		if len(rule.Includes) > 0 {
			matched := false
			for _, include := range rule.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", rule.Field, rule.Includes)
			}
		}
	}

	return false, ""
}

// Contains reports whether any of the fields contains query, ignoring case.
// An empty query matches everything.
func (f *Filterer) Contains(item Fielder, query string, fields ...string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	for _, field := range fields {
		if f.matchesFilter(item.FieldValue(field), query) {
			return true
		}
	}
	return false
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

// Apply returns the items not excluded by rules, preserving order.
func Apply[T Fielder](f *Filterer, items []T, rules []Rule) []T {
	if len(rules) == 0 {
		return items
	}

	kept := make([]T, 0, len(items))
	for _, item := range items {
		if excluded, _ := f.Match(item, rules); !excluded {
			kept = append(kept, item)
		}
	}
	return kept
}

// Search returns the items whose fields contain query, preserving order.
func Search[T Fielder](f *Filterer, items []T, query string, fields ...string) []T {
	if strings.TrimSpace(query) == "" {
		return items
	}

	found := make([]T, 0, len(items))
	for _, item := range items {
		if f.Contains(item, query, fields...) {
			found = append(found, item)
		}
	}
	return found
}

// Validate checks rules against the set of fields an item type exposes.
func Validate(rules []Rule, validFields map[string]bool) error {
	for i, rule := range rules {
		if !validFields[rule.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, rule.Field)
		}
		if len(rule.Includes) == 0 && len(rule.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}
	return nil
}
