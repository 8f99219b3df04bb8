// Package pages holds the view-model of each screen: the rows loaded from the
// store, the user's search/filter inputs and the values derived from them.
// Each page owns its own state; nothing here is shared between requests.
package pages

import "strings"

// matchesAny reports whether term is a case-insensitive substring of any field.
// An empty term matches everything; whitespace is matched as typed.
func matchesAny(term string, fields ...string) bool {
	term = strings.ToLower(term)
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// optional turns a blank form value into an absent one.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
