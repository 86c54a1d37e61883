package utils

import (
	"strings"
)

// KeywordRule labels any text that contains one of its keywords
type KeywordRule struct {
	Label    string
	Keywords []string
}

// MatchFirstRule returns the label of the first rule with a keyword found in text.
// Matching is a case-insensitive substring test, rules are checked in order.
func MatchFirstRule(text string, rules []KeywordRule) (string, bool) {
	lower := strings.ToLower(text)
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return rule.Label, true
			}
		}
	}
	return "", false
}

// MatchFirstName returns the first name found in text, case-insensitively.
// The returned value keeps the casing of names.
func MatchFirstName(text string, names []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, name := range names {
		if name != "" && strings.Contains(lower, strings.ToLower(name)) {
			return name, true
		}
	}
	return "", false
}

// FuzzyEqual reports whether two labels match after trimming, lower-casing
// and dropping separators, so "Places_to visit" equals "placestovisit".
func FuzzyEqual(a, b string) bool {
	return squash(a) == squash(b)
}

func squash(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case ' ', '_', '-', '.':
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
