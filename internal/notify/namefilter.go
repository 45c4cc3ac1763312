package notify

import (
	"regexp"
	"strings"
)

// Builtin patterns catch names that try to smuggle links or markup into
// the announcement text.
var builtinNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)https?://`),
	regexp.MustCompile(`(?i)discord\.gg`),
	regexp.MustCompile(`[@<>]`),
}

// NameFilter suppresses announcements whose resolved display name matches
// a disallowed term or pattern.
type NameFilter struct {
	terms    []string
	patterns []*regexp.Regexp
}

func NewNameFilter(terms []string) *NameFilter {
	cleaned := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(strings.ToLower(t))
		if t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return &NameFilter{terms: cleaned, patterns: builtinNamePatterns}
}

// Blocked reports whether the display name must suppress the
// announcement. Matching is substring-based and case-insensitive.
func (f *NameFilter) Blocked(name string) bool {
	if name == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, term := range f.terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	for _, p := range f.patterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}
