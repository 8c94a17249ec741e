package match

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern represents a compiled match condition supporting substring and regex matching.
// Both forms are case-insensitive.
type Pattern struct {
	raw   string
	regex *regexp.Regexp
	lower string
}

// Compile transforms raw pattern strings into Pattern values. A pattern wrapped
// in slashes ("/expr/") is a regular expression; anything else is a substring.
func Compile(patterns []string) ([]Pattern, error) {
	result := make([]Pattern, 0, len(patterns))
	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") && len(raw) > 2 {
			expr := raw[1 : len(raw)-1]
			re, err := regexp.Compile("(?i)" + expr)
			if err != nil {
				return nil, fmt.Errorf("compile regexp %q: %w", raw, err)
			}
			result = append(result, Pattern{raw: raw, regex: re})
			continue
		}
		result = append(result, Pattern{raw: raw, lower: strings.ToLower(raw)})
	}
	return result, nil
}

// MustCompile is like Compile but panics on error. Intended for package-level defaults.
func MustCompile(patterns ...string) []Pattern {
	out, err := Compile(patterns)
	if err != nil {
		panic(err)
	}
	return out
}

// Match reports whether the pattern matches the supplied string.
func (p Pattern) Match(s string) bool {
	if s == "" {
		return false
	}
	if p.regex != nil {
		return p.regex.MatchString(s)
	}
	return strings.Contains(strings.ToLower(s), p.lower)
}

// String returns the pattern as it was written.
func (p Pattern) String() string {
	return p.raw
}

// Any reports whether at least one pattern matches s.
func Any(patterns []Pattern, s string) bool {
	for _, p := range patterns {
		if p.Match(s) {
			return true
		}
	}
	return false
}

// HasPrefixFold reports whether name starts with any of prefixes, ignoring case.
func HasPrefixFold(name string, prefixes []string) bool {
	upper := strings.ToUpper(name)
	for _, prefix := range prefixes {
		if prefix == "" {
			continue
		}
		if strings.HasPrefix(upper, strings.ToUpper(prefix)) {
			return true
		}
	}
	return false
}
