package config

import (
	"fmt"
	"regexp"
	"strings"
)

// Compile turns a class pattern into a regular expression matching
// internal names. Dots and slashes both separate packages, "**" matches
// anything and "*" matches a single name segment.
func Compile(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; {
		case c == '*' && i+1 < len(pattern) && pattern[i+1] == '*':
			b.WriteString(".*")
			i++
		case c == '*':
			b.WriteString(`[\w$]*`)
		case c == '.' || c == '/':
			b.WriteString("/")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("config: pattern %q: %w", pattern, err)
	}
	return re, nil
}

// Matcher tests names against a list of patterns.
type Matcher []*regexp.Regexp

// NewMatcher compiles every pattern.
func NewMatcher(patterns []string) (Matcher, error) {
	m := make(Matcher, 0, len(patterns))
	for _, p := range patterns {
		re, err := Compile(p)
		if err != nil {
			return nil, err
		}
		m = append(m, re)
	}
	return m, nil
}

// Match reports whether any pattern matches name.
func (m Matcher) Match(name string) bool {
	for _, re := range m {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Filter returns the names matched by any pattern, keeping their order.
func (m Matcher) Filter(names []string) []string {
	var out []string
	for _, n := range names {
		if m.Match(n) {
			out = append(out, n)
		}
	}
	return out
}
