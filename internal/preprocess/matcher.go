// Package preprocess reduces large logs to the error-relevant windows that
// are worth sending to a language model.
//
// A Matcher labels each line as error-bearing or not; Extract then keeps
// each labelled line plus N lines of context on either side, merging
// windows that touch or overlap so every line is emitted at most once and
// in its original order. Both steps are pure and hold no state between
// calls.
package preprocess

import (
	"regexp"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

// MatchSet holds the indices of error-bearing lines.
type MatchSet = sets.Set[int]

// NewMatchSet returns a MatchSet holding the given indices.
func NewMatchSet(indices ...int) MatchSet { return sets.New(indices...) }

// Matcher classifies log lines against a fixed set of signatures.
// It is immutable after construction and safe for concurrent use.
type Matcher struct {
	literals []string
	regexes  []*regexp.Regexp
	patterns []Pattern
}

// NewMatcher compiles patterns into a Matcher. An empty set, an empty
// expression, an unknown kind or an invalid regex yields a
// *ConfigurationError; a matcher that could never match is never returned.
func NewMatcher(patterns []Pattern) (*Matcher, error) {
	if len(patterns) == 0 {
		return nil, &ConfigurationError{Reason: "no patterns configured"}
	}
	m := &Matcher{patterns: append([]Pattern(nil), patterns...)}
	seen := sets.New[string]()
	for _, p := range patterns {
		if err := p.validate(); err != nil {
			return nil, err
		}
		if seen.Has(p.String()) {
			continue
		}
		seen.Insert(p.String())

		switch p.Kind {
		case PatternLiteral:
			m.literals = append(m.literals, strings.ToLower(p.Expr))
		case PatternRegex:
			re, err := regexp.Compile("(?i)" + p.Expr)
			if err != nil {
				return nil, &ConfigurationError{Pattern: p.Expr, Reason: "invalid regex", Err: err}
			}
			m.regexes = append(m.regexes, re)
		}
	}
	return m, nil
}

// Patterns returns the signatures the matcher was built from.
func (m *Matcher) Patterns() []Pattern {
	return append([]Pattern(nil), m.patterns...)
}

// Match reports whether any signature occurs in text.
func (m *Matcher) Match(text string) bool {
	lower := strings.ToLower(text)
	for _, lit := range m.literals {
		if strings.Contains(lower, lit) {
			return true
		}
	}
	for _, re := range m.regexes {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Classify returns the indices of the lines that match at least one signature.
func (m *Matcher) Classify(lines []LogLine) MatchSet {
	matches := sets.New[int]()
	for _, l := range lines {
		if m.Match(l.Text) {
			matches.Insert(l.Index)
		}
	}
	return matches
}
