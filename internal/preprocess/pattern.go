package preprocess

import (
	"fmt"
	"strings"
)

// PatternKind tags how a Pattern's expression is interpreted.
type PatternKind string

const (
	// PatternLiteral matches a case-insensitive substring.
	PatternLiteral PatternKind = "literal"
	// PatternRegex matches a case-insensitive RE2 expression.
	PatternRegex PatternKind = "regex"
)

// regexPrefix marks a regex signature in its textual form, e.g. "re:5\d\d".
const regexPrefix = "re:"

// Pattern is one error signature.
type Pattern struct {
	Kind PatternKind `json:"kind"`
	Expr string      `json:"expr"`
}

// Literal returns a substring signature.
func Literal(expr string) Pattern { return Pattern{Kind: PatternLiteral, Expr: expr} }

// Regex returns a regular expression signature.
func Regex(expr string) Pattern { return Pattern{Kind: PatternRegex, Expr: expr} }

// ParsePattern reads the textual form used by flags and config files:
// "re:<expr>" is a regex, anything else is a literal.
func ParsePattern(s string) (Pattern, error) {
	if strings.HasPrefix(s, regexPrefix) {
		s = strings.TrimPrefix(s, regexPrefix)
		if s == "" {
			return Pattern{}, &ConfigurationError{Pattern: regexPrefix, Reason: "empty regex"}
		}
		return Regex(s), nil
	}
	if strings.TrimSpace(s) == "" {
		return Pattern{}, &ConfigurationError{Pattern: s, Reason: "empty literal"}
	}
	return Literal(s), nil
}

// ParsePatterns parses each string with ParsePattern.
func ParsePatterns(ss []string) ([]Pattern, error) {
	out := make([]Pattern, 0, len(ss))
	for _, s := range ss {
		p, err := ParsePattern(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// String returns the textual form accepted by ParsePattern.
func (p Pattern) String() string {
	if p.Kind == PatternRegex {
		return regexPrefix + p.Expr
	}
	return p.Expr
}

// defaultKeywords are generic failure indicators seen across CI, container,
// cloud and application logs.
var defaultKeywords = []string{
	"error", "exception", "fail", "critical", "severe", "fatal",
	"crash", "abort", "denied", "reject", "timeout", "timed out",
	"invalid", "incorrect", "warning", "alert", "emergency", "panic",
	"unexpected", "unable", "cannot", "not found", "forbidden",
	"prohibited", "unauthorized", "insufficient", "missing",
	"bad request", "out of memory", "killed", "segfault",
	"null pointer", "corrupt", "deadlock", "race condition", "leaked",
	"overflow", "underflow", "exceed", "too many", "too few",
	"too large", "too small",
}

// defaultRegexes cover signatures a plain substring would get wrong.
var defaultRegexes = []string{
	`\boom(killed)?\b`,
	`connection (refused|reset)`,
	`\b(crashloopbackoff|imagepullbackoff|errimagepull)\b`,
	`(http/[0-9.]+"?\s+|status(\s?code)?[=:\s]+|code[=:\s]+)5[0-9]{2}\b`,
}

// DefaultPatterns returns a fresh copy of the built-in signature set.
func DefaultPatterns() []Pattern {
	out := make([]Pattern, 0, len(defaultKeywords)+len(defaultRegexes))
	for _, k := range defaultKeywords {
		out = append(out, Literal(k))
	}
	for _, r := range defaultRegexes {
		out = append(out, Regex(r))
	}
	return out
}

func (p Pattern) validate() error {
	switch p.Kind {
	case PatternLiteral, PatternRegex:
	default:
		return &ConfigurationError{Pattern: p.Expr, Reason: fmt.Sprintf("unknown pattern kind %q", p.Kind)}
	}
	if strings.TrimSpace(p.Expr) == "" {
		return &ConfigurationError{Pattern: p.Expr, Reason: "empty " + string(p.Kind)}
	}
	return nil
}
