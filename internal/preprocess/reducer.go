package preprocess

import (
	"fmt"
	"strings"
)

const (
	// DefaultContextLines is the number of lines kept on each side of a match.
	DefaultContextLines = 2
	// DefaultMaxSections caps how many merged windows are kept.
	DefaultMaxSections = 500
)

// sectionRule frames each rendered section.
var sectionRule = strings.Repeat("=", 40)

// Options configures a Reducer.
type Options struct {
	// ContextLines is the number of lines kept before and after each match.
	ContextLines int
	// MaxSections caps the number of merged windows; 0 means unlimited.
	MaxSections int
	// Patterns replaces the default signatures when non-empty.
	Patterns []Pattern
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ContextLines: DefaultContextLines,
		MaxSections:  DefaultMaxSections,
		Patterns:     DefaultPatterns(),
	}
}

// Section is one merged window together with the lines it covers.
type Section struct {
	Window Window
	Lines  []LogLine
}

// Result is the outcome of reducing one log.
type Result struct {
	TotalLines   int
	MatchedLines int
	Sections     []Section
	// Truncated is true when MaxSections dropped windows.
	Truncated bool
	// Warnings carries non-fatal conditions such as ErrEmptyInput.
	Warnings []error
}

// Lines returns the reduced log: every kept line in original order.
func (r *Result) Lines() []LogLine {
	var out []LogLine
	for _, s := range r.Sections {
		out = append(out, s.Lines...)
	}
	return out
}

// KeptLines is the number of lines in the reduced log.
func (r *Result) KeptLines() int {
	n := 0
	for _, s := range r.Sections {
		n += len(s.Lines)
	}
	return n
}

// Empty reports whether nothing was kept.
func (r *Result) Empty() bool { return len(r.Sections) == 0 }

// Render formats the sections as text, each preceded by a header naming its
// 1-based line range. An empty result renders as "".
func (r *Result) Render() string {
	var sb strings.Builder
	for i, s := range r.Sections {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s ERROR SECTION (lines %d-%d) %s\n",
			sectionRule, s.Window.Start+1, s.Window.End+1, sectionRule)
		sb.WriteString(JoinLines(s.Lines))
	}
	return sb.String()
}

// Reducer runs the matcher and the extractor over whole logs.
type Reducer struct {
	matcher *Matcher
	opts    Options
}

// NewReducer validates opts and compiles its patterns.
func NewReducer(opts Options) (*Reducer, error) {
	if opts.ContextLines < 0 {
		return nil, &BoundaryError{Param: "contextLines", Value: opts.ContextLines}
	}
	if opts.MaxSections < 0 {
		return nil, &BoundaryError{Param: "maxSections", Value: opts.MaxSections}
	}
	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	m, err := NewMatcher(patterns)
	if err != nil {
		return nil, err
	}
	return &Reducer{matcher: m, opts: opts}, nil
}

// ContextLines returns the configured context size.
func (r *Reducer) ContextLines() int { return r.opts.ContextLines }

// Reduce splits text into lines and keeps only the merged error windows.
func (r *Reducer) Reduce(text string) (*Result, error) {
	return r.ReduceLines(SplitLines(text))
}

// ReduceLines is Reduce for input that is already split.
func (r *Reducer) ReduceLines(lines []LogLine) (*Result, error) {
	res := &Result{TotalLines: len(lines)}
	if len(lines) == 0 {
		res.Warnings = append(res.Warnings, ErrEmptyInput)
		return res, nil
	}

	matches := r.matcher.Classify(lines)
	res.MatchedLines = matches.Len()
	if matches.Len() == 0 {
		res.Warnings = append(res.Warnings, ErrNoMatches)
		return res, nil
	}

	windows, err := Windows(lines, matches, r.opts.ContextLines)
	if err != nil {
		return nil, err
	}
	if r.opts.MaxSections > 0 && len(windows) > r.opts.MaxSections {
		windows = windows[:r.opts.MaxSections]
		res.Truncated = true
		res.Warnings = append(res.Warnings,
			fmt.Errorf("reached maximum error section limit: %d", r.opts.MaxSections))
	}

	kept := linesIn(lines, windows)
	k := 0
	for _, w := range windows {
		start := k
		for k < len(kept) && kept[k].Index <= w.End {
			k++
		}
		res.Sections = append(res.Sections, Section{Window: w, Lines: kept[start:k]})
	}
	return res, nil
}
