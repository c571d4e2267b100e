package preprocess

import (
	"sort"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Window is a closed interval [Start, End] of line indices.
type Window struct {
	Start int
	End   int
}

// Len returns the number of lines the window covers.
func (w Window) Len() int { return w.End - w.Start + 1 }

// Contains reports whether idx lies inside the window.
func (w Window) Contains(idx int) bool { return idx >= w.Start && idx <= w.End }

// WindowFor returns the context window around a matched index, clamped to
// [0, lastIndex].
func WindowFor(matched, contextLines, lastIndex int) Window {
	return Window{
		Start: max(0, matched-contextLines),
		End:   min(lastIndex, matched+contextLines),
	}
}

// MergeWindows returns the minimal sorted set of disjoint windows covering
// the input. Windows that overlap or touch (start <= previous end + 1) are
// merged. The input slice is not modified.
func MergeWindows(windows []Window) []Window {
	if len(windows) == 0 {
		return nil
	}
	sorted := append([]Window(nil), windows...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	merged := []Window{sorted[0]}
	for _, cur := range sorted[1:] {
		last := &merged[len(merged)-1]
		if cur.Start <= last.End+1 {
			last.End = max(last.End, cur.End)
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}

// Windows computes the merged windows for matches over lines. Indices in
// matches that do not belong to any line are ignored.
func Windows(lines []LogLine, matches MatchSet, contextLines int) ([]Window, error) {
	if contextLines < 0 {
		return nil, &BoundaryError{Param: "contextLines", Value: contextLines}
	}
	if len(lines) == 0 || matches.Len() == 0 {
		return nil, nil
	}
	first, last := lines[0].Index, lines[len(lines)-1].Index

	present := sets.New[int]()
	for _, l := range lines {
		present.Insert(l.Index)
	}

	var windows []Window
	for _, m := range sets.List(matches) {
		if m < first || m > last || !present.Has(m) {
			continue
		}
		windows = append(windows, WindowFor(m, contextLines, last))
	}
	return MergeWindows(windows), nil
}

// Extract returns the lines covered by the merged context windows of
// matches, in their original order and each at most once. lines must be
// ordered by Index; it may itself be a previously reduced log, in which
// case Extract returns it unchanged for the same matches and contextLines.
func Extract(lines []LogLine, matches MatchSet, contextLines int) ([]LogLine, error) {
	windows, err := Windows(lines, matches, contextLines)
	if err != nil {
		return nil, err
	}
	return linesIn(lines, windows), nil
}

// linesIn walks lines and windows together; both are sorted by index.
func linesIn(lines []LogLine, windows []Window) []LogLine {
	if len(windows) == 0 {
		return nil
	}
	var out []LogLine
	w := 0
	for _, l := range lines {
		for w < len(windows) && l.Index > windows[w].End {
			w++
		}
		if w == len(windows) {
			break
		}
		if windows[w].Contains(l.Index) {
			out = append(out, l)
		}
	}
	return out
}
