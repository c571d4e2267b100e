package preprocess

import "strings"

// LogLine is one line of the source log. Index is its 0-based position in
// the original input and never changes once the line is read.
type LogLine struct {
	Index int
	Text  string
}

// SplitLines breaks text into LogLines on "\n", dropping a trailing "\r"
// from each line. A final empty line produced by a trailing newline is not
// counted, so "a\nb\n" has two lines and "" has none.
func SplitLines(text string) []LogLine {
	if text == "" {
		return nil
	}
	raw := strings.Split(text, "\n")
	if raw[len(raw)-1] == "" {
		raw = raw[:len(raw)-1]
	}
	lines := make([]LogLine, len(raw))
	for i, s := range raw {
		lines[i] = LogLine{Index: i, Text: strings.TrimSuffix(s, "\r")}
	}
	return lines
}

// JoinLines renders lines back to newline-terminated text.
func JoinLines(lines []LogLine) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}
