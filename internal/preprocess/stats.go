package preprocess

import (
	"regexp"
	"sort"
	"strings"
)

const topCommonErrors = 10

var (
	exceptionRe = regexp.MustCompile(`([A-Za-z]+Exception|[A-Za-z]+Error):`)
	errorCodeRe = regexp.MustCompile(`(?i)(?:error|code)[\s:=]+([A-Z0-9_\-]+)`)
	errorLineRe = regexp.MustCompile(`(?i)error|exception|fail`)

	uuidRe   = regexp.MustCompile(`[0-9a-f]{8}-?[0-9a-f]{4}-?[0-9a-f]{4}-?[0-9a-f]{4}-?[0-9a-f]{12}`)
	numberRe = regexp.MustCompile(`\b\d+\b`)
	quotedRe = regexp.MustCompile(`"[^"]+"`)
)

// Count is a label with the number of times it was seen.
type Count struct {
	Label string
	N     int
}

// Stats summarizes the error content of a log.
type Stats struct {
	ErrorCount     int
	WarningCount   int
	ExceptionTypes []Count
	ErrorCodes     []Count
	// CommonErrors lists the most frequent error lines after numbers, UUIDs
	// and quoted strings are replaced by placeholders.
	CommonErrors []Count
}

// ComputeStats gathers error statistics from text. Count slices are ordered
// by descending frequency, ties by label.
func ComputeStats(text string) Stats {
	lower := strings.ToLower(text)
	st := Stats{
		ErrorCount:   strings.Count(lower, "error"),
		WarningCount: strings.Count(lower, "warning"),
	}

	exceptions := map[string]int{}
	for _, m := range exceptionRe.FindAllStringSubmatch(text, -1) {
		exceptions[m[1]]++
	}
	st.ExceptionTypes = rank(exceptions, 0)

	codes := map[string]int{}
	for _, m := range errorCodeRe.FindAllStringSubmatch(text, -1) {
		codes[m[1]]++
	}
	st.ErrorCodes = rank(codes, 0)

	common := map[string]int{}
	for _, line := range strings.Split(text, "\n") {
		if !errorLineRe.MatchString(line) {
			continue
		}
		common[Normalize(line)]++
	}
	st.CommonErrors = rank(common, topCommonErrors)
	return st
}

// Normalize replaces volatile tokens in a log line with placeholders so
// recurring errors collapse to one template.
func Normalize(line string) string {
	s := uuidRe.ReplaceAllString(strings.TrimRight(line, "\r"), "<UUID>")
	s = numberRe.ReplaceAllString(s, "<NUM>")
	return quotedRe.ReplaceAllString(s, "<STRING>")
}

// Summary renders the statistics block that is prepended to reduced logs.
func (s Stats) Summary() string {
	var sb strings.Builder
	rule := strings.Repeat("=", 80)
	sb.WriteString(rule + "\nERROR STATISTICS SUMMARY\n" + rule + "\n")
	sb.WriteString("Total errors identified: " + itoa(s.ErrorCount) + "\n")
	sb.WriteString("Total warnings identified: " + itoa(s.WarningCount) + "\n")
	writeCounts(&sb, "Exception types", s.ExceptionTypes)
	writeCounts(&sb, "Error codes", s.ErrorCodes)
	writeCounts(&sb, "Most common errors", s.CommonErrors)
	return sb.String()
}

func writeCounts(sb *strings.Builder, title string, counts []Count) {
	if len(counts) == 0 {
		return
	}
	sb.WriteString("\n" + title + ":\n")
	for _, c := range counts {
		sb.WriteString("- " + c.Label + ": " + itoa(c.N) + " occurrences\n")
	}
}

func rank(m map[string]int, limit int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Label: k, N: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].N != out[j].N {
			return out[i].N > out[j].N
		}
		return out[i].Label < out[j].Label
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
