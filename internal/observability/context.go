// Package observability gathers the log text to be analysed (from a literal
// string, a file, stdin or a Kubernetes pod), reduces it to its error
// sections when the mode calls for it, and packages the result into an
// AnalysisContext that is later fed to the LLM.
package observability

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tonyjoanes/gopher-triage/internal/config"
	"github.com/tonyjoanes/gopher-triage/internal/preprocess"
)

// AnalysisContext is everything the LLM is told about one log.
type AnalysisContext struct {
	// Source names where the log came from, e.g. "file:app.log" or "pod:prod/api-7f9c".
	Source string
	// Mode is the mode actually applied (never ModeAuto).
	Mode config.Mode
	// SizeBytes is the size of the raw input.
	SizeBytes int64
	// CollectedAt is when the log was read.
	CollectedAt time.Time

	// TotalLines, MatchedLines and KeptLines are zero in raw mode.
	TotalLines   int
	MatchedLines int
	KeptLines    int
	Sections     int
	// ContextLines is the context size used for reduction.
	ContextLines int
	// Sampled is true when nothing matched and the head of the log is sent instead.
	Sampled bool
	// LargeInput is true when the input is above the large-file threshold.
	LargeInput bool
	// PreviousContainer is true when pod logs were read from the last
	// terminated container instead of the running one.
	PreviousContainer bool

	// Stats and Categories describe the reduced text. Nil/empty in raw mode.
	Stats      *preprocess.Stats
	Categories []string
	// ErrorCodes lists the error, exit and status codes reported in the text.
	ErrorCodes []string

	// Text is the log content sent to the model: the full input in raw mode,
	// the rendered sections otherwise.
	Text string

	// KubeEvents and Metrics are only set for pod sources.
	KubeEvents []KubeEvent
	Metrics    *PrometheusSnapshot
}

// KubeEvent is a trimmed Kubernetes Event focused on what the LLM needs.
type KubeEvent struct {
	// Type is "Normal" or "Warning".
	Type     string
	Reason   string
	Message  string
	Count    int32
	LastSeen time.Time
	// InvolvedObject is "Pod/my-pod".
	InvolvedObject string
}

// PrometheusSnapshot is a lightweight CPU/memory reading for the source pod.
type PrometheusSnapshot struct {
	CPUUsageMillicores float64
	MemUsageMiB        float64
	QueryTime          time.Time
}

// Summary produces a compact multi-line description suitable for log output.
func (a *AnalysisContext) Summary() string {
	out := "=== AnalysisContext ===\n"
	out += "Source     : " + a.Source + "\n"
	out += "Mode       : " + string(a.Mode) + "\n"
	out += "Size       : " + humanize.IBytes(uint64(a.SizeBytes)) + "\n"
	if a.Mode == config.ModePreprocessed {
		out += fmt.Sprintf("Lines      : %d total, %d matched, %d kept in %d sections\n",
			a.TotalLines, a.MatchedLines, a.KeptLines, a.Sections)
	}
	if a.PreviousContainer {
		out += "Container  : previous instance\n"
	}
	if len(a.ErrorCodes) > 0 {
		out += "Codes      : " + strings.Join(a.ErrorCodes, ", ") + "\n"
	}
	if a.Sampled {
		out += "Sampled    : no error lines found, sending the head of the log\n"
	}
	if len(a.KubeEvents) > 0 {
		out += fmt.Sprintf("KubeEvents : %d\n", len(a.KubeEvents))
	}
	if a.Metrics != nil {
		out += fmt.Sprintf("CPU (m)    : %.2f\n", a.Metrics.CPUUsageMillicores)
		out += fmt.Sprintf("Mem (MiB)  : %.2f\n", a.Metrics.MemUsageMiB)
	}
	return out
}
