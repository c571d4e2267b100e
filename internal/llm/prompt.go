package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/tonyjoanes/gopher-triage/internal/config"
	"github.com/tonyjoanes/gopher-triage/internal/observability"
)

// SystemPrompt is sent as the LLM system message on every request.
const SystemPrompt = `You are a specialized DevOps troubleshooting assistant. Your task is to:
1. Analyze the provided error logs or text
2. Identify the root cause of the problem
3. Provide a clear, step-by-step solution to fix the issue
4. Include any relevant commands, code snippets, or configuration changes needed
5. Suggest preventive measures to avoid similar issues in the future

Format your response in a clear, structured manner with separate sections for:
- Problem Identification
- Root Cause Analysis
- Step-by-Step Solution
- Preventive Measures
`

// userPromptLead opens every user message.
const userPromptLead = "Please analyze the following DevOps error and provide a solution:\n\n"

// BuildUserPrompt assembles the user-turn message from an AnalysisContext.
// Reduced logs are preceded by a note for very large inputs and by the
// error statistics; pod sources are followed by events and metrics.
func BuildUserPrompt(ac *observability.AnalysisContext) string {
	var sb strings.Builder
	sb.WriteString(userPromptLead)

	if ac.PreviousContainer {
		sb.WriteString("NOTE: The current container had no logs; these are from the previous container instance, " +
			"which most likely crashed.\n\n")
	}
	if ac.Mode == config.ModePreprocessed {
		if ac.LargeInput {
			fmt.Fprintf(&sb, "NOTE: This is a preprocessed version of a very large log file (%.2f MB). "+
				"Only sections containing errors and %d lines of context before and after are included.\n\n",
				float64(ac.SizeBytes)/(1<<20), ac.ContextLines)
		}
		if ac.Sampled {
			fmt.Fprintf(&sb, "NOTE: No error keywords were found; the first %d lines of the log are included.\n\n", ac.KeptLines)
		}
		if ac.Stats != nil {
			sb.WriteString(ac.Stats.Summary())
			if len(ac.Categories) > 0 {
				fmt.Fprintf(&sb, "\nLikely areas: %s\n", strings.Join(ac.Categories, ", "))
			}
			if len(ac.ErrorCodes) > 0 {
				fmt.Fprintf(&sb, "Reported codes: %s\n", strings.Join(ac.ErrorCodes, ", "))
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString(ac.Text)

	if ac.Metrics != nil {
		fmt.Fprintf(&sb, "\n\n## Resource Usage (Prometheus)\n")
		fmt.Fprintf(&sb, "- CPU: %.2f millicores\n", ac.Metrics.CPUUsageMillicores)
		fmt.Fprintf(&sb, "- Memory: %.2f MiB\n", ac.Metrics.MemUsageMiB)
	}

	if len(ac.KubeEvents) > 0 {
		fmt.Fprintf(&sb, "\n\n## Kubernetes Events (most recent %d)\n", len(ac.KubeEvents))
		fmt.Fprintf(&sb, "| Time | Type | Reason | Object | Message |\n")
		fmt.Fprintf(&sb, "|------|------|--------|--------|---------|\n")
		for _, ev := range ac.KubeEvents {
			msg := ev.Message
			if len(msg) > 120 {
				msg = strings.ToValidUTF8(msg[:117], "") + "..."
			}
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n",
				ev.LastSeen.UTC().Format(time.TimeOnly),
				ev.Type,
				ev.Reason,
				ev.InvolvedObject,
				msg,
			)
		}
	}

	return sb.String()
}
