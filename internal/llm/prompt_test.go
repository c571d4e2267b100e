package llm

import (
	"strings"
	"time"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tonyjoanes/gopher-triage/internal/config"
	"github.com/tonyjoanes/gopher-triage/internal/observability"
	"github.com/tonyjoanes/gopher-triage/internal/preprocess"
)

var _ = Describe("BuildUserPrompt", func() {
	It("sends raw text as is after the lead", func() {
		p := BuildUserPrompt(&observability.AnalysisContext{Mode: config.ModeRaw, Text: "ERROR disk full"})
		Expect(p).To(Equal(userPromptLead + "ERROR disk full"))
	})

	It("prefixes reduced logs with the large-file note and statistics", func() {
		text := "==== ERROR SECTION (lines 1-3) ====\nINFO a\nERROR db timeout\nINFO b\n"
		stats := preprocess.ComputeStats("ERROR db timeout\n")
		p := BuildUserPrompt(&observability.AnalysisContext{
			Mode:         config.ModePreprocessed,
			SizeBytes:    5 << 20,
			LargeInput:   true,
			ContextLines: 2,
			Stats:        &stats,
			Categories:   []string{"database", "networking"},
			ErrorCodes:   []string{"137"},
			Text:         text,
		})
		Expect(p).To(ContainSubstring("very large log file (5.00 MB)"))
		Expect(p).To(ContainSubstring("2 lines of context"))
		Expect(p).To(ContainSubstring("ERROR STATISTICS SUMMARY"))
		Expect(p).To(ContainSubstring("Likely areas: database, networking"))
		Expect(p).To(ContainSubstring("Reported codes: 137\n"))
		Expect(p).To(HaveSuffix(text))
	})

	It("appends metrics and events for pod sources", func() {
		p := BuildUserPrompt(&observability.AnalysisContext{
			Mode: config.ModeRaw,
			Text: "panic: nil map",
			Metrics: &observability.PrometheusSnapshot{
				CPUUsageMillicores: 250,
				MemUsageMiB:        512,
			},
			KubeEvents: []observability.KubeEvent{{
				Type:           "Warning",
				Reason:         "BackOff",
				Message:        "Back-off restarting failed container",
				LastSeen:       time.Date(2024, 5, 1, 10, 4, 5, 0, time.UTC),
				InvolvedObject: "Pod/api-1",
			}},
		})
		Expect(p).To(ContainSubstring("- CPU: 250.00 millicores"))
		Expect(p).To(ContainSubstring("- Memory: 512.00 MiB"))
		Expect(p).To(ContainSubstring("| 10:04:05 | Warning | BackOff | Pod/api-1 | Back-off restarting failed container |"))
	})

	It("shortens long event messages without splitting characters", func() {
		p := BuildUserPrompt(&observability.AnalysisContext{
			Mode: config.ModeRaw,
			Text: "panic",
			KubeEvents: []observability.KubeEvent{{
				Type:    "Warning",
				Reason:  "Failed",
				Message: "a" + strings.Repeat("界", 60),
			}},
		})
		Expect(utf8.ValidString(p)).To(BeTrue())
		Expect(p).To(ContainSubstring("界..."))
	})

	It("says when the logs come from the previous container", func() {
		p := BuildUserPrompt(&observability.AnalysisContext{
			Mode:              config.ModeRaw,
			Text:              "OOMKilled",
			PreviousContainer: true,
		})
		Expect(p).To(ContainSubstring("previous container instance"))
		Expect(p).To(HaveSuffix("OOMKilled"))
	})
})
