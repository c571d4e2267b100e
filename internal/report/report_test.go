package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tonyjoanes/gopher-triage/internal/config"
	"github.com/tonyjoanes/gopher-triage/internal/llm"
	"github.com/tonyjoanes/gopher-triage/internal/observability"
)

var (
	ac = &observability.AnalysisContext{
		Source:     "file:app.log",
		Mode:       config.ModePreprocessed,
		TotalLines: 100,
		KeptLines:  10,
		Sections:   2,
	}
	diag = &llm.Diagnosis{Solution: "Restart the database.", Model: "gpt-4o-mini"}
)

var _ = Describe("Console", func() {
	It("prints a plain block", func() {
		var buf bytes.Buffer
		Expect(NewConsole(&buf, true).Print(ac, diag)).To(Succeed())
		rule := strings.Repeat("=", ruleWidth)
		Expect(buf.String()).To(Equal("\n" + rule + "\n" + Title + "\n" + rule + "\n\nRestart the database.\n\n" + rule + "\n"))
	})

	It("writes to stdout when no writer is given", func() {
		c := NewConsole(nil, false)
		Expect(c.Out).To(BeIdenticalTo(os.Stdout))
		Expect(c.Plain).To(BeFalse())
	})

	It("adds the art and metadata when styled", func() {
		var buf bytes.Buffer
		Expect((&Console{Out: &buf}).Print(ac, diag)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("G O P H E R   T R I A G E"))
		Expect(buf.String()).To(ContainSubstring(Title))
		Expect(buf.String()).To(ContainSubstring("10 of 100 lines in 2 section(s)"))
		Expect(buf.String()).To(ContainSubstring("Restart the database."))
	})

	It("prints both prompts for a dry run", func() {
		var buf bytes.Buffer
		Expect((&Console{Out: &buf, Plain: true}).PrintPrompt("sys", "usr")).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("SYSTEM PROMPT"))
		Expect(buf.String()).To(ContainSubstring("sys"))
		Expect(buf.String()).To(ContainSubstring("USER PROMPT"))
		Expect(buf.String()).To(HaveSuffix("usr\n"))
	})
})

var _ = Describe("WriteFile", func() {
	It("saves the plain block", func() {
		path := filepath.Join(GinkgoT().TempDir(), "analysis.txt")
		Expect(WriteFile(path, ac, diag)).To(Succeed())
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(HavePrefix(strings.Repeat("=", ruleWidth) + "\n" + Title))
		Expect(string(data)).To(ContainSubstring("Restart the database."))
	})

	It("reports unwritable paths", func() {
		err := WriteFile(filepath.Join(GinkgoT().TempDir(), "missing", "out.txt"), ac, diag)
		Expect(err).To(MatchError(ContainSubstring("writing analysis to")))
	})
})
