// Package report renders a diagnosis for people: a styled console block or
// a plain text file.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tonyjoanes/gopher-triage/internal/llm"
	"github.com/tonyjoanes/gopher-triage/internal/observability"
)

// Title heads every rendered analysis.
const Title = "DEVOPS ERROR ANALYSIS RESULTS"

const ruleWidth = 50

// gopherArt is printed above every console diagnosis.
const gopherArt = `
    /\_____/\
   /  o   o  \   G O P H E R   T R I A G E
  ( ==  ^  == )  ─────────────────────────
   )         (   AI Analysis:
  (           )
 ( (  )   (  ) )
(__(__)___(__)__)
`

var (
	colorCyan = lipgloss.Color("12")
	colorGray = lipgloss.Color("8")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	ruleStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	dimStyle   = lipgloss.NewStyle().Foreground(colorGray)
)

// Console writes diagnoses to a terminal.
type Console struct {
	Out io.Writer
	// Plain disables styling and the gopher art, e.g. when stdout is piped.
	Plain bool
}

// NewConsole returns a Console writing to out, or to stdout when out is nil.
func NewConsole(out io.Writer, plain bool) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{Out: out, Plain: plain}
}

// Print writes the analysis block.
func (c *Console) Print(ac *observability.AnalysisContext, d *llm.Diagnosis) error {
	rule := strings.Repeat("=", ruleWidth)
	var sb strings.Builder
	if c.Plain {
		fmt.Fprintf(&sb, "\n%s\n%s\n%s\n\n", rule, Title, rule)
		sb.WriteString(d.Solution)
		fmt.Fprintf(&sb, "\n\n%s\n", rule)
	} else {
		sb.WriteString(gopherArt)
		fmt.Fprintf(&sb, "\n%s\n%s\n%s\n", ruleStyle.Render(rule), titleStyle.Render(Title), ruleStyle.Render(rule))
		if meta := metaLine(ac, d); meta != "" {
			sb.WriteString(dimStyle.Render(meta) + "\n")
		}
		sb.WriteString("\n" + d.Solution + "\n\n")
		sb.WriteString(ruleStyle.Render(rule) + "\n")
	}
	_, err := io.WriteString(c.Out, sb.String())
	return err
}

// PrintPrompt shows what would be sent to the model without sending it.
func (c *Console) PrintPrompt(system, user string) error {
	rule := strings.Repeat("-", ruleWidth)
	render := func(s string) string {
		if c.Plain {
			return s
		}
		return titleStyle.Render(s)
	}
	_, err := fmt.Fprintf(c.Out, "%s\n%s\n%s\n%s\n%s\n%s\n%s\n",
		render("SYSTEM PROMPT"), rule, system, rule, render("USER PROMPT"), rule, user)
	return err
}

func metaLine(ac *observability.AnalysisContext, d *llm.Diagnosis) string {
	if ac == nil {
		return ""
	}
	parts := []string{ac.Source, string(ac.Mode)}
	if ac.Sections > 0 {
		parts = append(parts, fmt.Sprintf("%d of %d lines in %d section(s)", ac.KeptLines, ac.TotalLines, ac.Sections))
	}
	if d.Model != "" {
		parts = append(parts, d.Model)
	}
	if d.Usage.TotalTokens > 0 {
		parts = append(parts, fmt.Sprintf("%d tokens", d.Usage.TotalTokens))
	}
	return strings.Join(parts, " · ")
}

// WriteFile saves the solution as plain text, the same block the console
// prints in Plain mode.
func WriteFile(path string, ac *observability.AnalysisContext, d *llm.Diagnosis) error {
	var sb strings.Builder
	c := &Console{Out: &sb, Plain: true}
	if err := c.Print(ac, d); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(strings.TrimLeft(sb.String(), "\n")), 0o644); err != nil {
		return fmt.Errorf("writing analysis to %s: %w", path, err)
	}
	return nil
}
