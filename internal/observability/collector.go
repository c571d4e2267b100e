package observability

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/tonyjoanes/gopher-triage/internal/config"
	"github.com/tonyjoanes/gopher-triage/internal/preprocess"
)

// sampleMarker ends the head-of-log sample sent when nothing matched.
const sampleMarker = "\n[...log file continues...]\n"

// enricher is implemented by sources that can attach more context than
// the log text, such as PodSource.
type enricher interface {
	Enrich(ctx context.Context, ac *AnalysisContext)
}

// Collector turns a Source into an AnalysisContext, reducing the log when
// the configured mode asks for it.
type Collector struct {
	Reducer *preprocess.Reducer
	Mode    config.Mode
	// MinSizeBytes is the ModeAuto threshold for preprocessing.
	MinSizeBytes int64
	// LargeFileBytes marks inputs that get a note in the prompt.
	LargeFileBytes int64
	// SampleLines is how many leading lines are sent when nothing matched; 0 sends nothing.
	SampleLines int
	// SavePath, when set, receives a copy of the reduced text before it is sent.
	SavePath string
}

// NewCollector builds a Collector from the preprocess configuration.
func NewCollector(cfg config.PreprocessConfig, reducer *preprocess.Reducer) *Collector {
	return &Collector{
		Reducer:        reducer,
		Mode:           cfg.Mode,
		MinSizeBytes:   cfg.MinSizeBytes,
		LargeFileBytes: cfg.LargeFileBytes,
		SampleLines:    cfg.SampleLines,
	}
}

// ResolveMode applies the auto-mode size policy.
func (c *Collector) ResolveMode(size int64) config.Mode {
	switch c.Mode {
	case config.ModeRaw, config.ModePreprocessed:
		return c.Mode
	}
	if size >= c.MinSizeBytes {
		return config.ModePreprocessed
	}
	return config.ModeRaw
}

// Collect reads src and builds the AnalysisContext.
func (c *Collector) Collect(ctx context.Context, src Source) (*AnalysisContext, error) {
	raw, err := src.Read(ctx)
	if err != nil {
		return nil, err
	}
	logger := log.FromContext(ctx).WithValues("source", raw.Name)

	ac := &AnalysisContext{
		Source:      raw.Name,
		Mode:        c.ResolveMode(raw.Size()),
		SizeBytes:   raw.Size(),
		CollectedAt: time.Now(),
		LargeInput:  c.LargeFileBytes > 0 && raw.Size() > c.LargeFileBytes,

		PreviousContainer: raw.Previous,
	}

	if ac.Mode == config.ModeRaw {
		ac.Text = raw.Text
		ac.ErrorCodes = preprocess.ExtractErrorCodes(raw.Text)
	} else {
		logger.Info("preprocessing log to extract error sections", "size", humanize.IBytes(uint64(raw.Size())))
		if err := c.reduce(ctx, raw, ac); err != nil {
			return nil, err
		}
	}

	// In raw mode the text sent is the whole input, and that is what gets saved.
	if c.SavePath != "" {
		if err := os.WriteFile(c.SavePath, []byte(ac.Text), 0o644); err != nil {
			return nil, fmt.Errorf("saving preprocessed log: %w", err)
		}
		logger.Info("saved preprocessed log", "path", c.SavePath, "mode", ac.Mode)
	}

	if e, ok := src.(enricher); ok {
		e.Enrich(ctx, ac)
	}

	logger.V(1).Info(ac.Summary())
	return ac, nil
}

func (c *Collector) reduce(ctx context.Context, raw *RawLog, ac *AnalysisContext) error {
	logger := log.FromContext(ctx)
	start := time.Now()

	lines := preprocess.SplitLines(raw.Text)
	res, err := c.Reducer.ReduceLines(lines)
	if err != nil {
		return fmt.Errorf("preprocessing %s: %w", raw.Name, err)
	}
	for _, w := range res.Warnings {
		if errors.Is(w, preprocess.ErrNoMatches) && c.SampleLines > 0 {
			continue
		}
		logger.Info("preprocessing warning", "warning", w.Error())
	}

	ac.TotalLines = res.TotalLines
	ac.MatchedLines = res.MatchedLines
	ac.KeptLines = res.KeptLines()
	ac.Sections = len(res.Sections)
	ac.ContextLines = c.Reducer.ContextLines()

	switch {
	case !res.Empty():
		ac.Text = res.Render()
		// Statistics are taken from the kept lines, not the section headers.
		kept := preprocess.JoinLines(res.Lines())
		st := preprocess.ComputeStats(kept)
		ac.Stats = &st
		ac.Categories = preprocess.Categorize(kept)
		ac.ErrorCodes = preprocess.ExtractErrorCodes(kept)
	case res.TotalLines > 0 && c.SampleLines > 0:
		n := min(c.SampleLines, len(lines))
		logger.Info("no error sections found, sending a sample of the log", "lines", n)
		ac.Text = preprocess.JoinLines(lines[:n]) + sampleMarker
		ac.Sampled = true
		ac.KeptLines = n
	}

	logger.Info("preprocessing completed",
		"duration", time.Since(start).Round(time.Millisecond).String(),
		"lines", res.TotalLines,
		"matched", res.MatchedLines,
		"sections", len(res.Sections),
		"extracted", humanize.IBytes(uint64(len(ac.Text))),
	)
	return nil
}
