/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sigs.k8s.io/controller-runtime/pkg/log"

	ggithub "github.com/tonyjoanes/gopher-triage/internal/github"
	"github.com/tonyjoanes/gopher-triage/internal/llm"
	"github.com/tonyjoanes/gopher-triage/internal/notify"
	"github.com/tonyjoanes/gopher-triage/internal/observability"
	"github.com/tonyjoanes/gopher-triage/internal/report"
)

// ErrNothingToAnalyze is returned when collection leaves no text to send,
// e.g. an empty input, or no error lines and sampling disabled.
var ErrNothingToAnalyze = errors.New("nothing to analyze: the input has no content to send")

// Publisher posts a finished analysis somewhere durable.
type Publisher interface {
	Publish(ctx context.Context, req ggithub.PublishRequest) (*ggithub.PublishResult, error)
}

// Notifier announces a finished analysis.
type Notifier interface {
	SendAnalysis(ctx context.Context, u notify.AnalysisUpdate) error
}

// Analyzer runs one analysis end to end.
type Analyzer struct {
	Collector *observability.Collector
	LLM       llm.LLMClient
	Console   *report.Console

	// OutputPath, when set, receives the analysis instead of the console.
	OutputPath string
	// DryRun prints the prompt and stops before the model call.
	DryRun bool

	// Publisher and IssueTarget are optional; both must be set to publish.
	Publisher   Publisher
	IssueTarget *ggithub.IssueRef
	// Notifier is optional.
	Notifier Notifier
}

// Result is what one Run produced. Diagnosis is nil for dry runs.
type Result struct {
	Context   *observability.AnalysisContext
	Diagnosis *llm.Diagnosis
	IssueURL  string
}

// Run executes the analysis flow.
//
//  1. Collect the log and reduce it per the configured mode.
//  2. Stop with ErrNothingToAnalyze when there is no text to send.
//  3. On a dry run, print the prompt and stop.
//  4. Call the LLM.
//  5. Print the result, or save it to OutputPath.
//  6. Publish to GitHub, then notify. Failures here are logged, not returned.
func (a *Analyzer) Run(ctx context.Context, src observability.Source) (*Result, error) {
	logger := log.FromContext(ctx)

	// --- 1. Collect ---
	ac, err := a.Collector.Collect(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("collecting log: %w", err)
	}
	logger.Info("collected log", "source", ac.Source, "mode", ac.Mode, "chars", len(ac.Text))

	// --- 2. Anything to send? ---
	if strings.TrimSpace(ac.Text) == "" {
		return nil, ErrNothingToAnalyze
	}

	res := &Result{Context: ac}

	// --- 3. Dry run ---
	if a.DryRun {
		logger.Info("dry run: not calling the LLM")
		if err := a.Console.PrintPrompt(llm.SystemPrompt, llm.BuildUserPrompt(ac)); err != nil {
			return nil, err
		}
		return res, nil
	}

	// --- 4. Diagnose ---
	diagnosis, err := a.LLM.Diagnose(ctx, ac)
	if err != nil {
		return nil, fmt.Errorf("analyzing log: %w", err)
	}
	res.Diagnosis = diagnosis

	// --- 5. Output ---
	if err := a.output(ac, diagnosis); err != nil {
		return nil, err
	}

	// --- 6. Publish + notify ---
	if a.Publisher != nil && a.IssueTarget != nil {
		pub, err := a.Publisher.Publish(ctx, ggithub.PublishRequest{
			Target:    *a.IssueTarget,
			Context:   ac,
			Diagnosis: diagnosis,
		})
		if err != nil {
			logger.Error(err, "failed to publish analysis to GitHub (non-fatal)", "target", a.IssueTarget.String())
		} else {
			res.IssueURL = pub.URL
			logger.Info("published analysis to GitHub", "url", pub.URL, "newIssue", pub.Created)
		}
	}

	if a.Notifier != nil {
		if err := a.Notifier.SendAnalysis(ctx, notify.AnalysisUpdate{
			Context:   ac,
			Diagnosis: diagnosis,
			IssueURL:  res.IssueURL,
		}); err != nil {
			logger.Error(err, "webhook notification failed (non-fatal)")
		}
	}

	return res, nil
}

func (a *Analyzer) output(ac *observability.AnalysisContext, d *llm.Diagnosis) error {
	if a.OutputPath == "" {
		return a.Console.Print(ac, d)
	}
	if err := report.WriteFile(a.OutputPath, ac, d); err != nil {
		return err
	}
	_, err := fmt.Fprintf(a.Console.Out, "Analysis saved to %s\n", a.OutputPath)
	return err
}
