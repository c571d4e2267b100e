// Package llm provides the LLMClient abstraction and its OpenAI-compatible
// implementation for turning DevOps error logs into remediation advice.
//
// The Diagnose call takes an AnalysisContext (raw or reduced log text plus
// statistics, events and metrics) and returns the model's free-form
// answer.
package llm

import (
	"context"
	"errors"

	"github.com/tonyjoanes/gopher-triage/internal/observability"
)

var (
	// ErrNoText is returned when the context carries no log text to analyse.
	ErrNoText = errors.New("no error text provided for analysis")
	// ErrEmptyResponse is returned when the model answers with no content.
	ErrEmptyResponse = errors.New("LLM returned an empty response")
)

// LLMClient sends an analysis context to an LLM and returns its diagnosis.
type LLMClient interface {
	Diagnose(ctx context.Context, ac *observability.AnalysisContext) (*Diagnosis, error)
}

// Diagnosis is the model's answer together with request accounting.
type Diagnosis struct {
	// Solution is the formatted remediation text as returned by the model.
	Solution string
	// Model is the model (or Azure deployment) that answered.
	Model string
	// PromptTokens is the local estimate made before sending.
	PromptTokens int
	// Usage is what the provider reported; zero when it reports nothing.
	Usage Usage
}

// Usage mirrors the provider's token accounting.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
