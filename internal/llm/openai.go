package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"k8s.io/apimachinery/pkg/util/wait"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/tonyjoanes/gopher-triage/internal/config"
	"github.com/tonyjoanes/gopher-triage/internal/observability"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint:
// Azure OpenAI, OpenAI, Groq and Ollama.
type OpenAIClient struct {
	Provider        config.LLMProvider
	Model           string
	Temperature     float32
	MaxTokens       int
	MaxPromptTokens int
	// Timeout bounds each attempt, not the whole call.
	Timeout time.Duration
	// Backoff controls retries; Steps is the maximum number of attempts.
	Backoff wait.Backoff
	Tokens  TokenCounter

	client *openai.Client
}

// NewOpenAIClient constructs a client from cfg. Model must already be set.
func NewOpenAIClient(cfg config.LLMConfig) (*OpenAIClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%s provider requires a model", cfg.Provider)
	}

	var oc openai.ClientConfig
	switch cfg.Provider {
	case config.LLMProviderAzure:
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("azure provider requires an endpoint")
		}
		oc = openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
		if cfg.APIVersion != "" {
			oc.APIVersion = cfg.APIVersion
		}
		// Deployment names are used verbatim.
		oc.AzureModelMapperFunc = func(string) string { return cfg.Model }
	default:
		oc = openai.DefaultConfig(cfg.APIKey)
		if cfg.Endpoint != "" {
			oc.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
		}
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	return &OpenAIClient{
		Provider:        cfg.Provider,
		Model:           cfg.Model,
		Temperature:     cfg.Temperature,
		MaxTokens:       cfg.MaxTokens,
		MaxPromptTokens: cfg.MaxPromptTokens,
		Timeout:         timeout,
		Backoff: wait.Backoff{
			Steps:    attempts,
			Duration: 2 * time.Second,
			Factor:   2,
			Jitter:   0.1,
		},
		Tokens: NewTiktokenCounter(cfg.Model),
		client: openai.NewClientWithConfig(oc),
	}, nil
}

// Diagnose sends the analysis context to the model. Throttling, server
// errors and network failures are retried with exponential backoff.
func (c *OpenAIClient) Diagnose(ctx context.Context, ac *observability.AnalysisContext) (*Diagnosis, error) {
	logger := log.FromContext(ctx).WithValues("provider", c.Provider, "model", c.Model)

	if strings.TrimSpace(ac.Text) == "" {
		return nil, ErrNoText
	}

	user := BuildUserPrompt(ac)
	req := openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}

	promptTokens := c.Tokens.Count(SystemPrompt) + c.Tokens.Count(user)
	logger.Info("analyzing error text", "chars", len(ac.Text), "promptTokens", promptTokens)
	if c.MaxPromptTokens > 0 && promptTokens > c.MaxPromptTokens {
		logger.Info("prompt exceeds the configured token budget; consider fewer context lines or preprocessed mode",
			"promptTokens", promptTokens, "budget", c.MaxPromptTokens)
	}

	var (
		resp     openai.ChatCompletionResponse
		attempts int
		lastErr  error
	)
	// The wait between attempts ends early when ctx is cancelled.
	err := wait.ExponentialBackoffWithContext(ctx, c.Backoff, func(ctx context.Context) (bool, error) {
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, c.Timeout)
		defer cancel()

		r, err := c.client.CreateChatCompletion(callCtx, req)
		if err != nil {
			logger.V(1).Info("chat completion failed", "attempt", attempts, "err", err)
			if !retriable(ctx, err) {
				return false, err
			}
			lastErr = err
			return false, nil
		}
		resp = r
		return true, nil
	})
	switch {
	case err == nil:
	case ctx.Err() != nil && lastErr != nil && !errors.Is(err, lastErr):
		err = fmt.Errorf("%w; last error: %w", err, lastErr)
	case wait.Interrupted(err) && lastErr != nil:
		err = lastErr
	}
	if err != nil {
		return nil, fmt.Errorf("%s analysis failed after %d attempt(s): %w", c.Provider, attempts, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyResponse
	}

	logger.Info("analysis completed", "completionTokens", resp.Usage.CompletionTokens)
	return &Diagnosis{
		Solution:     resp.Choices[0].Message.Content,
		Model:        c.Model,
		PromptTokens: promptTokens,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// retriable reports whether a failed call is worth another attempt:
// throttling, server errors and network errors, unless the caller gave up.
func retriable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retriableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retriableStatus(reqErr.HTTPStatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func retriableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
