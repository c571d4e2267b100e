package llm

import (
	"fmt"

	"github.com/tonyjoanes/gopher-triage/internal/config"
)

const (
	groqBaseURL   = "https://api.groq.com/openai/v1"
	ollamaBaseURL = "http://localhost:11434/v1"
)

// NewFromConfig builds the LLMClient for the configured provider.
//
// Azure OpenAI needs an endpoint, a deployment name (Model) and a key.
// OpenAI and Groq need a key. Ollama needs neither and defaults to
// localhost:11434.
func NewFromConfig(cfg config.LLMConfig) (LLMClient, error) {
	switch cfg.Provider {
	case config.LLMProviderAzure, config.LLMProviderOpenAI, config.LLMProviderGroq, config.LLMProviderOllama:
	default:
		return nil, fmt.Errorf("unsupported llm provider %q: must be one of azure, openai, groq, ollama", cfg.Provider)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModelFor(cfg.Provider)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultBaseURLFor(cfg.Provider)
	}
	c, err := NewOpenAIClient(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// defaultModelFor returns a sensible default model name for each provider.
// Azure has no default: the deployment name is always site-specific.
func defaultModelFor(provider config.LLMProvider) string {
	switch provider {
	case config.LLMProviderGroq:
		return "llama3-70b-8192"
	case config.LLMProviderOpenAI:
		return "gpt-4o-mini"
	case config.LLMProviderOllama:
		return "llama3"
	default:
		return ""
	}
}

func defaultBaseURLFor(provider config.LLMProvider) string {
	switch provider {
	case config.LLMProviderGroq:
		return groqBaseURL
	case config.LLMProviderOllama:
		return ollamaBaseURL
	default:
		return ""
	}
}
