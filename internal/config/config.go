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

// Package config holds the gopher-triage configuration: defaults, an
// optional YAML file, environment variables and a discovered .env file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"sigs.k8s.io/yaml"

	"github.com/tonyjoanes/gopher-triage/internal/preprocess"
)

// LLMProvider enumerates the supported LLM backends.
type LLMProvider string

const (
	LLMProviderAzure  LLMProvider = "azure"
	LLMProviderOpenAI LLMProvider = "openai"
	LLMProviderGroq   LLMProvider = "groq"
	LLMProviderOllama LLMProvider = "ollama"
)

// Mode selects whether the log is reduced before it is sent.
type Mode string

const (
	// ModeAuto preprocesses inputs of at least Preprocess.MinSizeBytes.
	ModeAuto Mode = "auto"
	// ModeRaw sends the whole input unchanged.
	ModeRaw Mode = "raw"
	// ModePreprocessed always reduces the input to its error sections.
	ModePreprocessed Mode = "preprocessed"
)

// Environment variables read by FromEnv. The first three keep the names
// used by existing Azure OpenAI setups.
const (
	EnvEndpoint      = "ENDPOINT_URL"
	EnvDeployment    = "DEPLOYMENT_NAME"
	EnvAzureAPIKey   = "AZURE_OPENAI_API_KEY"
	EnvProvider      = "LLM_PROVIDER"
	EnvAPIKey        = "LLM_API_KEY"
	EnvGitHubToken   = "GITHUB_TOKEN"
	EnvWebhookURL    = "NOTIFY_WEBHOOK_URL"
	EnvPrometheusURL = "PROMETHEUS_URL"
	EnvContextLines  = "CONTEXT_LINES"
)

// LLMConfig configures the remote analysis endpoint.
type LLMConfig struct {
	// Provider selects the backend. Defaults to azure.
	Provider LLMProvider `json:"provider,omitempty"`
	// Endpoint is the base URL. Required for azure; optional elsewhere.
	Endpoint string `json:"endpoint,omitempty"`
	// Model is the model name, or the deployment name for azure.
	Model string `json:"model,omitempty"`
	// APIVersion is only used by azure.
	APIVersion string `json:"apiVersion,omitempty"`
	// APIKey is normally taken from the environment rather than the file.
	APIKey string `json:"apiKey,omitempty"`

	Temperature    float32 `json:"temperature,omitempty"`
	MaxTokens      int     `json:"maxTokens,omitempty"`
	TimeoutSeconds int     `json:"timeoutSeconds,omitempty"`
	// MaxAttempts bounds retries on throttling and server errors.
	MaxAttempts int `json:"maxAttempts,omitempty"`
	// MaxPromptTokens logs a warning when a prompt is larger; 0 disables it.
	MaxPromptTokens int `json:"maxPromptTokens,omitempty"`
}

// PreprocessConfig configures log reduction.
type PreprocessConfig struct {
	Mode         Mode `json:"mode,omitempty"`
	ContextLines int  `json:"contextLines"`
	MaxSections  int  `json:"maxSections"`
	// MinSizeBytes is the auto-mode threshold.
	MinSizeBytes int64 `json:"minSizeBytes,omitempty"`
	// LargeFileBytes adds a note to the prompt for inputs above it.
	LargeFileBytes int64 `json:"largeFileBytes,omitempty"`
	// SampleLines is how many leading lines are sent when nothing matched.
	SampleLines int `json:"sampleLines,omitempty"`
	// Patterns replaces the built-in signatures; "re:" marks a regex.
	Patterns []string `json:"patterns,omitempty"`
	// ExtraPatterns are added to the active signatures.
	ExtraPatterns []string `json:"extraPatterns,omitempty"`
}

// KubernetesConfig configures pod log ingestion.
type KubernetesConfig struct {
	Kubeconfig    string `json:"kubeconfig,omitempty"`
	Context       string `json:"context,omitempty"`
	TailLines     int64  `json:"tailLines,omitempty"`
	PrometheusURL string `json:"prometheusURL,omitempty"`
}

// NotifyConfig configures the Slack/Discord webhook.
type NotifyConfig struct {
	WebhookURL string `json:"webhookURL,omitempty"`
}

// GitHubConfig configures publishing to GitHub issues.
type GitHubConfig struct {
	// Token is normally taken from GITHUB_TOKEN.
	Token string `json:"token,omitempty"`
}

// Config is the full gopher-triage configuration.
type Config struct {
	LLM        LLMConfig        `json:"llm"`
	Preprocess PreprocessConfig `json:"preprocess"`
	Kubernetes KubernetesConfig `json:"kubernetes"`
	Notify     NotifyConfig     `json:"notify"`
	GitHub     GitHubConfig     `json:"github"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       LLMProviderAzure,
			APIVersion:     "2025-01-01-preview",
			Temperature:    0.2,
			MaxTokens:      4000,
			TimeoutSeconds: 120,
			MaxAttempts:    3,
		},
		Preprocess: PreprocessConfig{
			Mode:           ModeAuto,
			ContextLines:   preprocess.DefaultContextLines,
			MaxSections:    preprocess.DefaultMaxSections,
			MinSizeBytes:   10 << 10,
			LargeFileBytes: 3 << 20,
			SampleLines:    100,
		},
		Kubernetes: KubernetesConfig{
			TailLines: 1000,
		},
	}
}

// Load returns Default overlaid with the YAML file at path (if any) and
// then the environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := cfg.FromEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv overlays values present in the environment. lookup is normally
// os.LookupEnv.
func (c *Config) FromEnv(lookup func(string) (string, bool)) error {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	var provider string
	set(EnvProvider, &provider)
	if provider != "" {
		c.LLM.Provider = LLMProvider(provider)
	}
	set(EnvEndpoint, &c.LLM.Endpoint)
	set(EnvDeployment, &c.LLM.Model)
	if c.LLM.Provider == LLMProviderAzure {
		set(EnvAzureAPIKey, &c.LLM.APIKey)
	}
	set(EnvAPIKey, &c.LLM.APIKey)
	set(EnvGitHubToken, &c.GitHub.Token)
	set(EnvWebhookURL, &c.Notify.WebhookURL)
	set(EnvPrometheusURL, &c.Kubernetes.PrometheusURL)

	if v, ok := lookup(EnvContextLines); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s=%q: %w", EnvContextLines, v, err)
		}
		c.Preprocess.ContextLines = n
	}
	return nil
}

// Validate checks the configuration for values that can never work.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case LLMProviderAzure:
		if c.LLM.Endpoint == "" {
			return fmt.Errorf("azure provider requires an endpoint (set %s or llm.endpoint)", EnvEndpoint)
		}
		if c.LLM.Model == "" {
			return fmt.Errorf("azure provider requires a deployment name (set %s or llm.model)", EnvDeployment)
		}
		if c.LLM.APIKey == "" {
			return fmt.Errorf("no API key provided: set %s or pass --api-key", EnvAzureAPIKey)
		}
	case LLMProviderOpenAI, LLMProviderGroq:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("no API key provided: set %s or pass --api-key", EnvAPIKey)
		}
	case LLMProviderOllama:
	default:
		return fmt.Errorf("unsupported llm provider %q: must be one of azure, openai, groq, ollama", c.LLM.Provider)
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("llm.maxAttempts must be >= 1, got %d", c.LLM.MaxAttempts)
	}
	return c.ValidatePreprocess()
}

// ValidatePreprocess checks only the preprocessing settings. Dry runs use
// it since they never reach the LLM.
func (c *Config) ValidatePreprocess() error {
	switch c.Preprocess.Mode {
	case ModeAuto, ModeRaw, ModePreprocessed:
	default:
		return fmt.Errorf("unsupported mode %q: must be one of auto, raw, preprocessed", c.Preprocess.Mode)
	}
	if c.Preprocess.ContextLines < 0 {
		return &preprocess.BoundaryError{Param: "contextLines", Value: c.Preprocess.ContextLines}
	}
	if c.Preprocess.MaxSections < 0 {
		return &preprocess.BoundaryError{Param: "maxSections", Value: c.Preprocess.MaxSections}
	}
	return nil
}

// PreprocessOptions builds reducer options, resolving the pattern lists.
func (c *Config) PreprocessOptions() (preprocess.Options, error) {
	opts := preprocess.Options{
		ContextLines: c.Preprocess.ContextLines,
		MaxSections:  c.Preprocess.MaxSections,
		Patterns:     preprocess.DefaultPatterns(),
	}
	if len(c.Preprocess.Patterns) > 0 {
		ps, err := preprocess.ParsePatterns(c.Preprocess.Patterns)
		if err != nil {
			return opts, err
		}
		opts.Patterns = ps
	}
	extra, err := preprocess.ParsePatterns(c.Preprocess.ExtraPatterns)
	if err != nil {
		return opts, err
	}
	opts.Patterns = append(opts.Patterns, extra...)
	return opts, nil
}
