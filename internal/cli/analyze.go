package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/tonyjoanes/gopher-triage/internal/analyzer"
	"github.com/tonyjoanes/gopher-triage/internal/config"
	ggithub "github.com/tonyjoanes/gopher-triage/internal/github"
	"github.com/tonyjoanes/gopher-triage/internal/llm"
	"github.com/tonyjoanes/gopher-triage/internal/notify"
	"github.com/tonyjoanes/gopher-triage/internal/observability"
	"github.com/tonyjoanes/gopher-triage/internal/preprocess"
	"github.com/tonyjoanes/gopher-triage/internal/report"
)

var errNoSource = errors.New("please provide error text using --text, --file or --pod")

type analyzeOptions struct {
	// sources
	text string
	file string
	pod  string

	container     string
	tailLines     int64
	previous      bool
	kubeContext   string
	kubeconfig    string
	events        bool
	prometheusURL string

	// llm
	provider string
	apiKey   string
	endpoint string
	model    string

	// preprocessing
	mode             string
	raw              bool
	contextLines     int
	maxSections      int
	patterns         []string
	extraPatterns    []string
	savePreprocessed string

	// output
	output      string
	plain       bool
	dryRun      bool
	webhookURL  string
	githubIssue string
}

func newAnalyzeCmd(a *app) *cobra.Command {
	o := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze an error log and print a suggested fix",
		Example: `  gopher-triage analyze --text "Error: ImagePullBackOff for image nginx:latesst"
  gopher-triage analyze --file build.log --output analysis.md
  kubectl logs deploy/api | gopher-triage analyze --file -
  gopher-triage analyze --pod prod/api-7f9c --previous --events`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := o.applyFlags(cmd, a.cfg); err != nil {
				return err
			}
			return o.run(cmd.Context(), a)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.text, "text", "", "error text to analyze")
	f.StringVar(&o.file, "file", "", "path to a file containing error text (- for stdin)")
	f.StringVar(&o.pod, "pod", "", "analyze a pod's logs, as namespace/name")
	f.StringVarP(&o.container, "container", "c", "", "container name (defaults to the pod's first container)")
	f.Int64Var(&o.tailLines, "tail-lines", 0, "number of log lines to fetch from the pod (default from config: 1000)")
	f.BoolVarP(&o.previous, "previous", "p", false, "read the previous terminated container instance")
	f.StringVar(&o.kubeContext, "kube-context", "", "kubeconfig context to use")
	f.StringVar(&o.kubeconfig, "kubeconfig", "", "path to the kubeconfig file")
	f.BoolVar(&o.events, "events", true, "include the pod's recent Kubernetes events")
	f.StringVar(&o.prometheusURL, "prometheus-url", "", "Prometheus base URL for pod CPU/memory usage")

	f.StringVar(&o.provider, "provider", "", "LLM provider: azure, openai, groq or ollama")
	f.StringVar(&o.apiKey, "api-key", "", "LLM API key")
	f.StringVar(&o.endpoint, "endpoint", "", "LLM endpoint URL (required for azure)")
	f.StringVar(&o.model, "deployment", "", "Azure OpenAI deployment name, or model name for other providers")
	f.StringVar(&o.model, "model", "", "alias for --deployment")

	f.StringVar(&o.mode, "mode", "", "auto, raw or preprocessed (default auto)")
	f.BoolVar(&o.raw, "raw", false, "send the whole input without preprocessing (same as --mode raw)")
	f.IntVar(&o.contextLines, "context-lines", preprocess.DefaultContextLines, "lines of context before and after each error line")
	f.IntVar(&o.maxSections, "max-sections", preprocess.DefaultMaxSections, "maximum number of error sections sent (0 for no limit)")
	f.StringArrayVar(&o.patterns, "pattern", nil, "replace the built-in signatures (repeatable; re:<expr> for a regex)")
	f.StringArrayVar(&o.extraPatterns, "extra-pattern", nil, "add a signature to the active set (repeatable; re:<expr> for a regex)")
	f.StringVar(&o.savePreprocessed, "save-preprocessed", "", "save the preprocessed log to a file before analysis")

	f.StringVarP(&o.output, "output", "o", "", "save the analysis to a file instead of printing it")
	f.BoolVar(&o.plain, "no-color", false, "print without styling")
	f.BoolVar(&o.dryRun, "dry-run", false, "print the prompt that would be sent and exit without calling the LLM")
	f.StringVar(&o.webhookURL, "webhook-url", "", "Slack or Discord webhook to notify")
	f.StringVar(&o.githubIssue, "github-issue", "", "publish to GitHub: owner/repo#N comments on an issue, owner/repo opens one")

	cmd.MarkFlagsMutuallyExclusive("text", "file", "pod")
	cmd.MarkFlagsMutuallyExclusive("raw", "mode")
	cmd.MarkFlagsMutuallyExclusive("deployment", "model")
	return cmd
}

// applyFlags overlays explicitly set flags on the loaded configuration.
func (o *analyzeOptions) applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("provider") {
		cfg.LLM.Provider = config.LLMProvider(o.provider)
	}
	if f.Changed("api-key") {
		cfg.LLM.APIKey = o.apiKey
	}
	if f.Changed("endpoint") {
		cfg.LLM.Endpoint = o.endpoint
	}
	if f.Changed("deployment") || f.Changed("model") {
		cfg.LLM.Model = o.model
	}

	switch {
	case o.raw:
		cfg.Preprocess.Mode = config.ModeRaw
	case f.Changed("mode"):
		cfg.Preprocess.Mode = config.Mode(o.mode)
	case o.text != "" && cfg.Preprocess.Mode == config.ModeAuto:
		// Text typed on the command line is short; send it as written.
		cfg.Preprocess.Mode = config.ModeRaw
	}
	if f.Changed("context-lines") {
		cfg.Preprocess.ContextLines = o.contextLines
	}
	if f.Changed("max-sections") {
		cfg.Preprocess.MaxSections = o.maxSections
	}
	if f.Changed("pattern") {
		cfg.Preprocess.Patterns = o.patterns
	}
	cfg.Preprocess.ExtraPatterns = append(cfg.Preprocess.ExtraPatterns, o.extraPatterns...)

	if f.Changed("tail-lines") {
		cfg.Kubernetes.TailLines = o.tailLines
	}
	if f.Changed("kube-context") {
		cfg.Kubernetes.Context = o.kubeContext
	}
	if f.Changed("kubeconfig") {
		cfg.Kubernetes.Kubeconfig = o.kubeconfig
	}
	if f.Changed("prometheus-url") {
		cfg.Kubernetes.PrometheusURL = o.prometheusURL
	}
	if f.Changed("webhook-url") {
		cfg.Notify.WebhookURL = o.webhookURL
	}

	if o.dryRun {
		return cfg.ValidatePreprocess()
	}
	return cfg.Validate()
}

func (o *analyzeOptions) run(ctx context.Context, a *app) error {
	logger := log.FromContext(ctx)
	cfg := a.cfg

	src, err := o.source(ctx, a)
	if err != nil {
		return err
	}

	opts, err := cfg.PreprocessOptions()
	if err != nil {
		return err
	}
	reducer, err := preprocess.NewReducer(opts)
	if err != nil {
		return err
	}
	collector := observability.NewCollector(cfg.Preprocess, reducer)
	collector.SavePath = o.savePreprocessed

	an := &analyzer.Analyzer{
		Collector:  collector,
		Console:    report.NewConsole(a.stdout, o.plain),
		OutputPath: o.output,
		DryRun:     o.dryRun,
	}

	if !o.dryRun {
		client, err := llm.NewFromConfig(cfg.LLM)
		if err != nil {
			return fmt.Errorf("building LLM client: %w", err)
		}
		an.LLM = client

		if o.githubIssue != "" {
			ref, err := ggithub.ParseIssueRef(o.githubIssue)
			if err != nil {
				return err
			}
			if cfg.GitHub.Token == "" {
				return fmt.Errorf("--github-issue needs a token: set %s", config.EnvGitHubToken)
			}
			an.Publisher = ggithub.NewIssuePublisher(cfg.GitHub.Token)
			an.IssueTarget = &ref
		}
		if cfg.Notify.WebhookURL != "" {
			an.Notifier = notify.NewNotificationClient(cfg.Notify.WebhookURL)
		}
	}

	logger.V(1).Info("starting analysis",
		"provider", cfg.LLM.Provider,
		"mode", cfg.Preprocess.Mode,
		"contextLines", cfg.Preprocess.ContextLines,
		"patterns", len(opts.Patterns),
	)
	_, err = an.Run(ctx, src)
	return err
}

func (o *analyzeOptions) source(ctx context.Context, a *app) (observability.Source, error) {
	switch {
	case o.text != "":
		return observability.TextSource{Text: o.text}, nil
	case o.file != "":
		return observability.FileSource{Path: o.file, Stdin: a.stdin}, nil
	case o.pod != "":
		return newPodSource(ctx, a.cfg.Kubernetes, o)
	}
	return nil, errNoSource
}
