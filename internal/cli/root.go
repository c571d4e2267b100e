// Package cli wires the gopher-triage commands: configuration loading,
// logging setup and the analyze, patterns and version commands.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/tonyjoanes/gopher-triage/internal/config"
)

type app struct {
	configPath string
	verbose    bool
	dev        bool
	// dotenvDir is where .env discovery starts; the working directory by default.
	dotenvDir string

	cfg *config.Config

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stdin, os.Stdout, os.Stderr, ".")
}

func NewRootCommandWithIO(in io.Reader, out, errOut io.Writer) *cobra.Command {
	return newRootCommand(in, out, errOut, ".")
}

func newRootCommand(in io.Reader, out, errOut io.Writer, dotenvDir string) *cobra.Command {
	a := &app{
		dotenvDir: dotenvDir,
		stdin:     in,
		stdout:    out,
		stderr:    errOut,
	}

	cmd := &cobra.Command{
		Use:   "gopher-triage",
		Short: "Get solutions for your DevOps errors",
		Long: "gopher-triage reduces a log to its error sections (plus a few lines of context), " +
			"sends it to an LLM and prints the suggested remediation.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		Version:           Version,
		PersistentPreRunE: a.setup,
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&a.dev, "dev", false, "use the human-friendly development log encoder")

	cmd.AddCommand(
		newAnalyzeCmd(a),
		newPatternsCmd(a),
		newVersionCmd(),
	)
	cmd.SetVersionTemplate("gopher-triage {{.Version}} (commit " + Commit + ", built " + BuildDate + ")\n")
	return cmd
}

// setup runs before every command: logger first, then .env and config so
// loading problems are logged.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	logger := newLogger(a.stderr, a.verbose, a.dev)
	log.SetLogger(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(log.IntoContext(ctx, logger))

	path, err := config.LoadDotEnv(a.dotenvDir)
	if err != nil {
		return err
	}
	if path != "" {
		logger.V(1).Info("loaded environment file", "path", path)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func newLogger(w io.Writer, verbose, dev bool) logr.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	return zap.New(
		zap.UseDevMode(dev),
		zap.WriteTo(w),
		zap.Level(level),
	)
}
