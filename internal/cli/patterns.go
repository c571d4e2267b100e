package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tonyjoanes/gopher-triage/internal/preprocess"
)

func newPatternsCmd(a *app) *cobra.Command {
	var patterns, extra []string
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "List the active error signatures",
		Long: "List the error signatures used to find error lines. Literals match case-insensitive " +
			"substrings; entries written as re:<expr> are case-insensitive regular expressions.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("pattern") {
				a.cfg.Preprocess.Patterns = patterns
			}
			a.cfg.Preprocess.ExtraPatterns = append(a.cfg.Preprocess.ExtraPatterns, extra...)

			opts, err := a.cfg.PreprocessOptions()
			if err != nil {
				return err
			}
			// Compile to surface bad regexes here rather than at analysis time.
			if _, err := preprocess.NewMatcher(opts.Patterns); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tSIGNATURE")
			for _, p := range opts.Patterns {
				fmt.Fprintf(tw, "%s\t%s\n", p.Kind, p.Expr)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringArrayVar(&patterns, "pattern", nil, "replace the built-in signatures (repeatable; re:<expr> for a regex)")
	cmd.Flags().StringArrayVar(&extra, "extra-pattern", nil, "add a signature to the active set (repeatable; re:<expr> for a regex)")
	return cmd
}
