package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nao1215/linkscan/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for linkscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkscan",
		Short: "Find dead links on a website",
		Long: `linkscan crawls a website starting from one or more seed URLs and reports
every link that points to a page that could not be loaded.

Pages on the seed's site are followed; links to other sites are checked
once but not followed. Pages can be loaded with a plain HTTP client or with
a headless browser (Chrome or Playwright) for sites built with JavaScript.

Reports are archived so that later crawls can be compared with earlier ones.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", string(log.FormatText), "Log format: text or json")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// newLogger builds the logger selected by the global flags.
// Logs go to stderr so that reports on stdout stay machine-readable.
func newLogger(cmd *cobra.Command, verbose bool, format string) (*slog.Logger, error) {
	if cmd.Flags().Changed("verbose") {
		verbose = getBoolFlag(cmd, "verbose")
	}
	if cmd.Flags().Changed("log-format") {
		if f, err := cmd.Flags().GetString("log-format"); err == nil {
			format = f
		}
	}
	return log.NewLogger(cmd.ErrOrStderr(), verbose, log.Format(format))
}

// getBoolFlag retrieves a boolean flag from the command or its parents.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}
