// Command yfbridge is a Yahoo Finance request/response bridge.
//
// Reads one JSON request on stdin, performs it against Yahoo Finance and
// writes one JSON envelope on stdout. Logs go to stderr.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/seenimoa/yfbridge/internal/bridge"
	"github.com/seenimoa/yfbridge/internal/config"
	"github.com/seenimoa/yfbridge/internal/infra"
	"github.com/seenimoa/yfbridge/internal/providers/yfinance"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "yfbridge",
		Short: "Yahoo Finance JSON bridge",
		Long: `yfbridge reads one JSON request on stdin, performs one of
search, history, news, estimates, info or statements against Yahoo
Finance and writes one JSON envelope on stdout.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				// The caller still gets its envelope.
				_, werr := stdout.Write(bridge.Encode(bridge.Failure(err)))
				return werr
			}

			logger := infra.NewLogger(stderr, cfg.Logging.Level, cfg.Logging.Format)
			client := yfinance.New(cfg.Yahoo, logger)
			defer client.Close()

			return bridge.Run(cmd.Context(), stdin, stdout, client, logger)
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	root.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(newVersionCmd())
	return root
}

// loadConfig reads the config file named by --config, or searches the
// default locations, then applies --log-level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}

// --- Version Command ---

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "yfbridge %s\n", version)
			fmt.Fprintf(out, "  commit:  %s\n", commit)
			fmt.Fprintf(out, "  built:   %s\n", date)
		},
	}
}
