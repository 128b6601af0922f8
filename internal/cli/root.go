// Package cli provides the histnorm command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/histnorm/internal/config"
	"github.com/JonMunkholm/histnorm/internal/logging"
)

// Version information (set at build time).
var Version = "0.1.0"

var cfgFile string

// configKey is used to store config in context.
type configKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "histnorm",
		Short: "Normalize historical statistics into a canonical schema",
		Long: `histnorm downloads historical statistical tables, reshapes each one
with its dataset plugin into a fixed set of dimensions, and writes a long
(_PF) and a wide (_UF) CSV per dataset.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			logging.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
			slog.Debug("configuration loaded", "config", cfg.String())

			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./"+config.DefaultFile+" if present)")
	pf.String("data-dir", "", "root of the data tree")
	pf.String("sources", "", "source catalogue file")
	pf.String("regions", "", "region definitions file")
	pf.String("input-dir", "", "directory of <ID>_input.csv files")
	pf.String("output-dir", "", "directory for cleaned outputs")
	pf.String("cache-dir", "", "directory for fetched sources")
	pf.Duration("timeout", 0, "timeout for a single download")
	pf.String("database-url", "", "PostgreSQL URL; enables publishing")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.String("log-format", "", "log format (text|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newFetchCommand())
	rootCmd.AddCommand(newProcessCommand())
	rootCmd.AddCommand(newSourcesCommand())
	rootCmd.AddCommand(newDatasetsCommand())
	rootCmd.AddCommand(newResolveCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newResetCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// getConfig retrieves the config from the command context.
func getConfig(ctx context.Context) (*config.Config, error) {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c, nil
	}
	return config.Load(cfgFile, nil)
}
