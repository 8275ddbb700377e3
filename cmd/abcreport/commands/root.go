package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/koizuka/abcreport/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set with -ldflags "-X github.com/koizuka/abcreport/cmd/abcreport/commands.Version=..."
var Version = "dev"

type rootOptions struct {
	configPath string
	envFiles   []string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "abcreport",
		Short: "abcreport collects the ABC daily licensing report over a range of dates.",
		Long: `abcreport opens the California ABC "New Applications" daily report for every
day of a date range, collects the table rows, stamps each with its Report Date and
writes them to CSV, JSON or Excel files.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(opts.envFiles...); err != nil {
				return err
			}
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg

			logger, err := newLogger(cfg.Logging, opts.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "config file (YAML)")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files to load before the config")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	cmd.AddCommand(
		newScrapeCommand(opts),
		newValidateCommand(opts),
		newMergeCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

// ExecuteContext runs the command line and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
