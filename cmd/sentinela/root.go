package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"Sentinela/internal/app"
	"Sentinela/internal/config"
	"Sentinela/internal/domain"
	"Sentinela/internal/logging"
	"Sentinela/internal/usecase"
)

// Exit codes.
const (
	exitOK           = 0
	exitPublish      = 1
	exitState        = 2
	exitConfig       = 3
	exitUnclassified = 4
)

var errInvalidConfig = errors.New("invalid configuration")

type options struct {
	configPath string
	logLevel   string
	logFormat  string
	dryRun     bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "sentinela",
		Short:         "Publishes Brazilian public-sector news and deputy expenses as threads",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (default $SENTINELA_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug|info|warn|error")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "text|json")
	root.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "print threads instead of publishing")

	root.AddCommand(
		newNewsCmd(opts),
		newExpensesCmd(opts),
		newRankingCmd(opts),
		newScheduleCmd(opts),
		newLedgerCmd(opts),
	)
	return root
}

// setup loads and validates configuration and builds the application.
func setup(cmd *cobra.Command, opts *options) (*app.Application, *slog.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errInvalidConfig, err)
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Logging.Format = opts.logFormat
	}
	if opts.dryRun {
		cfg.Publisher.Driver = config.PublisherConsole
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errInvalidConfig, err)
	}

	logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	return app.New(cfg, logger, cmd.OutOrStdout()), logger, nil
}

func newNewsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "news",
		Short: "Publish the next unpublished news item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, _, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer application.Close()

			_, err = application.RunNews(cmd.Context())
			return err
		},
	}
}

func newExpensesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "expenses",
		Short: "Publish the expense thread of the next ranked deputy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, _, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer application.Close()

			_, err = application.RunExpenses(cmd.Context())
			return err
		},
	}
}

func newRankingCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ranking",
		Short: "Rebuild the deputy expense ranking from the Câmara open-data API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, logger, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer application.Close()

			ranking, err := application.RunRanking(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("ranking ready", "deputies", len(ranking.Deputies), "months", ranking.Months)
			return nil
		},
	}
}

func newScheduleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the configured cron jobs until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, _, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Schedule(cmd.Context())
		},
	}
}

func newLedgerCmd(opts *options) *cobra.Command {
	ledger := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect published-item ledgers",
	}

	var asJSON bool
	show := &cobra.Command{
		Use:       "show news|expenses",
		Short:     "Print the entries of a pipeline ledger",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{app.PipelineNews, app.PipelineExpenses},
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer application.Close()

			store, err := application.Ledger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			state, err := store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load ledger: %w: %w", usecase.ErrStateUnavailable, err)
			}
			return printLedger(cmd.OutOrStdout(), state, asJSON)
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")

	ledger.AddCommand(show)
	return ledger
}

func printLedger(w io.Writer, ledger domain.Ledger, asJSON bool) error {
	if asJSON {
		entries := ledger.Entries
		if entries == nil {
			entries = []domain.LedgerEntry{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PUBLISHED AT\tID")
	for _, e := range ledger.Entries {
		fmt.Fprintf(tw, "%s\t%s\n", e.PublishedAt.Format(time.RFC3339), e.ID)
	}
	return tw.Flush()
}

// exitCode maps run errors to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errInvalidConfig):
		return exitConfig
	case errors.Is(err, usecase.ErrStateUnavailable), errors.Is(err, domain.ErrCorruptState):
		return exitState
	case errors.Is(err, usecase.ErrPublishFailed):
		return exitPublish
	default:
		return exitUnclassified
	}
}
