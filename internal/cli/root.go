// Package cli implements ragctl, the operator tool for one-off ingestion work.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/akolanti/GoIngest/internal/app"
	"github.com/akolanti/GoIngest/internal/config"
	"github.com/akolanti/GoIngest/pkg/logger_i"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

type rootOptions struct {
	configPath string
	verbose    bool
}

// NewRootCmd builds a fresh command tree so tests can run commands in isolation.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "ragctl",
		Short: "Operate the document ingestion worker",
		Long: `ragctl runs single ingestion steps against the same stores the worker uses.

It can ingest or delete a document without the change log, search a knowledge
base, run one reconciliation sweep and publish synthetic change events.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			logger_i.InitWriter(cmd.ErrOrStderr(), level)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (yaml, toml or json)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newIngestCmd(opts),
		newDeleteCmd(opts),
		newSearchCmd(opts),
		newReconcileCmd(opts),
		newPublishCmd(opts),
	)
	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}

// withApp loads config, wires the app and closes it after fn returns.
func withApp(ctx context.Context, opts *rootOptions, fn func(a *app.App) error) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
