// Package cmd defines and implements the CLI commands for the ragcrawl
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/rag-site-crawler/internal/config"
	"github.com/JakeFAU/rag-site-crawler/internal/logging"
)

var cfgFile string

// appKeyType is the key for storing the app state in the context.
type appKeyType string

const appKey appKeyType = "app"

// appState bundles the loaded configuration and logger for subcommands.
type appState struct {
	cfg    config.Config
	logger *zap.Logger
}

// newRootCmd creates and configures the root command. Configuration and
// the logger are built once here and injected through the command
// context so subcommands stay trivially testable.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ragcrawl",
		Short: "A polite single-site crawler that builds a RAG-ready corpus.",
		Long: `ragcrawl walks one web site within its registrable domain, converts
each page to normalized markdown, splits the text into retrieval-sized
chunks, and archives referenced images, producing JSONL and CSV outputs
suitable for embedding pipelines.`,

		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, &appState{cfg: cfg, logger: logger})
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if state, ok := cmd.Context().Value(appKey).(*appState); ok && state != nil {
				_ = state.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ragcrawl.yaml)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newViewsCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*appState, error) {
	state, ok := ctx.Value(appKey).(*appState)
	if !ok || state == nil {
		return nil, errors.New("application services not initialized")
	}
	return state, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
