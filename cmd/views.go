package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/rag-site-crawler/internal/views"
)

// newViewsCmd creates and configures the 'views' subcommand, which
// condenses a finished crawl into chatbot-ready datasets.
func newViewsCmd() *cobra.Command {
	var dataDir string
	var outDir string

	cmd := &cobra.Command{
		Use:   "views",
		Short: "Builds chatbot-focused views from the crawl outputs",
		Long: `Reads pages.jsonl and chunks.jsonl from a finished crawl and writes
minimal chunk records, a content-hash state map for incremental
embedding upserts, and structured price, contact, location, and team
fact files.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if dataDir == "" {
				dataDir = state.cfg.Crawler.OutputDir
			}
			builder := views.NewBuilder(state.logger)
			if err := builder.Build(dataDir, outDir); err != nil {
				return fmt.Errorf("build views: %w", err)
			}
			state.logger.Info("Views command finished")
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data", "", "input folder from the crawler (default: configured output_dir)")
	cmd.Flags().StringVar(&outDir, "out", "chatbot", "output folder for chatbot-ready data")

	return cmd
}
