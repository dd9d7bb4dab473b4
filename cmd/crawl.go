package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/rag-site-crawler/internal/chunk"
	"github.com/JakeFAU/rag-site-crawler/internal/config"
	"github.com/JakeFAU/rag-site-crawler/internal/crawler"
	"github.com/JakeFAU/rag-site-crawler/internal/extract"
	"github.com/JakeFAU/rag-site-crawler/internal/fetch"
	"github.com/JakeFAU/rag-site-crawler/internal/images"
	"github.com/JakeFAU/rag-site-crawler/internal/metrics"
	"github.com/JakeFAU/rag-site-crawler/internal/policy"
	"github.com/JakeFAU/rag-site-crawler/internal/robots"
	"github.com/JakeFAU/rag-site-crawler/internal/sink"
	"github.com/JakeFAU/rag-site-crawler/internal/sitemap"
)

// newCrawlCmd creates and configures the 'crawl' subcommand, which runs
// one full crawl of the configured seed site.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawls the configured site and writes the corpus outputs",
		Long: `Walks the seed site breadth-first within its registrable domain,
honoring its exclusion policy and a fixed per-request delay, and appends
page records, chunk records, and an image manifest to the output
directory.`,

		RunE: runCrawlCommand,
	}
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	state, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg, logger := state.cfg, state.logger

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()
	stopMetrics := startMetricsListener(cfg.Metrics.ListenAddr, logger)
	defer stopMetrics()

	engine, outputs, err := buildCrawlEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := outputs.Close(); cerr != nil {
			logger.Warn("Failed to close output sink", zap.Error(cerr))
		}
	}()

	summary, err := engine.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawl: %w", err)
	}

	logger.Info("Crawl command finished",
		zap.String("run_id", summary.RunID),
		zap.Int("pages", summary.PagesProcessed),
		zap.String("output_dir", cfg.Crawler.OutputDir),
	)
	return nil
}

// buildCrawlEngine wires every pipeline stage from configuration. The
// returned sink must be closed by the caller after the run.
func buildCrawlEngine(ctx context.Context, cfg config.Config, logger *zap.Logger) (*crawler.Engine, *sink.FileSystemSink, error) {
	fetcher := fetch.New(fetch.Config{
		UserAgent:  cfg.Crawler.UserAgent,
		Timeout:    cfg.Timeout(),
		MaxRetries: cfg.HTTP.MaxRetries,
	})

	robotsPolicy := robots.Fetch(ctx, fetcher.Client(), cfg.Crawler.Seed, cfg.Crawler.UserAgent, logger)
	throttle := policy.NewThrottle(cfg.Delay(), cfg.Crawler.Seed)
	resolver := sitemap.NewResolver(fetcher, logger)
	extractor := extract.NewExtractor(logger)
	chunker := chunk.New(cfg.Crawler.ChunkTargetWords)
	archiver := images.New(fetcher.Client(), filepath.Join(cfg.Crawler.OutputDir, "images"), cfg.Crawler.UserAgent, logger)

	outputs, err := sink.New(cfg.Crawler.OutputDir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init output sink: %w", err)
	}

	engine := crawler.NewEngine(
		crawler.Config{
			Seed:     cfg.Crawler.Seed,
			MaxDepth: cfg.Crawler.MaxDepth,
			MaxPages: cfg.Crawler.MaxPages,
		},
		fetcher,
		robotsPolicy,
		throttle,
		resolver,
		extractor,
		chunker,
		archiver,
		outputs,
		logger,
	)
	return engine, outputs, nil
}

// startMetricsListener exposes /metrics and /healthz when an address is
// configured. The returned func shuts the listener down.
func startMetricsListener(addr string, logger *zap.Logger) func() {
	if addr == "" {
		return func() {}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		logger.Info("Metrics listener started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Metrics listener failed", zap.Error(err))
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
