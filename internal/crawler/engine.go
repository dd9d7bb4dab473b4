// Package crawler orchestrates the crawl: seed discovery, frontier
// scheduling, fetching, extraction, chunking, and output emission.
package crawler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/rag-site-crawler/internal/extract"
	"github.com/JakeFAU/rag-site-crawler/internal/metrics"
	"github.com/JakeFAU/rag-site-crawler/internal/urlutil"
)

const progressLogInterval = 25

// Config holds the settings for one crawl run.
type Config struct {
	Seed     string
	MaxDepth int
	MaxPages int
}

// Summary reports what a finished run did.
type Summary struct {
	RunID          string
	Seed           string
	PagesProcessed int
	PagesSkipped   int
	PagesRejected  int
	ChunksEmitted  int
	ImagesArchived int
	URLsEnqueued   int
	Duration       time.Duration
}

// Engine owns the mutable crawl state: the frontier queue and the
// visited set. Neither is shared with any other component, so multiple
// engines can coexist in one process.
type Engine struct {
	cfg       Config
	fetcher   Fetcher
	robots    RobotsPolicy
	throttle  Throttle
	seeds     SeedDiscoverer
	extractor Extractor
	chunker   Chunker
	archiver  Archiver
	sink      Sink
	logger    *zap.Logger

	runID    string
	visited  visitTracker
	frontier frontier
}

// NewEngine builds an Engine. All collaborators are required except the
// archiver, which may be nil to disable image persistence.
func NewEngine(
	cfg Config,
	fetcher Fetcher,
	robots RobotsPolicy,
	throttle Throttle,
	seeds SeedDiscoverer,
	extractor Extractor,
	chunker Chunker,
	archiver Archiver,
	sink Sink,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:       cfg,
		fetcher:   fetcher,
		robots:    robots,
		throttle:  throttle,
		seeds:     seeds,
		extractor: extractor,
		chunker:   chunker,
		archiver:  archiver,
		sink:      sink,
		logger:    logger,
		runID:     uuid.NewString(),
	}
}

// RunID identifies this crawl run in logs and the summary.
func (e *Engine) RunID() string {
	return e.runID
}

// Run drains the frontier until it is empty, the page cap is reached, or
// the context is canceled. Persistence failures abort the run; every
// other failure skips the URL and continues.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary := Summary{RunID: e.runID}

	seed, err := urlutil.Canonicalize(e.cfg.Seed)
	if err != nil {
		return summary, fmt.Errorf("canonicalize seed: %w", err)
	}
	summary.Seed = seed

	e.seedFrontier(ctx, seed)
	e.logger.Info("Crawl starting",
		zap.String("run_id", e.runID),
		zap.String("seed", seed),
		zap.Int("seeds_enqueued", e.frontier.len()),
		zap.Int("max_depth", e.cfg.MaxDepth),
		zap.Int("max_pages", e.cfg.MaxPages),
	)

	for e.frontier.len() > 0 && summary.PagesProcessed < e.cfg.MaxPages {
		if ctx.Err() != nil {
			e.logger.Info("Stop signal received; draining halted", zap.String("run_id", e.runID))
			break
		}
		entry, ok := e.frontier.pop()
		if !ok {
			break
		}
		metrics.SetFrontierDepth(e.frontier.len())

		if !e.robots.Allowed(entry.URL) {
			summary.PagesRejected++
			metrics.ObserveRobotsReject()
			e.logger.Debug("URL rejected by exclusion policy", zap.String("url", entry.URL))
			continue
		}

		if err := e.throttle.Wait(ctx); err != nil {
			// Only a canceled context interrupts the wait.
			break
		}

		if err := e.processEntry(ctx, seed, entry, &summary); err != nil {
			return summary, err
		}

		if summary.PagesProcessed > 0 && summary.PagesProcessed%progressLogInterval == 0 {
			e.logger.Info("Crawl progress",
				zap.String("run_id", e.runID),
				zap.Int("pages", summary.PagesProcessed),
				zap.Int("frontier", e.frontier.len()),
				zap.Int("chunks", summary.ChunksEmitted),
			)
		}
	}

	summary.Duration = time.Since(start)
	e.logger.Info("Crawl finished",
		zap.String("run_id", e.runID),
		zap.Int("pages_processed", summary.PagesProcessed),
		zap.Int("pages_skipped", summary.PagesSkipped),
		zap.Int("pages_rejected", summary.PagesRejected),
		zap.Int("chunks_emitted", summary.ChunksEmitted),
		zap.Int("images_archived", summary.ImagesArchived),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// seedFrontier enqueues the literal seed plus sitemap discoveries at
// depth zero, sorted for deterministic ordering, deduplicated through
// the visited set.
func (e *Engine) seedFrontier(ctx context.Context, seed string) {
	candidates := []string{seed}
	discovered := e.seeds.Discover(ctx, seed, e.robots.Sitemaps())
	metrics.ObserveSitemapURLs(len(discovered))
	candidates = append(candidates, discovered...)

	unique := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		unique = append(unique, c)
	}
	sort.Strings(unique)

	for _, u := range unique {
		if !urlutil.SameSite(seed, u) {
			continue
		}
		if !e.visited.markIfNew(u) {
			continue
		}
		e.frontier.push(FrontierEntry{URL: u, Depth: 0})
	}
}

// processEntry runs the fetch→extract→persist→chunk→archive pipeline for
// one frontier entry and feeds discovered links back into the frontier.
func (e *Engine) processEntry(ctx context.Context, seed string, entry FrontierEntry, summary *Summary) error {
	doc, err := e.fetcher.Fetch(ctx, entry.URL)
	if err != nil {
		summary.PagesSkipped++
		metrics.ObserveFetchSkip("network_error")
		e.logger.Warn("Fetch failed; skipping URL", zap.String("url", entry.URL), zap.Error(err))
		return nil
	}
	if doc == nil {
		summary.PagesSkipped++
		metrics.ObserveFetchSkip("not_fetchable")
		e.logger.Debug("URL not fetchable; skipping", zap.String("url", entry.URL))
		return nil
	}

	page, err := e.extractor.Extract(entry.URL, doc)
	if err != nil {
		summary.PagesSkipped++
		metrics.ObserveFetchSkip("parse_failure")
		e.logger.Warn("Extraction failed; skipping URL", zap.String("url", entry.URL), zap.Error(err))
		return nil
	}

	if err := e.sink.WritePage(page); err != nil {
		return fmt.Errorf("persist page record for %s: %w", entry.URL, err)
	}

	records := e.chunker.Records(page)
	for _, record := range records {
		if err := e.sink.WriteChunk(record); err != nil {
			return fmt.Errorf("persist chunk %s: %w", record.ID, err)
		}
	}
	summary.ChunksEmitted += len(records)
	metrics.ObserveChunks(len(records))

	if e.archiver != nil {
		archived, err := e.archiveImages(ctx, page.CanonicalURL, page.Images)
		if err != nil {
			return err
		}
		summary.ImagesArchived += archived
	}

	if entry.Depth < e.cfg.MaxDepth {
		summary.URLsEnqueued += e.enqueueLinks(seed, entry.Depth+1, page.InternalLinks)
	}

	summary.PagesProcessed++
	metrics.ObservePage(entry.URL, "processed", len(doc.Body))
	return nil
}

func (e *Engine) archiveImages(ctx context.Context, pageURL string, refs []extract.ImageRef) (int, error) {
	archived := 0
	for _, ref := range refs {
		record, err := e.archiver.Archive(ctx, pageURL, ref.Src, ref.Alt)
		if err != nil {
			metrics.ObserveImage("error")
			e.logger.Debug("Image archive failed", zap.String("src", ref.Src), zap.Error(err))
			continue
		}
		if record == nil {
			metrics.ObserveImage("skipped")
			continue
		}
		if err := e.sink.WriteImage(*record); err != nil {
			return archived, fmt.Errorf("persist image manifest row for %s: %w", ref.Src, err)
		}
		metrics.ObserveImage("archived")
		archived++
	}
	return archived, nil
}

// enqueueLinks canonicalizes discovered internal links and enqueues the
// ones that are in-domain, allowed, and not yet visited. The visited
// check-and-mark is atomic with the enqueue decision.
func (e *Engine) enqueueLinks(seed string, depth int, links []string) int {
	enqueued := 0
	for _, link := range links {
		canonical, err := urlutil.Canonicalize(link)
		if err != nil {
			continue
		}
		if !urlutil.SameSite(seed, canonical) {
			continue
		}
		if !e.robots.Allowed(canonical) {
			continue
		}
		if !e.visited.markIfNew(canonical) {
			continue
		}
		e.frontier.push(FrontierEntry{URL: canonical, Depth: depth})
		enqueued++
	}
	return enqueued
}
