package crawler

import (
	"context"

	"github.com/JakeFAU/rag-site-crawler/internal/chunk"
	"github.com/JakeFAU/rag-site-crawler/internal/extract"
	"github.com/JakeFAU/rag-site-crawler/internal/fetch"
	"github.com/JakeFAU/rag-site-crawler/internal/images"
)

// Fetcher retrieves a single URL. A nil document with a nil error means
// the URL is not fetchable (non-success status, wrong content type) and
// must be skipped, never retried within the run.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Document, error)
}

// RobotsPolicy answers exclusion-policy questions for the crawled site.
type RobotsPolicy interface {
	Allowed(rawURL string) bool
	Sitemaps() []string
}

// Throttle spaces out consecutive fetch dispatches.
type Throttle interface {
	Wait(ctx context.Context) error
}

// SeedDiscoverer expands sitemaps into an ordered seed URL list.
type SeedDiscoverer interface {
	Discover(ctx context.Context, base string, hints []string) []string
}

// Extractor converts a fetched document into a page record.
type Extractor interface {
	Extract(pageURL string, doc *fetch.Document) (extract.PageRecord, error)
}

// Chunker splits a page record into retrievable chunk records.
type Chunker interface {
	Records(page extract.PageRecord) []chunk.Record
}

// Archiver persists one referenced image. A nil record with a nil error
// means the resource was not an archivable image.
type Archiver interface {
	Archive(ctx context.Context, pageURL, imageSrc, alt string) (*images.Record, error)
}

// Sink owns the append-only output streams. Any write error is fatal to
// the crawl run.
type Sink interface {
	WritePage(page extract.PageRecord) error
	WriteChunk(record chunk.Record) error
	WriteImage(record images.Record) error
}
