package crawler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/rag-site-crawler/internal/chunk"
	"github.com/JakeFAU/rag-site-crawler/internal/extract"
	"github.com/JakeFAU/rag-site-crawler/internal/fetch"
	"github.com/JakeFAU/rag-site-crawler/internal/images"
)

// MockFetcher is a mock implementation of the Fetcher interface.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, rawURL string) (*fetch.Document, error) {
	args := m.Called(ctx, rawURL)
	doc, _ := args.Get(0).(*fetch.Document)
	return doc, args.Error(1)
}

// MockRobotsPolicy is a mock implementation of the RobotsPolicy interface.
type MockRobotsPolicy struct {
	mock.Mock
}

func (m *MockRobotsPolicy) Allowed(rawURL string) bool {
	args := m.Called(rawURL)
	return args.Bool(0)
}

func (m *MockRobotsPolicy) Sitemaps() []string {
	args := m.Called()
	hints, _ := args.Get(0).([]string)
	return hints
}

// MockThrottle is a mock implementation of the Throttle interface.
type MockThrottle struct {
	mock.Mock
}

func (m *MockThrottle) Wait(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockSeedDiscoverer is a mock implementation of the SeedDiscoverer interface.
type MockSeedDiscoverer struct {
	mock.Mock
}

func (m *MockSeedDiscoverer) Discover(ctx context.Context, base string, hints []string) []string {
	args := m.Called(ctx, base, hints)
	seeds, _ := args.Get(0).([]string)
	return seeds
}

// MockExtractor is a mock implementation of the Extractor interface.
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(pageURL string, doc *fetch.Document) (extract.PageRecord, error) {
	args := m.Called(pageURL, doc)
	return args.Get(0).(extract.PageRecord), args.Error(1)
}

// MockChunker is a mock implementation of the Chunker interface.
type MockChunker struct {
	mock.Mock
}

func (m *MockChunker) Records(page extract.PageRecord) []chunk.Record {
	args := m.Called(page)
	records, _ := args.Get(0).([]chunk.Record)
	return records
}

// MockArchiver is a mock implementation of the Archiver interface.
type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Archive(ctx context.Context, pageURL, imageSrc, alt string) (*images.Record, error) {
	args := m.Called(ctx, pageURL, imageSrc, alt)
	record, _ := args.Get(0).(*images.Record)
	return record, args.Error(1)
}

// MockSink is a mock implementation of the Sink interface.
type MockSink struct {
	mock.Mock
}

func (m *MockSink) WritePage(page extract.PageRecord) error {
	args := m.Called(page)
	return args.Error(0)
}

func (m *MockSink) WriteChunk(record chunk.Record) error {
	args := m.Called(record)
	return args.Error(0)
}

func (m *MockSink) WriteImage(record images.Record) error {
	args := m.Called(record)
	return args.Error(0)
}

// testHarness bundles an engine with its mocks so individual tests only
// override the expectations they care about.
type testHarness struct {
	engine    *Engine
	fetcher   *MockFetcher
	robots    *MockRobotsPolicy
	throttle  *MockThrottle
	seeds     *MockSeedDiscoverer
	extractor *MockExtractor
	chunker   *MockChunker
	sink      *MockSink
}

func newTestHarness(cfg Config) *testHarness {
	h := &testHarness{
		fetcher:   new(MockFetcher),
		robots:    new(MockRobotsPolicy),
		throttle:  new(MockThrottle),
		seeds:     new(MockSeedDiscoverer),
		extractor: new(MockExtractor),
		chunker:   new(MockChunker),
		sink:      new(MockSink),
	}
	h.engine = NewEngine(cfg, h.fetcher, h.robots, h.throttle, h.seeds, h.extractor, h.chunker, nil, h.sink, zap.NewNop())
	return h
}

func (h *testHarness) expectDefaults() {
	h.robots.On("Sitemaps").Return([]string(nil)).Maybe()
	h.seeds.On("Discover", mock.Anything, mock.Anything, mock.Anything).Return([]string(nil)).Maybe()
	h.throttle.On("Wait", mock.Anything).Return(nil).Maybe()
	h.chunker.On("Records", mock.Anything).Return([]chunk.Record(nil)).Maybe()
	h.sink.On("WritePage", mock.Anything).Return(nil).Maybe()
	h.sink.On("WriteChunk", mock.Anything).Return(nil).Maybe()
}

// expectPage wires a successful fetch and extraction for url whose page
// record links to the given internal URLs.
func (h *testHarness) expectPage(url string, links ...string) {
	doc := &fetch.Document{URL: url, StatusCode: 200, Body: []byte("<html></html>")}
	h.fetcher.On("Fetch", mock.Anything, url).Return(doc, nil).Once()
	h.extractor.On("Extract", url, doc).Return(extract.PageRecord{
		URL:           url,
		CanonicalURL:  url,
		InternalLinks: links,
	}, nil).Once()
}

func TestEngineRunFollowsInternalLinks(t *testing.T) {
	h := newTestHarness(Config{Seed: "https://example.com/", MaxDepth: 2, MaxPages: 10})
	h.expectDefaults()
	h.robots.On("Allowed", mock.Anything).Return(true)

	h.expectPage("https://example.com/", "https://example.com/a", "https://example.com/b")
	h.expectPage("https://example.com/a")
	h.expectPage("https://example.com/b")

	summary, err := h.engine.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, summary.PagesProcessed)
	require.Equal(t, 2, summary.URLsEnqueued)
	h.fetcher.AssertExpectations(t)
	h.extractor.AssertExpectations(t)
}

func TestEngineRunNeverRevisitsURL(t *testing.T) {
	h := newTestHarness(Config{Seed: "https://example.com/", MaxDepth: 5, MaxPages: 100})
	h.expectDefaults()
	h.robots.On("Allowed", mock.Anything).Return(true)

	// A two-page cycle plus self links; each page still fetched once.
	h.expectPage("https://example.com/", "https://example.com/a", "https://example.com/")
	h.expectPage("https://example.com/a", "https://example.com/", "https://example.com/a")

	summary, err := h.engine.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.PagesProcessed)
	h.fetcher.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestEngineRunRespectsExclusionPolicy(t *testing.T) {
	h := newTestHarness(Config{Seed: "https://example.com/", MaxDepth: 3, MaxPages: 100})
	h.expectDefaults()
	h.robots.On("Allowed", "https://example.com/private/report").Return(false)
	h.robots.On("Allowed", mock.Anything).Return(true)

	h.expectPage("https://example.com/", "https://example.com/private/report", "https://example.com/about")
	h.expectPage("https://example.com/about")

	summary, err := h.engine.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.PagesProcessed)
	h.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, "https://example.com/private/report")
}

func TestEngineRunStopsAtPageCap(t *testing.T) {
	h := newTestHarness(Config{Seed: "https://example.com/", MaxDepth: 10, MaxPages: 2})
	h.expectDefaults()
	h.robots.On("Allowed", mock.Anything).Return(true)

	h.expectPage("https://example.com/", "https://example.com/a", "https://example.com/b", "https://example.com/c")
	h.expectPage("https://example.com/a")

	summary, err := h.engine.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.PagesProcessed)
	h.fetcher.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestEngineRunFetchFailureSkipsAndContinues(t *testing.T) {
	h := newTestHarness(Config{Seed: "https://example.com/", MaxDepth: 2, MaxPages: 10})
	h.expectDefaults()
	h.robots.On("Allowed", mock.Anything).Return(true)

	h.expectPage("https://example.com/", "https://example.com/broken", "https://example.com/ok")
	h.fetcher.On("Fetch", mock.Anything, "https://example.com/broken").Return(nil, errors.New("connection reset")).Once()
	h.expectPage("https://example.com/ok")

	summary, err := h.engine.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.PagesProcessed)
	require.Equal(t, 1, summary.PagesSkipped)
}

func TestEngineRunUnfetchableDocumentSkipped(t *testing.T) {
	h := newTestHarness(Config{Seed: "https://example.com/", MaxDepth: 1, MaxPages: 10})
	h.expectDefaults()
	h.robots.On("Allowed", mock.Anything).Return(true)

	h.fetcher.On("Fetch", mock.Anything, "https://example.com/").Return(nil, nil).Once()

	summary, err := h.engine.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, summary.PagesProcessed)
	require.Equal(t, 1, summary.PagesSkipped)
	h.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestEngineRunAbortsOnPersistenceFailure(t *testing.T) {
	h := newTestHarness(Config{Seed: "https://example.com/", MaxDepth: 2, MaxPages: 10})
	h.robots.On("Sitemaps").Return([]string(nil))
	h.seeds.On("Discover", mock.Anything, mock.Anything, mock.Anything).Return([]string(nil))
	h.throttle.On("Wait", mock.Anything).Return(nil)
	h.robots.On("Allowed", mock.Anything).Return(true)

	h.expectPage("https://example.com/")
	h.sink.On("WritePage", mock.Anything).Return(errors.New("disk full")).Once()

	_, err := h.engine.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "persist page record")
}

func TestEngineRunSeedsFromSitemapDiscoveries(t *testing.T) {
	h := newTestHarness(Config{Seed: "https://example.com/", MaxDepth: 0, MaxPages: 10})
	h.robots.On("Sitemaps").Return([]string{"https://example.com/sitemap.xml"})
	h.seeds.On("Discover", mock.Anything, "https://example.com/", []string{"https://example.com/sitemap.xml"}).
		Return([]string{"https://example.com/docs", "https://example.com/about"}).Once()
	h.throttle.On("Wait", mock.Anything).Return(nil)
	h.chunker.On("Records", mock.Anything).Return([]chunk.Record(nil))
	h.sink.On("WritePage", mock.Anything).Return(nil)
	h.robots.On("Allowed", mock.Anything).Return(true)

	// Sorted seeding order: /, /about, /docs.
	h.expectPage("https://example.com/")
	h.expectPage("https://example.com/about")
	h.expectPage("https://example.com/docs")

	summary, err := h.engine.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, summary.PagesProcessed)
	h.seeds.AssertExpectations(t)
}

func TestEngineRunHonorsContextCancellation(t *testing.T) {
	h := newTestHarness(Config{Seed: "https://example.com/", MaxDepth: 2, MaxPages: 10})
	h.expectDefaults()
	h.robots.On("Allowed", mock.Anything).Return(true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := h.engine.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, summary.PagesProcessed)
	h.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestEngineRunRejectsOffSiteSeed(t *testing.T) {
	h := newTestHarness(Config{Seed: "://not a url", MaxDepth: 1, MaxPages: 10})

	_, err := h.engine.Run(context.Background())
	require.Error(t, err)
}
