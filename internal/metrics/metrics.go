// Package metrics exposes Prometheus collectors for the crawl pipeline.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlerPagesTotal         *prometheus.CounterVec
	crawlerBytesTotal         *prometheus.CounterVec
	crawlerFetchSkipsTotal    *prometheus.CounterVec
	crawlerChunksTotal        prometheus.Counter
	crawlerImagesTotal        *prometheus.CounterVec
	crawlerFrontierDepth      prometheus.Gauge
	crawlerThrottleWaitsSecs  *prometheus.HistogramVec
	crawlerSitemapURLsTotal   prometheus.Counter
	crawlerRobotsRejectsTotal prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_pages_total",
				Help: "Total number of pages processed, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		crawlerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_bytes_total",
				Help: "Total number of body bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		crawlerFetchSkipsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_fetch_skips_total",
				Help: "Total number of URLs skipped at fetch time, labeled by reason.",
			},
			[]string{"reason"},
		)

		crawlerChunksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_chunks_total",
				Help: "Total number of chunk records emitted.",
			},
		)

		crawlerImagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_images_total",
				Help: "Total number of image archive attempts, labeled by result.",
			},
			[]string{"result"},
		)

		crawlerFrontierDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_frontier_depth",
				Help: "Number of URLs currently queued in the frontier.",
			},
		)

		crawlerThrottleWaitsSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_throttle_wait_seconds",
				Help:    "Histogram of politeness throttle wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		crawlerSitemapURLsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_sitemap_urls_total",
				Help: "Total number of seed URLs discovered from sitemaps.",
			},
		)

		crawlerRobotsRejectsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_robots_rejects_total",
				Help: "Total number of URLs rejected by the exclusion policy.",
			},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage increments the page counters for one processed URL.
func ObservePage(site string, outcome string, bytesFetched int) {
	Init()
	crawlerPagesTotal.WithLabelValues(SanitizeSite(site), outcome).Inc()
	if bytesFetched > 0 {
		crawlerBytesTotal.WithLabelValues(SanitizeSite(site)).Add(float64(bytesFetched))
	}
}

// ObserveFetchSkip counts a URL skipped at fetch time for the given reason.
func ObserveFetchSkip(reason string) {
	Init()
	crawlerFetchSkipsTotal.WithLabelValues(reason).Inc()
}

// ObserveChunks adds to the emitted chunk counter.
func ObserveChunks(n int) {
	Init()
	crawlerChunksTotal.Add(float64(n))
}

// ObserveImage counts one image archive attempt.
func ObserveImage(result string) {
	Init()
	crawlerImagesTotal.WithLabelValues(result).Inc()
}

// SetFrontierDepth records the current frontier length.
func SetFrontierDepth(n int) {
	Init()
	crawlerFrontierDepth.Set(float64(n))
}

// ObserveThrottleWait records the duration of a politeness wait.
func ObserveThrottleWait(domain string, duration time.Duration) {
	Init()
	crawlerThrottleWaitsSecs.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveSitemapURLs adds to the sitemap discovery counter.
func ObserveSitemapURLs(n int) {
	Init()
	crawlerSitemapURLsTotal.Add(float64(n))
}

// ObserveRobotsReject counts a URL rejected by robots rules.
func ObserveRobotsReject() {
	Init()
	crawlerRobotsRejectsTotal.Inc()
}
