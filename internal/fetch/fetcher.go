// Package fetch implements single-URL HTTP retrieval using the Colly
// collector, with connection pooling and bounded transport retries.
package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// Document is the result of one qualifying fetch: a 2xx response whose
// content type is HTML or XML (XML is needed for sitemap retrieval).
type Document struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// ContentType returns the response Content-Type header.
func (d *Document) ContentType() string {
	return d.Header.Get("Content-Type")
}

// IsXML reports whether the document was served as XML.
func (d *Document) IsXML() bool {
	return strings.Contains(strings.ToLower(d.ContentType()), "xml")
}

// Config controls collector behavior.
type Config struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
}

// Fetcher performs single HTTP GETs via a shared, pooled transport.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 25 * time.Second
	}
	transport := newRetryTransport(newHTTPTransport(), cfg.MaxRetries)

	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true // the politeness gate owns robots decisions
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

// Client returns an http.Client sharing the fetcher's pooled transport,
// for collaborators that bypass Colly (robots retrieval, image download).
func (f *Fetcher) Client() *http.Client {
	return &http.Client{
		Transport: f.transport,
		Timeout:   f.cfg.Timeout,
	}
}

// Fetch executes a single HTTP GET. It returns (nil, nil) for ordinary
// non-fetchable responses (non-2xx status, non-HTML/XML content type) and
// an error only for network-level failures; the caller treats both as
// "skip this URL".
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	var (
		doc        *Document
		statusCode int
		fetchErr   error
	)
	start := time.Now()

	collector := f.baseCollector.Clone()
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(f.transport)
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml")
	})
	collector.OnResponse(func(r *colly.Response) {
		doc = &Document{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Header:     r.Headers.Clone(),
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			statusCode = r.StatusCode
			return
		}
		fetchErr = err
	})

	if err := runCollector(ctx, collector, rawURL); err != nil {
		return nil, err
	}
	if fetchErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, fetchErr)
	}
	if statusCode != 0 {
		// Reached the server but got a non-success status; skip quietly.
		return nil, nil
	}
	if doc == nil {
		return nil, nil
	}
	if doc.StatusCode < 200 || doc.StatusCode > 299 {
		return nil, nil
	}
	if !qualifyingContentType(doc.ContentType()) {
		return nil, nil
	}
	return doc, nil
}

func runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			// Status-level failures surface through OnError; Visit errors
			// here mean the request never produced a usable response.
			return nil
		}
		return nil
	}
}

func qualifyingContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "html") || strings.Contains(ct, "xml")
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
