// Package robots evaluates the crawled site's exclusion policy.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

const maxRobotsBytes = 1 << 20

// Policy holds the parsed robots.txt for one site. The file is fetched
// once per crawl run; a missing, failing, or malformed robots.txt yields
// a permissive policy that allows everything.
type Policy struct {
	data      *robotstxt.RobotsData
	userAgent string
	sitemaps  []string
}

// Fetch retrieves and parses robots.txt from the origin of base.
// It never fails: every error degrades to an allow-all policy.
func Fetch(ctx context.Context, client *http.Client, base, userAgent string, logger *zap.Logger) *Policy {
	p := &Policy{userAgent: userAgent}

	robotsURL, err := originRobotsURL(base)
	if err != nil {
		logger.Warn("Cannot derive robots.txt URL; allowing all", zap.String("base", base), zap.Error(err))
		return p
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		logger.Warn("Build robots request failed; allowing all", zap.Error(err))
		return p
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("Fetch robots.txt failed; allowing all", zap.String("url", robotsURL), zap.Error(err))
		return p
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Debug("Failed to close robots response body", zap.Error(cerr))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		logger.Warn("Read robots.txt failed; allowing all", zap.Error(err))
		return p
	}

	if resp.StatusCode == http.StatusOK {
		p.sitemaps = parseSitemapHints(string(body))
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		logger.Warn("Parse robots.txt failed; allowing all", zap.Error(err))
		return p
	}
	p.data = data
	return p
}

// Allowed reports whether the configured user agent may fetch rawURL.
func (p *Policy) Allowed(rawURL string) bool {
	if p == nil || p.data == nil {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	group := p.data.FindGroup(p.userAgent)
	if group == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path)
}

// Sitemaps returns the sitemap URLs advertised by robots.txt, in file
// order.
func (p *Policy) Sitemaps() []string {
	return p.sitemaps
}

// parseSitemapHints scans robots.txt lines for Sitemap directives.
func parseSitemapHints(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) < len("sitemap:") {
			continue
		}
		if !strings.EqualFold(trimmed[:len("sitemap:")], "sitemap:") {
			continue
		}
		if value := strings.TrimSpace(trimmed[len("sitemap:"):]); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func originRobotsURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base url %q is not absolute", base)
	}
	robots := url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}
	return robots.String(), nil
}
