// Package sitemap discovers seed URLs from robots.txt hints and
// well-known sitemap locations, expanding nested sitemap indexes.
package sitemap

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/antchfx/xmlquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/rag-site-crawler/internal/fetch"
	"github.com/JakeFAU/rag-site-crawler/internal/urlutil"
)

// maxNestingDepth caps sitemap-of-sitemaps recursion so a cyclic or
// adversarial index cannot loop discovery forever.
const maxNestingDepth = 5

// Fetcher is the retrieval dependency; satisfied by fetch.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Document, error)
}

// Resolver expands sitemaps into an ordered, deduplicated seed list.
type Resolver struct {
	fetcher Fetcher
	logger  *zap.Logger
}

// NewResolver builds a Resolver.
func NewResolver(fetcher Fetcher, logger *zap.Logger) *Resolver {
	return &Resolver{fetcher: fetcher, logger: logger}
}

// Discover returns same-site page URLs found under the site's sitemaps,
// canonicalized, deduplicated, in discovery order. hints are sitemap URLs
// advertised by robots.txt; the conventional /sitemap.xml is always tried
// as a fallback. Errors at any level degrade to partial results.
func (r *Resolver) Discover(ctx context.Context, base string, hints []string) []string {
	candidates := append([]string(nil), hints...)
	if conventional, ok := conventionalSitemapURL(base); ok {
		candidates = append(candidates, conventional)
	}

	visited := make(map[string]struct{})
	seen := make(map[string]struct{})
	var out []string

	for _, candidate := range candidates {
		r.expand(ctx, base, candidate, 0, visited, seen, &out)
	}
	return out
}

func (r *Resolver) expand(
	ctx context.Context,
	base, sitemapURL string,
	depth int,
	visited map[string]struct{},
	seen map[string]struct{},
	out *[]string,
) {
	if depth > maxNestingDepth || ctx.Err() != nil {
		return
	}
	canonical, err := urlutil.Canonicalize(sitemapURL)
	if err != nil {
		return
	}
	if _, ok := visited[canonical]; ok {
		return
	}
	visited[canonical] = struct{}{}

	doc, err := r.fetcher.Fetch(ctx, canonical)
	if err != nil || doc == nil {
		r.logger.Debug("Sitemap not retrievable", zap.String("url", canonical), zap.Error(err))
		return
	}
	if !doc.IsXML() {
		return
	}

	parsed, err := xmlquery.Parse(bytes.NewReader(doc.Body))
	if err != nil {
		r.logger.Warn("Malformed sitemap XML; keeping partial results",
			zap.String("url", canonical), zap.Error(err))
		return
	}

	for _, loc := range xmlquery.Find(parsed, "//url/loc") {
		r.collect(base, loc.InnerText(), seen, out)
	}
	for _, loc := range xmlquery.Find(parsed, "//sitemap/loc") {
		nested := strings.TrimSpace(loc.InnerText())
		if nested == "" {
			continue
		}
		r.expand(ctx, base, nested, depth+1, visited, seen, out)
	}
}

func (r *Resolver) collect(base, rawURL string, seen map[string]struct{}, out *[]string) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return
	}
	if !urlutil.SameSite(base, trimmed) {
		return
	}
	canonical, err := urlutil.Canonicalize(trimmed)
	if err != nil {
		return
	}
	if _, ok := seen[canonical]; ok {
		return
	}
	seen[canonical] = struct{}{}
	*out = append(*out, canonical)
}

func conventionalSitemapURL(base string) (string, bool) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	sitemap := url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/sitemap.xml"}
	return sitemap.String(), true
}
