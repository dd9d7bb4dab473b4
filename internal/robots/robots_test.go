package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func servePolicy(t *testing.T, status int, body string) *Policy {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return Fetch(context.Background(), srv.Client(), srv.URL+"/", "rag-scraper", zap.NewNop())
}

func TestDisallowedPath(t *testing.T) {
	p := servePolicy(t, http.StatusOK, "User-agent: *\nDisallow: /private/\n")

	require.True(t, p.Allowed("https://example.com/"))
	require.True(t, p.Allowed("https://example.com/public/page"))
	require.False(t, p.Allowed("https://example.com/private/"))
	require.False(t, p.Allowed("https://example.com/private/page"))
}

func TestMissingRobotsAllowsAll(t *testing.T) {
	p := servePolicy(t, http.StatusNotFound, "")
	require.True(t, p.Allowed("https://example.com/anything"))
}

func TestUnreachableHostAllowsAll(t *testing.T) {
	p := Fetch(context.Background(), &http.Client{}, "http://127.0.0.1:1/", "rag-scraper", zap.NewNop())
	require.True(t, p.Allowed("http://127.0.0.1:1/page"))
}

func TestSitemapHints(t *testing.T) {
	body := "User-agent: *\nAllow: /\nSitemap: https://example.com/sitemap.xml\nsitemap: https://example.com/news.xml\n"
	p := servePolicy(t, http.StatusOK, body)
	require.Equal(t, []string{
		"https://example.com/sitemap.xml",
		"https://example.com/news.xml",
	}, p.Sitemaps())
}

func TestNilPolicyAllowsAll(t *testing.T) {
	var p *Policy
	require.True(t, p.Allowed("https://example.com/"))
}
