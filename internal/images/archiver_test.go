package images

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestArchiver(t *testing.T, handler http.Handler) (*Archiver, *httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	dir := filepath.Join(t.TempDir(), "images")
	return New(srv.Client(), dir, "rag-scraper-test", zap.NewNop()), srv, dir
}

func pngHandler(body []byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	})
}

func TestArchiveStoresContentAddressed(t *testing.T) {
	payload := []byte("fake-png-bytes")
	a, srv, dir := newTestArchiver(t, pngHandler(payload))

	rec, err := a.Archive(context.Background(), "https://example.com/p", srv.URL+"/logo.png", "Logo")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "https://example.com/p", rec.PageURL)
	require.Equal(t, "Logo", rec.Alt)
	require.Len(t, rec.SHA1, 40)
	require.Equal(t, filepath.Join("images", rec.SHA1+".png"), rec.SavedPath)

	stored, err := os.ReadFile(filepath.Join(dir, rec.SHA1+".png"))
	require.NoError(t, err)
	require.Equal(t, payload, stored)
}

func TestArchiveDeduplicatesByContent(t *testing.T) {
	payload := []byte("identical-bytes")
	a, srv, dir := newTestArchiver(t, pngHandler(payload))

	first, err := a.Archive(context.Background(), "https://example.com/a", srv.URL+"/one.png", "")
	require.NoError(t, err)
	second, err := a.Archive(context.Background(), "https://example.com/b", srv.URL+"/two.png", "")
	require.NoError(t, err)

	// Two records, one stored file, same hash.
	require.Equal(t, first.SHA1, second.SHA1)
	require.Equal(t, first.SavedPath, second.SavedPath)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestArchiveRejectsNonImage(t *testing.T) {
	a, srv, _ := newTestArchiver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))

	rec, err := a.Archive(context.Background(), "https://example.com/p", srv.URL+"/not-image", "")
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestArchiveNotFound(t *testing.T) {
	a, srv, _ := newTestArchiver(t, http.NotFoundHandler())
	rec, err := a.Archive(context.Background(), "https://example.com/p", srv.URL+"/gone.png", "")
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestArchiveNetworkFailure(t *testing.T) {
	dir := t.TempDir()
	a := New(&http.Client{}, dir, "rag-scraper-test", zap.NewNop())
	rec, err := a.Archive(context.Background(), "https://example.com/p", "http://127.0.0.1:1/x.png", "")
	require.Error(t, err)
	require.Nil(t, rec)
}

func TestExtensionFor(t *testing.T) {
	require.Equal(t, ".jpg", extensionFor("image/jpeg"))
	require.Equal(t, ".png", extensionFor("image/png; charset=binary"))
	require.Equal(t, ".gif", extensionFor("image/gif"))
	require.Equal(t, ".webp", extensionFor("image/webp"))
	require.Equal(t, ".svg", extensionFor("image/svg+xml"))
	require.Equal(t, ".bin", extensionFor("image/x-icon"))
}
