// Package images persists referenced images under content-addressed
// paths so byte-identical images are stored once.
package images

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const maxImageBytes = 32 << 20

// Record describes one archived image reference.
type Record struct {
	PageURL   string
	ImageSrc  string
	SavedPath string
	SHA1      string
	Alt       string
}

// Archiver downloads images and writes them under dir keyed by content
// hash.
type Archiver struct {
	client    *http.Client
	dir       string
	userAgent string
	logger    *zap.Logger
}

// New builds an Archiver writing into dir (created on demand).
func New(client *http.Client, dir, userAgent string, logger *zap.Logger) *Archiver {
	return &Archiver{
		client:    client,
		dir:       dir,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Archive downloads imageSrc and stores it content-addressed. It returns
// (nil, nil) when the resource is not an image and an error for network
// or filesystem trouble; neither outcome may abort the page being
// processed. The fetch happens on every reference since the content hash
// is only knowable after download; the write is skipped when the hash
// path already exists.
func (a *Archiver) Archive(ctx context.Context, pageURL, imageSrc, alt string) (*Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageSrc, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image %s: %w", imageSrc, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			a.logger.Debug("Failed to close image response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "image") {
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read image body %s: %w", imageSrc, err)
	}

	sum := sha1.Sum(body)
	hash := hex.EncodeToString(sum[:])
	filename := hash + extensionFor(contentType)
	target := filepath.Join(a.dir, filename)

	if err := a.writeIfAbsent(target, body); err != nil {
		return nil, err
	}

	return &Record{
		PageURL:   pageURL,
		ImageSrc:  imageSrc,
		SavedPath: filepath.Join(filepath.Base(a.dir), filename),
		SHA1:      hash,
		Alt:       alt,
	}, nil
}

// writeIfAbsent creates the file only when the content-addressed path
// does not already hold it.
func (a *Archiver) writeIfAbsent(target string, body []byte) error {
	if _, err := os.Stat(target); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat image file %s: %w", target, err)
	}
	if err := os.MkdirAll(a.dir, 0o750); err != nil {
		return fmt.Errorf("create image dir %s: %w", a.dir, err)
	}
	if err := os.WriteFile(target, body, 0o600); err != nil {
		return fmt.Errorf("write image file %s: %w", target, err)
	}
	return nil
}

// extensionFor maps an image content type to a file extension, falling
// back to a generic binary extension for unknown types.
func extensionFor(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "jpeg"):
		return ".jpg"
	case strings.Contains(ct, "png"):
		return ".png"
	case strings.Contains(ct, "gif"):
		return ".gif"
	case strings.Contains(ct, "webp"):
		return ".webp"
	case strings.Contains(ct, "svg"):
		return ".svg"
	default:
		return ".bin"
	}
}
