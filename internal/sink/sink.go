// Package sink persists crawl output: the append-only page and chunk
// logs plus the image manifest. A write failure here is the one fatal
// error class of a crawl run, since these files are its sole durable
// product.
package sink

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/JakeFAU/rag-site-crawler/internal/chunk"
	"github.com/JakeFAU/rag-site-crawler/internal/extract"
	"github.com/JakeFAU/rag-site-crawler/internal/images"
)

var imageManifestHeader = []string{"page_url", "image_src", "saved_path", "sha1", "alt"}

// FileSystemSink writes crawl records under one output directory:
// pages.jsonl, chunks.jsonl, and images.csv.
type FileSystemSink struct {
	root      string
	pages     *os.File
	chunks    *os.File
	manifest  *os.File
	csvWriter *csv.Writer
	logger    *zap.Logger
}

// New opens (or creates) the output files under root in append mode. The
// manifest header is written only when the file is new.
func New(root string, logger *zap.Logger) (*FileSystemSink, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", root, err)
	}

	pages, err := openAppend(filepath.Join(root, "pages.jsonl"))
	if err != nil {
		return nil, err
	}
	chunks, err := openAppend(filepath.Join(root, "chunks.jsonl"))
	if err != nil {
		closeQuietly(pages, logger)
		return nil, err
	}

	manifestPath := filepath.Join(root, "images.csv")
	needHeader, err := isMissingOrEmpty(manifestPath)
	if err != nil {
		closeQuietly(pages, logger)
		closeQuietly(chunks, logger)
		return nil, err
	}
	manifest, err := openAppend(manifestPath)
	if err != nil {
		closeQuietly(pages, logger)
		closeQuietly(chunks, logger)
		return nil, err
	}

	s := &FileSystemSink{
		root:      root,
		pages:     pages,
		chunks:    chunks,
		manifest:  manifest,
		csvWriter: csv.NewWriter(manifest),
		logger:    logger,
	}
	if needHeader {
		if err := s.csvWriter.Write(imageManifestHeader); err != nil {
			s.Close()
			return nil, fmt.Errorf("write image manifest header: %w", err)
		}
		s.csvWriter.Flush()
		if err := s.csvWriter.Error(); err != nil {
			s.Close()
			return nil, fmt.Errorf("flush image manifest header: %w", err)
		}
	}
	return s, nil
}

// Root returns the sink's output directory.
func (s *FileSystemSink) Root() string {
	return s.root
}

// WritePage appends one PageRecord to the page log.
func (s *FileSystemSink) WritePage(page extract.PageRecord) error {
	return appendJSONLine(s.pages, page)
}

// WriteChunk appends one chunk Record to the chunk log.
func (s *FileSystemSink) WriteChunk(record chunk.Record) error {
	return appendJSONLine(s.chunks, record)
}

// WriteImage appends one row to the image manifest.
func (s *FileSystemSink) WriteImage(record images.Record) error {
	row := []string{record.PageURL, record.ImageSrc, record.SavedPath, record.SHA1, record.Alt}
	if err := s.csvWriter.Write(row); err != nil {
		return fmt.Errorf("write image manifest row: %w", err)
	}
	s.csvWriter.Flush()
	if err := s.csvWriter.Error(); err != nil {
		return fmt.Errorf("flush image manifest: %w", err)
	}
	return nil
}

// Close flushes and closes every output stream.
func (s *FileSystemSink) Close() error {
	s.csvWriter.Flush()
	var firstErr error
	if err := s.csvWriter.Error(); err != nil {
		firstErr = fmt.Errorf("flush image manifest: %w", err)
	}
	for _, f := range []*os.File{s.pages, s.chunks, s.manifest} {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", f.Name(), err)
		}
	}
	return firstErr
}

func appendJSONLine(f *os.File, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	payload = append(payload, '\n')
	if _, err := f.Write(payload); err != nil {
		return fmt.Errorf("append to %s: %w", f.Name(), err)
	}
	return nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func isMissingOrEmpty(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size() == 0, nil
}

func closeQuietly(f *os.File, logger *zap.Logger) {
	if err := f.Close(); err != nil {
		logger.Debug("Failed to close output file", zap.String("file", f.Name()), zap.Error(err))
	}
}
