package views

import (
	"bufio"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/JakeFAU/rag-site-crawler/internal/chunk"
)

// PageView is the slice of a page record the structured extractors
// need. Decoding into it skips the heavy fields of the full record.
type PageView struct {
	URL          string `json:"url"`
	CanonicalURL string `json:"canonical_url"`
	Markdown     string `json:"markdown"`
}

// SourceURL prefers the canonical form when the page declared one.
func (p PageView) SourceURL() string {
	if p.CanonicalURL != "" {
		return p.CanonicalURL
	}
	return p.URL
}

// Builder reads the full crawl outputs and writes the condensed
// chatbot datasets.
type Builder struct {
	logger *zap.Logger
}

// NewBuilder returns a Builder. A nil logger is replaced with a no-op.
func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{logger: logger}
}

// Build runs the whole pipeline: minimal chunks with an upsert state
// map, then the structured price, contact, location, and team files.
func (b *Builder) Build(dataDir, outDir string) error {
	chunksPath := filepath.Join(dataDir, "chunks.jsonl")
	pagesPath := filepath.Join(dataDir, "pages.jsonl")
	structDir := filepath.Join(outDir, "structured")

	n, err := b.BuildMinChunks(chunksPath, filepath.Join(outDir, "chunks.jsonl"), filepath.Join(outDir, "state.json"))
	if err != nil {
		return fmt.Errorf("build minimal chunks: %w", err)
	}
	b.logger.Info("Minimal chunks written", zap.Int("count", n), zap.String("dir", outDir))

	var pages []PageView
	if err := readJSONL(pagesPath, func(raw []byte) error {
		var page PageView
		if err := json.Unmarshal(raw, &page); err != nil {
			return err
		}
		pages = append(pages, page)
		return nil
	}); err != nil {
		return fmt.Errorf("read pages: %w", err)
	}

	prices := ExtractPrices(pages)
	if err := dumpJSON(filepath.Join(structDir, "prices.json"), prices); err != nil {
		return fmt.Errorf("write prices: %w", err)
	}
	b.logger.Info("Prices extracted", zap.Int("count", len(prices)))

	contacts, locations := ExtractContacts(pages)
	if err := dumpJSON(filepath.Join(structDir, "contacts.json"), contacts); err != nil {
		return fmt.Errorf("write contacts: %w", err)
	}
	if err := dumpJSON(filepath.Join(structDir, "locations.json"), locations); err != nil {
		return fmt.Errorf("write locations: %w", err)
	}
	b.logger.Info("Contacts extracted", zap.Int("contacts", len(contacts)), zap.Int("locations", len(locations)))

	teams := ExtractTeams(pages)
	if err := dumpJSON(filepath.Join(structDir, "teams.json"), teams); err != nil {
		return fmt.Errorf("write teams: %w", err)
	}
	b.logger.Info("Teams extracted", zap.Int("count", len(teams)))

	return nil
}

// BuildMinChunks rewrites the chunk stream keeping only the retrieval
// fields, recomputes each content hash, and records the id to hash map
// used for incremental embedding upserts. Returns the record count.
func (b *Builder) BuildMinChunks(chunksPath, outPath, statePath string) (int, error) {
	state := make(map[string]string)
	var records []chunk.Record

	err := readJSONL(chunksPath, func(raw []byte) error {
		var rec chunk.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		if rec.Metadata.H1 == nil {
			rec.Metadata.H1 = []string{}
		}
		if rec.Metadata.H2 == nil {
			rec.Metadata.H2 = []string{}
		}
		if rec.Metadata.H3 == nil {
			rec.Metadata.H3 = []string{}
		}
		sum := sha1.Sum([]byte(rec.Text))
		rec.ContentHash = hex.EncodeToString(sum[:])
		state[rec.ID] = rec.ContentHash
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := writeJSONL(outPath, records); err != nil {
		return 0, err
	}
	if err := dumpJSON(statePath, state); err != nil {
		return 0, err
	}
	return len(records), nil
}

func readJSONL(path string, fn func(raw []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		if err := fn(raw); err != nil {
			return fmt.Errorf("%s line %d: %w", path, line, err)
		}
	}
	return scanner.Err()
}

func writeJSONL(path string, records []chunk.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func dumpJSON(path string, obj any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
