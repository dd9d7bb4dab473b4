// Package chunk splits normalized page text into bounded-size,
// paragraph-aligned retrievable units with stable identifiers.
package chunk

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/JakeFAU/rag-site-crawler/internal/extract"
)

// DefaultTargetWords is the per-chunk word budget. Roughly 1 token per
// 0.75 words, so 650 words lands near an 800 token retrieval unit.
const DefaultTargetWords = 650

// Metadata carries the page-level context each chunk inherits.
type Metadata struct {
	H1              []string `json:"h1"`
	H2              []string `json:"h2"`
	H3              []string `json:"h3"`
	MetaDescription string   `json:"meta_description"`
}

// Record is one retrievable unit of a page. The ID is a deterministic
// hash of (canonical URL, chunk index) so repeated runs over unchanged
// content produce identical identifiers; ContentHash changes only when
// the text does.
type Record struct {
	ID          string   `json:"id"`
	SourceURL   string   `json:"source_url"`
	PageTitle   string   `json:"page_title"`
	ChunkIndex  int      `json:"chunk_index"`
	Text        string   `json:"text"`
	PublishedAt *string  `json:"published_at"`
	UpdatedAt   *string  `json:"updated_at"`
	RetrievedAt string   `json:"retrieved_at"`
	Metadata    Metadata `json:"metadata"`
	ContentHash string   `json:"content_hash"`
}

// Chunker produces chunk records from page records.
type Chunker struct {
	targetWords int
}

// New builds a Chunker with the given word target per chunk.
func New(targetWords int) *Chunker {
	if targetWords <= 0 {
		targetWords = DefaultTargetWords
	}
	return &Chunker{targetWords: targetWords}
}

// Split divides text on blank-line paragraph boundaries and greedily
// packs paragraphs into chunks of at most the target word count. A
// paragraph is never split: one longer than the target is emitted alone,
// oversized, rather than truncated. Identical input always yields
// identical output.
func (c *Chunker) Split(text string) []string {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}

	var chunks []string
	var current []string
	count := 0
	for _, p := range paragraphs {
		words := len(strings.Fields(p))
		if count+words > c.targetWords && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n\n"))
			current, count = nil, 0
		}
		current = append(current, p)
		count += words
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n\n"))
	}
	return chunks
}

// Records chunks the page body and wraps each piece in a Record carrying
// the page's inherited metadata. Chunk indices are contiguous from zero.
func (c *Chunker) Records(page extract.PageRecord) []Record {
	pieces := c.Split(page.Markdown)
	records := make([]Record, 0, len(pieces))
	for i, text := range pieces {
		records = append(records, Record{
			ID:          ID(page.CanonicalURL, i),
			SourceURL:   page.CanonicalURL,
			PageTitle:   page.Title,
			ChunkIndex:  i,
			Text:        text,
			PublishedAt: page.PublishedAt,
			UpdatedAt:   page.UpdatedAt,
			RetrievedAt: page.RetrievedAt,
			Metadata: Metadata{
				H1:              page.H1,
				H2:              page.H2,
				H3:              page.H3,
				MetaDescription: page.MetaDescription,
			},
			ContentHash: ContentHash(text),
		})
	}
	return records
}

// ID returns the stable chunk identifier for (canonical URL, index).
func ID(canonicalURL string, index int) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s#%d", canonicalURL, index)))
	return hex.EncodeToString(sum[:])
}

// ContentHash returns the hash downstream incremental-update logic uses
// to detect changed chunk text.
func ContentHash(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
