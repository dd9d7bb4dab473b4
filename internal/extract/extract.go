// Package extract converts fetched HTML documents into normalized page
// records: markdown-flavored text plus structural metadata.
package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/rag-site-crawler/internal/fetch"
	"github.com/JakeFAU/rag-site-crawler/internal/urlutil"
)

const snippetChars = 300

// ImageRef is one image reference found on a page.
type ImageRef struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// PageRecord is the immutable result of fetching and extracting one URL.
// It is appended verbatim to the page log.
type PageRecord struct {
	URL             string            `json:"url"`
	CanonicalURL    string            `json:"canonical_url"`
	Status          int               `json:"status"`
	RetrievedAt     string            `json:"retrieved_at"`
	Title           string            `json:"title"`
	MetaDescription string            `json:"meta_description"`
	Meta            map[string]string `json:"meta"`
	H1              []string          `json:"h1"`
	H2              []string          `json:"h2"`
	H3              []string          `json:"h3"`
	PublishedAt     *string           `json:"published_at"`
	UpdatedAt       *string           `json:"updated_at"`
	InternalLinks   []string          `json:"internal_links"`
	ExternalLinks   []string          `json:"external_links"`
	Images          []ImageRef        `json:"images"`
	Markdown        string            `json:"markdown"`
	Snippet         string            `json:"snippet"`
	ContentLength   int               `json:"content_length"`
}

// Extractor parses fetched documents into PageRecords.
type Extractor struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewExtractor builds an Extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Extract parses the document fetched from pageURL. Parsing is
// best-effort: structural pieces that cannot be extracted are left empty
// rather than failing the page.
func (e *Extractor) Extract(pageURL string, doc *fetch.Document) (PageRecord, error) {
	parsed, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Body))
	if err != nil {
		return PageRecord{}, fmt.Errorf("parse html for %s: %w", pageURL, err)
	}

	record := PageRecord{
		URL:         pageURL,
		Status:      doc.StatusCode,
		RetrievedAt: e.now().Format(time.RFC3339),
	}

	record.CanonicalURL = canonicalLink(parsed, pageURL)
	record.Title = collapseSpace(parsed.Find("title").First().Text())

	meta, ordered := metaTags(parsed)
	record.Meta = meta
	record.MetaDescription = meta["description"]

	record.H1 = headingTexts(parsed, "h1")
	record.H2 = headingTexts(parsed, "h2")
	record.H3 = headingTexts(parsed, "h3")

	record.InternalLinks, record.ExternalLinks = splitLinks(parsed, pageURL)
	record.Images = imageRefs(parsed, pageURL)

	record.PublishedAt, record.UpdatedAt = extractDates(ordered, doc.Header)

	// Markdown conversion mutates the parsed tree, so it runs last.
	record.Markdown = Markdown(parsed)
	record.Snippet = snippet(record.Markdown)
	record.ContentLength = len(record.Markdown)

	return record, nil
}

// canonicalLink returns the page's canonical link target, falling back to
// the fetched URL.
func canonicalLink(doc *goquery.Document, pageURL string) string {
	canonical := pageURL
	doc.Find("link[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		rel, _ := s.Attr("rel")
		if !strings.Contains(strings.ToLower(rel), "canonical") {
			return true
		}
		href, _ := s.Attr("href")
		if abs, ok := urlutil.Absolute(pageURL, href); ok {
			canonical = abs
		}
		return false
	})
	return canonical
}

// metaTags collects meta name/property → content, lower-cased keys. The
// ordered slice preserves document order for date precedence rules.
func metaTags(doc *goquery.Document) (map[string]string, []metaPair) {
	meta := make(map[string]string)
	var ordered []metaPair
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok || strings.TrimSpace(name) == "" {
			name, _ = s.Attr("property")
		}
		name = strings.ToLower(strings.TrimSpace(name))
		content, _ := s.Attr("content")
		if name == "" || content == "" {
			return
		}
		if _, exists := meta[name]; !exists {
			meta[name] = content
		}
		ordered = append(ordered, metaPair{key: name, value: content})
	})
	return meta, ordered
}

func headingTexts(doc *goquery.Document, tag string) []string {
	var out []string
	doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
		if text := collapseSpace(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

// splitLinks resolves every anchor target and classifies it by the
// same-registrable-domain test. Both lists are deduplicated and sorted.
func splitLinks(doc *goquery.Document, pageURL string) (internal, external []string) {
	internalSet := make(map[string]struct{})
	externalSet := make(map[string]struct{})
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		abs, ok := urlutil.Absolute(pageURL, href)
		if !ok {
			return
		}
		if urlutil.SameSite(pageURL, abs) {
			internalSet[abs] = struct{}{}
		} else {
			externalSet[abs] = struct{}{}
		}
	})
	return sortedKeys(internalSet), sortedKeys(externalSet)
}

func imageRefs(doc *goquery.Document, pageURL string) []ImageRef {
	var out []ImageRef
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		abs, ok := urlutil.Absolute(pageURL, src)
		if !ok {
			return
		}
		alt, _ := s.Attr("alt")
		out = append(out, ImageRef{Src: abs, Alt: alt})
	})
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var whitespaceRx = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string {
	return strings.TrimSpace(whitespaceRx.ReplaceAllString(s, " "))
}

func snippet(markdown string) string {
	flat := collapseSpace(markdown)
	runes := []rune(flat)
	if len(runes) <= snippetChars {
		return flat
	}
	return string(runes[:snippetChars])
}
