package extract

import (
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// metaPair is one meta tag in document order.
type metaPair struct {
	key   string
	value string
}

// dateMetaKeys is the fixed set of meta keys consulted for publish and
// update timestamps.
var dateMetaKeys = map[string]struct{}{
	"article:published_time": {},
	"article:modified_time":  {},
	"og:updated_time":        {},
	"date":                   {},
	"dc.date":                {},
	"dc.date.issued":         {},
	"dc.date.modified":       {},
	"last-modified":          {},
	"revise":                 {},
	"publish_date":           {},
	"pubdate":                {},
}

// extractDates resolves published/updated timestamps. Structured meta
// tags take priority over the HTTP Last-Modified header; the first
// successfully parsed value wins and unparsable strings are ignored.
func extractDates(ordered []metaPair, header http.Header) (published, updated *string) {
	for _, pair := range ordered {
		if _, ok := dateMetaKeys[pair.key]; !ok {
			continue
		}
		parsed, err := dateparse.ParseAny(pair.value)
		if err != nil {
			continue
		}
		iso := parsed.Format(time.RFC3339)
		if published == nil && isPublishedKey(pair.key) {
			published = &iso
		}
		if updated == nil && isUpdatedKey(pair.key) {
			updated = &iso
		}
	}

	if updated == nil {
		if lm := header.Get("Last-Modified"); lm != "" {
			if parsed, err := dateparse.ParseAny(lm); err == nil {
				iso := parsed.Format(time.RFC3339)
				updated = &iso
			}
		}
	}
	return published, updated
}

func isPublishedKey(key string) bool {
	return strings.HasSuffix(key, "published_time") ||
		strings.Contains(key, "publish") ||
		key == "date" ||
		strings.Contains(key, "issued")
}

func isUpdatedKey(key string) bool {
	return strings.HasSuffix(key, "modified_time") ||
		strings.Contains(key, "updated") ||
		strings.Contains(key, "modified") ||
		strings.Contains(key, "revise")
}
