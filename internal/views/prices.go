package views

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Price and lead-time patterns tuned to how the site formats its rate
// cards: headings carry both the service names and the price lines.
var (
	currencyRx = regexp.MustCompile(`(?i)\b(?:idr|rp\.?)\s*([0-9][\d.,]*)`)
	unitRx     = regexp.MustCompile(`(?i)/(?:\s*)(unit|units|implant|cervical|first\s*\d+\s*(?:units|cervical))\b`)
	leadRx     = regexp.MustCompile(`(?i)\b(\d+\s*-\s*\d+|\d+)\s*working\s*days\b`)
	digitsRx   = regexp.MustCompile(`[^\d]`)
	spacesRx   = regexp.MustCompile(`\s+`)

	// Section titles that are navigation or boilerplate, never services.
	genericHeadingsRx = regexp.MustCompile(`(?i)\b(` +
		`pricing|our pricing|portfolio|our portfolio|team|our team|about|about us|` +
		`core values|core|loyalty|warranty|contact|get in touch|` +
		`excellence|collaboration|maximize benefit|doctor|zirmon dental atelier` +
		`)\b`)
)

const (
	maxServiceLen = 100
	maxNotesLen   = 300
)

// PriceEntry is one structured rate-card row.
type PriceEntry struct {
	Service   string  `json:"service"`
	Price     int     `json:"price"`
	PriceRaw  string  `json:"price_raw"`
	Currency  string  `json:"currency"`
	Unit      *string `json:"unit"`
	LeadTime  *string `json:"lead_time"`
	Notes     *string `json:"notes"`
	SourceURL string  `json:"source_url"`
}

func hasPrice(s string) bool {
	return currencyRx.MatchString(s)
}

func leadFromText(s string) string {
	m := leadRx.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.ReplaceAll(m[1], " ", "")
}

func unitFromText(s string) string {
	m := unitRx.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(m[1]))
}

func priceFromText(s string) (int, string) {
	m := currencyRx.FindStringSubmatch(s)
	if m == nil {
		return 0, ""
	}
	val, err := strconv.Atoi(digitsRx.ReplaceAllString(m[1], ""))
	if err != nil {
		val = 0
	}
	return val, m[0]
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// ExtractPrices walks each page's markdown heading stream and captures
// price lines, attaching them to the most recent service heading. Lead
// times announced before a price carry forward until a new service
// heading resets the context.
func ExtractPrices(pages []PageView) []PriceEntry {
	var prices []PriceEntry

	addPrice := func(service, txt, url, pendingLead, notes, suffix string) {
		if service == "" || txt == "" {
			return
		}
		amount, priceRaw := priceFromText(txt)
		if amount == 0 {
			return
		}
		unit := unitFromText(txt)
		lead := leadFromText(txt)
		if lead == "" {
			lead = pendingLead
		}
		name := strings.TrimSpace(service)
		if suffix != "" {
			name = fmt.Sprintf("%s (%s)", name, suffix)
		}
		prices = append(prices, PriceEntry{
			Service:   truncate(name, maxServiceLen),
			Price:     amount,
			PriceRaw:  priceRaw,
			Currency:  "IDR",
			Unit:      optional(unit),
			LeadTime:  optional(lead),
			Notes:     optional(truncate(strings.TrimSpace(notes), maxNotesLen)),
			SourceURL: url,
		})
	}

	for _, page := range pages {
		if page.Markdown == "" {
			continue
		}
		url := page.SourceURL()

		currentService := ""
		var pendingNotes []string
		pendingLead := ""
		additionalFlag := false

		for _, block := range ParseBlocks(page.Markdown) {
			if block.Kind == BlockHeading {
				title := cleanTitle(block.Title)

				// Lead-time-only headings, e.g. "#### 3-5 WORKING DAYS".
				if lead := leadFromText(title); lead != "" {
					pendingLead = lead
					continue
				}

				// Price headings, e.g. "#### IDR 1.350.000,- / UNIT".
				if hasPrice(title) {
					suffix := ""
					if additionalFlag {
						suffix = "additional"
					}
					addPrice(currentService, title, url, pendingLead, strings.Join(pendingNotes, "; "), suffix)
					pendingNotes = nil
					additionalFlag = false
					continue
				}

				if strings.EqualFold(strings.TrimSpace(title), "additional") {
					additionalFlag = true
					continue
				}

				// Service names live at h3 and deeper; h1/h2 are sections.
				if block.Level >= 3 && !genericHeadingsRx.MatchString(title) {
					currentService = title
					pendingNotes = nil
					pendingLead = ""
					additionalFlag = false
				}
				continue
			}

			txt := block.Text
			if lead := leadFromText(txt); lead != "" {
				pendingLead = lead
			}
			if hasPrice(txt) {
				suffix := ""
				if additionalFlag {
					suffix = "additional"
				}
				addPrice(currentService, txt, url, pendingLead, strings.Join(pendingNotes, "; "), suffix)
				pendingNotes = nil
				additionalFlag = false
			} else if currentService != "" {
				if snippet := strings.TrimSpace(spacesRx.ReplaceAllString(txt, " ")); snippet != "" {
					pendingNotes = append(pendingNotes, snippet)
				}
			}
		}
	}

	// Drop duplicate (service, price, unit, source) rows.
	seen := make(map[string]struct{}, len(prices))
	out := make([]PriceEntry, 0, len(prices))
	for _, p := range prices {
		unit := ""
		if p.Unit != nil {
			unit = *p.Unit
		}
		key := fmt.Sprintf("%s\x00%d\x00%s\x00%s", p.Service, p.Price, unit, p.SourceURL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}
