package views

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	phoneRx     = regexp.MustCompile(`(?:\+?\d[\d\s\-]{7,}\d)`)
	cityHeadsRx = regexp.MustCompile(`(?i)^zirmon\s+(medan|bali|jakarta)\b`)
)

// ContactEntry is one phone number with the heading it appeared under.
type ContactEntry struct {
	Label     string `json:"label"`
	Phone     string `json:"phone"`
	Context   string `json:"context"`
	SourceURL string `json:"source_url"`
}

// LocationEntry is one branch address captured from a city heading.
type LocationEntry struct {
	Location  string `json:"location"`
	Address   string `json:"address"`
	SourceURL string `json:"source_url"`
}

// ExtractContacts scans markdown line by line for phone numbers and for
// branch addresses, which follow city headings like "### ZIRMON MEDAN"
// as one to three non-blank lines.
func ExtractContacts(pages []PageView) ([]ContactEntry, []LocationEntry) {
	var contacts []ContactEntry
	var locations []LocationEntry

	for _, page := range pages {
		if page.Markdown == "" {
			continue
		}
		url := page.SourceURL()

		lastHeading := ""
		captureCity := ""
		lines := strings.Split(page.Markdown, "\n")

		for i, line := range lines {
			if m := headingLineRx.FindStringSubmatch(line); m != nil {
				title := strings.TrimSpace(m[2])
				lastHeading = title
				if cityHeadsRx.MatchString(title) {
					captureCity = cleanTitle(title)
				} else {
					captureCity = ""
				}
				continue
			}

			for _, phone := range phoneRx.FindAllString(line, -1) {
				label := strings.TrimSpace(lastHeading)
				if label == "" {
					label = "Phone"
				}
				context := ""
				if i > 0 {
					context = strings.TrimSpace(lines[i-1])
				}
				contacts = append(contacts, ContactEntry{
					Label:     label,
					Phone:     spacesRx.ReplaceAllString(phone, ""),
					Context:   context,
					SourceURL: url,
				})
			}

			if captureCity != "" && strings.TrimSpace(line) != "" {
				addrLines := []string{strings.TrimSpace(line)}
				for j := 1; j < 3; j++ {
					if i+j >= len(lines) || strings.TrimSpace(lines[i+j]) == "" {
						break
					}
					addrLines = append(addrLines, strings.TrimSpace(lines[i+j]))
				}
				locations = append(locations, LocationEntry{
					Location:  captureCity,
					Address:   strings.Join(addrLines, " "),
					SourceURL: url,
				})
				captureCity = ""
			}
		}
	}

	contacts = dedupContacts(contacts)
	locations = dedupLocations(locations)
	return contacts, locations
}

func dedupContacts(items []ContactEntry) []ContactEntry {
	seen := make(map[string]struct{}, len(items))
	out := make([]ContactEntry, 0, len(items))
	for _, it := range items {
		key := fmt.Sprintf("%s\x00%s\x00%s", it.Label, it.Phone, it.SourceURL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}

func dedupLocations(items []LocationEntry) []LocationEntry {
	seen := make(map[string]struct{}, len(items))
	out := make([]LocationEntry, 0, len(items))
	for _, it := range items {
		key := fmt.Sprintf("%s\x00%s\x00%s", it.Location, it.Address, it.SourceURL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}
