package views

import (
	"regexp"
	"strings"
)

var teamHeadingRx = regexp.MustCompile(`(?i)\bzirmon\s+([A-Za-z]+)`)

// knownTeams gates extraction to the branded team names so ordinary
// "ZIRMON <word>" headings do not leak in.
var knownTeams = map[string]struct{}{
	"EXCEL":   {},
	"MARVEL":  {},
	"FASCINA": {},
	"ADMIN":   {},
	"BALI":    {},
	"JAKARTA": {},
	"MAGNI":   {},
}

const maxBlurbLen = 500

// TeamEntry is one named team with the paragraphs under its heading.
type TeamEntry struct {
	Team      string `json:"team"`
	Blurb     string `json:"blurb"`
	SourceURL string `json:"source_url"`
}

// ExtractTeams captures each known team heading and the paragraphs that
// follow it, up to the next heading.
func ExtractTeams(pages []PageView) []TeamEntry {
	var teams []TeamEntry

	for _, page := range pages {
		if page.Markdown == "" {
			continue
		}
		url := page.SourceURL()

		curTeam := ""
		var blurb []string

		flush := func() {
			if curTeam == "" {
				return
			}
			teams = append(teams, TeamEntry{
				Team:      curTeam,
				Blurb:     truncate(strings.Join(blurb, " "), maxBlurbLen),
				SourceURL: url,
			})
			curTeam = ""
			blurb = nil
		}

		for _, block := range ParseBlocks(page.Markdown) {
			switch block.Kind {
			case BlockHeading:
				flush()
				title := cleanTitle(block.Title)
				if m := teamHeadingRx.FindStringSubmatch(title); m != nil {
					name := strings.ToUpper(m[1])
					if _, ok := knownTeams[name]; ok {
						curTeam = "ZIRMON " + name
					}
				}
			case BlockParagraph:
				if curTeam == "" {
					continue
				}
				if txt := strings.TrimSpace(spacesRx.ReplaceAllString(block.Text, " ")); txt != "" {
					blurb = append(blurb, txt)
				}
			}
		}
		flush()
	}

	seen := make(map[string]struct{}, len(teams))
	out := make([]TeamEntry, 0, len(teams))
	for _, t := range teams {
		key := t.Team + "\x00" + t.SourceURL
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
