// Package views condenses the full crawl outputs into chatbot-ready
// datasets: minimal chunk records with content hashes, an upsert state
// map, and structured fact files mined from page markdown.
package views

import (
	"regexp"
	"strings"
)

var headingLineRx = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

// decorationRx strips emphasis markers left inside heading titles.
var decorationRx = regexp.MustCompile("[*_`]+")

// BlockKind distinguishes the two block types a markdown document
// flattens into.
type BlockKind int

const (
	BlockHeading BlockKind = iota
	BlockParagraph
)

// Block is one element of the flattened markdown stream. Level and
// Title are set for headings, Text for paragraphs.
type Block struct {
	Kind  BlockKind
	Level int
	Title string
	Text  string
}

// ParseBlocks flattens markdown into an ordered heading/paragraph
// stream. Consecutive non-blank lines between headings merge into one
// paragraph; blank lines end the current paragraph.
func ParseBlocks(md string) []Block {
	var blocks []Block
	var buf []string

	flush := func() {
		if len(buf) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if text != "" {
			blocks = append(blocks, Block{Kind: BlockParagraph, Text: text})
		}
	}

	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if m := headingLineRx.FindStringSubmatch(line); m != nil {
			flush()
			blocks = append(blocks, Block{
				Kind:  BlockHeading,
				Level: len(m[1]),
				Title: strings.TrimSpace(m[2]),
			})
			continue
		}
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		buf = append(buf, line)
	}
	flush()
	return blocks
}

// cleanTitle removes emphasis decoration from a heading title.
func cleanTitle(title string) string {
	return strings.TrimSpace(decorationRx.ReplaceAllString(title, ""))
}
