package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// strippedSelector removes non-content elements before text conversion.
const strippedSelector = "script,style,noscript,svg,iframe,canvas,form,footer,header,nav"

var (
	blankRunsRx = regexp.MustCompile(`\n{3,}`)
	spaceRunsRx = regexp.MustCompile(`[ \t]+`)

	headingLevels = map[string]int{
		"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6,
	}

	// blockContainers group other blocks; their children are walked
	// block-by-block instead of being flattened inline.
	blockContainers = map[string]struct{}{
		"body": {}, "div": {}, "section": {}, "article": {}, "main": {},
		"aside": {}, "figure": {}, "details": {}, "dl": {}, "center": {},
	}
)

// Markdown converts the document body into normalized markdown-flavored
// text: ATX headings, blank-line paragraph breaks, list and emphasis
// markers. Images are discarded (they are captured as structured
// references elsewhere) and runs of blank lines collapse to one.
func Markdown(doc *goquery.Document) string {
	doc.Find(strippedSelector).Remove()

	root := doc.Selection
	if body := doc.Find("body"); body.Length() > 0 {
		root = body.First()
	}

	var blocks []string
	for _, node := range root.Nodes {
		removeComments(node)
		walkBlocks(node, &blocks)
	}

	text := strings.Join(blocks, "\n\n")
	text = blankRunsRx.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func removeComments(n *html.Node) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		if child.Type == html.CommentNode {
			n.RemoveChild(child)
		} else {
			removeComments(child)
		}
		child = next
	}
}

// walkBlocks appends the rendered text of n and its children to blocks.
func walkBlocks(n *html.Node, blocks *[]string) {
	switch n.Type {
	case html.TextNode:
		if text := collapseSpace(n.Data); text != "" {
			*blocks = append(*blocks, text)
		}
		return
	case html.ElementNode:
		// handled below
	default:
		return
	}

	if level, ok := headingLevels[n.Data]; ok {
		if text := tidyInline(renderInline(n)); text != "" {
			*blocks = append(*blocks, strings.Repeat("#", level)+" "+text)
		}
		return
	}

	switch n.Data {
	case "p", "blockquote", "dt", "dd", "figcaption", "summary":
		if text := tidyInline(renderInline(n)); text != "" {
			*blocks = append(*blocks, text)
		}
	case "pre":
		if text := strings.TrimSpace(rawText(n)); text != "" {
			*blocks = append(*blocks, text)
		}
	case "ul", "ol":
		if list := renderList(n); list != "" {
			*blocks = append(*blocks, list)
		}
	case "table":
		if table := renderTable(n); table != "" {
			*blocks = append(*blocks, table)
		}
	case "hr":
		*blocks = append(*blocks, "---")
	case "img":
		// images never appear inline in the text form
	default:
		if _, ok := blockContainers[n.Data]; ok || hasBlockChild(n) {
			for child := n.FirstChild; child != nil; child = child.NextSibling {
				walkBlocks(child, blocks)
			}
			return
		}
		if text := tidyInline(renderInline(n)); text != "" {
			*blocks = append(*blocks, text)
		}
	}
}

func hasBlockChild(n *html.Node) bool {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		if _, ok := headingLevels[child.Data]; ok {
			return true
		}
		switch child.Data {
		case "p", "ul", "ol", "table", "blockquote", "pre", "hr":
			return true
		}
		if _, ok := blockContainers[child.Data]; ok {
			return true
		}
	}
	return false
}

// renderInline flattens n's subtree into one line of markdown text.
func renderInline(n *html.Node) string {
	var sb strings.Builder
	inlineNode(&sb, n)
	return sb.String()
}

func inlineNode(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(whitespaceToSpace(n.Data))
		return
	case html.ElementNode:
		// handled below
	default:
		return
	}

	switch n.Data {
	case "img", "script", "style":
		return
	case "br":
		sb.WriteString("\n")
		return
	case "a":
		inner := strings.TrimSpace(renderChildren(n))
		href := attrValue(n, "href")
		switch {
		case inner == "":
		case href == "" || strings.HasPrefix(href, "#"):
			sb.WriteString(inner)
		default:
			sb.WriteString("[" + inner + "](" + href + ")")
		}
		return
	case "strong", "b":
		if inner := strings.TrimSpace(renderChildren(n)); inner != "" {
			sb.WriteString("**" + inner + "**")
		}
		return
	case "em", "i":
		if inner := strings.TrimSpace(renderChildren(n)); inner != "" {
			sb.WriteString("*" + inner + "*")
		}
		return
	case "code":
		if inner := strings.TrimSpace(renderChildren(n)); inner != "" {
			sb.WriteString("`" + inner + "`")
		}
		return
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		inlineNode(sb, child)
	}
}

func attrValue(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}

func renderChildren(n *html.Node) string {
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		inlineNode(&sb, child)
	}
	return sb.String()
}

func renderList(n *html.Node) string {
	ordered := n.Data == "ol"
	var items []string
	index := 0
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode || child.Data != "li" {
			continue
		}
		text := tidyInline(renderInline(child))
		if text == "" {
			continue
		}
		index++
		if ordered {
			items = append(items, numberedItem(index, text))
		} else {
			items = append(items, "- "+text)
		}
	}
	return strings.Join(items, "\n")
}

func numberedItem(index int, text string) string {
	return strconv.Itoa(index) + ". " + text
}

func renderTable(n *html.Node) string {
	var rows []string
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "tr" {
			var cells []string
			for cell := node.FirstChild; cell != nil; cell = cell.NextSibling {
				if cell.Type == html.ElementNode && (cell.Data == "td" || cell.Data == "th") {
					if text := tidyInline(renderInline(cell)); text != "" {
						cells = append(cells, text)
					}
				}
			}
			if len(cells) > 0 {
				rows = append(rows, strings.Join(cells, " | "))
			}
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(n)
	return strings.Join(rows, "\n")
}

func rawText(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(n)
	return sb.String()
}

// tidyInline trims an inline rendering and squeezes space runs without
// touching the newlines produced by <br>.
func tidyInline(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(spaceRunsRx.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func whitespaceToSpace(s string) string {
	return whitespaceRx.ReplaceAllString(s, " ")
}
