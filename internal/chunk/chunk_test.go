package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/rag-site-crawler/internal/extract"
)

func paragraphOf(words int) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = "word"
	}
	return strings.Join(parts, " ")
}

func TestSplitThreeParagraphsAgainstTarget(t *testing.T) {
	// Three paragraphs of 300 words each against a 650-word target:
	// the first chunk takes paragraphs one and two, the second takes
	// the third.
	text := strings.Join([]string{
		paragraphOf(300),
		paragraphOf(300),
		paragraphOf(300),
	}, "\n\n")

	chunks := New(650).Split(text)
	require.Len(t, chunks, 2)
	require.Equal(t, 600, len(strings.Fields(chunks[0])))
	require.Equal(t, 300, len(strings.Fields(chunks[1])))
}

func TestSplitOversizedParagraphNeverSplit(t *testing.T) {
	big := paragraphOf(900)
	text := paragraphOf(10) + "\n\n" + big + "\n\n" + paragraphOf(10)

	chunks := New(650).Split(text)
	require.Len(t, chunks, 3)
	require.Equal(t, big, chunks[1])
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Join([]string{
		"# Heading",
		paragraphOf(400),
		paragraphOf(400),
		"closing paragraph",
	}, "\n\n")

	c := New(650)
	first := c.Split(text)
	second := c.Split(text)
	require.Equal(t, first, second)
}

func TestSplitSkipsBlankParagraphs(t *testing.T) {
	chunks := New(650).Split("alpha\n\n   \n\nbeta")
	require.Equal(t, []string{"alpha\n\nbeta"}, chunks)
}

func TestSplitEmptyText(t *testing.T) {
	require.Empty(t, New(650).Split(""))
	require.Empty(t, New(650).Split("   \n\n  "))
}

func TestRecordsStableIDs(t *testing.T) {
	page := extract.PageRecord{
		CanonicalURL: "https://example.com/services",
		Title:        "Services",
		Markdown:     paragraphOf(700) + "\n\n" + paragraphOf(100),
		RetrievedAt:  "2025-06-01T12:00:00Z",
		H1:           []string{"Services"},
	}

	c := New(650)
	first := c.Records(page)
	second := c.Records(page)

	require.Len(t, first, 2)
	for i := range first {
		require.Equal(t, i, first[i].ChunkIndex)
		require.Equal(t, first[i].ID, second[i].ID)
		require.Equal(t, first[i].ContentHash, second[i].ContentHash)
		require.Equal(t, "https://example.com/services", first[i].SourceURL)
		require.Equal(t, []string{"Services"}, first[i].Metadata.H1)
	}
	require.NotEqual(t, first[0].ID, first[1].ID)
}

func TestIDDependsOnURLAndIndex(t *testing.T) {
	require.Equal(t, ID("https://example.com/a", 0), ID("https://example.com/a", 0))
	require.NotEqual(t, ID("https://example.com/a", 0), ID("https://example.com/a", 1))
	require.NotEqual(t, ID("https://example.com/a", 0), ID("https://example.com/b", 0))
}

func TestContentHashTracksText(t *testing.T) {
	require.Equal(t, ContentHash("same"), ContentHash("same"))
	require.NotEqual(t, ContentHash("same"), ContentHash("changed"))
}
