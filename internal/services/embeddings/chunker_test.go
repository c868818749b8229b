package embeddings

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortTextSingleChunk(t *testing.T) {
	chunker := NewChunker(1200)

	chunks := chunker.Split("A short product description.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "A short product description.", chunks[0])
}

func TestSplitEmptyTextYieldsOneChunk(t *testing.T) {
	chunker := NewChunker(1200)

	chunks := chunker.Split("   ")
	require.Len(t, chunks, 1, "every record yields at least one chunk")
	assert.Equal(t, "", chunks[0])
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	chunker := NewChunker(100)

	para1 := strings.Repeat("a", 60)
	para2 := strings.Repeat("b", 60)
	para3 := strings.Repeat("c", 30)
	chunks := chunker.Split(para1 + "\n\n" + para2 + "\n\n" + para3)

	require.Len(t, chunks, 2)
	assert.Equal(t, para1, chunks[0], "paragraph is not cut mid-way when it fits alone")
	assert.Equal(t, para2+"\n\n"+para3, chunks[1], "small paragraphs pack together")
}

func TestSplitOversizedParagraphBySentences(t *testing.T) {
	chunker := NewChunker(80)

	text := "First sentence here. Second sentence follows. Third one closes the paragraph. And a fourth for good measure."
	chunks := chunker.Split(text)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 80)
		assert.NotEmpty(t, chunk)
	}
	// Sentences survive intact across the cut.
	joined := strings.Join(chunks, " ")
	assert.Contains(t, joined, "Second sentence follows.")
}

func TestSplitHardCutsGiantSentence(t *testing.T) {
	chunker := NewChunker(50)

	text := strings.Repeat("x", 140)
	chunks := chunker.Split(text)

	require.GreaterOrEqual(t, len(chunks), 3)
	total := 0
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 50)
		total += len(chunk)
	}
	assert.Equal(t, 140, total, "no content is lost to the cuts")
}

func TestSplitHardCutsKeepValidUTF8(t *testing.T) {
	chunker := NewChunker(101)

	// Odd budget lands the cut mid-rune for two-byte characters.
	text := strings.Repeat("á", 150)
	chunks := chunker.Split(text)

	require.GreaterOrEqual(t, len(chunks), 2)
	var runes int
	for _, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk), "hard cuts must land on rune boundaries")
		assert.LessOrEqual(t, len(chunk), 101)
		runes += utf8.RuneCountInString(chunk)
	}
	assert.Equal(t, 150, runes, "no characters are lost to the cuts")
}

func TestSplitRespectsBudget(t *testing.T) {
	chunker := NewChunker(1200)

	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("This is sentence number ")
		sb.WriteString(strings.Repeat("very ", i%7))
		sb.WriteString("long in the description. ")
	}
	chunks := chunker.Split(sb.String())

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 1200)
	}
}
