package embeddings

import (
	"strings"
	"unicode/utf8"
)

// Chunker splits record text into embedding-sized pieces, preferring
// semantic boundaries (paragraphs, then sentences) over hard cuts.
type Chunker struct {
	maxChars int
}

const defaultMaxChunkChars = 1200

// NewChunker creates a chunker with the given character budget per chunk.
func NewChunker(maxChars int) *Chunker {
	if maxChars <= 0 {
		maxChars = defaultMaxChunkChars
	}
	return &Chunker{maxChars: maxChars}
}

// Split breaks text into chunks of at most maxChars characters. Every record
// yields at least one chunk; empty text yields one empty chunk so the caller
// can decide whether to drop it.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if len(text) <= c.maxChars {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		// Paragraph fits into the running chunk.
		if current.Len()+len(paragraph)+2 <= c.maxChars {
			if current.Len() > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(paragraph)
			continue
		}

		flush()

		if len(paragraph) <= c.maxChars {
			current.WriteString(paragraph)
			continue
		}

		// Oversized paragraph: pack sentences, hard-cutting any single
		// sentence that still exceeds the budget.
		for _, sentence := range splitSentences(paragraph) {
			if current.Len()+len(sentence)+1 > c.maxChars {
				flush()
			}
			for len(sentence) > c.maxChars {
				cut := runeBoundary(sentence, c.maxChars)
				chunks = append(chunks, strings.TrimSpace(sentence[:cut]))
				sentence = strings.TrimSpace(sentence[cut:])
			}
			if sentence == "" {
				continue
			}
			if current.Len() > 0 {
				current.WriteString(" ")
			}
			current.WriteString(sentence)
		}
		flush()
	}
	flush()

	if len(chunks) == 0 {
		return []string{""}
	}
	return chunks
}

// runeBoundary backs a byte offset up to the nearest rune start so hard cuts
// never split a multi-byte character. Accented product prose would otherwise
// yield invalid UTF-8 chunks.
func runeBoundary(s string, max int) int {
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		return max
	}
	return cut
}

// splitSentences is a cheap sentence splitter: breaks after terminal
// punctuation followed by a space. Good enough for chunk packing; exact
// linguistics do not matter here.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' || text[i+1] == '\n' {
				sentences = append(sentences, strings.TrimSpace(text[start:i+1]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
