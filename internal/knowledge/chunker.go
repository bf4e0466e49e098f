package knowledge

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Chunker splits document text into overlapping chunks sized for the
// embedder's context window. Splitting prefers the largest separator
// that keeps pieces under the size limit, falling back from paragraph
// to line to sentence to word boundaries.
type Chunker struct {
	size    int
	overlap int
}

// separators in preference order. The empty string is the final
// fallback and splits by runes.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// NewChunker creates a Chunker. Overlap must be smaller than size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in [0, size), got %d", overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split breaks text into chunks of at most the configured size, with
// the configured overlap carried between adjacent chunks.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= c.size {
		return []string{text}
	}

	pieces := c.split(text, 0)

	var chunks []string
	var current strings.Builder
	for _, piece := range pieces {
		if current.Len() > 0 && current.Len()+len(piece) > c.size {
			chunk := strings.TrimSpace(current.String())
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			tail := overlapTail(current.String(), c.overlap)
			current.Reset()
			current.WriteString(tail)
		}
		current.WriteString(piece)
	}
	if chunk := strings.TrimSpace(current.String()); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// split recursively divides text by the separator hierarchy until every
// piece fits within the chunk size.
func (c *Chunker) split(text string, sepIndex int) []string {
	if len(text) <= c.size {
		return []string{text}
	}
	if sepIndex >= len(separators) {
		return hardSplit(text, c.size)
	}

	sep := separators[sepIndex]
	if sep == "" {
		return hardSplit(text, c.size)
	}

	parts := strings.SplitAfter(text, sep)
	if len(parts) == 1 {
		return c.split(text, sepIndex+1)
	}

	var pieces []string
	for _, part := range parts {
		if len(part) > c.size {
			pieces = append(pieces, c.split(part, sepIndex+1)...)
		} else if part != "" {
			pieces = append(pieces, part)
		}
	}
	return pieces
}

// hardSplit cuts text into pieces of at most size bytes when no
// separator fits, backing each cut up to a rune boundary so multibyte
// text never splits mid-rune.
func hardSplit(text string, size int) []string {
	var pieces []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			pieces = append(pieces, text[start:])
			break
		}
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == start {
			// A single rune wider than size; emit it whole.
			_, n := utf8.DecodeRuneInString(text[start:])
			end = start + n
		}
		pieces = append(pieces, text[start:end])
		start = end
	}
	return pieces
}

// overlapTail returns roughly the last overlap bytes of s, advanced to
// a rune boundary and then to the nearest whitespace so overlaps begin
// neither mid-rune nor mid-word.
func overlapTail(s string, overlap int) string {
	if overlap == 0 {
		return ""
	}
	if len(s) <= overlap {
		return s
	}
	tail := s[len(s)-overlap:]
	for len(tail) > 0 && !utf8.RuneStart(tail[0]) {
		tail = tail[1:]
	}
	if i := strings.IndexAny(tail, " \n\t"); i >= 0 {
		tail = tail[i+1:]
	}
	return tail
}
