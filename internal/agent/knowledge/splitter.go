package knowledge

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is measured in runes.
	DefaultChunkSize = 1000
	paragraphSep     = "\n\n"
)

// Split cuts text into chunks of at most size runes without overlap.
// Paragraphs are merged greedily; a paragraph longer than size is cut on
// rune boundaries.
func Split(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
		currentLen = 0
	}

	for _, para := range strings.Split(text, paragraphSep) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		n := utf8.RuneCountInString(para)

		if n > size {
			flush()
			chunks = append(chunks, hardSplit(para, size)...)
			continue
		}

		sepLen := 0
		if currentLen > 0 {
			sepLen = utf8.RuneCountInString(paragraphSep)
		}
		if currentLen+sepLen+n > size {
			flush()
			sepLen = 0
		}
		if sepLen > 0 {
			current.WriteString(paragraphSep)
		}
		current.WriteString(para)
		currentLen += sepLen + n
	}
	flush()

	return chunks
}

func hardSplit(s string, size int) []string {
	runes := []rune(s)
	out := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			out = append(out, piece)
		}
	}
	return out
}
