package document

import (
	"strings"
	"unicode"
)

const (
	DefaultChunkSize    = 3000
	DefaultChunkOverlap = 200
)

// Split cuts text into windows of at most size runes, each starting overlap
// runes before the previous one ended. A window prefers to end on a
// paragraph break, then a line break, then whitespace, as long as that
// keeps it at least half full.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakPoint(runes, start, end)
		}

		if c := strings.TrimSpace(string(runes[start:end])); c != "" {
			chunks = append(chunks, c)
		}
		if end == len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

func breakPoint(runes []rune, start, end int) int {
	floor := start + (end-start)/2
	for i := end - 1; i > floor; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	for i := end - 1; i > floor; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	for i := end - 1; i > floor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return end
}
