package chunker

import (
	"strings"
	"unicode"
)

const (
	maxChunkSize = 1000 //characters
	chunkOverlap = 200
	lookBack     = 100 //window to find a soft break before the hard limit
)

// splitText greedily cuts text at ~maxChunkSize characters with
// chunkOverlap carry-over. Cuts prefer the nearest whitespace or
// punctuation inside a lookBack window from the hard limit so sentences
// survive where possible. Control whitespace is stripped first.
func splitText(text string) []string {
	text = normalizeWhitespace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= maxChunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + maxChunkSize
		if end >= len(runes) {
			chunks = append(chunks, strings.TrimSpace(string(runes[start:])))
			break
		}

		cut := softBreak(runes, end)
		chunk := strings.TrimSpace(string(runes[start:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - chunkOverlap
		if next <= start {
			next = cut //never loop backwards on pathological input
		}
		start = next
	}
	return chunks
}

// softBreak walks back from the hard limit looking for a whitespace or
// punctuation boundary; sentence enders win over plain spaces.
func softBreak(runes []rune, hardLimit int) int {
	bestSpace := -1
	for i := hardLimit; i > hardLimit-lookBack && i > 0; i-- {
		r := runes[i-1]
		if r == '.' || r == '!' || r == '?' || r == ';' {
			return i
		}
		if bestSpace < 0 && (unicode.IsSpace(r) || r == ',' || r == ':') {
			bestSpace = i
		}
	}
	if bestSpace > 0 {
		return bestSpace
	}
	return hardLimit
}

// normalizeWhitespace collapses runs of whitespace to single spaces while
// keeping paragraph breaks as newlines.
func normalizeWhitespace(text string) string {
	var sb strings.Builder
	lastSpace := false
	lastNewline := false

	for _, r := range text {
		if r == '\n' {
			if !lastNewline && sb.Len() > 0 {
				sb.WriteRune('\n')
			}
			lastNewline = true
			lastSpace = true
			continue
		}
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			if !lastSpace && sb.Len() > 0 {
				sb.WriteRune(' ')
			}
			lastSpace = true
			lastNewline = false
			continue
		}
		sb.WriteRune(r)
		lastSpace = false
		lastNewline = false
	}
	return strings.TrimSpace(sb.String())
}
