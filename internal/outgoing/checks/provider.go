package checks

import (
	"context"
	"strings"
	"unicode"

	"github.com/plantdex/plantdex/internal/domain/ocModel"
)

// Provider is one check strategy. The orchestrator runs every configured
// provider in parallel, skipping the unavailable ones; a provider must
// never panic on arbitrary text.
type Provider interface {
	Name() string
	Weight() float64
	Available() bool
	Check(ctx context.Context, text string) ocModel.CheckResult
}

// words splits text into lowercase letter runs, keeping offsets for issue
// positions.
type word struct {
	text string
	pos  int
}

func splitWords(text string) []word {
	var out []word
	runes := []rune(text)
	start := -1
	for i, r := range runes {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, word{text: string(runes[start:i]), pos: start})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, word{text: string(runes[start:]), pos: start})
	}
	return out
}

func isCyrillic(s string) bool {
	for _, r := range s {
		if !unicode.In(r, unicode.Cyrillic) {
			return false
		}
	}
	return s != ""
}

func isLatin(s string) bool {
	for _, r := range s {
		if !unicode.In(r, unicode.Latin) {
			return false
		}
	}
	return s != ""
}

func isUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// splitSentences is a rough splitter on terminal punctuation; good enough
// for length statistics.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(b.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
