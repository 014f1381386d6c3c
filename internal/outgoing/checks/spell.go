package checks

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/plantdex/plantdex/internal/domain/ocModel"
)

const (
	spellMinWordLen    = 4
	spellMaxSuggest    = 5
	spellIssueSeverity = ocModel.SeverityWarning
)

// SpellProvider flags tokens that resolve to neither vocabulary. It runs
// entirely offline and is always available.
type SpellProvider struct {
	weight float64
}

func NewSpellProvider(weight float64) *SpellProvider {
	return &SpellProvider{weight: weight}
}

func (s *SpellProvider) Name() string { return "spell" }

func (s *SpellProvider) Weight() float64 { return s.weight }

func (s *SpellProvider) Available() bool { return true }

func (s *SpellProvider) Check(_ context.Context, text string) ocModel.CheckResult {
	result := ocModel.CheckResult{Name: s.Name(), Score: 100}
	words := splitWords(text)
	if len(words) == 0 {
		return result
	}
	checked := 0
	for _, w := range words {
		if skipToken(w.text) {
			continue
		}
		checked++
		token := strings.ToLower(w.text)
		lex := lexForToken(token)
		if lex == nil || lex.contains(token) {
			continue
		}
		result.ErrorsFound++
		result.Issues = append(result.Issues, ocModel.Issue{
			Check:       s.Name(),
			Fragment:    w.text,
			Position:    w.pos,
			Message:     fmt.Sprintf("possible spelling error: %q", w.text),
			Severity:    spellIssueSeverity,
			Suggestions: lex.suggest(token, spellMaxSuggest),
		})
	}
	if checked > 0 {
		result.Score = clampScore(100 * (1 - float64(result.ErrorsFound)/float64(checked)))
	}
	return result
}

// skipToken filters out words the lexicons cannot judge: short function
// words, abbreviations, identifiers mixing scripts or digits.
func skipToken(token string) bool {
	if len([]rune(token)) < spellMinWordLen {
		return true
	}
	if isUpper(token) {
		return true
	}
	for _, r := range token {
		if unicode.IsDigit(r) {
			return true
		}
	}
	lower := strings.ToLower(token)
	return !isCyrillic(lower) && !isLatin(lower)
}

func lexForToken(token string) *lexicon {
	switch {
	case isCyrillic(token):
		return ruLexicon
	case isLatin(token):
		return enLexicon
	default:
		return nil
	}
}
