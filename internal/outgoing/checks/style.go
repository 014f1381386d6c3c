package checks

import (
	"context"
	"fmt"
	"strings"

	"github.com/plantdex/plantdex/internal/domain/ocModel"
)

const styleTargetSentenceLen = 25

// informal words that have no place in outgoing correspondence
var informalWords = map[string]string{
	"короче":    "informal filler",
	"типа":      "informal filler",
	"кстати":    "conversational aside",
	"ладно":     "conversational",
	"ок":        "use a full word",
	"окей":      "use a full word",
	"щас":       "colloquial contraction",
	"чё":        "colloquial",
	"ваще":      "colloquial",
	"норм":      "colloquial abbreviation",
	"спс":       "colloquial abbreviation",
	"плз":       "colloquial abbreviation",
	"пока":      "informal closing",
	"привет":    "informal greeting",
	"здорово":   "informal greeting",
	"ребята":    "informal address",
	"гляньте":   "colloquial verb",
	"накосячил": "colloquial verb",
	"фигня":     "colloquial",
	"kinda":     "informal filler",
	"gonna":     "colloquial contraction",
	"wanna":     "colloquial contraction",
	"btw":       "colloquial abbreviation",
	"asap":      "spell the request out",
	"ok":        "use a full word",
	"okay":      "use a full word",
	"hey":       "informal greeting",
	"guys":      "informal address",
	"stuff":     "vague informal noun",
	"crap":      "colloquial",
}

// first-person singular forms; business letters from an organization speak
// in the first person plural
var firstPersonWords = map[string]struct{}{
	"я": {}, "мне": {}, "меня": {}, "мной": {}, "мой": {}, "моя": {}, "мои": {},
}

// StyleProvider scores formality and readability with deterministic
// heuristics, no model calls.
type StyleProvider struct {
	weight float64
}

func NewStyleProvider(weight float64) *StyleProvider {
	return &StyleProvider{weight: weight}
}

func (s *StyleProvider) Name() string { return "style" }

func (s *StyleProvider) Weight() float64 { return s.weight }

func (s *StyleProvider) Available() bool { return true }

func (s *StyleProvider) Check(_ context.Context, text string) ocModel.CheckResult {
	result := ocModel.CheckResult{Name: s.Name(), Score: 100}
	words := splitWords(text)
	if len(words) == 0 {
		return result
	}

	readability := s.readability(text, len(words), &result)
	formality := s.formality(words, &result)
	tone := s.tone(text, words, &result)

	result.Score = clampScore((readability + formality + tone) / 3)
	return result
}

// readability penalizes run-on sentences past the target average length.
func (s *StyleProvider) readability(text string, wordCount int, result *ocModel.CheckResult) float64 {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return 100
	}
	avg := float64(wordCount) / float64(len(sentences))
	if avg <= styleTargetSentenceLen {
		return 100
	}
	excess := avg - styleTargetSentenceLen
	result.ErrorsFound++
	result.Issues = append(result.Issues, ocModel.Issue{
		Check:    s.Name(),
		Fragment: truncateFragment(sentences[0]),
		Message:  fmt.Sprintf("average sentence length %.0f words, aim for %d or fewer", avg, styleTargetSentenceLen),
		Severity: ocModel.SeverityInfo,
	})
	return clampScore(100 - excess*4)
}

func (s *StyleProvider) formality(words []word, result *ocModel.CheckResult) float64 {
	score := 100.0
	for _, w := range words {
		lower := strings.ToLower(w.text)
		if note, ok := informalWords[lower]; ok {
			score -= 15
			result.ErrorsFound++
			result.Issues = append(result.Issues, ocModel.Issue{
				Check:    s.Name(),
				Fragment: w.text,
				Position: w.pos,
				Message:  fmt.Sprintf("informal wording %q: %s", w.text, note),
				Severity: ocModel.SeverityWarning,
			})
			continue
		}
		if _, ok := firstPersonWords[lower]; ok {
			score -= 5
			result.ErrorsFound++
			result.Issues = append(result.Issues, ocModel.Issue{
				Check:    s.Name(),
				Fragment: w.text,
				Position: w.pos,
				Message:  "prefer first person plural in official correspondence",
				Severity: ocModel.SeverityInfo,
			})
		}
	}
	return clampScore(score)
}

func (s *StyleProvider) tone(text string, words []word, result *ocModel.CheckResult) float64 {
	score := 100.0
	if n := strings.Count(text, "!"); n > 0 {
		score -= float64(n) * 10
		result.ErrorsFound++
		result.Issues = append(result.Issues, ocModel.Issue{
			Check:    s.Name(),
			Message:  fmt.Sprintf("%d exclamation mark(s), neutral tone expected", n),
			Severity: ocModel.SeverityInfo,
		})
	}
	for _, marker := range []string{"??", "!!", "..."} {
		if strings.Contains(text, marker) {
			score -= 10
			result.ErrorsFound++
			result.Issues = append(result.Issues, ocModel.Issue{
				Check:    s.Name(),
				Fragment: marker,
				Message:  "repeated punctuation reads as emotional",
				Severity: ocModel.SeverityInfo,
			})
		}
	}
	caps := 0
	for _, w := range words {
		if len([]rune(w.text)) >= 4 && isUpper(w.text) {
			caps++
		}
	}
	// a few all-caps tokens are tags and equipment codes, many is shouting
	if caps > 3 {
		score -= float64(caps-3) * 5
		result.ErrorsFound++
		result.Issues = append(result.Issues, ocModel.Issue{
			Check:    s.Name(),
			Message:  fmt.Sprintf("%d all-caps words, avoid shouting", caps),
			Severity: ocModel.SeverityInfo,
		})
	}
	return clampScore(score)
}

func truncateFragment(s string) string {
	runes := []rune(s)
	if len(runes) <= 80 {
		return s
	}
	return string(runes[:80]) + "…"
}
