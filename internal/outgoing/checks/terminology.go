package checks

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/plantdex/plantdex/internal/domain/ocModel"
)

// deprecated or vendor-slang terms mapped to the forms the document
// standards require
var deprecatedTerms = map[string]string{
	"теплообменный аппарат": "теплообменник",
	"насосный агрегат":      "насос",
	"эл. двигатель":         "электродвигатель",
	"эл двигатель":          "электродвигатель",
	"техзадание":            "техническое задание",
	"техдокументация":       "техническая документация",
	"спека":                 "спецификация",
	"чертёжик":              "чертеж",
	"болванка":              "заготовка",
	"времянка":              "временная схема",
	"расходник":             "расходный материал",
	"письмецо":              "письмо",
	"датчики кип":           "средства измерений",
	"spec sheet":            "datasheet",
	"p&id drawing":          "piping and instrumentation diagram",
	"tech task":             "statement of work",
}

// TerminologyProvider flags deprecated wording against the project
// glossary. Deterministic, always available.
type TerminologyProvider struct {
	weight float64
	terms  map[string]string
}

func NewTerminologyProvider(weight float64) *TerminologyProvider {
	return &TerminologyProvider{weight: weight, terms: deprecatedTerms}
}

func (t *TerminologyProvider) Name() string { return "terminology" }

func (t *TerminologyProvider) Weight() float64 { return t.weight }

func (t *TerminologyProvider) Available() bool { return true }

func (t *TerminologyProvider) Check(_ context.Context, text string) ocModel.CheckResult {
	result := ocModel.CheckResult{Name: t.Name(), Score: 100}
	lower := strings.ToLower(text)

	// map order is random; reports must list issues in a stable order
	terms := make([]string, 0, len(t.terms))
	for term := range t.terms {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	for _, term := range terms {
		canonical := t.terms[term]
		offset := 0
		for {
			idx := strings.Index(lower[offset:], term)
			if idx < 0 {
				break
			}
			at := offset + idx
			result.ErrorsFound++
			result.Issues = append(result.Issues, ocModel.Issue{
				Check:       t.Name(),
				Fragment:    text[at : at+len(term)],
				Position:    len([]rune(text[:at])),
				Message:     fmt.Sprintf("deprecated term %q, glossary requires %q", term, canonical),
				Severity:    ocModel.SeverityWarning,
				Suggestions: []string{canonical},
			})
			offset = at + len(term)
		}
	}
	result.Score = clampScore(100 - float64(result.ErrorsFound)*10)
	return result
}
