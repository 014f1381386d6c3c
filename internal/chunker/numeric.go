package chunker

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/plantdex/plantdex/internal/domain/docModel"
)

// disciplineVocab enumerates the numeric keys each discipline may carry.
// The chunker is the sole writer of payload numerics; keys outside the
// vocabulary are dropped here, never at query time.
var disciplineVocab = map[docModel.Discipline]map[string]bool{
	docModel.DiscProcess: {
		"flow_rate": true, "head": true, "power": true, "duty": true,
		"area": true, "pressure": true, "temperature": true,
	},
	docModel.DiscPiping: {
		"diameter": true, "pressure": true, "length": true, "wall_thickness": true,
	},
	docModel.DiscCivil: {
		"length": true, "area": true, "volume": true, "load": true,
	},
	docModel.DiscElectrical: {
		"power": true, "voltage": true, "current": true, "frequency": true,
	},
	docModel.DiscInstrumentation: {
		"range_min": true, "range_max": true, "accuracy": true,
		"pressure": true, "temperature": true,
	},
	docModel.DiscHVAC: {
		"flow_rate": true, "power": true, "temperature": true, "pressure": true,
	},
	docModel.DiscProcurement: {
		"quantity": true, "unit_price": true, "weight": true,
	},
}

// unitPattern binds a unit-aware regexp to the numeric key it produces.
// Patterns are tried in order; longer unit spellings go first so "м³/ч"
// never decays into a bare "м" match.
type unitPattern struct {
	re  *regexp.Regexp
	key string
	// contextKey overrides key when the chunk mentions one of the
	// context words (lower-cased substring match).
	contextWords []string
	contextKey   string
}

var number = `(\d+(?:[.,]\d+)?)`

var unitPatterns = []unitPattern{
	{re: regexp.MustCompile(number + `\s*(?:м³/ч|м3/ч|m3/h|m³/h)`), key: "flow_rate"},
	{re: regexp.MustCompile(number + `\s*(?:м²|м2|m2|m²)`), key: "area"},
	{re: regexp.MustCompile(number + `\s*(?:кВт|kW|квт)`), key: "power",
		contextWords: []string{"теплообменник", "exchanger", "тепловая нагрузка", "duty"}, contextKey: "duty"},
	{re: regexp.MustCompile(number + `\s*(?:МПа|MPa|бар|bar)`), key: "pressure"},
	{re: regexp.MustCompile(number + `\s*(?:°C|°С|гр\.?С)`), key: "temperature"},
	// \b is ASCII-only in RE2, so Cyrillic units end on an explicit
	// delimiter class instead of a word boundary.
	{re: regexp.MustCompile(number + `\s*(?:мм|mm)(?:[\s.,;:)]|$)`), key: "diameter"},
	{re: regexp.MustCompile(`DN\s*` + number), key: "diameter"},
	{re: regexp.MustCompile(number + `\s*(?:кг|kg)(?:[\s.,;:)]|$)`), key: "weight"},
	{re: regexp.MustCompile(number + `\s*(?:В|V)(?:[\s.,;:)]|$)`), key: "voltage"},
	{re: regexp.MustCompile(number + `\s*(?:А|A)(?:[\s.,;:)]|$)`), key: "current"},
	{re: regexp.MustCompile(number + `\s*(?:м|m)(?:[\s.,;:)]|$)`), key: "length",
		contextWords: []string{"насос", "pump", "напор", "head"}, contextKey: "head"},
}

// tableHeaderKeys maps normalized column headers (Russian and English) to
// vocabulary keys for table-row extraction.
var tableHeaderKeys = map[string]string{
	"расход": "flow_rate", "flow": "flow_rate", "flow_rate": "flow_rate",
	"напор": "head", "head": "head",
	"мощность": "power", "power": "power",
	"нагрузка": "duty", "duty": "duty",
	"площадь": "area", "area": "area",
	"давление": "pressure", "pressure": "pressure",
	"температура": "temperature", "temperature": "temperature",
	"диаметр": "diameter", "diameter": "diameter", "dn": "diameter",
	"напряжение": "voltage", "voltage": "voltage",
	"ток": "current", "current": "current",
	"количество": "quantity", "quantity": "quantity", "qty": "quantity",
	"масса": "weight", "вес": "weight", "weight": "weight",
	"длина": "length", "length": "length",
}

// extractNumericFromText runs the unit-aware patterns over free text and
// keeps only keys the discipline's vocabulary allows. First match per key
// wins; a document stating two flow rates is describing two machines and
// belongs in two chunks anyway.
func extractNumericFromText(text string, discipline docModel.Discipline) map[string]float64 {
	vocab := disciplineVocab[discipline]
	if vocab == nil {
		return nil
	}
	lower := strings.ToLower(text)
	consumed := text

	numeric := map[string]float64{}
	for _, p := range unitPatterns {
		m := p.re.FindStringSubmatchIndex(consumed)
		if m == nil {
			continue
		}
		value, err := parseDecimal(consumed[m[2]:m[3]])
		if err != nil {
			continue
		}
		key := p.key
		if p.contextKey != "" && containsAny(lower, p.contextWords) {
			key = p.contextKey
		}
		if !vocab[key] {
			continue
		}
		if _, seen := numeric[key]; !seen {
			numeric[key] = value
		}
		// Blank out the match so a later, looser pattern cannot re-read
		// the same number under a different unit.
		consumed = consumed[:m[0]] + strings.Repeat(" ", m[1]-m[0]) + consumed[m[1]:]
	}
	if len(numeric) == 0 {
		return nil
	}
	return numeric
}

// extractNumericFromRow lifts values out of table cells whose headers match
// the vocabulary.
func extractNumericFromRow(rowData map[string]string, discipline docModel.Discipline) map[string]float64 {
	vocab := disciplineVocab[discipline]
	if vocab == nil {
		return nil
	}

	numeric := map[string]float64{}
	for header, cell := range rowData {
		key, known := tableHeaderKeys[normalizeHeader(header)]
		if !known || !vocab[key] {
			continue
		}
		if value, err := parseDecimal(firstNumber(cell)); err == nil {
			numeric[key] = value
		}
	}
	if len(numeric) == 0 {
		return nil
	}
	return numeric
}

var leadingNumber = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

func firstNumber(cell string) string {
	return leadingNumber.FindString(cell)
}

func parseDecimal(raw string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
}

func normalizeHeader(header string) string {
	header = strings.ToLower(strings.TrimSpace(header))
	// strip a unit suffix like "расход, м³/ч"
	if i := strings.IndexAny(header, ",("); i > 0 {
		header = strings.TrimSpace(header[:i])
	}
	return header
}

func containsAny(haystack string, words []string) bool {
	for _, w := range words {
		if strings.Contains(haystack, w) {
			return true
		}
	}
	return false
}
