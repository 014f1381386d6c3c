package checks

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Base-form vocabularies for the spell check. These are stems more than
// dictionary forms: inflected tokens are reduced by suffix stripping
// before lookup, so "документами" resolves through the stem "документ".
var ruWords = []string{
	// general
	"этот", "это", "эта", "тот", "весь", "все", "наш", "ваш", "свой", "который",
	"быть", "есть", "нет", "как", "так", "при", "для", "или", "если", "чтобы",
	"также", "более", "менее", "очень", "может", "должен", "необходимо",
	"содержит", "содержание", "является", "являются", "имеет", "имеются",
	"данный", "данные", "настоящий", "следующий", "указанный", "приведенный",
	"соответствие", "соответствии", "согласно", "основание", "основании",
	"результат", "порядок", "случай", "условие", "вопрос", "решение",
	"просим", "прошу", "направляем", "сообщаем", "уведомляем", "представляем",
	"уважаемый", "благодарим", "приложение", "копия", "подпись", "дата",
	// documents and engineering
	"документ", "документация", "письмо", "отчет", "протокол", "акт",
	"договор", "контракт", "спецификация", "регламент", "инструкция",
	"чертеж", "схема", "проект", "проектный", "рабочий", "техническ",
	"задание", "требование", "изменение", "ревизия", "версия", "лист",
	"раздел", "пункт", "таблица", "рисунок", "примечание", "ссылка",
	"объект", "установка", "оборудование", "насос", "компрессор",
	"теплообменник", "резервуар", "емкость", "колонна", "печь", "котел",
	"арматура", "клапан", "задвижка", "фланец", "трубопровод", "труба",
	"линия", "контур", "система", "блок", "узел", "агрегат", "привод",
	"двигатель", "электрическ", "механическ", "автоматизация", "контроль",
	"измерение", "датчик", "прибор", "параметр", "расход", "давление",
	"температура", "мощность", "напор", "производительность", "нагрузка",
	"диаметр", "толщина", "длина", "ширина", "высота", "масса", "вес",
	"материал", "сталь", "сплав", "бетон", "изоляция", "покрытие", "сварка",
	"монтаж", "демонтаж", "испытание", "проверка", "контрольный", "пуск",
	"наладка", "эксплуатация", "ремонт", "обслуживание", "безопасность",
	"охрана", "защита", "авария", "аварийный", "отказ", "дефект", "ошибка",
	"несоответствие", "отклонение", "допуск", "норма", "стандарт", "гост",
	"снип", "правило", "методика", "расчет", "анализ", "оценка", "экспертиза",
	"заказчик", "подрядчик", "поставщик", "изготовитель", "производитель",
	"срок", "график", "этап", "стадия", "строительство", "реконструкция",
	"процесс", "технология", "сырье", "продукт", "смесь", "раствор",
	"жидкость", "газ", "пар", "вода", "воздух", "среда", "поток",
	"аммиак", "азот", "кислород", "водород", "метан", "нефть", "топливо",
	"центробежный", "поршневой", "винтовой", "осевой", "вертикальный",
	"горизонтальный", "основной", "резервный", "входной", "выходной",
}

var enWords = []string{
	"the", "this", "that", "with", "from", "for", "and", "are", "was", "were",
	"have", "has", "been", "will", "shall", "must", "should", "may", "can",
	"not", "all", "any", "each", "per", "between", "within",
	"document", "report", "letter", "specification", "drawing", "datasheet",
	"revision", "project", "design", "detail", "engineering", "procurement",
	"construction", "vendor", "supplier", "contractor", "client", "scope",
	"requirement", "standard", "code", "section", "appendix", "attachment",
	"equipment", "pump", "compressor", "exchanger", "vessel", "tank",
	"column", "heater", "boiler", "valve", "pipe", "piping", "line",
	"system", "unit", "package", "skid", "motor", "drive", "instrument",
	"control", "measurement", "sensor", "parameter", "flow", "pressure",
	"temperature", "power", "head", "capacity", "duty", "load", "rating",
	"diameter", "thickness", "length", "width", "height", "weight",
	"material", "steel", "alloy", "concrete", "insulation", "coating",
	"welding", "installation", "erection", "testing", "inspection",
	"commissioning", "operation", "maintenance", "repair", "safety",
	"hazard", "failure", "defect", "deviation", "tolerance", "schedule",
	"review", "approval", "comment", "issue", "status", "date", "number",
	"process", "technology", "feed", "product", "mixture", "solution",
	"liquid", "vapor", "water", "air", "stream", "service", "centrifugal",
	"reciprocating", "axial", "vertical", "horizontal", "spare", "inlet",
	"outlet", "please", "regards", "confirm", "provide", "submit", "attached",
}

// ruSuffixes are tried longest first when reducing a token to its stem.
// Related endings of one paradigm must reduce a form family to the same
// stem, so the "-ование"/"-ание"/"-ение" groups are listed in full.
var ruSuffixes = []string{
	"ованием", "ованиях", "ованиям",
	"ования", "ований", "ованию", "ование", "ениями",
	"ениях", "ением", "ениям", "анием", "аниях", "аниям",
	"ение", "ения", "ению", "ений", "ание", "ания", "анию", "аний", "ании", "иями",
	"ами", "ями", "ого", "его", "ому", "ему", "ыми", "ими", "иях",
	"ая", "яя", "ое", "ее", "ые", "ие", "ой", "ей", "ом", "ем",
	"ов", "ев", "ах", "ях", "ам", "ям", "ую", "юю", "ый", "ий",
	"ия", "ии", "ию",
	"а", "я", "ы", "и", "е", "у", "ю", "о", "ь",
}

var enSuffixes = []string{"ings", "ing", "ions", "ion", "ies", "es", "ed", "ly", "s"}

type lexicon struct {
	words    map[string]struct{}
	stems    map[string]struct{}
	list     []string
	suffixes []string
}

func newLexicon(entries, suffixes []string) *lexicon {
	lex := &lexicon{
		words:    make(map[string]struct{}, len(entries)),
		stems:    make(map[string]struct{}, len(entries)),
		list:     entries,
		suffixes: suffixes,
	}
	for _, w := range entries {
		lex.words[w] = struct{}{}
		lex.stems[stemOnce(w, suffixes)] = struct{}{}
	}
	return lex
}

// stemOnce strips the longest matching inflection suffix. Vocabulary and
// tokens are reduced the same way, so an ending can only attach to a stem;
// a stray vowel glued onto a full word form does not resolve.
func stemOnce(token string, suffixes []string) string {
	for _, suffix := range suffixes {
		if strings.HasSuffix(token, suffix) {
			stem := strings.TrimSuffix(token, suffix)
			if len([]rune(stem)) >= 3 {
				return stem
			}
		}
	}
	return token
}

func (lex *lexicon) contains(token string) bool {
	if _, ok := lex.words[token]; ok {
		return true
	}
	_, ok := lex.stems[stemOnce(token, lex.suffixes)]
	return ok
}

// suggest returns up to max vocabulary entries within levenshtein distance
// two of the token, closest first.
func (lex *lexicon) suggest(token string, max int) []string {
	type candidate struct {
		word string
		dist int
	}
	var close []candidate
	for _, entry := range lex.list {
		d := levenshtein.ComputeDistance(token, entry)
		if d <= 2 {
			close = append(close, candidate{word: entry, dist: d})
		}
	}
	var out []string
	for d := 1; d <= 2 && len(out) < max; d++ {
		for _, c := range close {
			if c.dist == d && len(out) < max {
				out = append(out, c.word)
			}
		}
	}
	return out
}

var (
	ruLexicon = newLexicon(ruWords, ruSuffixes)
	enLexicon = newLexicon(enWords, enSuffixes)
)
