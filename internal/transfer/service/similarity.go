package service

import (
	"strings"

	"helpdesk-transfer/internal/transfer/model"
)

// Шкала схожести 0..1 во всём пакете.
const (
	// ExactMatchScore: нормализованные имена совпали.
	ExactMatchScore = 1.0
	// PartialMatchCeiling: потолок для «одно содержит другое».
	PartialMatchCeiling = 0.9

	// AutoMapThreshold: порог принятия кандидата при автосопоставлении.
	AutoMapThreshold = 0.7
	// SuggestionThreshold: порог попадания в список альтернатив.
	SuggestionThreshold = 0.5
	// MaxSuggestions: длина списка альтернатив.
	MaxSuggestions = 3

	// HeuristicMatchThreshold: порог упрощённого сопоставителя колонок
	// (ResolveColumn). Он строже, потому что там ещё и опечатки считаются.
	HeuristicMatchThreshold = 0.8

	DynamicBucketScore  = 0.85
	TicketFieldScore    = 0.95
	DynamicFieldsTarget = "dynamicFields"
)

// Similarity сравнивает два уже нормализованных имени.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return ExactMatchScore
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		la, lb := len([]rune(a)), len([]rune(b))
		return PartialMatchCeiling * float64(min(la, lb)) / float64(max(la, lb))
	}
	return 0
}

// BoostRule корректирует базовую оценку пары (source, target).
// source: исходное имя колонки как есть, target: целевое поле.
type BoostRule func(source, target string, base float64) float64

var dynamicBucketKeywords = []string{"custom", "anpassad", "extra", "field"}

// DynamicBucketBoost: колонки вроде "Custom 1"/"Extra" тянутся в dynamicFields.
func DynamicBucketBoost(source, target string, base float64) float64 {
	if target != DynamicFieldsTarget {
		return base
	}
	src := strings.ToLower(source)
	for _, kw := range dynamicBucketKeywords {
		if strings.Contains(src, kw) {
			return max(base, DynamicBucketScore)
		}
	}
	return base
}

// TicketFieldBoost: field_<X> выигрывает, если X встречается в имени колонки.
// X сравнивается и как есть, и после нормализации: колонка "Kommentar"
// превращается в "comment", и field_Kommentar должен её узнать.
func TicketFieldBoost(source, target string, base float64) float64 {
	if !strings.HasPrefix(target, DynamicFieldPrefix) {
		return base
	}
	name := strings.TrimPrefix(target, DynamicFieldPrefix)
	if name == "" {
		return base
	}
	src := strings.ToLower(NormalizeFieldName(source))
	for _, x := range []string{strings.ToLower(name), strings.ToLower(NormalizeFieldName(name))} {
		if x != "" && strings.Contains(src, x) {
			return max(base, TicketFieldScore)
		}
	}
	return base
}

// BoostRules: правила для сущности, в порядке применения.
func BoostRules(kind model.EntityKind) []BoostRule {
	rules := []BoostRule{DynamicBucketBoost}
	if kind == model.EntityTickets {
		rules = append(rules, TicketFieldBoost)
	}
	return rules
}

// Score: базовая оценка плюс правила усиления.
func Score(source, target string, rules []BoostRule) float64 {
	s := Similarity(NormalizeFieldName(source), NormalizeFieldName(target))
	for _, rule := range rules {
		s = rule(source, target, s)
	}
	return s
}

// ===== упрощённый сопоставитель =====

// fuzzySimilarity: нормированное расстояние Дамерау-Левенштейна в [0..1].
func fuzzySimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	d := damerauLevenshtein(a, b)
	m := max(len([]rune(a)), len([]rune(b)))
	return 1 - float64(d)/float64(m)
}

// ResolveColumn ищет среди заголовков колонку, похожую на один из псевдонимов.
// Псевдонимы можно передавать и через "|" ("Kundnummer|Externt ID").
// Учитывает опечатки; возвращает "" если ничего не прошло порог.
func ResolveColumn(headers []string, aliases ...string) string {
	var want []string
	for _, a := range aliases {
		for _, alt := range strings.Split(a, "|") {
			if n := NormalizeFieldName(alt); n != "" {
				want = append(want, n)
			}
		}
	}
	if len(want) == 0 {
		return ""
	}

	// точное совпадение после нормализации: сразу
	for _, h := range headers {
		nh := NormalizeFieldName(h)
		for _, w := range want {
			if nh == w {
				return h
			}
		}
	}

	best, bestScore := "", 0.0
	for _, h := range headers {
		nh := NormalizeFieldName(h)
		for _, w := range want {
			s := max(Similarity(nh, w), fuzzySimilarity(strings.ToLower(nh), strings.ToLower(w)))
			if s > bestScore {
				best, bestScore = h, s
			}
		}
	}
	if bestScore > HeuristicMatchThreshold {
		return best
	}
	return ""
}
