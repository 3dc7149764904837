package utils

import (
	"regexp"
	"strconv"
	"strings"
)

var rxDecimal = regexp.MustCompile(`^[-+]?(\d+(\.\d*)?|\.\d+)$`)

// валютные обозначения, которые допускаются до или после числа
var currencyMarks = []string{"sek", "eur", "usd", "kr", ":-", "€", "$"}

// ParseDecimal парсит "1 234,50", "12,5 kr", "2 345,6" (NBSP/NNBSP) и т.п.
// Запятая считается десятичным разделителем; если есть и точка, и запятая,
// разделителем считается последний из них. Любые буквы, кроме валюты,
// делают значение нечисловым: "v2" и "12abc34" не числа.
func ParseDecimal(s string) (float64, bool) {
	repl := strings.NewReplacer("\u00A0", "", "\u202F", "", " ", "", "\t", "")
	s = strings.ToLower(repl.Replace(strings.TrimSpace(s)))
	for _, c := range currencyMarks {
		if t, ok := strings.CutSuffix(s, c); ok {
			s = t
			break
		}
		if t, ok := strings.CutPrefix(s, c); ok {
			s = t
			break
		}
	}
	if s == "" {
		return 0, false
	}

	lastDot, lastComma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		// 1.234,50
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0 && lastDot >= 0:
		// 1,234.50
		s = strings.ReplaceAll(s, ",", "")
	default:
		s = strings.ReplaceAll(s, ",", ".")
	}

	if !rxDecimal.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}
