package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISOLayout: каноническое представление даты (аналог toISOString).
const ISOLayout = "2006-01-02T15:04:05.000Z"

// Общий разбор даты-времени: ISO, RFC1123, англ. названия месяцев, US M/D/Y.
// Стратегия (a): идёт первой, поэтому "03/04/2025" читается как 4 марта.
var genericLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/1/2",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	time.RFC1123,
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 MST",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"Mon Jan 2 2006",
}

var (
	reYMD       = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	reDotDMY    = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
	reSlashDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	reISOZulu   = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2})(?::(\d{2})(?:\.(\d{1,9}))?)?Z$`)
	reSwedish   = regexp.MustCompile(`^(\d{1,2})\.?\s+([a-zåäö]+)\.?,?\s+(\d{4})$`)
	reDateSplit = regexp.MustCompile(`[/\-.]`)
)

// Шведские месяцы, полные и трёхбуквенные.
var swedishMonths = map[string]time.Month{
	"januari": time.January, "jan": time.January,
	"februari": time.February, "feb": time.February,
	"mars": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"maj": time.May,
	"juni": time.June, "jun": time.June,
	"juli": time.July, "jul": time.July,
	"augusti": time.August, "aug": time.August,
	"september": time.September, "sep": time.September,
	"oktober": time.October, "okt": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// ParseDate приводит значение к ISO-строке. Пустое/нераспознанное -> ("", false).
// Никогда не паникует: плохая дата означает «нет даты», а не ошибку строки.
func ParseDate(v any) (string, bool) {
	t, ok := ParseDateValue(v)
	if !ok {
		return "", false
	}
	return FormatISO(t), true
}

func FormatISO(t time.Time) string { return t.UTC().Format(ISOLayout) }

// ParseDateValue: то же, что ParseDate, но возвращает time.Time (UTC).
func ParseDateValue(v any) (time.Time, bool) {
	var s string
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return x.UTC(), true
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return x.UTC(), true
	case string:
		s = x
	default:
		s = fmt.Sprint(x)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, strategy := range dateStrategies {
		if t, ok := strategy(s); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// порядок важен
var dateStrategies = []func(string) (time.Time, bool){
	parseGeneric,
	func(s string) (time.Time, bool) { return matchYMD(reYMD, s, 1, 2, 3) },
	func(s string) (time.Time, bool) { return matchYMD(reDotDMY, s, 3, 2, 1) },
	func(s string) (time.Time, bool) { return matchYMD(reSlashDate, s, 3, 2, 1) }, // D/M/YYYY
	func(s string) (time.Time, bool) { return matchYMD(reSlashDate, s, 3, 1, 2) }, // M/D/YYYY
	parseISOZulu,
	parseSwedish,
	parseSplitHeuristic,
}

func parseGeneric(s string) (time.Time, bool) {
	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// matchYMD: yi/mi/di это номера групп регулярки для года, месяца и дня.
func matchYMD(re *regexp.Regexp, s string, yi, mi, di int) (time.Time, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	return makeDate(atoiOr(m[yi]), atoiOr(m[mi]), atoiOr(m[di]))
}

func parseISOZulu(s string) (time.Time, bool) {
	m := reISOZulu.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	d, ok := makeDate(atoiOr(m[1]), atoiOr(m[2]), atoiOr(m[3]))
	if !ok {
		return time.Time{}, false
	}
	hh, mm, ss := atoiOr(m[4]), atoiOr(m[5]), atoiOr(m[6])
	if hh > 23 || mm > 59 || ss > 59 {
		return time.Time{}, false
	}
	nsec := 0
	if frac := m[7]; frac != "" {
		nsec = atoiOr((frac + "000000000")[:9])
	}
	return d.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute +
		time.Duration(ss)*time.Second + time.Duration(nsec)), true
}

func parseSwedish(s string) (time.Time, bool) {
	m := reSwedish.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return time.Time{}, false
	}
	month, ok := swedishMonths[m[2]]
	if !ok {
		return time.Time{}, false
	}
	return makeDate(atoiOr(m[3]), int(month), atoiOr(m[1]))
}

// Последний шанс: три части через / - .
// part1 > 31 -> Y-M-D, part1 > 12 -> D-M-Y, иначе M-D-Y.
func parseSplitHeuristic(s string) (time.Time, bool) {
	parts := reDateSplit.Split(s, -1)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	n := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, false
		}
		n[i] = v
	}
	switch {
	case n[0] > 31:
		return makeDate(n[0], n[1], n[2])
	case n[0] > 12:
		return makeDate(expandYear(n[2]), n[1], n[0])
	default:
		return makeDate(expandYear(n[2]), n[0], n[1])
	}
}

// двузначный год: <30 -> 20xx, иначе 19xx
func expandYear(y int) int {
	if y >= 100 {
		return y
	}
	if y < 30 {
		return 2000 + y
	}
	return 1900 + y
}

// makeDate отвергает «переполненные» даты вроде 31.02.
func makeDate(y, m, d int) (time.Time, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func atoiOr(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
