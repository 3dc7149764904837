package service

import "strings"

// ErrorCategory: группа ошибки для отображения в сводке.
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryDatabase   ErrorCategory = "database"
	CategoryMapping    ErrorCategory = "mapping"
	CategoryDuplicate  ErrorCategory = "duplicate"
	CategoryMissing    ErrorCategory = "missing"
	CategoryOther      ErrorCategory = "other"
)

// порядок проверки важен: "finns redan" раньше "saknas" и т.д.
var categoryKeywords = []struct {
	cat      ErrorCategory
	keywords []string
}{
	{CategoryDuplicate, []string{"finns redan", "dublett", "duplicate", "already exists", "unique"}},
	{CategoryDatabase, []string{"databas", "database", "sql", "constraint", "connection", "batch"}},
	{CategoryMapping, []string{"mappning", "mappa", "mapping", "mapped"}},
	{CategoryValidation, []string{"ogiltig", "invalid", "valider", "obligatorisk", "required"}},
	{CategoryMissing, []string{"saknas", "hittades inte", "ingen", "missing", "not found"}},
}

// CategorizeError раскладывает сообщение по группам: только для UI.
func CategorizeError(msg string) ErrorCategory {
	m := strings.ToLower(msg)
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(m, kw) {
				return c.cat
			}
		}
	}
	return CategoryOther
}

// GroupErrors группирует сообщения, сохраняя порядок внутри группы.
func GroupErrors(errs []string) map[ErrorCategory][]string {
	out := make(map[ErrorCategory][]string)
	for _, e := range errs {
		c := CategorizeError(e)
		out[c] = append(out[c], e)
	}
	return out
}
