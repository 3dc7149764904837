package service

import (
	"sort"

	"helpdesk-transfer/internal/transfer/model"
)

var customerTargets = []string{
	"firstName", "lastName", "email", "phoneNumber", "address", "postalCode",
	"city", "country", "dateOfBirth", "newsletter", "loyal", "externalId",
	DynamicFieldsTarget,
}

var ticketTargets = []string{
	"title", "description", "status", "dueDate", "customerEmail", "customerId",
	"customerExternalId", "ticketTypeId", DynamicFieldsTarget,
}

// TargetFields: упорядоченный набор целевых полей для сущности.
// Для тикетов добавляется field_<имя> на каждое поле шаблона типа.
func TargetFields(kind model.EntityKind, defs []model.FieldDefinition) []string {
	switch kind {
	case model.EntityCustomers:
		return append([]string(nil), customerTargets...)
	case model.EntityTickets:
		out := make([]string, 0, len(ticketTargets)+len(defs))
		out = append(out, ticketTargets...)
		for _, d := range defs {
			if d.Name == "" {
				continue
			}
			out = append(out, DynamicFieldPrefix+d.Name)
		}
		return out
	}
	return nil
}

// BuildMapping: автосопоставление колонок с целевыми полями.
// Каждое целевое поле достаётся не более чем одной колонке: кто первый
// (в порядке sourceFields) забрал, того и поле.
func BuildMapping(sourceFields, targetFields []string, kind model.EntityKind) model.FieldMapping {
	return buildMapping(sourceFields, targetFields, nil, kind)
}

func buildMapping(sourceFields, targetFields []string, claimed map[string]bool, kind model.EntityKind) model.FieldMapping {
	rules := BoostRules(kind)
	used := make(map[string]bool, len(targetFields))
	for t := range claimed {
		used[t] = true
	}

	mapping := make(model.FieldMapping, len(sourceFields))
	for _, src := range sourceFields {
		if _, done := mapping[src]; done {
			continue
		}
		best, bestScore := "", 0.0
		for _, t := range targetFields {
			if used[t] {
				continue
			}
			if s := Score(src, t, rules); s > bestScore {
				best, bestScore = t, s
			}
		}
		if best != "" && bestScore > AutoMapThreshold {
			mapping[src] = best
			used[best] = true
		}
	}
	return mapping
}

// Remap дополняет текущий маппинг: рассматриваются только колонки без
// сопоставления и поля, которые ещё никем не заняты. Текущие записи не трогаются;
// возвращается только новая часть.
func Remap(current model.FieldMapping, sourceFields, targetFields []string, kind model.EntityKind) model.FieldMapping {
	used := current.Used()
	var unmappedSource []string
	for _, src := range sourceFields {
		if current[src] == "" {
			unmappedSource = append(unmappedSource, src)
		}
	}
	var unmappedTarget []string
	for _, t := range targetFields {
		if !used[t] {
			unmappedTarget = append(unmappedTarget, t)
		}
	}
	return buildMapping(unmappedSource, unmappedTarget, used, kind)
}

// SuggestAlternatives: до трёх лучших полей для колонки. Поля, занятые другими
// колонками, пропускаются.
func SuggestAlternatives(sourceField string, mapping model.FieldMapping, targetFields []string, kind model.EntityKind) []model.Suggestion {
	taken := make(map[string]bool, len(mapping))
	for src, t := range mapping {
		if src != sourceField && t != "" {
			taken[t] = true
		}
	}

	rules := BoostRules(kind)
	var out []model.Suggestion
	for _, t := range targetFields {
		if taken[t] {
			continue
		}
		if s := Score(sourceField, t, rules); s > SuggestionThreshold {
			out = append(out, model.Suggestion{Field: t, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}
