package service

import (
	"fmt"

	"helpdesk-transfer/internal/transfer/model"
	"helpdesk-transfer/internal/utils"
)

// CoerceDynamicFields приводит значения к типам полей шаблона.
// Поля без определения остаются как есть. Возвращает новую карту, дату
// из первого DUE_DATE-поля (если есть) и список проблем.
func CoerceDynamicFields(values map[string]any, defs []model.FieldDefinition) (map[string]any, string, []string) {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}

	var (
		dueDate  string
		problems []string
	)
	for _, def := range defs {
		raw, present := out[def.Name]
		if !present || isBlank(raw) {
			if def.IsRequired {
				problems = append(problems, fmt.Sprintf("obligatoriskt fält %q saknas", def.Name))
			}
			continue
		}

		switch def.FieldType {
		case model.FieldNumber:
			n, ok := toFloat(raw)
			if !ok {
				problems = append(problems, fmt.Sprintf("fältet %q: ogiltigt nummer %v", def.Name, raw))
				delete(out, def.Name)
				continue
			}
			out[def.Name] = n
		case model.FieldDate, model.FieldDueDate:
			iso, ok := ParseDate(raw)
			if !ok {
				problems = append(problems, fmt.Sprintf("fältet %q: ogiltigt datum %v", def.Name, raw))
				delete(out, def.Name)
				continue
			}
			out[def.Name] = iso
			if def.FieldType == model.FieldDueDate && dueDate == "" {
				dueDate = iso
			}
		case model.FieldCheckbox:
			out[def.Name] = ToBool(raw)
		default:
			s, _ := stringify(raw)
			out[def.Name] = s
		}
	}
	return out, dueDate, problems
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case bool:
		return 0, false
	}
	s, _ := stringify(v)
	return utils.ParseDecimal(s)
}
