package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"helpdesk-transfer/internal/transfer/model"
)

// Transformer применяет маппинг к строкам файла.
type Transformer struct {
	log zerolog.Logger
}

func NewTransformer(log zerolog.Logger) *Transformer {
	return &Transformer{log: log}
}

var truthyStrings = map[string]bool{"true": true, "yes": true, "ja": true, "1": true, "y": true}

// ToBool: строки сверяются со списком true/yes/ja/1/y, числа дают true, если не ноль.
func ToBool(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return truthyStrings[strings.ToLower(strings.TrimSpace(x))]
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0
	}
	return true
}

// stringify: строки и числа без изменений, остальное через fmt. nil -> ("", false).
func stringify(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case json.Number:
		return x.String(), true
	case time.Time:
		return FormatISO(x), true
	}
	return fmt.Sprint(v), true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ===== клиенты =====

// MapCustomerRow строит черновик клиента. Учитываются только колонки из маппинга.
func (t *Transformer) MapCustomerRow(row model.RawRow, mapping model.FieldMapping) model.CustomerDraft {
	var c model.CustomerDraft
	for _, src := range sortedKeys(mapping) {
		target := mapping[src]
		if target == "" {
			continue
		}
		raw, present := row[src]
		if !present {
			continue
		}

		switch target {
		case "newsletter":
			b := ToBool(raw)
			c.Newsletter = &b
		case "loyal":
			b := ToBool(raw)
			c.Loyal = &b
		case "dateOfBirth":
			if raw == nil {
				continue
			}
			if iso, ok := parseBirthDate(raw); ok {
				c.DateOfBirth = iso
			} else {
				// мягкая ошибка: оставляем как было
				c.DateOfBirth, _ = stringify(raw)
			}
		case DynamicFieldsTarget:
			if c.DynamicFields == nil {
				c.DynamicFields = map[string]any{}
			}
			mergeDynamic(c.DynamicFields, raw)
		default:
			s, ok := stringify(raw)
			if !ok {
				continue
			}
			if !setCustomerField(&c, target, s) {
				t.log.Debug().Str("target", target).Str("column", src).Msg("unknown customer field, skipped")
			}
		}
	}
	return c
}

func setCustomerField(c *model.CustomerDraft, target, v string) bool {
	switch target {
	case "firstName":
		c.FirstName = v
	case "lastName":
		c.LastName = v
	case "email":
		c.Email = v
	case "phoneNumber":
		c.PhoneNumber = v
	case "address":
		c.Address = v
	case "postalCode":
		c.PostalCode = v
	case "city":
		c.City = v
	case "country":
		c.Country = v
	case "externalId":
		c.ExternalID = v
	default:
		return false
	}
	return true
}

// parseBirthDate: общий разбор, затем DD/MM/YYYY (если первая часть > 12)
// или MM/DD/YYYY.
func parseBirthDate(raw any) (string, bool) {
	if t, ok := raw.(time.Time); ok {
		return FormatISO(t), true
	}
	s, _ := stringify(raw)
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if t, ok := parseGeneric(s); ok {
		return FormatISO(t), true
	}
	parts := reDateSplit.Split(s, -1)
	if len(parts) != 3 {
		return "", false
	}
	p1, p2, y := atoiOr(parts[0]), atoiOr(parts[1]), atoiOr(parts[2])
	day, month := p2, p1
	if p1 > 12 {
		day, month = p1, p2
	}
	if t, ok := makeDate(expandYear(y), month, day); ok {
		return FormatISO(t), true
	}
	return "", false
}

// ===== тикеты =====

var statusSynonyms = map[string]model.SystemStatus{
	"OPEN":         model.StatusOpen,
	"NEW":          model.StatusOpen,
	"NY":           model.StatusOpen,
	"ÖPPEN":        model.StatusOpen,
	"ÖPPNAD":       model.StatusOpen,
	"IN_PROGRESS":  model.StatusInProgress,
	"IN PROGRESS":  model.StatusInProgress,
	"IN-PROGRESS":  model.StatusInProgress,
	"PÅGÅENDE":     model.StatusInProgress,
	"PÅGÅR":        model.StatusInProgress,
	"UNDER ARBETE": model.StatusInProgress,
	"RESOLVED":     model.StatusResolved,
	"LÖST":         model.StatusResolved,
	"KLAR":         model.StatusResolved,
	"DONE":         model.StatusResolved,
	"CLOSED":       model.StatusClosed,
	"STÄNGD":       model.StatusClosed,
	"STÄNGT":       model.StatusClosed,
	"AVSLUTAD":     model.StatusClosed,
}

// NormalizeStatus: верхний регистр + синонимы. Незнакомое возвращается как есть.
func NormalizeStatus(v string) string {
	s := strings.ToUpper(strings.TrimSpace(v))
	if st, ok := statusSynonyms[s]; ok {
		return string(st)
	}
	return s
}

var dueDateKeyFragments = []string{"date", "datum", "due", "deadline", "förfall", "klar"}

// MapTicketRow строит черновик тикета; DynamicFields всегда не nil.
func (t *Transformer) MapTicketRow(row model.RawRow, mapping model.FieldMapping) model.TicketDraft {
	d := model.TicketDraft{DynamicFields: map[string]any{}}
	dyn := &orderedDynamic{values: d.DynamicFields}

	for _, src := range sortedKeys(mapping) {
		target := mapping[src]
		if target == "" {
			continue
		}
		raw, present := row[src]
		if !present {
			continue
		}

		if strings.HasPrefix(target, DynamicFieldPrefix) {
			dyn.set(strings.TrimPrefix(target, DynamicFieldPrefix), raw)
			continue
		}

		switch target {
		case "dueDate":
			if raw == nil {
				continue
			}
			if iso, ok := ParseDate(raw); ok {
				d.DueDate = iso
			} else {
				t.log.Debug().Interface("value", raw).Str("column", src).Msg("unparseable due date dropped")
			}
		case "status":
			if s, ok := stringify(raw); ok {
				d.Status = NormalizeStatus(s)
			}
		case "ticketTypeId":
			setTicketType(&d, raw)
		case "customerId":
			d.CustomerID = toInt64(raw)
		case DynamicFieldsTarget:
			tmp := map[string]any{}
			mergeDynamic(tmp, raw)
			for _, k := range sortedKeys(tmp) {
				dyn.set(k, tmp[k])
			}
		default:
			s, ok := stringify(raw)
			if !ok {
				continue
			}
			switch target {
			case "title":
				d.Title = s
			case "description":
				d.Description = s
			case "customerEmail":
				d.CustomerEmail = s
			case "customerExternalId":
				d.CustomerExternalID = s
			default:
				t.log.Debug().Str("target", target).Str("column", src).Msg("unknown ticket field, skipped")
			}
		}
	}

	// field_-колонки без явного маппинга подбираем сами
	for _, col := range sortedKeys(row) {
		if _, mapped := mapping[col]; mapped {
			continue
		}
		if strings.HasPrefix(strings.ToLower(col), DynamicFieldPrefix) && len(col) > len(DynamicFieldPrefix) {
			dyn.set(col[len(DynamicFieldPrefix):], row[col])
		}
	}

	if d.DueDate == "" {
		for _, k := range dyn.order {
			lk := strings.ToLower(k)
			if !containsAny(lk, dueDateKeyFragments) {
				continue
			}
			if iso, ok := ParseDate(dyn.values[k]); ok {
				d.DueDate = iso
			}
			break
		}
	}
	return d
}

func setTicketType(d *model.TicketDraft, raw any) {
	switch x := raw.(type) {
	case nil:
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return
		}
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			d.TicketTypeID = &id
			return
		}
		// по имени разрешит слой хранения
		d.TicketTypeName = s
	default:
		d.TicketTypeID = toInt64(raw)
	}
}

// toInt64: числовое приведение; nil если не число.
func toInt64(v any) *int64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int:
		f = float64(x)
	case int64:
		return &x
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return nil
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		f = n
	default:
		return nil
	}
	if f != float64(int64(f)) {
		return nil
	}
	id := int64(f)
	return &id
}

// mergeDynamic: объект сливается по ключам, JSON-строка разбирается и сливается;
// иначе сохранить под rawValue.
func mergeDynamic(dst map[string]any, raw any) {
	switch x := raw.(type) {
	case nil:
	case map[string]any:
		for k, v := range x {
			dst[k] = v
		}
	case model.RawRow:
		for k, v := range x {
			dst[k] = v
		}
	case string:
		var obj map[string]any
		if err := json.Unmarshal([]byte(x), &obj); err != nil || obj == nil {
			dst["rawValue"] = x
			return
		}
		for k, v := range obj {
			dst[k] = v
		}
	default:
		dst["rawValue"] = raw
	}
}

// orderedDynamic помнит порядок добавления ключей (нужен для поиска due date).
type orderedDynamic struct {
	values map[string]any
	order  []string
}

func (o *orderedDynamic) set(k string, v any) {
	if _, ok := o.values[k]; !ok {
		o.order = append(o.order, k)
	}
	o.values[k] = v
}

func containsAny(s string, frags []string) bool {
	for _, f := range frags {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
