package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"helpdesk-transfer/internal/transfer/model"
)

// ErrInvalidImport: структурная ошибка, импорт не начинался.
var ErrInvalidImport = errors.New("invalid import")

// Псевдонимы колонок с внешним номером клиента.
var externalCustomerAliases = []string{
	"Kundnummer|Kundnr|Kund-ID|Customer number|Customer ID external|External ID|Externt ID|Extern referens",
}

// Importer связывает проверку, преобразование и пачечную запись.
type Importer struct {
	Transformer *Transformer
	BatchSize   int
	Progress    ProgressFunc
	Log         zerolog.Logger
}

func NewImporter(log zerolog.Logger, batchSize int) *Importer {
	return &Importer{
		Transformer: NewTransformer(log),
		BatchSize:   batchSize,
		Log:         log,
	}
}

// ImportCustomers. При структурной ошибке возвращает ErrInvalidImport и итог,
// где все строки считаются неуспешными.
func (im *Importer) ImportCustomers(ctx context.Context, rows []model.RawRow, mapping model.FieldMapping, persist PersistFunc[model.CustomerDraft]) (model.ImportResult, error) {
	if v := Validate(rows, mapping, model.EntityCustomers); !v.Valid {
		return rejected(len(rows), v.Message), fmt.Errorf("%w: %s", ErrInvalidImport, v.Message)
	}

	results := TransformRows(rows, func(n int, row model.RawRow) (model.CustomerDraft, *model.RowError) {
		c := im.Transformer.MapCustomerRow(row, mapping)
		c.RowNumber = n
		return c, nil
	})
	return run(ctx, im, results, persist), nil
}

// ImportTickets. Строки без ссылки на клиента пропускаются до записи.
func (im *Importer) ImportTickets(ctx context.Context, headers []string, rows []model.RawRow, mapping model.FieldMapping, persist PersistFunc[model.TicketDraft]) (model.ImportResult, error) {
	if v := Validate(rows, mapping, model.EntityTickets); !v.Valid {
		return rejected(len(rows), v.Message), fmt.Errorf("%w: %s", ErrInvalidImport, v.Message)
	}

	// внешний номер клиента можно найти и без явного маппинга
	extCol := ""
	if _, mapped := mapping.SourceFor("customerExternalId"); !mapped {
		var free []string
		for _, h := range headers {
			if mapping[h] == "" {
				free = append(free, h)
			}
		}
		extCol = ResolveColumn(free, externalCustomerAliases...)
	}

	results := TransformRows(rows, func(n int, row model.RawRow) (model.TicketDraft, *model.RowError) {
		d := im.Transformer.MapTicketRow(row, mapping)
		d.RowNumber = n
		if !d.HasCustomerReference() && extCol != "" {
			if s, ok := stringify(row[extCol]); ok && !isBlank(s) {
				d.CustomerExternalID = s
			}
		}
		if !d.HasCustomerReference() {
			return d, &model.RowError{RowNumber: n, Message: "Ingen kund angiven (customerId, customerEmail eller kundnummer saknas)"}
		}
		return d, nil
	})
	return run(ctx, im, results, persist), nil
}

func run[T any](ctx context.Context, im *Importer, results []model.RowResult[T], persist PersistFunc[T]) model.ImportResult {
	ok := make([]T, 0, len(results))
	var rowErrs []string
	for _, r := range results {
		if r.OK() {
			ok = append(ok, r.Value)
			continue
		}
		rowErrs = append(rowErrs, r.Err.Error())
	}

	p := Pipeline[T]{BatchSize: im.BatchSize, Persist: persist, Progress: im.Progress, Log: im.Log}
	res := p.Run(ctx, ok)
	res.Total += len(rowErrs)
	res.Failed += len(rowErrs)
	res.Errors = append(rowErrs, res.Errors...)
	if res.Errors == nil {
		res.Errors = []string{}
	}
	im.Log.Info().Int("total", res.Total).Int("success", res.Success).Int("failed", res.Failed).Msg("import finished")
	return res
}

// TransformRows вызывает fn для каждой строки (номер с 1). Паника внутри fn
// превращается в ошибку этой строки и не роняет импорт.
func TransformRows[T any](rows []model.RawRow, fn func(n int, row model.RawRow) (T, *model.RowError)) []model.RowResult[T] {
	out := make([]model.RowResult[T], len(rows))
	for i, row := range rows {
		out[i] = transformOne(i+1, row, fn)
	}
	return out
}

func transformOne[T any](n int, row model.RawRow, fn func(int, model.RawRow) (T, *model.RowError)) (res model.RowResult[T]) {
	defer func() {
		if rec := recover(); rec != nil {
			res = model.RowResult[T]{Err: &model.RowError{RowNumber: n, Message: fmt.Sprint(rec)}}
		}
	}()
	v, err := fn(n, row)
	return model.RowResult[T]{Value: v, Err: err}
}

func rejected(n int, msg string) model.ImportResult {
	return model.ImportResult{Total: n, Failed: n, Errors: []string{msg}}
}
