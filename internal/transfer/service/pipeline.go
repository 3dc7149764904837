package service

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"helpdesk-transfer/internal/transfer/model"
)

// DefaultBatchSize: размер пачки по умолчанию.
const DefaultBatchSize = 10

// PersistFunc сохраняет одну пачку. Ошибка означает, что упала вся пачка.
type PersistFunc[T any] func(ctx context.Context, batch []T) (model.BatchOutcome, error)

// ProgressFunc получает процент выполнения 0..100.
type ProgressFunc func(percent int)

// Pipeline отправляет пачки последовательно: следующая стартует только после
// ответа по предыдущей.
type Pipeline[T any] struct {
	BatchSize int
	Persist   PersistFunc[T]
	Progress  ProgressFunc
	Log       zerolog.Logger
}

// Run. Итог: Total == len(rows), Success + Failed == Total.
// Падение пачки не останавливает остальные; отмена ctx проверяется между пачками.
func (p Pipeline[T]) Run(ctx context.Context, rows []T) model.ImportResult {
	size := p.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	res := model.ImportResult{Total: len(rows), Errors: []string{}}
	total := ChunkCount(len(rows), size)

	for i := 0; i < total; i++ {
		start := i * size
		end := min(start+size, len(rows))
		batch := rows[start:end]

		if err := ctx.Err(); err != nil {
			left := len(rows) - start
			res.Failed += left
			res.Errors = append(res.Errors, fmt.Sprintf("Importen avbröts före batch %d: %d rader importerades inte", i+1, left))
			p.Log.Warn().Err(err).Int("batch", i+1).Int("rows_left", left).Msg("import canceled")
			break
		}

		p.report(i, total)
		out, err := p.Persist(ctx, batch)
		if err != nil {
			res.Failed += len(batch)
			res.Errors = append(res.Errors, fmt.Sprintf("Batch %d misslyckades: %v", i+1, err))
			p.Log.Warn().Err(err).Int("batch", i+1).Int("rows", len(batch)).Msg("batch failed")
		} else {
			res.Success, res.Failed = accumulate(res.Success, res.Failed, out, len(batch), p.Log, i+1)
			res.Errors = append(res.Errors, out.Errors...)
		}
		p.report(i+1, total)
	}
	return res
}

// accumulate складывает ответ пачки как есть; если счётчики не сходятся
// с размером пачки, недостающие строки считаются неуспешными.
func accumulate(success, failed int, out model.BatchOutcome, n int, log zerolog.Logger, batchNo int) (int, int) {
	s := max(0, min(out.Success, n))
	f := max(0, out.Failed)
	if s+f != n {
		log.Warn().Int("batch", batchNo).Int("rows", n).Int("success", out.Success).Int("failed", out.Failed).
			Msg("batch outcome does not add up, adjusting failed count")
		f = n - s
	}
	return success + s, failed + f
}

func (p Pipeline[T]) report(done, total int) {
	if p.Progress == nil || total == 0 {
		return
	}
	p.Progress(int(math.Round(float64(done) / float64(total) * 100)))
}

// ChunkCount: сколько пачек получится.
func ChunkCount(n, size int) int {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return int(math.Ceil(float64(n) / float64(size)))
}
