package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"helpdesk-transfer/internal/transfer/model"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func allOK(ctx context.Context, batch []int) (model.BatchOutcome, error) {
	return model.BatchOutcome{Success: len(batch)}, nil
}

func TestPipelineRun(t *testing.T) {
	var sizes []int
	var progress []int
	p := Pipeline[int]{
		BatchSize: 10,
		Persist: func(ctx context.Context, batch []int) (model.BatchOutcome, error) {
			sizes = append(sizes, len(batch))
			return allOK(ctx, batch)
		},
		Progress: func(pct int) { progress = append(progress, pct) },
		Log:      zerolog.Nop(),
	}
	res := p.Run(context.Background(), seq(25))

	if res.Total != 25 || res.Success != 25 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	if !reflect.DeepEqual(sizes, []int{10, 10, 5}) {
		t.Errorf("batch sizes = %v", sizes)
	}
	if !reflect.DeepEqual(progress, []int{0, 33, 33, 67, 67, 100}) {
		t.Errorf("progress = %v", progress)
	}
}

func TestPipelineBatchFailureIsIsolated(t *testing.T) {
	call := 0
	p := Pipeline[int]{
		BatchSize: 10,
		Persist: func(ctx context.Context, batch []int) (model.BatchOutcome, error) {
			call++
			if call == 2 {
				return model.BatchOutcome{}, errors.New("connection reset")
			}
			return allOK(ctx, batch)
		},
		Log: zerolog.Nop(),
	}
	res := p.Run(context.Background(), seq(25))

	if res.Success != 15 || res.Failed != 10 || res.Total != 25 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "Batch 2") {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestPipelineRowErrorsPassThrough(t *testing.T) {
	p := Pipeline[int]{
		BatchSize: 5,
		Persist: func(ctx context.Context, batch []int) (model.BatchOutcome, error) {
			return model.BatchOutcome{Success: len(batch) - 1, Failed: 1, Errors: []string{"Rad 1: finns redan"}}, nil
		},
		Log: zerolog.Nop(),
	}
	res := p.Run(context.Background(), seq(10))
	if res.Success != 8 || res.Failed != 2 || len(res.Errors) != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestPipelineCorrectsMiscountedOutcome(t *testing.T) {
	p := Pipeline[int]{
		BatchSize: 10,
		Persist: func(ctx context.Context, batch []int) (model.BatchOutcome, error) {
			// одна строка «потерялась»
			return model.BatchOutcome{Success: len(batch) - 1}, nil
		},
		Log: zerolog.Nop(),
	}
	res := p.Run(context.Background(), seq(20))
	if res.Success != 18 || res.Failed != 2 {
		t.Errorf("result = %+v", res)
	}
	if res.Success+res.Failed != res.Total {
		t.Errorf("success + failed != total: %+v", res)
	}
}

func TestPipelineCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := 0
	p := Pipeline[int]{
		BatchSize: 10,
		Persist: func(ctx context.Context, batch []int) (model.BatchOutcome, error) {
			calls++
			cancel()
			return allOK(ctx, batch)
		},
		Log: zerolog.Nop(),
	}
	res := p.Run(ctx, seq(25))

	if calls != 1 {
		t.Errorf("persist called %d times after cancel", calls)
	}
	if res.Success != 10 || res.Failed != 15 || res.Total != 25 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "batch 2") {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestPipelineEmpty(t *testing.T) {
	p := Pipeline[int]{
		Persist: func(ctx context.Context, batch []int) (model.BatchOutcome, error) {
			t.Fatal("persist must not be called")
			return model.BatchOutcome{}, nil
		},
		Log: zerolog.Nop(),
	}
	res := p.Run(context.Background(), nil)
	if res.Total != 0 || res.Errors == nil {
		t.Errorf("result = %+v", res)
	}
}

func TestChunkCount(t *testing.T) {
	tests := []struct{ n, size, want int }{
		{0, 10, 0}, {1, 10, 1}, {10, 10, 1}, {11, 10, 2}, {25, 0, 3},
	}
	for _, tt := range tests {
		if got := ChunkCount(tt.n, tt.size); got != tt.want {
			t.Errorf("ChunkCount(%d, %d) = %d, want %d", tt.n, tt.size, got, tt.want)
		}
	}
}
