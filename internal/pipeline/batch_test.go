package pipeline

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/franciscod/campus-fetch/internal/model"
)

func roots(n int) []model.SyncRoot {
	out := make([]model.SyncRoot, n)
	for i := range out {
		out[i] = model.SyncRoot{ID: strconv.Itoa(i + 1), Name: "Materia " + strconv.Itoa(i+1)}
	}
	return out
}

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })
		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected default concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		if bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(5)); bp.concurrency != 5 {
			t.Errorf("expected concurrency 5, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		if bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(0)); bp.concurrency != DefaultConcurrency {
			t.Errorf("expected default concurrency, got %d", bp.concurrency)
		}
	})
}

// TestBatchProcessorProcessBatch tests batch processing.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("processes all roots in order", func(t *testing.T) {
		t.Parallel()

		var processed atomic.Int32
		bp := NewBatchProcessor(func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{name: "counter", doFunc: func(_ context.Context, _ *model.SyncReport) error {
				processed.Add(1)
				return nil
			}})
			return p
		}, WithBatchLogger(discardLogger()))

		input := roots(3)
		results, err := bp.ProcessBatch(context.Background(), input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if processed.Load() != 3 {
			t.Errorf("expected 3 processed, got %d", processed.Load())
		}
		for i, r := range results {
			if r.Root != input[i] {
				t.Errorf("result[%d]: got %+v, expected %+v", i, r.Root, input[i])
			}
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, peak atomic.Int32
		var mu sync.Mutex

		bp := NewBatchProcessor(func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{name: "concurrent-counter", doFunc: func(_ context.Context, _ *model.SyncReport) error {
				n := current.Add(1)
				mu.Lock()
				if n > peak.Load() {
					peak.Store(n)
				}
				mu.Unlock()

				time.Sleep(30 * time.Millisecond)
				current.Add(-1)
				return nil
			}})
			return p
		}, WithConcurrency(2), WithBatchLogger(discardLogger()))

		if _, err := bp.ProcessBatch(context.Background(), roots(8)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("max concurrent was %d, expected <= 2", peak.Load())
		}
	})

	t.Run("a failed root does not stop the others", func(t *testing.T) {
		t.Parallel()

		var processed atomic.Int32
		bp := NewBatchProcessor(func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{name: "sometimes-fails", doFunc: func(_ context.Context, r *model.SyncReport) error {
				processed.Add(1)
				if r.Root.ID == "2" {
					return errors.New("root page not found")
				}
				return nil
			}})
			return p
		}, WithConcurrency(1), WithBatchLogger(discardLogger()))

		results, err := bp.ProcessBatch(context.Background(), roots(3))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if processed.Load() != 3 {
			t.Errorf("expected 3 processed, got %d", processed.Load())
		}
		if !results[1].Failed() || results[0].Failed() || results[2].Failed() {
			t.Errorf("expected only the second root to fail: %v %v %v",
				results[0].ErrorMessage, results[1].ErrorMessage, results[2].ErrorMessage)
		}
	})

	t.Run("handles context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		var started atomic.Int32

		bp := NewBatchProcessor(func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{name: "slow-step", doFunc: func(ctx context.Context, _ *model.SyncReport) error {
				started.Add(1)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Second):
					return nil
				}
			}})
			return p
		}, WithConcurrency(2), WithBatchLogger(discardLogger()))

		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		input := roots(10)
		results, err := bp.ProcessBatch(ctx, input)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		//nolint:gosec // len(input) is small, no overflow risk
		if started.Load() >= int32(len(input)) {
			t.Error("expected some roots to not start due to cancellation")
		}
		for i, r := range results {
			if r == nil || !r.Failed() {
				t.Errorf("result[%d]: expected a cancelled report, got %+v", i, r)
			}
		}
	})
}

// TestBatchProcessorProcessBatchWithCallback tests callback-based processing.
func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	received := make(map[int]string)

	bp := NewBatchProcessor(func() *Pipeline {
		p := New(WithLogger(discardLogger()))
		p.AddStep(&mockStep{name: "noop"})
		return p
	}, WithBatchLogger(discardLogger()))

	input := roots(3)
	err := bp.ProcessBatchWithCallback(context.Background(), input, func(r *model.SyncReport, index int) {
		mu.Lock()
		received[index] = r.Root.ID
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(received) != 3 {
		t.Fatalf("expected 3 callbacks, got %d", len(received))
	}
	for i, root := range input {
		if received[i] != root.ID {
			t.Errorf("callback %d: got %q, expected %q", i, received[i], root.ID)
		}
	}
}
