package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/franciscod/campus-fetch/internal/model"
)

var testRoot = model.SyncRoot{ID: "42", Name: "Algoritmos I"}

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	final     bool
	doFunc    func(ctx context.Context, report *model.SyncReport) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, report *model.SyncReport) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, report)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

// Final implements Final.
func (m *mockStep) Final() bool {
	return m.final
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.continueOnError {
			t.Error("expected continueOnError to be false")
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		if p := New(WithContinueOnError(true)); !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&mockStep{name: "first"})
	p.AddSteps(&mockStep{name: "second"}, &mockStep{name: "third"})

	if p.StepCount() != 3 {
		t.Fatalf("expected 3 steps, got %d", p.StepCount())
	}
	names := p.StepNames()
	for i, want := range []string{"first", "second", "third"} {
		if names[i] != want {
			t.Errorf("step %d: expected %q, got %q", i, want, names[i])
		}
	}
}

// TestPipelineExecute tests pipeline execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		step := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(_ context.Context, _ *model.SyncReport) error {
				order = append(order, name)
				return nil
			}}
		}

		p := New(WithLogger(discardLogger()))
		p.AddSteps(step("a"), step("b"), step("c"))

		if err := p.Execute(context.Background(), model.NewSyncReport(testRoot)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(order) != 3 || order[0] != "a" || order[2] != "c" {
			t.Errorf("unexpected order: %v", order)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		failing := &mockStep{name: "failing", doFunc: func(_ context.Context, _ *model.SyncReport) error { return boom }}
		after := &mockStep{name: "after"}

		p := New(WithLogger(discardLogger()))
		p.AddSteps(failing, after)

		report := model.NewSyncReport(testRoot)
		if err := p.Execute(context.Background(), report); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if after.callCount != 0 {
			t.Error("expected second step not to run")
		}
		if !report.Failed() || report.ErrorMessage != "boom" {
			t.Errorf("expected error in report, got %q", report.ErrorMessage)
		}
	})

	t.Run("continues on error and keeps the first error", func(t *testing.T) {
		t.Parallel()

		first := errors.New("first")
		p := New(WithLogger(discardLogger()), WithContinueOnError(true))
		after := &mockStep{name: "after", doFunc: func(_ context.Context, _ *model.SyncReport) error {
			return errors.New("second")
		}}
		p.AddSteps(&mockStep{name: "failing", doFunc: func(_ context.Context, _ *model.SyncReport) error { return first }}, after)

		report := model.NewSyncReport(testRoot)
		if err := p.Execute(context.Background(), report); !errors.Is(err, first) {
			t.Fatalf("expected first error, got %v", err)
		}
		if after.callCount != 1 {
			t.Error("expected second step to run")
		}
		if report.ErrorMessage != "first" {
			t.Errorf("expected first error in report, got %q", report.ErrorMessage)
		}
	})

	t.Run("keeps an error recorded by a step", func(t *testing.T) {
		t.Parallel()

		p := New(WithLogger(discardLogger()))
		p.AddStep(&mockStep{name: "sync", doFunc: func(_ context.Context, r *model.SyncReport) error {
			err := errors.New("failed to fetch root page: 404")
			r.SetError(err)
			return errors.New("wrapped")
		}})

		report := model.NewSyncReport(testRoot)
		_ = p.Execute(context.Background(), report)
		if report.ErrorMessage != "failed to fetch root page: 404" {
			t.Errorf("expected step error to be kept, got %q", report.ErrorMessage)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "never"}
		p := New(WithLogger(discardLogger()))
		p.AddStep(step)

		report := model.NewSyncReport(testRoot)
		if err := p.Execute(ctx, report); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("expected step not to run")
		}
		if !report.Failed() {
			t.Error("expected cancellation in report")
		}
	})

	t.Run("final steps run after cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancelling := &mockStep{name: "sync", doFunc: func(_ context.Context, _ *model.SyncReport) error {
			cancel()
			return context.Canceled
		}}
		skipped := &mockStep{name: "skipped"}
		final := &mockStep{name: "history", final: true}

		p := New(WithLogger(discardLogger()), WithContinueOnError(true))
		p.AddSteps(cancelling, skipped, final)

		if err := p.Execute(ctx, model.NewSyncReport(testRoot)); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if skipped.callCount != 0 || final.callCount != 1 {
			t.Errorf("expected only the final step to run, got %d and %d", skipped.callCount, final.callCount)
		}
	})
}

// stubSyncer returns a fixed report and error.
type stubSyncer struct {
	report *model.SyncReport
	err    error
}

func (s *stubSyncer) Sync(_ context.Context, root model.SyncRoot) (*model.SyncReport, error) {
	if s.report != nil {
		s.report.Root = root
	}
	return s.report, s.err
}

// stubSaver records saved reports.
type stubSaver struct {
	saved []*model.SyncReport
	err   error
}

func (s *stubSaver) SaveRun(ctx context.Context, report *model.SyncReport) (int64, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	if s.err != nil {
		return 0, s.err
	}
	s.saved = append(s.saved, report)
	return int64(len(s.saved)), nil
}

func TestSyncPipeline(t *testing.T) {
	t.Parallel()

	t.Run("replaces the report with the engine's and saves it", func(t *testing.T) {
		t.Parallel()

		engineReport := model.NewSyncReport(model.SyncRoot{})
		engineReport.OutputDir = "downloads/algoritmos-i"
		engineReport.Downloaded = 2
		saver := &stubSaver{}

		p := SyncPipeline(&stubSyncer{report: engineReport}, saver, WithLogger(discardLogger()))
		if names := p.StepNames(); len(names) != 2 || names[0] != "sync" || names[1] != "history" {
			t.Fatalf("unexpected steps: %v", names)
		}

		report := model.NewSyncReport(testRoot)
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Downloaded != 2 || report.OutputDir != "downloads/algoritmos-i" || report.Root != testRoot {
			t.Errorf("unexpected report: %+v", report)
		}
		if len(saver.saved) != 1 || saver.saved[0] != report {
			t.Errorf("expected the report to be saved, got %v", saver.saved)
		}
	})

	t.Run("saves failed runs", func(t *testing.T) {
		t.Parallel()

		failed := model.NewSyncReport(model.SyncRoot{})
		rootErr := errors.New("not authenticated")
		failed.SetError(rootErr)
		saver := &stubSaver{}

		p := SyncPipeline(&stubSyncer{report: failed, err: rootErr}, saver, WithLogger(discardLogger()))
		report := model.NewSyncReport(testRoot)
		if err := p.Execute(context.Background(), report); !errors.Is(err, rootErr) {
			t.Fatalf("expected root error, got %v", err)
		}
		if len(saver.saved) != 1 || !saver.saved[0].Failed() {
			t.Errorf("expected the failed run to be saved, got %v", saver.saved)
		}
	})

	t.Run("history failure does not fail the run", func(t *testing.T) {
		t.Parallel()

		saver := &stubSaver{err: errors.New("disk full")}
		p := SyncPipeline(&stubSyncer{report: model.NewSyncReport(model.SyncRoot{})}, saver, WithLogger(discardLogger()))

		report := model.NewSyncReport(testRoot)
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Failed() {
			t.Error("expected run not to be failed")
		}
	})

	t.Run("history is saved after cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancelled := model.NewSyncReport(model.SyncRoot{})
		syncer := &cancellingSyncer{cancel: cancel, report: cancelled}
		saver := &stubSaver{}

		p := SyncPipeline(syncer, saver, WithLogger(discardLogger()))
		if err := p.Execute(ctx, model.NewSyncReport(testRoot)); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if len(saver.saved) != 1 {
			t.Errorf("expected the interrupted run to be saved, got %d", len(saver.saved))
		}
	})

	t.Run("without saver there is no history step", func(t *testing.T) {
		t.Parallel()

		if p := SyncPipeline(&stubSyncer{}, nil); p.StepCount() != 1 {
			t.Errorf("expected 1 step, got %d", p.StepCount())
		}
	})
}

// cancellingSyncer cancels the context during the sync, as an interrupt would.
type cancellingSyncer struct {
	cancel context.CancelFunc
	report *model.SyncReport
}

func (s *cancellingSyncer) Sync(_ context.Context, _ model.SyncRoot) (*model.SyncReport, error) {
	s.cancel()
	s.report.SetError(context.Canceled)
	return s.report, context.Canceled
}
