package pipeline

import (
	"context"
	"log/slog"

	"github.com/franciscod/campus-fetch/internal/model"
)

// Syncer synchronizes one root. *crawler.Engine implements it.
type Syncer interface {
	Sync(ctx context.Context, root model.SyncRoot) (*model.SyncReport, error)
}

// RunSaver stores a finished run. *database.HistoryDB implements it.
type RunSaver interface {
	SaveRun(ctx context.Context, report *model.SyncReport) (int64, error)
}

// SyncStep runs the crawl engine for the root of the report and replaces
// the report with the engine's.
type SyncStep struct {
	syncer Syncer
}

// NewSyncStep creates a SyncStep.
func NewSyncStep(syncer Syncer) *SyncStep {
	return &SyncStep{syncer: syncer}
}

// Name returns the step name.
func (s *SyncStep) Name() string {
	return "sync"
}

// Do synchronizes report.Root. The error is the root failure, if any;
// per-link failures are in the report.
func (s *SyncStep) Do(ctx context.Context, report *model.SyncReport) error {
	result, err := s.syncer.Sync(ctx, report.Root)
	if result != nil {
		*report = *result
	}
	return err
}

// HistoryStep saves the report in the run history.
// A failing database never fails the run; the error is logged.
type HistoryStep struct {
	saver  RunSaver
	logger *slog.Logger
}

// HistoryStepOption configures a HistoryStep.
type HistoryStepOption func(*HistoryStep)

// WithHistoryLogger sets a custom logger for the history step.
func WithHistoryLogger(logger *slog.Logger) HistoryStepOption {
	return func(s *HistoryStep) {
		s.logger = logger
	}
}

// NewHistoryStep creates a HistoryStep.
func NewHistoryStep(saver RunSaver, opts ...HistoryStepOption) *HistoryStep {
	s := &HistoryStep{saver: saver}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Name returns the step name.
func (s *HistoryStep) Name() string {
	return "history"
}

// Final reports that the history is written even for a cancelled sync.
func (s *HistoryStep) Final() bool {
	return true
}

// Do stores the report. It runs with a context detached from cancellation
// so that an interrupted sync is still recorded.
func (s *HistoryStep) Do(ctx context.Context, report *model.SyncReport) error {
	id, err := s.saver.SaveRun(context.WithoutCancel(ctx), report)
	if err != nil {
		s.logger.Warn("failed to save run history", "course", report.Root.Name, "error", err)
		return nil
	}
	s.logger.Debug("saved run history", "course", report.Root.Name, "run", id)
	return nil
}

// SyncPipeline creates the standard pipeline of the sync command: the
// engine, then the history when saver is not nil. It continues on error so
// that failed runs are saved too.
func SyncPipeline(syncer Syncer, saver RunSaver, opts ...Option) *Pipeline {
	opts = append([]Option{WithContinueOnError(true)}, opts...)
	p := New(opts...)
	p.AddStep(NewSyncStep(syncer))
	if saver != nil {
		p.AddStep(NewHistoryStep(saver, WithHistoryLogger(p.logger)))
	}
	return p
}
