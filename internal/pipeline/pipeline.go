package pipeline

import (
	"context"
	"log/slog"

	"github.com/franciscod/campus-fetch/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the report the previous
// steps filled.
type Step interface {
	// Do executes the pipeline step.
	// Returns an error if the step fails critically; non-critical errors
	// should be recorded in the report and return nil.
	Do(ctx context.Context, report *model.SyncReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. A sync pipeline sets it so that failed runs are
// recorded in the history too.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Final is implemented by steps that still run once the context is
// cancelled, such as recording what was done.
type Final interface {
	Final() bool
}

func isFinal(step Step) bool {
	f, ok := step.(Final)
	return ok && f.Final()
}

// Execute runs all pipeline steps in sequence.
// Cancellation is checked before each step; a step is never interrupted by
// the pipeline itself. Once cancelled, only Final steps still run, and only
// with continueOnError.
//
// Returns the first error encountered. With continueOnError the remaining
// steps still run. The first error is also recorded in the report unless a
// step already recorded one.
func (p *Pipeline) Execute(ctx context.Context, report *model.SyncReport) error {
	var first error
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil && !isFinal(step) {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"course", report.Root.Name,
				"reason", err,
			)
			p.record(report, err)
			if first == nil {
				first = err
			}
			if !p.continueOnError {
				return first
			}
			continue
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"course", report.Root.Name,
		)

		if err := step.Do(ctx, report); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"course", report.Root.Name,
				"error", err,
			)
			p.record(report, err)
			if first == nil {
				first = err
			}
			if !p.continueOnError {
				return first
			}
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"course", report.Root.Name,
		)
	}

	return first
}

func (p *Pipeline) record(report *model.SyncReport, err error) {
	if !report.Failed() {
		report.SetError(err)
	}
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
