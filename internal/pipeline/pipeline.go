package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/webxtract/internal/model"
)

// Job is the unit of work passed through a pipeline: one seed and the
// report produced for it.
type Job struct {
	// Seed is the starting URL.
	Seed string

	// Index is the position of the seed in the batch.
	Index int

	// Report is set by the crawl step. It stays nil when the crawl could
	// not start.
	Report *model.CrawlReport

	// Err is the first step error, if any.
	Err error

	// Steps lists the names of the steps that ran.
	Steps []string
}

// NewJob creates a job for seed.
func NewJob(seed string, index int) *Job {
	return &Job{Seed: seed, Index: index}
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the job as left by the
// previous steps.
//
// Design decision: We use an interface rather than function types because:
//  1. It allows steps to carry configuration state
//  2. It provides a Name() method for logging and debugging
type Step interface {
	// Do executes the pipeline step.
	// Returns an error if the step fails critically; non-critical errors
	// should be recorded in the report and return nil.
	Do(ctx context.Context, job *Job) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// FinalStep is implemented by steps that must run even after the context
// is cancelled, such as storing a partial report. They receive a context
// that is never cancelled.
type FinalStep interface {
	Step
	RunsAfterCancel() bool
}

func runsAfterCancel(step Step) bool {
	f, ok := step.(FinalStep)
	return ok && f.RunsAfterCancel()
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
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
	for _, step := range steps {
		p.AddStep(step)
	}
}

// Execute runs all pipeline steps in sequence.
//
// Cancellation is checked before each step. Once ctx is done, ordinary
// steps are skipped and only final steps run, so a partial report can
// still be stored. Execute then returns ctx.Err().
//
// A failing step records its error in the job and, when a report exists,
// in the report, and stops the pipeline.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	if job.Steps == nil {
		job.Steps = make([]string, 0, p.StepCount())
	}
	for _, step := range p.steps {
		stepCtx := ctx
		if ctx.Err() != nil {
			if !runsAfterCancel(step) {
				p.logger.Warn("skipping step after cancellation",
					"step", step.Name(),
					"seed", job.Seed,
					"reason", ctx.Err(),
				)
				continue
			}
			stepCtx = context.WithoutCancel(ctx)
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"seed", job.Seed,
		)

		err := step.Do(stepCtx, job)
		job.Steps = append(job.Steps, step.Name())
		if err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"seed", job.Seed,
				"error", err,
			)
			p.recordError(job, err)
			return err
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"seed", job.Seed,
		)
	}

	return ctx.Err()
}

func (p *Pipeline) recordError(job *Job, err error) {
	if job.Err == nil {
		job.Err = err
	}
	if job.Report != nil && job.Report.ErrorMessage == "" {
		job.Report.ErrorMessage = err.Error()
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
