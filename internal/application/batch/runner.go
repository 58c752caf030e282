// Package batch applies a list of changes to one writable service and
// reports what happened.
package batch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dirsync/james-connector/internal/domain/directory"
	"github.com/dirsync/james-connector/internal/infrastructure/logger"
)

// ErrRunCancelled is returned when the context ends before every change was applied
var ErrRunCancelled = errors.New("batch: run cancelled")

// RunStatus summarises a run
type RunStatus string

const (
	RunStatusSuccess   RunStatus = "SUCCESS"
	RunStatusPartial   RunStatus = "PARTIAL"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

// ChangeFailure describes one change the destination did not accept
type ChangeFailure struct {
	Index          int                     `json:"index" yaml:"index"`
	Operation      directory.OperationKind `json:"operation" yaml:"operation"`
	MainIdentifier string                  `json:"id" yaml:"id"`
	Diagnostic     string                  `json:"diagnostic" yaml:"diagnostic"`
}

// RunReport is the result of one run
type RunReport struct {
	RunID      uuid.UUID       `json:"run_id" yaml:"run_id"`
	Task       string          `json:"task" yaml:"task"`
	StartedAt  time.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time       `json:"finished_at" yaml:"finished_at"`
	Total      int             `json:"total" yaml:"total"`
	Succeeded  int             `json:"succeeded" yaml:"succeeded"`
	Failed     int             `json:"failed" yaml:"failed"`
	Failures   []ChangeFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
	Status     RunStatus       `json:"status" yaml:"status"`
}

func (r *RunReport) complete(finishedAt time.Time, cancelled bool) {
	r.FinishedAt = finishedAt
	switch {
	case cancelled:
		r.Status = RunStatusCancelled
	case r.Failed == 0:
		r.Status = RunStatusSuccess
	case r.Succeeded > 0:
		r.Status = RunStatusPartial
	default:
		r.Status = RunStatusFailed
	}
}

// Runner applies changes sequentially
type Runner struct {
	service directory.WritableService
	journal directory.RunJournal
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Runner
type Option func(*Runner)

// WithJournal records every applied change in j
func WithJournal(j directory.RunJournal) Option {
	return func(r *Runner) {
		r.journal = j
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner creates a runner for service
func NewRunner(service directory.WritableService, opts ...Option) *Runner {
	r := &Runner{
		service: service,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("batch")
	return r
}

// Run applies changes in order. Destination refusals are counted, never
// returned. When ctx ends between two changes the partial report is
// returned with ErrRunCancelled.
func (r *Runner) Run(ctx context.Context, task string, changes []directory.ChangeDescriptor) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.New(),
		Task:      task,
		StartedAt: r.now(),
	}
	ctx, log := logger.WithRunID(ctx, r.logger, report.RunID.String())
	ctx, log = logger.WithTask(ctx, log, task)
	log.Info("Run started", zap.Int("changes", len(changes)))

	for i, change := range changes {
		if err := ctx.Err(); err != nil {
			report.complete(r.now(), true)
			log.Warn("Run cancelled",
				zap.Int("applied", report.Total),
				zap.Int("remaining", len(changes)-i),
				zap.Error(err),
			)
			return report, errors.Join(ErrRunCancelled, err)
		}

		outcome := r.applyOne(ctx, change)
		report.Total++
		if outcome.Succeeded {
			report.Succeeded++
		} else {
			report.Failed++
			report.Failures = append(report.Failures, ChangeFailure{
				Index:          i,
				Operation:      change.Operation,
				MainIdentifier: change.MainIdentifier,
				Diagnostic:     outcome.Diagnostic,
			})
		}
		r.record(ctx, log, report, change, outcome)
	}

	report.complete(r.now(), false)
	log.Info("Run completed",
		zap.String("status", string(report.Status)),
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func (r *Runner) applyOne(ctx context.Context, change directory.ChangeDescriptor) directory.Outcome {
	if applier, ok := r.service.(directory.OutcomeApplier); ok {
		return applier.ApplyChange(ctx, change)
	}
	if r.service.Apply(ctx, change) {
		return directory.Success()
	}
	return directory.Failure("%s %s was not applied", change.Operation, change.MainIdentifier)
}

func (r *Runner) record(ctx context.Context, log *zap.Logger, report *RunReport, change directory.ChangeDescriptor, outcome directory.Outcome) {
	if r.journal == nil {
		return
	}
	entry := directory.ChangeRecord{
		ID:             uuid.New(),
		RunID:          report.RunID,
		Task:           report.Task,
		Operation:      change.Operation,
		MainIdentifier: change.MainIdentifier,
		Succeeded:      outcome.Succeeded,
		Diagnostic:     outcome.Diagnostic,
		AppliedAt:      r.now(),
	}
	if err := r.journal.Record(ctx, entry); err != nil {
		log.Error("Failed to journal change",
			zap.String("operation", change.Operation.String()),
			zap.String("id", change.MainIdentifier),
			zap.Error(err),
		)
	}
}
