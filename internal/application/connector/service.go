package connector

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dirsync/james-connector/internal/domain/directory"
	"github.com/dirsync/james-connector/internal/infrastructure/logger"
	"github.com/dirsync/james-connector/internal/infrastructure/telemetry"
)

// Metrics receives connector activity
type Metrics interface {
	RecordChange(ctx context.Context, task, operation string, succeeded bool)
	RecordPivots(ctx context.Context, task string, count int)
}

type noopMetrics struct{}

func (noopMetrics) RecordChange(context.Context, string, string, bool) {}
func (noopMetrics) RecordPivots(context.Context, string, int)          {}

// Option configures a service
type Option func(*base)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) Option {
	return func(b *base) {
		if m != nil {
			b.metrics = m
		}
	}
}

// WithBeanRegistry resolves the task bean from r instead of the built-in registry
func WithBeanRegistry(r *directory.BeanRegistry) Option {
	return func(b *base) {
		if r != nil {
			b.beans = r
		}
	}
}

// base holds what both services share: task settings, bean constructor and
// the apply envelope (precondition, span, metrics, logging).
type base struct {
	task    TaskConfig
	name    string
	beans   *directory.BeanRegistry
	newBean directory.BeanConstructor
	logger  *zap.Logger
	metrics Metrics
}

func newBase(task TaskConfig, name string, opts []Option) (*base, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}
	b := &base{
		task:    task,
		name:    name,
		beans:   directory.NewBeanRegistry(),
		logger:  zap.NewNop(),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(b)
	}
	ctor, err := b.beans.Resolve(task.Bean)
	if err != nil {
		return nil, err
	}
	b.newBean = ctor
	b.logger = b.logger.Named(name).With(zap.String("task", task.Name))
	return b, nil
}

type dispatchFunc func(ctx context.Context, change directory.ChangeDescriptor) directory.Outcome

func (b *base) apply(ctx context.Context, change directory.ChangeDescriptor, dispatch dispatchFunc) directory.Outcome {
	ctx, span := telemetry.StartServiceSpan(ctx, b.name, "apply",
		"task", b.task.Name,
		"operation", change.Operation.String(),
	)
	defer span.End()

	log := logger.WithLogger(ctx, b.logger).With(
		zap.String("operation", change.Operation.String()),
		zap.String("id", change.MainIdentifier),
	)

	var outcome directory.Outcome
	if !change.HasMainIdentifier() {
		log.Error("MainIdentifier is needed to update")
		outcome = directory.FailureFromError(directory.ErrMissingMainIdentifier)
	} else {
		outcome = dispatch(ctx, change)
	}

	b.metrics.RecordChange(ctx, b.task.Name, change.Operation.String(), outcome.Succeeded)
	if outcome.Succeeded {
		telemetry.SetOK(span)
		log.Debug("Change applied")
	} else {
		telemetry.SetFailed(span, outcome.Diagnostic)
		log.Warn("Change failed", zap.String("diagnostic", outcome.Diagnostic))
	}
	return outcome
}

// write runs one destination write. An unreachable destination is logged
// and becomes a failed outcome.
func (b *base) write(ctx context.Context, action string, fn func() (directory.Outcome, error)) directory.Outcome {
	outcome, err := fn()
	if err != nil {
		logger.WithLogger(ctx, b.logger).Error("Destination unreachable while "+action, zap.Error(err))
		return directory.FailureFromError(err)
	}
	return outcome
}

// readError logs a read-path failure and returns it with a typed cause.
func (b *base) readError(ctx context.Context, span trace.Span, action string, err error) error {
	telemetry.RecordError(span, err)
	log := logger.WithLogger(ctx, b.logger)
	if directory.IsCommunication(err) {
		log.Error("Destination unreachable while "+action, zap.Error(err))
		return fmt.Errorf("%s: %w", action, err)
	}
	log.Error("Destination error while "+action, zap.Error(err))
	if errors.Is(err, directory.ErrService) {
		return fmt.Errorf("%s: %w", action, err)
	}
	return fmt.Errorf("%w: %s: %w", directory.ErrService, action, err)
}

// beanKey picks the identifier to look up. Pivots produced by this service
// carry it under "email"; foreign datasets name it with idAttribute.
func beanKey(idAttribute string, datasets directory.Datasets, sameService bool) (string, bool) {
	attr := idAttribute
	if sameService || attr == "" {
		attr = directory.AttrEmail
	}
	return datasets.First(attr)
}

// GetWriteDatasetIDs returns the attributes this task may write
func (b *base) GetWriteDatasetIDs() []string {
	return append([]string{}, b.task.WritableAttributes...)
}

// Task returns the task settings
func (b *base) Task() TaskConfig {
	return b.task
}
