package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/dirsync/james-connector/internal/infrastructure/james"
)

// ConnectorMetrics records what the connector does against the destination.
type ConnectorMetrics struct {
	changesTotal   *Counter
	requestsTotal  *Counter
	requestLatency *Histogram
	pivotCount     *Gauge
	logger         *zap.Logger
}

var _ james.RequestObserver = (*ConnectorMetrics)(nil)

// NewConnectorMetrics registers the connector instruments on meter.
func NewConnectorMetrics(meter metric.Meter, logger *zap.Logger) (*ConnectorMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	changes, err := NewCounter(meter, "connector.changes", "Change descriptors applied, by operation and result", "{change}")
	if err != nil {
		return nil, err
	}
	requests, err := NewCounter(meter, "connector.api.requests", "Requests sent to the webadmin API", "{request}")
	if err != nil {
		return nil, err
	}
	latency, err := NewHistogram(meter, HistogramOpts{
		Name:        "connector.api.request.duration",
		Description: "Webadmin request duration",
		Unit:        "s",
		Boundaries:  APIDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	pivots, err := NewGauge(meter, "connector.pivots.size", "Entries in the last pivot enumeration", "{entry}")
	if err != nil {
		return nil, err
	}
	return &ConnectorMetrics{
		changesTotal:   changes,
		requestsTotal:  requests,
		requestLatency: latency,
		pivotCount:     pivots,
		logger:         logger,
	}, nil
}

// RecordChange counts one applied change.
func (m *ConnectorMetrics) RecordChange(ctx context.Context, task, operation string, succeeded bool) {
	result := "success"
	if !succeeded {
		result = "failure"
	}
	m.changesTotal.Inc(ctx, AttrTask.String(task), AttrOperation.String(operation), AttrResult.String(result))
}

// RecordPivots records the size of a pivot enumeration.
func (m *ConnectorMetrics) RecordPivots(ctx context.Context, task string, count int) {
	m.pivotCount.Record(ctx, int64(count), AttrTask.String(task))
}

// ObserveRequest records one webadmin exchange.
func (m *ConnectorMetrics) ObserveRequest(ctx context.Context, method, resource string, family james.StatusFamily, elapsed time.Duration) {
	attrs := []attribute.KeyValue{
		AttrHTTPMethod.String(method),
		AttrResourceRoute.String(resource),
		AttrStatusFamily.String(family.String()),
	}
	m.requestsTotal.Inc(ctx, attrs...)
	m.requestLatency.RecordDuration(ctx, elapsed, attrs...)
}
