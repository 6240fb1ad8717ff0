package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const storeScopeName = "github.com/dmarx/gh-store/store"

// StoreMetrics holds the instruments recorded by the store engine. The
// zero value is unusable; construct with NewStoreMetrics. When telemetry
// is disabled the global meter is a no-op and every Record call is free.
type StoreMetrics struct {
	objectsCreated  metric.Int64Counter
	updatesPosted   metric.Int64Counter
	updatesConsumed metric.Int64Counter
	processCycles   metric.Int64Counter
	processDuration metric.Float64Histogram
}

// NewStoreMetrics creates the store instrument set on the global meter.
func NewStoreMetrics() *StoreMetrics {
	m := Meter(storeScopeName)
	objectsCreated, _ := m.Int64Counter("ghstore.objects.created",
		metric.WithDescription("Objects created in the store"),
	)
	updatesPosted, _ := m.Int64Counter("ghstore.updates.posted",
		metric.WithDescription("Update envelopes posted to anchors"),
	)
	updatesConsumed, _ := m.Int64Counter("ghstore.updates.consumed",
		metric.WithDescription("Update comments consumed by process cycles"),
	)
	processCycles, _ := m.Int64Counter("ghstore.process.cycles",
		metric.WithDescription("Process cycles run"),
	)
	processDuration, _ := m.Float64Histogram("ghstore.process.duration",
		metric.WithDescription("Process cycle duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	return &StoreMetrics{
		objectsCreated:  objectsCreated,
		updatesPosted:   updatesPosted,
		updatesConsumed: updatesConsumed,
		processCycles:   processCycles,
		processDuration: processDuration,
	}
}

// ObjectCreated counts one successful create.
func (m *StoreMetrics) ObjectCreated(ctx context.Context) {
	m.objectsCreated.Add(ctx, 1)
}

// UpdatePosted counts one enqueued update envelope.
func (m *StoreMetrics) UpdatePosted(ctx context.Context) {
	m.updatesPosted.Add(ctx, 1)
}

// ProcessCycle records one finished process cycle: how many comments it
// consumed and how long it ran.
func (m *StoreMetrics) ProcessCycle(ctx context.Context, consumed int, elapsed time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.Bool("ghstore.process.ok", err == nil))
	m.processCycles.Add(ctx, 1, attrs)
	m.updatesConsumed.Add(ctx, int64(consumed), attrs)
	m.processDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}

const gatewayScopeName = "github.com/dmarx/gh-store/gateway"

// APIRequests returns the counter of tracker API requests; the gateway
// increments it per HTTP attempt.
func APIRequests() metric.Int64Counter {
	c, _ := Meter(gatewayScopeName).Int64Counter("ghstore.api.requests",
		metric.WithDescription("Tracker API requests issued"),
	)
	return c
}
