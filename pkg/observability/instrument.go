package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// errorSuffix marks the failure series of an operation in db_queries_total
const errorSuffix = "_error"

// ErrorOperation returns the label value recorded when operation fails
func ErrorOperation(operation string) string {
	return operation + errorSuffix
}

const instrumentationName = "github.com/learntracker/learntracker/pkg/observability"

// Observe runs fn as the named operation. It records the wall-clock duration,
// increments db_queries_total{operation} on success or
// db_queries_total{operation="<operation>_error"} on failure, and returns fn's
// result and error unchanged. A panic in fn counts as a failure and keeps propagating.
// A nil m only traces.
func Observe[T any](ctx context.Context, m *Metrics, operation string, fn func(context.Context) (T, error)) (result T, err error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, operation)
	span.SetAttributes(attribute.String("learntracker.operation", operation))

	start := time.Now()
	completed := false
	defer func() {
		failed := !completed || err != nil
		m.recordOperation(operation, time.Since(start), failed)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	result, err = fn(ctx)
	completed = true
	return result, err
}

// Instrument is Observe for operations that only return an error
func Instrument(ctx context.Context, m *Metrics, operation string, fn func(context.Context) error) error {
	_, err := Observe(ctx, m, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Wrap returns fn decorated with Observe under the given operation name.
// The returned function has the same signature and error behavior as fn.
func Wrap[T any](m *Metrics, operation string, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return Observe(ctx, m, operation, fn)
	}
}

func (m *Metrics) recordOperation(operation string, elapsed time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	if failed {
		m.DBQueriesTotal.WithLabelValues(ErrorOperation(operation)).Inc()
		return
	}
	m.DBQueriesTotal.WithLabelValues(operation).Inc()
}
