package db

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	dbMetricsEnabled bool
	dbQueryDuration  metric.Float64Histogram
	dbQueryErrors    metric.Int64Counter
	dbTracer         trace.Tracer
)

// InitTelemetry creates the per-query span tracer and the duration and
// error instruments. Until it runs the instrumented queryer only
// forwards calls, so tests and tools can use Base without a meter
// provider.
func InitTelemetry(serviceName string) {
	dbTracer = otel.Tracer(serviceName + "/db")
	meter := otel.Meter(serviceName + "/db")

	var err error
	dbQueryDuration, err = meter.Float64Histogram(
		"snipvault_db_query_duration_seconds",
		metric.WithDescription("Database query latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return
	}

	dbQueryErrors, err = meter.Int64Counter(
		"snipvault_db_query_errors_total",
		metric.WithDescription("Database queries that returned an error"),
	)
	if err != nil {
		return
	}

	dbMetricsEnabled = true
}

// instrumentedQueryer wraps the pool behind the Queryer interface and
// times every statement. Exec finishes its observation inline; Query
// and QueryRow hand it to the returned rows so the sample covers the
// scan, not just the round trip.
type instrumentedQueryer struct {
	q Queryer
}

func (i instrumentedQueryer) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	ctx, obs := beginQuery(ctx, sql)
	tag, err := i.q.Exec(ctx, sql, arguments...)
	obs.finish(ctx, err)
	return tag, err
}

func (i instrumentedQueryer) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	ctx, obs := beginQuery(ctx, sql)
	rows, err := i.q.Query(ctx, sql, args...)
	if err != nil {
		obs.finish(ctx, err)
		return rows, err
	}
	return &instrumentedRows{Rows: rows, ctx: ctx, obs: obs}, nil
}

func (i instrumentedQueryer) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	ctx, obs := beginQuery(ctx, sql)
	return &instrumentedRow{Row: i.q.QueryRow(ctx, sql, args...), ctx: ctx, obs: obs}
}

type instrumentedRows struct {
	pgx.Rows
	ctx context.Context
	obs *queryObservation
}

func (r *instrumentedRows) Close() {
	r.Rows.Close()
	r.obs.finish(r.ctx, r.Rows.Err())
}

type instrumentedRow struct {
	pgx.Row
	ctx context.Context
	obs *queryObservation
}

func (r *instrumentedRow) Scan(dest ...any) error {
	err := r.Row.Scan(dest...)
	r.obs.finish(r.ctx, err)
	return err
}

// queryObservation carries one query's span and start time from the
// call site to whoever ends it. finish is idempotent so a double Close
// or a Scan retry records the query only once.
type queryObservation struct {
	span  trace.Span
	op    string
	start time.Time
	once  sync.Once
}

func beginQuery(ctx context.Context, sql string) (context.Context, *queryObservation) {
	op := sqlVerb(sql)
	tracer := dbTracer
	if tracer == nil {
		tracer = otel.Tracer("snipvault-db")
	}
	ctx, span := tracer.Start(ctx, "DB "+op)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", op),
	)
	return ctx, &queryObservation{span: span, op: op, start: time.Now()}
}

func (o *queryObservation) finish(ctx context.Context, err error) {
	o.once.Do(func() {
		// A missing row is a routine answer for the cloud-link
		// lookups, not a database failure.
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
		}
		if err != nil {
			o.span.RecordError(err)
			o.span.SetStatus(codes.Error, "db_error")
		}
		o.span.End()

		if !dbMetricsEnabled {
			return
		}
		status := "ok"
		if err != nil {
			status = "error"
		}
		attrs := metric.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", o.op),
			attribute.String("db.status", status),
		)
		dbQueryDuration.Record(ctx, time.Since(o.start).Seconds(), attrs)
		if err != nil {
			dbQueryErrors.Add(ctx, 1, attrs)
		}
	})
}

func sqlVerb(sql string) string {
	fields := strings.Fields(strings.TrimSpace(sql))
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToUpper(fields[0])
}
