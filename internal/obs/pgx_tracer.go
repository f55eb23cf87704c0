package obs

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type ctxQueryKey struct{}

type queryStart struct {
	sql   string
	begin time.Time
}

// PGXTracer implements pgx.QueryTracer, logging slow or failing statements.
type PGXTracer struct {
	Logger        zerolog.Logger
	SlowThreshold time.Duration
}

// TraceQueryStart records the statement and start time on the context.
func (t PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, ctxQueryKey{}, queryStart{sql: data.SQL, begin: time.Now()})
}

// TraceQueryEnd emits a log line for failed or slow queries.
func (t PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(ctxQueryKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := time.Since(start.begin)
	threshold := t.SlowThreshold
	if threshold <= 0 {
		threshold = 200 * time.Millisecond
	}
	switch {
	case data.Err != nil:
		t.Logger.Warn().Err(data.Err).
			Str("sql", truncateSQL(start.sql)).
			Int64("duration_ms", elapsed.Milliseconds()).
			Msg("query failed")
	case elapsed >= threshold:
		t.Logger.Warn().
			Str("sql", truncateSQL(start.sql)).
			Int64("duration_ms", elapsed.Milliseconds()).
			Msg("slow query")
	}
}

func truncateSQL(sql string) string {
	trimmed := strings.TrimSpace(sql)
	if len(trimmed) > 200 {
		return trimmed[:200] + "..."
	}
	return trimmed
}
