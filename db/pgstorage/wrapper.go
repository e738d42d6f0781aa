package pgstorage

import (
	"context"
	"strings"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/0xPolygonHermez/zkevm-swap-service/utils"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

const slowQueryThreshold = 500 * time.Millisecond

// execQuerierWrapper logs every statement with the trace id of its context
type execQuerierWrapper struct {
	execQuerier
}

// traceQuery logs the statement and returns the func that logs its completion
func traceQuery(ctx context.Context, method, sql string, args []interface{}) func(err error, extra ...interface{}) {
	logger := log.WithFields(utils.TraceID, ctx.Value(utils.CtxTraceID), "method", method)
	sql = strings.ReplaceAll(sql, "\n", " ")
	logger.Debugf("DB query begin, sql[%v] arguments[%v]", sql, args)
	start := time.Now()
	return func(err error, extra ...interface{}) {
		elapsed := time.Since(start)
		if elapsed > slowQueryThreshold {
			logger.Warnf("DB slow query, sql[%v] processTime[%v]", sql, elapsed)
		}
		logger.Debugf("DB query end, sql[%v] arguments[%v] err[%v] extra%v processTime[%v]", sql, args, err, extra, elapsed)
	}
}

func (w *execQuerierWrapper) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	done := traceQuery(ctx, "Exec", sql, arguments)
	tag, err := w.execQuerier.Exec(ctx, sql, arguments...)
	done(err, "rowsAffected", tag.RowsAffected())
	return tag, err
}

func (w *execQuerierWrapper) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	done := traceQuery(ctx, "Query", sql, args)
	rows, err := w.execQuerier.Query(ctx, sql, args...)
	done(err)
	return rows, err
}

func (w *execQuerierWrapper) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	done := traceQuery(ctx, "QueryRow", sql, args)
	row := w.execQuerier.QueryRow(ctx, sql, args...)
	done(nil)
	return row
}
