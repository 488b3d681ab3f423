// Package retrieve is the retrieval engine: filtered, paginated reads with
// total-match counts and pagination metadata. All validation happens before
// a connection is touched; an invalid window or an empty filter set never
// reaches the store.
package retrieve

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/polalpha/aware-gateway/internal/gateway"
	"github.com/polalpha/aware-gateway/internal/sqlbuild"
)

// LargeResultThreshold is the total-match count above which a response
// carries a non-fatal warning suggesting narrower pagination.
const LargeResultThreshold = 100000

// LongQueryThreshold is the wall-clock duration above which a response
// carries a non-fatal warning suggesting narrower filters.
const LongQueryThreshold = 60 * time.Second

// Store is the slice of the connection provider the engine consumes.
type Store interface {
	Acquire(ctx context.Context) (*sql.Conn, error)
	Tables(ctx context.Context) ([]string, error)
	Dialect() sqlbuild.Dialect
}

// Engine reads records through a Store.
type Engine struct {
	store Store
}

// New creates a retrieval engine on top of st.
func New(st Store) *Engine {
	return &Engine{store: st}
}

// Result is one page of matches plus the metadata a paginating client needs
// to fetch the rest. Warnings are advisory; they never change the status.
type Result struct {
	Data       []gateway.Record `json:"data"`
	Count      int              `json:"count"`
	TotalCount int              `json:"total_count"`
	Limit      int              `json:"limit"`
	Offset     int              `json:"offset"`
	HasMore    bool             `json:"has_more"`
	Warnings   []string         `json:"warnings,omitempty"`

	// QueryDurationSeconds is wall-clock time, rounded to 2 decimals.
	QueryDurationSeconds float64 `json:"query_duration_seconds"`
}

// Query runs the count statement and the bounded select sharing one WHERE
// fragment. At least one filter is required: tables hold many devices' data
// and an unfiltered read is a caller mistake, never "match all".
func (e *Engine) Query(ctx context.Context, table string, filters []sqlbuild.Filter, page gateway.Page) (*Result, error) {
	start := time.Now()

	if len(filters) == 0 {
		return nil, gateway.ValidationWrap(gateway.ErrMissingFilter, "query on %q needs at least one filter", table)
	}

	stmts, err := sqlbuild.Select(e.store.Dialect(), table, filters, page)
	if err != nil {
		return nil, err
	}

	conn, err := e.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var total int
	if err := conn.QueryRowContext(ctx, stmts.Count, stmts.CountArgs...).Scan(&total); err != nil {
		return nil, gateway.ExecutionWrap(err, "count query failed")
	}

	data, err := readRows(ctx, conn, stmts.Select, stmts.SelectArgs)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	result := &Result{
		Data:                 data,
		Count:                len(data),
		TotalCount:           total,
		Limit:                page.Limit,
		Offset:               page.Offset,
		HasMore:              page.Offset+len(data) < total,
		QueryDurationSeconds: math.Round(elapsed.Seconds()*100) / 100,
	}
	if total > LargeResultThreshold {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Large dataset (%d total records). Consider using pagination with limit and offset parameters.", total))
	}
	if elapsed > LongQueryThreshold {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Long-running query (%.1fs). Consider adding more specific filters or pagination.", elapsed.Seconds()))
		log.Warn().Str("table", table).Dur("elapsed", elapsed).Msg("long query duration")
	}

	log.Info().Str("table", table).Int("count", result.Count).Int("total", total).Msg("query served")
	return result, nil
}

// TableList names the tables that hold at least one row for any of the
// requested devices.
type TableList struct {
	Tables []string `json:"tables"`
	Count  int      `json:"count"`
}

// TablesForDevices scans every user table for rows belonging to the given
// devices. Tables without a device_id column simply don't match; they are
// skipped, not errors.
func (e *Engine) TablesForDevices(ctx context.Context, deviceIDs []string) (*TableList, error) {
	if len(deviceIDs) == 0 {
		return nil, gateway.ValidationWrap(gateway.ErrMissingFilter, "no device ids given")
	}

	tables, err := e.store.Tables(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := e.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	d := e.store.Dialect()
	args := make([]any, len(deviceIDs))
	for i, id := range deviceIDs {
		args[i] = id
	}

	matched := []string{}
	for _, table := range tables {
		// tables outside the identifier allow-list cannot be probed safely
		if !sqlbuild.ValidIdent(table) {
			log.Debug().Str("table", table).Msg("skipped during device scan")
			continue
		}
		query, err := sqlbuild.ExistsForAny(d, table, "device_id", len(deviceIDs))
		if err != nil {
			return nil, err
		}

		var one int
		err = conn.QueryRowContext(ctx, query, args...).Scan(&one)
		switch {
		case err == nil:
			matched = append(matched, table)
		case errors.Is(err, sql.ErrNoRows):
			// has a device_id column, no rows for these devices
		default:
			// most likely no device_id column in this table
			log.Debug().Str("table", table).Err(err).Msg("skipped during device scan")
		}
	}

	log.Info().Int("tables", len(matched)).Int("devices", len(deviceIDs)).Msg("device table scan served")
	return &TableList{Tables: matched, Count: len(matched)}, nil
}

func readRows(ctx context.Context, conn *sql.Conn, query string, args []any) ([]gateway.Record, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, gateway.ExecutionWrap(err, "select query failed")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, gateway.ExecutionWrap(err, "read result columns")
	}

	data := []gateway.Record{}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, gateway.ExecutionWrap(err, "scan row")
		}
		rec := make(gateway.Record, len(cols))
		for i, name := range cols {
			rec[i] = gateway.Column{Name: name, Value: normalize(values[i])}
		}
		data = append(data, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, gateway.ExecutionWrap(err, "iterate rows")
	}
	return data, nil
}

// normalize folds driver-specific scan types into the record value domain.
// MySQL hands text columns back as []byte; the engines and clients work in
// strings.
func normalize(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	default:
		return v
	}
}
