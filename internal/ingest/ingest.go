// Package ingest is the insertion engine: it validates and writes one or
// many heterogeneous records into a named table, tracking per-record
// success and failure. A record that cannot be written is data, not
// control flow — bulk callers keep processing the rest of the batch.
package ingest

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"

	"github.com/polalpha/aware-gateway/internal/gateway"
	"github.com/polalpha/aware-gateway/internal/sqlbuild"
	"github.com/polalpha/aware-gateway/internal/stats"
)

// Store is the slice of the connection provider the engine consumes.
type Store interface {
	Acquire(ctx context.Context) (*sql.Conn, error)
	Columns(ctx context.Context, table string) ([]string, error)
	Dialect() sqlbuild.Dialect
}

// Engine writes records through a Store.
type Engine struct {
	store Store
}

// New creates an insertion engine on top of st.
func New(st Store) *Engine {
	return &Engine{store: st}
}

// Summary reports the outcome of a batch insertion.
type Summary struct {
	Status   string `json:"status"` // "ok", "partial" or "error"
	Inserted int    `json:"inserted"`
	Errors   int    `json:"errors"`
	Message  string `json:"message,omitempty"` // set when every record failed
}

// OK reports full success: a non-empty batch with zero failures.
func (s *Summary) OK() bool { return s.Status == "ok" }

// InsertOne writes a single record. The boolean result and message are the
// whole contract: failures are reported, never raised, and the stats
// accumulator is incremented either way.
func (e *Engine) InsertOne(ctx context.Context, table string, rec gateway.Record, st *stats.Stats) (bool, string) {
	colset, err := e.tableColumns(ctx, table)
	if err != nil {
		st.InsertFailed()
		return false, failureMessage(err)
	}
	return e.insertRecord(ctx, table, colset, rec, st)
}

// InsertMany writes a batch with per-record isolation. An empty batch is a
// caller error (gateway.ErrEmptyBatch), distinct from a batch whose records
// all failed. An unreachable store aborts the whole call with a
// connection-category error; any other table-level failure marks every
// record failed and is reported in the summary instead.
func (e *Engine) InsertMany(ctx context.Context, table string, records []gateway.Record, st *stats.Stats) (*Summary, error) {
	if len(records) == 0 {
		return nil, gateway.ValidationWrap(gateway.ErrEmptyBatch, "no records to insert")
	}
	if !sqlbuild.ValidIdent(table) {
		return nil, gateway.ValidationWrap(gateway.ErrInvalidTable, "table %q", table)
	}

	colset, err := e.tableColumns(ctx, table)
	if err != nil {
		if gateway.CategoryOf(err) == gateway.CategoryConnection {
			return nil, err
		}
		// Table-level execution failure: every record fails as data.
		for range records {
			st.InsertFailed()
		}
		log.Error().Err(err).Str("table", table).Int("records", len(records)).
			Msg("batch failed before first insert")
		return &Summary{Status: "error", Errors: len(records), Message: failureMessage(err)}, nil
	}

	summary := &Summary{}
	var lastMsg string
	for _, rec := range records {
		ok, msg := e.insertRecord(ctx, table, colset, rec, st)
		if ok {
			summary.Inserted++
			continue
		}
		summary.Errors++
		lastMsg = msg
		log.Error().Str("table", table).Str("reason", msg).Msg("failed to insert record")
	}

	switch {
	case summary.Errors == 0:
		summary.Status = "ok"
	case summary.Inserted > 0:
		summary.Status = "partial"
	default:
		summary.Status = "error"
		summary.Message = lastMsg
	}

	log.Info().Str("table", table).
		Int("inserted", summary.Inserted).
		Int("errors", summary.Errors).
		Msg("batch insert finished")

	return summary, nil
}

// insertRecord writes one record against an already-fetched column set.
func (e *Engine) insertRecord(ctx context.Context, table string, colset map[string]bool, rec gateway.Record, st *stats.Stats) (bool, string) {
	// Capability check: the record's column set must be a subset of the
	// table's actual columns. The gateway never invents schema.
	for _, c := range rec {
		if !colset[c.Name] {
			st.InsertFailed()
			return false, "unknown column " + c.Name + " in table " + table
		}
	}

	query, args, err := sqlbuild.Insert(e.store.Dialect(), table, rec)
	if err != nil {
		st.InsertFailed()
		return false, failureMessage(err)
	}

	conn, err := e.store.Acquire(ctx)
	if err != nil {
		st.InsertFailed()
		return false, failureMessage(err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, query, args...); err != nil {
		st.InsertFailed()
		return false, failureMessage(gateway.ExecutionWrap(err, "insert failed"))
	}

	st.InsertOK()
	return true, "data inserted successfully"
}

func (e *Engine) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	cols, err := e.store.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	colset := make(map[string]bool, len(cols))
	for _, c := range cols {
		colset[c] = true
	}
	return colset, nil
}

// failureMessage keeps per-record messages human-readable without leaking
// a wrapped driver error chain twice.
func failureMessage(err error) string {
	if gateway.CategoryOf(err) == gateway.CategoryConnection {
		return "database connection failed"
	}
	return err.Error()
}
