package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// sqliteDriver backs dev mode and the engine tests: an in-memory database
// stands in for MySQL when no server is around.
type sqliteDriver struct{}

func init() {
	Register("sqlite", sqliteDriver{})
}

func (sqliteDriver) Open(cfg Config) (*sql.DB, error) {
	dsn := cfg.Database
	if dsn == "" || dsn == ":memory:" {
		// A plain :memory: DSN gives every pooled connection its own empty
		// database. A named shared-cache database keeps the pool coherent
		// while staying private to this provider.
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	}
	return sql.Open("sqlite", dsn)
}

func (sqliteDriver) Tables(ctx context.Context, db *sql.DB) ([]string, error) {
	query := `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`
	return scanNames(ctx, db, query)
}

func (sqliteDriver) Columns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	// table is identifier-validated by the provider before it gets here;
	// PRAGMA does not take bound parameters.
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found or has no columns", table)
	}
	return cols, nil
}
