package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// mysqlDriver is the default store: the AWARE client protocol grew up
// against MySQL and the measurement/event table shapes live there.
type mysqlDriver struct{}

func init() {
	Register("mysql", mysqlDriver{})
}

func (mysqlDriver) Open(cfg Config) (*sql.DB, error) {
	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.DBName = cfg.Database
	mc.Timeout = cfg.Timeout
	mc.ParseTime = true

	return sql.Open("mysql", mc.FormatDSN())
}

func (mysqlDriver) Tables(ctx context.Context, db *sql.DB) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		ORDER BY table_name
	`
	return scanNames(ctx, db, query)
}

func (mysqlDriver) Columns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position
	`
	return scanColumns(ctx, db, query, table)
}

// scanNames runs a single-column query and collects the results. Shared by
// the information_schema based drivers; an empty result is a valid answer.
func scanNames(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// scanColumns is scanNames for column introspection, where an empty result
// means the table does not exist.
func scanColumns(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	cols, err := scanNames(ctx, db, query, args...)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found or has no columns", args[len(args)-1])
	}
	return cols, nil
}
