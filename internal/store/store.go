// Package store is the connection provider: it opens a pooled connection to
// the configured relational engine, hands request-scoped connections to the
// engines, and surfaces connectivity failures distinctly from query
// failures. Engine dialects register themselves through the factory in
// their init functions, one file per engine.
package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/polalpha/aware-gateway/internal/gateway"
	"github.com/polalpha/aware-gateway/internal/sqlbuild"
)

// Config is the explicit connection configuration. Values are passed in,
// never read from ambient process state.
type Config struct {
	Type     string        `yaml:"type"`      // "mysql", "postgres", "sqlite"; default mysql
	Host     string        `yaml:"host"`      // default localhost
	Port     int           `yaml:"port"`      // default 3306
	User     string        `yaml:"user"`      // default root
	Password string        `yaml:"password"`  // default empty
	Database string        `yaml:"database"`  // default aware_database
	Timeout  time.Duration `yaml:"timeout"`   // connect/ping timeout, default 10s
	MaxConns int           `yaml:"max_conns"` // pool size, default 10
}

func (c Config) withDefaults() Config {
	if c.Type == "" {
		c.Type = "mysql"
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 3306
	}
	if c.User == "" {
		c.User = "root"
	}
	if c.Database == "" {
		c.Database = "aware_database"
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	return c
}

// Driver is implemented once per engine: it turns a Config into an open
// pool and knows how to read the schema's table list and a table's actual
// column set.
type Driver interface {
	Open(cfg Config) (*sql.DB, error)
	Tables(ctx context.Context, db *sql.DB) ([]string, error)
	Columns(ctx context.Context, db *sql.DB, table string) ([]string, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Driver)
)

// Register makes a driver available under the given store type. Called from
// driver init functions.
func Register(storeType string, d Driver) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[storeType] = d
}

// Provider owns the connection pool for one configured store.
type Provider struct {
	db      *sql.DB
	cfg     Config
	driver  Driver
	dialect sqlbuild.Dialect
}

// Open creates a provider for cfg and verifies the store is reachable.
// An unreachable store comes back as a connection-category error so the
// caller can map it to service-unavailable.
func Open(ctx context.Context, cfg Config) (*Provider, error) {
	cfg = cfg.withDefaults()

	registryMu.RLock()
	driver, ok := registry[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, gateway.Validationf("unknown store type %q", cfg.Type)
	}

	dialect, err := sqlbuild.DialectFor(cfg.Type)
	if err != nil {
		return nil, gateway.Validationf("%v", err)
	}

	db, err := driver.Open(cfg)
	if err != nil {
		return nil, gateway.ConnectionWrap(err, "open database")
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, gateway.ConnectionWrap(err, "database connection failed")
	}

	return &Provider{db: db, cfg: cfg, driver: driver, dialect: dialect}, nil
}

// Acquire checks a connection out of the pool for the duration of one
// request. The caller must Close it on every exit path.
func (p *Provider) Acquire(ctx context.Context) (*sql.Conn, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, gateway.ConnectionWrap(err, "database connection failed")
	}
	return conn, nil
}

// Columns returns the table's actual column set, in ordinal position order.
// The insertion engine uses it as the capability check for caller-supplied
// column names.
func (p *Provider) Columns(ctx context.Context, table string) ([]string, error) {
	if !sqlbuild.ValidIdent(table) {
		return nil, gateway.ValidationWrap(gateway.ErrInvalidTable, "table %q", table)
	}
	cols, err := p.driver.Columns(ctx, p.db, table)
	if err != nil {
		return nil, gateway.ExecutionWrap(err, "read table columns")
	}
	return cols, nil
}

// Tables lists the user tables of the configured database, in name order.
func (p *Provider) Tables(ctx context.Context) ([]string, error) {
	tables, err := p.driver.Tables(ctx, p.db)
	if err != nil {
		return nil, gateway.ExecutionWrap(err, "list tables")
	}
	return tables, nil
}

// Ping reports whether the store is reachable; used by the health endpoint.
func (p *Provider) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	if err := p.db.PingContext(pingCtx); err != nil {
		return gateway.ConnectionWrap(err, "database connection failed")
	}
	return nil
}

// Dialect returns the SQL dialect for the configured engine.
func (p *Provider) Dialect() sqlbuild.Dialect { return p.dialect }

// Close shuts the pool down.
func (p *Provider) Close() error { return p.db.Close() }
