// Package sqlbuild renders parameterised SQL for the insertion and retrieval
// engines. Identifiers (table and column names) are validated against a
// restrictive pattern and quoted per dialect; everything else travels as a
// bound parameter — nothing caller-supplied is ever concatenated into SQL
// text.
package sqlbuild

import (
	"fmt"
	"regexp"
	"strings"
)

// Dialect abstracts the two things that differ between engines when
// rendering a statement: identifier quoting and placeholder style.
type Dialect interface {
	Name() string
	Quote(ident string) string
	// Placeholder returns the marker for the n-th bound value (1-based).
	Placeholder(n int) string
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string              { return "mysql" }
func (mysqlDialect) Quote(ident string) string { return "`" + ident + "`" }
func (mysqlDialect) Placeholder(int) string    { return "?" }

type postgresDialect struct{}

func (postgresDialect) Name() string              { return "postgres" }
func (postgresDialect) Quote(ident string) string { return `"` + ident + `"` }
func (postgresDialect) Placeholder(n int) string  { return fmt.Sprintf("$%d", n) }

type sqliteDialect struct{}

func (sqliteDialect) Name() string              { return "sqlite" }
func (sqliteDialect) Quote(ident string) string { return `"` + ident + `"` }
func (sqliteDialect) Placeholder(int) string    { return "?" }

var dialects = map[string]Dialect{
	"mysql":    mysqlDialect{},
	"postgres": postgresDialect{},
	"sqlite":   sqliteDialect{},
}

// DialectFor returns the dialect for a store type.
func DialectFor(storeType string) (Dialect, error) {
	d, ok := dialects[storeType]
	if !ok {
		return nil, fmt.Errorf("unknown dialect: %s", storeType)
	}
	return d, nil
}

// identPattern is the allow-list for identifiers. Table and column names
// cannot be parameter-bound, so anything interpolated into SQL text must
// match it first.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent reports whether s is safe to use as a quoted identifier.
func ValidIdent(s string) bool {
	return identPattern.MatchString(s)
}

// rebind renumbers the generic "?" markers in sql for the dialect. For
// dialects whose Placeholder is "?" the statement comes back unchanged.
func rebind(d Dialect, sql string) string {
	if d.Placeholder(1) == "?" {
		return sql
	}
	var b strings.Builder
	b.Grow(len(sql) + 8)
	n := 0
	for i := 0; i < len(sql); i++ {
		if sql[i] == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteByte(sql[i])
	}
	return b.String()
}
