package sqlbuild

import (
	"strings"

	"github.com/polalpha/aware-gateway/internal/gateway"
)

// Statements is a matched pair of read statements sharing one WHERE
// fragment: the bounded row select and the COUNT(*) used for total-match
// sizing.
type Statements struct {
	Select     string
	Count      string
	SelectArgs []any // filter values followed by limit and offset
	CountArgs  []any // filter values only
}

// Select builds the paginated select and its count twin. The table name is
// validated against the identifier pattern, the pagination window against
// the hard bounds; both checks happen here so no statement with a bad input
// is ever produced. Limit and offset are bound parameters, not SQL text.
func Select(d Dialect, table string, filters []Filter, page gateway.Page) (*Statements, error) {
	if !ValidIdent(table) {
		return nil, gateway.ValidationWrap(gateway.ErrInvalidTable, "table %q", table)
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}

	where, args, err := whereClause(filters)
	if err != nil {
		return nil, err
	}

	sel := "SELECT * FROM " + d.Quote(table) + where + " LIMIT ? OFFSET ?"
	count := "SELECT COUNT(*) FROM " + d.Quote(table) + where

	selectArgs := make([]any, 0, len(args)+2)
	selectArgs = append(selectArgs, args...)
	selectArgs = append(selectArgs, page.Limit, page.Offset)

	return &Statements{
		Select:     rebind(d, sel),
		Count:      rebind(d, count),
		SelectArgs: selectArgs,
		CountArgs:  args,
	}, nil
}

// Insert builds an INSERT whose column list is exactly the record's keys in
// record order. Column names are validated like table names; values are
// bound.
func Insert(d Dialect, table string, rec gateway.Record) (string, []any, error) {
	if !ValidIdent(table) {
		return "", nil, gateway.ValidationWrap(gateway.ErrInvalidTable, "table %q", table)
	}
	if len(rec) == 0 {
		return "", nil, gateway.Validationf("record has no columns")
	}

	cols := make([]string, len(rec))
	marks := make([]string, len(rec))
	for i, c := range rec {
		if !ValidIdent(c.Name) {
			return "", nil, gateway.Validationf("invalid column name %q", c.Name)
		}
		cols[i] = d.Quote(c.Name)
		marks[i] = "?"
	}

	sql := "INSERT INTO " + d.Quote(table) +
		" (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"

	return rebind(d, sql), rec.Values(), nil
}

// ExistsForAny builds an existence probe: does table hold at least one row
// whose column matches any of n bound values? Both identifiers are
// validated; the values stay bound.
func ExistsForAny(d Dialect, table, column string, n int) (string, error) {
	if !ValidIdent(table) {
		return "", gateway.ValidationWrap(gateway.ErrInvalidTable, "table %q", table)
	}
	if !ValidIdent(column) {
		return "", gateway.Validationf("invalid column name %q", column)
	}
	if n < 1 {
		return "", gateway.Validationf("existence probe needs at least one value")
	}

	marks := make([]string, n)
	for i := range marks {
		marks[i] = "?"
	}
	sql := "SELECT 1 FROM " + d.Quote(table) +
		" WHERE " + d.Quote(column) + " IN (" + strings.Join(marks, ", ") + ") LIMIT 1"

	return rebind(d, sql), nil
}
