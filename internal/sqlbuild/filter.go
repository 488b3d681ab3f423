package sqlbuild

import (
	"strings"

	"github.com/polalpha/aware-gateway/internal/gateway"
)

// Filter is one bound WHERE condition: a predicate template containing
// exactly one "?" placeholder, plus the value bound to it.
type Filter struct {
	Expr  string
	Value any
}

// validate checks the single-placeholder invariant. Filters built through
// the helpers below always pass; hand-built filters are checked the same
// way before they reach a statement.
func (f Filter) validate() error {
	if n := strings.Count(f.Expr, "?"); n != 1 {
		return gateway.Validationf("filter %q must contain exactly one placeholder, has %d", f.Expr, n)
	}
	return nil
}

func comparison(d Dialect, column, op string, value any) (Filter, error) {
	if !ValidIdent(column) {
		return Filter{}, gateway.Validationf("invalid column name %q", column)
	}
	return Filter{Expr: d.Quote(column) + " " + op + " ?", Value: value}, nil
}

// Eq builds a "column = value" filter from a validated column name.
func Eq(d Dialect, column string, value any) (Filter, error) {
	return comparison(d, column, "=", value)
}

// GTE builds a "column >= value" filter.
func GTE(d Dialect, column string, value any) (Filter, error) {
	return comparison(d, column, ">=", value)
}

// LTE builds a "column <= value" filter.
func LTE(d Dialect, column string, value any) (Filter, error) {
	return comparison(d, column, "<=", value)
}

// whereClause joins the filter templates with AND, in filter order, and
// returns the parallel value slice. An empty filter set yields no WHERE at
// all.
func whereClause(filters []Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	exprs := make([]string, len(filters))
	args := make([]any, len(filters))
	for i, f := range filters {
		if err := f.validate(); err != nil {
			return "", nil, err
		}
		exprs[i] = f.Expr
		args[i] = f.Value
	}
	return " WHERE " + strings.Join(exprs, " AND "), args, nil
}
