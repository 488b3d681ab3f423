package gateway

// Pagination bounds. The maximum exists to keep a single response from
// exhausting gateway memory.
const (
	DefaultLimit = 10000
	MaxLimit     = 50000
)

// Page is the (limit, offset) window bounding a read.
type Page struct {
	Limit  int
	Offset int
}

// DefaultPage returns the window used when the caller supplies neither
// limit nor offset.
func DefaultPage() Page {
	return Page{Limit: DefaultLimit, Offset: 0}
}

// Validate enforces 1 <= limit <= MaxLimit and offset >= 0. These are hard
// invariants checked before any statement executes.
func (p Page) Validate() error {
	if p.Limit <= 0 {
		return ValidationWrap(ErrBadPagination, "limit must be positive, got %d", p.Limit)
	}
	if p.Limit > MaxLimit {
		return ValidationWrap(ErrBadPagination, "limit cannot exceed %d records, got %d", MaxLimit, p.Limit)
	}
	if p.Offset < 0 {
		return ValidationWrap(ErrBadPagination, "offset cannot be negative, got %d", p.Offset)
	}
	return nil
}
