package gateway

import (
	"errors"
	"testing"
)

func TestPageValidate_Bounds(t *testing.T) {
	tests := []struct {
		name   string
		page   Page
		wantOK bool
	}{
		{"default window", DefaultPage(), true},
		{"minimum limit", Page{Limit: 1}, true},
		{"maximum limit", Page{Limit: MaxLimit}, true},
		{"zero limit", Page{Limit: 0}, false},
		{"negative limit", Page{Limit: -10}, false},
		{"limit over max", Page{Limit: MaxLimit + 1}, false},
		{"negative offset", Page{Limit: 100, Offset: -5}, false},
		{"large offset", Page{Limit: 100, Offset: 1 << 30}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.page.Validate()
			if (err == nil) != tt.wantOK {
				t.Errorf("Validate(%+v) error = %v, wantOK %v", tt.page, err, tt.wantOK)
			}
			if err != nil && CategoryOf(err) != CategoryValidation {
				t.Errorf("CategoryOf() = %v, want validation", CategoryOf(err))
			}
			if err != nil && !errors.Is(err, ErrBadPagination) {
				t.Errorf("errors.Is(err, ErrBadPagination) = false for %v", err)
			}
		})
	}
}

func TestErrorCategories(t *testing.T) {
	err := ValidationWrap(ErrEmptyBatch, "no records to insert")
	if !errors.Is(err, ErrEmptyBatch) {
		t.Error("errors.Is() lost the ErrEmptyBatch sentinel")
	}
	if CategoryOf(err) != CategoryValidation {
		t.Errorf("CategoryOf() = %v, want validation", CategoryOf(err))
	}

	// Uncategorised errors count as execution failures.
	if CategoryOf(errors.New("boom")) != CategoryExecution {
		t.Error("CategoryOf(plain error) != execution")
	}
}
