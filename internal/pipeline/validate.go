package pipeline

import (
	"errors"
	"fmt"

	"go-lake-pipeline/internal/model"
	"go-lake-pipeline/pkg/utils"
)

// DefaultRules are the validation rules for the employee dataset.
func DefaultRules() *model.ValidationRules {
	return &model.ValidationRules{
		RequiredFields: []string{"id", "name", "age", "city", "salary"},
		NumericFields:  []string{"id", "age", "salary"},
		MinValues:      map[string]float64{"id": 1},
		UniqueFields:   []string{"id"},
	}
}

// ValidateTable checks t against rules and reports every violation.
// A nil rules value accepts any table.
func ValidateTable(t *model.Table, rules *model.ValidationRules) error {
	if rules == nil {
		// No validation rules defined → pass through
		return nil
	}

	var errs []error

	// Check required fields
	for _, field := range rules.RequiredFields {
		if t.ColumnIndex(field) < 0 {
			errs = append(errs, fmt.Errorf("missing required field: %s", field))
		}
	}

	// Check numeric fields
	for _, field := range rules.NumericFields {
		idx := t.ColumnIndex(field)
		if idx < 0 {
			continue
		}
		if typ := t.Columns[idx].Type; typ != model.TypeInteger && typ != model.TypeFloat {
			errs = append(errs, fmt.Errorf("field %s must be numeric, got %s", field, typ))
		}
	}

	// Check min and max values
	for field, min := range rules.MinValues {
		eachNumber(t, field, func(row int, v float64) {
			if v < min {
				errs = append(errs, fmt.Errorf("row %d: field %s below minimum: got %v, want ≥ %v", row, field, v, min))
			}
		})
	}
	for field, max := range rules.MaxValues {
		eachNumber(t, field, func(row int, v float64) {
			if v > max {
				errs = append(errs, fmt.Errorf("row %d: field %s above maximum: got %v, want ≤ %v", row, field, v, max))
			}
		})
	}

	// Check unique fields
	for _, field := range rules.UniqueFields {
		idx := t.ColumnIndex(field)
		if idx < 0 {
			continue
		}
		seen := make(map[any]int, len(t.Rows))
		for i, row := range t.Rows {
			v := row[idx]
			if v == nil {
				continue
			}
			if first, dup := seen[v]; dup {
				errs = append(errs, fmt.Errorf("row %d: duplicate %s %v (first at row %d)", i, field, v, first))
				continue
			}
			seen[v] = i
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDataset, errors.Join(errs...))
	}
	return nil
}

func eachNumber(t *model.Table, field string, fn func(row int, v float64)) {
	idx := t.ColumnIndex(field)
	if idx < 0 {
		return
	}
	for i, row := range t.Rows {
		if v, ok := utils.Numeric(row[idx]); ok {
			fn(i, v)
		}
	}
}
