package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// Table is a result set of named columns. Values are normalized to nil,
// int64, float64, string, bool or time.Time regardless of the backend.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Len returns the number of rows. A nil table has no rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}

	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// Index returns the position of a column or -1.
func (t *Table) Index(column string) int {
	if t == nil {
		return -1
	}

	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}

	return -1
}

// Value returns the value of column in row i, or nil when either is missing.
func (t *Table) Value(i int, column string) any {
	idx := t.Index(column)
	if idx < 0 || i < 0 || i >= t.Len() {
		return nil
	}

	return t.Rows[i][idx]
}

// Row returns row i as a column name to value mapping.
func (t *Table) Row(i int) map[string]any {
	if i < 0 || i >= t.Len() {
		return nil
	}

	row := make(map[string]any, len(t.Columns))
	for j, c := range t.Columns {
		row[c] = t.Rows[i][j]
	}

	return row
}

// Records returns every row as a column name to value mapping.
func (t *Table) Records() []map[string]any {
	res := make([]map[string]any, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		res = append(res, t.Row(i))
	}

	return res
}

// Map applies fn to every value of column in place.
func (t *Table) Map(column string, fn func(any) any) {
	idx := t.Index(column)
	if idx < 0 {
		return
	}

	for _, row := range t.Rows {
		row[idx] = fn(row[idx])
	}
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint32:
		return int64(val)
	case float32:
		return float64(val)
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}

		return f.Float64
	default:
		return v
	}
}
