package domain

import (
	"fmt"
	"strings"
)

// Row is one record keyed by canonical column name.
type Row map[string]any

// Table is the engine's columnar result shape: an ordered column list plus
// rows. A valid query with zero matches returns a Table with the right
// columns and no rows, never a nil table.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable constructs an empty table with the given column order.
func NewTable(columns ...string) Table {
	return Table{Columns: columns, Rows: []Row{}}
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// IsEmpty reports whether the table holds no rows.
func (t Table) IsEmpty() bool { return len(t.Rows) == 0 }

// Append adds rows, extending the column list with any new keys so that the
// table stays self-describing.
func (t *Table) Append(rows ...Row) {
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		seen[c] = true
	}
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				t.Columns = append(t.Columns, k)
			}
		}
		t.Rows = append(t.Rows, r)
	}
}

// Project returns a table restricted to the requested columns, preserving the
// requested order. Unknown column names are ignored rather than erroring, so
// a caller asking for a column a provider never produced gets an absent
// column, not a failure.
func (t Table) Project(columns []string) Table {
	if len(columns) == 0 {
		return t
	}
	have := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		have[c] = true
	}
	var cols []string
	for _, c := range columns {
		if have[c] {
			cols = append(cols, c)
		}
	}
	out := Table{Columns: cols, Rows: make([]Row, 0, len(t.Rows))}
	for _, r := range t.Rows {
		nr := make(Row, len(cols))
		for _, c := range cols {
			if v, ok := r[c]; ok {
				nr[c] = v
			}
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

// Head returns a table truncated to at most n rows. n <= 0 means no limit.
func (t Table) Head(n int) Table {
	if n <= 0 || len(t.Rows) <= n {
		return t
	}
	return Table{Columns: t.Columns, Rows: t.Rows[:n]}
}

// Merge combines other into t as an order-independent set. Row identity is
// the tuple of values under idColumns; a row whose identity already exists is
// skipped. Fan-out workers rely on this to assemble per-game fetches without
// any ordering guarantee.
func (t *Table) Merge(other Table, idColumns ...string) {
	if len(idColumns) == 0 {
		t.Append(other.Rows...)
		return
	}
	seen := make(map[string]bool, len(t.Rows))
	for _, r := range t.Rows {
		seen[rowIdentity(r, idColumns)] = true
	}
	for _, r := range other.Rows {
		id := rowIdentity(r, idColumns)
		if seen[id] {
			continue
		}
		seen[id] = true
		t.Append(r)
	}
}

func rowIdentity(r Row, idColumns []string) string {
	var b strings.Builder
	for i, c := range idColumns {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		fmt.Fprintf(&b, "%v", r[c])
	}
	return b.String()
}

// String returns the value under col as a string, tolerating providers that
// emit numbers where ids are expected.
func (r Row) String(col string) string {
	v, ok := r[col]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Float returns the value under col as a float64 when it is any numeric type.
func (r Row) Float(col string) (float64, bool) {
	switch v := r[col].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Int returns the value under col as an int when it is integral.
func (r Row) Int(col string) (int, bool) {
	f, ok := r.Float(col)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
