package statetable

import (
	"fmt"
	"strconv"
)

// Row is a read-only view of one run: ordered column names and their values.
type Row struct {
	index  int
	names  []string
	values map[string]any
}

// NewRow builds a detached row from ordered names and a value map. Names
// missing from values are kept with a nil value.
func NewRow(index int, names []string, values map[string]any) Row {
	r := Row{
		index:  index,
		names:  append([]string(nil), names...),
		values: make(map[string]any, len(names)),
	}
	for _, n := range names {
		r.values[n] = values[n]
	}
	return r
}

// Index is the row position in the table it came from.
func (r Row) Index() int { return r.index }

// Columns returns the column names in order.
func (r Row) Columns() []string { return append([]string(nil), r.names...) }

// Len returns the number of columns in the row.
func (r Row) Len() int { return len(r.names) }

// Has reports whether the row carries the column.
func (r Row) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Get returns the value of a column.
func (r Row) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// String formats a column value. Missing and nil cells format as "".
func (r Row) String(name string) string {
	return FormatValue(r.values[name])
}

// Float returns a column value as a number.
func (r Row) Float(name string) (float64, error) {
	v, ok := r.values[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	f, ok := toNumber(v)
	if !ok {
		return 0, fmt.Errorf("column %q is not numeric: %v", name, v)
	}
	return f, nil
}

// Map returns a copy of the row as a plain map.
func (r Row) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// FormatValue renders a cell the way it is written to CSV files.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	default:
		return fmt.Sprint(x)
	}
}
