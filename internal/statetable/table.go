package statetable

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrDefaultsShape is returned when defaults are merged with a design
	// table while holding anything other than exactly one row.
	ErrDefaultsShape = errors.New("defaults must hold exactly one row")
	// ErrRowRange is returned for row indices outside the table.
	ErrRowRange = errors.New("row index out of range")
	// ErrNoColumn is returned when reading a column that does not exist.
	ErrNoColumn = errors.New("no such column")
)

// Kind is the declared type of a column.
type Kind int

const (
	// Numeric columns hold float64 cells.
	Numeric Kind = iota
	// Opaque columns hold arbitrary values, typically strings.
	Opaque
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Opaque:
		return "opaque"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type column struct {
	name   string
	kind   Kind
	values []any
}

// Table is an ordered, columnar table of runs.
type Table struct {
	columns []*column
	index   map[string]int
	rows    int
}

// New returns an empty table with no rows and no columns.
func New() *Table {
	return &Table{index: make(map[string]int)}
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int { return t.rows }

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int { return len(t.columns) }

// Columns returns the column names in table order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

// HasColumn reports whether a column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Kind returns the declared kind of a column.
func (t *Table) Kind(name string) (Kind, bool) {
	i, ok := t.index[name]
	if !ok {
		return 0, false
	}
	return t.columns[i].kind, true
}

// Column returns a copy of all cells of a column.
func (t *Table) Column(name string) ([]any, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	out := make([]any, t.rows)
	copy(out, t.columns[i].values)
	return out, nil
}

// Value returns a single cell.
func (t *Table) Value(name string, row int) (any, error) {
	if err := t.checkRow(row); err != nil {
		return nil, err
	}
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	return t.columns[i].values[row], nil
}

// Row returns every column value of one row.
func (t *Table) Row(row int) (Row, error) {
	if err := t.checkRow(row); err != nil {
		return Row{}, err
	}
	r := Row{
		index:  row,
		names:  t.Columns(),
		values: make(map[string]any, len(t.columns)),
	}
	for _, c := range t.columns {
		r.values[c.name] = c.values[row]
	}
	return r, nil
}

// SetAt writes a single cell, creating the column if needed. A new column
// is Numeric unless value is not a number; writing a non-number into a
// Numeric column promotes it to Opaque.
func (t *Table) SetAt(name string, value any, row int) error {
	if name == "" {
		return errors.New("column name must not be empty")
	}
	if err := t.checkRow(row); err != nil {
		return err
	}

	num, isNum := toNumber(value)
	c := t.column(name)
	if c == nil {
		kind := Numeric
		if !isNum && value != nil {
			kind = Opaque
		}
		c = t.addColumn(name, kind)
	}

	switch {
	case value == nil:
		c.values[row] = nil
	case c.kind == Numeric && isNum:
		c.values[row] = num
	case c.kind == Numeric:
		c.kind = Opaque
		c.values[row] = value
	default:
		c.values[row] = value
	}
	return nil
}

// SetForAllRows applies SetAt to every row.
func (t *Table) SetForAllRows(name string, value any) error {
	for i := 0; i < t.rows; i++ {
		if err := t.SetAt(name, value, i); err != nil {
			return err
		}
	}
	return nil
}

// AppendRow adds one row at the end of the table. Columns missing from r
// are left unset; columns unknown to the table are created.
func (t *Table) AppendRow(r Row) (int, error) {
	idx := t.rows
	t.rows++
	for _, c := range t.columns {
		c.values = append(c.values, nil)
	}
	for _, name := range r.names {
		if err := t.SetAt(name, r.values[name], idx); err != nil {
			return idx, err
		}
	}
	return idx, nil
}

// Clone returns a deep copy of the table structure. Cell values are copied
// by assignment.
func (t *Table) Clone() *Table {
	out := New()
	out.rows = t.rows
	for _, c := range t.columns {
		nc := &column{name: c.name, kind: c.kind, values: make([]any, len(c.values))}
		copy(nc.values, c.values)
		out.index[nc.name] = len(out.columns)
		out.columns = append(out.columns, nc)
	}
	return out
}

func (t *Table) column(name string) *column {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	return t.columns[i]
}

func (t *Table) addColumn(name string, kind Kind) *column {
	c := &column{name: name, kind: kind, values: make([]any, t.rows)}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, c)
	return c
}

func (t *Table) checkRow(row int) error {
	if row < 0 || row >= t.rows {
		return fmt.Errorf("%w: %d (rows: %d)", ErrRowRange, row, t.rows)
	}
	return nil
}

// toNumber reports whether v is numeric and returns it as float64. Strings
// count when they parse as a finite float; booleans count as 0/1.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return toNumber(float64(n))
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// IsNumeric reports whether v would be stored as a number.
func IsNumeric(v any) bool {
	_, ok := toNumber(v)
	return ok
}

// ToFloat converts v the way numeric cells are stored.
func ToFloat(v any) (float64, bool) {
	return toNumber(v)
}
