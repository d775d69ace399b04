package statetable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// ReadCSV parses a header line followed by records. Column kinds are
// inferred: a column is Numeric when every non-empty cell parses as a
// finite float. Empty cells are left unset.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("csv input has no header line")
	}
	return FromRecords(records[0], records[1:])
}

// ReadCSVFile is ReadCSV over a file path.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// FromRecords builds a table from a header and string records.
func FromRecords(header []string, records [][]string) (*Table, error) {
	t := New()
	t.rows = len(records)
	for ci, raw := range header {
		name := strings.TrimSpace(raw)
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty name", ci)
		}
		if t.HasColumn(name) {
			return nil, fmt.Errorf("duplicate column %q", name)
		}

		kind := Numeric
		for _, rec := range records {
			if ci >= len(rec) || strings.TrimSpace(rec[ci]) == "" {
				continue
			}
			if !IsNumeric(rec[ci]) {
				kind = Opaque
				break
			}
		}

		c := t.addColumn(name, kind)
		for ri, rec := range records {
			if ci >= len(rec) {
				continue
			}
			cell := strings.TrimSpace(rec[ci])
			if cell == "" {
				continue
			}
			if kind == Numeric {
				c.values[ri], _ = toNumber(cell)
			} else {
				c.values[ri] = cell
			}
		}
	}
	return t, nil
}

// FromMap builds a single-row table. Keys are sorted for a stable column
// order. Values must be scalars.
func FromMap(values map[string]any) (*Table, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := New()
	t.rows = 1
	for _, k := range keys {
		if err := checkScalar(k, values[k]); err != nil {
			return nil, err
		}
		if err := t.SetAt(k, values[k], 0); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// LoadDefaults replaces the table content with a single defaults row.
// source is either a map[string]any, a path to a one-row CSV file, or a
// path to a YAML/JSON mapping.
func (t *Table) LoadDefaults(source any) error {
	var (
		loaded *Table
		err    error
	)
	switch s := source.(type) {
	case map[string]any:
		loaded, err = FromMap(s)
	case string:
		loaded, err = loadDefaultsFile(s)
	default:
		return fmt.Errorf("unsupported defaults source %T", source)
	}
	if err != nil {
		return err
	}
	if loaded.RowCount() != 1 {
		return fmt.Errorf("%w: got %d", ErrDefaultsShape, loaded.RowCount())
	}
	*t = *loaded
	return nil
}

// LoadDesign reads an N-row design CSV and merges it against the current
// content. An empty table simply becomes the design table.
func (t *Table) LoadDesign(path string) error {
	design, err := ReadCSVFile(path)
	if err != nil {
		return err
	}
	if t.ColumnCount() == 0 && t.RowCount() == 0 {
		*t = *design
		return nil
	}
	merged, err := Merge(t, design)
	if err != nil {
		return err
	}
	*t = *merged
	return nil
}

// Merge broadcasts a single defaults row over the rows of design. Design
// columns win; columns only present in defaults are copied to every row.
// Design columns come first in the result.
func Merge(defaults, design *Table) (*Table, error) {
	if defaults.RowCount() != 1 {
		return nil, fmt.Errorf("%w: got %d", ErrDefaultsShape, defaults.RowCount())
	}

	out := design.Clone()
	for _, c := range defaults.columns {
		if out.HasColumn(c.name) {
			continue
		}
		nc := out.addColumn(c.name, c.kind)
		for i := range nc.values {
			nc.values[i] = c.values[0]
		}
	}
	return out, nil
}

// WriteCSV writes the table with a leading index column. An empty
// indexLabel omits the index column.
func (t *Table) WriteCSV(w io.Writer, indexLabel string) error {
	cw := csv.NewWriter(w)

	header := t.Columns()
	if indexLabel != "" {
		header = append([]string{indexLabel}, header...)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := 0; i < t.rows; i++ {
		rec := make([]string, 0, len(header))
		if indexLabel != "" {
			rec = append(rec, strconv.Itoa(i))
		}
		for _, c := range t.columns {
			rec = append(rec, FormatValue(c.values[i]))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the table to path, replacing any previous content. The
// file is written to a sibling temp file first and renamed into place, so
// readers never observe a half-written table.
func (t *Table) ExportCSV(path, indexLabel string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if err := t.WriteCSV(tmp, indexLabel); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}

func loadDefaultsFile(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return readMappingFile(path)
	default:
		return ReadCSVFile(path)
	}
}

// readMappingFile reads a flat YAML (or JSON) mapping, keeping key order.
func readMappingFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items yaml.MapSlice
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	t := New()
	t.rows = 1
	for _, item := range items {
		key := fmt.Sprint(item.Key)
		if t.HasColumn(key) {
			return nil, fmt.Errorf("%s: duplicate key %q", path, key)
		}
		if err := checkScalar(key, item.Value); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := t.SetAt(key, item.Value, 0); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func checkScalar(key string, v any) error {
	switch v.(type) {
	case nil, string, bool, float32, float64,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return nil
	default:
		return fmt.Errorf("value of %q must be a scalar, got %T", key, v)
	}
}
