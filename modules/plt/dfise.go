package plt

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Data is the content of a DF-ISE xy-plot file: one column per dataset.
type Data struct {
	Columns []string
	Rows    [][]float64
}

var quoted = regexp.MustCompile(`"([^"]*)"`)

// Parse reads a DF-ISE .plt file. The dataset names are the quoted strings of
// the first [...] list; the values are the whitespace-separated numbers of
// the Data block, row by row.
func Parse(r io.Reader) (*Data, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	content := string(raw)

	open := strings.Index(content, "[")
	if open < 0 {
		return nil, fmt.Errorf("no dataset list")
	}
	closing := strings.Index(content[open:], "]")
	if closing < 0 {
		return nil, fmt.Errorf("unterminated dataset list")
	}
	var columns []string
	for _, m := range quoted.FindAllStringSubmatch(content[open:open+closing], -1) {
		columns = append(columns, m[1])
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("empty dataset list")
	}

	_, body, ok := strings.Cut(content, "Data {")
	if !ok {
		return nil, fmt.Errorf("no Data block")
	}
	body, _, _ = strings.Cut(body, "}")
	fields := strings.Fields(body)
	if len(fields)%len(columns) != 0 {
		return nil, fmt.Errorf("%d values do not fill rows of %d columns", len(fields), len(columns))
	}

	d := &Data{Columns: columns}
	for i := 0; i < len(fields); i += len(columns) {
		row := make([]float64, len(columns))
		for j := range columns {
			v, err := strconv.ParseFloat(fields[i+j], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", len(d.Rows), columns[j], err)
			}
			row[j] = v
		}
		d.Rows = append(d.Rows, row)
	}
	return d, nil
}

// ParseFile parses the file at path.
func ParseFile(path string) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Column returns the values of one dataset.
func (d *Data) Column(name string) ([]float64, bool) {
	for j, c := range d.Columns {
		if c == name {
			out := make([]float64, len(d.Rows))
			for i, row := range d.Rows {
				out[i] = row[j]
			}
			return out, true
		}
	}
	return nil, false
}

// Map returns every dataset by name.
func (d *Data) Map() map[string]any {
	out := make(map[string]any, len(d.Columns))
	for _, c := range d.Columns {
		out[c], _ = d.Column(c)
	}
	return out
}

// WriteCSV writes a header line and one line per row.
func (d *Data) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Columns); err != nil {
		return err
	}
	rec := make([]string, len(d.Columns))
	for _, row := range d.Rows {
		for j, v := range row {
			rec[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
