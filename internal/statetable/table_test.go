package statetable

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSetAt(t *testing.T) {
	t.Run("numeric column from numbers and numeric strings", func(t *testing.T) {
		tbl, err := FromMap(map[string]any{"a": 1})
		require.NoError(t, err)

		require.NoError(t, tbl.SetAt("x", "2.5", 0))
		kind, ok := tbl.Kind("x")
		require.True(t, ok)
		assert.Equal(t, Numeric, kind)

		v, err := tbl.Value("x", 0)
		require.NoError(t, err)
		assert.Equal(t, 2.5, v)
	})

	t.Run("opaque column from strings", func(t *testing.T) {
		tbl, err := FromMap(map[string]any{"a": 1})
		require.NoError(t, err)

		require.NoError(t, tbl.SetAt("dir", "/tmp/run_0/", 0))
		kind, _ := tbl.Kind("dir")
		assert.Equal(t, Opaque, kind)
	})

	t.Run("non-numeric write promotes the column", func(t *testing.T) {
		tbl := New()
		tbl.rows = 2
		require.NoError(t, tbl.SetAt("c", 1, 0))
		require.NoError(t, tbl.SetAt("c", "text", 1))

		kind, _ := tbl.Kind("c")
		assert.Equal(t, Opaque, kind)
		col, err := tbl.Column("c")
		require.NoError(t, err)
		assert.Equal(t, []any{1.0, "text"}, col)
	})

	t.Run("row out of range", func(t *testing.T) {
		tbl := New()
		err := tbl.SetAt("c", 1, 0)
		assert.ErrorIs(t, err, ErrRowRange)
	})
}

func TestSetForAllRows(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("a\n1\n2\n3\n"))
	require.NoError(t, err)

	require.NoError(t, tbl.SetForAllRows("base_dir", "/sweep"))
	col, err := tbl.Column("base_dir")
	require.NoError(t, err)
	assert.Equal(t, []any{"/sweep", "/sweep", "/sweep"}, col)
	assert.Equal(t, 2, tbl.ColumnCount())
	assert.Equal(t, 3, tbl.RowCount())
}

func TestReadCSV_InfersKinds(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("vg,name,empty\n1.5,a,\n2,b,\n"))
	require.NoError(t, err)

	kind, _ := tbl.Kind("vg")
	assert.Equal(t, Numeric, kind)
	kind, _ = tbl.Kind("name")
	assert.Equal(t, Opaque, kind)

	row, err := tbl.Row(1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, row.Map()["vg"])
	assert.Equal(t, "b", row.String("name"))
	v, ok := row.Get("empty")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestMerge(t *testing.T) {
	defaults, err := FromMap(map[string]any{"c": 0.0, "only_default": "keep", "n": 7})
	require.NoError(t, err)
	design, err := ReadCSV(strings.NewReader("c,d\n1,10\n2,20\n3,30\n"))
	require.NoError(t, err)

	merged, err := Merge(defaults, design)
	require.NoError(t, err)

	require.Equal(t, 3, merged.RowCount())
	assert.Equal(t, []string{"c", "d", "n", "only_default"}, merged.Columns())
	for i, want := range []float64{1, 2, 3} {
		row, err := merged.Row(i)
		require.NoError(t, err)
		c, err := row.Float("c")
		require.NoError(t, err)
		assert.Equal(t, want, c)
		assert.Equal(t, "keep", row.String("only_default"))
		n, err := row.Float("n")
		require.NoError(t, err)
		assert.Equal(t, 7.0, n)
	}

	t.Run("defaults with more than one row are rejected", func(t *testing.T) {
		twoRows, err := ReadCSV(strings.NewReader("c\n1\n2\n"))
		require.NoError(t, err)
		_, err = Merge(twoRows, design)
		assert.ErrorIs(t, err, ErrDefaultsShape)
	})
}

func TestLoadDefaultsAndDesign(t *testing.T) {
	dir := t.TempDir()

	t.Run("csv defaults", func(t *testing.T) {
		defaults := writeFile(t, dir, "defaults.csv", "vg,vd,device\n0,0.05,nmos\n")
		design := writeFile(t, dir, "doe.csv", "vg\n0.5\n1.0\n")

		tbl := New()
		require.NoError(t, tbl.LoadDefaults(defaults))
		require.NoError(t, tbl.LoadDesign(design))

		assert.Equal(t, 2, tbl.RowCount())
		row, err := tbl.Row(1)
		require.NoError(t, err)
		assert.Equal(t, 1.0, row.Map()["vg"])
		assert.Equal(t, 0.05, row.Map()["vd"])
		assert.Equal(t, "nmos", row.String("device"))
	})

	t.Run("yaml defaults keep key order", func(t *testing.T) {
		path := writeFile(t, dir, "defaults.yaml", "zeta: 1\nalpha: two\nmid: 3.5\n")
		tbl := New()
		require.NoError(t, tbl.LoadDefaults(path))
		assert.Equal(t, []string{"zeta", "alpha", "mid"}, tbl.Columns())
		assert.Equal(t, 1, tbl.RowCount())
	})

	t.Run("multi-row csv defaults are rejected", func(t *testing.T) {
		path := writeFile(t, dir, "bad.csv", "a\n1\n2\n")
		tbl := New()
		err := tbl.LoadDefaults(path)
		assert.ErrorIs(t, err, ErrDefaultsShape)
	})

	t.Run("design without defaults becomes the table", func(t *testing.T) {
		design := writeFile(t, dir, "doe_only.csv", "a,b\n1,x\n2,y\n")
		tbl := New()
		require.NoError(t, tbl.LoadDesign(design))
		assert.Equal(t, 2, tbl.RowCount())
		assert.Equal(t, []string{"a", "b"}, tbl.Columns())
	})

	t.Run("nested mapping values are rejected", func(t *testing.T) {
		_, err := FromMap(map[string]any{"nested": map[string]any{"a": 1}})
		assert.ErrorContains(t, err, "must be a scalar")
	})
}

func TestAppendRowAndExport(t *testing.T) {
	tbl := New()
	_, err := tbl.AppendRow(NewRow(0, []string{"a", "b"}, map[string]any{"a": 1, "b": "x"}))
	require.NoError(t, err)
	_, err = tbl.AppendRow(NewRow(1, []string{"a", "c"}, map[string]any{"a": 2, "c": 3.25}))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf, "id"))
	assert.Equal(t, "id,a,b,c\n0,1,x,\n1,2,,3.25\n", buf.String())

	path := filepath.Join(t.TempDir(), "out", "output.csv")
	require.NoError(t, tbl.ExportCSV(path, "id"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(data))
}
