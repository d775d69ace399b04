package tmpl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const deck = `Electrode { Name="drain" Voltage={{ .vdd }} }
{{- if .doping }}
Doping = {{ .doping | printf "%.2e" }}
{{- end }}
{{ range $i, $v := .sweep_points }}{{ $v }} {{ end }}
File { Grid="{{ $.mesh_file }}" }
`

func TestFields(t *testing.T) {
	path := writeTemplate(t, t.TempDir(), "sdevice.cmd.tmpl", deck)

	fields, err := Fields(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"doping", "mesh_file", "sweep_points", "vdd"}, fields)
}

func TestRenderFile(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	path := writeTemplate(t, src, "sdevice.cmd.tmpl", deck)

	rendered, err := RenderFile(path, map[string]any{
		"vdd":          1.2,
		"doping":       1e18,
		"sweep_points": []int{1, 2},
		"mesh_file":    "n1_msh.tdr",
	}, out, "_dev")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "sdevice_dev.cmd"), rendered)

	data, err := os.ReadFile(rendered)
	require.NoError(t, err)
	assert.Contains(t, string(data), `Voltage=1.2`)
	assert.Contains(t, string(data), `Doping = 1.00e+18`)
	assert.Contains(t, string(data), `Grid="n1_msh.tdr"`)
}

func TestRenderFile_MissingKey(t *testing.T) {
	path := writeTemplate(t, t.TempDir(), "a.tmpl", "{{ .missing }}")
	_, err := RenderFile(path, map[string]any{}, t.TempDir(), "")
	assert.Error(t, err)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "sdevice_dev.cmd", OutputName("decks/sdevice.cmd.tmpl", "_dev"))
	assert.Equal(t, "sde.scm", OutputName("sde.scm", ""))
	assert.Equal(t, "params_p", OutputName("params.tmpl", "_p"))
}

func TestRender(t *testing.T) {
	s, err := Render(`{{ upper .name }} {{ joinPath "a" "b" }} {{ q "x y" }}`, map[string]any{"name": "run"})
	require.NoError(t, err)
	assert.Equal(t, `RUN a/b 'x y'`, s)
}

func TestTextFields(t *testing.T) {
	fields, err := TextFields(`sdevice {{ .deck }} --threads {{ .threads }}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"deck", "threads"}, fields)

	_, err = TextFields(`{{ .broken`)
	assert.Error(t, err)
}
