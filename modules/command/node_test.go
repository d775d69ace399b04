package command

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/sweepgrid/internal/node"
	"github.com/vk/sweepgrid/internal/statetable"
)

func testRow(values map[string]any) statetable.Row {
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	return statetable.NewRow(0, names, values)
}

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCommand_RendersAndRuns(t *testing.T) {
	src := t.TempDir()
	work := t.TempDir()
	write(t, src, "deck.txt.tmpl", "vdd={{ .vdd }} mesh={{ .mesh_file }}\n")
	write(t, src, ".env", "GREETING=hello\n")

	n, err := NewNode("sim", src, Settings{
		Template: "deck.txt.tmpl",
		Suffix:   "_sim",
		EnvFile:  ".env",
		Command:  `sh -c "cat {{ base .deck }} > result.txt && echo $GREETING >> result.txt"`,
	})
	require.NoError(t, err)
	n.SetWorkDir(work)

	row := testRow(map[string]any{"vdd": 1.2, "mesh_file": "n1_msh.tdr"})
	require.NoError(t, node.Execute(context.Background(), n, row))

	data, err := os.ReadFile(filepath.Join(work, "result.txt"))
	require.NoError(t, err)
	assert.Equal(t, "vdd=1.2 mesh=n1_msh.tdr\nhello\n", string(data))

	assert.Equal(t, filepath.Join(work, "deck_sim.txt"), n.Outputs()[DeckKey])
	assert.Equal(t, 0, n.Outputs()[ExitCodeOutput])
	assert.Contains(t, n.OutputFiles(), filepath.Join(work, "result.txt"))
	assert.Contains(t, n.OutputFiles(), filepath.Join(work, "sim.log"))
}

func TestCommand_Failure(t *testing.T) {
	n, err := NewNode("sim", t.TempDir(), Settings{Command: `sh -c "exit 3"`})
	require.NoError(t, err)
	n.SetWorkDir(t.TempDir())

	err = node.Execute(context.Background(), n, testRow(nil))
	assert.ErrorContains(t, err, "exited with code 3")
}

func TestCommand_Timeout(t *testing.T) {
	n, err := NewNode("sim", t.TempDir(), Settings{Command: "sleep 5", Timeout: "50ms"})
	require.NoError(t, err)
	n.SetWorkDir(t.TempDir())

	err = node.Execute(context.Background(), n, testRow(nil))
	assert.ErrorContains(t, err, "timed out")
}

func TestCommand_Dependencies(t *testing.T) {
	src := t.TempDir()
	write(t, src, "deck.tmpl", "{{ .vdd }} {{ .mesh_file }}")
	write(t, src, "par.tmpl", "{{ .temperature }}")
	write(t, src, "models/a/x.par", "")
	write(t, src, "models/b/y.par", "")
	write(t, src, "models/b/ignored.txt", "")

	n, err := NewNode("sim", src, Settings{
		Template:          "deck.tmpl",
		ParameterTemplate: "par.tmpl",
		Command:           "sdevice --threads {{ .threads }} {{ .deck }}",
		StaticFiles:       []string{"models/**/*.par"},
	})
	require.NoError(t, err)

	row := testRow(map[string]any{"vdd": 1, "temperature": 300, "threads": 4, "unused": 0})
	assert.Equal(t, []string{"temperature", "threads", "vdd"}, n.StateVariables(row))

	assert.ElementsMatch(t, []string{
		filepath.Join(src, "deck.tmpl"),
		filepath.Join(src, "par.tmpl"),
		filepath.Join(src, "models/a/x.par"),
		filepath.Join(src, "models/b/y.par"),
	}, n.StaticFiles())
}

func TestCommand_StaticFilesListedOnce(t *testing.T) {
	src := t.TempDir()
	write(t, src, "deck.tmpl", "{{ .vdd }}")
	write(t, src, "models.par", "")

	n, err := NewNode("sim", src, Settings{
		Template:    "deck.tmpl",
		Command:     "sdevice",
		StaticFiles: []string{"*.tmpl", "*.par", "deck.*"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(src, "deck.tmpl"),
		filepath.Join(src, "models.par"),
	}, n.StaticFiles())
}

func TestNewNode_Validation(t *testing.T) {
	_, err := NewNode("x", "", Settings{})
	assert.ErrorContains(t, err, "must not be empty")

	_, err = NewNode("x", "", Settings{Command: "a", Timeout: "soon"})
	assert.ErrorContains(t, err, "invalid timeout")

	_, err = NewNode("x", "", Settings{Command: "a", StaticFiles: []string{"[a"}})
	assert.ErrorContains(t, err, "invalid static_files pattern")
}
