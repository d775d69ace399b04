package integration_tests

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/sweepgrid/internal/registry"
	"github.com/vk/sweepgrid/internal/testutil"
	"github.com/vk/sweepgrid/internal/testutil/sweeptest"
	"github.com/vk/sweepgrid/modules/template"
)

// Test for: a value output and a file list flow from one node into the
// template data of a dependent node.
func TestCoreExecution_ValueAndFileInputs(t *testing.T) {
	res := sweeptest.RunSweepTest(t, map[string]string{
		"sweep.hcl": `
sweep {
  name       = "deps"
  parameters = { corner = "tt" }
}

node "test" "mesh" {
  emit  = { greeting = "hello" }
  files = ["grid.tdr", "notes.txt"]
}

node "template" "deck" {
  template = "deck.txt.tmpl"

  inputs {
    greeting = node.mesh.greeting
    grids    = files(node.mesh, ".*\\.tdr")
  }
}
`,
		"deck.txt.tmpl": "{{.greeting}} {{.corner}}{{range .grids}} {{base .}}{{end}}",
	}, []registry.Module{&testutil.SimpleModule{}, &template.Module{}}...)
	require.NoError(t, res.Err)
	require.Equal(t, 1, res.Results.RowCount())

	got, err := os.ReadFile(filepath.Join(res.BaseDir(), "run_0", "01_template", "deck.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello tt grid.tdr", string(got))
}

// Test for: a diamond is executed parents first, each node once per row.
func TestCoreExecution_Diamond(t *testing.T) {
	mod := &testutil.SimpleModule{}
	res := sweeptest.RunSweepTest(t, map[string]string{
		"sweep.hcl": `
sweep {
  name       = "diamond"
  parameters = { a = 1 }
}

node "test" "top" {
  inputs {
    l = node.left.l
    r = node.right.r
  }
}

node "test" "left" {
  emit = { l = "L" }
  inputs {
    s = node.source.s
  }
}

node "test" "right" {
  emit = { r = "R" }
  inputs {
    s = node.source.s
  }
}

node "test" "source" {
  emit = { s = "S" }
}
`,
	}, mod)
	require.NoError(t, res.Err)

	order := res.App.Model().Nodes
	require.Len(t, order, 4)
	for _, name := range []string{"top", "left", "right", "source"} {
		assert.Equal(t, 1, mod.Node(name).Runs, name)
	}

	schedule, err := os.ReadFile(filepath.Join(res.BaseDir(), "schedule.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(schedule), "00_test")
	assert.Contains(t, string(schedule), "03_test")
}
