package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/sweepgrid/internal/testutil"
	"github.com/vk/sweepgrid/internal/testutil/sweeptest"
)

const chainSweep = `
sweep {
  name   = "chain"
  design = "design.csv"
}

node "test" "mesh" {
  vars = ["width"]
  emit = { greeting = "hello" }
}

node "test" "sim" {
  emit = { status = "done" }

  inputs {
    greeting = node.mesh.greeting
  }
}
`

// Test for: an equivalent earlier row is reused for a node and its
// dependents, while a differing parent forces the dependents to run.
func TestCoreExecution_Memoization(t *testing.T) {
	mod := &testutil.SimpleModule{}
	res := sweeptest.RunSweepTest(t, map[string]string{
		"sweep.hcl":  chainSweep,
		"design.csv": "width\n1\n2\n1\n",
	}, mod)
	require.NoError(t, res.Err)
	require.Equal(t, 3, res.Results.RowCount())

	assert.Equal(t, 2, mod.Node("mesh").Runs)
	assert.Equal(t, 2, mod.Node("sim").Runs)

	for i := 0; i < 3; i++ {
		v, err := res.Results.Value("status", i)
		require.NoError(t, err)
		assert.Equal(t, "done", v)
	}
	sweeptest.AssertLogged(t, res, "Reusing equivalent run.")
}

// Test for: with skip_matching disabled every row executes every node.
func TestCoreExecution_SkipMatchingDisabled(t *testing.T) {
	mod := &testutil.SimpleModule{}
	res := sweeptest.RunSweepTest(t, map[string]string{
		"sweep.hcl": `
sweep {
  name          = "all"
  design        = "design.csv"
  skip_matching = false
}

node "test" "only" {
  vars = ["width"]
}
`,
		"design.csv": "width\n1\n1\n",
	}, mod)
	require.NoError(t, res.Err)
	assert.Equal(t, 2, mod.Node("only").Runs)
}
