package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/sweepgrid/internal/statetable"
	"github.com/vk/sweepgrid/internal/testutil"
	"github.com/vk/sweepgrid/internal/testutil/sweeptest"
)

// Test for: defaults from a YAML file, inline parameters and design rows
// combine into the state table, and sweep expressions see env().
func TestHCLFeatures_ParameterSources(t *testing.T) {
	t.Setenv("SWEEPGRID_TEST_CORNER", "ff")
	mod := &testutil.SimpleModule{}
	res := sweeptest.RunSweepTest(t, map[string]string{
		"sweep.hcl": `
sweep {
  name       = "params"
  defaults   = "defaults.yaml"
  parameters = { corner = env("SWEEPGRID_TEST_CORNER") }
  design     = "design.csv"
}

node "test" "only" {
  vars = ["width", "corner", "vdd"]
}
`,
		"defaults.yaml": "vdd: 1.1\ncorner: tt\n",
		"design.csv":    "width\n1\n2\n",
	}, mod)
	require.NoError(t, res.Err)
	require.Equal(t, 2, res.Results.RowCount())

	for i := 0; i < 2; i++ {
		row, err := res.Results.Row(i)
		require.NoError(t, err)
		assert.Equal(t, "ff", row.String("corner"))
		assert.Equal(t, "1.1", statetable.FormatValue(mustGet(t, row, "vdd")))
		assert.Equal(t, "test", row.String("sweepgrid"))
	}
	assert.Equal(t, 2, mod.Node("only").Runs)
}

func mustGet(t *testing.T, row statetable.Row, name string) any {
	t.Helper()
	v, ok := row.Get(name)
	require.True(t, ok, name)
	return v
}
