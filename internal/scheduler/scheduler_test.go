package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/sweepgrid/internal/node"
	"github.com/vk/sweepgrid/internal/testutil"
	"pgregory.net/rapid"
)

func nodes(ns ...*testutil.TestNode) []node.Node {
	out := make([]node.Node, len(ns))
	for i, n := range ns {
		out[i] = n
	}
	return out
}

func TestBuildOrder_Diamond(t *testing.T) {
	a := testutil.NewNode("a")
	b := testutil.NewNode("b").Needs(a)
	c := testutil.NewNode("c").Needs(a)
	d := testutil.NewNode("d").Needs(b, c)

	s, err := BuildOrder(context.Background(), nodes(d, c, b, a))
	require.NoError(t, err)
	require.NoError(t, Verify(s))

	assert.Equal(t, 4, s.Len())
	pa, _ := s.Position(a)
	pd, _ := s.Position(d)
	assert.Equal(t, 0, pa)
	assert.Equal(t, 3, pd)
}

func TestBuildOrder_IncludesUnregisteredParents(t *testing.T) {
	hidden := testutil.NewNode("hidden")
	root := testutil.NewNode("root").Needs(hidden)

	s, err := BuildOrder(context.Background(), nodes(root))
	require.NoError(t, err)
	assert.Equal(t, []node.Node{hidden, root}, s.Nodes())
}

func TestBuildOrder_Cycle(t *testing.T) {
	t.Run("reachable from a tail", func(t *testing.T) {
		a := testutil.NewNode("a")
		b := testutil.NewNode("b").Needs(a)
		c := testutil.NewNode("c").Needs(b)
		a.Needs(b)

		_, err := BuildOrder(context.Background(), nodes(a, b, c))
		require.ErrorIs(t, err, ErrCycle)
		assert.Contains(t, err.Error(), `"a"`)
		assert.Contains(t, err.Error(), `"b"`)
	})

	t.Run("without any tail", func(t *testing.T) {
		a := testutil.NewNode("a")
		b := testutil.NewNode("b").Needs(a)
		a.Needs(b)

		_, err := BuildOrder(context.Background(), nodes(a, b))
		assert.ErrorIs(t, err, ErrCycle)
	})

	t.Run("self reference", func(t *testing.T) {
		a := testutil.NewNode("a")
		a.Needs(a)

		_, err := BuildOrder(context.Background(), nodes(a))
		assert.ErrorIs(t, err, ErrCycle)
	})
}

func TestVerify_Inconsistent(t *testing.T) {
	a := testutil.NewNode("a")
	b := testutil.NewNode("b").Needs(a)

	err := Verify(New(nodes(b, a)))
	require.ErrorIs(t, err, ErrInconsistentSchedule)
	assert.Contains(t, err.Error(), "order:")

	err = Verify(New(nodes(b)))
	require.ErrorIs(t, err, ErrInconsistentSchedule)
	assert.Contains(t, err.Error(), "not scheduled")

	assert.NoError(t, Verify(New(nodes(a, b))))
}

func TestAssignNamesAndReport(t *testing.T) {
	a := testutil.NewNode("first")
	b := testutil.NewNode("second").Needs(a)

	s, err := BuildOrder(context.Background(), nodes(b))
	require.NoError(t, err)
	s.AssignNames()

	assert.Equal(t, "00_test", a.Name())
	assert.Equal(t, "01_test", b.Name())

	report := s.Report()
	assert.Contains(t, report, "01_test")
	assert.Contains(t, report, "second")
	assert.Contains(t, report, "00_test")

	path := filepath.Join(t.TempDir(), "base", "schedule.txt")
	require.NoError(t, s.WriteReport(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, report+"\n", string(data))
}

// TestBuildOrder_RandomDAG checks that every order built from a random DAG
// passes Verify and places each node after all of its parents.
func TestBuildOrder_RandomDAG(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 25).Draw(t, "n")
		all := make([]*testutil.TestNode, n)
		for i := range all {
			all[i] = testutil.NewNode(fmt.Sprintf("n%d", i))
			for j := 0; j < i; j++ {
				if rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("edge_%d_%d", i, j)) == 0 {
					all[i].Needs(all[j])
				}
			}
		}
		registered := rapid.Permutation(nodes(all...)).Draw(t, "registration")

		s, err := BuildOrder(context.Background(), registered)
		if err != nil {
			t.Fatalf("BuildOrder: %v", err)
		}
		if err := Verify(s); err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if s.Len() != n {
			t.Fatalf("scheduled %d of %d nodes", s.Len(), n)
		}
		for _, nd := range s.Nodes() {
			i, _ := s.Position(nd)
			for _, p := range nd.NodeBase().Parents() {
				j, ok := s.Position(p)
				if !ok || j >= i {
					t.Fatalf("parent %s at %d not before %s at %d", p.NodeBase().Label(), j, nd.NodeBase().Label(), i)
				}
			}
		}
	})
}

// TestBuildOrder_RandomCycle closes a random chain into a loop and expects
// the cycle to be reported.
func TestBuildOrder_RandomCycle(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 15).Draw(t, "n")
		chain := make([]*testutil.TestNode, n)
		for i := range chain {
			chain[i] = testutil.NewNode(fmt.Sprintf("c%d", i))
			if i > 0 {
				chain[i].Needs(chain[i-1])
			}
		}
		from := rapid.IntRange(0, n-2).Draw(t, "from")
		chain[from].Needs(chain[n-1])

		registered := rapid.Permutation(nodes(chain...)).Draw(t, "registration")
		_, err := BuildOrder(context.Background(), registered)
		if err == nil {
			t.Fatalf("expected a cycle error")
		}
	})
}
