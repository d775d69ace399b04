package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vk/sweepgrid/internal/node"
	"github.com/vk/sweepgrid/internal/testutil"
)

func TestDiscover_FindsParentsThroughInputs(t *testing.T) {
	a := testutil.NewNode("a")
	b := testutil.NewNode("b").Needs(a)
	c := testutil.NewNode("c").Reads(a, "x")
	d := testutil.NewNode("d").Needs(b, c)

	set := Discover(context.Background(), d)

	assert.Equal(t, []node.Node{d, b, c, a}, set.Nodes())
	assert.Contains(t, set.Nodes(), a)
}

func TestDiscover_RootsAndDuplicates(t *testing.T) {
	a := testutil.NewNode("a")
	b := testutil.NewNode("b").Needs(a)
	lone := testutil.NewNode("lone")

	set := Discover(context.Background(), a, b, lone, b)

	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []node.Node{a, b, lone}, set.Nodes())
}

func TestDiscover_ToleratesCycles(t *testing.T) {
	a := testutil.NewNode("a")
	b := testutil.NewNode("b").Needs(a)
	a.Needs(b)

	set := Discover(context.Background(), a)

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []node.Node{a, b}, set.Nodes())
}
