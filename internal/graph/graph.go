package graph

import (
	"context"

	"github.com/gammazero/deque"
	"github.com/vk/sweepgrid/internal/ctxlog"
	"github.com/vk/sweepgrid/internal/node"
)

// Set is the node set reachable from a list of roots.
type Set struct {
	nodes []node.Node
	index map[node.Node]int
}

// Discover walks the parents of roots and returns every reachable node.
// Duplicate roots are registered once.
func Discover(ctx context.Context, roots ...node.Node) *Set {
	logger := ctxlog.FromContext(ctx)
	s := &Set{index: make(map[node.Node]int)}

	var queue deque.Deque[node.Node]
	for _, r := range roots {
		if s.add(r) {
			queue.PushBack(r)
		}
	}

	for queue.Len() > 0 {
		n := queue.PopFront()
		for _, p := range n.NodeBase().Parents() {
			if s.add(p) {
				logger.Debug("Discovered parent node.", "node", n.NodeBase().Label(), "parent", p.NodeBase().Label())
				queue.PushBack(p)
			}
		}
	}

	logger.Debug("Node discovery finished.", "roots", len(roots), "nodes", len(s.nodes))
	return s
}

func (s *Set) add(n node.Node) bool {
	if _, ok := s.index[n]; ok {
		return false
	}
	s.index[n] = len(s.nodes)
	s.nodes = append(s.nodes, n)
	return true
}

// Nodes returns the set in discovery order.
func (s *Set) Nodes() []node.Node {
	return append([]node.Node(nil), s.nodes...)
}

// Len returns the number of nodes.
func (s *Set) Len() int { return len(s.nodes) }
