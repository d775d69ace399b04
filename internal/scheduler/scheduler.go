package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vk/sweepgrid/internal/ctxlog"
	"github.com/vk/sweepgrid/internal/node"
)

var (
	// ErrCycle is returned when the parent edges contain a cycle.
	ErrCycle = errors.New("dependency cycle")
	// ErrInconsistentSchedule is returned by Verify when a node precedes one
	// of its parents or a parent is missing from the order.
	ErrInconsistentSchedule = errors.New("inconsistent schedule")
)

// Schedule is a linear execution order over a node set.
type Schedule struct {
	nodes []node.Node
	pos   map[node.Node]int
}

// New wraps an explicit order. It is mainly useful for checking orders built
// elsewhere with Verify.
func New(order []node.Node) *Schedule {
	s := &Schedule{pos: make(map[node.Node]int, len(order))}
	for _, n := range order {
		s.append(n)
	}
	return s
}

func (s *Schedule) append(n node.Node) {
	if _, ok := s.pos[n]; ok {
		return
	}
	s.pos[n] = len(s.nodes)
	s.nodes = append(s.nodes, n)
}

// Nodes returns the order.
func (s *Schedule) Nodes() []node.Node {
	return append([]node.Node(nil), s.nodes...)
}

// Len returns the number of scheduled nodes.
func (s *Schedule) Len() int { return len(s.nodes) }

// Position returns the index of n in the order.
func (s *Schedule) Position(n node.Node) (int, bool) {
	i, ok := s.pos[n]
	return i, ok
}

type mark int

const (
	unvisited mark = iota
	inProgress
	done
)

// BuildOrder computes an order over nodes and everything they depend on.
func BuildOrder(ctx context.Context, nodes []node.Node) (*Schedule, error) {
	logger := ctxlog.FromContext(ctx)

	isParent := make(map[node.Node]bool)
	for _, n := range nodes {
		for _, p := range n.NodeBase().Parents() {
			isParent[p] = true
		}
	}
	var tails []node.Node
	for _, n := range nodes {
		if !isParent[n] {
			tails = append(tails, n)
		}
	}
	logger.Debug("Building schedule.", "nodes", len(nodes), "tails", len(tails))

	s := &Schedule{pos: make(map[node.Node]int, len(nodes))}
	marks := make(map[node.Node]mark, len(nodes))
	var stack []node.Node

	var visit func(n node.Node) error
	visit = func(n node.Node) error {
		switch marks[n] {
		case done:
			return nil
		case inProgress:
			return fmt.Errorf("%w: %s", ErrCycle, cyclePath(stack, n))
		}
		marks[n] = inProgress
		stack = append(stack, n)
		for _, p := range n.NodeBase().Parents() {
			if err := visit(p); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		marks[n] = done
		s.append(n)
		return nil
	}

	for _, n := range tails {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	for _, n := range nodes {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Verify checks that every node comes after all of its parents.
func Verify(s *Schedule) error {
	var problems []string
	for i, n := range s.nodes {
		for _, p := range n.NodeBase().Parents() {
			j, ok := s.pos[p]
			switch {
			case !ok:
				problems = append(problems, fmt.Sprintf("parent %s of %s is not scheduled", label(p), label(n)))
			case j >= i:
				problems = append(problems, fmt.Sprintf("parent %s (position %d) is not before %s (position %d)", label(p), j, label(n), i))
			}
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s\norder:\n%s", ErrInconsistentSchedule, strings.Join(problems, "; "), s.dump())
}

// AssignNames sets every node's display name to "<position>_<kind>".
func (s *Schedule) AssignNames() {
	for i, n := range s.nodes {
		n.NodeBase().SetName(fmt.Sprintf("%02d_%s", i, n.NodeBase().Kind()))
	}
}

func (s *Schedule) dump() string {
	var sb strings.Builder
	for i, n := range s.nodes {
		fmt.Fprintf(&sb, "  %02d %s\n", i, label(n))
	}
	return sb.String()
}

func cyclePath(stack []node.Node, again node.Node) string {
	start := 0
	for i, n := range stack {
		if n == again {
			start = i
			break
		}
	}
	parts := make([]string, 0, len(stack)-start+1)
	for _, n := range stack[start:] {
		parts = append(parts, label(n))
	}
	parts = append(parts, label(again))
	return strings.Join(parts, " -> ")
}

func label(n node.Node) string {
	b := n.NodeBase()
	return fmt.Sprintf("%s %q", b.Kind(), b.Label())
}
