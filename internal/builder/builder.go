package builder

import (
	"context"
	"fmt"

	"github.com/vk/sweepgrid/internal/config"
	"github.com/vk/sweepgrid/internal/ctxlog"
	"github.com/vk/sweepgrid/internal/dag"
	"github.com/vk/sweepgrid/internal/node"
	"github.com/vk/sweepgrid/internal/registry"
	"github.com/vk/sweepgrid/internal/scheduler"
)

// Result holds the constructed nodes.
type Result struct {
	// Nodes in declaration order.
	Nodes  []node.Node
	byName map[string]node.Node
}

// Node returns the node built for a declaration name.
func (r *Result) Node(name string) (node.Node, bool) {
	n, ok := r.byName[name]
	return n, ok
}

// Build constructs and wires every node declared in model.
func Build(ctx context.Context, model *config.Model, reg *registry.Registry, conv config.Converter) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Building nodes from config model.", "declarations", len(model.Nodes))

	if err := reg.Validate(ctx, model); err != nil {
		return nil, err
	}

	order, err := declarationOrder(model)
	if err != nil {
		return nil, err
	}

	built := make(map[string]node.Node, len(model.Nodes))
	for _, name := range order {
		decl, _ := model.Node(name)
		n, err := construct(ctx, decl, reg, conv)
		if err != nil {
			return nil, err
		}
		if err := wire(n, decl, built); err != nil {
			return nil, err
		}
		built[name] = n
		logger.Debug("Node built.", "kind", decl.Kind, "name", decl.Name, "inputs", len(decl.Inputs))
	}

	res := &Result{byName: built}
	for _, decl := range model.Nodes {
		res.Nodes = append(res.Nodes, built[decl.Name])
	}
	logger.Info("Nodes built.", "count", len(res.Nodes))
	return res, nil
}

// declarationOrder returns declaration names with every referenced node
// ahead of the nodes referencing it.
func declarationOrder(model *config.Model) ([]string, error) {
	g := dag.New()
	for _, decl := range model.Nodes {
		g.AddNode(decl.Name)
	}
	for _, decl := range model.Nodes {
		for _, parent := range decl.Parents() {
			if parent == decl.Name {
				return nil, fmt.Errorf("%s: node %q: %w: references itself", decl.DeclRange, decl.Name, scheduler.ErrCycle)
			}
			if err := g.AddEdge(parent, decl.Name); err != nil {
				return nil, fmt.Errorf("node %q: %w", decl.Name, err)
			}
		}
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scheduler.ErrCycle, err)
	}
	return order, nil
}

func construct(ctx context.Context, decl *config.Node, reg *registry.Registry, conv config.Converter) (node.Node, error) {
	factory, err := reg.Lookup(decl.Kind)
	if err != nil {
		return nil, fmt.Errorf("%s: node %q: %w", decl.DeclRange, decl.Name, err)
	}
	n, err := factory(ctx, decl, conv)
	if err != nil {
		return nil, fmt.Errorf("%s: node %q: %w", decl.DeclRange, decl.Name, err)
	}
	if n == nil {
		return nil, fmt.Errorf("%s: node %q: factory for kind %q returned no node", decl.DeclRange, decl.Name, decl.Kind)
	}
	n.NodeBase().SetCleanOutputs(decl.CleanOutputs)
	return n, nil
}
