package builder

import (
	"fmt"

	"github.com/vk/sweepgrid/internal/config"
	"github.com/vk/sweepgrid/internal/depref"
	"github.com/vk/sweepgrid/internal/node"
)

// wire attaches the input references of decl to n, or to its input node
// when n is a composite. Parents must already be in built.
func wire(n node.Node, decl *config.Node, built map[string]node.Node) error {
	if c, ok := n.(node.Composite); ok {
		n = c.InputNode()
	}
	base := n.NodeBase()
	for _, in := range decl.Inputs {
		if base.Input(in.Name) != nil {
			return fmt.Errorf("%s: node %q: input %q is already bound", in.Range, decl.Name, in.Name)
		}
		parent, ok := built[in.Node]
		if !ok {
			return fmt.Errorf("%s: node %q: input %q references unknown node %q", in.Range, decl.Name, in.Name, in.Node)
		}
		ref, err := newRef(parent, in)
		if err != nil {
			return fmt.Errorf("%s: node %q: input %q: %w", in.Range, decl.Name, in.Name, err)
		}
		base.Depend(in.Name, ref)
	}
	return nil
}

func newRef(parent node.Node, in *config.InputRef) (depref.Ref, error) {
	switch in.Kind {
	case config.ValueInput:
		return depref.Value(parent, in.Attribute), nil
	case config.FilesInput:
		return depref.Files(parent, in.Pattern)
	case config.FileInput:
		return depref.File(parent, in.Pattern, in.Index)
	default:
		return nil, fmt.Errorf("unsupported input kind %s", in.Kind)
	}
}
