package hcl_adapter

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/vk/sweepgrid/internal/config"
)

// parseInputs reads the references of an `inputs` block. Attributes are
// returned sorted by source position.
func parseInputs(body hcl.Body) ([]*config.InputRef, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("inputs: %w", diags)
	}

	list := make([]*hcl.Attribute, 0, len(attrs))
	for _, a := range attrs {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Range.Start.Byte < list[j].Range.Start.Byte
	})

	refs := make([]*config.InputRef, 0, len(list))
	for _, a := range list {
		ref, err := parseInputRef(a.Name, a.Expr)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func parseInputRef(name string, expr hcl.Expression) (*config.InputRef, error) {
	ref := &config.InputRef{Name: name, Index: -1, Range: expr.Range()}

	if call, diags := hcl.ExprCall(expr); !diags.HasErrors() {
		switch call.Name {
		case "files":
			ref.Kind = config.FilesInput
			if len(call.Arguments) != 2 {
				return nil, fmt.Errorf("%s: input %q: files() takes a node and a pattern", ref.Range, name)
			}
		case "file":
			ref.Kind = config.FileInput
			if len(call.Arguments) != 3 {
				return nil, fmt.Errorf("%s: input %q: file() takes a node, a pattern and an index", ref.Range, name)
			}
		default:
			return nil, fmt.Errorf("%s: input %q: unknown reference function %q", ref.Range, name, call.Name)
		}

		node, attr, err := nodeTraversal(call.Arguments[0])
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", name, err)
		}
		if attr != "" {
			return nil, fmt.Errorf("%s: input %q: %s() takes a node, not one of its outputs", ref.Range, name, call.Name)
		}
		ref.Node = node

		if diags := gohcl.DecodeExpression(call.Arguments[1], nil, &ref.Pattern); diags.HasErrors() {
			return nil, fmt.Errorf("input %q: pattern: %w", name, diags)
		}
		if ref.Kind == config.FileInput {
			if diags := gohcl.DecodeExpression(call.Arguments[2], nil, &ref.Index); diags.HasErrors() {
				return nil, fmt.Errorf("input %q: index: %w", name, diags)
			}
			if ref.Index < 0 {
				return nil, fmt.Errorf("%s: input %q: index must not be negative", ref.Range, name)
			}
		}
		return ref, nil
	}

	node, attr, err := nodeTraversal(expr)
	if err != nil {
		return nil, fmt.Errorf("input %q: %w", name, err)
	}
	if attr == "" {
		return nil, fmt.Errorf("%s: input %q: a value reference needs an output name: node.%s.<output>", ref.Range, name, node)
	}
	ref.Kind = config.ValueInput
	ref.Node = node
	ref.Attribute = attr
	return ref, nil
}

// nodeTraversal accepts `node.<name>` and `node.<name>.<attr>`.
func nodeTraversal(expr hcl.Expression) (node, attr string, err error) {
	trav, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() {
		return "", "", fmt.Errorf("%s: expected a node reference", expr.Range())
	}
	if trav.RootName() != "node" || len(trav) < 2 || len(trav) > 3 {
		return "", "", fmt.Errorf("%s: expected node.<name> or node.<name>.<output>", expr.Range())
	}
	names := make([]string, 0, 2)
	for _, step := range trav[1:] {
		a, ok := step.(hcl.TraverseAttr)
		if !ok {
			return "", "", fmt.Errorf("%s: expected node.<name> or node.<name>.<output>", expr.Range())
		}
		names = append(names, a.Name)
	}
	node = names[0]
	if len(names) == 2 {
		attr = names[1]
	}
	return node, attr, nil
}
