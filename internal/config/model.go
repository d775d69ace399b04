package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// Store kinds accepted by Sweep.Store.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
)

// Model is the unified, format-agnostic representation of a sweep file.
type Model struct {
	Sweep *Sweep
	// Nodes keeps declaration order.
	Nodes []*Node
}

// Node returns the declaration with the given name.
func (m *Model) Node(name string) (*Node, bool) {
	for _, n := range m.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// Sweep holds the sweep-level settings.
type Sweep struct {
	Name string
	// Directory is the parent of the sweep's base directory <Directory>/<Name>.
	Directory string
	// Defaults is a CSV or YAML file with the default parameter row.
	Defaults string
	// Parameters is an inline default row; it overlays Defaults.
	Parameters map[string]any
	// Design is an optional CSV file with one row per variant.
	Design         string
	CleanSlate     bool
	SkipMatching   bool
	FrequentOutput bool
	Output         string
	Store          string
	// Source is the directory of the file that declared the sweep. Relative
	// paths above are resolved against it.
	Source string
}

// Node is one `node "<kind>" "<name>"` declaration.
type Node struct {
	Kind         string
	Name         string
	Inputs       []*InputRef
	CleanOutputs bool
	// Body holds the plugin-specific settings.
	Body      hcl.Body
	DeclRange hcl.Range
	// Dir is the directory of the declaring file.
	Dir string
}

// Parents returns the distinct node names referenced by the inputs, in
// declaration order.
func (n *Node) Parents() []string {
	seen := make(map[string]bool)
	var out []string
	for _, in := range n.Inputs {
		if !seen[in.Node] {
			seen[in.Node] = true
			out = append(out, in.Node)
		}
	}
	return out
}

// InputKind tells value references from file references.
type InputKind int

const (
	// ValueInput references one named output of a parent.
	ValueInput InputKind = iota
	// FilesInput references the produced files of a parent matching a pattern.
	FilesInput
	// FileInput selects one entry of a FilesInput by index.
	FileInput
)

func (k InputKind) String() string {
	switch k {
	case ValueInput:
		return "value"
	case FilesInput:
		return "files"
	case FileInput:
		return "file"
	default:
		return fmt.Sprintf("InputKind(%d)", int(k))
	}
}

// InputRef is one entry of a node's `inputs` block.
type InputRef struct {
	Name      string
	Kind      InputKind
	Node      string
	Attribute string
	Pattern   string
	Index     int
	Range     hcl.Range
}
