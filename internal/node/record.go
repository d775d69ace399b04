package node

import (
	"fmt"

	"github.com/vk/sweepgrid/internal/nodestore"
	"github.com/vk/sweepgrid/internal/statetable"
)

// Dependencies builds the dependency descriptor of n for row: parent display
// names, the declared state variables with their row values, and the
// declared static files.
func Dependencies(n Node, row statetable.Row) (nodestore.Dependencies, error) {
	b := n.NodeBase()
	deps := nodestore.Dependencies{
		Nodes:          []string{},
		StateVariables: map[string]any{},
		StaticFiles:    []string{},
	}
	for _, p := range b.Parents() {
		deps.Nodes = append(deps.Nodes, p.NodeBase().Name())
	}
	for _, name := range n.StateVariables(row) {
		v, ok := row.Get(name)
		if !ok {
			return deps, fmt.Errorf("node %s: state variable %q is not a column of the state table", b.name, name)
		}
		deps.StateVariables[name] = v
	}
	deps.StaticFiles = append(deps.StaticFiles, n.StaticFiles()...)
	return deps, nil
}

// SaveRecord persists the record of n into its working directory. With
// dependenciesOnly, outputs and produced files are left out.
func SaveRecord(store nodestore.Store, n Node, row statetable.Row, dependenciesOnly bool) error {
	b := n.NodeBase()
	deps, err := Dependencies(n, row)
	if err != nil {
		return err
	}
	if dependenciesOnly {
		return store.SaveDependencies(b.workDir, deps)
	}
	if err := store.Save(b.workDir, deps, b.outputs, b.outputFiles); err != nil {
		return fmt.Errorf("node %s: %w", b.name, err)
	}
	b.phase = OutputsPersisted
	return nil
}

// LoadRecord replaces the outputs of n with the ones persisted in dir.
func LoadRecord(store nodestore.Store, n Node, dir string) error {
	rec, err := store.Load(dir)
	if err != nil {
		return err
	}
	outputs, err := store.LoadOutputs(rec)
	if err != nil {
		return err
	}
	n.NodeBase().ApplyOutputs(outputs, rec.OutputFiles)
	return nil
}
