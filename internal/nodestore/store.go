// Package nodestore defines the per-run, per-node state records that drive
// cross-run reuse, and the interface for persisting them.
//
// # Why Node Store Exists
//
// A sweep reruns the same graph for every row of the state table. Before a
// node executes, the orchestrator compares the node's dependency descriptor
// with the descriptors it persisted for earlier rows; a structural match
// means the node would compute the same thing again, so its persisted
// outputs are reused instead.
//
// The record therefore has two parts:
//   - **Dependencies**: parent names, relevant state variables and static
//     files. Always written, compared on every lookup.
//   - **Outputs**: the node's outputs and produced files. Written after the
//     node completed, loaded only on a cache hit.
//
// # Layout
//
// Records live in the node's working directory of a row:
//
//	<row dir>/<node name>/node_state.json
//	<row dir>/<node name>/outputs.msgpack
//
// See internal/filestore for the disk implementation.
package nodestore

import (
	"errors"
)

// ErrNoRecord is returned when a directory holds no state record.
var ErrNoRecord = errors.New("no node state record")

// Dependencies is the dependency descriptor of one node invocation.
type Dependencies struct {
	Nodes          []string       `json:"nodes"`
	StateVariables map[string]any `json:"state_variables"`
	StaticFiles    []string       `json:"static_files"`
}

// Record is a persisted state record. NodeOutput and OutputFiles are empty
// for dependency-only records.
type Record struct {
	Dependencies Dependencies `json:"dependencies"`
	NodeOutput   string       `json:"node_output,omitempty"`
	OutputFiles  []string     `json:"output_files,omitempty"`
}

// Complete reports whether the record carries outputs.
func (r Record) Complete() bool {
	return r.NodeOutput != ""
}

// Store persists state records.
//
// # Thread-Safety
//
// Rows are processed sequentially, so implementations need not be safe for
// concurrent writes to the same directory.
type Store interface {
	// SaveDependencies writes a dependency-only record to dir, replacing any
	// record already there.
	SaveDependencies(dir string, deps Dependencies) error

	// Save writes a full record to dir together with the outputs artifact.
	// files is the produced-file list of the node.
	Save(dir string, deps Dependencies, outputs map[string]any, files []string) error

	// Load reads the record in dir. A missing record yields ErrNoRecord.
	Load(dir string) (Record, error)

	// LoadOutputs reads the outputs artifact named by a complete record.
	LoadOutputs(rec Record) (map[string]any, error)
}
