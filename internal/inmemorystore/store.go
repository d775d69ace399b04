// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the nodestore.Store interface.
//
// # Purpose
//
// Records are keyed by the directory they would be written to on disk, so the
// orchestrator behaves identically with either store. Nothing survives the
// process: a sweep using this store can only reuse rows computed earlier in
// the same invocation.
//
// # When to Use
//
//   - Tests of the orchestrator that should not depend on file layout
//   - Dry runs where per-node directories are disposable
package inmemorystore

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/vk/sweepgrid/internal/nodestore"
)

// Store keeps records and outputs in two sync.Maps.
//
//   - records: cleaned directory path → nodestore.Record
//   - outputs: artifact key → map[string]any
type Store struct {
	records sync.Map
	outputs sync.Map
}

// New creates a new, empty in-memory store.
func New() *Store {
	return &Store{}
}

var _ nodestore.Store = (*Store)(nil)

// SaveDependencies implements nodestore.Store.
func (s *Store) SaveDependencies(dir string, deps nodestore.Dependencies) error {
	s.records.Store(filepath.Clean(dir), nodestore.Record{Dependencies: deps})
	return nil
}

// Save implements nodestore.Store. Outputs are copied so later mutation of
// the node does not leak into the stored run.
func (s *Store) Save(dir string, deps nodestore.Dependencies, outputs map[string]any, files []string) error {
	key := filepath.Clean(dir)
	copied := make(map[string]any, len(outputs))
	for k, v := range outputs {
		copied[k] = v
	}
	s.outputs.Store(key, copied)
	s.records.Store(key, nodestore.Record{
		Dependencies: deps,
		NodeOutput:   key,
		OutputFiles:  append([]string{}, files...),
	})
	return nil
}

// Load implements nodestore.Store.
func (s *Store) Load(dir string) (nodestore.Record, error) {
	rec, ok := s.records.Load(filepath.Clean(dir))
	if !ok {
		return nodestore.Record{}, fmt.Errorf("%w in %s", nodestore.ErrNoRecord, dir)
	}
	return rec.(nodestore.Record), nil
}

// LoadOutputs implements nodestore.Store.
func (s *Store) LoadOutputs(rec nodestore.Record) (map[string]any, error) {
	out, ok := s.outputs.Load(rec.NodeOutput)
	if !ok {
		return nil, fmt.Errorf("no outputs stored for %q", rec.NodeOutput)
	}
	copied := make(map[string]any)
	for k, v := range out.(map[string]any) {
		copied[k] = v
	}
	return copied, nil
}
