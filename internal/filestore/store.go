// Package filestore persists node state records to the per-row node
// directories as node_state.json plus a msgpack outputs artifact.
package filestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vk/sweepgrid/internal/nodestore"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// StateFile is the name of the record inside a node directory.
	StateFile = "node_state.json"
	// OutputsFile is the name of the outputs artifact.
	OutputsFile = "outputs.msgpack"
)

// Store is the disk implementation of nodestore.Store.
type Store struct{}

// New returns a disk store.
func New() *Store {
	return &Store{}
}

var _ nodestore.Store = (*Store)(nil)

// dependencyRecord is the on-disk shape of a dependency-only record.
type dependencyRecord struct {
	Dependencies nodestore.Dependencies `json:"dependencies"`
}

// fullRecord always carries both output keys, even when no file was produced.
type fullRecord struct {
	Dependencies nodestore.Dependencies `json:"dependencies"`
	NodeOutput   string                 `json:"node_output"`
	OutputFiles  []string               `json:"output_files"`
}

// SaveDependencies implements nodestore.Store.
func (s *Store) SaveDependencies(dir string, deps nodestore.Dependencies) error {
	return writeJSON(filepath.Join(dir, StateFile), dependencyRecord{Dependencies: normalize(deps)})
}

// Save implements nodestore.Store.
func (s *Store) Save(dir string, deps nodestore.Dependencies, outputs map[string]any, files []string) error {
	if outputs == nil {
		outputs = map[string]any{}
	}
	data, err := msgpack.Marshal(outputs)
	if err != nil {
		return fmt.Errorf("failed to encode outputs: %w", err)
	}
	outPath, err := filepath.Abs(filepath.Join(dir, OutputsFile))
	if err != nil {
		return err
	}
	if err := writeFileAtomic(outPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write outputs: %w", err)
	}

	if files == nil {
		files = []string{}
	}
	return writeJSON(filepath.Join(dir, StateFile), fullRecord{
		Dependencies: normalize(deps),
		NodeOutput:   outPath,
		OutputFiles:  files,
	})
}

// Load implements nodestore.Store.
func (s *Store) Load(dir string) (nodestore.Record, error) {
	path := filepath.Join(dir, StateFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nodestore.Record{}, fmt.Errorf("%w in %s", nodestore.ErrNoRecord, dir)
	}
	if err != nil {
		return nodestore.Record{}, err
	}

	var rec nodestore.Record
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&rec); err != nil {
		return nodestore.Record{}, fmt.Errorf("malformed record %s: %w", path, err)
	}
	return rec, nil
}

// LoadOutputs implements nodestore.Store.
func (s *Store) LoadOutputs(rec nodestore.Record) (map[string]any, error) {
	if !rec.Complete() {
		return nil, errors.New("record has no outputs artifact")
	}
	data, err := os.ReadFile(rec.NodeOutput)
	if err != nil {
		return nil, err
	}
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("malformed outputs %s: %w", rec.NodeOutput, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// normalize replaces nil collections so the JSON always holds lists and
// objects.
func normalize(d nodestore.Dependencies) nodestore.Dependencies {
	if d.Nodes == nil {
		d.Nodes = []string{}
	}
	if d.StateVariables == nil {
		d.StateVariables = map[string]any{}
	}
	if d.StaticFiles == nil {
		d.StaticFiles = []string{}
	}
	return d
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	data = append(data, '\n')
	return writeFileAtomic(path, data, 0o644)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
