package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/vk/sweepgrid/internal/config"
	"github.com/vk/sweepgrid/internal/node"
	"github.com/vk/sweepgrid/internal/registry"
)

// SimpleKind is the node kind registered by SimpleModule.
const SimpleKind = "test"

// SimpleSettings are the attributes of a "test" node block.
type SimpleSettings struct {
	Emit  map[string]string `hcl:"emit,optional"`
	Vars  []string          `hcl:"vars,optional"`
	Files []string          `hcl:"files,optional"`
	Fail  string            `hcl:"fail,optional"`
}

// SimpleModule registers the "test" kind, backed by TestNode, and keeps
// every node it constructed so tests can inspect run counts.
type SimpleModule struct {
	mu    sync.Mutex
	nodes map[string]*TestNode
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	r.RegisterKind(SimpleKind, m.build)
}

func (m *SimpleModule) build(ctx context.Context, decl *config.Node, conv config.Converter) (node.Node, error) {
	var s SimpleSettings
	if err := conv.DecodeBody(ctx, decl.Body, &s); err != nil {
		return nil, err
	}
	n := NewNode(decl.Name)
	n.Vars = s.Vars
	n.Files = s.Files
	if len(s.Emit) > 0 {
		n.Emit = make(map[string]any, len(s.Emit))
		for k, v := range s.Emit {
			n.Emit[k] = v
		}
	}
	if s.Fail != "" {
		n.Err = errors.New(s.Fail)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nodes == nil {
		m.nodes = make(map[string]*TestNode)
	}
	m.nodes[decl.Name] = n
	return n, nil
}

// Node returns the node constructed for the declaration name.
func (m *SimpleModule) Node(name string) *TestNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nodes[name]
}
