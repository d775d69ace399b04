// Package tmpl preprocesses input-deck templates: it renders a template file
// with the values of a row into a node's working directory, and lists the
// top-level fields a template reads so that a node can declare exactly
// those state variables as its dependencies.
package tmpl

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"text/template/parse"

	sprig "github.com/go-task/slim-sprig/v3"
	"mvdan.cc/sh/v3/syntax"
)

// Ext is stripped from rendered file names.
const Ext = ".tmpl"

var funcs template.FuncMap

func init() {
	funcs = template.FuncMap(sprig.TxtFuncMap())
	funcs["joinPath"] = func(elem ...string) string { return filepath.Join(elem...) }
	funcs["base"] = filepath.Base
	funcs["shellQuote"] = func(s string) (string, error) { return syntax.Quote(s, syntax.LangBash) }
	funcs["q"] = funcs["shellQuote"]
}

// Parse reads and parses a template file.
func Parse(path string) (*template.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := template.New(filepath.Base(path)).Funcs(funcs).Option("missingkey=error").Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	return t, nil
}

// Render executes a template string.
func Render(text string, data map[string]any) (string, error) {
	t, err := template.New("").Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// OutputName is the file name a template renders to: the base name without
// Ext, with suffix inserted before the remaining extension.
//
//	OutputName("decks/sdevice.cmd.tmpl", "_dev") == "sdevice_dev.cmd"
func OutputName(path, suffix string) string {
	name := strings.TrimSuffix(filepath.Base(path), Ext)
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + suffix + ext
}

// RenderFile renders the template at path into dir and returns the path of
// the rendered file.
func RenderFile(path string, data map[string]any, dir, suffix string) (string, error) {
	t, err := Parse(path)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", path, err)
	}
	out := filepath.Join(dir, OutputName(path, suffix))
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return out, nil
}

// Fields returns the sorted, distinct top-level field names the template at
// path reads from its data, e.g. "vdd" for {{ .vdd }} or {{ $.vdd.x }}.
// Fields read inside range and with blocks are included as well.
func Fields(path string) ([]string, error) {
	t, err := Parse(path)
	if err != nil {
		return nil, err
	}
	return fields(t), nil
}

// TextFields is Fields for a template string.
func TextFields(text string) ([]string, error) {
	t, err := template.New("").Funcs(funcs).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return fields(t), nil
}

func fields(t *template.Template) []string {
	seen := make(map[string]struct{})
	for _, tt := range t.Templates() {
		if tt.Tree != nil {
			walk(tt.Tree.Root, seen)
		}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func walk(n parse.Node, seen map[string]struct{}) {
	switch n := n.(type) {
	case nil:
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, c := range n.Nodes {
			walk(c, seen)
		}
	case *parse.ActionNode:
		walk(n.Pipe, seen)
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, c := range n.Cmds {
			walk(c, seen)
		}
	case *parse.CommandNode:
		for _, a := range n.Args {
			walk(a, seen)
		}
	case *parse.FieldNode:
		seen[n.Ident[0]] = struct{}{}
	case *parse.VariableNode:
		if len(n.Ident) > 1 && n.Ident[0] == "$" {
			seen[n.Ident[1]] = struct{}{}
		}
	case *parse.ChainNode:
		walk(n.Node, seen)
	case *parse.IfNode:
		walkBranch(&n.BranchNode, seen)
	case *parse.RangeNode:
		walkBranch(&n.BranchNode, seen)
	case *parse.WithNode:
		walkBranch(&n.BranchNode, seen)
	case *parse.TemplateNode:
		walk(n.Pipe, seen)
	}
}

func walkBranch(b *parse.BranchNode, seen map[string]struct{}) {
	walk(b.Pipe, seen)
	walk(b.List, seen)
	walk(b.ElseList, seen)
}
