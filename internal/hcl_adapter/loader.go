package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/sweepgrid/internal/config"
	"github.com/vk/sweepgrid/internal/ctxlog"
	"github.com/vk/sweepgrid/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file found under paths. Exactly one sweep block must
// be declared across all files; node names must be unique.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, nil, err
	}
	if len(hclFiles) == 0 {
		return nil, nil, fmt.Errorf("no .hcl files found in %s", strings.Join(paths, ", "))
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	model := &config.Model{}
	var (
		sweepBody hcl.Body
		sweepDir  string
		nodes     []*hcl.Block
		nodeDirs  []string
	)

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		content, diags := hclFile.Body.Content(rootSchema)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		dir, err := filepath.Abs(filepath.Dir(file))
		if err != nil {
			return nil, nil, err
		}
		for _, block := range content.Blocks {
			switch block.Type {
			case "sweep":
				if sweepBody != nil {
					return nil, nil, fmt.Errorf("%s: duplicate sweep block", block.DefRange)
				}
				sweepBody, sweepDir = block.Body, dir
			case "node":
				nodes = append(nodes, block)
				nodeDirs = append(nodeDirs, dir)
			}
		}
	}
	if sweepBody == nil {
		return nil, nil, fmt.Errorf("no sweep block declared")
	}

	sweep, err := l.translateSweep(ctx, sweepBody, sweepDir)
	if err != nil {
		return nil, nil, err
	}
	model.Sweep = sweep
	converter := NewConverter(sweep)

	seen := make(map[string]hcl.Range)
	for i, block := range nodes {
		n, err := l.translateNode(ctx, block, nodeDirs[i], converter)
		if err != nil {
			return nil, nil, err
		}
		if prev, dup := seen[n.Name]; dup {
			return nil, nil, fmt.Errorf("%s: node %q already declared at %s", n.DeclRange, n.Name, prev)
		}
		seen[n.Name] = n.DeclRange
		model.Nodes = append(model.Nodes, n)
	}

	logger.Debug("HCL loading complete.", "sweep", sweep.Name, "nodes", len(model.Nodes))
	return model, converter, nil
}

func (l *Loader) translateSweep(ctx context.Context, body hcl.Body, dir string) (*config.Sweep, error) {
	var sb sweepBlock
	if diags := gohcl.DecodeBody(body, newEvalContext(nil), &sb); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode sweep block: %w", diags)
	}

	s := &config.Sweep{
		Name:           sb.Name,
		Directory:      resolvePath(dir, sb.Directory),
		Defaults:       resolvePath(dir, sb.Defaults),
		Design:         resolvePath(dir, sb.Design),
		Output:         sb.Output,
		Store:          sb.Store,
		SkipMatching:   true,
		FrequentOutput: true,
		Source:         dir,
	}
	if sb.CleanSlate != nil {
		s.CleanSlate = *sb.CleanSlate
	}
	if sb.SkipMatching != nil {
		s.SkipMatching = *sb.SkipMatching
	}
	if sb.FrequentOutput != nil {
		s.FrequentOutput = *sb.FrequentOutput
	}
	if s.Store == "" {
		s.Store = config.StoreFile
	}
	if s.Store != config.StoreFile && s.Store != config.StoreMemory {
		return nil, fmt.Errorf("sweep: unknown store %q (want %q or %q)", s.Store, config.StoreFile, config.StoreMemory)
	}

	if isExprDefined(ctx, sb.Parameters, "parameters") {
		val, diags := sb.Parameters.Value(newEvalContext(nil))
		if diags.HasErrors() {
			return nil, fmt.Errorf("sweep: parameters: %w", diags)
		}
		native, err := ctyToNative(val)
		if err != nil {
			return nil, fmt.Errorf("sweep: parameters: %w", err)
		}
		params, ok := native.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("sweep: parameters must be an object, got %s", val.Type().FriendlyName())
		}
		s.Parameters = params
	}

	// The design file names the sweep and its directory when they are not
	// given explicitly.
	stem := ""
	if s.Design != "" {
		stem = strings.TrimSuffix(filepath.Base(s.Design), filepath.Ext(s.Design))
	}
	if s.Name == "" {
		s.Name = stem
	}
	if s.Name == "" {
		s.Name = "sweep"
	}
	if s.Directory == "" {
		s.Directory = dir
		if s.Design != "" {
			s.Directory = filepath.Dir(s.Design)
		}
	}
	if s.Defaults == "" && s.Parameters == nil && s.Design == "" {
		return nil, fmt.Errorf("sweep %q: one of defaults, parameters or design is required", s.Name)
	}
	return s, nil
}

func (l *Loader) translateNode(ctx context.Context, block *hcl.Block, dir string, conv *Converter) (*config.Node, error) {
	kind, name := block.Labels[0], block.Labels[1]
	logger := ctxlog.FromContext(ctx).With("node_kind", kind, "node_name", name)
	logger.Debug("Translating HCL node to internal config model.")

	content, remain, diags := block.Body.PartialContent(nodeSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("node %q: %w", name, diags)
	}

	n := &config.Node{
		Kind:      kind,
		Name:      name,
		Body:      remain,
		DeclRange: block.DefRange,
		Dir:       dir,
	}
	if attr, ok := content.Attributes["clean_outputs"]; ok {
		if diags := gohcl.DecodeExpression(attr.Expr, conv.EvalContext(), &n.CleanOutputs); diags.HasErrors() {
			return nil, fmt.Errorf("node %q: clean_outputs: %w", name, diags)
		}
	}

	for _, inputs := range content.Blocks {
		refs, err := parseInputs(inputs.Body)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", name, err)
		}
		n.Inputs = append(n.Inputs, refs...)
	}
	logger.Debug("Node translated.", "inputs", len(n.Inputs), "parents", n.Parents())
	return n, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl
// files found, without duplicates.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}
	return allFiles, nil
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
