package hcl_adapter

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/vk/sweepgrid/internal/config"
	"github.com/vk/sweepgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct {
	evalCtx *hcl.EvalContext
}

// NewConverter creates a converter whose expressions can read `sweep.name`,
// `sweep.directory` and `sweep.source`.
func NewConverter(s *config.Sweep) *Converter {
	vars := map[string]cty.Value{}
	if s != nil {
		vars["sweep"] = cty.ObjectVal(map[string]cty.Value{
			"name":      cty.StringVal(s.Name),
			"directory": cty.StringVal(s.Directory),
			"source":    cty.StringVal(s.Source),
		})
	}
	return &Converter{evalCtx: newEvalContext(vars)}
}

// EvalContext returns the context node attributes are evaluated in.
func (c *Converter) EvalContext() *hcl.EvalContext {
	return c.evalCtx
}

// DecodeBody decodes a node body into a gohcl-tagged struct.
func (c *Converter) DecodeBody(ctx context.Context, body hcl.Body, target any) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting HCL body decoding.", "target", fmt.Sprintf("%T", target))
	if diags := gohcl.DecodeBody(body, c.evalCtx, target); diags.HasErrors() {
		return diags
	}
	logger.Debug("Finished HCL body decoding successfully.")
	return nil
}

// ToCtyValue converts a native Go value into its corresponding cty.Value.
func (c *Converter) ToCtyValue(v any) (cty.Value, error) {
	if v == nil {
		return cty.NilVal, nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}

var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "name", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})

func newEvalContext(vars map[string]cty.Value) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: vars,
		Functions: map[string]function.Function{
			"abs":        stdlib.AbsoluteFunc,
			"ceil":       stdlib.CeilFunc,
			"coalesce":   stdlib.CoalesceFunc,
			"concat":     stdlib.ConcatFunc,
			"env":        envFunc,
			"floor":      stdlib.FloorFunc,
			"format":     stdlib.FormatFunc,
			"join":       stdlib.JoinFunc,
			"jsonencode": stdlib.JSONEncodeFunc,
			"length":     stdlib.LengthFunc,
			"lower":      stdlib.LowerFunc,
			"max":        stdlib.MaxFunc,
			"min":        stdlib.MinFunc,
			"replace":    stdlib.ReplaceFunc,
			"split":      stdlib.SplitFunc,
			"trimspace":  stdlib.TrimSpaceFunc,
			"upper":      stdlib.UpperFunc,
		},
	}
}
