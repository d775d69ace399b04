package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific sweep definition loader.
type Loader interface {
	// Load reads the sweep definition from the given paths, translates it into
	// the format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter decodes the raw settings of a node declaration into the Go struct
// of the plugin that handles the node kind.
type Converter interface {
	// DecodeBody decodes body into target, a pointer to a struct tagged for
	// the concrete format. Attributes already consumed by the loader (the
	// `inputs` block, `clean_outputs`) are ignored.
	DecodeBody(ctx context.Context, body hcl.Body, target any) error

	// ToCtyValue converts a native Go value into its cty.Value.
	ToCtyValue(v any) (cty.Value, error)
}
