package hcl_adapter

import "github.com/hashicorp/hcl/v2"

var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "sweep"},
		{Type: "node", LabelNames: []string{"kind", "name"}},
	},
}

var nodeSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "clean_outputs"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "inputs"},
	},
}

// sweepBlock is decoded with gohcl. Pointer fields tell an omitted flag from
// an explicit false.
type sweepBlock struct {
	Name           string         `hcl:"name,optional"`
	Directory      string         `hcl:"directory,optional"`
	Defaults       string         `hcl:"defaults,optional"`
	Parameters     hcl.Expression `hcl:"parameters,optional"`
	Design         string         `hcl:"design,optional"`
	CleanSlate     *bool          `hcl:"clean_slate,optional"`
	SkipMatching   *bool          `hcl:"skip_matching,optional"`
	FrequentOutput *bool          `hcl:"frequent_output,optional"`
	Output         string         `hcl:"output,optional"`
	Store          string         `hcl:"store,optional"`
}
