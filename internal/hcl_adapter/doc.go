// Package hcl_adapter implements config.Loader and config.Converter for HCL
// sweep files.
//
// A sweep file holds one `sweep` block and any number of node declarations:
//
//	sweep {
//	  name       = "mosfet"
//	  defaults   = "defaults.csv"
//	  design     = "design.csv"
//	  parameters = { vdd = 1.2 }
//	}
//
//	node "command" "sim" {
//	  command  = "sdevice ${sweep.name}.cmd"
//	  template = "sdevice.cmd.tmpl"
//
//	  inputs {
//	    mesh = file(node.mesh, ".*_msh\\.tdr", 0)
//	  }
//	}
//
// Entries of the `inputs` block are references, never evaluated values:
// `node.<name>.<output>` binds one output of another node,
// `files(node.<name>, "<regexp>")` every produced file whose name matches,
// and `file(node.<name>, "<regexp>", <index>)` one of those. Every other
// attribute of a node block is left to the plugin that handles its kind.
package hcl_adapter
