// Package sweep runs a node graph once per row of a state table, reusing
// the persisted outputs of earlier rows when a node's dependency descriptor
// and those of all its ancestors are unchanged.
//
// # Directory layout
//
//	<directory>/<name>/                  base directory
//	  schedule.txt                       schedule report
//	  state.csv                          state table with orchestration columns
//	  output.csv                         results, one row per completed run
//	  run_<i>/<position>_<kind>/         node working directory per row
//	    node_state.json, outputs.msgpack
//
// # Reuse
//
// Before a node runs for row i, rows i-1 down to 0 are searched for a record
// of the same node whose dependencies are structurally equal, recursively for
// every parent at that same row. The nearest match wins. Records that are
// missing, malformed or lack outputs never match.
package sweep
