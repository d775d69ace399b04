// Package builder turns the declarations of a config.Model into node.Node
// values that the sweep orchestrator can schedule.
//
// # Why Builder Exists
//
// A sweep file describes nodes by kind and name and connects them with
// references in their `inputs` blocks. The orchestrator, on the other hand,
// only knows live node objects whose inputs hold depref references to other
// live nodes. The builder is the bridge between the two:
//
//  1. **Validate:** every kind is registered and every reference names a
//     declared node.
//  2. **Order:** declarations are placed in a dag.Graph and ordered so that a
//     referenced node is always constructed before the node referencing it.
//     Reference cycles are reported here, before any plugin code runs.
//  3. **Construct:** each declaration is handed to the factory of its kind.
//  4. **Wire:** each input reference becomes a depref reference to the
//     already-constructed parent and is attached to the node.
//
// The builder does not decide execution order. The orchestrator discovers
// the graph from the wired references and schedules it itself; composite
// plugins may add hidden nodes the builder never sees.
package builder
