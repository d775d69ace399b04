// Package node defines the unit of scheduled work and the bookkeeping every
// node kind shares.
//
// # Lifecycle
//
// Within one row a node moves through
//
//	Constructed → StateSnapshotted → DependenciesCollected → Initialized →
//	Ran → OutputsPersisted → CleanedUp
//
// and is returned to StateSnapshotted before the next row by restoring the
// snapshot taken right after construction. Nothing a previous row's
// Initialize or Run changed survives the restore: Base resets its own
// fields, and plugin kinds keep their per-run fields in an embedded State.
//
// # Dependencies
//
// Constructors register inputs with Base.Depend. The source node of every
// input is a parent; the graph is discovered from those references alone.
// A reused run (cache hit) replaces Initialize and Run with ApplyOutputs.
package node
