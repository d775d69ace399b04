// Package graph discovers the full node set of a sweep from its root nodes.
//
// # Why Graph Package Exists
//
// Nodes never list their edges explicitly. Each node registers dependency
// references on its inputs when it is constructed, and the source of every
// reference is a parent. Registering the roots a sweep file declares is
// therefore enough; everything a root depends on, including hidden helper
// nodes built by composite plugins, is found by walking inputs.
//
// # Responsibilities
//
//   - Walk parents breadth-first from the roots, once per node
//   - Keep a stable order: roots first in registration order, then parents in
//     the order they were found
//   - Record the reverse edges (children), which the scheduler uses to pick
//     tail nodes
//
// The walk tolerates cycles (each node is visited once); diagnosing them is
// the scheduler's job.
package graph
