// Package scheduler linearizes a node set into an execution order in which
// every node comes after all of its parents.
//
// # Why Scheduler Exists
//
// A sweep replays one fixed order for every row. The order is computed once,
// verified once, and used to give every node its display name
// ("<position>_<kind>"), which is also the name of its per-row directory.
// Any problem with the graph therefore surfaces before a single node runs.
//
// # How It Works
//
//  1. Tails are the nodes no other node in the set depends on, taken in
//     registration order.
//  2. A depth-first walk from each tail into its parents appends a node once
//     all its parents are placed (post-order), so a node shared by several
//     tails is placed once, before its first user.
//  3. Nodes still unplaced after the tails (only possible inside a cycle) are
//     walked as well, so a cycle is always reported.
//  4. An in-progress mark on the walk stack detects cycles; the error names
//     the path.
//
// Verify rechecks any order independently: every parent must sit at a lower
// position, and a parent missing from the order is an inconsistency.
package scheduler
