// Package registry maps the node kinds used in sweep files (e.g. "command")
// to the Go factories that construct them.
//
// Every plugin under modules/ implements Module and registers its kinds
// during application startup. Before a sweep is built, the registry is
// validated against the loaded model, so an unknown kind fails fast with
// the position of its declaration instead of halfway through a sweep.
package registry
