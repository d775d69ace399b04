// Package config defines the format-agnostic model of a sweep definition,
// along with the core interfaces (Loader, Converter) for loading it and for
// decoding plugin-specific node settings.
//
// The `config.Model` is the single source of truth for the `builder` and
// `sweep` packages. Concrete implementations of the interfaces, such as for
// HCL, are provided in separate packages.
package config
