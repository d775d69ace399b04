// Package statetable holds the run table of a sweep: one row per parameter
// variant, one column per parameter or derived value.
//
// # Model
//
// A Table is columnar and ordered. Every column has a unique name and a
// single Kind shared by all of its cells:
//
//   - Numeric columns store float64 cells (or nil for an unset cell).
//   - Opaque columns store whatever was written (strings, numbers, nil).
//
// A column is created Numeric unless the first value written to it is not a
// number. A later non-numeric write promotes the whole column to Opaque, so
// the single-kind rule keeps holding.
//
// # Lifecycle
//
// A sweep table starts from a defaults row (LoadDefaults) which is broadcast
// over the rows of a design table (LoadDesign). After that it only grows by
// computed columns (SetAt / SetForAllRows); rows and columns are never removed.
package statetable
