// Package depref implements typed, lazily-resolved references from one node
// to the results of another.
//
// A reference never owns its source. Value references bind to one named
// entry of the source's outputs; file references bind to a regexp-filtered
// view of the source's produced files which is recomputed on every Resolve.
package depref

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrUnresolved is returned when a value reference points at an output
	// the source has not produced.
	ErrUnresolved = errors.New("unresolved dependency")
	// ErrSelection is returned when a file reference selects an index past
	// the end of the filtered list.
	ErrSelection = errors.New("file selection out of range")
)

// Source is the part of a node a reference reads from.
type Source interface {
	Outputs() map[string]any
	OutputFiles() []string
}

// Ref is a dependency on another node.
type Ref interface {
	// Source returns the node the reference reads from.
	Source() Source
	// Resolve reads the current value behind the reference.
	Resolve() (any, error)
	// String describes the reference for logs and errors.
	String() string
}

// ValueRef binds to one named entry of the source's outputs.
type ValueRef struct {
	source    Source
	attribute string
}

// Value returns a reference to source.Outputs()[attribute].
func Value(source Source, attribute string) *ValueRef {
	return &ValueRef{source: source, attribute: attribute}
}

func (r *ValueRef) Source() Source { return r.source }

// Attribute is the output name the reference reads.
func (r *ValueRef) Attribute() string { return r.attribute }

func (r *ValueRef) Resolve() (any, error) {
	outputs := r.source.Outputs()
	v, ok := outputs[r.attribute]
	if !ok {
		return nil, fmt.Errorf("%w: output %q has not been produced", ErrUnresolved, r.attribute)
	}
	return v, nil
}

func (r *ValueRef) String() string {
	return fmt.Sprintf("output %q", r.attribute)
}

// FileRef binds to the source's produced files whose path matches pattern.
// The match is anchored at the start of the path.
type FileRef struct {
	source  Source
	pattern *regexp.Regexp
	raw     string
	index   int
}

// Files returns a reference to every produced file matching pattern.
func Files(source Source, pattern string) (*FileRef, error) {
	return File(source, pattern, -1)
}

// File returns a reference to the index-th produced file matching pattern.
// A negative index selects every match.
func File(source Source, pattern string, index int) (*FileRef, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("invalid file pattern %q: %w", pattern, err)
	}
	return &FileRef{source: source, pattern: re, raw: pattern, index: index}, nil
}

// MustFile is File for patterns known at compile time.
func MustFile(source Source, pattern string, index int) *FileRef {
	r, err := File(source, pattern, index)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *FileRef) Source() Source { return r.source }

// Pattern returns the pattern as written by the caller.
func (r *FileRef) Pattern() string { return r.raw }

// Index returns the selected position, or -1 for all matches.
func (r *FileRef) Index() int { return r.index }

// Resolve filters the source's current file list. It returns a string when
// an index is selected and a []string otherwise.
func (r *FileRef) Resolve() (any, error) {
	matches := r.Matches()
	if r.index < 0 {
		return matches, nil
	}
	if r.index >= len(matches) {
		return nil, fmt.Errorf("%w: index %d, %d file(s) match %q", ErrSelection, r.index, len(matches), r.raw)
	}
	return matches[r.index], nil
}

// Matches returns every produced file currently matching the pattern.
func (r *FileRef) Matches() []string {
	matches := []string{}
	for _, f := range r.source.OutputFiles() {
		if r.pattern.MatchString(f) {
			matches = append(matches, f)
		}
	}
	return matches
}

func (r *FileRef) String() string {
	if r.index < 0 {
		return fmt.Sprintf("files %q", r.raw)
	}
	return fmt.Sprintf("file %q[%d]", r.raw, r.index)
}
