package node

import (
	"fmt"

	"github.com/vk/sweepgrid/internal/depref"
	"github.com/vk/sweepgrid/internal/statetable"
)

// Input binds a dependency reference to a name on the consuming node. The
// resolved value is only valid between CollectDependencies and the next
// restore.
type Input struct {
	name     string
	ref      depref.Ref
	value    any
	resolved bool
}

func (in *Input) Name() string    { return in.name }
func (in *Input) Ref() depref.Ref { return in.ref }
func (in *Input) Resolved() bool  { return in.resolved }
func (in *Input) Value() any      { return in.value }
func (in *Input) String() string  { return statetable.FormatValue(in.value) }

// Float returns the resolved value as a number.
func (in *Input) Float() (float64, error) {
	if !in.resolved {
		return 0, in.resolveErr()
	}
	f, ok := statetable.ToFloat(in.value)
	if !ok {
		return 0, fmt.Errorf("input %q: %v is not numeric", in.name, in.value)
	}
	return f, nil
}

// Strings returns a file list value. A single path is returned as a one
// element list.
func (in *Input) Strings() ([]string, error) {
	if !in.resolved {
		return nil, in.resolveErr()
	}
	switch v := in.value.(type) {
	case []string:
		return v, nil
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, len(v))
		for i, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("input %q: element %d is %T, not a string", in.name, i, e)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("input %q: %T is not a file list", in.name, v)
	}
}

func (in *Input) resolve() error {
	v, err := in.ref.Resolve()
	if err != nil {
		return err
	}
	in.value, in.resolved = v, true
	return nil
}

func (in *Input) resolveErr() error {
	return fmt.Errorf("input %q is not resolved", in.name)
}
