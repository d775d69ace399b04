package nodestore

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/vk/sweepgrid/internal/statetable"
)

// Equivalent compares two dependency descriptors structurally. Parent names
// and static files compare as multisets; state variables compare
// as maps. The reason string describes the first difference found.
func Equivalent(a, b Dependencies) (bool, string) {
	if !sameSet(a.Nodes, b.Nodes) {
		return false, fmt.Sprintf("parents differ: %v != %v", a.Nodes, b.Nodes)
	}
	if !sameSet(a.StaticFiles, b.StaticFiles) {
		return false, fmt.Sprintf("static files differ: %v != %v", a.StaticFiles, b.StaticFiles)
	}
	if len(a.StateVariables) != len(b.StateVariables) {
		return false, fmt.Sprintf("state variables differ: %d != %d entries", len(a.StateVariables), len(b.StateVariables))
	}
	keys := make([]string, 0, len(a.StateVariables))
	for k := range a.StateVariables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		bv, ok := b.StateVariables[k]
		if !ok {
			return false, fmt.Sprintf("state variable %q missing", k)
		}
		if !sameValue(a.StateVariables[k], bv) {
			return false, fmt.Sprintf("state variable %q differs: %v != %v", k, a.StateVariables[k], bv)
		}
	}
	return true, ""
}

// sameSet compares a and b as multisets, so the result does not depend on
// argument order.
func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, s := range a {
		counts[s]++
	}
	for _, s := range b {
		if counts[s] == 0 {
			return false
		}
		counts[s]--
	}
	return true
}

// sameValue treats numbers as equal regardless of their Go type, since a
// record read back from JSON holds float64 where the live row may not.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	_, aStr := a.(string)
	_, bStr := b.(string)
	if !aStr && !bStr {
		af, aok := statetable.ToFloat(a)
		bf, bok := statetable.ToFloat(b)
		if aok && bok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}
