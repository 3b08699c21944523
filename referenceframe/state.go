package referenceframe

import (
	"math"
	"sort"

	"github.com/samber/lo"
)

// State maps joint names to values. Virtual keys name a state variable of a transformation (see JointKey); actuated
// keys of closed groups are free-form actuator names.
type State map[string]float64

// JointKey is the virtual key of a transformation's state variable.
func JointKey(transformation, parameter string) string {
	return transformation + "_" + parameter
}

// Clone returns a copy of s. The clone of a nil state is an empty state.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge returns a new state holding s overlaid with every entry of other.
func (s State) Merge(other State) State {
	out := s.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Keys returns the keys of s in sorted order.
func (s State) Keys() []string {
	keys := lo.Keys(map[string]float64(s))
	sort.Strings(keys)
	return keys
}

// AlmostEqual reports whether s and other have the same keys with values within tol.
func (s State) AlmostEqual(other State, tol float64) bool {
	if len(s) != len(other) {
		return false
	}
	for k, v := range s {
		o, ok := other[k]
		if !ok || math.Abs(v-o) > tol {
			return false
		}
	}
	return true
}

// undeclared returns the sorted keys of s that are not in declared.
func undeclared(s State, declared map[string]bool) []string {
	var unknown []string
	for k := range s {
		if !declared[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	return unknown
}
