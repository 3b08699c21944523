package referenceframe

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// NewParentFrameMissingError returns an error indicating that a group names a parent the robot does not have.
func NewParentFrameMissingError(group, parent string) error {
	return NewLookupError("parent group", parent, []string{group})
}

// NamingConflictError is returned when two owners claim the same name in a namespace that must be unique
// robot-wide, for example two groups declaring the same actuator.
type NamingConflictError struct {
	Kind   string
	Name   string
	First  string
	Second string
}

// NewNamingConflictError returns an error for name of the given kind being claimed by both first and second.
func NewNamingConflictError(kind, name, first, second string) error {
	return &NamingConflictError{Kind: kind, Name: name, First: first, Second: second}
}

func (e *NamingConflictError) Error() string {
	return fmt.Sprintf("more than one %s is named %q (claimed by %q and %q), please give each %s a unique name",
		e.Kind, e.Name, e.First, e.Second, e.Kind)
}

// LookupError is returned when a group, actuator or virtual key name is not known.
type LookupError struct {
	Kind string
	Name string
	// Context is a list of valid names, or of the names that referenced the missing one.
	Context []string
}

// NewLookupError returns an error for a missing name of the given kind.
func NewLookupError(kind, name string, context []string) error {
	return &LookupError{Kind: kind, Name: name, Context: context}
}

func (e *LookupError) Error() string {
	msg := fmt.Sprintf("no %s named %q", e.Kind, e.Name)
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" (%s)", strings.Join(e.Context, ", "))
	}
	return msg
}

// StateShapeError is returned when a state map does not fit what its receiver declares, either by naming keys the
// receiver does not have or by having the wrong number of values.
type StateShapeError struct {
	Owner    string
	Unknown  []string
	Got      int
	Expected int
}

// NewUndeclaredKeysError returns an error for keys that owner does not declare.
func NewUndeclaredKeysError(owner string, unknown []string) error {
	return &StateShapeError{Owner: owner, Unknown: unknown}
}

// NewArityError returns an error for a state of got values given to an owner that expects expected values.
func NewArityError(owner string, got, expected int) error {
	return &StateShapeError{Owner: owner, Got: got, Expected: expected}
}

func (e *StateShapeError) Error() string {
	if len(e.Unknown) > 0 {
		return fmt.Sprintf("%s has no state named %s", e.Owner, strings.Join(e.Unknown, ", "))
	}
	return fmt.Sprintf("state for %s has %d values, expected %d", e.Owner, e.Got, e.Expected)
}

// TopologyError is returned when walking parents from a group never reaches a root.
type TopologyError struct {
	Group string
	Depth int
}

// NewTopologyError returns an error for a parent walk from group that exceeded depth steps.
func NewTopologyError(group string, depth int) error {
	return &TopologyError{Group: group, Depth: depth}
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("parents of group %q do not reach a root within %d steps, the robot contains a cycle", e.Group, e.Depth)
}

// IsNamingConflictError reports whether err is, or wraps, a *NamingConflictError.
func IsNamingConflictError(err error) bool {
	var target *NamingConflictError
	return errors.As(err, &target)
}

// IsLookupError reports whether err is, or wraps, a *LookupError.
func IsLookupError(err error) bool {
	var target *LookupError
	return errors.As(err, &target)
}

// IsStateShapeError reports whether err is, or wraps, a *StateShapeError.
func IsStateShapeError(err error) bool {
	var target *StateShapeError
	return errors.As(err, &target)
}

// IsTopologyError reports whether err is, or wraps, a *TopologyError.
func IsTopologyError(err error) bool {
	var target *TopologyError
	return errors.As(err, &target)
}
