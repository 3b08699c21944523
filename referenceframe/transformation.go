package referenceframe

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/tripkin/spatialmath"
)

// A Transformation is a named parametric pose. Its parameters (tx, ty, tz and either rx, ry, rz or qw, qx, qy, qz)
// are fixed at creation, except for the ordered subset declared as state variables, whose values may change.
type Transformation struct {
	name           string
	values         map[string]float64
	stateVariables []string
	convention     spatialmath.Convention
}

// NewTransformation creates a transformation using the default rotation convention.
func NewTransformation(name string, values map[string]float64, stateVariables ...string) (*Transformation, error) {
	return NewTransformationWithConvention(name, spatialmath.DefaultConvention, values, stateVariables...)
}

// NewTransformationWithConvention creates a transformation whose Euler angles are composed in the order conv names.
// Every state variable must be one of the given values.
func NewTransformationWithConvention(
	name string,
	conv spatialmath.Convention,
	values map[string]float64,
	stateVariables ...string,
) (*Transformation, error) {
	if name == "" {
		return nil, errors.New("transformation name cannot be empty")
	}
	if conv == "" {
		conv = spatialmath.DefaultConvention
	}
	if err := conv.Validate(); err != nil {
		return nil, errors.Wrapf(err, "transformation %q", name)
	}
	t := &Transformation{
		name:       name,
		values:     make(map[string]float64, len(values)),
		convention: conv,
	}
	for k, v := range values {
		if !spatialmath.IsParameter(k) {
			return nil, NewUndeclaredKeysError("transformation parameters", []string{k})
		}
		t.values[k] = v
	}
	seen := map[string]bool{}
	for _, sv := range stateVariables {
		if _, ok := t.values[sv]; !ok {
			return nil, NewUndeclaredKeysError("transformation "+name+" parameters", []string{sv})
		}
		if seen[sv] {
			return nil, errors.Errorf("transformation %q declares state variable %q twice", name, sv)
		}
		seen[sv] = true
		t.stateVariables = append(t.stateVariables, sv)
	}
	if _, err := t.Matrix(); err != nil {
		return nil, errors.Wrapf(err, "transformation %q", name)
	}
	return t, nil
}

// Name returns the name of the transformation.
func (t *Transformation) Name() string {
	return t.name
}

func (t *Transformation) String() string {
	return t.name
}

// Convention returns the rotation convention of the transformation.
func (t *Transformation) Convention() spatialmath.Convention {
	return t.convention
}

// StateVariables returns the declared state variables in declaration order.
func (t *Transformation) StateVariables() []string {
	return append([]string{}, t.stateVariables...)
}

// Values returns every parameter with its current value.
func (t *Transformation) Values() map[string]float64 {
	out := make(map[string]float64, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}

// State returns the current values of the declared state variables, keyed by parameter name.
func (t *Transformation) State() State {
	out := make(State, len(t.stateVariables))
	for _, sv := range t.stateVariables {
		out[sv] = t.values[sv]
	}
	return out
}

func (t *Transformation) checkState(state State) error {
	declared := make(map[string]bool, len(t.stateVariables))
	for _, sv := range t.stateVariables {
		declared[sv] = true
	}
	if unknown := undeclared(state, declared); len(unknown) > 0 {
		return NewUndeclaredKeysError("transformation "+t.name, unknown)
	}
	return nil
}

// SetState updates the given state variables. If any key is not a declared state variable nothing is changed.
func (t *Transformation) SetState(state State) error {
	if err := t.checkState(state); err != nil {
		return err
	}
	for k, v := range state {
		t.values[k] = v
	}
	return nil
}

// Matrix returns the homogeneous transform at the current values.
func (t *Transformation) Matrix() (*mat.Dense, error) {
	return spatialmath.NewHomogeneousTransform(t.values, t.convention)
}

// MatrixWith returns the homogeneous transform with the given state variables substituted, leaving the
// transformation itself untouched.
func (t *Transformation) MatrixWith(state State) (*mat.Dense, error) {
	if len(state) == 0 {
		return t.Matrix()
	}
	if err := t.checkState(state); err != nil {
		return nil, err
	}
	values := make(map[string]float64, len(t.values))
	for k, v := range t.values {
		values[k] = v
	}
	for k, v := range state {
		values[k] = v
	}
	return spatialmath.NewHomogeneousTransform(values, t.convention)
}

// Clone returns an independent copy of the transformation.
func (t *Transformation) Clone() *Transformation {
	return &Transformation{
		name:           t.name,
		values:         t.Values(),
		stateVariables: t.StateVariables(),
		convention:     t.convention,
	}
}
