package referenceframe

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/tripkin/spatialmath"
)

// A KinematicGroup composes an ordered list of transformations into one node of a robot's tree. Its actuated state
// is what a physical robot commands; its virtual state is the set of transformation state variables used to
// compose the chain. The two coincide for open groups and are related by a Mapper for closed groups.
type KinematicGroup interface {
	// Name returns the name of the group.
	Name() string

	// Parent returns the name of the parent group. A root group is its own parent.
	Parent() string

	// Transformations returns the transformations owned by the group in base to tip order. They must not be
	// mutated directly; use the group's setters.
	Transformations() []*Transformation

	// Transform returns the ordered product of the group's transformation matrices at the current state.
	Transform() (*mat.Dense, error)

	// ActuatedState returns a snapshot of the actuated state.
	ActuatedState() State

	// VirtualState returns a snapshot of the virtual state.
	VirtualState() State

	// SetActuatedState updates the given actuated keys. Undeclared keys fail with a *StateShapeError and leave the
	// group unchanged.
	SetActuatedState(state State) error

	// SetVirtualState updates the given virtual keys. Undeclared keys fail with a *StateShapeError and leave the
	// group unchanged.
	SetVirtualState(state State) error

	// PassHintVirtualToActuated stores a hint for the next virtual to actuated mapping.
	PassHintVirtualToActuated(hint State)

	// PassHintActuatedToVirtual stores a hint for the next actuated to virtual mapping.
	PassHintActuatedToVirtual(hint State)

	// Clone returns an independent copy of the group.
	Clone() KinematicGroup
}

// A GroupOption configures a group at construction.
type GroupOption func(*groupBase)

// WithParent attaches the group to the named parent group. Without it the group is a root.
func WithParent(parent string) GroupOption {
	return func(g *groupBase) {
		g.parent = parent
	}
}

type jointRef struct {
	transformation int
	parameter      string
}

// groupBase holds what open and closed groups share: the owned transformations and the index from virtual keys to
// the state variables they name.
type groupBase struct {
	name            string
	parent          string
	transformations []*Transformation
	virtualKeys     []string
	virtualIndex    map[string]jointRef
}

func newGroupBase(name string, transformations []*Transformation, opts []GroupOption) (groupBase, error) {
	if name == "" {
		return groupBase{}, errors.New("group name cannot be empty")
	}
	g := groupBase{
		name:         name,
		parent:       name,
		virtualIndex: map[string]jointRef{},
	}
	for _, opt := range opts {
		opt(&g)
	}
	if g.parent == "" {
		g.parent = name
	}

	owners := map[string]bool{}
	for i, t := range transformations {
		if t == nil {
			return groupBase{}, errors.Errorf("group %q has a nil transformation at index %d", name, i)
		}
		if owners[t.Name()] {
			return groupBase{}, NewNamingConflictError("transformation", t.Name(), name, name)
		}
		owners[t.Name()] = true
		for _, sv := range t.StateVariables() {
			key := JointKey(t.Name(), sv)
			if prev, ok := g.virtualIndex[key]; ok {
				return groupBase{}, NewNamingConflictError(
					"virtual key", key, transformations[prev.transformation].Name(), t.Name())
			}
			g.virtualIndex[key] = jointRef{transformation: i, parameter: sv}
			g.virtualKeys = append(g.virtualKeys, key)
		}
		g.transformations = append(g.transformations, t)
	}
	return g, nil
}

func (g *groupBase) Name() string {
	return g.name
}

func (g *groupBase) String() string {
	return g.name
}

func (g *groupBase) Parent() string {
	return g.parent
}

func (g *groupBase) Transformations() []*Transformation {
	return append([]*Transformation{}, g.transformations...)
}

func (g *groupBase) Transform() (*mat.Dense, error) {
	out := spatialmath.Identity()
	for _, t := range g.transformations {
		m, err := t.Matrix()
		if err != nil {
			return nil, errors.Wrapf(err, "group %q", g.name)
		}
		out.Mul(out, m)
	}
	return out, nil
}

// readVirtual collects the current values of every state variable of every transformation.
func (g *groupBase) readVirtual() State {
	out := make(State, len(g.virtualKeys))
	for _, key := range g.virtualKeys {
		ref := g.virtualIndex[key]
		out[key] = g.transformations[ref.transformation].values[ref.parameter]
	}
	return out
}

func (g *groupBase) checkVirtual(state State) error {
	declared := make(map[string]bool, len(g.virtualKeys))
	for _, key := range g.virtualKeys {
		declared[key] = true
	}
	if unknown := undeclared(state, declared); len(unknown) > 0 {
		return NewUndeclaredKeysError("group "+g.name+" virtual state", unknown)
	}
	return nil
}

// writeVirtual applies a checked virtual state to the transformations.
func (g *groupBase) writeVirtual(state State) error {
	batches := map[int]State{}
	for key, v := range state {
		ref := g.virtualIndex[key]
		if batches[ref.transformation] == nil {
			batches[ref.transformation] = State{}
		}
		batches[ref.transformation][ref.parameter] = v
	}
	for i, batch := range batches {
		if err := g.transformations[i].SetState(batch); err != nil {
			return err
		}
	}
	return nil
}

func (g *groupBase) clone() groupBase {
	out := groupBase{
		name:         g.name,
		parent:       g.parent,
		virtualKeys:  append([]string{}, g.virtualKeys...),
		virtualIndex: make(map[string]jointRef, len(g.virtualIndex)),
	}
	for k, v := range g.virtualIndex {
		out.virtualIndex[k] = v
	}
	for _, t := range g.transformations {
		out.transformations = append(out.transformations, t.Clone())
	}
	return out
}
