package referenceframe

import (
	"sort"

	"github.com/pkg/errors"
)

// ClosedGroup models a parallel sub-chain whose actuated coordinates, e.g. motor angles, and virtual coordinates,
// e.g. the orientation of a compound joint, are related by a loop-closure constraint. The virtual state is cached
// and only recomputed when one of the setters is called.
type ClosedGroup struct {
	groupBase
	mapper       Mapper
	actuatedKeys map[string]bool
	actuated     State
	virtual      State

	// Pending hints, consumed by the next successful setter in their direction.
	hintToVirtual  State
	hintToActuated State
}

// NewClosedGroup creates a closed group with the given initial actuated state. The initial virtual state is
// computed through mapper, warm-started from the transformations' current values.
func NewClosedGroup(
	name string,
	transformations []*Transformation,
	actuated State,
	mapper Mapper,
	opts ...GroupOption,
) (*ClosedGroup, error) {
	if mapper == nil {
		return nil, errors.Errorf("closed group %q needs a mapper", name)
	}
	base, err := newGroupBase(name, transformations, opts)
	if err != nil {
		return nil, err
	}
	g := &ClosedGroup{
		groupBase:    base,
		mapper:       mapper,
		actuatedKeys: make(map[string]bool, len(actuated)),
		actuated:     actuated.Clone(),
	}
	for k := range actuated {
		g.actuatedKeys[k] = true
	}

	current := g.readVirtual()
	virtual, err := mapper.ActuatedToVirtual(g.actuated.Clone(), current)
	if err != nil {
		return nil, errors.Wrapf(err, "computing initial virtual state of group %q", name)
	}
	if err := g.checkVirtual(virtual); err != nil {
		return nil, err
	}
	if err := g.writeVirtual(virtual); err != nil {
		return nil, err
	}
	g.virtual = current.Merge(virtual)
	return g, nil
}

// ActuatedState returns a snapshot of the actuated state.
func (g *ClosedGroup) ActuatedState() State {
	return g.actuated.Clone()
}

// VirtualState returns a snapshot of the cached virtual state.
func (g *ClosedGroup) VirtualState() State {
	return g.virtual.Clone()
}

// ActuatedKeys returns the declared actuator names in sorted order.
func (g *ClosedGroup) ActuatedKeys() []string {
	keys := make([]string, 0, len(g.actuatedKeys))
	for k := range g.actuatedKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetActuatedState merges state over the current actuated state and maps the result to the virtual space. The
// previous virtual state, overlaid with any pending hint, seeds the mapping. On error the group is unchanged.
func (g *ClosedGroup) SetActuatedState(state State) error {
	if unknown := undeclared(state, g.actuatedKeys); len(unknown) > 0 {
		return NewUndeclaredKeysError("group "+g.name+" actuated state", unknown)
	}
	merged := g.actuated.Merge(state)
	hint := g.virtual.Merge(g.hintToVirtual)

	virtual, err := g.mapper.ActuatedToVirtual(merged.Clone(), hint)
	if err != nil {
		return errors.Wrapf(err, "mapping actuated state of group %q", g.name)
	}
	if err := g.checkVirtual(virtual); err != nil {
		return errors.Wrap(err, "mapper returned an invalid virtual state")
	}
	if err := g.writeVirtual(virtual); err != nil {
		return err
	}
	g.actuated = merged
	g.virtual = g.virtual.Merge(virtual)
	g.hintToVirtual = nil
	return nil
}

// SetVirtualState merges state over the cached virtual state, applies it to the transformations and maps it to the
// actuated space. The previous actuated state, overlaid with any pending hint, seeds the mapping. On error the
// group is unchanged.
func (g *ClosedGroup) SetVirtualState(state State) error {
	if err := g.checkVirtual(state); err != nil {
		return err
	}
	merged := g.virtual.Merge(state)
	hint := g.actuated.Merge(g.hintToActuated)

	actuated, err := g.mapper.VirtualToActuated(merged.Clone(), hint)
	if err != nil {
		return errors.Wrapf(err, "mapping virtual state of group %q", g.name)
	}
	if unknown := undeclared(actuated, g.actuatedKeys); len(unknown) > 0 {
		return errors.Wrap(NewUndeclaredKeysError("group "+g.name+" actuated state", unknown),
			"mapper returned an invalid actuated state")
	}
	if err := g.writeVirtual(merged); err != nil {
		return err
	}
	g.virtual = merged
	g.actuated = g.actuated.Merge(actuated)
	g.hintToActuated = nil
	return nil
}

// PassHintVirtualToActuated stores hint for the next SetVirtualState. The cached state is not recomputed.
func (g *ClosedGroup) PassHintVirtualToActuated(hint State) {
	g.hintToActuated = hint.Clone()
}

// PassHintActuatedToVirtual stores hint for the next SetActuatedState. The cached state is not recomputed.
func (g *ClosedGroup) PassHintActuatedToVirtual(hint State) {
	g.hintToVirtual = hint.Clone()
}

// Clone returns an independent copy of the group. The mapper is shared.
func (g *ClosedGroup) Clone() KinematicGroup {
	out := &ClosedGroup{
		groupBase:    g.clone(),
		mapper:       g.mapper,
		actuatedKeys: make(map[string]bool, len(g.actuatedKeys)),
		actuated:     g.actuated.Clone(),
		virtual:      g.virtual.Clone(),
	}
	for k := range g.actuatedKeys {
		out.actuatedKeys[k] = true
	}
	if g.hintToVirtual != nil {
		out.hintToVirtual = g.hintToVirtual.Clone()
	}
	if g.hintToActuated != nil {
		out.hintToActuated = g.hintToActuated.Clone()
	}
	return out
}
