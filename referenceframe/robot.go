package referenceframe

import (
	"github.com/pkg/errors"

	"go.viam.com/tripkin/logging"
)

// A ChainElement is either a *Transformation or a KinematicGroup.
type ChainElement interface {
	Name() string
}

// Robot is a tree of kinematic groups. Groups are stored in an arena and refer to their parents by index; names
// are resolved once, at construction. The Robot owns its groups and is not safe for concurrent use; Clone it to
// get an independent copy.
type Robot struct {
	logger  logging.Logger
	groups  []KinematicGroup
	parents []int
	index   map[string]int
	// actuator and virtual key to the index of the owning group
	actuators map[string]int
	virtuals  map[string]int
}

// NewRobot builds a robot from an ordered list of groups. A bare *Transformation is wrapped into an open group of
// its own, attached to the previous element, or made the root if it comes first. Every group name, transformation
// name, actuator key and virtual key must be unique across the robot.
func NewRobot(logger logging.Logger, elements ...ChainElement) (*Robot, error) {
	if len(elements) == 0 {
		return nil, errors.New("a robot needs at least one group")
	}
	r := &Robot{
		logger:    logger,
		index:     map[string]int{},
		actuators: map[string]int{},
		virtuals:  map[string]int{},
	}

	transformationOwners := map[string]string{}
	for i, element := range elements {
		group, err := r.asGroup(element, elements, i)
		if err != nil {
			return nil, err
		}
		if _, ok := r.index[group.Name()]; ok {
			return nil, NewNamingConflictError("group", group.Name(), group.Name(), group.Name())
		}
		for _, t := range group.Transformations() {
			if owner, ok := transformationOwners[t.Name()]; ok {
				return nil, NewNamingConflictError("transformation", t.Name(), owner, group.Name())
			}
			transformationOwners[t.Name()] = group.Name()
		}

		idx := len(r.groups)
		for key := range group.ActuatedState() {
			if owner, ok := r.actuators[key]; ok {
				return nil, NewNamingConflictError("actuator", key, r.groups[owner].Name(), group.Name())
			}
			r.actuators[key] = idx
		}
		for key := range group.VirtualState() {
			if owner, ok := r.virtuals[key]; ok {
				return nil, NewNamingConflictError("virtual key", key, r.groups[owner].Name(), group.Name())
			}
			r.virtuals[key] = idx
		}
		r.index[group.Name()] = idx
		r.groups = append(r.groups, group)
	}

	r.parents = make([]int, len(r.groups))
	for i, group := range r.groups {
		parent, ok := r.index[group.Parent()]
		if !ok {
			return nil, NewParentFrameMissingError(group.Name(), group.Parent())
		}
		r.parents[i] = parent
	}
	r.logger.Debugw("robot created", "groups", len(r.groups), "actuators", len(r.actuators), "virtual_keys", len(r.virtuals))
	return r, nil
}

func (r *Robot) asGroup(element ChainElement, elements []ChainElement, i int) (KinematicGroup, error) {
	switch e := element.(type) {
	case KinematicGroup:
		return e, nil
	case *Transformation:
		var opts []GroupOption
		parent := e.Name()
		if i > 0 {
			parent = elements[i-1].Name()
			opts = append(opts, WithParent(parent))
		}
		r.logger.Warnw("transformation converted to an open group", "transformation", e.Name(), "parent", parent)
		return NewOpenGroup(e.Name(), []*Transformation{e}, opts...)
	case nil:
		return nil, errors.Errorf("chain element %d is nil", i)
	default:
		return nil, errors.Errorf("chain element %q of type %T is neither a group nor a transformation", element.Name(), element)
	}
}

// Groups returns the robot's groups keyed by name. The map is a copy; the groups are not.
func (r *Robot) Groups() map[string]KinematicGroup {
	out := make(map[string]KinematicGroup, len(r.groups))
	for _, g := range r.groups {
		out[g.Name()] = g
	}
	return out
}

// GroupNames returns the group names in construction order.
func (r *Robot) GroupNames() []string {
	names := make([]string, 0, len(r.groups))
	for _, g := range r.groups {
		names = append(names, g.Name())
	}
	return names
}

// Group returns the named group.
func (r *Robot) Group(name string) (KinematicGroup, error) {
	idx, ok := r.index[name]
	if !ok {
		return nil, NewLookupError("group", name, r.GroupNames())
	}
	return r.groups[idx], nil
}

// batch splits state by owning group, in group order, failing on the first key that no group owns.
func (r *Robot) batch(state State, owners map[string]int, kind string) (map[int]State, error) {
	batches := map[int]State{}
	for _, key := range state.Keys() {
		idx, ok := owners[key]
		if !ok {
			return nil, NewLookupError(kind, key, nil)
		}
		if batches[idx] == nil {
			batches[idx] = State{}
		}
		batches[idx][key] = state[key]
	}
	return batches, nil
}

// SetActuatedState routes each actuator value to its group. Unknown actuators are rejected before any group is
// touched; a failure inside one group leaves groups earlier in construction order updated.
func (r *Robot) SetActuatedState(state State) error {
	batches, err := r.batch(state, r.actuators, "actuator")
	if err != nil {
		return err
	}
	for idx, g := range r.groups {
		if b, ok := batches[idx]; ok {
			if err := g.SetActuatedState(b); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetVirtualState routes each virtual key to its group, with the same failure semantics as SetActuatedState.
func (r *Robot) SetVirtualState(state State) error {
	batches, err := r.batch(state, r.virtuals, "virtual key")
	if err != nil {
		return err
	}
	for idx, g := range r.groups {
		if b, ok := batches[idx]; ok {
			if err := g.SetVirtualState(b); err != nil {
				return err
			}
		}
	}
	return nil
}

// ActuatedState aggregates the actuated state of every group.
func (r *Robot) ActuatedState() State {
	out := State{}
	for _, g := range r.groups {
		for k, v := range g.ActuatedState() {
			out[k] = v
		}
	}
	return out
}

// VirtualState aggregates the virtual state of every group.
func (r *Robot) VirtualState() State {
	out := State{}
	for _, g := range r.groups {
		for k, v := range g.VirtualState() {
			out[k] = v
		}
	}
	return out
}

func (r *Robot) checkGroupNames(hints map[string]State) error {
	for name := range hints {
		if _, ok := r.index[name]; !ok {
			return NewLookupError("group", name, r.GroupNames())
		}
	}
	return nil
}

// PassGroupHintVirtualToActuated forwards a hint, keyed by group name, to the virtual to actuated mapping of each
// named group. Nothing is forwarded if any name is unknown.
func (r *Robot) PassGroupHintVirtualToActuated(hints map[string]State) error {
	if err := r.checkGroupNames(hints); err != nil {
		return err
	}
	for name, hint := range hints {
		r.groups[r.index[name]].PassHintVirtualToActuated(hint)
	}
	return nil
}

// PassGroupHintActuatedToVirtual forwards a hint, keyed by group name, to the actuated to virtual mapping of each
// named group. Nothing is forwarded if any name is unknown.
func (r *Robot) PassGroupHintActuatedToVirtual(hints map[string]State) error {
	if err := r.checkGroupNames(hints); err != nil {
		return err
	}
	for name, hint := range hints {
		r.groups[r.index[name]].PassHintActuatedToVirtual(hint)
	}
	return nil
}

// Chain returns the groups from the root down to and including target. The walk is bounded by the number of groups,
// so parent links that loop without reaching a root produce a *TopologyError.
func (r *Robot) Chain(target string) ([]KinematicGroup, error) {
	idx, ok := r.index[target]
	if !ok {
		return nil, NewLookupError("group", target, r.GroupNames())
	}
	path := []int{idx}
	for r.parents[idx] != idx {
		if len(path) >= len(r.groups) {
			return nil, NewTopologyError(target, len(r.groups))
		}
		idx = r.parents[idx]
		path = append(path, idx)
	}

	chain := make([]KinematicGroup, 0, len(path))
	for i := len(path) - 1; i >= 0; i-- {
		chain = append(chain, r.groups[path[i]])
	}
	return chain, nil
}

// Clone returns a deep copy of the robot. Groups and their transformations are copied; closed-group mappers are
// shared.
func (r *Robot) Clone() *Robot {
	out := &Robot{
		logger:    r.logger,
		groups:    make([]KinematicGroup, 0, len(r.groups)),
		parents:   append([]int{}, r.parents...),
		index:     make(map[string]int, len(r.index)),
		actuators: make(map[string]int, len(r.actuators)),
		virtuals:  make(map[string]int, len(r.virtuals)),
	}
	for _, g := range r.groups {
		out.groups = append(out.groups, g.Clone())
	}
	for k, v := range r.index {
		out.index[k] = v
	}
	for k, v := range r.actuators {
		out.actuators[k] = v
	}
	for k, v := range r.virtuals {
		out.virtuals[k] = v
	}
	return out
}
