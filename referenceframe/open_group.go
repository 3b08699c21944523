package referenceframe

// OpenGroup is a serial group whose actuated state is its virtual state.
type OpenGroup struct {
	groupBase
}

// NewOpenGroup creates an open group owning the given transformations in base to tip order. A group without state
// variables is allowed and only contributes its fixed pose to the chain.
func NewOpenGroup(name string, transformations []*Transformation, opts ...GroupOption) (*OpenGroup, error) {
	base, err := newGroupBase(name, transformations, opts)
	if err != nil {
		return nil, err
	}
	return &OpenGroup{base}, nil
}

// ActuatedState returns the current value of every state variable, keyed by JointKey.
func (g *OpenGroup) ActuatedState() State {
	return g.readVirtual()
}

// VirtualState is identical to ActuatedState for open groups.
func (g *OpenGroup) VirtualState() State {
	return g.readVirtual()
}

// SetActuatedState writes the given joint values through to the transformations.
func (g *OpenGroup) SetActuatedState(state State) error {
	if err := g.checkVirtual(state); err != nil {
		return err
	}
	return g.writeVirtual(state)
}

// SetVirtualState is identical to SetActuatedState for open groups.
func (g *OpenGroup) SetVirtualState(state State) error {
	return g.SetActuatedState(state)
}

// PassHintVirtualToActuated is a no-op; open groups have no mapping to steer.
func (g *OpenGroup) PassHintVirtualToActuated(State) {}

// PassHintActuatedToVirtual is a no-op; open groups have no mapping to steer.
func (g *OpenGroup) PassHintActuatedToVirtual(State) {}

// Clone returns an independent copy of the group.
func (g *OpenGroup) Clone() KinematicGroup {
	return &OpenGroup{g.clone()}
}
