package referenceframe

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/tripkin/logging"
	"go.viam.com/tripkin/solver"
)

// A Mapper relates the actuated and virtual state of a closed group. Each direction receives the full state to map
// and a hint, a best guess of the result used to steer numerical solves toward one of several valid solutions.
// Implementations are FuncMapper, IdentityMapper and OptimizingMapper.
type Mapper interface {
	ActuatedToVirtual(actuated, hint State) (State, error)
	VirtualToActuated(virtual, hint State) (State, error)

	isMapper()
}

// A MappingFunc maps one state space to the other. hint may be empty.
type MappingFunc func(state, hint State) (State, error)

// FuncMapper wraps closed-form mapping functions supplied by a model author.
type FuncMapper struct {
	toVirtual  MappingFunc
	toActuated MappingFunc
}

// NewFuncMapper returns a mapper calling the given functions.
func NewFuncMapper(actuatedToVirtual, virtualToActuated MappingFunc) (*FuncMapper, error) {
	if actuatedToVirtual == nil || virtualToActuated == nil {
		return nil, errors.New("both mapping functions must be provided")
	}
	return &FuncMapper{toVirtual: actuatedToVirtual, toActuated: virtualToActuated}, nil
}

// ActuatedToVirtual calls the actuated to virtual function.
func (m *FuncMapper) ActuatedToVirtual(actuated, hint State) (State, error) {
	return m.toVirtual(actuated, hint)
}

// VirtualToActuated calls the virtual to actuated function.
func (m *FuncMapper) VirtualToActuated(virtual, hint State) (State, error) {
	return m.toActuated(virtual, hint)
}

func (m *FuncMapper) isMapper() {}

// IdentityMapper maps each state onto itself, for closed groups whose actuated keys are their virtual keys.
type IdentityMapper struct{}

// ActuatedToVirtual returns a copy of actuated.
func (IdentityMapper) ActuatedToVirtual(actuated, _ State) (State, error) {
	return actuated.Clone(), nil
}

// VirtualToActuated returns a copy of virtual.
func (IdentityMapper) VirtualToActuated(virtual, _ State) (State, error) {
	return virtual.Clone(), nil
}

func (IdentityMapper) isMapper() {}

// A LoopClosure scores how far an actuated and virtual state are from closing a kinematic loop. It must be
// non-negative and zero exactly when the loop closes; a sum of squared constraint residuals is typical.
type LoopClosure func(actuated, virtual State) float64

// OptimizingMapper maps between spaces by holding one side fixed and minimizing a LoopClosure over the other.
// Both directions are compiled once, at construction, and reused for every mapping.
type OptimizingMapper struct {
	name         string
	actuatedKeys []string
	virtualKeys  []string
	toVirtual    solver.Solver
	toActuated   solver.Solver
}

// NewOptimizingMapper compiles the two directions of closure with factory. The key lists fix the order of the
// unknowns; every key a mapping is asked about must appear in them.
func NewOptimizingMapper(
	name string,
	actuatedKeys, virtualKeys []string,
	closure LoopClosure,
	factory solver.Factory,
	logger logging.Logger,
) (*OptimizingMapper, error) {
	if closure == nil {
		return nil, errors.Errorf("mapper %q needs a loop closure", name)
	}
	if factory == nil {
		factory = solver.Compile
	}
	m := &OptimizingMapper{
		name:         name,
		actuatedKeys: append([]string{}, actuatedKeys...),
		virtualKeys:  append([]string{}, virtualKeys...),
	}

	var err error
	m.toVirtual, err = factory(solver.Problem{
		Name:    name + " actuated to virtual",
		NumVars: len(m.virtualKeys),
		Objective: func(x, params []float64) float64 {
			return closure(toState(m.actuatedKeys, params), toState(m.virtualKeys, x))
		},
	}, logger)
	if err != nil {
		return nil, err
	}
	m.toActuated, err = factory(solver.Problem{
		Name:    name + " virtual to actuated",
		NumVars: len(m.actuatedKeys),
		Objective: func(x, params []float64) float64 {
			return closure(toState(m.actuatedKeys, x), toState(m.virtualKeys, params))
		},
	}, logger)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ActuatedToVirtual solves the closure for the virtual keys, starting at hint.
func (m *OptimizingMapper) ActuatedToVirtual(actuated, hint State) (State, error) {
	params, err := fromState(m.name+" actuated state", m.actuatedKeys, actuated, false)
	if err != nil {
		return nil, err
	}
	x0, err := fromState(m.name+" virtual hint", m.virtualKeys, hint, true)
	if err != nil {
		return nil, err
	}
	sol, err := m.toVirtual.Solve(context.Background(), x0, params)
	if err != nil {
		return nil, err
	}
	return toState(m.virtualKeys, sol.X), nil
}

// VirtualToActuated solves the closure for the actuated keys, starting at hint.
func (m *OptimizingMapper) VirtualToActuated(virtual, hint State) (State, error) {
	params, err := fromState(m.name+" virtual state", m.virtualKeys, virtual, false)
	if err != nil {
		return nil, err
	}
	x0, err := fromState(m.name+" actuated hint", m.actuatedKeys, hint, true)
	if err != nil {
		return nil, err
	}
	sol, err := m.toActuated.Solve(context.Background(), x0, params)
	if err != nil {
		return nil, err
	}
	return toState(m.actuatedKeys, sol.X), nil
}

func (m *OptimizingMapper) isMapper() {}

func toState(keys []string, values []float64) State {
	out := make(State, len(keys))
	for i, k := range keys {
		out[k] = values[i]
	}
	return out
}

// fromState flattens state in key order. Keys of state outside keys are ignored so that hints may carry extra
// entries; missing keys are zero if partial, an error otherwise.
func fromState(owner string, keys []string, state State, partial bool) ([]float64, error) {
	out := make([]float64, len(keys))
	var missing []string
	for i, k := range keys {
		v, ok := state[k]
		if !ok {
			missing = append(missing, k)
			continue
		}
		out[i] = v
	}
	if len(missing) > 0 && !partial {
		return nil, errors.Wrapf(NewArityError(owner, len(keys)-len(missing), len(keys)), "missing %v", missing)
	}
	return out, nil
}
