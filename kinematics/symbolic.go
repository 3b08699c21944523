package kinematics

import (
	"gonum.org/v1/gonum/mat"

	"go.viam.com/tripkin/referenceframe"
	"go.viam.com/tripkin/spatialmath"
)

// Unknown is one free variable of a symbolic chain, tagged with the state variable it stands in for.
type Unknown struct {
	Group          string
	Transformation string
	Parameter      string
}

// Key returns the virtual key of the state variable behind u.
func (u Unknown) Key() string {
	return referenceframe.JointKey(u.Transformation, u.Parameter)
}

type link struct {
	transformation *referenceframe.Transformation
	// indices into the unknown vector, parallel to parameters
	unknowns   []int
	parameters []string
}

// Chain is a parametric version of a resolved ancestor chain: every state variable along it is replaced by an
// unknown, and Evaluate computes the chain's pose for any assignment of the unknowns.
type Chain struct {
	target   string
	links    []link
	unknowns []Unknown
}

// SymbolicChain builds the parametric chain from the robot's root to target. Unknowns are allocated in chain
// order, transformation by transformation, in state variable declaration order. Fixed parameters are read at
// evaluation time.
func SymbolicChain(robot *referenceframe.Robot, target string) (*Chain, error) {
	groups, err := robot.Chain(target)
	if err != nil {
		return nil, err
	}
	c := &Chain{target: target}
	for _, g := range groups {
		for _, t := range g.Transformations() {
			l := link{transformation: t}
			for _, p := range t.StateVariables() {
				l.unknowns = append(l.unknowns, len(c.unknowns))
				l.parameters = append(l.parameters, p)
				c.unknowns = append(c.unknowns, Unknown{Group: g.Name(), Transformation: t.Name(), Parameter: p})
			}
			c.links = append(c.links, l)
		}
	}
	return c, nil
}

// Target returns the name of the group the chain ends at.
func (c *Chain) Target() string {
	return c.target
}

// Unknowns returns the chain's unknowns in order.
func (c *Chain) Unknowns() []Unknown {
	return append([]Unknown{}, c.unknowns...)
}

// Evaluate returns the chain's pose with x substituted for the unknowns.
func (c *Chain) Evaluate(x []float64) (*mat.Dense, error) {
	if len(x) != len(c.unknowns) {
		return nil, referenceframe.NewArityError("chain to "+c.target, len(x), len(c.unknowns))
	}
	out := spatialmath.Identity()
	for _, l := range c.links {
		sub := make(referenceframe.State, len(l.parameters))
		for i, p := range l.parameters {
			sub[p] = x[l.unknowns[i]]
		}
		m, err := l.transformation.MatrixWith(sub)
		if err != nil {
			return nil, err
		}
		out.Mul(out, m)
	}
	return out, nil
}

// ToState maps a vector of unknown values to a virtual state.
func (c *Chain) ToState(x []float64) (referenceframe.State, error) {
	if len(x) != len(c.unknowns) {
		return nil, referenceframe.NewArityError("chain to "+c.target, len(x), len(c.unknowns))
	}
	out := make(referenceframe.State, len(x))
	for i, u := range c.unknowns {
		out[u.Key()] = x[i]
	}
	return out, nil
}

// FromState flattens a virtual state into unknown order. The state must name every unknown and nothing else.
func (c *Chain) FromState(state referenceframe.State) ([]float64, error) {
	declared := make(map[string]int, len(c.unknowns))
	for i, u := range c.unknowns {
		declared[u.Key()] = i
	}
	var unknown []string
	for _, k := range state.Keys() {
		if _, ok := declared[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		return nil, referenceframe.NewUndeclaredKeysError("chain to "+c.target, unknown)
	}
	if len(state) != len(c.unknowns) {
		return nil, referenceframe.NewArityError("initial guess for chain to "+c.target, len(state), len(c.unknowns))
	}
	x := make([]float64, len(c.unknowns))
	for k, v := range state {
		x[declared[k]] = v
	}
	return x, nil
}
