package kinematics

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/tripkin/logging"
	"go.viam.com/tripkin/referenceframe"
	"go.viam.com/tripkin/solver"
	"go.viam.com/tripkin/spatialmath"
)

// ErrOrientationUnsupported is returned when an orientation-aware solve is requested.
var ErrOrientationUnsupported = errors.New("orientation targets are not supported, only positions can be solved for")

type ikOptions struct {
	factory         solver.Factory
	withOrientation bool
	updateRobot     bool
	tolerance       float64
}

// An IKOption configures a SimpleInvKinSolver.
type IKOption func(*ikOptions)

// WithSolverFactory compiles the IK problem with factory instead of solver.Compile.
func WithSolverFactory(factory solver.Factory) IKOption {
	return func(o *ikOptions) {
		o.factory = factory
	}
}

// WithOrientation asks for the target orientation to be matched as well as the position. Not implemented yet;
// solvers created with it fail with ErrOrientationUnsupported.
func WithOrientation() IKOption {
	return func(o *ikOptions) {
		o.withOrientation = true
	}
}

// WithUpdateRobot makes SolveActuated apply its result to the robot the solver was created with, rather than to a
// private clone.
func WithUpdateRobot() IKOption {
	return func(o *ikOptions) {
		o.updateRobot = true
	}
}

// WithTolerance overrides the squared distance below which a solve counts as converged.
func WithTolerance(tol float64) IKOption {
	return func(o *ikOptions) {
		o.tolerance = tol
	}
}

// SimpleInvKinSolver solves for the virtual state that puts a group's tip at a target position. The problem is
// built and compiled once; each solve only binds a new target.
type SimpleInvKinSolver struct {
	robot  *referenceframe.Robot
	chain  *Chain
	solver solver.Solver
	logger logging.Logger
}

// NewSimpleInvKinSolver builds the position objective for the chain from robot's root to target.
func NewSimpleInvKinSolver(
	robot *referenceframe.Robot,
	target string,
	logger logging.Logger,
	opts ...IKOption,
) (*SimpleInvKinSolver, error) {
	o := &ikOptions{factory: solver.Compile}
	for _, opt := range opts {
		opt(o)
	}
	if o.withOrientation {
		return nil, ErrOrientationUnsupported
	}
	if !o.updateRobot {
		robot = robot.Clone()
	}
	chain, err := SymbolicChain(robot, target)
	if err != nil {
		return nil, err
	}

	objective := func(x, params []float64) float64 {
		m, err := chain.Evaluate(x)
		if err != nil {
			return math.Inf(1)
		}
		p := spatialmath.TranslationOf(m)
		d := floats.Distance([]float64{p.X, p.Y, p.Z}, params, 2)
		return d * d
	}
	s, err := o.factory(solver.Problem{
		Name:      "ik to " + target,
		NumVars:   len(chain.unknowns),
		Objective: objective,
		Tolerance: o.tolerance,
	}, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "compiling ik for %q", target)
	}
	return &SimpleInvKinSolver{robot: robot, chain: chain, solver: s, logger: logger}, nil
}

// Unknowns returns the state variables solved for, in solver order.
func (ik *SimpleInvKinSolver) Unknowns() []Unknown {
	return ik.chain.Unknowns()
}

// SolveVirtual returns a virtual state placing the chain's tip at target. initialGuess must name every unknown
// by its virtual key; a nil guess starts from zero. No robot is modified.
func (ik *SimpleInvKinSolver) SolveVirtual(
	ctx context.Context,
	target r3.Vector,
	initialGuess referenceframe.State,
) (referenceframe.State, error) {
	x0 := make([]float64, len(ik.chain.unknowns))
	if initialGuess != nil {
		var err error
		if x0, err = ik.chain.FromState(initialGuess); err != nil {
			return nil, err
		}
	}
	sol, err := ik.solver.Solve(ctx, x0, []float64{target.X, target.Y, target.Z})
	if err != nil {
		return nil, errors.Wrapf(err, "solving for %v", target)
	}
	ik.logger.Debugw("ik solved", "target", ik.chain.target, "position", target, "iterations", sol.Iterations)
	return ik.chain.ToState(sol.X)
}

// SolveActuated solves for a virtual state like SolveVirtual, forwards groupHints to the closed groups' virtual to
// actuated mappings, applies the virtual state and returns the robot's aggregated actuated state. The robot
// updated is a private clone unless the solver was created WithUpdateRobot; a clone persists across calls so each
// mapping is warm-started from the previous solve.
func (ik *SimpleInvKinSolver) SolveActuated(
	ctx context.Context,
	target r3.Vector,
	initialGuess referenceframe.State,
	groupHints map[string]referenceframe.State,
) (referenceframe.State, error) {
	virtual, err := ik.SolveVirtual(ctx, target, initialGuess)
	if err != nil {
		return nil, err
	}
	if len(groupHints) > 0 {
		if err := ik.robot.PassGroupHintVirtualToActuated(groupHints); err != nil {
			return nil, err
		}
	}
	if err := ik.robot.SetVirtualState(virtual); err != nil {
		return nil, errors.Wrap(err, "applying ik solution")
	}
	return ik.robot.ActuatedState(), nil
}
