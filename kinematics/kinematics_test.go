package kinematics

import (
	"context"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/tripkin/logging"
	"go.viam.com/tripkin/referenceframe"
	"go.viam.com/tripkin/solver"
	"go.viam.com/tripkin/spatialmath"
)

func newGroup(
	t *testing.T,
	name, parent string,
	values map[string]float64,
	stateVars ...string,
) *referenceframe.OpenGroup {
	t.Helper()
	tf, err := referenceframe.NewTransformation(name+"_joint", values, stateVars...)
	test.That(t, err, test.ShouldBeNil)
	var opts []referenceframe.GroupOption
	if parent != "" {
		opts = append(opts, referenceframe.WithParent(parent))
	}
	g, err := referenceframe.NewOpenGroup(name, []*referenceframe.Transformation{tf}, opts...)
	test.That(t, err, test.ShouldBeNil)
	return g
}

func TestForwardKinematicsIsChainProduct(t *testing.T) {
	a := newGroup(t, "A", "", map[string]float64{"tz": 0.5, "rz": 0.3}, "rz")
	b := newGroup(t, "B", "A", map[string]float64{"tx": 1, "ry": -0.2}, "ry")
	c := newGroup(t, "C", "B", map[string]float64{"tx": 0.7, "rx": 0.1}, "rx")
	// a sibling that is not on the chain to C
	d := newGroup(t, "D", "A", map[string]float64{"ty": 9})
	robot, err := referenceframe.NewRobot(logging.NewTestLogger(t), a, b, c, d)
	test.That(t, err, test.ShouldBeNil)

	ma, err := a.Transform()
	test.That(t, err, test.ShouldBeNil)
	mb, err := b.Transform()
	test.That(t, err, test.ShouldBeNil)
	mc, err := c.Transform()
	test.That(t, err, test.ShouldBeNil)
	expected := spatialmath.Compose(ma, mb, mc)

	_ = robot.ActuatedState()
	fk, err := ForwardKinematics(robot, "C")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.AlmostEqual(fk, expected, 1e-12), test.ShouldBeTrue)

	before := robot.VirtualState()
	_, err = ForwardKinematics(robot, "C")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, robot.VirtualState(), test.ShouldResemble, before)

	_, err = ForwardKinematics(robot, "nope")
	test.That(t, referenceframe.IsLookupError(err), test.ShouldBeTrue)
}

func TestForwardKinematicsSingleTranslation(t *testing.T) {
	tf, err := referenceframe.NewTransformation("offset", map[string]float64{"tx": 1, "ty": 0, "tz": 0})
	test.That(t, err, test.ShouldBeNil)
	robot, err := referenceframe.NewRobot(logging.NewTestLogger(t), tf)
	test.That(t, err, test.ShouldBeNil)

	pos, err := Position(robot, "offset")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos, test.ShouldResemble, r3.Vector{X: 1})
	test.That(t, robot.VirtualState(), test.ShouldResemble, referenceframe.State{})
}

func TestSymbolicChain(t *testing.T) {
	a := newGroup(t, "A", "", map[string]float64{"rz": 0, "ry": 0}, "rz", "ry")
	b := newGroup(t, "B", "A", map[string]float64{"tx": 1})
	c := newGroup(t, "C", "B", map[string]float64{"tx": 1, "rz": 0}, "rz")
	robot, err := referenceframe.NewRobot(logging.NewTestLogger(t), a, b, c)
	test.That(t, err, test.ShouldBeNil)

	chain, err := SymbolicChain(robot, "C")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, chain.Target(), test.ShouldEqual, "C")
	test.That(t, chain.Unknowns(), test.ShouldResemble, []Unknown{
		{Group: "A", Transformation: "A_joint", Parameter: "rz"},
		{Group: "A", Transformation: "A_joint", Parameter: "ry"},
		{Group: "C", Transformation: "C_joint", Parameter: "rz"},
	})

	x := []float64{0.4, -0.1, 0.9}
	m, err := chain.Evaluate(x)
	test.That(t, err, test.ShouldBeNil)
	state, err := chain.ToState(x)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, robot.SetVirtualState(state), test.ShouldBeNil)
	fk, err := ForwardKinematics(robot, "C")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.AlmostEqual(m, fk, 1e-12), test.ShouldBeTrue)

	_, err = chain.Evaluate([]float64{1})
	test.That(t, referenceframe.IsStateShapeError(err), test.ShouldBeTrue)

	back, err := chain.FromState(state)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back, test.ShouldResemble, x)
	_, err = chain.FromState(referenceframe.State{"A_joint_rz": 1})
	test.That(t, referenceframe.IsStateShapeError(err), test.ShouldBeTrue)
	_, err = chain.FromState(referenceframe.State{"A_joint_rz": 1, "A_joint_ry": 0, "bogus": 0})
	test.That(t, referenceframe.IsStateShapeError(err), test.ShouldBeTrue)

	_, err = SymbolicChain(robot, "Z")
	test.That(t, referenceframe.IsLookupError(err), test.ShouldBeTrue)
}

func newArm(t *testing.T) *referenceframe.Robot {
	t.Helper()
	base := newGroup(t, "base", "", map[string]float64{"rz": 0}, "rz")
	tip := newGroup(t, "tip", "base", map[string]float64{"tx": 1})
	robot, err := referenceframe.NewRobot(logging.NewTestLogger(t), base, tip)
	test.That(t, err, test.ShouldBeNil)
	return robot
}

func TestIKReachableTarget(t *testing.T) {
	robot := newArm(t)
	ik, err := NewSimpleInvKinSolver(robot, "tip", logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(ik.Unknowns()), test.ShouldEqual, 1)

	target := r3.Vector{Y: 1}
	virtual, err := ik.SolveVirtual(context.Background(), target, referenceframe.State{"base_joint_rz": 0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, virtual["base_joint_rz"], test.ShouldAlmostEqual, math.Pi/2, 1e-4)

	test.That(t, robot.SetVirtualState(virtual), test.ShouldBeNil)
	pos, err := Position(robot, "tip")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos.Sub(target).Norm(), test.ShouldBeLessThan, 1e-4)
}

func TestIKUnreachableTarget(t *testing.T) {
	ik, err := NewSimpleInvKinSolver(newArm(t), "tip", logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	_, err = ik.SolveVirtual(context.Background(), r3.Vector{X: 5}, nil)
	test.That(t, err, test.ShouldNotBeNil)
	var convErr *solver.ConvergenceError
	test.That(t, errors.As(err, &convErr), test.ShouldBeTrue)
	test.That(t, convErr.Objective, test.ShouldAlmostEqual, 16, 1e-3)
}

func TestIKInitialGuessShape(t *testing.T) {
	ik, err := NewSimpleInvKinSolver(newArm(t), "tip", logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	_, err = ik.SolveVirtual(context.Background(), r3.Vector{Y: 1}, referenceframe.State{})
	test.That(t, referenceframe.IsStateShapeError(err), test.ShouldBeTrue)
	_, err = ik.SolveVirtual(context.Background(), r3.Vector{Y: 1}, referenceframe.State{"elbow_rz": 0})
	test.That(t, referenceframe.IsStateShapeError(err), test.ShouldBeTrue)
}

func TestIKOptions(t *testing.T) {
	robot := newArm(t)
	_, err := NewSimpleInvKinSolver(robot, "tip", logging.NewTestLogger(t), WithOrientation())
	test.That(t, errors.Is(err, ErrOrientationUnsupported), test.ShouldBeTrue)

	_, err = NewSimpleInvKinSolver(robot, "elsewhere", logging.NewTestLogger(t))
	test.That(t, referenceframe.IsLookupError(err), test.ShouldBeTrue)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ik, err := NewSimpleInvKinSolver(robot, "tip", logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	_, err = ik.SolveVirtual(ctx, r3.Vector{Y: 1}, nil)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

// newClosedArm has a closed base whose motor turns the joint at half speed.
func newClosedArm(t *testing.T) *referenceframe.Robot {
	t.Helper()
	mapper, err := referenceframe.NewFuncMapper(
		func(a, _ referenceframe.State) (referenceframe.State, error) {
			return referenceframe.State{"base_joint_rz": a["motor"] / 2}, nil
		},
		func(v, _ referenceframe.State) (referenceframe.State, error) {
			return referenceframe.State{"motor": 2 * v["base_joint_rz"]}, nil
		},
	)
	test.That(t, err, test.ShouldBeNil)
	tf, err := referenceframe.NewTransformation("base_joint", map[string]float64{"rz": 0}, "rz")
	test.That(t, err, test.ShouldBeNil)
	base, err := referenceframe.NewClosedGroup("base", []*referenceframe.Transformation{tf},
		referenceframe.State{"motor": 0}, mapper)
	test.That(t, err, test.ShouldBeNil)
	tip := newGroup(t, "tip", "base", map[string]float64{"tx": 1})
	robot, err := referenceframe.NewRobot(logging.NewTestLogger(t), base, tip)
	test.That(t, err, test.ShouldBeNil)
	return robot
}

func TestIKSolveActuatedLeavesRobotUntouched(t *testing.T) {
	robot := newClosedArm(t)
	ik, err := NewSimpleInvKinSolver(robot, "tip", logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	actuated, err := ik.SolveActuated(context.Background(), r3.Vector{Y: 1}, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, actuated["motor"], test.ShouldAlmostEqual, math.Pi, 1e-3)
	test.That(t, robot.ActuatedState(), test.ShouldResemble, referenceframe.State{"motor": 0})

	_, err = ik.SolveActuated(context.Background(), r3.Vector{Y: 1}, nil, map[string]referenceframe.State{"nope": {}})
	test.That(t, referenceframe.IsLookupError(err), test.ShouldBeTrue)
}

func TestIKSolveActuatedUpdatesRobot(t *testing.T) {
	robot := newClosedArm(t)
	ik, err := NewSimpleInvKinSolver(robot, "tip", logging.NewTestLogger(t), WithUpdateRobot())
	test.That(t, err, test.ShouldBeNil)

	hints := map[string]referenceframe.State{"base": {"motor": 3}}
	actuated, err := ik.SolveActuated(context.Background(), r3.Vector{Y: 1}, nil, hints)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, robot.ActuatedState()["motor"], test.ShouldAlmostEqual, actuated["motor"])

	pos, err := Position(robot, "tip")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos.Y, test.ShouldAlmostEqual, 1, 1e-4)
}
