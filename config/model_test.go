package config

import (
	"testing"

	"go.uber.org/multierr"
	"go.viam.com/test"

	"go.viam.com/tripkin/kinematics"
	"go.viam.com/tripkin/logging"
	"go.viam.com/tripkin/referenceframe"
	"go.viam.com/tripkin/spatialmath"
)

func buildArm(t *testing.T) *referenceframe.Robot {
	t.Helper()
	logger := logging.NewTestLogger(t)
	base, err := referenceframe.NewTransformation("base_offset", map[string]float64{"tz": 0.5})
	test.That(t, err, test.ShouldBeNil)
	shoulderJoint, err := referenceframe.NewTransformation("shoulder_joint", map[string]float64{"rz": 0, "ry": 0}, "rz", "ry")
	test.That(t, err, test.ShouldBeNil)
	upperArm, err := referenceframe.NewTransformation("upper_arm", map[string]float64{"tx": 1})
	test.That(t, err, test.ShouldBeNil)
	shoulder, err := referenceframe.NewOpenGroup("shoulder", []*referenceframe.Transformation{shoulderJoint, upperArm},
		referenceframe.WithParent("base_offset"))
	test.That(t, err, test.ShouldBeNil)
	wristJoint, err := referenceframe.NewTransformationWithConvention("wrist_joint", "zyx",
		map[string]float64{"rx": 0, "ry": 0}, "rx", "ry")
	test.That(t, err, test.ShouldBeNil)
	wrist, err := referenceframe.NewClosedGroup("wrist", []*referenceframe.Transformation{wristJoint},
		referenceframe.State{"wrist_joint_rx": 0, "wrist_joint_ry": 0}, referenceframe.IdentityMapper{},
		referenceframe.WithParent("shoulder"))
	test.That(t, err, test.ShouldBeNil)
	tool, err := referenceframe.NewTransformation("tool", map[string]float64{"tx": 0.25})
	test.That(t, err, test.ShouldBeNil)

	robot, err := referenceframe.NewRobot(logger, base, shoulder, wrist, tool)
	test.That(t, err, test.ShouldBeNil)
	return robot
}

func TestModelFilesMatchCode(t *testing.T) {
	state := referenceframe.State{
		"shoulder_joint_rz": 0.4,
		"shoulder_joint_ry": -0.3,
		"wrist_joint_rx":    0.2,
		"wrist_joint_ry":    0.7,
	}
	expected := buildArm(t)
	test.That(t, expected.SetActuatedState(state), test.ShouldBeNil)
	expectedPose, err := kinematics.ForwardKinematics(expected, "tool")
	test.That(t, err, test.ShouldBeNil)

	for _, file := range []string{"testdata/arm.yaml", "testdata/arm.json", "testdata/arm.json5"} {
		t.Run(file, func(t *testing.T) {
			robot, err := ReadModelFile(file, logging.NewTestLogger(t))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, robot.GroupNames(), test.ShouldResemble, []string{"base_offset", "shoulder", "wrist", "tool"})
			test.That(t, robot.ActuatedState(), test.ShouldResemble, referenceframe.State{
				"shoulder_joint_rz": 0,
				"shoulder_joint_ry": 0,
				"wrist_joint_rx":    0,
				"wrist_joint_ry":    0,
			})

			test.That(t, robot.SetActuatedState(state), test.ShouldBeNil)
			pose, err := kinematics.ForwardKinematics(robot, "tool")
			test.That(t, err, test.ShouldBeNil)
			test.That(t, spatialmath.AlmostEqual(pose, expectedPose, 1e-12), test.ShouldBeTrue)

			wrist, err := robot.Group("wrist")
			test.That(t, err, test.ShouldBeNil)
			_, ok := wrist.(*referenceframe.ClosedGroup)
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, wrist.Transformations()[0].Convention(), test.ShouldEqual, spatialmath.Convention("zyx"))
		})
	}
}

func TestModelFileEnvironment(t *testing.T) {
	t.Setenv("TRIPKIN_TOOL_LENGTH", "0.75")
	robot, err := ReadModelFile("testdata/arm.json5", logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	pos, err := kinematics.Position(robot, "tool")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos.X, test.ShouldAlmostEqual, 1.75)
	test.That(t, pos.Z, test.ShouldAlmostEqual, 0.5)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	_, err := ReadModelFile("testdata/invalid.yaml", logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	errs := multierr.Errors(err)
	test.That(t, len(errs), test.ShouldEqual, 5)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"chain.2.group.closed"`)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"mapper" is required`)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"chain.1.transformation"`)
}

func TestUnknownMapper(t *testing.T) {
	_, err := ReadModelFile("testdata/unknown_mapper.yaml", logging.NewTestLogger(t))
	test.That(t, referenceframe.IsLookupError(err), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no_such_mapper")
}

func TestUnmarshalErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	_, err := UnmarshalModel(nil, "json", logger)
	test.That(t, err, test.ShouldEqual, ErrNoModelInformation)

	_, err = UnmarshalModel([]byte("name: x"), "toml", logger)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported")

	_, err = UnmarshalModel([]byte("{"), ".json", logger)
	test.That(t, err.Error(), test.ShouldContainSubstring, "json")

	_, err = UnmarshalModel([]byte("{name: "), "json5", logger)
	test.That(t, err.Error(), test.ShouldContainSubstring, "json5")

	_, err = ReadModelFile("testdata/missing.yaml", logger)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to read")

	both := []byte(`{"name": "x", "chain": [{"transformation": {"name": "a"}, "group": {"name": "b"}}]}`)
	_, err = UnmarshalModel(both, "json", logger)
	test.That(t, err.Error(), test.ShouldContainSubstring, "only one of")

	// structure is valid but the robot is not
	conflict := []byte(`
name: x
chain:
  - transformation: {name: a, values: {rz: 0}, state_variables: [rz]}
  - transformation: {name: a, values: {rz: 0}, state_variables: [rz]}
`)
	_, err = UnmarshalModel(conflict, "yml", logger)
	test.That(t, referenceframe.IsNamingConflictError(err), test.ShouldBeTrue)
}
