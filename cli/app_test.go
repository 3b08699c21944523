package cli

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/tripkin/logging"
	"go.viam.com/tripkin/referenceframe"
)

const armModel = "../config/testdata/arm.yaml"

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp(&out, &errOut)
	err := app.Run(append([]string{"tripkin"}, args...))
	return out.String(), errOut.String(), err
}

func TestMappers(t *testing.T) {
	out, _, err := runApp(t, "mappers")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, strings.Fields(out), test.ShouldResemble, []string{"identity", "triped_gimbal"})
}

func TestLogLevel(t *testing.T) {
	_, _, err := runApp(t, "--log-level", "warn", "mappers")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, logging.Global().GetLevel(), test.ShouldEqual, logging.WARN)

	_, _, err = runApp(t, "--log-level", "loud", "mappers")
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown log level")
}

func TestState(t *testing.T) {
	out, _, err := runApp(t, "state", "--model", armModel, "--set", "wrist_joint_rx=0.5")
	test.That(t, err, test.ShouldBeNil)
	for _, s := range []string{"base_offset", "shoulder", "wrist", "closed", "wrist_joint_rx=0.5000", "tool"} {
		test.That(t, out, test.ShouldContainSubstring, s)
	}

	out, _, err = runApp(t, "state", "--robot", "triped")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "leg2_closed_chain")
	test.That(t, out, test.ShouldContainSubstring, "leg0_swing_left=0.0000")
}

func TestForwardKinematics(t *testing.T) {
	out, _, err := runApp(t, "fk", "--model", armModel, "--group", "tool")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "1.250000 | 0.000000 | 0.500000")

	out, _, err = runApp(t, "fk", "--model", armModel, "--group", "tool",
		"--set", "shoulder_joint_rz=1.5707963267948966")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "0.000000 | 1.250000 | 0.500000")

	_, _, err = runApp(t, "fk", "--model", armModel, "--group", "elbow")
	test.That(t, referenceframe.IsLookupError(err), test.ShouldBeTrue)

	_, _, err = runApp(t, "fk", "--model", armModel, "--group", "tool", "--set", "wrist_joint_rz=1")
	test.That(t, referenceframe.IsLookupError(err), test.ShouldBeTrue)
}

func TestInverseKinematics(t *testing.T) {
	out, _, err := runApp(t, "ik", "--model", armModel, "--group", "tool", "--target", "0,1.25,0.5")
	test.That(t, err, test.ShouldBeNil)
	for _, key := range []string{"shoulder_joint_rz", "shoulder_joint_ry", "wrist_joint_rx", "wrist_joint_ry"} {
		test.That(t, out, test.ShouldContainSubstring, key)
	}

	out, _, err = runApp(t, "ik", "--model", armModel, "--group", "shoulder", "--target", "0,1,0.5",
		"--guess", "shoulder_joint_rz=1", "--hint", "wrist:wrist_joint_rx=0", "--tolerance", "1e-8")
	test.That(t, err, test.ShouldBeNil)
	// the actuated state covers the whole robot
	test.That(t, out, test.ShouldContainSubstring, "wrist_joint_rx")

	_, _, err = runApp(t, "ik", "--model", armModel, "--group", "tool", "--target", "0,1.25,0.5",
		"--guess", "tool_tx=1")
	test.That(t, referenceframe.IsStateShapeError(err), test.ShouldBeTrue)

	_, _, err = runApp(t, "ik", "--model", armModel, "--group", "tool", "--target", "0,1.25")
	test.That(t, err.Error(), test.ShouldContainSubstring, "X,Y,Z")
}

func TestRobotFlags(t *testing.T) {
	_, _, err := runApp(t, "state")
	test.That(t, err.Error(), test.ShouldContainSubstring, "exactly one of")

	_, _, err = runApp(t, "state", "--model", armModel, "--robot", "triped")
	test.That(t, err.Error(), test.ShouldContainSubstring, "exactly one of")

	_, _, err = runApp(t, "state", "--robot", "quadruped")
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown robot")

	_, _, err = runApp(t, "state", "--model", armModel, "--solver", "newton")
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown solver")

	_, _, err = runApp(t, "fk", "--model", armModel)
	test.That(t, err.Error(), test.ShouldContainSubstring, "group")
}

func TestParsers(t *testing.T) {
	state, err := parseState([]string{"a=1", " b = -2.5 "})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, state, test.ShouldResemble, referenceframe.State{"a": 1, "b": -2.5})

	_, err = parseState([]string{"a"})
	test.That(t, err.Error(), test.ShouldContainSubstring, "KEY=VALUE")
	_, err = parseState([]string{"=1"})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = parseState([]string{"a=x"})
	test.That(t, err.Error(), test.ShouldContainSubstring, `value of "a"`)

	hints, err := parseHints([]string{"g:a=1", "g:b=2", "h:c=3"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, hints, test.ShouldResemble, map[string]referenceframe.State{
		"g": {"a": 1, "b": 2},
		"h": {"c": 3},
	})
	_, err = parseHints([]string{"a=1"})
	test.That(t, err.Error(), test.ShouldContainSubstring, "GROUP:KEY=VALUE")

	v, err := parseVector("1, -2,3e-1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v.Sub(r3.Vector{X: 1, Y: -2, Z: 0.3}).Norm(), test.ShouldBeLessThan, 1e-12)
	_, err = parseVector("1,2,z")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = parseVector(strings.Repeat("1,", 3) + "1")
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, formatState(referenceframe.State{"b": math.Pi, "a": 1}), test.ShouldEqual, "a=1.0000 b=3.1416")
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, errors.New("boom"))
	test.That(t, buf.String(), test.ShouldContainSubstring, "Error: boom")
}
