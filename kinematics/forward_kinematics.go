// Package kinematics computes forward and inverse kinematics over a referenceframe.Robot.
package kinematics

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/tripkin/referenceframe"
	"go.viam.com/tripkin/spatialmath"
)

// ForwardKinematics returns the pose of the target group's tip in the root frame: the product, base to target, of
// every group's transform at the robot's current state. The robot is not modified.
func ForwardKinematics(robot *referenceframe.Robot, target string) (*mat.Dense, error) {
	chain, err := robot.Chain(target)
	if err != nil {
		return nil, err
	}
	out := spatialmath.Identity()
	for _, g := range chain {
		m, err := g.Transform()
		if err != nil {
			return nil, errors.Wrapf(err, "forward kinematics to %q", target)
		}
		out.Mul(out, m)
	}
	return out, nil
}

// Position returns the translation part of ForwardKinematics.
func Position(robot *referenceframe.Robot, target string) (r3.Vector, error) {
	m, err := ForwardKinematics(robot, target)
	if err != nil {
		return r3.Vector{}, err
	}
	return spatialmath.TranslationOf(m), nil
}
