// Package triped models a three-legged walking robot. Each leg hangs from a gimbal that two swing motors drive
// through a closed linkage, followed by a linear actuator that extends the leg.
package triped

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/tripkin/logging"
	"go.viam.com/tripkin/referenceframe"
	"go.viam.com/tripkin/registry"
	"go.viam.com/tripkin/solver"
	"go.viam.com/tripkin/spatialmath"
)

// ModelName is the registry model of the gimbal mapper.
const ModelName = "triped_gimbal"

// NumLegs is the number of legs of the robot, spaced evenly around its z axis.
const NumLegs = 3

// length of the rods joining the swing arms to the gimbal platform
const rodLength = 0.11

var (
	gimbalOffset = r3.Vector{X: 0.265, Z: 0.014}

	// rod ends on the gimbal platform
	platformRight = r3.Vector{X: 0.015, Y: 0.029, Z: -0.0965}
	platformLeft  = r3.Vector{X: 0.015, Y: -0.029, Z: -0.0965}

	// swing motor mounts and the rod end on each swing arm
	rightMotor = spatialmath.Compose(
		spatialmath.NewTranslation(r3.Vector{X: 0.139807669447128, Y: 0.0549998406976098, Z: -0.051}),
		spatialmath.RotationZ(degToRad(-338.5255)),
	)
	leftMotor = spatialmath.Compose(
		spatialmath.NewTranslation(r3.Vector{X: 0.139807669447128, Y: -0.0549998406976098, Z: -0.051}),
		spatialmath.RotationZ(degToRad(-21.4745)),
	)
	swingArmTip = r3.Vector{X: 0.085, Z: -0.0245}
)

// GimbalAttributes are the model file attributes of the triped_gimbal mapper.
type GimbalAttributes struct {
	// LegPrefix is prepended to every key of the leg, e.g. "leg0_".
	LegPrefix string `json:"leg_prefix"`
}

func init() {
	registry.RegisterMapper(ModelName, func(cfg registry.MapperConfig, logger logging.Logger) (referenceframe.Mapper, error) {
		var attrs GimbalAttributes
		unused, err := registry.DecodeAttributes(cfg, &attrs)
		if err != nil {
			return nil, err
		}
		if len(unused) > 0 {
			logger.Warnw("ignoring unknown attributes", "group", cfg.Group, "attributes", unused)
		}
		return NewGimbalMapper(attrs.LegPrefix, nil, logger)
	})
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func swingArmEnd(motor mat.Matrix, theta float64) r3.Vector {
	s, c := math.Sincos(theta)
	tip := r3.Vector{X: c * swingArmTip.X, Y: s * swingArmTip.X, Z: swingArmTip.Z}
	return spatialmath.TransformPoint(motor, tip)
}

// LoopClosure scores how far the two rods of a leg are from their length, given the swing motor angles and the
// gimbal angles. It is zero exactly when the linkage closes.
func LoopClosure(swingLeft, swingRight, rx, ry, rz float64) float64 {
	gimbal := spatialmath.Compose(
		spatialmath.NewTranslation(gimbalOffset),
		spatialmath.RotationX(rx),
		spatialmath.RotationY(ry),
		spatialmath.RotationZ(rz),
	)
	right := spatialmath.TransformPoint(gimbal, platformRight).Sub(swingArmEnd(rightMotor, swingRight)).Norm2()
	left := spatialmath.TransformPoint(gimbal, platformLeft).Sub(swingArmEnd(leftMotor, swingLeft)).Norm2()

	// normalized so that the solver tolerance is relative to the rod length
	r2 := rodLength * rodLength
	dr, dl := right/r2-1, left/r2-1
	return dr*dr + dl*dl
}

// LegPrefix returns the prefix of every name belonging to leg i.
func LegPrefix(i int) string {
	return fmt.Sprintf("leg%d_", i)
}

// Keys of the state of one leg.
func swingKeys(prefix string) (left, right string) {
	return prefix + "swing_left", prefix + "swing_right"
}

func gimbalKeys(prefix string) []string {
	joint := prefix + "gimbal_joint"
	return []string{
		referenceframe.JointKey(joint, spatialmath.RX),
		referenceframe.JointKey(joint, spatialmath.RY),
		referenceframe.JointKey(joint, spatialmath.RZ),
	}
}

// NewGimbalMapper returns the mapper between the swing motors and the gimbal joint of the leg with the given name
// prefix. A nil factory selects solver.Compile.
func NewGimbalMapper(prefix string, factory solver.Factory, logger logging.Logger) (*referenceframe.OptimizingMapper, error) {
	left, right := swingKeys(prefix)
	gimbal := gimbalKeys(prefix)
	closure := func(a, v referenceframe.State) float64 {
		return LoopClosure(a[left], a[right], v[gimbal[0]], v[gimbal[1]], v[gimbal[2]])
	}
	return referenceframe.NewOptimizingMapper(prefix+ModelName, []string{left, right}, gimbal, closure, factory, logger)
}

// NewLeg returns the chain of leg i: the closed gimbal group followed by the transformations of the linear part.
func NewLeg(i int, factory solver.Factory, logger logging.Logger) ([]referenceframe.ChainElement, error) {
	prefix := LegPrefix(i)
	type part struct {
		name      string
		values    map[string]float64
		stateVars []string
	}
	build := func(parts ...part) ([]*referenceframe.Transformation, error) {
		out := make([]*referenceframe.Transformation, 0, len(parts))
		for _, s := range parts {
			t, err := referenceframe.NewTransformation(prefix+s.name, s.values, s.stateVars...)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
		return out, nil
	}

	closedChain, err := build(
		part{name: "leg_rotation", values: map[string]float64{"rz": degToRad(120) * float64(i)}},
		part{name: "A_CSS_P_trans", values: map[string]float64{"tx": gimbalOffset.X, "tz": gimbalOffset.Z}},
		part{name: "gimbal_joint", values: map[string]float64{"rx": 0, "ry": 0, "rz": 0}, stateVars: []string{"rx", "ry", "rz"}},
	)
	if err != nil {
		return nil, err
	}
	linearPart, err := build(
		part{name: "A_P_LL", values: map[string]float64{"tx": 1.640, "tz": -0.037}},
		part{name: "zero_angle_convention", values: map[string]float64{"ry": degToRad(-3)}},
		part{name: "extend_joint", values: map[string]float64{"ry": 0}, stateVars: []string{"ry"}},
		part{name: "A_LL_Joint_FCS", values: map[string]float64{"tx": -1.5}},
	)
	if err != nil {
		return nil, err
	}

	mapper, err := NewGimbalMapper(prefix, factory, logger)
	if err != nil {
		return nil, err
	}
	left, right := swingKeys(prefix)
	gimbal, err := referenceframe.NewClosedGroup(prefix+"closed_chain", closedChain,
		referenceframe.State{left: 0, right: 0}, mapper)
	if err != nil {
		return nil, errors.Wrapf(err, "leg %d", i)
	}

	elements := []referenceframe.ChainElement{gimbal}
	for _, t := range linearPart {
		elements = append(elements, t)
	}
	return elements, nil
}

// FootName returns the name of the group at the tip of leg i.
func FootName(i int) string {
	return LegPrefix(i) + "A_LL_Joint_FCS"
}

// NewRobot returns the triped with every leg at zero swing and extension.
func NewRobot(logger logging.Logger) (*referenceframe.Robot, error) {
	return NewRobotWithFactory(nil, logger)
}

// NewRobotWithFactory is like NewRobot but solves the gimbal mappings with factory.
func NewRobotWithFactory(factory solver.Factory, logger logging.Logger) (*referenceframe.Robot, error) {
	var elements []referenceframe.ChainElement
	for i := 0; i < NumLegs; i++ {
		leg, err := NewLeg(i, factory, logger)
		if err != nil {
			return nil, err
		}
		elements = append(elements, leg...)
	}
	return referenceframe.NewRobot(logger, elements...)
}
