// Package spatialmath defines the 4x4 homogeneous transform algebra used to compose kinematic chains.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Parameter names understood by NewHomogeneousTransform.
const (
	TX = "tx"
	TY = "ty"
	TZ = "tz"
	RX = "rx"
	RY = "ry"
	RZ = "rz"
	QW = "qw"
	QX = "qx"
	QY = "qy"
	QZ = "qz"
)

var (
	translationParams = []string{TX, TY, TZ}
	eulerParams       = []string{RX, RY, RZ}
	quaternionParams  = []string{QW, QX, QY, QZ}
)

// IsParameter reports whether name is a parameter a homogeneous transform can be built from.
func IsParameter(name string) bool {
	for _, group := range [][]string{translationParams, eulerParams, quaternionParams} {
		for _, p := range group {
			if p == name {
				return true
			}
		}
	}
	return false
}

// Identity returns a new 4x4 identity transform.
func Identity() *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
}

// NewTranslation returns the pure translation by v.
func NewTranslation(v r3.Vector) *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		1, 0, 0, v.X,
		0, 1, 0, v.Y,
		0, 0, 1, v.Z,
		0, 0, 0, 1,
	})
}

// RotationX returns the rotation by theta radians about the x axis.
func RotationX(theta float64) *mat.Dense {
	s, c := math.Sincos(theta)
	return mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, c, -s, 0,
		0, s, c, 0,
		0, 0, 0, 1,
	})
}

// RotationY returns the rotation by theta radians about the y axis.
func RotationY(theta float64) *mat.Dense {
	s, c := math.Sincos(theta)
	return mat.NewDense(4, 4, []float64{
		c, 0, s, 0,
		0, 1, 0, 0,
		-s, 0, c, 0,
		0, 0, 0, 1,
	})
}

// RotationZ returns the rotation by theta radians about the z axis.
func RotationZ(theta float64) *mat.Dense {
	s, c := math.Sincos(theta)
	return mat.NewDense(4, 4, []float64{
		c, -s, 0, 0,
		s, c, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
}

// NewRotationFromQuaternion returns the rotation described by q. q is normalized first; the zero quaternion
// has no rotation and is rejected.
func NewRotationFromQuaternion(q quat.Number) (*mat.Dense, error) {
	norm := quat.Abs(q)
	if norm == 0 {
		return nil, errors.New("cannot build a rotation from a zero quaternion")
	}
	q = quat.Scale(1/norm, q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return mat.NewDense(4, 4, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w), 0,
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w), 0,
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y), 0,
		0, 0, 0, 1,
	}), nil
}

// Compose multiplies the given transforms left to right. Composing nothing yields the identity.
func Compose(transforms ...mat.Matrix) *mat.Dense {
	out := Identity()
	for _, t := range transforms {
		out.Mul(out, t)
	}
	return out
}

// TranslationOf returns the translation column of a homogeneous transform.
func TranslationOf(m mat.Matrix) r3.Vector {
	return r3.Vector{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)}
}

// RotationOf returns a copy of the 3x3 rotation block of a homogeneous transform.
func RotationOf(m mat.Matrix) *mat.Dense {
	r := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r.Set(i, j, m.At(i, j))
		}
	}
	return r
}

// AlmostEqual returns whether two transforms agree elementwise within tol.
func AlmostEqual(a, b mat.Matrix, tol float64) bool {
	return mat.EqualApprox(a, b, tol)
}

// NewHomogeneousTransform builds T(tx, ty, tz) * R from a parameter map. R is either composed from rx, ry, rz in the
// order given by conv, or built from qw, qx, qy, qz. Absent parameters are zero. Mixing Euler and quaternion
// parameters is an error, as is any unknown parameter name.
func NewHomogeneousTransform(params map[string]float64, conv Convention) (*mat.Dense, error) {
	var hasEuler, hasQuat bool
	for name := range params {
		switch name {
		case TX, TY, TZ:
		case RX, RY, RZ:
			hasEuler = true
		case QW, QX, QY, QZ:
			hasQuat = true
		default:
			return nil, errors.Errorf("unknown transform parameter %q", name)
		}
	}
	if hasEuler && hasQuat {
		return nil, errors.New("transform parameters mix euler angles and quaternion components")
	}

	out := NewTranslation(r3.Vector{X: params[TX], Y: params[TY], Z: params[TZ]})
	if hasQuat {
		rot, err := NewRotationFromQuaternion(quat.Number{
			Real: params[QW],
			Imag: params[QX],
			Jmag: params[QY],
			Kmag: params[QZ],
		})
		if err != nil {
			return nil, err
		}
		out.Mul(out, rot)
		return out, nil
	}
	if !hasEuler {
		return out, nil
	}
	if err := conv.Validate(); err != nil {
		return nil, err
	}
	for _, axis := range conv {
		switch axis {
		case 'x':
			out.Mul(out, RotationX(params[RX]))
		case 'y':
			out.Mul(out, RotationY(params[RY]))
		case 'z':
			out.Mul(out, RotationZ(params[RZ]))
		}
	}
	return out, nil
}

// TransformPoint applies the homogeneous transform m to the point p.
func TransformPoint(m mat.Matrix, p r3.Vector) r3.Vector {
	return r3.Vector{
		X: m.At(0, 0)*p.X + m.At(0, 1)*p.Y + m.At(0, 2)*p.Z + m.At(0, 3),
		Y: m.At(1, 0)*p.X + m.At(1, 1)*p.Y + m.At(1, 2)*p.Z + m.At(1, 3),
		Z: m.At(2, 0)*p.X + m.At(2, 1)*p.Y + m.At(2, 2)*p.Z + m.At(2, 3),
	}
}
