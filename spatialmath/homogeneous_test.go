package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

func TestTranslationOnly(t *testing.T) {
	m, err := NewHomogeneousTransform(map[string]float64{TX: 1, TY: 2, TZ: 3}, DefaultConvention)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, TranslationOf(m), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, mat.EqualApprox(RotationOf(m), mat.NewDiagDense(3, []float64{1, 1, 1}), 1e-12), test.ShouldBeTrue)
}

func TestEulerConventionOrder(t *testing.T) {
	params := map[string]float64{RX: math.Pi / 2, RZ: math.Pi / 2}

	xyz, err := NewHomogeneousTransform(params, "xyz")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, AlmostEqual(xyz, Compose(RotationX(math.Pi/2), RotationZ(math.Pi/2)), 1e-12), test.ShouldBeTrue)

	zyx, err := NewHomogeneousTransform(params, "zyx")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, AlmostEqual(zyx, Compose(RotationZ(math.Pi/2), RotationX(math.Pi/2)), 1e-12), test.ShouldBeTrue)

	// rotations do not commute
	test.That(t, AlmostEqual(xyz, zyx, 1e-6), test.ShouldBeFalse)
}

func TestTranslationAppliedBeforeRotation(t *testing.T) {
	m, err := NewHomogeneousTransform(map[string]float64{TX: 1, RZ: math.Pi / 2}, DefaultConvention)
	test.That(t, err, test.ShouldBeNil)
	tip := Compose(m, NewTranslation(r3.Vector{X: 1}))
	pt := TranslationOf(tip)
	test.That(t, pt.X, test.ShouldAlmostEqual, 1)
	test.That(t, pt.Y, test.ShouldAlmostEqual, 1)
	test.That(t, pt.Z, test.ShouldAlmostEqual, 0)
}

func TestQuaternionRotation(t *testing.T) {
	// unnormalized 90 degrees about z
	s := math.Sqrt2 / 2
	m, err := NewHomogeneousTransform(map[string]float64{QW: 2 * s, QZ: 2 * s}, DefaultConvention)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, AlmostEqual(m, RotationZ(math.Pi/2), 1e-12), test.ShouldBeTrue)

	_, err = NewRotationFromQuaternion(quat.Number{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestHomogeneousTransformErrors(t *testing.T) {
	_, err := NewHomogeneousTransform(map[string]float64{"foo": 1}, DefaultConvention)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "foo")

	_, err = NewHomogeneousTransform(map[string]float64{RX: 1, QW: 1}, DefaultConvention)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewHomogeneousTransform(map[string]float64{RX: 1}, "xxy")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseConvention(t *testing.T) {
	conv, err := ParseConvention("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conv, test.ShouldEqual, DefaultConvention)

	conv, err = ParseConvention("ZYX")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conv, test.ShouldEqual, Convention("zyx"))

	for _, bad := range []string{"xy", "xyzz", "xya", "xxz"} {
		_, err = ParseConvention(bad)
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestComposeIsAssociative(t *testing.T) {
	a := Compose(NewTranslation(r3.Vector{X: 1}), RotationY(0.3))
	b := Compose(RotationX(-0.7), NewTranslation(r3.Vector{Z: 2}))
	c := RotationZ(1.1)
	left := Compose(Compose(a, b), c)
	right := Compose(a, Compose(b, c))
	test.That(t, AlmostEqual(left, right, 1e-12), test.ShouldBeTrue)
	test.That(t, AlmostEqual(Compose(), Identity(), 0), test.ShouldBeTrue)
	test.That(t, IsParameter(TX), test.ShouldBeTrue)
	test.That(t, IsParameter("theta"), test.ShouldBeFalse)
}

func TestTransformPoint(t *testing.T) {
	m := Compose(NewTranslation(r3.Vector{X: 1}), RotationZ(math.Pi/2))
	p := TransformPoint(m, r3.Vector{X: 1, Z: 2})
	test.That(t, p.X, test.ShouldAlmostEqual, 1)
	test.That(t, p.Y, test.ShouldAlmostEqual, 1)
	test.That(t, p.Z, test.ShouldAlmostEqual, 2)
}
