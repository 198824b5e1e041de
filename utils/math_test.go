package utils

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestEulerToQuatSingleAxis(t *testing.T) {
	q := EulerToQuat(mgl64.Vec3{90, 0, 0}, EulerXYZ)
	v := q.Rotate(mgl64.Vec3{0, 1, 0})
	assert.True(t, v.ApproxEqualThreshold(mgl64.Vec3{0, 0, 1}, 1e-9), "%v", v)

	q = EulerToQuat(mgl64.Vec3{0, 0, 90}, EulerXYZ)
	v = q.Rotate(mgl64.Vec3{1, 0, 0})
	assert.True(t, v.ApproxEqualThreshold(mgl64.Vec3{0, 1, 0}, 1e-9), "%v", v)
}

func TestEulerOrder(t *testing.T) {
	e := mgl64.Vec3{90, 90, 0}
	// X first: x axis stays on x, then yaw around y moves it to -z
	xyz := EulerToQuat(e, EulerXYZ).Rotate(mgl64.Vec3{1, 0, 0})
	assert.True(t, xyz.ApproxEqualThreshold(mgl64.Vec3{0, 0, -1}, 1e-9), "%v", xyz)

	// Y first: x goes to -z, then rolling around x moves it to y
	yxz := EulerToQuat(e, EulerYXZ).Rotate(mgl64.Vec3{1, 0, 0})
	assert.True(t, yxz.ApproxEqualThreshold(mgl64.Vec3{0, 1, 0}, 1e-9), "%v", yxz)
}

func TestQuatEulerRoundTrip(t *testing.T) {
	for _, e := range []mgl64.Vec3{
		{0, 0, 0},
		{10, 20, 30},
		{-45, 15, 170},
		{90, 0, 0},
		{0, 0, -120},
	} {
		q := EulerToQuat(e, EulerXYZ)
		back := QuatToEuler(q)
		q2 := EulerToQuat(back, EulerXYZ)
		assert.True(t, q.ApproxEqualThreshold(q2, 1e-9) || q.ApproxEqualThreshold(q2.Scale(-1), 1e-9),
			"%v -> %v", e, back)
	}
	assert.True(t, QuatToEuler(EulerToQuat(mgl64.Vec3{10, 20, 30}, EulerXYZ)).ApproxEqualThreshold(mgl64.Vec3{10, 20, 30}, 1e-9))
}

func TestXYZWHelpers(t *testing.T) {
	q := NormalizeQuatXYZW(mgl64.Vec4{0, 0, 0, 2})
	assert.Equal(t, mgl64.QuatIdent(), q)
	assert.Equal(t, mgl64.QuatIdent(), NormalizeQuatXYZW(mgl64.Vec4{}))

	v := mgl64.Vec4{0.5, 0.5, 0.5, 0.5}
	assert.Equal(t, v, QuatToXYZW(QuatFromXYZW(v)))
}
