package utils

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// RotationOrder follows the FBX "RotationOrder" enum. The first axis is
// applied first, so EulerXYZ means R = Rz * Ry * Rx.
type RotationOrder int

const (
	EulerXYZ RotationOrder = iota
	EulerXZY
	EulerYZX
	EulerYXZ
	EulerZXY
	EulerZYX
)

var rotationOrderAxes = [...][3]int{
	EulerXYZ: {0, 1, 2},
	EulerXZY: {0, 2, 1},
	EulerYZX: {1, 2, 0},
	EulerYXZ: {1, 0, 2},
	EulerZXY: {2, 0, 1},
	EulerZYX: {2, 1, 0},
}

var unitAxes = [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// EulerToQuat converts euler angles in degrees.
func EulerToQuat(e mgl64.Vec3, order RotationOrder) mgl64.Quat {
	if order < EulerXYZ || order > EulerZYX {
		order = EulerXYZ
	}
	q := mgl64.QuatIdent()
	for _, axis := range rotationOrderAxes[order] {
		q = mgl64.QuatRotate(mgl64.DegToRad(e[axis]), unitAxes[axis]).Mul(q)
	}
	return q.Normalize()
}

// QuatToEuler returns XYZ order euler angles in degrees.
func QuatToEuler(q mgl64.Quat) (e mgl64.Vec3) {
	q = q.Normalize()

	sinr_cosp := 2 * (q.W*q.X() + q.Y()*q.Z())
	cosr_cosp := 1 - 2*(q.X()*q.X()+q.Y()*q.Y())
	e[0] = math.Atan2(sinr_cosp, cosr_cosp)

	sinp := 2 * (q.W*q.Y() - q.Z()*q.X())
	if math.Abs(sinp) >= 1 {
		e[1] = math.Copysign(math.Pi/2, sinp)
	} else {
		e[1] = math.Asin(sinp)
	}

	siny_cosp := 2 * (q.W*q.Z() + q.X()*q.Y())
	cosy_cosp := 1 - 2*(q.Y()*q.Y()+q.Z()*q.Z())
	e[2] = math.Atan2(siny_cosp, cosy_cosp)

	return e.Mul(180.0 / math.Pi)
}

// QuatFromXYZW builds a quaternion from the x, y, z, w storage order.
func QuatFromXYZW(v mgl64.Vec4) mgl64.Quat {
	return mgl64.Quat{W: v[3], V: mgl64.Vec3{v[0], v[1], v[2]}}
}

func QuatToXYZW(q mgl64.Quat) mgl64.Vec4 {
	return mgl64.Vec4{q.V[0], q.V[1], q.V[2], q.W}
}

// NormalizeQuatXYZW returns identity for zero length input.
func NormalizeQuatXYZW(v mgl64.Vec4) mgl64.Quat {
	q := QuatFromXYZW(v)
	if q.Len() < 1e-12 {
		return mgl64.QuatIdent()
	}
	return q.Normalize()
}

func FloatArray32to64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
