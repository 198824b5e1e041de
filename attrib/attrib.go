// Package attrib converts geometric attributes between the canonical
// vector form and the flat numeric form used on the wire.
package attrib

import (
	stderrors "errors"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// ErrMalformedAttribute is returned when a flat attribute array length is
// not a multiple of its stride.
var ErrMalformedAttribute = stderrors.New("malformed attribute")

func IsMalformed(err error) bool {
	return errors.Cause(err) == ErrMalformedAttribute
}

func malformed(length, stride int) error {
	return errors.Wrapf(ErrMalformedAttribute, "length %d is not a multiple of %d", length, stride)
}

func Flatten2(vs []mgl64.Vec2) []float64 {
	out := make([]float64, 0, len(vs)*2)
	for _, v := range vs {
		out = append(out, v[0], v[1])
	}
	return out
}

func Flatten3(vs []mgl64.Vec3) []float64 {
	out := make([]float64, 0, len(vs)*3)
	for _, v := range vs {
		out = append(out, v[0], v[1], v[2])
	}
	return out
}

func Flatten4(vs []mgl64.Vec4) []float64 {
	out := make([]float64, 0, len(vs)*4)
	for _, v := range vs {
		out = append(out, v[0], v[1], v[2], v[3])
	}
	return out
}

// Unflatten partitions flat into groups of stride components.
func Unflatten(flat []float64, stride int) ([][]float64, error) {
	if stride <= 0 {
		return nil, errors.Errorf("invalid stride %d", stride)
	}
	if len(flat)%stride != 0 {
		return nil, malformed(len(flat), stride)
	}
	out := make([][]float64, len(flat)/stride)
	for i := range out {
		group := make([]float64, stride)
		copy(group, flat[i*stride:])
		out[i] = group
	}
	return out, nil
}

func Unflatten2(flat []float64) ([]mgl64.Vec2, error) {
	if len(flat)%2 != 0 {
		return nil, malformed(len(flat), 2)
	}
	out := make([]mgl64.Vec2, len(flat)/2)
	for i := range out {
		out[i] = mgl64.Vec2{flat[i*2], flat[i*2+1]}
	}
	return out, nil
}

func Unflatten3(flat []float64) ([]mgl64.Vec3, error) {
	if len(flat)%3 != 0 {
		return nil, malformed(len(flat), 3)
	}
	out := make([]mgl64.Vec3, len(flat)/3)
	for i := range out {
		out[i] = mgl64.Vec3{flat[i*3], flat[i*3+1], flat[i*3+2]}
	}
	return out, nil
}

func Unflatten4(flat []float64) ([]mgl64.Vec4, error) {
	if len(flat)%4 != 0 {
		return nil, malformed(len(flat), 4)
	}
	out := make([]mgl64.Vec4, len(flat)/4)
	for i := range out {
		out[i] = mgl64.Vec4{flat[i*4], flat[i*4+1], flat[i*4+2], flat[i*4+3]}
	}
	return out, nil
}

func EncodeVec2(v mgl64.Vec2) []float64 { return []float64{v[0], v[1]} }
func EncodeVec3(v mgl64.Vec3) []float64 { return []float64{v[0], v[1], v[2]} }

// EncodeQuat writes a quaternion stored as x,y,z,w.
func EncodeQuat(q mgl64.Vec4) []float64 { return []float64{q[0], q[1], q[2], q[3]} }
