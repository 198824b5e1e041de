package attrib

import (
	"reflect"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// Values used when a wire value has an unrecognised shape.
var (
	Origin       = mgl64.Vec3{0, 0, 0}
	IdentityQuat = mgl64.Vec4{0, 0, 0, 1}
	UnitScale    = mgl64.Vec3{1, 1, 1}
)

// Float converts any Go numeric value to float64.
func Float(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// Floats accepts any slice or array of numbers (fixed arrays and mgl
// vectors included) and returns its components.
func Floats(v interface{}) ([]float64, bool) {
	switch s := v.(type) {
	case nil:
		return nil, false
	case []float64:
		return append([]float64{}, s...), true
	case mgl64.Vec2:
		return s[:], true
	case mgl64.Vec3:
		return s[:], true
	case mgl64.Vec4:
		return s[:], true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]float64, rv.Len())
	for i := range out {
		f, ok := Float(rv.Index(i).Interface())
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func decodeFixed(v interface{}, n int) ([]float64, bool) {
	fs, ok := Floats(v)
	if !ok || len(fs) != n {
		return nil, false
	}
	return fs, true
}

func DecodeVec3(v interface{}, def mgl64.Vec3) mgl64.Vec3 {
	if fs, ok := decodeFixed(v, 3); ok {
		return mgl64.Vec3{fs[0], fs[1], fs[2]}
	}
	return def
}

func DecodeTranslation(v interface{}) mgl64.Vec3 { return DecodeVec3(v, Origin) }
func DecodeScale(v interface{}) mgl64.Vec3       { return DecodeVec3(v, UnitScale) }

// DecodeQuat reads an x,y,z,w quaternion, identity on any other shape.
func DecodeQuat(v interface{}) mgl64.Vec4 {
	if fs, ok := decodeFixed(v, 4); ok {
		return mgl64.Vec4{fs[0], fs[1], fs[2], fs[3]}
	}
	return IdentityQuat
}

// DecodeColor returns nil when v is not a 3-component color.
func DecodeColor(v interface{}) *mgl64.Vec3 {
	fs, ok := decodeFixed(v, 3)
	if !ok {
		return nil
	}
	c := mgl64.Vec3{fs[0], fs[1], fs[2]}
	return &c
}

func decodeList(v interface{}, stride int) ([][]float64, error) {
	if v == nil {
		return nil, nil
	}
	if flat, ok := Floats(v); ok {
		return Unflatten(flat, stride)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errors.Wrapf(ErrMalformedAttribute, "unrecognized attribute shape %T", v)
	}
	out := make([][]float64, rv.Len())
	for i := range out {
		fs, ok := decodeFixed(rv.Index(i).Interface(), stride)
		if !ok {
			return nil, errors.Wrapf(ErrMalformedAttribute, "element %d is not a %d-tuple", i, stride)
		}
		out[i] = fs
	}
	return out, nil
}

// DecodeVec3List accepts either the flat form or a list of 3-tuples.
// A nil input yields a nil result, which callers treat as absent.
func DecodeVec3List(v interface{}) ([]mgl64.Vec3, error) {
	groups, err := decodeList(v, 3)
	if err != nil || groups == nil {
		return nil, err
	}
	out := make([]mgl64.Vec3, len(groups))
	for i, g := range groups {
		out[i] = mgl64.Vec3{g[0], g[1], g[2]}
	}
	return out, nil
}

func DecodeVec2List(v interface{}) ([]mgl64.Vec2, error) {
	groups, err := decodeList(v, 2)
	if err != nil || groups == nil {
		return nil, err
	}
	out := make([]mgl64.Vec2, len(groups))
	for i, g := range groups {
		out[i] = mgl64.Vec2{g[0], g[1]}
	}
	return out, nil
}

// DecodeUint32 accepts non-negative integral numbers.
func DecodeUint32(v interface{}) (uint32, bool) {
	f, ok := Float(v)
	if !ok || f < 0 || f > float64(^uint32(0)) || f != float64(uint64(f)) {
		return 0, false
	}
	return uint32(f), true
}

func DecodeOptionalUint32(v interface{}) *uint32 {
	if u, ok := DecodeUint32(v); ok {
		return &u
	}
	return nil
}

// DecodeUint32List drops entries that are not valid ids.
func DecodeUint32List(v interface{}) []uint32 {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]uint32, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		if u, ok := DecodeUint32(rv.Index(i).Interface()); ok {
			out = append(out, u)
		}
	}
	return out
}

// DecodeTriangleList reads vertex indices three at a time. A triple with any
// invalid entry is dropped whole so the triangles after it keep their
// vertices; dropped holds the positions of the removed triples.
func DecodeTriangleList(v interface{}) (indices []uint32, dropped []int) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, nil
	}
	indices = make([]uint32, 0, rv.Len())
	for start := 0; start < rv.Len(); start += 3 {
		end := start + 3
		if end > rv.Len() {
			end = rv.Len()
		}
		tri := make([]uint32, 0, 3)
		for i := start; i < end; i++ {
			u, ok := DecodeUint32(rv.Index(i).Interface())
			if !ok {
				break
			}
			tri = append(tri, u)
		}
		if len(tri) != end-start {
			dropped = append(dropped, start/3)
			continue
		}
		indices = append(indices, tri...)
	}
	return indices, dropped
}
