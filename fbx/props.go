package fbx

import (
	"github.com/mogaika/fbxdoc/attrib"
	"github.com/mogaika/fbxdoc/utils"
)

func prop(n *Node, i int) (interface{}, bool) {
	if n == nil || i < 0 || i >= len(n.Properties) {
		return nil, false
	}
	return n.Properties[i], true
}

func PropInt64(n *Node, i int) (int64, bool) {
	v, ok := prop(n, i)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case int64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	f, ok := attrib.Float(v)
	return int64(f), ok
}

func PropFloat64(n *Node, i int) (float64, bool) {
	v, ok := prop(n, i)
	if !ok {
		return 0, false
	}
	return attrib.Float(v)
}

func PropString(n *Node, i int) (string, bool) {
	v, ok := prop(n, i)
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}

// PropFloat64s returns an array property as float64 regardless of the
// stored element type.
func PropFloat64s(n *Node, i int) []float64 {
	v, ok := prop(n, i)
	if !ok {
		return nil
	}
	switch a := v.(type) {
	case []float64:
		return a
	case []float32:
		return utils.FloatArray32to64(a)
	}
	fs, _ := attrib.Floats(v)
	return fs
}

func PropInt64s(n *Node, i int) []int64 {
	v, ok := prop(n, i)
	if !ok {
		return nil
	}
	switch a := v.(type) {
	case []int64:
		return a
	case []int32:
		out := make([]int64, len(a))
		for j, x := range a {
			out[j] = int64(x)
		}
		return out
	}
	fs, ok := attrib.Floats(v)
	if !ok {
		return nil
	}
	out := make([]int64, len(fs))
	for j, x := range fs {
		out[j] = int64(x)
	}
	return out
}

// FindP looks up a Properties70 entry of n by name and returns its values,
// which follow the name, type, label and flags columns.
func FindP(n *Node, name string) ([]interface{}, bool) {
	props := Child(n, "Properties70")
	if props == nil {
		// 6.x files
		props = Child(n, "Properties60")
	}
	for _, p := range Children(props, "P") {
		if pname, _ := PropString(p, 0); pname == name {
			if len(p.Properties) < 4 {
				return nil, true
			}
			return p.Properties[4:], true
		}
	}
	return nil, false
}

// FindPVec3 reads a three component Properties70 value.
func FindPVec3(n *Node, name string) ([3]float64, bool) {
	vals, ok := FindP(n, name)
	if !ok || len(vals) < 3 {
		return [3]float64{}, false
	}
	var out [3]float64
	for i := range out {
		f, ok := attrib.Float(vals[i])
		if !ok {
			return [3]float64{}, false
		}
		out[i] = f
	}
	return out, true
}

func FindPFloat(n *Node, name string) (float64, bool) {
	vals, ok := FindP(n, name)
	if !ok || len(vals) < 1 {
		return 0, false
	}
	return attrib.Float(vals[0])
}

func FindPString(n *Node, name string) (string, bool) {
	vals, ok := FindP(n, name)
	if !ok || len(vals) < 1 {
		return "", false
	}
	s, ok := vals[0].(string)
	return s, ok
}
