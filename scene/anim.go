package scene

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// KTimeSecond is the number of FBX time ticks in a second.
const KTimeSecond = 46186158000

const (
	PropTranslation = "Lcl Translation"
	PropRotation    = "Lcl Rotation"
	PropScaling     = "Lcl Scaling"
)

var curveNodeNames = map[string]string{
	PropTranslation: "T",
	PropRotation:    "R",
	PropScaling:     "S",
}

var curveChannels = [3]string{"d|X", "d|Y", "d|Z"}

func SecondsToKTime(t float64) int64 { return int64(math.Round(t * KTimeSecond)) }
func KTimeToSeconds(t int64) float64 { return float64(t) / KTimeSecond }

type AnimStack struct {
	Element

	TimeBegin float64
	TimeEnd   float64
	Layers    []*AnimLayer

	hasRange bool
	scene    *Scene
}

type AnimLayer struct {
	Element

	CurveNodes []*AnimCurveNode
}

// AnimCurveNode animates one three component property of Target.
// Components without a curve keep their Default value.
type AnimCurveNode struct {
	Element

	Target   *Node
	Property string
	Default  mgl64.Vec3
	Curves   [3]*AnimCurve
}

type Keyframe struct {
	Time  float64
	Value float64
}

type AnimCurve struct {
	Element

	Keys []Keyframe
}

// Evaluate interpolates linearly and clamps outside the key range.
func (c *AnimCurve) Evaluate(t float64, def float64) float64 {
	if c == nil || len(c.Keys) == 0 {
		return def
	}
	keys := c.Keys
	if t <= keys[0].Time {
		return keys[0].Value
	}
	last := keys[len(keys)-1]
	if t >= last.Time {
		return last.Value
	}
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > t })
	a, b := keys[i-1], keys[i]
	if b.Time == a.Time {
		return b.Value
	}
	f := (t - a.Time) / (b.Time - a.Time)
	return a.Value + (b.Value-a.Value)*f
}

func (cn *AnimCurveNode) Evaluate(t float64) mgl64.Vec3 {
	var out mgl64.Vec3
	for i := range out {
		out[i] = cn.Curves[i].Evaluate(t, cn.Default[i])
	}
	return out
}

func (cn *AnimCurveNode) timeRange() (begin, end float64, ok bool) {
	for _, c := range cn.Curves {
		if c == nil || len(c.Keys) == 0 {
			continue
		}
		b, e := c.Keys[0].Time, c.Keys[len(c.Keys)-1].Time
		if !ok || b < begin {
			begin = b
		}
		if !ok || e > end {
			end = e
		}
		ok = true
	}
	return
}

// AddCurve animates prop of node with one key per time. Rotation values
// are euler angles in degrees.
func (a *AnimStack) AddCurve(node *Node, prop string, times []float64, values []mgl64.Vec3) error {
	if _, ok := curveNodeNames[prop]; !ok {
		return errors.Errorf("Property %q can not be animated", prop)
	}
	if len(times) != len(values) {
		return errors.Errorf("Got %d times and %d values", len(times), len(values))
	}
	if len(times) == 0 {
		return nil
	}
	for i := 1; i < len(times); i++ {
		if times[i] < times[i-1] {
			return errors.Errorf("Key times are not sorted at %d", i)
		}
	}

	if len(a.Layers) == 0 {
		a.Layers = append(a.Layers, a.scene.createAnimLayer("BaseLayer"))
	}
	layer := a.Layers[0]

	cn := a.scene.createAnimCurveNode(curveNodeNames[prop])
	cn.Target = node
	cn.Property = prop
	cn.Default = values[0]
	for axis := range cn.Curves {
		c := a.scene.createAnimCurve()
		c.Keys = make([]Keyframe, len(times))
		for i, t := range times {
			c.Keys[i] = Keyframe{Time: t, Value: values[i][axis]}
		}
		cn.Curves[axis] = c
	}
	layer.CurveNodes = append(layer.CurveNodes, cn)

	a.extendTimeRange(times[0], times[len(times)-1])
	return nil
}

func (a *AnimStack) extendTimeRange(begin, end float64) {
	if !a.hasRange {
		a.TimeBegin, a.TimeEnd = begin, end
		a.hasRange = true
		return
	}
	a.TimeBegin = math.Min(a.TimeBegin, begin)
	a.TimeEnd = math.Max(a.TimeEnd, end)
}

func (a *AnimStack) curveNodes() []*AnimCurveNode {
	var out []*AnimCurveNode
	for _, l := range a.Layers {
		out = append(out, l.CurveNodes...)
	}
	return out
}
