package scene

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

const DefaultResampleRate = 30.0

// MaxBakedSamples limits the samples per channel of a single bake.
const MaxBakedSamples = 1 << 20

type BakeOptions struct {
	// Samples per second
	ResampleRate float64
}

type BakedVec3 struct {
	Time  float64
	Value mgl64.Vec3
}

type BakedQuat struct {
	Time  float64
	Value mgl64.Quat
}

// BakedNode holds the sampled local transform channels of one node. Only
// animated channels have keys.
type BakedNode struct {
	TypedID         uint32
	TranslationKeys []BakedVec3
	RotationKeys    []BakedQuat
	ScaleKeys       []BakedVec3
}

type BakedAnim struct {
	TimeBegin float64
	TimeEnd   float64
	Nodes     []BakedNode
}

func sampleTimes(begin, end, rate float64) ([]float64, error) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, errors.Errorf("Invalid resample rate %v", rate)
	}
	if math.IsNaN(begin) || math.IsNaN(end) || end < begin {
		return nil, errors.Errorf("Invalid time range [%v, %v]", begin, end)
	}
	span := (end - begin) * rate
	if span+2 > MaxBakedSamples {
		return nil, errors.Errorf("Too many samples: %.0f, limit %d", span, MaxBakedSamples)
	}

	const eps = 1e-9
	n := int(math.Floor(span + eps))
	times := make([]float64, 0, n+2)
	for i := 0; i <= n; i++ {
		times = append(times, begin+float64(i)/rate)
	}
	if times[len(times)-1] < end-eps {
		times = append(times, end)
	}
	return times, nil
}

// Bake samples every animated node of stack at a fixed rate from the stack
// begin to end time inclusive.
func Bake(stack *AnimStack, opts BakeOptions) (*BakedAnim, error) {
	if stack == nil {
		return nil, errors.New("No animation stack")
	}
	times, err := sampleTimes(stack.TimeBegin, stack.TimeEnd, opts.ResampleRate)
	if err != nil {
		return nil, errors.Wrapf(err, "Bake %q", stack.Name)
	}

	type channels struct {
		node                           *Node
		translation, rotation, scaling *AnimCurveNode
	}
	byNode := make(map[*Node]*channels)
	for _, cn := range stack.curveNodes() {
		if cn.Target == nil {
			continue
		}
		ch, ok := byNode[cn.Target]
		if !ok {
			ch = &channels{node: cn.Target}
			byNode[cn.Target] = ch
		}
		// first layer wins
		switch cn.Property {
		case PropTranslation:
			if ch.translation == nil {
				ch.translation = cn
			}
		case PropRotation:
			if ch.rotation == nil {
				ch.rotation = cn
			}
		case PropScaling:
			if ch.scaling == nil {
				ch.scaling = cn
			}
		}
	}

	nodes := make([]*channels, 0, len(byNode))
	for _, ch := range byNode {
		nodes = append(nodes, ch)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].node.TypedID < nodes[j].node.TypedID })

	baked := &BakedAnim{TimeBegin: stack.TimeBegin, TimeEnd: stack.TimeEnd}
	for _, ch := range nodes {
		bn := BakedNode{TypedID: ch.node.TypedID}
		for _, t := range times {
			if ch.translation != nil {
				bn.TranslationKeys = append(bn.TranslationKeys, BakedVec3{t, ch.translation.Evaluate(t)})
			}
			if ch.rotation != nil {
				bn.RotationKeys = append(bn.RotationKeys, BakedQuat{t, ch.node.rotationFromEuler(ch.rotation.Evaluate(t))})
			}
			if ch.scaling != nil {
				bn.ScaleKeys = append(bn.ScaleKeys, BakedVec3{t, ch.scaling.Evaluate(t)})
			}
		}
		if len(bn.TranslationKeys)+len(bn.RotationKeys)+len(bn.ScaleKeys) != 0 {
			baked.Nodes = append(baked.Nodes, bn)
		}
	}
	return baked, nil
}
