package scene

import (
	"io"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/mogaika/fbxdoc/attrib"
	"github.com/mogaika/fbxdoc/fbx"
	"github.com/mogaika/fbxdoc/logger"
	"github.com/mogaika/fbxdoc/utils"
)

type LoadOptions struct {
	// Charmap decodes strings that are not valid UTF-8
	Charmap *charmap.Charmap
}

func (o LoadOptions) readOptions() fbx.ReadOptions {
	return fbx.ReadOptions{Charmap: o.Charmap}
}

func Load(path string, opts LoadOptions) (*Scene, error) {
	f, err := fbx.ReadFile(path, opts.readOptions())
	if err != nil {
		return nil, err
	}
	return FromFile(f)
}

func LoadBytes(data []byte, opts LoadOptions) (*Scene, error) {
	f, err := fbx.Read(data, opts.readOptions())
	if err != nil {
		return nil, err
	}
	return FromFile(f)
}

func LoadReader(r io.Reader, opts LoadOptions) (*Scene, error) {
	f, err := fbx.ReadFrom(r, opts.readOptions())
	if err != nil {
		return nil, err
	}
	return FromFile(f)
}

type loader struct {
	s   *Scene
	log *zap.Logger

	nodes      map[int64]*Node
	meshes     map[int64]*Mesh
	materials  map[int64]*Material
	textures   map[int64]*Texture
	stacks     map[int64]*AnimStack
	layers     map[int64]*AnimLayer
	curveNodes map[int64]*AnimCurveNode
	curves     map[int64]*AnimCurve
}

// FromFile builds a scene from a parsed FBX document.
func FromFile(f *fbx.File) (*Scene, error) {
	objects := fbx.Child(f.Root(), "Objects")
	if objects == nil {
		return nil, errors.New("No Objects section")
	}

	creator, _ := fbx.PropString(fbx.Child(f.Root(), "Creator"), 0)
	l := &loader{
		s:          newScene(Metadata{Version: f.Version, Binary: f.Binary, Creator: creator}),
		log:        logger.Named("scene"),
		nodes:      make(map[int64]*Node),
		meshes:     make(map[int64]*Mesh),
		materials:  make(map[int64]*Material),
		textures:   make(map[int64]*Texture),
		stacks:     make(map[int64]*AnimStack),
		layers:     make(map[int64]*AnimLayer),
		curveNodes: make(map[int64]*AnimCurveNode),
		curves:     make(map[int64]*AnimCurve),
	}

	for _, obj := range objects.Nodes {
		if err := l.loadObject(obj); err != nil {
			l.s.Free()
			return nil, err
		}
	}
	l.connect(fbx.Child(f.Root(), "Connections"))
	l.finish()
	return l.s, nil
}

func objectHeader(n *fbx.Node) (id int64, name string, class string, err error) {
	id, ok := fbx.PropInt64(n, 0)
	if !ok {
		return 0, "", "", errors.Errorf("%s object without id", n.Name)
	}
	raw, _ := fbx.PropString(n, 1)
	name, _ = fbx.SplitName(raw)
	class, _ = fbx.PropString(n, 2)
	return id, name, class, nil
}

func (l *loader) loadObject(obj *fbx.Node) error {
	switch obj.Name {
	case "Model", "Geometry", "Material", "Texture",
		"AnimationStack", "AnimationLayer", "AnimationCurveNode", "AnimationCurve":
	default:
		return nil
	}

	id, name, class, err := objectHeader(obj)
	if err != nil {
		return err
	}
	elem := func(typedId int) Element {
		return Element{TypedID: uint32(typedId), ElementID: id, Name: name}
	}
	if id > l.s.lastElementId {
		l.s.lastElementId = id
	}

	switch obj.Name {
	case "Model":
		n := &Node{Element: elem(len(l.s.Nodes)), scene: l.s}
		loadTransform(n, obj)
		l.s.Nodes = append(l.s.Nodes, n)
		l.nodes[id] = n
	case "Geometry":
		if class != "Mesh" && fbx.Child(obj, "Vertices") == nil {
			return nil
		}
		m := &Mesh{Element: elem(len(l.s.Meshes))}
		if err := l.loadMesh(m, obj); err != nil {
			return errors.Wrapf(err, "Geometry %q", name)
		}
		l.s.Meshes = append(l.s.Meshes, m)
		l.meshes[id] = m
	case "Material":
		m := &Material{Element: elem(len(l.s.Materials))}
		loadMaterial(m, obj)
		l.s.Materials = append(l.s.Materials, m)
		l.materials[id] = m
	case "Texture":
		t := &Texture{Element: elem(len(l.s.Textures))}
		t.Filename, _ = fbx.PropString(fbx.Child(obj, "FileName"), 0)
		t.RelativeFilename, _ = fbx.PropString(fbx.Child(obj, "RelativeFilename"), 0)
		l.s.Textures = append(l.s.Textures, t)
		l.textures[id] = t
	case "AnimationStack":
		a := &AnimStack{Element: elem(len(l.s.AnimStacks)), scene: l.s}
		begin, okBegin := findKTime(obj, "LocalStart", "ReferenceStart")
		end, okEnd := findKTime(obj, "LocalStop", "ReferenceStop")
		if okBegin && okEnd {
			a.TimeBegin, a.TimeEnd, a.hasRange = begin, end, true
		}
		l.s.AnimStacks = append(l.s.AnimStacks, a)
		l.stacks[id] = a
	case "AnimationLayer":
		layer := &AnimLayer{Element: elem(len(l.s.AnimLayers))}
		l.s.AnimLayers = append(l.s.AnimLayers, layer)
		l.layers[id] = layer
	case "AnimationCurveNode":
		cn := &AnimCurveNode{Element: elem(len(l.s.AnimCurveNodes))}
		for axis, channel := range curveChannels {
			if v, ok := fbx.FindPFloat(obj, channel); ok {
				cn.Default[axis] = v
			}
		}
		l.s.AnimCurveNodes = append(l.s.AnimCurveNodes, cn)
		l.curveNodes[id] = cn
	case "AnimationCurve":
		c := &AnimCurve{Element: elem(len(l.s.AnimCurves))}
		times := fbx.PropInt64s(fbx.Child(obj, "KeyTime"), 0)
		values := fbx.PropFloat64s(fbx.Child(obj, "KeyValueFloat"), 0)
		if len(times) != len(values) {
			return errors.Errorf("AnimationCurve %d: %d key times and %d values", id, len(times), len(values))
		}
		c.Keys = make([]Keyframe, len(times))
		for i := range times {
			c.Keys[i] = Keyframe{Time: KTimeToSeconds(times[i]), Value: values[i]}
		}
		l.s.AnimCurves = append(l.s.AnimCurves, c)
		l.curves[id] = c
	}
	return nil
}

func findKTime(obj *fbx.Node, names ...string) (float64, bool) {
	for _, name := range names {
		vals, ok := fbx.FindP(obj, name)
		if !ok || len(vals) == 0 {
			continue
		}
		switch v := vals[0].(type) {
		case int64:
			return KTimeToSeconds(v), true
		}
		if f, ok := attrib.Float(vals[0]); ok {
			return KTimeToSeconds(int64(f)), true
		}
	}
	return 0, false
}

func findVec3(obj *fbx.Node, name string, def mgl64.Vec3) mgl64.Vec3 {
	if v, ok := fbx.FindPVec3(obj, name); ok {
		return v
	}
	return def
}

func loadTransform(n *Node, model *fbx.Node) {
	if v, ok := fbx.FindPFloat(model, "RotationOrder"); ok {
		n.RotationOrder = utils.RotationOrder(v)
	}
	pre, hasPre := fbx.FindPVec3(model, "PreRotation")
	post, hasPost := fbx.FindPVec3(model, "PostRotation")
	if hasPre || hasPost {
		n.hasPrePost = true
		n.PreRotation = utils.EulerToQuat(pre, utils.EulerXYZ)
		n.PostRotation = utils.EulerToQuat(post, utils.EulerXYZ)
	}

	n.LocalTransform = Transform{
		Translation: findVec3(model, PropTranslation, mgl64.Vec3{}),
		Rotation:    n.rotationFromEuler(findVec3(model, PropRotation, mgl64.Vec3{})),
		Scale:       findVec3(model, PropScaling, mgl64.Vec3{1, 1, 1}),
	}
}

func loadMaterial(m *Material, obj *fbx.Node) {
	m.ShadingModel, _ = fbx.PropString(fbx.Child(obj, "ShadingModel"), 0)
	props := fbx.Child(obj, "Properties70")
	if props == nil {
		props = fbx.Child(obj, "Properties60")
	}
	for _, p := range fbx.Children(props, "P") {
		name, _ := fbx.PropString(p, 0)
		if v, ok := fbx.FindPVec3(obj, name); ok {
			m.Properties = append(m.Properties, ColorProperty{Name: name, Value: v})
		}
	}
	m.updateMaps()
}

func (l *loader) loadMesh(m *Mesh, geom *fbx.Node) error {
	vertices := fbx.PropFloat64s(fbx.Child(geom, "Vertices"), 0)
	positions, err := attrib.Unflatten3(vertices)
	if err != nil {
		return err
	}
	m.VertexPosition.Exists = true
	m.VertexPosition.Values = positions

	polygonIndex := fbx.PropInt64s(fbx.Child(geom, "PolygonVertexIndex"), 0)
	m.VertexPosition.Indices = make([]uint32, len(polygonIndex))
	begin := 0
	for i, raw := range polygonIndex {
		idx := raw
		last := raw < 0
		if last {
			idx = ^raw
		}
		if idx >= int64(len(positions)) {
			return errors.Errorf("Vertex index %d out of range (%d vertices)", idx, len(positions))
		}
		m.VertexPosition.Indices[i] = uint32(idx)
		if last || i == len(polygonIndex)-1 {
			m.Faces = append(m.Faces, Face{IndexBegin: uint32(begin), NumIndices: uint32(i + 1 - begin)})
			begin = i + 1
		}
	}
	m.NumIndices = len(polygonIndex)

	if layer := fbx.Child(geom, "LayerElementNormal"); layer != nil {
		values, err := attrib.Unflatten3(fbx.PropFloat64s(fbx.Child(layer, "Normals"), 0))
		if err == nil {
			var indices []uint32
			indices, err = l.mapLayer(m, layer, fbx.Child(layer, "NormalsIndex"), len(values))
			if err == nil {
				m.VertexNormal = Vec3Attribute{Exists: true, Values: values, Indices: indices}
			}
		}
		if err != nil {
			l.log.Debug("Dropping normals", zap.String("mesh", m.Name), zap.Error(err))
		}
	}

	if layer := fbx.Child(geom, "LayerElementUV"); layer != nil {
		values, err := attrib.Unflatten2(fbx.PropFloat64s(fbx.Child(layer, "UV"), 0))
		if err == nil {
			var indices []uint32
			indices, err = l.mapLayer(m, layer, fbx.Child(layer, "UVIndex"), len(values))
			if err == nil {
				m.VertexUV = Vec2Attribute{Exists: true, Values: values, Indices: indices}
			}
		}
		if err != nil {
			l.log.Debug("Dropping uvs", zap.String("mesh", m.Name), zap.Error(err))
		}
	}
	return nil
}

// mapLayer resolves the per corner value index of a layer element.
func (l *loader) mapLayer(m *Mesh, layer *fbx.Node, indexNode *fbx.Node, numValues int) ([]uint32, error) {
	mapping, _ := fbx.PropString(fbx.Child(layer, "MappingInformationType"), 0)
	reference, _ := fbx.PropString(fbx.Child(layer, "ReferenceInformationType"), 0)

	base := make([]int64, m.NumIndices)
	switch mapping {
	case "ByVertice", "ByVertex":
		for i := range base {
			base[i] = int64(m.VertexPosition.Indices[i])
		}
	case "ByPolygonVertex":
		for i := range base {
			base[i] = int64(i)
		}
	case "ByPolygon":
		for fi, f := range m.Faces {
			for i := f.IndexBegin; i < f.IndexBegin+f.NumIndices; i++ {
				base[i] = int64(fi)
			}
		}
	case "AllSame":
	default:
		return nil, errors.Errorf("Unknown mapping %q", mapping)
	}

	switch reference {
	case "Direct":
	case "IndexToDirect", "Index":
		index := fbx.PropInt64s(indexNode, 0)
		for i, b := range base {
			if b < 0 || b >= int64(len(index)) {
				return nil, errors.Errorf("Index %d out of range (%d indices)", b, len(index))
			}
			base[i] = index[b]
		}
	default:
		return nil, errors.Errorf("Unknown reference %q", reference)
	}

	out := make([]uint32, len(base))
	for i, b := range base {
		if b < 0 || b >= int64(numValues) {
			return nil, errors.Errorf("Value index %d out of range (%d values)", b, numValues)
		}
		out[i] = uint32(b)
	}
	return out, nil
}

func (l *loader) connect(conns *fbx.Node) {
	for _, c := range fbx.Children(conns, "C") {
		kind, _ := fbx.PropString(c, 0)
		child, _ := fbx.PropInt64(c, 1)
		parent, _ := fbx.PropInt64(c, 2)
		prop, _ := fbx.PropString(c, 3)

		switch kind {
		case "OO":
			l.connectOO(child, parent)
		case "OP":
			l.connectOP(child, parent, prop)
		}
	}
}

func (l *loader) connectOO(child, parent int64) {
	if n, ok := l.nodes[child]; ok {
		if parent == 0 {
			n.SetParent(l.s.Root())
		} else if p, ok := l.nodes[parent]; ok {
			n.SetParent(p)
		}
		return
	}
	if m, ok := l.meshes[child]; ok {
		if n, ok := l.nodes[parent]; ok {
			n.SetMesh(m)
		}
		return
	}
	if mat, ok := l.materials[child]; ok {
		if n, ok := l.nodes[parent]; ok {
			n.AddMaterial(mat)
		}
		return
	}
	if layer, ok := l.layers[child]; ok {
		if a, ok := l.stacks[parent]; ok {
			a.Layers = append(a.Layers, layer)
		}
		return
	}
	if cn, ok := l.curveNodes[child]; ok {
		if layer, ok := l.layers[parent]; ok {
			layer.CurveNodes = append(layer.CurveNodes, cn)
		}
	}
}

func (l *loader) connectOP(child, parent int64, prop string) {
	if t, ok := l.textures[child]; ok {
		if m, ok := l.materials[parent]; ok {
			m.SetTexture(prop, t)
		}
		return
	}
	if cn, ok := l.curveNodes[child]; ok {
		if n, ok := l.nodes[parent]; ok {
			if _, animatable := curveNodeNames[prop]; animatable {
				cn.Target = n
				cn.Property = prop
			}
		}
		return
	}
	if c, ok := l.curves[child]; ok {
		if cn, ok := l.curveNodes[parent]; ok {
			for axis, channel := range curveChannels {
				if channel == prop {
					cn.Curves[axis] = c
				}
			}
		}
	}
}

func (l *loader) finish() {
	for _, n := range l.s.Nodes {
		if n.Parent == nil && !n.IsRoot() {
			n.SetParent(l.s.Root())
		}
		if n.Mesh != nil {
			for _, mat := range n.Materials {
				n.Mesh.AddMaterial(mat)
			}
		}
	}

	for _, a := range l.s.AnimStacks {
		if a.hasRange {
			continue
		}
		for _, cn := range a.curveNodes() {
			if b, e, ok := cn.timeRange(); ok {
				a.extendTimeRange(b, e)
			}
		}
	}
}
