package scene

import (
	"io"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mogaika/fbx/builders/bfbx73"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/fbxdoc/attrib"
	"github.com/mogaika/fbxdoc/fbx"
	"github.com/mogaika/fbxdoc/logger"
	"github.com/mogaika/fbxdoc/utils"
)

type Format string

const (
	FormatBinary Format = "binary"
	FormatASCII  Format = "ascii"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatBinary, FormatASCII:
		return Format(s), nil
	case "":
		return FormatBinary, nil
	}
	return "", errors.Errorf("Unknown format %q", s)
}

type SaveOptions struct {
	Format  Format
	Version uint32
	// Filename is recorded in the document info
	Filename string
}

func (s *Scene) Save(path string, opts SaveOptions) error {
	if opts.Filename == "" {
		opts.Filename = path
	}
	f, binary, err := s.build(opts)
	if err != nil {
		return err
	}
	return fbx.WriteFile(path, f, binary)
}

func (s *Scene) Write(w io.Writer, opts SaveOptions) error {
	f, binary, err := s.build(opts)
	if err != nil {
		return err
	}
	return fbx.Write(w, f, binary)
}

func (s *Scene) build(opts SaveOptions) (*fbx.File, bool, error) {
	if s.freed {
		return nil, false, ErrFreed
	}
	format := opts.Format
	if format == "" {
		format = FormatBinary
	}
	if format != FormatBinary && format != FormatASCII {
		return nil, false, errors.Errorf("Unknown format %q", format)
	}
	if opts.Version == 0 {
		opts.Version = s.Metadata.Version
	}

	b, err := fbx.NewBuilder(fbx.BuilderOptions{
		Version:  opts.Version,
		Creator:  s.Metadata.Creator,
		Filename: opts.Filename,
	})
	if err != nil {
		return nil, false, err
	}

	e := &exporter{
		s:         s,
		b:         b,
		log:       logger.Named("scene"),
		nodes:     make(map[*Node]int64),
		meshes:    make(map[*Mesh]int64),
		materials: make(map[*Material]int64),
		textures:  make(map[*Texture]int64),
	}
	e.exportTextures()
	e.exportMaterials()
	e.exportMeshes()
	e.exportNodes()
	e.exportAnimations()
	return b.File(), format == FormatBinary, nil
}

type exporter struct {
	s   *Scene
	b   *fbx.Builder
	log *zap.Logger

	nodes     map[*Node]int64
	meshes    map[*Mesh]int64
	materials map[*Material]int64
	textures  map[*Texture]int64
}

func pVec3(name, typ, label string, v mgl64.Vec3) *fbx.Node {
	return bfbx73.P(name, typ, label, "A", v[0], v[1], v[2])
}

func (e *exporter) exportNodes() {
	for _, n := range e.s.Nodes[1:] {
		e.nodes[n] = e.b.GenerateId()
	}

	for _, n := range e.s.Nodes[1:] {
		id := e.nodes[n]
		class := "Null"
		if n.Mesh != nil {
			class = "Mesh"
		}

		t := n.LocalTransform
		model := bfbx73.Model(id, fbx.JoinName(n.Name, "Model"), class).AddNodes(
			bfbx73.Version(232),
			bfbx73.Properties70().AddNodes(
				bfbx73.P("RotationOrder", "enum", "", "", int32(utils.EulerXYZ)),
				bfbx73.P("InheritType", "enum", "", "", int32(1)),
				bfbx73.P("DefaultAttributeIndex", "int", "Integer", "", int32(0)),
				pVec3(PropTranslation, PropTranslation, "", t.Translation),
				pVec3(PropRotation, PropRotation, "", utils.QuatToEuler(t.Rotation)),
				pVec3(PropScaling, PropScaling, "", t.Scale),
			),
			bfbx73.Shading(true),
			bfbx73.Culling("CullingOff"),
		)
		e.b.AddObjects(model)

		if n.Mesh == nil {
			attribute := bfbx73.NodeAttribute(e.b.GenerateId(), fbx.JoinName(n.Name, "NodeAttribute"), "Null").AddNodes(
				bfbx73.TypeFlags("Null"),
			)
			e.b.AddObjects(attribute)
			e.b.AddConnections(bfbx73.C("OO", attribute.Properties[0].(int64), id))
		}

		parentId := int64(0)
		if n.Parent != nil && !n.Parent.IsRoot() {
			if pid, ok := e.nodes[n.Parent]; ok {
				parentId = pid
			}
		}
		e.b.AddConnections(bfbx73.C("OO", id, parentId))

		if n.Mesh != nil {
			if meshId, ok := e.meshes[n.Mesh]; ok {
				e.b.AddConnections(bfbx73.C("OO", meshId, id))
			}
		}

		for _, mat := range e.nodeMaterials(n) {
			e.b.AddConnections(bfbx73.C("OO", e.materials[mat], id))
		}
	}
}

// nodeMaterials merges the node bindings with those of its mesh.
func (e *exporter) nodeMaterials(n *Node) []*Material {
	var out []*Material
	seen := make(map[*Material]bool)
	add := func(list []*Material) {
		for _, m := range list {
			if _, ok := e.materials[m]; ok && !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	if n.Mesh != nil {
		add(n.Mesh.Materials)
	}
	add(n.Materials)
	return out
}

// validFaces keeps faces whose corners reference existing vertices.
func (e *exporter) validFaces(m *Mesh) []Face {
	faces := make([]Face, 0, len(m.Faces))
	numVertices := uint32(m.NumVertices())
	for _, f := range m.Faces {
		valid := f.NumIndices >= 3 && int(f.IndexBegin+f.NumIndices) <= len(m.VertexPosition.Indices)
		for i := f.IndexBegin; valid && i < f.IndexBegin+f.NumIndices; i++ {
			valid = m.VertexPosition.Indices[i] < numVertices
		}
		if valid {
			faces = append(faces, f)
		} else {
			e.log.Debug("Skipping face with invalid vertex index",
				zap.String("mesh", m.Name), zap.Uint32("begin", f.IndexBegin))
		}
	}
	return faces
}

// attributeIndices collects the value index of every kept corner, or
// reports false if one is out of range.
func attributeIndices(indices []uint32, numValues int, faces []Face) ([]int32, bool) {
	out := make([]int32, 0)
	for _, f := range faces {
		for i := f.IndexBegin; i < f.IndexBegin+f.NumIndices; i++ {
			if int(i) >= len(indices) || int(indices[i]) >= numValues {
				return nil, false
			}
			out = append(out, int32(indices[i]))
		}
	}
	return out, true
}

func (e *exporter) layerElement(m *Mesh, faces []Face, positions []int32,
	kind string, valuesName, indexName string, values []float64, stride int, indices []uint32) (*fbx.Node, bool) {

	numValues := len(values) / stride
	corner, ok := attributeIndices(indices, numValues, faces)
	if !ok {
		e.log.Debug("Skipping attribute with invalid index", zap.String("mesh", m.Name), zap.String("layer", kind))
		return nil, false
	}

	byVertex := numValues == m.NumVertices()
	for i := range corner {
		if !byVertex {
			break
		}
		byVertex = corner[i] == positions[i]
	}

	layer := fbx.NewNode(kind, int32(0)).AddNodes(
		bfbx73.Version(101),
		bfbx73.Name(""),
	)
	if byVertex {
		layer.AddNodes(
			bfbx73.MappingInformationType("ByVertice"),
			bfbx73.ReferenceInformationType("Direct"),
			fbx.NewNode(valuesName, values),
		)
	} else {
		layer.AddNodes(
			bfbx73.MappingInformationType("ByPolygonVertex"),
			bfbx73.ReferenceInformationType("IndexToDirect"),
			fbx.NewNode(valuesName, values),
			fbx.NewNode(indexName, corner),
		)
	}
	return layer, true
}

func (e *exporter) exportMeshes() {
	for _, m := range e.s.Meshes {
		id := e.b.GenerateId()
		e.meshes[m] = id

		faces := e.validFaces(m)
		positions, _ := attributeIndices(m.VertexPosition.Indices, m.NumVertices(), faces)
		polygonIndex := make([]int32, 0, len(positions))
		for _, f := range faces {
			for i := f.IndexBegin; i < f.IndexBegin+f.NumIndices; i++ {
				idx := int32(m.VertexPosition.Indices[i])
				if i == f.IndexBegin+f.NumIndices-1 {
					idx = ^idx
				}
				polygonIndex = append(polygonIndex, idx)
			}
		}

		geometryLayer := bfbx73.Layer(0).AddNodes(
			bfbx73.Version(100),
		)
		geometry := bfbx73.Geometry(id, fbx.JoinName(m.Name, "Geometry"), "Mesh").AddNodes(
			bfbx73.Properties70().AddNodes(
				bfbx73.P("Color", "ColorRGB", "Color", "", float64(1), float64(1), float64(1)),
			),
			bfbx73.GeometryVersion(124),
			bfbx73.Vertices(attrib.Flatten3(m.VertexPosition.Values)),
			bfbx73.PolygonVertexIndex(polygonIndex),
		)

		if m.VertexNormal.Exists {
			if layer, ok := e.layerElement(m, faces, positions, "LayerElementNormal", "Normals", "NormalsIndex",
				attrib.Flatten3(m.VertexNormal.Values), 3, m.VertexNormal.Indices); ok {
				geometry.AddNode(layer)
				geometryLayer.AddNode(bfbx73.LayerElement().AddNodes(
					bfbx73.Type("LayerElementNormal"),
					bfbx73.TypedIndex(0),
				))
			}
		}

		if m.VertexUV.Exists {
			if layer, ok := e.layerElement(m, faces, positions, "LayerElementUV", "UV", "UVIndex",
				attrib.Flatten2(m.VertexUV.Values), 2, m.VertexUV.Indices); ok {
				geometry.AddNode(layer)
				geometryLayer.AddNode(bfbx73.LayerElement().AddNodes(
					bfbx73.Type("LayerElementUV"),
					bfbx73.TypedIndex(0),
				))
			}
		}

		if len(m.Materials) != 0 {
			geometry.AddNode(bfbx73.LayerElementMaterial(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("AllSame"),
				bfbx73.ReferenceInformationType("IndexToDirect"),
				bfbx73.Materials([]int32{0}),
			))
			geometryLayer.AddNode(bfbx73.LayerElement().AddNodes(
				bfbx73.Type("LayerElementMaterial"),
				bfbx73.TypedIndex(0),
			))
		}

		geometry.AddNode(geometryLayer)
		e.b.AddObjects(geometry)
	}
}

func (e *exporter) exportMaterials() {
	for _, m := range e.s.Materials {
		id := e.b.GenerateId()
		e.materials[m] = id

		shading := m.ShadingModel
		if shading == "" {
			shading = "lambert"
		}
		props := bfbx73.Properties70()
		for _, p := range m.Properties {
			props.AddNode(pVec3(p.Name, "Color", "", p.Value))
		}
		e.b.AddObjects(bfbx73.Material(id, fbx.JoinName(m.Name, "Material"), "").AddNodes(
			bfbx73.Version(102),
			bfbx73.ShadingModel(shading),
			bfbx73.MultiLayer(0),
			props,
		))

		texProps := make([]string, 0, len(m.Textures))
		for prop := range m.Textures {
			texProps = append(texProps, prop)
		}
		sort.Strings(texProps)
		for _, prop := range texProps {
			if texId, ok := e.textures[m.Textures[prop]]; ok {
				e.b.AddConnections(bfbx73.C("OP", texId, id, prop))
			}
		}
	}
}

func (e *exporter) exportTextures() {
	for _, t := range e.s.Textures {
		id := e.b.GenerateId()
		e.textures[t] = id

		texture := fbx.NewNode("Texture", id, fbx.JoinName(t.Name, "Texture"), "").AddNodes(
			bfbx73.Type("TextureVideoClip"),
			bfbx73.Version(202),
			fbx.NewNode("TextureName", fbx.JoinName(t.Name, "Texture")),
			bfbx73.Properties70().AddNodes(
				bfbx73.P("UseMaterial", "bool", "", "", int32(1)),
			),
			fbx.NewNode("Media", fbx.JoinName(t.Name, "Video")),
			fbx.NewNode("FileName", t.Filename),
			fbx.NewNode("RelativeFilename", t.RelativeFilename),
		)
		e.b.AddObjects(texture)

		if t.Filename == "" && t.RelativeFilename == "" {
			continue
		}
		videoId := e.b.GenerateId()
		e.b.AddObjects(fbx.NewNode("Video", videoId, fbx.JoinName(t.Name, "Video"), "Clip").AddNodes(
			bfbx73.Type("Clip"),
			bfbx73.Properties70().AddNodes(
				bfbx73.P("Path", "KString", "XRefUrl", "", t.Filename),
			),
			fbx.NewNode("UseMipMap", int32(0)),
			fbx.NewNode("Filename", t.Filename),
			fbx.NewNode("RelativeFilename", t.RelativeFilename),
		))
		e.b.AddConnections(bfbx73.C("OO", videoId, id))
	}
}

func (e *exporter) exportAnimations() {
	for i, a := range e.s.AnimStacks {
		stackId := e.b.GenerateId()
		begin, end := SecondsToKTime(a.TimeBegin), SecondsToKTime(a.TimeEnd)
		e.b.AddObjects(fbx.NewNode("AnimationStack", stackId, fbx.JoinName(a.Name, "AnimStack"), "").AddNodes(
			bfbx73.Properties70().AddNodes(
				bfbx73.P("LocalStart", "KTime", "Time", "", begin),
				bfbx73.P("LocalStop", "KTime", "Time", "", end),
				bfbx73.P("ReferenceStart", "KTime", "Time", "", begin),
				bfbx73.P("ReferenceStop", "KTime", "Time", "", end),
			),
		))
		if i == 0 {
			e.b.SetActiveTake(a.Name)
		}

		for _, layer := range a.Layers {
			layerId := e.b.GenerateId()
			e.b.AddObjects(fbx.NewNode("AnimationLayer", layerId, fbx.JoinName(layer.Name, "AnimLayer"), ""))
			e.b.AddConnections(bfbx73.C("OO", layerId, stackId))

			for _, cn := range layer.CurveNodes {
				e.exportCurveNode(cn, layerId)
			}
		}
	}
}

func (e *exporter) exportCurveNode(cn *AnimCurveNode, layerId int64) {
	cnId := e.b.GenerateId()
	props := bfbx73.Properties70()
	for axis, channel := range curveChannels {
		props.AddNode(bfbx73.P(channel, "Number", "", "A", cn.Default[axis]))
	}
	e.b.AddObjects(fbx.NewNode("AnimationCurveNode", cnId, fbx.JoinName(cn.Name, "AnimCurveNode"), "").AddNodes(props))
	e.b.AddConnections(bfbx73.C("OO", cnId, layerId))
	if modelId, ok := e.nodes[cn.Target]; ok {
		e.b.AddConnections(bfbx73.C("OP", cnId, modelId, cn.Property))
	}

	for axis, c := range cn.Curves {
		if c == nil {
			continue
		}
		times := make([]int64, len(c.Keys))
		values := make([]float64, len(c.Keys))
		for i, k := range c.Keys {
			times[i] = SecondsToKTime(k.Time)
			values[i] = k.Value
		}
		curveId := e.b.GenerateId()
		e.b.AddObjects(fbx.NewNode("AnimationCurve", curveId, fbx.JoinName("", "AnimCurve"), "").AddNodes(
			fbx.NewNode("Default", cn.Default[axis]),
			fbx.NewNode("KeyVer", int32(4008)),
			fbx.NewNode("KeyTime", times),
			fbx.NewNode("KeyValueFloat", values),
		))
		e.b.AddConnections(bfbx73.C("OP", curveId, cnId, curveChannels[axis]))
	}
}
