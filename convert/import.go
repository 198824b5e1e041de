package convert

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/mogaika/fbxdoc/document"
	"github.com/mogaika/fbxdoc/fbx"
	"github.com/mogaika/fbxdoc/logger"
	"github.com/mogaika/fbxdoc/scene"
	"github.com/mogaika/fbxdoc/utils"
)

type Importer struct {
	ResampleRate float64
	log          *zap.Logger
}

func NewImporter(resampleRate float64) *Importer {
	if resampleRate <= 0 {
		resampleRate = scene.DefaultResampleRate
	}
	return &Importer{ResampleRate: resampleRate, log: logger.Named("import")}
}

// Import converts s with the default resample rate.
func Import(s *scene.Scene) *document.Document {
	return NewImporter(scene.DefaultResampleRate).Import(s)
}

// Import converts every element of s. Ids are the scene typed ids.
func (im *Importer) Import(s *scene.Scene) *document.Document {
	doc := document.New()
	major, minor := fbx.MajorMinor(s.Metadata.Version)
	doc.Version = fmt.Sprintf("FBX %d.%d", major, minor)

	for _, n := range s.Nodes {
		doc.Nodes = append(doc.Nodes, importNode(n))
	}
	for _, m := range s.Meshes {
		doc.Meshes = append(doc.Meshes, importMesh(m))
	}
	for _, m := range s.Materials {
		doc.Materials = append(doc.Materials, importMaterial(m))
	}
	for _, t := range s.Textures {
		doc.Textures = append(doc.Textures, importTexture(t))
	}
	for _, stack := range s.AnimStacks {
		baked, err := scene.Bake(stack, scene.BakeOptions{ResampleRate: im.ResampleRate})
		if err != nil {
			im.log.Warn("Skipping animation", zap.String("stack", stack.Name), zap.Error(err))
			continue
		}
		doc.Animations = append(doc.Animations, importAnimation(stack, baked))
	}

	im.log.Debug("Imported", zap.Stringer("document", doc))
	return doc
}

func importNode(n *scene.Node) document.Node {
	dn := document.NewNode(n.TypedID, n.Name)
	t := n.LocalTransform
	dn.Translation = t.Translation
	dn.Rotation = utils.QuatToXYZW(t.Rotation)
	dn.Scale = t.Scale

	if n.Parent != nil {
		dn.ParentID = document.Uint32(n.Parent.TypedID)
	}
	if len(n.Children) != 0 {
		dn.Children = make([]uint32, len(n.Children))
		for i, c := range n.Children {
			dn.Children[i] = c.TypedID
		}
	}
	if n.Mesh != nil {
		dn.MeshID = document.Uint32(n.Mesh.TypedID)
	}
	return dn
}

func importMesh(m *scene.Mesh) document.Mesh {
	dm := document.Mesh{
		ID:          m.TypedID,
		Name:        m.Name,
		Indices:     []uint32{},
		MaterialIDs: []uint32{},
	}

	if m.VertexPosition.Exists && len(m.VertexPosition.Values) != 0 {
		dm.Positions = append([]mgl64.Vec3{}, m.VertexPosition.Values...)
	}
	if m.VertexNormal.Exists && len(m.VertexNormal.Values) != 0 {
		dm.Normals = append([]mgl64.Vec3{}, m.VertexNormal.Values...)
	}
	if m.VertexUV.Exists && len(m.VertexUV.Values) != 0 {
		dm.Texcoords = append([]mgl64.Vec2{}, m.VertexUV.Values...)
	}

	for _, corner := range m.Triangulate() {
		if int(corner) < len(m.VertexPosition.Indices) {
			dm.Indices = append(dm.Indices, m.VertexPosition.Indices[corner])
		}
	}
	for _, mat := range m.Materials {
		dm.MaterialIDs = append(dm.MaterialIDs, mat.TypedID)
	}
	return dm
}

// channel prefers the PBR value and falls back to the legacy one.
func channel(pbr, legacy scene.MaterialMap) *mgl64.Vec3 {
	switch {
	case pbr.HasValue:
		v := pbr.Value
		return &v
	case legacy.HasValue:
		v := legacy.Value
		return &v
	}
	return nil
}

func importMaterial(m *scene.Material) document.Material {
	return document.Material{
		ID:            m.TypedID,
		Name:          m.Name,
		DiffuseColor:  channel(m.PBR.BaseColor, m.Legacy.DiffuseColor),
		SpecularColor: channel(m.PBR.SpecularColor, m.Legacy.SpecularColor),
		EmissiveColor: channel(m.PBR.EmissionColor, m.Legacy.EmissiveColor),
	}
}

func importTexture(t *scene.Texture) document.Texture {
	dt := document.Texture{ID: t.TypedID, Name: t.Name}
	if t.Filename != "" {
		dt.FilePath = document.String(t.Filename)
	} else if t.RelativeFilename != "" {
		dt.FilePath = document.String(t.RelativeFilename)
	}
	return dt
}

// importAnimation emits one keyframe per channel per sample.
func importAnimation(stack *scene.AnimStack, baked *scene.BakedAnim) document.Animation {
	anim := document.Animation{
		ID:        stack.TypedID,
		Name:      stack.Name,
		Keyframes: []document.Keyframe{},
	}
	if len(baked.Nodes) == 1 {
		anim.NodeID = document.Uint32(baked.Nodes[0].TypedID)
	}

	for _, bn := range baked.Nodes {
		for _, k := range bn.TranslationKeys {
			v := k.Value
			anim.Keyframes = append(anim.Keyframes, document.Keyframe{
				Time: k.Time, NodeID: document.Uint32(bn.TypedID), Translation: &v,
			})
		}
		for _, k := range bn.RotationKeys {
			v := utils.QuatToXYZW(k.Value)
			anim.Keyframes = append(anim.Keyframes, document.Keyframe{
				Time: k.Time, NodeID: document.Uint32(bn.TypedID), Rotation: &v,
			})
		}
		for _, k := range bn.ScaleKeys {
			v := k.Value
			anim.Keyframes = append(anim.Keyframes, document.Keyframe{
				Time: k.Time, NodeID: document.Uint32(bn.TypedID), Scale: &v,
			})
		}
	}
	return anim
}
