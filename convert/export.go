package convert

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/fbxdoc/document"
	"github.com/mogaika/fbxdoc/logger"
	"github.com/mogaika/fbxdoc/scene"
	"github.com/mogaika/fbxdoc/utils"
)

// Export builds a scene from doc. The returned scene must be freed by the
// caller.
func Export(doc *document.Document, opts ExportOptions) (*scene.Scene, error) {
	s, err := scene.New(scene.CreateOptions{Version: opts.version(), Creator: opts.Creator})
	if err != nil {
		return nil, errors.Wrap(ErrSceneCreationFailed, err.Error())
	}

	b := &graphBuilder{
		doc:       doc,
		s:         s,
		log:       logger.Named("export"),
		nodes:     make(map[uint32]*scene.Node),
		meshes:    make(map[uint32]*scene.Mesh),
		materials: make(map[uint32]*scene.Material),
	}
	b.createElements()
	b.link()
	b.createAnimations()
	return s, nil
}

// graphBuilder creates every element first and resolves id references in
// a second pass, since ids carry no ordering.
type graphBuilder struct {
	doc *document.Document
	s   *scene.Scene
	log *zap.Logger

	nodes     map[uint32]*scene.Node
	meshes    map[uint32]*scene.Mesh
	materials map[uint32]*scene.Material
}

func (b *graphBuilder) unresolved(kind string, from, to uint32) {
	b.log.Debug("Dropping link",
		zap.String("kind", kind), zap.Uint32("from", from),
		zap.Error(errors.Wrapf(ErrUnresolvedReference, "id %d", to)))
}

func (b *graphBuilder) createElements() {
	for _, dn := range b.doc.Nodes {
		n := b.s.CreateNode(dn.Name)
		n.SetTranslation(dn.Translation)
		n.SetRotation(utils.NormalizeQuatXYZW(dn.Rotation))
		n.SetScale(dn.Scale)
		b.nodes[dn.ID] = n
	}

	for _, dm := range b.doc.Meshes {
		m := b.s.CreateMesh(dm.Name)
		if len(dm.Positions) != 0 {
			m.SetVertices(dm.Positions)
		}
		if len(dm.Indices) != 0 {
			m.SetTriangles(dm.Indices)
		}
		if dm.Normals != nil {
			m.SetNormals(dm.Normals)
		}
		if dm.Texcoords != nil {
			m.SetUVs(dm.Texcoords)
		}
		b.meshes[dm.ID] = m
	}

	for _, dmat := range b.doc.Materials {
		mat := b.s.CreateMaterial(dmat.Name)
		// specular and emissive are not written
		if dmat.DiffuseColor != nil {
			mat.SetVec3("DiffuseColor", *dmat.DiffuseColor)
		}
		b.materials[dmat.ID] = mat
	}

	for _, dt := range b.doc.Textures {
		t := b.s.CreateTexture(dt.Name)
		if dt.FilePath != nil {
			t.SetFilename(*dt.FilePath)
		}
	}
}

// isAncestor reports whether a is n or one of its parents.
func isAncestor(a, n *scene.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == a {
			return true
		}
	}
	return false
}

func (b *graphBuilder) link() {
	for _, dn := range b.doc.Nodes {
		n := b.nodes[dn.ID]

		if dn.ParentID != nil {
			parent, ok := b.nodes[*dn.ParentID]
			switch {
			case !ok:
				b.unresolved("parent", dn.ID, *dn.ParentID)
			case isAncestor(n, parent):
				b.log.Debug("Dropping cyclic parent link", zap.Uint32("node", dn.ID), zap.Uint32("parent", *dn.ParentID))
			default:
				n.SetParent(parent)
			}
		}

		if dn.MeshID != nil {
			if m, ok := b.meshes[*dn.MeshID]; ok {
				n.SetMesh(m)
			} else {
				b.unresolved("mesh", dn.ID, *dn.MeshID)
			}
		}
	}

	for _, dm := range b.doc.Meshes {
		m := b.meshes[dm.ID]
		for _, id := range dm.MaterialIDs {
			if mat, ok := b.materials[id]; ok {
				m.AddMaterial(mat)
			} else {
				b.unresolved("material", dm.ID, id)
			}
		}
	}
}

type channelKeys struct {
	times  []float64
	values []mgl64.Vec3
}

func (c *channelKeys) add(t float64, v mgl64.Vec3) {
	c.times = append(c.times, t)
	c.values = append(c.values, v)
}

type nodeChannels map[string]*channelKeys

func (nc nodeChannels) add(prop string, t float64, v mgl64.Vec3) {
	c, ok := nc[prop]
	if !ok {
		c = &channelKeys{}
		nc[prop] = c
	}
	c.add(t, v)
}

// createAnimations turns keyframes into one curve node per node and
// channel. Rotations are stored as euler angles.
func (b *graphBuilder) createAnimations() {
	for _, anim := range b.doc.Animations {
		if len(anim.Keyframes) == 0 {
			continue
		}

		keyframes := append([]document.Keyframe{}, anim.Keyframes...)
		sort.SliceStable(keyframes, func(i, j int) bool { return keyframes[i].Time < keyframes[j].Time })

		byNode := make(map[uint32]nodeChannels)
		for _, k := range keyframes {
			nodeId := k.NodeID
			if nodeId == nil {
				nodeId = anim.NodeID
			}
			if nodeId == nil {
				b.log.Debug("Dropping keyframe without node", zap.String("animation", anim.Name))
				continue
			}
			if _, ok := b.nodes[*nodeId]; !ok {
				b.unresolved("keyframe", anim.ID, *nodeId)
				continue
			}
			nc, ok := byNode[*nodeId]
			if !ok {
				nc = make(nodeChannels)
				byNode[*nodeId] = nc
			}
			if k.Translation != nil {
				nc.add(scene.PropTranslation, k.Time, *k.Translation)
			}
			if k.Rotation != nil {
				nc.add(scene.PropRotation, k.Time, utils.QuatToEuler(utils.NormalizeQuatXYZW(*k.Rotation)))
			}
			if k.Scale != nil {
				nc.add(scene.PropScaling, k.Time, *k.Scale)
			}
		}

		ids := make([]uint32, 0, len(byNode))
		for id := range byNode {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		stack := b.s.CreateAnimStack(anim.Name)
		for _, id := range ids {
			for _, prop := range []string{scene.PropTranslation, scene.PropRotation, scene.PropScaling} {
				c, ok := byNode[id][prop]
				if !ok {
					continue
				}
				if err := stack.AddCurve(b.nodes[id], prop, c.times, c.values); err != nil {
					b.log.Debug("Dropping curve", zap.String("animation", anim.Name), zap.Error(err))
				}
			}
		}
	}
}
