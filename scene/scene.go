// Package scene is an in-memory FBX scene graph: nodes with local
// transforms, meshes, materials, textures and animation curves, loaded from
// and saved to FBX files through the fbx package.
package scene

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/mogaika/fbxdoc/fbx"
)

const DefaultVersion = 7400

var ErrFreed = errors.New("scene has been freed")

var live int64

// Live reports the number of scenes created or loaded and not yet freed.
func Live() int64 {
	return atomic.LoadInt64(&live)
}

// Element is embedded in every scene object. TypedID is the index within
// the list of the same kind, ElementID is the FBX object id.
type Element struct {
	TypedID   uint32
	ElementID int64
	Name      string
}

type Metadata struct {
	Version uint32
	Binary  bool
	Creator string
}

type Scene struct {
	Metadata Metadata

	// Nodes[0] is the root node.
	Nodes          []*Node
	Meshes         []*Mesh
	Materials      []*Material
	Textures       []*Texture
	AnimStacks     []*AnimStack
	AnimLayers     []*AnimLayer
	AnimCurveNodes []*AnimCurveNode
	AnimCurves     []*AnimCurve

	lastElementId int64
	freed         bool
}

type CreateOptions struct {
	Version uint32
	Creator string
}

// New creates an empty scene holding only the root node.
func New(opts CreateOptions) (*Scene, error) {
	if opts.Version == 0 {
		opts.Version = DefaultVersion
	}
	if !fbx.SupportedVersion(opts.Version) {
		return nil, errors.Errorf("Unsupported FBX version %d", opts.Version)
	}
	return newScene(Metadata{Version: opts.Version, Binary: true, Creator: opts.Creator}), nil
}

func newScene(meta Metadata) *Scene {
	s := &Scene{Metadata: meta}
	s.Nodes = append(s.Nodes, &Node{
		LocalTransform: IdentityTransform(),
		scene:          s,
	})
	atomic.AddInt64(&live, 1)
	return s
}

// Free releases the scene. Elements must not be used afterwards.
// Calling Free more than once is allowed.
func (s *Scene) Free() {
	if s == nil || s.freed {
		return
	}
	s.freed = true
	s.Nodes = nil
	s.Meshes = nil
	s.Materials = nil
	s.Textures = nil
	s.AnimStacks = nil
	s.AnimLayers = nil
	s.AnimCurveNodes = nil
	s.AnimCurves = nil
	atomic.AddInt64(&live, -1)
}

func (s *Scene) Freed() bool { return s.freed }

func (s *Scene) Root() *Node {
	if len(s.Nodes) == 0 {
		return nil
	}
	return s.Nodes[0]
}

func (s *Scene) generateId() int64 {
	s.lastElementId++
	return s.lastElementId
}

func (s *Scene) newElement(typedId int, name string) Element {
	return Element{TypedID: uint32(typedId), ElementID: s.generateId(), Name: name}
}

func (s *Scene) CreateNode(name string) *Node {
	n := &Node{
		Element:        s.newElement(len(s.Nodes), name),
		LocalTransform: IdentityTransform(),
		scene:          s,
	}
	s.Nodes = append(s.Nodes, n)
	n.SetParent(s.Root())
	return n
}

func (s *Scene) CreateMesh(name string) *Mesh {
	m := &Mesh{Element: s.newElement(len(s.Meshes), name)}
	s.Meshes = append(s.Meshes, m)
	return m
}

func (s *Scene) CreateMaterial(name string) *Material {
	m := &Material{Element: s.newElement(len(s.Materials), name)}
	s.Materials = append(s.Materials, m)
	return m
}

func (s *Scene) CreateTexture(name string) *Texture {
	t := &Texture{Element: s.newElement(len(s.Textures), name)}
	s.Textures = append(s.Textures, t)
	return t
}

func (s *Scene) CreateAnimStack(name string) *AnimStack {
	a := &AnimStack{Element: s.newElement(len(s.AnimStacks), name), scene: s}
	s.AnimStacks = append(s.AnimStacks, a)
	return a
}

func (s *Scene) createAnimLayer(name string) *AnimLayer {
	l := &AnimLayer{Element: s.newElement(len(s.AnimLayers), name)}
	s.AnimLayers = append(s.AnimLayers, l)
	return l
}

func (s *Scene) createAnimCurveNode(name string) *AnimCurveNode {
	cn := &AnimCurveNode{Element: s.newElement(len(s.AnimCurveNodes), name)}
	s.AnimCurveNodes = append(s.AnimCurveNodes, cn)
	return cn
}

func (s *Scene) createAnimCurve() *AnimCurve {
	c := &AnimCurve{Element: s.newElement(len(s.AnimCurves), "")}
	s.AnimCurves = append(s.AnimCurves, c)
	return c
}
