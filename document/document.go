// Package document holds the format agnostic scene description that is
// produced by import and consumed by export.
//
// Entities reference each other by integer id only. Optional fields use
// pointers, and attribute slices use nil for "absent" and an empty slice
// for "present but empty".
package document

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/fbxdoc/attrib"
)

// Colors written for material channels that are not set.
var (
	DefaultDiffuseColor  = mgl64.Vec3{1, 1, 1}
	DefaultSpecularColor = mgl64.Vec3{0, 0, 0}
	DefaultEmissiveColor = mgl64.Vec3{0, 0, 0}
)

type Document struct {
	Version    string
	Nodes      []Node
	Meshes     []Mesh
	Materials  []Material
	Textures   []Texture
	Animations []Animation
}

type Node struct {
	ID       uint32
	Name     string
	ParentID *uint32
	Children []uint32

	Translation mgl64.Vec3
	// Rotation is a unit quaternion stored as x, y, z, w.
	Rotation mgl64.Vec4
	Scale    mgl64.Vec3

	MeshID *uint32
}

type Mesh struct {
	ID          uint32
	Name        string
	Positions   []mgl64.Vec3
	Indices     []uint32
	Normals     []mgl64.Vec3
	Texcoords   []mgl64.Vec2
	MaterialIDs []uint32
}

type Material struct {
	ID            uint32
	Name          string
	DiffuseColor  *mgl64.Vec3
	SpecularColor *mgl64.Vec3
	EmissiveColor *mgl64.Vec3
}

type Texture struct {
	ID       uint32
	Name     string
	FilePath *string
}

type Animation struct {
	ID        uint32
	Name      string
	NodeID    *uint32
	Keyframes []Keyframe
}

// Keyframe is a sample at Time seconds. Imported keyframes carry exactly
// one of Translation, Rotation or Scale.
type Keyframe struct {
	Time        float64
	NodeID      *uint32
	Translation *mgl64.Vec3
	Rotation    *mgl64.Vec4
	Scale       *mgl64.Vec3
}

func New() *Document {
	return &Document{
		Nodes:      []Node{},
		Meshes:     []Mesh{},
		Materials:  []Material{},
		Textures:   []Texture{},
		Animations: []Animation{},
	}
}

// NewNode returns a node with an identity transform.
func NewNode(id uint32, name string) Node {
	return Node{
		ID:          id,
		Name:        name,
		Translation: attrib.Origin,
		Rotation:    attrib.IdentityQuat,
		Scale:       attrib.UnitScale,
	}
}

func (m *Material) Diffuse() mgl64.Vec3  { return colorOr(m.DiffuseColor, DefaultDiffuseColor) }
func (m *Material) Specular() mgl64.Vec3 { return colorOr(m.SpecularColor, DefaultSpecularColor) }
func (m *Material) Emissive() mgl64.Vec3 { return colorOr(m.EmissiveColor, DefaultEmissiveColor) }

func colorOr(c *mgl64.Vec3, def mgl64.Vec3) mgl64.Vec3 {
	if c == nil {
		return def
	}
	return *c
}

// Channel names the value the keyframe carries.
func (k *Keyframe) Channel() string {
	switch {
	case k.Translation != nil:
		return "translation"
	case k.Rotation != nil:
		return "rotation"
	case k.Scale != nil:
		return "scale"
	}
	return ""
}

func (d *Document) NodeByID(id uint32) *Node {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

func (d *Document) MeshByID(id uint32) *Mesh {
	for i := range d.Meshes {
		if d.Meshes[i].ID == id {
			return &d.Meshes[i]
		}
	}
	return nil
}

// Edges counts parent links between nodes present in the document.
func (d *Document) Edges() int {
	ids := make(map[uint32]struct{}, len(d.Nodes))
	for _, n := range d.Nodes {
		ids[n.ID] = struct{}{}
	}
	count := 0
	for _, n := range d.Nodes {
		if n.ParentID == nil {
			continue
		}
		if _, ok := ids[*n.ParentID]; ok {
			count++
		}
	}
	return count
}

func (d *Document) String() string {
	return fmt.Sprintf("Document{%s nodes:%d meshes:%d materials:%d textures:%d animations:%d}",
		d.Version, len(d.Nodes), len(d.Meshes), len(d.Materials), len(d.Textures), len(d.Animations))
}

func Uint32(v uint32) *uint32 { return &v }
func String(v string) *string { return &v }
func Vec3(x, y, z float64) *mgl64.Vec3 {
	v := mgl64.Vec3{x, y, z}
	return &v
}
