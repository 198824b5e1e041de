package scene

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Vec3Attribute is a per face corner attribute: corner i has the value
// Values[Indices[i]].
type Vec3Attribute struct {
	Exists  bool
	Values  []mgl64.Vec3
	Indices []uint32
}

type Vec2Attribute struct {
	Exists  bool
	Values  []mgl64.Vec2
	Indices []uint32
}

// Face spans NumIndices corners starting at IndexBegin.
type Face struct {
	IndexBegin uint32
	NumIndices uint32
}

type Mesh struct {
	Element

	VertexPosition Vec3Attribute
	VertexNormal   Vec3Attribute
	VertexUV       Vec2Attribute

	Faces      []Face
	NumIndices int

	Materials []*Material
	Instances []*Node
}

func (m *Mesh) NumVertices() int { return len(m.VertexPosition.Values) }

// NumTriangles counts triangles produced by Triangulate.
func (m *Mesh) NumTriangles() int {
	count := 0
	for _, f := range m.Faces {
		if f.NumIndices >= 3 {
			count += int(f.NumIndices) - 2
		}
	}
	return count
}

// Triangulate splits every face into a fan and returns corner indices,
// three per triangle. Points and lines are skipped.
func (m *Mesh) Triangulate() []uint32 {
	out := make([]uint32, 0, m.NumTriangles()*3)
	for _, f := range m.Faces {
		if f.NumIndices < 3 {
			continue
		}
		for i := uint32(1); i+1 < f.NumIndices; i++ {
			out = append(out, f.IndexBegin, f.IndexBegin+i, f.IndexBegin+i+1)
		}
	}
	return out
}

func (m *Mesh) SetVertices(positions []mgl64.Vec3) {
	m.VertexPosition.Exists = true
	m.VertexPosition.Values = append([]mgl64.Vec3{}, positions...)
}

// SetTriangles replaces the topology with a triangle list. A trailing
// incomplete triangle is dropped.
func (m *Mesh) SetTriangles(indices []uint32) {
	n := len(indices) / 3 * 3
	m.VertexPosition.Indices = append([]uint32{}, indices[:n]...)
	m.NumIndices = n
	m.Faces = make([]Face, 0, n/3)
	for i := 0; i < n; i += 3 {
		m.Faces = append(m.Faces, Face{IndexBegin: uint32(i), NumIndices: 3})
	}
	m.syncVertexMapping()
}

// SetNormals sets one normal per vertex.
func (m *Mesh) SetNormals(normals []mgl64.Vec3) {
	m.VertexNormal.Exists = true
	m.VertexNormal.Values = append([]mgl64.Vec3{}, normals...)
	m.syncVertexMapping()
}

// SetUVs sets one texture coordinate per vertex.
func (m *Mesh) SetUVs(uvs []mgl64.Vec2) {
	m.VertexUV.Exists = true
	m.VertexUV.Values = append([]mgl64.Vec2{}, uvs...)
	m.syncVertexMapping()
}

// syncVertexMapping makes per vertex attributes follow the position indices.
func (m *Mesh) syncVertexMapping() {
	if m.VertexNormal.Exists {
		m.VertexNormal.Indices = append([]uint32{}, m.VertexPosition.Indices...)
	}
	if m.VertexUV.Exists {
		m.VertexUV.Indices = append([]uint32{}, m.VertexPosition.Indices...)
	}
}

func (m *Mesh) AddMaterial(mat *Material) {
	for _, existing := range m.Materials {
		if existing == mat {
			return
		}
	}
	m.Materials = append(m.Materials, mat)
}
