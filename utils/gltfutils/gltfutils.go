package gltfutils

import (
	"io"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/fbxdoc/document"
)

func NewDocument() *gltf.Document {
	return gltf.NewDocument()
}

// FromDocument converts nodes, meshes, materials and texture references.
// Meshes without positions and animations are not converted.
func FromDocument(src *document.Document) (*gltf.Document, error) {
	doc := NewDocument()

	materialIndex := make(map[uint32]uint32)
	for i := range src.Materials {
		mat := &src.Materials[i]
		d, em := mat.Diffuse(), mat.Emissive()
		color := &[4]float32{float32(d[0]), float32(d[1]), float32(d[2]), 1}
		materialIndex[mat.ID] = uint32(len(doc.Materials))
		doc.Materials = append(doc.Materials, &gltf.Material{
			Name:           mat.Name,
			DoubleSided:    true,
			EmissiveFactor: [3]float32{float32(em[0]), float32(em[1]), float32(em[2])},
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: color,
			},
		})
	}

	for _, tex := range src.Textures {
		if tex.FilePath == nil {
			continue
		}
		doc.Images = append(doc.Images, &gltf.Image{Name: tex.Name, URI: *tex.FilePath})
		doc.Textures = append(doc.Textures, &gltf.Texture{
			Name:   tex.Name,
			Source: gltf.Index(uint32(len(doc.Images) - 1)),
		})
	}

	meshIndex := make(map[uint32]uint32)
	for i := range src.Meshes {
		m := &src.Meshes[i]
		if len(m.Positions) == 0 {
			continue
		}
		primitive := writePrimitive(doc, m)
		for _, id := range m.MaterialIDs {
			if idx, ok := materialIndex[id]; ok {
				primitive.Material = gltf.Index(idx)
				break
			}
		}
		meshIndex[m.ID] = uint32(len(doc.Meshes))
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{
			Name:       m.Name,
			Primitives: []*gltf.Primitive{primitive},
		})
	}

	nodeIndex := make(map[uint32]uint32)
	for i, n := range src.Nodes {
		nodeIndex[n.ID] = uint32(i)
	}

	parents := acceptedParents(src, nodeIndex)
	for i := range src.Nodes {
		n := &src.Nodes[i]
		node := &gltf.Node{
			Name:        n.Name,
			Translation: toFloat3(n.Translation),
			Rotation:    [4]float32{float32(n.Rotation[0]), float32(n.Rotation[1]), float32(n.Rotation[2]), float32(n.Rotation[3])},
			Scale:       toFloat3(n.Scale),
		}
		if n.MeshID != nil {
			if idx, ok := meshIndex[*n.MeshID]; ok {
				node.Mesh = gltf.Index(idx)
			}
		}
		doc.Nodes = append(doc.Nodes, node)
	}
	for i := range src.Nodes {
		if parent, ok := parents[uint32(i)]; ok {
			doc.Nodes[parent].Children = append(doc.Nodes[parent].Children, uint32(i))
		} else {
			doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(i))
		}
	}
	return doc, nil
}

func toFloat3(v [3]float64) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}

// acceptedParents maps node index to parent index, skipping links that
// are unresolved or would close a cycle.
func acceptedParents(src *document.Document, nodeIndex map[uint32]uint32) map[uint32]uint32 {
	parents := make(map[uint32]uint32)
	for i, n := range src.Nodes {
		if n.ParentID == nil {
			continue
		}
		parent, ok := nodeIndex[*n.ParentID]
		if !ok {
			continue
		}
		cyclic := false
		for p, ok := parent, true; ok; p, ok = parents[p] {
			if p == uint32(i) {
				cyclic = true
				break
			}
		}
		if !cyclic {
			parents[uint32(i)] = parent
		}
	}
	return parents
}

// writePrimitive drops triangles referencing missing vertices. A mesh with
// no triangles left is written without indices.
func writePrimitive(doc *gltf.Document, m *document.Mesh) *gltf.Primitive {
	positions := make([][3]float32, len(m.Positions))
	for i, p := range m.Positions {
		positions[i] = toFloat3(p)
	}
	attributes := map[string]uint32{
		"POSITION": modeler.WritePosition(doc, positions),
	}

	if len(m.Normals) == len(m.Positions) {
		normals := make([][3]float32, len(m.Normals))
		for i, n := range m.Normals {
			if n.Len() > 0.5 {
				n = n.Normalize()
			}
			normals[i] = toFloat3(n)
		}
		attributes["NORMAL"] = modeler.WriteNormal(doc, normals)
	}
	if len(m.Texcoords) == len(m.Positions) {
		uvs := make([][2]float32, len(m.Texcoords))
		for i, uv := range m.Texcoords {
			uvs[i] = [2]float32{float32(uv[0]), float32(uv[1])}
		}
		attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(doc, uvs)
	}

	indices := make([]uint32, 0, len(m.Indices))
	for i := 0; i+2 < len(m.Indices); i += 3 {
		tri := m.Indices[i : i+3]
		if int(tri[0]) < len(m.Positions) && int(tri[1]) < len(m.Positions) && int(tri[2]) < len(m.Positions) {
			indices = append(indices, tri...)
		}
	}
	primitive := &gltf.Primitive{Attributes: attributes}
	if len(indices) != 0 {
		primitive.Indices = gltf.Index(modeler.WriteIndices(doc, indices))
	}
	return primitive
}

// ExportBinary writes doc as a .glb stream.
func ExportBinary(w io.Writer, doc *gltf.Document) error {
	return Export(w, doc, true)
}

// Export writes doc to w. Text output embeds buffers as data uris.
func Export(w io.Writer, doc *gltf.Document, binary bool) error {
	if !binary {
		for _, b := range doc.Buffers {
			if b.URI == "" {
				b.EmbeddedResource()
			}
		}
	}
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = binary
	if err := encoder.Encode(doc); err != nil {
		return errors.Wrapf(err, "Failed to encode gltf")
	}
	return nil
}

// Decode reads a .gltf or .glb stream.
func Decode(r io.Reader) (*gltf.Document, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, errors.Wrapf(err, "Failed to decode gltf")
	}
	return doc, nil
}

// ReadPositions returns the vertices of a primitive.
func ReadPositions(doc *gltf.Document, p *gltf.Primitive) ([][3]float32, error) {
	idx, ok := p.Attributes["POSITION"]
	if !ok {
		return nil, errors.New("Primitive has no positions")
	}
	return modeler.ReadPosition(doc, doc.Accessors[idx], nil)
}
