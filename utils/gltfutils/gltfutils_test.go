package gltfutils

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/fbxdoc/document"
)

func sample() *document.Document {
	doc := document.New()
	root := document.NewNode(1, "root")
	root.Translation = mgl64.Vec3{1, 2, 3}
	child := document.NewNode(2, "child")
	child.ParentID = document.Uint32(1)
	child.MeshID = document.Uint32(10)
	lost := document.NewNode(3, "lost")
	lost.ParentID = document.Uint32(99)
	lost.MeshID = document.Uint32(99)
	doc.Nodes = append(doc.Nodes, root, child, lost)

	doc.Meshes = append(doc.Meshes,
		document.Mesh{
			ID:          10,
			Name:        "tri",
			Positions:   []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			Normals:     []mgl64.Vec3{{0, 0, 2}, {0, 0, 2}, {0, 0, 2}},
			Indices:     []uint32{0, 1, 2, 0, 1, 7},
			MaterialIDs: []uint32{55, 20},
		},
		document.Mesh{ID: 11, Name: "empty"},
	)
	doc.Materials = append(doc.Materials, document.Material{ID: 20, Name: "red", DiffuseColor: document.Vec3(1, 0, 0)})
	doc.Textures = append(doc.Textures,
		document.Texture{ID: 1, Name: "albedo", FilePath: document.String("albedo.png")},
		document.Texture{ID: 2, Name: "nofile"},
	)
	return doc
}

func TestFromDocument(t *testing.T) {
	gdoc, err := FromDocument(sample())
	require.NoError(t, err)

	require.Len(t, gdoc.Nodes, 3)
	assert.Equal(t, [3]float32{1, 2, 3}, gdoc.Nodes[0].Translation)
	assert.Equal(t, []uint32{1}, gdoc.Nodes[0].Children)
	assert.Equal(t, []uint32{0, 2}, gdoc.Scenes[0].Nodes)
	require.NotNil(t, gdoc.Nodes[1].Mesh)
	assert.EqualValues(t, 0, *gdoc.Nodes[1].Mesh)
	assert.Nil(t, gdoc.Nodes[2].Mesh)

	require.Len(t, gdoc.Meshes, 1)
	p := gdoc.Meshes[0].Primitives[0]
	require.NotNil(t, p.Material)
	assert.EqualValues(t, 0, *p.Material)
	assert.Contains(t, p.Attributes, "NORMAL")
	assert.NotContains(t, p.Attributes, "TEXCOORD_0")
	require.NotNil(t, p.Indices)
	assert.EqualValues(t, 3, gdoc.Accessors[*p.Indices].Count)

	require.Len(t, gdoc.Materials, 1)
	assert.Equal(t, &[4]float32{1, 0, 0, 1}, gdoc.Materials[0].PBRMetallicRoughness.BaseColorFactor)
	require.Len(t, gdoc.Images, 1)
	assert.Equal(t, "albedo.png", gdoc.Images[0].URI)
}

func TestCyclicParentsBecomeRoots(t *testing.T) {
	doc := document.New()
	a, b := document.NewNode(1, "a"), document.NewNode(2, "b")
	a.ParentID = document.Uint32(2)
	b.ParentID = document.Uint32(1)
	doc.Nodes = append(doc.Nodes, a, b)

	gdoc, err := FromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, gdoc.Scenes[0].Nodes)
	assert.Equal(t, []uint32{0}, gdoc.Nodes[1].Children)
}

func TestEncodeDecode(t *testing.T) {
	for _, binary := range []bool{true, false} {
		gdoc, err := FromDocument(sample())
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, Export(&buf, gdoc, binary))

		decoded, err := Decode(&buf)
		require.NoError(t, err, "binary=%v", binary)
		require.Len(t, decoded.Meshes, 1)
		positions, err := ReadPositions(decoded, decoded.Meshes[0].Primitives[0])
		require.NoError(t, err)
		assert.Equal(t, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, positions)
	}
}
