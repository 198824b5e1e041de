package document

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *Document {
	d := New()
	d.Version = "FBX 7.4"

	root := NewNode(1, "root")
	root.MeshID = Uint32(10)
	root.Children = []uint32{2}
	child := NewNode(2, "child")
	child.ParentID = Uint32(1)
	child.Translation = mgl64.Vec3{1, 2, 3}
	child.Rotation = mgl64.Vec4{0, 0, 0.70710678, 0.70710678}
	child.Scale = mgl64.Vec3{2, 2, 2}
	d.Nodes = append(d.Nodes, root, child)

	d.Meshes = append(d.Meshes, Mesh{
		ID:          10,
		Name:        "tri",
		Positions:   []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Indices:     []uint32{0, 1, 2},
		Normals:     []mgl64.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		Texcoords:   []mgl64.Vec2{{0, 0}, {1, 0}, {0, 1}},
		MaterialIDs: []uint32{5},
	})
	d.Materials = append(d.Materials, Material{ID: 5, Name: "red", DiffuseColor: Vec3(1, 0, 0)})
	d.Textures = append(d.Textures, Texture{ID: 3, Name: "albedo", FilePath: String("textures/albedo.png")})

	t := mgl64.Vec3{0, 1, 0}
	d.Animations = append(d.Animations, Animation{
		ID:     0,
		Name:   "Take 001",
		NodeID: Uint32(2),
		Keyframes: []Keyframe{
			{Time: 0, NodeID: Uint32(2), Translation: &t},
		},
	})
	return d
}

func TestWireKeys(t *testing.T) {
	m := sampleDocument().ToMap()
	for _, key := range []string{"version", "nodes", "meshes", "materials", "textures", "animations"} {
		assert.Contains(t, m, key)
	}

	node := m["nodes"].([]interface{})[1].(map[string]interface{})
	for _, key := range []string{"id", "name", "translation", "rotation", "scale", "parent_id"} {
		assert.Contains(t, node, key)
	}
	assert.NotContains(t, node, "mesh_id")

	mesh := m["meshes"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, []float64{0, 0, 0, 1, 0, 0, 0, 1, 0}, mesh["positions"])
	assert.Equal(t, []float64{0, 0, 1, 0, 0, 1}, mesh["texcoords"])
	assert.Contains(t, mesh, "material_ids")

	mat := m["materials"].([]interface{})[0].(map[string]interface{})
	assert.Contains(t, mat, "diffuse_color")
	assert.NotContains(t, mat, "specular_color")

	kf := m["animations"].([]interface{})[0].(map[string]interface{})["keyframes"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, uint32(2), kf["node_id"])
	assert.Contains(t, kf, "translation")
	assert.NotContains(t, kf, "rotation")
}

func TestMapRoundTrip(t *testing.T) {
	d := sampleDocument()
	back, err := FromMap(d.ToMap())
	require.NoError(t, err)
	assert.Equal(t, d, back)
}

func TestJSONRoundTrip(t *testing.T) {
	d := sampleDocument()
	data, err := json.Marshal(d)
	require.NoError(t, err)

	var back Document
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, *d, back)
}

func TestYAMLRoundTrip(t *testing.T) {
	d := sampleDocument()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, d, "yaml"))

	back, err := Decode(&buf, "yaml")
	require.NoError(t, err)
	assert.Equal(t, d, back)
}

func TestPositionsShapesEncodeAlike(t *testing.T) {
	flat, err := FromMap(map[string]interface{}{
		"meshes": []interface{}{map[string]interface{}{
			"id": 1, "positions": []interface{}{0, 0, 0, 1, 0, 0, 0, 1, 0}, "indices": []interface{}{0, 1, 2},
		}},
	})
	require.NoError(t, err)
	nested, err := FromMap(map[string]interface{}{
		"meshes": []interface{}{map[string]interface{}{
			"id": 1, "positions": []interface{}{
				[]interface{}{0, 0, 0}, []interface{}{1, 0, 0}, []interface{}{0, 1, 0},
			}, "indices": []interface{}{0, 1, 2},
		}},
	})
	require.NoError(t, err)

	a := flat.Meshes[0].toMap()["positions"]
	b := nested.Meshes[0].toMap()["positions"]
	assert.Equal(t, []float64{0, 0, 0, 1, 0, 0, 0, 1, 0}, a)
	assert.Equal(t, a, b)
}

func TestAbsentVersusEmptyAttributes(t *testing.T) {
	d, err := FromMap(map[string]interface{}{
		"meshes": []interface{}{
			map[string]interface{}{"id": 1, "positions": []interface{}{}},
			map[string]interface{}{"id": 2},
		},
	})
	require.NoError(t, err)

	require.Len(t, d.Meshes, 2)
	assert.NotNil(t, d.Meshes[0].Positions)
	assert.Len(t, d.Meshes[0].Positions, 0)
	assert.Nil(t, d.Meshes[0].Normals)
	assert.Nil(t, d.Meshes[1].Positions)

	m := d.Meshes[0].toMap()
	assert.Contains(t, m, "positions")
	assert.NotContains(t, m, "normals")
	assert.NotContains(t, d.Meshes[1].toMap(), "positions")
}

func TestMalformedAttributeIsDropped(t *testing.T) {
	d, err := FromMap(map[string]interface{}{
		"meshes": []interface{}{map[string]interface{}{
			"id":        7,
			"positions": []interface{}{0, 0, 0, 1},
			"normals":   []interface{}{0, 0, 1},
			"texcoords": []interface{}{0.5},
		}},
	})
	require.NoError(t, err)
	require.Len(t, d.Meshes, 1)
	assert.Nil(t, d.Meshes[0].Positions)
	assert.Equal(t, []mgl64.Vec3{{0, 0, 1}}, d.Meshes[0].Normals)
	assert.Nil(t, d.Meshes[0].Texcoords)
}

func TestMalformedTriangleIsDropped(t *testing.T) {
	d, err := FromMap(map[string]interface{}{
		"meshes": []interface{}{map[string]interface{}{
			"id":           7,
			"positions":    []interface{}{0, 0, 0, 1, 0, 0, 0, 1, 0, 1, 1, 0},
			"indices":      []interface{}{0, 1, 2, -1, 1, 2, 1, 3, 2},
			"material_ids": []interface{}{4, 5, 6},
		}},
	})
	require.NoError(t, err)
	require.Len(t, d.Meshes, 1)
	assert.Equal(t, []uint32{0, 1, 2, 1, 3, 2}, d.Meshes[0].Indices)
	assert.Equal(t, []uint32{4, 6}, d.Meshes[0].MaterialIDs)
}

func TestTolerantNodeDefaults(t *testing.T) {
	d, err := FromMap(map[string]interface{}{
		"nodes": []interface{}{map[string]interface{}{
			"id":          3,
			"translation": "garbage",
			"rotation":    []interface{}{1, 2},
			"parent_id":   -1,
		}},
	})
	require.NoError(t, err)
	n := d.Nodes[0]
	assert.Equal(t, uint32(3), n.ID)
	assert.Equal(t, mgl64.Vec3{0, 0, 0}, n.Translation)
	assert.Equal(t, mgl64.Vec4{0, 0, 0, 1}, n.Rotation)
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, n.Scale)
	assert.Nil(t, n.ParentID)
}

func TestMaterialDefaults(t *testing.T) {
	m := Material{DiffuseColor: Vec3(0.5, 0.5, 0.5)}
	assert.Equal(t, mgl64.Vec3{0.5, 0.5, 0.5}, m.Diffuse())
	assert.Equal(t, DefaultSpecularColor, m.Specular())
	assert.Equal(t, DefaultEmissiveColor, m.Emissive())
	assert.Equal(t, DefaultDiffuseColor, (&Material{}).Diffuse())
}

func TestFromMapNil(t *testing.T) {
	_, err := FromMap(nil)
	assert.Error(t, err)

	d, err := FromMap(map[string]interface{}{})
	require.NoError(t, err)
	assert.NotNil(t, d.Nodes)
	assert.NotNil(t, d.Animations)
}

func TestEdges(t *testing.T) {
	d := sampleDocument()
	assert.Equal(t, 1, d.Edges())
	d.Nodes[1].ParentID = Uint32(99)
	assert.Equal(t, 0, d.Edges())
}

func TestKeyframeChannel(t *testing.T) {
	s := mgl64.Vec3{1, 1, 1}
	assert.Equal(t, "scale", (&Keyframe{Scale: &s}).Channel())
	assert.Equal(t, "", (&Keyframe{}).Channel())
}
