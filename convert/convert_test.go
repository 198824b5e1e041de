package convert

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/fbxdoc/document"
	"github.com/mogaika/fbxdoc/scene"
	"github.com/mogaika/fbxdoc/utils"
	"github.com/mogaika/fbxdoc/utils/gltfutils"
)

var fbxFormats = []Format{FormatBinary, FormatASCII}

func roundTrip(t *testing.T, doc *document.Document, format Format) *document.Document {
	t.Helper()
	data, err := ExportBytes(doc, ExportOptions{Format: format})
	require.NoError(t, err)
	require.NotEmpty(t, data)

	out, err := ImportBytes(data, ImportOptions{})
	require.NoError(t, err)
	return out
}

func nodeByName(t *testing.T, doc *document.Document, name string) *document.Node {
	t.Helper()
	for i := range doc.Nodes {
		if doc.Nodes[i].Name == name {
			return &doc.Nodes[i]
		}
	}
	require.FailNowf(t, "node not found", "%q in %v", name, doc)
	return nil
}

func triangleDocument() *document.Document {
	doc := document.New()
	n := document.NewNode(1, "tri")
	n.MeshID = document.Uint32(1)
	doc.Nodes = append(doc.Nodes, n)
	doc.Meshes = append(doc.Meshes, document.Mesh{
		ID:        1,
		Name:      "tri",
		Positions: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Indices:   []uint32{0, 1, 2},
	})
	return doc
}

func TestExportImportTriangle(t *testing.T) {
	for _, format := range fbxFormats {
		t.Run(string(format), func(t *testing.T) {
			out := roundTrip(t, triangleDocument(), format)

			require.GreaterOrEqual(t, len(out.Meshes), 1)
			m := out.Meshes[0]
			assert.GreaterOrEqual(t, len(m.Positions), 3)
			assert.GreaterOrEqual(t, len(m.Indices), 3)

			n := nodeByName(t, out, "tri")
			require.NotNil(t, n.MeshID)
			assert.Equal(t, m.ID, *n.MeshID)
			assert.Equal(t, "FBX 7.4", out.Version)
		})
	}
}

func TestExportImportFile(t *testing.T) {
	for _, format := range fbxFormats {
		t.Run(string(format), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tri.fbx")
			written, err := ExportFile(triangleDocument(), path, ExportOptions{Format: format})
			require.NoError(t, err)
			assert.Equal(t, path, written)

			out, err := ImportFile(path, ImportOptions{})
			require.NoError(t, err)
			require.Len(t, out.Meshes, 1)
			assert.Len(t, out.Meshes[0].Positions, 3)
		})
	}
}

func meshByName(t *testing.T, doc *document.Document, name string) *document.Mesh {
	t.Helper()
	for i := range doc.Meshes {
		if doc.Meshes[i].Name == name {
			return &doc.Meshes[i]
		}
	}
	require.FailNowf(t, "mesh not found", "%q in %v", name, doc)
	return nil
}

func TestAbsentAttributesStayAbsent(t *testing.T) {
	doc := document.New()
	full, bare := document.NewNode(1, "full"), document.NewNode(2, "bare")
	full.MeshID, bare.MeshID = document.Uint32(10), document.Uint32(20)
	doc.Nodes = append(doc.Nodes, full, bare)

	quad := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	doc.Meshes = append(doc.Meshes,
		document.Mesh{
			ID: 10, Name: "full",
			Positions: quad,
			Indices:   []uint32{0, 1, 2, 0, 2, 3},
			Normals:   []mgl64.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
			Texcoords: []mgl64.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
		},
		document.Mesh{
			ID: 20, Name: "bare",
			Positions: quad,
			Indices:   []uint32{0, 1, 2},
		},
	)
	doc.Textures = append(doc.Textures, document.Texture{ID: 5, Name: "albedo", FilePath: document.String("textures/albedo.png")})

	for _, format := range fbxFormats {
		t.Run(string(format), func(t *testing.T) {
			out := roundTrip(t, doc, format)
			require.Len(t, out.Meshes, 2)

			m := meshByName(t, out, "full")
			require.NotNil(t, m.Normals)
			require.NotNil(t, m.Texcoords)
			assert.Len(t, m.Normals, 4)
			assert.Len(t, m.Texcoords, 4)
			assert.Len(t, m.Indices, 6)

			m = meshByName(t, out, "bare")
			assert.Len(t, m.Positions, 4)
			assert.Nil(t, m.Normals)
			assert.Nil(t, m.Texcoords)

			require.Len(t, out.Textures, 1)
			require.NotNil(t, out.Textures[0].FilePath)
			assert.Equal(t, "textures/albedo.png", *out.Textures[0].FilePath)
		})
	}
}

func TestParentChildEdge(t *testing.T) {
	doc := document.New()
	parent := document.NewNode(1, "parent")
	child := document.NewNode(2, "child")
	child.ParentID = document.Uint32(1)
	doc.Nodes = append(doc.Nodes, parent, child)

	for _, format := range fbxFormats {
		t.Run(string(format), func(t *testing.T) {
			out := roundTrip(t, doc, format)
			p, c := nodeByName(t, out, "parent"), nodeByName(t, out, "child")
			require.NotNil(t, c.ParentID)
			assert.Equal(t, p.ID, *c.ParentID)
			assert.Contains(t, p.Children, c.ID)
		})
	}
}

func TestGraphShapeSurvives(t *testing.T) {
	doc := document.New()
	// a chain and a fan hanging off the same root
	for i := uint32(1); i <= 8; i++ {
		n := document.NewNode(i*10, fmt.Sprintf("n%d", i))
		switch {
		case i == 1:
		case i <= 4:
			n.ParentID = document.Uint32((i - 1) * 10)
		default:
			n.ParentID = document.Uint32(10)
		}
		doc.Nodes = append(doc.Nodes, n)
	}
	doc.Meshes = append(doc.Meshes, triangleDocument().Meshes[0])
	doc.Nodes[3].MeshID = document.Uint32(1)
	doc.Nodes[6].MeshID = document.Uint32(1)

	for _, format := range fbxFormats {
		t.Run(string(format), func(t *testing.T) {
			out := roundTrip(t, doc, format)
			assert.GreaterOrEqual(t, out.Edges(), doc.Edges())

			for _, orig := range doc.Nodes {
				n := nodeByName(t, out, orig.Name)
				if orig.ParentID != nil {
					want := doc.NodeByID(*orig.ParentID).Name
					require.NotNil(t, n.ParentID)
					assert.Equal(t, want, out.NodeByID(*n.ParentID).Name)
				}
				if orig.MeshID != nil {
					require.NotNil(t, n.MeshID)
					assert.NotNil(t, out.MeshByID(*n.MeshID))
				} else {
					assert.Nil(t, n.MeshID)
				}
			}
		})
	}
}

func TestRandomHierarchy(t *testing.T) {
	rng := utils.NewRandomNameGenerator(7)
	doc := document.New()
	for i := uint32(0); i < 40; i++ {
		n := document.NewNode(1000+i*3, rng.RandomName())
		n.Translation = mgl64.Vec3{rng.RandomFloat(-50, 50), rng.RandomFloat(-50, 50), rng.RandomFloat(-50, 50)}
		if i > 0 {
			parent := uint32(rng.RandomFloat(0, float64(i)))
			if parent >= i {
				parent = i - 1
			}
			n.ParentID = document.Uint32(1000 + parent*3)
		}
		doc.Nodes = append(doc.Nodes, n)
	}

	for _, format := range fbxFormats {
		t.Run(string(format), func(t *testing.T) {
			out := roundTrip(t, doc, format)
			require.Len(t, out.Nodes, len(doc.Nodes)+1)
			assert.Equal(t, doc.Edges()+1, out.Edges(), utils.SDump(out.Nodes))
			for _, orig := range doc.Nodes {
				n := nodeByName(t, out, orig.Name)
				for c := 0; c < 3; c++ {
					assert.InDelta(t, orig.Translation[c], n.Translation[c], 1e-4)
				}
			}
		})
	}
}

func TestDanglingReferences(t *testing.T) {
	doc := document.New()
	n := document.NewNode(1, "lost")
	n.ParentID = document.Uint32(99)
	n.MeshID = document.Uint32(42)
	doc.Nodes = append(doc.Nodes, n)
	doc.Meshes = append(doc.Meshes, document.Mesh{
		ID: 5, Name: "m", MaterialIDs: []uint32{7},
		Positions: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, Indices: []uint32{0, 1, 2},
	})

	for _, format := range fbxFormats {
		t.Run(string(format), func(t *testing.T) {
			out := roundTrip(t, doc, format)
			lost := nodeByName(t, out, "lost")
			assert.Nil(t, lost.MeshID)
			require.NotNil(t, lost.ParentID)
			assert.Nil(t, out.NodeByID(*lost.ParentID).ParentID, "parent should be the scene root")
			require.Len(t, out.Meshes, 1)
			assert.Empty(t, out.Meshes[0].MaterialIDs)
		})
	}
}

func TestCyclicParentsDoNotHang(t *testing.T) {
	doc := document.New()
	a, b := document.NewNode(1, "a"), document.NewNode(2, "b")
	a.ParentID = document.Uint32(2)
	b.ParentID = document.Uint32(1)
	doc.Nodes = append(doc.Nodes, a, b)

	out := roundTrip(t, doc, FormatBinary)
	assert.Len(t, out.Nodes, 3)
	assert.Equal(t, 2, out.Edges())
}

func TestPositionTolerance(t *testing.T) {
	positions := []mgl64.Vec3{
		{0.001, -0.002, 0.003},
		{1.234, 5.678, -9.101},
		{123.4, -567.8, 0.5},
		{-0.125, 999.9, 42},
	}
	doc := document.New()
	doc.Meshes = append(doc.Meshes, document.Mesh{
		ID: 1, Name: "points", Positions: positions, Indices: []uint32{0, 1, 2, 1, 2, 3},
	})

	for _, format := range fbxFormats {
		t.Run(string(format), func(t *testing.T) {
			out := roundTrip(t, doc, format)
			require.Len(t, out.Meshes, 1)
			got := out.Meshes[0].Positions
			require.Len(t, got, len(positions))
			for i := range positions {
				for c := 0; c < 3; c++ {
					assert.InDelta(t, positions[i][c], got[i][c], 1e-4)
				}
			}
		})
	}
}

func TestMaterialDiffuseOnly(t *testing.T) {
	doc := triangleDocument()
	doc.Materials = append(doc.Materials, document.Material{
		ID: 3, Name: "paint", DiffuseColor: document.Vec3(0.2, 0.4, 0.6),
	})
	doc.Meshes[0].MaterialIDs = []uint32{3}

	for _, format := range fbxFormats {
		t.Run(string(format), func(t *testing.T) {
			out := roundTrip(t, doc, format)
			require.Len(t, out.Materials, 1)
			mat := out.Materials[0]
			assert.Equal(t, "paint", mat.Name)
			require.NotNil(t, mat.DiffuseColor)
			assert.True(t, mat.DiffuseColor.ApproxEqualThreshold(mgl64.Vec3{0.2, 0.4, 0.6}, 1e-6))
			assert.Nil(t, mat.SpecularColor)
			assert.Nil(t, mat.EmissiveColor)
			assert.Equal(t, document.DefaultSpecularColor, mat.Specular())
			assert.Equal(t, document.DefaultEmissiveColor, mat.Emissive())

			require.Len(t, out.Meshes, 1)
			assert.Equal(t, []uint32{mat.ID}, out.Meshes[0].MaterialIDs)
		})
	}
}

func TestSpecularIsNotExported(t *testing.T) {
	doc := document.New()
	doc.Materials = append(doc.Materials, document.Material{
		ID: 1, Name: "shiny", SpecularColor: document.Vec3(1, 1, 1), EmissiveColor: document.Vec3(1, 0, 0),
	})
	out := roundTrip(t, doc, FormatBinary)
	require.Len(t, out.Materials, 1)
	assert.Nil(t, out.Materials[0].SpecularColor)
	assert.Nil(t, out.Materials[0].EmissiveColor)
	assert.Nil(t, out.Materials[0].DiffuseColor)
}

func TestMaterialPrefersPBR(t *testing.T) {
	s, err := scene.New(scene.CreateOptions{})
	require.NoError(t, err)
	defer s.Free()

	mat := s.CreateMaterial("pbr")
	mat.SetVec3("DiffuseColor", mgl64.Vec3{1, 0, 0})
	mat.SetVec3("Maya|baseColor", mgl64.Vec3{0, 1, 0})
	mat.SetVec3("EmissiveColor", mgl64.Vec3{0, 0, 1})

	doc := Import(s)
	require.Len(t, doc.Materials, 1)
	got := doc.Materials[0]
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, *got.DiffuseColor)
	assert.Equal(t, mgl64.Vec3{0, 0, 1}, *got.EmissiveColor)
	assert.Nil(t, got.SpecularColor)
}

func TestEmptyDocument(t *testing.T) {
	for _, format := range fbxFormats {
		t.Run(string(format), func(t *testing.T) {
			data, err := ExportBytes(document.New(), ExportOptions{Format: format})
			if err != nil {
				var se *SaveError
				require.True(t, errors.As(err, &se))
				assert.NotEmpty(t, se.Description)
				return
			}
			out, err := ImportBytes(data, ImportOptions{})
			require.NoError(t, err)
			assert.Empty(t, out.Meshes)
			assert.Empty(t, out.Materials)
			assert.Empty(t, out.Animations)
		})
	}
}

func TestImportGarbage(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":     nil,
		"text":      []byte("this is not an fbx file"),
		"truncated": []byte("Kaydara FBX Binary  \x00\x1a\x00"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ImportBytes(data, ImportOptions{})
			require.Error(t, err)
			var le *LoadError
			require.True(t, errors.As(err, &le), "%T", err)
			assert.NotEmpty(t, le.Description)
			assert.Equal(t, le.Description, err.Error())
		})
	}

	_, err := ImportFile(filepath.Join(t.TempDir(), "missing.fbx"), ImportOptions{})
	var le *LoadError
	assert.True(t, errors.As(err, &le))
}

func TestScenesAreReleased(t *testing.T) {
	before := scene.Live()

	doc := triangleDocument()
	for _, format := range fbxFormats {
		_, err := ExportBytes(doc, ExportOptions{Format: format})
		require.NoError(t, err)
	}
	_, err := ExportFile(doc, filepath.Join(t.TempDir(), "x.fbx"), ExportOptions{})
	require.NoError(t, err)

	_, err = ImportBytes([]byte("garbage"), ImportOptions{})
	require.Error(t, err)

	_, err = ExportBytes(doc, ExportOptions{Version: 1234})
	require.Error(t, err)

	_, err = ExportFile(doc, filepath.Join(t.TempDir(), "missing", "dir", "x.fbx"), ExportOptions{})
	require.Error(t, err)

	assert.Equal(t, before, scene.Live())
}

func TestExportErrors(t *testing.T) {
	doc := triangleDocument()

	_, err := ExportBytes(doc, ExportOptions{Version: 1234})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSceneCreationFailed))

	_, err = ExportBytes(doc, ExportOptions{Format: "obj"})
	assert.Error(t, err)

	_, err = ExportFile(doc, filepath.Join(t.TempDir(), "missing", "x.fbx"), ExportOptions{})
	require.Error(t, err)
	var se *SaveError
	require.True(t, errors.As(err, &se))
	assert.NotEmpty(t, se.Description)
	assert.Contains(t, err.Error(), "Failed to save FBX: ")
}

func TestAnimationRoundTrip(t *testing.T) {
	doc := document.New()
	doc.Nodes = append(doc.Nodes, document.NewNode(1, "mover"), document.NewNode(2, "still"))
	rot := mgl64.Vec4{0, 0, 0.7071068, 0.7071068}
	doc.Animations = append(doc.Animations, document.Animation{
		ID: 1, Name: "slide", NodeID: document.Uint32(1),
		Keyframes: []document.Keyframe{
			{Time: 1, Translation: document.Vec3(0, 4, 0)},
			{Time: 0, Translation: document.Vec3(0, 0, 0)},
			{Time: 0, Rotation: &mgl64.Vec4{0, 0, 0, 1}},
			{Time: 1, Rotation: &rot},
		},
	})

	for _, format := range fbxFormats {
		t.Run(string(format), func(t *testing.T) {
			data, err := ExportBytes(doc, ExportOptions{Format: format})
			require.NoError(t, err)
			out, err := ImportBytes(data, ImportOptions{ResampleRate: 4})
			require.NoError(t, err)

			require.Len(t, out.Animations, 1)
			anim := out.Animations[0]
			assert.Equal(t, "slide", anim.Name)
			mover := nodeByName(t, out, "mover")
			require.NotNil(t, anim.NodeID)
			assert.Equal(t, mover.ID, *anim.NodeID)

			var translations, rotations []document.Keyframe
			for _, k := range anim.Keyframes {
				require.NotNil(t, k.NodeID)
				assert.Equal(t, mover.ID, *k.NodeID)
				switch k.Channel() {
				case "translation":
					translations = append(translations, k)
				case "rotation":
					rotations = append(rotations, k)
				default:
					t.Errorf("unexpected channel %q", k.Channel())
				}
			}
			require.Len(t, translations, 5)
			require.Len(t, rotations, 5)

			mid := translations[2]
			assert.InDelta(t, 0.5, mid.Time, 1e-6)
			assert.InDelta(t, 2, mid.Translation[1], 1e-4)

			last := rotations[4]
			assert.InDelta(t, 1, last.Time, 1e-6)
			q := mgl64.Quat{W: last.Rotation[3], V: mgl64.Vec3{last.Rotation[0], last.Rotation[1], last.Rotation[2]}}
			want := mgl64.Quat{W: rot[3], V: mgl64.Vec3{rot[0], rot[1], rot[2]}}
			assert.InDelta(t, 1, mgl64.Abs(q.Dot(want)), 1e-4)
		})
	}
}

func TestAnimationWithoutNode(t *testing.T) {
	doc := document.New()
	doc.Nodes = append(doc.Nodes, document.NewNode(1, "n"))
	doc.Animations = append(doc.Animations, document.Animation{
		ID: 1, Name: "orphan",
		Keyframes: []document.Keyframe{
			{Time: 0, Translation: document.Vec3(1, 1, 1)},
			{Time: 0, NodeID: document.Uint32(77), Translation: document.Vec3(1, 1, 1)},
		},
	})
	out := roundTrip(t, doc, FormatBinary)
	for _, anim := range out.Animations {
		assert.Empty(t, anim.Keyframes)
	}
}

func TestExportGLTF(t *testing.T) {
	doc := triangleDocument()
	doc.Materials = append(doc.Materials, document.Material{ID: 2, Name: "m", DiffuseColor: document.Vec3(1, 0, 0)})
	doc.Meshes[0].MaterialIDs = []uint32{2}

	for _, format := range []Format{FormatGLTF, FormatGLB} {
		t.Run(string(format), func(t *testing.T) {
			data, err := ExportBytes(doc, ExportOptions{Format: format})
			require.NoError(t, err)

			gdoc, err := gltfutils.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			require.Len(t, gdoc.Nodes, 1)
			require.Len(t, gdoc.Meshes, 1)
			require.Len(t, gdoc.Materials, 1)
			assert.Equal(t, "tri", gdoc.Nodes[0].Name)
		})
	}
}

func TestParseFormat(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Format
		ext  string
		fbx  bool
	}{
		{"", FormatBinary, ".fbx", true},
		{"binary", FormatBinary, ".fbx", true},
		{"ascii", FormatASCII, ".fbx", true},
		{"gltf", FormatGLTF, ".gltf", false},
		{"glb", FormatGLB, ".glb", false},
	} {
		f, err := ParseFormat(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, f)
		assert.Equal(t, tc.ext, f.Extension())
		assert.Equal(t, tc.fbx, f.IsFBX())
	}

	_, err := ParseFormat("obj")
	assert.Error(t, err)
}
