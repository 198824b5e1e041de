package document

import (
	"reflect"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/fbxdoc/attrib"
	"github.com/mogaika/fbxdoc/logger"
)

// ToMap encodes the document as nested string keyed maps. Vector
// attributes use the flat form.
func (d *Document) ToMap() map[string]interface{} {
	nodes := make([]interface{}, len(d.Nodes))
	for i := range d.Nodes {
		nodes[i] = d.Nodes[i].toMap()
	}
	meshes := make([]interface{}, len(d.Meshes))
	for i := range d.Meshes {
		meshes[i] = d.Meshes[i].toMap()
	}
	materials := make([]interface{}, len(d.Materials))
	for i := range d.Materials {
		materials[i] = d.Materials[i].toMap()
	}
	textures := make([]interface{}, len(d.Textures))
	for i := range d.Textures {
		textures[i] = d.Textures[i].toMap()
	}
	animations := make([]interface{}, len(d.Animations))
	for i := range d.Animations {
		animations[i] = d.Animations[i].toMap()
	}

	return map[string]interface{}{
		"version":    d.Version,
		"nodes":      nodes,
		"meshes":     meshes,
		"materials":  materials,
		"textures":   textures,
		"animations": animations,
	}
}

func (n *Node) toMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":          n.ID,
		"name":        n.Name,
		"translation": attrib.EncodeVec3(n.Translation),
		"rotation":    attrib.EncodeQuat(n.Rotation),
		"scale":       attrib.EncodeVec3(n.Scale),
	}
	if n.ParentID != nil {
		m["parent_id"] = *n.ParentID
	}
	if n.Children != nil {
		m["children"] = append([]uint32{}, n.Children...)
	}
	if n.MeshID != nil {
		m["mesh_id"] = *n.MeshID
	}
	return m
}

func (mesh *Mesh) toMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":           mesh.ID,
		"name":         mesh.Name,
		"indices":      ids(mesh.Indices),
		"material_ids": ids(mesh.MaterialIDs),
	}
	if mesh.Positions != nil {
		m["positions"] = attrib.Flatten3(mesh.Positions)
	}
	if mesh.Normals != nil {
		m["normals"] = attrib.Flatten3(mesh.Normals)
	}
	if mesh.Texcoords != nil {
		m["texcoords"] = attrib.Flatten2(mesh.Texcoords)
	}
	return m
}

func (mat *Material) toMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":   mat.ID,
		"name": mat.Name,
	}
	if mat.DiffuseColor != nil {
		m["diffuse_color"] = attrib.EncodeVec3(*mat.DiffuseColor)
	}
	if mat.SpecularColor != nil {
		m["specular_color"] = attrib.EncodeVec3(*mat.SpecularColor)
	}
	if mat.EmissiveColor != nil {
		m["emissive_color"] = attrib.EncodeVec3(*mat.EmissiveColor)
	}
	return m
}

func (t *Texture) toMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":   t.ID,
		"name": t.Name,
	}
	if t.FilePath != nil {
		m["file_path"] = *t.FilePath
	}
	return m
}

func (a *Animation) toMap() map[string]interface{} {
	keyframes := make([]interface{}, len(a.Keyframes))
	for i := range a.Keyframes {
		keyframes[i] = a.Keyframes[i].toMap()
	}
	m := map[string]interface{}{
		"id":        a.ID,
		"name":      a.Name,
		"keyframes": keyframes,
	}
	if a.NodeID != nil {
		m["node_id"] = *a.NodeID
	}
	return m
}

func (k *Keyframe) toMap() map[string]interface{} {
	m := map[string]interface{}{
		"time": k.Time,
	}
	if k.NodeID != nil {
		m["node_id"] = *k.NodeID
	}
	if k.Translation != nil {
		m["translation"] = attrib.EncodeVec3(*k.Translation)
	}
	if k.Rotation != nil {
		m["rotation"] = attrib.EncodeQuat(*k.Rotation)
	}
	if k.Scale != nil {
		m["scale"] = attrib.EncodeVec3(*k.Scale)
	}
	return m
}

func ids(in []uint32) []uint32 {
	if in == nil {
		return []uint32{}
	}
	return append([]uint32{}, in...)
}

// FromMap decodes the wire map form. Decoding is tolerant: vectors of the
// wrong shape fall back to their defaults and malformed attribute arrays
// are dropped, so only a nil map is an error.
func FromMap(m map[string]interface{}) (*Document, error) {
	if m == nil {
		return nil, errors.New("nil document map")
	}

	d := New()
	d.Version, _ = m["version"].(string)

	for _, item := range list(m["nodes"]) {
		if nm := asMap(item); nm != nil {
			d.Nodes = append(d.Nodes, nodeFromMap(nm))
		}
	}
	for _, item := range list(m["meshes"]) {
		if mm := asMap(item); mm != nil {
			d.Meshes = append(d.Meshes, meshFromMap(mm))
		}
	}
	for _, item := range list(m["materials"]) {
		if mm := asMap(item); mm != nil {
			d.Materials = append(d.Materials, Material{
				ID:            id(mm),
				Name:          str(mm["name"]),
				DiffuseColor:  attrib.DecodeColor(mm["diffuse_color"]),
				SpecularColor: attrib.DecodeColor(mm["specular_color"]),
				EmissiveColor: attrib.DecodeColor(mm["emissive_color"]),
			})
		}
	}
	for _, item := range list(m["textures"]) {
		if tm := asMap(item); tm != nil {
			t := Texture{ID: id(tm), Name: str(tm["name"])}
			if p, ok := tm["file_path"].(string); ok {
				t.FilePath = &p
			}
			d.Textures = append(d.Textures, t)
		}
	}
	for _, item := range list(m["animations"]) {
		if am := asMap(item); am != nil {
			d.Animations = append(d.Animations, animationFromMap(am))
		}
	}

	return d, nil
}

func nodeFromMap(m map[string]interface{}) Node {
	n := Node{
		ID:          id(m),
		Name:        str(m["name"]),
		ParentID:    attrib.DecodeOptionalUint32(m["parent_id"]),
		Children:    attrib.DecodeUint32List(m["children"]),
		Translation: attrib.DecodeTranslation(m["translation"]),
		Rotation:    attrib.DecodeQuat(m["rotation"]),
		Scale:       attrib.DecodeScale(m["scale"]),
		MeshID:      attrib.DecodeOptionalUint32(m["mesh_id"]),
	}
	return n
}

func meshFromMap(m map[string]interface{}) Mesh {
	mesh := Mesh{
		ID:          id(m),
		Name:        str(m["name"]),
		MaterialIDs: attrib.DecodeUint32List(m["material_ids"]),
	}
	var dropped []int
	mesh.Indices, dropped = attrib.DecodeTriangleList(m["indices"])
	if len(dropped) > 0 {
		logger.Debug("dropping malformed triangles", zap.Uint32("mesh_id", mesh.ID), zap.Ints("triangles", dropped))
		mesh.MaterialIDs = dropPositions(mesh.MaterialIDs, dropped)
	}
	mesh.Positions = vec3List(m, "positions", mesh.ID)
	mesh.Normals = vec3List(m, "normals", mesh.ID)
	if v, ok := m["texcoords"]; ok && v != nil {
		uvs, err := attrib.DecodeVec2List(v)
		if err != nil {
			logger.Debug("dropping mesh attribute", zap.Uint32("mesh_id", mesh.ID), zap.String("attribute", "texcoords"), zap.Error(err))
		}
		mesh.Texcoords = uvs
	}
	return mesh
}

// dropPositions removes the per-triangle entries of dropped triangles.
func dropPositions(ids []uint32, dropped []int) []uint32 {
	if ids == nil {
		return nil
	}
	out := make([]uint32, 0, len(ids))
	next := 0
	for i, v := range ids {
		if next < len(dropped) && dropped[next] == i {
			next++
			continue
		}
		out = append(out, v)
	}
	return out
}

func vec3List(m map[string]interface{}, key string, meshID uint32) []mgl64.Vec3 {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	vs, err := attrib.DecodeVec3List(v)
	if err != nil {
		logger.Debug("dropping mesh attribute", zap.Uint32("mesh_id", meshID), zap.String("attribute", key), zap.Error(err))
		return nil
	}
	return vs
}

func animationFromMap(m map[string]interface{}) Animation {
	a := Animation{
		ID:        id(m),
		Name:      str(m["name"]),
		NodeID:    attrib.DecodeOptionalUint32(m["node_id"]),
		Keyframes: []Keyframe{},
	}
	for _, item := range list(m["keyframes"]) {
		km := asMap(item)
		if km == nil {
			continue
		}
		k := Keyframe{NodeID: attrib.DecodeOptionalUint32(km["node_id"])}
		k.Time, _ = attrib.Float(km["time"])
		if v, ok := km["translation"]; ok {
			t := attrib.DecodeTranslation(v)
			k.Translation = &t
		}
		if v, ok := km["rotation"]; ok {
			r := attrib.DecodeQuat(v)
			k.Rotation = &r
		}
		if v, ok := km["scale"]; ok {
			s := attrib.DecodeScale(v)
			k.Scale = &s
		}
		a.Keyframes = append(a.Keyframes, k)
	}
	return a
}

func id(m map[string]interface{}) uint32 {
	v, _ := attrib.DecodeUint32(m["id"])
	return v
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func list(v interface{}) []interface{} {
	if l, ok := v.([]interface{}); ok {
		return l
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// asMap also accepts the interface keyed maps some YAML decoders produce.
func asMap(v interface{}) map[string]interface{} {
	switch m := v.(type) {
	case map[string]interface{}:
		return m
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			if ks, ok := k.(string); ok {
				out[ks] = val
			}
		}
		return out
	}
	return nil
}
