package scene

import (
	"github.com/go-gl/mathgl/mgl64"
)

type MaterialMap struct {
	Value    mgl64.Vec3
	HasValue bool
}

type PBRMaps struct {
	BaseColor     MaterialMap
	SpecularColor MaterialMap
	EmissionColor MaterialMap
}

type LegacyMaps struct {
	DiffuseColor  MaterialMap
	SpecularColor MaterialMap
	EmissiveColor MaterialMap
}

type ColorProperty struct {
	Name  string
	Value mgl64.Vec3
}

// Material keeps the color properties set on the FBX object itself, in
// file order. Template defaults from Definitions are not applied.
type Material struct {
	Element

	ShadingModel string
	Properties   []ColorProperty

	PBR    PBRMaps
	Legacy LegacyMaps

	// Textures maps a material property to the texture connected to it.
	Textures map[string]*Texture
}

// Property names read into PBR maps, per exporter.
var (
	pbrBaseColorProps     = []string{"Maya|baseColor", "3dsMax|Parameters|base_color"}
	pbrSpecularColorProps = []string{"Maya|specularColor", "3dsMax|Parameters|refl_color"}
	pbrEmissionColorProps = []string{"Maya|emissionColor", "3dsMax|Parameters|emit_color"}
)

// SetVec3 sets or replaces a color property.
func (m *Material) SetVec3(prop string, v mgl64.Vec3) {
	found := false
	for i := range m.Properties {
		if m.Properties[i].Name == prop {
			m.Properties[i].Value = v
			found = true
		}
	}
	if !found {
		m.Properties = append(m.Properties, ColorProperty{Name: prop, Value: v})
	}
	m.updateMaps()
}

func (m *Material) Vec3(prop string) (mgl64.Vec3, bool) {
	for _, p := range m.Properties {
		if p.Name == prop {
			return p.Value, true
		}
	}
	return mgl64.Vec3{}, false
}

func (m *Material) mapFrom(props ...string) MaterialMap {
	for _, name := range props {
		if v, ok := m.Vec3(name); ok {
			return MaterialMap{Value: v, HasValue: true}
		}
	}
	return MaterialMap{}
}

func (m *Material) updateMaps() {
	m.Legacy = LegacyMaps{
		DiffuseColor:  m.mapFrom("DiffuseColor", "Diffuse"),
		SpecularColor: m.mapFrom("SpecularColor", "Specular"),
		EmissiveColor: m.mapFrom("EmissiveColor", "Emissive"),
	}
	m.PBR = PBRMaps{
		BaseColor:     m.mapFrom(pbrBaseColorProps...),
		SpecularColor: m.mapFrom(pbrSpecularColorProps...),
		EmissionColor: m.mapFrom(pbrEmissionColorProps...),
	}
}

func (m *Material) SetTexture(prop string, t *Texture) {
	if m.Textures == nil {
		m.Textures = make(map[string]*Texture)
	}
	m.Textures[prop] = t
}

type Texture struct {
	Element

	Filename         string
	RelativeFilename string
}

func (t *Texture) SetFilename(path string) {
	t.Filename = path
	t.RelativeFilename = path
}
