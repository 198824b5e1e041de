package fbx

import (
	"path/filepath"
	"sort"

	"github.com/mogaika/fbx/builders/bfbx73"
	"github.com/pkg/errors"
)

const FBX_CREATOR = "FBX SDK/FBX Plugins version 2013.3 build=20121223"
const FBX_APPLICATION_VENDOR = "fbxdoc"
const FBX_APPLICATION_NAME = "fbxdoc"
const FBX_APPLICATION_VERSION = "1.0"
const FBX_DATE_TIME_GMT = "01/01/1970 00:00:00.000"
const FBX_CREATION_TIME = "1970-01-01 10:00:00:000"

var FBX_FILE_ID []byte = []byte{
	0x28, 0xb3, 0x2a, 0xeb, 0xb6, 0x24, 0xcc, 0xc2,
	0xbf, 0xc8, 0xb0, 0x2a, 0xa9, 0x2b, 0xfc, 0xf1}

type BuilderOptions struct {
	Version  uint32
	Creator  string
	Filename string
}

// Builder assembles an FBX document: fixed headers and templates, an
// Objects list and a Connections list.
type Builder struct {
	f      *File
	lastId int64
	counts map[string]int32

	objects     *Node
	connections *Node
}

func NewBuilder(opts BuilderOptions) (*Builder, error) {
	if !SupportedVersion(opts.Version) {
		return nil, errors.Errorf("Unsupported FBX version %d", opts.Version)
	}
	if opts.Creator == "" {
		opts.Creator = FBX_CREATOR
	}
	b := &Builder{
		f:           newFile(opts.Version, true),
		lastId:      1000000,
		counts:      make(map[string]int32),
		objects:     bfbx73.Objects(),
		connections: bfbx73.Connections(),
	}
	b.createHeaders(opts)
	return b, nil
}

// propertyTemplate is a Definitions entry with the defaults objects of
// objectType inherit.
type propertyTemplate struct {
	objectType string
	class      string
	props      [][]interface{}
}

var propertyTemplates = []propertyTemplate{
	{"Model", "FbxNode", [][]interface{}{
		{"QuaternionInterpolate", "enum", "", "", int32(0)},
		{"RotationOrder", "enum", "", "", int32(0)},
		{"Show", "bool", "", "", int32(1)},
		{"Lcl Translation", "Lcl Translation", "", "A", float64(0), float64(0), float64(0)},
		{"Lcl Rotation", "Lcl Rotation", "", "A", float64(0), float64(0), float64(0)},
		{"Lcl Scaling", "Lcl Scaling", "", "A", float64(1), float64(1), float64(1)},
		{"Visibility", "Visibility", "", "A", float64(1)},
		{"Visibility Inheritance", "Visibility Inheritance", "", "", int32(1)},
	}},
	{"Material", "FbxSurfacePhong", [][]interface{}{
		{"ShadingModel", "KString", "", "", "Phong"},
		{"MultiLayer", "bool", "", "", int32(0)},
		{"EmissiveColor", "Color", "", "A", float64(0), float64(0), float64(0)},
		{"EmissiveFactor", "Number", "", "A", float64(1)},
		{"AmbientColor", "Color", "", "A", float64(0.2), float64(0.2), float64(0.2)},
		{"AmbientFactor", "Number", "", "A", float64(1)},
		{"DiffuseColor", "Color", "", "A", float64(1), float64(1), float64(1)},
		{"DiffuseFactor", "Number", "", "A", float64(1)},
		{"SpecularColor", "Color", "", "A", float64(0.2), float64(0.2), float64(0.2)},
		{"SpecularFactor", "Number", "", "A", float64(1)},
	}},
	{"Texture", "FbxFileTexture", [][]interface{}{
		{"TextureTypeUse", "enum", "", "", int32(0)},
		{"Texture alpha", "Number", "", "A", float64(1)},
		{"CurrentMappingType", "enum", "", "", int32(0)},
		{"WrapModeU", "enum", "", "", int32(0)},
		{"WrapModeV", "enum", "", "", int32(0)},
		{"UVSwap", "bool", "", "", int32(0)},
		{"PremultiplyAlpha", "bool", "", "", int32(1)},
		{"UseMaterial", "bool", "", "", int32(0)},
		{"UseMipMap", "bool", "", "", int32(0)},
	}},
	{"Geometry", "FbxMesh", [][]interface{}{
		{"Color", "ColorRGB", "Color", "", float64(1), float64(1), float64(1)},
		{"Primary Visibility", "bool", "", "", int32(1)},
		{"Casts Shadows", "bool", "", "", int32(1)},
		{"Receive Shadows", "bool", "", "", int32(1)},
	}},
	{"NodeAttribute", "FbxNull", [][]interface{}{
		{"Size", "double", "Number", "", float64(100)},
		{"Look", "enum", "", "", int32(1)},
	}},
}

// Y up, Z front, X right, centimeters, 30 fps.
var globalSettings = [][]interface{}{
	{"UpAxis", "int", "Integer", "", int32(1)},
	{"UpAxisSign", "int", "Integer", "", int32(1)},
	{"FrontAxis", "int", "Integer", "", int32(2)},
	{"FrontAxisSign", "int", "Integer", "", int32(1)},
	{"CoordAxis", "int", "Integer", "", int32(0)},
	{"CoordAxisSign", "int", "Integer", "", int32(1)},
	{"OriginalUpAxis", "int", "Integer", "", int32(1)},
	{"OriginalUpAxisSign", "int", "Integer", "", int32(1)},
	{"UnitScaleFactor", "double", "Number", "", float64(1)},
	{"OriginalUnitScaleFactor", "double", "Number", "", float64(1)},
	{"AmbientColor", "ColorRGB", "Color", "", float64(0), float64(0), float64(0)},
	{"TimeMode", "enum", "", "", int32(6)},
}

// properties70 builds a Properties70 node from rows of P values.
func properties70(rows [][]interface{}) *Node {
	p70 := bfbx73.Properties70()
	for _, row := range rows {
		p70.AddNode(NewNode("P", row...))
	}
	return p70
}

func sceneInfoProperties(filename string) [][]interface{} {
	rows := [][]interface{}{
		{"DocumentUrl", "KString", "Url", "", filename},
		{"SrcDocumentUrl", "KString", "Url", "", filename},
	}
	for _, section := range []string{"Original", "LastSaved"} {
		rows = append(rows,
			[]interface{}{section, "Compound", "", ""},
			[]interface{}{section + "|ApplicationVendor", "KString", "", "", FBX_APPLICATION_VENDOR},
			[]interface{}{section + "|ApplicationName", "KString", "", "", FBX_APPLICATION_NAME},
			[]interface{}{section + "|ApplicationVersion", "KString", "", "", FBX_APPLICATION_VERSION},
			[]interface{}{section + "|DateTime_GMT", "DateTime", "", "", FBX_DATE_TIME_GMT},
		)
		if section == "Original" {
			rows = append(rows, []interface{}{"Original|FileName", "KString", "", "", filepath.Base(filename)})
		}
	}
	return rows
}

func (b *Builder) createHeaders(opts BuilderOptions) {
	metaData := bfbx73.MetaData().AddNodes(bfbx73.Version(100))
	for _, name := range []string{"Title", "Subject", "Author", "Keywords", "Revision", "Comment"} {
		metaData.AddNode(NewNode(name, ""))
	}

	definitions := bfbx73.Definitions().AddNodes(
		bfbx73.Version(100),
		bfbx73.Count(1),
		bfbx73.ObjectType("GlobalSettings").AddNodes(bfbx73.Count(1)),
	)
	for _, t := range propertyTemplates {
		definitions.AddNode(bfbx73.ObjectType(t.objectType).AddNodes(
			bfbx73.Count(0),
			bfbx73.PropertyTemplate(t.class).AddNodes(properties70(t.props)),
		))
	}

	b.Root().AddNodes(
		bfbx73.FBXHeaderExtension().AddNodes(
			bfbx73.FBXHeaderVersion(1003),
			bfbx73.FBXVersion(int32(opts.Version)),
			bfbx73.EncryptionType(0),
			bfbx73.CreationTimeStamp().AddNodes(
				bfbx73.Version(1000),
				bfbx73.Year(1970),
				bfbx73.Month(1),
				bfbx73.Day(1),
				bfbx73.Hour(10),
				bfbx73.Minute(0),
				bfbx73.Second(0),
				bfbx73.Millisecond(0),
			),
			bfbx73.Creator(opts.Creator),
			bfbx73.SceneInfo(JoinName("GlobalInfo", "SceneInfo"), "UserData").AddNodes(
				bfbx73.Type("UserData"),
				bfbx73.Version(100),
				metaData,
				properties70(sceneInfoProperties(opts.Filename)),
			),
		),
		bfbx73.FileId(FBX_FILE_ID),
		bfbx73.CreationTime(FBX_CREATION_TIME),
		bfbx73.Creator(opts.Creator),
		bfbx73.GlobalSettings().AddNodes(
			bfbx73.Version(1000),
			properties70(globalSettings),
		),
		bfbx73.Documents().AddNodes(
			bfbx73.Count(1),
			bfbx73.Document(b.GenerateId(), "Scene", "Scene").AddNodes(
				properties70([][]interface{}{
					{"SourceObject", "object", "", ""},
					{"ActiveAnimStackName", "KString", "", "", ""},
				}),
				bfbx73.RootNode(0),
			),
		),
		bfbx73.References(),
		definitions,
		b.objects,
		b.connections,
		bfbx73.Takes().AddNodes(
			bfbx73.Current(""),
		),
	)
}

// countDefinitions writes per object type counts into Definitions.
func (b *Builder) countDefinitions() {
	definitions := Child(b.Root(), "Definitions")
	totalCount := int32(1) // 1 for GlobalSettings

	names := make([]string, 0, len(b.counts))
	for name := range b.counts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		count := b.counts[name]
		totalCount += count

		var objectType *Node
		for _, ot := range Children(definitions, "ObjectType") {
			if s, _ := PropString(ot, 0); s == name {
				objectType = ot
			}
		}
		if objectType == nil {
			objectType = bfbx73.ObjectType(name)
			definitions.AddNode(objectType)
		}

		objectType.GetOrAddNode(bfbx73.Count(0)).Properties[0] = count
	}

	definitions.GetOrAddNode(bfbx73.Count(0)).Properties[0] = totalCount
}

func (b *Builder) Root() *Node {
	return b.f.Root()
}

func (b *Builder) GenerateId() int64 {
	b.lastId++
	return b.lastId
}

func (b *Builder) AddObjects(nodes ...*Node) {
	for _, n := range nodes {
		b.counts[n.Name]++
	}
	b.objects.AddNodes(nodes...)
}

func (b *Builder) AddConnections(nodes ...*Node) { b.connections.AddNodes(nodes...) }

// SetActiveTake records the default animation stack name.
func (b *Builder) SetActiveTake(name string) {
	takes := Child(b.Root(), "Takes")
	takes.GetOrAddNode(bfbx73.Current("")).Properties[0] = name
}

// File finalizes the definitions and returns the document.
func (b *Builder) File() *File {
	b.countDefinitions()
	return b.f
}
