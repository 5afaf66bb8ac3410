package datasmith

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/flywave/go3d/quaternion"
	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngDataURI(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// twoPrimitiveDoc holds one mesh with an indexed, textured primitive and a
// plain primitive carrying its own normals and colors.
func twoPrimitiveDoc(t *testing.T) *gltf.Document {
	var buf bytes.Buffer
	le := binary.LittleEndian
	binary.Write(&buf, le, []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}) // 0: positions
	binary.Write(&buf, le, []float32{0, 0, 1, 0, 0, 1})          // 36: uvs
	binary.Write(&buf, le, []uint16{2, 1, 0, 0})                 // 60: indices + pad
	binary.Write(&buf, le, []float32{0, 1, 0, 0, 1, 0, 0, 1, 0}) // 68: normals
	binary.Write(&buf, le, []float32{1, 0, 0, 1, 0, 0, 1, 0, 0}) // 104: colors

	return &gltf.Document{
		Buffers: []*gltf.Buffer{{ByteLength: uint32(buf.Len()), Data: buf.Bytes()}},
		BufferViews: []*gltf.BufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 36},
			{Buffer: 0, ByteOffset: 36, ByteLength: 24},
			{Buffer: 0, ByteOffset: 60, ByteLength: 6},
			{Buffer: 0, ByteOffset: 68, ByteLength: 36},
			{Buffer: 0, ByteOffset: 104, ByteLength: 36},
		},
		Accessors: []*gltf.Accessor{
			{BufferView: gltf.Index(0), ComponentType: gltf.ComponentFloat, Count: 3, Type: gltf.AccessorVec3},
			{BufferView: gltf.Index(1), ComponentType: gltf.ComponentFloat, Count: 3, Type: gltf.AccessorVec2},
			{BufferView: gltf.Index(2), ComponentType: gltf.ComponentUshort, Count: 3, Type: gltf.AccessorScalar},
			{BufferView: gltf.Index(3), ComponentType: gltf.ComponentFloat, Count: 3, Type: gltf.AccessorVec3},
			{BufferView: gltf.Index(4), ComponentType: gltf.ComponentFloat, Count: 3, Type: gltf.AccessorVec3},
		},
		Images:   []*gltf.Image{{Name: "paint", URI: pngDataURI(t)}},
		Textures: []*gltf.Texture{{Source: gltf.Index(0)}},
		Materials: []*gltf.Material{{
			Name:        "Red Paint",
			DoubleSided: true,
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor:  &[4]float32{1, 0, 0, 1},
				BaseColorTexture: &gltf.TextureInfo{Index: 0},
				MetallicFactor:   gltf.Float(0),
			},
		}},
		Meshes: []*gltf.Mesh{{
			Name: "Tri",
			Primitives: []*gltf.Primitive{
				{
					Mode:       gltf.PrimitiveTriangles,
					Attributes: map[string]uint32{"POSITION": 0, "TEXCOORD_0": 1},
					Indices:    gltf.Index(2),
					Material:   gltf.Index(0),
				},
				{
					Mode:       gltf.PrimitiveTriangles,
					Attributes: map[string]uint32{"POSITION": 0, "NORMAL": 3, "COLOR_0": 4},
				},
				{
					Mode:       gltf.PrimitiveLines,
					Attributes: map[string]uint32{"POSITION": 0},
				},
			},
		}},
		Nodes: []*gltf.Node{
			{Name: "Root", Children: []uint32{1}, Scale: [3]float32{1, 1, 1}, Rotation: [4]float32{0, 0, 0, 1}},
			{Name: "TriActor", Mesh: gltf.Index(0), Translation: [3]float32{1, 2, 3}, Scale: [3]float32{2, 2, 2}, Rotation: [4]float32{0, 0, 0, 1}},
		},
		Scenes: []*gltf.Scene{{Nodes: []uint32{0}}},
		Scene:  gltf.Index(0),
	}
}

func TestConvertGltfGeometry(t *testing.T) {
	s, err := ConvertGltf(twoPrimitiveDoc(t), t.TempDir(), "Doc")
	require.NoError(t, err)
	require.Len(t, s.Meshes, 1)
	m := s.Meshes[0]

	assert.Equal(t, "Tri", m.Name)
	require.NoError(t, m.Validate())
	assert.Equal(t, 6, m.WedgeCount())
	assert.Equal(t, []uint32{2, 1, 0, 3, 4, 5}, m.Triangles)
	assert.Len(t, m.Vertices, 6)

	// first face is wound 2,1,0 so its flat normal points down
	for i := 0; i < 3; i++ {
		assert.Equal(t, vec3.T{0, 0, -1}, m.VertexNormals[i])
		assert.Equal(t, [4]uint8{255, 255, 255, 255}, m.VertexColors[i])
	}
	for i := 3; i < 6; i++ {
		assert.Equal(t, vec3.T{0, 1, 0}, m.VertexNormals[i])
		assert.Equal(t, [4]uint8{255, 0, 0, 255}, m.VertexColors[i])
	}

	require.Len(t, m.UVs, 1)
	assert.Equal(t, []vec2.T{{0, 1}, {1, 0}, {0, 0}, {}, {}, {}}, m.UVs[0])
	assert.Equal(t, []uint32{0, 1}, m.TrisMaterialSlot)
	assert.Equal(t, map[int]string{0: "Red_Paint", 1: DEFAULT_MATERIAL}, m.Materials)
}

func TestConvertGltfMaterials(t *testing.T) {
	s, err := ConvertGltf(twoPrimitiveDoc(t), t.TempDir(), "Doc")
	require.NoError(t, err)
	require.Len(t, s.Materials, 2)
	require.Len(t, s.Textures, 1)
	assert.Equal(t, "paint", s.Textures[0].Name)
	assert.False(t, s.Textures[0].Source.IsData())

	red := s.Materials[0].Node().String()
	assert.Contains(t, red, `<KeyValueProperty name="Color" type="Color" val="(R=1.000000,G=0.000000,B=0.000000,A=1.000000)"/>`)
	assert.Contains(t, red, `<KeyValueProperty name="ColorMap" type="Texture" val="paint"/>`)
	assert.Contains(t, red, `<KeyValueProperty name="Metallic" type="Float" val="0.000000"/>`)
	assert.Contains(t, red, `<KeyValueProperty name="Roughness" type="Float" val="1.000000"/>`)
	assert.Contains(t, red, `<KeyValueProperty name="TwoSided" type="Bool" val="true"/>`)
	assert.Equal(t, DEFAULT_MATERIAL, s.Materials[1].Name)
}

func TestConvertGltfNodes(t *testing.T) {
	s, err := ConvertGltf(twoPrimitiveDoc(t), t.TempDir(), "Doc")
	require.NoError(t, err)
	require.Len(t, s.Actors, 1)
	root := s.Actors[0]
	assert.Equal(t, "Root", root.Name)
	assert.Empty(t, root.Mesh)
	require.Len(t, root.Children, 1)

	a := root.Children[0]
	assert.Equal(t, "TriActor", a.Name)
	assert.Equal(t, "Tri", a.Mesh)
	assert.Equal(t, vec3.T{1, 2, 3}, a.Translation)
	assert.Equal(t, vec3.T{2, 2, 2}, a.Scale)
	assert.Equal(t, quaternion.Ident, a.Rotation)
}

func TestConvertGltfNodeDefaults(t *testing.T) {
	doc := twoPrimitiveDoc(t)
	doc.Scene = nil
	doc.Nodes = []*gltf.Node{{Mesh: gltf.Index(0)}}
	s, err := ConvertGltf(doc, t.TempDir(), "Doc")
	require.NoError(t, err)
	require.Len(t, s.Actors, 1)
	a := s.Actors[0]
	assert.Equal(t, "Node_0", a.Name)
	assert.Equal(t, vec3.T{1, 1, 1}, a.Scale)
	assert.Equal(t, quaternion.Ident, a.Rotation)
}

func TestConvertGltfUniqueNames(t *testing.T) {
	doc := twoPrimitiveDoc(t)
	doc.Meshes = append(doc.Meshes, doc.Meshes[0])
	s, err := ConvertGltf(doc, t.TempDir(), "Doc")
	require.NoError(t, err)
	require.Len(t, s.Meshes, 2)
	assert.Equal(t, "Tri", s.Meshes[0].Name)
	assert.Equal(t, "Tri_1", s.Meshes[1].Name)
	// materials are shared between meshes
	assert.Len(t, s.Materials, 2)
}

func TestConvertGltfErrors(t *testing.T) {
	cycle := twoPrimitiveDoc(t)
	cycle.Nodes[1].Children = []uint32{0}
	_, err := ConvertGltf(cycle, t.TempDir(), "Doc")
	assert.Error(t, err)

	badIndex := twoPrimitiveDoc(t)
	binary.LittleEndian.PutUint16(badIndex.Buffers[0].Data[60:], 7)
	_, err = ConvertGltf(badIndex, t.TempDir(), "Doc")
	assert.Error(t, err)

	noPos := twoPrimitiveDoc(t)
	delete(noPos.Meshes[0].Primitives[1].Attributes, "POSITION")
	_, err = ConvertGltf(noPos, t.TempDir(), "Doc")
	assert.Error(t, err)

	short := twoPrimitiveDoc(t)
	short.Accessors[0].Count = 40
	_, err = ConvertGltf(short, t.TempDir(), "Doc")
	assert.Error(t, err)
}

func TestGltfToSceneExport(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "my model.glb")
	require.NoError(t, gltf.SaveBinary(twoPrimitiveDoc(t), in))

	s, err := GltfToScene(in)
	require.NoError(t, err)
	assert.Equal(t, "my_model", s.Name)

	out := filepath.Join(dir, "out")
	require.NoError(t, s.Export(context.Background(), out, testOptions()))
	for _, name := range []string{"my_model.udatasmith", "my_model_Assets/Tri.udsmesh", "my_model_Assets/paint.png"} {
		_, err := os.Stat(filepath.Join(out, filepath.FromSlash(name)))
		assert.NoError(t, err, name)
	}

	back, err := MeshReadFrom(filepath.Join(out, "my_model_Assets", "Tri.udsmesh"))
	require.NoError(t, err)
	assert.Equal(t, s.Meshes[0].Triangles, back.Triangles)
	assert.Equal(t, s.Meshes[0].UVs, back.UVs)
}

func TestConvertGltfShortNormals(t *testing.T) {
	doc := twoPrimitiveDoc(t)
	doc.Accessors[3].Count = 2
	s, err := ConvertGltf(doc, t.TempDir(), "Doc")
	require.NoError(t, err)
	m := s.Meshes[0]
	require.Len(t, m.VertexNormals, 6)
	assert.Equal(t, vec3.T{0, 1, 0}, m.VertexNormals[3])
	assert.Equal(t, vec3.T{0, 1, 0}, m.VertexNormals[4])
	assert.Equal(t, vec3.T{0, 0, 1}, m.VertexNormals[5])
}
