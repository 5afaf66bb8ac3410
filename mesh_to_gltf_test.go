package datasmith

import (
	"bytes"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeshToGltf(t *testing.T) {
	a := triangleMesh("A", 3, 2)
	b := triangleMesh("B", 1, 0)
	doc, err := MeshToGltf([]*Mesh{a, b})
	require.NoError(t, err)

	require.Len(t, doc.Meshes, 2)
	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, []uint32{0, 1}, doc.Scenes[0].Nodes)
	assert.Equal(t, "A", doc.Nodes[0].Name)

	// slots 0 and 1 alternate per triangle in A
	prims := doc.Meshes[0].Primitives
	require.Len(t, prims, 2)
	assert.EqualValues(t, 6, doc.Accessors[*prims[0].Indices].Count)
	assert.EqualValues(t, 3, doc.Accessors[*prims[1].Indices].Count)
	assert.Contains(t, prims[0].Attributes, "TEXCOORD_1")
	assert.NotContains(t, doc.Meshes[1].Primitives[0].Attributes, "TEXCOORD_0")

	pos := doc.Accessors[prims[0].Attributes["POSITION"]]
	assert.EqualValues(t, 9, pos.Count)
	assert.Equal(t, []float32{0, 0, 0}, pos.Min)
	assert.Equal(t, []float32{3, 1, 0}, pos.Max)
	assert.True(t, doc.Accessors[prims[0].Attributes["COLOR_0"]].Normalized)

	// "Mat" is shared, the unnamed slot falls back to the default material
	require.Len(t, doc.Materials, 2)
	assert.Equal(t, "Mat", doc.Materials[0].Name)
	assert.Equal(t, DEFAULT_MATERIAL, doc.Materials[1].Name)
	assert.Equal(t, uint32(0), *doc.Meshes[1].Primitives[0].Material)

	buffer := doc.Buffers[0]
	assert.EqualValues(t, len(buffer.Data), buffer.ByteLength)
	for _, v := range doc.BufferViews {
		assert.Zero(t, v.ByteOffset%4)
	}
}

func TestMeshToGltfRejectsInvalid(t *testing.T) {
	m := triangleMesh("A", 1, 0)
	m.VertexColors = nil
	_, err := MeshToGltf([]*Mesh{m})
	assert.ErrorIs(t, err, ErrInvalidMesh)
}

func TestGetGltfBinary(t *testing.T) {
	doc, err := MeshToGltf([]*Mesh{triangleMesh("A", 2, 1)})
	require.NoError(t, err)
	padded, err := GetGltfBinary(doc, 64)
	require.NoError(t, err)
	assert.Zero(t, len(padded)%64)

	bt, err := GetGltfBinary(doc, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("glTF"), bt[:4])
	assert.Equal(t, bt, padded[:len(bt)])

	back := new(gltf.Document)
	require.NoError(t, gltf.NewDecoder(bytes.NewReader(bt)).Decode(back))
	require.Len(t, back.Meshes, 1)
	assert.Equal(t, "A", back.Meshes[0].Name)
}

func TestCalcPadding(t *testing.T) {
	assert.Equal(t, 0, calcPadding(16, 8))
	assert.Equal(t, 3, calcPadding(13, 8))
	assert.Equal(t, 1, calcPadding(3, 4))
}
