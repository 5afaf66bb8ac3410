package datasmith

import (
	"bytes"
	"encoding/binary"
	"sort"
	"strconv"

	"github.com/flywave/go3d/vec3"
	"github.com/qmuntal/gltf"
)

const GLTF_VERSION = "2.0"

// MeshToGltf builds a preview document holding one node per mesh. Wedge
// data is written flat; each material slot becomes one indexed primitive.
func MeshToGltf(meshes []*Mesh) (*gltf.Document, error) {
	doc := CreateDoc()
	for _, m := range meshes {
		if err := BuildGltf(doc, m); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func CreateDoc() *gltf.Document {
	doc := &gltf.Document{}
	doc.Asset.Version = GLTF_VERSION
	doc.Asset.Generator = "go-datasmith"
	doc.Scene = gltf.Index(0)
	doc.Scenes = append(doc.Scenes, &gltf.Scene{})
	doc.Buffers = append(doc.Buffers, &gltf.Buffer{})
	return doc
}

func calcPadding(offset, paddingUnit int) int {
	padding := offset % paddingUnit
	if padding != 0 {
		padding = paddingUnit - padding
	}
	return padding
}

// GetGltfBinary encodes doc as glb, padded with spaces to a multiple of
// paddingUnit.
func GetGltfBinary(doc *gltf.Document, paddingUnit int) ([]byte, error) {
	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if padding := calcPadding(buf.Len(), paddingUnit); padding > 0 {
		buf.Write(bytes.Repeat([]byte{0x20}, padding))
	}
	return buf.Bytes(), nil
}

func BuildGltf(doc *gltf.Document, m *Mesh) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if len(doc.Buffers) == 0 {
		doc.Buffers = append(doc.Buffers, &gltf.Buffer{})
	}
	wedges := m.WedgeCount()

	pos := make([]vec3.T, wedges)
	for i, idx := range m.Triangles {
		pos[i] = m.Vertices[idx]
	}
	attrs := make(map[string]uint32)
	posIdx, err := addAccessor(doc, pos, wedges, gltf.AccessorVec3, gltf.ComponentFloat, gltf.TargetArrayBuffer)
	if err != nil {
		return err
	}
	if wedges > 0 {
		lo, hi := bounds(pos)
		doc.Accessors[posIdx].Min = lo[:]
		doc.Accessors[posIdx].Max = hi[:]
	}
	attrs["POSITION"] = posIdx

	if attrs["NORMAL"], err = addAccessor(doc, m.VertexNormals, wedges, gltf.AccessorVec3, gltf.ComponentFloat, gltf.TargetArrayBuffer); err != nil {
		return err
	}
	for c, ch := range m.UVs {
		if attrs["TEXCOORD_"+strconv.Itoa(c)], err = addAccessor(doc, ch, wedges, gltf.AccessorVec2, gltf.ComponentFloat, gltf.TargetArrayBuffer); err != nil {
			return err
		}
	}
	colIdx, err := addAccessor(doc, m.VertexColors, wedges, gltf.AccessorVec4, gltf.ComponentUbyte, gltf.TargetArrayBuffer)
	if err != nil {
		return err
	}
	doc.Accessors[colIdx].Normalized = true
	attrs["COLOR_0"] = colIdx

	groups := make(map[uint32][]uint32)
	for t, slot := range m.TrisMaterialSlot {
		w := uint32(t * 3)
		groups[slot] = append(groups[slot], w, w+1, w+2)
	}
	slots := make([]uint32, 0, len(groups))
	for slot := range groups {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })

	mesh := &gltf.Mesh{Name: m.Name}
	for _, slot := range slots {
		idx, err := addAccessor(doc, groups[slot], len(groups[slot]), gltf.AccessorScalar, gltf.ComponentUint, gltf.TargetElementArrayBuffer)
		if err != nil {
			return err
		}
		ps := &gltf.Primitive{
			Attributes: make(map[string]uint32, len(attrs)),
			Indices:    gltf.Index(idx),
			Material:   gltf.Index(previewMaterial(doc, m.Materials[int(slot)])),
			Mode:       gltf.PrimitiveTriangles,
		}
		for k, v := range attrs {
			ps.Attributes[k] = v
		}
		mesh.Primitives = append(mesh.Primitives, ps)
	}

	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)))
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: m.Name, Mesh: gltf.Index(uint32(len(doc.Meshes)))})
	doc.Meshes = append(doc.Meshes, mesh)
	return nil
}

// addAccessor appends data to the first buffer behind a new view. Every
// element written here is a multiple of 4 bytes, so views stay aligned.
func addAccessor(doc *gltf.Document, data interface{}, count int, at gltf.AccessorType, ct gltf.ComponentType, target gltf.Target) (uint32, error) {
	buffer := doc.Buffers[0]
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
		return 0, err
	}
	view := &gltf.BufferView{
		Buffer:     0,
		ByteOffset: uint32(len(buffer.Data)),
		ByteLength: uint32(buf.Len()),
		Target:     target,
	}
	buffer.Data = append(buffer.Data, buf.Bytes()...)
	buffer.ByteLength = uint32(len(buffer.Data))
	doc.BufferViews = append(doc.BufferViews, view)

	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView:    gltf.Index(uint32(len(doc.BufferViews) - 1)),
		ComponentType: ct,
		Count:         uint32(count),
		Type:          at,
	})
	return uint32(len(doc.Accessors) - 1), nil
}

func bounds(pos []vec3.T) (lo, hi vec3.T) {
	lo, hi = pos[0], pos[0]
	for _, p := range pos[1:] {
		for k := 0; k < 3; k++ {
			if p[k] < lo[k] {
				lo[k] = p[k]
			}
			if p[k] > hi[k] {
				hi[k] = p[k]
			}
		}
	}
	return lo, hi
}

// previewMaterial returns the index of a flat grey material named name,
// shared by every primitive using that name.
func previewMaterial(doc *gltf.Document, name string) uint32 {
	if name == "" {
		name = DEFAULT_MATERIAL
	}
	for i, mtl := range doc.Materials {
		if mtl.Name == name {
			return uint32(i)
		}
	}
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name:        name,
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{0.8, 0.8, 0.8, 1},
			MetallicFactor:  gltf.Float(0),
		},
	})
	return uint32(len(doc.Materials) - 1)
}
