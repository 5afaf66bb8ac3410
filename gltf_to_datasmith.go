package datasmith

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/flywave/go3d/quaternion"
	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
	"github.com/flywave/go3d/vec4"
	"github.com/qmuntal/gltf"
)

const DEFAULT_MATERIAL = "DefaultMaterial"

// GltfToDatasmith turns a glTF document into a Scene. Every glTF mesh
// becomes one Mesh with one material slot per primitive; indexed geometry is
// expanded into wedges.
type GltfToDatasmith struct {
	dir       string
	doc       *gltf.Document
	scene     *Scene
	meshNames map[uint32]string
	materials map[int]string
	textures  map[uint32]*Texture
	names     map[string]bool
}

// GltfToScene opens a .gltf or .glb file and converts it.
func GltfToScene(path string) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ConvertGltf(doc, filepath.Dir(path), SanitizeName(name))
}

// ConvertGltf converts an already loaded document. dir resolves relative
// image URIs.
func ConvertGltf(doc *gltf.Document, dir, name string) (*Scene, error) {
	g := &GltfToDatasmith{
		dir:       dir,
		doc:       doc,
		scene:     NewScene(name),
		meshNames: make(map[uint32]string),
		materials: make(map[int]string),
		textures:  make(map[uint32]*Texture),
		names:     make(map[string]bool),
	}
	for i, mh := range doc.Meshes {
		m, err := g.transMesh(uint32(i), mh)
		if err != nil {
			return nil, err
		}
		g.scene.AddMesh(m)
	}
	if err := g.transNodes(); err != nil {
		return nil, err
	}
	return g.scene, nil
}

// unique suffixes base until it is free within kind.
func (g *GltfToDatasmith) unique(kind, base string) string {
	name := base
	for i := 1; g.names[kind+"/"+name]; i++ {
		name = base + "_" + strconv.Itoa(i)
	}
	g.names[kind+"/"+name] = true
	return name
}

func (g *GltfToDatasmith) transMesh(idx uint32, mh *gltf.Mesh) (*Mesh, error) {
	base := mh.Name
	if base == "" {
		base = "Mesh_" + strconv.Itoa(int(idx))
	}
	m := NewMesh(g.unique("mesh", SanitizeName(base)))
	g.meshNames[idx] = m.Name

	numUV := 0
	for _, ps := range mh.Primitives {
		for c := 0; c < MAX_UV_CHANNELS; c++ {
			if _, ok := ps.Attributes["TEXCOORD_"+strconv.Itoa(c)]; !ok {
				break
			}
			if c+1 > numUV {
				numUV = c + 1
			}
		}
	}
	m.UVs = make([][]vec2.T, numUV)

	for slot, ps := range mh.Primitives {
		if ps.Mode != gltf.PrimitiveTriangles {
			Logger().Warn("skipping non-triangle primitive", "mesh", m.Name, "primitive", slot)
			continue
		}
		matName, err := g.transMaterial(ps.Material)
		if err != nil {
			return nil, err
		}
		m.SetMaterial(slot, matName)
		if err := g.transPrimitive(m, uint32(slot), ps, numUV); err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", m.Name, slot, err)
		}
	}
	return m, nil
}

func (g *GltfToDatasmith) transPrimitive(m *Mesh, slot uint32, ps *gltf.Primitive, numUV int) error {
	posIdx, ok := ps.Attributes["POSITION"]
	if !ok {
		return errors.New("missing POSITION")
	}
	pos, err := g.readFloats(posIdx, 3)
	if err != nil {
		return err
	}
	var indices []uint32
	if ps.Indices != nil {
		if indices, err = g.readIndices(*ps.Indices); err != nil {
			return err
		}
	} else {
		indices = make([]uint32, len(pos))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	indices = indices[:len(indices)/3*3]
	for _, i := range indices {
		if int(i) >= len(pos) {
			return fmt.Errorf("index %d out of %d vertices", i, len(pos))
		}
	}

	var normals, colors [][]float32
	if idx, ok := ps.Attributes["NORMAL"]; ok {
		if normals, err = g.readFloats(idx, 3); err != nil {
			return err
		}
	}
	if idx, ok := ps.Attributes["COLOR_0"]; ok {
		if colors, err = g.readColors(idx); err != nil {
			return err
		}
	}
	uvs := make([][][]float32, numUV)
	for c := 0; c < numUV; c++ {
		if idx, ok := ps.Attributes["TEXCOORD_"+strconv.Itoa(c)]; ok {
			if uvs[c], err = g.readFloats(idx, 2); err != nil {
				return err
			}
		}
	}

	vbase := uint32(len(m.Vertices))
	for _, p := range pos {
		m.Vertices = append(m.Vertices, vec3.T{p[0], p[1], p[2]})
	}
	for t := 0; t < len(indices); t += 3 {
		// wedges without a normal of their own take the flat face normal
		v0, v1, v2 := m.Vertices[vbase+indices[t]], m.Vertices[vbase+indices[t+1]], m.Vertices[vbase+indices[t+2]]
		e1 := vec3.Sub(&v1, &v0)
		e2 := vec3.Sub(&v2, &v0)
		face := vec3.Cross(&e1, &e2)
		if face.Length() > 0 {
			face.Normalize()
		}
		for k := 0; k < 3; k++ {
			i := indices[t+k]
			m.Triangles = append(m.Triangles, vbase+i)
			if normals != nil && int(i) < len(normals) {
				n := normals[i]
				m.VertexNormals = append(m.VertexNormals, vec3.T{n[0], n[1], n[2]})
			} else {
				m.VertexNormals = append(m.VertexNormals, face)
			}
			for c := 0; c < numUV; c++ {
				var uv vec2.T
				if int(i) < len(uvs[c]) {
					uv = vec2.T{uvs[c][i][0], uvs[c][i][1]}
				}
				m.UVs[c] = append(m.UVs[c], uv)
			}
			col := [4]uint8{255, 255, 255, 255}
			if int(i) < len(colors) {
				for j, v := range colors[i] {
					col[j] = toByte(v)
				}
			}
			m.VertexColors = append(m.VertexColors, col)
		}
		m.TrisMaterialSlot = append(m.TrisMaterialSlot, slot)
		m.TrisSmoothingGroup = append(m.TrisSmoothingGroup, 0)
	}
	return nil
}

func toByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}

func componentSize(ct gltf.ComponentType) int {
	switch ct {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		return 1
	case gltf.ComponentShort, gltf.ComponentUshort:
		return 2
	case gltf.ComponentUint, gltf.ComponentFloat:
		return 4
	}
	return 0
}

func accessorComponents(at gltf.AccessorType) int {
	switch at {
	case gltf.AccessorScalar:
		return 1
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4:
		return 4
	}
	return 0
}

// elements returns one byte slice per accessor element. An accessor without
// a buffer view reads as zeros.
func (g *GltfToDatasmith) elements(idx uint32) (*gltf.Accessor, [][]byte, error) {
	if int(idx) >= len(g.doc.Accessors) {
		return nil, nil, fmt.Errorf("accessor %d out of range", idx)
	}
	acc := g.doc.Accessors[idx]
	csize := componentSize(acc.ComponentType)
	comps := accessorComponents(acc.Type)
	if csize == 0 || comps == 0 {
		return nil, nil, fmt.Errorf("accessor %d: unsupported layout", idx)
	}
	esize := csize * comps
	out := make([][]byte, acc.Count)
	if acc.BufferView == nil {
		zero := make([]byte, esize)
		for i := range out {
			out[i] = zero
		}
		return acc, out, nil
	}
	if int(*acc.BufferView) >= len(g.doc.BufferViews) {
		return nil, nil, fmt.Errorf("accessor %d: buffer view out of range", idx)
	}
	view := g.doc.BufferViews[*acc.BufferView]
	if int(view.Buffer) >= len(g.doc.Buffers) {
		return nil, nil, fmt.Errorf("accessor %d: buffer out of range", idx)
	}
	data := g.doc.Buffers[view.Buffer].Data
	stride := int(view.ByteStride)
	if stride == 0 {
		stride = esize
	}
	start := int(view.ByteOffset) + int(acc.ByteOffset)
	for i := range out {
		off := start + i*stride
		if off+esize > len(data) {
			return nil, nil, fmt.Errorf("accessor %d: element %d past end of buffer", idx, i)
		}
		out[i] = data[off : off+esize]
	}
	return acc, out, nil
}

func (g *GltfToDatasmith) readIndices(idx uint32) ([]uint32, error) {
	acc, els, err := g.elements(idx)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, len(els))
	for i, e := range els {
		switch acc.ComponentType {
		case gltf.ComponentUbyte:
			out[i] = uint32(e[0])
		case gltf.ComponentUshort:
			out[i] = uint32(binary.LittleEndian.Uint16(e))
		case gltf.ComponentUint:
			out[i] = binary.LittleEndian.Uint32(e)
		default:
			return nil, fmt.Errorf("accessor %d: invalid index component type", idx)
		}
	}
	return out, nil
}

// readFloats decodes float or normalized integer attributes, keeping at
// most n components per element.
func (g *GltfToDatasmith) readFloats(idx uint32, n int) ([][]float32, error) {
	acc, els, err := g.elements(idx)
	if err != nil {
		return nil, err
	}
	comps := accessorComponents(acc.Type)
	if comps < n {
		n = comps
	}
	csize := componentSize(acc.ComponentType)
	out := make([][]float32, len(els))
	for i, e := range els {
		v := make([]float32, n)
		for c := 0; c < n; c++ {
			b := e[c*csize:]
			switch acc.ComponentType {
			case gltf.ComponentFloat:
				v[c] = math.Float32frombits(binary.LittleEndian.Uint32(b))
			case gltf.ComponentUbyte:
				v[c] = float32(b[0]) / 255
			case gltf.ComponentByte:
				v[c] = float32(math.Max(float64(int8(b[0]))/127, -1))
			case gltf.ComponentUshort:
				v[c] = float32(binary.LittleEndian.Uint16(b)) / 65535
			case gltf.ComponentShort:
				v[c] = float32(math.Max(float64(int16(binary.LittleEndian.Uint16(b)))/32767, -1))
			default:
				return nil, fmt.Errorf("accessor %d: unsupported component type", idx)
			}
		}
		out[i] = v
	}
	return out, nil
}

func (g *GltfToDatasmith) readColors(idx uint32) ([][]float32, error) {
	cols, err := g.readFloats(idx, 4)
	if err != nil {
		return nil, err
	}
	for i, c := range cols {
		if len(c) == 3 {
			cols[i] = append(c, 1)
		}
	}
	return cols, nil
}

func (g *GltfToDatasmith) transMaterial(ref *uint32) (string, error) {
	key := -1
	if ref != nil {
		key = int(*ref)
	}
	if name, ok := g.materials[key]; ok {
		return name, nil
	}
	if ref == nil || int(*ref) >= len(g.doc.Materials) {
		mtl := NewMaterial(g.unique("material", DEFAULT_MATERIAL))
		mtl.SetColor("Color", vec4.T{0.8, 0.8, 0.8, 1})
		g.scene.AddMaterial(mtl)
		g.materials[key] = mtl.Name
		return mtl.Name, nil
	}
	src := g.doc.Materials[*ref]
	base := src.Name
	if base == "" {
		base = "Material_" + strconv.Itoa(key)
	}
	mtl := NewMaterial(g.unique("material", SanitizeName(base)))
	color := vec4.T{1, 1, 1, 1}
	var metallic, roughness float32 = 1, 1
	if pbr := src.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			color = vec4.T(*pbr.BaseColorFactor)
		}
		if pbr.MetallicFactor != nil {
			metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			roughness = *pbr.RoughnessFactor
		}
		if pbr.BaseColorTexture != nil {
			tex, err := g.transTexture(pbr.BaseColorTexture.Index, false)
			if err != nil {
				return "", err
			}
			if tex != nil {
				mtl.SetTexture("ColorMap", tex)
				mtl.SetBool("UseColorMap", true)
			}
		}
		if pbr.MetallicRoughnessTexture != nil {
			tex, err := g.transTexture(pbr.MetallicRoughnessTexture.Index, true)
			if err != nil {
				return "", err
			}
			if tex != nil {
				mtl.SetTexture("MetallicRoughnessMap", tex)
			}
		}
	}
	mtl.SetColor("Color", color)
	mtl.SetFloat("Metallic", metallic)
	mtl.SetFloat("Roughness", roughness)
	mtl.SetBool("TwoSided", src.DoubleSided)
	g.scene.AddMaterial(mtl)
	g.materials[key] = mtl.Name
	return mtl.Name, nil
}

// transTexture returns nil for textures without a decodable image.
func (g *GltfToDatasmith) transTexture(idx uint32, data bool) (*Texture, error) {
	if tex, ok := g.textures[idx]; ok {
		return tex, nil
	}
	if int(idx) >= len(g.doc.Textures) {
		return nil, fmt.Errorf("texture %d out of range", idx)
	}
	src := g.doc.Textures[idx]
	if src.Source == nil || int(*src.Source) >= len(g.doc.Images) {
		return nil, nil
	}
	img := g.doc.Images[*src.Source]
	buf, err := g.imageData(img)
	if err != nil {
		return nil, err
	}
	is, err := DecodeImageSource(buf, data)
	if err != nil {
		Logger().Warn("cannot decode image", "texture", idx, "err", err)
		return nil, nil
	}
	base := img.Name
	if base == "" {
		base = src.Name
	}
	if base == "" {
		base = "Texture_" + strconv.Itoa(int(idx))
	}
	tex := NewTexture(g.unique("texture", SanitizeName(base)), is)
	g.scene.AddTexture(tex)
	g.textures[idx] = tex
	return tex, nil
}

func (g *GltfToDatasmith) imageData(img *gltf.Image) ([]byte, error) {
	if img.BufferView != nil {
		if int(*img.BufferView) >= len(g.doc.BufferViews) {
			return nil, errors.New("image buffer view out of range")
		}
		view := g.doc.BufferViews[*img.BufferView]
		if int(view.Buffer) >= len(g.doc.Buffers) {
			return nil, errors.New("image buffer out of range")
		}
		data := g.doc.Buffers[view.Buffer].Data
		end := int(view.ByteOffset) + int(view.ByteLength)
		if end > len(data) {
			return nil, errors.New("image past end of buffer")
		}
		return data[view.ByteOffset:end], nil
	}
	if strings.HasPrefix(img.URI, "data:") {
		comma := strings.IndexByte(img.URI, ',')
		if comma < 0 {
			return nil, errors.New("malformed data uri")
		}
		return base64.StdEncoding.DecodeString(img.URI[comma+1:])
	}
	return os.ReadFile(filepath.Join(g.dir, filepath.FromSlash(img.URI)))
}

func (g *GltfToDatasmith) transNodes() error {
	var roots []uint32
	if g.doc.Scene != nil && int(*g.doc.Scene) < len(g.doc.Scenes) {
		roots = g.doc.Scenes[*g.doc.Scene].Nodes
	} else {
		child := make(map[uint32]bool)
		for _, nd := range g.doc.Nodes {
			for _, c := range nd.Children {
				child[c] = true
			}
		}
		for i := range g.doc.Nodes {
			if !child[uint32(i)] {
				roots = append(roots, uint32(i))
			}
		}
	}
	visiting := make(map[uint32]bool)
	for _, r := range roots {
		a, err := g.transNode(r, visiting)
		if err != nil {
			return err
		}
		g.scene.AddActor(a)
	}
	return nil
}

func (g *GltfToDatasmith) transNode(idx uint32, visiting map[uint32]bool) (*ActorMesh, error) {
	if int(idx) >= len(g.doc.Nodes) {
		return nil, fmt.Errorf("node %d out of range", idx)
	}
	if visiting[idx] {
		return nil, fmt.Errorf("node %d is its own ancestor", idx)
	}
	visiting[idx] = true
	defer delete(visiting, idx)

	nd := g.doc.Nodes[idx]
	base := nd.Name
	if base == "" {
		base = "Node_" + strconv.Itoa(int(idx))
	}
	var mesh string
	if nd.Mesh != nil {
		mesh = g.meshNames[*nd.Mesh]
	}
	a := NewActorMesh(g.unique("actor", SanitizeName(base)), mesh)
	a.Translation = vec3.T(nd.Translation)
	if nd.Scale != [3]float32{} {
		a.Scale = vec3.T(nd.Scale)
	}
	if nd.Rotation != [4]float32{} {
		a.Rotation = quaternion.T(nd.Rotation)
	}
	for _, c := range nd.Children {
		ch, err := g.transNode(c, visiting)
		if err != nil {
			return nil, err
		}
		a.Children = append(a.Children, ch)
	}
	return a, nil
}
