package datasmith

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
)

// Mesh is one static mesh as stored in a .udsmesh container. Normals, uvs
// and colors are per wedge; material slots and smoothing groups are per
// triangle.
type Mesh struct {
	Name               string         `json:"name"`
	Vertices           []vec3.T       `json:"vertices"`
	Triangles          []uint32       `json:"triangles"`
	VertexNormals      []vec3.T       `json:"vertexNormals"`
	UVs                [][]vec2.T     `json:"uvs,omitempty"`
	VertexColors       [][4]uint8     `json:"vertexColors"`
	TrisMaterialSlot   []uint32       `json:"trisMaterialSlot"`
	TrisSmoothingGroup []uint32       `json:"trisSmoothingGroup"`
	Materials          map[int]string `json:"materials,omitempty"`

	RelativePath string `json:"relativePath,omitempty"`
	Hash         string `json:"hash,omitempty"`
}

func NewMesh(name string) *Mesh {
	return &Mesh{Name: name, Materials: make(map[int]string)}
}

func (m *Mesh) WedgeCount() int {
	return len(m.Triangles)
}

func (m *Mesh) TriangleCount() int {
	return len(m.Triangles) / 3
}

func (m *Mesh) SetMaterial(slot int, name string) {
	if m.Materials == nil {
		m.Materials = make(map[int]string)
	}
	m.Materials[slot] = name
}

func (m *Mesh) Saved() bool {
	return m.RelativePath != ""
}

// Validate checks the array lengths and indices the container relies on.
func (m *Mesh) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidMesh)
	}
	if strings.ContainsAny(m.Name, `/\`) || m.Name == "." || m.Name == ".." {
		return fmt.Errorf("%w: name %q is not a plain file name", ErrInvalidMesh, m.Name)
	}
	wedges := len(m.Triangles)
	if wedges%3 != 0 {
		return fmt.Errorf("%w: %q has %d wedges, not a multiple of 3", ErrInvalidMesh, m.Name, wedges)
	}
	tris := wedges / 3
	if len(m.UVs) > MAX_UV_CHANNELS {
		return fmt.Errorf("%w: %q has %d channels, max %d", ErrTooManyUVChannels, m.Name, len(m.UVs), MAX_UV_CHANNELS)
	}
	checks := []struct {
		what string
		got  int
		want int
	}{
		{"vertex normals", len(m.VertexNormals), wedges},
		{"vertex colors", len(m.VertexColors), wedges},
		{"triangle material slots", len(m.TrisMaterialSlot), tris},
		{"triangle smoothing groups", len(m.TrisSmoothingGroup), tris},
	}
	for i, ch := range m.UVs {
		checks = append(checks, struct {
			what string
			got  int
			want int
		}{"uv channel " + strconv.Itoa(i), len(ch), wedges})
	}
	for _, c := range checks {
		if c.got != c.want {
			return fmt.Errorf("%w: %q has %d %s, want %d", ErrInvalidMesh, m.Name, c.got, c.what, c.want)
		}
	}
	nv := uint32(len(m.Vertices))
	for i, idx := range m.Triangles {
		if idx >= nv {
			return fmt.Errorf("%w: %q wedge %d references vertex %d of %d", ErrInvalidMesh, m.Name, i, idx, nv)
		}
	}
	return nil
}

// FileName is the container name inside the assets folder.
func (m *Mesh) FileName() string {
	return m.Name + MESH_EXT
}

// Save writes the container under basedir/folder and records its relative
// path and content hash. A mesh is saved at most once.
func (m *Mesh) Save(basedir, folder string) error {
	return m.saveWith(basedir, folder, HashFile)
}

// savedUnder reports whether m was already written to folder under basedir
// and the container is still there.
func (m *Mesh) savedUnder(basedir, folder string) bool {
	rel := path.Join(filepath.ToSlash(folder), m.FileName())
	if m.RelativePath != rel {
		return false
	}
	_, err := os.Stat(filepath.Join(basedir, filepath.FromSlash(rel)))
	return err == nil
}

func (m *Mesh) saveWith(basedir, folder string, hash Hasher) error {
	if m.Saved() {
		return fmt.Errorf("%w: mesh %q", ErrAlreadySaved, m.Name)
	}
	rel := path.Join(filepath.ToSlash(folder), m.FileName())
	abs := filepath.Join(basedir, filepath.FromSlash(rel))
	Logger().Debug("writing mesh", "name", m.Name, "path", abs)
	if err := MeshWriteTo(abs, m); err != nil {
		return err
	}
	h, err := hash(abs)
	if err != nil {
		return fmt.Errorf("hash mesh %q: %w", m.Name, err)
	}
	m.RelativePath = rel
	m.Hash = h
	return nil
}

// Node describes the mesh for the scene document.
func (m *Mesh) Node() *Node {
	n := NewNode("StaticMesh", Attr{"label", m.Name}, Attr{"name", m.Name})

	slots := make([]int, 0, len(m.Materials))
	for idx := range m.Materials {
		slots = append(slots, idx)
	}
	sort.Ints(slots)
	for _, idx := range slots {
		n.Push(NewNode("Material", Attr{"id", strconv.Itoa(idx)}, Attr{"name", m.Materials[idx]}))
	}
	if m.RelativePath != "" {
		n.Push(NewNode("file", Attr{"path", strings.ReplaceAll(m.RelativePath, `\`, "/")}))
	}
	n.Push(NewNode("LightmapUV", Attr{"value", "-1"}))
	n.Push(NewNode("Hash", Attr{"value", m.Hash}))
	return n
}
