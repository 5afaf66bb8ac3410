package datasmith

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
)

type countingReader struct {
	rd io.Reader
	n  int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.rd.Read(p)
	r.n += int64(n)
	return n, err
}

// ReadMesh parses a container written by WriteMesh and checks its fixed
// tags and both size patches. Material names and the saved path are not
// part of the container and stay empty.
func ReadMesh(rd io.Reader) (*Mesh, MeshLayout, error) {
	var l MeshLayout
	r := &countingReader{rd: rd}

	var head [2]uint32
	if err := readLittleByte(r, &head); err != nil {
		return nil, l, err
	}
	if head[0] != 1 {
		return nil, l, fmt.Errorf("%w: header word %d", ErrBadContainer, head[0])
	}
	l.FileStart = r.n

	m := NewMesh("")
	var err error
	if m.Name, err = ReadString(r); err != nil {
		return nil, l, err
	}
	if err := expectBytes(r, meshNameTrailer); err != nil {
		return nil, l, err
	}
	if err := expectString(r, SOURCE_MODELS); err != nil {
		return nil, l, err
	}
	if err := expectString(r, STRUCT_PROPERTY); err != nil {
		return nil, l, err
	}
	if err := expectNull(r, 8); err != nil {
		return nil, l, err
	}
	if err := expectString(r, DATASMITH_MESH_SOURCE_MODEL); err != nil {
		return nil, l, err
	}
	if err := expectNull(r, 25); err != nil {
		return nil, l, err
	}

	l.SizeLoc = r.n
	var sizes [2]uint32
	if err := readLittleByte(r, &sizes); err != nil {
		return nil, l, err
	}
	if sizes[0] != sizes[1] {
		return nil, l, fmt.Errorf("%w: size fields differ (%d, %d)", ErrBadContainer, sizes[0], sizes[1])
	}
	if err := expectBytes(r, rawMeshTag); err != nil {
		return nil, l, err
	}

	l.MeshStart = r.n
	var versions [2]uint32
	if err := readLittleByte(r, &versions); err != nil {
		return nil, l, err
	}
	if versions[0] != RAW_MESH_VERSION || versions[1] != RAW_MESH_LIC_VERSION {
		return nil, l, fmt.Errorf("%w: raw mesh version %d.%d", ErrBadContainer, versions[0], versions[1])
	}

	if m.TrisMaterialSlot, err = ReadArray[uint32](r); err != nil {
		return nil, l, err
	}
	if m.TrisSmoothingGroup, err = ReadArray[uint32](r); err != nil {
		return nil, l, err
	}
	if m.Vertices, err = ReadArray[vec3.T](r); err != nil {
		return nil, l, err
	}
	if m.Triangles, err = ReadArray[uint32](r); err != nil {
		return nil, l, err
	}
	if err := expectNull(r, 8); err != nil {
		return nil, l, fmt.Errorf("tangent channels: %w", err)
	}
	if m.VertexNormals, err = ReadArray[vec3.T](r); err != nil {
		return nil, l, err
	}
	for i := 0; i < MAX_UV_CHANNELS; i++ {
		uv, err := ReadArray[vec2.T](r)
		if err != nil {
			return nil, l, err
		}
		if len(uv) == 0 {
			continue
		}
		if len(m.UVs) != i {
			return nil, l, fmt.Errorf("%w: uv channel %d follows an empty channel", ErrBadContainer, i)
		}
		m.UVs = append(m.UVs, uv)
	}
	if m.VertexColors, err = ReadArray[[4]uint8](r); err != nil {
		return nil, l, err
	}
	if err := expectNull(r, 4); err != nil {
		return nil, l, err
	}
	l.MeshEnd = r.n
	if err := expectNull(r, 20); err != nil {
		return nil, l, err
	}
	l.FileEnd = r.n

	if sizes[0] != l.MeshSize() {
		return nil, l, fmt.Errorf("%w: raw mesh size %d, stored %d", ErrBadContainer, l.MeshSize(), sizes[0])
	}
	if head[1] != l.FileSize() {
		return nil, l, fmt.Errorf("%w: container size %d, stored %d", ErrBadContainer, l.FileSize(), head[1])
	}
	return m, l, nil
}

func MeshReadFrom(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, _, err := ReadMesh(bufio.NewReader(f))
	return m, err
}
