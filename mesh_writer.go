package datasmith

import (
	"fmt"
	"io"
)

// MeshLayout records the offsets of a container's nested blocks, relative
// to the start of the container.
type MeshLayout struct {
	FileStart int64
	SizeLoc   int64
	MeshStart int64
	MeshEnd   int64
	FileEnd   int64
}

// MeshSize is the byte length of the raw mesh sub-block.
func (l MeshLayout) MeshSize() uint32 {
	return uint32(l.MeshEnd - l.MeshStart)
}

// FileSize is the value stored in the second header word.
func (l MeshLayout) FileSize() uint32 {
	return uint32(l.FileEnd - l.FileStart)
}

type offsetWriter struct {
	ws   io.WriteSeeker
	base int64
	err  error
}

func (w *offsetWriter) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	n, err := w.ws.Write(p)
	w.err = err
	return n, err
}

func (w *offsetWriter) tell() int64 {
	if w.err != nil {
		return 0
	}
	off, err := w.ws.Seek(0, io.SeekCurrent)
	if err != nil {
		w.err = err
		return 0
	}
	return off - w.base
}

func (w *offsetWriter) seek(off int64) {
	if w.err != nil {
		return
	}
	_, w.err = w.ws.Seek(w.base+off, io.SeekStart)
}

func (w *offsetWriter) raw(b []byte) {
	if w.err == nil {
		_, w.err = w.ws.Write(b)
	}
}

func (w *offsetWriter) do(err error) {
	if w.err == nil {
		w.err = err
	}
}

// WriteMesh serializes m at the current position of ws. The raw mesh size
// and the container size are only known once every channel is written, so
// both are patched in place afterwards; ws is left positioned at the end.
func WriteMesh(ws io.WriteSeeker, m *Mesh) (MeshLayout, error) {
	var l MeshLayout
	if err := m.Validate(); err != nil {
		return l, err
	}
	base, err := ws.Seek(0, io.SeekCurrent)
	if err != nil {
		return l, err
	}
	w := &offsetWriter{ws: ws, base: base}

	w.raw(meshHeader)
	l.FileStart = w.tell()
	w.do(WriteString(w, m.Name))
	w.raw(meshNameTrailer)
	w.do(WriteString(w, SOURCE_MODELS))
	w.do(WriteString(w, STRUCT_PROPERTY))
	w.do(WriteNull(w, 8))
	w.do(WriteString(w, DATASMITH_MESH_SOURCE_MODEL))
	w.do(WriteNull(w, 25))

	l.SizeLoc = w.tell()
	w.do(WriteScalar(w, Shape{KindUint32, KindUint32}, 0, 0))
	w.raw(rawMeshTag)

	l.MeshStart = w.tell()
	w.do(WriteScalar(w, Shape{KindUint32, KindUint32}, RAW_MESH_VERSION, RAW_MESH_LIC_VERSION))

	// per triangle
	w.do(WriteArray(w, m.TrisMaterialSlot))
	w.do(WriteArray(w, m.TrisSmoothingGroup))
	// per vertex
	w.do(WriteArray(w, m.Vertices))
	// per wedge
	w.do(WriteArray(w, m.Triangles))
	w.do(WriteNull(w, 4)) // tangent x
	w.do(WriteNull(w, 4)) // tangent y
	w.do(WriteArray(w, m.VertexNormals))
	for _, uv := range m.UVs {
		w.do(WriteArray(w, uv))
	}
	for i := len(m.UVs); i < MAX_UV_CHANNELS; i++ {
		w.do(writeLittleUint32(w, 0))
	}
	w.do(WriteArray(w, m.VertexColors))
	w.do(WriteNull(w, 4)) // material index to import index

	l.MeshEnd = w.tell()
	w.do(WriteNull(w, 16))
	w.do(WriteNull(w, 4))
	l.FileEnd = w.tell()

	size := l.MeshSize()
	w.seek(l.SizeLoc)
	w.do(WriteScalar(w, Shape{KindUint32, KindUint32}, size, size))
	w.seek(0)
	w.do(WriteScalar(w, Shape{KindUint32, KindUint32}, uint32(1), l.FileSize()))
	w.seek(l.FileEnd)

	if w.err != nil {
		return l, fmt.Errorf("write mesh %q: %w", m.Name, w.err)
	}
	return l, nil
}

// MeshWriteTo writes m to path. The container is built in a temporary file
// next to path and renamed into place only after every patch succeeded.
func MeshWriteTo(path string, m *Mesh) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return writeAtomic(path, func(f io.WriteSeeker) error {
		_, err := WriteMesh(f, m)
		return err
	})
}
