package datasmith

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip[T any](t *testing.T, in []T) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteArray(&buf, in))

	var zero T
	assert.Equal(t, 4+len(in)*binary.Size(zero), buf.Len())
	assert.Equal(t, uint32(len(in)), binary.LittleEndian.Uint32(buf.Bytes()))

	out, err := ReadArray[T](&buf)
	require.NoError(t, err)
	assert.Equal(t, len(in), len(out))
	for i := range in {
		assert.Equal(t, in[i], out[i])
	}
	assert.Zero(t, buf.Len())
}

func TestArrayRoundTrip(t *testing.T) {
	t.Run("uint32", func(t *testing.T) { roundTrip(t, []uint32{0, 1, 2, 0xffffffff}) })
	t.Run("vec3", func(t *testing.T) { roundTrip(t, []vec3.T{{0, 0, 0}, {1.5, -2, 3e7}}) })
	t.Run("vec2", func(t *testing.T) { roundTrip(t, []vec2.T{{0.25, 0.75}}) })
	t.Run("color", func(t *testing.T) { roundTrip(t, [][4]uint8{{255, 0, 0, 255}, {1, 2, 3, 4}}) })
	t.Run("empty", func(t *testing.T) { roundTrip(t, []vec3.T{}) })
}

func TestArrayRejectsVariableRecords(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteArray(&buf, []int{1, 2}), ErrShapeMismatch)
	_, err := ReadArray[string](&buf)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestReadArrayTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteArray(&buf, []uint32{1, 2, 3}))
	data := buf.Bytes()[:buf.Len()-2]
	_, err := ReadArray[uint32](bytes.NewReader(data))
	assert.Error(t, err)

	// a huge count with no payload fails instead of allocating it
	_, err = ReadArray[vec3.T](bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff}))
	assert.Error(t, err)
}

func TestRecordsRoundTrip(t *testing.T) {
	tests := []struct {
		shape   string
		records []interface{}
		want    []interface{}
	}{
		{
			"I",
			[]interface{}{1, uint32(7), 42},
			[]interface{}{uint32(1), uint32(7), uint32(42)},
		},
		{
			"fff",
			[]interface{}{vec3.T{1, 2, 3}, []float64{4, 5, 6}},
			[]interface{}{
				[]interface{}{float32(1), float32(2), float32(3)},
				[]interface{}{float32(4), float32(5), float32(6)},
			},
		},
		{
			"BBBB",
			[]interface{}{[4]uint8{255, 128, 0, 1}},
			[]interface{}{[]interface{}{uint8(255), uint8(128), uint8(0), uint8(1)}},
		},
		{
			"ihQ",
			[]interface{}{[]interface{}{-5, int16(-1), uint64(9)}},
			[]interface{}{[]interface{}{int32(-5), int16(-1), uint64(9)}},
		},
		{"ff", []interface{}{}, []interface{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.shape, func(t *testing.T) {
			sh := MustParseShape(tt.shape)
			var buf bytes.Buffer
			require.NoError(t, WriteRecords(&buf, sh, tt.records))
			assert.Equal(t, 4+len(tt.records)*sh.Size(), buf.Len())

			got, err := ReadRecords(&buf, sh)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecordsMatchTypedPath(t *testing.T) {
	verts := []vec3.T{{1, 2, 3}, {-1, 0.5, 8}}
	var typed, generic bytes.Buffer
	require.NoError(t, WriteArray(&typed, verts))
	recs := make([]interface{}, len(verts))
	for i, v := range verts {
		recs[i] = v
	}
	require.NoError(t, WriteRecords(&generic, ShapeVec3, recs))
	assert.Equal(t, typed.Bytes(), generic.Bytes())
}

func TestRecordsArityMismatch(t *testing.T) {
	var buf bytes.Buffer
	err := WriteRecords(&buf, ShapeVec3, []interface{}{vec3.T{1, 2, 3}, vec2.T{1, 2}})
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.Zero(t, buf.Len())

	err = WriteRecords(&buf, ShapeVec2, []interface{}{1.0})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestWriteFlat(t *testing.T) {
	flat := []float32{1, 2, 3, 4, 5, 6}
	var fast, typed bytes.Buffer
	require.NoError(t, WriteFlat(&fast, ShapeVec3, flat))
	require.NoError(t, WriteArray(&typed, []vec3.T{{1, 2, 3}, {4, 5, 6}}))
	assert.Equal(t, typed.Bytes(), fast.Bytes())

	var colors bytes.Buffer
	require.NoError(t, WriteFlat(&colors, ShapeColor, []uint8{1, 2, 3, 4}))
	got, err := ReadArray[[4]uint8](&colors)
	require.NoError(t, err)
	assert.Equal(t, [][4]uint8{{1, 2, 3, 4}}, got)

	var buf bytes.Buffer
	assert.ErrorIs(t, WriteFlat(&buf, ShapeVec3, []float32{1, 2}), ErrShapeMismatch)
	assert.ErrorIs(t, WriteFlat(&buf, ShapeVec3, []uint32{1, 2, 3}), ErrShapeMismatch)
	assert.ErrorIs(t, WriteFlat(&buf, MustParseShape("fI"), []float32{1, 2}), ErrShapeMismatch)
	assert.ErrorIs(t, WriteFlat(&buf, ShapeVec3, 3.0), ErrShapeMismatch)
	assert.Zero(t, buf.Len())
}
