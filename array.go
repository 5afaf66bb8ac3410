package datasmith

import (
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
)

// readChunk bounds a single allocation while decoding arrays, so a corrupt
// count fails on EOF instead of allocating gigabytes up front.
const readChunk = 1 << 16

// WriteArray writes a u32 record count followed by the records packed back
// to back. T must be a fixed-size type such as uint32, [4]uint8 or vec3.T.
func WriteArray[T any](wt io.Writer, data []T) error {
	var zero T
	if binary.Size(zero) <= 0 {
		return fmt.Errorf("%w: %T is not a fixed-size record", ErrShapeMismatch, zero)
	}
	if err := writeLittleUint32(wt, uint32(len(data))); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return writeLittleByte(wt, data)
}

// ReadArray is the inverse of WriteArray.
func ReadArray[T any](rd io.Reader) ([]T, error) {
	var zero T
	if binary.Size(zero) <= 0 {
		return nil, fmt.Errorf("%w: %T is not a fixed-size record", ErrShapeMismatch, zero)
	}
	count, err := readLittleUint32(rd)
	if err != nil {
		return nil, err
	}
	first := int(count)
	if first > readChunk {
		first = readChunk
	}
	out := make([]T, 0, first)
	for remain := int(count); remain > 0; {
		n := remain
		if n > readChunk {
			n = readChunk
		}
		chunk := make([]T, n)
		if err := readLittleByte(rd, chunk); err != nil {
			return nil, err
		}
		out = append(out, chunk...)
		remain -= n
	}
	return out, nil
}

// WriteRecords writes records of an arbitrary shape. A record is either a
// bare scalar (single-field shapes) or a slice/array whose elements are
// splatted into consecutive fields.
func WriteRecords(wt io.Writer, shape Shape, records []interface{}) error {
	if shape.Len() == 0 {
		return fmt.Errorf("%w: empty shape", ErrShapeMismatch)
	}
	buf := make([]byte, 4, 4+len(records)*shape.Size())
	binary.LittleEndian.PutUint32(buf, uint32(len(records)))
	fields := make([]interface{}, 0, shape.Len())
	for i, rec := range records {
		fields = flatten(fields[:0], rec)
		if len(fields) != shape.Len() {
			return fmt.Errorf("%w: record %d has %d fields, shape %q needs %d",
				ErrShapeMismatch, i, len(fields), shape.String(), shape.Len())
		}
		var err error
		if buf, err = shape.pack(buf, fields); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	_, err := wt.Write(buf)
	return err
}

func flatten(dst []interface{}, rec interface{}) []interface{} {
	rv := reflect.ValueOf(rec)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			dst = append(dst, rv.Index(i).Interface())
		}
		return dst
	}
	return append(dst, rec)
}

// ReadRecords is the inverse of WriteRecords. Single-field records come
// back as bare scalars, wider ones as []interface{} tuples.
func ReadRecords(rd io.Reader, shape Shape) ([]interface{}, error) {
	if shape.Len() == 0 {
		return nil, fmt.Errorf("%w: empty shape", ErrShapeMismatch)
	}
	count, err := readLittleUint32(rd)
	if err != nil {
		return nil, err
	}
	size := shape.Size()
	out := make([]interface{}, 0, minInt(int(count), readChunk))
	buf := make([]byte, size)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(rd, buf); err != nil {
			return nil, err
		}
		tup := shape.unpack(buf)
		if len(tup) == 1 {
			out = append(out, tup[0])
		} else {
			out = append(out, tup)
		}
	}
	return out, nil
}

var flatKinds = map[Kind]reflect.Kind{
	KindUint8:   reflect.Uint8,
	KindInt8:    reflect.Int8,
	KindUint16:  reflect.Uint16,
	KindInt16:   reflect.Int16,
	KindUint32:  reflect.Uint32,
	KindInt32:   reflect.Int32,
	KindUint64:  reflect.Uint64,
	KindInt64:   reflect.Int64,
	KindFloat32: reflect.Float32,
}

// WriteFlat writes a contiguous numeric slice (e.g. []float32 holding
// x,y,z,x,y,z...) as an array of shape records. The shape must be
// homogeneous and match the slice element type. Output is byte-identical
// to WriteRecords over the equivalent tuples.
func WriteFlat(wt io.Writer, shape Shape, flat interface{}) error {
	if shape.Len() == 0 {
		return fmt.Errorf("%w: empty shape", ErrShapeMismatch)
	}
	rv := reflect.ValueOf(flat)
	if rv.Kind() != reflect.Slice {
		return fmt.Errorf("%w: %T is not a slice", ErrShapeMismatch, flat)
	}
	for _, k := range shape {
		if k != shape[0] {
			return fmt.Errorf("%w: shape %q is not homogeneous", ErrShapeMismatch, shape.String())
		}
	}
	if rv.Type().Elem().Kind() != flatKinds[shape[0]] {
		return fmt.Errorf("%w: %T does not match shape %q", ErrShapeMismatch, flat, shape.String())
	}
	if rv.Len()%shape.Len() != 0 {
		return fmt.Errorf("%w: %d values is not a multiple of %d", ErrShapeMismatch, rv.Len(), shape.Len())
	}
	if err := writeLittleUint32(wt, uint32(rv.Len()/shape.Len())); err != nil {
		return err
	}
	if rv.Len() == 0 {
		return nil
	}
	return writeLittleByte(wt, flat)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
