package datasmith

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Kind is one fixed-width little-endian field.
type Kind byte

const (
	KindUint8   Kind = 'B'
	KindInt8    Kind = 'b'
	KindUint16  Kind = 'H'
	KindInt16   Kind = 'h'
	KindUint32  Kind = 'I'
	KindInt32   Kind = 'i'
	KindUint64  Kind = 'Q'
	KindInt64   Kind = 'q'
	KindFloat32 Kind = 'f'
)

func (k Kind) Size() int {
	switch k {
	case KindUint8, KindInt8:
		return 1
	case KindUint16, KindInt16:
		return 2
	case KindUint32, KindInt32, KindFloat32:
		return 4
	case KindUint64, KindInt64:
		return 8
	}
	return 0
}

func (k Kind) signed() bool {
	return k == KindInt8 || k == KindInt16 || k == KindInt32 || k == KindInt64
}

// Shape describes one fixed-size record, e.g. "fff" for a position or
// "BBBB" for a color.
type Shape []Kind

var (
	ShapeUint32 = Shape{KindUint32}
	ShapeVec2   = Shape{KindFloat32, KindFloat32}
	ShapeVec3   = Shape{KindFloat32, KindFloat32, KindFloat32}
	ShapeColor  = Shape{KindUint8, KindUint8, KindUint8, KindUint8}
)

func ParseShape(s string) (Shape, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: empty shape", ErrShapeMismatch)
	}
	sh := make(Shape, len(s))
	for i := 0; i < len(s); i++ {
		k := Kind(s[i])
		if k.Size() == 0 {
			return nil, fmt.Errorf("%w: unknown field kind %q", ErrShapeMismatch, s[i])
		}
		sh[i] = k
	}
	return sh, nil
}

func MustParseShape(s string) Shape {
	sh, err := ParseShape(s)
	if err != nil {
		panic(err)
	}
	return sh
}

// Size is the packed byte size of one record.
func (s Shape) Size() int {
	n := 0
	for _, k := range s {
		n += k.Size()
	}
	return n
}

// Len is the number of fields in one record.
func (s Shape) Len() int {
	return len(s)
}

func (s Shape) String() string {
	b := make([]byte, len(s))
	for i, k := range s {
		b[i] = byte(k)
	}
	return string(b)
}

// pack appends the little-endian encoding of values to buf. len(values)
// must be a multiple of the shape's field count.
func (s Shape) pack(buf []byte, values []interface{}) ([]byte, error) {
	if len(s) == 0 || len(values)%len(s) != 0 {
		return buf, fmt.Errorf("%w: %d values for shape %q", ErrShapeMismatch, len(values), s.String())
	}
	for i, v := range values {
		var err error
		buf, err = packField(buf, s[i%len(s)], v)
		if err != nil {
			return buf, err
		}
	}
	return buf, nil
}

func packField(buf []byte, k Kind, v interface{}) ([]byte, error) {
	if k == KindFloat32 {
		f, ok := toFloat64(v)
		if !ok {
			return buf, fmt.Errorf("%w: %T is not a number", ErrShapeMismatch, v)
		}
		return binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(f))), nil
	}
	var u uint64
	if k.signed() {
		i, ok := toInt64(v)
		if !ok {
			return buf, fmt.Errorf("%w: %T is not an integer", ErrShapeMismatch, v)
		}
		bits := uint(k.Size() * 8)
		if bits < 64 && (i < -(1<<(bits-1)) || i >= 1<<(bits-1)) {
			return buf, fmt.Errorf("%w: %d overflows %q", ErrShapeMismatch, i, byte(k))
		}
		u = uint64(i)
	} else {
		var ok bool
		u, ok = toUint64(v)
		if !ok {
			return buf, fmt.Errorf("%w: %v is not an unsigned integer", ErrShapeMismatch, v)
		}
		bits := uint(k.Size() * 8)
		if bits < 64 && u >= 1<<bits {
			return buf, fmt.Errorf("%w: %d overflows %q", ErrShapeMismatch, u, byte(k))
		}
	}
	switch k.Size() {
	case 1:
		buf = append(buf, byte(u))
	case 2:
		buf = binary.LittleEndian.AppendUint16(buf, uint16(u))
	case 4:
		buf = binary.LittleEndian.AppendUint32(buf, uint32(u))
	case 8:
		buf = binary.LittleEndian.AppendUint64(buf, u)
	}
	return buf, nil
}

// unpack decodes one record from b, which must hold s.Size() bytes.
func (s Shape) unpack(b []byte) []interface{} {
	out := make([]interface{}, len(s))
	off := 0
	for i, k := range s {
		switch k {
		case KindUint8:
			out[i] = b[off]
		case KindInt8:
			out[i] = int8(b[off])
		case KindUint16:
			out[i] = binary.LittleEndian.Uint16(b[off:])
		case KindInt16:
			out[i] = int16(binary.LittleEndian.Uint16(b[off:]))
		case KindUint32:
			out[i] = binary.LittleEndian.Uint32(b[off:])
		case KindInt32:
			out[i] = int32(binary.LittleEndian.Uint32(b[off:]))
		case KindUint64:
			out[i] = binary.LittleEndian.Uint64(b[off:])
		case KindInt64:
			out[i] = int64(binary.LittleEndian.Uint64(b[off:]))
		case KindFloat32:
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
		}
		off += k.Size()
	}
	return out
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	if u, ok := toUint64(v); ok {
		return float64(u), true
	}
	return 0, false
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func toUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	}
	if i, ok := toInt64(v); ok && i >= 0 {
		return uint64(i), true
	}
	return 0, false
}
