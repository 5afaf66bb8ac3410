package datasmith

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

func writeLittleByte(wt io.Writer, v interface{}) error {
	return binary.Write(wt, binary.LittleEndian, v)
}

func readLittleByte(rd io.Reader, v interface{}) error {
	return binary.Read(rd, binary.LittleEndian, v)
}

func writeLittleUint32(wt io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := wt.Write(buf[:])
	return err
}

func readLittleUint32(rd io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(rd, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// WriteScalar packs values per shape with no length prefix.
func WriteScalar(wt io.Writer, shape Shape, values ...interface{}) error {
	if len(values) != shape.Len() {
		return fmt.Errorf("%w: %d values for shape %q", ErrShapeMismatch, len(values), shape.String())
	}
	buf, err := shape.pack(make([]byte, 0, shape.Size()), values)
	if err != nil {
		return err
	}
	_, err = wt.Write(buf)
	return err
}

var zeros [64]byte

// WriteNull writes n zero bytes.
func WriteNull(wt io.Writer, n int) error {
	for n > 0 {
		c := n
		if c > len(zeros) {
			c = len(zeros)
		}
		if _, err := wt.Write(zeros[:c]); err != nil {
			return err
		}
		n -= c
	}
	return nil
}

// WriteString writes s as a u32 length (including the terminator)
// followed by the UTF-8 bytes and a single zero byte.
func WriteString(wt io.Writer, s string) error {
	if err := writeLittleUint32(wt, uint32(len(s)+1)); err != nil {
		return err
	}
	if _, err := io.WriteString(wt, s); err != nil {
		return err
	}
	_, err := wt.Write([]byte{0})
	return err
}

func ReadString(rd io.Reader) (string, error) {
	size, err := readLittleUint32(rd)
	if err != nil {
		return "", err
	}
	if size == 0 {
		return "", fmt.Errorf("%w: zero string length", ErrBadContainer)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(rd, buf); err != nil {
		return "", err
	}
	if buf[size-1] != 0 {
		return "", fmt.Errorf("%w: string not terminated", ErrBadContainer)
	}
	buf = buf[:size-1]
	if !utf8.Valid(buf) {
		return "", fmt.Errorf("%w: string is not utf-8", ErrBadContainer)
	}
	return string(buf), nil
}

func expectBytes(rd io.Reader, want []byte) error {
	got := make([]byte, len(want))
	if _, err := io.ReadFull(rd, got); err != nil {
		return err
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("%w: expected % x, got % x", ErrBadContainer, want, got)
	}
	return nil
}

func expectString(rd io.Reader, want string) error {
	s, err := ReadString(rd)
	if err != nil {
		return err
	}
	if s != want {
		return fmt.Errorf("%w: expected %q, got %q", ErrBadContainer, want, s)
	}
	return nil
}

func expectNull(rd io.Reader, n int) error {
	return expectBytes(rd, make([]byte, n))
}
