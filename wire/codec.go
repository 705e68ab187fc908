package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Field kind markers. Each encoded field is a kind byte followed by a
// fixed-width big-endian value or a length-prefixed variable field, which
// makes the stream decodable without an external schema.
const (
	kindBool byte = iota + 1
	kindUint8
	kindUint16
	kindUint32
	kindUint64
	kindInt64
	kindFloat64
	kindBytes
	kindString
)

func kindName(k byte) string {
	switch k {
	case kindBool:
		return "bool"
	case kindUint8:
		return "uint8"
	case kindUint16:
		return "uint16"
	case kindUint32:
		return "uint32"
	case kindUint64:
		return "uint64"
	case kindInt64:
		return "int64"
	case kindFloat64:
		return "float64"
	case kindBytes:
		return "bytes"
	case kindString:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// An Encoder serializes payload fields into a byte stream.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 64)}
}

// Bytes returns the encoded stream.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// PutBool writes a bool field.
func (e *Encoder) PutBool(v bool) {
	e.buf = append(e.buf, kindBool)
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

// PutUint8 writes a uint8 field.
func (e *Encoder) PutUint8(v uint8) {
	e.buf = append(e.buf, kindUint8, v)
}

// PutUint16 writes a uint16 field.
func (e *Encoder) PutUint16(v uint16) {
	e.buf = append(e.buf, kindUint16)
	e.buf = binary.BigEndian.AppendUint16(e.buf, v)
}

// PutUint32 writes a uint32 field.
func (e *Encoder) PutUint32(v uint32) {
	e.buf = append(e.buf, kindUint32)
	e.buf = binary.BigEndian.AppendUint32(e.buf, v)
}

// PutUint64 writes a uint64 field.
func (e *Encoder) PutUint64(v uint64) {
	e.buf = append(e.buf, kindUint64)
	e.buf = binary.BigEndian.AppendUint64(e.buf, v)
}

// PutInt64 writes an int64 field.
func (e *Encoder) PutInt64(v int64) {
	e.buf = append(e.buf, kindInt64)
	e.buf = binary.BigEndian.AppendUint64(e.buf, uint64(v))
}

// PutFloat64 writes a float64 field.
func (e *Encoder) PutFloat64(v float64) {
	e.buf = append(e.buf, kindFloat64)
	e.buf = binary.BigEndian.AppendUint64(e.buf, math.Float64bits(v))
}

// PutBytes writes a length-prefixed byte field.
func (e *Encoder) PutBytes(v []byte) {
	e.buf = append(e.buf, kindBytes)
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(len(v)))
	e.buf = append(e.buf, v...)
}

// PutString writes a length-prefixed string field.
func (e *Encoder) PutString(v string) {
	e.buf = append(e.buf, kindString)
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(len(v)))
	e.buf = append(e.buf, v...)
}

// A Decoder reads payload fields back from a byte stream.
type Decoder struct {
	data []byte
	off  int
}

// NewDecoder creates a Decoder over the given data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Remaining returns the number of bytes not consumed yet.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.off
}

func (d *Decoder) expectKind(want byte) error {
	if d.off >= len(d.data) {
		return ErrTruncatedPayload
	}

	got := d.data[d.off]
	if got != want {
		return fmt.Errorf("%w: want %s, got %s",
			ErrFieldMismatch, kindName(want), kindName(got))
	}

	d.off++
	return nil
}

func (d *Decoder) take(n int) ([]byte, error) {
	if d.Remaining() < n {
		return nil, ErrTruncatedPayload
	}

	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

// Bool reads a bool field.
func (d *Decoder) Bool() (bool, error) {
	if err := d.expectKind(kindBool); err != nil {
		return false, err
	}

	b, err := d.take(1)
	if err != nil {
		return false, err
	}

	return b[0] != 0, nil
}

// Uint8 reads a uint8 field.
func (d *Decoder) Uint8() (uint8, error) {
	if err := d.expectKind(kindUint8); err != nil {
		return 0, err
	}

	b, err := d.take(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

// Uint16 reads a uint16 field.
func (d *Decoder) Uint16() (uint16, error) {
	if err := d.expectKind(kindUint16); err != nil {
		return 0, err
	}

	b, err := d.take(2)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint16(b), nil
}

// Uint32 reads a uint32 field.
func (d *Decoder) Uint32() (uint32, error) {
	if err := d.expectKind(kindUint32); err != nil {
		return 0, err
	}

	b, err := d.take(4)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(b), nil
}

// Uint64 reads a uint64 field.
func (d *Decoder) Uint64() (uint64, error) {
	if err := d.expectKind(kindUint64); err != nil {
		return 0, err
	}

	b, err := d.take(8)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint64(b), nil
}

// Int64 reads an int64 field.
func (d *Decoder) Int64() (int64, error) {
	if err := d.expectKind(kindInt64); err != nil {
		return 0, err
	}

	b, err := d.take(8)
	if err != nil {
		return 0, err
	}

	return int64(binary.BigEndian.Uint64(b)), nil
}

// Float64 reads a float64 field.
func (d *Decoder) Float64() (float64, error) {
	if err := d.expectKind(kindFloat64); err != nil {
		return 0, err
	}

	b, err := d.take(8)
	if err != nil {
		return 0, err
	}

	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// Bytes reads a length-prefixed byte field. The returned slice is a copy.
func (d *Decoder) Bytes() ([]byte, error) {
	if err := d.expectKind(kindBytes); err != nil {
		return nil, err
	}

	return d.lengthPrefixed()
}

// String reads a length-prefixed string field.
func (d *Decoder) String() (string, error) {
	if err := d.expectKind(kindString); err != nil {
		return "", err
	}

	b, err := d.lengthPrefixed()
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func (d *Decoder) lengthPrefixed() ([]byte, error) {
	lenBytes, err := d.take(4)
	if err != nil {
		return nil, err
	}

	n := int(binary.BigEndian.Uint32(lenBytes))
	b, err := d.take(n)
	if err != nil {
		return nil, err
	}

	out := make([]byte, n)
	copy(out, b)
	return out, nil
}
