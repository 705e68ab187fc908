// Package wire defines the serialization format for overlay messages. Every
// message type declares an ordered list of typed fields and writes them
// through the Encoder in one fixed order, so that equal payloads always
// produce equal bytes.
package wire

import "errors"

// MsgType identifies a message type within one overlay. The tag is a stable
// small integer that prefixes the encoded payload on the wire.
type MsgType uint8

// Serialization errors.
var (
	// ErrTruncatedPayload is returned when the encoded data ends before all
	// the declared fields are read.
	ErrTruncatedPayload = errors.New("payload is truncated")

	// ErrFieldMismatch is returned when the field kind on the wire does not
	// match the field being decoded.
	ErrFieldMismatch = errors.New("field kind mismatch")

	// ErrUnknownMsgType is returned when decoding a message type that is
	// not registered.
	ErrUnknownMsgType = errors.New("unknown message type")

	// ErrDuplicateMsgType is returned when two factories register the same
	// message type tag.
	ErrDuplicateMsgType = errors.New("message type already registered")
)

// A Payload is a typed message body that can serialize itself. EncodePayload
// and DecodePayload must visit the same fields in the same order.
type Payload interface {
	// MsgType returns the tag of the message type.
	MsgType() MsgType

	// EncodePayload writes the fields of the payload into the encoder.
	EncodePayload(e *Encoder)

	// DecodePayload reads the fields of the payload from the decoder.
	DecodePayload(d *Decoder) error
}

// Encode serializes a payload with its message type tag prefixed.
func Encode(p Payload) []byte {
	e := NewEncoder()
	e.buf = append(e.buf, byte(p.MsgType()))
	p.EncodePayload(e)
	return e.Bytes()
}
