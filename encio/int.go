package encio

import (
	"io"
)

// NewUint16 returns a Uint16.
func NewUint16() Uint16 {
	return Uint16{
		buff: make([]byte, 2),
	}
}

// Uint16 provides methods for encoding and decoding little-endian uint16s.
type Uint16 struct {
	buff []byte
}

// Encode writes the given uint16 to w.
func (e *Uint16) Encode(w io.Writer, n uint16) error {
	EncodeUint16(e.buff, n)
	return Write(e.buff, w)
}

// Decode decodes a uint16 from r.
func (e *Uint16) Decode(r io.Reader) (uint16, error) {
	err := Read(e.buff, r)
	return DecodeUint16(e.buff), err
}

// EncodeUint16 writes a little-endian uint16 to buff.
func EncodeUint16(buff []byte, n uint16) {
	buff[0] = uint8(n)
	buff[1] = uint8(n >> 8)
}

// DecodeUint16 reads a little-endian uint16 from buff.
func DecodeUint16(buff []byte) uint16 {
	return uint16(buff[0]) | uint16(buff[1])<<8
}

// NewUint16BE returns a Uint16BE.
func NewUint16BE() Uint16BE {
	return Uint16BE{
		buff: make([]byte, 2),
	}
}

// Uint16BE provides methods for encoding and decoding big-endian uint16s.
type Uint16BE struct {
	buff []byte
}

// Encode writes the given uint16 to w.
func (e *Uint16BE) Encode(w io.Writer, n uint16) error {
	EncodeUint16BE(e.buff, n)
	return Write(e.buff, w)
}

// Decode decodes a uint16 from r.
func (e *Uint16BE) Decode(r io.Reader) (uint16, error) {
	err := Read(e.buff, r)
	return DecodeUint16BE(e.buff), err
}

// EncodeUint16BE writes a big-endian uint16 to buff.
func EncodeUint16BE(buff []byte, n uint16) {
	buff[0] = uint8(n >> 8)
	buff[1] = uint8(n)
}

// DecodeUint16BE reads a big-endian uint16 from buff.
func DecodeUint16BE(buff []byte) uint16 {
	return uint16(buff[0])<<8 | uint16(buff[1])
}

// NewUint32 returns a Uint32.
func NewUint32() Uint32 {
	return Uint32{
		buff: make([]byte, 4),
	}
}

// Uint32 provides methods for encoding and decoding little-endian uint32s.
type Uint32 struct {
	buff []byte
}

// Encode writes the given uint32 to w.
func (e *Uint32) Encode(w io.Writer, n uint32) error {
	EncodeUint32(e.buff, n)
	return Write(e.buff, w)
}

// Decode decodes a uint32 from r.
func (e *Uint32) Decode(r io.Reader) (uint32, error) {
	err := Read(e.buff, r)
	return DecodeUint32(e.buff), err
}

// EncodeUint32 writes a little-endian uint32 to buff.
func EncodeUint32(buff []byte, n uint32) {
	buff[0] = uint8(n)
	buff[1] = uint8(n >> 8)
	buff[2] = uint8(n >> 16)
	buff[3] = uint8(n >> 24)
}

// DecodeUint32 reads a little-endian uint32 from buff.
func DecodeUint32(buff []byte) uint32 {
	n := uint32(buff[0])
	n |= uint32(buff[1]) << 8
	n |= uint32(buff[2]) << 16
	n |= uint32(buff[3]) << 24
	return n
}

// NewUint64 returns a Uint64.
func NewUint64() Uint64 {
	return Uint64{
		buff: make([]byte, 8),
	}
}

// Uint64 provides methods for encoding and decoding little-endian uint64s.
type Uint64 struct {
	buff []byte
}

// Encode writes the given uint64 to w.
func (e *Uint64) Encode(w io.Writer, n uint64) error {
	EncodeUint64(e.buff, n)
	return Write(e.buff, w)
}

// Decode decodes a uint64 from r.
func (e *Uint64) Decode(r io.Reader) (uint64, error) {
	err := Read(e.buff, r)
	return DecodeUint64(e.buff), err
}

// EncodeUint64 writes a little-endian uint64 to buff.
func EncodeUint64(buff []byte, n uint64) {
	buff[0] = uint8(n)
	buff[1] = uint8(n >> 8)
	buff[2] = uint8(n >> 16)
	buff[3] = uint8(n >> 24)
	buff[4] = uint8(n >> 32)
	buff[5] = uint8(n >> 40)
	buff[6] = uint8(n >> 48)
	buff[7] = uint8(n >> 56)
}

// DecodeUint64 reads a little-endian uint64 from buff.
func DecodeUint64(buff []byte) uint64 {
	n := uint64(buff[0])
	n |= uint64(buff[1]) << 8
	n |= uint64(buff[2]) << 16
	n |= uint64(buff[3]) << 24
	n |= uint64(buff[4]) << 32
	n |= uint64(buff[5]) << 40
	n |= uint64(buff[6]) << 48
	n |= uint64(buff[7]) << 56
	return n
}
