package encio

import (
	"io"
)

// Buffer is an in-memory reader and writer, similar to bytes.Buffer.
// Writes never fail, and the read position is exposed so decoders can report offsets.
type Buffer struct {
	buff []byte
	off  int
}

// NewBuffer returns a Buffer whose unread portion is buff.
// The buffer takes ownership of buff.
func NewBuffer(buff []byte) *Buffer {
	return &Buffer{buff: buff}
}

// Read implements io.Reader
func (b *Buffer) Read(buff []byte) (int, error) {
	if len(buff) == 0 {
		return 0, nil
	}
	n := copy(buff, b.buff[b.off:])
	b.off += n
	if n < len(buff) {
		return n, io.EOF
	}
	return n, nil
}

// ReadByte implements io.ByteReader
func (b *Buffer) ReadByte() (byte, error) {
	if b.Len() == 0 {
		return 0, io.EOF
	}
	b.off++
	return b.buff[b.off-1], nil
}

// Write implements io.Writer
func (b *Buffer) Write(buff []byte) (int, error) {
	return copy(b.extend(len(buff)), buff), nil
}

// WriteByte implements io.ByteWriter
func (b *Buffer) WriteByte(by byte) error {
	b.extend(1)[0] = by
	return nil
}

// Len returns the length of the unread portion of the buffer.
func (b *Buffer) Len() int {
	return len(b.buff) - b.off
}

// Offset returns how many bytes have been read from the buffer.
func (b *Buffer) Offset() int {
	return b.off
}

// Bytes returns the unread portion of the buffer.
// The slice aliases the buffer and is only valid until the next write.
func (b *Buffer) Bytes() []byte {
	return b.buff[b.off:]
}

// extend lengthens the buffer by n bytes and returns them.
// Already read bytes are dropped when it has to reallocate or slide.
func (b *Buffer) extend(n int) []byte {
	l := len(b.buff)
	if l+n > cap(b.buff) {
		unread := l - b.off
		if (unread+n)*8 <= cap(b.buff) {
			copy(b.buff, b.buff[b.off:])
		} else {
			nb := make([]byte, unread, cap(b.buff)*2+n)
			copy(nb, b.buff[b.off:])
			b.buff = nb
		}
		b.buff = b.buff[:unread]
		b.off = 0
		l = unread
	}
	b.buff = b.buff[:l+n]
	return b.buff[l:]
}
