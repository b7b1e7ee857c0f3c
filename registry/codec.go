package registry

import (
	"bufio"
	"fmt"
	"io"
	"slices"

	"github.com/trumank/drg-mods/encio"
)

// NewDecoder returns a Decoder reading a registry from r.
// Readers that are not io.ByteReaders are buffered, so the Decoder may read past the end of the registry.
func NewDecoder(r io.Reader) *Decoder {
	if _, ok := r.(io.ByteReader); !ok {
		r = bufio.NewReader(r)
	}
	return &Decoder{
		r:     r,
		u16:   encio.NewUint16(),
		u16be: encio.NewUint16BE(),
		u32:   encio.NewUint32(),
		u64:   encio.NewUint64(),
	}
}

// Decoder reads registries from an io.Reader.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	r     io.Reader
	u16   encio.Uint16
	u16be encio.Uint16BE
	u32   encio.Uint32
	u64   encio.Uint64

	off int64
	err error
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int64 { return d.off }

func (d *Decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Decoder) uint16() uint16 {
	if d.err != nil {
		return 0
	}
	n, err := d.u16.Decode(d.r)
	d.advance(2, err)
	return n
}

func (d *Decoder) uint16BE() uint16 {
	if d.err != nil {
		return 0
	}
	n, err := d.u16be.Decode(d.r)
	d.advance(2, err)
	return n
}

func (d *Decoder) uint32() uint32 {
	if d.err != nil {
		return 0
	}
	n, err := d.u32.Decode(d.r)
	d.advance(4, err)
	return n
}

func (d *Decoder) uint64() uint64 {
	if d.err != nil {
		return 0
	}
	n, err := d.u64.Decode(d.r)
	d.advance(8, err)
	return n
}

func (d *Decoder) byte() byte {
	if d.err != nil {
		return 0
	}
	b, err := encio.ReadByte(d.r)
	d.advance(1, err)
	return b
}

// bytes reads n bytes, growing the result at most maxReserve bytes at a time
// so a corrupt length costs no more memory than the data actually present.
func (d *Decoder) bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	buff := make([]byte, 0, min(n, maxReserve))
	for len(buff) < n {
		start := len(buff)
		chunk := min(n-start, maxReserve)
		buff = slices.Grow(buff, chunk)[:start+chunk]
		if err := encio.Read(buff[start:], d.r); err != nil {
			d.advance(n, err)
			return nil
		}
	}
	d.advance(n, nil)
	return buff
}

func (d *Decoder) advance(n int, err error) {
	if err != nil {
		d.fail(encio.NewIOError(err, fmt.Sprintf("reading %v bytes at offset %v", n, d.off)))
		return
	}
	d.off += int64(n)
}

// NewEncoder returns an Encoder writing registries to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:     w,
		u16:   encio.NewUint16(),
		u16be: encio.NewUint16BE(),
		u32:   encio.NewUint32(),
		u64:   encio.NewUint64(),
	}
}

// Encoder writes registries to an io.Writer.
// An Encoder is not safe for concurrent use.
//
// A value the wire cannot hold as given (a flagged index of 2^31 or more, a pair value of 2^29 or more,
// a name longer than 65535 bytes, a NUL inside a terminated string, a name hash count that differs from the name count)
// is masked, cut or padded to fit and reported to Warnings.
// With Strict set, it fails the encode with an error wrapping ErrUnrepresentable instead.
// A pair Kind outside the seven defined kinds always fails the encode with ErrInvalidTag.
type Encoder struct {
	Strict bool
	// Warnings receives reports of adjusted values; nil means encio.Warnings.
	Warnings io.Writer

	w     io.Writer
	u16   encio.Uint16
	u16be encio.Uint16BE
	u32   encio.Uint32
	u64   encio.Uint64

	err error
}

func (e *Encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *Encoder) uint16(n uint16) {
	if e.err == nil {
		e.err = e.u16.Encode(e.w, n)
	}
}

func (e *Encoder) uint16BE(n uint16) {
	if e.err == nil {
		e.err = e.u16be.Encode(e.w, n)
	}
}

func (e *Encoder) uint32(n uint32) {
	if e.err == nil {
		e.err = e.u32.Encode(e.w, n)
	}
}

func (e *Encoder) uint64(n uint64) {
	if e.err == nil {
		e.err = e.u64.Encode(e.w, n)
	}
}

func (e *Encoder) bytes(buff []byte) {
	if e.err == nil && len(buff) > 0 {
		e.err = encio.Write(buff, e.w)
	}
}

// fit returns v masked to mask, reporting values that did not fit.
func (e *Encoder) fit(what string, v, mask uint32) uint32 {
	if v&^mask != 0 {
		e.report("%v %#x is wider than its field (max %#x)", what, v, mask)
	}
	return v & mask
}

// report fails the encode under Strict, and warns otherwise.
func (e *Encoder) report(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if e.Strict {
		e.fail(encio.NewError(ErrUnrepresentable, msg, "registry.Encoder"))
		return
	}
	w := e.Warnings
	if w == nil {
		w = encio.Warnings
	}
	fmt.Fprintf(w, "registry: %v\n", msg)
}
