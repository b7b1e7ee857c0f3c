// Package encio provides io methods relevant to encoding, as well as error types.
package encio

import (
	"errors"
	"fmt"
	"io"
)

var (
	// TooBig is a byte count used for simple sanity checking before allocation with lengths decoded from readers.
	// ErrMalformed is returned if a length exceeds this.
	//
	// By default it is 32M on 32bit machines, and 128M on 64bit machines.
	// Feel free to change it.
	TooBig = uintptr(1 << (25 + ((^uint(0) >> 32) & 2)))
)

// Read reads from r, completely filling the buffer. It provides error handling with as little overhead as possible.
// In an ideal read, only a single int equality check is performed. If the read reports the whole buffer is read, returned errors are ignored.
//
// A reader that runs dry before buff is full yields an IOError wrapping io.ErrUnexpectedEOF, including the case where nothing at all was read.
func Read(buff []byte, r io.Reader) error {
	n, err := r.Read(buff)
	if n == len(buff) {
		return nil
	}

	end := n
	for end < len(buff) && err == nil && n > 0 {
		n, err = r.Read(buff[end:])
		end += n
	}

	if end != len(buff) {
		switch {
		case end > len(buff):
			return NewIOError(
				errors.New("bad io.Reader implementation"),
				fmt.Sprintf("reported %v bytes read, but buffer is only %v bytes", end, len(buff)),
			)
		case err == nil:
			return NewIOError(
				io.ErrNoProgress,
				fmt.Sprintf("want %v bytes but only got %v", len(buff), end),
			)
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return NewIOError(
				io.ErrUnexpectedEOF,
				fmt.Sprintf("want %v bytes but only got %v", len(buff), end),
			)
		default:
			return err
		}
	}
	return nil
}

// ReadByte reads a single byte from r.
// io.ByteReader implementations are used directly.
func ReadByte(r io.Reader) (byte, error) {
	if br, ok := r.(io.ByteReader); ok {
		b, err := br.ReadByte()
		if errors.Is(err, io.EOF) {
			return 0, NewIOError(io.ErrUnexpectedEOF, "want 1 byte but got none")
		}
		return b, err
	}

	var buff [1]byte
	err := Read(buff[:], r)
	return buff[0], err
}

// Write writes to w from buff, handling errors of io.Writer with as little overhead as possible.
// In an ideal write, only a single int equality check is performed. It returns any error from Write().
func Write(buff []byte, w io.Writer) error {
	n, err := w.Write(buff)
	if n == len(buff) {
		return err
	}

	end := n
	for end < len(buff) && err == nil && n > 0 {
		fmt.Fprintf(Warnings, "encio: %T is a bad io.Writer implementation. It wrote short (given %v bytes but reported only %v written) yet returned no error. Will call it again...\n", w, len(buff)-(end-n), n)
		n, err = w.Write(buff[end:])
		end += n
	}

	if end != len(buff) {
		switch {
		case end > len(buff):
			return NewIOError(
				errors.New("bad io.Writer implementation"),
				fmt.Sprintf("Write() reported %v bytes written, but was only given %v bytes", end, len(buff)),
			)
		case err == nil:
			return NewIOError(
				io.ErrShortWrite,
				fmt.Sprintf("want %v bytes but only wrote %v bytes", len(buff), end),
			)
		default:
			return NewIOError(
				err,
				fmt.Sprintf("want %v bytes but wrote %v bytes", len(buff), end),
			)
		}
	}
	return nil
}
