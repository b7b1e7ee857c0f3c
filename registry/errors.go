package registry

import (
	"errors"
	"fmt"

	"github.com/trumank/drg-mods/encio"
)

// Decode failures are unrecoverable; the format has no resynchronisation points, so no partial registry is returned.
// Use errors.Is with these to tell them apart.
var (
	// ErrTruncated is returned when the data ends mid-field. It is encio.ErrTruncated, i.e. io.ErrUnexpectedEOF.
	ErrTruncated = encio.ErrTruncated

	// ErrInvalidTag is returned when a pair's kind tag is 7.
	ErrInvalidTag = errors.New("invalid pair tag")

	// ErrSentinelMismatch is returned when a sentinel word has the wrong value,
	// which usually means an unsupported format revision. The error is a *SentinelError.
	ErrSentinelMismatch = errors.New("sentinel mismatch")

	// ErrUnrepresentable is returned by a Strict Encoder when a value does not fit its wire field.
	ErrUnrepresentable = errors.New("value does not fit its wire field")

	// ErrIndexRange is returned when a name lookup is past the end of the name table.
	ErrIndexRange = errors.New("name index out of range")
)

// Sentinel values and their names.
const (
	StartSentinel uint32 = 0x12345679
	EndSentinel   uint32 = 0x87654321

	StartSentinelName = "start"
	EndSentinelName   = "end"
)

// SentinelError says which sentinel did not match, and what was found in its place.
type SentinelError struct {
	Sentinel string
	Want     uint32
	Got      uint32
	Offset   int64
}

// Error implements error
func (e *SentinelError) Error() string {
	return fmt.Sprintf("registry: %v sentinel mismatch at offset %v: want %#08x, got %#08x", e.Sentinel, e.Offset, e.Want, e.Got)
}

// Unwrap implements errors's Unwrap()
func (e *SentinelError) Unwrap() error {
	return ErrSentinelMismatch
}

func (d *Decoder) sentinel(name string, want uint32) {
	off := d.off
	got := d.uint32()
	if d.err == nil && got != want {
		d.fail(&SentinelError{
			Sentinel: name,
			Want:     want,
			Got:      got,
			Offset:   off,
		})
	}
}
