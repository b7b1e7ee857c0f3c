package encio

import (
	"errors"
	"io"
	"runtime"
)

// Decode failures come wrapped in one of two types.
// IOError means the reader ran dry or misbehaved, and Error means the bytes themselves make no sense.
// Both unwrap to the sentinel below them, so
//
//	var ioErr IOError
//	switch {
//	case errors.Is(err, ErrTruncated):
//		// the data ends early
//	case errors.As(err, &ioErr):
//		// the reader failed
//	case errors.Is(err, ErrMalformed):
//		// bad data
//	}
var (
	// ErrMalformed is wrapped by Error when a decoded value cannot be used, such as an impossible length.
	ErrMalformed = errors.New("malformed")

	// ErrTruncated is wrapped by IOError when data ends mid-field.
	// It is io.ErrUnexpectedEOF.
	ErrTruncated = io.ErrUnexpectedEOF
)

// NewIOError returns an IOError wrapping err.
// An empty message is replaced with the name of the calling function.
func NewIOError(err error, message string) error {
	if err == nil {
		return NewError(errors.New("nil error"), "NewIOError called without a cause", "encio.NewIOError")
	}
	if message == "" {
		message = "in " + GetCaller(1)
	}
	return IOError{
		Err:     err,
		Message: message,
	}
}

// IOError is returned when a reader or writer fails, or when data ends early.
type IOError struct {
	Err     error
	Message string
}

// Error implements error
func (e IOError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// Unwrap implements errors's Unwrap()
func (e IOError) Unwrap() error {
	return e.Err
}

// NewError returns an Error wrapping err.
// An empty caller is replaced with the name of the calling function.
func NewError(err error, message string, caller string) error {
	if caller == "" {
		caller = GetCaller(1)
	}
	return Error{
		Err:     err,
		Message: message,
		Caller:  caller,
	}
}

// Error is returned when decoded data is invalid.
// Message says what was found and where; Caller names the decoding step that rejected it.
type Error struct {
	Err     error
	Message string
	Caller  string
}

// Error implements error
func (e Error) Error() string {
	str := e.Err.Error()
	if e.Caller != "" {
		str = e.Caller + ": " + str
	}
	if e.Message != "" {
		str += " (" + e.Message + ")"
	}
	return str
}

// Unwrap implements errors's Unwrap()
func (e Error) Unwrap() error {
	return e.Err
}

// GetCaller returns the name of the function skip frames above the caller of GetCaller.
func GetCaller(skip int) string {
	pcs := make([]uintptr, 1)
	if runtime.Callers(2+skip, pcs) != 1 {
		return "unknown function"
	}
	frame, _ := runtime.CallersFrames(pcs).Next()
	return frame.Function
}
