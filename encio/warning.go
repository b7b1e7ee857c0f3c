package encio

import (
	"io"
	"os"
)

// Warnings is where warnings are sent to.
// Decoding and encoding carry on past things like trailing data or values too wide for their wire field,
// but they are reported here rather than silently put up with.
var Warnings io.Writer = os.Stderr
