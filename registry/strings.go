package registry

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"

	"github.com/trumank/drg-mods/encio"
)

var nul = []byte{0}

// names decodes the name table: every big-endian length first, then every payload.
func (d *Decoder) names(n uint32) []string {
	lengths := readTable(d, n, (*Decoder).uint16BE)
	if lengths == nil {
		return nil
	}

	names := make([]string, 0, len(lengths))
	for _, l := range lengths {
		buff := d.bytes(int(l))
		if d.err != nil {
			return nil
		}
		names = append(names, lossyUTF8(buff))
	}
	return names
}

func (e *Encoder) names(names []string) {
	payloads := make([][]byte, len(names))
	for i, name := range names {
		payload := []byte(name)
		if len(payload) > maxNameLength {
			e.report("name %v is %v bytes long, over the %v byte limit", i, len(payload), maxNameLength)
			payload = payload[:maxNameLength]
		}
		payloads[i] = payload
	}

	writeTable(e, payloads, func(e *Encoder, payload []byte) {
		e.uint16BE(uint16(len(payload)))
	})
	writeTable(e, payloads, (*Encoder).bytes)
}

// text is a length-prefixed string. The length counts a trailing NUL.
func (d *Decoder) text() string {
	off := d.off
	n := d.uint32()
	if d.err != nil {
		return ""
	}
	if n == 0 || uintptr(n) > encio.TooBig {
		d.fail(encio.NewError(encio.ErrMalformed, fmt.Sprintf("text length %v at offset %v", n, off), "registry.Decoder.text"))
		return ""
	}

	buff := d.bytes(int(n - 1))
	d.byte()
	return lossyUTF8(buff)
}

func (e *Encoder) text(s string) {
	e.uint32(uint32(len(s)) + 1)
	e.bytes([]byte(s))
	e.bytes(nul)
}

func (d *Decoder) ansiString() string {
	var buff []byte
	for {
		b := d.byte()
		if d.err != nil || b == 0 {
			break
		}
		buff = append(buff, b)
	}
	return lossyUTF8(buff)
}

func (e *Encoder) ansiString(payload []byte) {
	e.bytes(payload)
	e.bytes(nul)
}

// ansiPayload is s as it will be written, stopping short of any NUL.
func (e *Encoder) ansiPayload(i int, s string) []byte {
	payload := []byte(s)
	if end := bytes.IndexByte(payload, 0); end >= 0 {
		e.report("ansi string %v contains a NUL at byte %v", i, end)
		payload = payload[:end]
	}
	return payload
}

func (d *Decoder) wideString() string {
	var runes []rune
	for {
		unit := d.uint16()
		if d.err != nil || unit == 0 {
			break
		}
		runes = append(runes, wideRune(unit))
	}
	return string(runes)
}

func (e *Encoder) wideString(units []uint16) {
	writeTable(e, units, (*Encoder).uint16)
	e.uint16(0)
}

// widePayload is s as the code units that will be written, one per rune, stopping short of any NUL.
func (e *Encoder) widePayload(i int, s string) []uint16 {
	units := make([]uint16, 0, len(s))
	for _, r := range s {
		if r == 0 {
			e.report("wide string %v contains a NUL at rune %v", i, len(units))
			break
		}
		units = append(units, wideUnit(r))
	}
	return units
}

// wideRune maps a code unit to a rune. Surrogate halves are never paired up.
func wideRune(unit uint16) rune {
	r := rune(unit)
	if utf16.IsSurrogate(r) {
		return utf8.RuneError
	}
	return r
}

// wideUnit maps a rune to a code unit, substituting runes that need more than one.
func wideUnit(r rune) uint16 {
	if r > 0xFFFF || utf16.IsSurrogate(r) {
		return uint16(utf8.RuneError)
	}
	return uint16(r)
}

// offsets writes the running sum of each payload's length plus its terminator.
func offsets[T any](e *Encoder, payloads [][]T) {
	var off uint32
	for _, payload := range payloads {
		e.uint32(off)
		off += uint32(len(payload)) + 1
	}
}

// lossyUTF8 replaces invalid UTF-8 with U+FFFD rather than failing.
func lossyUTF8(buff []byte) string {
	if utf8.Valid(buff) {
		return string(buff)
	}
	valid, err := unicode.UTF8.NewDecoder().Bytes(buff)
	if err != nil {
		return strings.ToValidUTF8(string(buff), string(utf8.RuneError))
	}
	return string(valid)
}
