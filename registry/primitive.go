package registry

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/trumank/drg-mods/encio"
)

// Version is the opaque 16 byte stamp at the head of a registry.
// It is only ever compared for equality.
type Version [16]byte

// MarshalText implements encoding.TextMarshaler as 32 lowercase hex digits.
func (v Version) MarshalText() ([]byte, error) {
	buff := make([]byte, hex.EncodedLen(len(v)))
	hex.Encode(buff, v[:])
	return buff, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	if hex.DecodedLen(len(text)) != len(v) {
		return fmt.Errorf("version %q: want %v hex digits", text, hex.EncodedLen(len(v)))
	}
	_, err := hex.Decode(v[:], text)
	return err
}

// String implements fmt.Stringer.
func (v Version) String() string {
	return hex.EncodeToString(v[:])
}

// NameIndex is a plain reference into the name table.
type NameIndex uint32

const (
	flagBit       = 1 << 31
	maxFlagged    = flagBit - 1
	kindShift     = 29
	maxPairValue  = 1<<kindShift - 1
	maxNameLength = 1<<16 - 1
)

// FlaggedIndex is a name table reference that may carry one extra word, the name's instance number.
// On the wire the top bit of the index word says whether the number follows,
// so Index only has 31 usable bits.
type FlaggedIndex struct {
	Index     uint32
	Number    uint32
	HasNumber bool
}

// Flagged returns a FlaggedIndex without a number.
func Flagged(index uint32) FlaggedIndex {
	return FlaggedIndex{Index: index}
}

// Numbered returns a FlaggedIndex carrying number.
func Numbered(index, number uint32) FlaggedIndex {
	return FlaggedIndex{Index: index, Number: number, HasNumber: true}
}

// String implements fmt.Stringer.
// It returns the index, followed by #number when a number is present.
func (f FlaggedIndex) String() string {
	if f.HasNumber {
		return strconv.FormatUint(uint64(f.Index), 10) + "#" + strconv.FormatUint(uint64(f.Number), 10)
	}
	return strconv.FormatUint(uint64(f.Index), 10)
}

// MarshalText implements encoding.TextMarshaler using the String form.
func (f FlaggedIndex) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, accepting the String form.
func (f *FlaggedIndex) UnmarshalText(text []byte) error {
	index, number, numbered := strings.Cut(string(text), "#")

	i, err := strconv.ParseUint(index, 10, 31)
	if err != nil {
		return fmt.Errorf("flagged index %q: %w", text, err)
	}

	*f = FlaggedIndex{Index: uint32(i)}
	if numbered {
		n, err := strconv.ParseUint(number, 10, 32)
		if err != nil {
			return fmt.Errorf("flagged index %q: %w", text, err)
		}
		f.Number, f.HasNumber = uint32(n), true
	}
	return nil
}

func (d *Decoder) flaggedIndex() FlaggedIndex {
	word := d.uint32()
	if word&flagBit == 0 {
		return FlaggedIndex{Index: word}
	}
	return FlaggedIndex{
		Index:     word &^ flagBit,
		Number:    d.uint32(),
		HasNumber: true,
	}
}

func (e *Encoder) flaggedIndex(f FlaggedIndex) {
	word := e.fit("flagged index", f.Index, maxFlagged)
	if !f.HasNumber {
		e.uint32(word)
		return
	}
	e.uint32(word | flagBit)
	e.uint32(f.Number)
}

// Kind is the 3 bit tag saying what a Pair's value refers to.
type Kind uint8

// Kinds, numbered as on the wire.
const (
	KindAnsiString Kind = iota
	KindWideString
	KindNumberlessName
	KindName
	KindNumberlessExportPath
	KindExportPath
	KindLocalizedText

	numKinds
)

var kindNames = [numKinds]string{
	KindAnsiString:           "AnsiString",
	KindWideString:           "WideString",
	KindNumberlessName:       "NumberlessName",
	KindName:                 "Name",
	KindNumberlessExportPath: "NumberlessExportPath",
	KindExportPath:           "ExportPath",
	KindLocalizedText:        "LocalizedText",
}

// KindFromCode maps a wire tag to its Kind.
// Codes outside 0-6 return an error wrapping ErrInvalidTag.
func KindFromCode(code uint32) (Kind, error) {
	if code >= uint32(numKinds) {
		return 0, encio.NewError(ErrInvalidTag, fmt.Sprintf("tag %v", code), "")
	}
	return Kind(code), nil
}

// Code returns the wire tag of k.
func (k Kind) Code() uint32 { return uint32(k) }

// Valid reports whether k is one of the seven defined kinds.
func (k Kind) Valid() bool { return k < numKinds }

// String implements fmt.Stringer.
func (k Kind) String() string {
	if !k.Valid() {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, encio.NewError(ErrInvalidTag, fmt.Sprintf("tag %v", uint8(k)), "")
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = Kind(i)
			return nil
		}
	}
	return encio.NewError(ErrInvalidTag, fmt.Sprintf("unknown kind %q", text), "")
}

// Pair is a tag value: the key's name index plus a kind and a 29 bit value packed into one word.
type Pair struct {
	Key   NameIndex `json:"key" yaml:"key" cbor:"key"`
	Kind  Kind      `json:"kind" yaml:"kind" cbor:"kind"`
	Value uint32    `json:"value" yaml:"value" cbor:"value"`
}

func (d *Decoder) pair() Pair {
	p := Pair{Key: NameIndex(d.uint32())}
	off := d.off
	word := d.uint32()
	if d.err != nil {
		return p
	}

	kind, err := KindFromCode(word >> kindShift)
	if err != nil {
		d.err = encio.NewError(ErrInvalidTag, fmt.Sprintf("tag %v in word %#08x at offset %v", word>>kindShift, word, off), "registry.Decoder.pair")
		return p
	}
	p.Kind = kind
	p.Value = word & maxPairValue
	return p
}

func (e *Encoder) pair(p Pair) {
	if !p.Kind.Valid() {
		e.fail(encio.NewError(ErrInvalidTag, fmt.Sprintf("pair kind %v", uint8(p.Kind)), "registry.Encoder.pair"))
		return
	}
	e.uint32(uint32(p.Key))
	e.uint32(p.Kind.Code()<<kindShift | e.fit("pair value", p.Value, maxPairValue))
}

// Asset is the path triple shared by the asset and export path tables.
type Asset struct {
	ObjectPath  FlaggedIndex `json:"object_path" yaml:"object_path" cbor:"object_path"`
	PackagePath FlaggedIndex `json:"package_path" yaml:"package_path" cbor:"package_path"`
	AssetClass  FlaggedIndex `json:"asset_class" yaml:"asset_class" cbor:"asset_class"`
}

func (d *Decoder) asset() Asset {
	return Asset{
		ObjectPath:  d.flaggedIndex(),
		PackagePath: d.flaggedIndex(),
		AssetClass:  d.flaggedIndex(),
	}
}

func (e *Encoder) asset(a Asset) {
	e.flaggedIndex(a.ObjectPath)
	e.flaggedIndex(a.PackagePath)
	e.flaggedIndex(a.AssetClass)
}
