// Package registry decodes and encodes the asset registry blob a cooked game ships alongside its assets.
//
// The blob catalogs every cooked asset: object and package paths, classes, the name table they index into,
// tag values and the dependency graph. The layout has no self description beyond two sentinel words,
// so the field order of Registry is the wire format, and every table count is read before the tables it sizes.
//
// Decoding then encoding reproduces the input byte for byte, except for the ansi and wide string offset tables,
// which are always recomputed from the strings themselves.
package registry

import (
	"fmt"

	"github.com/trumank/drg-mods/encio"
)

// Registry is a decoded asset registry.
// Fields are in wire order. The Unknown fields are stored and written back unchanged.
type Registry struct {
	Version  Version `json:"version" yaml:"version" cbor:"version"`
	Unknown1 uint32  `json:"unknown1" yaml:"unknown1" cbor:"unknown1"`
	Unknown2 uint32  `json:"unknown2" yaml:"unknown2" cbor:"unknown2"`
	Unknown3 uint16  `json:"unknown3" yaml:"unknown3" cbor:"unknown3"`
	Unknown4 uint16  `json:"unknown4" yaml:"unknown4" cbor:"unknown4"`
	Unknown5 uint32  `json:"unknown5" yaml:"unknown5" cbor:"unknown5"`

	// NameHashes runs parallel to Names; the wire has one count for both.
	NameHashes []uint64 `json:"name_hashes" yaml:"name_hashes,omitempty" cbor:"name_hashes"`
	Names      []string `json:"names" yaml:"names,omitempty" cbor:"names"`

	Unknown6 uint32 `json:"unknown6" yaml:"unknown6" cbor:"unknown6"`
	Unknown7 uint32 `json:"unknown7" yaml:"unknown7" cbor:"unknown7"`
	Unknown8 uint32 `json:"unknown8" yaml:"unknown8" cbor:"unknown8"`
	Unknown9 uint32 `json:"unknown9" yaml:"unknown9" cbor:"unknown9"`

	Texts           []string       `json:"texts" yaml:"texts,omitempty" cbor:"texts"`
	NumberlessNames []FlaggedIndex `json:"numberless_names" yaml:"numberless_names,omitempty" cbor:"numberless_names"`
	NumberedNames   []FlaggedIndex `json:"numbered_names" yaml:"numbered_names,omitempty" cbor:"numbered_names"`
	Assets          []Asset        `json:"assets" yaml:"assets,omitempty" cbor:"assets"`
	ExportPaths     []Asset        `json:"export_paths" yaml:"export_paths,omitempty" cbor:"export_paths"`
	AnsiStrings     []string       `json:"ansi_strings" yaml:"ansi_strings,omitempty" cbor:"ansi_strings"`
	WideStrings     []string       `json:"wide_strings" yaml:"wide_strings,omitempty" cbor:"wide_strings"`
	Pairs           []Pair         `json:"pairs" yaml:"pairs,omitempty" cbor:"pairs"`

	AssetData    []AssetData  `json:"asset_data" yaml:"asset_data,omitempty" cbor:"asset_data"`
	Dependencies Dependencies `json:"dependencies" yaml:"dependencies" cbor:"dependencies"`
}

// AssetData describes one cooked asset.
type AssetData struct {
	ObjectPath  FlaggedIndex `json:"object_path" yaml:"object_path" cbor:"object_path"`
	PackagePath FlaggedIndex `json:"package_path" yaml:"package_path" cbor:"package_path"`
	AssetClass  FlaggedIndex `json:"asset_class" yaml:"asset_class" cbor:"asset_class"`
	PackageName FlaggedIndex `json:"package_name" yaml:"package_name" cbor:"package_name"`
	AssetName   FlaggedIndex `json:"asset_name" yaml:"asset_name" cbor:"asset_name"`
	TagMeta     uint64       `json:"tag_meta" yaml:"tag_meta" cbor:"tag_meta"`
	BundleCount uint32       `json:"bundle_count" yaml:"bundle_count" cbor:"bundle_count"`
	ChunkIDs    []uint32     `json:"chunk_ids" yaml:"chunk_ids,omitempty" cbor:"chunk_ids"`
	Flags       uint32       `json:"flags" yaml:"flags" cbor:"flags"`
}

// Dependencies is the dependency block at the tail of a registry.
type Dependencies struct {
	Size                  uint64   `json:"size" yaml:"size" cbor:"size"`
	Indices               []uint32 `json:"indices" yaml:"indices,omitempty" cbor:"indices"`
	PackageDataBufferSize uint32   `json:"package_data_buffer_size" yaml:"package_data_buffer_size" cbor:"package_data_buffer_size"`
}

// Decode decodes a registry from buff.
// Bytes left over after the dependency block are ignored, and their count reported to encio.Warnings.
func Decode(buff []byte) (*Registry, error) {
	src := encio.NewBuffer(buff)
	reg, err := NewDecoder(src).Decode()
	if err != nil {
		return nil, err
	}
	if src.Len() > 0 {
		fmt.Fprintf(encio.Warnings, "registry: ignoring %v trailing bytes after offset %v\n", src.Len(), src.Offset())
	}
	return reg, nil
}

// Encode encodes reg with a default Encoder.
func Encode(reg *Registry) ([]byte, error) {
	var buff encio.Buffer
	if err := NewEncoder(&buff).Encode(reg); err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (reg *Registry) MarshalBinary() ([]byte, error) {
	return Encode(reg)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (reg *Registry) UnmarshalBinary(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*reg = *decoded
	return nil
}

// Decode reads one registry.
// On error nothing is returned; the position of r is undefined and the Decoder must not be reused.
func (d *Decoder) Decode() (*Registry, error) {
	if d.err != nil {
		return nil, d.err
	}

	reg := new(Registry)
	d.advance(len(reg.Version), encio.Read(reg.Version[:], d.r))

	reg.Unknown1 = d.uint32()
	nameCount := d.uint32()
	reg.Unknown2 = d.uint32()
	reg.Unknown3 = d.uint16()
	reg.Unknown4 = d.uint16()
	reg.Unknown5 = d.uint32()

	reg.NameHashes = readTable(d, nameCount, (*Decoder).uint64)
	reg.Names = d.names(nameCount)

	d.sentinel(StartSentinelName, StartSentinel)

	numberlessNameCount := d.uint32()
	numberedNameCount := d.uint32()
	assetCount := d.uint32()
	exportPathCount := d.uint32()
	textCount := d.uint32()
	ansiStringCount := d.uint32()
	wideStringCount := d.uint32()
	reg.Unknown6 = d.uint32()
	reg.Unknown7 = d.uint32()
	pairCount := d.uint32()
	reg.Unknown8 = d.uint32()
	reg.Unknown9 = d.uint32()

	reg.Texts = readTable(d, textCount, (*Decoder).text)
	reg.NumberlessNames = readTable(d, numberlessNameCount, (*Decoder).flaggedIndex)
	reg.NumberedNames = readTable(d, numberedNameCount, (*Decoder).flaggedIndex)
	reg.Assets = readTable(d, assetCount, (*Decoder).asset)
	reg.ExportPaths = readTable(d, exportPathCount, (*Decoder).asset)

	// The offset tables are derived from the strings and rebuilt on encode.
	readTable(d, ansiStringCount, (*Decoder).uint32)
	readTable(d, wideStringCount, (*Decoder).uint32)

	reg.AnsiStrings = readTable(d, ansiStringCount, (*Decoder).ansiString)
	reg.WideStrings = readTable(d, wideStringCount, (*Decoder).wideString)
	reg.Pairs = readTable(d, pairCount, (*Decoder).pair)

	d.sentinel(EndSentinelName, EndSentinel)

	reg.AssetData = readTable(d, d.uint32(), (*Decoder).assetData)
	reg.Dependencies = d.dependencies()

	if d.err != nil {
		return nil, d.err
	}
	return reg, nil
}

// Encode writes reg to the underlying writer.
// It fails on writer errors, on pair kinds outside the defined seven, and under Strict on values that do not fit.
// A failed Encode leaves partial output that must be discarded, and the Encoder must not be reused.
func (e *Encoder) Encode(reg *Registry) error {
	if e.err != nil {
		return e.err
	}

	e.bytes(reg.Version[:])

	e.uint32(reg.Unknown1)
	e.uint32(uint32(len(reg.Names)))
	e.uint32(reg.Unknown2)
	e.uint16(reg.Unknown3)
	e.uint16(reg.Unknown4)
	e.uint32(reg.Unknown5)

	writeTable(e, e.nameHashes(reg), (*Encoder).uint64)
	e.names(reg.Names)

	e.uint32(StartSentinel)

	e.uint32(uint32(len(reg.NumberlessNames)))
	e.uint32(uint32(len(reg.NumberedNames)))
	e.uint32(uint32(len(reg.Assets)))
	e.uint32(uint32(len(reg.ExportPaths)))
	e.uint32(uint32(len(reg.Texts)))
	e.uint32(uint32(len(reg.AnsiStrings)))
	e.uint32(uint32(len(reg.WideStrings)))
	e.uint32(reg.Unknown6)
	e.uint32(reg.Unknown7)
	e.uint32(uint32(len(reg.Pairs)))
	e.uint32(reg.Unknown8)
	e.uint32(reg.Unknown9)

	writeTable(e, reg.Texts, (*Encoder).text)
	writeTable(e, reg.NumberlessNames, (*Encoder).flaggedIndex)
	writeTable(e, reg.NumberedNames, (*Encoder).flaggedIndex)
	writeTable(e, reg.Assets, (*Encoder).asset)
	writeTable(e, reg.ExportPaths, (*Encoder).asset)

	ansi := make([][]byte, len(reg.AnsiStrings))
	for i, s := range reg.AnsiStrings {
		ansi[i] = e.ansiPayload(i, s)
	}
	wide := make([][]uint16, len(reg.WideStrings))
	for i, s := range reg.WideStrings {
		wide[i] = e.widePayload(i, s)
	}

	offsets(e, ansi)
	offsets(e, wide)
	writeTable(e, ansi, (*Encoder).ansiString)
	writeTable(e, wide, (*Encoder).wideString)

	writeTable(e, reg.Pairs, (*Encoder).pair)

	e.uint32(EndSentinel)

	e.uint32(uint32(len(reg.AssetData)))
	writeTable(e, reg.AssetData, (*Encoder).assetData)
	e.dependencies(reg.Dependencies)

	return e.err
}

// nameHashes returns exactly one hash per name, zero filling or dropping any difference.
func (e *Encoder) nameHashes(reg *Registry) []uint64 {
	if len(reg.NameHashes) == len(reg.Names) {
		return reg.NameHashes
	}

	e.report("%v name hashes for %v names", len(reg.NameHashes), len(reg.Names))
	hashes := make([]uint64, len(reg.Names))
	copy(hashes, reg.NameHashes)
	return hashes
}

func (d *Decoder) assetData() AssetData {
	return AssetData{
		ObjectPath:  d.flaggedIndex(),
		PackagePath: d.flaggedIndex(),
		AssetClass:  d.flaggedIndex(),
		PackageName: d.flaggedIndex(),
		AssetName:   d.flaggedIndex(),
		TagMeta:     d.uint64(),
		BundleCount: d.uint32(),
		ChunkIDs:    readTable(d, d.uint32(), (*Decoder).uint32),
		Flags:       d.uint32(),
	}
}

func (e *Encoder) assetData(a AssetData) {
	e.flaggedIndex(a.ObjectPath)
	e.flaggedIndex(a.PackagePath)
	e.flaggedIndex(a.AssetClass)
	e.flaggedIndex(a.PackageName)
	e.flaggedIndex(a.AssetName)
	e.uint64(a.TagMeta)
	e.uint32(a.BundleCount)
	e.uint32(uint32(len(a.ChunkIDs)))
	writeTable(e, a.ChunkIDs, (*Encoder).uint32)
	e.uint32(a.Flags)
}

func (d *Decoder) dependencies() Dependencies {
	return Dependencies{
		Size:                  d.uint64(),
		Indices:               readTable(d, d.uint32(), (*Decoder).uint32),
		PackageDataBufferSize: d.uint32(),
	}
}

func (e *Encoder) dependencies(deps Dependencies) {
	e.uint64(deps.Size)
	e.uint32(uint32(len(deps.Indices)))
	writeTable(e, deps.Indices, (*Encoder).uint32)
	e.uint32(deps.PackageDataBufferSize)
}
