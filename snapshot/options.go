package snapshot

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Format is the document encoding of a snapshot.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// ParseFormat parses a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatYAML, FormatJSON, FormatCBOR:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "%q", name)
	}
}

// Compression is the stream compression wrapped around an encoded snapshot.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

// ParseCompression parses a compression name.
// The empty string means CompressionNone.
func ParseCompression(name string) (Compression, error) {
	switch c := Compression(strings.ToLower(name)); c {
	case CompressionNone, CompressionZstd, CompressionLZ4:
		return c, nil
	case "":
		return CompressionNone, nil
	case "zst":
		return CompressionZstd, nil
	default:
		return "", errors.Wrapf(ErrUnknownCompression, "%q", name)
	}
}

// Options selects how a snapshot is encoded.
type Options struct {
	Format      Format
	Compression Compression
}

// WithDefaults fills the fields of o that are unset from def.
func (o Options) WithDefaults(def Options) Options {
	if o.Format == "" {
		o.Format = def.Format
	}
	if o.Compression == "" {
		o.Compression = def.Compression
	}
	return o
}

var (
	compressionSuffixes = map[string]Compression{
		".zst":  CompressionZstd,
		".zstd": CompressionZstd,
		".lz4":  CompressionLZ4,
	}
	formatSuffixes = map[string]Format{
		".yaml": FormatYAML,
		".yml":  FormatYAML,
		".json": FormatJSON,
		".cbor": FormatCBOR,
	}
)

// OptionsForPath derives options from the extensions of path, such as "out.yaml" or "out.cbor.zst".
//
// A path with a compression suffix but no recognised format extension
// returns the compression it found along with ErrUnknownFormat,
// so callers can fill the format in with WithDefaults.
func OptionsForPath(path string) (Options, error) {
	var opts Options
	name := strings.ToLower(filepath.Base(path))

	ext := filepath.Ext(name)
	if c, ok := compressionSuffixes[ext]; ok {
		opts.Compression = c
		name = strings.TrimSuffix(name, ext)
		ext = filepath.Ext(name)
	}

	f, ok := formatSuffixes[ext]
	if !ok {
		return opts, errors.Wrapf(ErrUnknownFormat, "cannot tell the snapshot format of %v", path)
	}
	opts.Format = f
	if opts.Compression == "" {
		opts.Compression = CompressionNone
	}
	return opts, nil
}
