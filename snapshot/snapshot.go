// Package snapshot stores decoded registries as editable documents.
//
// A snapshot is a YAML, JSON or CBOR document, optionally zstd or lz4 compressed,
// holding a registry together with the fingerprint of the blob it came from.
// Encoding the registry of a snapshot that has not been edited reproduces a blob matching the fingerprint.
package snapshot

import (
	"encoding/json"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trumank/drg-mods/registry"
)

// Kind is the document kind written to every snapshot.
const Kind = "asset-registry"

var (
	ErrUnknownFormat      = errors.New("snapshot: unknown format")
	ErrUnknownCompression = errors.New("snapshot: unknown compression")
	ErrWrongKind          = errors.New("snapshot: not an asset registry snapshot")
	ErrNoRegistry         = errors.New("snapshot: document has no registry")
	ErrBadFingerprint     = errors.New("snapshot: malformed fingerprint")
)

// Document is the top level value of a snapshot.
type Document struct {
	Kind     string             `json:"kind" yaml:"kind" cbor:"kind"`
	Source   Fingerprint        `json:"source" yaml:"source" cbor:"source"`
	Registry *registry.Registry `json:"registry" yaml:"registry" cbor:"registry"`
}

// New decodes blob into a Document fingerprinted with blob.
func New(blob []byte) (*Document, error) {
	reg, err := registry.Decode(blob)
	if err != nil {
		return nil, err
	}
	return &Document{
		Kind:     Kind,
		Source:   FingerprintOf(blob),
		Registry: reg,
	}, nil
}

// Blob encodes the registry of doc.
func (doc *Document) Blob() ([]byte, error) {
	return registry.Encode(doc.Registry)
}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.TextMarshaler = cbor.TextMarshalerTextString
	enc, err := opts.EncMode()
	if err != nil {
		panic("snapshot: cbor encoder: " + err.Error())
	}
	dec, err := cbor.DecOptions{
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("snapshot: cbor decoder: " + err.Error())
	}
	cborEnc, cborDec = enc, dec
}

// Write encodes doc to w.
// An empty Kind is written as Kind.
func Write(w io.Writer, doc *Document, opts Options) (err error) {
	if doc.Registry == nil {
		return ErrNoRegistry
	}
	if doc.Kind == "" {
		d := *doc
		d.Kind = Kind
		doc = &d
	}

	var closer io.Closer
	switch opts.Compression {
	case CompressionNone, "":
	case CompressionZstd:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return errors.Wrap(err, "snapshot: zstd")
		}
		w, closer = zw, zw
	case CompressionLZ4:
		zw := lz4.NewWriter(w)
		w, closer = zw, zw
	default:
		return errors.Wrapf(ErrUnknownCompression, "%q", opts.Compression)
	}
	if closer != nil {
		defer func() {
			if cerr := closer.Close(); cerr != nil && err == nil {
				err = errors.Wrapf(cerr, "snapshot: closing %v stream", opts.Compression)
			}
		}()
	}

	switch opts.Format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return errors.Wrap(err, "snapshot: yaml")
		}
		return errors.Wrap(enc.Close(), "snapshot: yaml")
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(doc), "snapshot: json")
	case FormatCBOR:
		return errors.Wrap(cborEnc.NewEncoder(w).Encode(doc), "snapshot: cbor")
	default:
		return errors.Wrapf(ErrUnknownFormat, "%q", opts.Format)
	}
}

// Read decodes one snapshot from r and checks its kind and fingerprint.
func Read(r io.Reader, opts Options) (*Document, error) {
	switch opts.Compression {
	case CompressionNone, "":
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "snapshot: zstd")
		}
		defer zr.Close()
		r = zr
	case CompressionLZ4:
		r = lz4.NewReader(r)
	default:
		return nil, errors.Wrapf(ErrUnknownCompression, "%q", opts.Compression)
	}

	doc := new(Document)
	switch opts.Format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(doc); err != nil {
			return nil, errors.Wrap(err, "snapshot: yaml")
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(doc); err != nil {
			return nil, errors.Wrap(err, "snapshot: json")
		}
	case FormatCBOR:
		if err := cborDec.NewDecoder(r).Decode(doc); err != nil {
			return nil, errors.Wrap(err, "snapshot: cbor")
		}
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", opts.Format)
	}

	if doc.Kind != Kind {
		return nil, errors.Wrapf(ErrWrongKind, "kind %q", doc.Kind)
	}
	if doc.Registry == nil {
		return nil, ErrNoRegistry
	}
	if err := doc.Source.Validate(); err != nil {
		return nil, errors.Wrap(err, "snapshot: source")
	}
	return doc, nil
}
