package registry_test

import (
	"bytes"
	"errors"
	"io"
	"runtime"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/maxatome/go-testdeep/td"

	"github.com/trumank/drg-mods/encio"
	"github.com/trumank/drg-mods/registry"
)

// Byte offsets in a registry whose name table and earlier tables are empty.
const (
	startSentinelOffset = 16 + 4 + 4 + 4 + 2 + 2 + 4
	countsOffset        = startSentinelOffset + 4
	tablesOffset        = countsOffset + 12*4
)

func sampleRegistry() *registry.Registry {
	return &registry.Registry{
		Version:  registry.Version{0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70, 0x80, 0x90, 0xA0, 0xB0, 0xC0, 0xD0, 0xE0, 0xF0, 0xFF},
		Unknown1: 1,
		Unknown2: 0xFFFFFFFF,
		Unknown3: 3,
		Unknown4: 0xBEEF,
		Unknown5: 5,
		NameHashes: []uint64{
			0x1111111111111111, 2, 3, 4, 5, 0xFFFFFFFFFFFFFFFF,
		},
		Names: []string{
			"/Game/FX/P_Spark.P_Spark", "P_Spark", "ParticleSystem", "/Game/FX/P_Spark", "NiagaraSystem", "Hello",
		},
		Unknown6: 6,
		Unknown7: 7,
		Unknown8: 8,
		Unknown9: 9,
		Texts:    []string{"Hi", "", "Mission Control"},
		NumberlessNames: []registry.FlaggedIndex{
			registry.Flagged(0),
			registry.Flagged(5),
		},
		NumberedNames: []registry.FlaggedIndex{
			registry.Numbered(1, 3),
			registry.Flagged(2),
		},
		Assets: []registry.Asset{
			{ObjectPath: registry.Flagged(0), PackagePath: registry.Flagged(3), AssetClass: registry.Flagged(2)},
			{ObjectPath: registry.Numbered(1, 1), PackagePath: registry.Flagged(3), AssetClass: registry.Flagged(4)},
		},
		ExportPaths: []registry.Asset{
			{ObjectPath: registry.Flagged(1), PackagePath: registry.Flagged(3), AssetClass: registry.Numbered(2, 9)},
		},
		AnsiStrings: []string{"", "ansi", "x"},
		WideStrings: []string{"A", "wide é€", ""},
		Pairs: []registry.Pair{
			{Key: 0, Kind: registry.KindAnsiString, Value: 1},
			{Key: 1, Kind: registry.KindWideString, Value: 0},
			{Key: 2, Kind: registry.KindNumberlessName, Value: 1<<29 - 1},
			{Key: 3, Kind: registry.KindName, Value: 1},
			{Key: 4, Kind: registry.KindNumberlessExportPath, Value: 0},
			{Key: 5, Kind: registry.KindExportPath, Value: 0},
			{Key: 5, Kind: registry.KindLocalizedText, Value: 2},
		},
		AssetData: []registry.AssetData{
			{
				ObjectPath:  registry.Flagged(0),
				PackagePath: registry.Flagged(3),
				AssetClass:  registry.Flagged(2),
				PackageName: registry.Flagged(3),
				AssetName:   registry.Flagged(1),
				TagMeta:     0x0102030405060708,
				BundleCount: 0,
				ChunkIDs:    []uint32{1, 2},
				Flags:       0x80000000,
			},
			{
				ObjectPath:  registry.Numbered(0, 2),
				PackagePath: registry.Flagged(3),
				AssetClass:  registry.Flagged(4),
				PackageName: registry.Flagged(3),
				AssetName:   registry.Numbered(1, 2),
				BundleCount: 1,
			},
		},
		Dependencies: registry.Dependencies{
			Size:                  24,
			Indices:               []uint32{0, 1, 0x80000000},
			PackageDataBufferSize: 16,
		},
	}
}

func encode(t *testing.T, reg *registry.Registry) []byte {
	t.Helper()
	buff, err := registry.Encode(reg)
	td.Require(t).CmpNoError(err)
	return buff
}

func quietWarnings(t *testing.T) *bytes.Buffer {
	t.Helper()
	warnings := new(bytes.Buffer)
	old := encio.Warnings
	encio.Warnings = warnings
	t.Cleanup(func() { encio.Warnings = old })
	return warnings
}

func TestRoundTrip(t *testing.T) {
	reg := sampleRegistry()
	buff := encode(t, reg)

	decoded, err := registry.Decode(buff)
	td.CmpNoError(t, err)
	td.Cmp(t, decoded, reg)

	td.Cmp(t, encode(t, decoded), buff)
}

func TestEmptyRegistry(t *testing.T) {
	reg := new(registry.Registry)
	buff := encode(t, reg)
	td.Cmp(t, len(buff), tablesOffset+4+4+8+4+4)

	decoded, err := registry.Decode(buff)
	td.CmpNoError(t, err)
	td.Cmp(t, decoded, reg)
}

func TestStreamingDecoder(t *testing.T) {
	first, second := sampleRegistry(), new(registry.Registry)
	second.Names = []string{"only"}
	second.NameHashes = []uint64{1}

	buff := new(bytes.Buffer)
	enc := registry.NewEncoder(buff)
	td.CmpNoError(t, enc.Encode(first))
	td.CmpNoError(t, enc.Encode(second))

	// io.MultiReader is not an io.ByteReader, so the Decoder buffers it.
	dec := registry.NewDecoder(io.MultiReader(buff))
	got, err := dec.Decode()
	td.CmpNoError(t, err)
	td.Cmp(t, got, first)

	got, err = dec.Decode()
	td.CmpNoError(t, err)
	td.Cmp(t, got, second)
}

func TestBinaryMarshaler(t *testing.T) {
	reg := sampleRegistry()
	data, err := reg.MarshalBinary()
	td.CmpNoError(t, err)

	var decoded registry.Registry
	td.CmpNoError(t, decoded.UnmarshalBinary(data))
	td.Cmp(t, &decoded, reg)
}

func TestTableOrdering(t *testing.T) {
	reg := new(registry.Registry)
	reg.Assets = []registry.Asset{
		{ObjectPath: registry.Flagged(1), PackagePath: registry.Flagged(2), AssetClass: registry.Flagged(3)},
		{ObjectPath: registry.Numbered(4, 40), PackagePath: registry.Flagged(5), AssetClass: registry.Flagged(6)},
	}
	reg.ExportPaths = []registry.Asset{
		{ObjectPath: registry.Flagged(7), PackagePath: registry.Numbered(8, 80), AssetClass: registry.Flagged(9)},
	}
	buff := encode(t, reg)

	td.Cmp(t, encio.DecodeUint32(buff[countsOffset+2*4:]), uint32(2), "asset count")
	td.Cmp(t, encio.DecodeUint32(buff[countsOffset+3*4:]), uint32(1), "export path count")

	// Two asset records (12 + 16 bytes), then one export path record (16 bytes).
	td.Cmp(t, encio.DecodeUint32(buff[tablesOffset:]), uint32(1))
	td.Cmp(t, encio.DecodeUint32(buff[tablesOffset+12:]), uint32(4|1<<31))
	td.Cmp(t, encio.DecodeUint32(buff[tablesOffset+28:]), uint32(7))

	decoded, err := registry.Decode(buff)
	td.CmpNoError(t, err)
	td.Cmp(t, decoded.Assets, reg.Assets)
	td.Cmp(t, decoded.ExportPaths, reg.ExportPaths)
}

func TestSentinels(t *testing.T) {
	buff := encode(t, new(registry.Registry))
	td.Cmp(t, encio.DecodeUint32(buff[startSentinelOffset:]), registry.StartSentinel)
	td.Cmp(t, encio.DecodeUint32(buff[tablesOffset:]), registry.EndSentinel)

	testCases := []struct {
		desc     string
		offset   int
		sentinel string
		want     uint32
	}{
		{desc: "Start", offset: startSentinelOffset, sentinel: "start", want: registry.StartSentinel},
		{desc: "End", offset: tablesOffset, sentinel: "end", want: registry.EndSentinel},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			corrupt := append([]byte(nil), buff...)
			corrupt[tC.offset] ^= 0xFF

			_, err := registry.Decode(corrupt)
			td.CmpTrue(t, errors.Is(err, registry.ErrSentinelMismatch), "got %v", err)

			var sentinelErr *registry.SentinelError
			if td.CmpTrue(t, errors.As(err, &sentinelErr)) {
				td.Cmp(t, sentinelErr, &registry.SentinelError{
					Sentinel: tC.sentinel,
					Want:     tC.want,
					Got:      tC.want ^ 0xFF,
					Offset:   int64(tC.offset),
				})
				td.CmpTrue(t, strings.Contains(err.Error(), tC.sentinel+" sentinel"))
			}
		})
	}
}

func TestTruncated(t *testing.T) {
	buff := encode(t, sampleRegistry())
	for n := 0; n < len(buff); n++ {
		_, err := registry.Decode(buff[:n])
		if !errors.Is(err, registry.ErrTruncated) {
			t.Fatalf("decoding %v of %v bytes: want truncation error, got %v", n, len(buff), err)
		}
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Fatalf("decoding %v of %v bytes: %v does not match io.ErrUnexpectedEOF", n, len(buff), err)
		}
	}
}

func TestTrailingBytes(t *testing.T) {
	warnings := quietWarnings(t)
	buff := append(encode(t, sampleRegistry()), 1, 2, 3)

	decoded, err := registry.Decode(buff)
	td.CmpNoError(t, err)
	td.Cmp(t, decoded, sampleRegistry())
	td.CmpContains(t, warnings.String(), "3 trailing bytes")
}

func TestInvalidTag(t *testing.T) {
	reg := new(registry.Registry)
	reg.Pairs = []registry.Pair{{Key: 1, Kind: registry.KindName, Value: 5}}
	buff := encode(t, reg)

	// Pairs are the only table, so the kind word's top byte is 7 bytes in.
	buff[tablesOffset+7] |= 0xE0

	_, err := registry.Decode(buff)
	td.CmpTrue(t, errors.Is(err, registry.ErrInvalidTag), "got %v", err)

	var encErr encio.Error
	td.CmpTrue(t, errors.As(err, &encErr))
}

func TestZeroTextLength(t *testing.T) {
	reg := new(registry.Registry)
	reg.Texts = []string{"x"}
	buff := encode(t, reg)
	td.Cmp(t, encio.DecodeUint32(buff[tablesOffset:]), uint32(2))

	encio.EncodeUint32(buff[tablesOffset:], 0)
	_, err := registry.Decode(buff)
	td.CmpTrue(t, errors.Is(err, encio.ErrMalformed), "got %v", err)
}

func TestOffsetsRecomputed(t *testing.T) {
	reg := new(registry.Registry)
	reg.AnsiStrings = []string{"", "ab"}
	reg.WideStrings = []string{"xyz", "A"}
	buff := encode(t, reg)

	// Offsets: ansi 0, 1 then wide 0, 4.
	for i, want := range []uint32{0, 1, 0, 4} {
		td.Cmp(t, encio.DecodeUint32(buff[tablesOffset+4*i:]), want, "offset %v", i)
	}
	td.Cmp(t, buff[tablesOffset+16:tablesOffset+20], []byte{0x00, 'a', 'b', 0x00})

	corrupt := append([]byte(nil), buff...)
	for i := tablesOffset; i < tablesOffset+16; i++ {
		corrupt[i] = 0xFF
	}

	decoded, err := registry.Decode(corrupt)
	td.CmpNoError(t, err)
	td.Cmp(t, decoded, reg)
	td.Cmp(t, encode(t, decoded), buff)
}

func TestLossyStrings(t *testing.T) {
	reg := new(registry.Registry)
	reg.Names = []string{"h?"}
	reg.NameHashes = []uint64{0}
	reg.AnsiStrings = []string{"a?b"}
	reg.WideStrings = []string{"A?"}
	buff := encode(t, reg)

	namePayload := startSentinelOffset + 8 + 2
	td.Cmp(t, buff[namePayload:namePayload+2], []byte("h?"))
	buff[namePayload+1] = 0xFF

	tables := tablesOffset + 8 + 2 + len("h?")
	ansiPayload := tables + 8
	td.Cmp(t, buff[ansiPayload:ansiPayload+4], []byte("a?b\x00"))
	buff[ansiPayload+1] = 0xC0

	widePayload := ansiPayload + 4
	td.Cmp(t, buff[widePayload:widePayload+6], []byte{'A', 0, '?', 0, 0, 0})
	buff[widePayload+2], buff[widePayload+3] = 0x00, 0xD8

	decoded, err := registry.Decode(buff)
	td.CmpNoError(t, err)
	td.Cmp(t, decoded.Names, []string{"h�"})
	td.Cmp(t, decoded.AnsiStrings, []string{"a�b"})
	td.Cmp(t, decoded.WideStrings, []string{"A�"})
	for _, s := range [][]string{decoded.Names, decoded.AnsiStrings, decoded.WideStrings} {
		td.CmpTrue(t, utf8.ValidString(s[0]))
	}

	// Substitution is stable: a second round trip changes nothing.
	again, err := registry.Decode(encode(t, decoded))
	td.CmpNoError(t, err)
	td.Cmp(t, again, decoded)
}

func TestDoubleRoundTrip(t *testing.T) {
	buff := encode(t, sampleRegistry())

	first, err := registry.Decode(buff)
	td.CmpNoError(t, err)

	second, err := registry.Decode(encode(t, first))
	td.CmpNoError(t, err)
	td.Cmp(t, second, first)
}

func TestWidthOverflow(t *testing.T) {
	reg := new(registry.Registry)
	reg.NumberlessNames = []registry.FlaggedIndex{{Index: 1<<31 | 5}}
	reg.Pairs = []registry.Pair{{Key: 1, Kind: registry.KindName, Value: 1<<29 | 3}}

	t.Run("Masked", func(t *testing.T) {
		warnings := new(bytes.Buffer)
		buff := new(bytes.Buffer)
		enc := registry.NewEncoder(buff)
		enc.Warnings = warnings
		td.Require(t).CmpNoError(enc.Encode(reg))

		decoded, err := registry.Decode(buff.Bytes())
		td.CmpNoError(t, err)
		td.Cmp(t, decoded.NumberlessNames, []registry.FlaggedIndex{registry.Flagged(5)})
		td.Cmp(t, decoded.Pairs, []registry.Pair{{Key: 1, Kind: registry.KindName, Value: 3}})
		td.CmpContains(t, warnings.String(), "flagged index")
		td.CmpContains(t, warnings.String(), "pair value")
	})

	t.Run("Strict", func(t *testing.T) {
		warnings := new(bytes.Buffer)
		enc := registry.NewEncoder(new(bytes.Buffer))
		enc.Strict = true
		enc.Warnings = warnings

		err := enc.Encode(reg)
		td.CmpTrue(t, errors.Is(err, registry.ErrUnrepresentable), "got %v", err)
		td.CmpContains(t, err.Error(), "flagged index 0x80000005")
		td.Cmp(t, warnings.Len(), 0)
	})
}

func TestInvalidKindNotWritten(t *testing.T) {
	for _, kind := range []registry.Kind{7, 8, 255} {
		t.Run(kind.String(), func(t *testing.T) {
			warnings := quietWarnings(t)
			reg := new(registry.Registry)
			reg.Pairs = []registry.Pair{{Key: 1, Kind: kind, Value: 1}}

			buff, err := registry.Encode(reg)
			td.CmpTrue(t, errors.Is(err, registry.ErrInvalidTag), "got %v", err)
			td.CmpNil(t, buff)
			td.Cmp(t, warnings.Len(), 0)

			var encErr encio.Error
			td.CmpTrue(t, errors.As(err, &encErr))
		})
	}
}

func TestHugeTextLength(t *testing.T) {
	reg := new(registry.Registry)
	reg.Texts = []string{"x"}
	buff := encode(t, reg)

	encio.EncodeUint32(buff[tablesOffset:], 0x07FFFFFF)
	buff = buff[:tablesOffset+8]

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, err := registry.Decode(buff)
	runtime.ReadMemStats(&after)

	td.CmpTrue(t, errors.Is(err, registry.ErrTruncated), "got %v", err)
	td.Cmp(t, after.TotalAlloc-before.TotalAlloc, td.Lt(uint64(4<<20)))
}

func TestLongText(t *testing.T) {
	long := strings.Repeat("0123456789abcdef", 1<<13)
	reg := new(registry.Registry)
	reg.Texts = []string{long, "short"}

	decoded, err := registry.Decode(encode(t, reg))
	td.CmpNoError(t, err)
	td.Cmp(t, decoded.Texts, reg.Texts)
}

func TestEmbeddedNUL(t *testing.T) {
	warnings := quietWarnings(t)

	reg := new(registry.Registry)
	reg.AnsiStrings = []string{"ab\x00cd", "e"}
	reg.WideStrings = []string{"x\x00y"}
	reg.Texts = []string{"t\x00t"}

	decoded, err := registry.Decode(encode(t, reg))
	td.CmpNoError(t, err)
	td.Cmp(t, decoded.AnsiStrings, []string{"ab", "e"})
	td.Cmp(t, decoded.WideStrings, []string{"x"})
	td.Cmp(t, decoded.Texts, []string{"t\x00t"})
	td.CmpContains(t, warnings.String(), "NUL")
}

func TestNameHashMismatch(t *testing.T) {
	warnings := quietWarnings(t)

	reg := new(registry.Registry)
	reg.Names = []string{"a", "b"}
	reg.NameHashes = []uint64{7}

	decoded, err := registry.Decode(encode(t, reg))
	td.CmpNoError(t, err)
	td.Cmp(t, decoded.NameHashes, []uint64{7, 0})
	td.CmpContains(t, warnings.String(), "1 name hashes for 2 names")
}

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after < len(p) {
		return 0, errors.New("disk full")
	}
	w.after -= len(p)
	return len(p), nil
}

func TestEncoderWriterError(t *testing.T) {
	err := registry.NewEncoder(&failingWriter{after: 40}).Encode(sampleRegistry())
	td.CmpError(t, err)
	td.CmpContains(t, err.Error(), "disk full")
}
