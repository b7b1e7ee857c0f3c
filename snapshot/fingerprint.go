package snapshot

import (
	"encoding/hex"

	"github.com/opencontainers/go-digest"
	"github.com/zeebo/blake3"
)

// Fingerprint identifies the registry blob a snapshot was taken from.
type Fingerprint struct {
	SHA256 digest.Digest `json:"sha256" yaml:"sha256" cbor:"sha256"`
	BLAKE3 string        `json:"blake3" yaml:"blake3" cbor:"blake3"`
}

// FingerprintOf hashes blob.
func FingerprintOf(blob []byte) Fingerprint {
	sum := blake3.Sum256(blob)
	return Fingerprint{
		SHA256: digest.FromBytes(blob),
		BLAKE3: hex.EncodeToString(sum[:]),
	}
}

// IsZero reports whether f holds no hashes.
func (f Fingerprint) IsZero() bool {
	return f.SHA256 == "" && f.BLAKE3 == ""
}

// Matches reports whether blob hashes to f.
// Hashes missing from f are not checked, and a zero Fingerprint matches nothing.
func (f Fingerprint) Matches(blob []byte) bool {
	if f.IsZero() {
		return false
	}
	got := FingerprintOf(blob)
	if f.SHA256 != "" && f.SHA256 != got.SHA256 {
		return false
	}
	if f.BLAKE3 != "" && f.BLAKE3 != got.BLAKE3 {
		return false
	}
	return true
}

// Validate checks that the hashes in f are well formed.
func (f Fingerprint) Validate() error {
	if f.SHA256 != "" {
		if err := f.SHA256.Validate(); err != nil {
			return err
		}
	}
	if f.BLAKE3 != "" {
		if b, err := hex.DecodeString(f.BLAKE3); err != nil || len(b) != 32 {
			return ErrBadFingerprint
		}
	}
	return nil
}
