package ciddag

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

// DigestSize is the fixed size of a content identifier in bytes.
const DigestSize = 64

// Digest is a fixed-size content identifier. The zero Digest means
// "no predecessor" and never identifies an entry.
type Digest [DigestSize]byte

// String returns the hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first eight hex characters, for logs.
func (d Digest) Short() string {
	return hex.EncodeToString(d[:4])
}

// Equal reports whether the two digests are identical.
func (d Digest) Equal(other Digest) bool {
	return d == other
}

// IsZero reports whether d is the zero digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// ParseDigest decodes a 128-character hex string into a Digest.
func ParseDigest(s string) (Digest, error) {
	if len(s) != DigestSize*2 {
		return Digest{}, fmt.Errorf("invalid digest hex length: expected %d, got %d", DigestSize*2, len(s))
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return Digest{}, fmt.Errorf("decode digest hex: %w", err)
	}
	var d Digest
	copy(d[:], decoded)
	return d, nil
}

// Hasher turns bytes into a Digest. Implementations must be pure and
// collision-resistant; the DAG never hard-codes a primitive.
type Hasher interface {
	Sum(data []byte) Digest
}

// SHA512 hashes with crypto/sha512. It is the default provider.
type SHA512 struct{}

func (SHA512) Sum(data []byte) Digest {
	return Digest(sha512.Sum512(data))
}

// Blake3 hashes with BLAKE3 using a 512-bit output.
type Blake3 struct{}

func (Blake3) Sum(data []byte) Digest {
	return Digest(blake3.Sum512(data))
}
