package project

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest is a SHA-256 value.
type Digest [32]byte

// HashBytes hashes b.
func HashBytes(b []byte) Digest { return sha256.Sum256(b) }

// Combine hashes content followed by every part, in order.
func Combine(content Digest, parts ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range parts {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// IsZero reports whether d was never computed.
func (d Digest) IsZero() bool { return d == Digest{} }

func (d Digest) String() string { return hex.EncodeToString(d[:]) }
