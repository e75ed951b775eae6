package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/atendo/booking-core/pkg/domain"
)

// Raw token values are 32 bytes from a CSPRNG. Two textual encodings
// are accepted on the wire: 64-char lowercase hex (transactional email
// links) and 43-char unpadded base64url (query-string verification
// links). Both decode to the same raw bytes.
const (
	RawLen = 32

	hexLen    = RawLen * 2 // 64
	base64Len = 43         // base64.RawURLEncoding.EncodedLen(RawLen)
)

// Raw is an unencoded token value.
type Raw []byte

// Hex returns the 64-character hex encoding of the raw value.
func (r Raw) Hex() string {
	return hex.EncodeToString(r)
}

// Base64URL returns the 43-character unpadded base64url encoding.
func (r Raw) Base64URL() string {
	return base64.RawURLEncoding.EncodeToString(r)
}

// Generate returns a new raw token value from a cryptographically
// secure random source.
func Generate() (Raw, error) {
	buf := make([]byte, RawLen)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return Raw(buf), nil
}

// Hash returns the hex-encoded SHA-256 digest of the raw value. Only
// the hash is persisted; lookups go through it.
func Hash(raw Raw) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Decode normalizes an encoded token presented by a caller. The shape
// is checked by length and charset before any decoding, so obviously
// invalid input is rejected without a store round trip.
func Decode(encoded string) (Raw, error) {
	switch len(encoded) {
	case hexLen:
		if !isLowerHex(encoded) {
			return nil, domain.ErrTokenMalformed
		}
		raw, err := hex.DecodeString(encoded)
		if err != nil {
			return nil, domain.ErrTokenMalformed
		}
		return Raw(raw), nil
	case base64Len:
		if !isBase64URL(encoded) {
			return nil, domain.ErrTokenMalformed
		}
		raw, err := base64.RawURLEncoding.DecodeString(encoded)
		if err != nil {
			return nil, domain.ErrTokenMalformed
		}
		return Raw(raw), nil
	default:
		return nil, domain.ErrTokenMalformed
	}
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func isBase64URL(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

// prefix returns a short, safe-to-log prefix of a presented value.
func prefix(encoded string) string {
	if len(encoded) > 8 {
		return encoded[:8]
	}
	return encoded
}
