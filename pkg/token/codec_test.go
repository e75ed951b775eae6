package token

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/atendo/booking-core/pkg/domain"
)

func TestGenerateLengthAndUniqueness(t *testing.T) {
	a, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	b, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if len(a) != RawLen {
		t.Errorf("len = %d, want %d", len(a), RawLen)
	}
	if bytes.Equal(a, b) {
		t.Error("two generated tokens are identical")
	}
}

func TestEncodingLengths(t *testing.T) {
	raw, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if got := raw.Hex(); len(got) != 64 {
		t.Errorf("hex length = %d, want 64", len(got))
	}
	if got := raw.Base64URL(); len(got) != 43 {
		t.Errorf("base64url length = %d, want 43", len(got))
	}
}

func TestDecodeAcceptsBothEncodings(t *testing.T) {
	raw, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	fromHex, err := Decode(raw.Hex())
	if err != nil {
		t.Fatalf("Decode(hex) error: %v", err)
	}
	fromB64, err := Decode(raw.Base64URL())
	if err != nil {
		t.Fatalf("Decode(base64url) error: %v", err)
	}

	if !bytes.Equal(fromHex, raw) || !bytes.Equal(fromB64, raw) {
		t.Error("decoded values do not round-trip to the same raw bytes")
	}
	if Hash(fromHex) != Hash(fromB64) {
		t.Error("the two encodings hash differently")
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"too short", "abc123"},
		{"63 chars", strings.Repeat("a", 63)},
		{"65 chars", strings.Repeat("a", 65)},
		{"uppercase hex", strings.Repeat("A", 64)},
		{"hex with invalid char", strings.Repeat("a", 63) + "g"},
		{"base64 with plus", strings.Repeat("a", 42) + "+"},
		{"base64 with slash", strings.Repeat("a", 42) + "/"},
		{"base64 with padding", strings.Repeat("a", 42) + "="},
		{"whitespace", strings.Repeat("a", 42) + " "},
		{"way too long", strings.Repeat("a", 128)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.encoded); !errors.Is(err, domain.ErrTokenMalformed) {
				t.Errorf("Decode(%q) = %v, want ErrTokenMalformed", tt.encoded, err)
			}
		})
	}
}

func TestHashIsStable(t *testing.T) {
	raw := Raw(bytes.Repeat([]byte{0x42}, RawLen))
	h1 := Hash(raw)
	h2 := Hash(raw)
	if h1 != h2 {
		t.Error("hash of the same value differs between calls")
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}
}

func TestPrefixTruncates(t *testing.T) {
	if got := prefix("abcdefghij"); got != "abcdefgh" {
		t.Errorf("prefix = %q, want abcdefgh", got)
	}
	if got := prefix("abc"); got != "abc" {
		t.Errorf("prefix = %q, want abc", got)
	}
}
