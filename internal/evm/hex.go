package evm

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// DecodeHex decodes a 0x-prefixed hex string into raw bytes.
// "0x" and "" both decode to an empty slice.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return nil, nil
	}
	// Nodes may return odd-length quantities.
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return b, nil
}

// EncodeHex encodes raw bytes as a 0x-prefixed lower-case hex string.
func EncodeHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// WordAddress extracts the trailing 20-byte address from a storage word or
// ABI-encoded return value. Returns false when the input is too short.
// The result is lower-case; callers decide how to treat the zero address.
func WordAddress(word []byte) (string, bool) {
	if len(word) < 20 {
		return "", false
	}
	return "0x" + hex.EncodeToString(word[len(word)-20:]), true
}
