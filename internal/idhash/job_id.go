package idhash

import (
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// jobIDBytes is the entropy per job ID. 12 bytes encode to 16-17
// base58 characters, short enough for logs and URLs.
const jobIDBytes = 12

// NewJobID generates a random base58 job identifier.
func NewJobID() (string, error) {
	buf := make([]byte, jobIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base58.Encode(buf), nil
}
