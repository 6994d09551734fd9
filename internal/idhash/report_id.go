package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeReportID computes a deterministic report_id using SHA256.
// Formula: SHA256(chain|address|created_at_ms)
// Returns hex-encoded hash (64 characters).
func ComputeReportID(chain string, address string, createdAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", chain, address, createdAtMs)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
