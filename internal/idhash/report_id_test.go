package idhash

import "testing"

func TestComputeReportID(t *testing.T) {
	tests := []struct {
		name        string
		chain       string
		address     string
		createdAtMs int64
		wantLen     int // hash length should be 64
	}{
		{
			name:        "ethereum token",
			chain:       "ethereum",
			address:     "0x1234567890abcdef1234567890abcdef12345678",
			createdAtMs: 1704067234567,
			wantLen:     64,
		},
		{
			name:        "base token",
			chain:       "base",
			address:     "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd",
			createdAtMs: 1704067300000,
			wantLen:     64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeReportID(tt.chain, tt.address, tt.createdAtMs)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeReportID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeReportID(tt.chain, tt.address, tt.createdAtMs)
			if got != got2 {
				t.Errorf("ComputeReportID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeReportID_DifferentInputs(t *testing.T) {
	base := ComputeReportID("ethereum", "0xaaa", 1000)

	if got := ComputeReportID("base", "0xaaa", 1000); got == base {
		t.Error("different chain should produce different hash")
	}
	if got := ComputeReportID("ethereum", "0xbbb", 1000); got == base {
		t.Error("different address should produce different hash")
	}
	if got := ComputeReportID("ethereum", "0xaaa", 2000); got == base {
		t.Error("different timestamp should produce different hash")
	}
}
