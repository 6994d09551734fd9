package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidToken is returned when a chain/address pair fails validation.
var ErrInvalidToken = errors.New("invalid token identity")

// Chain identifies a supported EVM network.
type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainBase     Chain = "base"
)

// String returns the string representation of Chain.
func (c Chain) String() string {
	return string(c)
}

// IsValid checks if the chain is a supported value.
func (c Chain) IsValid() bool {
	return c == ChainEthereum || c == ChainBase
}

// ExplorerAddressURL returns the block-explorer page for an address on this chain.
func (c Chain) ExplorerAddressURL(address string) string {
	switch c {
	case ChainBase:
		return "https://basescan.org/address/" + address
	default:
		return "https://etherscan.io/address/" + address
	}
}

// Well-known burn addresses. An owner set to either counts as renounced.
const (
	ZeroAddress = "0x0000000000000000000000000000000000000000"
	DeadAddress = "0x000000000000000000000000000000000000dead"
)

// TokenIdentity is the normalized (chain, address) pair all analysis keys on.
// Two identities are the same token iff their normalized forms are equal.
type TokenIdentity struct {
	Chain   Chain
	Address string // lower-case, 0x + 40 hex
}

// NewTokenIdentity validates and normalizes a raw chain/address pair.
// Addresses are case-insensitive; the canonical form is lower-case.
func NewTokenIdentity(chain, address string) (TokenIdentity, error) {
	c := Chain(strings.ToLower(strings.TrimSpace(chain)))
	if !c.IsValid() {
		return TokenIdentity{}, fmt.Errorf("%w: unsupported chain %q", ErrInvalidToken, chain)
	}

	addr := strings.ToLower(strings.TrimSpace(address))
	if !IsHexAddress(addr) {
		return TokenIdentity{}, fmt.Errorf("%w: malformed address %q", ErrInvalidToken, address)
	}

	return TokenIdentity{Chain: c, Address: addr}, nil
}

// Fingerprint returns the canonical analysis key "chain:address".
// Cache entries, job dedup and report lookups all key on this value.
func (t TokenIdentity) Fingerprint() string {
	return string(t.Chain) + ":" + t.Address
}

// ExplorerURL returns the block-explorer page for this token.
func (t TokenIdentity) ExplorerURL() string {
	return t.Chain.ExplorerAddressURL(t.Address)
}

// IsHexAddress reports whether s is a lower-case 0x-prefixed 20-byte hex address.
func IsHexAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, r := range s[2:] {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
