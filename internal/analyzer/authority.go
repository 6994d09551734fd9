package analyzer

import (
	"bytes"
	"context"
	"errors"
	"log"

	"coinclarity/internal/domain"
	"coinclarity/internal/evm"
)

// ownerSelector is owner() from the Ownable interface.
var ownerSelector = []byte{0x8d, 0xa5, 0xcb, 0x5b}

// Classification confidence levels. Lookups that complete cleanly score
// high; heuristic or failed lookups score low.
const (
	confidenceRenounced    = 0.95
	confidenceEOA          = 0.90
	confidenceMultisig     = 0.70
	confidenceTimelock     = 0.60
	confidenceNoOwnable    = 0.50
	confidenceUnknown      = 0.30
	confidenceLookupFailed = 0.20
)

// AuthorityClassifier resolves who controls a contract's privileged
// capabilities and annotates the contract analysis with the result.
type AuthorityClassifier struct {
	rpc    evm.RPCClient
	logger *log.Logger
}

// NewAuthorityClassifier creates an authority classifier.
func NewAuthorityClassifier(rpc evm.RPCClient, logger *log.Logger) *AuthorityClassifier {
	if logger == nil {
		logger = log.Default()
	}
	return &AuthorityClassifier{rpc: rpc, logger: logger}
}

// Classify annotates analysis with the resolved authority class.
// It never fails: unresolvable authority degrades to unknown, which the
// scoring engine converts into uncertainty rather than safety.
func (c *AuthorityClassifier) Classify(ctx context.Context, token domain.TokenIdentity, analysis *domain.ContractAnalysis) {
	class, owner, confidence := c.resolve(ctx, token.Address, analysis)

	analysis.Authority = class
	analysis.AuthorityConfidence = confidence
	analysis.OwnershipRenounced = class == domain.AuthorityRenounced
	if owner != "" {
		analysis.OwnerAddress = &owner
	}

	// One owner cluster covers every capability today; the per-flag field
	// keeps room for role-based divergence.
	for i := range analysis.PrivilegeFlags {
		analysis.PrivilegeFlags[i].Authority = class
	}
}

func (c *AuthorityClassifier) resolve(ctx context.Context, address string, analysis *domain.ContractAnalysis) (domain.AuthorityClass, string, float64) {
	owner, definitive, err := c.lookupOwner(ctx, address, analysis)
	if err != nil {
		c.logger.Printf("[analyzer] owner lookup failed for %s: %v", address, err)
		return domain.AuthorityUnknown, "", confidenceLookupFailed
	}

	if owner == "" {
		// No Ownable surface at all. With only a renounce selector on
		// record there is nothing left to exercise; otherwise the guard
		// model is unknown.
		if definitive && analysis.HasCapability(CapRenounceOwnership) {
			return domain.AuthorityRenounced, "", confidenceNoOwnable
		}
		return domain.AuthorityUnknown, "", confidenceUnknown
	}

	if owner == domain.ZeroAddress || owner == domain.DeadAddress {
		return domain.AuthorityRenounced, owner, confidenceRenounced
	}

	code, err := c.rpc.GetCode(ctx, owner)
	if err != nil {
		c.logger.Printf("[analyzer] owner code fetch failed for %s: %v", owner, err)
		return domain.AuthorityUnknown, owner, confidenceLookupFailed
	}

	if len(code) == 0 {
		return domain.AuthoritySingleEOA, owner, confidenceEOA
	}

	// Contract-owned. Thin delegatecall forwarders are the Safe proxy
	// shape; anything more substantial is treated as a timelock/governor.
	if len(code) < minimalProxyMaxLen && bytes.IndexByte(code, opDelegateCall) >= 0 {
		return domain.AuthorityMultisig, owner, confidenceMultisig
	}
	return domain.AuthorityTimelock, owner, confidenceTimelock
}

// lookupOwner calls owner() and, for proxies, falls back to the EIP-1967
// admin slot. definitive is true when the chain answered conclusively
// (including "this contract has no owner()").
func (c *AuthorityClassifier) lookupOwner(ctx context.Context, address string, analysis *domain.ContractAnalysis) (owner string, definitive bool, err error) {
	out, callErr := c.rpc.Call(ctx, address, ownerSelector)
	if callErr == nil {
		if addr, ok := evm.WordAddress(out); ok {
			return addr, true, nil
		}
		// Returned something that is not an address word.
		return "", true, nil
	}

	var rpcErr *evm.RPCError
	if !errors.As(callErr, &rpcErr) {
		// Transport-level failure, nothing definitive.
		return "", false, callErr
	}

	// owner() reverted: no Ownable interface. Proxies may still expose
	// an admin through the standard slot.
	if analysis.IsProxy {
		word, slotErr := c.rpc.GetStorageAt(ctx, address, adminSlot)
		if slotErr == nil {
			if addr, ok := evm.WordAddress(word); ok && addr != domain.ZeroAddress {
				return addr, true, nil
			}
		}
	}

	return "", true, nil
}
