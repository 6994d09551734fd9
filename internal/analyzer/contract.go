package analyzer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"coinclarity/internal/domain"
	"coinclarity/internal/evm"
	"coinclarity/internal/explorer"
)

// ErrNoCode is returned when the target address holds no contract.
// It is terminal input rejection, never retried or queued.
var ErrNoCode = errors.New("no code at address")

// EIP-1967 standard proxy storage slots.
const (
	implementationSlot = "0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc"
	adminSlot          = "0xb53127684a568b3173ae13b9f8a6016e243e63b6e8ee1178d6a717850b5d6103"
)

const (
	opPush4        = 0x63
	opDelegateCall = 0xf4

	// minimalProxyMaxLen bounds the DELEGATECALL heuristic to thin
	// forwarder contracts; full token contracts are far larger.
	minimalProxyMaxLen = 300

	// maxProxyHops caps implementation resolution. Anything deeper is
	// flagged as a deep chain, not followed.
	maxProxyHops = 1
)

// SourceProvider is the slice of the explorer client the contract
// analyzer consumes for verification checks.
type SourceProvider interface {
	GetContractSource(ctx context.Context, address string) (*explorer.ContractSource, error)
	HasCredential() bool
}

// ContractAnalyzer extracts privileged capabilities from deployed
// bytecode: selector scan, proxy resolution, verification and ABI pass.
type ContractAnalyzer struct {
	rpc    evm.RPCClient
	source SourceProvider
	logger *log.Logger
}

// NewContractAnalyzer creates a contract analyzer. source may be nil when
// no explorer is configured; verification then degrades to unverified.
func NewContractAnalyzer(rpc evm.RPCClient, source SourceProvider, logger *log.Logger) *ContractAnalyzer {
	if logger == nil {
		logger = log.Default()
	}
	return &ContractAnalyzer{rpc: rpc, source: source, logger: logger}
}

// Analyze fetches and scans the contract behind token.
// Returns ErrNoCode when the address holds no contract.
func (a *ContractAnalyzer) Analyze(ctx context.Context, token domain.TokenIdentity) (*domain.ContractAnalysis, error) {
	code, err := a.rpc.GetCode(ctx, token.Address)
	if err != nil {
		return nil, fmt.Errorf("fetch bytecode: %w", err)
	}
	if len(code) == 0 {
		return nil, ErrNoCode
	}

	analysis := &domain.ContractAnalysis{
		Authority: domain.AuthorityUnknown,
	}

	scanTarget := a.resolveProxy(ctx, token.Address, code, analysis)

	analysis.PrivilegeFlags = scanSelectors(scanTarget)

	a.checkVerification(ctx, token.Address, analysis)

	return analysis, nil
}

// resolveProxy detects proxy patterns and returns the bytecode the
// selector scan should run against. One implementation hop is followed;
// deeper chains are flagged and left unresolved.
func (a *ContractAnalyzer) resolveProxy(ctx context.Context, address string, code []byte, analysis *domain.ContractAnalysis) []byte {
	impl, isProxy := a.implementationAt(ctx, address, code)
	if !isProxy {
		analysis.ProxyResolved = true // nothing to resolve
		return code
	}

	analysis.IsProxy = true
	if impl == "" {
		// Heuristic-only detection: delegatecall forwarder with an
		// unreadable or non-standard implementation slot.
		a.logger.Printf("[analyzer] proxy at %s has no resolvable implementation", address)
		return code
	}

	analysis.Implementation = &impl

	implCode, err := a.rpc.GetCode(ctx, impl)
	if err != nil || len(implCode) == 0 {
		a.logger.Printf("[analyzer] implementation %s unreadable: %v", impl, err)
		return code
	}
	analysis.ProxyResolved = true

	// A second-level proxy is a signal downstream, not an error.
	if next, nested := a.implementationAt(ctx, impl, implCode); nested {
		analysis.DeepProxyChain = true
		a.logger.Printf("[analyzer] deep proxy chain at %s (next hop %s)", address, next)
	}

	return implCode
}

// implementationAt checks the EIP-1967 slot and the minimal-proxy
// heuristic. Returns the implementation address when the slot holds one.
func (a *ContractAnalyzer) implementationAt(ctx context.Context, address string, code []byte) (string, bool) {
	word, err := a.rpc.GetStorageAt(ctx, address, implementationSlot)
	if err != nil {
		a.logger.Printf("[analyzer] storage read failed for %s: %v", address, err)
	} else if addr, ok := evm.WordAddress(word); ok && addr != domain.ZeroAddress {
		return addr, true
	}

	if len(code) < minimalProxyMaxLen && bytes.IndexByte(code, opDelegateCall) >= 0 {
		return "", true
	}

	return "", false
}

// scanSelectors walks bytecode for PUSH4-anchored known selectors.
// Anchoring on the dispatch opcode keeps random data from matching.
func scanSelectors(code []byte) []domain.CapabilityFlag {
	var flags []domain.CapabilityFlag
	seen := make(map[string]bool)

	for i := 0; i+4 < len(code); i++ {
		if code[i] != opPush4 {
			continue
		}
		sel := hex.EncodeToString(code[i+1 : i+5])
		info, ok := knownSelectors[sel]
		if !ok || seen[info.Name+sel] {
			continue
		}
		seen[info.Name+sel] = true
		flags = append(flags, domain.CapabilityFlag{
			Name:      info.Name,
			Selector:  "0x" + sel,
			RiskLevel: info.RiskLevel,
			Source:    domain.CapSourceBytecode,
		})
	}

	return flags
}

// checkVerification queries the explorer for source verification and, on
// verified contracts, runs the ABI name pass. Absence of a credential or
// explorer data is a degraded mode, never a failure.
func (a *ContractAnalyzer) checkVerification(ctx context.Context, address string, analysis *domain.ContractAnalysis) {
	if a.source == nil || !a.source.HasCredential() {
		return
	}

	src, err := a.source.GetContractSource(ctx, address)
	if err != nil {
		if !errors.Is(err, explorer.ErrNoData) {
			a.logger.Printf("[analyzer] verification check failed for %s: %v", address, err)
		}
		return
	}

	analysis.Verified = src.Verified
	if src.ABI != "" {
		analysis.PrivilegeFlags = append(analysis.PrivilegeFlags, scanABI(src.ABI, analysis.PrivilegeFlags)...)
	}
}

// scanABI matches risky function-name patterns in a verified ABI.
// Capabilities already flagged by the bytecode scan are skipped, so each
// canonical name appears at most once per source.
func scanABI(rawABI string, existing []domain.CapabilityFlag) []domain.CapabilityFlag {
	var entries []struct {
		Type            string `json:"type"`
		Name            string `json:"name"`
		StateMutability string `json:"stateMutability"`
	}
	if err := json.Unmarshal([]byte(rawABI), &entries); err != nil {
		return nil
	}

	flagged := make(map[string]bool)
	for _, f := range existing {
		flagged[f.Name] = true
	}

	var flags []domain.CapabilityFlag
	for _, e := range entries {
		if e.Type != "function" {
			continue
		}
		// View functions cannot mutate state.
		if e.StateMutability == "view" || e.StateMutability == "pure" {
			continue
		}

		name := strings.ToLower(e.Name)
		for _, p := range abiNamePatterns {
			if !strings.Contains(name, p.Substr) {
				continue
			}
			if !flagged[p.Name] {
				flagged[p.Name] = true
				flags = append(flags, domain.CapabilityFlag{
					Name:      p.Name,
					RiskLevel: p.RiskLevel,
					Source:    domain.CapSourceABI,
				})
			}
			break
		}
	}

	return flags
}
