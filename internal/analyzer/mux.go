package analyzer

import (
	"context"
	"errors"
	"fmt"

	"coinclarity/internal/domain"
	"coinclarity/internal/evm"
)

// ErrUnsupportedChain is returned when no provider stack is configured
// for a token's chain. It is definitive, not transient.
var ErrUnsupportedChain = errors.New("analyzer: unsupported chain")

// ContractMux routes contract analysis to the per-chain analyzer. The
// contract analyzer binds an RPC client and explorer at construction,
// so multi-chain deployments carry one per chain.
type ContractMux map[domain.Chain]*ContractAnalyzer

// Analyze dispatches to the analyzer for the token's chain.
func (m ContractMux) Analyze(ctx context.Context, token domain.TokenIdentity) (*domain.ContractAnalysis, error) {
	a, ok := m[token.Chain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChain, token.Chain)
	}
	return a.Analyze(ctx, token)
}

// AuthorityMux routes authority classification to the per-chain
// classifier. An unconfigured chain leaves the analysis untouched, so
// the authority stays unknown.
type AuthorityMux map[domain.Chain]*AuthorityClassifier

// Classify dispatches to the classifier for the token's chain.
func (m AuthorityMux) Classify(ctx context.Context, token domain.TokenIdentity, analysis *domain.ContractAnalysis) {
	if c, ok := m[token.Chain]; ok {
		c.Classify(ctx, token, analysis)
	}
}

// HolderMux routes holder analysis to the per-chain analyzer.
type HolderMux map[domain.Chain]*HolderAnalyzer

// Analyze dispatches to the analyzer for the token's chain.
func (m HolderMux) Analyze(ctx context.Context, token domain.TokenIdentity) (*domain.HolderAnalysis, error) {
	a, ok := m[token.Chain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChain, token.Chain)
	}
	return a.Analyze(ctx, token)
}

// CodeMux answers bytecode probes with the per-chain RPC client.
type CodeMux map[domain.Chain]evm.RPCClient

// GetCode dispatches to the RPC client for the token's chain.
func (m CodeMux) GetCode(ctx context.Context, token domain.TokenIdentity) ([]byte, error) {
	rpc, ok := m[token.Chain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChain, token.Chain)
	}
	return rpc.GetCode(ctx, token.Address)
}
