package evm

import "context"

// RPCClient defines the subset of the Ethereum JSON-RPC interface the
// analyzers consume. All byte slices are raw (hex-decoded) values.
type RPCClient interface {
	// GetCode retrieves deployed bytecode at an address. An address with
	// no contract returns an empty slice and no error.
	GetCode(ctx context.Context, address string) ([]byte, error)

	// Call executes a read-only message call against the latest block.
	Call(ctx context.Context, to string, data []byte) ([]byte, error)

	// GetStorageAt reads one 32-byte storage word. slot is a 0x-prefixed
	// hex value.
	GetStorageAt(ctx context.Context, address string, slot string) ([]byte, error)
}
