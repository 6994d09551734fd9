package stub

import (
	"context"

	"coinclarity/internal/evm"
)

// RPCClient implements evm.RPCClient for testing. Unknown addresses
// behave like an empty chain: no code, zero storage, reverting calls.
type RPCClient struct {
	Code     map[string][]byte            // address -> bytecode
	Storage  map[string]map[string][]byte // address -> slot -> word
	Calls    map[string][]byte            // callKey(to, data) -> return value
	CodeErrs map[string]error             // address -> forced GetCode error
	CallErrs map[string]error             // callKey(to, data) -> forced Call error
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Code:     make(map[string][]byte),
		Storage:  make(map[string]map[string][]byte),
		Calls:    make(map[string][]byte),
		CodeErrs: make(map[string]error),
		CallErrs: make(map[string]error),
	}
}

func callKey(to string, data []byte) string {
	return to + "|" + evm.EncodeHex(data)
}

// GetCode retrieves bytecode from the stub store.
func (c *RPCClient) GetCode(_ context.Context, address string) ([]byte, error) {
	if err, ok := c.CodeErrs[address]; ok {
		return nil, err
	}
	return c.Code[address], nil
}

// Call executes a canned read-only call. Unregistered calls revert.
func (c *RPCClient) Call(_ context.Context, to string, data []byte) ([]byte, error) {
	key := callKey(to, data)
	if err, ok := c.CallErrs[key]; ok {
		return nil, err
	}
	out, ok := c.Calls[key]
	if !ok {
		return nil, &evm.RPCError{Code: 3, Message: "execution reverted"}
	}
	return out, nil
}

// GetStorageAt reads a canned storage word. Unset slots read as zero.
func (c *RPCClient) GetStorageAt(_ context.Context, address string, slot string) ([]byte, error) {
	if slots, ok := c.Storage[address]; ok {
		if word, ok := slots[slot]; ok {
			return word, nil
		}
	}
	return make([]byte, 32), nil
}

// SetCode registers bytecode for an address.
func (c *RPCClient) SetCode(address string, code []byte) {
	c.Code[address] = code
}

// SetCodeErr forces GetCode for an address to fail.
func (c *RPCClient) SetCodeErr(address string, err error) {
	c.CodeErrs[address] = err
}

// SetStorage registers a storage word for an address and slot.
func (c *RPCClient) SetStorage(address, slot string, word []byte) {
	if c.Storage[address] == nil {
		c.Storage[address] = make(map[string][]byte)
	}
	c.Storage[address][slot] = word
}

// SetCallResult registers a return value for a call.
func (c *RPCClient) SetCallResult(to string, data []byte, out []byte) {
	c.Calls[callKey(to, data)] = out
}

// SetCallErr forces a call to fail with err.
func (c *RPCClient) SetCallErr(to string, data []byte, err error) {
	c.CallErrs[callKey(to, data)] = err
}
