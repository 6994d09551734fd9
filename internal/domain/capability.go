package domain

// RiskLevel grades a capability's danger when its authority is hostile.
// Levels come from the selector reference table, never computed.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskInfo     RiskLevel = "info"
)

// AuthorityClass describes who can exercise privileged capabilities.
type AuthorityClass string

const (
	AuthorityRenounced AuthorityClass = "renounced"
	AuthorityMultisig  AuthorityClass = "multisig"
	AuthorityTimelock  AuthorityClass = "timelock"
	AuthoritySingleEOA AuthorityClass = "single-eoa"
	AuthorityUnknown   AuthorityClass = "unknown"
)

// String returns the string representation of AuthorityClass.
func (a AuthorityClass) String() string {
	return string(a)
}

// Hostile reports whether the class contributes materialized rug risk.
// Renounced, multisig and timelock control neutralize it.
func (a AuthorityClass) Hostile() bool {
	return a == AuthoritySingleEOA || a == AuthorityUnknown
}

// CapabilitySource records which scan produced a flag.
type CapabilitySource string

const (
	CapSourceBytecode CapabilitySource = "bytecode"
	CapSourceABI      CapabilitySource = "abi"
)

// CapabilityFlag is one privileged function detected on the contract.
// Uniqueness is by (Name, Selector); ABI-derived flags carry no selector.
type CapabilityFlag struct {
	Name      string           `json:"name"`
	Selector  string           `json:"selector,omitempty"` // 0x + 8 hex
	RiskLevel RiskLevel        `json:"riskLevel"`
	Source    CapabilitySource `json:"source"`
	Authority AuthorityClass   `json:"authority,omitempty"` // set by the authority classifier
}

// ContractAnalysis is the combined capability extractor and authority
// classifier output for one contract.
type ContractAnalysis struct {
	IsProxy        bool    `json:"isProxy"`
	ProxyResolved  bool    `json:"proxyResolved"`  // implementation bytecode was scanned
	DeepProxyChain bool    `json:"deepProxyChain"` // implementation is itself a proxy
	Implementation *string `json:"implementation,omitempty"`

	Verified       bool             `json:"verified"`
	PrivilegeFlags []CapabilityFlag `json:"privilegeFlags"`

	OwnerAddress        *string        `json:"ownerAddress,omitempty"`
	OwnershipRenounced  bool           `json:"ownershipRenounced"`
	Authority           AuthorityClass `json:"authority"`
	AuthorityConfidence float64        `json:"authorityConfidence"` // 0..1
}

// HasCapability reports whether a flag with the given canonical name exists.
func (c *ContractAnalysis) HasCapability(name string) bool {
	for _, f := range c.PrivilegeFlags {
		if f.Name == name {
			return true
		}
	}
	return false
}
