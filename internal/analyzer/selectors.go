package analyzer

import "coinclarity/internal/domain"

// Canonical capability names. Scoring keys on these, so bytecode and ABI
// detections of the same capability collapse to one name.
const (
	CapMint              = "mint"
	CapBurnFrom          = "burnFrom"
	CapBlacklist         = "blacklist"
	CapPause             = "pause"
	CapUnpause           = "unpause"
	CapSetFee            = "setFee"
	CapSetTrading        = "setTrading"
	CapUpgrade           = "upgrade"
	CapWithdrawLiquidity = "withdrawLiquidity"
	CapTransferOwnership = "transferOwnership"
	CapRenounceOwnership = "renounceOwnership"
)

// selectorInfo describes one known privileged selector.
type selectorInfo struct {
	Name      string
	RiskLevel domain.RiskLevel
}

// knownSelectors is the fixed reference table of privileged 4-byte
// selectors (hex, no 0x prefix). Risk levels are assigned here from the
// table, never computed.
var knownSelectors = map[string]selectorInfo{
	// Supply manipulation
	"40c10f19": {CapMint, domain.RiskCritical}, // mint(address,uint256)
	"a0712d68": {CapMint, domain.RiskCritical}, // mint(uint256)
	"4e6ec247": {CapMint, domain.RiskCritical}, // _mint(address,uint256)
	"79cc6790": {CapBurnFrom, domain.RiskHigh}, // burnFrom(address,uint256)

	// Transfer restriction
	"44337ea1": {CapBlacklist, domain.RiskCritical}, // addBot(address)
	"fe575a87": {CapBlacklist, domain.RiskCritical}, // blacklist(address)
	"0ecb93c0": {CapBlacklist, domain.RiskCritical}, // addBlackList(address)
	"8456cb59": {CapPause, domain.RiskHigh},         // pause()
	"3f4ba83a": {CapUnpause, domain.RiskHigh},       // unpause()

	// Trading parameters
	"c0246668": {CapSetFee, domain.RiskHigh},     // setFee(uint256)
	"8a8c523c": {CapSetTrading, domain.RiskHigh}, // setTradingEnabled(bool)
	"c9567bf9": {CapSetTrading, domain.RiskHigh}, // openTrading()

	// Upgradeability
	"3659cfe6": {CapUpgrade, domain.RiskHigh}, // upgradeTo(address)
	"4f1ef286": {CapUpgrade, domain.RiskHigh}, // upgradeToAndCall(address,bytes)

	// Treasury drain
	"3ccfd60b": {CapWithdrawLiquidity, domain.RiskCritical}, // withdraw()
	"db2e21bc": {CapWithdrawLiquidity, domain.RiskCritical}, // emergencyWithdraw()

	// Ownership
	"f2fde38b": {CapTransferOwnership, domain.RiskMedium}, // transferOwnership(address)
	"715018a6": {CapRenounceOwnership, domain.RiskInfo},   // renounceOwnership()
}

// abiNamePatterns maps lower-cased function-name substrings to the
// capability they indicate. The ABI pass catches non-standard selectors
// the bytecode table misses on verified contracts.
var abiNamePatterns = []struct {
	Substr    string
	Name      string
	RiskLevel domain.RiskLevel
}{
	{"blacklist", CapBlacklist, domain.RiskCritical},
	{"blocklist", CapBlacklist, domain.RiskCritical},
	{"unpause", CapUnpause, domain.RiskHigh},
	{"pause", CapPause, domain.RiskHigh},
	{"mint", CapMint, domain.RiskCritical},
	{"setfee", CapSetFee, domain.RiskHigh},
	{"updatefee", CapSetFee, domain.RiskHigh},
	{"settax", CapSetFee, domain.RiskHigh},
	{"opentrading", CapSetTrading, domain.RiskHigh},
	{"enabletrading", CapSetTrading, domain.RiskHigh},
	{"settrading", CapSetTrading, domain.RiskHigh},
	{"upgradeto", CapUpgrade, domain.RiskHigh},
	{"emergencywithdraw", CapWithdrawLiquidity, domain.RiskCritical},
}
