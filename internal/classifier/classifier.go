// Package classifier decides, from chain readings at a proxy address,
// which of the two supported proxy patterns is in play — or emits one of
// the blocking PROXY-* findings that vetoes every downstream analyzer.
package classifier

import (
	"bytes"
	"context"
	"encoding/hex"
	"strings"

	"github.com/VectorBits/upgradeguard/internal/chain"
	"github.com/VectorBits/upgradeguard/internal/model"
	"github.com/VectorBits/upgradeguard/internal/oracle"
	"github.com/ethereum/go-ethereum/common"
)

// The three EIP-1967 well-known storage slots for proxy
// implementation/admin/beacon pointers, fixed by the standard.
var (
	ImplSlot   = common.HexToHash("0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc")
	AdminSlot  = common.HexToHash("0xb53127684a568b3173ae13b9f8a6016e243e63b6e8ee1178d6a717850b5d6103")
	BeaconSlot = common.HexToHash("0xa3f0ad74e5423aebfd80d3ef4346578335a9a72aeaee59ff6cb3582b35133d50")
)

// uupsIdentitySelector is the 4-byte selector of UUPS's identity function,
// proxiableUUID(), used to fingerprint UUPS implementation bytecode.
var uupsIdentitySelector = oracle.SelectorOf("proxiableUUID", nil)

// rightmost20 extracts the candidate address from a 32-byte slot value.
func rightmost20(v model.SlotKey) model.Address {
	var addr model.Address
	copy(addr[:], v[12:])
	return addr
}

// Classify inspects the proxy's EIP-1967 slots and bytecode. It returns a
// ProxyInfo on success, or nil with a Completed outcome carrying the
// single blocking finding that vetoes the rest of the pipeline.
func Classify(ctx context.Context, adapter chain.Adapter, proxyAddr model.Address) (*model.ProxyInfo, model.AnalyzerOutcome) {
	implValue, err := adapter.ReadStorageSlot(ctx, proxyAddr, ImplSlot)
	if err != nil {
		return nil, model.Errored("reading implementation slot: " + err.Error())
	}
	adminValue, err := adapter.ReadStorageSlot(ctx, proxyAddr, AdminSlot)
	if err != nil {
		return nil, model.Errored("reading admin slot: " + err.Error())
	}
	beaconValue, err := adapter.ReadStorageSlot(ctx, proxyAddr, BeaconSlot)
	if err != nil {
		return nil, model.Errored("reading beacon slot: " + err.Error())
	}

	implAddr := rightmost20(implValue)
	adminAddr := rightmost20(adminValue)
	beaconAddr := rightmost20(beaconValue)

	if beaconAddr != (model.Address{}) {
		return nil, model.Completed([]model.Finding{{
			Code:        "PROXY-001",
			Severity:    model.Critical,
			Confidence:  model.ConfidenceHigh,
			Title:       "Beacon proxy pattern unsupported",
			Description: "The proxy's beacon slot (EIP-1967) is non-zero, indicating a beacon proxy. Only Transparent and UUPS patterns are supported by this analysis.",
			Details:     map[string]any{"beacon": beaconAddr.Hex()},
			Remediation: "Analyze beacon proxy upgrades with a tool that models the beacon indirection explicitly; this engine cannot evaluate them.",
		}})
	}
	if implAddr == (model.Address{}) {
		return nil, model.Completed([]model.Finding{{
			Code:        "PROXY-002",
			Severity:    model.Critical,
			Confidence:  model.ConfidenceHigh,
			Title:       "No implementation set",
			Description: "The proxy's EIP-1967 implementation slot is the zero address; there is no current implementation to upgrade from.",
			Remediation: "Ensure the proxy has been initialized with a valid implementation before requesting an upgrade-safety analysis.",
		}})
	}

	implCode, err := adapter.ReadCode(ctx, implAddr)
	if err != nil {
		return nil, model.Errored("reading implementation code: " + err.Error())
	}
	if len(implCode) == 0 {
		return nil, model.Completed([]model.Finding{{
			Code:        "PROXY-003",
			Severity:    model.Critical,
			Confidence:  model.ConfidenceHigh,
			Title:       "Implementation has no code",
			Description: "The address stored in the proxy's implementation slot has no runtime bytecode.",
			Details:     map[string]any{"implementation": implAddr.Hex()},
			Remediation: "Verify the implementation address is correct and has been deployed on this chain.",
		}})
	}

	if bytes.Contains(implCode, uupsIdentitySelector[:]) {
		return &model.ProxyInfo{Kind: model.UUPS, Proxy: proxyAddr, Implementation: implAddr}, model.AnalyzerOutcome{}
	}

	if adminAddr != (model.Address{}) {
		admin := adminAddr
		return &model.ProxyInfo{Kind: model.Transparent, Proxy: proxyAddr, Implementation: implAddr, Admin: &admin}, model.AnalyzerOutcome{}
	}

	// Ambiguous: neither the UUPS selector nor a non-zero admin was found.
	// Fall back to inspecting the proxy's own bytecode for a reference to
	// the admin slot constant. This is a heuristic, not a protocol rule:
	// it lets a zero-admin transparent proxy reach TPROXY-001 instead of
	// dying here.
	proxyCode, err := adapter.ReadCode(ctx, proxyAddr)
	if err != nil {
		return nil, model.Errored("reading proxy code: " + err.Error())
	}
	adminSlotBytes, _ := hex.DecodeString(strings.TrimPrefix(AdminSlot.Hex(), "0x"))
	if bytes.Contains(proxyCode, adminSlotBytes) {
		admin := adminAddr // zero address; surfaced downstream by TPROXY-001
		return &model.ProxyInfo{Kind: model.Transparent, Proxy: proxyAddr, Implementation: implAddr, Admin: &admin}, model.AnalyzerOutcome{}
	}

	return nil, model.Completed([]model.Finding{{
		Code:        "PROXY-005",
		Severity:    model.Critical,
		Confidence:  model.ConfidenceMedium,
		Title:       "Unable to classify proxy pattern",
		Description: "Neither the UUPS identity selector nor a non-zero admin slot was found, and the proxy's own bytecode does not reference the admin slot.",
		Remediation: "Confirm this proxy implements Transparent or UUPS (EIP-1967); other patterns are not supported.",
	}})
}
