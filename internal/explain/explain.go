// Package explain backs the CLI's -explain <code> flag: the long-form
// remediation text for a finding code, looked up without running an
// analysis. Every entry mirrors the Finding.Remediation string the owning
// analyzer emits.
package explain

// Entry is one finding code's static reference text.
type Entry struct {
	Title       string
	Remediation string
}

var registry = map[string]Entry{
	"PROXY-001": {"Beacon proxy detected", "Analyze beacon proxy upgrades with a tool that models the beacon indirection explicitly; this engine cannot evaluate them."},
	"PROXY-002": {"Implementation slot empty", "Ensure the proxy has been initialized with a valid implementation before requesting an upgrade-safety analysis."},
	"PROXY-003": {"Implementation has no code", "Verify the implementation address is correct and has been deployed on this chain."},
	"PROXY-005": {"Unrecognized proxy pattern", "Confirm this proxy implements Transparent or UUPS (EIP-1967); other patterns are not supported."},

	"STOR-001": {"Storage variable deleted", "Restore the variable at its original slot/offset, or append a replacement and leave this slot as an explicit gap."},
	"STOR-002": {"Storage variable inserted mid-layout", "Only append new variables after the end of the existing layout; never insert them between existing slots."},
	"STOR-003": {"Storage variable width changed", "Do not change the byte width of an existing storage variable; append a new variable instead."},
	"STOR-004": {"Storage slot type changed", "Reusing a slot with a same-width but semantically different type corrupts existing state; append a new variable instead."},
	"STOR-007": {"Storage gap not shrunk to match appended variables", "Shrink the gap by exactly the number of newly appended variables it must still reserve for."},
	"STOR-008": {"Storage gap removed", "Keep the gap declared at this slot, shrinking its size instead of removing it, when adding new base-contract variables."},
	"STOR-009": {"New base-contract variables appended", "Confirm any storage gaps were shrunk to account for these variables."},
	"STOR-010": {"Storage variable renamed", "Informational only; confirm the rename is intentional and does not indicate a swapped variable."},

	"ABI-001": {"Function removed", "Restore the function, or document and coordinate the breaking removal with integrators."},
	"ABI-002": {"Selector collision", "Rename or re-sign one of the colliding functions; a selector collision makes the dispatch ambiguous."},
	"ABI-003": {"Function signature changed", "Preserve the original parameter types, or keep the old signature available alongside the new one."},
	"ABI-004": {"Function return type changed", "Return-type changes on a stable selector silently break ABI decoders; bump the function name/selector instead."},
	"ABI-005": {"Function added", "Informational; confirm the new surface area was intended and reviewed."},
	"ABI-006": {"Event signature changed", "Off-chain indexers keyed on the old topic0 will stop matching this event; coordinate the change."},
	"ABI-007": {"Event removed", "Restore the event if off-chain consumers depend on it."},

	"INIT-001": {"State initialized in constructor", "Move state initialization out of the constructor and into an initializer function."},
	"INIT-002": {"No initializer function found", "Add an `initialize` function guarded by the `initializer` modifier."},
	"INIT-005": {"Constructor does not disable initializers", "Call _disableInitializers() in the constructor to prevent direct initialization of the implementation contract."},
	"INIT-006": {"Multiple functions guarded by initializer", "Guard at most one function with `initializer`; use `reinitializer(n)` for subsequent init stages."},

	"ACL-001": {"onlyOwner guard removed", "Restore the onlyOwner guard, or document and review the access-control relaxation explicitly."},
	"ACL-002": {"Role-based guard removed", "Restore a role-based guard, or document and review the access-control relaxation explicitly."},
	"ACL-003": {"Access-control signal removed", "Confirm the guard was intentionally removed; restore it if not."},
	"ACL-004": {"Function visibility widened", "Confirm the function is safe to call externally, including its access control."},
	"ACL-007": {"_authorizeUpgrade guard regression", "Restore the guard on _authorizeUpgrade; this is the sole gate on UUPS upgrades."},

	"UUPS-001": {"_authorizeUpgrade missing", "Implement _authorizeUpgrade with an access-control guard."},
	"UUPS-002": {"_authorizeUpgrade has an empty body", "Add an access-control check (modifier or sender check) to the function body."},
	"UUPS-003": {"_authorizeUpgrade unguarded", "Guard the function with an owner/role modifier or an explicit sender check."},

	"TPROXY-001": {"Zero admin on Transparent proxy", "Set a valid admin before relying on Transparent-proxy upgrade governance."},
	"TPROXY-002": {"Upgrade function exposed on implementation", "Remove upgrade-related functions from the implementation; they should only exist on the ProxyAdmin/proxy."},
	"TPROXY-004": {"Function selector collides with a reserved proxy-admin selector", "Rename the colliding function; its selector must not match a reserved proxy-admin selector."},
}

// Lookup returns the static explanation for code, and whether one exists.
func Lookup(code string) (Entry, bool) {
	e, ok := registry[code]
	return e, ok
}
