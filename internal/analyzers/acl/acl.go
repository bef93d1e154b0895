// Package acl is the access-control differ. It compares the same-named
// function across old and new AST and flags any weakening of its guard.
package acl

import (
	"github.com/VectorBits/upgradeguard/internal/model"
	"github.com/VectorBits/upgradeguard/internal/solast"
)

func funcLoc(name string) *model.Location {
	return &model.Location{Function: name}
}

// Analyze compares guards on every function name present in both sides.
// Functions removed from new are out of scope here; ABI-001/003 already
// cover them.
func Analyze(oldAst, newAst model.ContractAst) model.AnalyzerOutcome {
	oldByName := map[string]model.FunctionDecl{}
	for _, fn := range oldAst.Functions {
		oldByName[fn.Name] = fn
	}
	newByName := map[string]model.FunctionDecl{}
	for _, fn := range newAst.Functions {
		newByName[fn.Name] = fn
	}

	var findings []model.Finding

	for name, oldFn := range oldByName {
		newFn, ok := newByName[name]
		if !ok {
			continue
		}

		fired001 := false
		fired002 := false

		if solast.HasModifier(oldFn, "onlyOwner") && !solast.HasModifier(newFn, "onlyOwner") {
			fired001 = true
			findings = append(findings, model.Finding{
				Code:        "ACL-001",
				Severity:    model.Critical,
				Confidence:  model.ConfidenceHigh,
				Title:       "onlyOwner guard removed",
				Description: "Function " + name + " was guarded by onlyOwner in the old implementation and no longer is.",
				Location:    funcLoc(name),
				Remediation: "Restore the onlyOwner guard, or document and review the access-control relaxation explicitly.",
			})
		}

		if solast.HasModifierPrefixed(oldFn, "onlyRole") && !solast.HasModifierPrefixed(newFn, "onlyRole") {
			fired002 = true
			findings = append(findings, model.Finding{
				Code:        "ACL-002",
				Severity:    model.Critical,
				Confidence:  model.ConfidenceHigh,
				Title:       "onlyRole guard removed",
				Description: "Function " + name + " had a modifier starting with onlyRole in the old implementation and no longer has one.",
				Location:    funcLoc(name),
				Remediation: "Restore a role-based guard, or document and review the access-control relaxation explicitly.",
			})
		}

		if !fired001 && !fired002 && solast.HasAccessControlSignal(oldFn) && !solast.HasAccessControlSignal(newFn) {
			findings = append(findings, model.Finding{
				Code:        "ACL-003",
				Severity:    model.High,
				Confidence:  model.ConfidenceMedium,
				Title:       "Access-control signal removed",
				Description: "Function " + name + " had a detectable access-control guard in the old implementation; none was detected in the new one.",
				Location:    funcLoc(name),
				Remediation: "Confirm the guard was intentionally removed; restore it if not.",
			})
		}

		if (oldFn.Visibility == model.Internal || oldFn.Visibility == model.Private) &&
			(newFn.Visibility == model.Public || newFn.Visibility == model.External) {
			findings = append(findings, model.Finding{
				Code:        "ACL-004",
				Severity:    model.High,
				Confidence:  model.ConfidenceHigh,
				Title:       "Function visibility widened",
				Description: "Function " + name + " changed from internal/private to public/external visibility, exposing it to external callers.",
				Location:    funcLoc(name),
				Remediation: "Confirm the function is safe to call externally, including its access control.",
			})
		}

		if name == "_authorizeUpgrade" {
			oldGuarded := solast.HasModifierKeyword(oldFn) || oldFn.BodyReferencesSender
			newGuarded := solast.HasModifierKeyword(newFn) || newFn.BodyReferencesSender
			if oldGuarded && !newGuarded {
				findings = append(findings, model.Finding{
					Code:        "ACL-007",
					Severity:    model.Critical,
					Confidence:  model.ConfidenceHigh,
					Title:       "_authorizeUpgrade guard regression",
					Description: "_authorizeUpgrade had a modifier-keyword guard or a sender check in the old implementation; the new one has neither.",
					Location:    funcLoc(name),
					Remediation: "Restore the guard on _authorizeUpgrade; this is the sole gate on UUPS upgrades.",
				})
			}
		}
	}

	return model.Completed(findings)
}
