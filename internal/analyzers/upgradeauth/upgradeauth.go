// Package upgradeauth checks the upgrade-authorization discipline of the
// new implementation: exactly one of its two branches runs, selected by
// the classified proxy kind.
package upgradeauth

import (
	"fmt"

	"github.com/VectorBits/upgradeguard/internal/model"
	"github.com/VectorBits/upgradeguard/internal/oracle"
	"github.com/VectorBits/upgradeguard/internal/solast"
)

func funcLoc(name string) *model.Location {
	return &model.Location{Function: name}
}

// AnalyzeUUPS locates `_authorizeUpgrade` in the new AST and checks it is
// present, non-empty, and guarded.
func AnalyzeUUPS(newAst model.ContractAst) model.AnalyzerOutcome {
	var decl *model.FunctionDecl
	for i := range newAst.Functions {
		if newAst.Functions[i].Name == "_authorizeUpgrade" {
			decl = &newAst.Functions[i]
			break
		}
	}
	if decl == nil {
		return model.Completed([]model.Finding{{
			Code:        "UUPS-001",
			Severity:    model.Critical,
			Confidence:  model.ConfidenceHigh,
			Title:       "_authorizeUpgrade missing",
			Description: "The new implementation defines no _authorizeUpgrade function; UUPSUpgradeable requires overriding it to gate upgrades.",
			Remediation: "Implement _authorizeUpgrade with an access-control guard.",
		}})
	}
	if !decl.HasBody || decl.BodyEmpty {
		return model.Completed([]model.Finding{{
			Code:        "UUPS-002",
			Severity:    model.Critical,
			Confidence:  model.ConfidenceHigh,
			Title:       "_authorizeUpgrade has an empty body",
			Description: "_authorizeUpgrade is declared but its body has no statements, so it imposes no restriction on who may upgrade.",
			Location:    funcLoc("_authorizeUpgrade"),
			Remediation: "Add an access-control check (modifier or sender check) to the function body.",
		}})
	}
	if !solast.HasAccessControlSignal(*decl) {
		return model.Completed([]model.Finding{{
			Code:        "UUPS-003",
			Severity:    model.Critical,
			Confidence:  model.ConfidenceMedium,
			Title:       "_authorizeUpgrade unguarded",
			Description: "_authorizeUpgrade has a non-empty body but neither an access-control modifier nor a caller-identity check was detected.",
			Location:    funcLoc("_authorizeUpgrade"),
			Remediation: "Guard the function with an owner/role modifier or an explicit sender check.",
		}})
	}
	return model.Completed(nil)
}

// fixedProxyAdminSelectors are the selectors TPROXY-004 checks the new ABI
// against — functions a Transparent proxy's admin uses and which must
// never collide with the implementation's own selectors.
var fixedProxyAdminSelectors = map[model.Selector]string{
	oracle.SelectorOf("upgradeTo", []string{"address"}):                "upgradeTo(address)",
	oracle.SelectorOf("upgradeToAndCall", []string{"address", "bytes"}): "upgradeToAndCall(address,bytes)",
	oracle.SelectorOf("changeAdmin", []string{"address"}):              "changeAdmin(address)",
	oracle.SelectorOf("admin", nil):                                    "admin()",
	oracle.SelectorOf("implementation", nil):                           "implementation()",
}

// AnalyzeTransparent checks ProxyInfo.Admin and scans the new ABI for
// upgrade-function exposure and admin-selector collisions.
func AnalyzeTransparent(info model.ProxyInfo, newAbi model.Abi) model.AnalyzerOutcome {
	var findings []model.Finding

	if info.Admin != nil && *info.Admin == (model.Address{}) {
		findings = append(findings, model.Finding{
			Code:        "TPROXY-001",
			Severity:    model.Critical,
			Confidence:  model.ConfidenceHigh,
			Title:       "Zero admin on Transparent proxy",
			Description: "The proxy's EIP-1967 admin slot is the zero address; no account can invoke upgrade functions on this proxy anymore.",
			Remediation: "Set a valid admin before relying on Transparent-proxy upgrade governance.",
		})
	}

	for _, f := range newAbi.Functions {
		if f.Name == "upgradeTo" || f.Name == "upgradeToAndCall" {
			findings = append(findings, model.Finding{
				Code:        "TPROXY-002",
				Severity:    model.High,
				Confidence:  model.ConfidenceHigh,
				Title:       "Upgrade function exposed on implementation",
				Description: fmt.Sprintf("The new implementation itself exposes %q; in the Transparent pattern upgrade logic belongs to the proxy, not the implementation.", f.Name),
				Location:    funcLoc(f.Name),
				Remediation: "Remove upgrade-related functions from the implementation; they should only exist on the ProxyAdmin/proxy.",
			})
		}
	}

	for _, f := range newAbi.Functions {
		if name, ok := fixedProxyAdminSelectors[f.Selector]; ok {
			findings = append(findings, model.Finding{
				Code:        "TPROXY-004",
				Severity:    model.High,
				Confidence:  model.ConfidenceHigh,
				Title:       "Selector collision with proxy-admin function",
				Description: fmt.Sprintf("The new implementation defines a function whose selector matches the proxy-admin function %s, which the Transparent proxy's fallback dispatch reserves for the admin.", name),
				Location:    funcLoc(f.Name),
				Remediation: "Rename the colliding function; its selector must not match a reserved proxy-admin selector.",
			})
		}
	}

	return model.Completed(findings)
}
