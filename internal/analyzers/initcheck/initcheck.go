// Package initcheck checks the initializer discipline of the new
// implementation.
package initcheck

import (
	"github.com/VectorBits/upgradeguard/internal/model"
	"github.com/VectorBits/upgradeguard/internal/solast"
)

func funcLoc(name string) *model.Location {
	return &model.Location{Function: name}
}

// Analyze inspects constructors and initializer-guarded functions in the
// new implementation's AST.
func Analyze(newAst model.ContractAst) model.AnalyzerOutcome {
	var findings []model.Finding

	var constructors []model.FunctionDecl
	var initFns []model.FunctionDecl
	var initializerOnly []model.FunctionDecl

	for _, fn := range newAst.Functions {
		if fn.Kind == model.KindConstructor {
			constructors = append(constructors, fn)
		}
		if fn.Kind == model.KindRegular && (solast.HasModifier(fn, "initializer") || solast.HasModifier(fn, "reinitializer")) {
			initFns = append(initFns, fn)
			if solast.HasModifier(fn, "initializer") && !solast.HasModifier(fn, "reinitializer") {
				initializerOnly = append(initializerOnly, fn)
			}
		}
	}

	for _, c := range constructors {
		if c.BodyHasStorageAssignment {
			findings = append(findings, model.Finding{
				Code:        "INIT-001",
				Severity:    model.Critical,
				Confidence:  model.ConfidenceMedium,
				Title:       "Constructor writes to storage",
				Description: "An upgradeable implementation's constructor assigns to storage. Constructor-time state is not preserved across a proxy's delegatecall and will not reach the proxy's storage.",
				Remediation: "Move state initialization out of the constructor and into an initializer function.",
			})
		}
	}

	if len(constructors) > 0 {
		anyDisables := false
		for _, c := range constructors {
			if solast.HasDisableInitializersCall(c) {
				anyDisables = true
				break
			}
		}
		if !anyDisables {
			findings = append(findings, model.Finding{
				Code:        "INIT-005",
				Severity:    model.Medium,
				Confidence:  model.ConfidenceMedium,
				Title:       "Constructor does not disable initializers",
				Description: "The implementation has a constructor but none of its constructors call the conventional _disableInitializers helper, leaving the implementation contract's own initializer callable directly.",
				Remediation: "Call _disableInitializers() in the constructor to prevent direct initialization of the implementation contract.",
			})
		}
	}

	if len(initFns) == 0 {
		findings = append(findings, model.Finding{
			Code:        "INIT-002",
			Severity:    model.High,
			Confidence:  model.ConfidenceHigh,
			Title:       "No initializer function found",
			Description: "The new implementation defines no function guarded by `initializer` or `reinitializer`, so there is no safe, idempotent way to set initial state after upgrade/deployment behind a proxy.",
			Remediation: "Add an `initialize` function guarded by the `initializer` modifier.",
		})
	}

	if len(initializerOnly) > 1 {
		names := make([]string, 0, len(initializerOnly))
		for _, fn := range initializerOnly {
			names = append(names, fn.Name)
		}
		loc := funcLoc(names[0])
		findings = append(findings, model.Finding{
			Code:        "INIT-006",
			Severity:    model.High,
			Confidence:  model.ConfidenceHigh,
			Title:       "More than one function guarded by `initializer`",
			Description: "More than one function is guarded by the plain `initializer` modifier; that modifier only allows a single successful call for the whole contract's lifetime, so only one of these can ever actually run.",
			Details:     map[string]any{"functions": names},
			Location:    loc,
			Remediation: "Guard at most one function with `initializer`; use `reinitializer(n)` for subsequent init stages.",
		})
	}

	return model.Completed(findings)
}
