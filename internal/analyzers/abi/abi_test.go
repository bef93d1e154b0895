package abi

import (
	"testing"

	"github.com/VectorBits/upgradeguard/internal/model"
	"github.com/VectorBits/upgradeguard/internal/oracle"
)

func fn(name string, inputs, outputs []string) model.FunctionSig {
	return model.FunctionSig{
		Selector:   oracle.SelectorOf(name, inputs),
		Name:       name,
		Inputs:     inputs,
		Outputs:    outputs,
		Mutability: model.Nonpayable,
	}
}

func ev(name string, types []string) model.EventSig {
	var inputs []model.EventInput
	for _, t := range types {
		inputs = append(inputs, model.EventInput{Type: t})
	}
	return model.EventSig{Topic0: oracle.Topic0Of(name, types), Name: name, Inputs: inputs}
}

func codes(outcome model.AnalyzerOutcome) []string {
	var out []string
	for _, f := range outcome.Findings {
		out = append(out, f.Code)
	}
	return out
}

func hasCode(outcome model.AnalyzerOutcome, code string) bool {
	for _, f := range outcome.Findings {
		if f.Code == code {
			return true
		}
	}
	return false
}

func TestIdenticalAbisProduceNoFindings(t *testing.T) {
	a := model.Abi{
		Functions: []model.FunctionSig{fn("balanceOf", []string{"address"}, []string{"uint256"})},
		Events:    []model.EventSig{ev("Transfer", []string{"address", "address", "uint256"})},
	}
	outcome := Analyze(a, a)
	if len(outcome.Findings) != 0 {
		t.Fatalf("findings = %v, want none", codes(outcome))
	}
}

func TestSelectorRemoved(t *testing.T) {
	old := model.Abi{Functions: []model.FunctionSig{fn("withdraw", nil, nil)}}
	outcome := Analyze(old, model.Abi{})
	if got := codes(outcome); len(got) != 1 || got[0] != "ABI-001" {
		t.Fatalf("codes = %v, want [ABI-001]", got)
	}
	if outcome.Findings[0].Severity != model.High {
		t.Fatalf("severity = %s, want High", outcome.Findings[0].Severity)
	}
}

func TestSignatureChanged(t *testing.T) {
	old := model.Abi{Functions: []model.FunctionSig{fn("withdraw", []string{"uint256"}, nil)}}
	new := model.Abi{Functions: []model.FunctionSig{fn("withdraw", []string{"uint256", "address"}, nil)}}
	outcome := Analyze(old, new)
	if !hasCode(outcome, "ABI-003") {
		t.Fatalf("want ABI-003, got %v", codes(outcome))
	}
	if hasCode(outcome, "ABI-001") {
		t.Fatalf("ABI-001 must not fire when the name survives: %v", codes(outcome))
	}
	// The new signature itself is still new surface area.
	if !hasCode(outcome, "ABI-005") {
		t.Fatalf("want ABI-005 for the new selector, got %v", codes(outcome))
	}
}

func TestReturnTypeChanged(t *testing.T) {
	old := model.Abi{Functions: []model.FunctionSig{fn("totalSupply", nil, []string{"uint256"})}}
	new := model.Abi{Functions: []model.FunctionSig{fn("totalSupply", nil, []string{"uint128"})}}
	outcome := Analyze(old, new)
	if got := codes(outcome); len(got) != 1 || got[0] != "ABI-004" {
		t.Fatalf("codes = %v, want [ABI-004]", got)
	}
}

func TestSelectorCollision(t *testing.T) {
	f1 := fn("transfer", []string{"address", "uint256"}, nil)
	f2 := f1
	f2.Name = "transferAlias"
	new := model.Abi{Functions: []model.FunctionSig{f1, f2}}
	outcome := Analyze(model.Abi{}, new)
	collisions := 0
	for _, f := range outcome.Findings {
		if f.Code == "ABI-002" {
			collisions++
			if f.Severity != model.Critical {
				t.Fatalf("ABI-002 severity = %s, want Critical", f.Severity)
			}
		}
	}
	if collisions != 1 {
		t.Fatalf("ABI-002 count = %d, want 1 (one per later occurrence)", collisions)
	}
}

func TestNewFunctionIsLow(t *testing.T) {
	new := model.Abi{Functions: []model.FunctionSig{fn("pause", nil, nil)}}
	outcome := Analyze(model.Abi{}, new)
	if got := codes(outcome); len(got) != 1 || got[0] != "ABI-005" {
		t.Fatalf("codes = %v, want [ABI-005]", got)
	}
	if outcome.Findings[0].Severity != model.Low {
		t.Fatalf("severity = %s, want Low", outcome.Findings[0].Severity)
	}
}

func TestEventSignatureChanged(t *testing.T) {
	old := model.Abi{Events: []model.EventSig{ev("Upgraded", []string{"address"})}}
	new := model.Abi{Events: []model.EventSig{ev("Upgraded", []string{"address", "uint256"})}}
	outcome := Analyze(old, new)
	if got := codes(outcome); len(got) != 1 || got[0] != "ABI-006" {
		t.Fatalf("codes = %v, want [ABI-006]", got)
	}
}

func TestEventRemoved(t *testing.T) {
	old := model.Abi{Events: []model.EventSig{ev("Paused", []string{"address"})}}
	outcome := Analyze(old, model.Abi{})
	if got := codes(outcome); len(got) != 1 || got[0] != "ABI-007" {
		t.Fatalf("codes = %v, want [ABI-007]", got)
	}
	if outcome.Findings[0].Severity != model.Medium {
		t.Fatalf("severity = %s, want Medium", outcome.Findings[0].Severity)
	}
}
