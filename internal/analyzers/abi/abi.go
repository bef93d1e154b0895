// Package abi is the interface differ. It compares two Abi values keyed
// by selector/topic0 and emits ABI-* findings.
package abi

import (
	"fmt"
	"strings"

	"github.com/VectorBits/upgradeguard/internal/model"
)

func outputsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func funcLoc(name string) *model.Location {
	return &model.Location{Function: name}
}

// Analyze diffs functions by selector and events by topic0.
func Analyze(old, new model.Abi) model.AnalyzerOutcome {
	var findings []model.Finding

	oldBySelector := map[model.Selector]model.FunctionSig{}
	for _, f := range old.Functions {
		oldBySelector[f.Selector] = f
	}
	newBySelector := map[model.Selector]model.FunctionSig{}
	newByName := map[string][]model.FunctionSig{}
	for _, f := range new.Functions {
		newBySelector[f.Selector] = f
		newByName[f.Name] = append(newByName[f.Name], f)
	}

	for _, fOld := range old.Functions {
		fNew, ok := newBySelector[fOld.Selector]
		if !ok {
			if candidates := newByName[fOld.Name]; len(candidates) > 0 {
				c := candidates[0]
				findings = append(findings, model.Finding{
					Code:        "ABI-003",
					Severity:    model.High,
					Confidence:  model.ConfidenceHigh,
					Title:       "Function signature changed",
					Description: fmt.Sprintf("Function %q exists in both versions but its selector changed (its parameter types changed), breaking callers built against the old selector.", fOld.Name),
					Details:     map[string]any{"old_selector": fOld.Selector.String(), "new_selector": c.Selector.String()},
					Location:    funcLoc(fOld.Name),
					Remediation: "Preserve the original parameter types, or keep the old signature available alongside the new one.",
				})
			} else {
				findings = append(findings, model.Finding{
					Code:        "ABI-001",
					Severity:    model.High,
					Confidence:  model.ConfidenceHigh,
					Title:       "Function selector removed",
					Description: fmt.Sprintf("Function %q (selector %s) is no longer exposed by the new implementation.", fOld.Name, fOld.Selector.String()),
					Location:    funcLoc(fOld.Name),
					Remediation: "Restore the function, or document and coordinate the breaking removal with integrators.",
				})
			}
			continue
		}
		if !outputsEqual(fOld.Outputs, fNew.Outputs) {
			findings = append(findings, model.Finding{
				Code:        "ABI-004",
				Severity:    model.Medium,
				Confidence:  model.ConfidenceHigh,
				Title:       "Function return type changed",
				Description: fmt.Sprintf("Function %q kept its selector but its return types changed from %v to %v.", fOld.Name, fOld.Outputs, fNew.Outputs),
				Location:    funcLoc(fOld.Name),
				Remediation: "Return-type changes on a stable selector silently break ABI decoders; bump the function name/selector instead.",
			})
		}
	}

	seen := map[model.Selector]bool{}
	for _, fNew := range new.Functions {
		if seen[fNew.Selector] {
			findings = append(findings, model.Finding{
				Code:        "ABI-002",
				Severity:    model.Critical,
				Confidence:  model.ConfidenceHigh,
				Title:       "Selector collision",
				Description: fmt.Sprintf("Selector %s is shared by more than one function in the new ABI (%q collides with an earlier entry).", fNew.Selector.String(), fNew.Name),
				Location:    funcLoc(fNew.Name),
				Remediation: "Rename or re-sign one of the colliding functions; a selector collision makes the dispatch ambiguous.",
			})
			continue
		}
		seen[fNew.Selector] = true
	}

	for _, fNew := range new.Functions {
		if _, existedBefore := oldBySelector[fNew.Selector]; existedBefore {
			continue
		}
		findings = append(findings, model.Finding{
			Code:        "ABI-005",
			Severity:    model.Low,
			Confidence:  model.ConfidenceHigh,
			Title:       "New function added",
			Description: fmt.Sprintf("Function %q (selector %s) is new in this implementation.", fNew.Name, fNew.Selector.String()),
			Location:    funcLoc(fNew.Name),
			Remediation: "Informational; confirm the new surface area was intended and reviewed.",
		})
	}

	oldEventByTopic := map[model.TopicHash]model.EventSig{}
	for _, e := range old.Events {
		oldEventByTopic[e.Topic0] = e
	}
	newEventByTopic := map[model.TopicHash]model.EventSig{}
	newEventByName := map[string][]model.EventSig{}
	for _, e := range new.Events {
		newEventByTopic[e.Topic0] = e
		newEventByName[e.Name] = append(newEventByName[e.Name], e)
	}

	for _, eOld := range old.Events {
		if _, ok := newEventByTopic[eOld.Topic0]; ok {
			continue
		}
		if strings.TrimSpace(eOld.Name) != "" && len(newEventByName[eOld.Name]) > 0 {
			findings = append(findings, model.Finding{
				Code:        "ABI-006",
				Severity:    model.High,
				Confidence:  model.ConfidenceHigh,
				Title:       "Event signature changed",
				Description: fmt.Sprintf("Event %q exists in both versions but its topic0 changed (its parameter types changed).", eOld.Name),
				Location:    funcLoc(eOld.Name),
				Remediation: "Off-chain indexers keyed on the old topic0 will stop matching this event; coordinate the change.",
			})
		} else {
			findings = append(findings, model.Finding{
				Code:        "ABI-007",
				Severity:    model.Medium,
				Confidence:  model.ConfidenceHigh,
				Title:       "Event removed",
				Description: fmt.Sprintf("Event %q (topic0 %s) is no longer emitted by the new implementation.", eOld.Name, eOld.Topic0.Hex()),
				Location:    funcLoc(eOld.Name),
				Remediation: "Restore the event if off-chain consumers depend on it.",
			})
		}
	}

	return model.Completed(findings)
}
