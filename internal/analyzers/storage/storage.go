// Package storage is the storage-layout differ. It is a pure function of
// two StorageLayout values and shares nothing mutable, in keeping with
// the engine's fan-out contract.
package storage

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/VectorBits/upgradeguard/internal/model"
)

var gapArrayType = regexp.MustCompile(`^uint256\[(\d+)\]$`)

type key struct {
	slot   uint64
	offset uint8
}

// isGapEntry reports whether e is a storage gap: its label matches the
// suffix pattern "gap" case-insensitively and its type is uint256[N].
func isGapEntry(e model.StorageEntry) (bool, int) {
	if !strings.HasSuffix(strings.ToLower(e.Label), "gap") {
		return false, 0
	}
	m := gapArrayType.FindStringSubmatch(e.CanonicalType)
	if m == nil {
		return false, 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return false, 0
	}
	return true, n
}

func split(layout model.StorageLayout) (nonGap []model.StorageEntry, gaps map[uint64]model.StorageEntry, gapSize map[uint64]int) {
	gaps = map[uint64]model.StorageEntry{}
	gapSize = map[uint64]int{}
	for _, e := range layout.Entries {
		if ok, n := isGapEntry(e); ok {
			gaps[e.Slot] = e
			gapSize[e.Slot] = n
			continue
		}
		nonGap = append(nonGap, e)
	}
	return
}

func loc(slot uint64, offset uint8) *model.Location {
	s, o := slot, offset
	return &model.Location{Slot: &s, Offset: &o}
}

// Analyze diffs old and new non-gap entries keyed by (slot, offset), then
// validates gap capacity against the appended-variable count.
func Analyze(old, new model.StorageLayout) model.AnalyzerOutcome {
	oldEntries, oldGaps, oldGapSize := split(old)
	newEntries, newGaps, newGapSize := split(new)

	newByKey := map[key]model.StorageEntry{}
	for _, e := range newEntries {
		newByKey[key{e.Slot, e.Offset}] = e
	}
	newByLabel := map[string][]model.StorageEntry{}
	for _, e := range newEntries {
		newByLabel[e.Label] = append(newByLabel[e.Label], e)
	}

	var findings []model.Finding

	var maxOldSlot uint64
	for _, e := range oldEntries {
		if e.Slot > maxOldSlot {
			maxOldSlot = e.Slot
		}
	}

	for _, oe := range oldEntries {
		k := key{oe.Slot, oe.Offset}
		ne, ok := newByKey[k]
		if !ok {
			reappearsHigher := false
			for _, candidate := range newByLabel[oe.Label] {
				if candidate.Slot > oe.Slot {
					reappearsHigher = true
					break
				}
			}
			if reappearsHigher {
				continue // suppressed: reported from the new side as STOR-002, or STOR-009 past the old layout's end
			}
			findings = append(findings, model.Finding{
				Code:        "STOR-001",
				Severity:    model.Critical,
				Confidence:  model.ConfidenceHigh,
				Title:       "Storage variable deleted",
				Description: fmt.Sprintf("Variable %q at slot %d offset %d exists in the old layout but has no counterpart in the new layout.", oe.Label, oe.Slot, oe.Offset),
				Details:     map[string]any{"label": oe.Label, "type": oe.CanonicalType},
				Location:    loc(oe.Slot, oe.Offset),
				Remediation: "Restore the variable at its original slot/offset, or append a replacement and leave this slot as an explicit gap.",
			})
			continue
		}
		if ne.LengthBytes != oe.LengthBytes {
			findings = append(findings, model.Finding{
				Code:        "STOR-003",
				Severity:    model.Critical,
				Confidence:  model.ConfidenceHigh,
				Title:       "Storage variable width changed",
				Description: fmt.Sprintf("Variable at slot %d offset %d changed width from %d to %d bytes.", oe.Slot, oe.Offset, oe.LengthBytes, ne.LengthBytes),
				Details:     map[string]any{"old_type": oe.CanonicalType, "new_type": ne.CanonicalType},
				Location:    loc(oe.Slot, oe.Offset),
				Remediation: "Do not change the byte width of an existing storage variable; append a new variable instead.",
			})
			continue
		}
		if ne.CanonicalType != oe.CanonicalType {
			findings = append(findings, model.Finding{
				Code:        "STOR-004",
				Severity:    model.Critical,
				Confidence:  model.ConfidenceHigh,
				Title:       "Storage variable semantics changed",
				Description: fmt.Sprintf("Variable at slot %d offset %d changed type from %q to %q despite matching width.", oe.Slot, oe.Offset, oe.CanonicalType, ne.CanonicalType),
				Location:    loc(oe.Slot, oe.Offset),
				Remediation: "Reusing a slot with a same-width but semantically different type corrupts existing state; append a new variable instead.",
			})
			continue
		}
		if ne.Label != oe.Label {
			findings = append(findings, model.Finding{
				Code:        "STOR-010",
				Severity:    model.Low,
				Confidence:  model.ConfidenceHigh,
				Title:       "Storage variable renamed",
				Description: fmt.Sprintf("Variable at slot %d offset %d was renamed from %q to %q.", oe.Slot, oe.Offset, oe.Label, ne.Label),
				Location:    loc(oe.Slot, oe.Offset),
				Remediation: "Informational only; confirm the rename is intentional and does not indicate a swapped variable.",
			})
		}
	}

	oldByKey := map[key]bool{}
	for _, oe := range oldEntries {
		oldByKey[key{oe.Slot, oe.Offset}] = true
	}

	var appended []model.StorageEntry
	var midInsertions []model.StorageEntry
	for _, ne := range newEntries {
		if oldByKey[key{ne.Slot, ne.Offset}] {
			continue
		}
		if ne.Slot <= maxOldSlot {
			midInsertions = append(midInsertions, ne)
		} else {
			appended = append(appended, ne)
		}
	}

	for _, ne := range midInsertions {
		findings = append(findings, model.Finding{
			Code:        "STOR-002",
			Severity:    model.Critical,
			Confidence:  model.ConfidenceHigh,
			Title:       "Storage variable inserted in the middle of the layout",
			Description: fmt.Sprintf("New variable %q occupies slot %d offset %d, which is within the old layout's slot range and was not previously assigned to it.", ne.Label, ne.Slot, ne.Offset),
			Location:    loc(ne.Slot, ne.Offset),
			Remediation: "Only append new variables after the end of the existing layout; never insert them between existing slots.",
		})
	}

	if len(appended) > 0 {
		labels := make([]string, 0, len(appended))
		for _, a := range appended {
			labels = append(labels, a.Label)
		}
		findings = append(findings, model.Finding{
			Code:        "STOR-009",
			Severity:    model.Medium,
			Confidence:  model.ConfidenceHigh,
			Title:       "New storage variables appended",
			Description: fmt.Sprintf("%d new variable(s) were appended after the old layout's end: %s.", len(appended), strings.Join(labels, ", ")),
			Details:     map[string]any{"appended": labels},
			Remediation: "Confirm any storage gaps were shrunk to account for these variables.",
		})
	}

	for slot, og := range oldGaps {
		if _, ok := newGaps[slot]; !ok {
			findings = append(findings, model.Finding{
				Code:        "STOR-008",
				Severity:    model.High,
				Confidence:  model.ConfidenceHigh,
				Title:       "Storage gap removed",
				Description: fmt.Sprintf("The gap %q reserved at slot %d no longer exists in the new layout.", og.Label, slot),
				Location:    loc(slot, og.Offset),
				Remediation: "Keep the gap declared at this slot, shrinking its size instead of removing it, when adding new base-contract variables.",
			})
			continue
		}
		nOld := oldGapSize[slot]
		nNew := newGapSize[slot]
		if nNew+len(appended) < nOld {
			shortfall := nOld - (nNew + len(appended))
			findings = append(findings, model.Finding{
				Code:        "STOR-007",
				Severity:    model.High,
				Confidence:  model.ConfidenceHigh,
				Title:       "Storage gap insufficient",
				Description: fmt.Sprintf("Gap at slot %d shrank from %d to %d slots while %d new variable(s) were appended, a shortfall of %d slot(s).", slot, nOld, nNew, len(appended), shortfall),
				Details:     map[string]any{"old_size": nOld, "new_size": nNew, "appended_count": len(appended), "shortfall": shortfall},
				Location:    loc(slot, og.Offset),
				Remediation: "Shrink the gap by exactly the number of newly appended variables it must still reserve for.",
			})
		}
	}

	return model.Completed(findings)
}
