// Package aggregator collapses the seven analyzer outcomes into one
// verdict and a deterministically ordered finding list.
package aggregator

import (
	"sort"

	"github.com/VectorBits/upgradeguard/internal/model"
)

// Aggregate applies the verdict ladder to the seven analyzer outcomes.
// gated is true when the proxy classifier emitted a blocking finding; in
// that case the verdict is forced to Incomplete regardless of the
// findings' severities and the highest severity is left absent, even
// though the gating finding itself is carried in the result.
func Aggregate(outcomes map[model.AnalyzerName]model.AnalyzerOutcome, gated bool) model.EngineResult {
	status := make(map[model.AnalyzerName]model.OutcomeStatus, len(outcomes))
	var findings []model.Finding
	anyErrored := false

	for name, outcome := range outcomes {
		status[name] = outcome.Status
		if outcome.Status == model.StatusErrored {
			anyErrored = true
		}
		if outcome.Status == model.StatusCompleted {
			findings = append(findings, outcome.Findings...)
		}
	}

	sortFindings(findings)

	var verdict model.Verdict
	var highest *model.Severity

	switch {
	case gated:
		verdict = model.Incomplete
	case anyErrored:
		verdict = model.Incomplete
	default:
		worst, ok := worstSeverity(findings)
		switch {
		case ok && (worst == model.Critical || worst == model.High):
			verdict = model.Unsafe
		case ok && worst == model.Medium:
			verdict = model.ReviewRequired
		default:
			// Low-only findings are informational and do not block.
			verdict = model.Safe
		}
		if ok {
			s := worst
			highest = &s
		}
	}

	return model.EngineResult{
		Verdict:         verdict,
		HighestSeverity: highest,
		Findings:        findings,
		AnalyzerStatus:  status,
	}
}

func worstSeverity(findings []model.Finding) (model.Severity, bool) {
	var worst model.Severity
	found := false
	for _, f := range findings {
		if !found || model.MoreSevere(f.Severity, worst) {
			worst = f.Severity
			found = true
		}
	}
	return worst, found
}

// analyzerRankOf gives each finding code's owning analyzer its position in
// the fixed order. Codes are grouped by their well-known prefix.
func analyzerRankOf(code string) int {
	prefix := ""
	for _, c := range code {
		if c == '-' {
			break
		}
		prefix += string(c)
	}
	order := map[string]int{
		"PROXY":  0,
		"STOR":   1,
		"ABI":    2,
		"UUPS":   3,
		"TPROXY": 4,
		"INIT":   5,
		"ACL":    6,
	}
	if r, ok := order[prefix]; ok {
		return r
	}
	return len(order)
}

func locationKey(f model.Finding) (string, uint64, uint8) {
	if f.Location == nil {
		return "", 0, 0
	}
	var slot uint64
	var offset uint8
	if f.Location.Slot != nil {
		slot = *f.Location.Slot
	}
	if f.Location.Offset != nil {
		offset = *f.Location.Offset
	}
	return f.Location.Function, slot, offset
}

// sortFindings enforces a stable total order so that two runs with
// identical inputs produce byte-identical output: analyzer rank, then
// finding code (lexicographic), then primary location key.
func sortFindings(findings []model.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		ra, rb := analyzerRankOf(a.Code), analyzerRankOf(b.Code)
		if ra != rb {
			return ra < rb
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		fa, sa, oa := locationKey(a)
		fb, sb, ob := locationKey(b)
		if fa != fb {
			return fa < fb
		}
		if sa != sb {
			return sa < sb
		}
		return oa < ob
	})
}
