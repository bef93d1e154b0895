package report

import (
	"strings"
	"testing"

	"github.com/VectorBits/upgradeguard/internal/model"
)

func sev(s model.Severity) *model.Severity { return &s }

func TestExitCodeContract(t *testing.T) {
	cases := []struct {
		name   string
		result model.EngineResult
		err    error
		want   int
	}{
		{"safe", model.EngineResult{Verdict: model.Safe}, nil, 0},
		{"unsafe critical", model.EngineResult{Verdict: model.Unsafe, HighestSeverity: sev(model.Critical)}, nil, 1},
		{"unsafe high", model.EngineResult{Verdict: model.Unsafe, HighestSeverity: sev(model.High)}, nil, 2},
		{"review required", model.EngineResult{Verdict: model.ReviewRequired, HighestSeverity: sev(model.Medium)}, nil, 3},
		{"incomplete", model.EngineResult{Verdict: model.Incomplete}, nil, 4},
		{"input invalid", model.EngineResult{}, model.NewEngineError(model.ErrInputInvalid, "bad address", nil), 10},
		{"contract ambiguous", model.EngineResult{}, model.NewEngineError(model.ErrContractAmbiguous, "two contracts", nil), 10},
		{"toolchain unavailable", model.EngineResult{}, model.NewEngineError(model.ErrToolchainUnavailable, "no forge", nil), 12},
		{"toolchain failure", model.EngineResult{}, model.NewEngineError(model.ErrToolchainFailure, "build failed", nil), 12},
		{"unexpected", model.EngineResult{}, model.NewEngineError(model.ErrUnexpected, "boom", nil), 12},
	}
	for _, tc := range cases {
		if got := ExitCode(tc.result, tc.err); got != tc.want {
			t.Errorf("%s: ExitCode = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func sampleResult() model.EngineResult {
	slot := uint64(1)
	return model.EngineResult{
		Verdict:         model.Unsafe,
		HighestSeverity: sev(model.Critical),
		Findings: []model.Finding{
			{
				Code:        "STOR-001",
				Severity:    model.Critical,
				Confidence:  model.ConfidenceHigh,
				Title:       "Storage variable deleted",
				Description: "Variable owner was deleted.",
				Location:    &model.Location{Slot: &slot},
				Remediation: "Restore the variable.",
			},
		},
		AnalyzerStatus: map[model.AnalyzerName]model.OutcomeStatus{
			model.AnalyzerProxyDetection:    model.StatusCompleted,
			model.AnalyzerStorageLayout:     model.StatusCompleted,
			model.AnalyzerAbiDiff:           model.StatusCompleted,
			model.AnalyzerUUPSSafety:        model.StatusSkipped,
			model.AnalyzerTransparentSafety: model.StatusCompleted,
			model.AnalyzerInitializer:       model.StatusCompleted,
			model.AnalyzerAccessControl:     model.StatusCompleted,
		},
	}
}

func sampleContext() Context {
	return Context{
		ProxyAddress: "0x1000000000000000000000000000000000000001",
		OldPath:      "contracts/VaultV1.sol",
		NewPath:      "contracts/VaultV2.sol",
		RPCEndpoint:  "http://localhost:8545",
		RunID:        "run-1",
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	a := Render(sampleResult(), sampleContext())
	b := Render(sampleResult(), sampleContext())
	if a != b {
		t.Fatal("two renders of the same result differ")
	}
}

func TestRenderCarriesFindingAndVerdict(t *testing.T) {
	out := Render(sampleResult(), sampleContext())
	for _, want := range []string{"**Unsafe**", "STOR-001", "Storage variable deleted", "slot 1", "Restore the variable.", "run-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestRenderStatusTableUsesFixedOrder(t *testing.T) {
	out := Render(sampleResult(), sampleContext())
	prev := -1
	for _, name := range model.AnalyzerOrder {
		idx := strings.Index(out, "| "+string(name)+" |")
		if idx < 0 {
			t.Fatalf("status table missing %s", name)
		}
		if idx < prev {
			t.Fatalf("status table out of order at %s", name)
		}
		prev = idx
	}
}

func TestRenderIncompleteNote(t *testing.T) {
	result := model.EngineResult{
		Verdict: model.Incomplete,
		AnalyzerStatus: map[model.AnalyzerName]model.OutcomeStatus{
			model.AnalyzerProxyDetection: model.StatusCompleted,
			model.AnalyzerStorageLayout:  model.StatusErrored,
			model.AnalyzerAbiDiff:        model.StatusSkipped,
		},
	}
	out := Render(result, sampleContext())
	if !strings.Contains(out, "## Why Incomplete") {
		t.Fatal("incomplete note missing")
	}
	if !strings.Contains(out, "`storage-layout` errored") {
		t.Fatal("errored analyzer not called out")
	}
	if !strings.Contains(out, "`abi-diff` was skipped") {
		t.Fatal("skipped analyzer not called out")
	}
}
