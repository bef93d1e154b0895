// Package report renders an EngineResult into its human-readable markdown
// report and maps a result (or a typed engine error) onto the process
// exit-code contract.
package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/VectorBits/upgradeguard/internal/model"
)

// Context carries the invocation metadata the report header needs but
// that EngineResult itself does not store.
type Context struct {
	ProxyAddress string
	OldPath      string
	NewPath      string
	RPCEndpoint  string
	RunID        string
}

func getSeverityIcon(severity model.Severity) string {
	switch severity {
	case model.Critical:
		return "🔴"
	case model.High:
		return "🟠"
	case model.Medium:
		return "🟡"
	case model.Low:
		return "🟢"
	default:
		return "⚪"
	}
}

func verdictIcon(v model.Verdict) string {
	switch v {
	case model.Safe:
		return "✅"
	case model.Unsafe:
		return "⛔"
	case model.ReviewRequired:
		return "⚠️"
	case model.Incomplete:
		return "❔"
	default:
		return "⚪"
	}
}

// Render builds the full markdown report. The analyzer-status table is
// always emitted in the fixed order model.AnalyzerOrder so that two runs
// over identical inputs render byte-identical output.
func Render(result model.EngineResult, ctx Context) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Upgrade Safety Report\n\n")
	fmt.Fprintf(&b, "**Proxy**: %s\n", ctx.ProxyAddress)
	fmt.Fprintf(&b, "**Old implementation source**: %s\n", ctx.OldPath)
	fmt.Fprintf(&b, "**New implementation source**: %s\n", ctx.NewPath)
	fmt.Fprintf(&b, "**RPC endpoint**: %s\n", ctx.RPCEndpoint)
	fmt.Fprintf(&b, "**Run ID**: %s\n\n", ctx.RunID)

	fmt.Fprintf(&b, "## Verdict\n\n")
	fmt.Fprintf(&b, "%s **%s**", verdictIcon(result.Verdict), result.Verdict)
	if result.HighestSeverity != nil {
		fmt.Fprintf(&b, " (highest severity: %s)", *result.HighestSeverity)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "## Analyzer Status\n\n")
	fmt.Fprintf(&b, "| Analyzer | Status |\n|---|---|\n")
	for _, name := range model.AnalyzerOrder {
		status := result.AnalyzerStatus[name]
		fmt.Fprintf(&b, "| %s | %s |\n", name, status)
	}
	b.WriteString("\n")

	if len(result.Findings) == 0 {
		fmt.Fprintf(&b, "## Findings\n\nNone.\n\n")
		if result.Verdict == model.Incomplete {
			b.WriteString(incompleteNote(result))
		}
		return b.String()
	}

	fmt.Fprintf(&b, "## Findings (%d)\n\n", len(result.Findings))
	for i, f := range result.Findings {
		fmt.Fprintf(&b, "%d. %s **[%s/%s]** `%s` — %s\n", i+1, getSeverityIcon(f.Severity), f.Severity, f.Confidence, f.Code, f.Title)
		fmt.Fprintf(&b, "   %s\n", f.Description)
		if f.Location != nil {
			if loc := locationString(*f.Location); loc != "" {
				fmt.Fprintf(&b, "   - Location: %s\n", loc)
			}
		}
		if f.Remediation != "" {
			fmt.Fprintf(&b, "   - Remediation: %s\n", f.Remediation)
		}
		b.WriteString("\n")
	}

	if result.Verdict == model.Incomplete {
		b.WriteString(incompleteNote(result))
	}

	return b.String()
}

func locationString(loc model.Location) string {
	var parts []string
	if loc.Contract != "" {
		parts = append(parts, "contract "+loc.Contract)
	}
	if loc.Function != "" {
		parts = append(parts, "function "+loc.Function)
	}
	if loc.Slot != nil {
		parts = append(parts, fmt.Sprintf("slot %d", *loc.Slot))
	}
	if loc.Offset != nil {
		parts = append(parts, fmt.Sprintf("offset %d", *loc.Offset))
	}
	return strings.Join(parts, ", ")
}

// incompleteNote explains which analyzers were errored versus skipped.
func incompleteNote(result model.EngineResult) string {
	var b strings.Builder
	b.WriteString("## Why Incomplete\n\n")
	for _, name := range model.AnalyzerOrder {
		switch result.AnalyzerStatus[name] {
		case model.StatusErrored:
			fmt.Fprintf(&b, "- `%s` errored during analysis.\n", name)
		case model.StatusSkipped:
			fmt.Fprintf(&b, "- `%s` was skipped.\n", name)
		}
	}
	b.WriteString("\n")
	return b.String()
}

// ExitCode maps a completed analysis (or the typed error an aborted
// analysis returned) onto the process exit-code contract.
func ExitCode(result model.EngineResult, err error) int {
	if err != nil {
		var ee *model.EngineError
		if errors.As(err, &ee) {
			switch ee.Kind {
			case model.ErrInputInvalid, model.ErrContractAmbiguous:
				return 10
			default:
				return 12
			}
		}
		return 12
	}
	switch result.Verdict {
	case model.Safe:
		return 0
	case model.Unsafe:
		if result.HighestSeverity != nil && *result.HighestSeverity == model.Critical {
			return 1
		}
		return 2
	case model.ReviewRequired:
		return 3
	case model.Incomplete:
		return 4
	default:
		return 12
	}
}
