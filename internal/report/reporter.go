package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/VectorBits/upgradeguard/internal/model"
)

var (
	criticalColor = color.New(color.FgRed, color.Bold)
	highColor     = color.New(color.FgRed)
	mediumColor   = color.New(color.FgYellow)
	lowColor      = color.New(color.FgGreen)
)

func severityColor(s model.Severity) *color.Color {
	switch s {
	case model.Critical:
		return criticalColor
	case model.High:
		return highColor
	case model.Medium:
		return mediumColor
	default:
		return lowColor
	}
}

// PrintSummary writes a short colorized verdict + finding list to w, the
// console-facing counterpart to the full markdown Render produces.
func PrintSummary(w io.Writer, result model.EngineResult) {
	fmt.Fprintf(w, "%s %s\n", verdictIcon(result.Verdict), result.Verdict)
	for _, f := range result.Findings {
		c := severityColor(f.Severity)
		c.Fprintf(w, "  [%s] ", f.Severity)
		fmt.Fprintf(w, "%s: %s\n", f.Code, f.Title)
	}
	if len(result.Findings) == 0 {
		fmt.Fprintln(w, "  no findings")
	}
}
