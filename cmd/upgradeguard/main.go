package main

import (
	"os"

	"github.com/VectorBits/upgradeguard/cmd"
	"github.com/VectorBits/upgradeguard/internal/report"
)

func main() {
	cmd.Print()
	result, err := cmd.Run()
	if err != nil {
		cmd.PrintFatal(err)
		os.Exit(report.ExitCode(result, err))
	}
	if result.Verdict == "" {
		// --explain ran instead of an analysis; nothing to score.
		os.Exit(0)
	}
	os.Exit(report.ExitCode(result, err))
}
