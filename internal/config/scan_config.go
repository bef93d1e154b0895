package config

import "time"

// ScanConfiguration is the fully-resolved set of inputs to one Analyze
// invocation, merged from CLI flags, the optional upgradeguard.yaml chain
// presets, and environment-variable overrides, in that precedence order.
type ScanConfiguration struct {
	ProxyAddress          string
	OldImplementationPath string
	NewImplementationPath string
	ContractName          string
	RPCEndpoints          []string
	ReportPath            string
	ReportDir             string

	Timeout     time.Duration
	Concurrency int
	Verbose     bool
	Proxy       string
}

// DefaultScanConfiguration is the baseline before any override is
// applied: five concurrent analyzers, two-minute per-RPC-request timeout.
func DefaultScanConfiguration() ScanConfiguration {
	return ScanConfiguration{
		Timeout:     120 * time.Second,
		Concurrency: 5,
		ReportDir:   "reports",
	}
}
