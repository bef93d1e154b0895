package cmd

import (
	"errors"
	"flag"
	"os"
	"strings"
	"time"
)

// CLIConfig is the flag-populated, validated input to one CLI invocation.
// Either ExplainCode is set (pure reference lookup, no analysis runs) or
// ProxyAddress/OldPath/NewPath/RPCEndpoints are all required.
type CLIConfig struct {
	ProxyAddress string
	OldPath      string
	NewPath      string
	ContractName string
	RPCEndpoints []string
	ReportPath   string
	ReportDir    string
	Timeout      time.Duration
	Verbose      bool
	Proxy        string
	ExplainCode  string
}

func (c *CLIConfig) Validate() error {
	if c.ExplainCode != "" {
		return nil
	}
	if c.ProxyAddress == "" {
		return errors.New("-proxy-addr is required")
	}
	if c.OldPath == "" {
		return errors.New("-old is required")
	}
	if c.NewPath == "" {
		return errors.New("-new is required")
	}
	if len(c.RPCEndpoints) == 0 {
		return errors.New("-rpc is required (comma-separated for failover)")
	}
	return nil
}

// ParseFlags builds a CLIConfig from os.Args.
func ParseFlags() (*CLIConfig, error) {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)

	proxyAddr := fs.String("proxy-addr", "", "Proxy contract address (0x...)")
	oldPath := fs.String("old", "", "Old implementation source path (file, dir, or path:ContractName)")
	newPath := fs.String("new", "", "New implementation source path (file, dir, or path:ContractName)")
	contract := fs.String("contract", "", "Contract name override, applied to both sides when a path is ambiguous")
	rpc := fs.String("rpc", "", "Comma-separated RPC endpoint URLs, tried in order on failure")
	reportPath := fs.String("o", "", "Explicit report output path (overrides -report-dir)")
	reportDir := fs.String("report-dir", "", "Report output directory")
	timeout := fs.Duration("timeout", 0, "Per-request timeout")
	verbose := fs.Bool("v", false, "Verbose logging")
	proxyURL := fs.String("proxy", "", "Optional HTTP proxy for RPC dialing")
	explain := fs.String("explain", "", "Print the long-form remediation text for a finding code and exit")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, err
	}

	var endpoints []string
	for _, e := range strings.Split(*rpc, ",") {
		if e = strings.TrimSpace(e); e != "" {
			endpoints = append(endpoints, e)
		}
	}

	cfg := &CLIConfig{
		ProxyAddress: strings.TrimSpace(*proxyAddr),
		OldPath:      strings.TrimSpace(*oldPath),
		NewPath:      strings.TrimSpace(*newPath),
		ContractName: strings.TrimSpace(*contract),
		RPCEndpoints: endpoints,
		ReportPath:   strings.TrimSpace(*reportPath),
		ReportDir:    strings.TrimSpace(*reportDir),
		Timeout:      *timeout,
		Verbose:      *verbose,
		Proxy:        strings.TrimSpace(*proxyURL),
		ExplainCode:  strings.TrimSpace(*explain),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
