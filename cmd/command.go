package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/VectorBits/upgradeguard/internal/chain"
	"github.com/VectorBits/upgradeguard/internal/config"
	"github.com/VectorBits/upgradeguard/internal/engine"
	"github.com/VectorBits/upgradeguard/internal/explain"
	"github.com/VectorBits/upgradeguard/internal/logger"
	"github.com/VectorBits/upgradeguard/internal/model"
	"github.com/VectorBits/upgradeguard/internal/oracle/foundry"
	"github.com/VectorBits/upgradeguard/internal/report"
)

// Print writes the one-line banner before any work starts.
func Print() {
	fmt.Println("upgradeguard — EVM proxy upgrade-safety analysis")
}

// PrintFatal reports a fatal error to stderr. It does not exit: main.go
// owns the process exit code so it can apply the exit-code contract even
// on the error path.
func PrintFatal(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
}

// Run parses flags and executes one analysis (or one --explain lookup).
// The returned EngineResult is the zero value when ExplainCode short-circuits
// or validation/execution aborted before an analysis could complete.
func Run() (model.EngineResult, error) {
	cfg, err := ParseFlags()
	if err != nil {
		return model.EngineResult{}, err
	}

	if cfg.ExplainCode != "" {
		runExplain(cfg.ExplainCode)
		return model.EngineResult{}, nil
	}

	if cfg.Verbose {
		if err := logger.Init("logs", cfg.ProxyAddress); err != nil {
			fmt.Fprintln(os.Stderr, "warning: failed to init logger:", err)
		}
		defer logger.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(sigChan)
		close(sigChan)
	}()
	go func() {
		if _, ok := <-sigChan; ok {
			cancel()
		}
	}()

	return Execute(ctx, cfg)
}

func runExplain(code string) {
	e, ok := explain.Lookup(code)
	if !ok {
		fmt.Printf("no reference entry for %q\n", code)
		return
	}
	fmt.Printf("%s: %s\n%s\n", code, e.Title, e.Remediation)
}

// expandChainPresets replaces any -rpc entry that names a chain preset from
// upgradeguard.yaml (no scheme, e.g. "eth") with that preset's URL list;
// real URLs pass through untouched.
func expandChainPresets(appConfig *config.AppConfig, endpoints []string) []string {
	if appConfig == nil {
		return endpoints
	}
	var out []string
	for _, e := range endpoints {
		if strings.Contains(e, "://") {
			out = append(out, e)
			continue
		}
		if preset, err := appConfig.GetChainConfig(e); err == nil {
			out = append(out, preset.RPCURLs...)
			continue
		}
		out = append(out, e)
	}
	return out
}

// Execute merges CLI flags with the optional YAML chain presets and
// environment overrides, builds the engine's two collaborators, and runs
// the analysis.
func Execute(ctx context.Context, cfg *CLIConfig) (model.EngineResult, error) {
	if !common.IsHexAddress(cfg.ProxyAddress) {
		return model.EngineResult{}, model.NewEngineError(model.ErrInputInvalid, "proxy address is not a valid 20-byte hex address: "+cfg.ProxyAddress, nil)
	}

	appConfig, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: failed to load upgradeguard.yaml:", err)
	}

	scanCfg := config.DefaultScanConfiguration()
	config.ApplyEnvOverrides(&scanCfg)
	scanCfg.ProxyAddress = cfg.ProxyAddress
	scanCfg.OldImplementationPath = cfg.OldPath
	scanCfg.NewImplementationPath = cfg.NewPath
	scanCfg.ContractName = cfg.ContractName
	scanCfg.RPCEndpoints = expandChainPresets(appConfig, cfg.RPCEndpoints)
	scanCfg.ReportPath = cfg.ReportPath
	if cfg.ReportDir != "" {
		scanCfg.ReportDir = cfg.ReportDir
	}
	scanCfg.Verbose = cfg.Verbose
	if cfg.Proxy != "" {
		scanCfg.Proxy = cfg.Proxy
	}
	if cfg.Timeout > 0 {
		scanCfg.Timeout = cfg.Timeout
	}

	rpcClient, err := chain.Dial(scanCfg.RPCEndpoints, scanCfg.Timeout, scanCfg.Proxy)
	if err != nil {
		return model.EngineResult{}, model.NewEngineError(model.ErrInputInvalid, "invalid RPC endpoint or proxy configuration", err)
	}
	defer rpcClient.Close()

	eng := engine.New(foundry.New(), rpcClient)

	address := common.HexToAddress(cfg.ProxyAddress)
	result, err := eng.Analyze(ctx, engine.Input{
		ProxyAddress:          address,
		OldImplementationPath: scanCfg.OldImplementationPath,
		NewImplementationPath: scanCfg.NewImplementationPath,
		RPCEndpoint:           scanCfg.RPCEndpoints[0],
		Options:               engine.Options{ContractName: scanCfg.ContractName},
	})
	if err != nil {
		return model.EngineResult{}, err
	}

	report.PrintSummary(os.Stdout, result)

	storage := report.NewFileStorage(scanCfg.ReportDir, scanCfg.ReportPath)
	savedPath, err := storage.Save(report.Context{
		ProxyAddress: address.Hex(),
		OldPath:      scanCfg.OldImplementationPath,
		NewPath:      scanCfg.NewImplementationPath,
		RPCEndpoint:  scanCfg.RPCEndpoints[0],
		RunID:        result.RunID,
	}, result.ReportMarkdown)
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: failed to save report:", err)
	} else {
		fmt.Println("report written to", savedPath)
	}

	return result, nil
}
