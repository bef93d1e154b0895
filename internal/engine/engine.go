// Package engine sequences one full analysis: proxy classification, source
// resolution, the five-analyzer fan-out, and aggregation into a single
// EngineResult. This is the one entry operation the tool exposes; cmd is a
// thin caller of Analyze.
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/VectorBits/upgradeguard/internal/aggregator"
	"github.com/VectorBits/upgradeguard/internal/analyzers/abi"
	"github.com/VectorBits/upgradeguard/internal/analyzers/acl"
	"github.com/VectorBits/upgradeguard/internal/analyzers/initcheck"
	"github.com/VectorBits/upgradeguard/internal/analyzers/storage"
	"github.com/VectorBits/upgradeguard/internal/analyzers/upgradeauth"
	"github.com/VectorBits/upgradeguard/internal/chain"
	"github.com/VectorBits/upgradeguard/internal/classifier"
	"github.com/VectorBits/upgradeguard/internal/model"
	"github.com/VectorBits/upgradeguard/internal/oracle"
	"github.com/VectorBits/upgradeguard/internal/report"
	"github.com/VectorBits/upgradeguard/internal/resolver"
)

// Options carries the optional fields of an analysis request.
type Options struct {
	ContractName string
}

// Input is one analysis request.
type Input struct {
	ProxyAddress          model.Address
	OldImplementationPath string
	NewImplementationPath string
	RPCEndpoint           string
	Options               Options
}

// Engine holds the two external collaborators: the artifact oracle and the
// chain adapter. It owns no other state; every Analyze call is
// self-contained.
type Engine struct {
	Oracle oracle.Oracle
	Chain  chain.Adapter
}

func New(o oracle.Oracle, c chain.Adapter) *Engine {
	return &Engine{Oracle: o, Chain: c}
}

var skippedAnalyzers = []model.AnalyzerName{
	model.AnalyzerStorageLayout,
	model.AnalyzerAbiDiff,
	model.AnalyzerUUPSSafety,
	model.AnalyzerTransparentSafety,
	model.AnalyzerInitializer,
	model.AnalyzerAccessControl,
}

// runIDFor derives a stable UUID from the invocation inputs, so that two
// runs over identical inputs render byte-identical reports.
func runIDFor(in Input) string {
	seed := fmt.Sprintf("upgradeguard|%s|%s|%s|%s|%s",
		in.ProxyAddress.Hex(), in.OldImplementationPath, in.NewImplementationPath,
		in.RPCEndpoint, in.Options.ContractName)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
}

// Analyze runs the full pipeline and returns the aggregated EngineResult
// with its rendered report. Typed *model.EngineError values are returned
// for every abort path; analyzer-local failures never surface here — they
// are captured per-analyzer and force an Incomplete verdict instead.
func (e *Engine) Analyze(ctx context.Context, in Input) (model.EngineResult, error) {
	if err := e.Oracle.Probe(ctx); err != nil {
		return model.EngineResult{}, model.NewEngineError(model.ErrToolchainUnavailable, "artifact oracle toolchain is unreachable", err)
	}

	proxyInfo, classifyOutcome := classifier.Classify(ctx, e.Chain, in.ProxyAddress)
	if classifyOutcome.Status == model.StatusErrored {
		return model.EngineResult{}, model.NewEngineError(model.ErrUnexpected, "proxy classification failed", fmt.Errorf("%s", classifyOutcome.Message))
	}

	outcomes := map[model.AnalyzerName]model.AnalyzerOutcome{}

	if proxyInfo == nil {
		// classifyOutcome carries the single blocking PROXY-* finding that
		// vetoes every downstream analyzer.
		outcomes[model.AnalyzerProxyDetection] = classifyOutcome
		for _, name := range skippedAnalyzers {
			outcomes[name] = model.Skipped("proxy-detection-failed")
		}
		return e.finish(in, outcomes, true), nil
	}
	outcomes[model.AnalyzerProxyDetection] = model.Completed(nil)

	res := resolver.New(e.Oracle)
	resolved, err := res.ResolveBoth(ctx, in.OldImplementationPath, in.NewImplementationPath, in.Options.ContractName)
	if err != nil {
		return model.EngineResult{}, err
	}

	var (
		storageOutcome, abiOutcome, initOutcome, aclOutcome, authOutcome model.AnalyzerOutcome
		authName                                                        model.AnalyzerName
	)

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer trap(&storageOutcome)
		storageOutcome = storage.Analyze(resolved.Old.Layout, resolved.New.Layout)
		return nil
	})
	g.Go(func() error {
		defer trap(&abiOutcome)
		abiOutcome = abi.Analyze(resolved.Old.Abi, resolved.New.Abi)
		return nil
	})
	g.Go(func() error {
		defer trap(&initOutcome)
		initOutcome = initcheck.Analyze(resolved.New.Ast)
		return nil
	})
	g.Go(func() error {
		defer trap(&aclOutcome)
		aclOutcome = acl.Analyze(resolved.Old.Ast, resolved.New.Ast)
		return nil
	})
	authName = model.AnalyzerTransparentSafety
	if proxyInfo.Kind == model.UUPS {
		authName = model.AnalyzerUUPSSafety
	}
	g.Go(func() error {
		defer trap(&authOutcome)
		if proxyInfo.Kind == model.UUPS {
			authOutcome = upgradeauth.AnalyzeUUPS(resolved.New.Ast)
		} else {
			authOutcome = upgradeauth.AnalyzeTransparent(*proxyInfo, resolved.New.Abi)
		}
		return nil
	})
	// Wait's error is always nil here: each goroutine recovers its own
	// panic into its outcome variable and returns nil, so no sibling is
	// ever cancelled by another's failure.
	_ = g.Wait()

	outcomes[model.AnalyzerStorageLayout] = storageOutcome
	outcomes[model.AnalyzerAbiDiff] = abiOutcome
	outcomes[model.AnalyzerInitializer] = initOutcome
	outcomes[model.AnalyzerAccessControl] = aclOutcome
	if authName == model.AnalyzerUUPSSafety {
		outcomes[model.AnalyzerUUPSSafety] = authOutcome
		outcomes[model.AnalyzerTransparentSafety] = model.Skipped("proxy-type-is-uups")
	} else {
		outcomes[model.AnalyzerTransparentSafety] = authOutcome
		outcomes[model.AnalyzerUUPSSafety] = model.Skipped("proxy-type-is-transparent")
	}

	return e.finish(in, outcomes, false), nil
}

// finish aggregates the outcomes, stamps the run ID, and renders the
// markdown report.
func (e *Engine) finish(in Input, outcomes map[model.AnalyzerName]model.AnalyzerOutcome, gated bool) model.EngineResult {
	result := aggregator.Aggregate(outcomes, gated)
	result.RunID = runIDFor(in)
	result.ReportMarkdown = report.Render(result, report.Context{
		ProxyAddress: in.ProxyAddress.Hex(),
		OldPath:      in.OldImplementationPath,
		NewPath:      in.NewImplementationPath,
		RPCEndpoint:  in.RPCEndpoint,
		RunID:        result.RunID,
	})
	return result
}

// trap recovers a panicking analyzer goroutine and records it as an
// Errored outcome instead of letting it unwind and cancel its siblings.
func trap(outcome *model.AnalyzerOutcome) {
	if r := recover(); r != nil {
		*outcome = model.Errored(fmt.Sprintf("panic: %v", r))
	}
}
