// Package model holds the value types shared by every analysis component:
// fingerprint types (Address, SlotKey and TopicHash backed by go-ethereum's
// fixed-width arrays, Selector a plain 4-byte array), the
// normalized storage/ABI/AST views, and the finding/outcome/result sum types
// that the aggregator collapses into a verdict.
package model

import (
	"github.com/ethereum/go-ethereum/common"
)

// Address is a 20-byte chain identifier. The zero value is the sentinel
// zero-address.
type Address = common.Address

// SlotKey is a 32-byte storage slot identifier.
type SlotKey = common.Hash

// Selector is the 4-byte prefix of Keccak-256 over a canonical function
// signature.
type Selector [4]byte

// TopicHash is the full 32-byte Keccak-256 of a canonical event signature.
type TopicHash = common.Hash

func (s Selector) String() string {
	const hex = "0123456789abcdef"
	out := make([]byte, 2+len(s)*2)
	out[0], out[1] = '0', 'x'
	for i, b := range s {
		out[2+i*2] = hex[b>>4]
		out[3+i*2] = hex[b&0x0f]
	}
	return string(out)
}

// ProxyKind names one of the two supported proxy patterns.
type ProxyKind string

const (
	Transparent ProxyKind = "transparent"
	UUPS        ProxyKind = "uups"
)

// ProxyInfo is produced by the proxy classifier and is immutable thereafter.
// Admin is populated only when Kind == Transparent.
type ProxyInfo struct {
	Kind           ProxyKind
	Proxy          Address
	Implementation Address
	Admin          *Address
}

// StorageEntry is one canonicalized slot assignment.
type StorageEntry struct {
	Slot           uint64
	Offset         uint8
	LengthBytes    uint8
	CanonicalType  string
	Label          string
	Origin         string
	DeclarationIdx uint32
}

// StorageLayout is an ordered sequence of StorageEntry, ordered by
// declaration (inheritance-linearized ancestors first).
type StorageLayout struct {
	Entries []StorageEntry
}

// Mutability mirrors Solidity's four state-mutability classes.
type Mutability string

const (
	Pure       Mutability = "pure"
	View       Mutability = "view"
	Nonpayable Mutability = "nonpayable"
	Payable    Mutability = "payable"
)

// FunctionSig is one entry of an Abi's function list.
type FunctionSig struct {
	Selector   Selector
	Name       string
	Inputs     []string
	Outputs    []string
	Mutability Mutability
}

// EventInput is one parameter of an EventSig.
type EventInput struct {
	Type    string
	Indexed bool
}

// EventSig is one entry of an Abi's event list.
type EventSig struct {
	Topic0 TopicHash
	Name   string
	Inputs []EventInput
}

// Abi is the normalized interface of a contract.
type Abi struct {
	Functions []FunctionSig
	Events    []EventSig
}

// FuncKind names the four Solidity function-definition kinds relevant to
// upgrade-safety analysis.
type FuncKind string

const (
	KindRegular     FuncKind = "regular"
	KindConstructor FuncKind = "constructor"
	KindFallback    FuncKind = "fallback"
	KindReceive     FuncKind = "receive"
)

// Visibility mirrors Solidity's four visibility levels.
type Visibility string

const (
	Public   Visibility = "public"
	External Visibility = "external"
	Internal Visibility = "internal"
	Private  Visibility = "private"
)

// FunctionDecl is the AST projection of one function definition, extracted
// once by the solast package and consumed by the upgrade-auth, initializer,
// and access-control analyzers without any further tree walking.
type FunctionDecl struct {
	Name                     string
	Kind                     FuncKind
	Visibility               Visibility
	Modifiers                []string
	HasBody                  bool
	BodyEmpty                bool
	BodyReferencesSender     bool
	BodyHasStorageAssignment bool
	BodyCalls                map[string]struct{}
}

// ContractAst is the flattened set of function declarations for one
// contract.
type ContractAst struct {
	Name      string
	Functions []FunctionDecl
}

// Side is one half of a Resolved bundle: everything the resolver gathered
// about a single implementation contract.
type Side struct {
	Path         string
	ContractName string
	Layout       StorageLayout
	Abi          Abi
	Ast          ContractAst
}

// Resolved is the immutable bundle the resolver builds and every analyzer
// in the fan-out receives read-only.
type Resolved struct {
	Old Side
	New Side
}

// Severity is the finding severity ladder, ordered Critical > High > Medium
// > Low.
type Severity string

const (
	Critical Severity = "Critical"
	High     Severity = "High"
	Medium   Severity = "Medium"
	Low      Severity = "Low"
)

// severityRank gives the ordinal used for comparisons; higher is worse.
var severityRank = map[Severity]int{
	Low:      1,
	Medium:   2,
	High:     3,
	Critical: 4,
}

// MoreSevere reports whether a is strictly worse than b.
func MoreSevere(a, b Severity) bool {
	return severityRank[a] > severityRank[b]
}

// Confidence qualifies how certain an analyzer is about a finding.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
)

// Location pins a finding to a contract/function/slot/offset, whichever
// apply.
type Location struct {
	Contract string  `json:"contract,omitempty"`
	Function string  `json:"function,omitempty"`
	Slot     *uint64 `json:"slot,omitempty"`
	Offset   *uint8  `json:"offset,omitempty"`
}

// Finding is one machine-emitted conclusion about a specific risk.
type Finding struct {
	Code        string
	Severity    Severity
	Confidence  Confidence
	Title       string
	Description string
	Details     map[string]any
	Location    *Location
	Remediation string
}

// OutcomeStatus tags which of the three AnalyzerOutcome variants is active.
type OutcomeStatus string

const (
	StatusCompleted OutcomeStatus = "completed"
	StatusSkipped   OutcomeStatus = "skipped"
	StatusErrored   OutcomeStatus = "errored"
)

// AnalyzerOutcome is the tagged three-way split that is the linchpin of
// verdict computation: Completed carries findings, Skipped carries a reason
// the analyzer intentionally did not run, Errored carries a failure message.
// The three must never be conflated.
type AnalyzerOutcome struct {
	Status   OutcomeStatus
	Findings []Finding
	Reason   string
	Message  string
}

func Completed(findings []Finding) AnalyzerOutcome {
	if findings == nil {
		findings = []Finding{}
	}
	return AnalyzerOutcome{Status: StatusCompleted, Findings: findings}
}

func Skipped(reason string) AnalyzerOutcome {
	return AnalyzerOutcome{Status: StatusSkipped, Reason: reason}
}

func Errored(message string) AnalyzerOutcome {
	return AnalyzerOutcome{Status: StatusErrored, Message: message}
}

// AnalyzerName identifies one of the seven named analyzer slots the
// aggregator keys its input map by.
type AnalyzerName string

const (
	AnalyzerProxyDetection    AnalyzerName = "proxy-detection"
	AnalyzerStorageLayout     AnalyzerName = "storage-layout"
	AnalyzerAbiDiff           AnalyzerName = "abi-diff"
	AnalyzerUUPSSafety        AnalyzerName = "uups-safety"
	AnalyzerTransparentSafety AnalyzerName = "transparent-safety"
	AnalyzerInitializer       AnalyzerName = "initializer-integrity"
	AnalyzerAccessControl     AnalyzerName = "access-control-regression"
)

// AnalyzerOrder is the fixed analyzer-name ordering the aggregator sorts by.
var AnalyzerOrder = []AnalyzerName{
	AnalyzerProxyDetection,
	AnalyzerStorageLayout,
	AnalyzerAbiDiff,
	AnalyzerUUPSSafety,
	AnalyzerTransparentSafety,
	AnalyzerInitializer,
	AnalyzerAccessControl,
}

// Verdict is the aggregate judgement.
type Verdict string

const (
	Safe           Verdict = "Safe"
	Unsafe         Verdict = "Unsafe"
	ReviewRequired Verdict = "ReviewRequired"
	Incomplete     Verdict = "Incomplete"
)

// EngineResult is the single output value of one analysis invocation.
type EngineResult struct {
	Verdict         Verdict
	HighestSeverity *Severity
	Findings        []Finding
	AnalyzerStatus  map[AnalyzerName]OutcomeStatus
	ReportMarkdown  string
	RunID           string
}
