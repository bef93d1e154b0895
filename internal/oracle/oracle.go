// Package oracle defines the artifact-oracle boundary: the narrow
// interface the engine uses to ask an external Solidity toolchain for a
// storage layout, ABI, and AST for one named contract. The engine never
// invokes a compiler itself; it only consumes this interface.
package oracle

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// Key identifies one (project, file, contract) artifact request.
type Key struct {
	ProjectRoot       string
	SourceFileRelPath string
	ContractName      string
}

// RawStorageEntry is the oracle's wire shape for one storage-layout entry,
// before canonicalization.
type RawStorageEntry struct {
	Label             string
	Offset            int
	Slot              string // hex-string
	TypeID            string
	DeclaringContract string // "path:Name"
}

// RawTypeInfo is one entry of the oracle's type dictionary.
type RawTypeInfo struct {
	Encoding   string
	HumanLabel string
	ByteSize   string // digits-string
}

// RawStorageLayout is the oracle's wire shape for fetch_storage_layout.
type RawStorageLayout struct {
	Entries []RawStorageEntry
	Types   map[string]RawTypeInfo
}

// RawAbiInput is one parameter of a RawAbiItem.
type RawAbiInput struct {
	Name         string
	Type         string
	InternalType string
	Indexed      bool
}

// RawAbiItem is the oracle's wire shape for one ABI entry.
type RawAbiItem struct {
	Type            string // function|event|constructor|fallback|receive|error
	Name            string
	Inputs          []RawAbiInput
	Outputs         []RawAbiInput
	StateMutability string
}

// Node is the oracle's raw AST node shape: the minimum the core needs from
// a compact solc/Foundry AST dump. Every node carries a NodeType tag;
// function-definition nodes additionally carry Name/Kind/Visibility/
// Modifiers/Body; modifier invocations nest a Name node; assignment nodes
// are tagged "Assignment".
type Node struct {
	NodeType        string
	Name            string
	Kind            string
	Visibility      string
	StateMutability string
	Modifiers       []ModifierInvocation
	Body            *Node
	Statements      []Node
	Expression      *Node
	Arguments       []Node
	Nodes           []Node
	LeftHandSide    *Node
}

// ModifierInvocation mirrors solc's `modifiers: [{modifierName: {name}}]`
// shape.
type ModifierInvocation struct {
	ModifierName struct {
		Name string
	}
}

// Oracle is the artifact-oracle boundary. All methods are keyed by Key and
// are synchronous from the caller's perspective: they either return a
// value or an error, with no further suspension visible to the core.
type Oracle interface {
	// Probe checks that the external toolchain is reachable at all.
	Probe(ctx context.Context) error
	// Build compiles the project so storage-layout/ABI/AST reads succeed.
	Build(ctx context.Context, projectRoot string) error
	FetchStorageLayout(ctx context.Context, key Key) (RawStorageLayout, error)
	FetchAbi(ctx context.Context, key Key) ([]RawAbiItem, error)
	FetchAst(ctx context.Context, key Key) (*Node, error)
}

// CanonicalFunctionSignature builds the "name(type1,type2,...)" string a
// selector/topic0 is hashed over.
func CanonicalFunctionSignature(name string, inputTypes []string) string {
	sig := name + "("
	for i, t := range inputTypes {
		if i > 0 {
			sig += ","
		}
		sig += t
	}
	sig += ")"
	return sig
}

// Keccak256 hashes data the way the chain and its tooling do: Keccak-256,
// not the NIST SHA3-256 variant.
func Keccak256(data []byte) [32]byte {
	var out [32]byte
	copy(out[:], crypto.Keccak256(data))
	return out
}

// SelectorOf derives the 4-byte selector of a canonical function signature.
func SelectorOf(name string, inputTypes []string) [4]byte {
	hash := Keccak256([]byte(CanonicalFunctionSignature(name, inputTypes)))
	var sel [4]byte
	copy(sel[:], hash[:4])
	return sel
}

// Topic0Of derives the full 32-byte topic0 of a canonical event signature.
func Topic0Of(name string, inputTypes []string) [32]byte {
	return Keccak256([]byte(CanonicalFunctionSignature(name, inputTypes)))
}

// ErrUnavailable is returned by Probe when the toolchain cannot be reached.
var ErrUnavailable = fmt.Errorf("artifact oracle toolchain unavailable")
