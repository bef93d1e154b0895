// Package foundry is the concrete, process-shelling artifact oracle: it
// drives `forge build` and reads the resulting per-contract JSON artifacts
// back off disk, because a Foundry project is keyed by (project root,
// source file, contract name) exactly the way the oracle interface is.
package foundry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/VectorBits/upgradeguard/internal/logger"
	"github.com/VectorBits/upgradeguard/internal/oracle"
	"golang.org/x/sync/singleflight"
)

// Oracle shells out to `forge` and reads artifacts from a project's out/
// directory. One Oracle instance may serve any number of (project, file,
// contract) requests; it holds no per-request state.
type Oracle struct {
	forgePath string
	group     singleflight.Group
}

// New locates the forge binary on PATH. The binary is resolved once at
// construction so Probe can report ToolchainUnavailable immediately.
func New() *Oracle {
	path, _ := exec.LookPath("forge")
	return &Oracle{forgePath: path}
}

func (o *Oracle) Probe(ctx context.Context) error {
	if o.forgePath == "" {
		return oracle.ErrUnavailable
	}
	cmd := exec.CommandContext(ctx, o.forgePath, "--version")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", oracle.ErrUnavailable, strings.TrimSpace(string(out)))
	}
	return nil
}

func (o *Oracle) Build(ctx context.Context, projectRoot string) error {
	if o.forgePath == "" {
		return oracle.ErrUnavailable
	}
	_, err, _ := o.group.Do("build:"+projectRoot, func() (any, error) {
		cmd := exec.CommandContext(ctx, o.forgePath, "build", "--extra-output", "storageLayout", "--extra-output", "ast")
		cmd.Dir = projectRoot
		out, err := cmd.CombinedOutput()
		if err != nil {
			return nil, fmt.Errorf("forge build failed: %s", strings.TrimSpace(string(out)))
		}
		logger.InfoFileOnly("forge build (%s) output:\n%s", projectRoot, string(out))
		return nil, nil
	})
	return err
}

// artifact is the shape of one Foundry build artifact under out/.
type artifact struct {
	Abi           []abiItemWire      `json:"abi"`
	StorageLayout *storageLayoutWire `json:"storageLayout"`
	Ast           json.RawMessage    `json:"ast"`
}

type abiItemWire struct {
	Type            string         `json:"type"`
	Name            string         `json:"name"`
	Inputs          []abiParamWire `json:"inputs"`
	Outputs         []abiParamWire `json:"outputs"`
	StateMutability string         `json:"stateMutability"`
}

type abiParamWire struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	InternalType string `json:"internalType"`
	Indexed      bool   `json:"indexed"`
}

type storageLayoutWire struct {
	Storage []storageEntryWire         `json:"storage"`
	Types   map[string]storageTypeWire `json:"types"`
}

type storageEntryWire struct {
	Label    string `json:"label"`
	Offset   int    `json:"offset"`
	Slot     string `json:"slot"`
	Type     string `json:"type"`
	Contract string `json:"contract"`
}

type storageTypeWire struct {
	Encoding      string `json:"encoding"`
	Label         string `json:"label"`
	NumberOfBytes string `json:"numberOfBytes"`
}

func (o *Oracle) readArtifact(key oracle.Key) (*artifact, error) {
	v, err, _ := o.group.Do(fmt.Sprintf("artifact:%s:%s:%s", key.ProjectRoot, key.SourceFileRelPath, key.ContractName), func() (any, error) {
		base := filepath.Base(key.SourceFileRelPath)
		path := filepath.Join(key.ProjectRoot, "out", base, key.ContractName+".json")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("artifact missing at %s: %w", path, err)
		}
		var a artifact
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("malformed artifact at %s: %w", path, err)
		}
		return &a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*artifact), nil
}

func (o *Oracle) FetchStorageLayout(ctx context.Context, key oracle.Key) (oracle.RawStorageLayout, error) {
	a, err := o.readArtifact(key)
	if err != nil {
		return oracle.RawStorageLayout{}, err
	}
	if a.StorageLayout == nil {
		return oracle.RawStorageLayout{}, fmt.Errorf("artifact for %s:%s carries no storageLayout (was --extra-output storageLayout enabled?)", key.SourceFileRelPath, key.ContractName)
	}
	out := oracle.RawStorageLayout{Types: map[string]oracle.RawTypeInfo{}}
	for _, e := range a.StorageLayout.Storage {
		out.Entries = append(out.Entries, oracle.RawStorageEntry{
			Label:             e.Label,
			Offset:            e.Offset,
			Slot:              e.Slot,
			TypeID:            e.Type,
			DeclaringContract: e.Contract,
		})
	}
	for id, t := range a.StorageLayout.Types {
		out.Types[id] = oracle.RawTypeInfo{Encoding: t.Encoding, HumanLabel: t.Label, ByteSize: t.NumberOfBytes}
	}
	return out, nil
}

func (o *Oracle) FetchAbi(ctx context.Context, key oracle.Key) ([]oracle.RawAbiItem, error) {
	a, err := o.readArtifact(key)
	if err != nil {
		return nil, err
	}
	out := make([]oracle.RawAbiItem, 0, len(a.Abi))
	for _, item := range a.Abi {
		ri := oracle.RawAbiItem{Type: item.Type, Name: item.Name, StateMutability: item.StateMutability}
		for _, in := range item.Inputs {
			ri.Inputs = append(ri.Inputs, oracle.RawAbiInput{Name: in.Name, Type: in.Type, InternalType: in.InternalType, Indexed: in.Indexed})
		}
		for _, out2 := range item.Outputs {
			ri.Outputs = append(ri.Outputs, oracle.RawAbiInput{Name: out2.Name, Type: out2.Type, InternalType: out2.InternalType})
		}
		out = append(out, ri)
	}
	return out, nil
}

func (o *Oracle) FetchAst(ctx context.Context, key oracle.Key) (*oracle.Node, error) {
	a, err := o.readArtifact(key)
	if err != nil {
		return nil, err
	}
	if len(a.Ast) == 0 {
		return nil, fmt.Errorf("artifact for %s:%s carries no ast (was --extra-output ast enabled?)", key.SourceFileRelPath, key.ContractName)
	}
	var root oracle.Node
	if err := json.Unmarshal(a.Ast, &root); err != nil {
		return nil, fmt.Errorf("malformed ast for %s:%s: %w", key.SourceFileRelPath, key.ContractName, err)
	}
	contractNode := findContract(&root, key.ContractName)
	if contractNode == nil {
		return nil, fmt.Errorf("contract %s not found in ast for %s", key.ContractName, key.SourceFileRelPath)
	}
	return contractNode, nil
}

func findContract(n *oracle.Node, name string) *oracle.Node {
	if n == nil {
		return nil
	}
	if n.NodeType == "ContractDefinition" && n.Name == name {
		return n
	}
	for i := range n.Nodes {
		if found := findContract(&n.Nodes[i], name); found != nil {
			return found
		}
	}
	return nil
}

var _ oracle.Oracle = (*Oracle)(nil)
