// Package resolver validates the old/new implementation paths, drives the
// artifact oracle for both sides, and produces the normalized, immutable
// Resolved bundle every fan-out analyzer reads from.
package resolver

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/singleflight"

	"github.com/VectorBits/upgradeguard/internal/model"
	"github.com/VectorBits/upgradeguard/internal/oracle"
	"github.com/VectorBits/upgradeguard/internal/solast"
)

// Resolver drives an Oracle to build a Side for each of the two inputs.
// A singleflight group dedupes concurrent Build calls that land on the same
// project root, and concurrent fetch calls that land on the same artifact
// key. ResolveBoth resolves the old side before the new one, so a project
// the two sides share is built once per side.
type Resolver struct {
	oracle oracle.Oracle
	group  singleflight.Group
}

func New(o oracle.Oracle) *Resolver {
	return &Resolver{oracle: o}
}

// ResolveBoth builds the Resolved bundle for one invocation's old and new
// implementation inputs.
func (r *Resolver) ResolveBoth(ctx context.Context, oldPath, newPath, contractNameOverride string) (model.Resolved, error) {
	oldSide, err := r.resolveSide(ctx, oldPath, contractNameOverride)
	if err != nil {
		return model.Resolved{}, fmt.Errorf("resolving old implementation: %w", err)
	}
	newSide, err := r.resolveSide(ctx, newPath, contractNameOverride)
	if err != nil {
		return model.Resolved{}, fmt.Errorf("resolving new implementation: %w", err)
	}
	return model.Resolved{Old: oldSide, New: newSide}, nil
}

// resolveSide validates one path, builds its project, and canonicalizes the
// oracle's three artifacts into a Side.
func (r *Resolver) resolveSide(ctx context.Context, rawPath, contractNameOverride string) (model.Side, error) {
	path, contractName := splitPathContract(rawPath)
	if contractName == "" {
		contractName = contractNameOverride
	}

	resolvedPath, err := resolveSourcePath(path)
	if err != nil {
		return model.Side{}, model.NewEngineError(model.ErrInputInvalid, "invalid implementation path: "+path, err)
	}

	projectRoot := projectRootFor(resolvedPath)
	if _, err, _ := r.group.Do("build:"+projectRoot, func() (any, error) {
		return nil, r.oracle.Build(ctx, projectRoot)
	}); err != nil {
		return model.Side{}, model.NewEngineError(model.ErrToolchainFailure, "building project at "+projectRoot, err)
	}

	relPath, err := filepath.Rel(projectRoot, resolvedPath)
	if err != nil {
		relPath = filepath.Base(resolvedPath)
	}

	if contractName == "" {
		contractName, err = r.detectUniqueContract(projectRoot, relPath)
		if err != nil {
			return model.Side{}, err
		}
	}

	key := oracle.Key{ProjectRoot: projectRoot, SourceFileRelPath: relPath, ContractName: contractName}

	layout, err := r.fetchLayout(ctx, key)
	if err != nil {
		return model.Side{}, model.NewEngineError(model.ErrToolchainFailure, "fetching storage layout for "+contractName, err)
	}
	abi, err := r.fetchAbi(ctx, key)
	if err != nil {
		return model.Side{}, model.NewEngineError(model.ErrToolchainFailure, "fetching abi for "+contractName, err)
	}
	ast, err := r.fetchAst(ctx, key, contractName)
	if err != nil {
		return model.Side{}, model.NewEngineError(model.ErrToolchainFailure, "fetching ast for "+contractName, err)
	}

	return model.Side{
		Path:         resolvedPath,
		ContractName: contractName,
		Layout:       layout,
		Abi:          abi,
		Ast:          ast,
	}, nil
}

func (r *Resolver) fetchLayout(ctx context.Context, key oracle.Key) (model.StorageLayout, error) {
	v, err, _ := r.group.Do("layout:"+key.ProjectRoot+":"+key.SourceFileRelPath+":"+key.ContractName, func() (any, error) {
		return r.oracle.FetchStorageLayout(ctx, key)
	})
	if err != nil {
		return model.StorageLayout{}, err
	}
	return canonicalizeLayout(v.(oracle.RawStorageLayout)), nil
}

func (r *Resolver) fetchAbi(ctx context.Context, key oracle.Key) (model.Abi, error) {
	v, err, _ := r.group.Do("abi:"+key.ProjectRoot+":"+key.SourceFileRelPath+":"+key.ContractName, func() (any, error) {
		return r.oracle.FetchAbi(ctx, key)
	})
	if err != nil {
		return model.Abi{}, err
	}
	return canonicalizeAbi(v.([]oracle.RawAbiItem)), nil
}

func (r *Resolver) fetchAst(ctx context.Context, key oracle.Key, contractName string) (model.ContractAst, error) {
	v, err, _ := r.group.Do("ast:"+key.ProjectRoot+":"+key.SourceFileRelPath+":"+key.ContractName, func() (any, error) {
		return r.oracle.FetchAst(ctx, key)
	})
	if err != nil {
		return model.ContractAst{}, err
	}
	return solast.Project(contractName, v.(*oracle.Node)), nil
}

// splitPathContract splits the "path:ContractName" convention: a path
// suffix is a convenient per-side override for multi-contract files when
// the global contract-name option would be ambiguous.
func splitPathContract(raw string) (path, contract string) {
	idx := strings.LastIndex(raw, ":")
	if idx <= 0 {
		return raw, ""
	}
	// Guard against Windows drive letters ("C:\...") by requiring the
	// suffix to look like an identifier, not a path separator.
	suffix := raw[idx+1:]
	if suffix == "" || strings.ContainsAny(suffix, `/\`) {
		return raw, ""
	}
	return raw[:idx], suffix
}

// resolveSourcePath validates that path names exactly one Solidity source
// file, globbing when it names a directory.
func resolveSourcePath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return path, nil
	}
	matches, err := doublestar.Glob(os.DirFS(path), "**/*.sol")
	if err != nil {
		return "", fmt.Errorf("globbing %s for .sol sources: %w", path, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no .sol sources found under %s", path)
	}
	if len(matches) > 1 {
		sort.Strings(matches)
		return "", fmt.Errorf("%d .sol sources found under %s (%s, ...); specify a file directly", len(matches), path, matches[0])
	}
	return filepath.Join(path, matches[0]), nil
}

// projectRootFor walks up from the source file looking for foundry.toml,
// falling back to the file's own directory when none is found.
func projectRootFor(path string) string {
	dir := filepath.Dir(path)
	for {
		if _, err := os.Stat(filepath.Join(dir, "foundry.toml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return filepath.Dir(path)
		}
		dir = parent
	}
}

// detectUniqueContract inspects the built Foundry artifact directory for
// the source file and returns the sole contract name found there, or a
// ContractAmbiguous error when more than one candidate exists.
func (r *Resolver) detectUniqueContract(projectRoot, relPath string) (string, error) {
	dir := filepath.Join(projectRoot, "out", filepath.Base(relPath))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", model.NewEngineError(model.ErrToolchainFailure, "reading build artifacts at "+dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, strings.TrimSuffix(e.Name(), ".json"))
		}
	}
	if len(names) == 0 {
		return "", model.NewEngineError(model.ErrToolchainFailure, "no build artifacts found at "+dir, nil)
	}
	if len(names) > 1 {
		sort.Strings(names)
		return "", model.NewEngineError(model.ErrContractAmbiguous, fmt.Sprintf("%s declares multiple contracts (%s); pass options.contract_name", relPath, strings.Join(names, ", ")), nil)
	}
	return names[0], nil
}

// canonicalAliases maps Solidity type aliases to their canonical spelling.
var canonicalAliases = map[string]string{
	"uint":   "uint256",
	"int":    "int256",
	"ufixed": "ufixed128x18",
	"fixed":  "fixed128x18",
}

func canonicalizeType(humanLabel string) string {
	if alias, ok := canonicalAliases[humanLabel]; ok {
		return alias
	}
	return humanLabel
}

func canonicalizeLayout(raw oracle.RawStorageLayout) model.StorageLayout {
	out := model.StorageLayout{}
	for i, e := range raw.Entries {
		slot := new(big.Int)
		slotStr := strings.TrimPrefix(e.Slot, "0x")
		if slotStr == "" {
			slotStr = "0"
		}
		base := 10
		if strings.HasPrefix(e.Slot, "0x") {
			base = 16
		}
		slot.SetString(slotStr, base)

		length := uint8(32)
		if t, ok := raw.Types[e.TypeID]; ok {
			if n, err := strconv.Atoi(strings.TrimSpace(t.ByteSize)); err == nil && n > 0 && n <= 32 {
				length = uint8(n)
			}
		}
		canonicalType := e.TypeID
		if t, ok := raw.Types[e.TypeID]; ok {
			canonicalType = canonicalizeType(t.HumanLabel)
		}

		out.Entries = append(out.Entries, model.StorageEntry{
			Slot:           slot.Uint64(),
			Offset:         uint8(e.Offset),
			LengthBytes:    length,
			CanonicalType:  canonicalType,
			Label:          e.Label,
			Origin:         e.DeclaringContract,
			DeclarationIdx: uint32(i),
		})
	}
	return out
}

func mutabilityOf(raw string) model.Mutability {
	switch raw {
	case "pure":
		return model.Pure
	case "view":
		return model.View
	case "payable":
		return model.Payable
	default:
		return model.Nonpayable
	}
}

func canonicalizeAbi(items []oracle.RawAbiItem) model.Abi {
	out := model.Abi{}
	for _, item := range items {
		switch item.Type {
		case "function":
			inputTypes := typeStrings(item.Inputs)
			outputTypes := typeStrings(item.Outputs)
			out.Functions = append(out.Functions, model.FunctionSig{
				Selector:   oracle.SelectorOf(item.Name, inputTypes),
				Name:       item.Name,
				Inputs:     inputTypes,
				Outputs:    outputTypes,
				Mutability: mutabilityOf(item.StateMutability),
			})
		case "event":
			inputTypes := typeStrings(item.Inputs)
			var inputs []model.EventInput
			for _, in := range item.Inputs {
				inputs = append(inputs, model.EventInput{Type: in.Type, Indexed: in.Indexed})
			}
			out.Events = append(out.Events, model.EventSig{
				Topic0: oracle.Topic0Of(item.Name, inputTypes),
				Name:   item.Name,
				Inputs: inputs,
			})
		}
	}
	return out
}

func typeStrings(params []oracle.RawAbiInput) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.Type
	}
	return out
}
