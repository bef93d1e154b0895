package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/VectorBits/upgradeguard/internal/oracle"
)

func TestSplitPathContract(t *testing.T) {
	cases := []struct {
		raw          string
		wantPath     string
		wantContract string
	}{
		{"contracts/Vault.sol", "contracts/Vault.sol", ""},
		{"contracts/Vault.sol:VaultV2", "contracts/Vault.sol", "VaultV2"},
		{"C:\\src\\Vault.sol", "C:\\src\\Vault.sol", ""},
		{":Vault", ":Vault", ""},
	}
	for _, tc := range cases {
		path, contract := splitPathContract(tc.raw)
		if path != tc.wantPath || contract != tc.wantContract {
			t.Errorf("splitPathContract(%q) = (%q, %q), want (%q, %q)", tc.raw, path, contract, tc.wantPath, tc.wantContract)
		}
	}
}

func TestResolveSourcePathSingleFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Vault.sol")
	if err := os.WriteFile(file, []byte("contract Vault {}"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := resolveSourcePath(file)
	if err != nil || got != file {
		t.Fatalf("resolveSourcePath(file) = %q, %v", got, err)
	}

	got, err = resolveSourcePath(dir)
	if err != nil || got != file {
		t.Fatalf("resolveSourcePath(dir) = %q, %v", got, err)
	}
}

func TestResolveSourcePathAmbiguousDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"A.sol", "B.sol"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("contract X {}"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := resolveSourcePath(dir); err == nil {
		t.Fatal("two candidate sources must be an error")
	}
}

func TestResolveSourcePathMissing(t *testing.T) {
	if _, err := resolveSourcePath(filepath.Join(t.TempDir(), "nope.sol")); err == nil {
		t.Fatal("missing path must be an error")
	}
}

func TestProjectRootForFindsFoundryToml(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "foundry.toml"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(root, "src", "vaults")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(src, "Vault.sol")
	if err := os.WriteFile(file, []byte("contract Vault {}"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := projectRootFor(file); got != root {
		t.Fatalf("projectRootFor = %q, want %q", got, root)
	}
}

func TestProjectRootForFallsBackToFileDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Vault.sol")
	if err := os.WriteFile(file, []byte("contract Vault {}"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := projectRootFor(file); got != dir {
		t.Fatalf("projectRootFor = %q, want %q", got, dir)
	}
}

func TestCanonicalizeType(t *testing.T) {
	cases := map[string]string{
		"uint":    "uint256",
		"int":     "int256",
		"uint256": "uint256",
		"address": "address",
	}
	for in, want := range cases {
		if got := canonicalizeType(in); got != want {
			t.Errorf("canonicalizeType(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestCanonicalizeLayout(t *testing.T) {
	raw := oracle.RawStorageLayout{
		Entries: []oracle.RawStorageEntry{
			{Label: "value", Offset: 0, Slot: "0", TypeID: "t_uint256", DeclaringContract: "src/Vault.sol:Vault"},
			{Label: "owner", Offset: 0, Slot: "0x1", TypeID: "t_address", DeclaringContract: "src/Vault.sol:Vault"},
		},
		Types: map[string]oracle.RawTypeInfo{
			"t_uint256": {Encoding: "inplace", HumanLabel: "uint256", ByteSize: "32"},
			"t_address": {Encoding: "inplace", HumanLabel: "address", ByteSize: "20"},
		},
	}
	layout := canonicalizeLayout(raw)
	if len(layout.Entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(layout.Entries))
	}
	first := layout.Entries[0]
	if first.Slot != 0 || first.LengthBytes != 32 || first.CanonicalType != "uint256" || first.Label != "value" {
		t.Fatalf("first entry = %+v", first)
	}
	second := layout.Entries[1]
	if second.Slot != 1 || second.LengthBytes != 20 || second.CanonicalType != "address" {
		t.Fatalf("second entry = %+v", second)
	}
	if second.DeclarationIdx != 1 {
		t.Fatalf("declaration index = %d, want 1", second.DeclarationIdx)
	}
}

func TestCanonicalizeAbi(t *testing.T) {
	items := []oracle.RawAbiItem{
		{
			Type: "function",
			Name: "balanceOf",
			Inputs: []oracle.RawAbiInput{
				{Name: "account", Type: "address"},
			},
			Outputs:         []oracle.RawAbiInput{{Type: "uint256"}},
			StateMutability: "view",
		},
		{
			Type: "event",
			Name: "Transfer",
			Inputs: []oracle.RawAbiInput{
				{Type: "address", Indexed: true},
				{Type: "address", Indexed: true},
				{Type: "uint256"},
			},
		},
		{Type: "constructor"},
	}
	abi := canonicalizeAbi(items)
	if len(abi.Functions) != 1 || len(abi.Events) != 1 {
		t.Fatalf("abi = %+v", abi)
	}
	fn := abi.Functions[0]
	want := oracle.SelectorOf("balanceOf", []string{"address"})
	if fn.Selector != want {
		t.Fatalf("selector = %x, want %x", fn.Selector, want)
	}
	if fn.Mutability != "view" {
		t.Fatalf("mutability = %s, want view", fn.Mutability)
	}
	ev := abi.Events[0]
	if ev.Topic0 != oracle.Topic0Of("Transfer", []string{"address", "address", "uint256"}) {
		t.Fatalf("topic0 = %x", ev.Topic0)
	}
	if !ev.Inputs[0].Indexed || ev.Inputs[2].Indexed {
		t.Fatalf("indexed flags = %+v", ev.Inputs)
	}
}
