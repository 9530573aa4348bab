package lowering_test

import (
	"os"
	"path/filepath"
	"testing"

	"prism/internal/lowering"
)

func writeTargetFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "target.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write target file: %v", err)
	}
	return path
}

func TestLoadTarget(t *testing.T) {
	path := writeTargetFile(t, `
triple = "aarch64-linux-gnu"
max_direct_words = 2
`)
	got, err := lowering.LoadTarget(path)
	if err != nil {
		t.Fatalf("LoadTarget: %v", err)
	}
	if got.Triple != "aarch64-linux-gnu" {
		t.Fatalf("triple = %q", got.Triple)
	}
	if got.MaxDirectWords != 2 {
		t.Fatalf("max_direct_words = %d", got.MaxDirectWords)
	}
	// Unset knobs keep the default values.
	if got.PtrSize != lowering.X86_64LinuxGNU().PtrSize {
		t.Fatalf("ptr_size = %d, want default", got.PtrSize)
	}
}

func TestLoadTargetErrors(t *testing.T) {
	if _, err := lowering.LoadTarget(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("missing file must fail")
	}
	if _, err := lowering.LoadTarget(writeTargetFile(t, "triple = [")); err == nil {
		t.Fatalf("malformed TOML must fail")
	}
	if _, err := lowering.LoadTarget(writeTargetFile(t, "max_direct_words = 0")); err == nil {
		t.Fatalf("non-positive sizes must fail")
	}
}
