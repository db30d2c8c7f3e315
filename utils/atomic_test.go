package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.conf")

	if err := AtomicWriteFile(path, []byte("a = 1\n"), 0o600); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("a = 2\n"), 0o600); err != nil {
		t.Fatalf("second write: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "a = 2\n" {
		t.Errorf("content = %q", raw)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %o, want 600", info.Mode().Perm())
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("scratch files left behind: %v", entries)
	}
}

func TestAtomicWriteFile_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "f")
	if err := AtomicWriteFile(path, []byte("x"), 0o600); err == nil {
		t.Fatal("expected error")
	}
}

func TestIsTempFile(t *testing.T) {
	tests := map[string]bool{
		"/etc/cocoond/.tmp-123456":   true,
		".tmp-x":                     true,
		"/etc/cocoond/cocoond.conf":  false,
		"/etc/.tmp-dir/cocoond.conf": false,
	}
	for name, want := range tests {
		if got := IsTempFile(name); got != want {
			t.Errorf("IsTempFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestLookupCopy(t *testing.T) {
	type specs struct{ N int }
	m := map[string]*specs{"a": {N: 1}, "nil": nil}

	got, ok := LookupCopy(m, "a")
	if !ok || got.N != 1 {
		t.Fatalf("LookupCopy(a) = %+v, %v", got, ok)
	}
	got.N = 2
	if m["a"].N != 1 {
		t.Error("LookupCopy returned an alias")
	}
	for _, key := range []string{"nil", "missing"} {
		if got, ok := LookupCopy(m, key); ok || got != (specs{}) {
			t.Errorf("LookupCopy(%q) = %+v, %v", key, got, ok)
		}
	}
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	dirs := []string{filepath.Join(root, "a", "b"), filepath.Join(root, "c")}
	if err := EnsureDirs(0o700, dirs...); err != nil {
		t.Fatal(err)
	}
	var got []bool
	for _, d := range dirs {
		got = append(got, IsDir(d))
	}
	if diff := cmp.Diff([]bool{true, true}, got); diff != "" {
		t.Errorf("IsDir (-want +got):\n%s", diff)
	}
	if FileExists(filepath.Join(root, "missing")) {
		t.Error("FileExists on missing path")
	}
}

func TestAtomicWriteFile_ReplaceFailureCleansUp(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "occupied")
	if err := os.MkdirAll(filepath.Join(target, "child"), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := AtomicWriteFile(target, []byte("x"), 0o600); err == nil {
		t.Fatal("expected error renaming over a non-empty directory")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if diff := cmp.Diff([]string{"occupied"}, names); diff != "" {
		t.Errorf("dir entries (-want +got):\n%s", diff)
	}
}
