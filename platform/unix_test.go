//go:build linux || darwin

package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestUnix_Drivers(t *testing.T) {
	p := New()
	if !p.IsBackendSupported(p.DefaultDriver()) {
		t.Errorf("default driver %q unsupported", p.DefaultDriver())
	}
	if p.IsBackendSupported("bogus") {
		t.Error("bogus driver supported")
	}
	if p.DaemonConfigHome() == "" {
		t.Error("empty config home")
	}
}

func TestUnix_SetPermissions(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "l")
	if err := os.Symlink(file, link); err != nil {
		t.Fatal(err)
	}

	p := New()
	if err := p.SetPermissions(link, 0o600); err != nil {
		t.Fatalf("SetPermissions(link): %v", err)
	}
	if info, _ := os.Stat(file); info.Mode().Perm() != 0o644 {
		t.Errorf("symlink target changed to %o", info.Mode().Perm())
	}

	if err := p.SetPermissions(file, 0o600); err != nil {
		t.Fatalf("SetPermissions(file): %v", err)
	}
	if info, _ := os.Stat(file); info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %o, want 600", info.Mode().Perm())
	}

	if err := p.SetPermissions(filepath.Join(dir, "missing"), 0o600); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestUnix_TakeOwnershipOfOwnFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	p := New()
	for _, group := range []bool{false, true} {
		if err := p.TakeOwnership(file, group); err != nil {
			t.Errorf("TakeOwnership(group=%v): %v", group, err)
		}
	}
}
