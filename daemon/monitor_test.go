package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/projecteru2/cocoond/utils"
)

func TestMonitor_IgnoresUnrelatedChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cocoond.conf")
	if err := os.WriteFile(path, []byte("driver = qemu\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	m, err := NewMonitor(path)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	defer m.Close() //nolint:errcheck

	if err := os.WriteFile(filepath.Join(dir, "other.conf"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, utils.TempPrefix+"123"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path+".lock", nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0o640); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := m.Wait(ctx); err != nil {
		t.Fatalf("Wait = %v, want nil", err)
	}
}

func TestMonitor_DetectsChanges(t *testing.T) {
	tests := []struct {
		name   string
		change func(path string) error
	}{
		{
			name:   "in-place write",
			change: func(path string) error { return os.WriteFile(path, []byte("driver = manual\n"), 0o600) },
		},
		{
			name:   "atomic replace",
			change: func(path string) error { return utils.AtomicWriteFile(path, []byte("driver = qemu\n"), 0o600) },
		},
		{
			name:   "remove",
			change: os.Remove,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cocoond.conf")
			if err := os.WriteFile(path, []byte("driver = qemu\n"), 0o600); err != nil {
				t.Fatal(err)
			}
			m, err := NewMonitor(path)
			if err != nil {
				t.Fatalf("NewMonitor: %v", err)
			}
			defer m.Close() //nolint:errcheck

			if err := tt.change(path); err != nil {
				t.Fatal(err)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.Wait(ctx); !errors.Is(err, ErrSettingsChanged) {
				t.Fatalf("Wait = %v, want ErrSettingsChanged", err)
			}
		})
	}
}

func TestNewMonitor_MissingDir(t *testing.T) {
	if _, err := NewMonitor(filepath.Join(t.TempDir(), "nope", "cocoond.conf")); err == nil {
		t.Fatal("expected error watching a missing directory")
	}
}
