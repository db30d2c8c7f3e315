package flock

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/projecteru2/cocoond/lock"
)

func TestLock_ExcludesOtherHolders(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.lock")
	a, b := New(path), New(path)

	if err := a.Lock(ctx); err != nil {
		t.Fatalf("a.Lock: %v", err)
	}
	if ok, err := a.TryLock(ctx); ok || err != nil {
		t.Errorf("a.TryLock while held = %v, %v", ok, err)
	}
	// b has its own descriptor, so flock(2) excludes it like another process.
	if ok, err := b.TryLock(ctx); ok || err != nil {
		t.Errorf("b.TryLock while a holds = %v, %v", ok, err)
	}

	short, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	if err := b.Lock(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("b.Lock with deadline error = %v, want DeadlineExceeded", err)
	}

	if err := a.Unlock(ctx); err != nil {
		t.Fatalf("a.Unlock: %v", err)
	}
	if ok, err := b.TryLock(ctx); !ok || err != nil {
		t.Fatalf("b.TryLock after release = %v, %v", ok, err)
	}
	if err := b.Unlock(ctx); err != nil {
		t.Fatal(err)
	}
	if err := b.Unlock(ctx); err != nil {
		t.Errorf("second Unlock: %v", err)
	}
}

func TestWithLock(t *testing.T) {
	ctx := context.Background()
	l := New(filepath.Join(t.TempDir(), "x.lock"))
	boom := errors.New("boom")

	err := lock.WithLock(ctx, l, func() error {
		if ok, _ := l.TryLock(ctx); ok {
			t.Error("lock not held inside WithLock")
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithLock error = %v, want boom", err)
	}
	if ok, err := l.TryLock(ctx); !ok || err != nil {
		t.Errorf("lock not released after WithLock: %v, %v", ok, err)
	}
}
