package flock

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"

	"github.com/projecteru2/cocoond/lock"
)

const retryDelay = 50 * time.Millisecond

var _ lock.Locker = (*Lock)(nil)

// Lock serialises access to a file-backed resource.
//
// A size-1 channel excludes goroutines of this process; flock(2) on a
// sidecar lock file excludes other processes (e.g. an operator tool editing
// the same settings file). A fresh flock fd is opened per acquisition.
type Lock struct {
	path  string
	token chan struct{}
	held  *flock.Flock
}

// New creates a Lock backed by the lock file at path.
func New(path string) *Lock {
	return &Lock{path: path, token: make(chan struct{}, 1)}
}

// Lock blocks until the lock is acquired or ctx is done.
func (l *Lock) Lock(ctx context.Context) error {
	select {
	case l.token <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("acquire lock %s: %w", l.path, ctx.Err())
	}
	fl := flock.New(l.path)
	ok, err := fl.TryLockContext(ctx, retryDelay)
	if err != nil || !ok {
		<-l.token
		if err == nil {
			err = ctx.Err()
		}
		return fmt.Errorf("acquire flock %s: %w", l.path, err)
	}
	l.held = fl
	return nil
}

// TryLock acquires the lock without blocking. (false, nil) means busy.
func (l *Lock) TryLock(_ context.Context) (bool, error) {
	select {
	case l.token <- struct{}{}:
	default:
		return false, nil
	}
	fl := flock.New(l.path)
	ok, err := fl.TryLock()
	if err != nil || !ok {
		<-l.token
		if err != nil {
			return false, fmt.Errorf("try flock %s: %w", l.path, err)
		}
		return false, nil
	}
	l.held = fl
	return true, nil
}

// Unlock releases the lock. Unlocking an unheld Lock is a no-op.
func (l *Lock) Unlock(_ context.Context) error {
	var err error
	if l.held != nil {
		err = l.held.Unlock()
		l.held = nil
	}
	select {
	case <-l.token:
	default:
	}
	if err != nil {
		return fmt.Errorf("release flock %s: %w", l.path, err)
	}
	return nil
}
