// Package permissions enforces ownership and access-mode invariants on a
// path and, for directories, everything below it.
//
// Operations are fail-fast: the first failing primitive aborts the call and
// entries already changed are left as they are.
package permissions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/projecteru2/core/log"
)

// RestrictedMode is owner read/write only.
const RestrictedMode fs.FileMode = 0o600

// ErrPermission matches every error returned by Utils.
var ErrPermission = errors.New("permission operation failed")

// Failure reasons carried by Error.
const (
	ReasonNotExist       = "path does not exist"
	ReasonSetPermissions = "cannot set permissions on"
	ReasonSetOwner       = "cannot set owner of"
	ReasonIterate        = "cannot iterate over"
)

// Error reports the path a primitive failed on and why.
type Error struct {
	Path   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Reason == ReasonNotExist {
		return fmt.Sprintf("%s: %s", e.Path, e.Reason)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s %s", e.Reason, e.Path)
	}
	return fmt.Sprintf("%s %s: %v", e.Reason, e.Path, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPermission}
	}
	return []error{ErrPermission, e.Err}
}

// Platform performs the single-path primitives.
type Platform interface {
	SetPermissions(path string, mode fs.FileMode) error
	// TakeOwnership transfers path to the effective user, and to its group
	// when includeGroup is set.
	TakeOwnership(path string, includeGroup bool) error
}

// FileOps inspects the filesystem.
type FileOps interface {
	Exists(path string) bool
	IsDir(path string) bool
	// Descendants lists every entry below path, each exactly once.
	Descendants(path string) ([]string, error)
}

// Utils is the hardening engine. It is constructed once and passed to the
// components that protect files.
type Utils struct {
	platform Platform
	files    FileOps
}

// New creates a Utils over platform and files.
func New(platform Platform, files FileOps) *Utils {
	return &Utils{platform: platform, files: files}
}

// SetPermissions applies mode to path and, if it is a directory, to every
// entry below it.
func (u *Utils) SetPermissions(_ context.Context, path string, mode fs.FileMode) error {
	return u.apply(path, ReasonSetPermissions, func(p string) error {
		return u.platform.SetPermissions(p, mode)
	})
}

// TakeOwnership transfers path, and every entry below a directory, to the
// effective user (and group when includeGroup is set).
func (u *Utils) TakeOwnership(_ context.Context, path string, includeGroup bool) error {
	return u.apply(path, ReasonSetOwner, func(p string) error {
		return u.platform.TakeOwnership(p, includeGroup)
	})
}

// RestrictPermissions makes the daemon the sole owner of the tree at path,
// then restricts it to RestrictedMode. Ownership is always settled first.
func (u *Utils) RestrictPermissions(ctx context.Context, path string) error {
	if err := u.TakeOwnership(ctx, path, true); err != nil {
		return err
	}
	if err := u.SetPermissions(ctx, path, RestrictedMode); err != nil {
		return err
	}
	log.WithFunc("permissions.RestrictPermissions").Infof(ctx, "restricted %s to owner (%v)", path, RestrictedMode)
	return nil
}

// apply runs fn on path itself before listing descendants, so a broken
// listing surfaces after the top-level change has been made.
func (u *Utils) apply(path, reason string, fn func(string) error) error {
	if !u.files.Exists(path) {
		return &Error{Path: path, Reason: ReasonNotExist}
	}
	if err := fn(path); err != nil {
		return &Error{Path: path, Reason: reason, Err: err}
	}
	if !u.files.IsDir(path) {
		return nil
	}
	entries, err := u.files.Descendants(path)
	if err != nil {
		return &Error{Path: path, Reason: ReasonIterate, Err: err}
	}
	for _, entry := range entries {
		if err := fn(entry); err != nil {
			return &Error{Path: entry, Reason: reason, Err: err}
		}
	}
	return nil
}
