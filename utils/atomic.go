package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// TempPrefix prefixes the scratch files created by AtomicWriteFile.
const TempPrefix = ".tmp-"

// IsTempFile reports whether name is an AtomicWriteFile scratch file.
func IsTempFile(name string) bool {
	return strings.HasPrefix(filepath.Base(name), TempPrefix)
}

// AtomicWriteFile replaces path with data. Readers see the old content or
// the new one, never a mix: data lands in a synced scratch file next to
// path, which is then renamed over it.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	scratch, err := writeScratch(dir, data, perm)
	if err != nil {
		return err
	}
	if err := os.Rename(scratch, path); err != nil {
		return errors.Join(fmt.Errorf("replace %s: %w", path, err), os.Remove(scratch))
	}
	if err := syncDir(dir); err != nil {
		return fmt.Errorf("sync %s: %w", dir, err)
	}
	return nil
}

// writeScratch stores data with mode perm in a new file under dir and
// returns its path. Nothing is left behind on failure.
func writeScratch(dir string, data []byte, perm os.FileMode) (string, error) {
	f, err := os.CreateTemp(dir, TempPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("scratch file in %s: %w", dir, err)
	}
	name := f.Name()
	werr := fill(f, data, perm)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("write %s: %w", name, werr)
	}
	return name, nil
}

func fill(f *os.File, data []byte, perm os.FileMode) error {
	if err := f.Chmod(perm); err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// AtomicWriteJSON writes v as indented, newline-terminated JSON, owner-only.
func AtomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return AtomicWriteFile(path, append(data, '\n'), 0o600)
}

// syncDir makes a rename inside dir durable. Filesystems that cannot fsync
// a directory are tolerated.
func syncDir(dir string) error {
	d, err := os.Open(dir) //nolint:gosec // parent of a daemon-managed file
	if err != nil {
		return err
	}
	err = d.Sync()
	_ = d.Close()
	for _, ignored := range []error{syscall.EINVAL, syscall.ENOTSUP, syscall.EBADF} {
		if errors.Is(err, ignored) {
			return nil
		}
	}
	return err
}
