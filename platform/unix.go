//go:build linux || darwin

package platform

import (
	"fmt"
	"io/fs"
	"slices"

	"golang.org/x/sys/unix"

	"github.com/projecteru2/cocoond/settings"
)

var _ Platform = (*Unix)(nil)

// Unix is the Platform of Linux and macOS hosts.
type Unix struct{}

// New returns the host Platform.
func New() *Unix { return &Unix{} }

func (*Unix) DaemonConfigHome() string      { return daemonConfigHome }
func (*Unix) DefaultDriver() string         { return supportedDrivers[0] }
func (*Unix) DefaultPrivilegedMounts() bool { return true }

func (*Unix) IsBackendSupported(driver string) bool {
	return slices.Contains(supportedDrivers, driver)
}

func (*Unix) ExtraDaemonSettings() []settings.Spec { return nil }

// SetPermissions chmods path. Symbolic links carry no mode of their own and
// are left alone rather than followed.
func (*Unix) SetPermissions(path string, mode fs.FileMode) error {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return fmt.Errorf("lstat: %w", err)
	}
	if st.Mode&unix.S_IFMT == unix.S_IFLNK {
		return nil
	}
	return unix.Chmod(path, uint32(mode.Perm()))
}

// TakeOwnership lchowns path to the effective user, and group if asked.
func (*Unix) TakeOwnership(path string, includeGroup bool) error {
	gid := -1
	if includeGroup {
		gid = unix.Getegid()
	}
	return unix.Lchown(path, unix.Geteuid(), gid)
}
