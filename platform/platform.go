package platform

import (
	"io/fs"

	"github.com/projecteru2/cocoond/settings"
)

// Platform is everything the daemon needs to know about the host it runs on.
type Platform interface {
	// DaemonConfigHome is the fixed directory of the daemon's settings file.
	DaemonConfigHome() string
	DefaultDriver() string
	IsBackendSupported(driver string) bool
	DefaultPrivilegedMounts() bool
	// ExtraDaemonSettings are merged into the global settings before the
	// built-in ones, which win on key collision.
	ExtraDaemonSettings() []settings.Spec

	SetPermissions(path string, mode fs.FileMode) error
	TakeOwnership(path string, includeGroup bool) error
}
