package config

import (
	"path/filepath"

	"github.com/projecteru2/cocoond/utils"
)

// EnsureInstanceDirs creates the directory of the instance spec index.
func (c *Config) EnsureInstanceDirs() error {
	return utils.EnsureDirs(dirPerm, c.instancesDir())
}

func (c *Config) instancesDir() string { return filepath.Join(c.RootDir, "instances") }

// SpecIndexFile and SpecIndexLock are the declared-specs store paths.
func (c *Config) SpecIndexFile() string { return filepath.Join(c.instancesDir(), "specs.json") }
func (c *Config) SpecIndexLock() string { return filepath.Join(c.instancesDir(), "specs.lock") }

// DaemonLockFile guards settings and instance changes across processes.
func (c *Config) DaemonLockFile() string { return filepath.Join(c.RootDir, "cocoond.lock") }
