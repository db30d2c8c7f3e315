package config

import (
	"path/filepath"

	"github.com/projecteru2/cocoond/utils"
)

const dirPerm = 0o750

// EnsureLocalDirs creates the directories of the local VM backend.
func (c *Config) EnsureLocalDirs() error {
	return utils.EnsureDirs(dirPerm, c.localDBDir(), c.localRunDir())
}

func (c *Config) localDir() string    { return filepath.Join(c.RootDir, "local") }
func (c *Config) localDBDir() string  { return filepath.Join(c.localDir(), "db") }
func (c *Config) localRunDir() string { return filepath.Join(c.RunDir, "local") }

// VMIndexFile and VMIndexLock are the VM runtime index store paths.
func (c *Config) VMIndexFile() string { return filepath.Join(c.localDBDir(), "vms.json") }
func (c *Config) VMIndexLock() string { return filepath.Join(c.localDBDir(), "vms.lock") }

// VMPIDFile is where the VMM of vmID records its PID while running.
func (c *Config) VMPIDFile(vmID string) string {
	return filepath.Join(c.localRunDir(), vmID+".pid")
}
