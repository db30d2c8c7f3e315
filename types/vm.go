package types

import (
	"fmt"
	"slices"
	"time"
)

// VMState represents the lifecycle state of a VM as reported by its backend.
type VMState string

const (
	VMStateOff             VMState = "off"     // never started, or powered off by the host
	VMStateStopped         VMState = "stopped" // VMM process has exited cleanly
	VMStateStarting        VMState = "starting"
	VMStateRestarting      VMState = "restarting"
	VMStateRunning         VMState = "running" // VMM process alive, guest is up
	VMStateDelayedShutdown VMState = "delayed_shutdown"
	VMStateSuspending      VMState = "suspending"
	VMStateSuspended       VMState = "suspended"
	VMStateUnknown         VMState = "unknown"
)

var knownStates = []VMState{
	VMStateOff, VMStateStopped, VMStateStarting, VMStateRestarting, VMStateRunning,
	VMStateDelayedShutdown, VMStateSuspending, VMStateSuspended, VMStateUnknown,
}

// ParseVMState validates s as a state name.
func ParseVMState(s string) (VMState, error) {
	if st := VMState(s); slices.Contains(knownStates, st) {
		return st, nil
	}
	return "", fmt.Errorf("unknown VM state %q", s)
}

// Modifiable reports whether resource allocation may be changed in this state.
// Only a VM the hypervisor does not hold provisioned qualifies.
func (s VMState) Modifiable() bool {
	return s == VMStateStopped || s == VMStateOff
}

// VMSpecs is the daemon's declared resource allocation for an instance.
// It is persisted independently of the live VM.
type VMSpecs struct {
	NumCores  int   `json:"num_cores"`
	MemSize   int64 `json:"mem_size"`   // bytes
	DiskSpace int64 `json:"disk_space"` // bytes
}

// VMConfig is the allocation a backend boots the VM with.
type VMConfig struct {
	Name    string `json:"name"`
	CPU     int    `json:"cpu"`
	Memory  int64  `json:"memory"`  // bytes
	Storage int64  `json:"storage"` // disk size, bytes
}

// VMInfo is the runtime record for a VM, persisted by the hypervisor backend.
type VMInfo struct {
	ID     string   `json:"id"`
	State  VMState  `json:"state"`
	Config VMConfig `json:"config"`

	PID int `json:"pid,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
}
