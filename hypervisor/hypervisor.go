package hypervisor

import (
	"context"
	"errors"

	"github.com/projecteru2/cocoond/types"
)

// ErrNotFound is returned when a VM name does not exist in the index.
var ErrNotFound = errors.New("VM not found")

// VirtualMachine is the live handle of one VM.
type VirtualMachine interface {
	Name() string
	CurrentState(ctx context.Context) (types.VMState, error)

	UpdateNumCores(ctx context.Context, cores int) error
	ResizeMemory(ctx context.Context, bytes int64) error
	ResizeDisk(ctx context.Context, bytes int64) error
}

// Backend supplies live handles for the VMs it manages.
type Backend interface {
	Type() string
	Machine(ctx context.Context, name string) (VirtualMachine, error)
	List(ctx context.Context) ([]*types.VMInfo, error)
}
