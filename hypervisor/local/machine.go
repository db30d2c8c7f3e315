package local

import (
	"context"

	"github.com/projecteru2/cocoond/hypervisor"
	"github.com/projecteru2/cocoond/types"
)

var _ hypervisor.VirtualMachine = (*machine)(nil)

type machine struct {
	name    string
	backend *Local
}

func (m *machine) Name() string { return m.name }

func (m *machine) CurrentState(ctx context.Context) (types.VMState, error) {
	info, err := m.backend.inspect(ctx, m.name)
	if err != nil {
		return types.VMStateUnknown, err
	}
	return m.backend.reconcile(&info), nil
}

func (m *machine) UpdateNumCores(ctx context.Context, cores int) error {
	return m.backend.update(ctx, m.name, func(rec *hypervisor.VMRecord) { rec.Config.CPU = cores })
}

func (m *machine) ResizeMemory(ctx context.Context, bytes int64) error {
	return m.backend.update(ctx, m.name, func(rec *hypervisor.VMRecord) { rec.Config.Memory = bytes })
}

func (m *machine) ResizeDisk(ctx context.Context, bytes int64) error {
	return m.backend.update(ctx, m.name, func(rec *hypervisor.VMRecord) { rec.Config.Storage = bytes })
}
