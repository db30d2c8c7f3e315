package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/projecteru2/core/log"

	"github.com/projecteru2/cocoond/config"
	"github.com/projecteru2/cocoond/hypervisor"
	"github.com/projecteru2/cocoond/lock/flock"
	"github.com/projecteru2/cocoond/storage"
	storejson "github.com/projecteru2/cocoond/storage/json"
	"github.com/projecteru2/cocoond/types"
	"github.com/projecteru2/cocoond/utils"
)

const typ = "local"

// ErrRegistered is returned when registering a name already in the index.
var ErrRegistered = errors.New("VM already registered")

var _ hypervisor.Backend = (*Local)(nil)

// Local is a record-backed backend. A VM's state comes from its runtime
// record, reconciled against the liveness of its VMM process; resource
// changes are written to the record and take effect at the next boot.
type Local struct {
	conf  *config.Config
	store storage.Store[hypervisor.VMIndex]
}

// New creates a Local backend.
func New(conf *config.Config) (*Local, error) {
	if err := conf.EnsureLocalDirs(); err != nil {
		return nil, fmt.Errorf("ensure dirs: %w", err)
	}
	store := storejson.New[hypervisor.VMIndex](conf.VMIndexFile(), flock.New(conf.VMIndexLock()))
	return &Local{conf: conf, store: store}, nil
}

func (l *Local) Type() string { return typ }

// Register records a new VM in the off state.
func (l *Local) Register(ctx context.Context, cfg types.VMConfig) (*types.VMInfo, error) {
	var info types.VMInfo
	err := l.store.Update(ctx, func(idx *hypervisor.VMIndex) error {
		if _, ok := idx.Names[cfg.Name]; ok {
			return fmt.Errorf("register %s: %w", cfg.Name, ErrRegistered)
		}
		now := time.Now()
		rec := &hypervisor.VMRecord{VMInfo: types.VMInfo{
			ID:        uuid.NewString(),
			State:     types.VMStateOff,
			Config:    cfg,
			CreatedAt: now,
			UpdatedAt: now,
		}}
		idx.VMs[rec.ID] = rec
		idx.Names[cfg.Name] = rec.ID
		info = rec.VMInfo
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.WithFunc("local.Register").Infof(ctx, "registered VM %s (%s)", cfg.Name, info.ID)
	return &info, nil
}

// Unregister forgets name's record and PID file.
func (l *Local) Unregister(ctx context.Context, name string) error {
	var id string
	if err := l.store.Update(ctx, func(idx *hypervisor.VMIndex) error {
		rec, err := idx.ByName(name)
		if err != nil {
			return err
		}
		id = rec.ID
		delete(idx.VMs, id)
		delete(idx.Names, name)
		return nil
	}); err != nil {
		return fmt.Errorf("unregister %s: %w", name, err)
	}
	if err := os.Remove(l.conf.VMPIDFile(id)); err != nil && !os.IsNotExist(err) {
		log.WithFunc("local.Unregister").Warnf(ctx, "remove pid file of %s: %v", name, err)
	}
	return nil
}

// SetState records a lifecycle transition reported by the VMM supervisor.
// pid is the VMM process of a running VM and is ignored otherwise.
func (l *Local) SetState(ctx context.Context, name string, state types.VMState, pid int) error {
	return l.update(ctx, name, func(rec *hypervisor.VMRecord) {
		now := time.Now()
		switch state {
		case types.VMStateRunning:
			rec.StartedAt = &now
			rec.PID = pid
		case types.VMStateStopped, types.VMStateOff:
			rec.StoppedAt = &now
			rec.PID = 0
		}
		rec.State = state
	})
}

// Machine returns the live handle of name.
func (l *Local) Machine(ctx context.Context, name string) (hypervisor.VirtualMachine, error) {
	err := l.store.With(ctx, func(idx *hypervisor.VMIndex) error {
		_, err := idx.ByName(name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &machine{name: name, backend: l}, nil
}

// List returns all known VMs with reconciled states.
func (l *Local) List(ctx context.Context) ([]*types.VMInfo, error) {
	var result []*types.VMInfo
	err := l.store.With(ctx, func(idx *hypervisor.VMIndex) error {
		for _, rec := range idx.VMs {
			if rec == nil {
				continue
			}
			info := rec.VMInfo
			info.State = l.reconcile(&info)
			result = append(result, &info)
		}
		return nil
	})
	return result, err
}

func (l *Local) inspect(ctx context.Context, name string) (types.VMInfo, error) {
	var info types.VMInfo
	err := l.store.With(ctx, func(idx *hypervisor.VMIndex) error {
		rec, err := idx.ByName(name)
		if err != nil {
			return err
		}
		info = rec.VMInfo
		return nil
	})
	return info, err
}

func (l *Local) update(ctx context.Context, name string, fn func(*hypervisor.VMRecord)) error {
	return l.store.Update(ctx, func(idx *hypervisor.VMIndex) error {
		rec, err := idx.ByName(name)
		if err != nil {
			return err
		}
		fn(rec)
		rec.UpdatedAt = time.Now()
		return nil
	})
}

// reconcile detects stale "running" records whose VMM is gone.
func (l *Local) reconcile(info *types.VMInfo) types.VMState {
	if info.State != types.VMStateRunning {
		return info.State
	}
	pid := info.PID
	if filePID, err := utils.ReadPIDFile(l.conf.VMPIDFile(info.ID)); err == nil {
		pid = filePID
	}
	if !utils.IsProcessAlive(pid) {
		return types.VMStateStopped
	}
	return info.State
}
