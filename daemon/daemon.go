package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/cocoond/config"
	"github.com/projecteru2/cocoond/hypervisor"
	"github.com/projecteru2/cocoond/instances"
	"github.com/projecteru2/cocoond/lock"
	"github.com/projecteru2/cocoond/lock/flock"
	"github.com/projecteru2/cocoond/permissions"
	"github.com/projecteru2/cocoond/platform"
	"github.com/projecteru2/cocoond/settings"
)

// ExitError asks the process to terminate with Code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit %d: %v", e.Code, e.Err) }
func (e *ExitError) Unwrap() error { return e.Err }

// Daemon owns the settings registry and the instance index. One coarse
// lock, a flock under the root directory, serialises settings operations
// against instance lifecycle changes across every process sharing the root.
// The index is reloaded each time the lock is taken.
type Daemon struct {
	lock       lock.Locker
	backend    hypervisor.Backend
	poolSize   int
	registry   *settings.Registry
	instances  *instances.Store
	persistent *settings.PersistentHandler
}

// New wires the daemon: loads instances from backend, registers the global
// and per-instance settings handlers and makes sure the settings file exists.
func New(ctx context.Context, conf *config.Config, plat platform.Platform, backend hypervisor.Backend) (*Daemon, error) {
	store, err := instances.New(conf)
	if err != nil {
		return nil, fmt.Errorf("init instances: %w", err)
	}

	reg := settings.NewRegistry()
	persistent := RegisterGlobalSettingsHandlers(reg, plat, permissions.New(plat, permissions.OSFileOps{}))
	reg.RegisterHandler(settings.NewInstanceHandler(store))

	d := &Daemon{
		lock:       flock.New(conf.DaemonLockFile()),
		backend:    backend,
		poolSize:   conf.PoolSize,
		registry:   reg,
		instances:  store,
		persistent: persistent,
	}
	if err := d.locked(ctx, func() error { return persistent.Ensure(ctx) }); err != nil {
		return nil, err
	}
	return d, nil
}

// GetSetting returns the value of key.
func (d *Daemon) GetSetting(ctx context.Context, key string) (string, error) {
	var val string
	err := d.locked(ctx, func() (err error) {
		val, err = d.registry.Get(ctx, key)
		return err
	})
	return val, err
}

// SetSetting sets key to val.
func (d *Daemon) SetSetting(ctx context.Context, key, val string) error {
	return d.locked(ctx, func() error { return d.registry.Set(ctx, key, val) })
}

// SettingKeys returns every recognised key pattern.
func (d *Daemon) SettingKeys() []string {
	return d.registry.Keys()
}

// WithInstances runs an instance lifecycle change under the daemon lock.
func (d *Daemon) WithInstances(ctx context.Context, fn func(*instances.Store) error) error {
	return d.locked(ctx, func() error { return fn(d.instances) })
}

func (d *Daemon) locked(ctx context.Context, fn func() error) error {
	return lock.WithLock(ctx, d.lock, func() error {
		if err := d.instances.Load(ctx, d.backend, d.poolSize); err != nil {
			return err
		}
		return fn()
	})
}

// Run blocks until ctx is done or the settings file changes; in the latter
// case it returns an *ExitError carrying SettingsChangedCode.
func (d *Daemon) Run(ctx context.Context) error {
	logger := log.WithFunc("daemon.Run")
	mon, err := NewMonitor(d.persistent.Path())
	if err != nil {
		return err
	}
	defer mon.Close() //nolint:errcheck

	logger.Infof(ctx, "%s ready, %d instances, settings at %s", Name, len(d.instances.Names()), d.persistent.Path())
	err = mon.Wait(ctx)
	if errors.Is(err, ErrSettingsChanged) {
		return &ExitError{Code: SettingsChangedCode, Err: err}
	}
	if err == nil {
		logger.Info(ctx, "shutting down")
	}
	return err
}
