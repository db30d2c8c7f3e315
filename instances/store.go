package instances

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"sync"

	"github.com/projecteru2/core/log"
	"golang.org/x/sync/errgroup"

	"github.com/projecteru2/cocoond/config"
	"github.com/projecteru2/cocoond/hypervisor"
	"github.com/projecteru2/cocoond/lock/flock"
	"github.com/projecteru2/cocoond/settings"
	"github.com/projecteru2/cocoond/storage"
	storejson "github.com/projecteru2/cocoond/storage/json"
	"github.com/projecteru2/cocoond/types"
	"github.com/projecteru2/cocoond/utils"
)

var (
	// ErrExists is returned when a name is already live or being prepared.
	ErrExists = errors.New("instance already exists")
	// ErrNotFound is returned when a name is not in the expected mapping.
	ErrNotFound = errors.New("instance not found")
)

var _ settings.InstanceIndex = (*Store)(nil)

// SpecIndex is the persisted form of the index. It is shared by every
// process working on the same root, so each mutation re-checks its
// preconditions against the file rather than the in-memory view.
type SpecIndex struct {
	Specs   map[string]*types.VMSpecs `json:"specs"`
	Deleted map[string]*types.VMSpecs `json:"deleted"`
	// Preparing maps names under construction to the preparer's PID.
	Preparing map[string]int `json:"preparing,omitempty"`
}

// Init implements storage.Initer.
func (idx *SpecIndex) Init() {
	if idx.Specs == nil {
		idx.Specs = make(map[string]*types.VMSpecs)
	}
	if idx.Deleted == nil {
		idx.Deleted = make(map[string]*types.VMSpecs)
	}
	if idx.Preparing == nil {
		idx.Preparing = make(map[string]int)
	}
}

// preparing reports whether name carries a mark whose owner is still alive.
func (idx *SpecIndex) preparing(name string) bool {
	pid, ok := idx.Preparing[name]
	return ok && utils.IsProcessAlive(pid)
}

func (idx *SpecIndex) taken(name string) bool {
	_, live := idx.Specs[name]
	_, deleted := idx.Deleted[name]
	return live || deleted || idx.preparing(name)
}

// Store is the daemon's instance index: declared specs and live handles of
// live instances, deleted instances, and instances being prepared.
// Every mutation of specs is written through to the spec index first.
type Store struct {
	db storage.Store[SpecIndex]

	mu        sync.RWMutex
	specs     map[string]*types.VMSpecs
	vms       map[string]hypervisor.VirtualMachine
	deleted   map[string]*types.VMSpecs
	preparing map[string]struct{}
}

// New creates an empty Store persisting to the spec index under conf.RootDir.
func New(conf *config.Config) (*Store, error) {
	if err := conf.EnsureInstanceDirs(); err != nil {
		return nil, fmt.Errorf("ensure dirs: %w", err)
	}
	return NewWithDB(storejson.New[SpecIndex](conf.SpecIndexFile(), flock.New(conf.SpecIndexLock()))), nil
}

// NewWithDB creates an empty Store over db.
func NewWithDB(db storage.Store[SpecIndex]) *Store {
	return &Store{
		db:        db,
		specs:     make(map[string]*types.VMSpecs),
		vms:       make(map[string]hypervisor.VirtualMachine),
		deleted:   make(map[string]*types.VMSpecs),
		preparing: make(map[string]struct{}),
	}
}

// Load replaces the in-memory view with the spec index. Handles already
// attached are kept; the rest come from backend, at most poolSize lookups
// in flight. Instances the backend no longer knows are skipped, as are
// preparing marks left by dead processes.
func (s *Store) Load(ctx context.Context, backend hypervisor.Backend, poolSize int) error {
	logger := log.WithFunc("instances.Load")
	var snap SpecIndex
	if err := s.db.With(ctx, func(idx *SpecIndex) error {
		snap = *idx
		return nil
	}); err != nil {
		return fmt.Errorf("load spec index: %w", err)
	}

	s.mu.RLock()
	attached := maps.Clone(s.vms)
	s.mu.RUnlock()

	var missing []string
	vms := make(map[string]hypervisor.VirtualMachine, len(snap.Specs))
	for name := range snap.Specs {
		if vm, ok := attached[name]; ok {
			vms[name] = vm
		} else {
			missing = append(missing, name)
		}
	}

	var vmsMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(poolSize, 1))
	for _, name := range missing {
		g.Go(func() error {
			vm, err := backend.Machine(gctx, name)
			if errors.Is(err, hypervisor.ErrNotFound) {
				logger.Warnf(ctx, "instance %s has specs but no %s VM, skipping", name, backend.Type())
				return nil
			}
			if err != nil {
				return fmt.Errorf("attach %s: %w", name, err)
			}
			vmsMu.Lock()
			vms[name] = vm
			vmsMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.specs)
	for name := range vms {
		s.specs[name] = snap.Specs[name]
	}
	s.vms = vms
	clear(s.deleted)
	maps.Copy(s.deleted, snap.Deleted)
	clear(s.preparing)
	for name := range snap.Preparing {
		if snap.preparing(name) {
			s.preparing[name] = struct{}{}
		}
	}
	logger.Debugf(ctx, "loaded %d instances (%d deleted, %d preparing)", len(s.specs), len(s.deleted), len(s.preparing))
	return nil
}

// IsPreparing reports whether name is under construction.
func (s *Store) IsPreparing(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.preparing[name]
	return ok
}

// IsDeleted reports whether name was deleted but not purged.
func (s *Store) IsDeleted(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.deleted[name]
	return ok
}

// Lookup returns a copy of name's declared specs and its live handle.
func (s *Store) Lookup(name string) (types.VMSpecs, hypervisor.VirtualMachine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	specs, ok := utils.LookupCopy(s.specs, name)
	vm := s.vms[name]
	if !ok || vm == nil {
		return types.VMSpecs{}, nil, false
	}
	return specs, vm, true
}

// Names returns the sorted names of live instances.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.specs))
}

// CommitSpecs replaces and persists the declared specs of a live instance.
// The instance must still be live in the spec index, not only in memory.
func (s *Store) CommitSpecs(ctx context.Context, name string, specs types.VMSpecs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.specs[name]; !ok {
		return fmt.Errorf("commit specs of %s: %w", name, ErrNotFound)
	}
	if err := s.db.Update(ctx, func(idx *SpecIndex) error {
		if _, ok := idx.Specs[name]; !ok {
			return ErrNotFound
		}
		if _, ok := idx.Deleted[name]; ok {
			return ErrNotFound
		}
		idx.Specs[name] = &specs
		return nil
	}); err != nil {
		return fmt.Errorf("commit specs of %s: %w", name, err)
	}
	s.specs[name] = &specs
	return nil
}

// Prepare marks name as under construction. The mark is persisted so other
// processes sharing the index see it until FinishPreparing or Add.
func (s *Store) Prepare(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken(name) {
		return fmt.Errorf("prepare %s: %w", name, ErrExists)
	}
	if err := s.db.Update(ctx, func(idx *SpecIndex) error {
		if idx.taken(name) {
			return ErrExists
		}
		idx.Preparing[name] = os.Getpid()
		return nil
	}); err != nil {
		return fmt.Errorf("prepare %s: %w", name, err)
	}
	s.preparing[name] = struct{}{}
	return nil
}

// FinishPreparing clears the under-construction mark of name.
func (s *Store) FinishPreparing(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Update(ctx, func(idx *SpecIndex) error {
		delete(idx.Preparing, name)
		return nil
	}); err != nil {
		return fmt.Errorf("finish preparing %s: %w", name, err)
	}
	delete(s.preparing, name)
	return nil
}

// Add registers a live instance. A name being prepared may be added; its
// preparing mark is cleared.
func (s *Store) Add(ctx context.Context, name string, specs types.VMSpecs, vm hypervisor.VirtualMachine) error {
	if vm == nil {
		return fmt.Errorf("add %s: nil VM handle", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.specs[name]; ok {
		return fmt.Errorf("add %s: %w", name, ErrExists)
	}
	if _, ok := s.deleted[name]; ok {
		return fmt.Errorf("add %s: %w", name, ErrExists)
	}
	if err := s.db.Update(ctx, func(idx *SpecIndex) error {
		_, live := idx.Specs[name]
		_, deleted := idx.Deleted[name]
		if live || deleted {
			return ErrExists
		}
		idx.Specs[name] = &specs
		delete(idx.Preparing, name)
		return nil
	}); err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	s.specs[name] = &specs
	s.vms[name] = vm
	delete(s.preparing, name)
	return nil
}

// Delete moves a live instance to the deleted mapping. Its live handle is
// dropped; Recover re-attaches one.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var specs *types.VMSpecs
	if err := s.db.Update(ctx, func(idx *SpecIndex) error {
		var ok bool
		if specs, ok = idx.Specs[name]; !ok {
			return ErrNotFound
		}
		idx.Deleted[name] = specs
		delete(idx.Specs, name)
		return nil
	}); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	s.deleted[name] = specs
	delete(s.specs, name)
	delete(s.vms, name)
	return nil
}

// Recover moves a deleted instance back to the live mapping with vm as its
// handle.
func (s *Store) Recover(ctx context.Context, name string, vm hypervisor.VirtualMachine) error {
	if vm == nil {
		return fmt.Errorf("recover %s: nil VM handle", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var specs *types.VMSpecs
	if err := s.db.Update(ctx, func(idx *SpecIndex) error {
		var ok bool
		if specs, ok = idx.Deleted[name]; !ok {
			return ErrNotFound
		}
		idx.Specs[name] = specs
		delete(idx.Deleted, name)
		return nil
	}); err != nil {
		return fmt.Errorf("recover %s: %w", name, err)
	}
	s.specs[name] = specs
	s.vms[name] = vm
	delete(s.deleted, name)
	return nil
}

// Purge forgets every deleted instance and returns their names.
func (s *Store) Purge(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged []string
	if err := s.db.Update(ctx, func(idx *SpecIndex) error {
		purged = slices.Sorted(maps.Keys(idx.Deleted))
		clear(idx.Deleted)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("purge: %w", err)
	}
	clear(s.deleted)
	return purged, nil
}

func (s *Store) taken(name string) bool {
	_, live := s.specs[name]
	_, deleted := s.deleted[name]
	_, preparing := s.preparing[name]
	return live || deleted || preparing
}
