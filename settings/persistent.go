package settings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/magiconair/properties"
	"github.com/projecteru2/core/log"

	"github.com/projecteru2/cocoond/lock/flock"
	"github.com/projecteru2/cocoond/storage"
	propstore "github.com/projecteru2/cocoond/storage/properties"
	"github.com/projecteru2/cocoond/utils"
)

// Hardener restricts a path to its owner. Implemented by permissions.Utils.
type Hardener interface {
	RestrictPermissions(ctx context.Context, path string) error
}

// PersistentHandler serves global settings from a key = value file.
type PersistentHandler struct {
	path     string
	specs    SpecSet
	store    storage.Store[properties.Properties]
	hardener Hardener

	mu    sync.Mutex
	ready bool
}

// NewPersistentHandler creates a handler for specs persisted at path.
// The file is created, populated with defaults and hardened on first use.
func NewPersistentHandler(path string, specs SpecSet, hardener Hardener) *PersistentHandler {
	return &PersistentHandler{
		path:     path,
		specs:    specs,
		store:    propstore.New(path, flock.New(path+".lock")),
		hardener: hardener,
	}
}

// Path returns the backing file.
func (h *PersistentHandler) Path() string { return h.path }

func (h *PersistentHandler) Keys() []string {
	keys := make([]string, 0, len(h.specs))
	for key := range h.specs {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// Get returns the persisted value of key, or the spec default when unset.
func (h *PersistentHandler) Get(ctx context.Context, key string) (string, error) {
	spec, ok := h.specs[key]
	if !ok {
		return "", &UnrecognizedError{Key: key}
	}
	if err := h.Ensure(ctx); err != nil {
		return "", err
	}
	val := spec.Default()
	err := h.store.With(ctx, func(p *properties.Properties) error {
		if stored, ok := p.Get(key); ok {
			val = stored
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	return val, nil
}

// Set validates val against the spec for key and persists the interpreted
// value, leaving every other entry untouched.
func (h *PersistentHandler) Set(ctx context.Context, key, val string) error {
	spec, ok := h.specs[key]
	if !ok {
		return &UnrecognizedError{Key: key}
	}
	interpreted, err := spec.Interpret(val)
	if err != nil {
		return err
	}
	if err := h.Ensure(ctx); err != nil {
		return err
	}
	if err := h.store.Update(ctx, func(p *properties.Properties) error {
		_, _, err := p.Set(key, interpreted)
		return err
	}); err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

// Ensure creates the backing file with every default if it is absent and
// restricts it to the daemon user. It is idempotent.
func (h *PersistentHandler) Ensure(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ready {
		return nil
	}
	if !utils.FileExists(h.path) {
		if err := h.create(ctx); err != nil {
			return err
		}
	}
	h.ready = true
	return nil
}

func (h *PersistentHandler) create(ctx context.Context) error {
	if err := utils.EnsureDirs(0o700, filepath.Dir(h.path)); err != nil {
		return err
	}
	keys := h.Keys()
	if err := h.store.Update(ctx, func(p *properties.Properties) error {
		for _, key := range keys {
			if _, ok := p.Get(key); ok {
				continue
			}
			if _, _, err := p.Set(key, h.specs[key].Default()); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("create settings file %s: %w", h.path, err)
	}
	if err := h.hardener.RestrictPermissions(ctx, h.path); err != nil {
		// Leave no unhardened file behind; the next Ensure starts over.
		_ = os.Remove(h.path)
		return fmt.Errorf("harden settings file: %w", err)
	}
	log.WithFunc("settings.Ensure").Infof(ctx, "created settings file %s with %d defaults", h.path, len(keys))
	return nil
}
