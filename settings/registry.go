package settings

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/projecteru2/core/log"
)

// Registry dispatches get/set across an ordered chain of handlers.
// It is built once at daemon startup and passed explicitly to its users.
type Registry struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry { return &Registry{} }

// RegisterHandler appends h to the chain. On key-space overlap the earliest
// registered handler wins.
func (r *Registry) RegisterHandler(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, h)
}

// Get returns the value of key from the first handler that recognises it.
func (r *Registry) Get(ctx context.Context, key string) (string, error) {
	for _, h := range r.chain() {
		val, err := h.Get(ctx, key)
		if errors.Is(err, ErrUnrecognized) {
			continue
		}
		return val, err
	}
	return "", &UnrecognizedError{Key: key}
}

// Set forwards key=val to the first handler that recognises key.
func (r *Registry) Set(ctx context.Context, key, val string) error {
	for _, h := range r.chain() {
		err := h.Set(ctx, key, val)
		if errors.Is(err, ErrUnrecognized) {
			continue
		}
		if err == nil {
			log.WithFunc("settings.Set").Infof(ctx, "setting %s updated to %q", key, val)
		}
		return err
	}
	return &UnrecognizedError{Key: key}
}

// Keys returns the sorted union of every handler's keys.
func (r *Registry) Keys() []string {
	var keys []string
	for _, h := range r.chain() {
		keys = append(keys, h.Keys()...)
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

func (r *Registry) chain() []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.handlers)
}
