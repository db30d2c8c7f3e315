package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// mapHandler serves a fixed key space from memory.
type mapHandler struct {
	values map[string]string
	sets   []string
}

func (h *mapHandler) Keys() []string {
	keys := make([]string, 0, len(h.values))
	for k := range h.values {
		keys = append(keys, k)
	}
	return keys
}

func (h *mapHandler) Get(_ context.Context, key string) (string, error) {
	val, ok := h.values[key]
	if !ok {
		return "", &UnrecognizedError{Key: key}
	}
	return val, nil
}

func (h *mapHandler) Set(_ context.Context, key, val string) error {
	if _, ok := h.values[key]; !ok {
		return &UnrecognizedError{Key: key}
	}
	if val == "bad" {
		return &InvalidError{Key: key, Value: val, Reason: "bad"}
	}
	h.values[key] = val
	h.sets = append(h.sets, key)
	return nil
}

func TestRegistry_Dispatch(t *testing.T) {
	ctx := context.Background()
	first := &mapHandler{values: map[string]string{"a": "1", "shared": "first"}}
	second := &mapHandler{values: map[string]string{"b": "2", "shared": "second"}}

	reg := NewRegistry()
	reg.RegisterHandler(first)
	reg.RegisterHandler(second)

	for key, want := range map[string]string{"a": "1", "b": "2", "shared": "first"} {
		got, err := reg.Get(ctx, key)
		if err != nil || got != want {
			t.Errorf("Get(%q) = %q, %v; want %q", key, got, err, want)
		}
	}

	if err := reg.Set(ctx, "b", "3"); err != nil {
		t.Fatalf("Set(b) unexpected error: %v", err)
	}
	if err := reg.Set(ctx, "shared", "x"); err != nil {
		t.Fatalf("Set(shared) unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"shared"}, first.sets); diff != "" {
		t.Errorf("first handler sets (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b"}, second.sets); diff != "" {
		t.Errorf("second handler sets (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"a", "b", "shared"}, reg.Keys()); diff != "" {
		t.Errorf("Keys() (-want +got):\n%s", diff)
	}
}

func TestRegistry_Errors(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()

	if _, err := reg.Get(ctx, "foo"); !errors.Is(err, ErrUnrecognized) {
		t.Fatalf("empty registry Get error = %v, want ErrUnrecognized", err)
	}

	h := &mapHandler{values: map[string]string{"a": "1"}}
	reg.RegisterHandler(h)

	if err := reg.Set(ctx, "nope", "1"); !errors.Is(err, ErrUnrecognized) {
		t.Errorf("Set(nope) error = %v, want ErrUnrecognized", err)
	}
	if err := reg.Set(ctx, "a", "bad"); !errors.Is(err, ErrInvalid) {
		t.Errorf("Set(a, bad) error = %v, want ErrInvalid", err)
	}
	if got, _ := reg.Get(ctx, "a"); got != "1" {
		t.Errorf("value changed after rejected set: %q", got)
	}
}
