package settings

import "context"

// Handler owns a portion of the settings key space.
//
// Get and Set return an error matching ErrUnrecognized for keys outside the
// handler's space; the Registry relies on that to fall through to the next
// handler.
type Handler interface {
	// Keys returns the recognised keys or key patterns, for introspection.
	Keys() []string
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, val string) error
}
