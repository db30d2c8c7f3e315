package storage

import "context"

// Initer is optionally implemented by T to initialise zero-value fields
// (e.g. nil maps) after loading or when the backing file is absent.
type Initer interface {
	Init()
}

// Store provides locked read/modify/write access to a file-backed T.
type Store[T any] interface {
	// With loads the data under lock and passes it to fn.
	// The lock is held for the duration of fn.
	With(ctx context.Context, fn func(*T) error) error
	// Update performs a read-modify-write under lock.
	// If fn returns nil the data is atomically persisted.
	Update(ctx context.Context, fn func(*T) error) error
}

// InitData calls Init on data when *T implements Initer.
func InitData[T any](data *T) {
	if initer, ok := any(data).(Initer); ok {
		initer.Init()
	}
}
