package utils

// LookupCopy returns a detached copy of the value stored at key, and false
// when the key is absent or holds a nil pointer.
func LookupCopy[T any](m map[string]*T, key string) (T, bool) {
	if v := m[key]; v != nil {
		return *v, true
	}
	var zero T
	return zero, false
}
