package cache

import "fmt"

// StorageError wraps a persistence failure. Callers are expected to treat it
// as advisory: a cache that cannot read behaves like a cache miss, a cache
// that cannot write loses nothing but a future hit. The typed value exists so
// degraded mode can be observed and asserted on instead of vanishing into a
// log line.
type StorageError struct {
	Op  string // "upsert", "query", "delete", "stats"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("cache storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
