package cache

import "fmt"

// notFoundError signals a key with no registered descriptor.
type notFoundError struct{ key string }

func (e notFoundError) Error() string { return "resource not found: " + e.key }

// ErrNotFound returns an error for a key that resolves to no descriptor.
func ErrNotFound(key string) error { return notFoundError{key: key} }

// IsNotFound reports whether err indicates an unregistered key.
func IsNotFound(err error) bool {
	_, ok := err.(notFoundError)
	return ok
}

// loadFailedError wraps a loader failure. The cause is the opaque error the
// loader callback returned; the cache never retries it.
type loadFailedError struct {
	key   string
	cause error
}

func (e loadFailedError) Error() string { return fmt.Sprintf("load failed for %s: %v", e.key, e.cause) }
func (e loadFailedError) Unwrap() error { return e.cause }

// ErrLoadFailed wraps a loader callback failure for key.
func ErrLoadFailed(key string, cause error) error { return loadFailedError{key: key, cause: cause} }

// IsLoadFailed reports whether err originated from a loader callback.
func IsLoadFailed(err error) bool {
	_, ok := err.(loadFailedError)
	return ok
}

// capacityExceededError signals that a resource cannot be admitted even after
// eviction freed everything it could.
type capacityExceededError struct {
	key      string
	pool     Pool
	need     int64
	capacity int64
}

func (e capacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded for %s: need %d bytes in %s pool (capacity %d)",
		e.key, e.need, e.pool, e.capacity)
}

// ErrCapacityExceeded constructs a capacityExceededError.
func ErrCapacityExceeded(key string, pool Pool, need, capacity int64) error {
	return capacityExceededError{key: key, pool: pool, need: need, capacity: capacity}
}

// IsCapacityExceeded reports whether err indicates an over-budget admission.
func IsCapacityExceeded(err error) bool {
	_, ok := err.(capacityExceededError)
	return ok
}

// busyError signals a pinned entry blocking a non-blocking operation, or a
// waiter timing out on an in-flight load.
type busyError struct{ key string }

func (e busyError) Error() string { return "resource busy: " + e.key }

// ErrBusy constructs a busyError for key.
func ErrBusy(key string) error { return busyError{key: key} }

// IsBusy reports whether err indicates backpressure (return 409/429 upstream).
func IsBusy(err error) bool {
	_, ok := err.(busyError)
	return ok
}

// doubleReleaseError is non-fatal: releasing an already released handle
// is logged and counted, never propagated as a failure.
type doubleReleaseError struct{ key string }

func (e doubleReleaseError) Error() string { return "handle already released: " + e.key }

// IsDoubleRelease reports whether err indicates a redundant release.
func IsDoubleRelease(err error) bool {
	_, ok := err.(doubleReleaseError)
	return ok
}
