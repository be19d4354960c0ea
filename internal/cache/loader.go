package cache

import (
	"context"

	"stylerd/pkg/types"
)

// Payload is a loaded, device-resident resource owned exclusively by its
// cache entry. Close releases the underlying memory; the cache calls it
// exactly once, when the entry is evicted or invalidated.
type Payload interface {
	Close() error
}

// LoadResult is what a Loader hands back on success. DeviceBytes and
// HostBytes are the measured footprint per pool; either may be zero.
type LoadResult struct {
	Payload     Payload
	DeviceBytes int64
	HostBytes   int64
}

// Loader turns a resource descriptor into a loaded payload. The cache treats
// it as a black box: failures are propagated as LoadFailed and never retried.
// A load, once started, always runs to completion so concurrent waiters are
// not starved; the ctx is the cache's lifetime, not any single caller's.
type Loader interface {
	Load(ctx context.Context, desc types.Resource) (LoadResult, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, desc types.Resource) (LoadResult, error)

func (f LoaderFunc) Load(ctx context.Context, desc types.Resource) (LoadResult, error) {
	return f(ctx, desc)
}

// Resolver maps a cache key to its registered descriptor. The registry
// implements this; unknown keys fail an acquire with NotFound.
type Resolver interface {
	Get(id string) (types.Resource, bool)
}
