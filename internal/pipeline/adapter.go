// Package pipeline bridges the resource cache and the generation framework.
// The framework itself (diffusion sampling, scheduler selection) is a black
// box behind the Runtime interface; this package only knows how to turn
// descriptors into cache payloads and how to compose adapters onto bases.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"stylerd/internal/cache"
	"stylerd/pkg/types"
)

// Progress reports a generation step and completion fraction in [0,1].
type Progress func(step string, frac float64)

// Pipeline is a loaded, device-resident generation pipeline. It satisfies
// cache.Payload; Close frees its device and host memory.
type Pipeline interface {
	// Generate produces one image and returns the written artifact path.
	Generate(ctx context.Context, params types.GenerateParams, progress Progress) (string, error)
	// Footprint reports measured (device, host) bytes for cache accounting.
	Footprint() (device, host int64)
	Close() error
}

// Runtime abstracts the generation framework. One implementation per
// deployment: a GPU-backed runtime in production, the stub elsewhere.
type Runtime interface {
	// LoadPipeline loads a full base-model pipeline from disk.
	LoadPipeline(ctx context.Context, desc types.Resource) (Pipeline, error)
	// Compose blends adapter weights onto base at the given weight,
	// producing a new pipeline. The base pipeline is never mutated; the
	// composed result owns its own memory.
	Compose(ctx context.Context, base Pipeline, adapter types.Resource, weight float64) (Pipeline, error)
}

// BaseLoader adapts Runtime.LoadPipeline to the cache's loader contract.
func BaseLoader(rt Runtime) cache.Loader {
	return cache.LoaderFunc(func(ctx context.Context, desc types.Resource) (cache.LoadResult, error) {
		p, err := rt.LoadPipeline(ctx, desc)
		if err != nil {
			return cache.LoadResult{}, err
		}
		device, host := p.Footprint()
		return cache.LoadResult{Payload: p, DeviceBytes: device, HostBytes: host}, nil
	})
}

// ComposedLoader builds a loader for a derived base+adapter entry. The base
// pipeline must stay pinned by the caller for the duration of the load.
func ComposedLoader(rt Runtime, base Pipeline, adapter types.Resource, weight float64) cache.Loader {
	return cache.LoaderFunc(func(ctx context.Context, desc types.Resource) (cache.LoadResult, error) {
		p, err := rt.Compose(ctx, base, adapter, weight)
		if err != nil {
			return cache.LoadResult{}, err
		}
		device, host := p.Footprint()
		return cache.LoadResult{Payload: p, DeviceBytes: device, HostBytes: host}, nil
	})
}

// DerivedKey is the cache key for a base model composed with an adapter at a
// blend weight. Compositions are distinct cache entries: fusing in place
// would leave the base entry mutated after the adapter is removed.
func DerivedKey(baseID, adapterID string, weight float64) string {
	return fmt.Sprintf("%s+%s@%.3f", baseID, adapterID, weight)
}

// ParseDerivedKey splits a derived key back into its parts. ok is false for
// plain resource ids.
func ParseDerivedKey(key string) (baseID, adapterID string, weight float64, ok bool) {
	plus := strings.IndexByte(key, '+')
	at := strings.LastIndexByte(key, '@')
	if plus <= 0 || at <= plus+1 || at == len(key)-1 {
		return "", "", 0, false
	}
	w, err := strconv.ParseFloat(key[at+1:], 64)
	if err != nil {
		return "", "", 0, false
	}
	return key[:plus], key[plus+1 : at], w, true
}

// DerivedDescriptor describes a composition for cache admission. The adapter
// file size serves as the declared estimate of the extra footprint.
func DerivedDescriptor(base, adapter types.Resource, weight float64) types.Resource {
	return types.Resource{
		ID:        DerivedKey(base.ID, adapter.ID, weight),
		Name:      base.Name + "+" + adapter.Name,
		Kind:      types.KindAdapter,
		Path:      adapter.Path,
		SizeBytes: base.SizeBytes + adapter.SizeBytes,
	}
}
