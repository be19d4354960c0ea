// Package daemon aggregates the registry, cache and job service behind the
// single facade the HTTP layer talks to.
package daemon

import (
	"context"
	"time"

	"stylerd/internal/cache"
	"stylerd/internal/jobs"
	"stylerd/internal/pipeline"
	"stylerd/internal/registry"
	"stylerd/pkg/types"
)

type Daemon struct {
	reg   *registry.Registry
	cache *cache.Cache
	jobs  *jobs.Service
	start time.Time
}

func New(reg *registry.Registry, c *cache.Cache, j *jobs.Service) *Daemon {
	return &Daemon{reg: reg, cache: c, jobs: j, start: time.Now()}
}

func (d *Daemon) ListResources() []types.Resource { return d.reg.List() }

// Rescan rescans the resource directories, then drops cache entries whose
// backing files disappeared. Derived entries survive only while both their
// base and adapter remain registered.
func (d *Daemon) Rescan(ctx context.Context) (int, error) {
	if err := d.reg.Rescan(); err != nil {
		return 0, err
	}
	if err := d.cache.Reconcile(ctx, d.validKey); err != nil {
		return 0, err
	}
	return d.reg.Len(), nil
}

func (d *Daemon) validKey(key string) bool {
	if d.reg.Has(key) {
		return true
	}
	if base, adapter, _, ok := pipeline.ParseDerivedKey(key); ok {
		return d.reg.Has(base) && d.reg.Has(adapter)
	}
	return false
}

func (d *Daemon) SubmitJob(req types.JobRequest) (types.JobStatus, error) {
	return d.jobs.Submit(req)
}

func (d *Daemon) JobStatus(id string) (types.JobStatus, bool) {
	return d.jobs.Get(id)
}

// EvictEntry evicts a single unpinned entry. Pinned entries are refused
// rather than waited on so DELETE stays bounded.
func (d *Daemon) EvictEntry(key string) error {
	return d.cache.TryInvalidate(key)
}

func (d *Daemon) Ready() bool { return d.reg != nil && d.cache != nil && d.jobs != nil }

func (d *Daemon) Status() types.StatusResponse {
	stats := d.cache.Stats()
	acct := d.cache.Memory()

	entries := d.cache.Entries()
	out := make([]types.CacheEntryStatus, 0, len(entries))
	for _, e := range entries {
		out = append(out, types.CacheEntryStatus{
			Key:          e.Key,
			DeviceBytes:  e.DeviceBytes,
			HostBytes:    e.HostBytes,
			Priority:     e.Priority.String(),
			Pins:         e.Pins,
			AccessCount:  e.AccessCount,
			LoadedAt:     e.LoadedAt.Unix(),
			LastAccessed: e.LastAccessed.Unix(),
		})
	}

	return types.StatusResponse{
		Entries:             out,
		Device:              poolStatus(acct, cache.PoolDevice),
		Host:                poolStatus(acct, cache.PoolHost),
		Hits:                stats.Hits,
		Misses:              stats.Misses,
		Evictions:           stats.Evictions,
		HitRate:             stats.HitRate,
		RegisteredResources: d.reg.Len(),
		ActiveJobs:          d.jobs.Active(),
		UptimeSeconds:       int64(time.Since(d.start).Seconds()),
		ServerTimeUnix:      time.Now().Unix(),
	}
}

func poolStatus(a *cache.Accountant, p cache.Pool) types.PoolStatus {
	return types.PoolStatus{
		CapacityBytes: a.Capacity(p),
		UsedBytes:     a.Used(p),
		Utilization:   a.Utilization(p),
		UnderPressure: a.UnderPressure(p),
	}
}
