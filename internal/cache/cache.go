// Package cache implements the resource cache and memory manager at the core
// of the daemon: it keeps loaded base-model pipelines and style-adapter
// weights resident under per-pool byte budgets, collapses concurrent loads of
// the same key into one, and evicts by priority then recency when an
// admission needs room.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"stylerd/pkg/types"
)

// entry is a resident resource. Owned exclusively by the Cache; the payload's
// lifetime is exactly the entry's lifetime.
type entry struct {
	key          string
	payload      Payload
	deviceBytes  int64
	hostBytes    int64
	loadedAt     time.Time
	lastAccessed time.Time
	accessCount  uint64
	priority     Priority
	pins         int
	seq          uint64
	draining     bool          // eviction requested, no new pins admitted
	state        chan struct{} // broadcast on pin/drain transitions; stays closed after removal
}

// broadcastLocked wakes every goroutine parked on the entry's state and arms
// a fresh channel for the next transition. Caller holds the cache mutex.
func (e *entry) broadcastLocked() {
	close(e.state)
	e.state = make(chan struct{})
}

// Cache holds loaded resources and guards them with one short-lived mutex.
// The expensive load step always runs outside the lock, so acquires for
// different keys never serialize on each other's loads.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	seq     uint64

	flights singleflight.Group

	resolver    Resolver
	loader      Loader
	publisher   EventPublisher
	waitTimeout time.Duration
	acct        *Accountant

	hits           uint64
	misses         uint64
	evictions      uint64
	doubleReleases uint64

	staged []Event // telemetry staged under mu, published after unlock

	startTime time.Time
}

type acquireOpts struct {
	priority Priority
	loader   Loader
	desc     *types.Resource
}

// AcquireOption customizes a single Acquire call.
type AcquireOption func(*acquireOpts)

// WithPriority sets the eviction priority applied if this call loads the
// entry. Ignored on a hit.
func WithPriority(p Priority) AcquireOption {
	return func(o *acquireOpts) { o.priority = p }
}

// WithLoader overrides the cache's default loader for this key. Used for
// derived resources (base model composed with an adapter) whose load takes
// more inputs than a plain descriptor.
func WithLoader(l Loader) AcquireOption {
	return func(o *acquireOpts) { o.loader = l }
}

// WithDescriptor supplies the descriptor directly instead of resolving the
// key through the registry. Used for derived keys that the registry does not
// know about.
func WithDescriptor(desc types.Resource) AcquireOption {
	return func(o *acquireOpts) { o.desc = &desc }
}

// Acquire returns a pinned handle to the live resource for key, loading it if
// absent. Concurrent acquires of the same missing key trigger exactly one
// load; the others wait for its outcome and share it. A waiter's ctx cancels
// only its own wait, never the load itself.
func (c *Cache) Acquire(ctx context.Context, key string, opts ...AcquireOption) (*Handle, error) {
	o := acquireOpts{priority: defaultPriority}
	for _, opt := range opts {
		opt(&o)
	}

	var timeout <-chan time.Time
	if c.waitTimeout > 0 {
		t := time.NewTimer(c.waitTimeout)
		defer t.Stop()
		timeout = t.C
	}

	missCounted := false
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c.mu.Lock()
		if ent, ok := c.entries[key]; ok && !ent.draining {
			ent.lastAccessed = time.Now()
			ent.accessCount++
			ent.pins++
			// A retry lap after a counted miss is still that one acquire.
			counted := !missCounted
			if counted {
				c.hits++
				cacheHits.Inc()
			}
			h := &Handle{ent: ent}
			c.mu.Unlock()
			if counted {
				c.publish(EventHit, key, nil)
			}
			return h, nil
		}
		if !missCounted {
			c.misses++
			cacheMisses.Inc()
			missCounted = true
			c.mu.Unlock()
			c.publish(EventMiss, key, nil)
		} else {
			c.mu.Unlock()
		}

		// In-flight load registry: one load per key, shared outcome.
		ch := c.flights.DoChan(key, func() (any, error) {
			return c.loadKey(key, o)
		})

		select {
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
			ent := res.Val.(*entry)
			c.mu.Lock()
			cur, ok := c.entries[key]
			if !ok || cur != ent || cur.draining {
				// Evicted between load completion and pickup; reload.
				c.mu.Unlock()
				continue
			}
			cur.lastAccessed = time.Now()
			cur.accessCount++
			cur.pins++
			h := &Handle{ent: cur}
			c.mu.Unlock()
			return h, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			return nil, ErrBusy(key)
		}
	}
}

// loadKey runs inside the singleflight goroutine. It makes room, invokes the
// loader outside the lock, and admits the entry. On failure no partial entry
// is left behind.
func (c *Cache) loadKey(key string, o acquireOpts) (*entry, error) {
	// Wait out a pending eviction of the same key: the payload must be
	// released before the key becomes loadable again. A drain that gets
	// rolled back (cancelled Invalidate) broadcasts too, so the flight
	// re-checks and hands back the still-resident entry instead of parking
	// until some later eviction. Also re-check for an entry another flight
	// admitted since our miss.
	for {
		c.mu.Lock()
		cur, ok := c.entries[key]
		if !ok {
			c.mu.Unlock()
			break
		}
		if !cur.draining {
			c.mu.Unlock()
			return cur, nil
		}
		state := cur.state
		c.mu.Unlock()
		<-state
	}

	desc, ok := c.resolveKey(key, o)
	if !ok {
		return nil, ErrNotFound(key)
	}

	// Make room using the declared size estimate before paying for the load.
	c.mu.Lock()
	err := c.ensureRoomLocked(key, PoolDevice, desc.SizeBytes)
	evs := c.drainLocked()
	c.mu.Unlock()
	c.publishAll(evs)
	if err != nil {
		return nil, err
	}

	ldr := c.loader
	if o.loader != nil {
		ldr = o.loader
	}
	c.publish(EventLoadStart, key, nil)
	start := time.Now()
	res, err := ldr.Load(context.Background(), desc)
	if err != nil {
		cacheLoadFailures.Inc()
		c.publish(EventError, key, map[string]any{"stage": "load", "error": err.Error()})
		return nil, ErrLoadFailed(key, err)
	}
	c.publish(EventLoadEnd, key, map[string]any{
		"duration_ms":  time.Since(start).Milliseconds(),
		"device_bytes": res.DeviceBytes,
		"host_bytes":   res.HostBytes,
	})

	// Re-check with the measured footprint; the declared estimate may have
	// been low. Never admit over budget silently.
	c.mu.Lock()
	err = c.ensureRoomLocked(key, PoolDevice, res.DeviceBytes)
	if err == nil {
		err = c.ensureRoomLocked(key, PoolHost, res.HostBytes)
	}
	if err != nil {
		evs := c.drainLocked()
		c.mu.Unlock()
		c.publishAll(evs)
		if cerr := res.Payload.Close(); cerr != nil {
			c.publish(EventError, key, map[string]any{"stage": "release", "error": cerr.Error()})
		}
		return nil, err
	}
	now := time.Now()
	c.seq++
	ent := &entry{
		key:          key,
		payload:      res.Payload,
		deviceBytes:  res.DeviceBytes,
		hostBytes:    res.HostBytes,
		loadedAt:     now,
		lastAccessed: now,
		priority:     o.priority,
		seq:          c.seq,
		state:        make(chan struct{}),
	}
	c.entries[key] = ent
	c.acct.add(res.DeviceBytes, res.HostBytes)
	c.updateGaugesLocked()
	evs = c.drainLocked()
	c.mu.Unlock()
	c.publishAll(evs)
	return ent, nil
}

func (c *Cache) resolveKey(key string, o acquireOpts) (types.Resource, bool) {
	if o.desc != nil {
		return *o.desc, true
	}
	if c.resolver == nil {
		return types.Resource{}, false
	}
	return c.resolver.Get(key)
}

// ensureRoomLocked evicts until need bytes fit the pool's ceiling. A need
// larger than the ceiling itself fails fast without evicting anything, and a
// plan blocked by pinned entries fails the admission without executing.
func (c *Cache) ensureRoomLocked(key string, pool Pool, need int64) error {
	if need <= 0 {
		return nil
	}
	capacity := c.acct.Capacity(pool)
	if capacity <= 0 {
		// Unbudgeted pool: admit freely.
		return nil
	}
	if need > capacity {
		return ErrCapacityExceeded(key, pool, need, capacity)
	}
	used := c.acct.Used(pool)
	if used+need <= capacity {
		return nil
	}
	target := used + need - capacity
	plan := planEviction(c.candidatesLocked(pool), target)
	if plan.partial {
		return ErrCapacityExceeded(key, pool, need, capacity)
	}
	for _, victim := range plan.victims {
		c.removeLocked(victim, "pressure")
	}
	return nil
}

func (c *Cache) candidatesLocked(pool Pool) []victim {
	out := make([]victim, 0, len(c.entries))
	for _, ent := range c.entries {
		if ent.draining {
			continue
		}
		bytes := ent.deviceBytes
		if pool == PoolHost {
			bytes = ent.hostBytes
		}
		if bytes <= 0 {
			continue
		}
		out = append(out, victim{
			key:          ent.key,
			priority:     ent.priority,
			lastAccessed: ent.lastAccessed,
			seq:          ent.seq,
			bytes:        bytes,
			pinned:       ent.pins > 0,
		})
	}
	return out
}

// removeLocked completes the Evicting step: bookkeeping and map removal are
// atomic, and the payload is released before the key becomes reusable. A
// failing release is fatal to the slot only; the slot is forced absent so the
// cache never wedges, and the error goes to the telemetry sink. Events are
// staged, not published: the caller publishes them after dropping the mutex
// so a slow publisher never stalls cache operations.
func (c *Cache) removeLocked(key, reason string) {
	ent, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	c.acct.sub(ent.deviceBytes, ent.hostBytes)
	c.evictions++
	cacheEvictions.WithLabelValues(reason).Inc()
	c.updateGaugesLocked()
	if err := ent.payload.Close(); err != nil {
		c.stageLocked(EventError, key, map[string]any{"stage": "release", "error": err.Error()})
	}
	close(ent.state)
	c.stageLocked(EventEvict, key, map[string]any{
		"reason":       reason,
		"device_bytes": ent.deviceBytes,
		"host_bytes":   ent.hostBytes,
	})
}

// Release drops the handle's pin. When the pin count reaches zero the entry
// becomes evictable again. Releasing twice is counted and reported, never a
// crash.
func (c *Cache) Release(h *Handle) error {
	if h == nil || h.ent == nil {
		return nil
	}
	c.mu.Lock()
	if h.released {
		c.doubleReleases++
		cacheDoubleReleases.Inc()
		key := h.ent.key
		c.mu.Unlock()
		c.publish(EventError, key, map[string]any{"stage": "release", "error": "double release"})
		return doubleReleaseError{key: key}
	}
	h.released = true
	ent := h.ent
	if ent.pins > 0 {
		ent.pins--
	}
	if ent.pins == 0 && ent.draining {
		// Wake every Invalidate waiting on this key, not just one.
		ent.broadcastLocked()
	}
	c.mu.Unlock()
	return nil
}

// Invalidate forcibly evicts key regardless of priority, waiting for the pin
// count to reach zero first. Absent keys are a no-op. Cancelling the ctx
// abandons the wait and leaves the entry resident.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	for {
		c.mu.Lock()
		ent, ok := c.entries[key]
		if !ok {
			c.mu.Unlock()
			return nil
		}
		if ent.pins == 0 {
			c.removeLocked(key, "invalidate")
			evs := c.drainLocked()
			c.mu.Unlock()
			c.publishAll(evs)
			return nil
		}
		ent.draining = true
		state := ent.state
		c.mu.Unlock()

		select {
		case <-state:
			// Re-check under the lock: the pins may be gone, a pin may have
			// raced in before draining was set, or a concurrent invalidate
			// may already have removed the entry.
		case <-ctx.Done():
			c.mu.Lock()
			if cur, ok := c.entries[key]; ok && cur == ent {
				cur.draining = false
				// Flights and waiters parked on the drain must re-check,
				// or they would sit out a drain that no longer exists.
				cur.broadcastLocked()
			}
			c.mu.Unlock()
			return ctx.Err()
		}
	}
}

// TryInvalidate is the non-blocking variant: it fails with Busy when the
// entry is pinned instead of waiting, and with NotFound when the key is not
// resident.
func (c *Cache) TryInvalidate(key string) error {
	c.mu.Lock()
	ent, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return ErrNotFound(key)
	}
	if ent.pins > 0 {
		c.mu.Unlock()
		return ErrBusy(key)
	}
	c.removeLocked(key, "invalidate")
	evs := c.drainLocked()
	c.mu.Unlock()
	c.publishAll(evs)
	return nil
}

// Reconcile evicts entries whose key the predicate rejects. Called after a
// registry rescan so no entry outlives its descriptor's registration.
func (c *Cache) Reconcile(ctx context.Context, valid func(key string) bool) error {
	c.mu.Lock()
	var stale []string
	for k := range c.entries {
		if !valid(k) {
			stale = append(stale, k)
		}
	}
	c.mu.Unlock()
	for _, k := range stale {
		if err := c.Invalidate(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// Clear evicts every entry, blocking on pinned ones. Used at shutdown.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.Unlock()
	for _, k := range keys {
		if err := c.Invalidate(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// Memory exposes the accountant for capacity/pressure queries.
func (c *Cache) Memory() *Accountant { return c.acct }

func (c *Cache) publish(name, key string, fields map[string]any) {
	c.publisher.Publish(Event{Name: name, Key: key, At: time.Now(), Fields: fields})
}

// stageLocked records an event while holding the mutex. drainLocked hands the
// batch to the caller, which publishes it once the mutex is released.
func (c *Cache) stageLocked(name, key string, fields map[string]any) {
	c.staged = append(c.staged, Event{Name: name, Key: key, At: time.Now(), Fields: fields})
}

func (c *Cache) drainLocked() []Event {
	evs := c.staged
	c.staged = nil
	return evs
}

func (c *Cache) publishAll(evs []Event) {
	for _, ev := range evs {
		c.publisher.Publish(ev)
	}
}
