package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stylerd/pkg/types"
)

// fakePayload counts closes so tests can assert payload ownership.
type fakePayload struct {
	mu       sync.Mutex
	closes   int
	closeErr error
}

func (p *fakePayload) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	return p.closeErr
}

func (p *fakePayload) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

// mapResolver is a fixed id -> descriptor table.
type mapResolver map[string]types.Resource

func (m mapResolver) Get(id string) (types.Resource, bool) {
	r, ok := m[id]
	return r, ok
}

// countingLoader loads fixed-size payloads and records invocations.
type countingLoader struct {
	mu       sync.Mutex
	calls    int
	err      error
	gate     chan struct{} // when set, Load blocks until the gate closes
	payloads map[string]*fakePayload
}

func newCountingLoader() *countingLoader {
	return &countingLoader{payloads: make(map[string]*fakePayload)}
}

func (l *countingLoader) Load(ctx context.Context, desc types.Resource) (LoadResult, error) {
	l.mu.Lock()
	l.calls++
	gate := l.gate
	err := l.err
	l.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return LoadResult{}, err
	}
	p := &fakePayload{}
	l.mu.Lock()
	l.payloads[desc.ID] = p
	l.mu.Unlock()
	return LoadResult{Payload: p, DeviceBytes: desc.SizeBytes}, nil
}

func (l *countingLoader) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *countingLoader) payload(id string) *fakePayload {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.payloads[id]
}

func (l *countingLoader) setErr(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}

// helper: descriptor with declared size
func res(id string, size int64) types.Resource {
	return types.Resource{ID: id, Name: id, Kind: types.KindBaseModel, Path: "/data/" + id, SizeBytes: size}
}

func newTestCache(t *testing.T, deviceCap int64, reg mapResolver, ldr Loader) *Cache {
	t.Helper()
	return New(Config{
		MaxDeviceBytes: deviceCap,
		Resolver:       reg,
		Loader:         ldr,
	})
}

func TestAcquireRoundTrip(t *testing.T) {
	ldr := newCountingLoader()
	pub := NewMemoryPublisher()
	c := New(Config{
		MaxDeviceBytes: 10000,
		Resolver:       mapResolver{"m1": res("m1", 4000)},
		Loader:         ldr,
		Publisher:      pub,
	})

	h1, err := c.Acquire(context.Background(), "m1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if got := c.Memory().Used(PoolDevice); got != 4000 {
		t.Fatalf("expected 4000 device bytes used, got %d", got)
	}

	h2, err := c.Acquire(context.Background(), "m1")
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if got := c.Memory().Used(PoolDevice); got != 4000 {
		t.Fatalf("hit must not change bytes used, got %d", got)
	}
	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Fatalf("expected hits=1 misses=1, got hits=%d misses=%d", s.Hits, s.Misses)
	}
	if ldr.callCount() != 1 {
		t.Fatalf("expected 1 load, got %d", ldr.callCount())
	}

	if err := c.Release(h1); err != nil {
		t.Fatalf("release h1: %v", err)
	}
	if err := c.Release(h2); err != nil {
		t.Fatalf("release h2: %v", err)
	}
	if err := c.Invalidate(context.Background(), "m1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if got := c.Memory().Used(PoolDevice); got != 0 {
		t.Fatalf("expected 0 bytes after invalidate, got %d", got)
	}
	if ldr.payload("m1").closeCount() != 1 {
		t.Fatalf("expected payload closed exactly once, got %d", ldr.payload("m1").closeCount())
	}

	// Telemetry: one miss, one hit, one load, one evict.
	for _, name := range []string{EventMiss, EventHit, EventLoadStart, EventLoadEnd, EventEvict} {
		if n := len(pub.Named(name)); n != 1 {
			t.Fatalf("expected 1 %q event, got %d", name, n)
		}
	}
}

func TestAcquireNotFound(t *testing.T) {
	c := newTestCache(t, 0, mapResolver{}, newCountingLoader())
	_, err := c.Acquire(context.Background(), "ghost")
	if err == nil || !IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestSingleflightCollapsesConcurrentLoads(t *testing.T) {
	const n = 8
	ldr := newCountingLoader()
	ldr.gate = make(chan struct{})
	c := newTestCache(t, 0, mapResolver{"m1": res("m1", 100)}, ldr)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := c.Acquire(context.Background(), "m1")
			errs[i] = err
			if err == nil {
				_ = c.Release(h)
			}
		}(i)
	}
	// Let all callers reach the in-flight wait, then release the load.
	time.Sleep(50 * time.Millisecond)
	close(ldr.gate)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if ldr.callCount() != 1 {
		t.Fatalf("expected exactly 1 load, got %d", ldr.callCount())
	}
	s := c.Stats()
	if s.Hits+s.Misses != n {
		t.Fatalf("expected hits+misses=%d, got %d", n, s.Hits+s.Misses)
	}
}

func TestHitMissAccounting(t *testing.T) {
	c := newTestCache(t, 0, mapResolver{"m1": res("m1", 100)}, newCountingLoader())
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		h, err := c.Acquire(ctx, "m1")
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		_ = c.Release(h)
	}
	s := c.Stats()
	if s.Misses != 1 || s.Hits != 3 {
		t.Fatalf("expected misses=1 hits=3, got misses=%d hits=%d", s.Misses, s.Hits)
	}
	if s.HitRate != 0.75 {
		t.Fatalf("expected hit rate 0.75, got %v", s.HitRate)
	}
}

func TestEvictionUnderPressure(t *testing.T) {
	ldr := newCountingLoader()
	c := newTestCache(t, 10000, mapResolver{
		"a": res("a", 6000),
		"b": res("b", 6000),
	}, ldr)
	ctx := context.Background()

	ha, err := c.Acquire(ctx, "a")
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	_ = c.Release(ha)

	hb, err := c.Acquire(ctx, "b")
	if err != nil {
		t.Fatalf("acquire b: %v", err)
	}
	defer c.Release(hb)

	if got := c.Memory().Used(PoolDevice); got != 6000 {
		t.Fatalf("expected 6000 bytes used after eviction, got %d", got)
	}
	if ldr.payload("a").closeCount() != 1 {
		t.Fatalf("expected a's payload released, closes=%d", ldr.payload("a").closeCount())
	}
	s := c.Stats()
	if s.Evictions != 1 {
		t.Fatalf("expected 1 eviction, got %d", s.Evictions)
	}
}

func TestPinnedEntryNeverEvicted(t *testing.T) {
	ldr := newCountingLoader()
	c := newTestCache(t, 10000, mapResolver{
		"a": res("a", 6000),
		"b": res("b", 6000),
	}, ldr)
	ctx := context.Background()

	ha, err := c.Acquire(ctx, "a")
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}

	// a is pinned: admitting b cannot free enough, so it must fail rather
	// than evict a or admit over budget.
	if _, err := c.Acquire(ctx, "b"); err == nil || !IsCapacityExceeded(err) {
		t.Fatalf("expected CapacityExceeded while a pinned, got %v", err)
	}
	if got := c.Memory().Used(PoolDevice); got != 6000 {
		t.Fatalf("expected a still resident (6000 bytes), got %d", got)
	}

	_ = c.Release(ha)
	hb, err := c.Acquire(ctx, "b")
	if err != nil {
		t.Fatalf("acquire b after release: %v", err)
	}
	_ = c.Release(hb)
	if got := c.Memory().Used(PoolDevice); got != 6000 {
		t.Fatalf("expected 6000 bytes used, got %d", got)
	}
}

func TestCapacityExceededTooLargeResource(t *testing.T) {
	ldr := newCountingLoader()
	c := newTestCache(t, 10000, mapResolver{"big": res("big", 20000)}, ldr)
	_, err := c.Acquire(context.Background(), "big")
	if err == nil || !IsCapacityExceeded(err) {
		t.Fatalf("expected CapacityExceeded, got %v", err)
	}
	if ldr.callCount() != 0 {
		t.Fatalf("loader must not run for an unloadable resource, calls=%d", ldr.callCount())
	}
}

func TestFailureIsolation(t *testing.T) {
	ldr := newCountingLoader()
	ldr.gate = make(chan struct{})
	boom := errors.New("weights corrupt")
	ldr.setErr(boom)
	c := newTestCache(t, 0, mapResolver{"x": res("x", 100)}, ldr)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Acquire(ctx, "x")
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(ldr.gate)
	wg.Wait()

	for i, err := range errs {
		if err == nil || !IsLoadFailed(err) {
			t.Fatalf("acquire %d: expected LoadFailed, got %v", i, err)
		}
		if !errors.Is(err, boom) {
			t.Fatalf("acquire %d: expected wrapped cause, got %v", i, err)
		}
	}
	if ldr.callCount() != 1 {
		t.Fatalf("expected 1 failed load shared by both callers, got %d", ldr.callCount())
	}

	// Failure is not cached: the next acquire runs a fresh load.
	ldr.mu.Lock()
	ldr.gate = nil
	ldr.mu.Unlock()
	ldr.setErr(nil)
	h, err := c.Acquire(ctx, "x")
	if err != nil {
		t.Fatalf("acquire after failure: %v", err)
	}
	_ = c.Release(h)
	if ldr.callCount() != 2 {
		t.Fatalf("expected a fresh load attempt, calls=%d", ldr.callCount())
	}
}

func TestWaiterCancelDoesNotCancelLoad(t *testing.T) {
	ldr := newCountingLoader()
	ldr.gate = make(chan struct{})
	c := newTestCache(t, 0, mapResolver{"m1": res("m1", 100)}, ldr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Acquire(ctx, "m1")
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-done; err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The load keeps running and the entry is admitted for later callers.
	close(ldr.gate)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if c.Stats().Entries == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("entry never admitted after waiter cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
	h, err := c.Acquire(context.Background(), "m1")
	if err != nil {
		t.Fatalf("acquire after cancel: %v", err)
	}
	_ = c.Release(h)
	if ldr.callCount() != 1 {
		t.Fatalf("expected the original load to be reused, calls=%d", ldr.callCount())
	}
}

func TestWaitTimeoutReturnsBusy(t *testing.T) {
	ldr := newCountingLoader()
	ldr.gate = make(chan struct{})
	c := New(Config{
		Resolver:    mapResolver{"m1": res("m1", 100)},
		Loader:      ldr,
		WaitTimeout: 30 * time.Millisecond,
	})
	_, err := c.Acquire(context.Background(), "m1")
	if err == nil || !IsBusy(err) {
		t.Fatalf("expected Busy on wait timeout, got %v", err)
	}
	close(ldr.gate)
}

func TestInvalidateBlocksUntilRelease(t *testing.T) {
	c := newTestCache(t, 0, mapResolver{"m1": res("m1", 100)}, newCountingLoader())
	ctx := context.Background()
	h, err := c.Acquire(ctx, "m1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- c.Invalidate(ctx, "m1") }()

	select {
	case err := <-done:
		t.Fatalf("invalidate returned while pinned: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	_ = c.Release(h)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("invalidate: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("invalidate did not complete after release")
	}
	if c.Stats().Entries != 0 {
		t.Fatalf("expected empty cache after invalidate")
	}
}

func TestInvalidateCancelLeavesEntryResident(t *testing.T) {
	c := newTestCache(t, 0, mapResolver{"m1": res("m1", 100)}, newCountingLoader())
	h, err := c.Acquire(context.Background(), "m1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := c.Invalidate(ctx, "m1"); err == nil {
		t.Fatalf("expected ctx error from blocked invalidate")
	}
	// Entry must be usable again after the abandoned invalidate.
	h2, err := c.Acquire(context.Background(), "m1")
	if err != nil {
		t.Fatalf("acquire after abandoned invalidate: %v", err)
	}
	_ = c.Release(h2)
	_ = c.Release(h)
}

func TestConcurrentInvalidatesAllUnblock(t *testing.T) {
	c := newTestCache(t, 0, mapResolver{"m1": res("m1", 100)}, newCountingLoader())
	h, err := c.Acquire(context.Background(), "m1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { done <- c.Invalidate(context.Background(), "m1") }()
	}

	select {
	case err := <-done:
		t.Fatalf("invalidate returned while pinned: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	_ = c.Release(h)
	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("invalidate waiter %d: %v", i, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("invalidate waiter %d never returned after entry was removed", i)
		}
	}
	if c.Stats().Entries != 0 {
		t.Fatalf("expected empty cache after concurrent invalidates")
	}
}

func TestAcquireSurvivesAbandonedInvalidate(t *testing.T) {
	ldr := newCountingLoader()
	c := newTestCache(t, 0, mapResolver{"m1": res("m1", 100)}, ldr)
	h, err := c.Acquire(context.Background(), "m1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	invCtx, cancel := context.WithCancel(context.Background())
	invDone := make(chan error, 1)
	go func() { invDone <- c.Invalidate(invCtx, "m1") }()

	waitDraining(t, c, "m1")

	// This acquire sees the drain, treats the key as a miss and parks until
	// the drain resolves one way or the other.
	acqDone := make(chan error, 1)
	var h2 *Handle
	go func() {
		var err error
		h2, err = c.Acquire(context.Background(), "m1")
		acqDone <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-invDone; err == nil {
		t.Fatalf("expected ctx error from abandoned invalidate")
	}

	select {
	case err := <-acqDone:
		if err != nil {
			t.Fatalf("acquire after abandoned invalidate: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("acquire stayed parked after the drain was rolled back")
	}
	if got := ldr.callCount(); got != 1 {
		t.Fatalf("expected the resident entry to be reused, got %d loads", got)
	}
	_ = c.Release(h2)
	_ = c.Release(h)
}

func waitDraining(t *testing.T, c *Cache, key string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		ent, ok := c.entries[key]
		draining := ok && ent.draining
		c.mu.Unlock()
		if draining {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("entry %q never started draining", key)
}

func TestAccountingIdentityUnderChurn(t *testing.T) {
	const workers = 4
	const acquiresPerWorker = 50
	c := newTestCache(t, 0, mapResolver{"m1": res("m1", 100)}, newCountingLoader())

	stop := make(chan struct{})
	var churn sync.WaitGroup
	churn.Add(1)
	go func() {
		defer churn.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = c.TryInvalidate("m1")
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < acquiresPerWorker; j++ {
				h, err := c.Acquire(context.Background(), "m1")
				if err != nil {
					t.Errorf("acquire: %v", err)
					return
				}
				_ = c.Release(h)
			}
		}()
	}
	wg.Wait()
	close(stop)
	churn.Wait()

	s := c.Stats()
	if got := s.Hits + s.Misses; got != workers*acquiresPerWorker {
		t.Fatalf("hits(%d)+misses(%d)=%d, want exactly %d acquires", s.Hits, s.Misses, got, workers*acquiresPerWorker)
	}
}

// reentrantPublisher queries the cache from inside Publish. Telemetry is
// fire-and-forget, so the cache mutex must never be held across a publish.
type reentrantPublisher struct {
	c     *Cache
	mu    sync.Mutex
	names []string
}

func (p *reentrantPublisher) Publish(ev Event) {
	if p.c != nil {
		_ = p.c.Stats()
	}
	p.mu.Lock()
	p.names = append(p.names, ev.Name)
	p.mu.Unlock()
}

func (p *reentrantPublisher) saw(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range p.names {
		if n == name {
			return true
		}
	}
	return false
}

func TestEvictTelemetryDoesNotHoldCacheLock(t *testing.T) {
	pub := &reentrantPublisher{}
	c := New(Config{
		MaxDeviceBytes: 150,
		Resolver:       mapResolver{"a": res("a", 100), "b": res("b", 100)},
		Loader:         newCountingLoader(),
		Publisher:      pub,
	})
	pub.c = c
	ctx := context.Background()

	ha, err := c.Acquire(ctx, "a")
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	_ = c.Release(ha)

	// Admitting b evicts a under pressure; the evict event must be published
	// after the bookkeeping lock is dropped or this deadlocks.
	hb, err := c.Acquire(ctx, "b")
	if err != nil {
		t.Fatalf("acquire b: %v", err)
	}
	_ = c.Release(hb)
	if err := c.TryInvalidate("b"); err != nil {
		t.Fatalf("try invalidate: %v", err)
	}
	if !pub.saw(EventEvict) {
		t.Fatalf("expected evict events, saw %v", pub.names)
	}
}

func TestTryInvalidateBusyWhilePinned(t *testing.T) {
	c := newTestCache(t, 0, mapResolver{"m1": res("m1", 100)}, newCountingLoader())
	h, err := c.Acquire(context.Background(), "m1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := c.TryInvalidate("m1"); err == nil || !IsBusy(err) {
		t.Fatalf("expected Busy, got %v", err)
	}
	_ = c.Release(h)
	if err := c.TryInvalidate("m1"); err != nil {
		t.Fatalf("try invalidate after release: %v", err)
	}
	if c.Stats().Entries != 0 {
		t.Fatalf("expected empty cache")
	}
	if err := c.TryInvalidate("m1"); !IsNotFound(err) {
		t.Fatalf("expected NotFound for absent key, got %v", err)
	}
}

func TestDoubleReleaseIsCountedNotFatal(t *testing.T) {
	c := newTestCache(t, 0, mapResolver{"m1": res("m1", 100)}, newCountingLoader())
	h, err := c.Acquire(context.Background(), "m1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := c.Release(h); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if err := c.Release(h); err == nil || !IsDoubleRelease(err) {
		t.Fatalf("expected DoubleRelease, got %v", err)
	}
	if got := c.Stats().DoubleReleases; got != 1 {
		t.Fatalf("expected 1 double release counted, got %d", got)
	}
}

func TestClearEvictsEverything(t *testing.T) {
	ldr := newCountingLoader()
	c := newTestCache(t, 0, mapResolver{
		"a": res("a", 100),
		"b": res("b", 200),
	}, ldr)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		h, err := c.Acquire(ctx, id)
		if err != nil {
			t.Fatalf("acquire %s: %v", id, err)
		}
		_ = c.Release(h)
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	s := c.Stats()
	if s.Entries != 0 || s.DeviceBytes != 0 {
		t.Fatalf("expected empty cache, entries=%d bytes=%d", s.Entries, s.DeviceBytes)
	}
	for _, id := range []string{"a", "b"} {
		if ldr.payload(id).closeCount() != 1 {
			t.Fatalf("expected %s payload closed once", id)
		}
	}
}

func TestReconcileEvictsUnregisteredKeys(t *testing.T) {
	reg := mapResolver{"a": res("a", 100), "b": res("b", 100)}
	c := newTestCache(t, 0, reg, newCountingLoader())
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		h, err := c.Acquire(ctx, id)
		if err != nil {
			t.Fatalf("acquire %s: %v", id, err)
		}
		_ = c.Release(h)
	}

	// b disappeared on rescan; its entry must not outlive the descriptor.
	if err := c.Reconcile(ctx, func(key string) bool { return key == "a" }); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	infos := c.Entries()
	if len(infos) != 1 || infos[0].Key != "a" {
		t.Fatalf("expected only a resident, got %+v", infos)
	}
}

func TestCapacityInvariantAcrossOperations(t *testing.T) {
	const capacity = 1000
	reg := mapResolver{
		"s": res("s", 300),
		"m": res("m", 450),
		"l": res("l", 600),
	}
	c := newTestCache(t, capacity, reg, newCountingLoader())
	ctx := context.Background()

	check := func(op string) {
		t.Helper()
		if used := c.Memory().Used(PoolDevice); used > capacity {
			t.Fatalf("capacity invariant violated after %s: used=%d cap=%d", op, used, capacity)
		}
	}

	var handles []*Handle
	ids := []string{"s", "m", "l", "s", "l", "m", "s"}
	for i, id := range ids {
		h, err := c.Acquire(ctx, id)
		if err != nil && !IsCapacityExceeded(err) {
			t.Fatalf("acquire %s: %v", id, err)
		}
		if err == nil {
			handles = append(handles, h)
		}
		check("acquire " + id)
		if i%2 == 1 && len(handles) > 0 {
			_ = c.Release(handles[0])
			handles = handles[1:]
			check("release")
		}
	}
	for _, h := range handles {
		_ = c.Release(h)
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	check("clear")
}
