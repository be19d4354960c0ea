package cache

import (
	"sync"
	"time"
)

// Pool is a memory budget category.
type Pool int

const (
	// PoolDevice is accelerator memory (VRAM).
	PoolDevice Pool = iota
	// PoolHost is system RAM used for staging copies and offloaded weights.
	PoolHost
)

func (p Pool) String() string {
	switch p {
	case PoolDevice:
		return "device"
	case PoolHost:
		return "host"
	default:
		return "unknown"
	}
}

// MemoryStats is a point-in-time snapshot of raw memory telemetry, captured
// from a Probe. It is recomputed on every call, never cached.
type MemoryStats struct {
	DeviceAllocated int64     `json:"device_allocated"`
	DeviceReserved  int64     `json:"device_reserved"`
	DeviceTotal     int64     `json:"device_total"`
	HostUsed        int64     `json:"host_used"`
	HostAvailable   int64     `json:"host_available"`
	HostTotal       int64     `json:"host_total"`
	CapturedAt      time.Time `json:"captured_at"`
}

// Probe supplies raw device/host memory telemetry. Implementations wrap
// whatever the generation runtime exposes; a nil probe degrades to zeros
// (no accelerator present).
type Probe interface {
	Snapshot() MemoryStats
}

// Accountant tracks bytes attributed to live cache entries against the
// configured per-pool ceilings. Mutations happen under the owning cache's
// lock; queries are safe from any goroutine and never fail.
type Accountant struct {
	mu                sync.RWMutex
	deviceCap         int64
	hostCap           int64
	pressureThreshold float64
	deviceUsed        int64
	hostUsed          int64
	probe             Probe
}

func newAccountant(deviceCap, hostCap int64, threshold float64, probe Probe) *Accountant {
	if threshold <= 0 {
		threshold = defaultPressureThreshold
	}
	return &Accountant{
		deviceCap:         deviceCap,
		hostCap:           hostCap,
		pressureThreshold: threshold,
		probe:             probe,
	}
}

// Capacity returns the configured ceiling in bytes for the pool.
// Zero means the pool is absent or unbudgeted.
func (a *Accountant) Capacity(p Pool) int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if p == PoolDevice {
		return a.deviceCap
	}
	return a.hostCap
}

// Used returns the bytes currently attributed to live entries in the pool.
func (a *Accountant) Used(p Pool) int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if p == PoolDevice {
		return a.deviceUsed
	}
	return a.hostUsed
}

// Utilization returns used/capacity. A pool with zero capacity reports 0.
// The value may exceed 1.0 transiently when allocation outside the cache's
// knowledge occurs.
func (a *Accountant) Utilization(p Pool) float64 {
	capacity := a.Capacity(p)
	if capacity <= 0 {
		return 0
	}
	return float64(a.Used(p)) / float64(capacity)
}

// UnderPressure reports whether utilization crossed the pressure threshold.
func (a *Accountant) UnderPressure(p Pool) bool {
	return a.Utilization(p) >= a.pressureThreshold
}

// Stats captures a raw memory snapshot from the probe. With no probe
// configured every field is zero except the capture timestamp.
func (a *Accountant) Stats() MemoryStats {
	if a.probe != nil {
		return a.probe.Snapshot()
	}
	return MemoryStats{CapturedAt: time.Now()}
}

func (a *Accountant) add(device, host int64) {
	a.mu.Lock()
	a.deviceUsed += device
	a.hostUsed += host
	a.mu.Unlock()
}

func (a *Accountant) sub(device, host int64) {
	a.mu.Lock()
	a.deviceUsed -= device
	a.hostUsed -= host
	if a.deviceUsed < 0 {
		a.deviceUsed = 0
	}
	if a.hostUsed < 0 {
		a.hostUsed = 0
	}
	a.mu.Unlock()
}
