package cache

import (
	"sort"
	"time"
)

// Stats is a read-only counters snapshot. Hits+Misses equals the total
// number of Acquire calls ever made.
type Stats struct {
	Entries        int
	DeviceBytes    int64
	HostBytes      int64
	Hits           uint64
	Misses         uint64
	Evictions      uint64
	DoubleReleases uint64
	HitRate        float64
	Uptime         time.Duration
}

// Stats returns current counters and per-pool usage.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		Entries:        len(c.entries),
		DeviceBytes:    c.acct.Used(PoolDevice),
		HostBytes:      c.acct.Used(PoolHost),
		Hits:           c.hits,
		Misses:         c.misses,
		Evictions:      c.evictions,
		DoubleReleases: c.doubleReleases,
		Uptime:         time.Since(c.startTime),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// EntryInfo is a read-only projection of one resident entry.
type EntryInfo struct {
	Key          string
	DeviceBytes  int64
	HostBytes    int64
	Priority     Priority
	Pins         int
	AccessCount  uint64
	LoadedAt     time.Time
	LastAccessed time.Time
}

// Entries returns a snapshot of resident entries, sorted by key.
func (c *Cache) Entries() []EntryInfo {
	c.mu.Lock()
	out := make([]EntryInfo, 0, len(c.entries))
	for _, ent := range c.entries {
		out = append(out, EntryInfo{
			Key:          ent.key,
			DeviceBytes:  ent.deviceBytes,
			HostBytes:    ent.hostBytes,
			Priority:     ent.priority,
			Pins:         ent.pins,
			AccessCount:  ent.accessCount,
			LoadedAt:     ent.loadedAt,
			LastAccessed: ent.lastAccessed,
		})
	}
	c.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
