package cache

import (
	"sort"
	"time"
)

// Priority is an eviction tier. Lower priority entries are evicted first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ParsePriority maps a config string to a Priority, defaulting to medium.
func ParsePriority(s string) Priority {
	switch s {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// victim is one eviction candidate as seen by the policy.
type victim struct {
	key          string
	priority     Priority
	lastAccessed time.Time
	seq          uint64 // insertion order, breaks lastAccessed ties
	bytes        int64  // contribution to the pool under pressure
	pinned       bool
}

// evictionPlan is the policy's output: an ordered list of victims and the
// total bytes evicting them would free in the pool. The cache performs the
// actual release; the policy only computes the plan.
type evictionPlan struct {
	victims []string
	freed   int64
	partial bool // target not reachable, pinned entries in the way
}

// planEviction selects victims to free at least target bytes, evicting lower
// priority first and least-recently-used within equal priority. Pinned
// entries are never selected. When the target cannot be met the plan is
// partial and contains every unpinned candidate.
func planEviction(candidates []victim, target int64) evictionPlan {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].priority != candidates[j].priority {
			return candidates[i].priority < candidates[j].priority
		}
		if !candidates[i].lastAccessed.Equal(candidates[j].lastAccessed) {
			return candidates[i].lastAccessed.Before(candidates[j].lastAccessed)
		}
		return candidates[i].seq < candidates[j].seq
	})

	var plan evictionPlan
	for _, c := range candidates {
		if plan.freed >= target {
			return plan
		}
		if c.pinned {
			continue
		}
		plan.victims = append(plan.victims, c.key)
		plan.freed += c.bytes
	}
	if plan.freed < target {
		plan.partial = true
	}
	return plan
}
