package cache

import (
	"testing"
	"time"
)

func at(sec int) time.Time { return time.Unix(int64(sec), 0) }

func TestPlanEvictionPriorityThenLRU(t *testing.T) {
	candidates := []victim{
		{key: "A", priority: PriorityLow, lastAccessed: at(1), seq: 1, bytes: 100},
		{key: "B", priority: PriorityHigh, lastAccessed: at(2), seq: 2, bytes: 100},
		{key: "C", priority: PriorityLow, lastAccessed: at(3), seq: 3, bytes: 100},
	}

	// Freeing one entry's worth picks the low-priority LRU first.
	plan := planEviction(candidates, 100)
	if len(plan.victims) != 1 || plan.victims[0] != "A" {
		t.Fatalf("expected [A], got %v", plan.victims)
	}

	// Freeing everything orders A before C before B.
	plan = planEviction(candidates, 300)
	want := []string{"A", "C", "B"}
	if len(plan.victims) != len(want) {
		t.Fatalf("expected %v, got %v", want, plan.victims)
	}
	for i := range want {
		if plan.victims[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, plan.victims)
		}
	}
	if plan.freed != 300 || plan.partial {
		t.Fatalf("expected freed=300 complete, got freed=%d partial=%v", plan.freed, plan.partial)
	}
}

func TestPlanEvictionStableOnEqualTimestamps(t *testing.T) {
	// Same priority and lastAccessed: insertion order decides, so eviction
	// stays deterministic for testing.
	candidates := []victim{
		{key: "second", priority: PriorityMedium, lastAccessed: at(5), seq: 2, bytes: 10},
		{key: "first", priority: PriorityMedium, lastAccessed: at(5), seq: 1, bytes: 10},
	}
	plan := planEviction(candidates, 10)
	if len(plan.victims) != 1 || plan.victims[0] != "first" {
		t.Fatalf("expected insertion-order tiebreak, got %v", plan.victims)
	}
}

func TestPlanEvictionSkipsPinned(t *testing.T) {
	candidates := []victim{
		{key: "pinned", priority: PriorityLow, lastAccessed: at(1), seq: 1, bytes: 100, pinned: true},
		{key: "free", priority: PriorityHigh, lastAccessed: at(2), seq: 2, bytes: 100},
	}
	plan := planEviction(candidates, 200)
	if len(plan.victims) != 1 || plan.victims[0] != "free" {
		t.Fatalf("expected only the unpinned entry, got %v", plan.victims)
	}
	if !plan.partial {
		t.Fatalf("expected partial plan when pinned entries block the target")
	}
	if plan.freed != 100 {
		t.Fatalf("expected freed=100, got %d", plan.freed)
	}
}

func TestPlanEvictionStopsAtTarget(t *testing.T) {
	candidates := []victim{
		{key: "a", priority: PriorityLow, lastAccessed: at(1), seq: 1, bytes: 60},
		{key: "b", priority: PriorityLow, lastAccessed: at(2), seq: 2, bytes: 60},
		{key: "c", priority: PriorityLow, lastAccessed: at(3), seq: 3, bytes: 60},
	}
	plan := planEviction(candidates, 100)
	if len(plan.victims) != 2 {
		t.Fatalf("expected 2 victims to cover 100 bytes, got %v", plan.victims)
	}
	if plan.freed != 120 {
		t.Fatalf("expected freed=120, got %d", plan.freed)
	}
}

func TestParsePriority(t *testing.T) {
	cases := []struct {
		in   string
		want Priority
	}{
		{"low", PriorityLow},
		{"medium", PriorityMedium},
		{"high", PriorityHigh},
		{"", PriorityMedium},
		{"bogus", PriorityMedium},
	}
	for _, tc := range cases {
		if got := ParsePriority(tc.in); got != tc.want {
			t.Fatalf("ParsePriority(%q)=%v want %v", tc.in, got, tc.want)
		}
	}
	if PriorityLow.String() != "low" || PriorityHigh.String() != "high" {
		t.Fatalf("unexpected Priority string forms")
	}
}
