package cache

// Handle is a non-owning, pinned reference to a resident resource. The holder
// may use the payload for generation work until it calls Release; the entry
// cannot be evicted while any handle is unreleased.
type Handle struct {
	ent      *entry
	released bool // guarded by the cache mutex
}

// Key returns the cache key this handle pins.
func (h *Handle) Key() string { return h.ent.key }

// Payload returns the loaded resource. Valid only until Release.
func (h *Handle) Payload() Payload { return h.ent.payload }
