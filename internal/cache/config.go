package cache

import "time"

// Defaults applied when corresponding Config fields are unset.
const (
	defaultPressureThreshold = 0.85
	defaultPriority          = PriorityMedium
)

// Config encapsulates all tunables for Cache construction.
type Config struct {
	// MaxDeviceBytes caps the device pool. Zero disables the budget
	// (no accelerator, or unlimited).
	MaxDeviceBytes int64
	// MaxHostBytes caps the host pool. Zero disables the budget.
	MaxHostBytes int64
	// PressureThreshold is the utilization fraction at which a pool
	// reports pressure. Defaults to 0.85.
	PressureThreshold float64
	// WaitTimeout bounds how long an acquire may wait on another caller's
	// in-flight load. Zero means unbounded.
	WaitTimeout time.Duration
	// Resolver maps keys to descriptors. Required.
	Resolver Resolver
	// Loader performs the actual load. Required.
	Loader Loader
	// Publisher receives telemetry events. Nil means drop them.
	Publisher EventPublisher
	// Probe supplies raw memory telemetry for Stats. Nil degrades to zeros.
	Probe Probe
}

// New constructs a Cache from Config.
func New(cfg Config) *Cache {
	pub := cfg.Publisher
	if pub == nil {
		pub = noopPublisher{}
	}
	c := &Cache{
		entries:     make(map[string]*entry),
		resolver:    cfg.Resolver,
		loader:      cfg.Loader,
		publisher:   pub,
		waitTimeout: cfg.WaitTimeout,
		acct:        newAccountant(cfg.MaxDeviceBytes, cfg.MaxHostBytes, cfg.PressureThreshold, cfg.Probe),
		startTime:   time.Now(),
	}
	return c
}
