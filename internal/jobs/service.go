// Package jobs runs generation requests asynchronously. Submissions are
// validated against the registry, queued with bounded depth, and processed by
// a fixed pool of workers that acquire pipelines from the cache, generate,
// and release. Job records are kept in memory for status polling.
package jobs

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"stylerd/internal/cache"
	"stylerd/internal/pipeline"
	"stylerd/internal/registry"
	"stylerd/pkg/types"
)

const (
	defaultQueueDepth    = 32
	defaultConcurrency   = 1
	defaultAdapterWeight = 0.75
)

// Config wires a Service. Registry, Cache and Runtime are required.
type Config struct {
	Registry *registry.Registry
	Cache    *cache.Cache
	Runtime  pipeline.Runtime

	// DefaultModel, when set, is used for requests that omit model_id and
	// its cache entry is held at high priority.
	DefaultModel string

	// MaxQueueDepth bounds pending jobs; submissions beyond it are
	// rejected with a too-busy error. Defaults to 32.
	MaxQueueDepth int

	// MaxConcurrent is the worker count. Defaults to 1: generation
	// saturates the device, so concurrency buys latency, not throughput.
	MaxConcurrent int

	// BaseCtx is the lifecycle context for workers. Defaults to
	// context.Background().
	BaseCtx context.Context
}

type task struct {
	id      string
	model   types.Resource
	adapter *types.Resource
	weight  float64
	params  types.GenerateParams
}

// Service accepts, queues and executes generation jobs.
type Service struct {
	registry     *registry.Registry
	cache        *cache.Cache
	runtime      pipeline.Runtime
	defaultModel string
	baseCtx      context.Context

	queue chan *task
	wg    sync.WaitGroup

	mu     sync.Mutex
	jobs   map[string]*types.JobStatus
	active int
	closed bool
}

// New builds a Service and starts its workers.
func New(cfg Config) *Service {
	depth := cfg.MaxQueueDepth
	if depth <= 0 {
		depth = defaultQueueDepth
	}
	workers := cfg.MaxConcurrent
	if workers <= 0 {
		workers = defaultConcurrency
	}
	base := cfg.BaseCtx
	if base == nil {
		base = context.Background()
	}
	s := &Service{
		registry:     cfg.Registry,
		cache:        cfg.Cache,
		runtime:      cfg.Runtime,
		defaultModel: cfg.DefaultModel,
		baseCtx:      base,
		queue:        make(chan *task, depth),
		jobs:         make(map[string]*types.JobStatus),
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Submit validates the request, assigns a job id and enqueues it. The
// returned status is a snapshot in the pending state. Errors map to HTTP
// statuses upstream: IsValidation 400, IsUnknownResource 404, IsTooBusy 429.
func (s *Service) Submit(req types.JobRequest) (types.JobStatus, error) {
	if err := ValidateParams(&req.Params); err != nil {
		return types.JobStatus{}, err
	}

	modelID := req.ModelID
	if modelID == "" {
		modelID = s.defaultModel
	}
	if modelID == "" {
		return types.JobStatus{}, ErrValidation("model_id is required")
	}
	model, ok := s.registry.Get(modelID)
	if !ok {
		return types.JobStatus{}, ErrUnknownResource(modelID)
	}
	if model.Kind != types.KindBaseModel {
		return types.JobStatus{}, ErrValidation("resource is not a base model: " + modelID)
	}

	t := &task{id: uuid.NewString(), model: model, params: req.Params}
	if req.AdapterID != "" {
		adapter, ok := s.registry.Get(req.AdapterID)
		if !ok {
			return types.JobStatus{}, ErrUnknownResource(req.AdapterID)
		}
		if adapter.Kind != types.KindAdapter {
			return types.JobStatus{}, ErrValidation("resource is not an adapter: " + req.AdapterID)
		}
		t.adapter = &adapter
		// Only an absent weight defaults; an explicit 0 keeps the adapter
		// loaded but effectively off.
		t.weight = defaultAdapterWeight
		if req.AdapterWeight != nil {
			if *req.AdapterWeight < 0 {
				return types.JobStatus{}, ErrValidation("adapter_weight must be >= 0")
			}
			t.weight = *req.AdapterWeight
		}
	}

	// The enqueue happens under the mutex so it cannot race Close closing
	// the channel.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return types.JobStatus{}, ErrTooBusy()
	}
	select {
	case s.queue <- t:
	default:
		s.mu.Unlock()
		return types.JobStatus{}, ErrTooBusy()
	}
	status := &types.JobStatus{JobID: t.id, State: types.JobPending}
	s.jobs[t.id] = status
	s.active++
	snap := *status
	s.mu.Unlock()

	log.Printf("jobs event=submitted job=%s model=%q adapter=%v", t.id, t.model.ID, req.AdapterID)
	return snap, nil
}

// Get returns a snapshot of the job record, if it exists.
func (s *Service) Get(id string) (types.JobStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.jobs[id]
	if !ok {
		return types.JobStatus{}, false
	}
	return *st, true
}

// Active reports jobs that are pending or processing.
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Close stops accepting submissions and waits for in-flight jobs to finish.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

func (s *Service) worker() {
	defer s.wg.Done()
	for t := range s.queue {
		s.process(t)
	}
}

func (s *Service) process(t *task) {
	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	s.update(t.id, func(st *types.JobStatus) {
		st.State = types.JobProcessing
		st.CurrentStep = "loading model"
	})

	prio := cache.PriorityMedium
	if t.model.ID == s.defaultModel {
		prio = cache.PriorityHigh
	}
	baseHandle, err := s.cache.Acquire(s.baseCtx, t.model.ID, cache.WithPriority(prio))
	if err != nil {
		s.fail(t.id, err)
		return
	}
	defer s.release(t.id, baseHandle)
	pipe := baseHandle.Payload().(pipeline.Pipeline)

	if t.adapter != nil {
		s.update(t.id, func(st *types.JobStatus) { st.CurrentStep = "composing adapter" })
		key := pipeline.DerivedKey(t.model.ID, t.adapter.ID, t.weight)
		desc := pipeline.DerivedDescriptor(t.model, *t.adapter, t.weight)
		composed, err := s.cache.Acquire(s.baseCtx, key,
			cache.WithPriority(cache.PriorityLow),
			cache.WithLoader(pipeline.ComposedLoader(s.runtime, pipe, *t.adapter, t.weight)),
			cache.WithDescriptor(desc))
		if err != nil {
			s.fail(t.id, err)
			return
		}
		defer s.release(t.id, composed)
		pipe = composed.Payload().(pipeline.Pipeline)
	}

	progress := func(step string, frac float64) {
		s.update(t.id, func(st *types.JobStatus) {
			st.CurrentStep = step
			st.Progress = frac
		})
	}
	path, err := pipe.Generate(s.baseCtx, t.params, progress)
	if err != nil {
		s.fail(t.id, err)
		return
	}

	s.update(t.id, func(st *types.JobStatus) {
		st.State = types.JobCompleted
		st.Progress = 1
		st.CurrentStep = ""
		st.ResultPath = path
	})
	log.Printf("jobs event=completed job=%s result=%q", t.id, path)
}

func (s *Service) release(jobID string, h *cache.Handle) {
	if err := s.cache.Release(h); err != nil {
		log.Printf("jobs event=release_error job=%s key=%s err=%v", jobID, h.Key(), err)
	}
}

func (s *Service) update(id string, fn func(*types.JobStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.jobs[id]; ok {
		fn(st)
	}
}

func (s *Service) fail(id string, err error) {
	reason := failureReason(err)
	s.update(id, func(st *types.JobStatus) {
		st.State = types.JobFailed
		st.CurrentStep = ""
		st.FailureReason = reason
		st.Error = err.Error()
	})
	log.Printf("jobs event=failed job=%s reason=%s err=%v", id, reason, err)
}

// failureReason maps cache and context errors to the stable machine-readable
// reasons reported in job status.
func failureReason(err error) string {
	switch {
	case cache.IsNotFound(err):
		return "model_not_found"
	case cache.IsCapacityExceeded(err):
		return "out_of_memory"
	case cache.IsLoadFailed(err):
		return "load_error"
	case cache.IsBusy(err):
		return "busy"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
