package types

// GenerateParams are the user-tunable knobs of a generation job.
// Validation ranges are enforced by the jobs layer before submission.
type GenerateParams struct {
	// Required prompt text.
	// example: watercolor painting of a lighthouse at dusk
	Prompt string `json:"prompt" example:"watercolor painting of a lighthouse at dusk"`
	// Required reference to the input image the style transfer starts from.
	// Opaque to the daemon; the generation runtime resolves it.
	// example: /data/inputs/3f1c9a6e_input.png
	InputImage string `json:"input_image" example:"/data/inputs/3f1c9a6e_input.png"`
	// Optional negative prompt.
	// example: low quality, blurry, artifacts
	NegativePrompt string `json:"negative_prompt,omitempty" example:"low quality, blurry, artifacts"`
	// Denoising strength in [0,1].
	// example: 0.8
	Strength float64 `json:"strength,omitempty" example:"0.8"`
	// Classifier-free guidance scale in [1,30].
	// example: 7.5
	CFGScale float64 `json:"cfg_scale,omitempty" example:"7.5"`
	// Number of sampling steps in [1,150].
	// example: 20
	Steps int `json:"steps,omitempty" example:"20"`
	// Sampler name; must be one of the supported set.
	// example: Euler a
	Sampler string `json:"sampler,omitempty" example:"Euler a"`
	// Random seed; nil lets the server choose.
	// example: 42
	Seed *int64 `json:"seed,omitempty" example:"42"`
}

// JobRequest is the payload of POST /jobs.
type JobRequest struct {
	// Base model resource id to generate with.
	// example: model_dreamshaper-v8
	ModelID string `json:"model_id" example:"model_dreamshaper-v8"`
	// Optional style adapter resource id to blend into the base model.
	// example: lora_ghibli-style
	AdapterID string `json:"adapter_id,omitempty" example:"lora_ghibli-style"`
	// Blend weight for the adapter; >= 0, typically in [0,1]. An explicit 0
	// keeps the adapter loaded but effectively off; nil picks the default.
	// example: 0.75
	AdapterWeight *float64 `json:"adapter_weight,omitempty" example:"0.75"`
	// Generation parameters.
	Params GenerateParams `json:"params"`
}

// JobState is the lifecycle state of a submitted job.
type JobState string

const (
	JobPending    JobState = "pending"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// JobStatus is returned by POST /jobs and GET /jobs/{id}.
type JobStatus struct {
	// Server-issued job identifier.
	// example: 3f1c9a6e-8f2d-4f7a-9c31-0b5d2a6e4f10
	JobID string `json:"job_id" example:"3f1c9a6e-8f2d-4f7a-9c31-0b5d2a6e4f10"`
	// Current lifecycle state.
	// example: processing
	State JobState `json:"state" example:"processing"`
	// Completion fraction in [0,1].
	// example: 0.4
	Progress float64 `json:"progress" example:"0.4"`
	// Human-readable description of the current step.
	// example: loading model
	CurrentStep string `json:"current_step,omitempty" example:"loading model"`
	// Structured failure reason when state is failed.
	// example: out_of_memory
	FailureReason string `json:"failure_reason,omitempty" example:"out_of_memory"`
	// Failure detail when state is failed.
	Error string `json:"error,omitempty"`
	// Path of the produced artifact when state is completed.
	ResultPath string `json:"result_path,omitempty"`
}

// ResourcesResponse wraps the list returned by GET /models.
type ResourcesResponse struct {
	// All registered resources (base models and adapters).
	Resources []Resource `json:"resources"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// CacheEntryStatus summarizes one resident cache entry for /status.
type CacheEntryStatus struct {
	// Cache key (resource id or derived base+adapter key).
	// example: model_dreamshaper-v8
	Key string `json:"key" example:"model_dreamshaper-v8"`
	// Bytes resident in device memory.
	// example: 2132625612
	DeviceBytes int64 `json:"device_bytes" example:"2132625612"`
	// Bytes resident in host memory.
	// example: 0
	HostBytes int64 `json:"host_bytes" example:"0"`
	// Eviction priority tier (low, medium, high).
	// example: medium
	Priority string `json:"priority" example:"medium"`
	// Number of live pins preventing eviction.
	// example: 1
	Pins int `json:"pins" example:"1"`
	// Times this entry was returned by an acquire.
	// example: 7
	AccessCount uint64 `json:"access_count" example:"7"`
	// When the entry was loaded (unix seconds).
	// example: 1700000000
	LoadedAt int64 `json:"loaded_at_unix" example:"1700000000"`
	// Last access time (unix seconds).
	// example: 1700000100
	LastAccessed int64 `json:"last_accessed_unix" example:"1700000100"`
}

// PoolStatus reports byte accounting for one memory pool.
type PoolStatus struct {
	// Configured ceiling in bytes (0 = pool unavailable).
	// example: 10737418240
	CapacityBytes int64 `json:"capacity_bytes" example:"10737418240"`
	// Bytes currently attributed to live cache entries.
	// example: 2132625612
	UsedBytes int64 `json:"used_bytes" example:"2132625612"`
	// used/capacity; 0 when capacity is 0.
	// example: 0.19
	Utilization float64 `json:"utilization" example:"0.19"`
	// Whether utilization crossed the pressure threshold.
	// example: false
	UnderPressure bool `json:"under_pressure" example:"false"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Resident cache entries.
	Entries []CacheEntryStatus `json:"entries"`
	// Device pool accounting.
	Device PoolStatus `json:"device"`
	// Host pool accounting.
	Host PoolStatus `json:"host"`
	// Cache hits since start.
	// example: 42
	Hits uint64 `json:"hits" example:"42"`
	// Cache misses since start.
	// example: 7
	Misses uint64 `json:"misses" example:"7"`
	// Entries evicted to free memory since start.
	// example: 3
	Evictions uint64 `json:"evictions" example:"3"`
	// hits/(hits+misses); 0 when no acquires yet.
	// example: 0.857
	HitRate float64 `json:"hit_rate" example:"0.857"`
	// Number of registered resources.
	// example: 12
	RegisteredResources int `json:"registered_resources" example:"12"`
	// Jobs currently queued or processing.
	// example: 1
	ActiveJobs int `json:"active_jobs" example:"1"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
