package types

import "time"

// ResourceKind distinguishes the two classes of heavyweight artifacts the
// daemon can load: full base-model pipelines and style-adapter weights.
type ResourceKind string

const (
	KindBaseModel ResourceKind = "base_model"
	KindAdapter   ResourceKind = "adapter"
)

// Resource describes a discoverable weight file on disk. Descriptors are
// immutable once registered; a rescan replaces them wholesale.
type Resource struct {
	// Stable identifier, derived from kind and file stem.
	// example: model_dreamshaper-v8
	ID string `json:"id" example:"model_dreamshaper-v8"`
	// Human-friendly name (the file stem).
	// example: dreamshaper-v8
	Name string `json:"name" example:"dreamshaper-v8"`
	// Resource class: base_model or adapter.
	// example: base_model
	Kind ResourceKind `json:"kind" example:"base_model"`
	// Absolute path to the weight file on disk.
	// example: /data/models/dreamshaper-v8.safetensors
	Path string `json:"path" example:"/data/models/dreamshaper-v8.safetensors"`
	// File size in bytes, used as the declared size estimate for admission.
	// example: 2132625612
	SizeBytes int64 `json:"size_bytes" example:"2132625612"`
	// File format (extension without the dot).
	// example: safetensors
	Format string `json:"format" example:"safetensors"`
	// When the scan discovered this file.
	DiscoveredAt time.Time `json:"discovered_at"`
}
