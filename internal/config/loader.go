package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	LorasDir  string `json:"loras_dir" yaml:"loras_dir" toml:"loras_dir"`
	OutputDir string `json:"output_dir" yaml:"output_dir" toml:"output_dir"`

	// Memory pool budgets in MB. 0 means unbudgeted.
	DeviceBudgetMB int `json:"device_budget_mb" yaml:"device_budget_mb" toml:"device_budget_mb"`
	HostBudgetMB   int `json:"host_budget_mb" yaml:"host_budget_mb" toml:"host_budget_mb"`

	// PressureThreshold is the used/capacity fraction at which the pools
	// report memory pressure. 0 uses the built-in default.
	PressureThreshold float64 `json:"pressure_threshold" yaml:"pressure_threshold" toml:"pressure_threshold"`

	// WaitTimeoutSec bounds how long an acquire waits behind an in-flight
	// load of the same resource before returning busy. 0 disables.
	WaitTimeoutSec int `json:"wait_timeout_sec" yaml:"wait_timeout_sec" toml:"wait_timeout_sec"`

	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`

	MaxQueueDepth int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent" toml:"max_concurrent"`

	MaxBodyBytes int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	LogLevel     string `json:"log_level" yaml:"log_level" toml:"log_level"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
	CORSAllowedMethods []string `json:"cors_allowed_methods" yaml:"cors_allowed_methods" toml:"cors_allowed_methods"`
	CORSAllowedHeaders []string `json:"cors_allowed_headers" yaml:"cors_allowed_headers" toml:"cors_allowed_headers"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
