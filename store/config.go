// Package store wraps the ring package with the operational concerns a
// deployed instance needs around it — logging, tracing, metrics, and
// configuration — while keeping ring.Ring itself free of them, the way
// yanet-platform/yanet2's coordinator package wraps lower-level primitives
// without the primitives themselves carrying operational weight.
package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration for a scaleout message store
// instance. It mirrors ring.Config's tunables plus the prefix used when
// registering Prometheus metrics.
type Config struct {
	// Capacity is the requested logical capacity in messages.
	Capacity uint32 `yaml:"capacity"`
	// FragmentCushion is F; the ring allocates F+1 fragment slots.
	FragmentCushion uint64 `yaml:"fragment_cushion"`
	// MaxPerFragment caps slots per fragment.
	MaxPerFragment uint64 `yaml:"max_per_fragment"`
	// TracePrefix names the spans and metrics this store emits.
	TracePrefix string `yaml:"trace_prefix"`
}

// DefaultConfig returns a Config with Capacity and TracePrefix set.
// FragmentCushion and MaxPerFragment are left zero, so the ring package
// fills them in with its own defaults. Capacity defaults to 4096 messages,
// a reasonable backplane buffer for a single connection fan-out group; the
// ring package itself would otherwise floor an unset Capacity to 32.
func DefaultConfig() *Config {
	return &Config{
		Capacity:    4096,
		TracePrefix: "scaleoutstore",
	}
}

// LoadConfig loads configuration from a YAML file at path, starting from
// DefaultConfig and overlaying whatever the file specifies.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	return cfg, nil
}
