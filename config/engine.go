// Package config holds the config-driven construction parameters for
// package engine.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// EngineConfig configures an engine.Engine. engine.New takes it by value
// and keeps that copy, so later changes to the caller's struct do not
// reach a running engine.
//
// Example JSON:
//
//	{
//	  "workers": 4,
//	  "worker_cap": 16,
//	  "drain_on_shutdown": true,
//	  "observer": "slog"
//	}
type EngineConfig struct {
	// Workers specifies the exact worker pool size. 0 auto-detects as
	// min(runtime.NumCPU()*2, WorkerCap).
	Workers int `json:"workers"`

	// WorkerCap bounds auto-detected worker count.
	WorkerCap int `json:"worker_cap"`

	// DrainOnShutdownNil controls whether Engine.Close lets the workers
	// dispatch queued tasks before stopping, or abandons them undispatched
	// (they are not cancelled). Use DrainOnShutdown() to read; nil
	// defaults to true.
	DrainOnShutdownNil *bool `json:"drain_on_shutdown"`

	// Observer names a registered observability.Observer ("noop",
	// "slog", ...) resolved at construction time.
	Observer string `json:"observer"`
}

// DrainOnShutdown reports the effective drain-on-shutdown setting.
func (c *EngineConfig) DrainOnShutdown() bool {
	if c.DrainOnShutdownNil == nil {
		return true
	}
	return *c.DrainOnShutdownNil
}

// DefaultEngineConfig returns sensible defaults: auto-detected worker
// count capped at 16, draining the queue on shutdown, and the "slog"
// observer.
func DefaultEngineConfig() EngineConfig {
	drain := true
	return EngineConfig{
		Workers:            0,
		WorkerCap:          16,
		DrainOnShutdownNil: &drain,
		Observer:           "slog",
	}
}

// Merge applies non-zero values from source into c.
func (c *EngineConfig) Merge(source *EngineConfig) {
	if source.Workers > 0 {
		c.Workers = source.Workers
	}
	if source.WorkerCap > 0 {
		c.WorkerCap = source.WorkerCap
	}
	if source.DrainOnShutdownNil != nil {
		c.DrainOnShutdownNil = source.DrainOnShutdownNil
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// LoadJSON reads a JSON config file, merges it onto the defaults, and
// returns the result.
func LoadJSON(filename string) (*EngineConfig, error) {
	cfg := DefaultEngineConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", filename, err)
	}

	var loaded EngineConfig
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", filename, err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
