package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// Speed policy names accepted in speed_policy.
const (
	SpeedPolicyReject = "reject"
	SpeedPolicyClamp  = "clamp"
)

// TuningConfig represents the processing parameters for the thermal-mass
// pipeline. The same JSON document is accepted by the CLI (-config) and the
// HTTP server.
type TuningConfig struct {
	// C-T lag applied to temperature, seconds (sampled at t - lag)
	CTLagSeconds *float64 `json:"ct_lag_seconds,omitempty"`

	// Internal temperature inference
	InternalAlpha            *float64 `json:"internal_alpha,omitempty"`
	InternalTauSeconds       *float64 `json:"internal_tau_seconds,omitempty"`
	InferInternalTemperature *bool    `json:"infer_internal_temperature,omitempty"`

	// Profiling speed degeneracy handling
	SpeedPolicy *string  `json:"speed_policy,omitempty"` // "reject" or "clamp"
	MinSpeedCmS *float64 `json:"min_speed_cm_s,omitempty"`

	// Batch params
	Workers      *int    `json:"workers,omitempty"`
	BatchTimeout *string `json:"batch_timeout,omitempty"` // duration string like "5m", "0s" disables
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to the
// value its getter falls back to.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		CTLagSeconds:             ptrFloat64(-0.35),
		InternalAlpha:            ptrFloat64(1.065),
		InternalTauSeconds:       ptrFloat64(154.8),
		InferInternalTemperature: ptrBool(true),
		SpeedPolicy:              ptrString(SpeedPolicyReject),
		MinSpeedCmS:              ptrFloat64(1),
		Workers:                  ptrInt(4),
		BatchTimeout:             ptrString("0s"),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/ctd-report/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.InternalAlpha != nil && *c.InternalAlpha <= 0 {
		return fmt.Errorf("internal_alpha must be positive, got %f", *c.InternalAlpha)
	}

	if c.InternalTauSeconds != nil && *c.InternalTauSeconds <= 0 {
		return fmt.Errorf("internal_tau_seconds must be positive, got %f", *c.InternalTauSeconds)
	}

	if c.SpeedPolicy != nil {
		switch *c.SpeedPolicy {
		case SpeedPolicyReject, SpeedPolicyClamp:
		default:
			return fmt.Errorf("speed_policy must be %q or %q, got %q", SpeedPolicyReject, SpeedPolicyClamp, *c.SpeedPolicy)
		}
	}

	if c.MinSpeedCmS != nil && *c.MinSpeedCmS < 0 {
		return fmt.Errorf("min_speed_cm_s must be non-negative, got %f", *c.MinSpeedCmS)
	}

	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}

	if c.BatchTimeout != nil && *c.BatchTimeout != "" {
		d, err := time.ParseDuration(*c.BatchTimeout)
		if err != nil {
			return fmt.Errorf("invalid batch_timeout '%s': %w", *c.BatchTimeout, err)
		}
		if d < 0 {
			return fmt.Errorf("batch_timeout must be non-negative, got %s", d)
		}
	}

	return nil
}

// GetCTLagSeconds returns the ct_lag_seconds value or the default.
func (c *TuningConfig) GetCTLagSeconds() float64 {
	if c.CTLagSeconds == nil {
		return -0.35
	}
	return *c.CTLagSeconds
}

// GetInternalAlpha returns the internal_alpha value or the default.
func (c *TuningConfig) GetInternalAlpha() float64 {
	if c.InternalAlpha == nil {
		return 1.065
	}
	return *c.InternalAlpha
}

// GetInternalTauSeconds returns the internal_tau_seconds value or the default.
func (c *TuningConfig) GetInternalTauSeconds() float64 {
	if c.InternalTauSeconds == nil {
		return 154.8
	}
	return *c.InternalTauSeconds
}

// GetInferInternalTemperature returns the infer_internal_temperature value or the default.
func (c *TuningConfig) GetInferInternalTemperature() bool {
	if c.InferInternalTemperature == nil {
		return true
	}
	return *c.InferInternalTemperature
}

// GetSpeedPolicy returns the speed_policy value or the default.
func (c *TuningConfig) GetSpeedPolicy() string {
	if c.SpeedPolicy == nil || *c.SpeedPolicy == "" {
		return SpeedPolicyReject
	}
	return *c.SpeedPolicy
}

// GetMinSpeedCmS returns the min_speed_cm_s value or the default.
func (c *TuningConfig) GetMinSpeedCmS() float64 {
	if c.MinSpeedCmS == nil {
		return 1
	}
	return *c.MinSpeedCmS
}

// GetWorkers returns the workers value or the default.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}

// GetBatchTimeout parses and returns the BatchTimeout as a time.Duration.
// Zero means no timeout.
func (c *TuningConfig) GetBatchTimeout() time.Duration {
	if c.BatchTimeout == nil || *c.BatchTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.BatchTimeout)
	if err != nil {
		return 0 // default on parse error
	}
	return d
}
