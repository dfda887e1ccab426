package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	coretypes "github.com/projecteru2/core/types"
)

// BillingConfig holds the credit rate policy. The formula is mechanism;
// these values are policy and may differ per deployment.
type BillingConfig struct {
	// Hourly rate components, in credits/hour.
	BaseRate float64 `json:"base_rate" mapstructure:"base_rate"`
	CPURate  float64 `json:"cpu_rate" mapstructure:"cpu_rate"` // per vCPU
	RAMRate  float64 `json:"ram_rate" mapstructure:"ram_rate"` // per GB of RAM

	// MinimumDeduction is the floor for a single metering tick charge.
	MinimumDeduction float64 `json:"minimum_deduction" mapstructure:"minimum_deduction"`

	// Credit purchase conversion.
	CreditsPerDollar float64 `json:"credits_per_dollar" mapstructure:"credits_per_dollar"`
	MinimumRecharge  float64 `json:"minimum_recharge" mapstructure:"minimum_recharge"` // dollars
}

// Config holds global VirtCloud engine configuration.
type Config struct {
	// RootDir is the base directory for persistent data (stores, disk images).
	RootDir string `json:"root_dir" mapstructure:"root_dir"`
	// RunDir holds per-VM runtime files (PID files).
	RunDir string `json:"run_dir" mapstructure:"run_dir"`
	// LogDir holds per-VM process logs.
	LogDir string `json:"log_dir" mapstructure:"log_dir"`

	// QemuBinary is the VM runtime executable, resolved via PATH when bare.
	QemuBinary string `json:"qemu_binary" mapstructure:"qemu_binary"`
	// QemuImgBinary is the disk image tool executable.
	QemuImgBinary string `json:"qemu_img_binary" mapstructure:"qemu_img_binary"`

	// PoolSize is the goroutine pool size for the metering sweep.
	// Defaults to runtime.NumCPU() if zero.
	PoolSize int `json:"pool_size" mapstructure:"pool_size"`
	// StopTimeoutSeconds is the graceful-termination window before a stop
	// is reported as timed out. The process is never force-killed.
	StopTimeoutSeconds int `json:"stop_timeout_seconds" mapstructure:"stop_timeout_seconds"`
	// MeterIntervalSeconds is the period between metering sweeps.
	MeterIntervalSeconds int `json:"meter_interval_seconds" mapstructure:"meter_interval_seconds"`

	Billing BillingConfig `json:"billing" mapstructure:"billing"`

	// Log configuration reuses eru core's server log settings so SetupLog
	// can consume it directly.
	Log coretypes.ServerLogConfig `json:"log" mapstructure:"log"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RootDir:              "/var/lib/virtcloud",
		RunDir:               "/run/virtcloud",
		LogDir:               "/var/log/virtcloud",
		QemuBinary:           "qemu-system-x86_64",
		QemuImgBinary:        "qemu-img",
		PoolSize:             runtime.NumCPU(),
		StopTimeoutSeconds:   30,
		MeterIntervalSeconds: 60,
		Billing: BillingConfig{
			BaseRate:         0.5,
			CPURate:          0.2,
			RAMRate:          0.1,
			MinimumDeduction: 0.01,
			CreditsPerDollar: 2,
			MinimumRecharge:  5,
		},
		Log: coretypes.ServerLogConfig{
			Level:      "info",
			MaxSize:    500,
			MaxAge:     28,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from file, falling back to defaults.
func LoadConfig(path string) (*Config, error) {
	conf := DefaultConfig()
	if path == "" {
		return conf, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // config path from CLI flag
	if err != nil {
		if os.IsNotExist(err) {
			return conf, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	conf.Normalize()
	return conf, nil
}

// Normalize fills zero-value knobs with their defaults.
func (c *Config) Normalize() {
	if c.PoolSize <= 0 {
		c.PoolSize = runtime.NumCPU()
	}
	if c.StopTimeoutSeconds <= 0 {
		c.StopTimeoutSeconds = 30 //nolint:mnd
	}
	if c.MeterIntervalSeconds <= 0 {
		c.MeterIntervalSeconds = 60 //nolint:mnd
	}
	def := DefaultConfig().Billing
	if c.Billing.MinimumDeduction <= 0 {
		c.Billing.MinimumDeduction = def.MinimumDeduction
	}
	if c.Billing.CreditsPerDollar <= 0 {
		c.Billing.CreditsPerDollar = def.CreditsPerDollar
	}
	if c.Billing.MinimumRecharge <= 0 {
		c.Billing.MinimumRecharge = def.MinimumRecharge
	}
}
