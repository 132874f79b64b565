// Package config loads and validates receiver configuration.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the receiver parameters. Zero values fall back to the
// defaults below, so a config file only needs to name what it changes.
type Config struct {
	// SampleRateHz is the IQ sample rate of the input stream
	SampleRateHz float64 `yaml:"sample_rate_hz" validate:"required,gt=0"`

	// MaxActiveChannels bounds how many channels process samples at once
	MaxActiveChannels int `yaml:"max_active_channels" validate:"min=1,max=32"`

	// TestStatThreshold is the acquisition detection threshold
	TestStatThreshold float64 `yaml:"test_stat_threshold" validate:"gt=0,lte=1"`

	// PVTRateSec is the spacing between observation epochs
	PVTRateSec float64 `yaml:"pvt_rate_sec" validate:"gt=0"`

	// RotationIntervalSec is how often the scheduler rotates channels
	RotationIntervalSec float64 `yaml:"rotation_interval_sec" validate:"gt=0"`

	// ResidualNormThresholdM gates which fixes are committed
	ResidualNormThresholdM float64 `yaml:"residual_norm_threshold_m" validate:"gt=0"`

	// ObservationLeadSec is subtracted from receiver time when assembling
	// observations, absorbing the signal transit time
	ObservationLeadSec float64 `yaml:"observation_lead_sec" validate:"gte=0"`
}

// Default returns the receiver defaults for the given sample rate
func Default(sampleRateHz float64) Config {
	return Config{
		SampleRateHz:           sampleRateHz,
		MaxActiveChannels:      7,
		TestStatThreshold:      0.008,
		PVTRateSec:             0.02,
		RotationIntervalSec:    0.1,
		ResidualNormThresholdM: 200.0,
		ObservationLeadSec:     0.1,
	}
}

// applyDefaults fills unset fields from the defaults
func (c *Config) applyDefaults() {
	def := Default(c.SampleRateHz)
	if c.MaxActiveChannels == 0 {
		c.MaxActiveChannels = def.MaxActiveChannels
	}
	if c.TestStatThreshold == 0 {
		c.TestStatThreshold = def.TestStatThreshold
	}
	if c.PVTRateSec == 0 {
		c.PVTRateSec = def.PVTRateSec
	}
	if c.RotationIntervalSec == 0 {
		c.RotationIntervalSec = def.RotationIntervalSec
	}
	if c.ResidualNormThresholdM == 0 {
		c.ResidualNormThresholdM = def.ResidualNormThresholdM
	}
	if c.ObservationLeadSec == 0 {
		c.ObservationLeadSec = def.ObservationLeadSec
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Load reads a YAML config file, fills defaults and validates
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
