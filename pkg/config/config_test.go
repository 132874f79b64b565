package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default(2.0e6)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 7, cfg.MaxActiveChannels)
	assert.InDelta(t, 0.008, cfg.TestStatThreshold, 1e-12)
	assert.InDelta(t, 200.0, cfg.ResidualNormThresholdM, 1e-12)
}

func TestValidateRejectsMissingSampleRate(t *testing.T) {
	cfg := Default(2.0e6)
	cfg.SampleRateHz = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsTooManyChannels(t *testing.T) {
	cfg := Default(2.0e6)
	cfg.MaxActiveChannels = 64
	assert.Error(t, cfg.Validate())
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "receiver.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeTemp(t, "sample_rate_hz: 4.0e6\nmax_active_channels: 12\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 4.0e6, cfg.SampleRateHz, 1e-6)
	assert.Equal(t, 12, cfg.MaxActiveChannels)
	// Everything unset falls back to the defaults
	assert.InDelta(t, 0.02, cfg.PVTRateSec, 1e-12)
	assert.InDelta(t, 0.1, cfg.RotationIntervalSec, 1e-12)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeTemp(t, "sample_rate_hz: -1\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeTemp(t, "sample_rate_hz: [not a number\n")
	_, err := Load(path)
	assert.Error(t, err)
}
