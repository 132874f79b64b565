package receiver

import (
	"bytes"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softnav/gnssdr/pkg/config"
	"github.com/softnav/gnssdr/pkg/gnss"
	"github.com/softnav/gnssdr/pkg/sdr"
)

func quietLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// sliceSource replays a fixed set of samples
type sliceSource struct {
	samples []gnss.Sample
	pos     int
}

func (s *sliceSource) Next() (gnss.Sample, error) {
	if s.pos >= len(s.samples) {
		return gnss.Sample{}, gnss.ErrNoSourceData
	}
	out := s.samples[s.pos]
	s.pos++
	return out, nil
}

var _ sdr.Source = (*sliceSource)(nil)

func TestReceiverBuildsAllChannels(t *testing.T) {
	var out bytes.Buffer
	rcv, err := New(config.Default(1.023e6), quietLog(), &out)
	require.NoError(t, err)
	assert.Len(t, rcv.channels, 32)
	assert.Equal(t, 0, rcv.FixCount())
}

func TestReceiverRejectsAbsurdPVTRate(t *testing.T) {
	cfg := config.Default(1.023e6)
	cfg.PVTRateSec = 1e-9
	var out bytes.Buffer
	_, err := New(cfg, quietLog(), &out)
	assert.Error(t, err)
}

func TestReceiverRunsToSourceExhaustion(t *testing.T) {
	var out bytes.Buffer
	rcv, err := New(config.Default(1.023e6), quietLog(), &out)
	require.NoError(t, err)

	samples := make([]gnss.Sample, 5000)
	for i := range samples {
		samples[i] = gnss.Sample{Val: complex(1, 0), Idx: i}
	}

	require.NoError(t, rcv.Run(&sliceSource{samples: samples}))
	assert.Equal(t, 0, rcv.FixCount())
}

func TestReceiverEmptySource(t *testing.T) {
	var out bytes.Buffer
	rcv, err := New(config.Default(1.023e6), quietLog(), &out)
	require.NoError(t, err)
	assert.NoError(t, rcv.Run(&sliceSource{}))
	assert.Empty(t, out.Bytes())
}
