package channel

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softnav/gnssdr/pkg/gnss"
	"github.com/softnav/gnssdr/pkg/gps/ca"
	"github.com/softnav/gnssdr/pkg/gps/ephemeris"
)

const chanTestFs = 1.023e6

func quietLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestChannel(t *testing.T, prn int) *Channel {
	t.Helper()
	ch, err := New(prn, chanTestFs, DefaultTestStatThreshold, int(chanTestFs*0.02), quietLog())
	require.NoError(t, err)
	return ch
}

func TestChannelStartsAwaitingAcquisition(t *testing.T) {
	ch := newTestChannel(t, 22)
	assert.False(t, ch.Tracking())
	assert.Nil(t, ch.Ephemeris())
	assert.Nil(t, ch.Ionosphere())
	assert.Nil(t, ch.Observation(100.0))

	locked, err := ch.Control(struct{}{})
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestChannelCommands(t *testing.T) {
	ch := newTestChannel(t, 3)

	resp, err := ch.Command(CommandIonosphere)
	require.NoError(t, err)
	assert.Nil(t, resp.Ionosphere)

	_, err = ch.Command(CommandReset)
	assert.NoError(t, err)

	_, err = ch.Command(Command(99))
	assert.Error(t, err)
}

func TestChannelPanicsOnBackwardsSamples(t *testing.T) {
	ch := newTestChannel(t, 5)

	ch.Apply(Input{Sample: gnss.Sample{Val: 1, Idx: 10}})
	assert.Panics(t, func() {
		ch.Apply(Input{Sample: gnss.Sample{Val: 1, Idx: 10}})
	})
}

func TestChannelAcquiresSyntheticSignal(t *testing.T) {
	const prn = 22
	ch := newTestChannel(t, prn)

	code, err := ca.CodeComplex(prn)
	require.NoError(t, err)

	// A clean zero-Doppler signal with the data bit flipping every 20
	// code periods, long enough to get through acquisition (including its
	// skipped buffers) and the tracker's initial lock hunt
	var sawAcquisition bool
	n := 80 * ca.CodeLenChips
	for i := 0; i < n; i++ {
		bit := complex(1, 0)
		if (i/(20*ca.CodeLenChips))%2 == 1 {
			bit = complex(-1, 0)
		}
		res := ch.Apply(Input{
			Sample: gnss.Sample{Val: code[(i+1)%ca.CodeLenChips] * bit, Idx: i + 1},
		})
		require.NoError(t, res.Err())
		if res.IsReady() && res.Value().Acquired != nil {
			sawAcquisition = true
			acq := res.Value().Acquired
			assert.InDelta(t, 0.0, acq.DopplerHz, 200.0)
			assert.Greater(t, acq.TestStat, DefaultTestStatThreshold)
		}
	}

	assert.True(t, sawAcquisition, "channel never acquired the synthetic signal")
	assert.True(t, ch.Tracking(), "channel should be tracking after acquisition")
	assert.Greater(t, ch.TestStat(), 0.0)
}

func TestChannelObservationRequiresEphemeris(t *testing.T) {
	ch := newTestChannel(t, 7)

	// Even a tracking channel yields no observation until an ephemeris is
	// assembled; force the tracking flag via the supervisor for the test
	ch.aat.AwaitingAcq = false
	assert.Nil(t, ch.Observation(1000.0))

	ch.eph = &ephemeris.Ephemeris{SqrtA: 5153.6, E: 0.005}
	obs := ch.Observation(1000.0)
	require.NotNil(t, obs)
	assert.Equal(t, 7, obs.SVID)
	assert.InDelta(t, (1000.0-obs.SVTowSec+obs.SVClock)*gnss.SpeedOfLight, obs.PseudorangeM, 1e-3)
}
