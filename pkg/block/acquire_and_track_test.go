package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softnav/gnssdr/pkg/gnss"
)

// mockAcq acquires on inputs divisible by its modulus
type mockAcq struct {
	modVal int
}

func (m *mockAcq) Control(_ Unit) (Unit, error) {
	return Unit{}, nil
}

func (m *mockAcq) Apply(input int) Result[int] {
	if input%m.modVal == 0 {
		return Ready(input)
	}
	return NotReady[int]()
}

// mockTrack tracks until the input grows past twice the acquired value
type mockTrack struct {
	lastAcq int
}

func (m *mockTrack) Control(acq int) (Unit, error) {
	m.lastAcq = acq
	return Unit{}, nil
}

func (m *mockTrack) Apply(input int) Result[float64] {
	if input > 2*m.lastAcq {
		return Fail[float64](gnss.ErrLossOfLock)
	}
	return Ready(float64(input))
}

func TestAcquireAndTrackCycle(t *testing.T) {
	aat := NewAcquireAndTrack[int, int, float64](&mockAcq{modVal: 7}, &mockTrack{})

	var results []float64
	for sample := 0; sample < 55; sample++ {
		res := aat.Apply(sample)
		require.NoError(t, res.Err())
		if res.IsReady() {
			results = append(results, res.Value())
		}
	}

	// Acquire at multiples of 7, track until the input passes twice the
	// acquired value, then re-acquire. Sample 0 acquires immediately but
	// any following sample exceeds 2*0, so real tracking starts at 7.
	assert.Equal(t, []float64{
		8, 9, 10, 11, 12, 13, 14, 22, 23, 24, 25, 26, 27, 28,
		29, 30, 31, 32, 33, 34, 35, 36, 37, 38, 39, 40, 41, 42,
		50, 51, 52, 53, 54,
	}, results)
}

func TestAcquireAndTrackRecovery(t *testing.T) {
	acq := &mockAcq{modVal: 5}
	trk := &mockTrack{}
	aat := NewAcquireAndTrack[int, int, float64](acq, trk)

	require.True(t, aat.AwaitingAcq)

	// Acquisition succeeds and switches to tracking without output
	res := aat.Apply(5)
	assert.False(t, res.IsReady())
	assert.NoError(t, res.Err())
	assert.False(t, aat.AwaitingAcq)
	assert.Equal(t, 5, trk.lastAcq)

	// A loss of lock flips back to acquisition and reads as not-ready
	res = aat.Apply(11)
	assert.False(t, res.IsReady())
	assert.NoError(t, res.Err())
	assert.True(t, aat.AwaitingAcq)
}

func TestAcquireAndTrackControlReportsLockState(t *testing.T) {
	aat := NewAcquireAndTrack[int, int, float64](&mockAcq{modVal: 5}, &mockTrack{})

	locked, err := aat.Control(Unit{})
	require.NoError(t, err)
	assert.False(t, locked)

	aat.Apply(5)
	locked, err = aat.Control(Unit{})
	require.NoError(t, err)
	assert.True(t, locked)
}
