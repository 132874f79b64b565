package acquisition

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softnav/gnssdr/pkg/gnss"
	"github.com/softnav/gnssdr/pkg/gps/ca"
)

const (
	testFs      = 2.0e6
	testPRN     = 22
	testDoppler = 1500.0
	testDelay   = 123
)

// prnSymbol returns the complex sampled replica for the test PRN
func prnSymbol(t *testing.T) []complex128 {
	t.Helper()
	sampled, err := ca.CodeSampled(testPRN, testFs)
	require.NoError(t, err)
	symbol := make([]complex128, len(sampled))
	for i, v := range sampled {
		symbol[i] = complex(float64(v), 0)
	}
	return symbol
}

// synthSignal builds periods of the PRN 22 code, circularly delayed and
// carried on the test Doppler.
func synthSignal(t *testing.T, periods int) []gnss.Sample {
	t.Helper()
	symbol := prnSymbol(t)
	n := len(symbol)

	out := make([]gnss.Sample, 0, periods*n)
	for i := 0; i < periods*n; i++ {
		phase := 2.0 * math.Pi * testDoppler * float64(i) / testFs
		chip := symbol[((i-testDelay)%n+n)%n]
		out = append(out, gnss.Sample{
			Val: chip * cmplx.Rect(1, phase),
			Idx: i,
		})
	}
	return out
}

func TestBasicAcquisitionFindsSyntheticSignal(t *testing.T) {
	acq, err := NewBasic(prnSymbol(t), testFs, testPRN, 0.1,
		[]float64{1000, 1250, 1500, 1750, 2000})
	require.NoError(t, err)

	var result *Result
	for _, s := range synthSignal(t, 1) {
		require.NoError(t, acq.ProvideSample(s))
		res, err := acq.BlockForResult()
		require.NoError(t, err)
		if res != nil {
			result = res
		}
	}

	require.NotNil(t, result)
	assert.Equal(t, testPRN, result.PRN)
	assert.InDelta(t, testDoppler, result.DopplerHz, 125.0)
	assert.InDelta(t, float64(testDelay), float64(result.CodePhase), 1.0)
	assert.Greater(t, result.TestStatistic(), 0.1)
	assert.LessOrEqual(t, result.TestStatistic(), 1.0)
}

func TestFastAcquisitionFindsSyntheticSignal(t *testing.T) {
	acq, err := NewFast(prnSymbol(t), testFs, testPRN, 2, 8, 0.1, 0)
	require.NoError(t, err)

	var result *Result
	for _, s := range synthSignal(t, 1) {
		require.NoError(t, acq.ProvideSample(s))
		res, err := acq.BlockForResult()
		require.NoError(t, err)
		if res != nil {
			result = res
		}
	}

	require.NotNil(t, result)
	assert.InDelta(t, testDoppler, result.DopplerHz, 125.0)
	assert.InDelta(t, float64(testDelay), float64(result.CodePhase), 1.0)
}

func TestTwoStageAcquisitionRefines(t *testing.T) {
	acq, err := NewTwoStage(prnSymbol(t), testFs, testPRN, 2, 8, 125.0, 0.1, 0)
	require.NoError(t, err)
	assert.Equal(t, testPRN, acq.PRN())

	var result *Result
	for _, s := range synthSignal(t, 30) {
		require.NoError(t, acq.ProvideSample(s))
		res, err := acq.BlockForResult()
		require.NoError(t, err)
		if res != nil {
			result = res
			break
		}
	}

	require.NotNil(t, result)
	assert.InDelta(t, testDoppler, result.DopplerHz, 125.0)
	assert.LessOrEqual(t, result.DopplerStepHz, 125.0)
	assert.InDelta(t, float64(testDelay), float64(result.CodePhase), 1.0)
}

func TestDuplicateSampleIndexIgnored(t *testing.T) {
	acq, err := NewBasic(prnSymbol(t), testFs, testPRN, 0.1, []float64{0})
	require.NoError(t, err)

	require.NoError(t, acq.ProvideSample(gnss.Sample{Val: 1, Idx: 0}))
	require.NoError(t, acq.ProvideSample(gnss.Sample{Val: 1, Idx: 1}))
	bufLen := len(acq.buffer)
	lastIdx := acq.lastSampleIdx

	// Re-delivering an already-seen index must leave the state untouched
	require.NoError(t, acq.ProvideSample(gnss.Sample{Val: 1, Idx: 1}))
	require.NoError(t, acq.ProvideSample(gnss.Sample{Val: 1, Idx: 0}))
	assert.Equal(t, bufLen, len(acq.buffer))
	assert.Equal(t, lastIdx, acq.lastSampleIdx)
}

func TestTestStatisticRangeOnNoise(t *testing.T) {
	// With a zero threshold every full buffer yields a result, whose test
	// statistic must stay in (0, 1] even for pure noise
	acq, err := NewBasic(prnSymbol(t), testFs, testPRN, 0.0, []float64{0, 500})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	n := len(prnSymbol(t))
	var result *Result
	for i := 0; i < n; i++ {
		s := gnss.Sample{
			Val: complex(rng.NormFloat64(), rng.NormFloat64()),
			Idx: i,
		}
		require.NoError(t, acq.ProvideSample(s))
		res, err := acq.BlockForResult()
		require.NoError(t, err)
		if res != nil {
			result = res
		}
	}

	require.NotNil(t, result)
	assert.Greater(t, result.TestStatistic(), 0.0)
	assert.LessOrEqual(t, result.TestStatistic(), 1.0)
}

func TestFastAcquisitionSkipsBuffers(t *testing.T) {
	acq, err := NewFast(prnSymbol(t), testFs, testPRN, 2, 8, 0.1, 1)
	require.NoError(t, err)

	// With nSkip of one, the first full buffer is discarded and the second
	// is searched
	var result *Result
	for _, s := range synthSignal(t, 2) {
		require.NoError(t, acq.ProvideSample(s))
		res, err := acq.BlockForResult()
		require.NoError(t, err)
		if res != nil {
			result = res
		}
	}
	require.NotNil(t, result)
	assert.InDelta(t, testDoppler, result.DopplerHz, 125.0)
}
