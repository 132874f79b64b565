package acquisition

import (
	"math"
	"math/cmplx"

	"github.com/softnav/gnssdr/pkg/block"
	"github.com/softnav/gnssdr/pkg/gnss"
)

// Fast is the PCPS search accelerated with the frequency-shift theorem: one
// forward FFT of the input covers 2*nCoarse+1 coarse frequency bins through
// cyclic spectrum rotation, and only the nFine sub-bin offsets pay for a
// carrier wipe and transform of their own. This trades
// O(nCoarse*nFine*NlogN) for O(nFine*NlogN + nCoarse*nFine*N).
type Fast struct {
	fs        float64
	prn       int
	threshold float64

	nCoarse int
	nFine   int

	plans         *plans
	buffer        []complex128
	wiped         []complex128
	shifted       []complex128
	skipCount     int
	nSkip         int
	lastSampleIdx int

	// fastFreqInc is the frequency represented by one FFT bin, -fs/N. Coarse
	// bin shifts move in multiples of it.
	fastFreqInc float64
}

// NewFast builds a fast PCPS search over the given code replica. nSkip full
// buffers are discarded between searches to bound CPU use.
func NewFast(symbol []complex128, fs float64, prn, nCoarse, nFine int, threshold float64, nSkip int) (*Fast, error) {
	p, err := newPlans(symbol)
	if err != nil {
		return nil, err
	}
	return &Fast{
		fs:            fs,
		prn:           prn,
		threshold:     threshold,
		nCoarse:       nCoarse,
		nFine:         nFine,
		plans:         p,
		buffer:        make([]complex128, 0, p.lenFFT),
		wiped:         make([]complex128, p.lenFFT),
		shifted:       make([]complex128, p.lenFFT),
		nSkip:         nSkip,
		lastSampleIdx: -1,
		fastFreqInc:   -fs / float64(p.lenFFT),
	}, nil
}

// ProvideSample accumulates one sample, ignoring duplicate indices
func (a *Fast) ProvideSample(s gnss.Sample) error {
	if s.Idx > a.lastSampleIdx {
		a.buffer = append(a.buffer, s.Val)
		a.lastSampleIdx = s.Idx
	}
	return nil
}

// BlockForResult runs one search if a full buffer is available and this
// buffer isn't being skipped.
func (a *Fast) BlockForResult() (*Result, error) {
	if len(a.buffer) < a.plans.lenFFT {
		return nil, nil
	}

	a.skipCount++
	if a.skipCount <= a.nSkip {
		// Throw this buffer away to save CPU
		a.buffer = a.buffer[:copy(a.buffer, a.buffer[a.plans.lenFFT:])]
		return nil, nil
	}
	a.skipCount = 0

	signal := make([]complex128, a.plans.lenFFT)
	copy(signal, a.buffer[:a.plans.lenFFT])
	a.buffer = a.buffer[:copy(a.buffer, a.buffer[a.plans.lenFFT:])]

	inputPowerTotal := 0.0
	for _, c := range signal {
		inputPowerTotal += real(c)*real(c) + imag(c)*imag(c)
	}

	best := &Result{
		PRN:             a.prn,
		SampleIdx:       a.lastSampleIdx,
		DopplerStepHz:   math.Abs(a.fastFreqInc) / float64(a.nFine),
		MFLen:           a.plans.lenFFT,
		InputPowerTotal: inputPowerTotal,
	}

	n := a.plans.lenFFT
	for fineIdx := 0; fineIdx < a.nFine; fineIdx++ {
		baseFreq := float64(fineIdx) * a.fastFreqInc / float64(a.nFine)

		// Wipe the fractional-bin carrier off the input, then transform once
		phaseStepRad := (-2.0 * math.Pi * baseFreq) / a.fs
		for i, c := range signal {
			a.wiped[i] = c * cmplx.Rect(1, phaseStepRad*float64(i))
		}
		spectrum := a.plans.fft.Forward(a.wiped)

		for coarseIdx := -a.nCoarse; coarseIdx <= a.nCoarse; coarseIdx++ {
			// A cyclic rotation of the spectrum shifts the signal by
			// coarseIdx whole bins
			for i := range a.shifted {
				a.shifted[i] = spectrum[((i-coarseIdx)%n+n)%n]
			}
			updateBest(best, a.plans.correlate(a.shifted), baseFreq+float64(coarseIdx)*a.fastFreqInc)
		}
	}

	if best.TestStatistic() > a.threshold {
		return best, nil
	}
	return nil, nil
}

// Control is a no-op; the fast search has no runtime configuration
func (a *Fast) Control(_ block.Unit) (block.Unit, error) {
	return block.Unit{}, nil
}

// Apply feeds one sample and reports a result when a search succeeds
func (a *Fast) Apply(s gnss.Sample) block.Result[Result] {
	if err := a.ProvideSample(s); err != nil {
		return block.Fail[Result](err)
	}
	res, err := a.BlockForResult()
	switch {
	case err != nil:
		return block.Fail[Result](err)
	case res != nil:
		return block.Ready(*res)
	default:
		return block.NotReady[Result]()
	}
}
