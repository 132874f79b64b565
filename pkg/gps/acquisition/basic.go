package acquisition

import (
	"math"
	"math/cmplx"

	"github.com/softnav/gnssdr/pkg/block"
	"github.com/softnav/gnssdr/pkg/gnss"
)

// Basic is the straightforward PCPS search: one carrier wipe, forward FFT
// and circular correlation per candidate Doppler frequency.
type Basic struct {
	// DopplerFreqs is the explicit list of candidate frequencies. The
	// two-stage search mutates it between refinement passes.
	DopplerFreqs []float64

	fs        float64
	prn       int
	threshold float64

	plans         *plans
	buffer        []complex128
	wiped         []complex128
	lastSampleIdx int
}

// NewBasic builds a basic PCPS search over the given code replica and
// candidate frequencies. A threshold of zero accepts every correlation,
// which the two-stage search uses to inspect candidates itself.
func NewBasic(symbol []complex128, fs float64, prn int, threshold float64, dopplerFreqs []float64) (*Basic, error) {
	p, err := newPlans(symbol)
	if err != nil {
		return nil, err
	}
	return &Basic{
		DopplerFreqs:  dopplerFreqs,
		fs:            fs,
		prn:           prn,
		threshold:     threshold,
		plans:         p,
		buffer:        make([]complex128, 0, p.lenFFT),
		wiped:         make([]complex128, p.lenFFT),
		lastSampleIdx: -1,
	}, nil
}

// ProvideSample accumulates one sample into the search buffer. Samples at or
// before the last seen index are ignored: acquisitions share the sample bus
// with trackers and must not double-count.
func (a *Basic) ProvideSample(s gnss.Sample) error {
	if s.Idx > a.lastSampleIdx {
		a.buffer = append(a.buffer, s.Val)
		a.lastSampleIdx = s.Idx
	}
	return nil
}

// BlockForResult runs one correlation pass if a full buffer is available.
// It returns nil when the buffer isn't full yet or no candidate exceeded the
// threshold.
func (a *Basic) BlockForResult() (*Result, error) {
	if len(a.buffer) < a.plans.lenFFT {
		return nil, nil
	}

	signal := make([]complex128, a.plans.lenFFT)
	copy(signal, a.buffer[:a.plans.lenFFT])
	a.buffer = a.buffer[:copy(a.buffer, a.buffer[a.plans.lenFFT:])]

	inputPowerTotal := 0.0
	for _, c := range signal {
		inputPowerTotal += real(c)*real(c) + imag(c)*imag(c)
	}

	// With equally spaced candidates the step is the spacing; a single
	// candidate reports itself as the step
	dopplerStepHz := 0.0
	if len(a.DopplerFreqs) > 1 {
		dopplerStepHz = a.DopplerFreqs[1] - a.DopplerFreqs[0]
	} else if len(a.DopplerFreqs) == 1 {
		dopplerStepHz = a.DopplerFreqs[0]
	}

	best := &Result{
		PRN:             a.prn,
		SampleIdx:       a.lastSampleIdx,
		DopplerStepHz:   dopplerStepHz,
		MFLen:           a.plans.lenFFT,
		InputPowerTotal: inputPowerTotal,
	}

	for _, freq := range a.DopplerFreqs {
		// Wipe the candidate carrier off the buffered signal
		phaseStepRad := (-2.0 * math.Pi * freq) / a.fs
		for i, c := range signal {
			a.wiped[i] = c * cmplx.Rect(1, phaseStepRad*float64(i))
		}

		spectrum := a.plans.fft.Forward(a.wiped)
		updateBest(best, a.plans.correlate(spectrum), freq)
	}

	if best.TestStatistic() > a.threshold {
		return best, nil
	}
	return nil, nil
}

// Control is a no-op; the basic search has no runtime configuration
func (a *Basic) Control(_ block.Unit) (block.Unit, error) {
	return block.Unit{}, nil
}

// Apply feeds one sample and reports a result when a search succeeds
func (a *Basic) Apply(s gnss.Sample) block.Result[Result] {
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
