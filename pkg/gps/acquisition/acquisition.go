// Package acquisition implements the PCPS (parallel code-phase search)
// signal acquisition variants: an explicit-frequency-list search, a fast
// search built on the frequency-shift theorem, and a two-stage search that
// progressively refines the Doppler estimate.
package acquisition

import (
	"math/cmplx"

	"github.com/softnav/gnssdr/pkg/dsp"
	"github.com/softnav/gnssdr/pkg/gnss"
)

// Result is one successful acquisition: the coarse Doppler and code-phase
// estimate for a PRN, plus the raw matched-filter response behind it.
type Result struct {
	PRN             int
	SampleIdx       int
	DopplerHz       float64
	DopplerStepHz   float64
	CodePhase       int
	MFResponse      complex128
	MFLen           int
	InputPowerTotal float64
}

// TestStatistic is the normalized detection statistic
// |response|^2 / (power * len); it lies in (0, 1] for any real input.
func (r *Result) TestStatistic() float64 {
	n := cmplx.Abs(r.MFResponse)
	return n * n / (r.InputPowerTotal * float64(r.MFLen))
}

// Searcher is the common surface of the acquisition variants: accumulate
// samples one at a time, then run one correlation per full buffer.
type Searcher interface {
	ProvideSample(s gnss.Sample) error
	BlockForResult() (*Result, error)
}

// plans holds the transform plans and precomputed code spectrum shared by
// the acquisition variants.
type plans struct {
	lenFFT   int
	fft      *dsp.FFT
	ifft     *dsp.FFT
	codeFreq []complex128
	conv     []complex128
}

func newPlans(symbol []complex128) (*plans, error) {
	lenFFT := len(symbol)
	fft, err := dsp.NewFFT(lenFFT)
	if err != nil {
		return nil, err
	}
	ifft, err := dsp.NewFFT(lenFFT)
	if err != nil {
		return nil, err
	}

	spectrum := fft.Forward(symbol)
	codeFreq := make([]complex128, lenFFT)
	for i, c := range spectrum {
		codeFreq[i] = cmplx.Conj(c)
	}

	return &plans{
		lenFFT:   lenFFT,
		fft:      fft,
		ifft:     ifft,
		codeFreq: codeFreq,
		conv:     make([]complex128, lenFFT),
	}, nil
}

// correlate multiplies the input spectrum by the conjugated code spectrum
// and inverse-transforms, yielding the circular correlation for all code
// offsets. The returned slice is overwritten by the next call.
func (p *plans) correlate(spectrum []complex128) []complex128 {
	for i := range p.conv {
		p.conv[i] = spectrum[i] * p.codeFreq[i]
	}
	return p.ifft.Inverse(p.conv)
}

// updateBest scans a correlation for a response stronger than the current
// best and records it with the given frequency.
func updateBest(best *Result, correlation []complex128, freqHz float64) {
	bestNorm := real(best.MFResponse)*real(best.MFResponse) + imag(best.MFResponse)*imag(best.MFResponse)
	for idx, resp := range correlation {
		if n := real(resp)*real(resp) + imag(resp)*imag(resp); n > bestNorm {
			bestNorm = n
			best.DopplerHz = freqHz
			best.CodePhase = idx
			best.MFResponse = resp
		}
	}
}
