package dsp

import (
	"math"
	"math/cmplx"

	"github.com/softnav/gnssdr/pkg/gnss"
)

// MatchedFilterResult is one full-buffer circular correlation against the
// local code at a single carrier frequency.
type MatchedFilterResult struct {
	DopplerHz       float64
	InputPowerTotal float64
	Response        []complex128
}

// Peak returns the index of the strongest correlation lag and the test
// statistic |response|^2 / (power * N) at that lag.
type Peak struct {
	MaxIdx   int     `json:"max_idx"`
	TestStat float64 `json:"test_stat"`
}

// TestStatistic finds the strongest lag of the response
func (r *MatchedFilterResult) TestStatistic() Peak {
	maxIdx := 0
	maxNormSq := 0.0
	for i, c := range r.Response {
		if n := real(c)*real(c) + imag(c)*imag(c); n > maxNormSq {
			maxNormSq = n
			maxIdx = i
		}
	}
	return Peak{
		MaxIdx:   maxIdx,
		TestStat: maxNormSq / (r.InputPowerTotal * float64(len(r.Response))),
	}
}

// MatchedFilter correlates a buffered stretch of input against a fixed local
// code in the frequency domain. The conjugated code spectrum is computed
// once at construction; each full buffer costs one forward and one inverse
// transform.
type MatchedFilter struct {
	fs        float64
	freqShift float64

	lenFFT     int
	carrierInc complex128
	codeFreq   []complex128 // conjugated spectrum of the local code

	buffer  []complex128
	carrier complex128

	fft  *FFT
	ifft *FFT
	conv []complex128
}

// NewMatchedFilter builds a matched filter for the given code replica,
// sample rate and carrier wipe-off frequency.
func NewMatchedFilter(symbol []int8, fs, freqShift float64) (*MatchedFilter, error) {
	lenFFT := len(symbol)

	fft, err := NewFFT(lenFFT)
	if err != nil {
		return nil, err
	}
	ifft, err := NewFFT(lenFFT)
	if err != nil {
		return nil, err
	}

	code := make([]complex128, lenFFT)
	for i, b := range symbol {
		code[i] = complex(float64(b), 0)
	}
	spectrum := fft.Forward(code)
	codeFreq := make([]complex128, lenFFT)
	for i, c := range spectrum {
		codeFreq[i] = cmplx.Conj(c)
	}

	phaseStepRad := (-2.0 * math.Pi * freqShift) / fs

	return &MatchedFilter{
		fs:         fs,
		freqShift:  freqShift,
		lenFFT:     lenFFT,
		carrierInc: cmplx.Rect(1, phaseStepRad),
		codeFreq:   codeFreq,
		buffer:     make([]complex128, 0, lenFFT),
		carrier:    complex(1, 0),
		fft:        fft,
		ifft:       ifft,
		conv:       make([]complex128, lenFFT),
	}, nil
}

// Apply buffers one sample, already multiplied by the running carrier
// replica, and runs the correlation once the buffer is full. It returns nil
// until then.
func (m *MatchedFilter) Apply(s gnss.Sample) *MatchedFilterResult {
	m.buffer = append(m.buffer, s.Val*m.carrier)
	m.carrier *= m.carrierInc

	if len(m.buffer) < m.lenFFT {
		return nil
	}

	// Renormalize the carrier so rounding error doesn't walk its magnitude
	m.carrier /= complex(cmplx.Abs(m.carrier), 0)

	signal := m.buffer[:m.lenFFT]

	inputPowerTotal := 0.0
	for _, c := range signal {
		inputPowerTotal += real(c)*real(c) + imag(c)*imag(c)
	}

	spectrum := m.fft.Forward(signal)

	// Multiplication in the frequency domain is circular correlation in the
	// time domain once the code spectrum is conjugated
	for i := range m.conv {
		m.conv[i] = spectrum[i] * m.codeFreq[i]
	}

	raw := m.ifft.Inverse(m.conv)
	response := make([]complex128, m.lenFFT)
	copy(response, raw)

	m.buffer = m.buffer[:0]

	return &MatchedFilterResult{
		DopplerHz:       m.freqShift,
		InputPowerTotal: inputPowerTotal,
		Response:        response,
	}
}
