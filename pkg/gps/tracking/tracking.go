// Package tracking implements the carrier and code tracking loops for GPS
// L1 C/A and L2C signals: per-sample NCOs, early/prompt/late correlators,
// Costas and normalized early-minus-late discriminators, scalar loop
// filters, and the lock-detection state machines.
package tracking

import (
	"math"
)

// Report is emitted once per data symbol by a tracker with a lock: the
// long-coherent prompt in-phase value (the demodulated symbol), the index of
// the sample that closed the symbol, the lock test statistic and the tracked
// carrier frequency.
type Report struct {
	PRN       int
	PromptI   float64
	SampleIdx int
	TestStat  float64
	FreqHz    float64
}

// Bit is the hard symbol decision a report carries into telemetry decoding
func (r Report) Bit() bool {
	return r.PromptI > 0.0
}

// Debug is a snapshot of tracker internals for diagnostics
type Debug struct {
	PRN       int     `json:"prn"`
	CarrierRe float64 `json:"carrier_re"`
	CarrierIm float64 `json:"carrier_im"`
	CarrierHz float64 `json:"carrier_hz"`
	PromptRe  float64 `json:"correlation_prompt_re"`
	PromptIm  float64 `json:"correlation_prompt_im"`
	TestStat  float64 `json:"test_stat"`
}

// costasDiscriminator is the carrier phase error in radians, insensitive to
// the BPSK data sign.
func costasDiscriminator(prompt complex128) float64 {
	if real(prompt) == 0.0 {
		return 0.0
	}
	return math.Atan(imag(prompt) / real(prompt))
}

// codeDiscriminator is the normalized early-minus-late envelope error in
// chips.
func codeDiscriminator(early, late complex128) float64 {
	e := math.Hypot(real(early), imag(early))
	l := math.Hypot(real(late), imag(late))
	if l+e == 0.0 {
		return 0.0
	}
	return 0.5 * (l - e) / (l + e)
}

func normSq(c complex128) float64 {
	return real(c)*real(c) + imag(c)*imag(c)
}
