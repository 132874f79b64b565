package tracking

import (
	"math"
	"math/cmplx"

	"github.com/softnav/gnssdr/pkg/block"
	"github.com/softnav/gnssdr/pkg/dsp"
	"github.com/softnav/gnssdr/pkg/gnss"
	"github.com/softnav/gnssdr/pkg/gps/acquisition"
	"github.com/softnav/gnssdr/pkg/gps/l2c"
	"github.com/softnav/gnssdr/pkg/gtime"
)

// Thresholds for the L2 CM lock state machine, acting on the 20-ms symbol
// interval.
const (
	L2CMThreshPromoteToTracking = 0.008
	L2CMThreshLossOfLock        = 5.0e-7

	// L2CMSymbolLenSec is the CM symbol and code period
	L2CMSymbolLenSec = 20.0e-3
)

// Default pole products for the CM loop filters
const (
	defaultL2FilterB1 = 0.5
	defaultL2FilterB2 = 0.5
	defaultL2FilterB3 = 0.5
	defaultL2FilterB4 = 0.5
)

// cmInterleavedLen is the CM code length at the combined chipping rate,
// counting the interleaved CL positions.
const cmInterleavedLen = 2 * l2c.CMLenChips

// l2LoopFilter maps the four pole products to the taps of a second-order
// loop filter updated at the given rate. The taps carry units of
// [1/sample].
func l2LoopFilter(b1, b2, b3, b4, updateRateHz, fs float64) *dsp.SecondOrderFIR {
	a0 := (b1 * b2 * b3 * b4) * updateRateHz
	a1 := -((b1+b2)*b3*b4 + (b3+b4)*b1*b2) * updateRateHz
	a2 := (b3*b4 + b1*b2 + (b1+b2)*(b3+b4) - 1.0) * updateRateHz
	return dsp.NewSecondOrderFIR(a0/fs, a1/fs, a2/fs)
}

type l2cmMode int

const (
	l2cmWaitingForInitialLock l2cmMode = iota
	l2cmTracking
	l2cmLostLock
)

// L2CM tracks the GPS L2 CM signal. The local replica is the CM code with
// zeros interleaved at the CL positions, so the code phase runs over the
// combined 20460-chip period and every index into the replica uses that
// length.
type L2CM struct {
	prn            int
	fs             float64
	codeLenSamples float64
	localCode      []complex128

	lastAcq acquisition.Result

	towInner *gtime.IntegerClock
	towOuter *gtime.IntegerClock

	carrier          complex128
	carrierInc       complex128
	carrierDPhaseRad float64
	codePhase        float64
	codeDPhase       float64

	carrierFilter dsp.ScalarFilter
	codeFilter    dsp.ScalarFilter

	sumEarly   complex128
	sumPrompt  complex128
	sumLate    complex128
	inputPower float64

	mode         l2cmMode
	prevPrompt   complex128
	prevTestStat float64
	testStat     float64
}

// NewL2CM builds a CM tracker for the given PRN
func NewL2CM(prn int, fs float64) (*L2CM, error) {
	localCode, err := l2c.CMInterleaved(prn)
	if err != nil {
		return nil, err
	}

	t := &L2CM{
		prn:            prn,
		fs:             fs,
		codeLenSamples: fs * L2CMSymbolLenSec,
		localCode:      localCode,
		towInner:       gtime.NewIntegerClock(1.0 / L2CMSymbolLenSec),
		towOuter:       gtime.NewIntegerClock(fs),
		carrierFilter: l2LoopFilter(defaultL2FilterB1, defaultL2FilterB2,
			defaultL2FilterB3, defaultL2FilterB4, 1.0/L2CMSymbolLenSec, fs),
		codeFilter: l2LoopFilter(defaultL2FilterB1, defaultL2FilterB2,
			defaultL2FilterB3, defaultL2FilterB4, 1.0/L2CMSymbolLenSec, fs),
	}
	t.Initialize(0.0)
	return t, nil
}

// PRN returns the PRN this tracker is configured for
func (t *L2CM) PRN() int { return t.prn }

// CarrierFreqHz returns the tracked carrier frequency
func (t *L2CM) CarrierFreqHz() float64 {
	return (t.carrierDPhaseRad * t.fs) / (2.0 * math.Pi)
}

// CodePhaseSamples returns the code phase converted from combined chips to
// samples.
func (t *L2CM) CodePhaseSamples() float64 {
	return t.codePhase * (t.fs / gnss.ChipsPerSec)
}

// TestStat returns the last symbol test statistic
func (t *L2CM) TestStat() float64 {
	if t.mode == l2cmTracking {
		return t.testStat
	}
	return 0.0
}

// SVTimeOfWeek returns the current SV time estimate in seconds
func (t *L2CM) SVTimeOfWeek() float64 { return t.towOuter.Time() }

// ResetClock sets both SV-time clocks
func (t *L2CM) ResetClock(tow float64) {
	t.towOuter.Reset(tow)
	t.towInner.Reset(tow)
}

// Snapshot captures tracker internals for diagnostics
func (t *L2CM) Snapshot() Debug {
	return Debug{
		PRN:       t.prn,
		CarrierRe: real(t.carrier),
		CarrierIm: imag(t.carrier),
		CarrierHz: t.CarrierFreqHz(),
		PromptRe:  real(t.sumPrompt),
		PromptIm:  imag(t.sumPrompt),
		TestStat:  t.TestStat(),
	}
}

// Initialize resets the NCOs, filters and lock FSM for a new acquisition at
// the given Doppler.
func (t *L2CM) Initialize(acqFreqHz float64) {
	acqCarrierRadPerSec := acqFreqHz * 2.0 * math.Pi
	t.carrier = complex(1, 0)
	t.carrierDPhaseRad = acqCarrierRadPerSec / t.fs
	t.carrierInc = cmplx.Rect(1, -t.carrierDPhaseRad)

	// The chips come at the same combined rate as L1; only the carrier
	// frequency scaling the code Doppler changes
	radialVelocityFactor := (gnss.L2CarrierHz + acqFreqHz) / gnss.L2CarrierHz
	t.codePhase = 0.0
	t.codeDPhase = (radialVelocityFactor * gnss.ChipsPerSec) / t.fs

	t.carrierFilter.Initialize()
	t.codeFilter.Initialize()

	t.inputPower = 0.0
	t.sumEarly, t.sumPrompt, t.sumLate = 0, 0, 0

	t.mode = l2cmWaitingForInitialLock
	t.prevPrompt = 0
	t.prevTestStat = 0.0
}

// Control loads an acquisition result
func (t *L2CM) Control(acq acquisition.Result) (block.Unit, error) {
	t.Initialize(acq.DopplerHz)
	t.lastAcq = acq
	return block.Unit{}, nil
}

// Apply advances the tracker by one sample
func (t *L2CM) Apply(s gnss.Sample) block.Result[Report] {
	if s.Idx < t.lastAcq.SampleIdx+t.lastAcq.CodePhase+2 {
		return block.NotReady[Report]()
	}

	t.towOuter.Inc()

	t.carrier *= t.carrierInc
	t.codePhase += t.codeDPhase

	x := s.Val * t.carrier
	t.inputPower += normSq(x)

	var eIdx int
	if t.codePhase < 0.5 {
		eIdx = cmInterleavedLen - 1
	} else {
		eIdx = int(t.codePhase - 0.5)
	}
	t.sumEarly += t.localCode[eIdx%cmInterleavedLen] * x
	t.sumPrompt += t.localCode[int(t.codePhase)%cmInterleavedLen] * x
	t.sumLate += t.localCode[(eIdx+1)%cmInterleavedLen] * x

	if t.codePhase < float64(cmInterleavedLen) {
		return block.NotReady[Report]()
	}

	// End of a 20-ms CM symbol
	t.towInner.Inc()
	t.towOuter.Reset(t.towInner.Time())

	t.carrierDPhaseRad += t.carrierFilter.Apply(costasDiscriminator(t.sumPrompt))
	t.carrierInc = cmplx.Rect(1, -t.carrierDPhaseRad)

	t.codePhase -= float64(cmInterleavedLen)
	t.codeDPhase += t.codeFilter.Apply(codeDiscriminator(t.sumEarly, t.sumLate))
	t.towOuter.SetClockRate(t.codeDPhase * (t.fs * t.fs / gnss.ChipsPerSec))

	testStat := normSq(t.sumPrompt) / (t.inputPower * t.codeLenSamples)
	prompt := t.sumPrompt

	t.inputPower = 0.0
	t.sumEarly, t.sumPrompt, t.sumLate = 0, 0, 0

	switch t.mode {
	case l2cmWaitingForInitialLock:
		switch {
		case t.prevTestStat > L2CMThreshPromoteToTracking &&
			testStat > L2CMThreshPromoteToTracking &&
			(real(t.prevPrompt) > 0.0) != (real(prompt) > 0.0):
			// Two strong consecutive symbols with a sign flip between them
			t.mode = l2cmTracking
			t.testStat = testStat
			return block.NotReady[Report]()
		case testStat < L2CMThreshLossOfLock:
			t.mode = l2cmLostLock
			return block.Fail[Report](gnss.ErrLossOfLock)
		default:
			t.prevTestStat = testStat
			t.prevPrompt = prompt
			return block.NotReady[Report]()
		}

	case l2cmTracking:
		// Normalize the carrier at the end of every symbol
		t.carrier /= complex(cmplx.Abs(t.carrier), 0)

		t.testStat = testStat
		if testStat < L2CMThreshLossOfLock {
			t.mode = l2cmLostLock
			return block.Fail[Report](gnss.ErrLossOfLock)
		}
		return block.Ready(Report{
			PRN:       t.prn,
			PromptI:   real(prompt),
			SampleIdx: s.Idx,
			TestStat:  testStat,
			FreqHz:    t.CarrierFreqHz(),
		})

	default: // l2cmLostLock
		return block.Fail[Report](gnss.ErrLossOfLock)
	}
}
