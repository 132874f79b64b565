package tracking

import (
	"math"
	"math/cmplx"

	"github.com/softnav/gnssdr/pkg/block"
	"github.com/softnav/gnssdr/pkg/dsp"
	"github.com/softnav/gnssdr/pkg/gnss"
	"github.com/softnav/gnssdr/pkg/gps/acquisition"
	"github.com/softnav/gnssdr/pkg/gps/ca"
	"github.com/softnav/gnssdr/pkg/gtime"
)

// Detection thresholds for the L1 C/A lock state machine. The short
// thresholds act on 1-ms coherent intervals, the long threshold on the
// 20-ms bit-length interval.
const (
	ShortCohThreshPromoteToLong = 0.008
	ShortCohThreshLossOfLock    = 5.0e-7
	LongCohThreshLossOfLock     = 1.0e-3

	// L1CASymbolLenSec is the short coherent interval, one C/A code period
	L1CASymbolLenSec = 1.0e-3

	// shortIntervalsPerBit is the number of code periods per data bit
	shortIntervalsPerBit = 20
)

// Default pole-placement parameters for the two loop filters. Zero is below
// the clamp floor, so these select the widest stable loop.
const (
	DefaultL1CarrierAlpha = 0.0
	DefaultL1CodeAlpha    = 0.0
)

type l1Mode int

const (
	l1WaitingForInitialLock l1Mode = iota
	l1Tracking
	l1LostLock
)

// l1State carries the lock FSM mode together with the accumulators that
// only exist in particular modes.
type l1State struct {
	mode l1Mode

	// WaitingForInitialLockStatus
	prevPrompt   complex128
	prevTestStat float64

	// Tracking
	numShortIntervals  int
	filterRate         int
	cyclesSinceUpgrade int
	sumPromptLong      complex128
	sumPromptMedium    complex128
	inputPowerLong     float64
	testStat           float64
}

// L1CA tracks a GPS L1 C/A signal: a carrier NCO held as a complex unit
// vector, a code NCO in chips, early/prompt/late accumulators and a
// two-tier coherent integration scheme with the lock state machine on top.
type L1CA struct {
	prn            int
	fs             float64
	codeLenSamples float64
	localCode      []complex128

	lastAcq acquisition.Result

	// Drift-free SV time: the inner clock ticks once per code period, the
	// outer clock interpolates between code periods at the sample rate.
	towInner *gtime.IntegerClock
	towOuter *gtime.IntegerClock

	carrier          complex128
	carrierInc       complex128
	carrierDPhaseRad float64
	codePhase        float64
	codeDPhase       float64

	carrierFilter dsp.ScalarFilter
	codeFilter    dsp.ScalarFilter

	// Short-interval accumulators
	sumEarly   complex128
	sumPrompt  complex128
	sumLate    complex128
	inputPower float64

	state l1State
}

// NewL1CA builds a tracker for the given PRN. The alpha parameters place
// the poles of the second-order carrier and code loop filters.
func NewL1CA(prn int, fs, alphaCarrier, alphaCode float64) (*L1CA, error) {
	localCode, err := ca.CodeComplex(prn)
	if err != nil {
		return nil, err
	}

	t := &L1CA{
		prn:            prn,
		fs:             fs,
		codeLenSamples: fs * L1CASymbolLenSec,
		localCode:      localCode,
		towInner:       gtime.NewIntegerClock(1.0 / L1CASymbolLenSec),
		towOuter:       gtime.NewIntegerClock(fs),
		carrierFilter:  dsp.LoopSecondOrderFIR(alphaCarrier, L1CASymbolLenSec, fs),
		codeFilter:     dsp.LoopSecondOrderFIR(alphaCode, L1CASymbolLenSec, fs),
	}
	t.Initialize(0.0)
	return t, nil
}

// PRN returns the PRN this tracker is configured for
func (t *L1CA) PRN() int { return t.prn }

// LastAcq returns the acquisition result this tracker was initialized from
func (t *L1CA) LastAcq() acquisition.Result { return t.lastAcq }

// CarrierFreqHz returns the tracked carrier frequency
func (t *L1CA) CarrierFreqHz() float64 {
	return (t.carrierDPhaseRad * t.fs) / (2.0 * math.Pi)
}

// CarrierPhaseRad returns the instantaneous carrier phase
func (t *L1CA) CarrierPhaseRad() float64 { return cmplx.Phase(t.carrier) }

// CodePhaseSamples returns the code phase converted from chips to samples
func (t *L1CA) CodePhaseSamples() float64 {
	return t.codePhase * (t.fs / gnss.ChipsPerSec)
}

// CodeDPhase returns the code rate in chips per sample
func (t *L1CA) CodeDPhase() float64 { return t.codeDPhase }

// TestStat returns the last long-coherent test statistic, or zero outside
// the tracking state.
func (t *L1CA) TestStat() float64 {
	if t.state.mode == l1Tracking {
		return t.state.testStat
	}
	return 0.0
}

// SVTimeOfWeek returns the current SV time estimate in seconds
func (t *L1CA) SVTimeOfWeek() float64 { return t.towOuter.Time() }

// ResetClock sets both SV-time clocks, called when telemetry provides the
// true time of week.
func (t *L1CA) ResetClock(tow float64) {
	t.towOuter.Reset(tow)
	t.towInner.Reset(tow)
}

// Snapshot captures tracker internals for diagnostics
func (t *L1CA) Snapshot() Debug {
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
// the given Doppler. FFT plans and the code table are untouched.
func (t *L1CA) Initialize(acqFreqHz float64) {
	acqCarrierRadPerSec := acqFreqHz * 2.0 * math.Pi
	t.carrier = complex(1, 0)
	t.carrierDPhaseRad = acqCarrierRadPerSec / t.fs
	t.carrierInc = cmplx.Rect(1, -t.carrierDPhaseRad)

	// The code Doppler scales with the carrier Doppler through the radial
	// velocity
	radialVelocityFactor := (gnss.L1CarrierHz + acqFreqHz) / gnss.L1CarrierHz
	t.codePhase = 0.0
	t.codeDPhase = (radialVelocityFactor * gnss.ChipsPerSec) / t.fs

	t.carrierFilter.Initialize()
	t.codeFilter.Initialize()

	t.inputPower = 0.0
	t.sumEarly, t.sumPrompt, t.sumLate = 0, 0, 0

	t.state = l1State{mode: l1WaitingForInitialLock}
}

// Control loads an acquisition result: the tracker restarts at the acquired
// Doppler and holds the acquisition sample index to time its pull-in.
func (t *L1CA) Control(acq acquisition.Result) (block.Unit, error) {
	t.Initialize(acq.DopplerHz)
	t.lastAcq = acq
	return block.Unit{}, nil
}

// Apply advances the tracker by one sample
func (t *L1CA) Apply(s gnss.Sample) block.Result[Report] {
	if s.Idx < t.lastAcq.SampleIdx+t.lastAcq.CodePhase+2 {
		// Still pulling in to the code phase the acquisition reported
		return block.NotReady[Report]()
	}

	t.towOuter.Inc()

	// Advance the carrier and code NCOs
	t.carrier *= t.carrierInc
	t.codePhase += t.codeDPhase

	// Wipe the carrier off the new sample and accumulate input power
	x := s.Val * t.carrier
	t.inputPower += normSq(x)

	// Accumulate early, prompt and late sums
	var eIdx int
	if t.codePhase < 0.5 {
		eIdx = ca.CodeLenChips - 1
	} else {
		eIdx = int(t.codePhase - 0.5)
	}
	t.sumEarly += t.localCode[eIdx%ca.CodeLenChips] * x
	t.sumPrompt += t.localCode[int(t.codePhase)%ca.CodeLenChips] * x
	t.sumLate += t.localCode[(eIdx+1)%ca.CodeLenChips] * x

	if t.codePhase < float64(ca.CodeLenChips) {
		return block.NotReady[Report]()
	}

	// End of a 1-ms short coherent cycle
	t.towInner.Inc()
	t.towOuter.Reset(t.towInner.Time())

	// Update code tracking
	t.codePhase -= float64(ca.CodeLenChips)
	t.codeDPhase += t.codeFilter.Apply(codeDiscriminator(t.sumEarly, t.sumLate))
	t.towOuter.SetClockRate(t.codeDPhase * (t.fs * t.fs / gnss.ChipsPerSec))

	result := t.endShortCycle(s.Idx)

	// Reset the short accumulators for the next cycle
	t.inputPower = 0.0
	t.sumEarly, t.sumPrompt, t.sumLate = 0, 0, 0

	return result
}

// updateCarrier runs the carrier discriminator and filter on the given
// prompt and refreshes the NCO increment.
func (t *L1CA) updateCarrier(prompt complex128) {
	t.carrierDPhaseRad += t.carrierFilter.Apply(costasDiscriminator(prompt))
	t.carrierInc = cmplx.Rect(1, -t.carrierDPhaseRad)
}

// endShortCycle runs the lock state machine at the end of each 1-ms
// coherent interval.
func (t *L1CA) endShortCycle(sampleIdx int) block.Result[Report] {
	st := &t.state
	switch st.mode {

	case l1WaitingForInitialLock:
		t.updateCarrier(t.sumPrompt)

		testStat := normSq(t.sumPrompt) / (t.inputPower * t.codeLenSamples)

		switch {
		case st.prevTestStat > ShortCohThreshPromoteToLong &&
			testStat > ShortCohThreshPromoteToLong &&
			(real(st.prevPrompt) > 0.0) != (real(t.sumPrompt) > 0.0):
			// Two strong consecutive intervals with a sign flip between
			// them: the flip marks a data-bit edge, so long coherent
			// accumulation can start aligned to the bit boundary
			t.state = l1State{
				mode:              l1Tracking,
				numShortIntervals: 1,
				filterRate:        1,
				sumPromptLong:     t.sumPrompt,
				sumPromptMedium:   t.sumPrompt,
				inputPowerLong:    t.inputPower,
				testStat:          testStat,
			}
			return block.NotReady[Report]()
		case testStat < ShortCohThreshLossOfLock:
			st.mode = l1LostLock
			return block.Fail[Report](gnss.ErrLossOfLock)
		default:
			st.prevTestStat = testStat
			st.prevPrompt = t.sumPrompt
			return block.NotReady[Report]()
		}

	case l1Tracking:
		st.numShortIntervals++
		st.cyclesSinceUpgrade++
		st.sumPromptLong += t.sumPrompt
		// The medium sum folds out the data modulation with the sign of the
		// in-phase component
		if real(t.sumPrompt) < 0.0 {
			st.sumPromptMedium -= t.sumPrompt
		} else {
			st.sumPromptMedium += t.sumPrompt
		}
		st.inputPowerLong += t.inputPower

		if st.numShortIntervals%st.filterRate == 0 {
			t.updateCarrier(st.sumPromptMedium)
			st.sumPromptMedium = 0

			if st.cyclesSinceUpgrade > 20 {
				// Promote the carrier update cadence; the filter taps scale
				// down to keep the loop bandwidth matched to the longer
				// coherent interval
				var nextRate int
				var nextScale float64
				switch st.filterRate {
				case 1:
					nextRate, nextScale = 2, 0.50
				case 2:
					nextRate, nextScale = 4, 0.25
				case 4:
					nextRate, nextScale = 5, 0.20
				case 5:
					nextRate, nextScale = 10, 0.10
				case 10:
					nextRate, nextScale = 20, 0.05
				}
				if nextRate != 0 {
					st.filterRate = nextRate
					t.carrierFilter.ScaleCoeffs(nextScale)
				}
				st.cyclesSinceUpgrade = 0
			}
		}

		if st.numShortIntervals < shortIntervalsPerBit {
			return block.NotReady[Report]()
		}

		// Normalize the carrier at the end of every bit
		t.carrier /= complex(cmplx.Abs(t.carrier), 0)

		// Judge the lock over the full 20-ms interval
		st.testStat = normSq(st.sumPromptLong) /
			(st.inputPowerLong * t.codeLenSamples * shortIntervalsPerBit)

		promptI := real(st.sumPromptLong)
		st.numShortIntervals = 0
		st.sumPromptLong = 0
		st.inputPowerLong = 0.0

		if st.testStat < LongCohThreshLossOfLock {
			st.mode = l1LostLock
			return block.Fail[Report](gnss.ErrLossOfLock)
		}
		return block.Ready(Report{
			PRN:       t.prn,
			PromptI:   promptI,
			SampleIdx: sampleIdx,
			TestStat:  st.testStat,
			FreqHz:    t.CarrierFreqHz(),
		})

	default: // l1LostLock
		return block.Fail[Report](gnss.ErrLossOfLock)
	}
}
