package tracking

import (
	"math"
	"math/cmplx"

	"github.com/softnav/gnssdr/pkg/block"
	"github.com/softnav/gnssdr/pkg/dsp"
	"github.com/softnav/gnssdr/pkg/gnss"
	"github.com/softnav/gnssdr/pkg/gps/acquisition"
	"github.com/softnav/gnssdr/pkg/gps/l2c"
)

// L2CLTestStatThresh is the lock threshold for the 1.5-s CL coherent
// interval.
const L2CLTestStatThresh = 7.5e-7

// L2CLSymbolLenSec is the CL code period
const L2CLSymbolLenSec = 1.5

// filterCyclesPerCLSymbol is how many times the loop filters run within one
// CL period.
const filterCyclesPerCLSymbol = 26

// clInterleavedLen is the CL code length at the combined chipping rate
const clInterleavedLen = 2 * l2c.CLLenChips

type l2clMode int

const (
	l2clWaitingForInitialLock l2clMode = iota
	l2clTracking
	l2clLostLock
)

// L2CL tracks the dataless GPS L2 CL signal and demodulates the CM data
// stream alongside it: the discriminators and lock test run on the long CL
// code while a parallel CM accumulator yields one data symbol per 20 ms.
type L2CL struct {
	prn         int
	fs          float64
	localCLCode []complex128
	localCMCode []complex128

	lastAcq acquisition.Result

	lastTestStat float64

	carrier          complex128
	carrierInc       complex128
	carrierDPhaseRad float64
	codePhase        float64
	codeDPhase       float64

	carrierFilter dsp.ScalarFilter
	codeFilter    dsp.ScalarFilter

	// CM symbol accumulation for data demodulation. cmBoundary is the code
	// phase at which the current CM symbol ends.
	sumPromptCM complex128
	cmBoundary  float64

	// Short-cycle accumulation for filter processing
	cycleStartChips [filterCyclesPerCLSymbol]float64
	nextStartIndex  int
	sumEarly        complex128
	sumPrompt       complex128
	sumLate         complex128

	// Long-interval accumulation for lock evaluation
	sumPromptLong            complex128
	inputPower               float64
	testStatPeriodLenSamples float64

	mode l2clMode
}

// NewL2CL builds a CL tracker for the given PRN. Generating the CL replica
// touches all 767250 chips, so construction is noticeably heavier than for
// the other trackers.
func NewL2CL(prn int, fs float64) (*L2CL, error) {
	localCLCode, err := l2c.CLInterleaved(prn)
	if err != nil {
		return nil, err
	}
	localCMCode, err := l2c.CMInterleaved(prn)
	if err != nil {
		return nil, err
	}

	filterRateHz := float64(filterCyclesPerCLSymbol) / L2CLSymbolLenSec

	t := &L2CL{
		prn:                      prn,
		fs:                       fs,
		localCLCode:              localCLCode,
		localCMCode:              localCMCode,
		testStatPeriodLenSamples: fs * L2CLSymbolLenSec,
		carrierFilter: l2LoopFilter(defaultL2FilterB1, defaultL2FilterB2,
			defaultL2FilterB3, defaultL2FilterB4, filterRateHz, fs),
		codeFilter: l2LoopFilter(defaultL2FilterB1, defaultL2FilterB2,
			defaultL2FilterB3, defaultL2FilterB4, filterRateHz, fs),
	}

	chipsPerCycle := float64(clInterleavedLen) / filterCyclesPerCLSymbol
	for i := range t.cycleStartChips {
		t.cycleStartChips[i] = float64(i) * chipsPerCycle
	}

	t.Initialize(0.0)
	return t, nil
}

// PRN returns the PRN this tracker is configured for
func (t *L2CL) PRN() int { return t.prn }

// CarrierFreqHz returns the tracked carrier frequency
func (t *L2CL) CarrierFreqHz() float64 {
	return (t.carrierDPhaseRad * t.fs) / (2.0 * math.Pi)
}

// CodePhaseSamples returns the code phase converted from combined chips to
// samples.
func (t *L2CL) CodePhaseSamples() float64 {
	return t.codePhase * (t.fs / gnss.ChipsPerSec)
}

// TestStat returns the last long-interval test statistic
func (t *L2CL) TestStat() float64 { return t.lastTestStat }

// Snapshot captures tracker internals for diagnostics
func (t *L2CL) Snapshot() Debug {
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
func (t *L2CL) Initialize(acqFreqHz float64) {
	acqCarrierRadPerSec := acqFreqHz * 2.0 * math.Pi
	t.carrier = complex(1, 0)
	t.carrierDPhaseRad = acqCarrierRadPerSec / t.fs
	t.carrierInc = cmplx.Rect(1, -t.carrierDPhaseRad)

	radialVelocityFactor := (gnss.L2CarrierHz + acqFreqHz) / gnss.L2CarrierHz
	t.codePhase = 0.0
	t.codeDPhase = (radialVelocityFactor * gnss.ChipsPerSec) / t.fs

	t.carrierFilter.Initialize()
	t.codeFilter.Initialize()

	t.inputPower = 0.0
	t.sumEarly, t.sumPrompt, t.sumLate = 0, 0, 0
	t.sumPromptLong = 0
	t.sumPromptCM = 0
	t.cmBoundary = cmInterleavedLen
	t.nextStartIndex = 1

	t.mode = l2clWaitingForInitialLock
}

// Control loads an acquisition result
func (t *L2CL) Control(acq acquisition.Result) (block.Unit, error) {
	t.Initialize(acq.DopplerHz)
	t.lastAcq = acq
	return block.Unit{}, nil
}

// Apply advances the tracker by one sample
func (t *L2CL) Apply(s gnss.Sample) block.Result[Report] {
	if s.Idx < t.lastAcq.SampleIdx+t.lastAcq.CodePhase+2 {
		return block.NotReady[Report]()
	}

	t.carrier *= t.carrierInc
	t.codePhase += t.codeDPhase

	x := s.Val * t.carrier
	t.inputPower += normSq(x)

	// E/P/L sums against the CL replica for filter processing
	var eIdx int
	if t.codePhase < 0.5 {
		eIdx = clInterleavedLen - 1
	} else {
		eIdx = int(t.codePhase - 0.5)
	}
	pIdx := int(t.codePhase) % clInterleavedLen
	t.sumEarly += t.localCLCode[eIdx%clInterleavedLen] * x
	t.sumPrompt += t.localCLCode[pIdx] * x
	t.sumLate += t.localCLCode[(eIdx+1)%clInterleavedLen] * x

	// Long prompt for lock evaluation
	t.sumPromptLong += t.localCLCode[pIdx] * x

	// CM prompt for data demodulation
	t.sumPromptCM += t.localCMCode[int(t.codePhase)%cmInterleavedLen] * x

	if (t.nextStartIndex > 0 && t.codePhase >= t.cycleStartChips[t.nextStartIndex]) ||
		(t.nextStartIndex == 0 && t.codePhase < t.cycleStartChips[1]) {
		// End of a short coherent cycle
		t.nextStartIndex = (t.nextStartIndex + 1) % filterCyclesPerCLSymbol

		t.carrierDPhaseRad += t.carrierFilter.Apply(costasDiscriminator(t.sumPrompt))
		t.carrierInc = cmplx.Rect(1, -t.carrierDPhaseRad)

		t.codeDPhase += t.codeFilter.Apply(codeDiscriminator(t.sumEarly, t.sumLate))

		// Normalize the carrier at the end of every short cycle
		t.carrier /= complex(cmplx.Abs(t.carrier), 0)

		t.sumEarly, t.sumPrompt, t.sumLate = 0, 0, 0
	}

	cmSymbolDone := false
	if t.codePhase >= t.cmBoundary {
		cmSymbolDone = true
		t.cmBoundary += cmInterleavedLen
	}

	if t.codePhase >= float64(clInterleavedLen) {
		// End of a 1.5-s CL symbol: evaluate the lock and wrap the code
		// phase by the full interleaved CL length
		t.codePhase -= float64(clInterleavedLen)
		t.cmBoundary = cmInterleavedLen

		t.lastTestStat = normSq(t.sumPromptLong) / (t.inputPower * t.testStatPeriodLenSamples)

		t.inputPower = 0.0
		t.sumPromptLong = 0

		switch t.mode {
		case l2clWaitingForInitialLock:
			if t.lastTestStat > L2CLTestStatThresh {
				t.mode = l2clTracking
			}
		case l2clTracking:
			if t.lastTestStat < L2CLTestStatThresh {
				t.mode = l2clLostLock
			}
		}
	}

	if cmSymbolDone && t.mode == l2clTracking {
		promptI := real(t.sumPromptCM)
		t.sumPromptCM = 0
		return block.Ready(Report{
			PRN:       t.prn,
			PromptI:   promptI,
			SampleIdx: s.Idx,
			TestStat:  t.lastTestStat,
			FreqHz:    t.CarrierFreqHz(),
		})
	}
	if cmSymbolDone {
		// Not locked yet; restart the symbol accumulator anyway
		t.sumPromptCM = 0
	}
	if t.mode == l2clLostLock {
		return block.Fail[Report](gnss.ErrLossOfLock)
	}
	return block.NotReady[Report]()
}
