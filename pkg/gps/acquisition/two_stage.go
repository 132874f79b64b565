package acquisition

import (
	"github.com/softnav/gnssdr/pkg/block"
	"github.com/softnav/gnssdr/pkg/gnss"
)

type twoStageState int

const (
	stageOne twoStageState = iota
	stageTwo
)

// TwoStage runs a fast PCPS search for a coarse estimate, then repeatedly
// re-searches two candidate frequencies a quarter step either side of the
// current estimate, halving the step each pass until it reaches the
// requested resolution.
type TwoStage struct {
	fs         float64
	threshold  float64
	resolution float64

	state    twoStageState
	stageOne *Fast
	stageTwo *Basic
}

// NewTwoStage builds a two-stage PCPS search. resolutionHz is the Doppler
// step at which stage two stops refining and emits its result.
func NewTwoStage(symbol []complex128, fs float64, prn, nCoarse, nFine int, resolutionHz, threshold float64, nSkip int) (*TwoStage, error) {
	one, err := NewFast(symbol, fs, prn, nCoarse, nFine, threshold, nSkip)
	if err != nil {
		return nil, err
	}
	// Stage two uses a zero threshold so every complete buffer yields a
	// candidate for this state machine to judge itself
	two, err := NewBasic(symbol, fs, prn, 0.0, nil)
	if err != nil {
		return nil, err
	}
	return &TwoStage{
		fs:         fs,
		threshold:  threshold,
		resolution: resolutionHz,
		state:      stageOne,
		stageOne:   one,
		stageTwo:   two,
	}, nil
}

// PRN returns the PRN this search is configured for
func (a *TwoStage) PRN() int {
	return a.stageOne.prn
}

// ProvideSample routes the sample to whichever stage is running
func (a *TwoStage) ProvideSample(s gnss.Sample) error {
	if a.state == stageOne {
		return a.stageOne.ProvideSample(s)
	}
	return a.stageTwo.ProvideSample(s)
}

// refineAround points stage two at the two candidates straddling the given
// frequency at a quarter of the given step.
func (a *TwoStage) refineAround(dopplerHz, stepHz float64) {
	half := 0.25 * stepHz
	a.stageTwo.DopplerFreqs = a.stageTwo.DopplerFreqs[:0]
	a.stageTwo.DopplerFreqs = append(a.stageTwo.DopplerFreqs, dopplerHz-half, dopplerHz+half)
}

// BlockForResult advances the state machine one search step. A result only
// comes out of stage two, once the step has shrunk to the configured
// resolution.
func (a *TwoStage) BlockForResult() (*Result, error) {
	switch a.state {
	case stageOne:
		res, err := a.stageOne.BlockForResult()
		if err != nil {
			return nil, err
		}
		if res != nil {
			a.refineAround(res.DopplerHz, res.DopplerStepHz)
			a.state = stageTwo
		}
		return nil, nil

	default: // stageTwo
		res, err := a.stageTwo.BlockForResult()
		if err != nil {
			return nil, err
		}
		if res == nil {
			return nil, nil
		}
		if res.TestStatistic() <= a.threshold {
			// Lost the candidate during refinement; start the whole search
			// over
			a.state = stageOne
			return nil, nil
		}
		if res.DopplerStepHz <= a.resolution {
			// Refined far enough
			a.state = stageOne
			return res, nil
		}
		// The candidates sit a quarter of the reported step either side of
		// the estimate, so the step halves on every pass
		a.refineAround(res.DopplerHz, res.DopplerStepHz)
		return nil, nil
	}
}

// Control is a no-op; the two-stage search has no runtime configuration
func (a *TwoStage) Control(_ block.Unit) (block.Unit, error) {
	return block.Unit{}, nil
}

// Apply feeds one sample and reports a result when the refined search
// succeeds.
func (a *TwoStage) Apply(s gnss.Sample) block.Result[Result] {
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
