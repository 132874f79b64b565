// Package channel ties one PRN's processing chain together: two-stage
// acquisition and an L1 C/A tracker under the acquire-and-track supervisor,
// the LNAV telemetry decoder, and the ephemeris and ionosphere stores that
// turn tracked state into pseudorange observations.
package channel

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/softnav/gnssdr/pkg/block"
	"github.com/softnav/gnssdr/pkg/gnss"
	"github.com/softnav/gnssdr/pkg/gps/acquisition"
	"github.com/softnav/gnssdr/pkg/gps/ca"
	"github.com/softnav/gnssdr/pkg/gps/ephemeris"
	"github.com/softnav/gnssdr/pkg/gps/lnav"
	"github.com/softnav/gnssdr/pkg/gps/pvt"
	"github.com/softnav/gnssdr/pkg/gps/tracking"
)

// Default acquisition parameters for L1 C/A channels
const (
	DefaultDopplerStepHz     = 50.0
	DefaultDopplerMaxHz      = 10000.0
	DefaultTestStatThreshold = 0.008
	defaultAcqNCoarse        = 9
	defaultAcqNFine          = 3
	defaultAcqStageTwoResHz  = 50.0
	defaultAcqNSkip          = 8
)

// Command is a driver-visible channel control
type Command int

// Channel commands
const (
	// CommandIonosphere asks for the current ionospheric model
	CommandIonosphere Command = iota
	// CommandReset re-initializes the channel
	CommandReset
)

// Response answers a channel command
type Response struct {
	// Ionosphere is the current model, nil if none has been decoded
	Ionosphere *ephemeris.IonosphereModel
}

// Acquired describes a fresh acquisition
type Acquired struct {
	DopplerHz float64
	TestStat  float64
	CodePhase int
}

// Report is a channel's output for one sample: a fresh acquisition, any
// decoded subframe, any epoch observation, and whether a new ionospheric
// model just arrived.
type Report struct {
	PRN           int
	Acquired      *Acquired
	Subframe      *lnav.Subframe
	Observation   *pvt.Observation
	NewIonosphere bool
}

// aat is the concrete acquire-and-track instantiation for an L1 channel
type aat = block.AcquireAndTrack[gnss.Sample, acquisition.Result, tracking.Report, *acquisition.TwoStage, *tracking.L1CA]

// Input is one sample paired with the receiver's time-of-week estimate
type Input struct {
	Sample gnss.Sample
	RxTow  float64
}

// Channel is the per-PRN processing chain. It exclusively owns its
// acquisition, tracker and telemetry decoder; ephemeris and ionosphere data
// are plain values copied out on request.
type Channel struct {
	prn int
	fs  float64

	aat *aat
	tlm *lnav.Decoder

	lastAcqDoppler float64
	lastSampleIdx  int

	lastSF1 *lnav.Subframe1
	lastSF2 *lnav.Subframe2
	lastSF3 *lnav.Subframe3

	eph  *ephemeris.Ephemeris
	iono *ephemeris.IonosphereModel

	pvtRateSamples int

	log logrus.FieldLogger
}

// New builds a channel for one PRN. pvtRateSamples sets how often (in
// samples) the channel contributes an observation.
func New(prn int, fs, testStatThreshold float64, pvtRateSamples int, log logrus.FieldLogger) (*Channel, error) {
	sampled, err := ca.CodeSampled(prn, fs)
	if err != nil {
		return nil, fmt.Errorf("building C/A replica for PRN %d: %w", prn, err)
	}
	symbol := make([]complex128, len(sampled))
	for i, v := range sampled {
		symbol[i] = complex(float64(v), 0)
	}

	acq, err := acquisition.NewTwoStage(symbol, fs, prn, defaultAcqNCoarse, defaultAcqNFine,
		defaultAcqStageTwoResHz, testStatThreshold, defaultAcqNSkip)
	if err != nil {
		return nil, err
	}
	trk, err := tracking.NewL1CA(prn, fs, tracking.DefaultL1CarrierAlpha, tracking.DefaultL1CodeAlpha)
	if err != nil {
		return nil, err
	}

	return &Channel{
		prn:            prn,
		fs:             fs,
		aat:            block.NewAcquireAndTrack[gnss.Sample, acquisition.Result, tracking.Report](acq, trk),
		tlm:            lnav.NewDecoder(),
		pvtRateSamples: pvtRateSamples,
		log:            log.WithField("prn", prn),
	}, nil
}

// PRN returns the PRN this channel follows
func (c *Channel) PRN() int { return c.prn }

// Tracking reports whether the channel currently has a signal lock
func (c *Channel) Tracking() bool { return !c.aat.AwaitingAcq }

// CarrierFreqHz returns the tracked carrier frequency
func (c *Channel) CarrierFreqHz() float64 { return c.aat.Trk.CarrierFreqHz() }

// TestStat returns the tracker's current lock statistic
func (c *Channel) TestStat() float64 { return c.aat.Trk.TestStat() }

// LastAcqDoppler returns the Doppler of the most recent acquisition
func (c *Channel) LastAcqDoppler() float64 { return c.lastAcqDoppler }

// Ephemeris returns a copy of the current ephemeris, if one has been
// assembled.
func (c *Channel) Ephemeris() *ephemeris.Ephemeris {
	if c.eph == nil {
		return nil
	}
	e := *c.eph
	return &e
}

// Ionosphere returns a copy of the current ionospheric model, if any
func (c *Channel) Ionosphere() *ephemeris.IonosphereModel {
	if c.iono == nil {
		return nil
	}
	m := *c.iono
	return &m
}

// Command handles a driver-visible channel command
func (c *Channel) Command(cmd Command) (Response, error) {
	switch cmd {
	case CommandIonosphere:
		return Response{Ionosphere: c.Ionosphere()}, nil
	case CommandReset:
		c.aat.AwaitingAcq = true
		c.tlm.Initialize()
		return Response{}, nil
	default:
		return Response{}, fmt.Errorf("unknown channel command %d", cmd)
	}
}

// Control implements the scheduler's is-this-channel-locked query
func (c *Channel) Control(_ block.Unit) (bool, error) {
	return c.Tracking(), nil
}

// Apply advances the channel by one sample
func (c *Channel) Apply(in Input) block.Result[Report] {
	s := in.Sample
	if s.Idx <= c.lastSampleIdx && c.lastSampleIdx > 0 {
		// The sample bus is the global clock; going backwards means the
		// driver is broken, not the signal
		panic(fmt.Sprintf("channel PRN %d: sample index went backwards (%d after %d)", c.prn, s.Idx, c.lastSampleIdx))
	}
	c.lastSampleIdx = s.Idx

	wasAwaiting := c.aat.AwaitingAcq

	res := c.aat.Apply(s)
	if err := res.Err(); err != nil {
		// Anything fatal from the tracker reads as a lost channel here
		return block.Fail[Report](gnss.ErrLossOfLock)
	}

	var report *Report

	if wasAwaiting && !c.aat.AwaitingAcq {
		acq := c.aat.Trk.LastAcq()
		c.lastAcqDoppler = acq.DopplerHz
		c.log.WithFields(logrus.Fields{
			"doppler_hz": acq.DopplerHz,
			"test_stat":  acq.TestStatistic(),
			"code_phase": acq.CodePhase,
		}).Info("acquired, attempting to track")
		report = &Report{PRN: c.prn, Acquired: &Acquired{
			DopplerHz: acq.DopplerHz,
			TestStat:  acq.TestStatistic(),
			CodePhase: acq.CodePhase,
		}}
	}

	if res.IsReady() {
		trackRpt := res.Value()
		if report == nil {
			report = &Report{PRN: c.prn}
		}
		decoded, err := c.tlm.ApplyBit(trackRpt.Bit(), trackRpt.SampleIdx)
		switch {
		case err != nil:
			// The decoder already reset itself; nothing to propagate
			c.log.WithError(err).Debug("telemetry decoder reset")
		case decoded != nil:
			c.handleSubframe(decoded, report)
		}
	}

	if s.Idx%c.pvtRateSamples == 0 {
		if obs := c.Observation(in.RxTow); obs != nil {
			if report == nil {
				report = &Report{PRN: c.prn}
			}
			report.Observation = obs
		}
	}

	if report == nil {
		return block.NotReady[Report]()
	}
	return block.Ready(*report)
}

// handleSubframe stores subframe state and assembles an ephemeris when a
// consistent set completes.
func (c *Channel) handleSubframe(decoded *lnav.Decoded, report *Report) {
	sf := decoded.Subframe
	report.Subframe = &sf

	// Telemetry gives the true time of week for the end of this subframe,
	// so re-seat the tracker's SV clock
	c.aat.Trk.ResetClock(sf.TimeOfWeek() + c.aat.Trk.CodePhaseSamples()/c.fs)

	switch body := sf.Body.(type) {
	case lnav.Subframe1:
		c.lastSF1 = &body
	case lnav.Subframe2:
		c.lastSF2 = &body
	case lnav.Subframe3:
		c.lastSF3 = &body
		c.tryAssembleEphemeris()
	case lnav.Subframe4:
		if page, ok := body.Page.(lnav.IonoUTCPage); ok {
			c.iono = &ephemeris.IonosphereModel{
				Alpha0: page.Alpha0, Alpha1: page.Alpha1, Alpha2: page.Alpha2, Alpha3: page.Alpha3,
				Beta0: page.Beta0, Beta1: page.Beta1, Beta2: page.Beta2, Beta3: page.Beta3,
			}
			report.NewIonosphere = true
		}
	}
}

// tryAssembleEphemeris builds an ephemeris when subframes 1..3 agree on the
// issue of data: IODC mod 256 must match both IODEs, and the IODEs must
// match each other.
func (c *Channel) tryAssembleEphemeris() {
	if c.lastSF1 == nil || c.lastSF2 == nil || c.lastSF3 == nil {
		return
	}
	sf1, sf2, sf3 := c.lastSF1, c.lastSF2, c.lastSF3
	if sf1.IODC%256 != uint16(sf2.IODE) || sf2.IODE != sf3.IODE {
		return
	}

	c.eph = &ephemeris.Ephemeris{
		WeekNumber:  sf1.WeekNumber,
		TGd:         sf1.TGd,
		AODO:        sf2.AODO,
		FitInterval: sf2.FitInterval,
		TOc:         float64(sf1.TOc),
		AF0:         sf1.AF0,
		AF1:         sf1.AF1,
		AF2:         sf1.AF2,
		TOe:         sf2.TOe,
		SqrtA:       sf2.SqrtA,
		Dn:          sf2.Dn,
		M0:          sf2.M0,
		E:           sf2.E,
		Omega:       sf3.Omega,
		Omega0:      sf3.Omega0,
		OmegaDot:    sf3.OmegaDot,
		Cus:         sf2.Cus,
		Cuc:         sf2.Cuc,
		Crs:         sf2.Crs,
		Crc:         sf3.Crc,
		Cis:         sf3.Cis,
		Cic:         sf3.Cic,
		I0:          sf3.I0,
		IDot:        sf3.IDot,
		IODC:        sf1.IODC,
	}
	c.log.WithField("iodc", sf1.IODC).Info("assembled new ephemeris")
}

// Observation builds this channel's contribution to a PVT epoch, or nil if
// the channel isn't tracking or has no ephemeris yet.
func (c *Channel) Observation(rxTowSec float64) *pvt.Observation {
	if c.aat.AwaitingAcq || c.eph == nil {
		return nil
	}

	svTow := c.aat.Trk.SVTimeOfWeek()
	pos, svClock := c.eph.PosAndClock(svTow)
	return &pvt.Observation{
		SVID:          c.prn,
		SVTowSec:      svTow,
		PseudorangeM:  (rxTowSec - svTow + svClock - c.eph.TGd) * gnss.SpeedOfLight,
		PosECEF:       pos,
		SVClock:       svClock,
		TGd:           c.eph.TGd,
		CarrierFreqHz: c.aat.Trk.CarrierFreqHz(),
	}
}
