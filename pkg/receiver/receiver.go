// Package receiver assembles the full L1 C/A receiver: all 32 PRN channels
// multiplexed by the rotating scheduler, receiver-time bookkeeping, epoch
// position solving and the JSON record stream.
package receiver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/softnav/gnssdr/pkg/block"
	"github.com/softnav/gnssdr/pkg/config"
	"github.com/softnav/gnssdr/pkg/geo"
	"github.com/softnav/gnssdr/pkg/gnss"
	"github.com/softnav/gnssdr/pkg/gps/channel"
	"github.com/softnav/gnssdr/pkg/gps/ephemeris"
	"github.com/softnav/gnssdr/pkg/gps/pvt"
	"github.com/softnav/gnssdr/pkg/sdr"
)

// scheduler is the concrete rotating scheduler instantiation over channels
type scheduler = block.RotatingSplitAndMerge[channel.Input, channel.Report, *channel.Channel]

// Receiver drives the whole processing chain from a sample source
type Receiver struct {
	cfg   config.Config
	runID uuid.UUID

	channels []*channel.Channel
	sched    *scheduler

	pvtRateSamples int

	// rxTow is the receiver time-of-week estimate, seeded from the first
	// decoded subframe and corrected by each committed fix
	rxTow    float64
	rxTowSet bool

	// x is the master solver state (position and clock bias), carried
	// between epochs as the seed
	x [4]float64

	fixCount int

	log logrus.FieldLogger
	out *json.Encoder
}

// New builds a receiver with all 32 PRN channels
func New(cfg config.Config, log logrus.FieldLogger, out io.Writer) (*Receiver, error) {
	runID := uuid.New()
	log = log.WithField("run_id", runID)

	pvtRateSamples := int(cfg.SampleRateHz * cfg.PVTRateSec)
	if pvtRateSamples < 1 {
		return nil, fmt.Errorf("pvt rate %v too fast for sample rate %v", cfg.PVTRateSec, cfg.SampleRateHz)
	}

	channels := make([]*channel.Channel, 0, 32)
	for prn := 1; prn <= 32; prn++ {
		ch, err := channel.New(prn, cfg.SampleRateHz, cfg.TestStatThreshold, pvtRateSamples, log)
		if err != nil {
			return nil, fmt.Errorf("building channel for PRN %d: %w", prn, err)
		}
		channels = append(channels, ch)
	}

	rotationInterval := int(cfg.SampleRateHz * cfg.RotationIntervalSec)
	sched := block.NewRotatingSplitAndMerge[channel.Input, channel.Report](
		channels, rotationInterval, cfg.MaxActiveChannels)
	sched.ActivateUpTo(cfg.MaxActiveChannels)

	return &Receiver{
		cfg:            cfg,
		runID:          runID,
		channels:       channels,
		sched:          sched,
		pvtRateSamples: pvtRateSamples,
		log:            log,
		out:            json.NewEncoder(out),
	}, nil
}

// Record is one line of receiver output
type Record struct {
	Type  string    `json:"type"`
	RunID uuid.UUID `json:"run_id"`
	PRN   int       `json:"prn,omitempty"`

	RxTimeSec float64 `json:"rx_time_sec"`

	Acquisition *AcquisitionRecord `json:"acquisition,omitempty"`
	Subframe    interface{}        `json:"subframe,omitempty"`
	Fix         *FixRecord         `json:"fix,omitempty"`
}

// AcquisitionRecord reports one successful acquisition
type AcquisitionRecord struct {
	DopplerHz float64 `json:"doppler_hz"`
	TestStat  float64 `json:"test_stat"`
	CodePhase int     `json:"code_phase"`
}

// FixRecord reports one committed position fix
type FixRecord struct {
	PosECEF      [3]float64 `json:"pos_ecef"`
	LatDeg       float64    `json:"lat_deg"`
	LonDeg       float64    `json:"lon_deg"`
	HeightM      float64    `json:"height_m"`
	ResidualNorm float64    `json:"residual_norm"`
	SVCount      int        `json:"sv_count"`
	RxTime       float64    `json:"rx_time"`
}

// FixCount reports how many fixes have been committed
func (r *Receiver) FixCount() int { return r.fixCount }

// Run consumes the source until it is exhausted. Every sample advances all
// active channels by exactly one step; channel outputs are folded into the
// record stream and epoch observations into position fixes.
func (r *Receiver) Run(src sdr.Source) error {
	fs := r.cfg.SampleRateHz

	for {
		s, err := src.Next()
		if err != nil {
			if errors.Is(err, gnss.ErrNoSourceData) {
				r.log.WithField("fixes", r.fixCount).Info("source exhausted")
				return nil
			}
			return fmt.Errorf("reading samples: %w", err)
		}

		if r.rxTowSet {
			r.rxTow += 1.0 / fs
		}

		in := channel.Input{
			Sample: s,
			RxTow:  r.rxTow - r.cfg.ObservationLeadSec,
		}

		reports, err := r.sched.ApplyAll(in)
		if err != nil {
			return fmt.Errorf("processing sample %d: %w", s.Idx, err)
		}

		rxTimeSec := float64(s.Idx) / fs
		var epochObs []pvt.Observation
		for i := range reports {
			r.handleReport(&reports[i], rxTimeSec, &epochObs)
		}

		if len(epochObs) > 0 {
			r.solveEpoch(epochObs, rxTimeSec)
		}
	}
}

func (r *Receiver) handleReport(rep *channel.Report, rxTimeSec float64, epochObs *[]pvt.Observation) {
	if rep.Acquired != nil {
		r.emit(Record{
			Type:      "acquisition",
			RunID:     r.runID,
			PRN:       rep.PRN,
			RxTimeSec: rxTimeSec,
			Acquisition: &AcquisitionRecord{
				DopplerHz: rep.Acquired.DopplerHz,
				TestStat:  rep.Acquired.TestStat,
				CodePhase: rep.Acquired.CodePhase,
			},
		})
	}

	if rep.Subframe != nil {
		if !r.rxTowSet {
			// The first subframe seeds receiver time: its TOW plus a nominal
			// transit-plus-decode allowance
			r.rxTow = rep.Subframe.TimeOfWeek() + 0.086
			r.rxTowSet = true
			r.log.WithField("rx_tow", r.rxTow).Info("receiver time seeded from telemetry")
		}
		r.emit(Record{
			Type:      "subframe",
			RunID:     r.runID,
			PRN:       rep.PRN,
			RxTimeSec: rxTimeSec,
			Subframe:  rep.Subframe,
		})
	}

	if rep.Observation != nil && r.rxTowSet {
		*epochObs = append(*epochObs, *rep.Observation)
	}
}

// solveEpoch runs the PVT solver over one epoch's observations and commits
// the fix if it converges with an acceptable residual.
func (r *Receiver) solveEpoch(obs []pvt.Observation, rxTimeSec float64) {
	fix, x, err := pvt.SolvePositionAndTime(obs, r.x, rxTimeSec, r.currentIonosphere())
	if err != nil {
		// Epochs without a fix simply don't appear in the output
		r.log.WithError(err).Debug("epoch not solved")
		return
	}

	if fix.ResidualNorm > r.cfg.ResidualNormThresholdM {
		r.log.WithField("residual_norm", fix.ResidualNorm).Debug("fix rejected on residual norm")
		return
	}

	// Commit: carry the position as the next seed and fold the clock bias
	// into receiver time
	r.x = x
	r.rxTow -= x[3] / gnss.SpeedOfLight
	r.x[3] = 0.0
	r.fixCount++

	g := geo.ECEFToGeodetic(fix.PosECEF[0], fix.PosECEF[1], fix.PosECEF[2])
	latDeg := g.LatRad * 180.0 / math.Pi
	lonDeg := g.LonRad * 180.0 / math.Pi

	r.log.WithFields(logrus.Fields{
		"lat_deg":       latDeg,
		"lon_deg":       lonDeg,
		"height_m":      g.HeightM,
		"residual_norm": fix.ResidualNorm,
		"sv_count":      len(obs),
	}).Info("position fix")

	r.emit(Record{
		Type:      "fix",
		RunID:     r.runID,
		RxTimeSec: rxTimeSec,
		Fix: &FixRecord{
			PosECEF:      fix.PosECEF,
			LatDeg:       latDeg,
			LonDeg:       lonDeg,
			HeightM:      g.HeightM,
			ResidualNorm: fix.ResidualNorm,
			SVCount:      len(obs),
			RxTime:       fix.RxTime,
		},
	})
}

// currentIonosphere returns the first ionospheric model any channel has
// decoded. The model is broadcast identically by every SV, so first wins.
func (r *Receiver) currentIonosphere() *ephemeris.IonosphereModel {
	for _, ch := range r.channels {
		if m := ch.Ionosphere(); m != nil {
			return m
		}
	}
	return nil
}

func (r *Receiver) emit(rec Record) {
	if err := r.out.Encode(rec); err != nil {
		r.log.WithError(err).Error("writing output record")
	}
}
