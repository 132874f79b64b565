// Command l2ctrk is a single-channel GPS L2C tool: it takes IQ samples
// centered on 1227.6 MHz, acquires the CM then CL code for one PRN, tracks
// the CL signal, and decodes the CNAV message stream, emitting decoded
// messages as JSON records on stdout.
package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/softnav/gnssdr/pkg/gnss"
	"github.com/softnav/gnssdr/pkg/gps/acquisition"
	"github.com/softnav/gnssdr/pkg/gps/cnav"
	"github.com/softnav/gnssdr/pkg/gps/l2c"
	"github.com/softnav/gnssdr/pkg/gps/tracking"
	"github.com/softnav/gnssdr/pkg/sdr"
)

// maxAcqTriesSamples is the soft budget for each acquisition phase
const maxAcqTriesSamples = 2000000

type channelState int

const (
	stateAcquisitionCM channelState = iota
	stateAcquisitionCL
	stateTracking
)

func toComplex(symbol []int8) []complex128 {
	out := make([]complex128, len(symbol))
	for i, v := range symbol {
		out[i] = complex(float64(v), 0)
	}
	return out
}

func main() {
	var (
		filename   = pflag.StringP("filename", "f", "", "input IQ file (interleaved little-endian i16 pairs)")
		sampleRate = pflag.Float64P("sample-rate-sps", "s", 0, "sample rate of the input in samples/sec")
		prn        = pflag.Int("prn", 0, "PRN to acquire and track (1..32)")
		verbose    = pflag.BoolP("verbose", "v", false, "enable debug logging")
	)
	pflag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if *filename == "" || *sampleRate == 0 || *prn == 0 {
		logger.Fatal("filename (-f), sample rate (-s) and PRN (--prn) are all required")
	}
	fs := *sampleRate

	f, err := os.Open(*filename)
	if err != nil {
		logger.WithError(err).Fatal("opening input file")
	}
	defer f.Close()

	log := logger.WithField("prn", *prn)

	// CM acquisition narrows the Doppler; CL acquisition then finds the
	// phase of the long code near that Doppler
	cmSymbol, err := l2c.CMSampled(*prn, fs)
	if err != nil {
		log.WithError(err).Fatal("building CM replica")
	}
	acqCM, err := acquisition.NewTwoStage(toComplex(cmSymbol), fs, *prn, 140, 2, 1.0, 0.0005, 0)
	if err != nil {
		log.WithError(err).Fatal("building CM acquisition")
	}

	clSymbol, err := l2c.CLSampled(*prn, fs)
	if err != nil {
		log.WithError(err).Fatal("building CL replica")
	}
	acqCL, err := acquisition.NewBasic(toComplex(clSymbol), fs, *prn, tracking.L2CLTestStatThresh, []float64{0.0})
	if err != nil {
		log.WithError(err).Fatal("building CL acquisition")
	}

	trk, err := tracking.NewL2CL(*prn, fs)
	if err != nil {
		log.WithError(err).Fatal("building CL tracker")
	}

	framer := cnav.NewFramer()
	out := json.NewEncoder(os.Stdout)

	state := stateAcquisitionCM
	acqTries := 0

	// CNAV symbols accumulate into fixed windows for FEC decoding; the
	// recovered bits feed the preamble-and-CRC framer
	var symbols []bool

	src := sdr.NewIQ16Source(f)
	for {
		s, err := src.Next()
		if err != nil {
			if errors.Is(err, gnss.ErrNoSourceData) {
				log.Info("source exhausted")
				return
			}
			log.WithError(err).Fatal("reading samples")
		}

		switch state {
		case stateAcquisitionCM:
			acqTries++
			if acqTries > maxAcqTriesSamples {
				log.Warn("CM acquisition exhausted its sample budget")
				return
			}
			if err := acqCM.ProvideSample(s); err != nil {
				log.WithError(err).Fatal("CM acquisition")
			}
			res, err := acqCM.BlockForResult()
			if err != nil {
				log.WithError(err).Fatal("CM acquisition")
			}
			if res == nil {
				continue
			}
			log.WithFields(logrus.Fields{
				"doppler_hz": res.DopplerHz,
				"step_hz":    res.DopplerStepHz,
				"code_phase": res.CodePhase,
				"test_stat":  res.TestStatistic(),
			}).Info("CM acquired")

			// Search the CL code in a band around the CM Doppler
			ctr, step := res.DopplerHz, res.DopplerStepHz
			acqCL.DopplerFreqs = acqCL.DopplerFreqs[:0]
			for k := -4; k <= 4; k++ {
				acqCL.DopplerFreqs = append(acqCL.DopplerFreqs, ctr+0.3*float64(k)*step)
			}
			state = stateAcquisitionCL
			acqTries = 0

		case stateAcquisitionCL:
			acqTries++
			if acqTries > maxAcqTriesSamples {
				log.Warn("CL acquisition exhausted its sample budget")
				return
			}
			if err := acqCL.ProvideSample(s); err != nil {
				log.WithError(err).Fatal("CL acquisition")
			}
			res, err := acqCL.BlockForResult()
			if err != nil {
				log.WithError(err).Fatal("CL acquisition")
			}
			if res == nil {
				continue
			}
			log.WithFields(logrus.Fields{
				"doppler_hz": res.DopplerHz,
				"code_phase": res.CodePhase,
				"test_stat":  res.TestStatistic(),
			}).Info("CL acquired")

			// The tracker itself delays processing until the code-aligned
			// sample the acquisition reported
			if _, err := trk.Control(*res); err != nil {
				log.WithError(err).Fatal("initializing tracker")
			}
			state = stateTracking

		case stateTracking:
			res := trk.Apply(s)
			if err := res.Err(); err != nil {
				log.WithError(err).Warn("tracking ended")
				return
			}
			if !res.IsReady() {
				continue
			}
			rpt := res.Value()
			log.WithFields(logrus.Fields{
				"test_stat":  rpt.TestStat,
				"carrier_hz": rpt.FreqHz,
				"prompt_i":   rpt.PromptI,
			}).Debug("symbol")

			symbols = append(symbols, rpt.Bit())
			if len(symbols) < cnav.MessageBits {
				continue
			}

			window := symbols
			symbols = nil
			bits := cnav.FECDecode(window)
			if bits == nil {
				log.Debug("FEC window had no surviving paths")
				continue
			}
			for _, b := range bits {
				msgBits := framer.Apply(b)
				if msgBits == nil {
					continue
				}
				msg, err := cnav.DecodeMessage(msgBits)
				if err != nil {
					log.WithError(err).Warn("dropping undecodable message")
					continue
				}
				log.WithFields(logrus.Fields{
					"type_id": msg.TypeID,
					"tow":     msg.TOWTruncated,
				}).Info("CNAV message")
				if err := out.Encode(msg); err != nil {
					log.WithError(err).Error("writing output record")
				}
			}
		}
	}
}
