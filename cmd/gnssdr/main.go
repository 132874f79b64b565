// Command gnssdr is the GPS L1 C/A receiver: it takes a file of IQ samples
// centered on 1575.42 MHz and produces acquisitions, navigation subframes
// and position fixes as JSON records on stdout.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/softnav/gnssdr/pkg/config"
	"github.com/softnav/gnssdr/pkg/receiver"
	"github.com/softnav/gnssdr/pkg/sdr"
)

func main() {
	var (
		filename   = pflag.StringP("filename", "f", "", "input IQ file (interleaved little-endian i16 pairs)")
		sampleRate = pflag.Float64P("sample-rate-sps", "s", 0, "sample rate of the input in samples/sec")
		configPath = pflag.StringP("config", "c", "", "optional YAML receiver configuration")
		verbose    = pflag.BoolP("verbose", "v", false, "enable debug logging")
	)
	pflag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if *filename == "" {
		log.Fatal("an input filename is required (-f)")
	}

	var cfg config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.WithError(err).Fatal("loading configuration")
		}
		cfg = loaded
		if *sampleRate != 0 {
			cfg.SampleRateHz = *sampleRate
		}
	} else {
		if *sampleRate == 0 {
			log.Fatal("a sample rate is required (-s) when no config file is given")
		}
		cfg = config.Default(*sampleRate)
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	f, err := os.Open(*filename)
	if err != nil {
		log.WithError(err).Fatal("opening input file")
	}
	defer f.Close()

	log.WithFields(logrus.Fields{
		"filename":        *filename,
		"sample_rate_sps": cfg.SampleRateHz,
	}).Info("decoding")

	rcv, err := receiver.New(cfg, log, os.Stdout)
	if err != nil {
		log.WithError(err).Fatal("building receiver")
	}

	if err := rcv.Run(sdr.NewIQ16Source(f)); err != nil {
		log.WithError(err).Fatal("receiver failed")
	}
}
