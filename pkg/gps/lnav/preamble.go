package lnav

import "github.com/softnav/gnssdr/pkg/gnss"

// Preamble is the 8-bit telemetry word preamble 10001011
var Preamble = [8]bool{true, false, false, false, true, false, true, true}

type bitLocation int

const (
	locUninitialized bitLocation = iota
	locAlwaysTrue
	locAlwaysFalse
	locVariable
)

func (l *bitLocation) observe(b bool) {
	switch *l {
	case locVariable:
		// Once a position has varied it stays variable
	case locUninitialized:
		if b {
			*l = locAlwaysTrue
		} else {
			*l = locAlwaysFalse
		}
	case locAlwaysTrue:
		if !b {
			*l = locVariable
		}
	case locAlwaysFalse:
		if b {
			*l = locVariable
		}
	}
}

// Detection is a located preamble: the bit offset of the subframe start
// modulo 300 and whether the data arrives inverted.
type Detection struct {
	Offset  int
	Inverse bool
}

// PreambleDetector finds the subframe boundary in a bit stream. It tracks,
// for each of the 300 positions in the repeating frame, whether the bit at
// that position has been constant, and looks for the single offset where
// eight consecutive constant positions spell the preamble in either sense.
// The preamble pattern recurs inside subframe bodies by chance, but only
// the true one is constant across frames.
type PreambleDetector struct {
	locations  [SubframeBits]bitLocation
	currentIdx int
}

// NewPreambleDetector creates an empty detector
func NewPreambleDetector() *PreambleDetector {
	return &PreambleDetector{}
}

// Initialize clears all observations
func (p *PreambleDetector) Initialize() {
	*p = PreambleDetector{}
}

// Apply feeds bits into the detector. After each full frame of input it
// scans for the preamble: exactly one candidate yields a detection, none
// yields an error (the stream has no stable preamble yet), and several mean
// more observation is needed, reported as a nil detection.
func (p *PreambleDetector) Apply(data []bool) (*Detection, error) {
	for _, b := range data {
		p.locations[p.currentIdx%SubframeBits].observe(b)
		p.currentIdx++
	}

	if p.currentIdx <= SubframeBits {
		return nil, nil
	}
	p.currentIdx -= SubframeBits

	var posLocs, negLocs []int
	for i := 0; i < SubframeBits; i++ {
		direct, inverse := true, true
		for j, want := range Preamble {
			switch p.locations[(i+j)%SubframeBits] {
			case locAlwaysTrue:
				if want {
					inverse = false
				} else {
					direct = false
				}
			case locAlwaysFalse:
				if want {
					direct = false
				} else {
					inverse = false
				}
			default:
				direct, inverse = false, false
			}
		}
		if direct {
			posLocs = append(posLocs, i)
		}
		if inverse {
			negLocs = append(negLocs, i)
		}
	}

	switch {
	case len(posLocs) == 1 && len(negLocs) == 0:
		return &Detection{Offset: posLocs[0], Inverse: false}, nil
	case len(posLocs) == 0 && len(negLocs) == 1:
		return &Detection{Offset: negLocs[0], Inverse: true}, nil
	case len(posLocs) == 0 && len(negLocs) == 0:
		return nil, gnss.NewTelemetryError("no possible preamble locations found")
	default:
		// Still ambiguous; keep observing
		return nil, nil
	}
}
