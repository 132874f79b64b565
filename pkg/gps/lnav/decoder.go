package lnav

import (
	"github.com/softnav/gnssdr/pkg/block"
	"github.com/softnav/gnssdr/pkg/gps/tracking"
)

type decoderState int

const (
	lookingForPreamble decoderState = iota
	decodingSubframes
)

type taggedBit struct {
	bit       bool
	sampleIdx int
}

// Decoder turns the demodulated bit stream of one channel into subframes:
// it finds the subframe boundary with the preamble detector, checks bit
// timing, and parity-checks and parses each aligned 300-bit group. Any
// invalid telemetry resets the decoder to the preamble search.
type Decoder struct {
	detector *PreambleDetector
	buffer   []taggedBit
	totalFed int

	state   decoderState
	inverse bool

	// Recent bit sample indices for the timing sanity check
	idxWindow []int
}

// NewDecoder creates a decoder in the preamble-search state
func NewDecoder() *Decoder {
	return &Decoder{
		detector: NewPreambleDetector(),
	}
}

// Initialize returns the decoder to the preamble search with no history
func (d *Decoder) Initialize() {
	d.detector.Initialize()
	d.buffer = d.buffer[:0]
	d.totalFed = 0
	d.state = lookingForPreamble
	d.inverse = false
	d.idxWindow = d.idxWindow[:0]
}

// Decoded is one successfully parsed subframe together with the sample
// index of its final bit.
type Decoded struct {
	Subframe  Subframe
	FinalIdx  int
	SampleIdx int // index of the first bit of the subframe
}

// ApplyBit feeds one demodulated bit, tagged with the sample index where
// the bit ended. It returns a decoded subframe when one completes, nil
// when more bits are needed, and an error for invalid telemetry (after
// which the decoder has already reset itself).
func (d *Decoder) ApplyBit(bit bool, sampleIdx int) (*Decoded, error) {
	// Bit-timing sanity: the spacing between successive bits must stay
	// comparable to the first observed spacing, otherwise the tracker
	// skipped and our alignment is meaningless
	d.idxWindow = append(d.idxWindow, sampleIdx)
	if n := len(d.idxWindow); n >= 3 {
		d0 := d.idxWindow[1] - d.idxWindow[0]
		d1 := d.idxWindow[n-1] - d.idxWindow[n-2]
		if d1 > 2*d0 {
			d.Initialize()
			return nil, nil
		}
		if n == 4 {
			// Keep the first two indices and the latest one
			d.idxWindow = append(d.idxWindow[:2], d.idxWindow[3])
		}
	}

	d.buffer = append(d.buffer, taggedBit{bit: bit, sampleIdx: sampleIdx})
	d.totalFed++

	if d.state == lookingForPreamble {
		det, err := d.detector.Apply([]bool{bit})
		if err != nil {
			d.Initialize()
			return nil, err
		}
		if det == nil {
			return nil, nil
		}

		// Preamble found: drop leading bits until the buffer starts on a
		// subframe boundary
		d.state = decodingSubframes
		d.inverse = det.Inverse
		for len(d.buffer) > 0 && (d.totalFed-len(d.buffer))%SubframeBits != det.Offset {
			d.buffer = d.buffer[1:]
		}
		// Fall through: the buffer may already hold a full subframe
	}

	if len(d.buffer) < SubframeBits {
		return nil, nil
	}

	raw := make([]bool, SubframeBits)
	for i, tb := range d.buffer[:SubframeBits] {
		raw[i] = tb.bit != d.inverse
	}
	firstIdx := d.buffer[0].sampleIdx
	finalIdx := d.buffer[SubframeBits-1].sampleIdx
	d.buffer = d.buffer[SubframeBits:]

	data, err := RecoverData(raw)
	if err != nil {
		d.Initialize()
		return nil, err
	}
	sf, err := Decode(data)
	if err != nil {
		d.Initialize()
		return nil, err
	}

	return &Decoded{Subframe: sf, FinalIdx: finalIdx, SampleIdx: firstIdx}, nil
}

// Control reports that the decoder is always willing to accept bits
func (d *Decoder) Control(_ block.Unit) (bool, error) {
	return true, nil
}

// Apply adapts the decoder to the block interface, consuming tracker
// reports. Invalid telemetry surfaces as not-ready: the decoder has already
// reset itself and upstream has nothing to act on.
func (d *Decoder) Apply(r tracking.Report) block.Result[Decoded] {
	dec, err := d.ApplyBit(r.Bit(), r.SampleIdx)
	switch {
	case err != nil:
		return block.NotReady[Decoded]()
	case dec != nil:
		return block.Ready(*dec)
	default:
		return block.NotReady[Decoded]()
	}
}
