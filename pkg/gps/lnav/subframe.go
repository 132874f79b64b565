package lnav

import (
	"github.com/softnav/gnssdr/pkg/gnss"
	"github.com/softnav/gnssdr/pkg/gnss/bits"
)

// Body is one of the five subframe body types
type Body interface {
	subframeBody()
}

// Subframe is one decoded 300-bit LNAV subframe: the truncated time of week
// from the handover word, the subframe id, and the id-specific body.
type Subframe struct {
	TOWTruncated uint32 `json:"time_of_week_truncated"`
	ID           uint8  `json:"subframe_id"`
	Body         Body   `json:"body"`
}

// TimeOfWeek converts the truncated TOW count to seconds. The HOW carries
// the TOW in units of four Z-counts of 1.5 s each.
func (s Subframe) TimeOfWeek() float64 {
	return float64(s.TOWTruncated) * 6.0
}

// Decode parses the 240 parity-stripped data bits of one subframe
func Decode(data []bool) (Subframe, error) {
	if len(data) != SubframeDataBits {
		return Subframe{}, gnss.NewTelemetryError("subframe data must be %d bits, got %d", SubframeDataBits, len(data))
	}

	tow := uint32(bits.Uint(data[24:41]))
	id := uint8(bits.Uint(data[43:46]))

	var body Body
	var err error
	switch id {
	case 1:
		body, err = decodeSubframe1(data)
	case 2:
		body, err = decodeSubframe2(data)
	case 3:
		body, err = decodeSubframe3(data)
	case 4:
		body, err = decodeSubframe4(data)
	case 5:
		body, err = decodeSubframe5(data)
	default:
		return Subframe{}, gnss.NewTelemetryError("subframe id %d outside 1..5", id)
	}
	if err != nil {
		return Subframe{}, err
	}

	return Subframe{TOWTruncated: tow, ID: id, Body: body}, nil
}
