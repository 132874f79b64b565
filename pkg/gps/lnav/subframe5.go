package lnav

import (
	"github.com/softnav/gnssdr/pkg/gnss"
	"github.com/softnav/gnssdr/pkg/gnss/bits"
)

// Subframe5 carries almanac data for SVs 1..24 plus the almanac reference
// page.
type Subframe5 struct {
	DataID uint8 `json:"data_id"`
	SVID   uint8 `json:"sv_id"`
	Page   Page  `json:"page"`
}

func (Subframe5) subframeBody() {}

// AlmanacReferencePage is subframe 5 page 25: the almanac reference time
// and health for SVs 1..24.
type AlmanacReferencePage struct {
	TOa      uint32    `json:"t_oa"`
	WNa      uint8     `json:"wn_a"`
	SVHealth [24]uint8 `json:"sv_health"`
}

func (AlmanacReferencePage) page() {}

func decodeSubframe5(d []bool) (Subframe5, error) {
	svID := uint8(bits.Uint(d[50:56]))

	var page Page
	switch {
	case svID >= 1 && svID <= 24:
		page = decodeAlmanac(d)
	case svID == 25:
		p := AlmanacReferencePage{
			TOa: uint32(bits.Uint(d[56:64])) << 12,
			WNa: uint8(bits.Uint(d[64:72])),
		}
		for i := 0; i < 24; i++ {
			p.SVHealth[i] = uint8(bits.Uint(d[72+i*6 : 78+i*6]))
		}
		page = p
	default:
		return Subframe5{}, gnss.NewTelemetryError("subframe 5 page id %d outside 1..25", svID)
	}

	return Subframe5{
		DataID: uint8(bits.Uint(d[48:50])),
		SVID:   svID,
		Page:   page,
	}, nil
}
