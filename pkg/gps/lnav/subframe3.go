package lnav

import (
	"math"

	"github.com/softnav/gnssdr/pkg/gnss/bits"
)

// Subframe3 carries the second half of the ephemeris
type Subframe3 struct {
	Cic      float64 `json:"cic"`
	Omega0   float64 `json:"omega0"`
	Cis      float64 `json:"cis"`
	I0       float64 `json:"i0"`
	Crc      float64 `json:"crc"`
	Omega    float64 `json:"omega"`
	OmegaDot float64 `json:"omega_dot"`
	IODE     uint8   `json:"iode"`
	IDot     float64 `json:"idot"`
}

func (Subframe3) subframeBody() {}

func decodeSubframe3(d []bool) (Subframe3, error) {
	return Subframe3{
		Cic:      float64(bits.Int(d[48:64])) * math.Ldexp(1, -29),
		Omega0:   float64(bits.Int(d[64:96])) * math.Ldexp(1, -31),
		Cis:      float64(bits.Int(d[96:112])) * math.Ldexp(1, -29),
		I0:       float64(bits.Int(d[112:144])) * math.Ldexp(1, -31),
		Crc:      float64(bits.Int(d[144:160])) * math.Ldexp(1, -5),
		Omega:    float64(bits.Int(d[160:192])) * math.Ldexp(1, -31),
		OmegaDot: float64(bits.Int(d[192:216])) * math.Ldexp(1, -43),
		IODE:     uint8(bits.Uint(d[216:224])),
		IDot:     float64(bits.Int(d[224:238])) * math.Ldexp(1, -43),
	}, nil
}
