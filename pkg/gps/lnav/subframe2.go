package lnav

import (
	"math"

	"github.com/softnav/gnssdr/pkg/gnss/bits"
)

// Subframe2 carries the first half of the ephemeris
type Subframe2 struct {
	IODE        uint8   `json:"iode"`
	Crs         float64 `json:"crs"`
	Dn          float64 `json:"dn"`
	M0          float64 `json:"m0"`
	Cuc         float64 `json:"cuc"`
	E           float64 `json:"e"`
	Cus         float64 `json:"cus"`
	SqrtA       float64 `json:"sqrt_a"`
	TOe         float64 `json:"t_oe"`
	FitInterval bool    `json:"fit_interval"`
	AODO        uint8   `json:"aodo"`
}

func (Subframe2) subframeBody() {}

func decodeSubframe2(d []bool) (Subframe2, error) {
	return Subframe2{
		IODE:        uint8(bits.Uint(d[48:56])),
		Crs:         float64(bits.Int(d[56:72])) * math.Ldexp(1, -5),
		Dn:          float64(bits.Int(d[72:88])) * math.Ldexp(1, -43),
		M0:          float64(bits.Int(d[88:120])) * math.Ldexp(1, -31),
		Cuc:         float64(bits.Int(d[120:136])) * math.Ldexp(1, -29),
		E:           float64(bits.Uint(d[136:168])) * math.Ldexp(1, -33),
		Cus:         float64(bits.Int(d[168:184])) * math.Ldexp(1, -29),
		SqrtA:       float64(bits.Uint(d[184:216])) * math.Ldexp(1, -19),
		TOe:         float64(bits.Uint(d[216:232])) * math.Ldexp(1, 4),
		FitInterval: d[233],
		AODO:        uint8(bits.Uint(d[234:239])),
	}, nil
}
