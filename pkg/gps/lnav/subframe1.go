package lnav

import (
	"math"

	"github.com/softnav/gnssdr/pkg/gnss"
	"github.com/softnav/gnssdr/pkg/gnss/bits"
)

// CodeOnL2 is the code carried on the L2 channel per subframe 1
type CodeOnL2 uint8

// Code-on-L2 values
const (
	CodeOnL2Reserved CodeOnL2 = iota
	CodeOnL2PCode
	CodeOnL2CACode
)

// Subframe1 carries the SV clock parameters and health summary
type Subframe1 struct {
	WeekNumber uint16   `json:"week_number"`
	CodeOnL2   CodeOnL2 `json:"code_on_l2"`
	URAIndex   uint8    `json:"ura_index"`
	SVHealth   uint8    `json:"sv_health"`
	IODC       uint16   `json:"iodc"`
	TGd        float64  `json:"t_gd"`
	TOc        uint32   `json:"t_oc"`
	AF2        float64  `json:"a_f2"`
	AF1        float64  `json:"a_f1"`
	AF0        float64  `json:"a_f0"`
}

func (Subframe1) subframeBody() {}

func decodeSubframe1(d []bool) (Subframe1, error) {
	var codeOnL2 CodeOnL2
	switch {
	case !d[58] && !d[59]:
		codeOnL2 = CodeOnL2Reserved
	case !d[58] && d[59]:
		codeOnL2 = CodeOnL2PCode
	case d[58] && !d[59]:
		codeOnL2 = CodeOnL2CACode
	default:
		return Subframe1{}, gnss.NewTelemetryError("invalid code_on_l2 field in subframe 1")
	}

	return Subframe1{
		WeekNumber: uint16(bits.Uint(d[48:58])),
		CodeOnL2:   codeOnL2,
		URAIndex:   uint8(bits.Uint(d[60:64])),
		SVHealth:   uint8(bits.Uint(d[64:70])),
		IODC:       uint16(bits.Uint(bits.Concat(d[70:72], d[168:176]))),
		TGd:        float64(bits.Int(d[160:168])) * math.Ldexp(1, -31),
		TOc:        uint32(bits.Uint(d[176:192])) * 16,
		AF2:        float64(bits.Int(d[192:200])) * math.Ldexp(1, -55),
		AF1:        float64(bits.Int(d[200:216])) * math.Ldexp(1, -43),
		AF0:        float64(bits.Int(d[216:238])) * math.Ldexp(1, -31),
	}, nil
}
