package lnav

import (
	"math"

	"github.com/softnav/gnssdr/pkg/gnss/bits"
)

// Page is one of the paged bodies carried by subframes 4 and 5
type Page interface {
	page()
}

// Subframe4 carries almanac and support data, paged by the SV id field
type Subframe4 struct {
	DataID uint8 `json:"data_id"`
	SVID   uint8 `json:"sv_id"`
	Page   Page  `json:"page"`
}

func (Subframe4) subframeBody() {}

// AlmanacData is the per-SV almanac page shared by subframes 4 and 5
type AlmanacData struct {
	E        float64 `json:"e"`
	TOa      uint32  `json:"t_oa"`
	DeltaI   float64 `json:"delta_i"`
	OmegaDot float64 `json:"omega_dot"`
	SVHealth uint8   `json:"sv_health"`
	SqrtA    float64 `json:"sqrt_a"`
	Omega0   float64 `json:"omega0"`
	Omega    float64 `json:"omega"`
	M0       float64 `json:"m0"`
	AF0      float64 `json:"af0"`
	AF1      float64 `json:"af1"`
}

func (AlmanacData) page() {}

// NavigationMessageCorrectionTable is subframe 4 page 13
type NavigationMessageCorrectionTable struct {
	Availability uint8     `json:"availability"`
	ERD          [30]uint8 `json:"erd"`
}

func (NavigationMessageCorrectionTable) page() {}

// SpecialMessages is subframe 4 page 17
type SpecialMessages struct {
	Message [22]uint8 `json:"message"`
}

func (SpecialMessages) page() {}

// IonoUTCPage is subframe 4 page 18: the Klobuchar ionospheric coefficients
// and the UTC conversion parameters.
type IonoUTCPage struct {
	Alpha0    float64 `json:"alpha0"`
	Alpha1    float64 `json:"alpha1"`
	Alpha2    float64 `json:"alpha2"`
	Alpha3    float64 `json:"alpha3"`
	Beta0     float64 `json:"beta0"`
	Beta1     float64 `json:"beta1"`
	Beta2     float64 `json:"beta2"`
	Beta3     float64 `json:"beta3"`
	A1        float64 `json:"a1"`
	A0        float64 `json:"a0"`
	TOt       uint32  `json:"t_ot"`
	WNt       uint8   `json:"wn_t"`
	DeltaTLS  int8    `json:"delta_t_ls"`
	WNLSF     uint8   `json:"wn_lsf"`
	DeltaTLSF int8    `json:"delta_t_lsf"`
}

func (IonoUTCPage) page() {}

// AntiSpoofPage is subframe 4 page 25: anti-spoof flags, configurations and
// SV health for the upper SVs.
type AntiSpoofPage struct {
	AntispoofAndConfig [32]uint8 `json:"antispoof_and_config"`
	SVHealth           [8]uint8  `json:"sv_health"`
}

func (AntiSpoofPage) page() {}

// ReservedPage covers the page ids without decoded fields
type ReservedPage struct{}

func (ReservedPage) page() {}

func decodeAlmanac(d []bool) AlmanacData {
	return AlmanacData{
		E:        float64(bits.Uint(d[56:72])) * math.Ldexp(1, -21),
		TOa:      uint32(bits.Uint(d[72:80])) << 12,
		DeltaI:   float64(bits.Int(d[80:96])) * math.Ldexp(1, -19),
		OmegaDot: float64(bits.Int(d[96:112])) * math.Ldexp(1, -38),
		SVHealth: uint8(bits.Uint(d[112:120])),
		SqrtA:    float64(bits.Uint(d[120:144])) * math.Ldexp(1, -11),
		Omega0:   float64(bits.Int(d[144:168])) * math.Ldexp(1, -23),
		Omega:    float64(bits.Int(d[168:192])) * math.Ldexp(1, -23),
		M0:       float64(bits.Int(d[192:216])) * math.Ldexp(1, -23),
		AF0:      float64(bits.Int(bits.Concat(d[216:224], d[235:238]))) * math.Ldexp(1, -20),
		AF1:      float64(bits.Int(d[224:235])) * math.Ldexp(1, -18),
	}
}

func decodeSubframe4(d []bool) (Subframe4, error) {
	svID := uint8(bits.Uint(d[50:56]))

	var page Page
	switch {
	case svID >= 25 && svID <= 32:
		page = decodeAlmanac(d)
	case svID == 52:
		p := NavigationMessageCorrectionTable{
			Availability: uint8(bits.Uint(d[56:58])),
		}
		for i := 0; i < 30; i++ {
			p.ERD[i] = uint8(bits.Uint(d[58+i*6 : 64+i*6]))
		}
		page = p
	case svID == 55:
		var p SpecialMessages
		for i := 0; i < 22; i++ {
			p.Message[i] = uint8(bits.Uint(d[56+i*8 : 64+i*8]))
		}
		page = p
	case svID == 56:
		page = IonoUTCPage{
			Alpha0:    float64(bits.Int(d[56:64])) * math.Ldexp(1, -30),
			Alpha1:    float64(bits.Int(d[64:72])) * math.Ldexp(1, -27),
			Alpha2:    float64(bits.Int(d[72:80])) * math.Ldexp(1, -24),
			Alpha3:    float64(bits.Int(d[80:88])) * math.Ldexp(1, -24),
			Beta0:     float64(bits.Int(d[88:96])) * math.Ldexp(1, 11),
			Beta1:     float64(bits.Int(d[96:104])) * math.Ldexp(1, 14),
			Beta2:     float64(bits.Int(d[104:112])) * math.Ldexp(1, 16),
			Beta3:     float64(bits.Int(d[112:120])) * math.Ldexp(1, 16),
			A1:        float64(bits.Int(d[120:144])) * math.Ldexp(1, -50),
			A0:        float64(bits.Int(d[144:176])) * math.Ldexp(1, -30),
			TOt:       uint32(bits.Uint(d[176:184])) << 12,
			WNt:       uint8(bits.Uint(d[184:192])),
			DeltaTLS:  int8(bits.Int(d[192:200])),
			WNLSF:     uint8(bits.Uint(d[200:208])),
			DeltaTLSF: int8(bits.Int(d[208:216])),
		}
	case svID == 62:
		var p AntiSpoofPage
		for i := 0; i < 32; i++ {
			p.AntispoofAndConfig[i] = uint8(bits.Uint(d[56+i*4 : 60+i*4]))
		}
		for i := 0; i < 8; i++ {
			p.SVHealth[i] = uint8(bits.Uint(d[186+i*6 : 192+i*6]))
		}
		page = p
	default:
		page = ReservedPage{}
	}

	return Subframe4{
		DataID: uint8(bits.Uint(d[48:50])),
		SVID:   svID,
		Page:   page,
	}, nil
}
