package cnav

import (
	"math"

	"github.com/softnav/gnssdr/pkg/gnss"
	"github.com/softnav/gnssdr/pkg/gnss/bits"
)

// MessageBody is one of the decoded CNAV message bodies
type MessageBody interface {
	messageBody()
}

// Message is one 276-bit CNAV message with its header fields and a body
// dispatched on the 6-bit type id. Types without a decoder carry an
// UnknownBody.
type Message struct {
	PRN          uint8       `json:"prn"`
	TypeID       uint8       `json:"type_id"`
	TOWTruncated uint32      `json:"time_of_week_truncated"`
	AlertFlag    bool        `json:"alert_flag"`
	Body         MessageBody `json:"body"`
}

// UnknownBody marks message types this decoder doesn't parse
type UnknownBody struct{}

func (UnknownBody) messageBody() {}

// DecodeMessage parses a 276-bit CNAV message (CRC already stripped)
func DecodeMessage(b []bool) (*Message, error) {
	if len(b) != MessageDataBits {
		return nil, gnss.NewTelemetryError("expected a %d-bit message with CRC removed, got %d bits", MessageDataBits, len(b))
	}

	typeID := uint8(bits.Uint(b[14:20]))

	var body MessageBody
	var err error
	switch typeID {
	case 10:
		body, err = decodeType10(b[38:])
	case 11:
		body, err = decodeType11(b[38:])
	case 30:
		body, err = decodeType30(b[38:])
	default:
		body = UnknownBody{}
	}
	if err != nil {
		return nil, err
	}

	return &Message{
		PRN:          uint8(bits.Uint(b[8:14])),
		TypeID:       typeID,
		TOWTruncated: uint32(bits.Uint(b[20:37])),
		AlertFlag:    b[37],
		Body:         body,
	}, nil
}

// Type10 is the first half of the CEI ephemeris (IS-GPS-200 Table 30-I)
type Type10 struct {
	WeekNum  uint16 `json:"week_num"`
	L1Health bool   `json:"l1_health"`
	L2Health bool   `json:"l2_health"`
	L5Health bool   `json:"l5_health"`

	TOp    uint32  `json:"t_op"`
	URAed  int8    `json:"ura_ed"`
	TOe    uint32  `json:"t_oe"`
	DA     float64 `json:"d_a"`
	ADot   float64 `json:"a_dot"`
	Dn0    float64 `json:"d_n0"`
	Dn0Dot float64 `json:"d_n0_dot"`
	M0n    float64 `json:"m0_n"`
	En     float64 `json:"e_n"`
	Omn    float64 `json:"om_n"`

	IntegrityStatusFlag bool `json:"integrity_status_flag"`
	L2CPhasing          bool `json:"l2c_phasing"`
}

func (Type10) messageBody() {}

func decodeType10(b []bool) (Type10, error) {
	if len(b) != 238 {
		return Type10{}, gnss.NewTelemetryError("expected 238 payload bits in message type 10, got %d", len(b))
	}

	return Type10{
		WeekNum: uint16(bits.Uint(b[0:13])),

		// False means "signal OK", true means "signal bad or unavailable"
		L1Health: b[13],
		L2Health: b[14],
		L5Health: b[15],

		TOp:    uint32(bits.Uint(b[16:27])) * 300,
		URAed:  int8(bits.Int(b[27:32])),
		TOe:    uint32(bits.Uint(b[32:43])) * 300,
		DA:     float64(bits.Int(b[43:69])) * math.Ldexp(1, -9),   // offset from the 26,559,710 m reference semi-major axis
		ADot:   float64(bits.Int(b[69:94])) * math.Ldexp(1, -21),  // [m/s]
		Dn0:    float64(bits.Int(b[94:111])) * math.Ldexp(1, -44), // [semicircles/s]
		Dn0Dot: float64(bits.Int(b[111:134])) * math.Ldexp(1, -57),
		M0n:    float64(bits.Int(b[134:167])) * math.Ldexp(1, -32),
		En:     float64(bits.Uint(b[167:200])) * math.Ldexp(1, -34),
		Omn:    float64(bits.Int(b[200:233])) * math.Ldexp(1, -32),

		IntegrityStatusFlag: b[233],
		L2CPhasing:          b[234],
		// 3 reserved bits
	}, nil
}

// Type11 is the second half of the CEI ephemeris
type Type11 struct {
	TOe    float64 `json:"t_oe"`
	Omega0 float64 `json:"omega0"`
	I0     float64 `json:"i0"`
	DOmega float64 `json:"d_omega_dot"`
	I0Dot  float64 `json:"i0_dot"`
	Cis    float64 `json:"cis"`
	Cic    float64 `json:"cic"`
	Crs    float64 `json:"crs"`
	Crc    float64 `json:"crc"`
	Cus    float64 `json:"cus"`
	Cuc    float64 `json:"cuc"`
}

func (Type11) messageBody() {}

func decodeType11(b []bool) (Type11, error) {
	if len(b) != 238 {
		return Type11{}, gnss.NewTelemetryError("expected 238 payload bits in message type 11, got %d", len(b))
	}

	// Scale factors from IS-GPS-200 Table 30-I
	return Type11{
		TOe:    float64(bits.Uint(b[0:11])) * 300.0,
		Omega0: float64(bits.Int(b[11:44])) * math.Ldexp(1, -32),
		I0:     float64(bits.Int(b[44:77])) * math.Ldexp(1, -32),
		DOmega: float64(bits.Int(b[77:94])) * math.Ldexp(1, -44),
		I0Dot:  float64(bits.Int(b[94:109])) * math.Ldexp(1, -44),
		Cis:    float64(bits.Int(b[109:125])) * math.Ldexp(1, -30),
		Cic:    float64(bits.Int(b[125:141])) * math.Ldexp(1, -30),
		Crs:    float64(bits.Int(b[141:165])) * math.Ldexp(1, -8),
		Crc:    float64(bits.Int(b[165:189])) * math.Ldexp(1, -8),
		Cus:    float64(bits.Int(b[189:210])) * math.Ldexp(1, -30),
		Cuc:    float64(bits.Int(b[210:231])) * math.Ldexp(1, -30),
	}, nil
}

// Type30 carries clock correction, group delay and ionospheric parameters
// (IS-GPS-200 Tables 30-III and 30-IV).
type Type30 struct {
	TOp     uint32  `json:"t_op"`
	URAned0 uint8   `json:"ura_ned0"`
	URAned1 uint8   `json:"ura_ned1"`
	URAned2 uint8   `json:"ura_ned2"`
	TOc     uint32  `json:"t_oc"`
	AF0n    float64 `json:"a_f0n"`
	AF1n    float64 `json:"a_f1n"`
	AF2n    float64 `json:"a_f2n"`

	TGd     float64 `json:"t_gd"`
	ISCL1CA float64 `json:"isc_l1ca"`
	ISCL2C  float64 `json:"isc_l2c"`
	ISCL5I5 float64 `json:"isc_l5i5"`
	ISCL5Q5 float64 `json:"isc_l5q5"`

	Alpha0 float64 `json:"alpha0"`
	Alpha1 float64 `json:"alpha1"`
	Alpha2 float64 `json:"alpha2"`
	Alpha3 float64 `json:"alpha3"`
	Beta0  float64 `json:"beta0"`
	Beta1  float64 `json:"beta1"`
	Beta2  float64 `json:"beta2"`
	Beta3  float64 `json:"beta3"`

	WNop uint8 `json:"wn_op"`
}

func (Type30) messageBody() {}

func decodeType30(b []bool) (Type30, error) {
	if len(b) != 238 {
		return Type30{}, gnss.NewTelemetryError("expected 238 payload bits in message type 30, got %d", len(b))
	}

	return Type30{
		TOp:     uint32(bits.Uint(b[0:11])) * 300,
		URAned0: uint8(bits.Uint(b[11:16])),
		URAned1: uint8(bits.Uint(b[16:19])),
		URAned2: uint8(bits.Uint(b[19:22])),
		TOc:     uint32(bits.Uint(b[22:33])) * 300,
		AF0n:    float64(bits.Int(b[33:59])) * math.Ldexp(1, -35),
		AF1n:    float64(bits.Int(b[59:79])) * math.Ldexp(1, -48),
		AF2n:    float64(bits.Int(b[79:89])) * math.Ldexp(1, -60),

		TGd:     float64(bits.Int(b[89:102])) * math.Ldexp(1, -35),
		ISCL1CA: float64(bits.Int(b[102:115])) * math.Ldexp(1, -35),
		ISCL2C:  float64(bits.Int(b[115:128])) * math.Ldexp(1, -35),
		ISCL5I5: float64(bits.Int(b[128:141])) * math.Ldexp(1, -35),
		ISCL5Q5: float64(bits.Int(b[141:154])) * math.Ldexp(1, -35),

		Alpha0: float64(bits.Int(b[154:162])) * math.Ldexp(1, -30),
		Alpha1: float64(bits.Int(b[162:170])) * math.Ldexp(1, -27),
		Alpha2: float64(bits.Int(b[170:178])) * math.Ldexp(1, -24),
		Alpha3: float64(bits.Int(b[178:186])) * math.Ldexp(1, -24),
		Beta0:  float64(bits.Int(b[186:194])) * math.Ldexp(1, 11),
		Beta1:  float64(bits.Int(b[194:202])) * math.Ldexp(1, 14),
		Beta2:  float64(bits.Int(b[202:210])) * math.Ldexp(1, 16),
		Beta3:  float64(bits.Int(b[210:218])) * math.Ldexp(1, 16),

		WNop: uint8(bits.Uint(b[218:226])),
		// 12 reserved bits
	}, nil
}
