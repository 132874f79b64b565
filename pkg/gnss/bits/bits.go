// Package bits converts slices of demodulated bits into integers with the
// sign and width conventions used by the GPS navigation messages.
package bits

import "fmt"

// ToUint64 interprets bits MSB-first as an unsigned integer. Widths up to 64
// bits are supported.
func ToUint64(b []bool) (uint64, error) {
	if len(b) > 64 {
		return 0, fmt.Errorf("bit field too wide: %d > 64", len(b))
	}
	var v uint64
	for _, bit := range b {
		v <<= 1
		if bit {
			v |= 1
		}
	}
	return v, nil
}

// ToInt64 interprets bits MSB-first as a two's-complement signed integer of
// len(b) bits.
func ToInt64(b []bool) (int64, error) {
	if len(b) > 64 {
		return 0, fmt.Errorf("bit field too wide: %d > 64", len(b))
	}
	u, err := ToUint64(b)
	if err != nil {
		return 0, err
	}
	if len(b) > 0 && b[0] {
		// Sign-extend from len(b) bits
		u |= ^uint64(0) << uint(len(b))
	}
	return int64(u), nil
}

// Uint extracts an unsigned field; it panics on widths over 64 bits, which
// never occur in the published message layouts.
func Uint(b []bool) uint64 {
	v, err := ToUint64(b)
	if err != nil {
		panic(err)
	}
	return v
}

// Int extracts a two's-complement signed field; it panics on widths over 64
// bits.
func Int(b []bool) int64 {
	v, err := ToInt64(b)
	if err != nil {
		panic(err)
	}
	return v
}

// Concat joins bit fields that are split across non-contiguous ranges of a
// word, e.g. the IODC and the subframe-4 a_f0 field.
func Concat(fields ...[]bool) []bool {
	var n int
	for _, f := range fields {
		n += len(f)
	}
	out := make([]bool, 0, n)
	for _, f := range fields {
		out = append(out, f...)
	}
	return out
}

// ToBytes packs bits MSB-first into bytes. The bit count must be a multiple
// of eight.
func ToBytes(b []bool) ([]byte, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("bit count %d is not a multiple of 8", len(b))
	}
	out := make([]byte, len(b)/8)
	for i, bit := range b {
		if bit {
			out[i/8] |= 0x80 >> uint(i%8)
		}
	}
	return out, nil
}
