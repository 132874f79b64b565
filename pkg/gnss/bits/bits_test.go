package bits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b(s string) []bool {
	out := make([]bool, 0, len(s))
	for _, c := range s {
		out = append(out, c == '1')
	}
	return out
}

func TestToUint64(t *testing.T) {
	v, err := ToUint64(b("101"))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), v)

	v, err = ToUint64(b(""))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v)
}

func TestToInt64SignExtension(t *testing.T) {
	cases := []struct {
		bits string
		want int64
	}{
		{"0", 0},
		{"1", -1},
		{"011", 3},
		{"100", -4},
		{"11111111", -1},
		{"10000000", -128},
		{"01111111", 127},
	}
	for _, c := range cases {
		v, err := ToInt64(b(c.bits))
		require.NoError(t, err)
		assert.Equalf(t, c.want, v, "bits %q", c.bits)
	}
}

func TestWidthLimit(t *testing.T) {
	_, err := ToUint64(make([]bool, 65))
	assert.Error(t, err)
	_, err = ToInt64(make([]bool, 65))
	assert.Error(t, err)

	assert.Panics(t, func() { Uint(make([]bool, 65)) })
	assert.Panics(t, func() { Int(make([]bool, 65)) })
}

func TestConcat(t *testing.T) {
	assert.Equal(t, b("10110"), Concat(b("10"), b("11"), b("0")))
	assert.Equal(t, uint64(0b10110), Uint(Concat(b("10"), b("110"))))
}

func TestToBytes(t *testing.T) {
	out, err := ToBytes(b("1000101101110100"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x8b, 0x74}, out)

	_, err = ToBytes(b("101"))
	assert.Error(t, err)
}
