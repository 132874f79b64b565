package sdr

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softnav/gnssdr/pkg/gnss"
)

func encodeIQ(pairs [][2]int16) []byte {
	var buf bytes.Buffer
	for _, p := range pairs {
		binary.Write(&buf, binary.LittleEndian, p[0])
		binary.Write(&buf, binary.LittleEndian, p[1])
	}
	return buf.Bytes()
}

func TestIQ16SourceReadsSamples(t *testing.T) {
	pairs := [][2]int16{{100, -200}, {-32768, 32767}, {0, 1}}
	src := NewIQ16Source(bytes.NewReader(encodeIQ(pairs)))

	for i, p := range pairs {
		s, err := src.Next()
		require.NoError(t, err)
		assert.Equal(t, i, s.Idx)
		assert.Equal(t, complex(float64(p[0]), float64(p[1])), s.Val)
	}

	_, err := src.Next()
	assert.ErrorIs(t, err, gnss.ErrNoSourceData)
}

func TestIQ16SourceLargeStreamIndices(t *testing.T) {
	// More samples than one internal buffer, so the refill path runs
	n := BufferSizeSamples*2 + 17
	pairs := make([][2]int16, n)
	for i := range pairs {
		pairs[i] = [2]int16{int16(i), int16(-i)}
	}
	src := NewIQ16Source(bytes.NewReader(encodeIQ(pairs)))

	for i := 0; i < n; i++ {
		s, err := src.Next()
		require.NoError(t, err)
		require.Equal(t, i, s.Idx)
	}
	_, err := src.Next()
	assert.ErrorIs(t, err, gnss.ErrNoSourceData)
}

func TestIQ16SourceDropsTrailingPartialSample(t *testing.T) {
	data := encodeIQ([][2]int16{{5, 6}})
	data = append(data, 0xab) // half a component

	src := NewIQ16Source(bytes.NewReader(data))
	s, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, complex(5.0, 6.0), s.Val)

	_, err = src.Next()
	assert.ErrorIs(t, err, gnss.ErrNoSourceData)
}

func TestIQ16SourceEmptyStream(t *testing.T) {
	src := NewIQ16Source(bytes.NewReader(nil))
	_, err := src.Next()
	assert.ErrorIs(t, err, gnss.ErrNoSourceData)
}
