// Package sdr provides sample sources for the receiver: readers that turn
// raw IQ byte streams into indexed complex samples.
package sdr

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/softnav/gnssdr/pkg/gnss"
)

// BufferSizeSamples is how many samples a buffered source reads at a time
const BufferSizeSamples = 2048

// Source produces the sample stream driving the receiver. Next returns
// gnss.ErrNoSourceData once the stream is exhausted.
type Source interface {
	Next() (gnss.Sample, error)
}

// IQ16Source reads interleaved little-endian int16 I/Q pairs from a byte
// stream in fixed-size chunks and hands out one complex sample per call,
// tagged with a monotonically increasing index.
type IQ16Source struct {
	src      io.Reader
	idx      int
	buf      []byte
	pos      int
	validLen int
}

// NewIQ16Source wraps a reader of raw i16 IQ data
func NewIQ16Source(src io.Reader) *IQ16Source {
	return &IQ16Source{
		src: src,
		buf: make([]byte, BufferSizeSamples*4),
	}
}

func (s *IQ16Source) fill() error {
	n, err := io.ReadFull(s.src, s.buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	// Only whole samples count; a trailing partial pair is dropped
	s.validLen = n - n%4
	s.pos = 0
	return nil
}

// Next returns the next sample or gnss.ErrNoSourceData at end of stream
func (s *IQ16Source) Next() (gnss.Sample, error) {
	if s.pos >= s.validLen {
		if err := s.fill(); err != nil {
			return gnss.Sample{}, err
		}
		if s.validLen == 0 {
			return gnss.Sample{}, gnss.ErrNoSourceData
		}
	}

	re := int16(binary.LittleEndian.Uint16(s.buf[s.pos:]))
	im := int16(binary.LittleEndian.Uint16(s.buf[s.pos+2:]))
	s.pos += 4

	sample := gnss.Sample{
		Val: complex(float64(re), float64(im)),
		Idx: s.idx,
	}
	s.idx++
	return sample, nil
}
