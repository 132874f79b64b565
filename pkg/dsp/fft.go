// Package dsp provides the signal-processing primitives shared by the
// acquisition and tracking stages: FFT plans, the frequency-domain matched
// filter, and the scalar loop filters.
package dsp

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
)

// FFT wraps a complex-to-complex transform plan of fixed length. The plan
// and scratch buffers are allocated once at construction and reused for
// every execution.
type FFT struct {
	n    int
	plan *fourier.CmplxFFT
	out  []complex128
}

// NewFFT plans a transform of length n
func NewFFT(n int) (*FFT, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid FFT length %d", n)
	}
	return &FFT{
		n:    n,
		plan: fourier.NewCmplxFFT(n),
		out:  make([]complex128, n),
	}, nil
}

// Len returns the transform length
func (f *FFT) Len() int {
	return f.n
}

// Forward computes the forward transform of data into an internal buffer and
// returns it. The buffer is overwritten by the next call.
func (f *FFT) Forward(data []complex128) []complex128 {
	return f.plan.Coefficients(f.out, data)
}

// Inverse computes the inverse transform of coeff scaled by 1/N, so that
// Inverse(Forward(x)) == x. The returned buffer is overwritten by the next
// call.
func (f *FFT) Inverse(coeff []complex128) []complex128 {
	f.plan.Sequence(f.out, coeff)
	scale := complex(1.0/float64(f.n), 0)
	for i := range f.out {
		f.out[i] *= scale
	}
	return f.out
}

// InverseRaw computes the inverse transform without the 1/N scaling
func (f *FFT) InverseRaw(coeff []complex128) []complex128 {
	return f.plan.Sequence(f.out, coeff)
}
