// Package ca generates the GPS L1 C/A Gold codes.
package ca

import "fmt"

// CodeLenChips is the length of every C/A code
const CodeLenChips = 1023

// PeriodSec is the duration of one C/A code period
const PeriodSec = 1.0e-3

// g2Taps selects the two G2 register stages whose XOR forms the delayed G2
// sequence for each PRN (IS-GPS-200 Table 3-I, code phase selection).
var g2Taps = [32][2]int{
	{2, 6}, {3, 7}, {4, 8}, {5, 9}, {1, 9}, {2, 10}, {1, 8}, {2, 9},
	{3, 10}, {2, 3}, {3, 4}, {5, 6}, {6, 7}, {7, 8}, {8, 9}, {9, 10},
	{1, 4}, {2, 5}, {3, 6}, {4, 7}, {5, 8}, {6, 9}, {1, 3}, {4, 6},
	{5, 7}, {6, 8}, {7, 9}, {8, 10}, {1, 6}, {2, 7}, {3, 8}, {4, 9},
}

// Code generates the 1023-chip Gold code for the given PRN (1..32)
func Code(prn int) ([]bool, error) {
	if prn < 1 || prn > 32 {
		return nil, fmt.Errorf("invalid PRN %d for C/A code generation", prn)
	}

	// Both registers start all-ones. G1 feeds back stages 3 and 10; G2 feeds
	// back stages 2, 3, 6, 8, 9 and 10 (stages numbered 1..10).
	var g1, g2 [11]bool
	for i := 1; i <= 10; i++ {
		g1[i] = true
		g2[i] = true
	}

	tapA, tapB := g2Taps[prn-1][0], g2Taps[prn-1][1]

	code := make([]bool, CodeLenChips)
	for chip := 0; chip < CodeLenChips; chip++ {
		code[chip] = g1[10] != (g2[tapA] != g2[tapB])

		fb1 := g1[3] != g1[10]
		fb2 := g2[2] != g2[3] != g2[6] != g2[8] != g2[9] != g2[10]
		copy(g1[2:], g1[1:10])
		copy(g2[2:], g2[1:10])
		g1[1] = fb1
		g2[1] = fb2
	}
	return code, nil
}

// CodeInt returns the code as +1/-1 chips
func CodeInt(prn int) ([]int8, error) {
	code, err := Code(prn)
	if err != nil {
		return nil, err
	}
	out := make([]int8, len(code))
	for i, c := range code {
		if c {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
	return out, nil
}

// CodeComplex returns the code as complex +1/-1 chips for correlation
func CodeComplex(prn int) ([]complex128, error) {
	code, err := Code(prn)
	if err != nil {
		return nil, err
	}
	out := make([]complex128, len(code))
	for i, c := range code {
		if c {
			out[i] = complex(1, 0)
		} else {
			out[i] = complex(-1, 0)
		}
	}
	return out, nil
}

// CodeSampled resamples one code period to the given sample rate, producing
// the +1/-1 replica an acquisition correlates against.
func CodeSampled(prn int, fs float64) ([]int8, error) {
	code, err := Code(prn)
	if err != nil {
		return nil, err
	}
	nSamples := int(fs * PeriodSec)
	out := make([]int8, nSamples)
	for i := 0; i < nSamples; i++ {
		chip := int(float64(i) * CodeLenChips / float64(nSamples))
		if code[chip] {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
	return out, nil
}
