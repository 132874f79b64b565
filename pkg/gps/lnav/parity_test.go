package lnav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildWord assembles one transmitted 30-bit word from 24 true data bits
// and the last two bits of the previous transmitted word: the data bits are
// complemented when D30* is set and the six parity bits are solved from the
// encoding equations.
func buildWord(data []bool, lastD29, lastD30 bool) []bool {
	if len(data) != WordDataBits {
		panic("buildWord needs 24 data bits")
	}

	xor := func(bits ...bool) bool {
		v := false
		for _, b := range bits {
			v = v != b
		}
		return v
	}
	d := data

	word := make([]bool, WordBits)
	for i, bit := range d {
		word[i] = bit != lastD30
	}
	word[24] = xor(lastD29, d[0], d[1], d[2], d[4], d[5], d[9], d[10], d[11], d[12], d[13], d[16], d[17], d[19], d[22])
	word[25] = xor(lastD30, d[1], d[2], d[3], d[5], d[6], d[10], d[11], d[12], d[13], d[14], d[17], d[18], d[20], d[23])
	word[26] = xor(lastD29, d[0], d[2], d[3], d[4], d[6], d[7], d[11], d[12], d[13], d[14], d[15], d[18], d[19], d[21])
	word[27] = xor(lastD30, d[1], d[3], d[4], d[5], d[7], d[8], d[12], d[13], d[14], d[15], d[16], d[19], d[20], d[22])
	word[28] = xor(lastD30, d[0], d[2], d[4], d[5], d[6], d[8], d[9], d[13], d[14], d[15], d[16], d[17], d[20], d[21], d[23])
	word[29] = xor(lastD29, d[2], d[4], d[5], d[7], d[8], d[9], d[10], d[12], d[14], d[18], d[21], d[22], d[23])
	return word
}

// buildSubframe assembles a transmitted 300-bit subframe from 240 true data
// bits. The last word's two trailing data bits are solved so its parity
// ends in two zeros, which is what lets the next subframe's first word
// check against a clean register, mirroring the broadcast convention.
func buildSubframe(data []bool) []bool {
	if len(data) != SubframeDataBits {
		panic("buildSubframe needs 240 data bits")
	}

	out := make([]bool, 0, SubframeBits)
	var d29, d30 bool
	for w := 0; w < WordsPerSubframe; w++ {
		wordData := make([]bool, WordDataBits)
		copy(wordData, data[w*WordDataBits:(w+1)*WordDataBits])

		if w == WordsPerSubframe-1 {
			// Solve the two non-information bits so D29 and D30 end at zero
			wordData[22], wordData[23] = false, false
			probe := buildWord(wordData, d29, d30)
			if probe[28] {
				wordData[23] = !wordData[23]
			}
			probe = buildWord(wordData, d29, d30)
			if probe[29] {
				wordData[22] = !wordData[22]
			}
		}

		word := buildWord(wordData, d29, d30)
		out = append(out, word...)
		d29, d30 = word[28], word[29]
	}
	return out
}

func TestParityLaw(t *testing.T) {
	// Any constructed word passes; any single-bit corruption fails
	data := make([]bool, WordDataBits)
	for i := range data {
		data[i] = i%3 == 0
	}

	for _, prev := range [][2]bool{{false, false}, {false, true}, {true, false}, {true, true}} {
		word := buildWord(data, prev[0], prev[1])
		assert.True(t, ParityCheck(word, prev[0], prev[1]))

		for i := 0; i < WordBits; i++ {
			corrupted := make([]bool, WordBits)
			copy(corrupted, word)
			corrupted[i] = !corrupted[i]
			assert.Falsef(t, ParityCheck(corrupted, prev[0], prev[1]), "bit %d", i)
		}
	}
}

func TestParityCheckRejectsBadLength(t *testing.T) {
	assert.False(t, ParityCheck(make([]bool, 29), false, false))
}

func TestRecoverData(t *testing.T) {
	data := make([]bool, SubframeDataBits)
	for i := range data {
		data[i] = i%5 == 0
	}

	sub := buildSubframe(data)
	recovered, err := RecoverData(sub)
	require.NoError(t, err)

	// All words except the solved tail bits of word 10 round-trip
	assert.Equal(t, data[:9*WordDataBits], recovered[:9*WordDataBits])
	assert.Equal(t, data[9*WordDataBits:9*WordDataBits+22], recovered[9*WordDataBits:9*WordDataBits+22])
}

func TestRecoverDataRejectsCorruption(t *testing.T) {
	data := make([]bool, SubframeDataBits)
	sub := buildSubframe(data)
	sub[37] = !sub[37]

	_, err := RecoverData(sub)
	assert.Error(t, err)
}
