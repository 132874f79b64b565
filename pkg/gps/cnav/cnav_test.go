package cnav

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC24QAcceptsBuiltMessage(t *testing.T) {
	data := make([]bool, MessageDataBits)
	for i := range data {
		data[i] = i%7 == 0
	}
	msg := AppendCRC(data)
	assert.True(t, IsMessageCRCOk(msg))
}

func TestCRC24QRejectsCorruption(t *testing.T) {
	data := make([]bool, MessageDataBits)
	for i := range data {
		data[i] = i%3 == 0
	}
	msg := AppendCRC(data)

	for _, i := range []int{0, 1, 100, 275, 276, 299} {
		corrupted := make([]bool, MessageBits)
		copy(corrupted, msg)
		corrupted[i] = !corrupted[i]
		assert.Falsef(t, IsMessageCRCOk(corrupted), "flipped bit %d", i)
	}
}

func TestCRC24QRejectsBadLength(t *testing.T) {
	assert.False(t, IsMessageCRCOk(make([]bool, 299)))
}

func TestFECRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	message := make([]bool, 150)
	for i := range message {
		message[i] = rng.Intn(2) == 1
	}

	symbols := FECEncode(message)
	require.Len(t, symbols, 300)

	decoded := FECDecode(symbols)
	require.NotNil(t, decoded)
	require.Len(t, decoded, 150)

	// The decoder reports each bit once it has fully traversed the 7-bit
	// encoder register, so the output lags the message by six bits
	assert.Equal(t, message[:len(message)-6], decoded[6:])
}

func TestFECRoundTripWithSymbolErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	message := make([]bool, 150)
	for i := range message {
		message[i] = rng.Intn(2) == 1
	}

	symbols := FECEncode(message)

	// Corrupt a few well-separated symbols, below the error budget
	for _, i := range []int{20, 121, 250} {
		symbols[i] = !symbols[i]
	}

	decoded := FECDecode(symbols)
	require.NotNil(t, decoded)
	assert.Equal(t, message[:len(message)-6], decoded[6:])
}

func TestFECAllPathsDieOnHeavyCorruption(t *testing.T) {
	message := make([]bool, 150)
	symbols := FECEncode(message)

	// Flip a dense run of symbols so every survivor exceeds the budget
	for i := 40; i < 80; i++ {
		symbols[i] = !symbols[i]
	}
	assert.Nil(t, FECDecode(symbols))
}

// buildTypedMessage assembles a 276-bit message with the preamble, PRN,
// type id and truncated TOW in the header and zeros in the payload.
func buildTypedMessage(prn, typeID uint8, tow uint32) []bool {
	data := make([]bool, MessageDataBits)
	copy(data[0:8], preamble[:])
	for i := 0; i < 6; i++ {
		data[8+i] = prn&(1<<(5-i)) != 0
	}
	for i := 0; i < 6; i++ {
		data[14+i] = typeID&(1<<(5-i)) != 0
	}
	for i := 0; i < 17; i++ {
		data[20+i] = tow&(1<<(16-i)) != 0
	}
	return data
}

func TestFramerFindsAlignedMessages(t *testing.T) {
	f := NewFramer()

	var got [][]bool
	for k := 0; k < 3; k++ {
		msg := AppendCRC(buildTypedMessage(7, 10, uint32(5000+k)))
		for _, b := range msg {
			if out := f.Apply(b); out != nil {
				got = append(got, out)
			}
		}
	}

	require.Len(t, got, 3)
	for k, msgBits := range got {
		msg, err := DecodeMessage(msgBits)
		require.NoError(t, err)
		assert.Equal(t, uint8(7), msg.PRN)
		assert.Equal(t, uint8(10), msg.TypeID)
		assert.Equal(t, uint32(5000+k), msg.TOWTruncated)
		assert.IsType(t, Type10{}, msg.Body)
	}
}

func TestFramerHandlesInvertedStream(t *testing.T) {
	f := NewFramer()

	var got [][]bool
	for k := 0; k < 2; k++ {
		msg := AppendCRC(buildTypedMessage(3, 11, uint32(100+k)))
		for _, b := range msg {
			if out := f.Apply(!b); out != nil {
				got = append(got, out)
			}
		}
	}

	require.Len(t, got, 2)
	msg, err := DecodeMessage(got[0])
	require.NoError(t, err)
	assert.Equal(t, uint8(11), msg.TypeID)
	assert.IsType(t, Type11{}, msg.Body)
}

func TestFramerResyncsAfterCRCFailure(t *testing.T) {
	f := NewFramer()

	good := AppendCRC(buildTypedMessage(1, 30, 42))
	for _, b := range good {
		f.Apply(b)
	}

	// A corrupted aligned message drops the framer back to searching
	bad := make([]bool, MessageBits)
	copy(bad, good)
	bad[50] = !bad[50]
	var got [][]bool
	for _, b := range bad {
		if out := f.Apply(b); out != nil {
			got = append(got, out)
		}
	}
	assert.Empty(t, got)

	// A clean message realigns the framer
	for _, b := range good {
		if out := f.Apply(b); out != nil {
			got = append(got, out)
		}
	}
	require.Len(t, got, 1)
}

func TestDecodeMessageUnknownType(t *testing.T) {
	msg, err := DecodeMessage(buildTypedMessage(9, 15, 1))
	require.NoError(t, err)
	assert.Equal(t, uint8(15), msg.TypeID)
	assert.IsType(t, UnknownBody{}, msg.Body)
}

func TestDecodeMessageRejectsBadLength(t *testing.T) {
	_, err := DecodeMessage(make([]bool, 300))
	assert.Error(t, err)
}

func TestDecodeType30IonosphereScaling(t *testing.T) {
	data := buildTypedMessage(2, 30, 9)

	// alpha0 occupies payload bits 154..161; set it to 16 (0b00010000),
	// which scales to 16 * 2^-30
	payload := data[38:]
	payload[154+3] = true

	msg, err := DecodeMessage(data)
	require.NoError(t, err)
	body, ok := msg.Body.(Type30)
	require.True(t, ok)
	assert.InDelta(t, 16.0/float64(1<<30), body.Alpha0, 1e-18)
}
