package cnav

// MessageBits is the length of one CNAV message including its CRC
const MessageBits = 300

// MessageDataBits is the message length once the 24 CRC bits are dropped
const MessageDataBits = 276

// crc24qPoly is the CRC-24Q generator polynomial 0x1864CFB expressed as its
// 25 coefficient bits, MSB first.
var crc24qPoly = [25]bool{
	true, true, false, false, false, false, true, true, false, false,
	true, false, false, true, true, false, false, true, true, true,
	true, true, false, true, true,
}

// IsMessageCRCOk checks the CRC-24Q of a full 300-bit message by dividing
// the whole message, parity included, by the generator; an intact message
// leaves no remainder.
func IsMessageCRCOk(messageWithCRC []bool) bool {
	if len(messageWithCRC) != MessageBits {
		return false
	}

	m := make([]bool, MessageBits)
	copy(m, messageWithCRC)

	for i := 0; i <= len(m)-len(crc24qPoly); i++ {
		if !m[i] {
			continue
		}
		for j, p := range crc24qPoly {
			m[i+j] = m[i+j] != p
		}
	}

	for _, b := range m {
		if b {
			return false
		}
	}
	return true
}

// AppendCRC computes the CRC-24Q over 276 data bits and returns the full
// 300-bit message. Used to build test fixtures and loopback checks.
func AppendCRC(data []bool) []bool {
	m := make([]bool, MessageBits)
	copy(m, data)

	r := make([]bool, MessageBits)
	copy(r, m)
	for i := 0; i <= len(r)-len(crc24qPoly); i++ {
		if !r[i] {
			continue
		}
		for j, p := range crc24qPoly {
			r[i+j] = r[i+j] != p
		}
	}
	copy(m[MessageDataBits:], r[MessageDataBits:])
	return m
}
