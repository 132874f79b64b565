package lnav

import "github.com/softnav/gnssdr/pkg/gnss"

func errBadSubframeLen(n int) error {
	return gnss.NewTelemetryError("subframe must be %d bits, got %d", SubframeBits, n)
}

func errParity(word int) error {
	return gnss.NewTelemetryError("parity check failed on word %d", word+1)
}
