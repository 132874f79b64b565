// Package gtime provides time bookkeeping for the receiver.
package gtime

// IntegerClock is a drift-free time accumulator. It counts whole ticks at a
// known rate instead of summing floating-point increments, so it stays exact
// over millions of samples.
type IntegerClock struct {
	ticks  int64
	rateHz float64
	// offset holds the time at the last reset or rate change so that Time
	// reproduces the reset value exactly
	offset float64
}

// NewIntegerClock creates a clock ticking at the given rate
func NewIntegerClock(rateHz float64) *IntegerClock {
	return &IntegerClock{rateHz: rateHz}
}

// Inc advances the clock by one tick
func (c *IntegerClock) Inc() {
	c.ticks++
}

// Time returns the current time in seconds
func (c *IntegerClock) Time() float64 {
	return c.offset + float64(c.ticks)/c.rateHz
}

// Reset sets the clock to the given time in seconds and restarts the tick
// count from zero.
func (c *IntegerClock) Reset(t float64) {
	c.ticks = 0
	c.offset = t
}

// SetClockRate changes the tick rate without disturbing the current time.
// Trackers call this to keep SV time consistent with the tracked code
// Doppler.
func (c *IntegerClock) SetClockRate(rateHz float64) {
	if rateHz == c.rateHz {
		return
	}
	c.offset = c.Time()
	c.ticks = 0
	c.rateHz = rateHz
}

// RateHz returns the current tick rate
func (c *IntegerClock) RateHz() float64 {
	return c.rateHz
}
