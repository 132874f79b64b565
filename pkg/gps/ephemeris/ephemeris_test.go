package ephemeris

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// refEphemeris is a circular-ish reference orbit: nominal GPS semi-major
// axis, slight eccentricity, all corrections zeroed.
func refEphemeris() *Ephemeris {
	return &Ephemeris{
		SqrtA: 5153.6,
		E:     0.005,
		TOe:   0.0,
	}
}

func TestPosAndClockRadiusAtPerigee(t *testing.T) {
	eph := refEphemeris()
	pos, _ := eph.PosAndClock(0.0)

	// At t = toe with m0 = 0 the SV sits at perigee, radius a*(1-e)
	a := eph.SqrtA * eph.SqrtA
	want := a * (1.0 - eph.E)
	got := math.Sqrt(pos[0]*pos[0] + pos[1]*pos[1] + pos[2]*pos[2])
	assert.InDelta(t, want, got, 1.0)
}

func TestPosAndClockOrbitalSpeed(t *testing.T) {
	// The numeric derivative of the propagated position stays near the
	// nominal GPS orbital speed everywhere in the fit interval
	eph := refEphemeris()

	const eps = 1.0e-3
	for ts := 0.0; ts <= 14400.0; ts += 1800.0 {
		p0, _ := eph.PosAndClock(ts)
		p1, _ := eph.PosAndClock(ts + eps)

		var d2 float64
		for i := 0; i < 3; i++ {
			d2 += (p1[i] - p0[i]) * (p1[i] - p0[i])
		}
		speed := math.Sqrt(d2) / eps

		require.False(t, math.IsNaN(speed))
		assert.Greater(t, speed, 3000.0)
		assert.Less(t, speed, 5000.0)
	}
}

func TestPosAndClockEarthRotationCorrection(t *testing.T) {
	// The ascending node regresses at the earth rate as tk grows, so
	// propagating the same orbital phase at two times yields positions
	// rotated about the z axis
	eph := refEphemeris()
	p0, _ := eph.PosAndClock(0.0)

	eph2 := refEphemeris()
	period := 2.0 * math.Pi / math.Sqrt(MU/math.Pow(eph.SqrtA*eph.SqrtA, 3))
	p1, _ := eph2.PosAndClock(period)

	// One full orbit later the radius matches but the earth has turned
	// underneath, so the ECEF position differs
	r0 := math.Sqrt(p0[0]*p0[0] + p0[1]*p0[1] + p0[2]*p0[2])
	r1 := math.Sqrt(p1[0]*p1[0] + p1[1]*p1[1] + p1[2]*p1[2])
	assert.InDelta(t, r0, r1, 1.0)
	assert.NotInDelta(t, p0[0], p1[0], 1000.0)
}

func TestClockCorrectionPolynomial(t *testing.T) {
	eph := refEphemeris()
	eph.AF0 = 1.0e-4
	eph.AF1 = 1.0e-9
	eph.TOc = 0.0

	assert.InDelta(t, 1.0e-4+1.0e-9*100.0, eph.DtSV(100.0), 1e-15)

	// The full clock term adds the relativistic correction, which vanishes
	// at perigee (sin E = 0) and is bounded by F*e*sqrtA elsewhere
	_, clock := eph.PosAndClock(0.0)
	assert.InDelta(t, 1.0e-4, clock, 1e-10)

	bound := math.Abs(F) * eph.E * eph.SqrtA
	_, clockQuarter := eph.PosAndClock(1800.0)
	assert.InDelta(t, eph.AF0+eph.AF1*1800.0, clockQuarter, bound*1.1)
}

func TestIonosphereDelayBounds(t *testing.T) {
	m := &IonosphereModel{
		Alpha0: 1.0e-8, Alpha1: 0, Alpha2: 0, Alpha3: 0,
		Beta0: 80000.0, Beta1: 0, Beta2: 0, Beta3: 0,
	}

	// Any geometry yields at least the 5 ns nighttime floor times the
	// obliquity factor, and stays within a sane ceiling
	for _, el := range []float64{0.1, 0.5, 1.0, 1.5} {
		for _, tow := range []float64{0.0, 30000.0, 50400.0, 80000.0} {
			delay := m.Delay(0.3, el, 0.7, -1.9, tow)
			assert.Greater(t, delay, 4.0e-9)
			assert.Less(t, delay, 1.0e-6)
		}
	}
}

func TestIonosphereDelayPeaksMidAfternoon(t *testing.T) {
	m := &IonosphereModel{Alpha0: 2.0e-8, Beta0: 72000.0}

	// The cosine bulge peaks at 50400 s local time (14:00)
	lon := 0.0
	peak := m.Delay(0.0, 1.0, 0.0, lon, 50400.0)
	offPeak := m.Delay(0.0, 1.0, 0.0, lon, 10000.0)
	assert.Greater(t, peak, offPeak)
}
