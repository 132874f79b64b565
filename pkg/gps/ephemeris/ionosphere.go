package ephemeris

import "math"

// IonosphereModel is the eight-coefficient Klobuchar model broadcast in
// subframe 4 page 18.
type IonosphereModel struct {
	Alpha0 float64 `json:"alpha0"`
	Alpha1 float64 `json:"alpha1"`
	Alpha2 float64 `json:"alpha2"`
	Alpha3 float64 `json:"alpha3"`
	Beta0  float64 `json:"beta0"`
	Beta1  float64 `json:"beta1"`
	Beta2  float64 `json:"beta2"`
	Beta3  float64 `json:"beta3"`
}

// Delay evaluates the Klobuchar ionospheric delay in seconds for a signal
// arriving from the given azimuth and elevation (radians) at an observer at
// the given geodetic latitude and longitude (radians), at GPS time t
// seconds of week. The algorithm follows IS-GPS-200 Figure 20-4; the model
// works in semicircles internally.
func (m *IonosphereModel) Delay(azRad, elRad, latRad, lonRad, t float64) float64 {
	elSC := elRad / math.Pi

	phiU := latRad / math.Pi
	lamU := lonRad / math.Pi
	if phiU > 0.5 {
		phiU = 1.0 - phiU
		lamU -= 1.0
	}
	if phiU < -0.5 {
		phiU = -1.0 - phiU
		lamU -= 1.0
	}
	if lamU > 1.0 {
		lamU -= 2.0
	}
	if lamU < -1.0 {
		lamU += 2.0
	}

	// Earth-centered angle to the ionospheric pierce point (semicircles)
	psi := 0.0137/(elSC+0.11) - 0.022

	// Pierce-point geodetic coordinates (semicircles)
	phiI := phiU + psi*math.Cos(azRad)
	if phiI > 0.416 {
		phiI = 0.416
	} else if phiI < -0.416 {
		phiI = -0.416
	}
	lamI := lamU + psi*math.Sin(azRad)/math.Cos(phiI*math.Pi)

	// Geomagnetic latitude of the pierce point
	phiM := phiI + 0.064*math.Cos(lamI*math.Pi-1.617)

	// Local time at the pierce point, wrapped into one day
	tLcl := math.Mod(4.32e4*lamI+t, 86400.0)
	if tLcl < 0 {
		tLcl += 86400.0
	}

	// Obliquity factor
	fIono := 1.0 + 16.0*math.Pow(0.53-elSC, 3)

	per := m.Beta0 + m.Beta1*phiM + m.Beta2*phiM*phiM + m.Beta3*phiM*phiM*phiM
	if per < 72000.0 {
		per = 72000.0
	}
	amp := m.Alpha0 + m.Alpha1*phiM + m.Alpha2*phiM*phiM + m.Alpha3*phiM*phiM*phiM
	if amp < 0.0 {
		amp = 0.0
	}

	x := 2.0 * math.Pi * (tLcl - 50400.0) / per
	if math.Abs(x) < 1.57 {
		x2 := x * x
		return fIono * (5.0e-9 + amp*(1.0-x2/2.0+x2*x2/24.0))
	}
	return fIono * 5.0e-9
}
