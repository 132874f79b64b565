// Package pvt solves for receiver position and clock bias from pseudorange
// observations by iterative least squares.
package pvt

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/softnav/gnssdr/pkg/geo"
	"github.com/softnav/gnssdr/pkg/gnss"
	"github.com/softnav/gnssdr/pkg/gps/ephemeris"
)

// Solver limits
const (
	// MaxIter bounds the least-squares iterations per epoch
	MaxIter = 10
	// SVCountThreshold is the minimum number of observations for a solve
	SVCountThreshold = 5
	// convergenceNorm is the step norm below which iteration stops
	convergenceNorm = 1.0e-4
)

// Solver error values
const (
	// ErrInsufficientSVs indicates too few observations this epoch
	ErrInsufficientSVs = gnss.Error("not enough observations")
	// ErrSingularGeometry indicates a non-invertible normal matrix
	ErrSingularGeometry = gnss.Error("non-invertible normal matrix")
	// ErrNonFiniteSolution indicates the iteration left the finite domain
	ErrNonFiniteSolution = gnss.Error("solution and/or residual is not finite")
)

// Observation is one satellite's contribution to an epoch, assembled by the
// channel from tracking and telemetry state alone.
type Observation struct {
	SVID          int        `json:"sv_id"`
	SVTowSec      float64    `json:"sv_tow_sec"`
	PseudorangeM  float64    `json:"pseudorange_m"`
	PosECEF       [3]float64 `json:"sv_ecef"`
	SVClock       float64    `json:"sv_clock_correction"`
	TGd           float64    `json:"t_gd"`
	CarrierFreqHz float64    `json:"carrier_freq_hz"`
}

// CompletedObservation adds the observer-dependent quantities to an
// observation: residual, geometry and the modeled ionospheric delay.
type CompletedObservation struct {
	Residual    float64    `json:"residual"`
	RangeM      float64    `json:"p_r_mag"`
	LineOfSight [3]float64 `json:"p_r_e_norm"`
	AzRad       float64    `json:"az_radians"`
	ElRad       float64    `json:"el_radians"`
	IonoDelay   float64    `json:"iono_delay"`
}

// ObservationPair couples an observation with its completion at the solved
// position.
type ObservationPair struct {
	Observation Observation          `json:"observation"`
	Completed   CompletedObservation `json:"completed"`
}

// GnssFix is one solved epoch
type GnssFix struct {
	PosECEF      [3]float64        `json:"pos_ecef"`
	ResidualNorm float64           `json:"residual_norm"`
	RxTime       float64           `json:"rx_time"`
	Observations []ObservationPair `json:"observations"`
}

// Complete evaluates the observer-dependent parts of the observation at
// state x = (ex, ey, ez, c*dt). The ionospheric delay is recorded but not
// yet applied to the pseudorange.
func (o *Observation) Complete(x [4]float64, iono *ephemeris.IonosphereModel) CompletedObservation {
	var rel [3]float64
	for i := 0; i < 3; i++ {
		rel[i] = o.PosECEF[i] - x[i]
	}
	rangeM := math.Sqrt(rel[0]*rel[0] + rel[1]*rel[1] + rel[2]*rel[2])

	var los [3]float64
	for i := 0; i < 3; i++ {
		los[i] = rel[i] / rangeM
	}

	obsGeo := geo.ECEFToGeodetic(x[0], x[1], x[2])
	azRad, elRad := geo.AzEl(geo.NEDRotation(obsGeo), rel)

	ionoDelay := 0.0
	if iono != nil {
		ionoDelay = iono.Delay(azRad, elRad, obsGeo.LatRad, obsGeo.LonRad, o.SVTowSec)
	}

	return CompletedObservation{
		Residual:    o.PseudorangeM - rangeM - x[3],
		RangeM:      rangeM,
		LineOfSight: los,
		AzRad:       azRad,
		ElRad:       elRad,
		IonoDelay:   ionoDelay,
	}
}

// SolvePositionAndTime iterates least squares over the observations from
// the seed state x0 = (ex, ey, ez, c*dt). It returns the fix and the solved
// state. Finiteness is only judged at convergence, so a diverging iteration
// fails cleanly rather than mid-flight.
func SolvePositionAndTime(obs []Observation, x0 [4]float64, rxTime float64, iono *ephemeris.IonosphereModel) (*GnssFix, [4]float64, error) {
	if len(obs) < SVCountThreshold {
		return nil, x0, ErrInsufficientSVs
	}

	n := len(obs)
	x := x0
	v := mat.NewVecDense(n, nil)
	h := mat.NewDense(n, 4, nil)

	for iter := 0; iter < MaxIter; iter++ {
		for i := range obs {
			co := obs[i].Complete(x, iono)
			v.SetVec(i, co.Residual)
			for j := 0; j < 3; j++ {
				h.Set(i, j, -co.LineOfSight[j])
			}
			h.Set(i, 3, 1.0)
		}

		// Normal equations: dx = (H^T H)^-1 H^T v
		var hth mat.Dense
		hth.Mul(h.T(), h)
		var q mat.Dense
		if err := q.Inverse(&hth); err != nil {
			return nil, x0, ErrSingularGeometry
		}
		var htv, dx mat.VecDense
		htv.MulVec(h.T(), v)
		dx.MulVec(&q, &htv)

		for j := 0; j < 4; j++ {
			x[j] += dx.AtVec(j)
		}

		if mat.Norm(&dx, 2) < convergenceNorm {
			for j := 0; j < 4; j++ {
				if !isFinite(x[j]) {
					return nil, x0, ErrNonFiniteSolution
				}
			}
			for i := 0; i < n; i++ {
				if !isFinite(v.AtVec(i)) {
					return nil, x0, ErrNonFiniteSolution
				}
			}

			pairs := make([]ObservationPair, n)
			for i := range obs {
				pairs[i] = ObservationPair{
					Observation: obs[i],
					Completed:   obs[i].Complete(x, iono),
				}
			}
			fix := &GnssFix{
				PosECEF:      [3]float64{x[0], x[1], x[2]},
				ResidualNorm: mat.Norm(v, 2),
				RxTime:       rxTime,
				Observations: pairs,
			}
			return fix, x, nil
		}
	}

	return nil, x0, gnss.Error("no convergence within iteration limit")
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
