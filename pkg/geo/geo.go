// Package geo converts between ECEF and WGS-84 geodetic coordinates and
// builds the local-level frames the positioning code works in.
package geo

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// WGS-84 ellipsoid axes in meters
const (
	WGS84SemiMajorAxisM = 6378137.0
	WGS84SemiMinorAxisM = 6356752.314245
)

// Geodetic is a position on the WGS-84 ellipsoid
type Geodetic struct {
	LatRad  float64 `json:"latitude"`
	LonRad  float64 `json:"longitude"`
	HeightM float64 `json:"height_above_ellipsoid"`
}

// ECEFToGeodetic converts an ECEF position to geodetic coordinates using
// Bowring's closed-form approximation.
func ECEFToGeodetic(e1, e2, e3 float64) Geodetic {
	aSq := WGS84SemiMajorAxisM * WGS84SemiMajorAxisM
	bSq := WGS84SemiMinorAxisM * WGS84SemiMinorAxisM

	eSq := (aSq - bSq) / aSq
	epSq := (aSq - bSq) / bSq

	p := math.Hypot(e1, e2)
	r := math.Hypot(p, e3)

	beta := math.Atan((WGS84SemiMinorAxisM * e3 / (WGS84SemiMajorAxisM * p)) *
		(1.0 + epSq*(WGS84SemiMinorAxisM/r)))

	sinBeta, cosBeta := math.Sin(beta), math.Cos(beta)
	lat := math.Atan2(e3+epSq*WGS84SemiMinorAxisM*sinBeta*sinBeta*sinBeta,
		p-eSq*WGS84SemiMajorAxisM*cosBeta*cosBeta*cosBeta)
	lon := math.Atan2(e2, e1)

	sinLat := math.Sin(lat)
	v := WGS84SemiMajorAxisM / math.Sqrt(1.0-eSq*sinLat*sinLat)
	height := p*math.Cos(lat) + e3*sinLat - aSq/v

	return Geodetic{LatRad: lat, LonRad: lon, HeightM: height}
}

// NEDRotation builds the direction cosine matrix from ECEF to the
// north-east-down frame at the given geodetic position.
func NEDRotation(g Geodetic) *mat.Dense {
	sinPhi, cosPhi := math.Sin(g.LatRad), math.Cos(g.LatRad)
	sinLam, cosLam := math.Sin(g.LonRad), math.Cos(g.LonRad)

	return mat.NewDense(3, 3, []float64{
		-sinPhi * cosLam, -sinPhi * sinLam, cosPhi,
		-sinLam, cosLam, 0.0,
		-cosPhi * cosLam, -cosPhi * sinLam, -sinPhi,
	})
}

// AzEl resolves an ECEF line-of-sight vector into azimuth and elevation at
// the observer whose NED rotation is given.
func AzEl(dcmNE *mat.Dense, rECEF [3]float64) (azRad, elRad float64) {
	var rNED mat.VecDense
	rNED.MulVec(dcmNE, mat.NewVecDense(3, rECEF[:]))

	n, e, d := rNED.AtVec(0), rNED.AtVec(1), rNED.AtVec(2)
	rHorizontal := math.Hypot(n, e)
	return math.Atan2(e, n), math.Atan2(-d, rHorizontal)
}
