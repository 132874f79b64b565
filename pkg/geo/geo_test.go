package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestECEFToGeodeticEquator(t *testing.T) {
	g := ECEFToGeodetic(WGS84SemiMajorAxisM, 0, 0)
	assert.InDelta(t, 0.0, g.LatRad, 1e-9)
	assert.InDelta(t, 0.0, g.LonRad, 1e-9)
	assert.InDelta(t, 0.0, g.HeightM, 1e-3)
}

func TestECEFToGeodeticLongitude(t *testing.T) {
	g := ECEFToGeodetic(0, WGS84SemiMajorAxisM, 0)
	assert.InDelta(t, math.Pi/2.0, g.LonRad, 1e-9)
}

func TestECEFToGeodeticAltitude(t *testing.T) {
	const alt = 1234.5
	g := ECEFToGeodetic(WGS84SemiMajorAxisM+alt, 0, 0)
	assert.InDelta(t, alt, g.HeightM, 1e-3)
}

func TestECEFToGeodeticMidLatitude(t *testing.T) {
	// Build an ECEF point from known geodetic coordinates and invert it
	lat, lon := 40.0*math.Pi/180.0, -105.0*math.Pi/180.0

	aSq := WGS84SemiMajorAxisM * WGS84SemiMajorAxisM
	bSq := WGS84SemiMinorAxisM * WGS84SemiMinorAxisM
	eSq := (aSq - bSq) / aSq
	n := WGS84SemiMajorAxisM / math.Sqrt(1.0-eSq*math.Sin(lat)*math.Sin(lat))

	x := n * math.Cos(lat) * math.Cos(lon)
	y := n * math.Cos(lat) * math.Sin(lon)
	z := n * (1.0 - eSq) * math.Sin(lat)

	g := ECEFToGeodetic(x, y, z)
	assert.InDelta(t, lat, g.LatRad, 1e-6)
	assert.InDelta(t, lon, g.LonRad, 1e-9)
	assert.InDelta(t, 0.0, g.HeightM, 1.0)
}

func TestNEDRotationOrthonormal(t *testing.T) {
	g := Geodetic{LatRad: 0.7, LonRad: -1.9}
	dcm := NEDRotation(g)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var dot float64
			for k := 0; k < 3; k++ {
				dot += dcm.At(i, k) * dcm.At(j, k)
			}
			if i == j {
				assert.InDelta(t, 1.0, dot, 1e-12)
			} else {
				assert.InDelta(t, 0.0, dot, 1e-12)
			}
		}
	}
}

func TestAzElOverhead(t *testing.T) {
	// At the north pole, straight up is +z
	g := ECEFToGeodetic(0, 0, WGS84SemiMinorAxisM)
	az, el := AzEl(NEDRotation(g), [3]float64{0, 0, 1000.0})
	_ = az // azimuth is undefined straight overhead
	assert.InDelta(t, math.Pi/2.0, el, 1e-6)
}

func TestAzElDueEast(t *testing.T) {
	// At lat 0, lon 0, the +y axis points due east on the horizon
	g := Geodetic{LatRad: 0, LonRad: 0}
	az, el := AzEl(NEDRotation(g), [3]float64{0, 1000.0, 0})
	assert.InDelta(t, math.Pi/2.0, az, 1e-9)
	assert.InDelta(t, 0.0, el, 1e-9)
}
