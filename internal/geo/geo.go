package geo

import "math"

const (
	// WGS84 ellipsoid.
	semiMajorAxis = 6378137.0
	flattening    = 1 / 298.257223563
	semiMinorAxis = (1 - flattening) * semiMajorAxis

	meanEarthRadius = 6371008.8

	maxIterations = 200
	convergence   = 1e-12
)

// DefaultKmPerDegree is the portal's flat-earth conversion factor.
const DefaultKmPerDegree = 111.1

// Distance returns the geodesic distance in meters between two points given
// in decimal degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	L := radians(lon2 - lon1)
	U1 := math.Atan((1 - flattening) * math.Tan(radians(lat1)))
	U2 := math.Atan((1 - flattening) * math.Tan(radians(lat2)))
	sinU1, cosU1 := math.Sincos(U1)
	sinU2, cosU2 := math.Sincos(U2)

	lambda := L
	var sinSigma, cosSigma, sigma, cos2Alpha, cos2SigmaM float64
	converged := false
	for i := 0; i < maxIterations; i++ {
		sinLambda, cosLambda := math.Sincos(lambda)
		sinSigma = math.Hypot(cosU2*sinLambda, cosU1*sinU2-sinU1*cosU2*cosLambda)
		if sinSigma == 0 {
			return 0
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)
		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cos2Alpha = 1 - sinAlpha*sinAlpha
		if cos2Alpha != 0 {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cos2Alpha
		} else {
			// equatorial line
			cos2SigmaM = 0
		}
		C := flattening / 16 * cos2Alpha * (4 + flattening*(4-3*cos2Alpha))
		prev := lambda
		lambda = L + (1-C)*flattening*sinAlpha*
			(sigma+C*sinSigma*(cos2SigmaM+C*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))
		if math.Abs(lambda-prev) < convergence {
			converged = true
			break
		}
	}
	if !converged {
		return Haversine(lat1, lon1, lat2, lon2)
	}

	uSq := cos2Alpha * (semiMajorAxis*semiMajorAxis - semiMinorAxis*semiMinorAxis) / (semiMinorAxis * semiMinorAxis)
	A := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	B := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := B * sinSigma * (cos2SigmaM + B/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
		B/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))

	return semiMinorAxis * A * (sigma - deltaSigma)
}

// DistanceKm is Distance converted to kilometers.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	return Distance(lat1, lon1, lat2, lon2) / 1000.0
}

// Haversine returns the great-circle distance in meters on a sphere of the
// mean earth radius.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1, phi2 := radians(lat1), radians(lat2)
	dPhi := phi2 - phi1
	dLambda := radians(lon2 - lon1)
	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * meanEarthRadius * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Box is a latitude/longitude bounding box in decimal degrees.
type Box struct {
	MinLat float64 `yaml:"min_lat" json:"min_lat"`
	MaxLat float64 `yaml:"max_lat" json:"max_lat"`
	MinLon float64 `yaml:"min_lon" json:"min_lon"`
	MaxLon float64 `yaml:"max_lon" json:"max_lon"`
}

// HalfWidth converts a radius in kilometers to degrees. kmPerDegree must be
// positive; config validation rejects anything else.
func HalfWidth(radiusKm, kmPerDegree float64) float64 {
	return radiusKm / kmPerDegree
}

// Around returns the square box of half-width radiusKm/kmPerDegree degrees
// centered on the point. The same half-width is used for both axes.
func Around(lat, lon, radiusKm, kmPerDegree float64) Box {
	d := HalfWidth(radiusKm, kmPerDegree)
	return Box{
		MinLat: lat - d,
		MaxLat: lat + d,
		MinLon: lon - d,
		MaxLon: lon + d,
	}
}

// Contains reports whether the point lies inside the box, edges included.
func (b Box) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Valid reports whether the box has non-inverted bounds.
func (b Box) Valid() bool {
	return b.MinLat <= b.MaxLat && b.MinLon <= b.MaxLon
}
