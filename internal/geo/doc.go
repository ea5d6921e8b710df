// Package geo provides the geodesic helpers used to match seismic events.
//
// Distances are computed on the WGS84 ellipsoid with Vincenty's inverse
// formula, falling back to a spherical great-circle distance for the nearly
// antipodal points where the iteration does not converge. Search boxes use the
// flat-earth kilometers-per-degree approximation of the strong-motion portal.
package geo
