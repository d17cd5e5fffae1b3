package geo

import "github.com/paulmach/orb"

// Point represents a geographic coordinate
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// GeoUtils interface defines geographic calculation utilities
type GeoUtils interface {
	// Calculate great-circle distance between two points in meters
	PointToPoint(p1, p2 Point) (float64, error)

	// Calculate distance between coordinate pairs (convenience method)
	DistanceFromCoords(lat1, lon1, lat2, lon2 float64) (float64, error)

	// Build an approximate circular polygon around a center point
	BufferPolygon(center Point, radiusMeters float64, numPoints int) (orb.Polygon, error)

	// Arithmetic centroid of a polygon ring
	RingCentroid(ring orb.Ring) (Point, error)
}

// NewGeoUtils is implemented in geo.go
