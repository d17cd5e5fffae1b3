package geo

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
)

// Earth's mean radius in meters
const earthRadius = 6371000

// geoUtils implements the GeoUtils interface
type geoUtils struct{}

// NewGeoUtils creates a new GeoUtils implementation
func NewGeoUtils() GeoUtils {
	return &geoUtils{}
}

// PointToPoint calculates great-circle distance between two points using Haversine formula
func (g *geoUtils) PointToPoint(p1, p2 Point) (float64, error) {
	if !isValidCoordinate(p1) || !isValidCoordinate(p2) {
		return 0, errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")
	}

	if p1.Latitude == p2.Latitude && p1.Longitude == p2.Longitude {
		return 0, nil
	}

	lat1 := p1.Latitude * math.Pi / 180
	lon1 := p1.Longitude * math.Pi / 180
	lat2 := p2.Latitude * math.Pi / 180
	lon2 := p2.Longitude * math.Pi / 180

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c, nil
}

// DistanceFromCoords calculates distance between two coordinate pairs
// Convenience method for raw latitude/longitude values
func (g *geoUtils) DistanceFromCoords(lat1, lon1, lat2, lon2 float64) (float64, error) {
	return g.PointToPoint(Point{Latitude: lat1, Longitude: lon1}, Point{Latitude: lat2, Longitude: lon2})
}

// BufferPolygon approximates a circle of radiusMeters around center as a closed
// numPoints-gon. Degree offsets use an equirectangular approximation, which is
// accurate enough for proximity queries at city scale.
func (g *geoUtils) BufferPolygon(center Point, radiusMeters float64, numPoints int) (orb.Polygon, error) {
	if !isValidCoordinate(center) {
		return nil, errors.New("invalid center point coordinates")
	}
	if radiusMeters <= 0 {
		return nil, errors.New("buffer radius must be positive")
	}
	if numPoints < 3 {
		return nil, errors.New("buffer polygon needs at least 3 points")
	}

	// Degrees of latitude per meter are constant; longitude degrees shrink
	// with cos(latitude).
	dLat := (radiusMeters / earthRadius) * (180 / math.Pi)
	dLon := dLat / math.Cos(center.Latitude*math.Pi/180)

	ring := make(orb.Ring, 0, numPoints+1)
	for i := 0; i < numPoints; i++ {
		angle := 2 * math.Pi * float64(i) / float64(numPoints)
		lon := center.Longitude + dLon*math.Cos(angle)
		lat := center.Latitude + dLat*math.Sin(angle)
		ring = append(ring, orb.Point{lon, lat})
	}
	// Close the ring
	ring = append(ring, ring[0])

	return orb.Polygon{ring}, nil
}

// RingCentroid returns the arithmetic mean of a ring's vertices. A closing
// vertex equal to the first is excluded so it is not counted twice.
func (g *geoUtils) RingCentroid(ring orb.Ring) (Point, error) {
	if len(ring) == 0 {
		return Point{}, errors.New("ring has no vertices")
	}

	vertices := ring
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		vertices = ring[:len(ring)-1]
	}

	var sumLon, sumLat float64
	for _, p := range vertices {
		sumLon += p.Lon()
		sumLat += p.Lat()
	}

	n := float64(len(vertices))
	return Point{Latitude: sumLat / n, Longitude: sumLon / n}, nil
}

// NewPoint creates a Point from latitude and longitude values with validation
func NewPoint(latitude, longitude float64) (Point, error) {
	point := Point{Latitude: latitude, Longitude: longitude}
	if !isValidCoordinate(point) {
		return Point{}, errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")
	}
	return point, nil
}

// isValidCoordinate validates latitude and longitude values
func isValidCoordinate(point Point) bool {
	return point.Latitude >= -90 && point.Latitude <= 90 &&
		point.Longitude >= -180 && point.Longitude <= 180
}
