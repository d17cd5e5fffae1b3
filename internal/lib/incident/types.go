package incident

import (
	"context"

	"github.com/lampmap/server/internal/clients/geocode"
)

// UnknownDistance marks a candidate whose distance could not be computed
const UnknownDistance = -1

// Interpretation is the structured reading of a free-text incident location
type Interpretation struct {
	InterpretedLocation string   `json:"interpreted_location"`
	AddressComponents   []string `json:"address_components"`
	Landmarks           []string `json:"landmarks"`
	Confidence          float64  `json:"confidence"`
}

// Candidate is one confidence-scored lamp for dispatch
type Candidate struct {
	LampID         string  `json:"lamp_id"`
	LampNumber     string  `json:"lamp_number,omitempty"`
	Latitude       float64 `json:"lat"`
	Longitude      float64 `json:"lng"`
	DistanceMeters float64 `json:"distance_meters"`
	Confidence     float64 `json:"confidence"`
}

// Assessment is the ranked candidate set with the overall report confidence
type Assessment struct {
	Candidates []Candidate `json:"candidates"`
	Confidence float64     `json:"confidence"`
}

// Geocoder is the forward-geocoding slice the scorer depends on; the geocode
// client satisfies it directly.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*geocode.Result, error)
}
