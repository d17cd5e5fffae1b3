// Package services exposes the lamp search and incident report operations to
// the HTTP surface.
package services

import (
	"context"
	"strings"

	"github.com/dpup/prefab/logging"

	"github.com/lampmap/server/internal/lib/resolver"
)

// Resolver is the lamp resolution slice the services depend on
type Resolver interface {
	Resolve(ctx context.Context, street string, lat, lng *float64) (*resolver.SearchResult, error)
}

// SearchRequest is a lamp search by street name with optional coordinates
type SearchRequest struct {
	Street string   `json:"street"`
	Lat    *float64 `json:"lat,omitempty"`
	Lng    *float64 `json:"lng,omitempty"`
}

// SearchResponse carries the resolved lamps plus the schema and suggestion
// context the resolution produced.
type SearchResponse struct {
	Lamps                []resolver.LampRecord `json:"lamps"`
	SuggestedStreetNames []string              `json:"suggested_street_names,omitempty"`
	StreetFields         []string              `json:"street_fields"`
}

// LampsService handles lamp search requests
type LampsService struct {
	resolver Resolver
}

// NewLampsService creates a new lamps service
func NewLampsService(r Resolver) *LampsService {
	return &LampsService{resolver: r}
}

// Search resolves a street name to lamp records. An empty result is a valid
// response, not an error.
func (s *LampsService) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	street := strings.TrimSpace(req.Street)
	if street == "" {
		return nil, badRequestf("street is required")
	}
	if (req.Lat == nil) != (req.Lng == nil) {
		return nil, badRequestf("lat and lng must be provided together")
	}

	result, err := s.resolver.Resolve(ctx, street, req.Lat, req.Lng)
	if err != nil {
		return nil, err
	}
	if result.Lamps == nil {
		result.Lamps = []resolver.LampRecord{}
	}

	logging.Infow(ctx, "Lamp search completed",
		"street", street, "lamps", len(result.Lamps),
		"suggestions", len(result.SuggestedStreetNames))

	return &SearchResponse{
		Lamps:                result.Lamps,
		SuggestedStreetNames: result.SuggestedStreetNames,
		StreetFields:         result.FieldSchema.StreetFields,
	}, nil
}
