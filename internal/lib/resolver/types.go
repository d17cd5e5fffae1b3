package resolver

import (
	"context"

	"github.com/lampmap/server/internal/clients/arcgis"
	"github.com/lampmap/server/internal/lib/schema"
)

// LampRecord is a single resolved street lamp. Coordinates are always
// present; features without resolvable geometry are dropped during the
// transform, never represented with null coordinates.
type LampRecord struct {
	ID         string                  `json:"id"`
	LampNumber string                  `json:"lamp_number,omitempty"`
	Latitude   float64                 `json:"lat"`
	Longitude  float64                 `json:"lng"`
	Attributes map[string]arcgis.Value `json:"attributes"`
}

// SearchResult is the outcome of one resolution request. Zero lamps is a
// valid outcome, with any alternates tried attached for caller guidance.
type SearchResult struct {
	Lamps                []LampRecord       `json:"lamps"`
	FieldSchema          schema.FieldSchema `json:"field_schema"`
	SuggestedStreetNames []string           `json:"suggested_street_names,omitempty"`
}

// FeatureQuerier is the transport slice the engine depends on
type FeatureQuerier interface {
	ExecuteQuery(ctx context.Context, params arcgis.QueryParams) (*arcgis.FeaturePage, error)
	QueryAll(ctx context.Context, fetch func(offset int) (*arcgis.FeaturePage, error)) ([]arcgis.Feature, error)
	PageSize() int
}

// SchemaProvider supplies the discovered field schema
type SchemaProvider interface {
	Discover(ctx context.Context, forceRefresh bool) schema.FieldSchema
}

// StreetSuggester supplies alternate street names for the fallback stage
type StreetSuggester interface {
	SuggestStreetNames(ctx context.Context, input string, max int) []string
}
