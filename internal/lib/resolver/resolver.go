// Package resolver orchestrates schema discovery, street-name matching and
// the query transport into the cascading lamp resolution strategy.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/dpup/prefab/logging"
	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/lampmap/server/internal/clients/arcgis"
	"github.com/lampmap/server/internal/lib/geo"
	"github.com/lampmap/server/internal/lib/streetname"
)

const (
	defaultBufferRadiusMeters = 150
	defaultBufferPoints       = 32

	// Suggestions requested from the gazetteer vs actually retried
	maxSuggestions        = 3
	maxSuggestionAttempts = 2
)

// Config tunes the spatial stage of the cascade
type Config struct {
	BufferRadiusMeters float64
	BufferPoints       int
}

// Engine resolves street names (and optional coordinates) to lamp records
type Engine struct {
	querier   FeatureQuerier
	schemas   SchemaProvider
	suggester StreetSuggester
	geoUtils  geo.GeoUtils

	bufferRadius float64
	bufferPoints int
}

// NewEngine creates a resolution engine
func NewEngine(querier FeatureQuerier, schemas SchemaProvider, suggester StreetSuggester, geoUtils geo.GeoUtils, cfg Config) *Engine {
	if cfg.BufferRadiusMeters <= 0 {
		cfg.BufferRadiusMeters = defaultBufferRadiusMeters
	}
	if cfg.BufferPoints < 3 {
		cfg.BufferPoints = defaultBufferPoints
	}
	return &Engine{
		querier:      querier,
		schemas:      schemas,
		suggester:    suggester,
		geoUtils:     geoUtils,
		bufferRadius: cfg.BufferRadiusMeters,
		bufferPoints: cfg.BufferPoints,
	}
}

// strategy is one step of the cascade. Strategies run strictly in order;
// the first one yielding features terminates the cascade.
type strategy struct {
	name string
	run  func(ctx context.Context) ([]arcgis.Feature, error)
}

// Resolve runs the query cascade for a street name with optional coordinates.
// Zero matches is a valid outcome and returns an empty result with any
// suggestions that were attempted; only validation and exhausted transport
// failures surface as errors.
func (e *Engine) Resolve(ctx context.Context, street string, lat, lng *float64) (*SearchResult, error) {
	fieldSchema := e.schemas.Discover(ctx, false)
	normalized := streetname.Normalize(street)

	result := &SearchResult{FieldSchema: fieldSchema}

	strategies := []strategy{}

	if lat != nil && lng != nil {
		center := geo.Point{Latitude: *lat, Longitude: *lng}
		strategies = append(strategies, strategy{
			name: "spatial+attribute",
			run: func(ctx context.Context) ([]arcgis.Feature, error) {
				return e.spatialQuery(ctx, center, fieldSchema.StreetFields, normalized)
			},
		})
	}

	strategies = append(strategies, e.attributeStrategies(fieldSchema.StreetFields, normalized, "")...)

	// De-accented retry, only when folding changes the string and only once
	if folded := streetname.Fold(normalized); folded != normalized {
		strategies = append(strategies, e.attributeStrategies(fieldSchema.StreetFields, folded, "deaccented ")...)
	}

	for _, s := range strategies {
		features, err := s.run(ctx)
		if err != nil {
			return nil, err
		}
		if len(features) > 0 {
			logging.Infow(ctx, "Resolution strategy yielded features",
				"strategy", s.name, "count", len(features))
			result.Lamps = e.toLampRecords(ctx, features, fieldSchema.LampIDFields)
			return result, nil
		}
	}

	// Gazetteer-assisted fallback. The result carries the alternates actually
	// tried, not everything the suggester offered.
	attempts := e.suggester.SuggestStreetNames(ctx, street, maxSuggestions)
	if len(attempts) > maxSuggestionAttempts {
		attempts = attempts[:maxSuggestionAttempts]
	}
	result.SuggestedStreetNames = attempts
	for _, suggestion := range attempts {
		alt := streetname.Normalize(suggestion)
		for _, s := range e.attributeStrategies(fieldSchema.StreetFields, alt, "suggested ") {
			features, err := s.run(ctx)
			if err != nil {
				return nil, err
			}
			if len(features) > 0 {
				logging.Infow(ctx, "Suggested street name yielded features",
					"suggestion", suggestion, "count", len(features))
				result.Lamps = e.toLampRecords(ctx, features, fieldSchema.LampIDFields)
				return result, nil
			}
		}
	}

	return result, nil
}

// attributeStrategies builds the per-field sequence plus, when more than one
// street field exists, the combined-OR step.
func (e *Engine) attributeStrategies(streetFields []string, value, label string) []strategy {
	var strategies []strategy
	for _, field := range streetFields {
		field := field
		strategies = append(strategies, strategy{
			name: label + "per-field " + field,
			run: func(ctx context.Context) ([]arcgis.Feature, error) {
				return e.attributeQuery(ctx, likeFilter(field, value), "")
			},
		})
	}
	if len(streetFields) > 1 {
		strategies = append(strategies, strategy{
			name: label + "combined-or",
			run: func(ctx context.Context) ([]arcgis.Feature, error) {
				return e.attributeQuery(ctx, combinedFilter(streetFields, value), "")
			},
		})
	}
	return strategies
}

func (e *Engine) spatialQuery(ctx context.Context, center geo.Point, streetFields []string, value string) ([]arcgis.Feature, error) {
	polygon, err := e.geoUtils.BufferPolygon(center, e.bufferRadius, e.bufferPoints)
	if err != nil {
		return nil, fmt.Errorf("failed to build buffer polygon: %w", err)
	}
	geometry, err := arcgis.PolygonGeometry(polygon)
	if err != nil {
		return nil, err
	}
	return e.attributeQuery(ctx, combinedFilter(streetFields, value), geometry)
}

func (e *Engine) attributeQuery(ctx context.Context, where, geometry string) ([]arcgis.Feature, error) {
	return e.querier.QueryAll(ctx, func(offset int) (*arcgis.FeaturePage, error) {
		return e.querier.ExecuteQuery(ctx, arcgis.QueryParams{
			Where:          where,
			Geometry:       geometry,
			Offset:         offset,
			Limit:          e.querier.PageSize(),
			ReturnGeometry: true,
		})
	})
}

// likeFilter builds the case-insensitive substring predicate for one field
func likeFilter(field, value string) string {
	return fmt.Sprintf("UPPER(%s) LIKE UPPER('%%%s%%')", field, escapeLiteral(value))
}

// combinedFilter ORs the substring predicate across all street fields
func combinedFilter(fields []string, value string) string {
	predicates := make([]string, 0, len(fields))
	for _, field := range fields {
		predicates = append(predicates, likeFilter(field, value))
	}
	return strings.Join(predicates, " OR ")
}

// escapeLiteral doubles single quotes for the query predicate
func escapeLiteral(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

// toLampRecords transforms raw features into lamp records. Features without
// resolvable geometry are dropped with a warning.
func (e *Engine) toLampRecords(ctx context.Context, features []arcgis.Feature, lampIDFields []string) []LampRecord {
	records := make([]LampRecord, 0, len(features))
	for _, feature := range features {
		point, ok := e.featureCoords(ctx, feature)
		if !ok {
			continue
		}

		lampNumber := firstAttributeValue(feature.Attributes, lampIDFields)
		id := recordID(feature.Attributes, lampNumber)

		records = append(records, LampRecord{
			ID:         id,
			LampNumber: lampNumber,
			Latitude:   point.Latitude,
			Longitude:  point.Longitude,
			Attributes: feature.Attributes,
		})
	}
	return records
}

// featureCoords reduces geometry to a single coordinate pair: points are used
// directly, polygon-like shapes use the arithmetic centroid of the first ring.
func (e *Engine) featureCoords(ctx context.Context, feature arcgis.Feature) (geo.Point, bool) {
	g := feature.Geometry
	switch {
	case g.IsPoint():
		return geo.Point{Latitude: *g.Y, Longitude: *g.X}, true
	case g != nil && len(g.Rings) > 0 && len(g.Rings[0]) > 0:
		ring := make(orb.Ring, 0, len(g.Rings[0]))
		for _, coord := range g.Rings[0] {
			if len(coord) < 2 {
				continue
			}
			ring = append(ring, orb.Point{coord[0], coord[1]})
		}
		centroid, err := e.geoUtils.RingCentroid(ring)
		if err != nil {
			logging.Warnw(ctx, "Dropping feature with degenerate ring", "error", err)
			return geo.Point{}, false
		}
		return centroid, true
	default:
		logging.Warnw(ctx, "Dropping feature without resolvable geometry")
		return geo.Point{}, false
	}
}

// firstAttributeValue returns the first non-empty value among the given
// fields, matched case-insensitively against the attribute keys.
func firstAttributeValue(attributes map[string]arcgis.Value, fields []string) string {
	for _, field := range fields {
		for key, value := range attributes {
			if strings.EqualFold(key, field) && !value.IsEmpty() {
				return value.Display()
			}
		}
	}
	return ""
}

// recordID derives a stable identifier: the OBJECTID attribute when present,
// then the lamp number, then a generated placeholder.
func recordID(attributes map[string]arcgis.Value, lampNumber string) string {
	if oid := firstAttributeValue(attributes, []string{"OBJECTID", "OID"}); oid != "" {
		return oid
	}
	if lampNumber != "" {
		return lampNumber
	}
	// Non-deterministic across calls for the same feature; acceptable since
	// nothing downstream caches on it.
	return "lamp-" + uuid.NewString()
}
