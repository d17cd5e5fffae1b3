// Package schema detects the street-name and lamp-identifier fields of the
// remote feature layer from its metadata.
package schema

import (
	"context"
	"strings"
	"time"

	"github.com/dpup/prefab/logging"

	"github.com/lampmap/server/internal/cache"
	"github.com/lampmap/server/internal/clients/arcgis"
)

const (
	cacheKey   = "schema:fields"
	defaultTTL = 600 * time.Second
)

// Substring patterns identifying street-name fields, in priority order
var streetFieldPatterns = []string{"ulica", "street", "nazov_ulice", "nazov", "cesta", "name"}

// Substring patterns identifying lamp-identifier fields, in priority order
var lampIDFieldPatterns = []string{"lamp", "stlp", "cislo", "number", "id", "svetlo", "svetelne"}

// FieldSchema is the discovered field layout of the lamp layer. Both field
// lists are always non-empty: hardcoded defaults fill in when discovery
// yields nothing.
type FieldSchema struct {
	StreetFields []string       `json:"street_fields"`
	LampIDFields []string       `json:"lamp_id_fields"`
	AllFields    []arcgis.Field `json:"all_fields"`
	DiscoveredAt time.Time      `json:"discovered_at"`
}

// MetadataFetcher is the slice of the transport client discovery depends on
type MetadataFetcher interface {
	LayerInfo(ctx context.Context) (*arcgis.LayerInfo, error)
}

// Discovery resolves and caches the field schema
type Discovery struct {
	fetcher MetadataFetcher
	cache   *cache.Cache
	ttl     time.Duration
}

// NewDiscovery creates a schema discovery component backed by the given cache
func NewDiscovery(fetcher MetadataFetcher, store *cache.Cache, ttl time.Duration) *Discovery {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Discovery{
		fetcher: fetcher,
		cache:   store,
		ttl:     ttl,
	}
}

// Discover returns the field schema, refreshing the cache when the TTL has
// passed or forceRefresh is set. It never fails: on fetch errors the last
// good cached schema is served, and absent that a hardcoded default. This
// keeps startup and request handling from ever blocking on metadata.
func (d *Discovery) Discover(ctx context.Context, forceRefresh bool) FieldSchema {
	if !forceRefresh {
		var cached FieldSchema
		if found, err := d.cache.Get(cacheKey, &cached); err == nil && found {
			return cached
		}
	}

	info, err := d.fetcher.LayerInfo(ctx)
	if err != nil {
		logging.Warnw(ctx, "Schema discovery fetch failed, falling back",
			"error", err)

		var stale FieldSchema
		if _, found, staleErr := d.cache.GetStale(cacheKey, &stale); staleErr == nil && found {
			return stale
		}
		return DefaultSchema()
	}

	discovered := classifyFields(info.Fields)
	if err := d.cache.Set(cacheKey, discovered, d.ttl, "schema"); err != nil {
		logging.Warnw(ctx, "Failed to cache discovered schema", "error", err)
	}

	return discovered
}

// DefaultSchema is the hardcoded fallback used when discovery has never
// succeeded.
func DefaultSchema() FieldSchema {
	return FieldSchema{
		StreetFields: []string{"ulica"},
		LampIDFields: []string{"OBJECTID"},
		DiscoveredAt: time.Now(),
	}
}

// classifyFields applies the pattern sets to the layer fields. Pattern-list
// order decides qualification order; each field qualifies at most once per
// category.
func classifyFields(fields []arcgis.Field) FieldSchema {
	var streetFields []string
	seenStreet := make(map[string]bool)
	for _, pattern := range streetFieldPatterns {
		for _, field := range fields {
			if seenStreet[field.Name] {
				continue
			}
			if !isStringType(field.Type) {
				continue
			}
			if matchesPattern(field, pattern) {
				streetFields = append(streetFields, field.Name)
				seenStreet[field.Name] = true
			}
		}
	}

	var lampIDFields []string
	seenLampID := make(map[string]bool)
	for _, pattern := range lampIDFieldPatterns {
		for _, field := range fields {
			if seenLampID[field.Name] {
				continue
			}
			// OBJECTID identifies the record, not the lamp number
			if isObjectIDField(field.Name) {
				continue
			}
			if matchesPattern(field, pattern) {
				lampIDFields = append(lampIDFields, field.Name)
				seenLampID[field.Name] = true
			}
		}
	}

	if len(streetFields) == 0 {
		streetFields = []string{"ulica"}
	}
	if len(lampIDFields) == 0 {
		lampIDFields = []string{"OBJECTID"}
	}

	return FieldSchema{
		StreetFields: streetFields,
		LampIDFields: lampIDFields,
		AllFields:    fields,
		DiscoveredAt: time.Now(),
	}
}

func matchesPattern(field arcgis.Field, pattern string) bool {
	return strings.Contains(strings.ToLower(field.Name), pattern) ||
		strings.Contains(strings.ToLower(field.Alias), pattern)
}

func isStringType(fieldType string) bool {
	return strings.Contains(strings.ToLower(fieldType), "string")
}

func isObjectIDField(name string) bool {
	lower := strings.ToLower(name)
	return lower == "objectid" || lower == "oid"
}
