// Package gazetteer maintains the cached reference list of municipal street
// names and matches free-text input against it.
package gazetteer

import (
	"context"
	"time"

	"github.com/dpup/prefab/logging"

	"github.com/lampmap/server/internal/cache"
	"github.com/lampmap/server/internal/lib/streetname"
)

const (
	cacheKey   = "gazetteer:streets"
	defaultTTL = 24 * time.Hour
)

// fallbackStreets keeps matching alive when the source has never been
// reachable. A handful of major streets, not a substitute for the real list.
var fallbackStreets = []string{
	"Hlavná",
	"Mýtna",
	"Obchodná",
	"Ružinovská",
	"Studenohorská",
	"Vajnorská",
	"Záhradnícka",
}

// StreetEntry pairs a display street name with its canonical comparable form.
// Immutable once constructed.
type StreetEntry struct {
	Name       string `json:"name"`
	Normalized string `json:"normalized"`
}

// Source is the map-data backend the street snapshot is loaded from
type Source interface {
	FetchStreetNames(ctx context.Context) ([]string, error)
}

// Gazetteer owns the street snapshot cache and the matching logic
type Gazetteer struct {
	source    Source
	cache     *cache.Cache
	ttl       time.Duration
	suggester *Suggester
}

// New creates a gazetteer backed by the given source and cache. The suggester
// may be disabled (no API key); suggestion calls then return empty results.
func New(source Source, store *cache.Cache, ttl time.Duration, suggester *Suggester) *Gazetteer {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Gazetteer{
		source:    source,
		cache:     store,
		ttl:       ttl,
		suggester: suggester,
	}
}

// Streets returns the cached street snapshot, refreshing it when stale. On
// source failure the stale snapshot is served if present, else the hardcoded
// fallback list. Entries are deduplicated by normalized form.
func (g *Gazetteer) Streets(ctx context.Context) []StreetEntry {
	var cached []StreetEntry
	if found, err := g.cache.Get(cacheKey, &cached); err == nil && found {
		return cached
	}

	names, err := g.source.FetchStreetNames(ctx)
	if err != nil || len(names) == 0 {
		logging.Warnw(ctx, "Street list refresh failed, falling back",
			"error", err)

		var stale []StreetEntry
		if _, found, staleErr := g.cache.GetStale(cacheKey, &stale); staleErr == nil && found {
			return stale
		}
		return buildEntries(fallbackStreets)
	}

	entries := buildEntries(names)
	if err := g.cache.Set(cacheKey, entries, g.ttl, "gazetteer"); err != nil {
		logging.Warnw(ctx, "Failed to cache street snapshot", "error", err)
	}

	return entries
}

// Refresh forces a snapshot reload, used by the background warm-up loop. A
// failed reload leaves the previous snapshot in place.
func (g *Gazetteer) Refresh(ctx context.Context) {
	names, err := g.source.FetchStreetNames(ctx)
	if err != nil || len(names) == 0 {
		logging.Warnw(ctx, "Street list refresh failed, keeping previous snapshot",
			"error", err)
		return
	}
	if err := g.cache.Set(cacheKey, buildEntries(names), g.ttl, "gazetteer"); err != nil {
		logging.Warnw(ctx, "Failed to cache street snapshot", "error", err)
	}
}

// buildEntries normalizes and dedupes raw street names, preserving first
// occurrence order.
func buildEntries(names []string) []StreetEntry {
	seen := make(map[string]struct{}, len(names))
	entries := make([]StreetEntry, 0, len(names))
	for _, name := range names {
		normalized := streetname.NormalizeFolded(name)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		entries = append(entries, StreetEntry{Name: name, Normalized: normalized})
	}
	return entries
}
