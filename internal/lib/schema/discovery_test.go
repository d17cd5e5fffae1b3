package schema

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dpup/prefab/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lampmap/server/internal/cache"
	"github.com/lampmap/server/internal/clients/arcgis"
)

type fakeFetcher struct {
	info  *arcgis.LayerInfo
	err   error
	calls int
}

func (f *fakeFetcher) LayerInfo(ctx context.Context) (*arcgis.LayerInfo, error) {
	f.calls++
	return f.info, f.err
}

func lampLayerInfo() *arcgis.LayerInfo {
	return &arcgis.LayerInfo{
		Name: "VerejneOsvetlenie",
		Fields: []arcgis.Field{
			{Name: "OBJECTID", Type: "esriFieldTypeOID", Alias: "OBJECTID"},
			{Name: "ulica", Type: "esriFieldTypeString", Alias: "Ulica"},
			{Name: "nazov_ulice", Type: "esriFieldTypeString", Alias: "Názov ulice"},
			{Name: "cislo_stlpu", Type: "esriFieldTypeString", Alias: "Číslo stĺpu"},
			{Name: "vykon", Type: "esriFieldTypeDouble", Alias: "Výkon svietidla"},
			{Name: "poznamka", Type: "esriFieldTypeString", Alias: "Poznámka"},
		},
	}
}

func TestDiscover_ClassifiesFields(t *testing.T) {
	fetcher := &fakeFetcher{info: lampLayerInfo()}
	d := NewDiscovery(fetcher, cache.NewCache(), time.Minute)

	fs := d.Discover(logging.EnsureLogger(context.Background()), false)

	// ulica qualifies on the first pattern, nazov_ulice also contains it
	assert.Equal(t, []string{"ulica", "nazov_ulice"}, fs.StreetFields)
	// cislo_stlpu matches both stlp and cislo but is listed once;
	// OBJECTID is excluded from the lamp-id category despite the id pattern
	assert.Equal(t, []string{"cislo_stlpu"}, fs.LampIDFields)
	assert.Len(t, fs.AllFields, 6)
	assert.False(t, fs.DiscoveredAt.IsZero())
}

func TestDiscover_NonStringFieldsNeverQualifyAsStreet(t *testing.T) {
	fetcher := &fakeFetcher{info: &arcgis.LayerInfo{
		Fields: []arcgis.Field{
			{Name: "street_code", Type: "esriFieldTypeInteger"},
		},
	}}
	d := NewDiscovery(fetcher, cache.NewCache(), time.Minute)

	fs := d.Discover(logging.EnsureLogger(context.Background()), false)

	assert.Equal(t, []string{"ulica"}, fs.StreetFields, "should fall back to the default street field")
}

func TestDiscover_AliasMatch(t *testing.T) {
	fetcher := &fakeFetcher{info: &arcgis.LayerInfo{
		Fields: []arcgis.Field{
			{Name: "F_17", Type: "esriFieldTypeString", Alias: "Nazov ulice"},
			{Name: "F_9", Type: "esriFieldTypeString", Alias: "Svetelne miesto"},
		},
	}}
	d := NewDiscovery(fetcher, cache.NewCache(), time.Minute)

	fs := d.Discover(logging.EnsureLogger(context.Background()), false)

	assert.Equal(t, []string{"F_17"}, fs.StreetFields)
	assert.Equal(t, []string{"F_9"}, fs.LampIDFields)
}

func TestDiscover_UsesCacheWithinTTL(t *testing.T) {
	fetcher := &fakeFetcher{info: lampLayerInfo()}
	d := NewDiscovery(fetcher, cache.NewCache(), time.Minute)

	d.Discover(logging.EnsureLogger(context.Background()), false)
	d.Discover(logging.EnsureLogger(context.Background()), false)

	assert.Equal(t, 1, fetcher.calls, "second call within TTL should be served from cache")
}

func TestDiscover_ForceRefreshBypassesCache(t *testing.T) {
	fetcher := &fakeFetcher{info: lampLayerInfo()}
	d := NewDiscovery(fetcher, cache.NewCache(), time.Minute)

	d.Discover(logging.EnsureLogger(context.Background()), false)
	d.Discover(logging.EnsureLogger(context.Background()), true)

	assert.Equal(t, 2, fetcher.calls)
}

func TestDiscover_FetchFailureServesStaleCache(t *testing.T) {
	fetcher := &fakeFetcher{info: lampLayerInfo()}
	store := cache.NewCache()
	d := NewDiscovery(fetcher, store, time.Minute)

	first := d.Discover(logging.EnsureLogger(context.Background()), false)
	require.Equal(t, []string{"ulica", "nazov_ulice"}, first.StreetFields)

	fetcher.err = errors.New("service unavailable")
	fetcher.info = nil

	second := d.Discover(logging.EnsureLogger(context.Background()), true)
	assert.Equal(t, first.StreetFields, second.StreetFields, "stale cache preferred over hardcoded default")
}

func TestDiscover_FetchFailureWithoutCacheReturnsDefault(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("service unavailable")}
	d := NewDiscovery(fetcher, cache.NewCache(), time.Minute)

	fs := d.Discover(logging.EnsureLogger(context.Background()), false)

	assert.Equal(t, []string{"ulica"}, fs.StreetFields)
	assert.Equal(t, []string{"OBJECTID"}, fs.LampIDFields)
}
