package main

import (
	"context"
	"log"
	"net/http"

	"github.com/dpup/prefab"

	"github.com/lampmap/server/internal/cache"
	"github.com/lampmap/server/internal/clients/arcgis"
	"github.com/lampmap/server/internal/clients/geocode"
	"github.com/lampmap/server/internal/clients/streetlist"
	"github.com/lampmap/server/internal/config"
	"github.com/lampmap/server/internal/lib/gazetteer"
	"github.com/lampmap/server/internal/lib/geo"
	"github.com/lampmap/server/internal/lib/incident"
	"github.com/lampmap/server/internal/lib/resolver"
	"github.com/lampmap/server/internal/lib/schema"
	"github.com/lampmap/server/internal/services"
)

func main() {
	appConfig := loadConfig()

	if appConfig.Lamps.LayerURL == "" {
		log.Fatal("lamps.layer_url is required in configuration")
	}

	cacheInstance := cache.NewCache()
	geoUtils := geo.NewGeoUtils()

	// Lamp feature layer transport and schema discovery
	arcgisClient := arcgis.NewClient(arcgis.Config{
		LayerURL:    appConfig.Lamps.LayerURL,
		Timeout:     appConfig.Lamps.Timeout,
		MaxRetries:  appConfig.Lamps.MaxRetries,
		BackoffBase: appConfig.Lamps.BackoffBase,
		PageSize:    appConfig.Lamps.PageSize,
	})
	discovery := schema.NewDiscovery(arcgisClient, cacheInstance, appConfig.Lamps.SchemaTTL)

	// Street gazetteer with optional AI-backed suggestions
	streetClient := streetlist.NewClient(streetlist.Config{
		BaseURL: appConfig.Streets.OverpassURL,
		Area:    appConfig.Streets.Area,
	})
	suggester := gazetteer.NewSuggester(appConfig.OpenAI.APIKey, appConfig.OpenAI.Model)
	streets := gazetteer.New(streetClient, cacheInstance, appConfig.Streets.GazetteerTTL, suggester)

	if suggester.Enabled() {
		log.Printf("AI street suggestion and incident interpretation enabled (model: %s)", appConfig.OpenAI.Model)
	} else {
		log.Printf("No OpenAI API key configured, running with gazetteer-only matching")
	}

	// Incident scoring
	geocoder := geocode.NewClient(geocode.Config{
		BaseURL:      appConfig.Streets.GeocoderURL,
		UserAgent:    appConfig.Streets.GeocoderAgent,
		CountryCodes: appConfig.Streets.CountryCodes,
	})
	interpreter := incident.NewInterpreter(appConfig.OpenAI.APIKey, appConfig.OpenAI.Model)
	scorer := incident.NewScorer(interpreter, geocoder, geoUtils)

	engine := resolver.NewEngine(arcgisClient, discovery, streets, geoUtils, resolver.Config{
		BufferRadiusMeters: appConfig.Lamps.BufferRadiusMeters,
	})

	lampsService := services.NewLampsService(engine)
	reportsService := services.NewReportsService(engine, scorer)

	log.Printf("Street lamp resolution server starting")
	log.Printf("Lamp layer: %s", appConfig.Lamps.LayerURL)
	log.Printf("Street area: %s", appConfig.Streets.Area)

	// Keep the gazetteer and schema caches warm in the background
	refresh := services.NewRefreshService(streets, discovery, appConfig.Streets.RefreshInterval)
	refresh.Start(context.Background())

	handlers := newAPIHandlers(lampsService, reportsService)

	server := prefab.New(
		prefab.WithHTTPHandlerFunc("/", homepageHandler),
		prefab.WithHTTPHandlerFunc("/api/v1/lamps/search", handlers.searchLamps),
		prefab.WithHTTPHandlerFunc("/api/v1/reports", handlers.createReport),
	)

	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// loadConfig loads configuration using Prefab's config system
// Configuration is loaded from prefab.yaml and environment variables with PF__ prefix
func loadConfig() *config.Config {
	appConfig := config.DefaultConfig()

	if err := prefab.Config.Unmarshal("lamps", &appConfig.Lamps); err != nil {
		log.Fatalf("Failed to unmarshal lamps section: %v", err)
	}
	if err := prefab.Config.Unmarshal("streets", &appConfig.Streets); err != nil {
		log.Fatalf("Failed to unmarshal streets section: %v", err)
	}
	if err := prefab.Config.Unmarshal("openai", &appConfig.OpenAI); err != nil {
		log.Fatalf("Failed to unmarshal openai section: %v", err)
	}

	return appConfig
}

// homepageHandler serves a simple HTML homepage at the server root
func homepageHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	html := `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>lampmap</title>
    <style>
        body {
            font-family: 'Courier New', Consolas, monospace;
            background: #000;
            color: #0f0;
            padding: 20px;
            line-height: 1.4;
        }
        a { color: #0ff; text-decoration: none; }
        a:hover { text-decoration: underline; }
        pre { margin: 0; }
        .header { color: #ff0; }
    </style>
</head>
<body>
<pre>
<span class="header">lampmap</span>

Street lamp resolution API. Finds the exact lamp behind a citizen's
description of a broken street light.

<span class="header">API Endpoints:</span>

  POST /api/v1/lamps/search   - Resolve a street name to lamp records
  POST /api/v1/reports        - File a damage report, get scored candidates

<span class="header">Example Usage:</span>
  curl -X POST /api/v1/lamps/search -d '{"street": "Studenohorská"}'
  curl -X POST /api/v1/reports -d '{"street": "Mýtna", "issue_description": "lampa nesvieti"}'
</pre>
</body>
</html>`

	if _, err := w.Write([]byte(html)); err != nil {
		log.Printf("Failed to write homepage HTML: %v", err)
	}
}
