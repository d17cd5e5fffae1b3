package config

import (
	"time"
)

// Config represents the complete server configuration
type Config struct {
	Lamps   LampsConfig   `yaml:"lamps"`
	Streets StreetsConfig `yaml:"streets"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
}

// LampsConfig holds settings for the lamp feature layer backend
type LampsConfig struct {
	LayerURL           string        `yaml:"layer_url"`
	Timeout            time.Duration `yaml:"timeout"`
	MaxRetries         int           `yaml:"max_retries"`
	BackoffBase        time.Duration `yaml:"backoff_base"`
	PageSize           int           `yaml:"page_size"`
	SchemaTTL          time.Duration `yaml:"schema_ttl"`
	BufferRadiusMeters float64       `yaml:"buffer_radius_meters"`
}

// StreetsConfig holds the gazetteer and geocoding settings
type StreetsConfig struct {
	OverpassURL     string        `yaml:"overpass_url"`
	Area            string        `yaml:"area"`
	GazetteerTTL    time.Duration `yaml:"gazetteer_ttl"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	GeocoderURL   string `yaml:"geocoder_url"`
	GeocoderAgent string `yaml:"geocoder_agent"`
	CountryCodes  string `yaml:"country_codes"`
}

// OpenAIConfig holds the AI fallback settings. An empty API key disables
// street suggestion and incident interpretation; the service degrades to
// gazetteer-only matching and heuristic scoring.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Lamps: LampsConfig{
			Timeout:            30 * time.Second,
			MaxRetries:         2,
			BackoffBase:        500 * time.Millisecond,
			PageSize:           1000,
			SchemaTTL:          10 * time.Minute,
			BufferRadiusMeters: 150,
		},
		Streets: StreetsConfig{
			OverpassURL:     "https://overpass-api.de/api/interpreter",
			Area:            "Bratislava",
			GazetteerTTL:    24 * time.Hour,
			RefreshInterval: 6 * time.Hour,
			GeocoderURL:     "https://nominatim.openstreetmap.org",
			GeocoderAgent:   "lampmap-server/1.0",
			CountryCodes:    "sk",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
	}
}
