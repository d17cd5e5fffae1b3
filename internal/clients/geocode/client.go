// Package geocode provides forward geocoding of free-text addresses through a
// Nominatim-compatible endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultBaseURL = "https://nominatim.openstreetmap.org"
	defaultTimeout = 10 * time.Second
)

// Config holds geocoder settings
type Config struct {
	BaseURL      string
	UserAgent    string
	CountryCodes string
	Timeout      time.Duration
}

// Result is a single geocoding hit
type Result struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
	Importance  float64
}

// Client provides access to a Nominatim-compatible search endpoint
type Client struct {
	baseURL      string
	userAgent    string
	countryCodes string
	httpClient   *http.Client
}

// NewClient creates a new geocoding client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		userAgent:    cfg.UserAgent,
		countryCodes: cfg.CountryCodes,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Geocode resolves a free-text address to coordinates. A query with no hits
// returns (nil, nil): absence of a result is not an error.
func (c *Client) Geocode(ctx context.Context, query string) (*Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	if c.countryCodes != "" {
		params.Set("countrycodes", c.countryCodes)
	}

	requestURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("geocoder rate limit exceeded")
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("geocoder error %d: %s", resp.StatusCode, string(body))
	}

	// Nominatim serializes lat/lon as strings
	var hits []struct {
		Lat         string  `json:"lat"`
		Lon         string  `json:"lon"`
		DisplayName string  `json:"display_name"`
		Importance  float64 `json:"importance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("failed to decode geocoder response: %w", err)
	}

	if len(hits) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(hits[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude in geocoder response: %w", err)
	}
	lon, err := strconv.ParseFloat(hits[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude in geocoder response: %w", err)
	}

	return &Result{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: hits[0].DisplayName,
		Importance:  hits[0].Importance,
	}, nil
}
