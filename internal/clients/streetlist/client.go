// Package streetlist fetches the reference list of street names for the
// administrative area from an Overpass-compatible map-data endpoint.
package streetlist

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://overpass-api.de/api/interpreter"
	defaultTimeout = 60 * time.Second
)

// Config holds street-list source settings
type Config struct {
	BaseURL string
	// Area is the administrative area name, e.g. "Bratislava"
	Area    string
	Timeout time.Duration
}

// Client queries named streets within one administrative area
type Client struct {
	baseURL    string
	area       string
	httpClient *http.Client
}

// NewClient creates a new street-list client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		baseURL: cfg.BaseURL,
		area:    cfg.Area,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// FetchStreetNames returns the raw street names for the configured area. The
// endpoint responds with newline-delimited names; blank lines are dropped and
// names are returned in response order, duplicates included (the gazetteer
// dedupes by normalized form).
func (c *Client) FetchStreetNames(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`[out:csv(name;false)][timeout:50];area[name=%q][boundary=administrative];way(area)[highway][name];out;`, c.area)

	form := url.Values{}
	form.Set("data", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("street list source rate limit exceeded")
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("street list source error %d: %s", resp.StatusCode, string(body))
	}

	var names []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read street list: %w", err)
	}

	return names, nil
}
