// Package arcgis implements the retried, paginated query transport against an
// ArcGIS-style FeatureServer layer.
package arcgis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dpup/prefab/logging"
	"github.com/paulmach/orb"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxRetries  = 2
	defaultBackoffBase = 500 * time.Millisecond
	defaultPageSize    = 1000

	// Hard ceiling on accumulated features per QueryAll call. A guard
	// against runaway pagination from misbehaving servers; hitting it is
	// logged, not an error.
	maxTotalFeatures = 5000
)

// Config holds the transport settings for a feature-layer client
type Config struct {
	LayerURL    string
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	PageSize    int
}

// Client provides access to a single ArcGIS FeatureServer layer
type Client struct {
	layerURL    string
	httpClient  *http.Client
	maxRetries  int
	backoffBase time.Duration
	pageSize    int

	// injectable for tests
	sleep func(time.Duration)
}

// NewClient creates a new feature-layer client, filling zero config values
// with defaults.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}

	return &Client{
		layerURL:    strings.TrimRight(cfg.LayerURL, "/"),
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.BackoffBase,
		pageSize:    cfg.PageSize,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		sleep: time.Sleep,
	}
}

// PageSize returns the configured max record count per page
func (c *Client) PageSize() int {
	return c.pageSize
}

// ExecuteQuery runs a single feature query with the retry policy applied
func (c *Client) ExecuteQuery(ctx context.Context, params QueryParams) (*FeaturePage, error) {
	var page *FeaturePage
	err := c.withRetry(ctx, func() error {
		var err error
		page, err = c.executeQueryOnce(ctx, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// QueryAll repeatedly invokes fetch with increasing offsets while the page
// indicates more data may exist (explicit transfer-limit flag or a full page),
// accumulating features up to the safety ceiling.
func (c *Client) QueryAll(ctx context.Context, fetch func(offset int) (*FeaturePage, error)) ([]Feature, error) {
	var all []Feature
	offset := 0

	for {
		page, err := fetch(offset)
		if err != nil {
			return nil, err
		}
		if page == nil || len(page.Features) == 0 {
			break
		}

		all = append(all, page.Features...)

		if len(all) >= maxTotalFeatures {
			logging.Warnw(ctx, "Pagination safety ceiling reached, stopping",
				"accumulated", len(all), "ceiling", maxTotalFeatures)
			all = all[:maxTotalFeatures]
			break
		}

		morePages := page.ExceededTransferLimit || len(page.Features) >= c.pageSize
		if !morePages {
			break
		}
		offset += len(page.Features)
	}

	return all, nil
}

// LayerInfo fetches the layer metadata (fields with name, type, alias)
func (c *Client) LayerInfo(ctx context.Context) (*LayerInfo, error) {
	var info *LayerInfo
	err := c.withRetry(ctx, func() error {
		var err error
		info, err = c.layerInfoOnce(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// withRetry applies exponential backoff: delay = base * 2^(attempt-1).
// Validation failures surface immediately since retrying a malformed query
// cannot succeed; transient failures exhaust all retries and the final error
// wraps the last underlying one.
func (c *Client) withRetry(ctx context.Context, attempt func() error) error {
	var lastErr error
	attempts := c.maxRetries + 1

	for i := 0; i < attempts; i++ {
		if i > 0 {
			delay := c.backoffBase * time.Duration(1<<(i-1))
			c.sleep(delay)
		}

		err := attempt()
		if err == nil {
			return nil
		}

		var ve *ValidationError
		if errors.As(err, &ve) {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("query cancelled: %w", ctx.Err())
		}
		lastErr = err
	}

	return fmt.Errorf("query failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) executeQueryOnce(ctx context.Context, params QueryParams) (*FeaturePage, error) {
	form := url.Values{}
	form.Set("f", "json")
	form.Set("outFields", orDefault(params.OutFields, "*"))
	form.Set("returnGeometry", strconv.FormatBool(params.ReturnGeometry))
	form.Set("outSR", "4326")

	if params.Where != "" {
		form.Set("where", params.Where)
	}
	if params.Geometry != "" {
		form.Set("geometry", params.Geometry)
		form.Set("geometryType", orDefault(params.GeometryType, "esriGeometryPolygon"))
		form.Set("spatialRel", orDefault(params.SpatialRel, "esriSpatialRelIntersects"))
		form.Set("inSR", "4326")
	}
	if params.Offset > 0 {
		form.Set("resultOffset", strconv.Itoa(params.Offset))
	}
	limit := params.Limit
	if limit <= 0 {
		limit = c.pageSize
	}
	form.Set("resultRecordCount", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.layerURL+"/query",
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

	if resp.StatusCode == http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		return nil, &ValidationError{Code: resp.StatusCode, Message: string(body)}
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("feature service error %d: %s", resp.StatusCode, string(body))
	}

	var envelope struct {
		Features              []Feature     `json:"features"`
		ExceededTransferLimit bool          `json:"exceededTransferLimit"`
		Error                 *serviceError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// ArcGIS reports many failures as HTTP 200 with an embedded error object
	if envelope.Error != nil {
		return nil, envelope.Error.classify()
	}

	return &FeaturePage{
		Features:              envelope.Features,
		ExceededTransferLimit: envelope.ExceededTransferLimit,
	}, nil
}

func (c *Client) layerInfoOnce(ctx context.Context) (*LayerInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.layerURL+"?f=json", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("layer metadata error %d: %s", resp.StatusCode, string(body))
	}

	var envelope struct {
		LayerInfo
		Error *serviceError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode layer metadata: %w", err)
	}
	if envelope.Error != nil {
		return nil, envelope.Error.classify()
	}

	return &envelope.LayerInfo, nil
}

// serviceError is the embedded error object ArcGIS returns inside a 200 body
type serviceError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func (e *serviceError) classify() error {
	msg := e.Message
	if len(e.Details) > 0 {
		msg = msg + ": " + strings.Join(e.Details, "; ")
	}
	if e.Code == 400 {
		return &ValidationError{Code: e.Code, Message: msg}
	}
	return fmt.Errorf("feature service error %d: %s", e.Code, msg)
}

// PolygonGeometry renders an orb polygon as the ArcGIS JSON geometry parameter
func PolygonGeometry(polygon orb.Polygon) (string, error) {
	rings := make([][][]float64, 0, len(polygon))
	for _, ring := range polygon {
		coords := make([][]float64, 0, len(ring))
		for _, p := range ring {
			coords = append(coords, []float64{p.Lon(), p.Lat()})
		}
		rings = append(rings, coords)
	}

	payload := map[string]interface{}{
		"rings":            rings,
		"spatialReference": map[string]int{"wkid": 4326},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal polygon geometry: %w", err)
	}
	return string(data), nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
