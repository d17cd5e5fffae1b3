package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dpup/prefab/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lampmap/server/internal/clients/arcgis"
	"github.com/lampmap/server/internal/lib/incident"
	"github.com/lampmap/server/internal/lib/resolver"
	"github.com/lampmap/server/internal/services"
)

type fakeSearcher struct {
	resp *services.SearchResponse
	err  error
}

func (f *fakeSearcher) Search(ctx context.Context, req services.SearchRequest) (*services.SearchResponse, error) {
	return f.resp, f.err
}

type fakeCreator struct {
	resp *services.CreateReportResponse
	err  error
}

func (f *fakeCreator) Create(ctx context.Context, req services.CreateReportRequest) (*services.CreateReportResponse, error) {
	return f.resp, f.err
}

func TestSearchLampsHandler(t *testing.T) {
	handlers := newAPIHandlers(&fakeSearcher{resp: &services.SearchResponse{
		Lamps: []resolver.LampRecord{{ID: "1", LampNumber: "SV-101", Latitude: 48.15, Longitude: 17.16}},
	}}, &fakeCreator{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/lamps/search",
		strings.NewReader(`{"street": "Ružinovská"}`))
	req = req.WithContext(logging.EnsureLogger(req.Context()))
	rec := httptest.NewRecorder()
	handlers.searchLamps(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var resp services.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Lamps, 1)
	assert.Equal(t, "SV-101", resp.Lamps[0].LampNumber)
}

func TestSearchLampsHandler_MethodNotAllowed(t *testing.T) {
	handlers := newAPIHandlers(&fakeSearcher{}, &fakeCreator{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lamps/search", nil)
	req = req.WithContext(logging.EnsureLogger(req.Context()))
	rec := httptest.NewRecorder()
	handlers.searchLamps(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSearchLampsHandler_MalformedBody(t *testing.T) {
	handlers := newAPIHandlers(&fakeSearcher{}, &fakeCreator{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/lamps/search",
		strings.NewReader(`{"street": `))
	req = req.WithContext(logging.EnsureLogger(req.Context()))
	rec := httptest.NewRecorder()
	handlers.searchLamps(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchLampsHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "bad request from service",
			err:        &services.BadRequestError{Message: "street is required"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "rejected query",
			err:        &arcgis.ValidationError{Code: 400, Message: "invalid where clause"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "exhausted transport",
			err:        errors.New("query failed after 3 attempts: connection refused"),
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlers := newAPIHandlers(&fakeSearcher{err: tt.err}, &fakeCreator{})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/lamps/search",
				strings.NewReader(`{"street": "Mýtna"}`))
			req = req.WithContext(logging.EnsureLogger(req.Context()))
			rec := httptest.NewRecorder()
			handlers.searchLamps(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestCreateReportHandler(t *testing.T) {
	handlers := newAPIHandlers(&fakeSearcher{}, &fakeCreator{resp: &services.CreateReportResponse{
		ReportID:   "8b6f5a0e-0000-0000-0000-000000000000",
		Street:     "Ružinovská",
		Priority:   incident.PriorityHigh,
		Confidence: 0.8,
		Candidates: []incident.Candidate{{LampID: "1", Confidence: 0.8, DistanceMeters: 10}},
	}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports",
		strings.NewReader(`{"street": "Ružinovská", "issue_description": "stĺp je vyvrátený"}`))
	req = req.WithContext(logging.EnsureLogger(req.Context()))
	rec := httptest.NewRecorder()
	handlers.createReport(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp services.CreateReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, incident.PriorityHigh, resp.Priority)
	require.Len(t, resp.Candidates, 1)
}

func TestHomepageHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logging.EnsureLogger(req.Context()))
	rec := httptest.NewRecorder()
	homepageHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lampmap")

	// Anything but the exact root is not ours
	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	req = req.WithContext(logging.EnsureLogger(req.Context()))
	rec = httptest.NewRecorder()
	homepageHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
