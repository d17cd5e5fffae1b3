package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dpup/prefab/logging"

	"github.com/lampmap/server/internal/clients/arcgis"
	"github.com/lampmap/server/internal/services"
)

// Service slices the handlers need, so tests can fake them
type lampSearcher interface {
	Search(ctx context.Context, req services.SearchRequest) (*services.SearchResponse, error)
}

type reportCreator interface {
	Create(ctx context.Context, req services.CreateReportRequest) (*services.CreateReportResponse, error)
}

type apiHandlers struct {
	lamps   lampSearcher
	reports reportCreator
}

func newAPIHandlers(lamps lampSearcher, reports reportCreator) *apiHandlers {
	return &apiHandlers{lamps: lamps, reports: reports}
}

func (h *apiHandlers) searchLamps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req services.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.lamps.Search(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *apiHandlers) createReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req services.CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.reports.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, resp)
}

// writeServiceError maps service failures to HTTP statuses: caller mistakes
// and rejected queries are 400, everything else reached an upstream and
// failed, so 502.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var badReq *services.BadRequestError
	var validation *arcgis.ValidationError

	switch {
	case errors.As(err, &badReq):
		writeJSONError(w, http.StatusBadRequest, badReq.Message)
	case errors.As(err, &validation):
		writeJSONError(w, http.StatusBadRequest, validation.Message)
	default:
		logging.Errorw(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusBadGateway, "upstream data source unavailable")
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Errorw(r.Context(), "Failed to encode response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
