package services

import (
	"context"
	"strings"
	"time"

	"github.com/dpup/prefab/logging"
	"github.com/google/uuid"

	"github.com/lampmap/server/internal/lib/incident"
	"github.com/lampmap/server/internal/lib/resolver"
)

// Assessor scores resolved lamps against a report's location details
type Assessor interface {
	Assess(ctx context.Context, street, description string, lamps []resolver.LampRecord) incident.Assessment
}

// CreateReportRequest is a citizen report about a broken lamp
type CreateReportRequest struct {
	Street              string `json:"street"`
	LocationDescription string `json:"location_description"`
	IssueDescription    string `json:"issue_description"`
}

// CreateReportResponse is the registered report with its dispatch candidates
type CreateReportResponse struct {
	ReportID             string               `json:"report_id"`
	Street               string               `json:"street"`
	Priority             string               `json:"priority"`
	Confidence           float64              `json:"confidence"`
	Candidates           []incident.Candidate `json:"candidates"`
	SuggestedStreetNames []string             `json:"suggested_street_names,omitempty"`
	CreatedAt            time.Time            `json:"created_at"`
}

// ReportsService turns incident reports into scored dispatch candidates
type ReportsService struct {
	resolver Resolver
	assessor Assessor
}

// NewReportsService creates a new reports service
func NewReportsService(r Resolver, a Assessor) *ReportsService {
	return &ReportsService{resolver: r, assessor: a}
}

// Create registers a report: resolves the street's lamps, scores them against
// the location description and derives the dispatch priority. A street with no
// resolvable lamps still produces a report, with an empty candidate list.
func (s *ReportsService) Create(ctx context.Context, req CreateReportRequest) (*CreateReportResponse, error) {
	street := strings.TrimSpace(req.Street)
	if street == "" {
		return nil, badRequestf("street is required")
	}
	issue := strings.TrimSpace(req.IssueDescription)
	if issue == "" {
		return nil, badRequestf("issue_description is required")
	}

	result, err := s.resolver.Resolve(ctx, street, nil, nil)
	if err != nil {
		return nil, err
	}

	assessment := s.assessor.Assess(ctx, street, req.LocationDescription, result.Lamps)
	if assessment.Candidates == nil {
		assessment.Candidates = []incident.Candidate{}
	}

	response := &CreateReportResponse{
		ReportID:             uuid.NewString(),
		Street:               street,
		Priority:             incident.DerivePriority(issue),
		Confidence:           assessment.Confidence,
		Candidates:           assessment.Candidates,
		SuggestedStreetNames: result.SuggestedStreetNames,
		CreatedAt:            time.Now().UTC(),
	}

	logging.Infow(ctx, "Incident report created",
		"report_id", response.ReportID, "street", street,
		"priority", response.Priority, "candidates", len(response.Candidates),
		"confidence", response.Confidence)

	return response, nil
}
