package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dpup/prefab/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lampmap/server/internal/lib/incident"
	"github.com/lampmap/server/internal/lib/resolver"
	"github.com/lampmap/server/internal/lib/schema"
)

type fakeResolver struct {
	result *resolver.SearchResult
	err    error

	lastStreet string
	lastLat    *float64
	lastLng    *float64
}

func (f *fakeResolver) Resolve(ctx context.Context, street string, lat, lng *float64) (*resolver.SearchResult, error) {
	f.lastStreet = street
	f.lastLat = lat
	f.lastLng = lng
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeAssessor struct {
	assessment incident.Assessment
	lastStreet string
	lastDesc   string
	lampCount  int
}

func (f *fakeAssessor) Assess(ctx context.Context, street, description string, lamps []resolver.LampRecord) incident.Assessment {
	f.lastStreet = street
	f.lastDesc = description
	f.lampCount = len(lamps)
	return f.assessment
}

func searchResult(lamps ...resolver.LampRecord) *resolver.SearchResult {
	return &resolver.SearchResult{
		Lamps:       lamps,
		FieldSchema: schema.FieldSchema{StreetFields: []string{"ulica"}},
	}
}

func TestLampsSearch(t *testing.T) {
	lamp := resolver.LampRecord{ID: "1", LampNumber: "SV-101", Latitude: 48.15, Longitude: 17.16}
	fake := &fakeResolver{result: searchResult(lamp)}
	service := NewLampsService(fake)

	resp, err := service.Search(logging.EnsureLogger(context.Background()), SearchRequest{Street: "  Ružinovská  "})
	require.NoError(t, err)

	assert.Equal(t, "Ružinovská", fake.lastStreet, "input is trimmed before resolution")
	require.Len(t, resp.Lamps, 1)
	assert.Equal(t, "SV-101", resp.Lamps[0].LampNumber)
	assert.Equal(t, []string{"ulica"}, resp.StreetFields)
}

func TestLampsSearch_EmptyStreet(t *testing.T) {
	service := NewLampsService(&fakeResolver{})

	_, err := service.Search(logging.EnsureLogger(context.Background()), SearchRequest{Street: "   "})
	require.Error(t, err)

	var badReq *BadRequestError
	assert.ErrorAs(t, err, &badReq)
}

func TestLampsSearch_MismatchedCoordinates(t *testing.T) {
	service := NewLampsService(&fakeResolver{})
	lat := 48.15

	_, err := service.Search(logging.EnsureLogger(context.Background()), SearchRequest{Street: "Mýtna", Lat: &lat})
	require.Error(t, err)

	var badReq *BadRequestError
	assert.ErrorAs(t, err, &badReq)
}

func TestLampsSearch_EmptyResultIsValid(t *testing.T) {
	fake := &fakeResolver{result: &resolver.SearchResult{
		SuggestedStreetNames: []string{"Mýtna"},
	}}
	service := NewLampsService(fake)

	resp, err := service.Search(logging.EnsureLogger(context.Background()), SearchRequest{Street: "Mitna"})
	require.NoError(t, err)
	assert.NotNil(t, resp.Lamps)
	assert.Empty(t, resp.Lamps)
	assert.Equal(t, []string{"Mýtna"}, resp.SuggestedStreetNames)
}

func TestLampsSearch_ResolverErrorPropagates(t *testing.T) {
	fake := &fakeResolver{err: errors.New("query failed after 3 attempts")}
	service := NewLampsService(fake)

	_, err := service.Search(logging.EnsureLogger(context.Background()), SearchRequest{Street: "Ružinovská"})
	assert.Error(t, err)
}

func TestReportsCreate(t *testing.T) {
	lamp := resolver.LampRecord{ID: "1", LampNumber: "SV-101", Latitude: 48.15, Longitude: 17.16}
	fakeRes := &fakeResolver{result: searchResult(lamp)}
	fakeAss := &fakeAssessor{assessment: incident.Assessment{
		Candidates: []incident.Candidate{{LampID: "1", LampNumber: "SV-101", Confidence: 0.8, DistanceMeters: 10}},
		Confidence: 0.8,
	}}
	service := NewReportsService(fakeRes, fakeAss)

	resp, err := service.Create(logging.EnsureLogger(context.Background()), CreateReportRequest{
		Street:              "Ružinovská",
		LocationDescription: "pred číslom 14",
		IssueDescription:    "stĺp je vyvrátený",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ReportID)
	assert.Equal(t, incident.PriorityHigh, resp.Priority)
	assert.InDelta(t, 0.8, resp.Confidence, 1e-9)
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "pred číslom 14", fakeAss.lastDesc)
	assert.Equal(t, 1, fakeAss.lampCount)
	assert.False(t, resp.CreatedAt.IsZero())
}

func TestReportsCreate_Validation(t *testing.T) {
	service := NewReportsService(&fakeResolver{}, &fakeAssessor{})

	var badReq *BadRequestError

	_, err := service.Create(logging.EnsureLogger(context.Background()), CreateReportRequest{IssueDescription: "nesvieti"})
	require.Error(t, err)
	assert.ErrorAs(t, err, &badReq)

	_, err = service.Create(logging.EnsureLogger(context.Background()), CreateReportRequest{Street: "Mýtna"})
	require.Error(t, err)
	assert.ErrorAs(t, err, &badReq)
}

func TestReportsCreate_NoLampsStillReports(t *testing.T) {
	fakeRes := &fakeResolver{result: &resolver.SearchResult{
		SuggestedStreetNames: []string{"Mýtna"},
	}}
	fakeAss := &fakeAssessor{assessment: incident.Assessment{}}
	service := NewReportsService(fakeRes, fakeAss)

	resp, err := service.Create(logging.EnsureLogger(context.Background()), CreateReportRequest{
		Street:           "Mitna",
		IssueDescription: "lampa nesvieti",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ReportID)
	assert.NotNil(t, resp.Candidates)
	assert.Empty(t, resp.Candidates)
	assert.Equal(t, incident.PriorityLow, resp.Priority)
	assert.Equal(t, []string{"Mýtna"}, resp.SuggestedStreetNames)
}

type countingRefresher struct {
	mu    sync.Mutex
	count int
}

func (c *countingRefresher) Refresh(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}

func (c *countingRefresher) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

type countingDiscoverer struct {
	mu    sync.Mutex
	count int
}

func (c *countingDiscoverer) Discover(ctx context.Context, forceRefresh bool) schema.FieldSchema {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return schema.DefaultSchema()
}

func TestRefreshService_WarmsOnStart(t *testing.T) {
	gaz := &countingRefresher{}
	disc := &countingDiscoverer{}
	service := NewRefreshService(gaz, disc, time.Hour)

	service.Start(logging.EnsureLogger(context.Background()))
	defer service.Stop()

	require.Eventually(t, func() bool {
		return gaz.calls() >= 1
	}, time.Second, 10*time.Millisecond, "initial warm-up refresh runs immediately")
	assert.True(t, service.IsRunning())

	// Second start is a no-op
	service.Start(logging.EnsureLogger(context.Background()))
	assert.True(t, service.IsRunning())
}

func TestRefreshService_Stop(t *testing.T) {
	service := NewRefreshService(&countingRefresher{}, &countingDiscoverer{}, time.Hour)
	service.Start(logging.EnsureLogger(context.Background()))
	service.Stop()
	assert.False(t, service.IsRunning())
	// Double stop must not panic
	service.Stop()
}
