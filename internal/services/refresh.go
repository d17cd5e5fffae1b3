package services

import (
	"context"
	"time"

	"github.com/dpup/prefab/logging"

	"github.com/lampmap/server/internal/lib/schema"
)

// GazetteerRefresher reloads the street gazetteer snapshot
type GazetteerRefresher interface {
	Refresh(ctx context.Context)
}

// SchemaDiscoverer re-derives the lamp layer field schema
type SchemaDiscoverer interface {
	Discover(ctx context.Context, forceRefresh bool) schema.FieldSchema
}

// RefreshService keeps the gazetteer and schema caches warm so user requests
// never pay the cold-fetch cost.
type RefreshService struct {
	gazetteer GazetteerRefresher
	schemas   SchemaDiscoverer
	interval  time.Duration

	stopChan chan struct{}
	running  bool
}

// NewRefreshService creates a periodic cache refresh service
func NewRefreshService(gazetteer GazetteerRefresher, schemas SchemaDiscoverer, interval time.Duration) *RefreshService {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &RefreshService{
		gazetteer: gazetteer,
		schemas:   schemas,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the background refresh loop. Calling it twice is a no-op.
func (s *RefreshService) Start(ctx context.Context) {
	if s.running {
		return
	}
	s.running = true

	logging.Infow(ctx, "Starting periodic cache refresh", "interval", s.interval)
	go s.refreshLoop(ctx)
}

// Stop gracefully stops the refresh loop
func (s *RefreshService) Stop() {
	if !s.running {
		return
	}
	s.running = false
	close(s.stopChan)
}

// IsRunning returns whether the refresh loop is active
func (s *RefreshService) IsRunning() bool {
	return s.running
}

func (s *RefreshService) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Warm the caches immediately on startup
	s.refreshOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			logging.Infow(ctx, "Periodic refresh stopping, context cancelled")
			return
		case <-s.stopChan:
			logging.Infow(ctx, "Periodic refresh stopped")
			return
		case <-ticker.C:
			s.refreshOnce(ctx)
		}
	}
}

// refreshOnce reloads both caches. The underlying components keep serving
// their previous snapshots if a reload fails, so errors stay internal.
func (s *RefreshService) refreshOnce(ctx context.Context) {
	refreshCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	s.gazetteer.Refresh(refreshCtx)
	fieldSchema := s.schemas.Discover(refreshCtx, true)

	logging.Infow(ctx, "Cache refresh completed",
		"street_fields", len(fieldSchema.StreetFields),
		"lamp_id_fields", len(fieldSchema.LampIDFields))
}
