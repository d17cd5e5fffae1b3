// Package incident turns free-text damage reports into confidence-scored
// lamp candidates for dispatch.
package incident

import (
	"context"
	"fmt"
	"sort"

	"github.com/dpup/prefab/logging"

	"github.com/lampmap/server/internal/lib/geo"
	"github.com/lampmap/server/internal/lib/resolver"
)

const (
	// Radius within which a geocoded address component claims nearby lamps
	componentRadiusMeters = 50
	// Radius for the single interpreted-location nearest lookup
	interpretedRadiusMeters = 100

	maxCandidates         = 3
	maxFallbackCandidates = 5

	minConfidence     = 0.1
	maxConfidence     = 0.9
	overallCeiling    = 0.95
	proximityBonus    = 0.1
	bonusDistanceCap  = 25.0
	distanceFalloffMeters = 100.0
)

// LocationInterpreter is the AI slice the scorer depends on; Interpreter
// satisfies it.
type LocationInterpreter interface {
	Enabled() bool
	Interpret(ctx context.Context, street, description string) (*Interpretation, error)
}

// Scorer ranks the lamps on a street against the location details of a
// report. It degrades rather than fails: with no AI or no geocoding hits it
// falls back to an order-based heuristic.
type Scorer struct {
	interpreter LocationInterpreter
	geocoder    Geocoder
	geoUtils    geo.GeoUtils
}

// NewScorer creates a candidate scorer
func NewScorer(interpreter LocationInterpreter, geocoder Geocoder, geoUtils geo.GeoUtils) *Scorer {
	return &Scorer{
		interpreter: interpreter,
		geocoder:    geocoder,
		geoUtils:    geoUtils,
	}
}

// Assess scores the given lamps against the report's location description.
// It never returns an error; degraded paths are logged and produce a
// lower-confidence assessment.
func (s *Scorer) Assess(ctx context.Context, street, description string, lamps []resolver.LampRecord) Assessment {
	if len(lamps) == 0 {
		return Assessment{Candidates: []Candidate{}, Confidence: 0}
	}

	if s.interpreter == nil || !s.interpreter.Enabled() {
		return s.fallbackAssessment(lamps)
	}

	interpretation, err := s.interpreter.Interpret(ctx, street, description)
	if err != nil {
		logging.Warnw(ctx, "Incident interpretation failed, using heuristic ranking", "error", err)
		return s.fallbackAssessment(lamps)
	}

	candidates := s.geocodedCandidates(ctx, street, interpretation, lamps)
	if len(candidates) == 0 {
		logging.Infow(ctx, "No geocoded matches near any lamp, using heuristic ranking",
			"interpreted_location", interpretation.InterpretedLocation)
		return s.fallbackAssessment(lamps)
	}

	candidates = dedupeAndRank(candidates)
	return Assessment{
		Candidates: candidates,
		Confidence: overallConfidence(candidates),
	}
}

// geocodedCandidates resolves each address component plus the interpreted
// location to coordinates and collects lamps within range of them.
func (s *Scorer) geocodedCandidates(ctx context.Context, street string, interpretation *Interpretation, lamps []resolver.LampRecord) []Candidate {
	var candidates []Candidate

	for _, component := range interpretation.AddressComponents {
		query := fmt.Sprintf("%s, %s", component, street)
		hit, err := s.geocoder.Geocode(ctx, query)
		if err != nil {
			logging.Warnw(ctx, "Address component geocoding failed", "component", component, "error", err)
			continue
		}
		if hit == nil {
			continue
		}
		candidates = append(candidates, s.lampsWithin(ctx, hit.Latitude, hit.Longitude, componentRadiusMeters, lamps)...)
	}

	if interpretation.InterpretedLocation != "" {
		hit, err := s.geocoder.Geocode(ctx, interpretation.InterpretedLocation)
		if err != nil {
			logging.Warnw(ctx, "Interpreted location geocoding failed", "error", err)
		} else if hit != nil {
			if nearest, ok := s.nearestWithin(ctx, hit.Latitude, hit.Longitude, interpretedRadiusMeters, lamps); ok {
				candidates = append(candidates, nearest)
			}
		}
	}

	return candidates
}

// lampsWithin returns every lamp within radius of the given point
func (s *Scorer) lampsWithin(ctx context.Context, lat, lng, radius float64, lamps []resolver.LampRecord) []Candidate {
	var out []Candidate
	for _, lamp := range lamps {
		d, err := s.geoUtils.DistanceFromCoords(lat, lng, lamp.Latitude, lamp.Longitude)
		if err != nil {
			logging.Warnw(ctx, "Distance computation failed", "lamp_id", lamp.ID, "error", err)
			continue
		}
		if d <= radius {
			out = append(out, candidateAt(lamp, d))
		}
	}
	return out
}

// nearestWithin returns the single closest lamp within radius of the point
func (s *Scorer) nearestWithin(ctx context.Context, lat, lng, radius float64, lamps []resolver.LampRecord) (Candidate, bool) {
	var best Candidate
	bestDistance := radius + 1
	for _, lamp := range lamps {
		d, err := s.geoUtils.DistanceFromCoords(lat, lng, lamp.Latitude, lamp.Longitude)
		if err != nil {
			logging.Warnw(ctx, "Distance computation failed", "lamp_id", lamp.ID, "error", err)
			continue
		}
		if d <= radius && d < bestDistance {
			best = candidateAt(lamp, d)
			bestDistance = d
		}
	}
	return best, bestDistance <= radius
}

// candidateAt builds a candidate with distance-derived confidence
func candidateAt(lamp resolver.LampRecord, distance float64) Candidate {
	confidence := 1 - distance/distanceFalloffMeters
	if confidence < minConfidence {
		confidence = minConfidence
	}
	if confidence > maxConfidence {
		confidence = maxConfidence
	}
	return Candidate{
		LampID:         lamp.ID,
		LampNumber:     lamp.LampNumber,
		Latitude:       lamp.Latitude,
		Longitude:      lamp.Longitude,
		DistanceMeters: distance,
		Confidence:     confidence,
	}
}

// fallbackAssessment ranks lamps by result order when no location signal is
// available. Confidence decays with position so the first matches on the
// street still rank usefully.
func (s *Scorer) fallbackAssessment(lamps []resolver.LampRecord) Assessment {
	n := len(lamps)
	if n > maxFallbackCandidates {
		n = maxFallbackCandidates
	}

	candidates := make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		confidence := 0.4 - 0.05*float64(i)
		if confidence < minConfidence {
			confidence = minConfidence
		}
		candidates = append(candidates, Candidate{
			LampID:         lamps[i].ID,
			LampNumber:     lamps[i].LampNumber,
			Latitude:       lamps[i].Latitude,
			Longitude:      lamps[i].Longitude,
			DistanceMeters: UnknownDistance,
			Confidence:     confidence,
		})
	}

	return Assessment{
		Candidates: candidates,
		Confidence: overallConfidence(candidates),
	}
}

// dedupeAndRank collapses duplicate lamps keeping the best score, sorts by
// confidence and caps the list.
func dedupeAndRank(candidates []Candidate) []Candidate {
	best := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		if existing, ok := best[c.LampID]; !ok || c.Confidence > existing.Confidence {
			best[c.LampID] = c
		}
	}

	out := make([]Candidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].LampID < out[j].LampID
	})

	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out
}

// overallConfidence is the candidate mean, with a bonus when at least two
// candidates exist and the closest one has a known distance inside the
// tight-proximity cap. The unknown-distance sentinel never earns the bonus.
func overallConfidence(candidates []Candidate) float64 {
	if len(candidates) == 0 {
		return 0
	}

	var sum float64
	closest := -1.0
	for _, c := range candidates {
		sum += c.Confidence
		if c.DistanceMeters >= 0 && (closest < 0 || c.DistanceMeters < closest) {
			closest = c.DistanceMeters
		}
	}

	overall := sum / float64(len(candidates))
	if len(candidates) >= 2 && closest >= 0 && closest <= bonusDistanceCap {
		overall += proximityBonus
	}
	if overall > overallCeiling {
		overall = overallCeiling
	}
	return overall
}
