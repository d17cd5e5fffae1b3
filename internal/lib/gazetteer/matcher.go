package gazetteer

import (
	"context"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/lampmap/server/internal/lib/streetname"
)

const (
	substringMatchCap = 5
	fuzzyMatchCap     = 3
	suggestionSample  = 200
	suggestionCap     = 3
)

// FindBestMatch resolves input to known streets, first non-empty tier wins:
// exact normalized equality, then bidirectional substring containment, then
// bounded Levenshtein distance.
func (g *Gazetteer) FindBestMatch(ctx context.Context, input string) []StreetEntry {
	normalized := streetname.NormalizeFolded(input)
	if normalized == "" {
		return nil
	}

	entries := g.Streets(ctx)

	if exact := exactMatches(entries, normalized); len(exact) > 0 {
		return exact
	}
	if partial := substringMatches(entries, normalized); len(partial) > 0 {
		return partial
	}
	return fuzzyMatches(entries, normalized)
}

func exactMatches(entries []StreetEntry, normalized string) []StreetEntry {
	var matches []StreetEntry
	for _, entry := range entries {
		if entry.Normalized == normalized {
			matches = append(matches, entry)
		}
	}
	return matches
}

func substringMatches(entries []StreetEntry, normalized string) []StreetEntry {
	var matches []StreetEntry
	for _, entry := range entries {
		if strings.Contains(entry.Normalized, normalized) || strings.Contains(normalized, entry.Normalized) {
			matches = append(matches, entry)
			if len(matches) >= substringMatchCap {
				break
			}
		}
	}
	return matches
}

// fuzzyMatches applies bounded edit distance with a length-scaled threshold
func fuzzyMatches(entries []StreetEntry, normalized string) []StreetEntry {
	threshold := len(normalized) * 3 / 10
	if threshold < 2 {
		threshold = 2
	}

	type scored struct {
		entry    StreetEntry
		distance int
	}
	var candidates []scored
	for _, entry := range entries {
		distance := levenshtein.ComputeDistance(normalized, entry.Normalized)
		if distance <= threshold {
			candidates = append(candidates, scored{entry: entry, distance: distance})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	if len(candidates) > fuzzyMatchCap {
		candidates = candidates[:fuzzyMatchCap]
	}
	matches := make([]StreetEntry, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, c.entry)
	}
	return matches
}

// SuggestStreetNames returns up to max alternate street names for input. Known
// matches from the gazetteer are tried first; the AI path is the last resort
// and its output is restricted to names verbatim present in the sampled
// reference list. With the suggester disabled this degrades to the gazetteer
// tiers alone.
func (g *Gazetteer) SuggestStreetNames(ctx context.Context, input string, max int) []string {
	if max <= 0 || max > suggestionCap {
		max = suggestionCap
	}

	if matches := g.FindBestMatch(ctx, input); len(matches) > 0 {
		names := make([]string, 0, max)
		for _, m := range matches {
			names = append(names, m.Name)
			if len(names) >= max {
				break
			}
		}
		return names
	}

	if g.suggester == nil || !g.suggester.Enabled() {
		return nil
	}

	entries := g.Streets(ctx)
	sample := sampleNames(entries, suggestionSample)
	suggestions, err := g.suggester.SuggestFromList(ctx, input, sample, max)
	if err != nil {
		// AI suggestion is best-effort; failure degrades to no suggestions
		return nil
	}

	// Discard anything the model made up
	known := make(map[string]struct{}, len(sample))
	for _, name := range sample {
		known[name] = struct{}{}
	}
	var verified []string
	for _, s := range suggestions {
		if _, ok := known[s]; ok {
			verified = append(verified, s)
			if len(verified) >= max {
				break
			}
		}
	}
	return verified
}

// sampleNames picks up to limit distinct display names from the snapshot
func sampleNames(entries []StreetEntry, limit int) []string {
	names := make([]string, 0, limit)
	for _, entry := range entries {
		names = append(names, entry.Name)
		if len(names) >= limit {
			break
		}
	}
	return names
}
