package incident

import (
	"strings"

	"github.com/lampmap/server/internal/lib/streetname"
)

// Priority tiers for maintenance dispatch
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Keyword stems matched against the folded report text. Slovak stems cover
// inflected forms, hence the truncation.
var (
	highPriorityStems = []string{
		"poskoden", "vyvrat", "spadnut", "kabel", "nebezpec",
		"rozbit", "iskr", "hori",
		"damage", "broken", "spark", "fire", "danger", "exposed",
	}
	mediumPriorityStems = []string{
		"blik", "mihota", "zhasina", "slab",
		"flicker", "dim", "intermittent",
	}
)

// DerivePriority classifies a report's issue text into a dispatch tier.
// Physical damage and electrical hazards outrank flickering or dim output;
// anything else, including a plain outage, is routine.
func DerivePriority(issueText string) string {
	folded := streetname.Fold(strings.ToLower(issueText))

	for _, stem := range highPriorityStems {
		if strings.Contains(folded, stem) {
			return PriorityHigh
		}
	}
	for _, stem := range mediumPriorityStems {
		if strings.Contains(folded, stem) {
			return PriorityMedium
		}
	}
	return PriorityLow
}
