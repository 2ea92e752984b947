package status

import (
	"strings"

	"github.com/radiusdt/budget-intel/internal/models"
)

// Predicate is the typed form of a status filter. Stores render it as
// bound parameters; the memory store evaluates it directly. The zero value
// matches everything.
type Predicate struct {
	Values      []models.Status
	IncludeNull bool
}

// Any matches every status.
func Any() Predicate { return Predicate{} }

// ActiveOnly matches ACTIVE, UNKNOWN and NULL/empty.
func ActiveOnly() Predicate {
	return Predicate{Values: ActiveStatuses, IncludeNull: true}
}

// InactiveOnly matches PAUSED and ARCHIVED.
func InactiveOnly() Predicate {
	return Predicate{Values: InactiveStatuses}
}

// ForRequest returns the predicate implied by the includeInactive flag.
func ForRequest(includeInactive bool) Predicate {
	if includeInactive {
		return Any()
	}
	return ActiveOnly()
}

// ReactivationScope returns the statuses scanned for comeback candidates.
// Campaigns include DELETED; ad sets and ads do not.
func ReactivationScope(level models.Level) Predicate {
	if level == models.LevelCampaign {
		return Predicate{Values: []models.Status{models.StatusPaused, models.StatusArchived, models.StatusDeleted}}
	}
	return InactiveOnly()
}

// IsZero reports whether the predicate filters nothing.
func (p Predicate) IsZero() bool {
	return len(p.Values) == 0 && !p.IncludeNull
}

// Matches evaluates the predicate against a raw column value.
func (p Predicate) Matches(raw string) bool {
	if p.IsZero() {
		return true
	}
	if strings.TrimSpace(raw) == "" {
		return p.IncludeNull
	}
	up := models.Status(strings.ToUpper(strings.TrimSpace(raw)))
	return contains(p.Values, up)
}

// Strings returns the status values as plain strings for query binding.
func (p Predicate) Strings() []string {
	out := make([]string, len(p.Values))
	for i, v := range p.Values {
		out[i] = string(v)
	}
	return out
}
