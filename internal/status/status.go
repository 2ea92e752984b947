// Package status classifies Meta lifecycle statuses and translates the
// includeInactive request flag into SQL fragments and in-memory predicates.
package status

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/radiusdt/budget-intel/internal/models"
)

var (
	// ActiveStatuses are served by default. NULL/empty also counts as active
	// because rows synced before status tracking carry no status.
	ActiveStatuses = []models.Status{models.StatusActive, models.StatusUnknown}
	// InactiveStatuses are candidates for reactivation.
	InactiveStatuses = []models.Status{models.StatusPaused, models.StatusArchived}
)

const defaultColumn = "effective_status"

// ShouldIncludeInactive interprets the includeInactive flag. It accepts a
// bool, the strings "true"/"false", url.Values, or a map holding an
// includeInactive key. Anything else yields false.
func ShouldIncludeInactive(params any) bool {
	switch v := params.(type) {
	case bool:
		return v
	case *bool:
		return v != nil && *v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	case url.Values:
		return ShouldIncludeInactive(v.Get("includeInactive"))
	case map[string]any:
		if inner, ok := v["includeInactive"]; ok {
			return ShouldIncludeInactive(inner)
		}
	case map[string]string:
		if inner, ok := v["includeInactive"]; ok {
			return ShouldIncludeInactive(inner)
		}
	}
	return false
}

// BuildStatusFilter returns "" when inactive objects are requested, or an
// AND clause restricting effective_status to the active set. The literals
// come from the closed status enumeration, never from request input.
// The stores bind a Predicate instead; this form serves ad-hoc SQL.
func BuildStatusFilter(params any, columnPrefix string) string {
	if ShouldIncludeInactive(params) {
		return ""
	}
	return BuildColumnFilter(qualify(columnPrefix, defaultColumn))
}

// BuildColumnFilter is BuildStatusFilter for an explicit, level-specific
// column such as adset_effective_status.
func BuildColumnFilter(column string) string {
	return fmt.Sprintf(" AND (%s = '%s' OR %s = '%s' OR %s IS NULL)",
		column, models.StatusActive, column, models.StatusUnknown, column)
}

// BuildInactiveOnlyFilter restricts effective_status to PAUSED or ARCHIVED.
// Stores bind InactiveOnly() as a Predicate for the same set.
func BuildInactiveOnlyFilter(columnPrefix string) string {
	col := qualify(columnPrefix, defaultColumn)
	return fmt.Sprintf(" AND (%s = '%s' OR %s = '%s')",
		col, models.StatusPaused, col, models.StatusArchived)
}

func qualify(prefix, column string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return column
	}
	return strings.TrimSuffix(prefix, ".") + "." + column
}

// NormalizeStatus upper-cases s and maps anything outside the enumeration,
// including the empty string, to UNKNOWN.
func NormalizeStatus(s string) models.Status {
	switch st := models.Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case models.StatusActive, models.StatusPaused, models.StatusArchived, models.StatusDeleted, models.StatusUnknown:
		return st
	}
	return models.StatusUnknown
}

// IsActiveStatus reports whether s belongs to the active bucket. Empty
// input is active.
func IsActiveStatus(s string) bool {
	if strings.TrimSpace(s) == "" {
		return true
	}
	return contains(ActiveStatuses, NormalizeStatus(s))
}

// IsInactiveStatus reports whether s is PAUSED or ARCHIVED.
func IsInactiveStatus(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	return contains(InactiveStatuses, NormalizeStatus(s))
}

// IsDeletedStatus reports whether s is DELETED.
func IsDeletedStatus(s string) bool {
	return strings.TrimSpace(s) != "" && NormalizeStatus(s) == models.StatusDeleted
}

func contains(set []models.Status, s models.Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// LevelColumn is the metric-table column holding a level's effective status.
func LevelColumn(level models.Level) string {
	switch level {
	case models.LevelAdset:
		return "adset_effective_status"
	case models.LevelAd:
		return "ad_effective_status"
	default:
		return defaultColumn
	}
}
