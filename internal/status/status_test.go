package status

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/radiusdt/budget-intel/internal/models"
)

func TestShouldIncludeInactive(t *testing.T) {
	yes := true
	cases := []struct {
		name string
		in   any
		want bool
	}{
		{"bool true", true, true},
		{"bool false", false, false},
		{"string true", "true", true},
		{"string TRUE", "TRUE", true},
		{"string false", "false", false},
		{"garbage string", "yes please", false},
		{"nil", nil, false},
		{"pointer", &yes, true},
		{"map", map[string]any{"includeInactive": "true"}, true},
		{"map bool", map[string]any{"includeInactive": true}, true},
		{"map missing key", map[string]any{"other": true}, false},
		{"url values", url.Values{"includeInactive": {"true"}}, true},
		{"int", 1, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ShouldIncludeInactive(tc.in))
		})
	}
}

func TestBuildStatusFilter(t *testing.T) {
	assert.Equal(t, "", BuildStatusFilter(true, ""))
	assert.Equal(t,
		" AND (effective_status = 'ACTIVE' OR effective_status = 'UNKNOWN' OR effective_status IS NULL)",
		BuildStatusFilter(false, ""))
	assert.Equal(t,
		" AND (m.effective_status = 'ACTIVE' OR m.effective_status = 'UNKNOWN' OR m.effective_status IS NULL)",
		BuildStatusFilter("false", "m."))
	assert.Equal(t,
		" AND (o.effective_status = 'ACTIVE' OR o.effective_status = 'UNKNOWN' OR o.effective_status IS NULL)",
		BuildStatusFilter(nil, "o"))
}

func TestBuildInactiveOnlyFilter(t *testing.T) {
	assert.Equal(t,
		" AND (effective_status = 'PAUSED' OR effective_status = 'ARCHIVED')",
		BuildInactiveOnlyFilter(""))
}

func TestClassificationIsTotal(t *testing.T) {
	for _, s := range []string{"ACTIVE", "PAUSED", "ARCHIVED", "DELETED", "UNKNOWN", "", "active", "paused"} {
		n := 0
		if IsActiveStatus(s) {
			n++
		}
		if IsInactiveStatus(s) {
			n++
		}
		if IsDeletedStatus(s) {
			n++
		}
		assert.Equal(t, 1, n, "status %q must fall in exactly one bucket", s)
	}
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, models.StatusPaused, NormalizeStatus("paused"))
	assert.Equal(t, models.StatusActive, NormalizeStatus(" Active "))
	assert.Equal(t, models.StatusUnknown, NormalizeStatus("IN_PROCESS"))
	assert.Equal(t, models.StatusUnknown, NormalizeStatus(""))
}

func TestPredicate(t *testing.T) {
	active := ActiveOnly()
	assert.True(t, active.Matches("ACTIVE"))
	assert.True(t, active.Matches(""))
	assert.True(t, active.Matches("unknown"))
	assert.False(t, active.Matches("PAUSED"))

	assert.True(t, Any().Matches("DELETED"))
	assert.True(t, ForRequest(true).IsZero())

	camp := ReactivationScope(models.LevelCampaign)
	assert.True(t, camp.Matches("DELETED"))
	assert.False(t, camp.Matches(""))
	adset := ReactivationScope(models.LevelAdset)
	assert.False(t, adset.Matches("DELETED"))
	assert.True(t, adset.Matches("ARCHIVED"))
}

func TestLevelColumn(t *testing.T) {
	assert.Equal(t, "effective_status", LevelColumn(models.LevelCampaign))
	assert.Equal(t, "adset_effective_status", LevelColumn(models.LevelAdset))
	assert.Equal(t, "ad_effective_status", LevelColumn(models.LevelAd))
}
