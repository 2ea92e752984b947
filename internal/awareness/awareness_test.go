package awareness

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radiusdt/budget-intel/internal/daterange"
	"github.com/radiusdt/budget-intel/internal/models"
	"github.com/radiusdt/budget-intel/internal/reactivation"
	"github.com/radiusdt/budget-intel/internal/storage"
)

func seed(t *testing.T) *storage.MemoryStore {
	t.Helper()
	s := storage.NewMemoryStore()
	for _, o := range []models.ObjectNode{
		{Store: "Vironax", ObjectType: models.LevelCampaign, ObjectID: "C1", ObjectName: "Live", EffectiveStatus: "ACTIVE"},
		{Store: "vironax", ObjectType: models.LevelCampaign, ObjectID: "C2", ObjectName: "Winter", EffectiveStatus: "PAUSED"},
		{Store: "vironax", ObjectType: models.LevelCampaign, ObjectID: "C3", ObjectName: "Gone", EffectiveStatus: "DELETED"},
		{Store: "vironax", ObjectType: models.LevelAdset, ObjectID: "S1", ParentID: "C1", EffectiveStatus: "CAMPAIGN_PAUSED"},
		{Store: "vironax", ObjectType: models.LevelAd, ObjectID: "A1", ParentID: "S1", EffectiveStatus: "ARCHIVED"},
		{Store: "other", ObjectType: models.LevelCampaign, ObjectID: "X1", EffectiveStatus: "ACTIVE"},
	} {
		require.NoError(t, s.UpsertObject(o))
	}
	require.NoError(t, s.AddMetrics(models.LevelCampaign, models.MetricRow{
		Store: "vironax", Date: "2024-06-16", CampaignID: "C2", CampaignName: "Winter",
		Spend: 100, ConversionValue: 200, Conversions: 5, EffectiveStatus: "PAUSED",
	}))
	return s
}

func newTestPackager(s storage.MetricStore) *Packager {
	clock := daterange.FixedClock{T: time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)}
	scorer := reactivation.NewScorer(s, clock, time.UTC, zap.NewNop())
	return NewPackager(s, scorer, zap.NewNop())
}

func TestAccountStructure(t *testing.T) {
	p := newTestPackager(seed(t))
	got, err := p.AccountStructure(context.Background(), "VIRONAX")
	require.NoError(t, err)

	assert.Equal(t, LevelCounts{Active: 1, Paused: 1, Other: 1, Total: 3}, got.Campaigns)
	assert.Equal(t, LevelCounts{Other: 1, Total: 1}, got.Adsets, "only exact ACTIVE counts as active")
	assert.Equal(t, LevelCounts{Archived: 1, Total: 1}, got.Ads)
}

func TestFormatAccountStructure(t *testing.T) {
	text := FormatAccountStructureForAI(AccountStructure{
		Store:     "vironax",
		Campaigns: LevelCounts{Active: 2, Paused: 1, Total: 3},
	})
	lines := strings.Split(text, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "ACCOUNT STRUCTURE (vironax):", lines[0])
	assert.Equal(t, "- Campaigns: 2 active, 1 paused, 0 archived, 0 other (3 total)", lines[1])
}

func TestBuildWithReactivation(t *testing.T) {
	p := newTestPackager(seed(t))
	b, err := p.Build(context.Background(), "vironax", true)
	require.NoError(t, err)
	require.NotNil(t, b.ReactivationCandidates)
	assert.Contains(t, b.Prompt, "- Winter (PAUSED): Excellent 2.00x ROAS, 5 conversions, score 7.5")
	assert.Contains(t, b.Prompt, "IMPORTANT CONTEXT:")

	b, err = p.Build(context.Background(), "vironax", false)
	require.NoError(t, err)
	assert.Nil(t, b.ReactivationCandidates)
	assert.NotContains(t, b.Prompt, "REACTIVATION")
}

func TestFormatReactivationLimitsList(t *testing.T) {
	res := reactivation.EmptyResult("vironax", 90)
	for i := 0; i < 8; i++ {
		res.Campaigns = append(res.Campaigns, reactivation.Candidate{ObjectID: "C", Reason: "r", Score: 9.24})
	}
	res.Summary.Total = 8
	text := FormatReactivationForAI(res)
	assert.Equal(t, maxListed, strings.Count(text, "\n- "))
	assert.Contains(t, text, "score 9.2")

	empty := FormatReactivationForAI(reactivation.EmptyResult("vironax", 90))
	assert.Contains(t, empty, "No inactive objects")
}

func TestIsReactivationQuestion(t *testing.T) {
	for _, q := range []string{
		"Which campaigns should I reactivate?",
		"show me PAUSED winners",
		"Can we turn back on the summer ads?",
		"restart something that worked",
	} {
		assert.True(t, IsReactivationQuestion(q), q)
	}
	assert.False(t, IsReactivationQuestion("How much did we spend yesterday?"))
}
