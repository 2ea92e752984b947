package intelligence

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radiusdt/budget-intel/internal/daterange"
	"github.com/radiusdt/budget-intel/internal/models"
	"github.com/radiusdt/budget-intel/internal/storage"
)

// now places the prior window at 2024-01-02..2024-03-01, so observation
// windows in November 2023 never overlap it.
var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(s storage.MetricStore) *Engine {
	return NewEngine(s, daterange.FixedClock{T: now}, time.UTC, 3.0, zap.NewNop())
}

func row(date, campaign, country string, spend, revenue, conversions float64) models.MetricRow {
	return models.MetricRow{
		Store:           "vironax",
		Date:            date,
		CampaignID:      campaign,
		CampaignName:    "Campaign " + campaign,
		Country:         country,
		Spend:           spend,
		ConversionValue: revenue,
		Conversions:     conversions,
		EffectiveStatus: "ACTIVE",
	}
}

var november = Params{Store: "vironax", DateStart: "2023-11-01", DateEnd: "2023-11-30"}

func TestBayesianBlendThroughEngine(t *testing.T) {
	s := storage.NewMemoryStore()
	require.NoError(t, s.AddMetrics(models.LevelCampaign,
		row("2024-01-15", "P1", "SA", 10000, 20000, 100),
		row("2023-11-10", "C1", "SA", 15000, 60000, 150),
	))

	res, err := newTestEngine(s).GetBudgetIntelligence(context.Background(), november)
	require.NoError(t, err)
	require.True(t, res.Success)

	require.Len(t, res.Posteriors, 1)
	p := res.Posteriors[0]
	require.NotNil(t, p.Roas.Mean)
	assert.InDelta(t, 3.5, *p.Roas.Mean, 1e-9)
	assert.Equal(t, 40.0, p.Roas.Weight)
	assert.Equal(t, DepthStrong, DepthFor(p.Roas.Weight))

	require.Contains(t, res.Priors.ByCountry, "SA")
	assert.InDelta(t, 2.0, *res.Priors.ByCountry["SA"].Roas, 1e-9)
	assert.InDelta(t, 2.0, *res.Priors.Global.Roas, 1e-9)

	require.Len(t, res.LearningMap, 1)
	assert.Equal(t, StageColdStart, res.LearningMap[0].Stage, "one active day")
	assert.Equal(t, "strong", res.LearningMap[0].Category)

	require.Len(t, res.AvailableCountries, 1)
	assert.Equal(t, 2, res.AvailableCountries[0].Campaigns)
}

func TestGuidanceSummary(t *testing.T) {
	s := storage.NewMemoryStore()
	require.NoError(t, s.AddMetrics(models.LevelCampaign,
		row("2023-11-05", "A", "SA", 1000, 4500, 10),
		row("2023-11-05", "B", "AE", 1000, 2500, 10),
		row("2023-11-05", "C", "KW", 1000, 1000, 10),
		row("2023-11-05", "D", "QA", 1000, 0, 0),
	))

	res, err := newTestEngine(s).GetBudgetIntelligence(context.Background(), november)
	require.NoError(t, err)

	assert.Equal(t, GuidanceSummary{Scale: 1, Hold: 1, Cut: 2}, res.GuidanceSummary)
	actions := make(map[string]Action)
	for _, g := range res.LiveGuidance {
		actions[g.CampaignID] = g.Action
		assert.Equal(t, models.LevelCampaign, g.Level)
		assert.Equal(t, "vironax", g.Store)
	}
	assert.Equal(t, map[string]Action{"A": ActionScale, "B": ActionHold, "C": ActionCut, "D": ActionCut}, actions)
}

func TestGuidanceUsesCanonicalNames(t *testing.T) {
	s := storage.NewMemoryStore()
	require.NoError(t, s.AddMetrics(models.LevelCampaign,
		row("2023-11-05", "A", "", 200, 800, 4),
	))
	res, err := newTestEngine(s).GetBudgetIntelligence(context.Background(), november)
	require.NoError(t, err)
	require.Len(t, res.LiveGuidance, 1)

	body, err := json.Marshal(res.LiveGuidance[0])
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	assert.Equal(t, "A", m["campaign_id"])
	assert.Equal(t, "unknown", m["geo"])
	assert.Equal(t, 4.0, m["purchases"])
	assert.Equal(t, 800.0, m["purchase_value"])
	assert.Equal(t, "meta", m["brand"])
}

func TestStartPlanFallbackWhenCacUnknown(t *testing.T) {
	s := storage.NewMemoryStore()
	require.NoError(t, s.AddMetrics(models.LevelCampaign,
		row("2023-11-05", "Z", "EG", 0, 0, 0),
	))
	res, err := newTestEngine(s).GetBudgetIntelligence(context.Background(), november)
	require.NoError(t, err)

	require.Len(t, res.StartPlans, 1)
	plan := res.StartPlans[0]
	assert.Equal(t, "EG", plan.Country)
	assert.Equal(t, 2000.0, plan.RecommendedDaily)
	assert.Equal(t, 14000.0, plan.RecommendedTotal)
	assert.Nil(t, plan.ExpectedDailyRevenue)
	assert.Nil(t, plan.ExpectedPurchases)
	assert.Equal(t, ConfidenceLow, plan.Confidence)
}

func TestStartPlanFromPosteriors(t *testing.T) {
	roas := Posterior{Mean: ptr(2.5), Weight: 60}
	cac := Posterior{Mean: ptr(50), Weight: 60}
	plan := BuildStartPlan("SA", roas, cac)

	assert.Equal(t, 400.0, plan.RecommendedDaily)
	assert.Equal(t, 2800.0, plan.RecommendedTotal)
	assert.InDelta(t, 1000.0, *plan.ExpectedDailyRevenue, 1e-9)
	assert.InDelta(t, 8.0, *plan.ExpectedPurchases, 1e-9)
	assert.Equal(t, ConfidenceHigh, plan.Confidence)
	assert.Equal(t, Band{Low: 750, High: 1250}, *plan.RevenueBand)

	high := BuildStartPlan("SA", roas, Posterior{Mean: ptr(10000), Weight: 1})
	assert.Equal(t, MaxDailySpend, high.RecommendedDaily)
	low := BuildStartPlan("SA", roas, Posterior{Mean: ptr(1), Weight: 1})
	assert.Equal(t, MinDailySpend, low.RecommendedDaily)
}

func TestMissingTableYieldsEmptyResult(t *testing.T) {
	s := storage.NewMemoryStore()
	s.DropTable(models.LevelCampaign)

	res, err := newTestEngine(s).GetBudgetIntelligence(context.Background(), Params{Store: "vironax"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.LiveGuidance)
	assert.Empty(t, res.StartPlans)
	assert.Nil(t, res.Priors.Global.Roas)
	assert.Equal(t, "2024-02-01", res.Metadata.ObservationWindow.Start)
	assert.Equal(t, "2024-03-01", res.Metadata.ObservationWindow.End)

	body, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"liveGuidance":[]`)
	assert.Contains(t, string(body), `"planningDefaults":{"targetRoas":3,"minDailySpend":100,"maxDailySpend":20000,"horizonDays":7}`)
}

func TestObservationRespectsStatusFilter(t *testing.T) {
	s := storage.NewMemoryStore()
	paused := row("2023-11-05", "P", "SA", 500, 2000, 5)
	paused.EffectiveStatus = "PAUSED"
	require.NoError(t, s.AddMetrics(models.LevelCampaign, paused, row("2023-11-05", "A", "SA", 500, 500, 5)))

	e := newTestEngine(s)
	res, err := e.GetBudgetIntelligence(context.Background(), november)
	require.NoError(t, err)
	assert.Len(t, res.LiveGuidance, 1)

	p := november
	p.IncludeInactive = true
	res, err = e.GetBudgetIntelligence(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, res.LiveGuidance, 2)
}

func TestObservationWindowDefaults(t *testing.T) {
	today := daterange.Today(daterange.FixedClock{T: now}, time.UTC)

	r := observationWindow(Params{DateStart: "2024-02-10"}, today)
	assert.Equal(t, "2024-02-10", r.Start)
	assert.Equal(t, "2024-03-01", r.End)

	r = observationWindow(Params{DateEnd: "2024-01-30"}, today)
	assert.Equal(t, "2024-01-01", r.Start)

	r = observationWindow(Params{DateStart: "bad", DateEnd: "nope"}, today)
	assert.Equal(t, "2024-02-01", r.Start)
}

func TestRequiresStore(t *testing.T) {
	res, err := newTestEngine(storage.NewMemoryStore()).GetBudgetIntelligence(context.Background(), Params{})
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.NotNil(t, res.LiveGuidance)
}
