package aibudget

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusdt/budget-intel/internal/models"
)

func canon(level models.Level, date, campaign string, spend, revenue, purchases float64, clicks, impressions int64) models.CanonicalRow {
	return models.CanonicalRow{
		Date:          date,
		Level:         level,
		CampaignID:    campaign,
		CampaignName:  "name-" + campaign,
		Spend:         spend,
		PurchaseValue: revenue,
		Purchases:     purchases,
		Clicks:        clicks,
		Impressions:   impressions,
	}
}

func TestAggregateWeekly(t *testing.T) {
	adsetRow := canon(models.LevelAdset, "2024-01-09", "c1", 200, 400, 4, 40, 800)
	adsetRow.AdsetID = models.NullableString("s1")
	rows := []models.CanonicalRow{
		canon(models.LevelCampaign, "2024-01-01", "c1", 60, 200, 3, 30, 600),
		canon(models.LevelCampaign, "2024-01-03", "c2", 40, 100, 2, 20, 400),
		canon(models.LevelCampaign, "2024-01-08", "c1", 200, 400, 4, 40, 800),
		adsetRow,
	}
	rows[0].Frequency = 2
	rows[1].Frequency = 0
	rows[2].Frequency = 4

	rep := AggregateWeekly(rows, WeeklyOptions{Lookback: "4weeks"})

	assert.Equal(t, models.LevelCampaign, rep.Summary.PrimaryLevel)
	assert.Equal(t, 300.0, rep.Summary.Spend, "ad set rows are not double counted")
	assert.Equal(t, 700.0, rep.Summary.Revenue)
	assert.Equal(t, 3.0, rep.Summary.AvgFrequency)
	assert.Equal(t, "4weeks", rep.Summary.Lookback)

	require.Len(t, rep.WeeklyBreakdown, 2)
	latest, prev := rep.WeeklyBreakdown[0], rep.WeeklyBreakdown[1]
	assert.Equal(t, "2024-W02", latest.Week)
	assert.Equal(t, "2024-01-08", latest.WeekStart)
	assert.Equal(t, "2024-01-14", latest.WeekEnd)
	assert.Equal(t, "2024-W01", prev.Week)
	assert.Equal(t, 100.0, prev.Spend)
	assert.Equal(t, 2, prev.Campaigns)
	assert.Equal(t, 1, latest.Adsets)
	assert.InDelta(t, 100.0, latest.ROI, 1e-9)
	assert.InDelta(t, 10.0, latest.ConversionRate, 1e-9)
	assert.InDelta(t, 50.0, latest.CPA, 1e-9)

	require.NotNil(t, rep.Trends)
	assert.InDelta(t, 100.0, rep.Trends.Spend, 1e-9)
	assert.InDelta(t, 33.333333, rep.Trends.Revenue, 1e-5)

	require.Len(t, rep.Campaigns, 2)
	assert.Equal(t, "c1", rep.Campaigns[0].CampaignID, "sorted by spend")
	assert.Equal(t, 260.0, rep.Campaigns[0].Spend)
	assert.Equal(t, 3.0, rep.Campaigns[0].AvgFrequency)

	assert.Equal(t, 3, rep.Levels["campaign"].Records)
	assert.Equal(t, 1, rep.Levels["adset"].Records)
	assert.Equal(t, 200.0, rep.Levels["adset"].Spend)
}

func TestAggregateWeeklySingleBucket(t *testing.T) {
	rep := AggregateWeekly([]models.CanonicalRow{
		canon(models.LevelAd, "2024-01-01", "c1", 0, 0, 0, 0, 0),
	}, WeeklyOptions{})
	assert.Nil(t, rep.Trends)
	assert.Equal(t, models.LevelAd, rep.Summary.PrimaryLevel, "falls back to the only level present")

	b := rep.WeeklyBreakdown[0]
	for name, v := range map[string]float64{
		"roi": b.ROI, "ctr": b.CTR, "conversionRate": b.ConversionRate, "cpc": b.CPC,
		"cpa": b.CPA, "atcRate": b.ATCRate, "icRate": b.ICRate,
	} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), name)
		assert.Zero(t, v, name)
	}
}

func TestAggregateWeeklyEmpty(t *testing.T) {
	rep := AggregateWeekly(nil, WeeklyOptions{})
	assert.Empty(t, rep.WeeklyBreakdown)
	assert.Nil(t, rep.Trends)
	assert.NotNil(t, rep.Campaigns)
}

func TestPercentChange(t *testing.T) {
	assert.Equal(t, 50.0, PercentChange(150, 100))
	assert.Equal(t, -50.0, PercentChange(50, 100))
	assert.Equal(t, 100.0, PercentChange(5, 0))
	assert.Equal(t, 0.0, PercentChange(0, 0))
}

func TestISOWeekAcrossYearBoundary(t *testing.T) {
	rep := AggregateWeekly([]models.CanonicalRow{
		canon(models.LevelCampaign, "2024-12-30", "c1", 1, 0, 0, 0, 0),
	}, WeeklyOptions{})
	assert.Equal(t, "2025-W01", rep.WeeklyBreakdown[0].Week)
	assert.Equal(t, "2024-12-30", rep.WeeklyBreakdown[0].WeekStart)
}
