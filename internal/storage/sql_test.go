package storage

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusdt/budget-intel/internal/models"
	"github.com/radiusdt/budget-intel/internal/status"
)

func TestBuildMetricsQueryPostgres(t *testing.T) {
	b, cols, err := buildMetricsQuery(dialectPostgres, MetricQuery{
		Store:  "vironax",
		Level:  models.LevelCampaign,
		Start:  "2024-01-01",
		End:    "2024-01-31",
		Status: status.ActiveOnly(),
	})
	require.NoError(t, err)
	assert.Len(t, cols, len(commonMetricColumns))

	sql := b.String()
	assert.Contains(t, sql, "FROM meta_daily_metrics WHERE store = $1")
	assert.Contains(t, sql, "AND date >= $2::date AND date <= $3::date")
	assert.Contains(t, sql, "AND (effective_status IN ($4, $5) OR effective_status IS NULL OR effective_status = '')")
	assert.Contains(t, sql, "to_char(date, 'YYYY-MM-DD')")
	assert.Contains(t, sql, "ORDER BY date DESC")
	assert.Equal(t, []any{"vironax", "2024-01-01", "2024-01-31", "ACTIVE", "UNKNOWN"}, b.args)
}

func TestBuildMetricsQueryClickHouse(t *testing.T) {
	b, cols, err := buildMetricsQuery(dialectClickHouse, MetricQuery{
		Store:    "shawq",
		Level:    models.LevelAd,
		Status:   status.ReactivationScope(models.LevelAd),
		ObjectID: "ad-1",
	})
	require.NoError(t, err)
	assert.Len(t, cols, len(commonMetricColumns)+len(adMetricColumns))

	sql := b.String()
	assert.Contains(t, sql, "FROM meta_ad_metrics WHERE store = ?")
	assert.Contains(t, sql, "AND (ad_effective_status IN (?, ?))")
	assert.Contains(t, sql, "AND ad_id = ?")
	assert.Contains(t, sql, "toString(date)")
	assert.NotContains(t, sql, "date >=")
	assert.Equal(t, []any{"shawq", "PAUSED", "ARCHIVED", "ad-1"}, b.args)
}

func TestBuildMetricsQueryAnyStatus(t *testing.T) {
	b, _, err := buildMetricsQuery(dialectPostgres, MetricQuery{Store: "s", Level: models.LevelAdset})
	require.NoError(t, err)
	assert.NotContains(t, b.String(), "adset_effective_status IN")
	assert.Equal(t, []any{"s"}, b.args)
}

func TestBuildMetricsQueryRejectsUnknownLevel(t *testing.T) {
	_, _, err := buildMetricsQuery(dialectPostgres, MetricQuery{Store: "s", Level: "creative"})
	assert.ErrorIs(t, err, ErrUnsupportedLevel)
}

func TestBuildObjectsQuery(t *testing.T) {
	b := buildObjectsQuery(dialectPostgres, ObjectQuery{
		Store:                "VironaX",
		CaseInsensitiveStore: true,
		Types:                []models.Level{models.LevelAdset, models.LevelAd},
		ObjectID:             "42",
	})
	sql := b.String()
	assert.Contains(t, sql, "WHERE LOWER(store) = LOWER($1)")
	assert.Contains(t, sql, "AND object_type IN ($2, $3)")
	assert.Contains(t, sql, "AND object_id = $4")
	assert.Contains(t, sql, "ORDER BY object_type, object_name")
	assert.Equal(t, []any{"VironaX", "adset", "ad", "42"}, b.args)
}

func TestBuildBoundsQuery(t *testing.T) {
	b, err := buildBoundsQuery(dialectClickHouse, "vironax", models.LevelAdset)
	require.NoError(t, err)
	assert.Contains(t, b.String(), "if(count() = 0, NULL, toString(min(date)))")
	assert.Contains(t, b.String(), "FROM meta_adset_metrics WHERE store = ?")
}

func TestPgErrorMapsUndefinedTable(t *testing.T) {
	err := pgError("failed", &pgconn.PgError{Code: "42P01", Message: `relation "meta_ad_metrics" does not exist`})
	assert.True(t, errors.Is(err, ErrTableMissing))

	err = pgError("failed", &pgconn.PgError{Code: "57P01"})
	assert.False(t, errors.Is(err, ErrTableMissing))
}
