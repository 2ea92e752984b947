package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusdt/budget-intel/internal/models"
	"github.com/radiusdt/budget-intel/internal/status"
)

func seedMemory(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	require.NoError(t, s.UpsertObject(models.ObjectNode{Store: "vironax", ObjectType: models.LevelCampaign, ObjectID: "c2", ObjectName: "Beta", EffectiveStatus: "PAUSED"}))
	require.NoError(t, s.UpsertObject(models.ObjectNode{Store: "vironax", ObjectType: models.LevelCampaign, ObjectID: "c1", ObjectName: "Alpha", EffectiveStatus: "ACTIVE"}))
	require.NoError(t, s.UpsertObject(models.ObjectNode{Store: "vironax", ObjectType: models.LevelAdset, ObjectID: "as1", ObjectName: "Set", ParentID: "c1"}))
	require.NoError(t, s.UpsertObject(models.ObjectNode{Store: "shawq", ObjectType: models.LevelCampaign, ObjectID: "c9", ObjectName: "Other"}))

	require.NoError(t, s.AddMetrics(models.LevelCampaign,
		models.MetricRow{Store: "vironax", Date: "2024-01-01", CampaignID: "c1", EffectiveStatus: "ACTIVE"},
		models.MetricRow{Store: "vironax", Date: "2024-01-03", CampaignID: "c2", EffectiveStatus: "PAUSED"},
		models.MetricRow{Store: "vironax", Date: "2024-01-02", CampaignID: "c1"},
		models.MetricRow{Store: "shawq", Date: "2023-06-01", CampaignID: "c9"},
	))
	return s
}

func TestMemoryStoreDateBounds(t *testing.T) {
	s := seedMemory(t)
	ctx := context.Background()

	b, err := s.DateBounds(ctx, "vironax", models.LevelCampaign)
	require.NoError(t, err)
	assert.Equal(t, models.DateBounds{Min: "2024-01-01", Max: "2024-01-03"}, b)

	b, err = s.DateBounds(ctx, "vironax", models.LevelAd)
	require.NoError(t, err)
	assert.Equal(t, models.DateBounds{}, b)
}

func TestMemoryStoreListObjects(t *testing.T) {
	s := seedMemory(t)
	ctx := context.Background()

	all, err := s.ListObjects(ctx, ObjectQuery{Store: "vironax"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "as1", all[0].ObjectID, "adset sorts before campaign")
	assert.Equal(t, "Alpha", all[1].ObjectName)
	assert.Equal(t, "Beta", all[2].ObjectName)

	active, err := s.ListObjects(ctx, ObjectQuery{Store: "vironax", Status: status.ActiveOnly(), Types: []models.Level{models.LevelCampaign}})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "c1", active[0].ObjectID)

	ci, err := s.ListObjects(ctx, ObjectQuery{Store: "VIRONAX", CaseInsensitiveStore: true})
	require.NoError(t, err)
	assert.Len(t, ci, 3)
}

func TestMemoryStoreListMetrics(t *testing.T) {
	s := seedMemory(t)
	ctx := context.Background()

	rows, err := s.ListMetrics(ctx, MetricQuery{Store: "vironax", Level: models.LevelCampaign, Status: status.ActiveOnly()})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-01-02", rows[0].Date, "ordered by date descending")
	assert.Equal(t, "2024-01-01", rows[1].Date)

	rows, err = s.ListMetrics(ctx, MetricQuery{Store: "vironax", Level: models.LevelCampaign, Start: "2024-01-02", End: "2024-01-03"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = s.ListMetrics(ctx, MetricQuery{Store: "vironax", Level: models.LevelCampaign, ObjectID: "c2"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "PAUSED", rows[0].EffectiveStatus)
}

func TestMemoryStoreDroppedTable(t *testing.T) {
	s := seedMemory(t)
	s.DropTable(models.LevelCampaign)

	_, err := s.ListMetrics(context.Background(), MetricQuery{Store: "vironax", Level: models.LevelCampaign})
	assert.ErrorIs(t, err, ErrTableMissing)
	_, err = s.DateBounds(context.Background(), "vironax", models.LevelCampaign)
	assert.ErrorIs(t, err, ErrTableMissing)
}

func TestMemoryStoreRejectsBadInput(t *testing.T) {
	s := NewMemoryStore()
	assert.Error(t, s.AddMetrics(models.LevelCampaign, models.MetricRow{Store: "x", Date: "01/02/2024"}))
	assert.ErrorIs(t, s.AddMetrics("creative"), ErrUnsupportedLevel)
	assert.Error(t, s.UpsertObject(models.ObjectNode{ObjectType: models.LevelAd, ObjectID: "a1"}))
}
