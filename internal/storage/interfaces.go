package storage

import (
	"context"
	"errors"

	"github.com/radiusdt/budget-intel/internal/models"
	"github.com/radiusdt/budget-intel/internal/status"
)

var (
	// ErrTableMissing is returned when the Metric Store lacks one of the
	// meta_* tables. Callers that tolerate partial data treat it as empty.
	ErrTableMissing = errors.New("metric table missing")
	// ErrUnsupportedLevel is returned for a level outside campaign/adset/ad.
	ErrUnsupportedLevel = errors.New("unsupported level")
)

// =============================================
// METRIC STORE
// =============================================

// MetricStore is the read-only view over meta_objects and the three daily
// metric tables.
type MetricStore interface {
	// DateBounds returns MIN/MAX(date) of the level's metric table.
	DateBounds(ctx context.Context, store string, level models.Level) (models.DateBounds, error)

	// ListObjects returns hierarchy objects ordered by (object_type, object_name).
	ListObjects(ctx context.Context, q ObjectQuery) ([]models.ObjectNode, error)

	// ListMetrics returns daily rows ordered by date descending.
	ListMetrics(ctx context.Context, q MetricQuery) ([]models.MetricRow, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
}

// ObjectQuery filters meta_objects.
type ObjectQuery struct {
	Store string
	// CaseInsensitiveStore matches the store key with LOWER() on both sides.
	CaseInsensitiveStore bool
	Status               status.Predicate
	Types                []models.Level
	ObjectID             string
}

// MetricQuery filters one metric table. Empty Start/End leave that side
// of the range open.
type MetricQuery struct {
	Store    string
	Level    models.Level
	Start    string
	End      string
	Status   status.Predicate
	ObjectID string
}

// Backend names used in logs and metrics.
const (
	BackendPostgres   = "postgres"
	BackendClickHouse = "clickhouse"
	BackendMemory     = "memory"
)
