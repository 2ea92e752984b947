// Package aibudget assembles the Meta dataset, standardizes it into
// canonical rows and aggregates it into weekly summaries for the AI budget
// planner.
package aibudget

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/radiusdt/budget-intel/internal/daterange"
	"github.com/radiusdt/budget-intel/internal/models"
	"github.com/radiusdt/budget-intel/internal/status"
	"github.com/radiusdt/budget-intel/internal/storage"
)

// ErrInvalidParams marks a request the assembler refused to run.
var ErrInvalidParams = errors.New("invalid dataset parameters")

// DatasetParams are the optional inputs of GetMetaDataset.
type DatasetParams struct {
	StartDate       string
	EndDate         string
	IncludeInactive bool
}

// DateRangeInfo reports how the effective window was derived. Nil fields
// serialize as null.
type DateRangeInfo struct {
	RequestedStart *string `json:"requestedStart"`
	RequestedEnd   *string `json:"requestedEnd"`
	EffectiveStart *string `json:"effectiveStart"`
	EffectiveEnd   *string `json:"effectiveEnd"`
	AvailableStart *string `json:"availableStart"`
	AvailableEnd   *string `json:"availableEnd"`
}

// Hierarchy is the object list plus per-type projections.
type Hierarchy struct {
	Objects   []models.ObjectNode `json:"objects"`
	Campaigns []models.ObjectNode `json:"campaigns"`
	Adsets    []models.ObjectNode `json:"adsets"`
	Ads       []models.ObjectNode `json:"ads"`
}

// MetricsBundle holds the daily rows of each level.
type MetricsBundle struct {
	CampaignDaily []models.MetricRow `json:"campaignDaily"`
	AdsetDaily    []models.MetricRow `json:"adsetDaily"`
	AdDaily       []models.MetricRow `json:"adDaily"`
}

// Rows returns the rows of a level.
func (m *MetricsBundle) Rows(level models.Level) []models.MetricRow {
	switch level {
	case models.LevelAdset:
		return m.AdsetDaily
	case models.LevelAd:
		return m.AdDaily
	default:
		return m.CampaignDaily
	}
}

// IsEmpty reports whether no level has rows.
func (m *MetricsBundle) IsEmpty() bool {
	return len(m.CampaignDaily) == 0 && len(m.AdsetDaily) == 0 && len(m.AdDaily) == 0
}

// Dataset is the result of GetMetaDataset. It is always a complete
// skeleton; on failure Success is false and Error carries the cause.
type Dataset struct {
	Success         bool          `json:"success"`
	Store           string        `json:"store"`
	IncludeInactive bool          `json:"includeInactive"`
	DateRange       DateRangeInfo `json:"dateRange"`
	Hierarchy       Hierarchy     `json:"hierarchy"`
	Metrics         MetricsBundle `json:"metrics"`
	Error           string        `json:"error,omitempty"`
}

func emptyDataset(store string, includeInactive bool) *Dataset {
	return &Dataset{
		Store:           store,
		IncludeInactive: includeInactive,
		Hierarchy: Hierarchy{
			Objects:   []models.ObjectNode{},
			Campaigns: []models.ObjectNode{},
			Adsets:    []models.ObjectNode{},
			Ads:       []models.ObjectNode{},
		},
		Metrics: MetricsBundle{
			CampaignDaily: []models.MetricRow{},
			AdsetDaily:    []models.MetricRow{},
			AdDaily:       []models.MetricRow{},
		},
	}
}

// Assembler reads the hierarchy and daily metrics of a store.
type Assembler struct {
	store  storage.MetricStore
	logger *zap.Logger
}

// NewAssembler creates a dataset assembler.
func NewAssembler(store storage.MetricStore, logger *zap.Logger) *Assembler {
	return &Assembler{store: store, logger: logger.Named("dataset")}
}

// GetMetaDataset returns the hierarchy and the three metric arrays for the
// effective window: the requested range clamped to data availability. A
// missing metric table counts as empty. Any other failure returns the
// skeleton with Success=false alongside the error.
func (a *Assembler) GetMetaDataset(ctx context.Context, store string, p DatasetParams) (*Dataset, error) {
	ds := emptyDataset(store, p.IncludeInactive)
	ds.DateRange.RequestedStart = nullable(p.StartDate)
	ds.DateRange.RequestedEnd = nullable(p.EndDate)

	if err := validateParams(store, p); err != nil {
		ds.Error = err.Error()
		return ds, err
	}

	// Availability probe
	available, err := a.availableRange(ctx, store)
	if err != nil {
		return a.fail(ds, err)
	}
	ds.DateRange.AvailableStart = nullable(available.Min)
	ds.DateRange.AvailableEnd = nullable(available.Max)

	start, end := effectiveRange(p.StartDate, p.EndDate, available)
	ds.DateRange.EffectiveStart = nullable(start)
	ds.DateRange.EffectiveEnd = nullable(end)

	// Hierarchy
	pred := status.ForRequest(p.IncludeInactive)
	objects, err := a.store.ListObjects(ctx, storage.ObjectQuery{Store: store, Status: pred})
	if err != nil && !errors.Is(err, storage.ErrTableMissing) {
		return a.fail(ds, err)
	}
	if len(objects) > 0 {
		ds.Hierarchy.Objects = objects
		ds.Hierarchy.Campaigns = models.FilterObjects(objects, models.LevelCampaign)
		ds.Hierarchy.Adsets = models.FilterObjects(objects, models.LevelAdset)
		ds.Hierarchy.Ads = models.FilterObjects(objects, models.LevelAd)
	}

	// Metrics
	if start == "" || end == "" || start > end {
		ds.Success = true
		return ds, nil
	}
	for _, level := range models.Levels {
		rows, err := a.store.ListMetrics(ctx, storage.MetricQuery{
			Store:  store,
			Level:  level,
			Start:  start,
			End:    end,
			Status: pred,
		})
		if errors.Is(err, storage.ErrTableMissing) {
			a.logger.Debug("metric table missing", zap.String("store", store), zap.String("level", string(level)))
			continue
		}
		if err != nil {
			return a.fail(ds, err)
		}
		switch level {
		case models.LevelCampaign:
			ds.Metrics.CampaignDaily = rows
		case models.LevelAdset:
			ds.Metrics.AdsetDaily = rows
		case models.LevelAd:
			ds.Metrics.AdDaily = rows
		}
	}

	ds.Success = true
	return ds, nil
}

func (a *Assembler) fail(ds *Dataset, err error) (*Dataset, error) {
	a.logger.Error("failed to assemble dataset", zap.String("store", ds.Store), zap.Error(err))
	fresh := emptyDataset(ds.Store, ds.IncludeInactive)
	fresh.DateRange = ds.DateRange
	fresh.Error = err.Error()
	return fresh, err
}

// availableRange is [min of mins, max of maxes] across the level tables.
func (a *Assembler) availableRange(ctx context.Context, store string) (models.DateBounds, error) {
	var out models.DateBounds
	for _, level := range models.Levels {
		b, err := a.store.DateBounds(ctx, store, level)
		if errors.Is(err, storage.ErrTableMissing) {
			continue
		}
		if err != nil {
			return models.DateBounds{}, fmt.Errorf("%s bounds: %w", level, err)
		}
		if b.Min != "" && (out.Min == "" || b.Min < out.Min) {
			out.Min = b.Min
		}
		if b.Max != "" && (out.Max == "" || b.Max > out.Max) {
			out.Max = b.Max
		}
	}
	return out, nil
}

// effectiveRange fills missing bounds from availability and clamps
// requested bounds into it.
func effectiveRange(reqStart, reqEnd string, available models.DateBounds) (string, string) {
	start, end := reqStart, reqEnd
	if start == "" || (available.Min != "" && start < available.Min) {
		start = available.Min
	}
	if end == "" || (available.Max != "" && end > available.Max) {
		end = available.Max
	}
	return start, end
}

func validateParams(store string, p DatasetParams) error {
	if strings.TrimSpace(store) == "" {
		return fmt.Errorf("%w: store is required", ErrInvalidParams)
	}
	if p.StartDate != "" && !daterange.Valid(p.StartDate) {
		return fmt.Errorf("%w: startDate %q", ErrInvalidParams, p.StartDate)
	}
	if p.EndDate != "" && !daterange.Valid(p.EndDate) {
		return fmt.Errorf("%w: endDate %q", ErrInvalidParams, p.EndDate)
	}
	return nil
}

func nullable(s string) *string {
	return models.NullableString(s)
}
