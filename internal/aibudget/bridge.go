package aibudget

import (
	"context"

	"go.uber.org/zap"

	"github.com/radiusdt/budget-intel/internal/models"
)

// BridgeResult is the standardized dataset handed to the planner. Hierarchy
// and DateRange are nil when no metric rows exist.
type BridgeResult struct {
	Success         bool                  `json:"success"`
	Store           string                `json:"store"`
	IncludeInactive bool                  `json:"includeInactive"`
	Rows            []models.CanonicalRow `json:"rows"`
	Hierarchy       *Tree                 `json:"hierarchy"`
	DateRange       *DateRangeInfo        `json:"dateRange"`
	Error           string                `json:"error,omitempty"`
}

// Bridge turns the Meta dataset into canonical rows.
type Bridge struct {
	assembler *Assembler
	logger    *zap.Logger
}

// NewBridge creates a bridge over an assembler.
func NewBridge(assembler *Assembler, logger *zap.Logger) *Bridge {
	return &Bridge{assembler: assembler, logger: logger.Named("bridge")}
}

// GetAIBudgetData assembles the dataset and standardizes every metric row.
func (b *Bridge) GetAIBudgetData(ctx context.Context, store string, p DatasetParams) (*BridgeResult, error) {
	ds, err := b.assembler.GetMetaDataset(ctx, store, p)
	res := &BridgeResult{
		Store:           store,
		IncludeInactive: p.IncludeInactive,
		Rows:            []models.CanonicalRow{},
	}
	if err != nil {
		res.Error = ds.Error
		return res, err
	}
	res.Success = true
	if ds.Metrics.IsEmpty() {
		return res, nil
	}

	res.Rows = Canonicalize(ds)
	res.Hierarchy = BuildTree(ds.Hierarchy.Objects)
	dr := ds.DateRange
	res.DateRange = &dr

	b.logger.Debug("standardized dataset",
		zap.String("store", store),
		zap.Int("rows", len(res.Rows)),
		zap.Int("campaigns", len(res.Hierarchy.Campaigns)),
	)
	return res, nil
}

// Canonicalize standardizes every metric row of ds, campaign rows first,
// then ad set rows, then ad rows.
func Canonicalize(ds *Dataset) []models.CanonicalRow {
	idx := newObjectIndex(ds.Hierarchy.Objects)
	out := make([]models.CanonicalRow, 0,
		len(ds.Metrics.CampaignDaily)+len(ds.Metrics.AdsetDaily)+len(ds.Metrics.AdDaily))
	for _, level := range models.Levels {
		for _, r := range ds.Metrics.Rows(level) {
			out = append(out, canonicalizeRow(r, level, idx))
		}
	}
	return out
}

// objectIndex resolves hierarchy nodes by id.
type objectIndex map[string]*models.ObjectNode

func newObjectIndex(objects []models.ObjectNode) objectIndex {
	idx := make(objectIndex, len(objects))
	for i := range objects {
		idx[objects[i].ObjectID] = &objects[i]
	}
	return idx
}

func (idx objectIndex) get(id string, t models.Level) *models.ObjectNode {
	if id == "" {
		return nil
	}
	if o, ok := idx[id]; ok && o.ObjectType == t {
		return o
	}
	return nil
}

// canonicalizeRow renames the Meta fields of r, fills hierarchy names and
// attributes from idx and derives the ratio metrics.
func canonicalizeRow(r models.MetricRow, level models.Level, idx objectIndex) models.CanonicalRow {
	// Resolve ancestors
	var ad, adset, campaign *models.ObjectNode
	if level == models.LevelAd {
		ad = idx.get(r.AdID, models.LevelAd)
	}
	adsetID := r.AdsetID
	if adsetID == "" && ad != nil {
		adsetID = ad.ParentID
	}
	if level != models.LevelCampaign {
		adset = idx.get(adsetID, models.LevelAdset)
	}
	campaignID := r.CampaignID
	if campaignID == "" {
		switch {
		case ad != nil && ad.GrandparentID != "":
			campaignID = ad.GrandparentID
		case adset != nil:
			campaignID = adset.ParentID
		}
	}
	campaign = idx.get(campaignID, models.LevelCampaign)

	c := models.CanonicalRow{
		Date: r.Date,
		Geo:  firstNonEmpty(r.Country, "unknown"),

		Spend:         r.Spend,
		Purchases:     r.Conversions,
		PurchaseValue: r.ConversionValue,

		Impressions: r.Impressions,
		Clicks:      r.Clicks,
		Reach:       r.Reach,

		ATC:              r.AddToCart,
		IC:               r.CheckoutsInitiated,
		LandingPageViews: r.LandingPageViews,

		CampaignID:   campaignID,
		CampaignName: firstNonEmpty(r.CampaignName, nodeName(campaign), models.UnknownCampaignName),

		Age:               models.NullableString(r.Age),
		Gender:            models.NullableString(r.Gender),
		PublisherPlatform: models.NullableString(r.PublisherPlatform),
		PlatformPosition:  models.NullableString(r.PlatformPosition),

		Brand: models.BrandMeta,
		Store: r.Store,
		Level: level,
	}

	// Derived ratios
	c.CTR = r.CTR
	if c.CTR == 0 {
		c.CTR = safeDiv(float64(r.Clicks), float64(r.Impressions)) * 100
	}
	c.CPC = safeDiv(r.Spend, float64(r.Clicks))
	c.CPM = safeDiv(r.Spend, float64(r.Impressions)) * 1000
	c.Frequency = r.Frequency
	if c.Frequency == 0 {
		c.Frequency = safeDiv(float64(r.Impressions), float64(r.Reach))
	}

	// Hierarchy names
	if level != models.LevelCampaign {
		c.AdsetID = models.NullableString(adsetID)
		adsetName := firstNonEmpty(r.AdsetName, nodeName(adset))
		if adsetName == "" && ad != nil {
			adsetName = ad.ParentName
		}
		c.AdsetName = models.NullableString(adsetName)
	}
	if level == models.LevelAd {
		c.AdID = models.NullableString(r.AdID)
		c.AdName = models.NullableString(firstNonEmpty(r.AdName, nodeName(ad)))
	}

	c.Status, c.EffectiveStatus = resolveStatus(r, level, ad, adset, campaign)
	c.Budget, c.DailyBudget, c.LifetimeBudget = resolveBudget(adset, campaign)

	if campaign != nil {
		c.Objective = models.NullableString(campaign.Objective)
	}
	c.OptimizationGoal = models.NullableString(firstNonEmpty(nodeOptimizationGoal(adset), nodeOptimizationGoal(campaign)))
	c.BidStrategy = models.NullableString(firstNonEmpty(nodeBidStrategy(adset), nodeBidStrategy(campaign)))

	return c
}

// resolveStatus walks the level-specific precedence: the row's level
// column, the row's campaign column, the level's node, the campaign node,
// then UNKNOWN.
func resolveStatus(r models.MetricRow, level models.Level, ad, adset, campaign *models.ObjectNode) (string, string) {
	var node *models.ObjectNode
	var rowStatus, rowEffective string
	switch level {
	case models.LevelAd:
		node, rowStatus, rowEffective = ad, r.AdStatus, r.AdEffectiveStatus
	case models.LevelAdset:
		node, rowStatus, rowEffective = adset, r.AdsetStatus, r.AdsetEffectiveStatus
	}

	effective := firstNonEmpty(rowEffective, r.EffectiveStatus, nodeEffectiveStatus(node), nodeEffectiveStatus(campaign), string(models.StatusUnknown))
	st := firstNonEmpty(rowStatus, r.Status, nodeStatus(node), nodeStatus(campaign), string(models.StatusUnknown))
	return st, effective
}

// resolveBudget prefers the ad set's daily then lifetime budget, then the
// campaign's. It returns the chosen budget and the daily/lifetime pair of
// the node that supplied it.
func resolveBudget(adset, campaign *models.ObjectNode) (budget, daily, lifetime float64) {
	for _, n := range []*models.ObjectNode{adset, campaign} {
		if n == nil {
			continue
		}
		if n.DailyBudget > 0 {
			return n.DailyBudget, n.DailyBudget, n.LifetimeBudget
		}
		if n.LifetimeBudget > 0 {
			return n.LifetimeBudget, n.DailyBudget, n.LifetimeBudget
		}
	}
	return 0, 0, 0
}

func nodeName(n *models.ObjectNode) string {
	if n == nil {
		return ""
	}
	return n.ObjectName
}

func nodeStatus(n *models.ObjectNode) string {
	if n == nil {
		return ""
	}
	return n.Status
}

func nodeEffectiveStatus(n *models.ObjectNode) string {
	if n == nil {
		return ""
	}
	return n.EffectiveStatus
}

func nodeOptimizationGoal(n *models.ObjectNode) string {
	if n == nil {
		return ""
	}
	return n.OptimizationGoal
}

func nodeBidStrategy(n *models.ObjectNode) string {
	if n == nil {
		return ""
	}
	return n.BidStrategy
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// safeDiv returns 0 when the divisor is not positive.
func safeDiv(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}
