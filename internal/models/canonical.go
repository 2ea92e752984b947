package models

// UnknownCampaignName is emitted when a row's campaign cannot be resolved.
const UnknownCampaignName = "Unknown Campaign"

// BrandMeta tags canonical rows sourced from Meta Ads.
const BrandMeta = "meta"

// CanonicalRow is a metric row after field renaming and hierarchy
// enrichment. Every field is always serialized; nullable attributes are
// pointers so they encode as null.
type CanonicalRow struct {
	Date string `json:"date"`
	Geo  string `json:"geo"`

	Spend         float64 `json:"spend"`
	Purchases     float64 `json:"purchases"`
	PurchaseValue float64 `json:"purchase_value"`

	Impressions int64 `json:"impressions"`
	Clicks      int64 `json:"clicks"`
	Reach       int64 `json:"reach"`

	ATC              int64 `json:"atc"`
	IC               int64 `json:"ic"`
	LandingPageViews int64 `json:"landing_page_views"`

	Frequency float64 `json:"frequency"`
	CTR       float64 `json:"ctr"`
	CPC       float64 `json:"cpc"`
	CPM       float64 `json:"cpm"`

	CampaignID   string  `json:"campaign_id"`
	CampaignName string  `json:"campaign_name"`
	AdsetID      *string `json:"adset_id"`
	AdsetName    *string `json:"adset_name"`
	AdID         *string `json:"ad_id"`
	AdName       *string `json:"ad_name"`

	Status          string `json:"status"`
	EffectiveStatus string `json:"effective_status"`

	Budget         float64 `json:"budget"`
	DailyBudget    float64 `json:"daily_budget"`
	LifetimeBudget float64 `json:"lifetime_budget"`

	Objective        *string `json:"objective"`
	OptimizationGoal *string `json:"optimization_goal"`
	BidStrategy      *string `json:"bid_strategy"`

	Age               *string `json:"age"`
	Gender            *string `json:"gender"`
	PublisherPlatform *string `json:"publisher_platform"`
	PlatformPosition  *string `json:"platform_position"`

	Brand string `json:"brand"`
	Store string `json:"store"`
	Level Level  `json:"level"`
}

// NullableString maps the empty string to nil.
func NullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences p, returning "" for nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
