package models

// MetricRow is a daily performance record from one of the three metric
// tables. Campaign-level rows leave the ad set and ad columns empty; ad set
// rows leave the ad columns empty.
type MetricRow struct {
	Store string `json:"store"`
	Date  string `json:"date"` // YYYY-MM-DD

	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	AdsetID      string `json:"adset_id,omitempty"`
	AdsetName    string `json:"adset_name,omitempty"`
	AdID         string `json:"ad_id,omitempty"`
	AdName       string `json:"ad_name,omitempty"`

	// Breakdowns
	Country           string `json:"country"`
	Age               string `json:"age"`
	Gender            string `json:"gender"`
	PublisherPlatform string `json:"publisher_platform"`
	PlatformPosition  string `json:"platform_position"`

	Spend              float64 `json:"spend"`
	Impressions        int64   `json:"impressions"`
	Reach              int64   `json:"reach"`
	Clicks             int64   `json:"clicks"`
	LandingPageViews   int64   `json:"landing_page_views"`
	AddToCart          int64   `json:"add_to_cart"`
	CheckoutsInitiated int64   `json:"checkouts_initiated"`
	Conversions        float64 `json:"conversions"`
	ConversionValue    float64 `json:"conversion_value"`
	Frequency          float64 `json:"frequency"`
	CTR                float64 `json:"ctr"`

	Status               string `json:"status"`
	EffectiveStatus      string `json:"effective_status"`
	AdsetStatus          string `json:"adset_status,omitempty"`
	AdsetEffectiveStatus string `json:"adset_effective_status,omitempty"`
	AdStatus             string `json:"ad_status,omitempty"`
	AdEffectiveStatus    string `json:"ad_effective_status,omitempty"`
}

// ObjectID returns the identifier of the object the row reports on.
func (r *MetricRow) ObjectID(level Level) string {
	switch level {
	case LevelAdset:
		return r.AdsetID
	case LevelAd:
		return r.AdID
	default:
		return r.CampaignID
	}
}

// ObjectName returns the name of the object the row reports on.
func (r *MetricRow) ObjectName(level Level) string {
	switch level {
	case LevelAdset:
		return r.AdsetName
	case LevelAd:
		return r.AdName
	default:
		return r.CampaignName
	}
}

// LevelEffectiveStatus returns the status column that governs filtering at
// the given level.
func (r *MetricRow) LevelEffectiveStatus(level Level) string {
	switch level {
	case LevelAdset:
		return r.AdsetEffectiveStatus
	case LevelAd:
		return r.AdEffectiveStatus
	default:
		return r.EffectiveStatus
	}
}

// DateBounds is the MIN/MAX date of a metric table for a store. Empty
// strings mean the table has no rows for the store.
type DateBounds struct {
	Min string
	Max string
}
