package aibudget

import (
	"fmt"
	"sort"
	"time"

	"github.com/radiusdt/budget-intel/internal/daterange"
	"github.com/radiusdt/budget-intel/internal/models"
)

// WeeklyOptions configure AggregateWeekly.
type WeeklyOptions struct {
	// Lookback is echoed in the summary.
	Lookback string
	// PrimaryLevel is the level whose rows feed monetary sums. Campaign,
	// ad set and ad rows describe the same spend, so summing across levels
	// would count it up to three times. Defaults to campaign, falling back
	// to the first level that has rows.
	PrimaryLevel models.Level
}

// Totals are the summable metrics of a group of canonical rows.
type Totals struct {
	Spend            float64 `json:"spend"`
	Revenue          float64 `json:"revenue"`
	Purchases        float64 `json:"purchases"`
	Impressions      int64   `json:"impressions"`
	Clicks           int64   `json:"clicks"`
	Reach            int64   `json:"reach"`
	ATC              int64   `json:"atc"`
	IC               int64   `json:"ic"`
	LandingPageViews int64   `json:"landingPageViews"`
}

func (t *Totals) add(r *models.CanonicalRow) {
	t.Spend += r.Spend
	t.Revenue += r.PurchaseValue
	t.Purchases += r.Purchases
	t.Impressions += r.Impressions
	t.Clicks += r.Clicks
	t.Reach += r.Reach
	t.ATC += r.ATC
	t.IC += r.IC
	t.LandingPageViews += r.LandingPageViews
}

// Rates are derived from Totals; every divisor-zero case is 0.
type Rates struct {
	ROI            float64 `json:"roi"`
	ROAS           float64 `json:"roas"`
	CTR            float64 `json:"ctr"`
	ConversionRate float64 `json:"conversionRate"`
	CPC            float64 `json:"cpc"`
	CPA            float64 `json:"cpa"`
	ATCRate        float64 `json:"atcRate"`
	ICRate         float64 `json:"icRate"`
}

func (t Totals) rates() Rates {
	clicks := float64(t.Clicks)
	return Rates{
		ROI:            safeDiv(t.Revenue-t.Spend, t.Spend) * 100,
		ROAS:           safeDiv(t.Revenue, t.Spend),
		CTR:            safeDiv(clicks, float64(t.Impressions)) * 100,
		ConversionRate: safeDiv(t.Purchases, clicks) * 100,
		CPC:            safeDiv(t.Spend, clicks),
		CPA:            safeDiv(t.Spend, t.Purchases),
		ATCRate:        safeDiv(float64(t.ATC), clicks) * 100,
		ICRate:         safeDiv(float64(t.IC), float64(t.ATC)) * 100,
	}
}

// frequencyAvg averages positive frequencies.
type frequencyAvg struct {
	sum float64
	n   int
}

func (f *frequencyAvg) add(v float64) {
	if v > 0 {
		f.sum += v
		f.n++
	}
}

func (f frequencyAvg) value() float64 {
	if f.n == 0 {
		return 0
	}
	return f.sum / float64(f.n)
}

type WeeklySummary struct {
	Totals
	Rates
	AvgFrequency float64      `json:"avgFrequency"`
	Lookback     string       `json:"lookback"`
	PrimaryLevel models.Level `json:"primaryLevel"`
	Records      int          `json:"records"`
}

type WeekBucket struct {
	Week      string `json:"week"`
	WeekStart string `json:"weekStart"`
	WeekEnd   string `json:"weekEnd"`
	Totals
	Rates
	Campaigns int `json:"campaigns"`
	Adsets    int `json:"adsets"`
	Ads       int `json:"ads"`
}

// Trends are week-over-week percentage changes between the two latest
// buckets.
type Trends struct {
	Spend          float64 `json:"spend"`
	Revenue        float64 `json:"revenue"`
	Purchases      float64 `json:"purchases"`
	ROI            float64 `json:"roi"`
	CTR            float64 `json:"ctr"`
	ConversionRate float64 `json:"conversionRate"`
	CPC            float64 `json:"cpc"`
	CPA            float64 `json:"cpa"`
}

type CampaignSummary struct {
	CampaignID   string `json:"campaignId"`
	CampaignName string `json:"campaignName"`
	Totals
	Rates
	AvgFrequency float64 `json:"avgFrequency"`
}

type LevelSummary struct {
	Totals
	Records int `json:"records"`
}

// WeeklyReport is the output of AggregateWeekly.
type WeeklyReport struct {
	Summary         WeeklySummary           `json:"summary"`
	WeeklyBreakdown []WeekBucket            `json:"weeklyBreakdown"`
	Trends          *Trends                 `json:"trends"`
	Campaigns       []CampaignSummary       `json:"campaigns"`
	Levels          map[string]LevelSummary `json:"levels"`
}

// AggregateWeekly groups canonical rows into ISO weeks (Monday start).
// Monetary sums come from primary-level rows; distinct object counts and
// the per-level section use every row.
func AggregateWeekly(rows []models.CanonicalRow, opts WeeklyOptions) *WeeklyReport {
	primary := primaryLevel(rows, opts.PrimaryLevel)
	report := &WeeklyReport{
		Summary:         WeeklySummary{Lookback: opts.Lookback, PrimaryLevel: primary},
		WeeklyBreakdown: []WeekBucket{},
		Campaigns:       []CampaignSummary{},
		Levels:          make(map[string]LevelSummary),
	}

	type bucketAcc struct {
		bucket    WeekBucket
		start     time.Time
		campaigns map[string]struct{}
		adsets    map[string]struct{}
		ads       map[string]struct{}
	}
	type campaignAcc struct {
		summary CampaignSummary
		freq    frequencyAvg
	}

	buckets := make(map[string]*bucketAcc)
	campaigns := make(map[string]*campaignAcc)
	var campaignOrder []string
	var freq frequencyAvg

	for i := range rows {
		r := &rows[i]

		ls := report.Levels[string(r.Level)]
		ls.add(r)
		ls.Records++
		report.Levels[string(r.Level)] = ls

		day, ok := daterange.Parse(r.Date, time.UTC)
		if !ok {
			continue
		}
		key, start := isoWeek(day)
		b, ok := buckets[key]
		if !ok {
			b = &bucketAcc{
				bucket: WeekBucket{
					Week:      key,
					WeekStart: daterange.Format(start),
					WeekEnd:   daterange.Format(start.AddDate(0, 0, 6)),
				},
				start:     start,
				campaigns: make(map[string]struct{}),
				adsets:    make(map[string]struct{}),
				ads:       make(map[string]struct{}),
			}
			buckets[key] = b
		}
		if r.CampaignID != "" {
			b.campaigns[r.CampaignID] = struct{}{}
		}
		if id := models.StringValue(r.AdsetID); id != "" {
			b.adsets[id] = struct{}{}
		}
		if id := models.StringValue(r.AdID); id != "" {
			b.ads[id] = struct{}{}
		}

		if r.Level != primary {
			continue
		}
		b.bucket.Totals.add(r)
		report.Summary.Totals.add(r)
		report.Summary.Records++
		freq.add(r.Frequency)

		c, ok := campaigns[r.CampaignID]
		if !ok {
			c = &campaignAcc{summary: CampaignSummary{CampaignID: r.CampaignID, CampaignName: r.CampaignName}}
			campaigns[r.CampaignID] = c
			campaignOrder = append(campaignOrder, r.CampaignID)
		}
		c.summary.Totals.add(r)
		c.freq.add(r.Frequency)
	}

	report.Summary.AvgFrequency = freq.value()
	report.Summary.Rates = report.Summary.Totals.rates()

	accs := make([]*bucketAcc, 0, len(buckets))
	for _, b := range buckets {
		b.bucket.Rates = b.bucket.Totals.rates()
		b.bucket.Campaigns = len(b.campaigns)
		b.bucket.Adsets = len(b.adsets)
		b.bucket.Ads = len(b.ads)
		accs = append(accs, b)
	}
	sort.Slice(accs, func(i, j int) bool { return accs[i].start.After(accs[j].start) })
	for _, b := range accs {
		report.WeeklyBreakdown = append(report.WeeklyBreakdown, b.bucket)
	}

	if len(report.WeeklyBreakdown) >= 2 {
		report.Trends = weekOverWeek(report.WeeklyBreakdown[0], report.WeeklyBreakdown[1])
	}

	for _, id := range campaignOrder {
		c := campaigns[id]
		c.summary.Rates = c.summary.Totals.rates()
		c.summary.AvgFrequency = c.freq.value()
		report.Campaigns = append(report.Campaigns, c.summary)
	}
	sort.SliceStable(report.Campaigns, func(i, j int) bool {
		return report.Campaigns[i].Spend > report.Campaigns[j].Spend
	})

	return report
}

func weekOverWeek(latest, previous WeekBucket) *Trends {
	return &Trends{
		Spend:          PercentChange(latest.Spend, previous.Spend),
		Revenue:        PercentChange(latest.Revenue, previous.Revenue),
		Purchases:      PercentChange(latest.Purchases, previous.Purchases),
		ROI:            PercentChange(latest.ROI, previous.ROI),
		CTR:            PercentChange(latest.CTR, previous.CTR),
		ConversionRate: PercentChange(latest.ConversionRate, previous.ConversionRate),
		CPC:            PercentChange(latest.CPC, previous.CPC),
		CPA:            PercentChange(latest.CPA, previous.CPA),
	}
}

// PercentChange is (new-old)/old*100. A zero old value yields 100 when new
// is positive, else 0.
func PercentChange(newV, oldV float64) float64 {
	if oldV == 0 {
		if newV > 0 {
			return 100
		}
		return 0
	}
	return (newV - oldV) / oldV * 100
}

// isoWeek returns the ISO week key (e.g. 2024-W01) and its Monday.
func isoWeek(day time.Time) (string, time.Time) {
	year, week := day.ISOWeek()
	offset := (int(day.Weekday()) + 6) % 7
	return fmt.Sprintf("%04d-W%02d", year, week), day.AddDate(0, 0, -offset)
}

func primaryLevel(rows []models.CanonicalRow, want models.Level) models.Level {
	if want == "" {
		want = models.LevelCampaign
	}
	seen := make(map[models.Level]bool, 3)
	for i := range rows {
		seen[rows[i].Level] = true
	}
	if seen[want] || len(seen) == 0 {
		return want
	}
	for _, l := range models.Levels {
		if seen[l] {
			return l
		}
	}
	return want
}
