package intelligence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/radiusdt/budget-intel/internal/daterange"
	"github.com/radiusdt/budget-intel/internal/models"
	"github.com/radiusdt/budget-intel/internal/status"
	"github.com/radiusdt/budget-intel/internal/storage"
)

const (
	// PriorWindowDays is the trailing window behind every prior.
	PriorWindowDays = 60
	// ObservationWindowDays is the default caller window.
	ObservationWindowDays = 30
)

// Params select the store and observation window. Empty dates default to
// the last ObservationWindowDays days.
type Params struct {
	Store           string
	DateStart       string
	DateEnd         string
	IncludeInactive bool
}

// PriorStat is the trailing aggregate of one country, or of the store.
type PriorStat struct {
	Spend       float64  `json:"spend"`
	Revenue     float64  `json:"revenue"`
	Conversions float64  `json:"conversions"`
	Roas        *float64 `json:"roas"`
	Cac         *float64 `json:"cac"`
}

type Priors struct {
	ByCountry map[string]PriorStat `json:"byCountry"`
	Global    PriorStat            `json:"global"`
}

// CountryPosterior pairs the ROAS and CAC posteriors of a country.
type CountryPosterior struct {
	Country             string    `json:"country"`
	Roas                Posterior `json:"roas"`
	Cac                 Posterior `json:"cac"`
	ObservedSpend       float64   `json:"observedSpend"`
	ObservedRevenue     float64   `json:"observedRevenue"`
	ObservedConversions float64   `json:"observedConversions"`
}

// LearningEntry summarizes how much the engine knows about a country.
type LearningEntry struct {
	Country    string   `json:"country"`
	Roas       *float64 `json:"roas"`
	Band       *Band    `json:"band"`
	Stage      Stage    `json:"stage"`
	Depth      Depth    `json:"depth"`
	Category   string   `json:"category"`
	Spend      float64  `json:"spend"`
	ActiveDays int      `json:"activeDays"`
}

// Guidance is the live recommendation for one campaign in one country.
// The identifying and volume fields use canonical row names so the planner
// can render guidance next to canonical rows.
type Guidance struct {
	CampaignID    string       `json:"campaign_id"`
	CampaignName  string       `json:"campaign_name"`
	Geo           string       `json:"geo"`
	Spend         float64      `json:"spend"`
	Purchases     float64      `json:"purchases"`
	PurchaseValue float64      `json:"purchase_value"`
	Level         models.Level `json:"level"`
	Brand         string       `json:"brand"`
	Store         string       `json:"store"`

	RoasPosterior Posterior `json:"roasPosterior"`
	CacPosterior  Posterior `json:"cacPosterior"`
	RoasBand      *Band     `json:"roasBand"`
	LearningStage Stage     `json:"learningStage"`
	Depth         Depth     `json:"depth"`
	RoasCategory  string    `json:"roasCategory"`
	Action        Action    `json:"action"`
	Rationale     string    `json:"rationale"`
	ActiveDays    int       `json:"activeDays"`
}

type GuidanceSummary struct {
	Scale int `json:"scale"`
	Hold  int `json:"hold"`
	Cut   int `json:"cut"`
}

type CountryCount struct {
	Country   string `json:"country"`
	Campaigns int    `json:"campaigns"`
}

type Metadata struct {
	Store             string          `json:"store"`
	TargetRoas        float64         `json:"targetRoas"`
	IncludeInactive   bool            `json:"includeInactive"`
	PriorWindow       daterange.Range `json:"priorWindow"`
	ObservationWindow daterange.Range `json:"observationWindow"`
	PriorRows         int             `json:"priorRows"`
	ObservationRows   int             `json:"observationRows"`
	GeneratedAt       time.Time       `json:"generatedAt"`
}

// Result is the full budget intelligence payload.
type Result struct {
	Success            bool               `json:"success"`
	AvailableCountries []CountryCount     `json:"availableCountries"`
	Priors             Priors             `json:"priors"`
	Posteriors         []CountryPosterior `json:"posteriors"`
	LearningMap        []LearningEntry    `json:"learningMap"`
	LiveGuidance       []Guidance         `json:"liveGuidance"`
	GuidanceSummary    GuidanceSummary    `json:"guidanceSummary"`
	StartPlans         []StartPlan        `json:"startPlans"`
	PlanningDefaults   PlanningDefaults   `json:"planningDefaults"`
	Metadata           Metadata           `json:"metadata"`
	Error              string             `json:"error,omitempty"`
}

// EmptyResult is the skeleton returned alongside errors.
func EmptyResult(store string, target float64) *Result {
	return &Result{
		AvailableCountries: []CountryCount{},
		Priors:             Priors{ByCountry: map[string]PriorStat{}},
		Posteriors:         []CountryPosterior{},
		LearningMap:        []LearningEntry{},
		LiveGuidance:       []Guidance{},
		StartPlans:         []StartPlan{},
		PlanningDefaults:   defaults(target),
		Metadata:           Metadata{Store: store, TargetRoas: target},
	}
}

func defaults(target float64) PlanningDefaults {
	return PlanningDefaults{
		TargetRoas:    target,
		MinDailySpend: MinDailySpend,
		MaxDailySpend: MaxDailySpend,
		HorizonDays:   HorizonDays,
	}
}

// Engine computes budget intelligence from campaign-level daily metrics.
type Engine struct {
	store      storage.MetricStore
	clock      daterange.Clock
	loc        *time.Location
	targetRoas float64
	logger     *zap.Logger
}

// NewEngine creates an engine. A non-positive target falls back to
// DefaultTargetRoas.
func NewEngine(store storage.MetricStore, clock daterange.Clock, loc *time.Location, targetRoas float64, logger *zap.Logger) *Engine {
	if targetRoas <= 0 {
		targetRoas = DefaultTargetRoas
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		store:      store,
		clock:      clock,
		loc:        loc,
		targetRoas: targetRoas,
		logger:     logger.Named("intelligence"),
	}
}

// TargetRoas returns the configured target.
func (e *Engine) TargetRoas() float64 { return e.targetRoas }

// aggregate accumulates spend and outcomes over a set of rows.
type aggregate struct {
	spend       float64
	revenue     float64
	conversions float64
	name        string
	nameDate    string
	days        map[string]struct{}
	campaigns   map[string]struct{}
}

func newAggregate() *aggregate {
	return &aggregate{days: make(map[string]struct{}), campaigns: make(map[string]struct{})}
}

func (a *aggregate) add(r *models.MetricRow) {
	a.spend += r.Spend
	a.revenue += r.ConversionValue
	a.conversions += r.Conversions
	a.days[r.Date] = struct{}{}
	if r.CampaignID != "" {
		a.campaigns[r.CampaignID] = struct{}{}
	}
	if r.CampaignName != "" && r.Date >= a.nameDate {
		a.name, a.nameDate = r.CampaignName, r.Date
	}
}

func (a *aggregate) roas() *float64 { return ratio(a.revenue, a.spend) }
func (a *aggregate) cac() *float64  { return ratio(a.spend, a.conversions) }

func (a *aggregate) stat() PriorStat {
	return PriorStat{Spend: a.spend, Revenue: a.revenue, Conversions: a.conversions, Roas: a.roas(), Cac: a.cac()}
}

// GetBudgetIntelligence runs the full pipeline for a store. Missing metric
// tables yield an empty result, not an error.
func (e *Engine) GetBudgetIntelligence(ctx context.Context, p Params) (*Result, error) {
	if strings.TrimSpace(p.Store) == "" {
		return EmptyResult(p.Store, e.targetRoas), fmt.Errorf("store is required")
	}
	today := daterange.Today(e.clock, e.loc)
	res := EmptyResult(p.Store, e.targetRoas)
	res.Metadata.IncludeInactive = p.IncludeInactive
	res.Metadata.GeneratedAt = e.clock.Now().In(e.loc)

	// Step 1: priors over the trailing window, every status
	priorWin := daterange.Window(today, PriorWindowDays)
	res.Metadata.PriorWindow = priorWin
	priorRows, err := e.fetch(ctx, p.Store, priorWin, status.Any())
	if err != nil {
		return e.fail(res, err)
	}
	res.Metadata.PriorRows = len(priorRows)

	global := newAggregate()
	priorByCountry := make(map[string]*aggregate)
	for i := range priorRows {
		r := &priorRows[i]
		global.add(r)
		countryAgg(priorByCountry, countryKey(r.Country)).add(r)
	}
	res.Priors.Global = global.stat()
	for c, a := range priorByCountry {
		res.Priors.ByCountry[c] = a.stat()
	}

	// Step 2: observation window
	obsWin := observationWindow(p, today)
	res.Metadata.ObservationWindow = obsWin
	obsRows, err := e.fetch(ctx, p.Store, obsWin, status.ForRequest(p.IncludeInactive))
	if err != nil {
		return e.fail(res, err)
	}
	res.Metadata.ObservationRows = len(obsRows)

	obsByCountry := make(map[string]*aggregate)
	type campaignCountry struct{ campaign, country string }
	obsByCampaign := make(map[campaignCountry]*aggregate)
	for i := range obsRows {
		r := &obsRows[i]
		c := countryKey(r.Country)
		countryAgg(obsByCountry, c).add(r)
		k := campaignCountry{r.CampaignID, c}
		a, ok := obsByCampaign[k]
		if !ok {
			a = newAggregate()
			obsByCampaign[k] = a
		}
		a.add(r)
	}

	// Step 3 and 4: per-country posteriors, depth and stage
	countries := unionCountries(priorByCountry, obsByCountry)
	posteriors := make(map[string]CountryPosterior, len(countries))
	for _, c := range countries {
		obs := obsByCountry[c]
		if obs == nil {
			obs = newAggregate()
		}
		roas, cac := e.posteriors(priorByCountry[c], global, obs)
		cp := CountryPosterior{
			Country:             c,
			Roas:                roas.WithBand(),
			Cac:                 cac.WithBand(),
			ObservedSpend:       obs.spend,
			ObservedRevenue:     obs.revenue,
			ObservedConversions: obs.conversions,
		}
		posteriors[c] = cp
		res.Posteriors = append(res.Posteriors, cp)

		res.LearningMap = append(res.LearningMap, LearningEntry{
			Country:    c,
			Roas:       copyFloat(roas.Mean),
			Band:       cp.Roas.Band,
			Stage:      LearningStage(obs.spend, len(obs.days)),
			Depth:      DepthFor(roas.Weight),
			Category:   RoasCategory(roas.Mean),
			Spend:      obs.spend,
			ActiveDays: len(obs.days),
		})

		campaigns := make(map[string]struct{})
		for id := range obs.campaigns {
			campaigns[id] = struct{}{}
		}
		if pa := priorByCountry[c]; pa != nil {
			for id := range pa.campaigns {
				campaigns[id] = struct{}{}
			}
		}
		res.AvailableCountries = append(res.AvailableCountries, CountryCount{Country: c, Campaigns: len(campaigns)})
	}
	sort.SliceStable(res.LearningMap, func(i, j int) bool {
		return res.LearningMap[i].Spend > res.LearningMap[j].Spend
	})
	sort.SliceStable(res.AvailableCountries, func(i, j int) bool {
		return res.AvailableCountries[i].Campaigns > res.AvailableCountries[j].Campaigns
	})

	// Step 5: live guidance per campaign and country
	for k, obs := range obsByCampaign {
		roas, cac := e.posteriors(priorByCountry[k.country], global, obs)
		action, rationale := Decide(roas.Mean, e.targetRoas)
		g := Guidance{
			CampaignID:    k.campaign,
			CampaignName:  obs.name,
			Geo:           k.country,
			Spend:         obs.spend,
			Purchases:     obs.conversions,
			PurchaseValue: obs.revenue,
			Level:         models.LevelCampaign,
			Brand:         models.BrandMeta,
			Store:         p.Store,
			RoasPosterior: roas.WithBand(),
			CacPosterior:  cac.WithBand(),
			LearningStage: LearningStage(obs.spend, len(obs.days)),
			Depth:         DepthFor(roas.Weight),
			RoasCategory:  RoasCategory(roas.Mean),
			Action:        action,
			Rationale:     rationale,
			ActiveDays:    len(obs.days),
		}
		if g.CampaignName == "" {
			g.CampaignName = models.UnknownCampaignName
		}
		g.RoasBand = g.RoasPosterior.Band
		res.LiveGuidance = append(res.LiveGuidance, g)

		switch action {
		case ActionScale:
			res.GuidanceSummary.Scale++
		case ActionHold:
			res.GuidanceSummary.Hold++
		default:
			res.GuidanceSummary.Cut++
		}
	}
	sort.Slice(res.LiveGuidance, func(i, j int) bool {
		a, b := res.LiveGuidance[i], res.LiveGuidance[j]
		if a.Spend != b.Spend {
			return a.Spend > b.Spend
		}
		if a.CampaignID != b.CampaignID {
			return a.CampaignID < b.CampaignID
		}
		return a.Geo < b.Geo
	})

	// Step 6: starter plans
	for _, cc := range res.AvailableCountries {
		cp := posteriors[cc.Country]
		res.StartPlans = append(res.StartPlans, BuildStartPlan(cc.Country, cp.Roas, cp.Cac))
	}

	res.Success = true
	e.logger.Debug("budget intelligence computed",
		zap.String("store", p.Store),
		zap.Int("countries", len(countries)),
		zap.Int("guidance", len(res.LiveGuidance)),
	)
	return res, nil
}

// posteriors blends the country prior (or the global prior when the
// country has none) with an observation.
func (e *Engine) posteriors(countryPrior, global, obs *aggregate) (Posterior, Posterior) {
	prior := global
	hasHistory := countryPrior != nil && countryPrior.spend > 0
	if hasHistory {
		prior = countryPrior
	}
	var priorSpend float64
	if hasHistory {
		priorSpend = countryPrior.spend
	}
	pw := PriorWeight(priorSpend, hasHistory)
	ow := ObsWeight(obs.spend)

	roasPrior, cacPrior := prior.roas(), prior.cac()
	if hasHistory {
		// Fall back per metric: a country with spend but no conversions
		// still borrows the global CAC.
		if roasPrior == nil {
			roasPrior = global.roas()
		}
		if cacPrior == nil {
			cacPrior = global.cac()
		}
	}
	return Blend(roasPrior, pw, obs.roas(), ow), Blend(cacPrior, pw, obs.cac(), ow)
}

func (e *Engine) fetch(ctx context.Context, store string, win daterange.Range, pred status.Predicate) ([]models.MetricRow, error) {
	rows, err := e.store.ListMetrics(ctx, storage.MetricQuery{
		Store:  store,
		Level:  models.LevelCampaign,
		Start:  win.Start,
		End:    win.End,
		Status: pred,
	})
	if errors.Is(err, storage.ErrTableMissing) {
		e.logger.Warn("campaign metrics table missing", zap.String("store", store))
		return nil, nil
	}
	return rows, err
}

func (e *Engine) fail(res *Result, err error) (*Result, error) {
	e.logger.Error("budget intelligence failed", zap.String("store", res.Metadata.Store), zap.Error(err))
	out := EmptyResult(res.Metadata.Store, e.targetRoas)
	out.Metadata = res.Metadata
	out.Error = err.Error()
	return out, err
}

func observationWindow(p Params, today time.Time) daterange.Range {
	start, end := p.DateStart, p.DateEnd
	if !daterange.Valid(start) {
		start = ""
	}
	if !daterange.Valid(end) {
		end = ""
	}
	switch {
	case start == "" && end == "":
		return daterange.Window(today, ObservationWindowDays)
	case end == "":
		end = daterange.Format(today)
	case start == "":
		start = daterange.AddDays(end, -(ObservationWindowDays - 1))
	}
	if start > end {
		start, end = end, start
	}
	return daterange.Range{Start: start, End: end, Label: "custom"}
}

func countryKey(c string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return "unknown"
	}
	return c
}

func countryAgg(m map[string]*aggregate, c string) *aggregate {
	a, ok := m[c]
	if !ok {
		a = newAggregate()
		m[c] = a
	}
	return a
}

func unionCountries(maps ...map[string]*aggregate) []string {
	seen := make(map[string]struct{})
	for _, m := range maps {
		for c := range m {
			seen[c] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
