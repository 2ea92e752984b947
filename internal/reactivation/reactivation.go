// Package reactivation finds paused, archived and deleted Meta objects that
// performed well recently and scores them as comeback candidates.
package reactivation

import (
	"context"
	"errors"
	"fmt"
	"math"
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
	MinRoas             = 1.0
	MinConversions      = 1.0
	DefaultLookbackDays = 90
	MaxCandidates       = 20

	summaryTop = 3

	fallbackReason = "Historical data suggests potential"
	note           = "Campaign scope includes DELETED objects; ad sets and ads only PAUSED and ARCHIVED."
)

// Candidate is an inactive object with its lookback aggregate and score.
type Candidate struct {
	ObjectType      models.Level `json:"object_type"`
	ObjectID        string       `json:"object_id"`
	ObjectName      string       `json:"object_name"`
	CampaignID      string       `json:"campaign_id"`
	CampaignName    string       `json:"campaign_name"`
	AdsetID         string       `json:"adset_id,omitempty"`
	AdsetName       string       `json:"adset_name,omitempty"`
	EffectiveStatus string       `json:"effective_status"`

	TotalSpend       float64  `json:"total_spend"`
	TotalConversions float64  `json:"total_conversions"`
	TotalRevenue     float64  `json:"total_revenue"`
	AvgRoas          float64  `json:"avg_roas"`
	AvgCac           *float64 `json:"avg_cac"`
	FirstDate        string   `json:"first_date"`
	LastDate         string   `json:"last_date"`
	ActiveDays       int      `json:"active_days"`
	DaysSinceLast    int      `json:"days_since_last"`

	Score  float64 `json:"reactivation_score"`
	Reason string  `json:"reason"`
}

// Brief is the compact projection of a candidate used by summaries.
type Brief struct {
	ObjectID        string  `json:"object_id"`
	ObjectName      string  `json:"object_name"`
	EffectiveStatus string  `json:"effective_status"`
	AvgRoas         float64 `json:"avg_roas"`
	Score           float64 `json:"reactivation_score"`
	Reason          string  `json:"reason"`
}

type Summary struct {
	Total     int     `json:"total"`
	Campaigns int     `json:"campaigns"`
	Adsets    int     `json:"adsets"`
	Ads       int     `json:"ads"`
	TopScore  float64 `json:"topScore"`
}

// Result is the full candidate listing. Errors holds per-level failures;
// the other levels are still returned.
type Result struct {
	Success      bool              `json:"success"`
	Store        string            `json:"store"`
	Campaigns    []Candidate       `json:"campaigns"`
	Adsets       []Candidate       `json:"adsets"`
	Ads          []Candidate       `json:"ads"`
	Summary      Summary           `json:"summary"`
	DateRange    daterange.Range   `json:"dateRange"`
	LookbackDays int               `json:"lookbackDays"`
	Note         string            `json:"note"`
	Errors       map[string]string `json:"errors,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// Cacheable reports whether every level was read successfully.
func (r *Result) Cacheable() bool { return len(r.Errors) == 0 }

// SummaryResult holds the top candidates per level as briefs. Summary
// counts describe the trimmed lists.
type SummaryResult struct {
	Success      bool              `json:"success"`
	Store        string            `json:"store"`
	Campaigns    []Brief           `json:"campaigns"`
	Adsets       []Brief           `json:"adsets"`
	Ads          []Brief           `json:"ads"`
	Summary      Summary           `json:"summary"`
	DateRange    daterange.Range   `json:"dateRange"`
	LookbackDays int               `json:"lookbackDays"`
	Note         string            `json:"note"`
	Errors       map[string]string `json:"errors,omitempty"`
	Error        string            `json:"error,omitempty"`
}

func (r *SummaryResult) Cacheable() bool { return len(r.Errors) == 0 }

// Params tune a candidate scan. Zero LookbackDays means DefaultLookbackDays.
type Params struct {
	LookbackDays int
}

// Scorer reads the metric tables through a MetricStore.
type Scorer struct {
	store  storage.MetricStore
	clock  daterange.Clock
	loc    *time.Location
	logger *zap.Logger
}

func NewScorer(store storage.MetricStore, clock daterange.Clock, loc *time.Location, logger *zap.Logger) *Scorer {
	if loc == nil {
		loc = time.UTC
	}
	return &Scorer{store: store, clock: clock, loc: loc, logger: logger.Named("reactivation")}
}

// EmptyResult is the skeleton returned for a store without candidates.
func EmptyResult(store string, lookback int) *Result {
	return &Result{
		Store:        store,
		Campaigns:    []Candidate{},
		Adsets:       []Candidate{},
		Ads:          []Candidate{},
		LookbackDays: lookback,
		Note:         note,
	}
}

// GetCandidates scans each level independently. A level whose table is
// missing contributes no candidates; any other failure is recorded in
// Errors.
func (s *Scorer) GetCandidates(ctx context.Context, store string, p Params) (*Result, error) {
	lookback := p.LookbackDays
	if lookback <= 0 {
		lookback = DefaultLookbackDays
	}
	if strings.TrimSpace(store) == "" {
		res := EmptyResult(store, lookback)
		res.Error = "store is required"
		return res, errors.New(res.Error)
	}

	today := daterange.Today(s.clock, s.loc)
	res := EmptyResult(store, lookback)
	res.DateRange = daterange.Range{
		Start: daterange.Format(today.AddDate(0, 0, -lookback)),
		End:   daterange.Format(today),
		Label: fmt.Sprintf("%dd", lookback),
	}

	for _, level := range models.Levels {
		cands, err := s.scanLevel(ctx, store, level, res.DateRange, today, "")
		if err != nil {
			if res.Errors == nil {
				res.Errors = make(map[string]string)
			}
			res.Errors[string(level)] = err.Error()
			s.logger.Error("reactivation scan failed",
				zap.String("store", store),
				zap.String("level", string(level)),
				zap.Error(err),
			)
			continue
		}
		switch level {
		case models.LevelCampaign:
			res.Campaigns = cands
		case models.LevelAdset:
			res.Adsets = cands
		case models.LevelAd:
			res.Ads = cands
		}
	}

	res.Summary = summarize(res)
	res.Success = len(res.Errors) < len(models.Levels)
	if !res.Success {
		res.Error = "every level failed"
	}
	return res, nil
}

// GetSummary keeps the top candidates per level in compact form.
func (s *Scorer) GetSummary(ctx context.Context, store string, p Params) (*SummaryResult, error) {
	res, err := s.GetCandidates(ctx, store, p)
	out := &SummaryResult{
		Success:      res.Success,
		Store:        res.Store,
		Campaigns:    briefs(top(res.Campaigns, summaryTop)),
		Adsets:       briefs(top(res.Adsets, summaryTop)),
		Ads:          briefs(top(res.Ads, summaryTop)),
		DateRange:    res.DateRange,
		LookbackDays: res.LookbackDays,
		Note:         res.Note,
		Errors:       res.Errors,
		Error:        res.Error,
	}
	out.Summary = summarize(&Result{
		Campaigns: top(res.Campaigns, summaryTop),
		Adsets:    top(res.Adsets, summaryTop),
		Ads:       top(res.Ads, summaryTop),
	})
	return out, err
}

func briefs(cands []Candidate) []Brief {
	out := make([]Brief, 0, len(cands))
	for _, c := range cands {
		out = append(out, Brief{
			ObjectID:        c.ObjectID,
			ObjectName:      c.ObjectName,
			EffectiveStatus: c.EffectiveStatus,
			AvgRoas:         c.AvgRoas,
			Score:           c.Score,
			Reason:          c.Reason,
		})
	}
	return out
}

// CheckCandidate scores a single object. It returns nil when the object
// does not qualify.
func (s *Scorer) CheckCandidate(ctx context.Context, store, objectID string, level models.Level) (*Candidate, error) {
	if _, err := models.ParseLevel(string(level)); err != nil {
		return nil, err
	}
	today := daterange.Today(s.clock, s.loc)
	win := daterange.Range{
		Start: daterange.Format(today.AddDate(0, 0, -DefaultLookbackDays)),
		End:   daterange.Format(today),
	}
	cands, err := s.scanLevel(ctx, store, level, win, today, objectID)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, nil
	}
	return &cands[0], nil
}

type group struct {
	c         Candidate
	roasSum   float64
	roasCount int
	cacSum    float64
	cacCount  int
	days      map[string]struct{}
}

func (s *Scorer) scanLevel(ctx context.Context, store string, level models.Level, win daterange.Range, today time.Time, objectID string) ([]Candidate, error) {
	rows, err := s.store.ListMetrics(ctx, storage.MetricQuery{
		Store:    store,
		Level:    level,
		Start:    win.Start,
		End:      win.End,
		Status:   status.ReactivationScope(level),
		ObjectID: objectID,
	})
	if err != nil {
		if errors.Is(err, storage.ErrTableMissing) {
			return []Candidate{}, nil
		}
		return nil, err
	}

	groups := make(map[string]*group)
	order := make([]string, 0)
	for i := range rows {
		r := &rows[i]
		id := r.ObjectID(level)
		if id == "" {
			continue
		}
		g, ok := groups[id]
		if !ok {
			g = &group{
				c: Candidate{
					ObjectType:      level,
					ObjectID:        id,
					ObjectName:      r.ObjectName(level),
					CampaignID:      r.CampaignID,
					CampaignName:    r.CampaignName,
					EffectiveStatus: strings.ToUpper(r.LevelEffectiveStatus(level)),
				},
				days: make(map[string]struct{}),
			}
			if level != models.LevelCampaign {
				g.c.AdsetID, g.c.AdsetName = r.AdsetID, r.AdsetName
			}
			groups[id] = g
			order = append(order, id)
		}
		g.add(r)
	}

	out := make([]Candidate, 0, len(groups))
	for _, id := range order {
		c := groups[id].finish(today)
		if c.TotalConversions < MinConversions || c.AvgRoas < MinRoas {
			continue
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].AvgRoas > out[j].AvgRoas })
	out = top(out, MaxCandidates)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (g *group) add(r *models.MetricRow) {
	g.c.TotalSpend += r.Spend
	g.c.TotalConversions += r.Conversions
	g.c.TotalRevenue += r.ConversionValue
	if r.Spend > 0 {
		g.roasSum += r.ConversionValue / r.Spend
		g.roasCount++
	}
	if r.Conversions > 0 {
		g.cacSum += r.Spend / r.Conversions
		g.cacCount++
	}
	if g.c.FirstDate == "" || r.Date < g.c.FirstDate {
		g.c.FirstDate = r.Date
	}
	if g.c.LastDate == "" || r.Date > g.c.LastDate {
		g.c.LastDate = r.Date
	}
	g.days[r.Date] = struct{}{}
}

func (g *group) finish(today time.Time) Candidate {
	c := g.c
	if g.roasCount > 0 {
		c.AvgRoas = g.roasSum / float64(g.roasCount)
	}
	if g.cacCount > 0 {
		v := g.cacSum / float64(g.cacCount)
		c.AvgCac = &v
	}
	c.ActiveDays = len(g.days)
	if last, ok := daterange.Parse(c.LastDate, today.Location()); ok {
		c.DaysSinceLast = daterange.DaysBetween(last, today)
	}
	c.Score = Score(c.AvgRoas, c.TotalConversions, c.DaysSinceLast)
	c.Reason = Reason(c.AvgRoas, c.TotalConversions, c.TotalRevenue, c.TotalSpend)
	return c
}

// Score adds the ROAS, volume and recency components. The result lies in
// [0, 10].
func Score(avgRoas, conversions float64, daysSinceLast int) float64 {
	roasScore := math.Max(0, math.Min(avgRoas*2.5, 5))
	volumeScore := math.Max(0, math.Min(conversions*0.3, 3))
	recency := math.Max(0, 2-(float64(daysSinceLast)/30)*2)
	return roasScore + volumeScore + math.Min(recency, 2)
}

// Reason renders a short explanation of why the object is worth a look.
func Reason(avgRoas, conversions, revenue, spend float64) string {
	parts := make([]string, 0, 2)
	switch {
	case avgRoas >= 2:
		parts = append(parts, fmt.Sprintf("Excellent %.2fx ROAS", avgRoas))
	case avgRoas >= 1.5:
		parts = append(parts, fmt.Sprintf("Strong %.2fx ROAS", avgRoas))
	case avgRoas >= 1:
		parts = append(parts, fmt.Sprintf("Profitable %.2fx ROAS", avgRoas))
	}
	tier := len(parts) > 0

	switch {
	case conversions == 1:
		parts = append(parts, "1 conversion")
	case conversions > 0:
		parts = append(parts, fmt.Sprintf("%d conversions", int(math.Round(conversions))))
	}
	if !tier && revenue > spend {
		parts = append(parts, "Net profitable")
	}
	if len(parts) == 0 {
		return fallbackReason
	}
	return strings.Join(parts, ", ")
}

func summarize(res *Result) Summary {
	s := Summary{
		Campaigns: len(res.Campaigns),
		Adsets:    len(res.Adsets),
		Ads:       len(res.Ads),
	}
	s.Total = s.Campaigns + s.Adsets + s.Ads
	for _, list := range [][]Candidate{res.Campaigns, res.Adsets, res.Ads} {
		if len(list) > 0 && list[0].Score > s.TopScore {
			s.TopScore = list[0].Score
		}
	}
	return s
}

func top(c []Candidate, n int) []Candidate {
	if len(c) > n {
		return c[:n]
	}
	return c
}
