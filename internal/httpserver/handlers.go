package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radiusdt/budget-intel/internal/advisor"
	"github.com/radiusdt/budget-intel/internal/aibudget"
	"github.com/radiusdt/budget-intel/internal/cache"
	"github.com/radiusdt/budget-intel/internal/daterange"
	"github.com/radiusdt/budget-intel/internal/intelligence"
	"github.com/radiusdt/budget-intel/internal/models"
	"github.com/radiusdt/budget-intel/internal/reactivation"
	"github.com/radiusdt/budget-intel/internal/status"
)

// request holds the parsed common query parameters.
type request struct {
	store           string
	includeInactive bool
	window          daterange.Range
}

func (s *Server) parseRequest(r *http.Request) request {
	q := r.URL.Query()
	store := strings.TrimSpace(q.Get("store"))
	if store == "" {
		store = s.config.Budget.DefaultStore
	}
	today := daterange.Today(s.clock, s.loc)
	return request{
		store:           store,
		includeInactive: status.ShouldIncludeInactive(q),
		window: daterange.Resolve(daterange.Params{
			Lookback:  q.Get("lookback"),
			Days:      q.Get("days"),
			StartDate: q.Get("startDate"),
			EndDate:   q.Get("endDate"),
		}, today),
	}
}

func (req request) datasetParams() aibudget.DatasetParams {
	return aibudget.DatasetParams{
		StartDate:       req.window.Start,
		EndDate:         req.window.End,
		IncludeInactive: req.includeInactive,
	}
}

// failureStatus maps a service error to an HTTP status.
func failureStatus(err error) int {
	if errors.Is(err, aibudget.ErrInvalidParams) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ---- AI Budget ----

func (s *Server) handleMetaDataset(w http.ResponseWriter, r *http.Request) {
	req := s.parseRequest(r)
	ds, err := s.assembler.GetMetaDataset(r.Context(), req.store, req.datasetParams())
	if err != nil {
		s.writeJSON(w, failureStatus(err), ds)
		return
	}
	s.jsonResponse(w, ds)
}

func (s *Server) handleAIBudgetData(w http.ResponseWriter, r *http.Request) {
	req := s.parseRequest(r)
	res, err := s.bridge.GetAIBudgetData(r.Context(), req.store, req.datasetParams())
	if err != nil {
		s.writeJSON(w, failureStatus(err), res)
		return
	}
	s.jsonResponse(w, res)
}

// WeeklyResponse wraps the weekly report with request context.
type WeeklyResponse struct {
	Success   bool                    `json:"success"`
	Store     string                  `json:"store"`
	DateRange *aibudget.DateRangeInfo `json:"dateRange"`
	*aibudget.WeeklyReport
	Error string `json:"error,omitempty"`
}

func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request) {
	req := s.parseRequest(r)
	opts := aibudget.WeeklyOptions{Lookback: req.window.Label}
	if lvl := r.URL.Query().Get("level"); lvl != "" {
		level, err := models.ParseLevel(lvl)
		if err != nil {
			s.errorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		opts.PrimaryLevel = level
	}

	data, err := s.bridge.GetAIBudgetData(r.Context(), req.store, req.datasetParams())

	resp := WeeklyResponse{
		Success:      err == nil,
		Store:        req.store,
		DateRange:    data.DateRange,
		WeeklyReport: aibudget.AggregateWeekly(data.Rows, opts),
	}
	if err != nil {
		resp.Error = err.Error()
		s.writeJSON(w, failureStatus(err), resp)
		return
	}
	s.jsonResponse(w, resp)
}

// ---- Budget Intelligence ----

func (s *Server) handleBudgetIntelligence(w http.ResponseWriter, r *http.Request) {
	req := s.parseRequest(r)
	params := intelligence.Params{
		Store:           req.store,
		DateStart:       req.window.Start,
		DateEnd:         req.window.End,
		IncludeInactive: req.includeInactive,
	}
	key := cache.Key("intel", req.store, params.DateStart, params.DateEnd,
		strconv.FormatBool(params.IncludeInactive), daterange.Format(daterange.Today(s.clock, s.loc)))

	res, err := cache.Fetch(r.Context(), s.loader, key, func(ctx context.Context) (*intelligence.Result, error) {
		res, err := s.engine.GetBudgetIntelligence(ctx, params)
		if err == nil && s.metrics != nil {
			g := res.GuidanceSummary
			s.metrics.RecordGuidance(g.Scale, g.Hold, g.Cut)
		}
		return res, err
	})
	if err != nil {
		if res == nil {
			res = intelligence.EmptyResult(req.store, s.engine.TargetRoas())
			res.Error = err.Error()
		}
		s.writeJSON(w, http.StatusInternalServerError, res)
		return
	}
	s.jsonResponse(w, res)
}

// ---- Reactivation ----

func (s *Server) reactivationParams(r *http.Request) (reactivation.Params, error) {
	var p reactivation.Params
	if v := r.URL.Query().Get("lookbackDays"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return p, fmt.Errorf("lookbackDays must be a positive integer")
		}
		p.LookbackDays = n
	}
	return p, nil
}

// reactivationStatus is 500 on error or when no level could be read.
func reactivationStatus(err error, success bool) int {
	if err != nil || !success {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

func (s *Server) reactivationKey(kind, store string, p reactivation.Params) string {
	return cache.Key(kind, store, strconv.Itoa(p.LookbackDays), daterange.Format(daterange.Today(s.clock, s.loc)))
}

func (s *Server) handleReactivationCandidates(w http.ResponseWriter, r *http.Request) {
	req := s.parseRequest(r)
	p, err := s.reactivationParams(r)
	if err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	key := s.reactivationKey("reactivation", req.store, p)
	res, err := cache.Fetch(r.Context(), s.loader, key, func(ctx context.Context) (*reactivation.Result, error) {
		res, err := s.scorer.GetCandidates(ctx, req.store, p)
		if err == nil && s.metrics != nil {
			s.metrics.SetReactivationCandidates(res.Summary.Campaigns, res.Summary.Adsets, res.Summary.Ads)
		}
		return res, err
	})
	if res == nil {
		res = reactivation.EmptyResult(req.store, p.LookbackDays)
	}
	if err != nil && res.Error == "" {
		res.Error = err.Error()
	}
	s.writeJSON(w, reactivationStatus(err, res.Success), res)
}

func (s *Server) handleReactivationSummary(w http.ResponseWriter, r *http.Request) {
	req := s.parseRequest(r)
	p, err := s.reactivationParams(r)
	if err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	key := s.reactivationKey("reactivation-summary", req.store, p)
	res, err := cache.Fetch(r.Context(), s.loader, key, func(ctx context.Context) (*reactivation.SummaryResult, error) {
		return s.scorer.GetSummary(ctx, req.store, p)
	})
	if res == nil {
		res = &reactivation.SummaryResult{Store: req.store}
	}
	if err != nil && res.Error == "" {
		res.Error = err.Error()
	}
	s.writeJSON(w, reactivationStatus(err, res.Success), res)
}

func (s *Server) handleReactivationCheck(w http.ResponseWriter, r *http.Request) {
	req := s.parseRequest(r)
	level, err := models.ParseLevel(chi.URLParam(r, "type"))
	if err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")

	c, err := s.scorer.CheckCandidate(r.Context(), req.store, id, level)
	if err != nil {
		s.logger.Error("reactivation check failed", zap.String("object_id", id), zap.Error(err))
		s.errorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, map[string]interface{}{
		"success":   true,
		"store":     req.store,
		"candidate": c,
	})
}

// ---- Awareness and advisor ----

func (s *Server) handleAwareness(w http.ResponseWriter, r *http.Request) {
	req := s.parseRequest(r)
	withReactivation := r.URL.Query().Get("includeReactivation") != "false"

	b, err := s.packager.Build(r.Context(), req.store, withReactivation)
	if err != nil {
		s.errorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, map[string]interface{}{
		"success":                true,
		"store":                  b.Store,
		"accountStructure":       b.AccountStructure,
		"reactivationCandidates": b.ReactivationCandidates,
		"prompt":                 b.Prompt,
	})
}

type askRequest struct {
	Store    string `json:"store"`
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var body askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&body); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.Question) == "" {
		s.errorResponse(w, "question is required", http.StatusBadRequest)
		return
	}
	store := strings.TrimSpace(body.Store)
	if store == "" {
		store = s.config.Budget.DefaultStore
	}

	ans, err := s.advisor.Ask(r.Context(), store, body.Question)
	switch {
	case errors.Is(err, advisor.ErrNotConfigured):
		s.errorResponse(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		s.errorResponse(w, "advisor failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	s.jsonResponse(w, map[string]interface{}{
		"success": true,
		"store":   store,
		"answer":  ans,
	})
}
