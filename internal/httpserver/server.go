package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radiusdt/budget-intel/internal/advisor"
	"github.com/radiusdt/budget-intel/internal/aibudget"
	"github.com/radiusdt/budget-intel/internal/awareness"
	"github.com/radiusdt/budget-intel/internal/cache"
	"github.com/radiusdt/budget-intel/internal/config"
	"github.com/radiusdt/budget-intel/internal/daterange"
	"github.com/radiusdt/budget-intel/internal/intelligence"
	"github.com/radiusdt/budget-intel/internal/metrics"
	"github.com/radiusdt/budget-intel/internal/middleware"
	"github.com/radiusdt/budget-intel/internal/reactivation"
	"github.com/radiusdt/budget-intel/internal/storage"
)

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	Store   storage.MetricStore
	Backend string
	Cache   cache.Cache
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Clock   daterange.Clock
	// Checks are extra dependencies reported by /health, keyed by name.
	Checks map[string]HealthChecker
}

// HealthChecker is a dependency that can report reachability.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server wraps HTTP handlers and the budget services.
type Server struct {
	store     storage.MetricStore
	backend   string
	assembler *aibudget.Assembler
	bridge    *aibudget.Bridge
	engine    *intelligence.Engine
	scorer    *reactivation.Scorer
	packager  *awareness.Packager
	advisor   *advisor.Client
	loader    *cache.Loader
	clock     daterange.Clock
	loc       *time.Location
	logger    *zap.Logger
	config    *config.Config
	metrics   *metrics.Metrics
	checks    map[string]HealthChecker
}

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	clock := deps.Clock
	if clock == nil {
		clock = daterange.SystemClock{}
	}
	loc := deps.Config.Location()

	// A nil *metrics.Metrics must not become a non-nil interface.
	var cacheRec cache.Recorder
	var tokenRec advisor.TokenRecorder
	if deps.Metrics != nil {
		cacheRec = deps.Metrics
		tokenRec = deps.Metrics
	}

	assembler := aibudget.NewAssembler(deps.Store, deps.Logger)
	scorer := reactivation.NewScorer(deps.Store, clock, loc, deps.Logger)
	packager := awareness.NewPackager(deps.Store, scorer, deps.Logger)

	s := &Server{
		store:     deps.Store,
		backend:   deps.Backend,
		assembler: assembler,
		bridge:    aibudget.NewBridge(assembler, deps.Logger),
		engine:    intelligence.NewEngine(deps.Store, clock, loc, deps.Config.Budget.TargetRoas, deps.Logger),
		scorer:    scorer,
		packager:  packager,
		advisor:   advisor.NewClient(deps.Config.LLM, packager, tokenRec, deps.Logger),
		loader:    cache.NewLoader(deps.Cache, deps.Config.Cache.TTL, cacheRec, deps.Logger),
		clock:     clock,
		loc:       loc,
		logger:    deps.Logger.Named("http"),
		config:    deps.Config,
		metrics:   deps.Metrics,
		checks:    deps.Checks,
	}

	r := chi.NewRouter()
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics).Handler)

	// Health check
	r.Get("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled && deps.Metrics != nil {
		r.Method(http.MethodGet, deps.Config.Metrics.Path, deps.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/aibudget", func(r chi.Router) {
			r.Get("/meta-dataset", s.handleMetaDataset)
			r.Get("/data", s.handleAIBudgetData)
			r.Get("/weekly", s.handleWeekly)
			r.Get("/awareness", s.handleAwareness)
			r.Post("/ask", s.handleAsk)
		})

		r.Get("/budget-intelligence", s.handleBudgetIntelligence)

		r.Route("/reactivation", func(r chi.Router) {
			r.Get("/candidates", s.handleReactivationCandidates)
			r.Get("/summary", s.handleReactivationSummary)
			r.Get("/check/{type}/{id}", s.handleReactivationCheck)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.errorResponse(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	return r
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	code := http.StatusOK
	state := "ok"
	checks := map[string]string{s.backend: "ok"}
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", zap.String("backend", s.backend), zap.Error(err))
		code, state = http.StatusServiceUnavailable, "degraded"
		checks[s.backend] = err.Error()
	}
	// Auxiliary dependencies degrade the status but not the HTTP code: the
	// store still answers without them.
	for name, c := range s.checks {
		if err := c.Health(ctx); err != nil {
			s.logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			state = "degraded"
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	s.writeJSON(w, code, map[string]interface{}{
		"status":  state,
		"backend": s.backend,
		"checks":  checks,
	})
}

// ---- Helper Methods ----

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	s.writeJSON(w, http.StatusOK, data)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	s.writeJSON(w, code, map[string]interface{}{"success": false, "error": message})
}
