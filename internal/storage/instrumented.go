package storage

import (
	"context"
	"time"

	"github.com/radiusdt/budget-intel/internal/models"
)

// QueryObserver receives the latency of every store call.
type QueryObserver interface {
	ObserveStoreQuery(backend, op string, took time.Duration, err error)
}

// InstrumentedStore reports call latency of an underlying MetricStore.
type InstrumentedStore struct {
	inner   MetricStore
	backend string
	obs     QueryObserver
}

// Instrument wraps inner. A nil observer returns inner unchanged.
func Instrument(inner MetricStore, backend string, obs QueryObserver) MetricStore {
	if obs == nil {
		return inner
	}
	return &InstrumentedStore{inner: inner, backend: backend, obs: obs}
}

func (s *InstrumentedStore) DateBounds(ctx context.Context, store string, level models.Level) (models.DateBounds, error) {
	start := time.Now()
	b, err := s.inner.DateBounds(ctx, store, level)
	s.obs.ObserveStoreQuery(s.backend, "date_bounds", time.Since(start), err)
	return b, err
}

func (s *InstrumentedStore) ListObjects(ctx context.Context, q ObjectQuery) ([]models.ObjectNode, error) {
	start := time.Now()
	out, err := s.inner.ListObjects(ctx, q)
	s.obs.ObserveStoreQuery(s.backend, "list_objects", time.Since(start), err)
	return out, err
}

func (s *InstrumentedStore) ListMetrics(ctx context.Context, q MetricQuery) ([]models.MetricRow, error) {
	start := time.Now()
	out, err := s.inner.ListMetrics(ctx, q)
	s.obs.ObserveStoreQuery(s.backend, "list_metrics_"+string(q.Level), time.Since(start), err)
	return out, err
}

func (s *InstrumentedStore) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}
