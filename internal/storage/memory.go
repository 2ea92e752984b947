package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/radiusdt/budget-intel/internal/daterange"
	"github.com/radiusdt/budget-intel/internal/models"
)

// MemoryStore is an in-memory MetricStore. It backs tests and serves as
// the fallback when Postgres is unreachable in development.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]models.ObjectNode
	metrics map[models.Level][]models.MetricRow
	dropped map[models.Level]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]models.ObjectNode),
		metrics: make(map[models.Level][]models.MetricRow),
		dropped: make(map[models.Level]bool),
	}
}

// UpsertObject stores o keyed by object_id.
func (s *MemoryStore) UpsertObject(o models.ObjectNode) error {
	if err := o.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[o.ObjectID] = o
	return nil
}

// AddMetrics appends rows to a level's table.
func (s *MemoryStore) AddMetrics(level models.Level, rows ...models.MetricRow) error {
	if _, err := MetricTable(level); err != nil {
		return err
	}
	for _, r := range rows {
		if !daterange.Valid(r.Date) {
			return fmt.Errorf("row %s: invalid date %q", r.ObjectID(level), r.Date)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[level] = append(s.metrics[level], rows...)
	delete(s.dropped, level)
	return nil
}

// DropTable makes every read of a level's table fail with ErrTableMissing.
func (s *MemoryStore) DropTable(level models.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropped[level] = true
	delete(s.metrics, level)
}

func (s *MemoryStore) DateBounds(_ context.Context, store string, level models.Level) (models.DateBounds, error) {
	table, err := MetricTable(level)
	if err != nil {
		return models.DateBounds{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dropped[level] {
		return models.DateBounds{}, fmt.Errorf("failed to probe date bounds: %w: %s", ErrTableMissing, table)
	}

	var bounds models.DateBounds
	for _, r := range s.metrics[level] {
		if r.Store != store {
			continue
		}
		if bounds.Min == "" || r.Date < bounds.Min {
			bounds.Min = r.Date
		}
		if bounds.Max == "" || r.Date > bounds.Max {
			bounds.Max = r.Date
		}
	}
	return bounds, nil
}

func (s *MemoryStore) ListObjects(_ context.Context, q ObjectQuery) ([]models.ObjectNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ObjectNode, 0)
	for _, o := range s.objects {
		if !storeMatches(o.Store, q.Store, q.CaseInsensitiveStore) {
			continue
		}
		if !q.Status.Matches(o.EffectiveStatus) {
			continue
		}
		if len(q.Types) > 0 && !containsLevel(q.Types, o.ObjectType) {
			continue
		}
		if q.ObjectID != "" && o.ObjectID != q.ObjectID {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ObjectType != out[j].ObjectType {
			return out[i].ObjectType < out[j].ObjectType
		}
		if out[i].ObjectName != out[j].ObjectName {
			return out[i].ObjectName < out[j].ObjectName
		}
		return out[i].ObjectID < out[j].ObjectID
	})
	return out, nil
}

func (s *MemoryStore) ListMetrics(_ context.Context, q MetricQuery) ([]models.MetricRow, error) {
	table, err := MetricTable(q.Level)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dropped[q.Level] {
		return nil, fmt.Errorf("failed to list %s metrics: %w: %s", q.Level, ErrTableMissing, table)
	}

	out := make([]models.MetricRow, 0)
	for _, r := range s.metrics[q.Level] {
		if r.Store != q.Store {
			continue
		}
		if q.Start != "" && r.Date < q.Start {
			continue
		}
		if q.End != "" && r.Date > q.End {
			continue
		}
		if !q.Status.Matches(r.LevelEffectiveStatus(q.Level)) {
			continue
		}
		if q.ObjectID != "" && r.ObjectID(q.Level) != q.ObjectID {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func storeMatches(have, want string, caseInsensitive bool) bool {
	if caseInsensitive {
		return strings.EqualFold(have, want)
	}
	return have == want
}

func containsLevel(set []models.Level, l models.Level) bool {
	for _, v := range set {
		if v == l {
			return true
		}
	}
	return false
}
