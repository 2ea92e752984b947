package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mapCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet bool
	failSet bool
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string][]byte)} }

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, false, errors.New("connection refused")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return errors.New("connection refused")
	}
	m.data[key] = value
	return nil
}

type countingRecorder struct{ results map[string]int }

func (r *countingRecorder) RecordCache(result string)         { r.results[result]++ }
func (r *countingRecorder) RecordRedis(string, time.Duration) {}

type payload struct {
	Store string   `json:"store"`
	Roas  *float64 `json:"roas"`
}

func TestFetchCachesResult(t *testing.T) {
	c := newMapCache()
	rec := &countingRecorder{results: map[string]int{}}
	l := NewLoader(c, time.Minute, rec, zap.NewNop())

	calls := 0
	compute := func(context.Context) (payload, error) {
		calls++
		return payload{Store: "vironax"}, nil
	}
	key := Key("intel", "vironax", "2024-01-01", "2024-01-31")

	first, err := Fetch(context.Background(), l, key, compute)
	require.NoError(t, err)
	second, err := Fetch(context.Background(), l, key, compute)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Nil(t, second.Roas)
	assert.Equal(t, 1, calls)
	assert.Equal(t, map[string]int{"miss": 1, "hit": 1}, rec.results)
	assert.Equal(t, "budget-intel:intel:vironax:2024-01-01:2024-01-31", key)
}

func TestFetchBypassesBrokenCache(t *testing.T) {
	c := newMapCache()
	c.failGet, c.failSet = true, true
	l := NewLoader(c, time.Minute, nil, zap.NewNop())

	v, err := Fetch(context.Background(), l, "k", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	c := newMapCache()
	l := NewLoader(c, time.Minute, nil, zap.NewNop())

	_, err := Fetch(context.Background(), l, "k", func(context.Context) (int, error) { return 0, errors.New("store down") })
	require.Error(t, err)
	assert.Empty(t, c.data)
}

func TestDisabledLoader(t *testing.T) {
	l := NewLoader(nil, time.Minute, nil, zap.NewNop())
	calls := 0
	for i := 0; i < 2; i++ {
		_, err := Fetch(context.Background(), l, "k", func(context.Context) (int, error) { calls++; return calls, nil })
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

type levelResult struct {
	Errors map[string]string `json:"errors,omitempty"`
}

func (r *levelResult) Cacheable() bool { return len(r.Errors) == 0 }

func TestFetchSkipsPartialResults(t *testing.T) {
	c := newMapCache()
	l := NewLoader(c, time.Minute, nil, zap.NewNop())
	key := Key("reactivation", "vironax")

	failing := true
	compute := func(context.Context) (*levelResult, error) {
		if failing {
			return &levelResult{Errors: map[string]string{"campaign": "timeout"}}, nil
		}
		return &levelResult{}, nil
	}

	res, err := Fetch(context.Background(), l, key, compute)
	require.NoError(t, err)
	assert.Len(t, res.Errors, 1)
	assert.Empty(t, c.data, "partial result must not be stored")

	failing = false
	res, err = Fetch(context.Background(), l, key, compute)
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Contains(t, c.data, key)
}
