package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radiusdt/budget-intel/internal/awareness"
	"github.com/radiusdt/budget-intel/internal/config"
	"github.com/radiusdt/budget-intel/internal/daterange"
	"github.com/radiusdt/budget-intel/internal/models"
	"github.com/radiusdt/budget-intel/internal/reactivation"
	"github.com/radiusdt/budget-intel/internal/storage"
)

func newPackager(t *testing.T) *awareness.Packager {
	t.Helper()
	s := storage.NewMemoryStore()
	require.NoError(t, s.UpsertObject(models.ObjectNode{
		Store: "vironax", ObjectType: models.LevelCampaign, ObjectID: "C1", ObjectName: "Live", EffectiveStatus: "ACTIVE",
	}))
	clock := daterange.FixedClock{T: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)}
	return awareness.NewPackager(s, reactivation.NewScorer(s, clock, time.UTC, zap.NewNop()), zap.NewNop())
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestAsk(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","model":"test-model",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Restart Winter."},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":120,"completion_tokens":8,"total_tokens":128}}`))
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{Endpoint: srv.URL + "/", Model: "test-model", APIKey: "test-key"}, newPackager(t), nil, zap.NewNop())
	require.True(t, c.Configured())

	ans, err := c.Ask(context.Background(), "vironax", "Which paused campaigns should I reactivate?")
	require.NoError(t, err)
	assert.Equal(t, "Restart Winter.", ans.Answer)
	assert.True(t, ans.UsedReactivation)
	assert.Equal(t, 120, ans.PromptTokens)
	assert.Equal(t, 8, ans.CompletionTokens)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "test-model", got.Model)
	assert.Contains(t, got.Messages[0].Content, "ACCOUNT STRUCTURE (vironax):")
	assert.Contains(t, got.Messages[0].Content, "REACTIVATION CANDIDATES")
	assert.Equal(t, "Which paused campaigns should I reactivate?", got.Messages[1].Content)
}

func TestAskNotConfigured(t *testing.T) {
	c := NewClient(config.LLMConfig{Model: "m"}, newPackager(t), nil, zap.NewNop())
	assert.False(t, c.Configured())
	_, err := c.Ask(context.Background(), "vironax", "hello")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAskRequiresQuestion(t *testing.T) {
	c := NewClient(config.LLMConfig{Endpoint: "http://127.0.0.1:1", Model: "m", APIKey: "k"}, newPackager(t), nil, zap.NewNop())
	_, err := c.Ask(context.Background(), "vironax", "   ")
	assert.Error(t, err)
}
