// Package advisor answers budget questions with an OpenAI-compatible chat
// model, grounded on the awareness prompt for the store.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/radiusdt/budget-intel/internal/awareness"
	"github.com/radiusdt/budget-intel/internal/config"
)

// ErrNotConfigured is returned when no LLM API key is set.
var ErrNotConfigured = errors.New("advisor is not configured")

const systemPrompt = `You are a Meta Ads budget analyst for an e-commerce store.
Answer using only the account context provided. Be concise and quote numbers as given.`

// TokenRecorder receives token usage per answer.
type TokenRecorder interface {
	RecordAdvisorTokens(prompt, completion int)
}

// Answer is the advisor's reply.
type Answer struct {
	Answer           string `json:"answer"`
	Model            string `json:"model"`
	UsedReactivation bool   `json:"usedReactivation"`
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
}

type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	packager    *awareness.Packager
	rec         TokenRecorder
	logger      *zap.Logger
}

// NewClient builds an advisor. Without an API key the client is created
// but every Ask returns ErrNotConfigured.
func NewClient(cfg config.LLMConfig, packager *awareness.Packager, rec TokenRecorder, logger *zap.Logger) *Client {
	c := &Client{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		packager:    packager,
		rec:         rec,
		logger:      logger.Named("advisor"),
	}
	if !cfg.IsAvailable() {
		return c
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	}
	c.client = openai.NewClientWithConfig(clientConfig)
	return c
}

// Configured reports whether Ask can reach a model.
func (c *Client) Configured() bool { return c.client != nil }

// Ask answers question for store. Reactivation candidates are included in
// the context only when the question is about inactive objects.
func (c *Client) Ask(ctx context.Context, store, question string) (*Answer, error) {
	if c.client == nil {
		return nil, ErrNotConfigured
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}

	withReactivation := awareness.IsReactivationQuestion(question)
	bundle, err := c.packager.Build(ctx, store, withReactivation)
	if err != nil {
		return nil, fmt.Errorf("failed to build account context: %w", err)
	}

	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.String("store", store),
		zap.Bool("reactivation", withReactivation),
		zap.Int("context_len", len(bundle.Prompt)))

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt + "\n\n" + bundle.Prompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	})
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	c.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))
	if c.rec != nil {
		c.rec.RecordAdvisorTokens(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}

	return &Answer{
		Answer:           resp.Choices[0].Message.Content,
		Model:            c.model,
		UsedReactivation: withReactivation,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
