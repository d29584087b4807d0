package llm

import (
	"context"
	"errors"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/opsstack/incident-rca/internal/config"
	"github.com/opsstack/incident-rca/internal/utils"
)

// OpenAIClient implements Completer and Embedder against any OpenAI-compatible
// endpoint (OpenAI, OpenRouter, local gateways) via the configured base URL.
type OpenAIClient struct {
	client         *openai.Client
	model          string
	embeddingModel string
	temperature    float32
	maxTokens      int
	logger         *slog.Logger
}

// NewOpenAIClient constructs a client from config. Returns nil (capability
// absent) when no API key is configured; callers treat nil as "no completion".
func NewOpenAIClient(cfg config.CompletionConfig, embeddingModel string, logger *slog.Logger) *OpenAIClient {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(clientCfg),
		model:          cfg.Model,
		embeddingModel: embeddingModel,
		temperature:    cfg.Temperature,
		maxTokens:      cfg.MaxTokens,
		logger:         logger,
	}
}

// Complete sends a single-turn chat completion and returns the raw text.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a senior DevOps engineer analyzing production incidents."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", utils.NewAppError("llm.Complete", "chat completion request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", utils.NewAppError("llm.Complete", "completion returned no choices", errors.New("empty response"))
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed returns the vector for one text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: []string{text},
	})
	if err != nil {
		return nil, utils.NewAppError("llm.Embed", "embedding request failed", err)
	}
	if len(resp.Data) == 0 {
		return nil, utils.NewAppError("llm.Embed", "embedding returned no data", errors.New("empty response"))
	}
	return resp.Data[0].Embedding, nil
}
