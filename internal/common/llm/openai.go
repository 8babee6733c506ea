package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/azure"
	"github.com/openai/openai-go/v2/option"
)

// Config selects and authenticates the completion provider.
type Config struct {
	Provider       string // openai | azure
	BaseURL        string
	APIKey         string
	APIVersion     string
	Model          string
	EmbeddingModel string
	Dimensions     int
	Timeout        time.Duration
	MaxRetries     int
}

// OpenAIClient implements Completer and Embedder over the OpenAI-compatible API.
type OpenAIClient struct {
	client openai.Client
	config Config
	logger Logger
}

// NewOpenAIClient builds a client for OpenAI or an Azure OpenAI deployment.
func NewOpenAIClient(cfg Config, log Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key is required", ErrUnavailable)
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}

	opts := []option.RequestOption{
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	switch strings.ToLower(cfg.Provider) {
	case "azure":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("%w: azure endpoint is required", ErrUnavailable)
		}
		version := cfg.APIVersion
		if version == "" {
			version = "2024-06-01"
		}
		opts = append(opts, azure.WithEndpoint(cfg.BaseURL, version), azure.WithAPIKey(cfg.APIKey))
	default:
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
	}

	return &OpenAIClient{
		client: openai.NewClient(opts...),
		config: cfg,
		logger: log.With(map[string]interface{}{
			"component": "llm",
			"provider":  cfg.Provider,
			"model":     cfg.Model,
		}),
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		c.logger.Warn("completion request failed", map[string]interface{}{
			"error":    err.Error(),
			"duration": time.Since(start).String(),
		})
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(c.config.EmbeddingModel),
	}
	if c.config.Dimensions > 0 {
		params.Dimensions = openai.Int(int64(c.config.Dimensions))
	}

	resp, err := c.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding: %v", ErrUnavailable, err)
	}
	if len(resp.Data) == 0 {
		return nil, ErrEmptyResponse
	}

	values := resp.Data[0].Embedding
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out, nil
}
