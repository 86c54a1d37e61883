package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"yescity/internal/config"
	"yescity/internal/metrics"
)

// TextGenerator produces a completion for a single prompt
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// StreamGenerator is a TextGenerator that can also deliver partial output
type StreamGenerator interface {
	TextGenerator
	GenerateStream(ctx context.Context, prompt string, temperature float64, maxTokens int, onChunk func(content string) error) (string, error)
}

// OpenAIClient talks to any OpenAI-compatible chat endpoint (Ollama, vLLM, OpenAI)
type OpenAIClient struct {
	client  *openai.Client
	config  *config.LLMConfig
	timeout time.Duration
	logger  *zap.Logger
}

// NewOpenAIClient creates a new OpenAI-compatible client
func NewOpenAIClient(cfg *config.LLMConfig, logger *zap.Logger) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.APIBase, "/")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientCfg),
		config:  cfg,
		timeout: timeout,
		logger:  logger,
	}
}

// IsEnabled returns whether the client is configured and ready
func (c *OpenAIClient) IsEnabled() bool {
	return c != nil && c.config.Enabled
}

// Model returns the configured model name
func (c *OpenAIClient) Model() string {
	return c.config.Model
}

// Generate implements TextGenerator
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	if !c.IsEnabled() {
		return "", fmt.Errorf("text generation is disabled: %w", ErrUpstreamUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, c.request(prompt, temperature, maxTokens))
	c.observe(start, err)
	if err != nil {
		return "", parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response: %w", ErrUpstreamUnavailable)
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug("completion received",
		zap.String("model", c.config.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("took", time.Since(start)),
	)
	return content, nil
}

// GenerateStream implements StreamGenerator. onChunk receives each content delta;
// the full text is returned once the stream ends.
func (c *OpenAIClient) GenerateStream(ctx context.Context, prompt string, temperature float64, maxTokens int, onChunk func(content string) error) (string, error) {
	if !c.IsEnabled() {
		return "", fmt.Errorf("text generation is disabled: %w", ErrUpstreamUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	req := c.request(prompt, temperature, maxTokens)
	req.Stream = true

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		c.observe(start, err)
		return "", parseAPIError(err)
	}
	defer stream.Close()

	var full strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.observe(start, err)
			return "", parseAPIError(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onChunk != nil {
			if err := onChunk(delta); err != nil {
				c.observe(start, err)
				return "", err
			}
		}
	}

	c.observe(start, nil)
	return full.String(), nil
}

// HealthCheck verifies the endpoint answers a model listing
func (c *OpenAIClient) HealthCheck(ctx context.Context) error {
	if !c.IsEnabled() {
		return fmt.Errorf("text generation is disabled: %w", ErrUpstreamUnavailable)
	}
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (c *OpenAIClient) request(prompt string, temperature float64, maxTokens int) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
	}
}

func (c *OpenAIClient) observe(start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.LLMRequestsTotal.WithLabelValues(c.config.Model, status).Inc()
	metrics.LLMRequestDuration.WithLabelValues(c.config.Model).Observe(time.Since(start).Seconds())
}

// parseAPIError extracts a readable message and wraps ErrUpstreamUnavailable
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("model API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), ErrUpstreamUnavailable)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("model API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, ErrUpstreamUnavailable)
	}

	return fmt.Errorf("model request failed: %v: %w", err, ErrUpstreamUnavailable)
}
