// Package llm provides a rate-limited chat completion client used by the
// model-backed extractors. All calls go through a shared limiter so that
// consecutive requests keep a minimum spacing regardless of which extractor
// issues them.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"rxtract/internal/logger"
)

// Common errors returned by the client.
var (
	ErrMissingAPIKey  = errors.New("API key is required")
	ErrEmptyResponse  = errors.New("model returned empty response")
	ErrRequestFailed  = errors.New("completion request failed")
	ErrContextTimeout = errors.New("completion timed out")
)

// Completer sends a system/user prompt pair to a chat model and returns the
// raw text of the first choice.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config holds client settings.
type Config struct {
	// APIKey is the OpenAI API key.
	APIKey string

	// Model is the chat model name. Default: gpt-4o-mini.
	Model string

	// Temperature for completions. Extraction wants determinism, so this
	// defaults to 0.
	Temperature float32

	// MinInterval is the minimum spacing between consecutive model calls.
	// Default: 1s.
	MinInterval time.Duration

	// Timeout is the per-call deadline. Default: 60s.
	Timeout time.Duration

	// MaxAttempts is how many times a failed call is retried. Default: 3.
	MaxAttempts uint
}

// Client is a Completer backed by the OpenAI chat completion API.
type Client struct {
	api     *openai.Client
	config  Config
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient creates a completion client.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	if config.MinInterval <= 0 {
		config.MinInterval = time.Second
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = 3
	}

	return &Client{
		api:     openai.NewClient(config.APIKey),
		config:  config,
		limiter: rate.NewLimiter(rate.Every(config.MinInterval), 1),
		log:     logger.WithComponent("llm"),
	}, nil
}

// Complete sends the prompt pair and returns the first choice content.
// Calls wait on the shared limiter first, then retry transient failures
// up to the configured attempt count.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Temperature: c.config.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}

	start := time.Now()
	var content string

	err := retry.Do(
		func() error {
			resp, err := c.api.CreateChatCompletion(callCtx, req)
			if err != nil {
				return err
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
				return ErrEmptyResponse
			}
			content = resp.Choices[0].Message.Content
			return nil
		},
		retry.Context(callCtx),
		retry.Attempts(c.config.MaxAttempts),
		retry.Delay(2*time.Second),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn().
				Uint("attempt", n+1).
				Err(err).
				Msg("Completion attempt failed, retrying")
		}),
	)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w after %s", ErrContextTimeout, c.config.Timeout)
		}
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	c.log.Debug().
		Str("model", c.config.Model).
		Dur("duration", time.Since(start)).
		Int("response_length", len(content)).
		Msg("Completion succeeded")

	return content, nil
}
