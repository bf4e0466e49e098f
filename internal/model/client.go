// Package model wraps the Genkit text generation API behind a small
// completion client shared by the deconstruction and generation stages.
package model

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/riffle-ai/riffle/internal/log"
)

// Client produces completions from a single configured model. A shared
// rate limiter smooths bursts across the pipeline's model calls so a
// single turn's deconstruct-then-generate pair cannot trip provider
// quotas.
type Client struct {
	genkit    *genkit.Genkit
	modelName string
	limiter   *rate.Limiter
	logger    log.Logger
}

// Config holds Client dependencies.
type Config struct {
	Genkit    *genkit.Genkit
	ModelName string
	// Limiter is optional; nil applies a conservative default.
	Limiter *rate.Limiter
	Logger  log.Logger
}

func (c Config) validate() error {
	if c.Genkit == nil {
		return fmt.Errorf("genkit instance is required")
	}
	if c.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	return nil
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid model client config: %w", err)
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}
	return &Client{
		genkit:    cfg.Genkit,
		modelName: cfg.ModelName,
		limiter:   limiter,
		logger:    cfg.Logger,
	}, nil
}

// Complete generates a completion for the prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := genkit.Generate(ctx, c.genkit,
		ai.WithModelName(c.modelName),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("model generate: %w", err)
	}

	text := resp.Text()
	c.logger.DebugContext(ctx, "completion received",
		"model", c.modelName,
		"prompt_length", len(prompt),
		"response_length", len(text))
	return text, nil
}
