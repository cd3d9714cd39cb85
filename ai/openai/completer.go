// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/hypha/ai"
	"github.com/poiesic/hypha/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const systemPrompt = "You are an expert knowledge extraction system."

// Completer implements ai.Completer using OpenAI-compatible chat APIs.
type Completer struct {
	client      llms.Model
	temperature float64
	maxTokens   int
	maxAttempts int
	backoff     core.BackoffFunc
	logger      *slog.Logger
}

// newCompleter is an internal constructor that returns the concrete type.
func newCompleter(config *ai.Config) (*Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't
	// require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken("none"),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}

	return &Completer{
		client:      client,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		maxAttempts: config.MaxAttempts,
		backoff:     core.LinearBackoff(config.RetryDelay),
		logger:      slog.Default().With("component", "openai-completer"),
	}, nil
}

// NewCompleter creates an oracle adapter for the configured
// OpenAI-compatible service.
//
// Returns ai.Completer interface to enforce abstraction.
func NewCompleter(config *ai.Config) (ai.Completer, error) {
	return newCompleter(config)
}

// Complete sends the prompt and returns the model's raw text response.
// Transport failures are retried with linearly increasing backoff; the
// final attempt's error is wrapped with ai.ErrOracle, never swallowed.
// The response text is not interpreted here.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(systemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(prompt),
			},
		},
	}

	var text string
	err := core.RetryWithBackoff(ctx, func() error {
		response, err := c.client.GenerateContent(ctx, content,
			llms.WithTemperature(c.temperature),
			llms.WithMaxTokens(c.maxTokens),
			llms.WithJSONMode())
		if err != nil {
			return err
		}
		if len(response.Choices) < 1 {
			return fmt.Errorf("no choices returned from model")
		}
		text = response.Choices[0].Content
		return nil
	}, c.maxAttempts, c.backoff)

	if err != nil {
		c.logger.Error("completion failed after retries", "err", err)
		return "", fmt.Errorf("%w: %w", ai.ErrOracle, err)
	}
	return text, nil
}
