// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/cocode/pkg/shuttle"
)

// Request is the provider-agnostic shape of a model call. The
// internal/llm/<vendor> adapters pass only Messages and Tools to their
// wrapped pkg/llm client; Model, MaxTokens and Temperature are not
// forwarded, so those clients send the values they were constructed with
// and a MaxTokens change made by overflow recovery or stream fallback does
// not reach the provider.
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	Tools       []shuttle.Tool
}

// Message is a provider-agnostic turn in the conversation, kept narrow
// deliberately — adapters own the richer content-block conversion the way
// pkg/llm/anthropic.Client.convertMessages does today.
type Message struct {
	Role    string
	Content string
}

// providerClient is the thin adapter interface each ProviderKind (Anthropic,
// Bedrock, Gemini, OpenAICompatible) implements, wrapping its existing
// pkg/llm/<provider> client.
type providerClient interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request, stream *UnifiedStream) error
}

// Client wraps a providerClient with retry, stall detection, stream
// fallback, and context-overflow recovery — the single place those
// concerns live, instead of duplicated per provider as in the teacher's
// pkg/llm/rate_limiter.go.
type Client struct {
	provider providerClient
	policy   RetryPolicy
	logger   *zap.Logger
}

// NewClient wraps provider with policy. A nil logger is replaced with a
// no-op logger.
func NewClient(provider providerClient, policy RetryPolicy, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{provider: provider, policy: policy, logger: logger}
}

// Generate issues a non-streaming call with retry and overflow recovery.
func (c *Client) Generate(ctx context.Context, req Request) (*Response, error) {
	rc := NewRetryContext(c.policy)
	overflowAttempts := 0

	for {
		resp, err := c.provider.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}

		if apiErr, ok := asAPIError(err); ok && apiErr.Kind == KindContextOverflow {
			if !c.policy.ShouldAttemptOverflowRecovery(overflowAttempts) {
				return nil, err
			}
			reduced, ok := ReduceMaxTokens(req.MaxTokens, c.policy.MinOutputTokens)
			if !ok {
				return nil, err
			}
			overflowAttempts++
			req.MaxTokens = reduced
			c.logger.Warn("reducing max_tokens after context overflow",
				zap.Int("attempt", overflowAttempts), zap.Int("max_tokens", reduced))
			continue
		}

		outcome, delay := rc.Decide(err)
		if outcome == OutcomeGiveUp {
			return nil, err
		}
		c.logger.Warn("retrying after API error", zap.Int("attempt", rc.CurrentAttempt), zap.Duration("delay", delay))
		if !sleep(ctx, delay) {
			return nil, ctx.Err()
		}
	}
}

// StreamOrFallback runs a streaming call, falling back once to a
// non-streaming Generate call if the stream reports a stream-level error
// (KindStreamError or KindStreamStall) and fallback is enabled. Updates
// from an aborted streaming attempt are never forwarded to onUpdate — only
// the winning attempt's updates are, preserving the ordering guarantee.
func (c *Client) StreamOrFallback(ctx context.Context, req Request, sink EventSink, onUpdate func(StreamUpdate)) (*Response, error) {
	rc := NewRetryContext(c.policy)
	overflowAttempts := 0
	usedFallback := false

	for {
		stream := NewUnifiedStream(DefaultIdleTimeout, sink)
		var final *Response
		var buffered []StreamUpdate
		streamErr := c.runStream(ctx, req, stream, func(u StreamUpdate) {
			if u.Kind == UpdateCompletion {
				final = u.Response
			}
			buffered = append(buffered, u)
		})

		if streamErr == nil {
			for _, u := range buffered {
				onUpdate(u)
			}
			return final, nil
		}

		apiErr, ok := asAPIError(streamErr)
		if !ok {
			return nil, streamErr
		}

		if apiErr.Kind == KindContextOverflow {
			if !c.policy.ShouldAttemptOverflowRecovery(overflowAttempts) {
				return nil, streamErr
			}
			reduced, ok := ReduceMaxTokens(req.MaxTokens, c.policy.MinOutputTokens)
			if !ok {
				return nil, streamErr
			}
			overflowAttempts++
			req.MaxTokens = reduced
			continue
		}

		isStreamLevel := apiErr.Kind == KindStreamError || apiErr.Kind == KindStreamStall
		if isStreamLevel && c.policy.EnableStreamFallback && !usedFallback {
			usedFallback = true
			fallbackReq := req
			if c.policy.FallbackMaxTokens > 0 {
				fallbackReq.MaxTokens = c.policy.FallbackMaxTokens
			}
			resp, err := c.Generate(ctx, fallbackReq)
			if err != nil {
				return nil, err
			}
			onUpdate(StreamUpdate{Kind: UpdateCompletion, Response: resp})
			return resp, nil
		}

		if isStreamLevel {
			// Fallback disabled (a fallback attempt always returns above):
			// report the stream-level failure as-is.
			return nil, streamErr
		}

		outcome, delay := rc.Decide(streamErr)
		if outcome == OutcomeGiveUp {
			return nil, streamErr
		}
		if !sleep(ctx, delay) {
			return nil, ctx.Err()
		}
	}
}

func (c *Client) runStream(ctx context.Context, req Request, stream *UnifiedStream, onUpdate func(StreamUpdate)) error {
	produceErr := make(chan error, 1)
	go func() {
		produceErr <- c.provider.Stream(ctx, req, stream)
	}()

	consumeErr := stream.Consume(ctx, onUpdate)
	if consumeErr != nil {
		return consumeErr
	}
	return <-produceErr
}

func asAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
