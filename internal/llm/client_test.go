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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	generateCalls atomic.Int32
	generateFunc  func(attempt int, req Request) (*Response, error)

	streamFunc func(ctx context.Context, req Request, stream *UnifiedStream) error
}

func (f *fakeProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	attempt := int(f.generateCalls.Add(1))
	return f.generateFunc(attempt, req)
}

func (f *fakeProvider) Stream(ctx context.Context, req Request, stream *UnifiedStream) error {
	return f.streamFunc(ctx, req, stream)
}

func TestClient_Generate_RetriesThenSucceeds(t *testing.T) {
	provider := &fakeProvider{
		generateFunc: func(attempt int, req Request) (*Response, error) {
			if attempt < 3 {
				return nil, &APIError{Kind: KindNetwork}
			}
			return &Response{Content: "ok"}, nil
		},
	}
	client := NewClient(provider, RetryPolicy{MaxRetries: 5, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}, nil)

	resp, err := client.Generate(context.Background(), Request{MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, int32(3), provider.generateCalls.Load())
}

func TestClient_Generate_OverflowRecoveryReducesMaxTokens(t *testing.T) {
	var seenMaxTokens []int
	provider := &fakeProvider{
		generateFunc: func(attempt int, req Request) (*Response, error) {
			seenMaxTokens = append(seenMaxTokens, req.MaxTokens)
			if req.MaxTokens > 4000 {
				return nil, &APIError{Kind: KindContextOverflow}
			}
			return &Response{Content: "ok"}, nil
		},
	}
	policy := RetryPolicy{EnableOverflowRecovery: true, MaxOverflowAttempts: 5, MinOutputTokens: 100}
	client := NewClient(provider, policy, nil)

	resp, err := client.Generate(context.Background(), Request{MaxTokens: 8192})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, []int{8192, 6144, 4608, 3456}, seenMaxTokens)
}

func TestClient_Generate_OverflowSurfacedWhenBelowMinOutput(t *testing.T) {
	provider := &fakeProvider{
		generateFunc: func(attempt int, req Request) (*Response, error) {
			return nil, &APIError{Kind: KindContextOverflow}
		},
	}
	policy := RetryPolicy{EnableOverflowRecovery: true, MaxOverflowAttempts: 5, MinOutputTokens: 7000}
	client := NewClient(provider, policy, nil)

	_, err := client.Generate(context.Background(), Request{MaxTokens: 8192})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindContextOverflow, apiErr.Kind)
}

func TestClient_StreamOrFallback_FallsBackToNonStreamingOnStreamError(t *testing.T) {
	provider := &fakeProvider{
		generateFunc: func(attempt int, req Request) (*Response, error) {
			return &Response{Content: "fallback-ok", Usage: Usage{OutputTokens: req.MaxTokens}}, nil
		},
		streamFunc: func(ctx context.Context, req Request, stream *UnifiedStream) error {
			stream.Errors() <- &APIError{Kind: KindStreamError}
			return nil
		},
	}
	policy := RetryPolicy{EnableStreamFallback: true, FallbackMaxTokens: 21333}
	client := NewClient(provider, policy, nil)

	var updates []StreamUpdate
	resp, err := client.StreamOrFallback(context.Background(), Request{MaxTokens: 8192}, nil, func(u StreamUpdate) {
		updates = append(updates, u)
	})
	require.NoError(t, err)
	assert.Equal(t, "fallback-ok", resp.Content)
	require.Len(t, updates, 1)
	assert.Equal(t, UpdateCompletion, updates[0].Kind)
}

func TestClient_StreamOrFallback_StreamErrorReportedVerbatimWhenFallbackDisabled(t *testing.T) {
	calls := 0
	provider := &fakeProvider{
		streamFunc: func(ctx context.Context, req Request, stream *UnifiedStream) error {
			calls++
			stream.Errors() <- &APIError{Kind: KindStreamError}
			return nil
		},
	}
	policy := RetryPolicy{EnableStreamFallback: false}
	client := NewClient(provider, policy, nil)

	_, err := client.StreamOrFallback(context.Background(), Request{MaxTokens: 100}, nil, func(StreamUpdate) {})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindStreamError, apiErr.Kind)
	assert.Equal(t, 1, calls)
}

func TestClient_StreamOrFallback_SucceedsWithoutFallback(t *testing.T) {
	provider := &fakeProvider{
		streamFunc: func(ctx context.Context, req Request, stream *UnifiedStream) error {
			stream.Updates() <- StreamUpdate{Kind: UpdateTextDelta, Text: "hi"}
			stream.Updates() <- StreamUpdate{Kind: UpdateCompletion, Response: &Response{Content: "hi"}}
			return nil
		},
	}
	client := NewClient(provider, DefaultRetryPolicy(), nil)

	resp, err := client.StreamOrFallback(context.Background(), Request{MaxTokens: 100}, nil, func(StreamUpdate) {})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content)
}
