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

// Package bedrock adapts pkg/llm/bedrock.Client to internal/llm's
// provider-agnostic Generate/Stream contract.
package bedrock

import (
	"context"
	"encoding/json"

	pkgbedrock "github.com/teradata-labs/cocode/pkg/llm/bedrock"
	llmtypes "github.com/teradata-labs/cocode/pkg/llm/types"

	"github.com/teradata-labs/cocode/internal/llm"
)

// Adapter wraps a pkg/llm/bedrock.Client.
type Adapter struct {
	client *pkgbedrock.Client
}

// New wraps an existing Bedrock client.
func New(client *pkgbedrock.Client) *Adapter {
	return &Adapter{client: client}
}

// Generate implements internal/llm's providerClient contract.
func (a *Adapter) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	resp, err := a.client.Chat(ctx, toMessages(req.Messages), req.Tools)
	if err != nil {
		return nil, llm.ClassifyProviderError(err)
	}
	return toResponse(resp), nil
}

// Stream implements internal/llm's providerClient contract.
func (a *Adapter) Stream(ctx context.Context, req llm.Request, stream *llm.UnifiedStream) error {
	resp, err := a.client.ChatStream(ctx, toMessages(req.Messages), req.Tools, func(token string) {
		stream.Updates() <- llm.StreamUpdate{Kind: llm.UpdateTextDelta, Text: token}
	})
	if err != nil {
		stream.Errors() <- llm.ClassifyProviderError(err)
		return nil
	}
	stream.Updates() <- llm.StreamUpdate{Kind: llm.UpdateCompletion, Response: toResponse(resp)}
	return nil
}

func toMessages(msgs []llm.Message) []llmtypes.Message {
	out := make([]llmtypes.Message, len(msgs))
	for i, m := range msgs {
		out[i] = llmtypes.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

func toResponse(resp *llmtypes.LLMResponse) *llm.Response {
	toolCalls := make([]llm.ToolCallResult, len(resp.ToolCalls))
	for i, tc := range resp.ToolCalls {
		input, _ := json.Marshal(tc.Input)
		toolCalls[i] = llm.ToolCallResult{ID: tc.ID, Name: tc.Name, Input: string(input)}
	}
	return &llm.Response{
		Content:    resp.Content,
		ToolCalls:  toolCalls,
		StopReason: resp.StopReason,
		Usage: llm.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.TotalTokens,
			CostUSD:      resp.Usage.CostUSD,
		},
	}
}
