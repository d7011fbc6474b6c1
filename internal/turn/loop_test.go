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
package turn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/cocode/internal/config"
	"github.com/teradata-labs/cocode/internal/llm"
	"github.com/teradata-labs/cocode/pkg/shuttle"
)

// fakeProvider satisfies internal/llm's unexported providerClient interface
// structurally, the same pattern internal/llm/client_test.go uses for its
// own fakeProvider.
type fakeProvider struct {
	// responses is popped front-to-back, one per streamed exchange.
	responses []llm.Response
}

func (f *fakeProvider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return f.next(), nil
}

func (f *fakeProvider) Stream(ctx context.Context, req llm.Request, stream *llm.UnifiedStream) error {
	resp := f.next()
	stream.Updates() <- llm.StreamUpdate{Kind: llm.UpdateTextDelta, Text: resp.Content}
	stream.Updates() <- llm.StreamUpdate{Kind: llm.UpdateCompletion, Response: &resp}
	return nil
}

func (f *fakeProvider) next() llm.Response {
	if len(f.responses) == 0 {
		return llm.Response{}
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return r
}

type echoTool struct {
	name string
}

func (e *echoTool) Name() string                     { return e.name }
func (e *echoTool) Description() string              { return "echoes its input" }
func (e *echoTool) InputSchema() *shuttle.JSONSchema { return shuttle.NewObjectSchema("", nil, nil) }
func (e *echoTool) Backend() string                  { return "" }
func (e *echoTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	return &shuttle.Result{Success: true, Data: params}, nil
}

func newTestLoop(t *testing.T, provider *fakeProvider) *Loop {
	t.Helper()
	store := &config.Store{
		Providers: map[string]config.ProviderRecord{
			"test-provider": {Name: "test-provider", InlineAPIKey: "test-key"},
		},
	}
	config.RegisterBuiltinModel(config.ModelRecord{Slug: "test-model"})

	registry := shuttle.NewRegistry()
	registry.Register(&echoTool{name: "echo"})

	client := llm.NewClient(provider, llm.DefaultRetryPolicy(), nil)
	return NewLoop(Options{
		Registry:  registry,
		LLMClient: client,
		Store:     store,
		Provider:  "test-provider",
		Model:     "test-model",
		Features:  map[string]bool{},
	})
}

func TestRunTurn_NoToolCallsCompletesImmediately(t *testing.T) {
	loop := newTestLoop(t, &fakeProvider{responses: []llm.Response{{Content: "hello there"}}})

	err := loop.RunTurn(context.Background(), "be helpful", "hi")
	require.NoError(t, err)

	items := loop.Conversation.Items()
	require.Len(t, items, 2)
	assert.Equal(t, ItemUserMessage, items[0].Kind)
	assert.Equal(t, ItemAssistantMessage, items[1].Kind)
	assert.Equal(t, "hello there", items[1].Content)
	assert.False(t, items[1].Streaming)
}

func TestRunTurn_ToolCallLoopsThenCompletes(t *testing.T) {
	provider := &fakeProvider{responses: []llm.Response{
		{
			Content:    "",
			ToolCalls:  []llm.ToolCallResult{{ID: "1", Name: "echo", Input: `{"msg":"hi"}`}},
			StopReason: "tool_use",
		},
		{Content: "done"},
	}}
	loop := newTestLoop(t, provider)

	err := loop.RunTurn(context.Background(), "", "run echo")
	require.NoError(t, err)

	items := loop.Conversation.Items()
	var sawToolCall, sawToolResult bool
	for _, it := range items {
		if it.Kind == ItemToolCall && it.ToolName == "echo" {
			sawToolCall = true
		}
		if it.Kind == ItemToolResult && it.ToolName == "echo" {
			sawToolResult = true
			assert.False(t, it.IsError)
		}
	}
	assert.True(t, sawToolCall)
	assert.True(t, sawToolResult)
}

func TestRunTurn_UnknownToolProducesErrorResult(t *testing.T) {
	provider := &fakeProvider{responses: []llm.Response{
		{ToolCalls: []llm.ToolCallResult{{ID: "1", Name: "nonexistent", Input: "{}"}}},
		{Content: "done"},
	}}
	loop := newTestLoop(t, provider)

	err := loop.RunTurn(context.Background(), "", "go")
	require.NoError(t, err)

	var found bool
	for _, it := range loop.Conversation.Items() {
		if it.Kind == ItemToolResult && it.ToolName == "nonexistent" {
			found = true
			assert.True(t, it.IsError)
		}
	}
	assert.True(t, found)
}

func TestRunTurn_CancelledContextAborts(t *testing.T) {
	loop := newTestLoop(t, &fakeProvider{responses: []llm.Response{{Content: "hi"}}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := loop.RunTurn(ctx, "", "hi")
	require.Error(t, err)
	var aborted *TurnAborted
	require.ErrorAs(t, err, &aborted)
}

func TestBus_PublishDeliversToSubscriber(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	bus.Publish(Event{Kind: EventTurnStarted, TurnID: "turn-1"})

	select {
	case e := <-ch:
		assert.Equal(t, EventTurnStarted, e.Kind)
		assert.Equal(t, "turn-1", e.TurnID)
	default:
		t.Fatal("expected event to be delivered")
	}
}

func TestTokenUsage_AddAccumulatesAndTracksDelta(t *testing.T) {
	var u TokenUsage
	u.Add(TurnUsageDelta{InputTokens: 10, OutputTokens: 5})
	u.Add(TurnUsageDelta{InputTokens: 3, OutputTokens: 2})

	assert.Equal(t, 13, u.InputTokens)
	assert.Equal(t, 7, u.OutputTokens)
	assert.Equal(t, 3, u.LastTurnDelta.InputTokens)
}
