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
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/teradata-labs/cocode/internal/approval"
	"github.com/teradata-labs/cocode/internal/config"
	"github.com/teradata-labs/cocode/internal/llm"
	"github.com/teradata-labs/cocode/pkg/shuttle"
)

// ShellExecToolName is the well-known tool name the loop special-cases:
// calls to it are routed through the safety analyzer and approval/sandbox
// supervisor instead of being executed directly (pkg/shuttle/builtin's
// ShellExecuteTool.Name()).
const ShellExecToolName = "shell_execute"

// maxConcurrentToolCalls bounds the pool used to run a turn's read-only,
// concurrency-safe tool calls in parallel.
const maxConcurrentToolCalls = 4

// Options configures a Loop.
type Options struct {
	Registry        *shuttle.Registry
	LLMClient       *llm.Client
	Store           *config.Store
	Supervisor      *approval.Supervisor
	SandboxLauncher *approval.SandboxLauncher
	ApprovalPolicy  approval.ApprovalPolicy
	SandboxPolicy   approval.SandboxPolicy
	Provider        string
	Model           string
	Features        map[string]bool
	Logger          *zap.Logger
}

// Loop runs the turn-execution algorithm (§4.F) against one conversation.
type Loop struct {
	opts Options

	Conversation *Conversation
	Bus          *Bus
	Usage        TokenUsage

	mu                  sync.Mutex
	sessionApprovedCmds map[string]bool
	turnSeq             int
	logger              *zap.Logger
}

// NewLoop constructs a Loop ready to run turns.
func NewLoop(opts Options) *Loop {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		opts:                opts,
		Conversation:        NewConversation(),
		Bus:                 NewBus(),
		sessionApprovedCmds: make(map[string]bool),
		logger:              logger,
	}
}

// TurnAborted is returned by RunTurn when ctx is cancelled mid-turn.
type TurnAborted struct {
	TurnID string
	Reason string
}

func (e *TurnAborted) Error() string { return fmt.Sprintf("turn %s aborted: %s", e.TurnID, e.Reason) }

// RunTurn executes one user turn to completion: it repeats steps 1-5 of
// §4.F until the assistant produces a response with no further tool
// calls, per step 6.
func (l *Loop) RunTurn(ctx context.Context, systemPrompt, userInput string) error {
	l.mu.Lock()
	l.turnSeq++
	turnID := fmt.Sprintf("turn-%d", l.turnSeq)
	l.mu.Unlock()

	l.Conversation.Append(Item{Kind: ItemUserMessage, Role: "user", Content: userInput})
	l.Bus.Publish(Event{Kind: EventTurnStarted, TurnID: turnID})

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("turn aborted", zap.String("turn_id", turnID), zap.Error(ctx.Err()))
			l.Bus.Publish(Event{Kind: EventTurnAborted, TurnID: turnID, Reason: ctx.Err().Error()})
			return &TurnAborted{TurnID: turnID, Reason: ctx.Err().Error()}
		default:
		}

		hadToolCalls, err := l.runOneModelExchange(ctx, turnID, systemPrompt)
		if err != nil {
			if aborted, ok := err.(*TurnAborted); ok {
				l.Bus.Publish(Event{Kind: EventTurnAborted, TurnID: turnID, Reason: aborted.Reason})
				return aborted
			}
			return err
		}
		if !hadToolCalls {
			l.Bus.Publish(Event{Kind: EventTurnComplete, TurnID: turnID})
			return nil
		}
	}
}

// runOneModelExchange performs steps 1-5: assemble the request, resolve
// provider/model, stream the response, and dispatch any complete tool
// calls. It reports whether the assistant's turn ended with tool calls
// (meaning the loop must go around again).
func (l *Loop) runOneModelExchange(ctx context.Context, turnID, systemPrompt string) (bool, error) {
	resolvedModel, err := l.opts.Store.ResolveModel(l.opts.Provider, l.opts.Model)
	if err != nil {
		return false, fmt.Errorf("resolving model: %w", err)
	}
	if _, err := l.opts.Store.ResolveProvider(l.opts.Provider); err != nil {
		return false, fmt.Errorf("resolving provider: %w", err)
	}
	if systemPrompt == "" {
		systemPrompt = resolvedModel.BaseInstructions
	}

	req := llm.Request{
		Model:     l.opts.Model,
		Messages:  l.buildMessages(systemPrompt),
		MaxTokens: resolvedModel.MaxOutputTokens,
		Tools:     l.filteredTools(),
	}

	assistantPos := l.Conversation.Append(Item{Kind: ItemAssistantMessage, Role: "assistant", Streaming: true})

	var pendingToolCalls []llm.ToolCallResult
	onUpdate := func(u llm.StreamUpdate) {
		switch u.Kind {
		case llm.UpdateTextDelta:
			l.Conversation.MutateStreaming(assistantPos, func(it *Item) { it.Content += u.Text })
			l.Bus.Publish(Event{Kind: EventAssistantDelta, TurnID: turnID, Text: u.Text})
		case llm.UpdateReasoningDelta:
			l.Bus.Publish(Event{Kind: EventReasoningDelta, TurnID: turnID, Text: u.Text})
		case llm.UpdateCompletion:
			if u.Response != nil {
				pendingToolCalls = u.Response.ToolCalls
				l.Usage.Add(TurnUsageDelta{
					InputTokens:  u.Response.Usage.InputTokens,
					OutputTokens: u.Response.Usage.OutputTokens,
				})
			}
		}
	}

	_, err = l.opts.LLMClient.StreamOrFallback(ctx, req, nil, onUpdate)
	l.Conversation.MutateStreaming(assistantPos, func(it *Item) { it.Streaming = false })
	if err != nil {
		if ctx.Err() != nil {
			l.Conversation.MutateStreaming(assistantPos, func(it *Item) { it.Aborted = true })
			return false, &TurnAborted{TurnID: turnID, Reason: ctx.Err().Error()}
		}
		return false, err
	}

	if len(pendingToolCalls) == 0 {
		return false, nil
	}

	for _, tc := range pendingToolCalls {
		l.Conversation.Append(Item{
			Kind: ItemToolCall, ToolCallID: tc.ID, ToolName: tc.Name, ToolInput: tc.Input,
		})
	}
	l.dispatchToolCalls(ctx, turnID, pendingToolCalls)
	return true, nil
}

// buildMessages flattens the conversation so far (plus the system prompt)
// into the narrow llm.Message shape adapters expect.
func (l *Loop) buildMessages(systemPrompt string) []llm.Message {
	items := l.Conversation.Items()
	msgs := make([]llm.Message, 0, len(items)+1)
	if systemPrompt != "" {
		msgs = append(msgs, llm.Message{Role: "system", Content: systemPrompt})
	}
	for _, it := range items {
		switch it.Kind {
		case ItemUserMessage:
			msgs = append(msgs, llm.Message{Role: "user", Content: it.Content})
		case ItemAssistantMessage:
			if it.Content != "" {
				msgs = append(msgs, llm.Message{Role: "assistant", Content: it.Content})
			}
		case ItemToolResult:
			msgs = append(msgs, llm.Message{Role: "tool", Content: it.Content})
		}
	}
	return msgs
}

// filteredTools returns the registry's tools minus any whose FeatureGate
// names a feature not present in l.opts.Features, mirroring
// shuttle.Registry.DefinitionsFiltered but returning executable Tool
// values (the adapters need InputSchema/Execute, not just a definition).
func (l *Loop) filteredTools() []shuttle.Tool {
	all := l.opts.Registry.ListTools()
	out := make([]shuttle.Tool, 0, len(all))
	for _, t := range all {
		if gated, ok := t.(shuttle.FeatureGated); ok {
			feature := gated.FeatureGate()
			if feature != "" && !l.opts.Features[feature] {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// dispatchToolCalls executes step 5 for every tool call completed in this
// exchange: shell-exec calls go through the safety/approval/supervisor
// path; concurrency-safe read-only tools batch up to
// maxConcurrentToolCalls; everything else runs serially.
func (l *Loop) dispatchToolCalls(ctx context.Context, turnID string, calls []llm.ToolCallResult) {
	var parallel []llm.ToolCallResult
	var serial []llm.ToolCallResult

	for _, tc := range calls {
		tool, ok := l.opts.Registry.Get(tc.Name)
		if ok && shuttle.IsConcurrencySafe(tool) && shuttle.IsReadOnly(tool) {
			parallel = append(parallel, tc)
		} else {
			serial = append(serial, tc)
		}
	}

	if len(parallel) > 0 {
		l.runParallel(ctx, turnID, parallel)
	}
	for _, tc := range serial {
		l.runOne(ctx, turnID, tc)
	}
}

func (l *Loop) runParallel(ctx context.Context, turnID string, calls []llm.ToolCallResult) {
	sem := make(chan struct{}, maxConcurrentToolCalls)
	var wg sync.WaitGroup
	for _, tc := range calls {
		tc := tc
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			l.runOne(ctx, turnID, tc)
		}()
	}
	wg.Wait()
}

// runOne executes a single tool call and appends its result (or abort
// record) to the conversation, per step 5.d.
func (l *Loop) runOne(ctx context.Context, turnID string, tc llm.ToolCallResult) {
	l.Bus.Publish(Event{Kind: EventToolCallStart, TurnID: turnID, ToolCallID: tc.ID, ToolName: tc.Name})
	defer l.Bus.Publish(Event{Kind: EventToolCallEnd, TurnID: turnID, ToolCallID: tc.ID, ToolName: tc.Name})

	if ctx.Err() != nil {
		l.Conversation.Append(Item{Kind: ItemToolResult, ToolCallID: tc.ID, ToolName: tc.Name, IsError: true, Aborted: true, Content: ctx.Err().Error()})
		return
	}

	tool, ok := l.opts.Registry.Get(tc.Name)
	if !ok {
		l.logger.Warn("tool call for unknown tool", zap.String("tool", tc.Name), zap.String("tool_call_id", tc.ID))
		l.Conversation.Append(Item{
			Kind: ItemToolResult, ToolCallID: tc.ID, ToolName: tc.Name,
			IsError: true, Content: fmt.Sprintf("unknown tool: %s", tc.Name),
		})
		return
	}

	var params map[string]interface{}
	if tc.Input != "" {
		if err := json.Unmarshal([]byte(tc.Input), &params); err != nil {
			l.Conversation.Append(Item{
				Kind: ItemToolResult, ToolCallID: tc.ID, ToolName: tc.Name,
				IsError: true, Content: fmt.Sprintf("invalid tool input: %v", err),
			})
			return
		}
	}

	if tc.Name == ShellExecToolName {
		l.runShellExec(ctx, turnID, tc, params)
		return
	}

	result, err := tool.Execute(ctx, params)
	l.appendToolResult(tc, result, err)
}

// appendToolResult converts a shuttle.Result/error pair into a ToolResult
// conversation item.
func (l *Loop) appendToolResult(tc llm.ToolCallResult, result *shuttle.Result, err error) {
	if err != nil {
		l.Conversation.Append(Item{Kind: ItemToolResult, ToolCallID: tc.ID, ToolName: tc.Name, IsError: true, Content: err.Error()})
		return
	}
	item := Item{Kind: ItemToolResult, ToolCallID: tc.ID, ToolName: tc.Name}
	if result != nil {
		item.IsError = !result.Success
		if result.Error != nil {
			item.Content = result.Error.Message
		} else if data, err := json.Marshal(result.Data); err == nil {
			item.Content = string(data)
		}
	}
	l.Conversation.Append(item)
}
