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

// Package turn implements the per-turn execution loop: assembling a
// request from conversation history and the tool registry, streaming a
// model response, dispatching tool calls (with the shell-exec tool routed
// through the safety analyzer and approval/sandbox supervisor), and
// looping until the assistant produces a turn with no further tool calls.
package turn

import "sync"

// ItemKind distinguishes the five conversation item shapes.
type ItemKind int

const (
	ItemUserMessage ItemKind = iota
	ItemAssistantMessage
	ItemToolCall
	ItemToolResult
	ItemReasoning
)

// Item is one entry in a Conversation. Not every field is meaningful for
// every Kind; see the Kind-specific constructors below.
type Item struct {
	Kind       ItemKind
	TurnIndex  int
	Role       string
	Content    string
	ToolCallID string
	ToolName   string
	ToolInput  string // raw JSON
	IsError    bool
	Streaming  bool
	Aborted    bool
}

// TokenUsage holds the running, monotonically non-decreasing counters for
// a session plus the most recent turn's delta, tracked separately per the
// spec's invariant.
type TokenUsage struct {
	InputTokens       int
	OutputTokens      int
	CachedInputTokens int
	ReasoningTokens   int

	LastTurnDelta TurnUsageDelta
}

// TurnUsageDelta is the per-turn delta shape, tracked separately from
// TokenUsage's running counters since it is not itself monotonic.
type TurnUsageDelta struct {
	InputTokens       int
	OutputTokens      int
	CachedInputTokens int
	ReasoningTokens   int
}

// Add folds delta into the running counters and records it as the last
// turn's delta.
func (u *TokenUsage) Add(delta TurnUsageDelta) {
	u.InputTokens += delta.InputTokens
	u.OutputTokens += delta.OutputTokens
	u.CachedInputTokens += delta.CachedInputTokens
	u.ReasoningTokens += delta.ReasoningTokens
	u.LastTurnDelta = delta
}

// Conversation is the append-only (except for in-progress streaming
// assistant items) ordered sequence of turn items.
type Conversation struct {
	mu        sync.Mutex
	items     []Item
	nextIndex int
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds item to the conversation, assigning it the next turn index,
// and returns that index.
func (c *Conversation) Append(item Item) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	item.TurnIndex = c.nextIndex
	c.nextIndex++
	c.items = append(c.items, item)
	return len(c.items) - 1
}

// MutateStreaming applies fn to the item at position, the only case in
// which an already-appended item may change after the fact (an
// in-progress streaming assistant message).
func (c *Conversation) MutateStreaming(position int, fn func(*Item)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if position < 0 || position >= len(c.items) {
		return
	}
	fn(&c.items[position])
}

// Items returns a snapshot copy of the conversation so far.
func (c *Conversation) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len reports how many items the conversation currently holds.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
