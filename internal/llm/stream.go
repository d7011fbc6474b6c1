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
	"sync"
	"time"
)

// DefaultIdleTimeout is the wall-clock silence window after which an
// in-flight stream is reported as stalled.
const DefaultIdleTimeout = 30 * time.Second

// UpdateKind distinguishes the shapes of data a UnifiedStream can emit.
type UpdateKind int

const (
	UpdateTextDelta UpdateKind = iota
	UpdateToolCallDelta
	UpdateReasoningDelta
	UpdateUsage
	UpdateCompletion
)

// StreamUpdate is one item in a UnifiedStream.
type StreamUpdate struct {
	Kind       UpdateKind
	Text       string
	ToolCallID string
	ToolName   string
	ToolInput  string // raw JSON fragment
	Usage      *Usage
	Response   *Response // set only when Kind == UpdateCompletion
}

// Usage mirrors the provider-agnostic token accounting the spec's
// TokenUsage shape adds on top of the teacher's narrower Usage struct.
type Usage struct {
	InputTokens       int
	OutputTokens      int
	CachedInputTokens int
	ReasoningTokens   int
	TotalTokens       int
	CostUSD           float64
}

// Response is a non-streaming (or fallback-completed) model response.
type Response struct {
	Content    string
	ToolCalls  []ToolCallResult
	StopReason string
	Usage      Usage
}

// ToolCallResult is one tool invocation requested by the model.
type ToolCallResult struct {
	ID    string
	Name  string
	Input string // raw JSON
}

// EventSink receives a clone of every update emitted by a UnifiedStream, for
// out-of-band observers (logging, telemetry) independent of the session
// loop's own single consumption of the stream.
type EventSink func(StreamUpdate)

// UnifiedStream is a restartable-once lazy sequence of stream updates. It is
// consumed exactly once by the session loop; Consume blocks until a
// completion update, a stall, a producer error, or the producer closing the
// stream.
type UnifiedStream struct {
	updates chan StreamUpdate
	errCh   chan error
	sink    EventSink

	idleTimeout time.Duration

	consumeOnce sync.Once
	consumed    bool
}

// NewUnifiedStream creates an empty stream. A producer sends StreamUpdate
// values on Updates() and ends with an UpdateCompletion update (or by
// closing that channel), or sends a single error on Errors() to report a
// failure.
func NewUnifiedStream(idleTimeout time.Duration, sink EventSink) *UnifiedStream {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &UnifiedStream{
		updates:     make(chan StreamUpdate, 16),
		errCh:       make(chan error, 1),
		sink:        sink,
		idleTimeout: idleTimeout,
	}
}

// Updates returns the channel a producer writes StreamUpdate values to.
func (s *UnifiedStream) Updates() chan<- StreamUpdate { return s.updates }

// Errors returns the channel a producer reports a terminal error on.
func (s *UnifiedStream) Errors() chan<- error { return s.errCh }

// Consume drains the stream until completion, stall, or producer error,
// invoking onUpdate for every update in transport order. It can only be
// called once per stream — a second call returns an error, matching the
// spec's "restartable-once" contract (the restart path is the caller
// constructing a fresh UnifiedStream for the fallback attempt, not reusing
// this one).
func (s *UnifiedStream) Consume(ctx context.Context, onUpdate func(StreamUpdate)) error {
	var consumeErr error
	ran := false
	s.consumeOnce.Do(func() {
		ran = true
		s.consumed = true
		consumeErr = s.consume(ctx, onUpdate)
	})
	if !ran {
		return &APIError{Kind: KindStreamError, Cause: errStreamAlreadyConsumed}
	}
	return consumeErr
}

var errStreamAlreadyConsumed = errAlreadyConsumed{}

type errAlreadyConsumed struct{}

func (errAlreadyConsumed) Error() string { return "stream already consumed" }

func (s *UnifiedStream) consume(ctx context.Context, onUpdate func(StreamUpdate)) error {
	timer := time.NewTimer(s.idleTimeout)
	defer timer.Stop()

	for {
		select {
		case update, ok := <-s.updates:
			if !ok {
				return nil
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.idleTimeout)

			if s.sink != nil {
				s.sink(update)
			}
			onUpdate(update)

			if update.Kind == UpdateCompletion {
				return nil
			}
		case err := <-s.errCh:
			return err
		case <-timer.C:
			return &APIError{Kind: KindStreamStall, Cause: errStreamStalled}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

var errStreamStalled = errStallTimeout{}

type errStallTimeout struct{}

func (errStallTimeout) Error() string { return "no stream activity within idle timeout" }
