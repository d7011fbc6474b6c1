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

// Package observability provides lightweight span/metric instrumentation for
// cocode's runtime: LLM calls, tool executions, and MCP round trips all start
// a span so latency and failure attribution show up in logs uniformly.
package observability

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StatusCode represents the final status of a span.
type StatusCode int

const (
	StatusUnset StatusCode = iota
	StatusOK
	StatusError
)

func (s StatusCode) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	default:
		return "unset"
	}
}

// Status is the final status of a span with an optional message.
type Status struct {
	Code    StatusCode
	Message string
}

// Event is a point-in-time occurrence within a span.
type Event struct {
	Timestamp  time.Time
	Name       string
	Attributes map[string]interface{}
}

// Span is a unit of work with timing and metadata. Spans form a tree via
// ParentID references.
type Span struct {
	TraceID  string
	SpanID   string
	ParentID string

	Name       string
	Attributes map[string]interface{}

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Events []Event
	Status Status
}

// SetAttribute sets a key-value attribute on the span.
func (s *Span) SetAttribute(key string, value interface{}) {
	if s.Attributes == nil {
		s.Attributes = make(map[string]interface{})
	}
	s.Attributes[key] = value
}

// AddEvent adds a timestamped event to the span.
func (s *Span) AddEvent(name string, attrs map[string]interface{}) {
	s.Events = append(s.Events, Event{Timestamp: time.Now(), Name: name, Attributes: attrs})
}

// RecordError sets the span's status to error and records error attributes.
func (s *Span) RecordError(err error) {
	if err == nil {
		return
	}
	s.Status = Status{Code: StatusError, Message: err.Error()}
	s.SetAttribute(AttrErrorMessage, err.Error())
	s.SetAttribute(AttrErrorType, "error")
}

// SpanOption configures a span at creation time.
type SpanOption func(*Span)

// WithAttribute sets an attribute on span creation.
func WithAttribute(key string, value interface{}) SpanOption {
	return func(s *Span) { s.SetAttribute(key, value) }
}

// WithSpanKind tags the span with a "span.kind" attribute (e.g. "llm", "tool", "mcp").
func WithSpanKind(kind string) SpanOption {
	return func(s *Span) { s.SetAttribute("span.kind", kind) }
}

// WithParentSpanID explicitly sets the parent span ID, overriding context linkage.
func WithParentSpanID(parentID string) SpanOption {
	return func(s *Span) { s.ParentID = parentID }
}

// Well-known span and attribute names shared across components.
const (
	SpanLLMCompletion  = "llm.completion"
	SpanLLMStream      = "llm.stream"
	SpanToolExecute    = "tool.execute"
	SpanToolSearch     = "tool.search"
	SpanMCPToolsList   = "mcp.tools.list"
	SpanMCPToolsCall   = "mcp.tools.call"
	SpanApprovalDecide = "approval.decide"
	SpanSandboxExec    = "sandbox.exec"
	SpanSessionTurn    = "session.turn"

	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// Tracer instruments operations with spans, metrics, and events.
// Implementations must be safe for concurrent use.
type Tracer interface {
	// StartSpan creates a new span and returns a context carrying it, linked
	// to any span already present in ctx.
	StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, *Span)

	// EndSpan completes a span and calculates its duration. Always call via
	// defer immediately after StartSpan.
	EndSpan(span *Span)

	// RecordMetric records a point-in-time metric value with labels.
	RecordMetric(name string, value float64, labels map[string]string)

	// RecordEvent records a standalone event not tied to a span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})

	// Flush forces export of any buffered data. Blocks until done or ctx expires.
	Flush(ctx context.Context) error
}

type contextKey string

const spanContextKey contextKey = "cocode.span"

// SpanFromContext retrieves the current span from ctx, if any.
func SpanFromContext(ctx context.Context) *Span {
	if span, ok := ctx.Value(spanContextKey).(*Span); ok {
		return span
	}
	return nil
}

// ContextWithSpan returns a new context with span attached.
func ContextWithSpan(ctx context.Context, span *Span) context.Context {
	return context.WithValue(ctx, spanContextKey, span)
}

// NoOpTracer discards everything. Used when no exporter is configured and in tests.
type NoOpTracer struct{}

// NewNoOpTracer creates a no-op tracer.
func NewNoOpTracer() *NoOpTracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, *Span) {
	span := &Span{
		TraceID:    uuid.New().String(),
		SpanID:     uuid.New().String(),
		Name:       name,
		StartTime:  time.Now(),
		Attributes: make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(span)
	}
	if parent := SpanFromContext(ctx); parent != nil {
		span.TraceID = parent.TraceID
		span.ParentID = parent.SpanID
	}
	return ContextWithSpan(ctx, span), span
}

func (t *NoOpTracer) EndSpan(span *Span) {
	span.EndTime = time.Now()
	span.Duration = span.EndTime.Sub(span.StartTime)
}

func (t *NoOpTracer) RecordMetric(name string, value float64, labels map[string]string) {}

func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}

func (t *NoOpTracer) Flush(ctx context.Context) error { return nil }

var _ Tracer = (*NoOpTracer)(nil)
