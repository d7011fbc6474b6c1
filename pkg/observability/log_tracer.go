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
package observability

import (
	"context"

	"go.uber.org/zap"
)

// LogTracer exports spans and metrics as structured log lines through a
// *zap.Logger. It is the default tracer when no richer backend is wired up:
// cheap, and every span shows up wherever the runtime's other logs go.
type LogTracer struct {
	logger *zap.Logger
}

// NewLogTracer creates a tracer that writes spans through logger.
func NewLogTracer(logger *zap.Logger) *LogTracer {
	return &LogTracer{logger: logger}
}

func (t *LogTracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, *Span) {
	noop := &NoOpTracer{}
	newCtx, span := noop.StartSpan(ctx, name, opts...)
	t.logger.Debug("span.start",
		zap.String("span.name", span.Name),
		zap.String("span.id", span.SpanID),
		zap.String("trace.id", span.TraceID),
		zap.String("span.parent_id", span.ParentID),
	)
	return newCtx, span
}

func (t *LogTracer) EndSpan(span *Span) {
	(&NoOpTracer{}).EndSpan(span)
	fields := []zap.Field{
		zap.String("span.name", span.Name),
		zap.String("span.id", span.SpanID),
		zap.Duration("span.duration", span.Duration),
		zap.String("span.status", span.Status.Code.String()),
	}
	if span.Status.Code == StatusError {
		t.logger.Warn("span.end", append(fields, zap.String("span.status.message", span.Status.Message))...)
		return
	}
	t.logger.Debug("span.end", fields...)
}

func (t *LogTracer) RecordMetric(name string, value float64, labels map[string]string) {
	fields := make([]zap.Field, 0, len(labels)+1)
	fields = append(fields, zap.Float64("value", value))
	for k, v := range labels {
		fields = append(fields, zap.String(k, v))
	}
	t.logger.Info("metric."+name, fields...)
}

func (t *LogTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	fields := make([]zap.Field, 0, len(attributes)+1)
	if span := SpanFromContext(ctx); span != nil {
		fields = append(fields, zap.String("span.id", span.SpanID))
	}
	for k, v := range attributes {
		fields = append(fields, zap.Any(k, v))
	}
	t.logger.Info("event."+name, fields...)
}

func (t *LogTracer) Flush(ctx context.Context) error {
	return t.logger.Sync()
}

var _ Tracer = (*LogTracer)(nil)
