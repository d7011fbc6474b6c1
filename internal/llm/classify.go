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
	"strings"
)

// ClassifyProviderError maps an arbitrary error returned by one of the
// per-vendor clients in pkg/llm/{anthropic,bedrock,gemini,openai} to an
// APIError, since those clients return plain wrapped errors rather than a
// typed taxonomy. Classification is string-matching based, the same
// technique pkg/llm/rate_limiter.go's isThrottlingError uses for detecting
// HTTP 429s.
func ClassifyProviderError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{Kind: KindTimeout, Cause: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "429", "throttlingexception", "toomanyrequests", "rate limit", "throttle"):
		return &APIError{Kind: KindRateLimited, Cause: err}
	case containsAny(msg, "context length", "context_length", "maximum context", "too many tokens", "context window"):
		return &APIError{Kind: KindContextOverflow, Cause: err}
	case containsAny(msg, "401", "403", "unauthorized", "invalid api key", "authentication"):
		return &APIError{Kind: KindAuth, Cause: err}
	case containsAny(msg, "400", "invalid request", "validation"):
		return &APIError{Kind: KindValidation, Cause: err}
	case containsAny(msg, "500", "502", "503", "504", "internal server error", "bad gateway", "service unavailable"):
		return &APIError{Kind: KindServer, Cause: err}
	case containsAny(msg, "timeout", "deadline exceeded"):
		return &APIError{Kind: KindTimeout, Cause: err}
	case containsAny(msg, "connection reset", "connection refused", "no such host", "eof", "broken pipe"):
		return &APIError{Kind: KindNetwork, Cause: err}
	default:
		return &APIError{Kind: KindNetwork, Cause: err}
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
