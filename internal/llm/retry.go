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
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy configures backoff, overflow recovery, and stream fallback for
// one provider call. Generalizes pkg/llm/rate_limiter.go's fixed
// jitter-free doubling backoff into the spec's per-error-kind policy with a
// uniform [0.5x, 1.0x] jitter window.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	EnableStreamFallback bool
	FallbackMaxTokens    int // 0 means unset — leave max_tokens untouched on fallback

	EnableOverflowRecovery bool
	MaxOverflowAttempts    int
	MinOutputTokens        int
}

// DefaultRetryPolicy mirrors the teacher's rate limiter defaults, widened
// with the spec's jitter window and overflow/fallback knobs.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:             5,
		BaseDelay:              1 * time.Second,
		MaxDelay:               30 * time.Second,
		EnableStreamFallback:   true,
		FallbackMaxTokens:      21333,
		EnableOverflowRecovery: true,
		MaxOverflowAttempts:    3,
		MinOutputTokens:        1024,
	}
}

// RetryContext tracks one invocation's progress against its RetryPolicy.
type RetryContext struct {
	Policy         RetryPolicy
	CurrentAttempt int
}

// NewRetryContext starts a fresh retry context for one call.
func NewRetryContext(policy RetryPolicy) *RetryContext {
	return &RetryContext{Policy: policy}
}

// Outcome is the result of RetryContext.Decide.
type Outcome int

const (
	OutcomeRetry Outcome = iota
	OutcomeGiveUp
)

// Decide inspects err and returns whether to retry (with a delay) or give
// up. Non-*APIError values, and any APIError kind not marked Retryable,
// always give up immediately.
func (rc *RetryContext) Decide(err error) (Outcome, time.Duration) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.Retryable() {
		return OutcomeGiveUp, 0
	}

	if rc.CurrentAttempt >= rc.Policy.MaxRetries {
		return OutcomeGiveUp, 0
	}

	delay := rc.backoffDelay(rc.CurrentAttempt)
	if apiErr.Kind == KindRateLimited && apiErr.RetryAfter != nil && *apiErr.RetryAfter > delay {
		delay = *apiErr.RetryAfter
	}

	rc.CurrentAttempt++
	return OutcomeRetry, delay
}

// backoffDelay computes base*2^attempt clamped to MaxDelay, then applies
// uniform jitter in [0.5x, 1.0x] of the clamped value.
func (rc *RetryContext) backoffDelay(attempt int) time.Duration {
	raw := float64(rc.Policy.BaseDelay) * math.Pow(2, float64(attempt))
	ceiling := float64(rc.Policy.MaxDelay)
	if ceiling > 0 && raw > ceiling {
		raw = ceiling
	}
	jitter := 0.5 + rand.Float64()*0.5
	return time.Duration(raw * jitter)
}

// ReduceMaxTokens applies one step of context-overflow recovery: reduce
// current by 25%, rounded down. Returns ok=false, unchanged current, if the
// reduction would drop below minOutput — the caller must then surface the
// overflow error verbatim instead of retrying.
func ReduceMaxTokens(current, minOutput int) (reduced int, ok bool) {
	reduced = current - current/4
	if reduced < minOutput {
		return current, false
	}
	return reduced, true
}

// ShouldAttemptOverflowRecovery reports whether another overflow-recovery
// attempt is permitted given the policy and attempts already made.
func (p RetryPolicy) ShouldAttemptOverflowRecovery(overflowAttempts int) bool {
	return p.EnableOverflowRecovery && overflowAttempts < p.MaxOverflowAttempts
}
