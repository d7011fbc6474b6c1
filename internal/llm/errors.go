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

// Package llm provides a provider-agnostic request lifecycle on top of the
// per-vendor clients in pkg/llm/{anthropic,bedrock,gemini,openai}: retry with
// jittered backoff, streaming stall detection, stream-to-non-streaming
// fallback, and context-overflow recovery.
package llm

import (
	"fmt"
	"time"
)

// ErrorKind classifies an API-layer failure so the retry context can decide
// whether it is safe to retry.
type ErrorKind int

const (
	KindNetwork ErrorKind = iota
	KindTimeout
	KindStreamError
	KindStreamStall
	KindRateLimited
	KindContextOverflow
	KindAuth
	KindValidation
	KindServer
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindStreamError:
		return "stream_error"
	case KindStreamStall:
		return "stream_stall"
	case KindRateLimited:
		return "rate_limited"
	case KindContextOverflow:
		return "context_overflow"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// APIError is the uniform error shape all provider adapters normalize to
// before the retry layer ever sees them.
type APIError struct {
	Kind       ErrorKind
	RetryAfter *time.Duration // set only for KindRateLimited, when the provider supplied one
	Status     int            // set only for KindServer
	Body       string         // set only for KindServer
	Cause      error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case KindServer:
		return fmt.Sprintf("server error (status %d): %s", e.Status, e.Body)
	case KindRateLimited:
		if e.RetryAfter != nil {
			return fmt.Sprintf("rate limited, retry after %s", *e.RetryAfter)
		}
		return "rate limited"
	default:
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s", e.Kind, e.Cause)
		}
		return e.Kind.String()
	}
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether this error kind is an idempotent, transient
// failure eligible for the retry path. Validation, authentication, and
// context-overflow errors never retry via this path — overflow has its own
// dedicated recovery path instead.
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindServer, KindRateLimited, KindStreamStall:
		return true
	default:
		return false
	}
}
