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
	"fmt"
	"io"
	"net/http"
)

// DoRequest sends req through client, routing through rateLimiter when one
// is configured. The three net/http-based vendor clients (Anthropic,
// OpenAI, Gemini) each need the same "rate-limit if enabled, otherwise call
// directly" branch around their POST; centralizing it here means a change to
// how rate limiting wraps a call (e.g. adding a circuit breaker) only needs
// to happen once.
func DoRequest(ctx context.Context, client *http.Client, rateLimiter *RateLimiter, req *http.Request) (*http.Response, error) {
	if rateLimiter == nil {
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}
		return resp, nil
	}

	result, err := rateLimiter.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	return result.(*http.Response), nil
}

// maxAPIErrorBodyBytes bounds how much of a (possibly huge) error body
// ReadAPIError embeds in the returned error.
const maxAPIErrorBodyBytes = 8192

// ReadAPIError reads and truncates a non-2xx response body into a single
// error, closing the body. Callers still own checking resp.StatusCode first.
func ReadAPIError(resp *http.Response) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxAPIErrorBodyBytes))
	return fmt.Errorf("API error (status %d): %s", resp.StatusCode, body)
}
