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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError_Retryable(t *testing.T) {
	tests := []struct {
		kind      ErrorKind
		retryable bool
	}{
		{KindNetwork, true},
		{KindTimeout, true},
		{KindServer, true},
		{KindRateLimited, true},
		{KindStreamStall, true},
		{KindStreamError, false},
		{KindContextOverflow, false},
		{KindAuth, false},
		{KindValidation, false},
	}

	for _, tc := range tests {
		err := &APIError{Kind: tc.kind}
		assert.Equal(t, tc.retryable, err.Retryable(), tc.kind.String())
	}
}

func TestAPIError_ErrorMessage(t *testing.T) {
	err := &APIError{Kind: KindServer, Status: 503, Body: "unavailable"}
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "unavailable")
}
