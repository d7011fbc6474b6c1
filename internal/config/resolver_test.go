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
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveModel_AppliesDefaultsForEmptyFields(t *testing.T) {
	store := &Store{
		Models:    map[string]ModelRecord{},
		Providers: map[string]ProviderRecord{},
	}
	resolved, err := store.ResolveModel("anthropic", "unknown-model")
	require.NoError(t, err)
	assert.Equal(t, defaultContextWindow, resolved.ContextWindow)
	assert.Equal(t, defaultMaxOutputTokens, resolved.MaxOutputTokens)
	assert.Equal(t, []string{"text_generation"}, resolved.Capabilities)
}

func TestResolveModel_MergesUserModelsJSON(t *testing.T) {
	store := &Store{
		Models: map[string]ModelRecord{
			"claude-sonnet": {Slug: "claude-sonnet", Name: "Claude Sonnet", ContextWindow: 200000},
		},
		Providers: map[string]ProviderRecord{},
	}
	resolved, err := store.ResolveModel("anthropic", "claude-sonnet")
	require.NoError(t, err)
	assert.Equal(t, "Claude Sonnet", resolved.Name)
	assert.Equal(t, 200000, resolved.ContextWindow)
}

func TestResolveModel_ProviderCanonicalAliasAndOverride(t *testing.T) {
	store := &Store{
		Models: map[string]ModelRecord{},
		Providers: map[string]ProviderRecord{
			"anthropic": {
				Name: "anthropic",
				Models: []ProviderModelEntry{
					{
						Slug:           "claude-sonnet-4",
						CanonicalAlias: "claude-sonnet-latest",
						ModelInfoOverride: &ModelRecord{
							MaxOutputTokens: 8192,
						},
					},
				},
			},
		},
	}
	resolved, err := store.ResolveModel("anthropic", "claude-sonnet-latest")
	require.NoError(t, err)
	assert.Equal(t, 8192, resolved.MaxOutputTokens)
}

func TestResolveModel_BaseInstructionsFileFallsBackWhenUnreadable(t *testing.T) {
	store := &Store{
		Models: map[string]ModelRecord{
			"m": {
				Slug:                 "m",
				BaseInstructions:     "fallback text",
				BaseInstructionsFile: "/nonexistent/path/instructions.md",
			},
		},
		Providers: map[string]ProviderRecord{},
	}
	resolved, err := store.ResolveModel("p", "m")
	require.NoError(t, err)
	assert.Equal(t, "fallback text", resolved.BaseInstructions)
}

func TestResolveModel_BaseInstructionsFileReadWhenPresent(t *testing.T) {
	dir := t.TempDir()
	instrPath := filepath.Join(dir, "instructions.md")
	require.NoError(t, os.WriteFile(instrPath, []byte("file contents"), 0o644))

	store := &Store{
		Models: map[string]ModelRecord{
			"m": {
				Slug:                 "m",
				BaseInstructions:     "fallback text",
				BaseInstructionsFile: instrPath,
			},
		},
		Providers: map[string]ProviderRecord{},
	}
	resolved, err := store.ResolveModel("p", "m")
	require.NoError(t, err)
	assert.Equal(t, "file contents", resolved.BaseInstructions)
}

func TestResolveProvider_NotFound(t *testing.T) {
	store := &Store{Providers: map[string]ProviderRecord{}}
	_, err := store.ResolveProvider("nope")
	assert.True(t, errors.Is(err, ErrProviderNotFound))
}

func TestResolveProvider_AuthMissing(t *testing.T) {
	store := &Store{
		Providers: map[string]ProviderRecord{
			"anthropic": {Name: "anthropic", EnvVar: "COCODE_TEST_UNSET_KEY_XYZ"},
		},
	}
	os.Unsetenv("COCODE_TEST_UNSET_KEY_XYZ")
	_, err := store.ResolveProvider("anthropic")
	assert.True(t, errors.Is(err, ErrAuthMissing))
}

func TestResolveProvider_EnvVarCredential(t *testing.T) {
	t.Setenv("COCODE_TEST_KEY_XYZ", "sk-test-123")
	store := &Store{
		Providers: map[string]ProviderRecord{
			"anthropic": {Name: "anthropic", EnvVar: "COCODE_TEST_KEY_XYZ", BaseURL: "https://api.anthropic.com"},
		},
	}
	resolved, err := store.ResolveProvider("anthropic")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", resolved.APIKey)
	assert.Equal(t, "https://api.anthropic.com", resolved.BaseURL)
}

func TestResolveProvider_InlineAPIKeyUsedWhenEnvVarEmpty(t *testing.T) {
	store := &Store{
		Providers: map[string]ProviderRecord{
			"openai": {Name: "openai", InlineAPIKey: "sk-inline"},
		},
	}
	resolved, err := store.ResolveProvider("openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-inline", resolved.APIKey)
}

func TestModelRecord_MergeFromReplacesSlicesWholesale(t *testing.T) {
	base := ModelRecord{Capabilities: []string{"text_generation"}}
	base.mergeFrom(&ModelRecord{Capabilities: []string{"vision", "tool_use"}})
	assert.Equal(t, []string{"vision", "tool_use"}, base.Capabilities)
}

func TestModelRecord_MergeFromLeavesEmptyFieldsIntact(t *testing.T) {
	base := ModelRecord{Name: "original", ContextWindow: 100000}
	base.mergeFrom(&ModelRecord{ContextWindow: 200000})
	assert.Equal(t, "original", base.Name)
	assert.Equal(t, 200000, base.ContextWindow)
}
