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
package factory

// ModelInfo describes one model offered by a provider: its identity,
// capabilities, and list pricing. This stands in for what was, in the
// teacher repo, a generated protobuf message (gen/go/loom/v1.ModelInfo) -
// no .proto sources for that package exist in this project's history, so
// the registry speaks a plain Go struct instead.
type ModelInfo struct {
	Id                  string
	Name                string
	Provider            string
	Capabilities        []string
	ContextWindow       int64
	CostPer1MInputUSD   float64
	CostPer1MOutputUSD  float64
	Available           bool
}

// Clone returns a deep-enough copy of m (capabilities slice is copied; the
// struct has no other reference fields), so callers can mutate the result
// (e.g. set Available) without corrupting the registry's own copy.
func (m *ModelInfo) Clone() *ModelInfo {
	clone := *m
	clone.Capabilities = append([]string(nil), m.Capabilities...)
	return &clone
}

// ModelRegistry holds information about all supported models across providers.
type ModelRegistry struct {
	models map[string][]*ModelInfo
}

// NewModelRegistry creates a new model registry with all supported models.
func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{
		models: map[string][]*ModelInfo{
			"anthropic": {
				{
					Id: "claude-sonnet-4-5-20250929", Name: "Claude Sonnet 4.5", Provider: "anthropic",
					Capabilities: []string{"text", "vision", "tool-use"}, ContextWindow: 200000,
					CostPer1MInputUSD: 3.0, CostPer1MOutputUSD: 15.0,
				},
				{
					Id: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", Provider: "anthropic",
					Capabilities: []string{"text", "vision", "tool-use"}, ContextWindow: 200000,
					CostPer1MInputUSD: 3.0, CostPer1MOutputUSD: 15.0,
				},
				{
					Id: "claude-3-opus-20240229", Name: "Claude 3 Opus", Provider: "anthropic",
					Capabilities: []string{"text", "vision", "tool-use"}, ContextWindow: 200000,
					CostPer1MInputUSD: 15.0, CostPer1MOutputUSD: 75.0,
				},
			},
			"bedrock": {
				{
					Id: "us.anthropic.claude-sonnet-4-5-20250929-v1:0", Name: "Claude Sonnet 4.5 (Bedrock)", Provider: "bedrock",
					Capabilities: []string{"text", "vision", "tool-use"}, ContextWindow: 200000,
					CostPer1MInputUSD: 3.0, CostPer1MOutputUSD: 15.0,
				},
				{
					Id: "us.anthropic.claude-opus-4-5-20251101-v1:0", Name: "Claude Opus 4.5 (Bedrock)", Provider: "bedrock",
					Capabilities: []string{"text", "vision", "tool-use"}, ContextWindow: 200000,
					CostPer1MInputUSD: 15.0, CostPer1MOutputUSD: 75.0,
				},
				{
					Id: "us.anthropic.claude-haiku-4-5-20251001-v1:0", Name: "Claude Haiku 4.5 (Bedrock)", Provider: "bedrock",
					Capabilities: []string{"text", "vision", "tool-use"}, ContextWindow: 200000,
					CostPer1MInputUSD: 0.8, CostPer1MOutputUSD: 4.0,
				},
			},
			"openai": {
				{
					Id: "gpt-4o", Name: "GPT-4o", Provider: "openai",
					Capabilities: []string{"text", "vision", "tool-use"}, ContextWindow: 128000,
					CostPer1MInputUSD: 2.5, CostPer1MOutputUSD: 10.0,
				},
				{
					Id: "gpt-4-turbo", Name: "GPT-4 Turbo", Provider: "openai",
					Capabilities: []string{"text", "vision", "tool-use"}, ContextWindow: 128000,
					CostPer1MInputUSD: 10.0, CostPer1MOutputUSD: 30.0,
				},
				{
					Id: "gpt-4o-mini", Name: "GPT-4o Mini", Provider: "openai",
					Capabilities: []string{"text", "tool-use"}, ContextWindow: 128000,
					CostPer1MInputUSD: 0.15, CostPer1MOutputUSD: 0.6,
				},
			},
			"gemini": {
				{
					Id: "gemini-2.0-flash-exp", Name: "Gemini 2.0 Flash", Provider: "gemini",
					Capabilities: []string{"text", "vision", "tool-use"}, ContextWindow: 1000000,
				},
				{
					Id: "gemini-1.5-pro", Name: "Gemini 1.5 Pro", Provider: "gemini",
					Capabilities: []string{"text", "vision", "tool-use"}, ContextWindow: 2000000,
					CostPer1MInputUSD: 1.25, CostPer1MOutputUSD: 5.0,
				},
			},
		},
	}
}

// GetModelsForProvider returns all models for a specific provider.
func (r *ModelRegistry) GetModelsForProvider(provider string) []*ModelInfo {
	models := r.models[provider]
	if models == nil {
		return nil
	}
	result := make([]*ModelInfo, len(models))
	for i, m := range models {
		result[i] = m.Clone()
	}
	return result
}

// GetAllModels returns all models from all providers.
func (r *ModelRegistry) GetAllModels() []*ModelInfo {
	var all []*ModelInfo
	for _, models := range r.models {
		for _, m := range models {
			all = append(all, m.Clone())
		}
	}
	return all
}

// GetAvailableModels returns all models, with Available set according to
// whether factory has the corresponding provider configured.
func (r *ModelRegistry) GetAvailableModels(factory *ProviderFactory) []*ModelInfo {
	var result []*ModelInfo
	for provider, models := range r.models {
		available := factory.IsProviderAvailable(provider)
		for _, m := range models {
			cloned := m.Clone()
			cloned.Available = available
			result = append(result, cloned)
		}
	}
	return result
}
