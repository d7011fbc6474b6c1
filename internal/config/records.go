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

// ModelRecord is one entry from a *model.json file.
type ModelRecord struct {
	Slug                 string         `json:"slug"`
	Name                 string         `json:"name,omitempty"`
	ContextWindow        int            `json:"context_window,omitempty"`
	MaxOutputTokens      int            `json:"max_output_tokens,omitempty"`
	Capabilities         []string       `json:"capabilities,omitempty"`
	BaseInstructions     string         `json:"base_instructions,omitempty"`
	BaseInstructionsFile string         `json:"base_instructions_file,omitempty"`
	Extra                map[string]any `json:"-"`
}

// ProviderModelEntry is one model entry inside a ProviderRecord's model list,
// capturing the provider's view of that model (alias + override).
type ProviderModelEntry struct {
	Slug              string       `json:"slug"`
	CanonicalAlias    string       `json:"canonical_alias,omitempty"`
	ModelInfoOverride *ModelRecord `json:"model_info_override,omitempty"`
}

// ProviderRecord is one entry from a *provider.json file.
type ProviderRecord struct {
	Name         string               `json:"name"`
	EnvVar       string               `json:"env_var,omitempty"`
	InlineAPIKey string               `json:"api_key,omitempty"`
	BaseURL      string               `json:"base_url,omitempty"`
	Models       []ProviderModelEntry `json:"models,omitempty"`
}

// ResolvedModel is the fully merged, defaulted model configuration returned
// by resolve_model.
type ResolvedModel struct {
	Slug             string
	Name             string
	ContextWindow    int
	MaxOutputTokens  int
	Capabilities     []string
	BaseInstructions string
}

// ResolvedProvider is the fully resolved provider configuration, with its
// credential settled, returned by resolve_provider.
type ResolvedProvider struct {
	Name    string
	BaseURL string
	APIKey  string
}

// defaultContextWindow and defaultMaxOutputTokens are the §4.A step-4
// substitution defaults for any field still empty after merge.
const (
	defaultContextWindow   = 4096
	defaultMaxOutputTokens = 4096
)

var defaultCapabilities = []string{"text_generation"}

// mergeFrom applies §4.A's merge_from semantics: other's non-zero values
// overwrite; its zero values leave the receiver's value intact. Slices are
// replaced wholesale, never concatenated.
func (m *ModelRecord) mergeFrom(other *ModelRecord) {
	if other == nil {
		return
	}
	if other.Slug != "" {
		m.Slug = other.Slug
	}
	if other.Name != "" {
		m.Name = other.Name
	}
	if other.ContextWindow != 0 {
		m.ContextWindow = other.ContextWindow
	}
	if other.MaxOutputTokens != 0 {
		m.MaxOutputTokens = other.MaxOutputTokens
	}
	if other.Capabilities != nil {
		m.Capabilities = other.Capabilities
	}
	if other.BaseInstructions != "" {
		m.BaseInstructions = other.BaseInstructions
	}
	if other.BaseInstructionsFile != "" {
		m.BaseInstructionsFile = other.BaseInstructionsFile
	}
}

func (m ModelRecord) applyDefaults() ModelRecord {
	if m.ContextWindow == 0 {
		m.ContextWindow = defaultContextWindow
	}
	if m.MaxOutputTokens == 0 {
		m.MaxOutputTokens = defaultMaxOutputTokens
	}
	if m.Capabilities == nil {
		m.Capabilities = defaultCapabilities
	}
	return m
}
