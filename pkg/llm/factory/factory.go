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

import (
	"fmt"
	"os"
	"time"

	"github.com/teradata-labs/cocode/pkg/llm/anthropic"
	"github.com/teradata-labs/cocode/pkg/llm/bedrock"
	"github.com/teradata-labs/cocode/pkg/llm/gemini"
	"github.com/teradata-labs/cocode/pkg/llm/openai"
)

// ProviderFactory creates LLM providers dynamically based on configuration.
type ProviderFactory struct {
	config FactoryConfig
}

// FactoryConfig holds configuration for creating LLM providers.
type FactoryConfig struct {
	DefaultProvider string
	DefaultModel    string

	AnthropicAPIKey string
	AnthropicModel  string

	BedrockRegion          string
	BedrockAccessKeyID     string
	BedrockSecretAccessKey string
	BedrockSessionToken    string
	BedrockProfile         string
	BedrockModelID         string

	OpenAIAPIKey string
	OpenAIModel  string

	GeminiAPIKey string
	GeminiModel  string

	MaxTokens   int
	Temperature float64
	Timeout     int // seconds
}

// NewProviderFactory creates a new provider factory.
func NewProviderFactory(config FactoryConfig) *ProviderFactory {
	if config.MaxTokens == 0 {
		config.MaxTokens = 4096
	}
	if config.Temperature == 0 {
		config.Temperature = 1.0
	}
	if config.Timeout == 0 {
		config.Timeout = 60
	}
	return &ProviderFactory{config: config}
}

// CreateProvider creates an LLM provider for the specified provider type and model.
// Returns interface{} to avoid import cycles (caller type-asserts to types.LLMProvider).
func (f *ProviderFactory) CreateProvider(provider, model string) (interface{}, error) {
	if provider == "" {
		provider = f.config.DefaultProvider
	}
	if model == "" {
		model = f.config.DefaultModel
	}

	switch provider {
	case "anthropic":
		return f.createAnthropicProvider(model)
	case "bedrock":
		return f.createBedrockProvider(model)
	case "openai":
		return f.createOpenAIProvider(model)
	case "gemini":
		return f.createGeminiProvider(model)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func (f *ProviderFactory) createAnthropicProvider(model string) (interface{}, error) {
	apiKey := f.config.AnthropicAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key not configured (set llm.anthropic_api_key or ANTHROPIC_API_KEY)")
	}
	if model == "" {
		model = f.config.AnthropicModel
	}
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}
	return anthropic.NewClient(anthropic.Config{
		APIKey: apiKey, Model: model, MaxTokens: f.config.MaxTokens, Temperature: f.config.Temperature,
	}), nil
}

func (f *ProviderFactory) createBedrockProvider(model string) (interface{}, error) {
	if model == "" {
		model = f.config.BedrockModelID
	}
	if model == "" {
		model = "us.anthropic.claude-sonnet-4-5-20250929-v1:0"
	}
	region := f.config.BedrockRegion
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}
	return bedrock.NewSDKClient(bedrock.Config{
		Region:          region,
		AccessKeyID:     f.config.BedrockAccessKeyID,
		SecretAccessKey: f.config.BedrockSecretAccessKey,
		SessionToken:    f.config.BedrockSessionToken,
		Profile:         f.config.BedrockProfile,
		ModelID:         model,
		MaxTokens:       f.config.MaxTokens,
		Temperature:     f.config.Temperature,
	})
}

func (f *ProviderFactory) createOpenAIProvider(model string) (interface{}, error) {
	apiKey := f.config.OpenAIAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key not configured (set llm.openai_api_key or OPENAI_API_KEY)")
	}
	if model == "" {
		model = f.config.OpenAIModel
	}
	if model == "" {
		model = "gpt-4o"
	}
	return openai.NewClient(openai.Config{
		APIKey: apiKey, Model: model, MaxTokens: f.config.MaxTokens, Temperature: f.config.Temperature,
		Timeout: time.Duration(f.config.Timeout) * time.Second,
	}), nil
}

func (f *ProviderFactory) createGeminiProvider(model string) (interface{}, error) {
	apiKey := f.config.GeminiAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key not configured (set llm.gemini_api_key or GEMINI_API_KEY)")
	}
	if model == "" {
		model = f.config.GeminiModel
	}
	if model == "" {
		model = "gemini-2.0-flash-exp"
	}
	return gemini.NewClient(gemini.Config{
		APIKey: apiKey, Model: model, MaxTokens: f.config.MaxTokens, Temperature: f.config.Temperature,
		Timeout: time.Duration(f.config.Timeout) * time.Second,
	}), nil
}

// IsProviderAvailable checks if a provider is available (credentials/config present).
func (f *ProviderFactory) IsProviderAvailable(provider string) bool {
	_, err := f.CreateProvider(provider, "")
	return err == nil
}
