package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelRegistry_GetModelsForProvider(t *testing.T) {
	reg := NewModelRegistry()

	models := reg.GetModelsForProvider("anthropic")
	require.NotNil(t, models)
	assert.Len(t, models, 3)
	for _, m := range models {
		assert.Equal(t, "anthropic", m.Provider)
	}
}

func TestModelRegistry_GetModelsForProvider_Unknown(t *testing.T) {
	reg := NewModelRegistry()
	assert.Nil(t, reg.GetModelsForProvider("does-not-exist"))
}

func TestModelRegistry_GetAllModels(t *testing.T) {
	reg := NewModelRegistry()
	all := reg.GetAllModels()
	assert.NotEmpty(t, all)

	providers := make(map[string]bool)
	for _, m := range all {
		providers[m.Provider] = true
	}
	for _, p := range []string{"anthropic", "bedrock", "openai", "gemini"} {
		assert.True(t, providers[p], "expected provider %s among all models", p)
	}
}

func TestModelInfo_Clone(t *testing.T) {
	reg := NewModelRegistry()
	models := reg.GetModelsForProvider("openai")
	require.NotEmpty(t, models)

	clone := models[0].Clone()
	clone.Available = true
	clone.Capabilities[0] = "mutated"

	original := reg.GetModelsForProvider("openai")[0]
	assert.False(t, original.Available)
	assert.NotEqual(t, "mutated", original.Capabilities[0])
}
