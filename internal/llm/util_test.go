package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain json untouched", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fence with language id", "```javascript\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  \n```json\n[1, 2]\n```\n ", "[1, 2]"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSONBlock(tt.in))
		})
	}
}

func TestConfigGetModel_FallbackChain(t *testing.T) {
	cfg := &Config{Provider: ProviderGemini, Models: map[ModelTier]string{TierLite: "lite-model"}}

	// Advanced is unconfigured: falls through standard to lite.
	assert.Equal(t, "lite-model", cfg.GetModel(TierAdvanced))
	assert.Equal(t, "lite-model", cfg.GetModel(TierLite))
}

func TestConfigWithModel_DoesNotMutateOriginal(t *testing.T) {
	base := DefaultConfig()
	next := base.WithModel(TierLite, "custom")

	assert.Equal(t, "custom", next.GetModel(TierLite))
	assert.NotEqual(t, "custom", base.GetModel(TierLite))
}
