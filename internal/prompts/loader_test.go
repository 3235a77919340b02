package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_KnownPrompts(t *testing.T) {
	ClearCache()

	tests := []struct {
		file string
		key  string
	}{
		{"extraction.json", "extract-skills"},
		{"rerank.json", "rerank-candidates"},
	}

	for _, tt := range tests {
		t.Run(tt.file+"/"+tt.key, func(t *testing.T) {
			prompt, err := Get(tt.file, tt.key)
			require.NoError(t, err)
			assert.NotEmpty(t, prompt)
		})
	}
}

func TestGet_MissingKey(t *testing.T) {
	_, err := Get("rerank.json", "no-such-prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-prompt")
}

func TestGet_MissingFile(t *testing.T) {
	_, err := Get("missing.json", "anything")
	require.Error(t, err)
}

func TestFormat(t *testing.T) {
	out := Format("Hello {{.Name}}, you scored {{.Score}}", map[string]string{
		"Name":  "team",
		"Score": "42",
	})
	assert.Equal(t, "Hello team, you scored 42", out)
}

func TestFormat_UnknownPlaceholderLeftIntact(t *testing.T) {
	out := Format("{{.Known}} {{.Unknown}}", map[string]string{"Known": "x"})
	assert.Equal(t, "x {{.Unknown}}", out)
}

func TestRerankPromptRequiresKeyEcho(t *testing.T) {
	prompt := MustGet("rerank.json", "rerank-candidates")
	// The reconciliation contract depends on the model echoing keys.
	assert.True(t, strings.Contains(prompt, "key"), "rerank prompt must mention keys")
	assert.Contains(t, prompt, "{{.Candidates}}")
}

func TestList(t *testing.T) {
	keys, err := List("extraction.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"extract-skills"}, keys)
}
