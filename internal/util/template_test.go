package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("Greet {{.name}} warmly.", map[string]any{"name": "Jo"})
	require.NoError(t, err)
	assert.Equal(t, "Greet Jo warmly.", out)
}

func TestRenderTemplate_NoMarkersFastPath(t *testing.T) {
	out, err := RenderTemplate("plain instructions", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain instructions", out)
}

func TestRenderTemplate_DoesNotEscapeInput(t *testing.T) {
	input := map[string]any{
		"subject": `Q3 <report> & "forecast"`,
		"url":     "https://example.com/?a=1&b=2",
	}

	out, err := RenderTemplate("Summarize {{.subject}} from {{.url}}", input)
	require.NoError(t, err)
	assert.Equal(t, `Summarize Q3 <report> & "forecast" from https://example.com/?a=1&b=2`, out)
}

func TestRenderTemplate_HelperFuncs(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		input map[string]any
		want  string
	}{
		{"default", `{{default "anonymous" .user}}`, map[string]any{}, "anonymous"},
		{"upper", "{{upper .tier}}", map[string]any{"tier": "pro"}, "PRO"},
		{"title", "{{title .name}}", map[string]any{"name": "aCME"}, "Acme"},
		{"join", `{{join ", " .tags}}`, map[string]any{"tags": []any{"a", "b"}}, "a, b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := RenderTemplate(tt.text, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRenderTemplate_ParseError(t *testing.T) {
	_, err := RenderTemplate("{{.broken", nil)
	assert.Error(t, err)
}
