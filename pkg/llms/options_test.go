package llms_test

import (
	"encoding/json"
	"testing"

	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	tools := []llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name: "test",
			},
		},
	}
	meta := map[string]any{"test": "test"}
	stopWords := []string{"stop"}
	opts := []llms.CallOption{
		llms.WithModel("test"),
		llms.WithMaxTokens(100),
		llms.WithTemperature(0.5),
		llms.WithStopWords(stopWords),
		llms.WithTopP(0.5),
		llms.WithSeed(123),
		llms.WithTools(tools),
		llms.WithToolChoice("auto"),
		llms.WithMetadata(meta),
	}

	cfg := llms.NewCallOptions(llms.CallOptions{Model: "default", MaxTokens: 10}, opts...)

	expected := &llms.CallOptions{
		Model:       "test",
		MaxTokens:   100,
		Temperature: 0.5,
		StopWords:   stopWords,
		TopP:        0.5,
		Seed:        123,
		Tools:       tools,
		ToolChoice:  "auto",
		Metadata:    meta,
	}
	assert.Equal(t, expected, cfg)

	defaults := llms.NewCallOptions(llms.CallOptions{Model: "default", MaxTokens: 10})
	assert.Equal(t, "default", defaults.Model)
	assert.Equal(t, 10, defaults.MaxTokens)
}

func TestToolChoiceString(t *testing.T) {
	assert.Equal(t, "none", llms.ToolChoiceString("none"))
	assert.Equal(t, "auto", llms.ToolChoiceString(llms.FunctionCallBehaviorAuto))
	assert.Equal(t, "", llms.ToolChoiceString(nil))
	assert.Equal(t, "", llms.ToolChoiceString(llms.ToolChoice{Type: "function"}))
}

func TestParametersMap(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"a": map[string]any{"type": "integer"}},
		"required":   []any{"a"},
	}
	type typed struct {
		Type       string         `json:"type"`
		Properties map[string]any `json:"properties"`
		Required   []string       `json:"required"`
	}

	tests := []struct {
		name   string
		params any
		exp    map[string]any
		err    string
	}{
		{"nil", nil, map[string]any{"type": "object"}, ""},
		{"map", schema, schema, ""},
		{"string", `{"type":"object","properties":{"a":{"type":"integer"}},"required":["a"]}`, schema, ""},
		{"raw", json.RawMessage(`null`), map[string]any{"type": "object"}, ""},
		{"struct", typed{Type: "object", Properties: map[string]any{"a": map[string]any{"type": "integer"}}, Required: []string{"a"}}, schema, ""},
		{"array", `[1,2]`, nil, "parameters schema is not a JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fd := &llms.FunctionDefinition{Name: "sum", Parameters: tt.params}
			m, err := fd.ParametersMap()
			if tt.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.exp, m)
		})
	}
}
