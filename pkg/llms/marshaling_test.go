package llms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"
)

func TestUnmarshalYAML(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		input   string
		want    Message
		wantErr string
	}{
		{
			name: "text",
			input: `role: human
parts:
- type: text
  text: what is 5+3?
`,
			want: Message{Role: RoleHuman, Parts: []ContentPart{TextContent{Text: "what is 5+3?"}}},
		},
		{
			name: "tool call and response",
			input: `role: ai
parts:
- type: tool_call
  tool_call:
    id: call_1
    type: function
    function:
      name: sum
      arguments: '{"a":5,"b":3}'
- type: tool_response
  tool_response:
    tool_call_id: call_1
    name: sum
    content: "8"
`,
			want: Message{
				Role: RoleAI,
				Parts: []ContentPart{
					ToolCall{ID: "call_1", Type: "function", FunctionCall: &FunctionCall{Name: "sum", Arguments: `{"a":5,"b":3}`}},
					ToolCallResponse{ToolCallID: "call_1", Name: "sum", Content: "8"},
				},
			},
		},
		{
			name: "tool call without function",
			input: `role: ai
parts:
- type: tool_call
  tool_call:
    id: call_1
`,
			want: Message{
				Role:  RoleAI,
				Parts: []ContentPart{ToolCall{ID: "call_1", FunctionCall: &FunctionCall{}}},
			},
		},
		{
			name: "unknown content type",
			input: `role: human
parts:
- type: image_url
`,
			wantErr: "unknown content type: 'image_url'",
		},
		{
			name: "missing tool call ID",
			input: `role: tool
parts:
- type: tool_response
  tool_response:
    name: sum
`,
			wantErr: "missing tool_call_id field in tool_response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var m Message
			err := yaml.Unmarshal([]byte(tt.input), &m)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m)
		})
	}
}

func TestMarshalYAML(t *testing.T) {
	t.Parallel()
	m := MessageFromToolResponse(ToolCallResponse{ToolCallID: "call_1", Name: "say_hello", Content: "Hello, Alice!"})

	bs, err := yaml.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `parts:
- tool_response:
    content: Hello, Alice!
    name: say_hello
    tool_call_id: call_1
  type: tool_response
role: tool
`, string(bs))
}
