package encoding_test

import (
	"testing"

	"github.com/effective-security/toolchat/encoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tool struct {
	Name        string `json:"name" yaml:"name" toml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
}

func TestNewEncoder(t *testing.T) {
	for _, f := range append(encoding.Formats, "YAML", "yml") {
		enc, err := encoding.NewEncoder(f)
		require.NoError(t, err, f)
		assert.NotNil(t, enc)
	}

	_, err := encoding.NewEncoder("xml")
	assert.EqualError(t, err, `unsupported format: "xml"`)
}

func TestMarshal_List(t *testing.T) {
	list := []tool{
		{Name: "sum", Description: "Add two numbers"},
		{Name: "say_hello"},
	}

	tcases := []struct {
		format string
		exp    string
	}{
		{
			format: encoding.FormatJSON,
			exp: `[
  {
    "name": "sum",
    "description": "Add two numbers"
  },
  {
    "name": "say_hello"
  }
]
`,
		},
		{
			format: encoding.FormatYAML,
			exp: `- name: sum
  description: Add two numbers
- name: say_hello
`,
		},
		{
			format: encoding.FormatTOML,
			exp: `[[items]]
  name = "sum"
  description = "Add two numbers"

[[items]]
  name = "say_hello"
`,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.format, func(t *testing.T) {
			enc, err := encoding.NewEncoder(tc.format)
			require.NoError(t, err)
			bs, err := enc.Marshal(list)
			require.NoError(t, err)
			assert.Equal(t, tc.exp, string(bs))
		})
	}
}

func TestDecodeArguments(t *testing.T) {
	tcases := []struct {
		name   string
		format string
		in     string
		exp    map[string]any
		err    string
	}{
		{name: "empty", format: encoding.FormatJSON, in: "  ", exp: map[string]any{}},
		{name: "json", format: encoding.FormatJSON, in: `{"a":5,"b":3}`, exp: map[string]any{"a": float64(5), "b": float64(3)}},
		{name: "json_fenced", format: encoding.FormatJSON, in: "```json\n{\"name\":\"Alice\"}\n```", exp: map[string]any{"name": "Alice"}},
		{name: "yaml", format: encoding.FormatYAML, in: "a: 5\nb: 3\n", exp: map[string]any{"a": 5, "b": 3}},
		{name: "toml", format: encoding.FormatTOML, in: "name = \"Alice\"\n", exp: map[string]any{"name": "Alice"}},
		{name: "invalid_yaml", format: encoding.FormatYAML, in: "- a\n- b\n", err: "failed to decode yaml arguments"},
		{name: "unsupported", format: "xml", in: "<a/>", err: `unsupported format: "xml"`},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			args, err := encoding.DecodeArguments(tc.format, []byte(tc.in))
			if tc.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.exp, args)
		})
	}
}
