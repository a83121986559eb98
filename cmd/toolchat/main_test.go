package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/effective-security/toolchat/config"
	"github.com/effective-security/toolchat/mocks/mockllms"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type testApp struct {
	*app
	out    bytes.Buffer
	errOut bytes.Buffer
}

func newTestApp(t *testing.T, input string) *testApp {
	t.Helper()
	t.Setenv("TOOLCHAT_CONFIG", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	ta := &testApp{}
	ta.app = newApp(strings.NewReader(input), &ta.out, &ta.errOut)
	ta.openHistory = func(context.Context, *config.HistoryConfig) (store.TranscriptStore, func(), error) {
		return nil, func() {}, nil
	}
	return ta
}

func (ta *testApp) run(args ...string) error {
	cmd := newRootCmd(ta.app)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func (ta *testApp) withModel(m llms.Model) {
	ta.newModel = func(*config.Config, string) (llms.Model, error) {
		return m, nil
	}
}

func (ta *testApp) withHistory(ts store.TranscriptStore) {
	ta.openHistory = func(context.Context, *config.HistoryConfig) (store.TranscriptStore, func(), error) {
		return ts, func() {}, nil
	}
}

func newSumModel(t *testing.T) *mockllms.MockModel {
	ctrl := gomock.NewController(t)
	m := mockllms.NewMockModel(ctrl)
	m.EXPECT().GetName().Return("gpt-4o-mini").AnyTimes()
	m.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()

	gomock.InOrder(
		m.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&llms.ContentResponse{
				Choices: []*llms.ContentChoice{{
					ToolCalls: []llms.ToolCall{{
						ID:           "call_1",
						Type:         "function",
						FunctionCall: &llms.FunctionCall{Name: "sum", Arguments: `{"a":5,"b":3}`},
					}},
				}},
			}, nil),
		m.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
				last := messages[len(messages)-1]
				require.Equal(t, llms.RoleTool, last.Role)
				resp, ok := last.Parts[0].(llms.ToolCallResponse)
				require.True(t, ok)
				return &llms.ContentResponse{
					Choices: []*llms.ContentChoice{{Content: "5 + 3 = " + resp.Content}},
				}, nil
			}),
	)
	return m
}

func TestTools(t *testing.T) {
	ta := newTestApp(t, "")
	require.NoError(t, ta.run("tools", "--transport", "inmemory", "-o", "json"))

	var list []struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		InputSchema map[string]any `json:"input_schema"`
	}
	require.NoError(t, json.Unmarshal(ta.out.Bytes(), &list))
	require.Len(t, list, 2)

	names := []string{list[0].Name, list[1].Name}
	assert.ElementsMatch(t, []string{"sum", "say_hello"}, names)
	for _, tool := range list {
		assert.NotEmpty(t, tool.Description)
		assert.Equal(t, "object", tool.InputSchema["type"])
	}
}

func TestToolsCall(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		ta := newTestApp(t, "")
		require.NoError(t, ta.run("tools", "call", "sum", "--transport", "inmemory", "--args", `{"a":5,"b":3}`))
		assert.Equal(t, "8\n", ta.out.String())
	})

	t.Run("yaml_input", func(t *testing.T) {
		ta := newTestApp(t, "name: Alice\n")
		require.NoError(t, ta.run("tools", "call", "say_hello", "--transport", "inmemory",
			"--args-file", "-", "--args-format", "yaml"))
		assert.Equal(t, "Hello, Alice!\n", ta.out.String())
	})

	t.Run("unknown", func(t *testing.T) {
		ta := newTestApp(t, "")
		err := ta.run("tools", "call", "multiply", "--transport", "inmemory", "--args", `{"a":5,"b":3}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "multiply")
	})

	t.Run("bad_args", func(t *testing.T) {
		ta := newTestApp(t, "")
		err := ta.run("tools", "call", "sum", "--transport", "inmemory", "--args", "a: [", "--args-format", "yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode yaml arguments")
	})
}

func TestResources(t *testing.T) {
	ta := newTestApp(t, "")
	require.NoError(t, ta.run("resources", "--transport", "inmemory", "-o", "yaml"))
	assert.Contains(t, ta.out.String(), "uri: greeting://{name}")
	assert.Contains(t, ta.out.String(), "template: true")

	ta = newTestApp(t, "")
	require.NoError(t, ta.run("resources", "read", "greeting://Alice", "--transport", "inmemory"))
	assert.Equal(t, "Hello, Alice!\n", ta.out.String())
}

func TestQuery(t *testing.T) {
	ts := store.NewMemoryStore(0)

	ta := newTestApp(t, "")
	ta.withModel(newSumModel(t))
	ta.withHistory(ts)

	require.NoError(t, ta.run("query", "what", "is", "5+3?", "--transport", "inmemory"))
	assert.Equal(t, "5 + 3 = 8\n", ta.out.String())

	progress := ta.errOut.String()
	for _, line := range []string{
		"Connected to MCP server successfully...",
		"fetching tools from MCP server...",
		"Tools fetched successfully...",
		"Sending query to gpt-4o-mini along with available MCP tools...",
		"Calling the MCP server for tools requested by the model...",
		"Final response received after processing tool results...",
	} {
		assert.Contains(t, progress, line)
	}

	items, err := ts.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "what is 5+3?", items[0].Query)
	assert.Equal(t, "5 + 3 = 8", items[0].Answer)

	t.Run("history", func(t *testing.T) {
		ha := newTestApp(t, "")
		ha.withHistory(ts)
		require.NoError(t, ha.run("history", "list", "-o", "json"))

		var list []map[string]any
		require.NoError(t, json.Unmarshal(ha.out.Bytes(), &list))
		require.Len(t, list, 1)
		assert.Equal(t, items[0].ID, list[0]["id"])
		assert.NotContains(t, list[0], "messages")

		ha = newTestApp(t, "")
		ha.withHistory(ts)
		require.NoError(t, ha.run("history", "show", items[0].ID, "-o", "yaml"))
		assert.Contains(t, ha.out.String(), "answer: 5 + 3 = 8")

		ha = newTestApp(t, "")
		ha.withHistory(ts)
		err := ha.run("history", "show", "missing")
		assert.EqualError(t, err, "transcript not found: missing")

		ha = newTestApp(t, "")
		ha.withHistory(ts)
		require.NoError(t, ha.run("history", "cleanup", "--older-than", "1h"))
		assert.Equal(t, "removed 0 transcripts\n", ha.out.String())
	})
}

func TestQuery_Prompt(t *testing.T) {
	ta := newTestApp(t, "what is 5+3?\n")
	ta.withModel(newSumModel(t))

	require.NoError(t, ta.run("query", "--transport", "inmemory", "--quiet", "--stats"))
	assert.Equal(t, "Enter query to send: 5 + 3 = 8\n", ta.out.String())
	assert.NotContains(t, ta.errOut.String(), "Connected to MCP server successfully...")
	assert.Contains(t, ta.errOut.String(), "*** Query Started ***")
	assert.Contains(t, ta.errOut.String(), "Tool calls: 1, Succeeded: 1, Failed: 0")
}

func TestQuery_EmptyQuery(t *testing.T) {
	ta := newTestApp(t, "\n")
	err := ta.run("query", "--transport", "inmemory")
	assert.EqualError(t, err, "query is required")
}

func TestQuery_ConnectError(t *testing.T) {
	ctrl := gomock.NewController(t)
	ta := newTestApp(t, "")
	ta.withModel(mockllms.NewMockModel(ctrl))

	err := ta.run("query", "hello", "--transport", "http", "--url", "http://127.0.0.1:1/mcp")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "Error connecting to MCP server, check that the server is running: "), err.Error())
}

func TestHistory_NotConfigured(t *testing.T) {
	ta := newTestApp(t, "")
	err := ta.run("history", "list")
	assert.EqualError(t, err, "history is not configured, set history.redis_url in the config")
}

func TestInvalidFlags(t *testing.T) {
	ta := newTestApp(t, "")
	err := ta.run("tools", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")

	ta = newTestApp(t, "")
	err = ta.run("tools", "--transport", "carrier-pigeon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")

	ta = newTestApp(t, "")
	err = ta.run("tools", "--transport", "inmemory", "-o", "xml")
	assert.EqualError(t, err, `unsupported format: "xml"`)
}

func TestServe_UnsupportedTransport(t *testing.T) {
	ta := newTestApp(t, "")
	err := ta.run("serve", "--transport", "inmemory")
	assert.EqualError(t, err, `serve: unsupported transport "inmemory"`)
}
