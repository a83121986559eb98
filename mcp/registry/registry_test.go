package registry_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/effective-security/toolchat/mcp/localtransport"
	"github.com/effective-security/toolchat/mcp/registry"
	"github.com/effective-security/toolchat/tools/tavily"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, reg *registry.Registry) *mcp.ClientSession {
	t.Helper()
	transport := localtransport.New(reg.Server())
	t.Cleanup(func() { _ = transport.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "test"}, nil)
	cs, err := client.Connect(context.Background(), transport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callText(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func TestRegistry(t *testing.T) {
	reg, err := registry.New()
	require.NoError(t, err)
	assert.Equal(t, []string{"sum", "say_hello"}, reg.Tools())

	cs := connect(t, reg)
	ctx := context.Background()

	list, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list.Tools, 2)

	byName := map[string]*mcp.Tool{}
	for _, tool := range list.Tools {
		byName[tool.Name] = tool
	}
	require.Contains(t, byName, "sum")
	require.Contains(t, byName, "say_hello")
	assert.Equal(t, "Add two numbers", byName["sum"].Description)
	assert.Equal(t, "Return a greeting message", byName["say_hello"].Description)

	schema, ok := byName["sum"].InputSchema.(map[string]any)
	require.True(t, ok, "%T", byName["sum"].InputSchema)
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []any{"a", "b"}, schema["required"])

	res := callText(t, cs, "sum", map[string]any{"a": 5, "b": 3})
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	assert.Equal(t, "8", res.Content[0].(*mcp.TextContent).Text)

	res = callText(t, cs, "say_hello", map[string]any{"name": "Alice"})
	require.Len(t, res.Content, 1)
	assert.Equal(t, "Hello, Alice!", res.Content[0].(*mcp.TextContent).Text)

	_, err = cs.CallTool(ctx, &mcp.CallToolParams{Name: "unknown", Arguments: map[string]any{}})
	assert.Error(t, err)
}

func TestRegistry_Greeting(t *testing.T) {
	reg, err := registry.New(registry.WithoutTools(), registry.WithImplementation("greeter", "0.1"))
	require.NoError(t, err)
	assert.Empty(t, reg.Tools())

	cs := connect(t, reg)
	ctx := context.Background()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, tools.Tools)

	templates, err := cs.ListResourceTemplates(ctx, nil)
	require.NoError(t, err)
	require.Len(t, templates.ResourceTemplates, 1)
	assert.Equal(t, registry.GreetingURITemplate, templates.ResourceTemplates[0].URITemplate)

	res, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "greeting://Bob"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "Hello, Bob!", res.Contents[0].Text)

	_, err = cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "greeting://"})
	assert.Error(t, err)
}

func TestRegistry_WebSearch(t *testing.T) {
	t.Setenv(tavily.APIKeyEnvVarName, "testkey")
	tool, err := tavily.New()
	require.NoError(t, err)

	reg, err := registry.New(registry.WithWebSearch(tool))
	require.NoError(t, err)
	assert.Equal(t, []string{"sum", "say_hello", "web_search"}, reg.Tools())
}

func TestSumTool(t *testing.T) {
	ctx := context.Background()
	out, err := registry.SumTool{}.Run(ctx, &registry.SumInput{A: -2, B: 5})
	require.NoError(t, err)
	assert.Equal(t, "3", out)

	out, err = registry.SayHelloTool{}.Run(ctx, &registry.SayHelloInput{Name: "World"})
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", out)
}

func TestRegistry_FakeInputs(t *testing.T) {
	reg, err := registry.New()
	require.NoError(t, err)
	cs := connect(t, reg)

	for range 20 {
		var sum registry.SumInput
		require.NoError(t, gofakeit.Struct(&sum))
		res := callText(t, cs, "sum", map[string]any{"a": sum.A, "b": sum.B})
		require.Len(t, res.Content, 1)
		assert.Equal(t, strconv.Itoa(sum.A+sum.B), res.Content[0].(*mcp.TextContent).Text)

		var hello registry.SayHelloInput
		require.NoError(t, gofakeit.Struct(&hello))
		require.NotEmpty(t, hello.Name)
		res = callText(t, cs, "say_hello", map[string]any{"name": hello.Name})
		require.Len(t, res.Content, 1)
		assert.Equal(t, registry.Greeting(hello.Name), res.Content[0].(*mcp.TextContent).Text)
	}
}
