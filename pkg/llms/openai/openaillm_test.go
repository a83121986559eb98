package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/pkg/llms/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	lock     sync.Mutex
	paths    []string
	bodies   []map[string]any
	headers  []http.Header
	response string
	status   int
}

func (r *recorder) handler(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	var m map[string]any
	_ = json.Unmarshal(body, &m)

	r.lock.Lock()
	r.paths = append(r.paths, req.URL.Path)
	r.bodies = append(r.bodies, m)
	r.headers = append(r.headers, req.Header.Clone())
	r.lock.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.status != 0 {
		w.WriteHeader(r.status)
	}
	_, _ = w.Write([]byte(r.response))
}

const toolCallsResponse = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1,
	"model": "gpt-4o-mini",
	"choices": [{
		"index": 0,
		"finish_reason": "tool_calls",
		"message": {
			"role": "assistant",
			"content": null,
			"tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "sum", "arguments": "{\"a\":5,\"b\":3}"}},
				{"id": "call_2", "type": "function", "function": {"name": "say_hello", "arguments": "{\"name\":\"Bob\"}"}}
			]
		}
	}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

const textResponse = `{
	"id": "chatcmpl-2",
	"object": "chat.completion",
	"created": 1,
	"model": "gpt-4o-mini",
	"choices": [{
		"index": 0,
		"finish_reason": "stop",
		"message": {"role": "assistant", "content": "5+3 is 8"}
	}],
	"usage": {"prompt_tokens": 20, "completion_tokens": 4, "total_tokens": 24}
}`

var sumTool = llms.Tool{
	Type: "function",
	Function: &llms.FunctionDefinition{
		Name:        "sum",
		Description: "Add two numbers",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "integer"},
				"b": map[string]any{"type": "integer"},
			},
			"required": []any{"a", "b"},
		},
	},
}

func TestNew(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("OPENAI_BASE_URL", "")

	_, err := openai.New()
	assert.ErrorIs(t, err, openai.ErrMissingToken)

	llm, err := openai.New(openai.WithToken("fake"))
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderOpenAI, llm.GetProviderType())
	assert.Equal(t, openai.DefaultChatModel, llm.GetName())

	llm, err = openai.New(openai.WithToken("fake"), openai.WithProvider(llms.ProviderPerplexity))
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderPerplexity, llm.GetProviderType())
	assert.Equal(t, "sonar", llm.GetName())

	_, err = openai.New(openai.WithToken("fake"), openai.WithProvider(llms.ProviderAzure))
	assert.EqualError(t, err, "azure: base URL is required")

	_, err = openai.New(openai.WithToken("fake"), openai.WithProvider(llms.ProviderAzure), openai.WithBaseURL("https://example.openai.azure.com"))
	assert.EqualError(t, err, "azure: model (deployment name) is required")

	_, err = openai.New(openai.WithToken("fake"), openai.WithProvider(llms.ProviderAnthropic))
	assert.EqualError(t, err, `openai: unsupported provider "ANTHROPIC"`)

	t.Setenv("OPENAI_API_KEY", "env-token")
	t.Setenv("OPENAI_MODEL", "gpt-4.1")
	llm, err = openai.New()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", llm.GetName())
}

func TestGenerateContent_ToolCalls(t *testing.T) {
	rec := &recorder{response: toolCallsResponse}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	llm, err := openai.New(
		openai.WithToken("fake"),
		openai.WithBaseURL(srv.URL+"/"),
		openai.WithMaxRetries(0),
	)
	require.NoError(t, err)

	resp, err := llm.GenerateContent(context.Background(),
		[]llms.Message{llms.MessageFromTextParts(llms.RoleHuman, "what is 5+3?")},
		llms.WithTools([]llms.Tool{sumTool}),
		llms.WithToolChoice("auto"),
	)
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	choice := resp.Choices[0]
	assert.Empty(t, choice.Content)
	assert.Equal(t, "tool_calls", choice.StopReason)
	require.Len(t, choice.ToolCalls, 2)
	assert.Equal(t, "call_1", choice.ToolCalls[0].ID)
	assert.Equal(t, "function", choice.ToolCalls[0].Type)
	assert.Equal(t, "sum", choice.ToolCalls[0].FunctionCall.Name)
	assert.Equal(t, `{"a":5,"b":3}`, choice.ToolCalls[0].FunctionCall.Arguments)
	assert.Equal(t, "say_hello", choice.ToolCalls[1].FunctionCall.Name)
	assert.EqualValues(t, 15, choice.GenerationInfo["TotalTokens"])

	require.Len(t, rec.bodies, 1)
	assert.Equal(t, "/chat/completions", rec.paths[0])
	assert.Equal(t, "Bearer fake", rec.headers[0].Get("Authorization"))
	body := rec.bodies[0]
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, "auto", body["tool_choice"])

	tools := body["tools"].([]any)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "sum", fn["name"])
	assert.Equal(t, "Add two numbers", fn["description"])
	assert.Equal(t, sumTool.Function.Parameters, fn["parameters"])

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
}

func TestGenerateContent_SecondRound(t *testing.T) {
	rec := &recorder{response: textResponse}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	llm, err := openai.New(
		openai.WithToken("fake"),
		openai.WithBaseURL(srv.URL+"/"),
		openai.WithModel("gpt-4.1-mini"),
		openai.WithMaxRetries(0),
	)
	require.NoError(t, err)

	call := llms.ToolCall{ID: "call_1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "sum", Arguments: `{"a":5,"b":3}`}}
	messages := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "be brief"),
		llms.MessageFromTextParts(llms.RoleHuman, "what is 5+3?"),
		llms.MessageFromAssistant("", call),
		llms.MessageFromToolResponse(llms.ToolCallResponse{ToolCallID: "call_1", Name: "sum", Content: "8"}),
	}

	resp, err := llm.GenerateContent(context.Background(), messages,
		llms.WithModel("gpt-4o"),
		llms.WithTools([]llms.Tool{sumTool}),
		llms.WithToolChoice("none"),
		llms.WithMaxTokens(100),
	)
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "5+3 is 8", resp.Choices[0].Content)
	assert.Empty(t, resp.Choices[0].ToolCalls)

	body := rec.bodies[0]
	assert.Equal(t, "gpt-4o", body["model"])
	assert.Equal(t, "none", body["tool_choice"])
	assert.EqualValues(t, 100, body["max_completion_tokens"])
	require.Len(t, body["tools"], 1)

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 4)
	roles := make([]string, len(msgs))
	for i, m := range msgs {
		roles[i] = m.(map[string]any)["role"].(string)
	}
	assert.Equal(t, []string{"system", "user", "assistant", "tool"}, roles)

	assistant := msgs[2].(map[string]any)
	toolCalls := assistant["tool_calls"].([]any)
	require.Len(t, toolCalls, 1)
	tc := toolCalls[0].(map[string]any)
	assert.Equal(t, "call_1", tc["id"])
	assert.Equal(t, "function", tc["type"])
	assert.Equal(t, "sum", tc["function"].(map[string]any)["name"])

	toolMsg := msgs[3].(map[string]any)
	assert.Equal(t, "call_1", toolMsg["tool_call_id"])
	assert.Equal(t, "8", toolMsg["content"])
}

func TestGenerateContent_NoToolsNoChoice(t *testing.T) {
	rec := &recorder{response: textResponse}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	llm, err := openai.New(openai.WithToken("fake"), openai.WithBaseURL(srv.URL+"/"), openai.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = llm.GenerateContent(context.Background(),
		[]llms.Message{llms.MessageFromTextParts(llms.RoleHuman, "hi")},
		llms.WithToolChoice("auto"),
	)
	require.NoError(t, err)
	body := rec.bodies[0]
	assert.NotContains(t, body, "tools")
	assert.NotContains(t, body, "tool_choice")
}

func TestGenerateContent_Errors(t *testing.T) {
	rec := &recorder{
		status:   http.StatusNotFound,
		response: `{"error":{"message":"The model 'nope' does not exist","type":"invalid_request_error"}}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	llm, err := openai.New(openai.WithToken("fake"), openai.WithBaseURL(srv.URL+"/"), openai.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = llm.GenerateContent(context.Background(), []llms.Message{llms.MessageFromTextParts(llms.RoleHuman, "hi")}, llms.WithModel("nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai: failed to create chat completion")

	rec.status = 0
	rec.response = `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`
	_, err = llm.GenerateContent(context.Background(), []llms.Message{llms.MessageFromTextParts(llms.RoleHuman, "hi")})
	assert.ErrorIs(t, err, openai.ErrEmptyResponse)

	_, err = llm.GenerateContent(context.Background(), []llms.Message{llms.MessageFromParts(llms.RoleTool, llms.TextPart("x"))})
	assert.EqualError(t, err, "openai: expected part of type ToolCallResponse for role tool, got llms.TextContent")

	_, err = llm.GenerateContent(context.Background(), []llms.Message{llms.MessageFromTextParts("bot", "x")})
	assert.EqualError(t, err, "openai: role bot not supported")

	_, err = llm.GenerateContent(context.Background(),
		[]llms.Message{llms.MessageFromTextParts(llms.RoleHuman, "hi")},
		llms.WithTools([]llms.Tool{{Type: "code_interpreter"}}),
	)
	assert.EqualError(t, err, "openai: tool type code_interpreter not supported")
}

func TestAzure(t *testing.T) {
	rec := &recorder{response: textResponse}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	llm, err := openai.New(
		openai.WithToken("azure-key"),
		openai.WithProvider(llms.ProviderAzure),
		openai.WithBaseURL(srv.URL),
		openai.WithModel("my-deployment"),
		openai.WithMaxRetries(0),
	)
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderAzure, llm.GetProviderType())

	resp, err := llm.GenerateContent(context.Background(), []llms.Message{llms.MessageFromTextParts(llms.RoleHuman, "hi")})
	require.NoError(t, err)
	assert.Equal(t, "5+3 is 8", resp.Choices[0].Content)
	assert.Equal(t, "/openai/deployments/my-deployment/chat/completions", rec.paths[0])
	assert.Equal(t, "azure-key", rec.headers[0].Get("Api-Key"))
}

func TestGenerateContent_NoRetry(t *testing.T) {
	rec := &recorder{
		status:   http.StatusInternalServerError,
		response: `{"error":{"message":"internal error","type":"server_error"}}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	llm, err := openai.New(openai.WithToken("fake"), openai.WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	_, err = llm.GenerateContent(context.Background(), []llms.Message{llms.MessageFromTextParts(llms.RoleHuman, "hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai: failed to create chat completion")
	assert.Len(t, rec.bodies, 1)
}
