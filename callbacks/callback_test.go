package callbacks_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/effective-security/toolchat/callbacks"
	"github.com/effective-security/toolchat/mcp/session"
	"github.com/effective-security/toolchat/orchestrator"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/stretchr/testify/assert"
)

type fakeModel struct{}

func (fakeModel) GetProviderType() llms.ProviderType { return llms.ProviderOpenAI }
func (fakeModel) GetName() string { return "fake-model" }
func (fakeModel) GenerateContent(context.Context, []llms.Message, ...llms.CallOption) (*llms.ContentResponse, error) {
	return nil, nil
}

var sumCall = llms.ToolCall{
	ID:   "call_1",
	Type: "function",
	FunctionCall: &llms.FunctionCall{
		Name:      "sum",
		Arguments: `{"a":2,"b":3}`,
	},
}

func replay(ctx context.Context, cb orchestrator.Callback, fallback bool) {
	llm := fakeModel{}
	msgs := []llms.Message{llms.MessageFromTextParts(llms.RoleHuman, "what is 2+3?")}
	resp := &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "5"}}}

	cb.OnQueryStart(ctx, "what is 2+3?")
	cb.OnToolsListed(ctx, []session.ToolDescriptor{{Name: "sum", Description: "Add two numbers"}})
	cb.OnLLMCallStart(ctx, llm, orchestrator.RoundFirst, msgs)
	cb.OnLLMCallEnd(ctx, llm, orchestrator.RoundFirst, resp)
	cb.OnToolCallsRequested(ctx, []llms.ToolCall{sumCall})
	cb.OnToolStart(ctx, sumCall)
	cb.OnToolEnd(ctx, sumCall, "5")
	cb.OnToolError(ctx, sumCall, errors.New("test error"))
	cb.OnLLMCallStart(ctx, llm, orchestrator.RoundSecond, msgs)
	cb.OnLLMCallEnd(ctx, llm, orchestrator.RoundSecond, resp)
	cb.OnQueryEnd(ctx, "what is 2+3?", &orchestrator.Result{ID: orchestrator.QueryID(ctx), Answer: "5", Fallback: fallback})
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	cb := callbacks.NewPrinter(&buf, callbacks.ModeDefault)
	replay(context.Background(), cb, false)

	exp := `fetching tools from MCP server...
Tools fetched successfully...
Sending query to fake-model along with available MCP tools...
LLM response received, with tools requested if any...
Calling the MCP server for tools requested by the model...
Tool Error: sum: test error
Passing tool results back to the model...
Final response received after processing tool results...
`
	assert.Equal(t, exp, buf.String())

	buf.Reset()
	cb.OnQueryError(context.Background(), "q", errors.New("no connection"))
	assert.Equal(t, "Query Error: no connection\n", buf.String())
}

func TestPrinter_Verbose(t *testing.T) {
	var buf bytes.Buffer
	cb := callbacks.NewPrinter(&buf, callbacks.ModeVerbose)
	replay(context.Background(), cb, true)

	res := buf.String()
	assert.Contains(t, res, "  - sum: Add two numbers\n")
	assert.Contains(t, res, "HUMAN: what is 2+3?\n")
	assert.Contains(t, res, "Tool Start: ToolCall: call_1 (sum), input: {\"a\":2,\"b\":3}\n")
	assert.Contains(t, res, "Tool End: sum\nOutput: 5\n")
	assert.Contains(t, res, "No content in final response, returning assistant message instead...\n")
}

func TestFanout(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	p1 := callbacks.NewPrinter(&buf1, callbacks.ModeDefault)
	cb := callbacks.NewFanout(p1, callbacks.NewNoop())
	p2 := callbacks.NewPrinter(&buf2, callbacks.ModeDefault)
	cb.Add(p2)

	replay(context.Background(), cb, true)
	cb.OnQueryError(context.Background(), "q", errors.New("failed"))

	assert.NotEmpty(t, buf1.String())
	assert.Equal(t, buf1.String(), buf2.String())
	assert.Contains(t, buf1.String(), "Query Error: failed")
}

func TestPackageLogger(t *testing.T) {
	var buf bytes.Buffer
	xlog.SetFormatter(xlog.NewStringFormatter(&buf))
	xlog.SetGlobalLogLevel(xlog.DEBUG)
	defer func() {
		xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
		xlog.SetGlobalLogLevel(xlog.INFO)
	}()

	logger := xlog.NewPackageLogger("github.com/effective-security/toolchat", "callbacks_test")
	cb := callbacks.NewPackageLogger(logger)
	replay(context.Background(), cb, false)
	cb.OnQueryError(context.Background(), "q", errors.New("failed"))

	res := buf.String()
	assert.Contains(t, res, "query_start")
	assert.Contains(t, res, "tools_listed")
	assert.Contains(t, res, "llm_call_start")
	assert.Contains(t, res, "second")
	assert.Contains(t, res, "tool_start")
	assert.Contains(t, res, "tool_error")
	assert.Contains(t, res, "query_end")
	assert.Contains(t, res, "query_error")
}
