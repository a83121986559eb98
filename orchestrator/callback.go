package orchestrator

import (
	"context"

	"github.com/effective-security/toolchat/mcp/session"
	"github.com/effective-security/toolchat/pkg/llms"
)

//go:generate mockgen -source=callback.go -destination=../mocks/mockorchestrator/callback_mock.gen.go -package mockorchestrator

// Round is the number of the completion call within a query
type Round int

const (
	// RoundFirst is the completion call with tools offered to the model
	RoundFirst Round = 1
	// RoundSecond is the completion call with the tool results and tool calls disabled
	RoundSecond Round = 2
)

func (r Round) String() string {
	switch r {
	case RoundFirst:
		return "first"
	case RoundSecond:
		return "second"
	}
	return "unknown"
}

// Callback receives the progress events of a query
type Callback interface {
	OnQueryStart(ctx context.Context, query string)
	OnToolsListed(ctx context.Context, tools []session.ToolDescriptor)
	OnLLMCallStart(ctx context.Context, llm llms.Model, round Round, payload []llms.Message)
	OnLLMCallEnd(ctx context.Context, llm llms.Model, round Round, resp *llms.ContentResponse)
	OnToolCallsRequested(ctx context.Context, calls []llms.ToolCall)
	OnToolStart(ctx context.Context, call llms.ToolCall)
	OnToolEnd(ctx context.Context, call llms.ToolCall, output string)
	OnToolError(ctx context.Context, call llms.ToolCall, err error)
	OnQueryEnd(ctx context.Context, query string, result *Result)
	OnQueryError(ctx context.Context, query string, err error)
}

type noopCallback struct{}

func (noopCallback) OnQueryStart(context.Context, string) {}
func (noopCallback) OnToolsListed(context.Context, []session.ToolDescriptor) {}
func (noopCallback) OnLLMCallStart(context.Context, llms.Model, Round, []llms.Message) {}
func (noopCallback) OnLLMCallEnd(context.Context, llms.Model, Round, *llms.ContentResponse) {}
func (noopCallback) OnToolCallsRequested(context.Context, []llms.ToolCall) {}
func (noopCallback) OnToolStart(context.Context, llms.ToolCall) {}
func (noopCallback) OnToolEnd(context.Context, llms.ToolCall, string) {}
func (noopCallback) OnToolError(context.Context, llms.ToolCall, error) {}
func (noopCallback) OnQueryEnd(context.Context, string, *Result) {}
func (noopCallback) OnQueryError(context.Context, string, error) {}
