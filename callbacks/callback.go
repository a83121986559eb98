package callbacks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/effective-security/toolchat/mcp/session"
	"github.com/effective-security/toolchat/orchestrator"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/pkg/llmutils"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

// ensure that the callbacks implement the correct interfaces
var (
	_ orchestrator.Callback = (*Noop)(nil)
	_ orchestrator.Callback = (*Printer)(nil)
	_ orchestrator.Callback = (*PackageLogger)(nil)
	_ orchestrator.Callback = (*Fanout)(nil)
	_ orchestrator.Callback = (*Scratchpad)(nil)
)

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault is the default mode for callback printing
	ModeDefault Mode = iota
	// ModeVerbose is the verbose mode for callback printing
	ModeVerbose
)

// Fanout is a callback handler that forwards the events to multiple callbacks.
type Fanout struct {
	callbacks []orchestrator.Callback
}

func NewFanout(callbacks ...orchestrator.Callback) *Fanout {
	return &Fanout{callbacks: callbacks}
}

func (l *Fanout) Add(callback orchestrator.Callback) {
	l.callbacks = append(l.callbacks, callback)
}

func (l *Fanout) OnQueryStart(ctx context.Context, query string) {
	for _, callback := range l.callbacks {
		callback.OnQueryStart(ctx, query)
	}
}

func (l *Fanout) OnToolsListed(ctx context.Context, tools []session.ToolDescriptor) {
	for _, callback := range l.callbacks {
		callback.OnToolsListed(ctx, tools)
	}
}

func (l *Fanout) OnLLMCallStart(ctx context.Context, llm llms.Model, round orchestrator.Round, payload []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallStart(ctx, llm, round, payload)
	}
}

func (l *Fanout) OnLLMCallEnd(ctx context.Context, llm llms.Model, round orchestrator.Round, resp *llms.ContentResponse) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallEnd(ctx, llm, round, resp)
	}
}

func (l *Fanout) OnToolCallsRequested(ctx context.Context, calls []llms.ToolCall) {
	for _, callback := range l.callbacks {
		callback.OnToolCallsRequested(ctx, calls)
	}
}

func (l *Fanout) OnToolStart(ctx context.Context, call llms.ToolCall) {
	for _, callback := range l.callbacks {
		callback.OnToolStart(ctx, call)
	}
}

func (l *Fanout) OnToolEnd(ctx context.Context, call llms.ToolCall, output string) {
	for _, callback := range l.callbacks {
		callback.OnToolEnd(ctx, call, output)
	}
}

func (l *Fanout) OnToolError(ctx context.Context, call llms.ToolCall, err error) {
	for _, callback := range l.callbacks {
		callback.OnToolError(ctx, call, err)
	}
}

func (l *Fanout) OnQueryEnd(ctx context.Context, query string, result *orchestrator.Result) {
	for _, callback := range l.callbacks {
		callback.OnQueryEnd(ctx, query, result)
	}
}

func (l *Fanout) OnQueryError(ctx context.Context, query string, err error) {
	for _, callback := range l.callbacks {
		callback.OnQueryError(ctx, query, err)
	}
}

// Noop does nothing.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (l *Noop) OnQueryStart(ctx context.Context, query string) {}
func (l *Noop) OnToolsListed(ctx context.Context, tools []session.ToolDescriptor) {
}
func (l *Noop) OnLLMCallStart(ctx context.Context, llm llms.Model, round orchestrator.Round, payload []llms.Message) {
}
func (l *Noop) OnLLMCallEnd(ctx context.Context, llm llms.Model, round orchestrator.Round, resp *llms.ContentResponse) {
}
func (l *Noop) OnToolCallsRequested(ctx context.Context, calls []llms.ToolCall) {}
func (l *Noop) OnToolStart(ctx context.Context, call llms.ToolCall) {}
func (l *Noop) OnToolEnd(ctx context.Context, call llms.ToolCall, output string) {}
func (l *Noop) OnToolError(ctx context.Context, call llms.ToolCall, err error) {}
func (l *Noop) OnQueryEnd(ctx context.Context, query string, result *orchestrator.Result) {
}
func (l *Noop) OnQueryError(ctx context.Context, query string, err error) {}

// Printer is a callback handler that prints the progress of a query to the Writer.
type Printer struct {
	Out  io.Writer
	Mode Mode

	lock sync.Mutex
}

func NewPrinter(out io.Writer, mode Mode) *Printer {
	return &Printer{Out: out, Mode: mode}
}

func (l *Printer) OnQueryStart(ctx context.Context, query string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintln(l.Out, "fetching tools from MCP server...")
}

func (l *Printer) OnToolsListed(ctx context.Context, tools []session.ToolDescriptor) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintln(l.Out, "Tools fetched successfully...")
	if l.Mode == ModeVerbose {
		for _, t := range tools {
			fmt.Fprintf(l.Out, "  - %s: %s\n", t.Name, t.Description)
		}
	}
}

func (l *Printer) OnLLMCallStart(ctx context.Context, llm llms.Model, round orchestrator.Round, payload []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if round == orchestrator.RoundFirst {
		fmt.Fprintf(l.Out, "Sending query to %s along with available MCP tools...\n", llm.GetName())
	} else {
		fmt.Fprintln(l.Out, "Passing tool results back to the model...")
	}
	if l.Mode == ModeVerbose {
		llmutils.PrintMessages(l.Out, payload)
	}
}

func (l *Printer) OnLLMCallEnd(ctx context.Context, llm llms.Model, round orchestrator.Round, resp *llms.ContentResponse) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if round == orchestrator.RoundFirst {
		fmt.Fprintln(l.Out, "LLM response received, with tools requested if any...")
	} else {
		fmt.Fprintln(l.Out, "Final response received after processing tool results...")
	}
}

func (l *Printer) OnToolCallsRequested(ctx context.Context, calls []llms.ToolCall) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintln(l.Out, "Calling the MCP server for tools requested by the model...")
}

func (l *Printer) OnToolStart(ctx context.Context, call llms.ToolCall) {
	if l.Mode != ModeVerbose {
		return
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Start: %s\n", call.String())
}

func (l *Printer) OnToolEnd(ctx context.Context, call llms.ToolCall, output string) {
	if l.Mode != ModeVerbose {
		return
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool End: %s\n", toolName(call))
	fmt.Fprintf(l.Out, "Output: %s\n", output)
}

func (l *Printer) OnToolError(ctx context.Context, call llms.ToolCall, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Error: %s: %s\n", toolName(call), err.Error())
}

func (l *Printer) OnQueryEnd(ctx context.Context, query string, result *orchestrator.Result) {
	if result == nil || !result.Fallback {
		return
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintln(l.Out, "No content in final response, returning assistant message instead...")
}

func (l *Printer) OnQueryError(ctx context.Context, query string, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Query Error: %s\n", err.Error())
}

// PackageLogger is a callback handler that prints to the logger.
type PackageLogger struct {
	logger *xlog.PackageLogger
}

func NewPackageLogger(logger *xlog.PackageLogger) *PackageLogger {
	return &PackageLogger{logger: logger}
}

func (l *PackageLogger) OnQueryStart(ctx context.Context, query string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "query_start",
		"query", slices.StringUpto(query, 256),
	)
}

func (l *PackageLogger) OnToolsListed(ctx context.Context, tools []session.ToolDescriptor) {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tools_listed",
		"tools", names,
	)
}

func (l *PackageLogger) OnLLMCallStart(ctx context.Context, llm llms.Model, round orchestrator.Round, payload []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_start",
		"round", round.String(),
		"model", llm.GetName(),
		"messages", len(payload),
	)
}

func (l *PackageLogger) OnLLMCallEnd(ctx context.Context, llm llms.Model, round orchestrator.Round, resp *llms.ContentResponse) {
	usage := llmutils.ResponseUsage(resp)
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_end",
		"round", round.String(),
		"model", llm.GetName(),
		"choices", len(resp.Choices),
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
	)
}

func (l *PackageLogger) OnToolCallsRequested(ctx context.Context, calls []llms.ToolCall) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_calls_requested",
		"count", len(calls),
	)
}

func (l *PackageLogger) OnToolStart(ctx context.Context, call llms.ToolCall) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"tool", toolName(call),
		"tool_call_id", call.ID,
		"input", toolArguments(call),
	)
}

func (l *PackageLogger) OnToolEnd(ctx context.Context, call llms.ToolCall, output string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"tool", toolName(call),
		"tool_call_id", call.ID,
		"output", slices.StringUpto(output, 256),
	)
}

func (l *PackageLogger) OnToolError(ctx context.Context, call llms.ToolCall, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"tool", toolName(call),
		"tool_call_id", call.ID,
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnQueryEnd(ctx context.Context, query string, result *orchestrator.Result) {
	if result == nil {
		return
	}
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "query_end",
		"query_id", result.ID,
		"tool_calls", len(result.ToolCalls),
		"fallback", result.Fallback,
	)
}

func (l *PackageLogger) OnQueryError(ctx context.Context, query string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "query_error",
		"err", err.Error(),
	)
}

func toolName(call llms.ToolCall) string {
	if call.FunctionCall == nil {
		return ""
	}
	return call.FunctionCall.Name
}

func toolArguments(call llms.ToolCall) string {
	if call.FunctionCall == nil {
		return ""
	}
	return call.FunctionCall.Arguments
}
