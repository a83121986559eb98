package llmutils

import (
	"fmt"
	"io"
	"strings"

	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/x/values"
)

// Usage is the content size and the token usage of a completion response
type Usage struct {
	Bytes        uint64
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ResponseUsage sums the content size and the tokens reported in GenerationInfo
// over the choices of the response. Nil choices are skipped.
func ResponseUsage(resp *llms.ContentResponse) Usage {
	var u Usage
	if resp == nil {
		return u
	}
	for _, choice := range resp.Choices {
		if choice == nil {
			continue
		}
		u.Bytes += uint64(len(choice.Content))
		for _, call := range choice.ToolCalls {
			u.Bytes += toolCallSize(call)
		}
		info := values.MapAny(choice.GenerationInfo)
		u.InputTokens += info.Int64("InputTokens")
		u.OutputTokens += info.Int64("OutputTokens")
		u.TotalTokens += info.Int64("TotalTokens")
	}
	return u
}

// MessagesSize returns the size of the roles and the parts of the messages
func MessagesSize(msgs []llms.Message) uint64 {
	var size uint64
	for _, msg := range msgs {
		size += uint64(len(msg.Role))
		for _, p := range msg.Parts {
			size += partSize(p)
		}
	}
	return size
}

func partSize(p llms.ContentPart) uint64 {
	switch pp := p.(type) {
	case llms.TextContent:
		return uint64(len(pp.Text))
	case llms.ToolCall:
		return toolCallSize(pp)
	case llms.ToolCallResponse:
		return uint64(len(pp.ToolCallID) + len(pp.Name) + len(pp.Content))
	}
	return 0
}

func toolCallSize(call llms.ToolCall) uint64 {
	size := len(call.ID) + len(call.Type)
	if call.FunctionCall != nil {
		size += len(call.FunctionCall.Name) + len(call.FunctionCall.Arguments)
	}
	return uint64(size)
}

// PrintMessages writes the conversation to w, one line per part.
func PrintMessages(w io.Writer, msgs []llms.Message) {
	for _, msg := range msgs {
		fmt.Fprintf(w, "%s: ", strings.ToUpper(string(msg.Role)))
		for _, p := range msg.Parts {
			if line, ok := describePart(p); ok {
				fmt.Fprintln(w, line)
			}
		}
	}
}

func describePart(p llms.ContentPart) (string, bool) {
	switch pp := p.(type) {
	case llms.TextContent:
		return pp.Text, true
	case llms.ToolCall:
		var name, args string
		if pp.FunctionCall != nil {
			name, args = pp.FunctionCall.Name, pp.FunctionCall.Arguments
		}
		return fmt.Sprintf("ToolCall ID=%s, Type=%s, Func=%s(%s)", pp.ID, pp.Type, name, args), true
	case llms.ToolCallResponse:
		return fmt.Sprintf("ToolCallResponse ID=%s, Name=%s, Content=%s", pp.ToolCallID, pp.Name, pp.Content), true
	}
	return "", false
}
