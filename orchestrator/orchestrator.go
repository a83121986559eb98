package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/mcp/session"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/pkg/llmutils"
	"github.com/effective-security/toolchat/pkg/metricskey"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "orchestrator")

// ToolFailurePrefix starts the content of the tool response for a failed tool call,
// when the failure is reported to the model.
const ToolFailurePrefix = "Tool call failed: "

// State of a query
type State int

const (
	StateInit State = iota
	StateToolsListed
	StateFirstCompletionReceived
	StateNoToolCalls
	StateToolCallsPending
	StateToolsInvoked
	StateSecondCompletionReceived
	StateDone
)

var stateNames = map[State]string{
	StateInit:                     "init",
	StateToolsListed:              "tools_listed",
	StateFirstCompletionReceived:  "first_completion_received",
	StateNoToolCalls:              "no_tool_calls",
	StateToolCallsPending:         "tool_calls_pending",
	StateToolsInvoked:             "tools_invoked",
	StateSecondCompletionReceived: "second_completion_received",
	StateDone:                     "done",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Result of a query
type Result struct {
	// ID is the correlation ID of the query
	ID string
	// Model is the name of the model that answered the query
	Model string
	// Answer is the final text
	Answer string
	// Fallback is set when the second completion returned no text,
	// and the Answer is the text of the first completion
	Fallback bool
	// Messages is the conversation sent to the model
	Messages []llms.Message
	// ToolCalls are the tool calls requested by the model, in request order
	ToolCalls []llms.ToolCall
	// States are the states the query went through
	States []State
}

func (r *Result) transition(ctx context.Context, s State) {
	r.States = append(r.States, s)
	logger.ContextKV(ctx, xlog.DEBUG,
		"query_id", r.ID,
		"state", s.String())
}

// Orchestrator answers user queries with the completion model,
// using the tools of an MCP session.
// The Orchestrator keeps no state between queries.
type Orchestrator struct {
	llm      llms.Model
	cfg      Config
	callback Callback
}

// New returns the Orchestrator for the completion model
func New(llm llms.Model, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		llm:      llm,
		callback: noopCallback{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.callback == nil {
		o.callback = noopCallback{}
	}
	return o
}

// Config returns the configuration
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Query answers the query with the tools of the session.
// The model overrides the default model of the completion client, if provided.
func (o *Orchestrator) Query(ctx context.Context, sess session.Session, query, model string) (string, error) {
	res, err := o.Run(ctx, sess, query, model)
	if err != nil {
		return "", err
	}
	return res.Answer, nil
}

// Run answers the query with the tools of the session, and returns
// the conversation and the states of the query with the answer.
func (o *Orchestrator) Run(ctx context.Context, sess session.Session, query, model string) (*Result, error) {
	started := time.Now()
	modelName := values.StringsCoalesce(model, o.llm.GetName())
	defer metricskey.PerfQuery.MeasureSince(started, modelName)

	res := &Result{
		ID:     uuid.NewString(),
		Model:  modelName,
		States: []State{StateInit},
	}
	ctx = WithQueryID(ctx, res.ID)

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "query_start",
		"query_id", res.ID,
		"model", modelName,
		"query", slices.StringUpto(query, 64))

	o.callback.OnQueryStart(ctx, query)

	err := o.run(ctx, sess, query, model, modelName, res)
	if err != nil {
		metricskey.StatsQueriesFailed.IncrCounter(1, modelName)
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "query_failed",
			"query_id", res.ID,
			"model", modelName,
			"err", err.Error())
		o.callback.OnQueryError(ctx, query, err)
		return nil, err
	}

	metricskey.StatsQueriesSucceeded.IncrCounter(1, modelName)
	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "query_done",
		"query_id", res.ID,
		"tool_calls", len(res.ToolCalls),
		"fallback", res.Fallback,
		"elapsed", time.Since(started).String())
	o.callback.OnQueryEnd(ctx, query, res)
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, sess session.Session, query, model, modelName string, res *Result) error {
	if sess == nil {
		return errors.Mark(errors.New("session is not connected"), ErrTransport)
	}

	descriptors, err := sess.ListTools(ctx)
	if err != nil {
		return markf(err, ErrTransport, "failed to list tools")
	}
	res.transition(ctx, StateToolsListed)
	o.callback.OnToolsListed(ctx, descriptors)

	tools := Adapt(descriptors)
	if len(tools) > 0 && !o.llm.GetProviderType().Supports(llms.CapabilityFunctionCalling) {
		return errors.Mark(errors.Newf("%s model %s does not support function calling", o.llm.GetProviderType(), modelName), ErrCompletion)
	}

	res.Messages = []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, query),
	}

	first, err := o.complete(ctx, RoundFirst, modelName, res.Messages,
		o.callOptions(tools, model, llms.FunctionCallBehaviorAuto))
	if err != nil {
		return err
	}
	res.transition(ctx, StateFirstCompletionReceived)

	text, calls := assistantReply(first)
	calls = normalizeToolCalls(calls)
	res.ToolCalls = calls
	res.Messages = append(res.Messages, llms.MessageFromAssistant(text, calls...))

	if len(calls) == 0 {
		res.transition(ctx, StateNoToolCalls)
		res.Answer = text
		res.transition(ctx, StateDone)
		return nil
	}

	res.transition(ctx, StateToolCallsPending)
	o.callback.OnToolCallsRequested(ctx, calls)

	responses, err := o.invokeTools(ctx, sess, calls)
	if err != nil {
		return err
	}
	for _, r := range responses {
		res.Messages = append(res.Messages, llms.MessageFromToolResponse(r))
	}
	res.transition(ctx, StateToolsInvoked)

	second, err := o.complete(ctx, RoundSecond, modelName, res.Messages,
		o.callOptions(tools, model, llms.FunctionCallBehaviorNone))
	if err != nil {
		return err
	}
	res.transition(ctx, StateSecondCompletionReceived)

	answer, ignored := assistantReply(second)
	if len(ignored) > 0 {
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_calls_ignored",
			"query_id", res.ID,
			"count", len(ignored))
	}

	if answer == "" {
		answer = text
		res.Fallback = true
		logger.ContextKV(ctx, xlog.DEBUG,
			"status", "fallback_to_first_answer",
			"query_id", res.ID)
	}
	res.Answer = answer
	res.transition(ctx, StateDone)
	return nil
}

func (o *Orchestrator) callOptions(tools []llms.Tool, model string, choice llms.FunctionCallBehavior) []llms.CallOption {
	opts := []llms.CallOption{
		llms.WithTools(tools),
		llms.WithToolChoice(choice),
	}
	if model != "" {
		opts = append(opts, llms.WithModel(model))
	}
	return opts
}

// complete performs the completion call of the round
func (o *Orchestrator) complete(ctx context.Context, round Round, modelName string, messages []llms.Message, opts []llms.CallOption) (*llms.ContentResponse, error) {
	if o.cfg.CompletionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.CompletionTimeout)
		defer cancel()
	}

	roundName := round.String()
	bytesSent := llmutils.MessagesSize(messages)
	metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(messages)), roundName, modelName)
	metricskey.StatsLLMBytesSent.IncrCounter(float64(bytesSent), roundName, modelName)

	o.callback.OnLLMCallStart(ctx, o.llm, round, messages)

	started := time.Now()
	resp, err := o.llm.GenerateContent(ctx, messages, opts...)
	metricskey.PerfLLMCall.MeasureSince(started, roundName, modelName)
	if err == nil && resp != nil {
		resp.Choices = nonNilChoices(resp.Choices)
	}
	if err == nil && (resp == nil || len(resp.Choices) == 0) {
		err = errors.New("empty response")
	}
	if err != nil {
		metricskey.StatsLLMCallsFailed.IncrCounter(1, roundName, modelName)
		return nil, markf(err, ErrCompletion, "%s completion call failed", roundName)
	}

	o.callback.OnLLMCallEnd(ctx, o.llm, round, resp)

	usage := llmutils.ResponseUsage(resp)
	metricskey.StatsLLMBytesReceived.IncrCounter(float64(usage.Bytes), roundName, modelName)
	metricskey.StatsLLMInputTokens.IncrCounter(float64(usage.InputTokens), roundName, modelName)
	metricskey.StatsLLMOutputTokens.IncrCounter(float64(usage.OutputTokens), roundName, modelName)
	metricskey.StatsLLMTotalTokens.IncrCounter(float64(usage.TotalTokens), roundName, modelName)

	return resp, nil
}

// invokeTools invokes the tool calls of the round, and returns the responses
// in the order of the calls
func (o *Orchestrator) invokeTools(ctx context.Context, sess session.Session, calls []llms.ToolCall) ([]llms.ToolCallResponse, error) {
	responses := make([]llms.ToolCallResponse, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(values.NumbersCoalesce(o.cfg.MaxConcurrentTools, DefaultMaxConcurrentTools))

	for i, call := range calls {
		g.Go(func() error {
			// a failed call of the round, or the caller, cancelled the query
			if err := gctx.Err(); err != nil {
				return errors.Wrapf(err, "tool %s not invoked", call.FunctionCall.Name)
			}
			content, err := o.invokeTool(gctx, sess, call)
			if err != nil {
				if o.cfg.ToolErrorPolicy == ToolErrorPolicyAbort || errors.Is(err, ErrTransport) {
					return err
				}
				content = ToolFailurePrefix + err.Error()
			}
			responses[i] = llms.ToolCallResponse{
				ToolCallID: call.ID,
				Name:       call.FunctionCall.Name,
				Content:    content,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return responses, nil
}

func (o *Orchestrator) invokeTool(ctx context.Context, sess session.Session, call llms.ToolCall) (string, error) {
	name := call.FunctionCall.Name
	if name == "" {
		err := errors.Mark(errors.Newf("tool call %s has no function name", call.ID), ErrToolInvocation)
		o.callback.OnToolError(ctx, call, err)
		return "", err
	}

	args, err := DecodeArguments(call.FunctionCall.Arguments)
	if err != nil {
		metricskey.StatsToolArgsParseErrors.IncrCounter(1, name)
		err = errors.WithMessagef(err, "tool %s", name)
		o.callback.OnToolError(ctx, call, err)
		return "", err
	}

	if o.cfg.ToolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.ToolTimeout)
		defer cancel()
	}

	o.callback.OnToolStart(ctx, call)

	started := time.Now()
	result, err := sess.CallTool(ctx, name, args)
	metricskey.PerfToolCall.MeasureSince(started, name)

	switch {
	case err != nil && errors.Is(err, session.ErrClosed):
		err = markf(err, ErrTransport, "tool %s", name)
	case err != nil:
		err = markf(err, ErrToolInvocation, "tool %s", name)
	case result == nil:
		err = errors.Mark(errors.Newf("tool %s returned no result", name), ErrToolInvocation)
	case result.IsError:
		err = errors.Mark(errors.Newf("tool %s reported error: %s", name, result.Text()), ErrToolInvocation)
	}
	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, name)
		logger.ContextKV(ctx, xlog.DEBUG,
			"status", "tool_failed",
			"tool", name,
			"tool_call_id", call.ID,
			"err", err.Error())
		o.callback.OnToolError(ctx, call, err)
		return "", err
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, name)
	out := result.Text()
	o.callback.OnToolEnd(ctx, call, out)
	return out, nil
}

func nonNilChoices(choices []*llms.ContentChoice) []*llms.ContentChoice {
	list := choices[:0]
	for _, c := range choices {
		if c != nil {
			list = append(list, c)
		}
	}
	return list
}

// assistantReply returns the text and the tool calls of the response.
// Providers return one choice, the texts and calls of several choices are merged.
func assistantReply(resp *llms.ContentResponse) (string, []llms.ToolCall) {
	var texts []string
	var calls []llms.ToolCall
	for _, choice := range resp.Choices {
		if choice == nil {
			continue
		}
		if choice.Content != "" {
			texts = append(texts, choice.Content)
		}
		calls = append(calls, choice.ToolCalls...)
	}
	return strings.Join(texts, "\n"), calls
}

// normalizeToolCalls returns a copy of the calls with ID and type set,
// as every tool response must refer to the ID of its call
func normalizeToolCalls(calls []llms.ToolCall) []llms.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	res := make([]llms.ToolCall, 0, len(calls))
	for _, call := range calls {
		tc := llms.ToolCall{
			ID:           call.ID,
			Type:         values.StringsCoalesce(call.Type, ToolTypeFunction),
			FunctionCall: &llms.FunctionCall{},
		}
		if tc.ID == "" {
			tc.ID = "call_" + uuid.NewString()
		}
		if call.FunctionCall != nil {
			*tc.FunctionCall = *call.FunctionCall
		}
		res = append(res, tc)
	}
	return res
}
