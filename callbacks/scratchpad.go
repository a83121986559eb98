package callbacks

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/effective-security/toolchat/mcp/session"
	"github.com/effective-security/toolchat/orchestrator"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/pkg/llmutils"
)

var TimeNowFn = time.Now

// RunStats is the summary of a query
type RunStats struct {
	QueryID string

	Duration            time.Duration
	Failed              bool
	ToolsListed         uint32
	TotalMessages       uint32
	LLMCalls            uint32
	LLMBytesOut         uint64
	LLMBytesIn          uint64
	LLMInputTokens      uint64
	LLMOutputTokens     uint64
	LLMTotalTokens      uint64
	ToolsCalls          uint32
	ToolsCallsSucceeded uint32
	ToolsCallsFailed    uint32
}

// Scratchpad records the events and the stats of each query,
// identified by the query ID of the context.
type Scratchpad struct {
	runs     map[string]*run
	finished map[string]*run
	last     string
	mode     Mode
	lock     sync.Mutex
}

func NewScratchpad(mode Mode) *Scratchpad {
	return &Scratchpad{
		runs:     make(map[string]*run),
		finished: make(map[string]*run),
		mode:     mode,
	}
}

// EndRun returns the stats and the scratchpad of the finished query,
// and forgets it.
func (l *Scratchpad) EndRun(queryID string) (*RunStats, []byte) {
	l.lock.Lock()
	defer l.lock.Unlock()

	run := l.finished[queryID]
	if run == nil {
		return nil, nil
	}
	delete(l.finished, queryID)
	if l.last == queryID {
		l.last = ""
	}

	stats := run.stats
	return &stats, run.w.Bytes()
}

// Last returns the stats and the scratchpad of the last finished query,
// and forgets it.
func (l *Scratchpad) Last() (*RunStats, []byte) {
	l.lock.Lock()
	id := l.last
	l.lock.Unlock()
	if id == "" {
		return nil, nil
	}
	return l.EndRun(id)
}

func (l *Scratchpad) getRun(ctx context.Context) *run {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.runs[orchestrator.QueryID(ctx)]
}

func (l *Scratchpad) OnQueryStart(ctx context.Context, query string) {
	id := orchestrator.QueryID(ctx)
	if id == "" {
		return
	}

	r := &run{
		stats:   RunStats{QueryID: id},
		started: TimeNowFn(),
	}

	l.lock.Lock()
	l.runs[id] = r
	l.lock.Unlock()

	r.print("*** Query Started ***")
	r.print("Query:", query)
}

func (l *Scratchpad) finish(ctx context.Context, failed bool) *run {
	id := orchestrator.QueryID(ctx)

	l.lock.Lock()
	defer l.lock.Unlock()

	r := l.runs[id]
	if r == nil {
		return nil
	}
	delete(l.runs, id)
	l.finished[id] = r
	l.last = id

	r.stats.Duration = TimeNowFn().Sub(r.started)
	r.stats.Failed = failed
	return r
}

func (l *Scratchpad) OnQueryEnd(ctx context.Context, query string, result *orchestrator.Result) {
	r := l.finish(ctx, false)
	if r == nil {
		return
	}
	if result != nil && result.Fallback {
		r.print("*** Fallback to the first answer ***")
	}
	r.printStats()
}

func (l *Scratchpad) OnQueryError(ctx context.Context, query string, err error) {
	r := l.finish(ctx, true)
	if r == nil {
		return
	}
	r.print("*** Error ***", err.Error())
	r.printStats()
}

func (l *Scratchpad) OnToolsListed(ctx context.Context, tools []session.ToolDescriptor) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.StoreUint32(&r.stats.ToolsListed, uint32(len(tools)))

	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	r.print("*** Tools Listed ***", strings.Join(names, ", "))
}

func (l *Scratchpad) OnLLMCallStart(ctx context.Context, llm llms.Model, round orchestrator.Round, payload []llms.Message) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}

	atomic.AddUint64(&r.stats.LLMBytesOut, llmutils.MessagesSize(payload))
	atomic.AddUint32(&r.stats.LLMCalls, 1)
	count := uint32(len(payload))
	atomic.AddUint32(&r.stats.TotalMessages, count)

	r.print("*** LLM Call ***", fmt.Sprintf("%s round, %s model, %d messages", round, llm.GetName(), count))
	if l.mode == ModeVerbose {
		var buf strings.Builder
		llmutils.PrintMessages(&buf, payload)
		r.print(strings.TrimSuffix(buf.String(), "\n"))
	}
}

func (l *Scratchpad) OnLLMCallEnd(ctx context.Context, llm llms.Model, round orchestrator.Round, resp *llms.ContentResponse) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}

	usage := llmutils.ResponseUsage(resp)
	atomic.AddUint64(&r.stats.LLMBytesIn, usage.Bytes)
	atomic.AddUint64(&r.stats.LLMInputTokens, uint64(usage.InputTokens))
	atomic.AddUint64(&r.stats.LLMOutputTokens, uint64(usage.OutputTokens))
	atomic.AddUint64(&r.stats.LLMTotalTokens, uint64(usage.TotalTokens))

	r.print("*** LLM Call End ***", fmt.Sprintf("%s round, %s model, %d input tokens, %d output tokens, %d total tokens", round, llm.GetName(), usage.InputTokens, usage.OutputTokens, usage.TotalTokens))
	if l.mode == ModeVerbose {
		for _, choice := range resp.Choices {
			if choice != nil && choice.Content != "" {
				r.print("Output:", choice.Content)
			}
		}
	}
}

func (l *Scratchpad) OnToolCallsRequested(ctx context.Context, calls []llms.ToolCall) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	r.print("*** Tool Calls Requested ***", fmt.Sprintf("%d calls", len(calls)))
}

func (l *Scratchpad) OnToolStart(ctx context.Context, call llms.ToolCall) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint32(&r.stats.ToolsCalls, 1)
	r.print(toolName(call), "*** Tool Start ***")
	r.print(toolName(call), "Input:", toolArguments(call))
}

func (l *Scratchpad) OnToolEnd(ctx context.Context, call llms.ToolCall, output string) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint32(&r.stats.ToolsCallsSucceeded, 1)
	if l.mode == ModeVerbose {
		r.print(toolName(call), "Output:", output)
	}
	r.print(toolName(call), "*** Tool End ***")
}

func (l *Scratchpad) OnToolError(ctx context.Context, call llms.ToolCall, err error) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint32(&r.stats.ToolsCallsFailed, 1)
	r.print(toolName(call), "*** Tool Error ***", err.Error())
}

type run struct {
	w       bytes.Buffer
	started time.Time
	lock    sync.Mutex
	stats   RunStats
}

func (r *run) printStats() {
	stats := r.stats
	r.print(fmt.Sprintf("Tools listed: %d", stats.ToolsListed))
	r.print(fmt.Sprintf("Tool calls: %d, Succeeded: %d, Failed: %d",
		stats.ToolsCalls,
		stats.ToolsCallsSucceeded,
		stats.ToolsCallsFailed,
	))
	r.print(fmt.Sprintf("LLM calls: %d, Messages: %d, Bytes Out: %d, Bytes In: %d, Bytes Total: %d, Input Tokens: %d, Output Tokens: %d, Total Tokens: %d",
		stats.LLMCalls,
		stats.TotalMessages,
		stats.LLMBytesOut,
		stats.LLMBytesIn,
		stats.LLMBytesOut+stats.LLMBytesIn,
		stats.LLMInputTokens,
		stats.LLMOutputTokens,
		stats.LLMTotalTokens,
	))
	r.print(fmt.Sprintf("*** Query Ended. Duration: %s ***", stats.Duration))
}

// print writes the entries to the run's output.
// The entries are written in the following format:
// [timestamp queryID] entry entry\n
func (r *run) print(entries ...string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	now := TimeNowFn()
	ts := now.Format("2006-01-02 15:04:05")

	_, _ = r.w.WriteString(ts)
	_, _ = r.w.WriteString(" ")
	_, _ = r.w.WriteString(r.stats.QueryID)
	_, _ = r.w.WriteString(" ")

	for i, entry := range entries {
		if i > 0 {
			_, _ = r.w.WriteString(" ")
		}
		_, _ = r.w.WriteString(entry)
	}
	_, _ = r.w.WriteString("\n")
}
