package orchestrator

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ToolErrorPolicy defines how a failed tool call affects the query.
type ToolErrorPolicy string

const (
	// ToolErrorPolicyReport appends the failure as the tool response,
	// and lets the model answer with it.
	ToolErrorPolicyReport ToolErrorPolicy = "report"
	// ToolErrorPolicyAbort fails the query on the first failed tool call.
	ToolErrorPolicyAbort ToolErrorPolicy = "abort"
)

// ParseToolErrorPolicy returns the policy by name, empty name returns the default policy.
func ParseToolErrorPolicy(s string) (ToolErrorPolicy, error) {
	switch ToolErrorPolicy(strings.ToLower(s)) {
	case "", ToolErrorPolicyReport:
		return ToolErrorPolicyReport, nil
	case ToolErrorPolicyAbort:
		return ToolErrorPolicyAbort, nil
	}
	return "", errors.Newf("unsupported tool error policy: %q", s)
}

const (
	// DefaultMaxConcurrentTools invokes the tools of a round sequentially
	DefaultMaxConcurrentTools = 1
)

// Config of the Orchestrator
type Config struct {
	// MaxConcurrentTools bounds the number of tool calls of a round running concurrently.
	// Zero means DefaultMaxConcurrentTools.
	MaxConcurrentTools int
	// CompletionTimeout is the deadline of each completion call, zero means no deadline.
	CompletionTimeout time.Duration
	// ToolTimeout is the deadline of each tool invocation, zero means no deadline.
	ToolTimeout time.Duration
	// ToolErrorPolicy defines how a failed tool call affects the query,
	// default is ToolErrorPolicyReport.
	ToolErrorPolicy ToolErrorPolicy
}

// Option configures the Orchestrator
type Option func(*Orchestrator)

// WithConfig sets the configuration
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		o.cfg = cfg
	}
}

// WithCallback sets the callback handler
func WithCallback(cb Callback) Option {
	return func(o *Orchestrator) {
		o.callback = cb
	}
}

// WithMaxConcurrentTools sets the number of tool calls of a round running concurrently
func WithMaxConcurrentTools(n int) Option {
	return func(o *Orchestrator) {
		o.cfg.MaxConcurrentTools = n
	}
}

// WithCompletionTimeout sets the deadline of each completion call
func WithCompletionTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.cfg.CompletionTimeout = d
	}
}

// WithToolTimeout sets the deadline of each tool invocation
func WithToolTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.cfg.ToolTimeout = d
	}
}

// WithToolErrorPolicy sets the tool error policy
func WithToolErrorPolicy(p ToolErrorPolicy) Option {
	return func(o *Orchestrator) {
		o.cfg.ToolErrorPolicy = p
	}
}
