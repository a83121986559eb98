// Package store keeps the transcripts of answered queries:
// the query, the answer, the tool calls and the conversation sent to the model.
package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "store")

// ErrNotFound is returned when the transcript does not exist
var ErrNotFound = errors.New("transcript not found")

// TimeNowFn returns the current time
var TimeNowFn = time.Now

// Transcript is the record of a query
type Transcript struct {
	ID     string `json:"id" yaml:"id" toml:"id"`
	Query  string `json:"query" yaml:"query" toml:"query"`
	Model  string `json:"model,omitempty" yaml:"model,omitempty" toml:"model,omitempty"`
	Answer string `json:"answer,omitempty" yaml:"answer,omitempty" toml:"answer,omitempty"`
	// Fallback is set when the answer is the text of the first completion
	Fallback bool `json:"fallback,omitempty" yaml:"fallback,omitempty" toml:"fallback,omitempty"`
	// Error is set when the query failed
	Error     string          `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
	ToolCalls []llms.ToolCall `json:"tool_calls,omitempty" yaml:"tool_calls,omitempty" toml:"tool_calls,omitempty"`
	Messages  []llms.Message  `json:"messages,omitempty" yaml:"messages,omitempty" toml:"messages,omitempty"`
	CreatedAt time.Time       `json:"created_at" yaml:"created_at" toml:"created_at"`
}

// TranscriptStore persists the transcripts
type TranscriptStore interface {
	// Save creates or replaces the transcript
	Save(ctx context.Context, t *Transcript) error
	// Get returns the transcript by ID, or ErrNotFound
	Get(ctx context.Context, id string) (*Transcript, error)
	// List returns up to limit transcripts, the most recent first.
	// Zero limit returns all.
	List(ctx context.Context, limit int) ([]*Transcript, error)
	// Delete removes the transcript, deleting a missing transcript is not an error
	Delete(ctx context.Context, id string) error
	// Cleanup removes the transcripts created before now minus olderThan,
	// and returns the number of removed transcripts
	Cleanup(ctx context.Context, olderThan time.Duration) (uint32, error)
}
