package store

import (
	"context"

	"github.com/effective-security/toolchat/callbacks"
	"github.com/effective-security/toolchat/orchestrator"
	"github.com/effective-security/xlog"
)

// Recorder is the query callback that saves the transcript of each finished query.
// A failed save is logged and does not affect the query.
type Recorder struct {
	callbacks.Noop
	store TranscriptStore
}

var _ orchestrator.Callback = (*Recorder)(nil)

// NewRecorder returns the Recorder saving to the store
func NewRecorder(store TranscriptStore) *Recorder {
	return &Recorder{store: store}
}

func (r *Recorder) OnQueryEnd(ctx context.Context, query string, result *orchestrator.Result) {
	if result == nil {
		return
	}
	r.save(ctx, &Transcript{
		ID:        result.ID,
		Query:     query,
		Model:     result.Model,
		Answer:    result.Answer,
		Fallback:  result.Fallback,
		ToolCalls: result.ToolCalls,
		Messages:  result.Messages,
		CreatedAt: TimeNowFn().UTC(),
	})
}

func (r *Recorder) OnQueryError(ctx context.Context, query string, err error) {
	id := orchestrator.QueryID(ctx)
	if id == "" {
		return
	}
	r.save(ctx, &Transcript{
		ID:        id,
		Query:     query,
		Error:     err.Error(),
		CreatedAt: TimeNowFn().UTC(),
	})
}

func (r *Recorder) save(ctx context.Context, t *Transcript) {
	if err := r.store.Save(ctx, t); err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "save_failed",
			"query_id", t.ID,
			"err", err.Error())
	}
}
