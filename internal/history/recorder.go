package history

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/trimlay/internal/editor"
)

// RecordingEngine wraps an engine and records each job it runs. History
// failures are logged and never fail the job.
type RecordingEngine struct {
	next   editor.Engine
	store  *Store
	logger zerolog.Logger
}

// Record wraps next so every Transcode call lands in store
func Record(next editor.Engine, store *Store, logger zerolog.Logger) *RecordingEngine {
	return &RecordingEngine{
		next:   next,
		store:  store,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// Transcode implements editor.Engine
func (r *RecordingEngine) Transcode(ctx context.Context, job editor.JobDescription, in editor.Inputs) ([]byte, error) {
	if err := r.store.Begin(ctx, job); err != nil {
		r.logger.Warn().Err(err).Str("job", job.ID).Msg("failed to record job start")
	}

	out, err := r.next.Transcode(ctx, job, in)

	// record even when the job's context was cancelled
	if ferr := r.store.Finish(context.WithoutCancel(ctx), job.ID, len(out), err); ferr != nil {
		r.logger.Warn().Err(ferr).Str("job", job.ID).Msg("failed to record job outcome")
	}

	return out, err
}
