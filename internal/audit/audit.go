package audit

import (
	"context"

	"github.com/coverly/erp-bridge/internal/health"
	"github.com/coverly/erp-bridge/internal/models"
)

// Recorder receives audit events for administrative cache clears and
// completed health-check runs. Recording is best-effort everywhere: failures
// are surfaced as errors for the caller to log, never to abort the operation
// that produced the event.
type Recorder interface {
	RecordCacheClear(ctx context.Context, rec models.CacheClearAudit) error
	RecordHealthRun(ctx context.Context, summary health.Summary) error
}

// Nop discards all events.
type Nop struct{}

func (Nop) RecordCacheClear(context.Context, models.CacheClearAudit) error { return nil }
func (Nop) RecordHealthRun(context.Context, health.Summary) error          { return nil }

type multi []Recorder

// Combine fans events out to every recorder, returning the first error after
// all have been attempted.
func Combine(recorders ...Recorder) Recorder {
	return multi(recorders)
}

func (m multi) RecordCacheClear(ctx context.Context, rec models.CacheClearAudit) error {
	var first error
	for _, r := range m {
		if err := r.RecordCacheClear(ctx, rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m multi) RecordHealthRun(ctx context.Context, summary health.Summary) error {
	var first error
	for _, r := range m {
		if err := r.RecordHealthRun(ctx, summary); err != nil && first == nil {
			first = err
		}
	}
	return first
}
