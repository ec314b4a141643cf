package repository

import (
	"context"
	"time"

	"prism-connector/domain/model"
)

// ISchedule persists publish jobs. Claim semantics must be atomic so a
// cancel racing a fire resolves deterministically.
type ISchedule interface {
	Insert(ctx context.Context, job *model.ScheduledJob) error
	ListByPersona(ctx context.Context, personaID string) ([]*model.ScheduledJob, error)
	// Cancel flips a job to cancelled only while it is still scheduled.
	// Returns false for fired, already-cancelled, or unknown ids.
	Cancel(ctx context.Context, jobID string) (bool, error)
	// ClaimDue atomically marks up to limit scheduled jobs with run_at <= now
	// as fired and returns them. A claimed job is never returned twice.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledJob, error)
}
