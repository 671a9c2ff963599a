package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
)

// JobRepository is the durable work queue. Every state change is a single
// conditional statement so concurrent workers cannot both own a job.
type JobRepository interface {
	Enqueue(ctx context.Context, jobs ...*model.Job) error

	// Claim marks the most urgent eligible pending job as processing and
	// returns it, or nil when the queue has nothing eligible.
	Claim(ctx context.Context, types []model.JobType) (*model.Job, error)

	// Complete moves a processing job to completed.
	Complete(ctx context.Context, id uuid.UUID) error

	// Fail records a failed attempt. The job returns to pending at retryAt
	// unless permanent is set or the attempts are exhausted, in which case it
	// becomes failed. The updated job is returned.
	Fail(ctx context.Context, id uuid.UUID, lastError string, retryAt time.Time, permanent bool) (*model.Job, error)

	// Defer returns a processing job to pending at until without counting
	// an attempt. The job's deferral counter is incremented.
	Defer(ctx context.Context, id uuid.UUID, reason string, until time.Time) error

	// SweepStale reclaims jobs processing since before startedBefore. Jobs
	// with attempts left go back to pending; the others are returned failed.
	SweepStale(ctx context.Context, startedBefore time.Time) (reset int64, failed []*model.Job, err error)

	GetByID(ctx context.Context, id uuid.UUID) (*model.Job, error)
}
