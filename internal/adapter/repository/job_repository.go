package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	domainRepo "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/repository"
)

type jobRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewJobRepository creates the job queue repository
func NewJobRepository(db *gorm.DB, logger *zap.Logger) domainRepo.JobRepository {
	return &jobRepository{
		db:     db,
		logger: logger,
	}
}

// Enqueue inserts pending jobs
func (r *jobRepository) Enqueue(ctx context.Context, jobs ...*model.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(jobs).Error; err != nil {
		r.logger.Error("Failed to enqueue jobs",
			zap.Int("count", len(jobs)),
			zap.Error(err))
		return fmt.Errorf("failed to enqueue jobs: %w", err)
	}
	return nil
}

// claimSQL selects and marks one job in a single statement. SKIP LOCKED lets
// concurrent claimers pass over a row another transaction is taking.
const claimSQL = `UPDATE jobs
SET status = 'processing', started_at = NOW(), updated_at = NOW()
WHERE id = (
	SELECT id FROM jobs
	WHERE status = 'pending' AND scheduled_at <= NOW()%s
	ORDER BY priority DESC, created_at ASC
	LIMIT 1
	FOR UPDATE SKIP LOCKED
)
RETURNING *`

// Claim takes the most urgent eligible job
func (r *jobRepository) Claim(ctx context.Context, types []model.JobType) (*model.Job, error) {
	filter := ""
	var args []interface{}
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		filter = " AND job_type IN ?"
		args = append(args, names)
	}

	var jobs []*model.Job
	if err := r.db.WithContext(ctx).Raw(fmt.Sprintf(claimSQL, filter), args...).Scan(&jobs).Error; err != nil {
		r.logger.Error("Failed to claim job", zap.Error(err))
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return jobs[0], nil
}

// Complete marks a processing job completed
func (r *jobRepository) Complete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE jobs SET status = 'completed', completed_at = NOW(), updated_at = NOW()
WHERE id = ? AND status = 'processing'`, id)
	if result.Error != nil {
		r.logger.Error("Failed to complete job",
			zap.String("job_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to complete job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		r.logger.Warn("Completed job was no longer processing",
			zap.String("job_id", id.String()))
	}
	return nil
}

const failSQL = `UPDATE jobs
SET attempts = attempts + 1,
	last_error = ?,
	updated_at = NOW(),
	status = CASE WHEN ? OR attempts + 1 >= max_attempts THEN 'failed' ELSE 'pending' END,
	scheduled_at = CASE WHEN ? OR attempts + 1 >= max_attempts THEN scheduled_at ELSE ? END,
	completed_at = CASE WHEN ? OR attempts + 1 >= max_attempts THEN NOW() ELSE NULL END
WHERE id = ? AND status = 'processing'
RETURNING *`

// Fail records a failed attempt and either re-queues or fails the job
func (r *jobRepository) Fail(ctx context.Context, id uuid.UUID, lastError string, retryAt time.Time, permanent bool) (*model.Job, error) {
	var jobs []*model.Job
	err := r.db.WithContext(ctx).
		Raw(failSQL, truncate(lastError, 2000), permanent, permanent, retryAt, permanent, id).
		Scan(&jobs).Error
	if err != nil {
		r.logger.Error("Failed to record job failure",
			zap.String("job_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to record job failure: %w", err)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("job %s is not processing", id)
	}
	return jobs[0], nil
}

// Defer puts a processing job back without counting an attempt
func (r *jobRepository) Defer(ctx context.Context, id uuid.UUID, reason string, until time.Time) error {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE jobs SET status = 'pending', scheduled_at = ?, last_error = ?, deferrals = deferrals + 1, updated_at = NOW()
WHERE id = ? AND status = 'processing'`, until, truncate(reason, 2000), id)
	if result.Error != nil {
		r.logger.Error("Failed to defer job",
			zap.String("job_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to defer job: %w", result.Error)
	}
	return nil
}

const sweepSQL = `UPDATE jobs
SET attempts = attempts + 1,
	last_error = 'processing timed out: worker presumed dead',
	updated_at = NOW(),
	status = CASE WHEN attempts + 1 >= max_attempts THEN 'failed' ELSE 'pending' END,
	completed_at = CASE WHEN attempts + 1 >= max_attempts THEN NOW() ELSE NULL END
WHERE status = 'processing' AND started_at < ?
RETURNING *`

// SweepStale reclaims jobs abandoned in processing
func (r *jobRepository) SweepStale(ctx context.Context, startedBefore time.Time) (int64, []*model.Job, error) {
	var swept []*model.Job
	if err := r.db.WithContext(ctx).Raw(sweepSQL, startedBefore).Scan(&swept).Error; err != nil {
		r.logger.Error("Failed to sweep stale jobs", zap.Error(err))
		return 0, nil, fmt.Errorf("failed to sweep stale jobs: %w", err)
	}

	var reset int64
	var failed []*model.Job
	for _, j := range swept {
		if j.Status == model.JobStatusFailed {
			failed = append(failed, j)
			continue
		}
		reset++
	}

	if len(swept) > 0 {
		r.logger.Warn("Reclaimed stale jobs",
			zap.Int64("reset", reset),
			zap.Int("failed", len(failed)))
	}
	return reset, failed, nil
}

// GetByID retrieves a job
func (r *jobRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	var job model.Job
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= n {
		return s
	}
	return s[:n]
}
