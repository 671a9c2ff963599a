package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/config"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	domainRepo "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/repository"
	apperrors "github.com/b2aeddine/backend-collabmarket-sub000/pkg/errors"
	"github.com/b2aeddine/backend-collabmarket-sub000/pkg/retry"
)

// Dispatcher executes one claimed job.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *model.Job) error
}

// Job outcomes reported by a run.
const (
	OutcomeCompleted = "completed"
	OutcomeRetrying  = "retrying"
	OutcomeFailed    = "failed"
	OutcomeDeferred  = "deferred"
)

// RunOptions bound one worker invocation. Zero values take the configured
// defaults.
type RunOptions struct {
	MaxJobs  int
	JobTypes []model.JobType
	Timeout  time.Duration
}

// JobOutcome describes what happened to one claimed job.
type JobOutcome struct {
	JobID      uuid.UUID     `json:"job_id"`
	JobType    model.JobType `json:"job_type"`
	Status     string        `json:"status"`
	Error      string        `json:"error,omitempty"`
	DurationMs int64         `json:"duration_ms"`
}

// RunResult summarizes one worker invocation.
type RunResult struct {
	Processed  int          `json:"processed"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Deferred   int          `json:"deferred"`
	Results    []JobOutcome `json:"results"`
}

func (r *RunResult) add(o JobOutcome) {
	r.Processed++
	switch o.Status {
	case OutcomeCompleted:
		r.Successful++
	case OutcomeDeferred:
		r.Deferred++
	default:
		r.Failed++
	}
	r.Results = append(r.Results, o)
}

// SweepResult summarizes a stale job sweep.
type SweepResult struct {
	Reset  int64       `json:"reset"`
	Failed []uuid.UUID `json:"failed"`
}

// JobRunner claims and executes queued jobs within a wall-clock budget.
type JobRunner struct {
	queue      domainRepo.JobRepository
	dispatcher Dispatcher
	alerts     Alerter
	policy     retry.Policy
	cfg        config.WorkerConfig
	logger     *zap.Logger
}

// NewJobRunner creates a new job runner
func NewJobRunner(
	queue domainRepo.JobRepository,
	dispatcher Dispatcher,
	alerts Alerter,
	policy retry.Policy,
	cfg config.WorkerConfig,
	logger *zap.Logger,
) *JobRunner {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &JobRunner{
		queue:      queue,
		dispatcher: dispatcher,
		alerts:     alerts,
		policy:     policy,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run claims jobs until MaxJobs were claimed, the queue has nothing
// eligible, or the deadline margin is reached. A job that started always
// finishes; nothing new is claimed past the margin.
func (r *JobRunner) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	maxJobs := opts.MaxJobs
	if maxJobs <= 0 {
		maxJobs = r.cfg.BatchSize
	}
	timeout := opts.Timeout
	if timeout <= 0 || timeout > r.cfg.Budget {
		timeout = r.cfg.Budget
	}
	deadline := time.Now().Add(timeout)

	var (
		claimed atomic.Int64
		mu      sync.Mutex
		result  = &RunResult{Results: []JobOutcome{}}
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.cfg.Concurrency; i++ {
		g.Go(func() error {
			for {
				if gctx.Err() != nil || time.Until(deadline) <= r.cfg.DeadlineMargin {
					return nil
				}
				if claimed.Add(1) > int64(maxJobs) {
					return nil
				}
				job, err := r.queue.Claim(gctx, opts.JobTypes)
				if err != nil {
					return err
				}
				if job == nil {
					return nil
				}
				// A claimed job runs to completion even if a sibling failed.
				outcome := r.execute(context.WithoutCancel(gctx), job)
				mu.Lock()
				result.add(outcome)
				mu.Unlock()
			}
		})
	}
	err := g.Wait()

	r.logger.Info("Job run finished",
		zap.Int("processed", result.Processed),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed),
		zap.Int("deferred", result.Deferred),
		zap.Duration("budget", timeout))
	if err != nil {
		return result, fmt.Errorf("failed to claim job: %w", err)
	}
	return result, nil
}

func (r *JobRunner) dispatch(ctx context.Context, job *model.Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job handler panicked: %v", p)
		}
	}()
	return r.dispatcher.Dispatch(ctx, job)
}

func (r *JobRunner) execute(ctx context.Context, job *model.Job) JobOutcome {
	start := time.Now()
	log := r.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.JobType)),
		zap.Int("attempt", job.Attempts+1))

	err := r.dispatch(ctx, job)
	outcome := JobOutcome{JobID: job.ID, JobType: job.JobType}

	switch {
	case err == nil:
		if cerr := r.queue.Complete(ctx, job.ID); cerr != nil {
			// Left processing; the stale sweep runs it again.
			apperrors.LogError(log, cerr, "Failed to complete job")
			outcome.Status = OutcomeFailed
			outcome.Error = "completion not recorded"
			return r.finish(outcome, start)
		}
		log.Debug("Job completed", zap.Duration("duration", time.Since(start)))
		outcome.Status = OutcomeCompleted

	case apperrors.HasCode(err, apperrors.ErrDependencyUnresolved):
		until := time.Now().Add(r.cfg.DependencyRetryDelay)
		if derr := r.queue.Defer(ctx, job.ID, err.Error(), until); derr != nil {
			apperrors.LogError(log, derr, "Failed to defer job")
		}
		log.Info("Job deferred", zap.Time("until", until), zap.Error(err))
		if deferrals := job.Deferrals + 1; deferrals == r.cfg.DependencyAlertAfter {
			r.alerts.Raise(ctx, model.AlertSeverityWarning, "job_runner", "job still waiting for its dependency", map[string]interface{}{
				"job_id":    job.ID.String(),
				"job_type":  string(job.JobType),
				"deferrals": deferrals,
				"waiting":   time.Since(job.CreatedAt).Round(time.Second).String(),
				"error":     err.Error(),
			})
		}
		outcome.Status = OutcomeDeferred
		outcome.Error = apperrors.CodeOf(err)

	default:
		permanent := apperrors.IsPermanent(err) || apperrors.HasCode(err, apperrors.ErrUnknownJobType)
		retryAt := time.Now().Add(r.policy.Delay(job.Attempts + 1))
		updated, ferr := r.queue.Fail(ctx, job.ID, err.Error(), retryAt, permanent)
		if ferr != nil {
			apperrors.LogError(log, ferr, "Failed to record job failure")
			outcome.Status = OutcomeFailed
			outcome.Error = apperrors.CodeOf(err)
			return r.finish(outcome, start)
		}

		outcome.Error = apperrors.CodeOf(err)
		if updated.Status == model.JobStatusFailed {
			outcome.Status = OutcomeFailed
			apperrors.LogError(log, err, "Job failed")
			r.alerts.Raise(ctx, model.AlertSeverityCritical, "job_runner", "job failed", map[string]interface{}{
				"job_id":    job.ID.String(),
				"job_type":  string(job.JobType),
				"attempts":  updated.Attempts,
				"permanent": permanent,
				"error":     err.Error(),
			})
		} else {
			outcome.Status = OutcomeRetrying
			log.Warn("Job will be retried", zap.Time("retry_at", retryAt), zap.Error(err))
		}
	}
	return r.finish(outcome, start)
}

func (r *JobRunner) finish(o JobOutcome, start time.Time) JobOutcome {
	o.DurationMs = time.Since(start).Milliseconds()
	return o
}

// Sweep reclaims jobs stuck in processing past the stale threshold. Jobs
// whose attempts are exhausted fail and raise an alert.
func (r *JobRunner) Sweep(ctx context.Context) (*SweepResult, error) {
	reset, failed, err := r.queue.SweepStale(ctx, time.Now().Add(-r.cfg.StaleThreshold))
	if err != nil {
		return nil, err
	}

	res := &SweepResult{Reset: reset, Failed: make([]uuid.UUID, 0, len(failed))}
	for _, job := range failed {
		res.Failed = append(res.Failed, job.ID)
		r.alerts.Raise(ctx, model.AlertSeverityCritical, "job_runner", "stale job failed", map[string]interface{}{
			"job_id":   job.ID.String(),
			"job_type": string(job.JobType),
			"attempts": job.Attempts,
		})
	}

	if reset > 0 || len(failed) > 0 {
		r.logger.Warn("Stale jobs reclaimed",
			zap.Int64("reset", reset),
			zap.Int("failed", len(failed)))
	}
	return res, nil
}
