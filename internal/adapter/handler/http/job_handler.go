package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/errors"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/usecase"
	apperrors "github.com/b2aeddine/backend-collabmarket-sub000/pkg/errors"
)

// JobRunner executes queued jobs within one invocation
type JobRunner interface {
	Run(ctx context.Context, opts usecase.RunOptions) (*usecase.RunResult, error)
	Sweep(ctx context.Context) (*usecase.SweepResult, error)
}

// StaleWithdrawals flags withdrawals abandoned in processing
type StaleWithdrawals interface {
	RecoverStale(ctx context.Context) ([]uuid.UUID, error)
}

type JobHandler struct {
	logger      *zap.Logger
	runner      JobRunner
	withdrawals StaleWithdrawals
}

// partialRunResponse reports the jobs that ran before a run was cut short.
type partialRunResponse struct {
	*usecase.RunResult
	Error apperrors.ErrorResponse `json:"error"`
}

type sweepResponse struct {
	*usecase.SweepResult
	FlaggedWithdrawals []uuid.UUID `json:"flagged_withdrawals"`
}

type runJobsRequest struct {
	MaxJobs   int      `json:"max_jobs" validate:"gte=0,lte=500"`
	JobTypes  []string `json:"job_types" validate:"omitempty,dive,required"`
	TimeoutMs int64    `json:"timeout_ms" validate:"gte=0"`
}

func NewJobHandler(logger *zap.Logger, runner JobRunner, withdrawals StaleWithdrawals) *JobHandler {
	return &JobHandler{
		logger:      logger,
		runner:      runner,
		withdrawals: withdrawals,
	}
}

func (r runJobsRequest) options() (usecase.RunOptions, error) {
	opts := usecase.RunOptions{
		MaxJobs: r.MaxJobs,
		Timeout: time.Duration(r.TimeoutMs) * time.Millisecond,
	}
	for _, name := range r.JobTypes {
		t, ok := model.ParseJobType(name)
		if !ok {
			return opts, domainErrors.InvalidArgument("unknown job type " + name)
		}
		opts.JobTypes = append(opts.JobTypes, t)
	}
	return opts, nil
}

// RunJobs handles POST /jobs/run
func (h *JobHandler) RunJobs(c echo.Context) error {
	var req runJobsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	opts, err := req.options()
	if err != nil {
		return err
	}

	result, err := h.runner.Run(c.Request().Context(), opts)
	if err != nil {
		if result == nil {
			return err
		}
		he := apperrors.ToHTTPError(err)
		apperrors.LogError(h.logger, err, "Job run cut short",
			zap.Int("processed", result.Processed),
			zap.Int("successful", result.Successful),
			zap.Int("failed", result.Failed))
		return c.JSON(he.Code, partialRunResponse{
			RunResult: result,
			Error:     errorBody(he),
		})
	}
	return c.JSON(http.StatusOK, result)
}

func errorBody(he *echo.HTTPError) apperrors.ErrorResponse {
	if body, ok := he.Message.(apperrors.ErrorResponse); ok {
		return body
	}
	return apperrors.ErrorResponse{Code: apperrors.ErrInternal, Message: http.StatusText(he.Code)}
}

// SweepJobs handles POST /jobs/sweep
func (h *JobHandler) SweepJobs(c echo.Context) error {
	ctx := c.Request().Context()
	result, err := h.runner.Sweep(ctx)
	if err != nil {
		return err
	}
	flagged, err := h.withdrawals.RecoverStale(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sweepResponse{SweepResult: result, FlaggedWithdrawals: flagged})
}
