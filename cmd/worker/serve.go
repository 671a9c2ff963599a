package main

import (
	"context"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/app"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/usecase"
)

type task struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run every background task on its configured interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				runTasks(ctx, a.Logger, scheduledTasks(a))
				return nil
			})
		},
	}
}

func scheduledTasks(a *app.App) []task {
	s := a.Config.Schedule
	return []task{
		{"run-jobs", s.JobsInterval, func(ctx context.Context) error {
			_, err := a.Runner.Run(ctx, usecase.RunOptions{})
			return err
		}},
		{"sweep", s.SweepInterval, func(ctx context.Context) error {
			if _, err := a.Runner.Sweep(ctx); err != nil {
				return err
			}
			_, err := a.Withdrawals.RecoverStale(ctx)
			return err
		}},
		{"process-withdrawals", s.WithdrawalsInterval, func(ctx context.Context) error {
			_, err := a.Withdrawals.ProcessPending(ctx)
			return err
		}},
		{"auto-complete", s.AutoCompleteInterval, func(ctx context.Context) error {
			_, err := a.Orders.AutoCompleteDelivered(ctx)
			return err
		}},
		{"release-revenues", s.ReleaseInterval, func(ctx context.Context) error {
			_, err := a.Maintenance.Schedule(ctx, model.JobTypeReleaseRevenues)
			return err
		}},
		{"cleanup-data", s.CleanupInterval, func(ctx context.Context) error {
			_, err := a.Maintenance.Schedule(ctx, model.JobTypeCleanupData)
			return err
		}},
	}
}

// runTasks runs each task on its own ticker until ctx is done. A run that
// outlasts its interval delays the next tick instead of overlapping it.
func runTasks(ctx context.Context, logger *zap.Logger, tasks []task) {
	var wg sync.WaitGroup
	for _, t := range tasks {
		if t.interval <= 0 {
			logger.Info("Task disabled", zap.String("task", t.name))
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(t.interval)
			defer ticker.Stop()

			logger.Info("Task scheduled",
				zap.String("task", t.name),
				zap.Duration("interval", t.interval))
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					start := time.Now()
					if err := t.run(ctx); err != nil {
						logger.Error("Task failed",
							zap.String("task", t.name),
							zap.Duration("duration", time.Since(start)),
							zap.Error(err))
					}
				}
			}
		}()
	}
	wg.Wait()
	logger.Info("Scheduler stopped")
}
