package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/app"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/usecase"
)

func parseJobTypes(names []string) ([]model.JobType, error) {
	types := make([]model.JobType, 0, len(names))
	for _, name := range names {
		t, ok := model.ParseJobType(name)
		if !ok {
			return nil, fmt.Errorf("unknown job type %q", name)
		}
		types = append(types, t)
	}
	return types, nil
}

func runJobsCmd() *cobra.Command {
	var (
		maxJobs int
		types   []string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run-jobs",
		Short: "Claim and execute queued jobs once",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobTypes, err := parseJobTypes(types)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				result, err := a.Runner.Run(ctx, usecase.RunOptions{
					MaxJobs:  maxJobs,
					JobTypes: jobTypes,
					Timeout:  timeout,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			})
		},
	}

	cmd.Flags().IntVarP(&maxJobs, "max-jobs", "n", 0, "maximum jobs to claim (default worker.batch_size)")
	cmd.Flags().StringSliceVarP(&types, "types", "t", nil, "restrict to these job types")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "wall-clock budget (capped at worker.budget)")

	return cmd
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Recover jobs and withdrawals stuck in processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				result, err := a.Runner.Sweep(ctx)
				if err != nil {
					return err
				}
				flagged, err := a.Withdrawals.RecoverStale(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]interface{}{
					"reset":               result.Reset,
					"failed":              result.Failed,
					"flagged_withdrawals": flagged,
				})
			})
		},
	}
}

func processWithdrawalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process-withdrawals",
		Short: "Send pending withdrawals to the payment processor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				results, err := a.Withdrawals.ProcessPending(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, results)
			})
		},
	}
}

func autoCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auto-complete",
		Short: "Complete delivered orders past the buyer confirmation window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				completed, err := a.Orders.AutoCompleteDelivered(ctx)
				a.Logger.Info("Auto-complete finished", zap.Int("completed", completed))
				return err
			})
		},
	}
}

func releaseRevenuesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "release-revenues",
		Short: "Make revenue past its hold period available",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Maintenance.ReleaseRevenues(ctx)
			})
		},
	}
}

func cleanupCmd() *cobra.Command {
	var retentionDays int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Prune replay rows and read notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Maintenance.Cleanup(ctx, retentionDays)
			})
		},
	}

	cmd.Flags().IntVar(&retentionDays, "retention-days", 0, "retention window (default worker.retention_days)")

	return cmd
}

func watchAlertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch-alerts",
		Short: "Print critical alerts published on the alert channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if a.Redis == nil || a.Config.Redis.AlertChannel == "" {
					return fmt.Errorf("redis alert channel not configured")
				}
				messages, err := a.Redis.Subscribe(ctx, a.Config.Redis.AlertChannel)
				if err != nil {
					return err
				}
				for msg := range messages {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", msg.Time.Format(time.RFC3339), msg.Payload)
				}
				return nil
			})
		},
	}
}
