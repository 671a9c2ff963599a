package config

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApplyDefaults fills every zero setting with its default.
func (c *Config) ApplyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = "escrow"
	}
	if c.Server.HTTP.Port == 0 {
		c.Server.HTTP.Port = 8080
	}
	if c.Server.GRPC.Port == 0 {
		c.Server.GRPC.Port = 9090
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.SlowQueryThreshold == 0 {
		c.Database.SlowQueryThreshold = 200 * time.Millisecond
	}
	if c.Stripe.SignatureTolerance == 0 {
		c.Stripe.SignatureTolerance = 5 * time.Minute
	}
	if c.Redis.AlertChannel == "" {
		c.Redis.AlertChannel = "alerts:critical"
	}

	if c.Worker.BatchSize <= 0 {
		c.Worker.BatchSize = 10
	}
	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = 1
	}
	if c.Worker.Budget <= 0 {
		c.Worker.Budget = 50 * time.Second
	}
	if c.Worker.DeadlineMargin <= 0 {
		c.Worker.DeadlineMargin = 5 * time.Second
	}
	if c.Worker.StaleThreshold <= 0 {
		c.Worker.StaleThreshold = 30 * time.Minute
	}
	if c.Worker.MaxAttempts <= 0 {
		c.Worker.MaxAttempts = 3
	}
	if c.Worker.DependencyRetryDelay <= 0 {
		c.Worker.DependencyRetryDelay = 30 * time.Second
	}
	if c.Worker.DependencyAlertAfter <= 0 {
		c.Worker.DependencyAlertAfter = 20
	}
	if c.Worker.RetentionDays <= 0 {
		c.Worker.RetentionDays = 90
	}

	if c.Withdrawal.MaxConcurrent <= 0 {
		c.Withdrawal.MaxConcurrent = 5
	}
	if c.Withdrawal.BatchSize <= 0 {
		c.Withdrawal.BatchSize = 20
	}
	if c.Withdrawal.MinAmount.IsZero() {
		c.Withdrawal.MinAmount = decimal.NewFromInt(10)
	}
	if c.Withdrawal.Currency == "" {
		c.Withdrawal.Currency = "eur"
	}
	if c.Withdrawal.StaleAfter <= 0 {
		c.Withdrawal.StaleAfter = c.Worker.StaleThreshold
	}

	if c.Commission.PlatformRate.IsZero() {
		c.Commission.PlatformRate = decimal.RequireFromString("0.10")
	}
	if c.Commission.AgentRate.IsZero() {
		c.Commission.AgentRate = decimal.RequireFromString("0.05")
	}
	if c.Commission.HoldPeriod <= 0 {
		c.Commission.HoldPeriod = 7 * 24 * time.Hour
	}
	if c.Order.AutoCompleteAfter <= 0 {
		c.Order.AutoCompleteAfter = 72 * time.Hour
	}

	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = 500 * time.Millisecond
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = 10 * time.Second
	}

	if c.Schedule.JobsInterval <= 0 {
		c.Schedule.JobsInterval = time.Minute
	}
	if c.Schedule.SweepInterval <= 0 {
		c.Schedule.SweepInterval = 5 * time.Minute
	}
	if c.Schedule.WithdrawalsInterval <= 0 {
		c.Schedule.WithdrawalsInterval = 5 * time.Minute
	}
	if c.Schedule.AutoCompleteInterval <= 0 {
		c.Schedule.AutoCompleteInterval = time.Hour
	}
	if c.Schedule.ReleaseInterval <= 0 {
		c.Schedule.ReleaseInterval = time.Hour
	}
	if c.Schedule.CleanupInterval <= 0 {
		c.Schedule.CleanupInterval = 24 * time.Hour
	}
}
