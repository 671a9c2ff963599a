package config

import (
	"time"

	"github.com/shopspring/decimal"
)

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	// SignatureTolerance bounds the age of a signed webhook timestamp.
	SignatureTolerance time.Duration `yaml:"signature_tolerance"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// AlertChannel receives every critical alert.
	AlertChannel string `yaml:"alert_channel"`
}

type WorkerConfig struct {
	SharedSecret string `yaml:"shared_secret"`
	// BatchSize is the default max_jobs for one invocation.
	BatchSize int `yaml:"batch_size"`
	// Concurrency is the number of claim loops per invocation.
	Concurrency int `yaml:"concurrency"`
	// Budget is the wall-clock limit of one invocation.
	Budget time.Duration `yaml:"budget"`
	// DeadlineMargin stops claiming this long before the budget ends.
	DeadlineMargin       time.Duration `yaml:"deadline_margin"`
	StaleThreshold       time.Duration `yaml:"stale_threshold"`
	MaxAttempts          int           `yaml:"max_attempts"`
	DependencyRetryDelay time.Duration `yaml:"dependency_retry_delay"`
	// DependencyAlertAfter raises a warning once a job was deferred this
	// many times waiting for its dependency.
	DependencyAlertAfter int `yaml:"dependency_alert_after"`
	// RetentionDays bounds how long replay rows and read notifications live.
	RetentionDays int `yaml:"retention_days"`
}

type WithdrawalConfig struct {
	MaxConcurrent int             `yaml:"max_concurrent"`
	BatchSize     int             `yaml:"batch_size"`
	MinAmount     decimal.Decimal `yaml:"min_amount"`
	Currency      string          `yaml:"currency"`
	// StaleAfter is how long a withdrawal may sit in processing without a
	// transfer id before it is flagged. Defaults to worker.stale_threshold.
	StaleAfter time.Duration `yaml:"stale_after"`
}

type CommissionConfig struct {
	// PlatformRate applies when an order carries no explicit platform fee.
	PlatformRate decimal.Decimal `yaml:"platform_rate"`
	AgentRate    decimal.Decimal `yaml:"agent_rate"`
	// HoldPeriod delays revenue availability after completion.
	HoldPeriod time.Duration `yaml:"hold_period"`
}

type OrderConfig struct {
	// AutoCompleteAfter is the buyer confirmation window for delivered orders.
	AutoCompleteAfter time.Duration `yaml:"auto_complete_after"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

type ScheduleConfig struct {
	JobsInterval         time.Duration `yaml:"jobs_interval"`
	SweepInterval        time.Duration `yaml:"sweep_interval"`
	WithdrawalsInterval  time.Duration `yaml:"withdrawals_interval"`
	AutoCompleteInterval time.Duration `yaml:"auto_complete_interval"`
	ReleaseInterval      time.Duration `yaml:"release_interval"`
	CleanupInterval      time.Duration `yaml:"cleanup_interval"`
}
