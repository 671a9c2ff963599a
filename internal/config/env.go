package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	pkgconfig "github.com/b2aeddine/backend-collabmarket-sub000/pkg/config"
)

// EnvPrefix prefixes every environment override, e.g. ESCROW_WORKER_BUDGET.
const EnvPrefix = "escrow"

func (c *Config) applyEnv() error {
	strings := map[string]*string{
		"database.host":         &c.Database.Host,
		"database.name":         &c.Database.Name,
		"database.user":         &c.Database.User,
		"database.password":     &c.Database.Password,
		"jwt.secret":            &c.JWT.Secret,
		"stripe.secret_key":     &c.Stripe.SecretKey,
		"stripe.webhook_secret": &c.Stripe.WebhookSecret,
		"redis.addr":            &c.Redis.Addr,
		"redis.password":        &c.Redis.Password,
		"worker.shared_secret":  &c.Worker.SharedSecret,
		"log.level":             &c.Log.Level,
	}
	ints := map[string]*int{
		"database.port":             &c.Database.Port,
		"server.http.port":          &c.Server.HTTP.Port,
		"server.grpc.port":          &c.Server.GRPC.Port,
		"worker.batch_size":         &c.Worker.BatchSize,
		"worker.concurrency":        &c.Worker.Concurrency,
		"worker.max_attempts":       &c.Worker.MaxAttempts,
		"withdrawal.max_concurrent": &c.Withdrawal.MaxConcurrent,
	}
	durations := map[string]*time.Duration{
		"worker.budget":          &c.Worker.Budget,
		"worker.deadline_margin": &c.Worker.DeadlineMargin,
		"worker.stale_threshold": &c.Worker.StaleThreshold,
		"withdrawal.stale_after": &c.Withdrawal.StaleAfter,
	}
	decimals := map[string]*decimal.Decimal{
		"withdrawal.min_amount": &c.Withdrawal.MinAmount,
	}

	keys := make([]string, 0, len(strings)+len(ints)+len(durations)+len(decimals))
	for k := range strings {
		keys = append(keys, k)
	}
	for k := range ints {
		keys = append(keys, k)
	}
	for k := range durations {
		keys = append(keys, k)
	}
	for k := range decimals {
		keys = append(keys, k)
	}
	env := pkgconfig.NewEnv(EnvPrefix, keys...)

	for k, dst := range strings {
		if env.IsSet(k) {
			*dst = env.GetString(k)
		}
	}
	for k, dst := range ints {
		if env.IsSet(k) {
			*dst = env.GetInt(k)
		}
	}
	for k, dst := range durations {
		if env.IsSet(k) {
			*dst = env.GetDuration(k)
		}
	}
	for k, dst := range decimals {
		if env.IsSet(k) {
			v, err := decimal.NewFromString(env.GetString(k))
			if err != nil {
				return fmt.Errorf("invalid %s override: %w", k, err)
			}
			*dst = v
		}
	}
	return nil
}
