package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/b2aeddine/backend-collabmarket-sub000/pkg/logger"
)

type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Log        logger.Config    `yaml:"log"`
	JWT        JWTConfig        `yaml:"jwt"`
	Stripe     StripeConfig     `yaml:"stripe"`
	Redis      RedisConfig      `yaml:"redis"`
	Worker     WorkerConfig     `yaml:"worker"`
	Withdrawal WithdrawalConfig `yaml:"withdrawal"`
	Commission CommissionConfig `yaml:"commission"`
	Order      OrderConfig      `yaml:"order"`
	Retry      RetryConfig      `yaml:"retry"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
}

// LoadConfig reads the YAML file at CONFIG_PATH (default
// ./configs/escrow.yaml), applies ESCROW_* environment overrides and fills
// defaults.
func LoadConfig() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/escrow.yaml"
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML and applies environment overrides and defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	return &cfg, nil
}
