// Package config wraps viper for file and environment lookups.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config exposes typed settings lookups.
type Config interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetFloat64(key string) float64
	GetDuration(key string) time.Duration
	GetStringSlice(key string) []string
	IsSet(key string) bool
	GetAll() map[string]interface{}
}

type viperConfig struct {
	v *viper.Viper
}

func (c *viperConfig) GetString(key string) string          { return c.v.GetString(key) }
func (c *viperConfig) GetInt(key string) int                { return c.v.GetInt(key) }
func (c *viperConfig) GetBool(key string) bool              { return c.v.GetBool(key) }
func (c *viperConfig) GetFloat64(key string) float64        { return c.v.GetFloat64(key) }
func (c *viperConfig) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }
func (c *viperConfig) GetStringSlice(key string) []string   { return c.v.GetStringSlice(key) }
func (c *viperConfig) GetAll() map[string]interface{}       { return c.v.AllSettings() }

// IsSet reports whether key has a value from any source.
func (c *viperConfig) IsSet(key string) bool {
	return c.v.IsSet(key)
}

const configDir = "configs"

func newViper(prefix string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(strings.ToUpper(prefix))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configs/<env>/<serviceName>.yaml (or CONFIG_PATH) with
// environment overrides prefixed by the upper-cased service name.
func Load(serviceName string) (Config, error) {
	v := newViper(serviceName)
	v.SetConfigType("yaml")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = filepath.Join(configDir, env)
	}

	v.SetConfigName(serviceName)
	v.AddConfigPath(configPath)

	if err := v.ReadInConfig(); err != nil {
		v.AddConfigPath(configDir)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	return &viperConfig{v: v}, nil
}

// NewEnv returns a Config backed only by environment variables. Keys use
// dotted names; ESCROW_WORKER_BATCH_SIZE answers "worker.batch_size" when
// prefix is "escrow".
func NewEnv(prefix string, keys ...string) Config {
	v := newViper(prefix)
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
	return &viperConfig{v: v}
}
