// Package config resolves courtside settings from defaults, config.yaml,
// COURTSIDE_* environment variables and a .env file, in increasing order of
// precedence. The .env file is loaded with godotenv.Overload, so its entries
// replace variables already set in the process environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/roach88/courtside/internal/lock"
	"github.com/roach88/courtside/internal/model"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "COURTSIDE"

	cfgKeyDBPath       = "db_path"
	cfgKeyMaxHand      = "max_hand"
	cfgKeyLogLevel     = "log_level"
	cfgKeyLogFormat    = "log_format"
	cfgKeyRedisAddr    = "redis.addr"
	cfgKeyRedisPass    = "redis.password"
	cfgKeyRedisDB      = "redis.db"
	cfgKeyLockKey      = "lock.key"
	cfgKeyLockTTL      = "lock.ttl"
	cfgKeyLockRetries  = "lock.retries"
	cfgKeyLockBackoff  = "lock.backoff"
	defaultDBPath      = "courtside.db"
	defaultLogLevel    = "info"
	defaultLogFormat   = "text"
	defaultLockKey     = "courtside:state"
	defaultLockTTL     = 5 * time.Second
	defaultLockRetries = 50
	defaultLockBackoff = 100 * time.Millisecond
)

// Config is the resolved process configuration.
type Config struct {
	DBPath    string      `mapstructure:"db_path"`
	MaxHand   int         `mapstructure:"max_hand"`
	LogLevel  string      `mapstructure:"log_level"`
	LogFormat string      `mapstructure:"log_format"`
	Redis     RedisConfig `mapstructure:"redis"`
	Lock      LockConfig  `mapstructure:"lock"`
}

// RedisConfig enables the distributed state lock when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LockConfig tunes the state lock.
type LockConfig struct {
	Key     string        `mapstructure:"key"`
	TTL     time.Duration `mapstructure:"ttl"`
	Retries int           `mapstructure:"retries"`
	Backoff time.Duration `mapstructure:"backoff"`
}

// Options controls where Load looks.
type Options struct {
	// ConfigDir holds config.yaml. Empty means the working directory.
	ConfigDir string
	// EnvFile is loaded into the environment before resolving. Empty means
	// ".env"; a missing file is not an error.
	EnvFile string
}

// Load resolves the configuration.
// A missing config.yaml or .env is not an error.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Overload(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyDBPath, defaultDBPath)
	v.SetDefault(cfgKeyMaxHand, model.DefaultMaxHand)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyLogFormat, defaultLogFormat)
	v.SetDefault(cfgKeyRedisAddr, "")
	v.SetDefault(cfgKeyRedisPass, "")
	v.SetDefault(cfgKeyRedisDB, 0)
	v.SetDefault(cfgKeyLockKey, defaultLockKey)
	v.SetDefault(cfgKeyLockTTL, defaultLockTTL)
	v.SetDefault(cfgKeyLockRetries, defaultLockRetries)
	v.SetDefault(cfgKeyLockBackoff, defaultLockBackoff)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	if opts.ConfigDir != "" {
		v.AddConfigPath(opts.ConfigDir)
	} else {
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("config: db_path is empty")
	}
	if c.MaxHand < 1 {
		return fmt.Errorf("config: max_hand must be at least 1, got %d", c.MaxHand)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("config: log_format must be text or json, got %q", c.LogFormat)
	}
	if c.Lock.TTL <= 0 || c.Lock.Backoff < 0 || c.Lock.Retries < 0 {
		return errors.New("config: lock ttl must be positive, retries and backoff non-negative")
	}
	return nil
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Locker returns the state lock manager: Redis when an address is
// configured, in-process otherwise. The returned close func releases the
// Redis client.
func (c *Config) Locker() (lock.Manager, func() error) {
	if c.Redis.Addr == "" {
		return lock.NewLocal(), func() error { return nil }
	}
	client := redis.NewClient(&redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	})
	return lock.NewRedis(client, c.Lock.TTL, c.Lock.Retries, c.Lock.Backoff), client.Close
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: invalid log_level %q", s)
	}
	return level, nil
}
