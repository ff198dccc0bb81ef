package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LMS       LMSConfig      `yaml:"lms"`
	Database  DatabaseConfig `yaml:"database"`
	HTTPAddr  string         `yaml:"http_addr"`
	LogLevel  string         `yaml:"log_level"`
	Env       string         `yaml:"env"` // dev|prod
	SentryDSN string         `yaml:"sentry_dsn"`

	// SyncInterval > 0 enables the scheduled student/course sync.
	SyncInterval time.Duration `yaml:"sync_interval"`

	Telegram TelegramConfig `yaml:"telegram"`
}

type LMSConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Token      string        `yaml:"token"`
	AccountID  int64         `yaml:"account_id"`
	Timeout    time.Duration `yaml:"timeout"`
	RetryMax   int           `yaml:"retry_max"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	PoolSize int    `yaml:"pool_size"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

func defaults() *Config {
	return &Config{
		LMS: LMSConfig{
			BaseURL:    "https://kepler.test.instructure.com/api/v1",
			AccountID:  1,
			Timeout:    30 * time.Second,
			RetryMax:   3,
			RetryDelay: time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Name:     "mis_kepler_db",
			PoolSize: 10,
		},
		HTTPAddr: ":4040",
		LogLevel: "info",
		Env:      "dev",
	}
}

// Load builds the config from defaults, the optional YAML file at CONFIG_PATH
// and the environment, in that order.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var err error
	cfg.LMS.BaseURL = getenv("CANVAS_API_URL", cfg.LMS.BaseURL)
	cfg.LMS.Token = getenv("CANVAS_API_TOKEN", cfg.LMS.Token)
	if cfg.LMS.AccountID, err = getenvInt64("CANVAS_ACCOUNT_ID", cfg.LMS.AccountID); err != nil {
		return err
	}
	if cfg.LMS.Timeout, err = getenvDuration("LMS_TIMEOUT", cfg.LMS.Timeout); err != nil {
		return err
	}
	if cfg.LMS.RetryMax, err = getenvInt("LMS_RETRY_MAX", cfg.LMS.RetryMax); err != nil {
		return err
	}
	if cfg.LMS.RetryDelay, err = getenvDuration("LMS_RETRY_BASE", cfg.LMS.RetryDelay); err != nil {
		return err
	}

	cfg.Database.URL = getenv("DATABASE_URL", cfg.Database.URL)
	cfg.Database.Host = getenv("DB_HOST", cfg.Database.Host)
	if cfg.Database.Port, err = getenvInt("DB_PORT", cfg.Database.Port); err != nil {
		return err
	}
	cfg.Database.User = getenv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getenv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getenv("DB_NAME", cfg.Database.Name)
	if cfg.Database.PoolSize, err = getenvInt("DB_POOL_SIZE", cfg.Database.PoolSize); err != nil {
		return err
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.HTTPAddr = ":" + strings.TrimPrefix(port, ":")
	}
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.Env = getenv("ENV", cfg.Env)
	cfg.SentryDSN = getenv("SENTRY_DSN", cfg.SentryDSN)
	if cfg.SyncInterval, err = getenvDuration("SYNC_INTERVAL", cfg.SyncInterval); err != nil {
		return err
	}

	cfg.Telegram.BotToken = getenv("TELEGRAM_BOT_TOKEN", cfg.Telegram.BotToken)
	if cfg.Telegram.ChatID, err = getenvInt64("TELEGRAM_CHAT_ID", cfg.Telegram.ChatID); err != nil {
		return err
	}
	return nil
}

func (c *Config) validate() error {
	if c.LMS.Token == "" {
		return errors.New("CANVAS_API_TOKEN is required")
	}
	if _, err := url.ParseRequestURI(c.LMS.BaseURL); err != nil {
		return fmt.Errorf("CANVAS_API_URL: %w", err)
	}
	if c.LMS.RetryMax < 0 {
		return fmt.Errorf("LMS_RETRY_MAX must not be negative, got %d", c.LMS.RetryMax)
	}
	if c.Database.PoolSize <= 0 {
		return fmt.Errorf("DB_POOL_SIZE must be positive, got %d", c.Database.PoolSize)
	}
	return nil
}

// DatabaseDSN returns DATABASE_URL when set, otherwise a postgres URL built
// from the individual connection parameters.
func (c *Config) DatabaseDSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func getenvInt64(k string, def int64) (int64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func getenvDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}
