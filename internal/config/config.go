// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port        int `yaml:"port"`         // webhook + public API
	MetricsPort int `yaml:"metrics_port"` // /metrics
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	SuccessURL    string `yaml:"success_url"`
	CancelURL     string `yaml:"cancel_url"`
}

type AffiliateConfig struct {
	DefaultRate     float64 `yaml:"default_rate"`      // percent, used to seed settings
	MaxCommission   int64   `yaml:"max_commission"`    // minor units, 0 = no cap
	PayoutDelayDays int     `yaml:"payout_delay_days"` //
}

type AdminConfig struct {
	Password   string        `yaml:"password"`
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type SchedulerConfig struct {
	PayoutInterval time.Duration `yaml:"payout_interval"`
	ExpiryInterval time.Duration `yaml:"expiry_interval"`
	Workers        int           `yaml:"workers"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Stripe    StripeConfig    `yaml:"stripe"`
	Affiliate AffiliateConfig `yaml:"affiliate"`
	Admin     AdminConfig     `yaml:"admin"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MetricsPort == 0 {
		cfg.Server.MetricsPort = 9090
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.Affiliate.DefaultRate <= 0 {
		cfg.Affiliate.DefaultRate = 10
	}
	if cfg.Affiliate.PayoutDelayDays <= 0 {
		cfg.Affiliate.PayoutDelayDays = 7
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
	if cfg.Scheduler.PayoutInterval <= 0 {
		cfg.Scheduler.PayoutInterval = time.Hour
	}
	if cfg.Scheduler.ExpiryInterval <= 0 {
		cfg.Scheduler.ExpiryInterval = 15 * time.Minute
	}
	if cfg.Scheduler.Workers <= 0 {
		cfg.Scheduler.Workers = 4
	}

	// Minimal validation. The webhook secret is checked again at request
	// time so a misconfigured deployment fails closed, not open.
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Stripe.SecretKey == "" {
		return nil, errors.New("stripe.secret_key is required")
	}
	if cfg.Stripe.WebhookSecret == "" {
		return nil, errors.New("stripe.webhook_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
