package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Env names the variable pointing at the optional YAML config file.
const Env = "CONDUCTOR_CONFIG"

const (
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultRanking          = "first_match"
	defaultWatchdogInterval = 15 * time.Second
	defaultSettleWorkers    = 10
)

// Config is the process configuration. File values are overridden by the
// environment.
type Config struct {
	Port           string           `yaml:"port"`
	AllowedOrigins []string         `yaml:"allowed_origins"`
	LogLevel       string           `yaml:"log_level"`
	DatabaseURL    string           `yaml:"database_url"`
	Redis          RedisConfig      `yaml:"redis"`
	AMQP           AMQPConfig       `yaml:"amqp"`
	Settlement     SettlementConfig `yaml:"settlement"`
	Auth           AuthConfig       `yaml:"auth"`
	Engine         EngineConfig     `yaml:"engine"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type AMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// SettlementConfig enables payout settlement. Both a database and a webhook
// URL are needed for the queue to run.
type SettlementConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	MaxWorkers int    `yaml:"max_workers"`
}

type AuthConfig struct {
	JWTSecret         string `yaml:"jwt_secret"`
	AdminPasswordHash string `yaml:"admin_password_hash"`
	RequireAPIKey     bool   `yaml:"require_api_key"`
}

// EngineConfig tunes dispatch. A nil WatchdogInterval means the default; zero
// disables the watchdog.
type EngineConfig struct {
	Ranking          string         `yaml:"ranking"`
	WatchdogInterval *time.Duration `yaml:"watchdog_interval"`
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and fills defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if strings.TrimSpace(path) != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// WatchdogInterval returns the configured sweep period; zero means disabled.
func (c *Config) WatchdogInterval() time.Duration {
	if c.Engine.WatchdogInterval == nil {
		return defaultWatchdogInterval
	}
	return *c.Engine.WatchdogInterval
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Port)
	str("LOG_LEVEL", &c.LogLevel)
	str("DATABASE_URL", &c.DatabaseURL)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("REDIS_CHANNEL", &c.Redis.Channel)
	str("AMQP_URL", &c.AMQP.URL)
	str("AMQP_EXCHANGE", &c.AMQP.Exchange)
	str("SETTLEMENT_WEBHOOK_URL", &c.Settlement.WebhookURL)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("ADMIN_PASSWORD_HASH", &c.Auth.AdminPasswordHash)
	str("RANKING_STRATEGY", &c.Engine.Ranking)

	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		c.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, o)
			}
		}
	}
	if v, ok := lookup("REQUIRE_API_KEY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("REQUIRE_API_KEY: %w", err)
		}
		c.Auth.RequireAPIKey = b
	}
	if v, ok := lookup("WATCHDOG_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("WATCHDOG_INTERVAL: %w", err)
		}
		c.Engine.WatchdogInterval = &d
	}
	if v, ok := lookup("SETTLEMENT_MAX_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SETTLEMENT_MAX_WORKERS: %w", err)
		}
		c.Settlement.MaxWorkers = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = defaultPort
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.Engine.Ranking == "" {
		c.Engine.Ranking = defaultRanking
	}
	if c.Settlement.MaxWorkers <= 0 {
		c.Settlement.MaxWorkers = defaultSettleWorkers
	}
}
