package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	SessionTTL time.Duration `yaml:"sessionTTL"` // Cache eviction only, sessions never expire in Mongo
	LockTTL    time.Duration `yaml:"lockTTL"`
}

type NATSConfig struct {
	URL     string `yaml:"url"` // Empty disables the completion publisher
	Subject string `yaml:"subject"`
}

type AuthConfig struct {
	Username  string `yaml:"username"`
	Password  string `yaml:"-"`
	JWTSecret string `yaml:"-"`
}

type WizardConfig struct {
	MaxImprovementIterations int `yaml:"maxImprovementIterations"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Config is the full service configuration
type Config struct {
	Port       string       `yaml:"port"`
	SQLitePath string       `yaml:"sqlitePath"`
	Log        LogConfig    `yaml:"log"`
	Mongo      MongoConfig  `yaml:"mongo"`
	Redis      RedisConfig  `yaml:"redis"`
	NATS       NATSConfig   `yaml:"nats"`
	Auth       AuthConfig   `yaml:"auth"`
	Wizard     WizardConfig `yaml:"wizard"`
	AI         AIConfig     `yaml:"ai"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Port:       "8080",
		SQLitePath: "ithaka.db",
		Log:        LogConfig{Level: "info"},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "ithaka",
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			SessionTTL: 30 * time.Minute,
			LockTTL:    30 * time.Second,
		},
		NATS: NATSConfig{
			Subject: "intake.application.completed",
		},
		Auth: AuthConfig{
			Username:  "admin",
			Password:  "password123",
			JWTSecret: "super-secret-key-change-in-production",
		},
		Wizard: WizardConfig{MaxImprovementIterations: 3},
		AI:     AIConfig{Provider: ProviderGemini, TimeoutMS: 10000, MaxConcurrent: 8},
	}
}

// Load builds the configuration from defaults, then the optional YAML file
// named by INTAKE_CONFIG, then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("INTAKE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := cfg.merge(data); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) merge(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Development = getEnvBool("LOG_DEVELOPMENT", c.Log.Development)

	c.Mongo.URI = getEnv("MONGO_URI", c.Mongo.URI)
	c.Mongo.Database = getEnv("MONGO_DATABASE", c.Mongo.Database)

	// Accept redis:// URIs as well as bare host:port
	c.Redis.Addr = strings.TrimPrefix(getEnv("REDIS_URI", c.Redis.Addr), "redis://")
	c.Redis.SessionTTL = getEnvDuration("REDIS_SESSION_TTL", c.Redis.SessionTTL)

	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.Subject = getEnv("NATS_SUBJECT", c.NATS.Subject)

	c.Auth.Username = getEnv("ADMIN_USERNAME", c.Auth.Username)
	c.Auth.Password = getEnv("ADMIN_PASSWORD", c.Auth.Password)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)

	c.Wizard.MaxImprovementIterations = getEnvInt("WIZARD_MAX_IMPROVEMENTS", c.Wizard.MaxImprovementIterations)

	c.AI.applyEnv()
}

// Validate rejects values the services cannot run with
func (c *Config) Validate() error {
	if c.Wizard.MaxImprovementIterations < 1 {
		return fmt.Errorf("wizard.maxImprovementIterations must be at least 1, got %d", c.Wizard.MaxImprovementIterations)
	}
	if c.Redis.LockTTL <= 0 {
		return fmt.Errorf("redis.lockTTL must be positive")
	}
	return c.AI.Validate()
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultVal
}
