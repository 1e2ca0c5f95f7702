package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AdamBeresnev/esports-bracket/internal/bracket"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr           string        `yaml:"addr"`
	DatabasePath   string        `yaml:"database_path"`
	MigrationsPath string        `yaml:"migrations_path"`
	RedisURL       string        `yaml:"redis_url"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	CORSOrigins    []string      `yaml:"cors_origins"`

	// Used when a generate request comes without bracket settings
	Bracket bracket.Settings `yaml:"bracket"`
}

func Default() *Config {
	return &Config{
		Addr:           ":8080",
		DatabasePath:   "brackets.db",
		MigrationsPath: "file://migrations",
		CacheTTL:       10 * time.Minute,
		LogLevel:       "info",
		LogFormat:      "text",
		CORSOrigins:    []string{"*"},
		Bracket:        bracket.DefaultSettings(),
	}
}

// Load builds the configuration from defaults, then the YAML file named by CONFIG_FILE if any,
// then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Addr = getEnv("ADDR", cfg.Addr)
	cfg.DatabasePath = getEnv("DATABASE_PATH", cfg.DatabasePath)
	cfg.MigrationsPath = getEnv("MIGRATIONS_PATH", cfg.MigrationsPath)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	if value := os.Getenv("CACHE_TTL"); value != "" {
		ttl, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_TTL %q: %w", value, err)
		}
		cfg.CacheTTL = ttl
	}
	if value := os.Getenv("CORS_ORIGINS"); value != "" {
		cfg.CORSOrigins = splitList(value)
	}

	if err := cfg.Bracket.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default bracket settings: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
