// Package config loads agent settings from defaults, an optional TOML file,
// a .env file and the process environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	StoreSQLite = "sqlite"
	StoreFile   = "file"
	StoreMemory = "memory"
)

// DefaultEnvFile is read by Load when present. Its values never override
// variables already set in the environment.
const DefaultEnvFile = ".env"

type Config struct {
	Provider    string          `toml:"provider"`
	Model       string          `toml:"model"`
	TokenBudget int             `toml:"token_budget"`
	LogLevel    string          `toml:"log_level"`
	Store       StoreConfig     `toml:"store"`
	Weather     WeatherConfig   `toml:"weather"`
	Calendar    CalendarConfig  `toml:"calendar"`
	Telemetry   TelemetryConfig `toml:"telemetry"`
}

type StoreConfig struct {
	Kind string `toml:"kind"`
	Path string `toml:"path"`
}

type WeatherConfig struct {
	APIKey string `toml:"api_key"`
}

type CalendarConfig struct {
	CredentialsPath string `toml:"credentials_path"`
	TokenPath       string `toml:"token_path"`
}

type TelemetryConfig struct {
	Observe         bool   `toml:"observe"`
	PersistPayloads bool   `toml:"persist_payloads"`
	ArtifactsDir    string `toml:"artifacts_dir"`
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		LogLevel: "warn",
		Store:    StoreConfig{Kind: StoreSQLite, Path: "memory.db"},
		Calendar: CalendarConfig{
			CredentialsPath: "credentials.json",
			TokenPath:       "token.json",
		},
	}
}

// Load builds a Config. path may be empty to skip the TOML file.
func Load(path string) (*Config, error) {
	return LoadWithEnvFile(path, DefaultEnvFile)
}

// LoadWithEnvFile is Load with an explicit .env location. A missing env file is not an error.
func LoadWithEnvFile(path, envFile string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString("AGT_PROVIDER", &c.Provider)
	setString("AGT_MODEL", &c.Model)
	setString("AGT_LOG_LEVEL", &c.LogLevel)
	setString("AGT_STORE", &c.Store.Kind)
	setString("AGT_DB_PATH", &c.Store.Path)
	setString("OPENWEATHER_API_KEY", &c.Weather.APIKey)
	setString("GOOGLE_CREDENTIALS_PATH", &c.Calendar.CredentialsPath)
	setString("GOOGLE_TOKEN_PATH", &c.Calendar.TokenPath)
	setString("AGT_ARTIFACTS_DIR", &c.Telemetry.ArtifactsDir)

	if v := os.Getenv("AGT_TOKEN_BUDGET"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid AGT_TOKEN_BUDGET %q: %w", v, err)
		}
		c.TokenBudget = n
	}
	if os.Getenv("AGT_OBSERVE_JSON") == "1" {
		c.Telemetry.Observe = true
	}
	if os.Getenv("AGT_PERSIST_API_PAYLOADS") == "1" {
		c.Telemetry.PersistPayloads = true
	}
	return nil
}

// Validate reports every problem in c at once.
func (c *Config) Validate() error {
	var problems []string

	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		problems = append(problems, fmt.Sprintf("provider must be %q or %q, got %q", ProviderOpenAI, ProviderAnthropic, c.Provider))
	}

	c.Store.Kind = strings.ToLower(strings.TrimSpace(c.Store.Kind))
	switch c.Store.Kind {
	case StoreSQLite, StoreFile:
		if c.Store.Path == "" {
			problems = append(problems, fmt.Sprintf("store.path is required for the %s store", c.Store.Kind))
		}
	case StoreMemory:
	default:
		problems = append(problems, fmt.Sprintf("store.kind must be one of sqlite, file, memory, got %q", c.Store.Kind))
	}

	if c.TokenBudget < 0 {
		problems = append(problems, fmt.Sprintf("token_budget must be >= 0, got %d", c.TokenBudget))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// SlogLevel returns the configured log level, defaulting to warn.
func (c *Config) SlogLevel() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelWarn, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level %q is not one of debug, info, warn, error", s)
	}
	return l, nil
}
