package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig selects the storage driver.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	URL    string `yaml:"url"`
}

// AuthConfig controls issued login tokens.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// TranslatorConfig points at an OpenAI-compatible chat completions API.
type TranslatorConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Config keeps runtime settings for the service.
type Config struct {
	HTTPAddr      string           `yaml:"http_addr"`
	LogLevel      string           `yaml:"log_level"`
	CORSOrigins   []string         `yaml:"cors_origins"`
	TelegramToken string           `yaml:"telegram_token"`
	Database      DatabaseConfig   `yaml:"database"`
	Auth          AuthConfig       `yaml:"auth"`
	Translator    TranslatorConfig `yaml:"translator"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		HTTPAddr:    ":5000",
		LogLevel:    "info",
		CORSOrigins: []string{"*"},
		Database: DatabaseConfig{
			Driver: "sqlite",
			URL:    "ai_todo.db",
		},
		Auth: AuthConfig{
			TokenTTL: 7 * 24 * time.Hour,
		},
		Translator: TranslatorConfig{
			BaseURL: "https://api.x.ai/v1",
			Model:   "grok-2-1212",
			Timeout: 30 * time.Second,
		},
	}
}

// Load reads the optional YAML file named by CONFIG_FILE, then applies
// environment variables on top of it.
func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	if c.Translator.Timeout <= 0 {
		return fmt.Errorf("translator timeout must be positive")
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.HTTPAddr, "HTTP_ADDR")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Translator.BaseURL, "XAI_BASE_URL")
	setString(&cfg.Translator.APIKey, "XAI_API_KEY")
	setString(&cfg.Translator.Model, "XAI_MODEL")

	if origins := getEnv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	if ttl := parseDuration(getEnv("TOKEN_TTL_HOURS"), "h"); ttl > 0 {
		cfg.Auth.TokenTTL = ttl
	}
	if timeout := parseDuration(getEnv("TRANSLATOR_TIMEOUT_SECONDS"), "s"); timeout > 0 {
		cfg.Translator.Timeout = timeout
	}
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, key string) {
	if value := getEnv(key); value != "" {
		*dst = value
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseDuration turns a bare number plus unit suffix into a duration.
// Invalid or non-positive values yield zero.
func parseDuration(raw, unit string) time.Duration {
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw + unit)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}
