package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	DatabaseURL    string   `env:"DATABASE_URL"`
	Storage        string   `env:"STORAGE" envDefault:"postgres"`
	RedisURL       string   `env:"REDIS_URL"`
	FrontendURL    string   `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	Log   LogConfig   `envPrefix:"LOG_"`
	Token TokenConfig
	Email EmailConfig `envPrefix:"EMAIL_"`
}

type LogConfig struct {
	File       string `env:"FILE"`
	Level      string `env:"LEVEL" envDefault:"info"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"50"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"5"`
}

// TokenConfig carries the signing secret and lifetimes. It is read once at
// startup and never mutated afterwards.
type TokenConfig struct {
	SecretKey       string        `env:"SECRET_KEY"`
	CookieSecure    bool          `env:"COOKIE_SECURE" envDefault:"false"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	EmailTokenTTL   time.Duration `env:"EMAIL_TOKEN_TTL" envDefault:"24h"`
}

type EmailConfig struct {
	Provider string `env:"PROVIDER" envDefault:"log"`
	From     string `env:"FROM" envDefault:"noreply@sixtylens.com"`
	Host     string `env:"SERVER_HOST"`
	Port     int    `env:"SERVER_PORT" envDefault:"587"`
	Username string `env:"SERVER_USER"`
	Password string `env:"SERVER_PASSWORD"`
	Secure   bool   `env:"SERVER_SECURE"`

	SESRegion          string `env:"SES_REGION" envDefault:"us-east-1"`
	SESAccessKeyID     string `env:"SES_ACCESS_KEY_ID"`
	SESSecretAccessKey string `env:"SES_SECRET_ACCESS_KEY"`
}

func (e EmailConfig) SMTPEnabled() bool {
	return e.Host != "" && e.Port != 0 && e.From != ""
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Storage = strings.ToLower(clean(cfg.Storage))
	cfg.Email.Provider = strings.ToLower(clean(cfg.Email.Provider))
	cfg.Email.Host = clean(cfg.Email.Host)
	cfg.Email.Username = clean(cfg.Email.Username)
	cfg.Email.Password = clean(cfg.Email.Password)
	cfg.Email.From = clean(cfg.Email.From)
	cfg.FrontendURL = strings.TrimRight(clean(cfg.FrontendURL), "/")
	cfg.AllowedOrigins = compact(cfg.AllowedOrigins)
	cfg.TrustedProxies = compact(cfg.TrustedProxies)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Token.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE %q", c.Storage)
	}
	if c.Token.AccessTokenTTL <= 0 || c.Token.RefreshTokenTTL <= 0 || c.Token.EmailTokenTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	switch c.Email.Provider {
	case "log", "ses":
	case "smtp":
		if !c.Email.SMTPEnabled() {
			return fmt.Errorf("EMAIL_SERVER_HOST, EMAIL_SERVER_PORT and EMAIL_FROM are required for smtp")
		}
	default:
		return fmt.Errorf("unknown EMAIL_PROVIDER %q", c.Email.Provider)
	}
	return nil
}

func clean(val string) string {
	return strings.Trim(val, "\"' \t\r\n")
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
