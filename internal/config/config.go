package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	// Server
	Port        int    `mapstructure:"PORT"`
	Env         string `mapstructure:"APP_ENV"` // development | production
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`
	MediaDir    string `mapstructure:"MEDIA_DIR"`

	// Database
	DBDriver    string `mapstructure:"DB_DRIVER"` // sqlite | postgres
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	SQLitePath  string `mapstructure:"SQLITE_PATH"`

	// Redis (optional)
	RedisURL          string        `mapstructure:"REDIS_URL"`
	DashboardCacheTTL time.Duration `mapstructure:"DASHBOARD_CACHE_TTL"`

	// Auth
	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTExpirationHours int    `mapstructure:"JWT_EXPIRATION_HOURS"`
	JWTRefreshHours    int    `mapstructure:"JWT_REFRESH_HOURS"`

	// Initial administrator, seeded only when both username and password are set
	AdminUsername string `mapstructure:"ADMIN_USERNAME"`
	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`

	// Business
	OrderAllowReactivation bool `mapstructure:"ORDER_ALLOW_REACTIVATION"`
}

const devJWTSecret = "dev-only-secret-change-me"

var keys = []string{
	"PORT", "APP_ENV", "LOG_LEVEL", "CORS_ORIGINS", "MEDIA_DIR",
	"DB_DRIVER", "DATABASE_URL", "SQLITE_PATH",
	"REDIS_URL", "DASHBOARD_CACHE_TTL",
	"JWT_SECRET", "JWT_EXPIRATION_HOURS", "JWT_REFRESH_HOURS",
	"ADMIN_USERNAME", "ADMIN_EMAIL", "ADMIN_PASSWORD",
	"ORDER_ALLOW_REACTIVATION",
}

// Load reads configs/.env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 8080)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("MEDIA_DIR", "media")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("SQLITE_PATH", "data/dotaciones.db")
	v.SetDefault("DASHBOARD_CACHE_TTL", "60s")
	v.SetDefault("JWT_EXPIRATION_HOURS", 24)
	v.SetDefault("JWT_REFRESH_HOURS", 24*7)
	v.SetDefault("ORDER_ALLOW_REACTIVATION", true)

	// AutomaticEnv only answers Get; Unmarshal needs every key registered.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET is required in production")
		}
		c.JWTSecret = devJWTSecret
	}
	if c.DBDriver == "postgres" && c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWTExpirationHours) * time.Hour
}

func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.JWTRefreshHours) * time.Hour
}
