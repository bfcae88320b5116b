package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	ReportCacheTTLSeconds int
	AuthSecret            string
	BootstrapAdminPass    string
	AccessTokenTTLMinutes int
	LogLevel              string
	LogFormat             string
	DefaultLocale         string
}

// Load reads configuration from the environment, optionally seeded by a
// .env file in the working directory.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REPORT_CACHE_TTL_SECONDS", 300)
	v.SetDefault("AUTH_SECRET", "")
	v.SetDefault("BOOTSTRAP_ADMIN_PASSWORD", "")
	v.SetDefault("ACCESS_TOKEN_TTL_MINUTES", 480)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DEFAULT_LOCALE", "tr")
	v.AutomaticEnv()

	ttl := v.GetInt("REPORT_CACHE_TTL_SECONDS")
	if ttl < 1 {
		ttl = 300
	}
	tokenTTL := v.GetInt("ACCESS_TOKEN_TTL_MINUTES")
	if tokenTTL < 1 {
		tokenTTL = 480
	}
	locale := strings.ToLower(strings.TrimSpace(v.GetString("DEFAULT_LOCALE")))
	if locale != "en" {
		locale = "tr"
	}

	return Config{
		Port:                  v.GetString("PORT"),
		AllowedOrigin:         v.GetString("ALLOWED_ORIGIN"),
		DatabaseURL:           strings.TrimSpace(v.GetString("DATABASE_URL")),
		RedisAddr:             strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:         v.GetString("REDIS_PASSWORD"),
		RedisDB:               v.GetInt("REDIS_DB"),
		ReportCacheTTLSeconds: ttl,
		AuthSecret:            strings.TrimSpace(v.GetString("AUTH_SECRET")),
		BootstrapAdminPass:    v.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
		AccessTokenTTLMinutes: tokenTTL,
		LogLevel:              v.GetString("LOG_LEVEL"),
		LogFormat:             v.GetString("LOG_FORMAT"),
		DefaultLocale:         locale,
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}
