package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

type Config struct {
	AppName      string
	BindAddr     string
	DatabaseURL  string
	LogLevel     slog.Level
	LogFormat    string
	DebugMode    bool
	AutoMigrate  bool
	RateLimitRPS float64
}

// Load reads the configuration through getenv, normally os.Getenv.
func Load(getenv func(string) string) (*Config, error) {
	env := func(key, default_ string) string {
		if val := strings.TrimSpace(getenv(key)); val != "" {
			return val
		}
		return default_
	}

	cfg := &Config{
		AppName:     env("APP_NAME", "bookcatalog"),
		BindAddr:    env("BIND_ADDR", ":"+env("PORT", "3000")),
		DatabaseURL: env("DATABASE_URL", "postgres://localhost:5432/test"),
		LogFormat:   strings.ToLower(env("LOG_FORMAT", "text")),
		DebugMode:   isTruthy(getenv("DEBUG_MODE")),
		AutoMigrate: isTruthy(getenv("AUTO_MIGRATE")),
	}

	err := cfg.LogLevel.UnmarshalText([]byte(env("LOG_LEVEL", "debug")))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL, one of debug, info, warn or error expected: %w", err)
	}

	if rps := env("RATE_LIMIT_RPS", ""); rps != "" {
		cfg.RateLimitRPS, err = strconv.ParseFloat(rps, 64)
		if err != nil || cfg.RateLimitRPS < 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_RPS %q, non-negative number expected", rps)
		}
	}

	return cfg, nil
}

func isTruthy(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "yes", "on", "true", "1":
		return true
	}

	return false
}
