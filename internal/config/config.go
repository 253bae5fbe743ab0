// Package config loads process-wide settings from the environment, with an
// optional .env overlay for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings holds all runtime configuration. Every field is
// environment-overridable; defaults suit local development.
type Settings struct {
	Host        string
	Port        int
	Environment string

	JWTSecretKey             string
	JWTAlgorithm             string
	AccessTokenExpireMinutes int

	CORSOrigins []string

	DataDir string
	PGDSN   string

	BcryptRounds int
	LogLevel     string

	GRPCAddr string
}

// TokenTTL returns the configured access token lifetime.
func (s Settings) TokenTTL() time.Duration {
	return time.Duration(s.AccessTokenExpireMinutes) * time.Minute
}

// Addr returns the HTTP listen address.
func (s Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads settings from the environment. A .env file in the working
// directory, when present, supplies values for variables not already set.
func Load() (Settings, error) {
	_ = godotenv.Load(".env")

	s := Settings{
		Host:                     envStr("HOST", "0.0.0.0"),
		Port:                     envInt("PORT", 8000),
		Environment:              envStr("ENVIRONMENT", "development"),
		JWTSecretKey:             envStr("JWT_SECRET_KEY", "dev-secret-key-change-in-production-min-32-chars"),
		JWTAlgorithm:             envStr("JWT_ALGORITHM", "HS256"),
		AccessTokenExpireMinutes: envInt("ACCESS_TOKEN_EXPIRE_MINUTES", 1440),
		CORSOrigins: envList("CORS_ORIGINS", []string{
			"http://localhost:8000",
			"http://localhost:3000",
			"http://127.0.0.1:8000",
		}),
		DataDir:      envStr("DATA_DIR", "./data"),
		PGDSN:        envStr("VBS_PG_DSN", ""),
		BcryptRounds: envInt("BCRYPT_ROUNDS", 12),
		LogLevel:     envStr("LOG_LEVEL", "INFO"),
		GRPCAddr:     envStr("VBS_GRPC_ADDR", ""),
	}

	if strings.TrimSpace(s.JWTSecretKey) == "" {
		return Settings{}, fmt.Errorf("JWT_SECRET_KEY must not be empty")
	}
	if s.JWTAlgorithm != "HS256" {
		return Settings{}, fmt.Errorf("unsupported JWT_ALGORITHM %q (only HS256)", s.JWTAlgorithm)
	}
	if s.AccessTokenExpireMinutes <= 0 {
		return Settings{}, fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	return s, nil
}

func envStr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func envList(key string, def []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
