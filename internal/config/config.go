package config

import (
	"os"
	"strconv"
)

// DefaultMaxUploadBytes caps uploads at 50 MiB unless overridden.
const DefaultMaxUploadBytes = 50 << 20

// Config holds every runtime setting. It is built once in main and passed
// down explicitly; nothing reads the environment after startup.
type Config struct {
	ListenAddr string

	// APISecretKey is the static shared secret expected in X-API-Key.
	APISecretKey string

	MaxUploadBytes int64

	// RembgURL is the base URL of the background-removal inference server.
	// Empty means the passthrough remover is used (images pass unmodified).
	RembgURL           string
	RembgTimeoutSecond int

	// MaxDimension clamps the longest side of the decoded image before
	// compositing. Zero disables the clamp.
	MaxDimension int

	DatabaseDSN string
	RedisAddr   string
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		APISecretKey:       getEnv("API_SECRET_KEY", "Lp8Z2ry4yqeHNIlU99TQwbfbuo9iH1"),
		MaxUploadBytes:     getEnvInt64("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),
		RembgURL:           os.Getenv("REMBG_URL"),
		RembgTimeoutSecond: getEnvInt("REMBG_TIMEOUT_SECONDS", 60),
		MaxDimension:       getEnvInt("MAX_DIMENSION", 0),
		DatabaseDSN:        getEnv("DATABASE_DSN", "host=postgres user=postgres password=postgres dbname=bgremove port=5432 sslmode=disable"),
		RedisAddr:          getEnv("REDIS_ADDR", "redis:6379"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
