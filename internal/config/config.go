// Package config provides runtime configuration values for the service.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration knobs for the API server and its collaborators.
type Config struct {
	DatabaseURL     string
	HTTPAddr        string
	ShutdownTimeout time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	// QR encode service (URL-addressed image endpoint).
	QREncodeBaseURL string
	QRSizePx        int

	// Postgres LISTEN/NOTIFY reconnection window.
	ListenMinInterval time.Duration
	ListenMaxInterval time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvs(key string, defSec int) time.Duration {
	return time.Duration(atoienv(key, defSec)) * time.Second
}

// Load collects configuration from environment with defaults.
func Load() Config {
	return Config{
		DatabaseURL:       getenv("DATABASE_URL", ""),
		HTTPAddr:          ":" + getenv("APP_PORT", "8080"),
		ShutdownTimeout:   durenvs("SHUTDOWN_TIMEOUT", 15),
		JWTSecret:         getenv("JWT_SECRET", ""),
		JWTTTL:            durenvs("JWT_TTL", 24*3600),
		QREncodeBaseURL:   getenv("QR_ENCODE_BASE_URL", "https://api.qrserver.com/v1/create-qr-code/"),
		QRSizePx:          atoienv("QR_SIZE_PX", 200),
		ListenMinInterval: durenvs("LISTEN_MIN_INTERVAL", 1),
		ListenMaxInterval: durenvs("LISTEN_MAX_INTERVAL", 30),
	}
}
