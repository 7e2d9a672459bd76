package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 200, cfg.QRSizePx)
	assert.NotEmpty(t, cfg.QREncodeBaseURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("JWT_TTL", "3600")
	t.Setenv("QR_SIZE_PX", "128")

	cfg := Load()
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.Equal(t, 128, cfg.QRSizePx)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("QR_SIZE_PX", "huge")
	cfg := Load()
	assert.Equal(t, 200, cfg.QRSizePx)
}
