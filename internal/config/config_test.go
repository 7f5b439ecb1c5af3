package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("NAS_HOST", "nas.local")
	t.Setenv("NAS_PASSWORD", "pw")
	t.Setenv("DRIVE_MAPPINGS", "P:Production;Q:Archive")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg := Load()
	require.NotNil(t, cfg)

	assert.Equal(t, "test-secret", cfg.JWT.Secret)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres://postgres:@db.internal:6543/jobflow_db?sslmode=disable", cfg.DSN())
	assert.Equal(t, "cache:6379", cfg.RedisAddr())
	assert.Equal(t, "nas.local", cfg.NAS.Host)
	assert.Equal(t, "pw", cfg.NAS.Password)
	assert.Equal(t, "P:Production;Q:Archive", cfg.NAS.DriveMappings)
	assert.Equal(t, 30*time.Second, cfg.NASTimeout())
	assert.Equal(t, 2, cfg.NAS.MoveRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.MoveBackoff())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CorsAllowedOrigins)
}

func TestFetchSecretWithoutBucket(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, "", fetchSecret(cfg, jwtSecretKey))
}

func TestClampNAS(t *testing.T) {
	cfg := &Config{}
	cfg.NAS.MoveRetries = -1
	cfg.NAS.MoveBackoffMS = -500
	cfg.NAS.TimeoutSeconds = 0
	cfg.NAS.SessionTTLMin = -5

	clampNAS(cfg)

	assert.Equal(t, 0, cfg.NAS.MoveRetries)
	assert.Equal(t, time.Duration(0), cfg.MoveBackoff())
	assert.Equal(t, 30*time.Second, cfg.NASTimeout())
	assert.Equal(t, 12*time.Hour, cfg.NASSessionTTL())

	cfg.NAS.MoveRetries = 4
	clampNAS(cfg)
	assert.Equal(t, 4, cfg.NAS.MoveRetries)
}

func TestLoadClampsNegativeRetries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "config.yaml"),
		[]byte("nas:\n  move_retries: -3\n"), 0o644))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("JWT_SECRET", "test-secret")

	cfg := Load()
	assert.Equal(t, 0, cfg.NAS.MoveRetries)
}
