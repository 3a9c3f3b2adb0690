package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-orgstructure/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))

	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.HTTP.Port)
	assert.Equal(t, "/metrics", cfg.HTTP.MetricsPath)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3, cfg.Tx.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Tx.InitialDelay)
	assert.Equal(t, 10*time.Minute, cfg.Cache.HierarchyTTL)
	assert.Equal(t, time.Minute, cfg.RBAC.PolicyTTL)
	assert.False(t, cfg.IsProduction())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	content := "DB_HOST=db.internal\nKAFKA_BROKER=k1:9092,k2:9092\nAPP_ENV=production\nPORT=9999\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	t.Setenv("PORT", "8080")
	// t.Setenv mengembalikan nilai awal setelah test; variabel dari file dibersihkan manual
	t.Cleanup(func() {
		os.Unsetenv("DB_HOST")
		os.Unsetenv("KAFKA_BROKER")
		os.Unsetenv("APP_ENV")
	})

	cfg, err := config.Load(file)

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.IsProduction())
	assert.Contains(t, cfg.Database.DSN(), "host=db.internal")
}

func TestValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("OUTBOX_BATCH_SIZE", "0")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "none"))
	require.NoError(t, err)

	assert.ErrorIs(t, cfg.Validate(), config.ErrMissingJWTSecret)

	cfg.JWT.Secret = "x"
	assert.EqualError(t, cfg.Validate(), "OUTBOX_BATCH_SIZE must be at least 1, got 0")
}
