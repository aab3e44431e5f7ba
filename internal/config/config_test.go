package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_EXPIRES_IN", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("SEED_USERS", "")
	t.Setenv("PASSWORD_MIN_LEN", "")
	t.Setenv("DB_MAX_CONNS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, 10, cfg.DBMaxConns)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, StoreDriverPgx, cfg.StoreDriver)
	assert.Equal(t, 4, cfg.PasswordMinLen)
	assert.True(t, cfg.RunMigrations)
	assert.Empty(t, cfg.SeedUsers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRES_IN", "2h")
	t.Setenv("STORE_DRIVER", "GORM")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("SEED_USERS", "alice:alice@example.com:pw123456")
	t.Setenv("PASSWORD_MIN_LEN", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, StoreDriverGorm, cfg.StoreDriver)
	assert.False(t, cfg.RunMigrations)
	assert.Equal(t, 8, cfg.PasswordMinLen)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	require.Len(t, cfg.SeedUsers, 1)
	assert.Equal(t, SeedUser{Username: "alice", Email: "alice@example.com", Password: "pw123456"}, cfg.SeedUsers[0])
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("JWT_SECRET", "k")
	t.Setenv("JWT_EXPIRES_IN", "tomorrow")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("SEED_USERS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"STORE_DRIVER": "mongo"}},
		{"default secret in prod", map[string]string{"ENV": "prod", "JWT_SECRET": ""}},
		{"bad seed entry", map[string]string{"SEED_USERS": "alice:alice@example.com"}},
		{"zero rate limit", map[string]string{"RATE_LIMIT_PER_MIN": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"ENV", "JWT_SECRET", "STORE_DRIVER", "SEED_USERS", "RATE_LIMIT_PER_MIN"} {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
