package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("ADMIN_BOOTSTRAP_EMAIL", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Minute, cfg.IdempotencyTTL)
	assert.Empty(t, cfg.AdminBootstrapEmail)
	assert.NotEmpty(t, cfg.ServiceID)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("KAFKA_ADDR", "k1:9092, k2:9092,")
	t.Setenv("IDEMPOTENCY_TTL", "90s")
	t.Setenv("SERVICE_ID", "storefront-1")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DriverRedis, cfg.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 90*time.Second, cfg.IdempotencyTTL)
	assert.Equal(t, "storefront-1", cfg.ServiceID)
}

func TestValidate(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown driver":   {"STORE_DRIVER": "sqlite"},
		"redis no addr":    {"STORE_DRIVER": "redis", "REDIS_ADDR": ""},
		"bad ttl":          {"IDEMPOTENCY_TTL": "soon"},
		"non-positive ttl": {"IDEMPOTENCY_TTL": "-1s"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s3cret")
			t.Setenv("STORE_DRIVER", "memory")
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			require.Error(t, err)
		})
	}
}

func TestSecretOnlyRequiredForAuth(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Error(t, cfg.RequireAuth())

	cfg.JWTSecret = "s3cret"
	require.NoError(t, cfg.RequireAuth())
}
