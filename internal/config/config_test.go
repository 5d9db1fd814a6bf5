package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senseivictor/baza-de-date/internal/database"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, database.SQLite, cfg.Dialect())
	assert.Equal(t, "baza.db", cfg.Database().Name)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Zero(t, cfg.RequestTimeout)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.OrderEvents)
	assert.Equal(t, "warehouse.orders.q", cfg.WarehouseQueue)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "mssql")
	t.Setenv("DB_HOST", "db")
	t.Setenv("REPORT_TZ", "Europe/Chisinau")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("ORDER_EVENTS_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, database.SQLServer, cfg.Dialect())
	assert.Equal(t, "1433", cfg.Database().Port)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "Europe/Chisinau", cfg.Location().String())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.True(t, cfg.OrderEvents)
}

func TestLoadRejectsBadValues(t *testing.T) {
	for key, value := range map[string]string{
		"DB_DRIVER":       "oracle",
		"REPORT_TZ":       "Mars/Olympus",
		"BCRYPT_COST":     "99",
		"REQUEST_TIMEOUT": "soon",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_TTL", "1m")
	cfg := LoadCacheConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
	assert.Equal(t, time.Minute, cfg.TTL)
	assert.Equal(t, "route_query", cfg.KeyStrategy)
}

func TestLoadCacheConfigFallsBackOnGarbage(t *testing.T) {
	t.Setenv("CACHE_TTL", "forever")
	cfg := LoadCacheConfig()
	assert.Equal(t, 30*time.Second, cfg.TTL)
	assert.True(t, cfg.Methods["GET"])
}

func TestRateLimitNormalization(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "9")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	cfg := LoadRateLimitConfig()
	assert.Equal(t, 5, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL, "ttl is at least five refill intervals")
	assert.Equal(t, "ip_route", cfg.KeyStrategy)

	cfg = RateLimitConfig{Capacity: 0, RefillTokens: -1}.normalize()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, time.Second, cfg.RefillInterval)
}

func TestLoadRedisConfig(t *testing.T) {
	cfg, err := LoadRedisConfig()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.Addr)

	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_TLS", "true")
	cfg, err = LoadRedisConfig()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", cfg.Addr)
	assert.NotNil(t, cfg.Options().TLSConfig)
}
