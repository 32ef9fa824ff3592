package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"mindvibe/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func testConfig(t *testing.T, overrides map[string]string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	v := viper.New()
	v.Set("DATABASE_DRIVER", "sqlite")
	v.Set("DATABASE_DSN", filepath.Join(dir, "mindvibe.db"))
	v.Set("JWT_SECRET", "test_jwt_secret")
	v.Set("MEDIA_ROOT", filepath.Join(dir, "media"))
	v.Set("CART_TTL", "1h")
	v.Set("DEFAULT_SHIPPING_COST", "50.00")
	for k, val := range overrides {
		v.Set(k, val)
	}

	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	return cfg
}

func getHealth(t *testing.T, a *application) map[string]any {
	t.Helper()
	resp, err := a.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestApplicationWithoutOptionalBackends(t *testing.T) {
	a, err := newApplication(context.Background(), testConfig(t, nil), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, a.startWorkers())

	body := getHealth(t, a)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "up", body["database"])
	assert.Equal(t, "disabled", body["redis"])
	assert.Equal(t, "disabled", body["rabbitmq"])

	resp, err := a.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, a.shutdown(ctx))
}

func TestApplicationWithRedisAndSweeper(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, map[string]string{
		"REDIS_URL":         "redis://" + mr.Addr(),
		"PENDING_ORDER_TTL": "24h",
		"SWEEP_INTERVAL":    "1h",
	})

	a, err := newApplication(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, a.sweeper)
	require.NoError(t, a.startWorkers())
	require.NotNil(t, a.stopSweep)

	assert.Equal(t, "up", getHealth(t, a)["redis"])

	mr.Close()
	assert.Equal(t, "down", getHealth(t, a)["redis"])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// The redis client may report the closed server; the sweeper must still stop.
	_ = a.shutdown(ctx)
}

func TestApplicationRejectsUnreachableRedis(t *testing.T) {
	cfg := testConfig(t, map[string]string{"REDIS_URL": "redis://127.0.0.1:1"})

	_, err := newApplication(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, gormLogLevel("DEBUG"))
	assert.Equal(t, gormlogger.Warn, gormLogLevel("info"))
	assert.Equal(t, gormlogger.Error, gormLogLevel("error"))
}
