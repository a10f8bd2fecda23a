package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/groupcart-backend/internal/data/db"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
)

func TestLoadConfigLayersFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "groupcart.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: ":9000"
db:
  driver: postgres
  host: db.internal
  name: orders
redis:
  addr: redis:6379
auth:
  jwt_secret_key: from-file
fulfillment:
  mode: kafka
  kafka_brokers: ["k1:9092"]
payment_lock_ttl_seconds: 30
`), 0o600))

	t.Chdir(dir)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_ADDR", ":9100")
	t.Setenv("KAFKA_ORDERS_TOPIC", "orders.v2")

	cfg, err := LoadConfig(logger.Nop())
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.HTTPAddr, "env wins over file")
	assert.Equal(t, db.DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, "5432", cfg.DB.Port, "defaults survive partial files")
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "groupcart:sse", cfg.Redis.Channel)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecretKey)
	assert.Equal(t, FulfillmentKafka, cfg.Fulfillment.Mode)
	assert.Equal(t, "orders.v2", cfg.Fulfillment.Topic)
	assert.Equal(t, 30*time.Second, cfg.PaymentLockTTL())
}

func TestLoadConfigReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("JWT_SECRET_KEY=dotenv-secret\n"), 0o600))
	t.Chdir(dir)
	// Registered so the variable godotenv sets is restored afterwards.
	t.Setenv("JWT_SECRET_KEY", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET_KEY"))

	cfg, err := LoadConfig(logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "dotenv-secret", cfg.Auth.JWTSecretKey)
	assert.Equal(t, db.DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, FulfillmentHTTP, cfg.Fulfillment.Mode)
}

func TestConfigValidate(t *testing.T) {
	cfg := defaultConfig()
	require.Error(t, cfg.Validate(), "secret required")

	cfg.Auth.JWTSecretKey = "s"
	require.NoError(t, cfg.Validate())

	cfg.Fulfillment.Mode = FulfillmentKafka
	require.Error(t, cfg.Validate(), "kafka needs brokers")

	cfg.Fulfillment.Mode = "carrier-pigeon"
	require.Error(t, cfg.Validate())
}
