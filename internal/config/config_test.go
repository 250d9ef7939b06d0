package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("LOCK_BACKEND", "")
	t.Setenv("NOTIFY_SINK", "")
	t.Setenv("CACHE_TTL_SECONDS", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := LoadConfig()
	assert.Equal(t, DriverMySQL, cfg.DBDriver)
	assert.Equal(t, "memory", cfg.LockBackend)
	assert.Equal(t, "log", cfg.NotifySink)
	assert.Equal(t, 60*time.Second, cfg.CacheTTL)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/coins.db")
	t.Setenv("LOCK_WAIT_MS", "250")
	t.Setenv("NOTIFY_WORKERS", "not-a-number")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")

	cfg := LoadConfig()
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "/tmp/coins.db", cfg.DSN())
	assert.Equal(t, 250*time.Millisecond, cfg.LockWait)
	assert.Equal(t, 2, cfg.NotifyWorkers)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestDSN_PerDriver(t *testing.T) {
	cfg := &Config{DBDriver: DriverMySQL, DBUser: "u", DBPassword: "p", DBHost: "db", DBName: "coins"}
	assert.Equal(t, "u:p@tcp(db:3306)/coins?parseTime=true", cfg.DSN())

	cfg.DBDriver = DriverPostgres
	cfg.DBPort = "6543"
	assert.Equal(t, "host=db user=u password=p dbname=coins port=6543 sslmode=disable", cfg.DSN())
}
