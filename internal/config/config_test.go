package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	cfg := Config{
		DBUser:     "user",
		DBPassword: "pass",
		DBHost:     "db",
		DBPort:     3307,
		DBName:     "factory",
		ParseTime:  true,
	}

	assert.Equal(t, "user:pass@tcp(db:3307)/factory?parseTime=true", cfg.DSN())
}

func TestMustConfig_ReadsYAMLWithDefaults(t *testing.T) {
	// 1. Минимальный конфиг во временной папке
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	content := `
env: "dev"
storage_path: "./data/test.db"
db_user: "user"
db_name: "factory"
nats:
  url: "nats://localhost:4222"
write_queue:
  delay: 250ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_PATH", path)

	// 2. Переменная окружения перекрывает YAML, пароль БД не обязателен
	t.Setenv("DB_HOST", "mysql.internal")
	t.Setenv("DB_PASSWORD", "")

	cfg := MustConfig()

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "./data/test.db", cfg.StoragePath)
	assert.Equal(t, "mysql.internal", cfg.DBHost)
	assert.Equal(t, 3306, cfg.DBPort)
	assert.Empty(t, cfg.DBPassword)
	assert.Equal(t, "user:@tcp(mysql.internal:3306)/factory?parseTime=true", cfg.DSN())
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, "factory", cfg.NATS.SubjectPrefix)
	assert.Equal(t, 250*time.Millisecond, cfg.WriteQueue.Delay)
	assert.Equal(t, "/blobs", cfg.Blob.PublicURL)
	assert.Equal(t, 600, cfg.Blob.Edge)
	assert.Equal(t, "localhost:4001", cfg.Address)
	assert.Equal(t, 4*time.Second, cfg.HTTPServer.Timeout)
}
