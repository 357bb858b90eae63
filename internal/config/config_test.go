package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, "log", cfg.Notification.Publisher)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Notification.KafkaBrokers)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("NOTIFY_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Notification.KafkaBrokers)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DB_HOST=db.internal\nJWT_SECRET=from-dotenv\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "from-env", cfg.JWT.Secret, "real environment wins over .env")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:          AppConfig{Environment: "production"},
			Store:        StoreConfig{Driver: "postgres"},
			Database:     DatabaseConfig{Password: "pw", SSLMode: "require"},
			JWT:          JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
			Notification: NotificationConfig{Publisher: "log"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.JWT.Secret = "" }, wantErr: "JWT_SECRET is required"},
		{name: "short secret in production", mutate: func(c *Config) { c.JWT.Secret = "short" }, wantErr: "at least 32"},
		{name: "short secret in development", mutate: func(c *Config) {
			c.App.Environment = "development"
			c.JWT.Secret = "short"
		}},
		{name: "no db password outside development", mutate: func(c *Config) { c.Database.Password = "" }, wantErr: "DB_PASSWORD"},
		{name: "sslmode disable in production", mutate: func(c *Config) { c.Database.SSLMode = "disable" }, wantErr: "DB_SSLMODE"},
		{name: "memory store in production", mutate: func(c *Config) { c.Store.Driver = "memory" }, wantErr: "STORE_DRIVER=memory"},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Driver = "sqlite" }, wantErr: "STORE_DRIVER must be"},
		{name: "kafka without brokers", mutate: func(c *Config) { c.Notification.Publisher = "kafka" }, wantErr: "NOTIFY_KAFKA_BROKERS"},
		{name: "unknown publisher", mutate: func(c *Config) { c.Notification.Publisher = "sms" }, wantErr: "NOTIFY_PUBLISHER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a, b", " ", "c,"}))
	assert.Empty(t, splitList(nil))
}
