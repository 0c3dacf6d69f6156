package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

func validConfig(t *testing.T) *Config {
	t.Helper()
	t.Setenv("JWT_SECRET", testJWTSecret)
	t.Setenv("TRACING_ENABLED", "false")
	t.Setenv("PROFILING_ENABLED", "false")
	return Load()
}

func TestLoad_Defaults(t *testing.T) {
	cfg := validConfig(t)

	assert.Equal(t, "account", cfg.Service.Name)
	assert.Equal(t, "8080", cfg.Service.Port)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 30*time.Minute, cfg.Auth.RecoveryTTL)
	assert.Equal(t, uint32(64*1024), cfg.Auth.Argon2Memory)
	assert.Equal(t, 15*time.Minute, cfg.Screens.TTL)
	assert.False(t, cfg.Profile.OptimisticNotice)
	assert.False(t, cfg.Google.Enabled())
	assert.Empty(t, cfg.Database.Host)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 10*time.Second, cfg.GetShutdownTimeoutDuration())
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SCREEN_TTL", "2m")
	t.Setenv("SESSION_TTL", "not-a-duration")
	t.Setenv("PROFILE_OPTIMISTIC_NOTICE", "yes")
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SHUTDOWN_TIMEOUT", "5m")
	cfg := validConfig(t)

	assert.Equal(t, 2*time.Minute, cfg.Screens.TTL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL, "invalid duration falls back to default")
	assert.True(t, cfg.Profile.OptimisticNotice)
	assert.True(t, cfg.Google.Enabled())
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 10, cfg.ShutdownTimeout, "values above the limit fall back to default")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "short jwt secret", mutate: func(c *Config) { c.Auth.JWTSecret = "short" }, wantErr: "JWT_SECRET"},
		{name: "non-numeric port", mutate: func(c *Config) { c.Service.Port = "http" }, wantErr: "PORT must be a valid number"},
		{name: "unknown env", mutate: func(c *Config) { c.Service.Env = "qa" }, wantErr: "ENV must be one of"},
		{name: "database without name", mutate: func(c *Config) { c.Database.Host = "db" }, wantErr: "DB_NAME is required"},
		{name: "google without secret", mutate: func(c *Config) { c.Google.ClientID = "id" }, wantErr: "GOOGLE_CLIENT_SECRET"},
		{name: "smtp without sender", mutate: func(c *Config) { c.Mail.SMTPHost = "smtp"; c.Mail.From = "" }, wantErr: "MAIL_FROM"},
		{name: "weak argon2", mutate: func(c *Config) { c.Auth.Argon2Memory = 1024 }, wantErr: "ARGON2_MEMORY"},
		{name: "zero screen ttl", mutate: func(c *Config) { c.Screens.TTL = 0 }, wantErr: "SCREEN_TTL"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_BuildDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: "5432", Name: "accounts", User: "svc", Password: "pw", SSLMode: "disable"}

	assert.Equal(t, "postgresql://svc:pw@db:5432/accounts?sslmode=disable", cfg.BuildDSN())
}
