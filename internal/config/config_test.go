package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Engine.Admins = []string{"0x0000000000000000000000000000000000000001"}
	return cfg
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad mode", func(c *Config) { c.Mode = "batch" }, "unknown mode"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "unknown log_level"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server: port"},
		{"no postgres host", func(c *Config) { c.Postgres.Host = "" }, "postgres: host"},
		{"pool min over max", func(c *Config) { c.Postgres.PoolMinConns = 20 }, "pool_min_conns"},
		{"no redis addr", func(c *Config) { c.Redis.Addr = "" }, "redis: addr"},
		{"no bucket", func(c *Config) { c.S3.Bucket = "" }, "s3: bucket"},
		{"negative grant", func(c *Config) { c.Ledger.InitialGrant = -1 }, "initial_grant"},
		{"no admins", func(c *Config) { c.Engine.Admins = nil }, "admins must not be empty"},
		{"bad admin address", func(c *Config) { c.Engine.Admins = []string{"nope"} }, "not a valid hex address"},
		{"bad escrow", func(c *Config) { c.Engine.EscrowAddress = "xyz" }, "escrow_address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_DSNSkipsDiscreteFields(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.DSN = "postgres://user:pass@db:5432/easybet"
	cfg.Postgres.Host = ""
	cfg.Postgres.Database = ""
	assert.NoError(t, cfg.Validate())
}

func TestValidate_OpenCreationAllowsNoAdmins(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.Admins = nil
	cfg.Engine.OpenCreation = true
	assert.NoError(t, cfg.Validate())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EASYBET_SERVER_PORT", "9001")
	t.Setenv("EASYBET_POSTGRES_DSN", "postgres://env")
	t.Setenv("EASYBET_LEDGER_INITIAL_GRANT", "500")
	t.Setenv("EASYBET_ENGINE_ADMINS", "0x0000000000000000000000000000000000000001, 0x0000000000000000000000000000000000000002")
	t.Setenv("EASYBET_ENGINE_OPEN_CREATION", "true")
	t.Setenv("EASYBET_LOG_LEVEL", "debug")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "postgres://env", cfg.Postgres.DSN)
	assert.Equal(t, int64(500), cfg.Ledger.InitialGrant)
	assert.Len(t, cfg.Engine.Admins, 2)
	assert.True(t, cfg.Engine.OpenCreation)
	assert.Equal(t, "debug", cfg.LogLevel)

	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.AdminAccounts(), 2)
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Server.AdminToken = "token"
	cfg.Postgres.Password = "hunter2"
	cfg.Redis.Password = "hunter2"
	cfg.S3.SecretKey = "hunter2"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Server.AdminToken)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.S3.SecretKey)

	// Original untouched.
	assert.Equal(t, "hunter2", cfg.Postgres.Password)
}
