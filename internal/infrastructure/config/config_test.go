package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "fiscal-ledger", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "fiscal", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, "VES", cfg.Fiscal.FunctionalCurrency)
		assert.True(t, decimal.NewFromInt(2).Equal(cfg.Fiscal.SyncTolerance))
		assert.Equal(t, byte('V'), cfg.Fiscal.PersonType())
		assert.Equal(t, "America/Caracas", cfg.Scheduler.Location)
		assert.Equal(t, "/metrics", cfg.Metrics.Path)
		assert.False(t, cfg.Storage.Enabled())
		assert.Empty(t, cfg.Redis.Addr())
	})

	t.Run("loads values from environment variables with FISCAL prefix", func(t *testing.T) {
		t.Setenv("FISCAL_APP_NAME", "ledger-test")
		t.Setenv("FISCAL_DATABASE_HOST", "db.local")
		t.Setenv("FISCAL_DATABASE_PORT", "5433")
		t.Setenv("FISCAL_REDIS_HOST", "cache.local")
		t.Setenv("FISCAL_FISCAL_SYNC_TOLERANCE", "0.05")
		t.Setenv("FISCAL_FISCAL_DEFAULT_PERSON_TYPE", "j")
		t.Setenv("FISCAL_SCHEDULER_RUN_HOUR", "6")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "ledger-test", cfg.App.Name)
		assert.Equal(t, "db.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "cache.local:6379", cfg.Redis.Addr())
		assert.True(t, decimal.RequireFromString("0.05").Equal(cfg.Fiscal.SyncTolerance))
		assert.Equal(t, byte('J'), cfg.Fiscal.PersonType())
		assert.Equal(t, 6, cfg.Scheduler.RunHour)
	})

	t.Run("rejects a malformed tolerance", func(t *testing.T) {
		t.Setenv("FISCAL_FISCAL_SYNC_TOLERANCE", "two")

		_, err := Load()
		assert.ErrorContains(t, err, "fiscal.sync_tolerance")
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "idle connections above open connections",
			mutate:  func(c *Config) { c.Database.MaxIdleConns = 100 },
			wantErr: "max_idle_conns",
		},
		{
			name:    "run hour out of range",
			mutate:  func(c *Config) { c.Scheduler.RunHour = 24 },
			wantErr: "scheduler.run_hour",
		},
		{
			name:    "unknown location",
			mutate:  func(c *Config) { c.Scheduler.Location = "Mars/Olympus" },
			wantErr: "scheduler.location",
		},
		{
			name:    "unknown person type",
			mutate:  func(c *Config) { c.Fiscal.DefaultPersonType = "X" },
			wantErr: "default_person_type",
		},
		{
			name:    "bucket without credentials",
			mutate:  func(c *Config) { c.Storage.Bucket = "exports" },
			wantErr: "storage.access_key",
		},
		{
			name: "production requires a strong secret",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.JWT.Secret = "short"
			},
			wantErr: "jwt.secret",
		},
		{
			name: "production rejects plain connections",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.JWT.Secret = "0123456789abcdef0123456789abcdef"
				c.Database.Password = "secret"
			},
			wantErr: "sslmode",
		},
		{
			name:    "sampling ratio above one",
			mutate:  func(c *Config) { c.Telemetry.SamplingRatio = 1.5 },
			wantErr: "sampling_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestFromViper_Durations(t *testing.T) {
	v := viper.New()
	v.Set("event.idempotency_ttl", "2h")
	v.Set("http.write_timeout", "45s")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.Event.IdempotencyTTL)
	assert.Equal(t, 45*time.Second, cfg.HTTP.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.Event.HandlerTimeout)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "ledger", Password: "p@ss word", DBName: "fiscal", SSLMode: "require"}
	assert.Equal(t, "postgres://ledger:p%40ss%20word@db:5432/fiscal?sslmode=require", d.DSN())
}
