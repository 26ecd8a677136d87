package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearhealth/trialmatch/internal/domain"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	m, err := NewManager()
	require.NoError(t, err)
	return m
}

func TestManagerDefaults(t *testing.T) {
	m := newTestManager(t)
	cfg := m.GetConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 60*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 50, cfg.Matcher.MaxTrialsPerBatch)
	assert.Equal(t, 20, cfg.Matcher.DefaultLimit)
	assert.Equal(t, 8, cfg.Matcher.MaxCriteria)
	assert.Equal(t, 2000, cfg.Matcher.MaxFreeTextChars)
	assert.Equal(t, "sqlite", cfg.Feedback.Backend)
	assert.Equal(t, "gpt-4o-mini", cfg.Model.Model)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Cache.Enabled)
}

func TestManagerEnvironmentOverride(t *testing.T) {
	t.Setenv("TRIALMATCH_SERVER_PORT", "9090")
	t.Setenv("TRIALMATCH_MATCHER_DEFAULT_LIMIT", "5")
	t.Setenv("TRIALMATCH_MODEL_API_KEY", "test-key")

	m := newTestManager(t)
	cfg := m.GetConfig()

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Matcher.DefaultLimit)
	assert.Equal(t, "test-key", cfg.Model.APIKey)
}

func TestManagerValidate(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Validate())

	tests := []struct {
		name   string
		mutate func(*domain.Config)
	}{
		{"bad port", func(c *domain.Config) { c.Server.Port = -1 }},
		{"missing model url", func(c *domain.Config) { c.Model.BaseURL = "" }},
		{"zero rate limit", func(c *domain.Config) { c.Model.RateLimit = 0 }},
		{"zero batch size", func(c *domain.Config) { c.Matcher.MaxTrialsPerBatch = 0 }},
		{"unknown feedback backend", func(c *domain.Config) { c.Feedback.Backend = "mongo" }},
		{"sqlite without path", func(c *domain.Config) {
			c.Feedback.Backend = "sqlite"
			c.Feedback.SQLitePath = ""
		}},
		{"postgres without host", func(c *domain.Config) {
			c.Feedback.Backend = "postgres"
			c.Database.Host = ""
		}},
		{"bad log level", func(c *domain.Config) { c.Logging.Level = "verbose" }},
		{"cache enabled without url", func(c *domain.Config) {
			c.Cache.Enabled = true
			c.Cache.RedisURL = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t)
			tt.mutate(m.config)
			assert.Error(t, m.Validate())
		})
	}
}

func TestGetDatabaseConnectionString(t *testing.T) {
	m := newTestManager(t)
	m.config.Database = domain.DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		Username: "match",
		Password: "secret",
		Database: "trials",
		SSLMode:  "require",
	}

	dsn := m.GetDatabaseConnectionString()

	assert.Contains(t, dsn, "host=db.internal")
	assert.Contains(t, dsn, "port=5433")
	assert.Contains(t, dsn, "dbname=trials")
	assert.Contains(t, dsn, "sslmode=require")
}
