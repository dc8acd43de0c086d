package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"tcp://localhost:1883"}, cfg.Broker.URLs)
	assert.Equal(t, []string{"workorders", "inventory"}, cfg.Broker.SubscribeTopics)
	assert.True(t, cfg.Relay.Enabled)
	assert.Equal(t, 1000, cfg.Relay.QueueLimit)
	assert.Equal(t, time.Second, cfg.Relay.BaseBackoff)
	assert.Equal(t, 5*time.Minute, cfg.Relay.ChunkTTL)
	assert.False(t, cfg.Database.DeadLetterSinkEnabled())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("RELAY_BROKERS", "tcp://a:1883, tcp://b:1883")
	t.Setenv("RELAY_QUEUE_LIMIT", "50")
	t.Setenv("RELAY_BASE_BACKOFF_MS", "250")
	t.Setenv("RELAY_MAX_BACKOFF_MS", "4000")
	t.Setenv("RELAY_JITTER_RATIO", "0.5")
	t.Setenv("RELAY_CHUNK_SIZE", "50000")
	t.Setenv("RELAY_MAX_MESSAGE_BYTES", "1000000")
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_NAME", "/tmp/relay.db")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, []string{"tcp://a:1883", "tcp://b:1883"}, cfg.Broker.URLs)
	assert.Equal(t, 50, cfg.Relay.QueueLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.Relay.BaseBackoff)
	assert.Equal(t, 4*time.Second, cfg.Relay.MaxBackoff)
	assert.Equal(t, 0.5, cfg.Relay.JitterRatio)
	assert.Equal(t, 50000, cfg.Relay.ChunkSize)
	assert.Equal(t, int64(1000000), cfg.Relay.MaxMessageSize)
	assert.True(t, cfg.Database.DeadLetterSinkEnabled())
	assert.Equal(t, "/tmp/relay.db", cfg.Database.GetDSN())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestFromEnv_EmptyBrokersDisablesRelay(t *testing.T) {
	t.Setenv("RELAY_BROKERS", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Empty(t, cfg.Broker.URLs)
	assert.False(t, cfg.Relay.Enabled)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "SERVER_PORT", "70000"},
		{"unknown driver", "DB_DRIVER", "oracle"},
		{"unknown log level", "LOG_LEVEL", "loud"},
		{"jitter above one", "RELAY_JITTER_RATIO", "2"},
		{"max below base", "RELAY_MAX_BACKOFF_MS", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestGetDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "mysql",
			cfg:  DatabaseConfig{Driver: "mysql", User: "u", Password: "p", Host: "db", Port: 3306, Database: "workpro"},
			want: "u:p@tcp(db:3306)/workpro?parseTime=true",
		},
		{
			name: "postgres",
			cfg:  DatabaseConfig{Driver: "postgres", User: "u", Password: "p", Host: "db", Port: 5432, Database: "workpro"},
			want: "host=db port=5432 user=u password=p dbname=workpro sslmode=disable",
		},
		{
			name: "explicit dsn wins",
			cfg:  DatabaseConfig{Driver: "mysql", DSN: "custom"},
			want: "custom",
		},
		{
			name: "unknown driver",
			cfg:  DatabaseConfig{Driver: "oracle"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.GetDSN())
		})
	}
}
