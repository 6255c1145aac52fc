package config

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("POSTGRES_USER", "orders")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "orders")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("STRIPE_API_KEY", "sk_test_1")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_1")
}

func TestFromEnv_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "8087", cfg.Port)
	assert.Equal(t, "5432", cfg.PostgresPort)
	assert.Equal(t, EventsBackendNone, cfg.EventsBackend)
	assert.Equal(t, 10*time.Minute, cfg.OrderCacheTTL)
	assert.Equal(t, 30*time.Second, cfg.IngestTimeout)
	assert.False(t, cfg.NeedsAWS())
	assert.Contains(t, cfg.PostgresDSN(), "host=db user=orders password=secret dbname=orders port=5432")
}

func TestFromEnv_ParsesListsAndDurations(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("EVENTS_BACKEND", "Kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("INGEST_TIMEOUT", "5s")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, EventsBackendKafka, cfg.EventsBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Second, cfg.IngestTimeout)
	assert.NoError(t, cfg.Validate())

	t.Setenv("INGEST_TIMEOUT", "soon")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing db user", func(c *Config) { c.PostgresUser = "" }},
		{"missing stripe key", func(c *Config) { c.StripeAPIKey = "" }},
		{"missing webhook secret", func(c *Config) { c.StripeWebhookSecret = "" }},
		{"kafka without brokers", func(c *Config) { c.EventsBackend = EventsBackendKafka }},
		{"sns without topic", func(c *Config) { c.EventsBackend = EventsBackendSNS }},
		{"unknown backend", func(c *Config) { c.EventsBackend = "carrier-pigeon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			cfg, err := FromEnv()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

type fakeSecrets struct {
	payload string
	err     error
	name    string
}

func (f *fakeSecrets) GetSecretJSON(ctx context.Context, name string, v any) error {
	f.name = name
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.payload), v)
}

func TestApplySecrets(t *testing.T) {
	setBaseEnv(t)
	cfg, err := FromEnv()
	require.NoError(t, err)

	sm := &fakeSecrets{payload: `{"POSTGRES_PASSWORD":"rotated","POSTGRES_HOST":"rds.internal","POSTGRES_USER":""}`}
	require.NoError(t, cfg.ApplySecrets(context.Background(), sm))

	assert.Equal(t, dbCredentialsSecret, sm.name)
	assert.Equal(t, "rotated", cfg.PostgresPassword)
	assert.Equal(t, "rds.internal", cfg.PostgresHost)
	assert.Equal(t, "orders", cfg.PostgresUser, "empty secret values keep the env value")

	err = cfg.ApplySecrets(context.Background(), &fakeSecrets{err: errors.New("access denied")})
	assert.Error(t, err)
}
