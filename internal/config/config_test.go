package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, 3*time.Minute, cfg.Pipeline.StageTimeout)
	assert.Equal(t, uint(2), cfg.Pipeline.StageRetries)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 5, cfg.Knowledge.TopK)
	assert.Equal(t, 1000, cfg.Knowledge.ChunkSize)
	assert.Equal(t, 200, cfg.Knowledge.ChunkOverlap)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PGHOST", "db.internal")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("PIPELINE_STAGE_TIMEOUT", "45s")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 45*time.Second, cfg.Pipeline.StageTimeout)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "xoxb-test", cfg.Slack.BotToken)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{name: "unknown backend", env: "STORE_BACKEND", val: "sqlite"},
		{name: "unknown provider", env: "LLM_PROVIDER", val: "llama"},
		{name: "overlap not below chunk size", env: "KNOWLEDGE_CHUNK_OVERLAP", val: "1000"},
		{name: "zero stage timeout", env: "PIPELINE_STAGE_TIMEOUT", val: "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
