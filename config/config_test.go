package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Empty(t, cfg.LLM.Model)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.False(t, cfg.Chat.ResetHistoryOnProcess)
	assert.Equal(t, int64(32<<20), cfg.MaxUploadBytes)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`port: "9090"
llm:
  provider: echo
  model: test-model
session:
  ttl: 5m
chat:
  reset_history_on_process: true
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PDFCHAT_PORT", "7070")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "echo", cfg.LLM.Provider)
	assert.Equal(t, "test-model", cfg.LLM.Model)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAIAPIKey)
	assert.Equal(t, 5*time.Minute, cfg.Session.TTL)
	assert.True(t, cfg.Chat.ResetHistoryOnProcess)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "nope" }, wantErr: true},
		{name: "unknown store", mutate: func(c *Config) { c.Session.Store = "disk" }, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.Session.TTL = 0 }, wantErr: true},
		{name: "zero upload limit", mutate: func(c *Config) { c.MaxUploadBytes = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				MaxUploadBytes: 1,
				LLM:            LLMConfig{Provider: "openai"},
				Session:        SessionConfig{Store: "memory", TTL: time.Minute},
			}
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
