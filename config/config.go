package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string        `mapstructure:"port"`
	UploadDir      string        `mapstructure:"upload_dir"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	LLM            LLMConfig     `mapstructure:"llm"`
	PDF            PDFConfig     `mapstructure:"pdf"`
	Session        SessionConfig `mapstructure:"session"`
	Chat           ChatConfig    `mapstructure:"chat"`
	Auth           AuthConfig    `mapstructure:"auth"`
	Log            LogConfig     `mapstructure:"log"`
	Tracing        TracingConfig `mapstructure:"tracing"`
}

type LLMConfig struct {
	Provider        string        `mapstructure:"provider"`
	Model           string        `mapstructure:"model"`
	BaseURL         string        `mapstructure:"base_url"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	GeminiAPIKey    string        `mapstructure:"gemini_api_key"`
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
	OllamaHost      string        `mapstructure:"ollama_host"`
}

type PDFConfig struct {
	PdftotextFallback bool `mapstructure:"pdftotext_fallback"`
}

type SessionConfig struct {
	Store    string        `mapstructure:"store"`
	TTL      time.Duration `mapstructure:"ttl"`
	RedisURL string        `mapstructure:"redis_url"`
}

type ChatConfig struct {
	ResetHistoryOnProcess bool   `mapstructure:"reset_history_on_process"`
	Instructions          string `mapstructure:"instructions"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	Production bool   `mapstructure:"production"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

const DefaultConfigPath = "config/config.yaml"

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("upload_dir", "")
	v.SetDefault("max_upload_bytes", 32<<20)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.request_timeout", "0s")
	v.SetDefault("llm.openai_api_key", "")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.anthropic_api_key", "")
	v.SetDefault("llm.ollama_host", "http://localhost:11434")

	v.SetDefault("pdf.pdftotext_fallback", false)

	v.SetDefault("session.store", "memory")
	v.SetDefault("session.ttl", "1h")
	v.SetDefault("session.redis_url", "redis://localhost:6379/0")

	v.SetDefault("chat.reset_history_on_process", false)
	v.SetDefault("chat.instructions", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.production", false)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "pdfchat")
}

// LoadConfig reads the yaml file at configPath (a missing file is not an
// error), then applies PDFCHAT_* environment overrides and the provider API
// keys under their usual names.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PDFCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("llm.openai_api_key", "PDFCHAT_LLM_OPENAI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("llm.gemini_api_key", "PDFCHAT_LLM_GEMINI_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("llm.anthropic_api_key", "PDFCHAT_LLM_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	v.BindEnv("llm.ollama_host", "PDFCHAT_LLM_OLLAMA_HOST", "OLLAMA_HOST")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "gemini", "anthropic", "ollama", "echo":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	switch c.Session.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}
	if c.Session.TTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}
	return nil
}
