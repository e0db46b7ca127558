package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tieubaoca/pdfchat/config"
	"github.com/tieubaoca/pdfchat/types"
)

// ChatModel is a hosted (or local) chat-completion model. Stream returns a
// finite channel of fragments that is closed after a final chunk with Done
// set. If ctx ends first the channel is closed without a Done chunk.
type ChatModel interface {
	Name() string
	Stream(ctx context.Context, req types.ModelRequest) (<-chan types.StreamChunk, error)
}

// DefaultModels is used when llm.model is empty.
var DefaultModels = map[string]string{
	"openai":    "gpt-4o",
	"gemini":    "gemini-1.5-flash",
	"anthropic": "claude-3-5-haiku-latest",
	"ollama":    "llama3.2",
}

// NewChatModel builds the provider selected in the configuration.
func NewChatModel(ctx context.Context, cfg config.LLMConfig) (ChatModel, error) {
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModels[cfg.Provider]
	}
	switch cfg.Provider {
	case "openai":
		return NewOpenAIService(cfg.BaseURL, cfg.OpenAIAPIKey, cfg.Model), nil
	case "gemini":
		return NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.Model)
	case "anthropic":
		return NewAnthropicService(cfg.AnthropicAPIKey, cfg.Model, cfg.MaxTokens), nil
	case "ollama":
		return NewOllamaService(cfg.OllamaHost, cfg.Model)
	case "echo":
		return NewEchoService(""), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// emit delivers a chunk unless the consumer's context is gone.
func emit(ctx context.Context, ch chan<- types.StreamChunk, chunk types.StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

func modelError(provider string, err error) error {
	return fmt.Errorf("%w: %s: %v", types.ErrModel, provider, err)
}

// CollectStream drains a fragment channel, calling handler for every delta,
// and returns the full text.
func CollectStream(ctx context.Context, ch <-chan types.StreamChunk, handler types.StreamHandler) (string, error) {
	var sb strings.Builder
	for chunk := range ch {
		if chunk.Err != nil {
			return "", chunk.Err
		}
		if chunk.Delta != "" {
			sb.WriteString(chunk.Delta)
			if handler != nil {
				handler(chunk.Delta)
			}
		}
		if chunk.Done {
			return sb.String(), nil
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("%w: stream ended without completion", types.ErrModel)
}
