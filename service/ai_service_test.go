package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/pdfchat/config"
	"github.com/tieubaoca/pdfchat/types"
)

func TestNewChatModel(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		provider string
		want     string
	}{
		{provider: "", want: "openai"},
		{provider: "openai", want: "openai"},
		{provider: "anthropic", want: "anthropic"},
		{provider: "ollama", want: "ollama"},
		{provider: "echo", want: "echo"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			model, err := NewChatModel(ctx, config.LLMConfig{Provider: tt.provider, OllamaHost: "http://localhost:11434"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, model.Name())
		})
	}

	_, err := NewChatModel(ctx, config.LLMConfig{Provider: "gemini"})
	assert.Error(t, err, "gemini requires an API key")

	_, err = NewChatModel(ctx, config.LLMConfig{Provider: "nope"})
	assert.Error(t, err)
}

func TestProviderDefaultModel(t *testing.T) {
	model, err := NewChatModel(context.Background(), config.LLMConfig{Provider: "openai"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", model.(*OpenAIService).model)

	model, err = NewChatModel(context.Background(), config.LLMConfig{Provider: "openai", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", model.(*OpenAIService).model)
}

func TestProviderMessageRoles(t *testing.T) {
	req := types.ModelRequest{
		System:  "sys",
		History: []types.Message{types.HumanMessage("q1"), types.AIMessage("a1")},
		Input:   "q2",
	}

	openaiMsgs := toOpenAIMessages(req)
	require.Len(t, openaiMsgs, 4)
	assert.Equal(t, []string{"system", "user", "assistant", "user"},
		[]string{openaiMsgs[0].Role, openaiMsgs[1].Role, openaiMsgs[2].Role, openaiMsgs[3].Role})
	assert.Equal(t, "q2", openaiMsgs[3].Content)

	ollamaMsgs := toOllamaMessages(req)
	require.Len(t, ollamaMsgs, 4)
	assert.Equal(t, "assistant", ollamaMsgs[2].Role)

	geminiHistory := toGeminiHistory(req.History)
	require.Len(t, geminiHistory, 2)
	assert.Equal(t, "user", geminiHistory[0].Role)
	assert.Equal(t, "model", geminiHistory[1].Role)

	anthropicMsgs := toAnthropicMessages(req)
	require.Len(t, anthropicMsgs, 3)
	assert.Equal(t, "assistant", string(anthropicMsgs[1].Role))
	assert.Equal(t, "user", string(anthropicMsgs[2].Role))
}
