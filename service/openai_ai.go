package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/tieubaoca/pdfchat/types"
)

type OpenAIService struct {
	client *openai.Client
	model  string
}

func NewOpenAIService(baseURL string, apiKey, model string) *OpenAIService {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL // OpenAI-compatible servers
	}
	return &OpenAIService{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (s *OpenAIService) Name() string {
	return "openai"
}

func toOpenAIMessages(req types.ModelRequest) []openai.ChatCompletionMessage {
	msgs := RenderMessages(req)
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, msg := range msgs {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case types.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case types.RoleAI:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return out
}

func (s *OpenAIService) Stream(ctx context.Context, req types.ModelRequest) (<-chan types.StreamChunk, error) {
	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: toOpenAIMessages(req),
		Stream:   true,
	})
	if err != nil {
		return nil, modelError(s.Name(), err)
	}

	ch := make(chan types.StreamChunk, 16)
	go func() {
		defer close(ch)
		defer stream.Close()

		var sb strings.Builder
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				emit(ctx, ch, types.StreamChunk{Done: true, FullText: sb.String()})
				return
			}
			if err != nil {
				emit(ctx, ch, types.StreamChunk{Done: true, Err: modelError(s.Name(), err)})
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			sb.WriteString(delta)
			if !emit(ctx, ch, types.StreamChunk{Delta: delta}) {
				return
			}
		}
	}()
	return ch, nil
}
