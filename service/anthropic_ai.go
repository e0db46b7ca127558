package service

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tieubaoca/pdfchat/types"
)

const defaultAnthropicMaxTokens = 1024

type AnthropicService struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropicService(apiKey, model string, maxTokens int) *AnthropicService {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return &AnthropicService{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

func (s *AnthropicService) Name() string {
	return "anthropic"
}

func toAnthropicMessages(req types.ModelRequest) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, msg := range req.History {
		if msg.Role == types.RoleAI {
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
			continue
		}
		out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
	}
	return append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Input)))
}

func (s *AnthropicService) Stream(ctx context.Context, req types.ModelRequest) (<-chan types.StreamChunk, error) {
	stream := s.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: s.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: req.System}},
		Messages:  toAnthropicMessages(req),
	})

	ch := make(chan types.StreamChunk, 16)
	go func() {
		defer close(ch)
		defer stream.Close()

		var sb strings.Builder
		for stream.Next() {
			event := stream.Current()
			blockDelta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			textDelta, ok := blockDelta.Delta.AsAny().(anthropic.TextDelta)
			if !ok || textDelta.Text == "" {
				continue
			}
			sb.WriteString(textDelta.Text)
			if !emit(ctx, ch, types.StreamChunk{Delta: textDelta.Text}) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			emit(ctx, ch, types.StreamChunk{Done: true, Err: modelError(s.Name(), err)})
			return
		}
		emit(ctx, ch, types.StreamChunk{Done: true, FullText: sb.String()})
	}()
	return ch, nil
}
