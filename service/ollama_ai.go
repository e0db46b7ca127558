package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	ollama "github.com/ollama/ollama/api"
	"github.com/tieubaoca/pdfchat/types"
)

type OllamaService struct {
	client *ollama.Client
	model  string
}

// NewOllamaService talks to a local Ollama server. No client timeout is set;
// the request context bounds each turn.
func NewOllamaService(host, model string) (*OllamaService, error) {
	if host == "" {
		host = "http://localhost:11434"
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	return &OllamaService{
		client: ollama.NewClient(base, &http.Client{}),
		model:  model,
	}, nil
}

func (s *OllamaService) Name() string {
	return "ollama"
}

func toOllamaMessages(req types.ModelRequest) []ollama.Message {
	msgs := RenderMessages(req)
	out := make([]ollama.Message, 0, len(msgs))
	for _, msg := range msgs {
		role := "user"
		switch msg.Role {
		case types.RoleSystem:
			role = "system"
		case types.RoleAI:
			role = "assistant"
		}
		out = append(out, ollama.Message{Role: role, Content: msg.Content})
	}
	return out
}

func (s *OllamaService) Stream(ctx context.Context, req types.ModelRequest) (<-chan types.StreamChunk, error) {
	stream := true
	chatReq := &ollama.ChatRequest{
		Model:    s.model,
		Messages: toOllamaMessages(req),
		Stream:   &stream,
	}

	ch := make(chan types.StreamChunk, 16)
	go func() {
		defer close(ch)

		var sb strings.Builder
		err := s.client.Chat(ctx, chatReq, func(resp ollama.ChatResponse) error {
			if resp.Message.Content == "" {
				return nil
			}
			sb.WriteString(resp.Message.Content)
			if !emit(ctx, ch, types.StreamChunk{Delta: resp.Message.Content}) {
				return ctx.Err()
			}
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			emit(ctx, ch, types.StreamChunk{Done: true, Err: modelError(s.Name(), err)})
			return
		}
		emit(ctx, ch, types.StreamChunk{Done: true, FullText: sb.String()})
	}()
	return ch, nil
}
