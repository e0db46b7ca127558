package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/tieubaoca/pdfchat/types"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GeminiService struct {
	client *genai.Client
	model  string
}

func NewGeminiService(ctx context.Context, apiKey string, modelName string) (*GeminiService, error) {
	if apiKey == "" {
		return nil, errors.New("no Gemini API key provided")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiService{client: client, model: modelName}, nil
}

func (s *GeminiService) Name() string {
	return "gemini"
}

func (s *GeminiService) Close() error {
	return s.client.Close()
}

func toGeminiHistory(history []types.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := "user"
		if msg.Role == types.RoleAI {
			role = "model"
		}
		out = append(out, &genai.Content{
			Parts: []genai.Part{genai.Text(msg.Content)},
			Role:  role,
		})
	}
	return out
}

func (s *GeminiService) Stream(ctx context.Context, req types.ModelRequest) (<-chan types.StreamChunk, error) {
	model := s.client.GenerativeModel(s.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}

	chat := model.StartChat()
	chat.History = toGeminiHistory(req.History)
	iter := chat.SendMessageStream(ctx, genai.Text(req.Input))

	ch := make(chan types.StreamChunk, 16)
	go func() {
		defer close(ch)

		var sb strings.Builder
		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				emit(ctx, ch, types.StreamChunk{Done: true, FullText: sb.String()})
				return
			}
			if err != nil {
				emit(ctx, ch, types.StreamChunk{Done: true, Err: modelError(s.Name(), err)})
				return
			}
			for _, candidate := range resp.Candidates {
				if candidate.Content == nil {
					continue
				}
				for _, part := range candidate.Content.Parts {
					text, ok := part.(genai.Text)
					if !ok || text == "" {
						continue
					}
					sb.WriteString(string(text))
					if !emit(ctx, ch, types.StreamChunk{Delta: string(text)}) {
						return
					}
				}
			}
		}
	}()
	return ch, nil
}
