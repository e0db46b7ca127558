package service

import (
	"context"
	"strings"

	"github.com/tieubaoca/pdfchat/types"
)

// EchoService is a local model that answers with the question itself, one
// word per fragment. It needs no credentials.
type EchoService struct {
	prefix string
}

func NewEchoService(prefix string) *EchoService {
	return &EchoService{prefix: prefix}
}

func (s *EchoService) Name() string {
	return "echo"
}

func (s *EchoService) Stream(ctx context.Context, req types.ModelRequest) (<-chan types.StreamChunk, error) {
	answer := req.Input
	if s.prefix != "" {
		answer = s.prefix + " " + answer
	}
	words := strings.SplitAfter(answer, " ")

	ch := make(chan types.StreamChunk, len(words)+1)
	go func() {
		defer close(ch)
		var sb strings.Builder
		for _, w := range words {
			if w == "" {
				continue
			}
			sb.WriteString(w)
			if !emit(ctx, ch, types.StreamChunk{Delta: w}) {
				return
			}
		}
		emit(ctx, ch, types.StreamChunk{Done: true, FullText: sb.String()})
	}()
	return ch, nil
}
