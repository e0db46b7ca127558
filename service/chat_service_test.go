package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/pdfchat/database"
	"github.com/tieubaoca/pdfchat/types"
	"go.uber.org/zap"
)

// fakeModel streams fixed fragments and records every request.
type fakeModel struct {
	mu        sync.Mutex
	requests  []types.ModelRequest
	fragments []string
	streamErr error // sent after the fragments instead of completion
	openErr   error
	gate      chan struct{} // when set, streaming waits for it to close
}

func (m *fakeModel) Name() string {
	return "fake"
}

func (m *fakeModel) Stream(ctx context.Context, req types.ModelRequest) (<-chan types.StreamChunk, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.openErr != nil {
		return nil, m.openErr
	}

	ch := make(chan types.StreamChunk)
	go func() {
		defer close(ch)
		if m.gate != nil {
			select {
			case <-m.gate:
			case <-ctx.Done():
				return
			}
		}
		var sb strings.Builder
		for _, f := range m.fragments {
			sb.WriteString(f)
			if !emit(ctx, ch, types.StreamChunk{Delta: f}) {
				return
			}
		}
		if m.streamErr != nil {
			emit(ctx, ch, types.StreamChunk{Done: true, Err: m.streamErr})
			return
		}
		emit(ctx, ch, types.StreamChunk{Done: true, FullText: sb.String()})
	}()
	return ch, nil
}

func (m *fakeModel) lastRequest(t *testing.T) types.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.requests)
	return m.requests[len(m.requests)-1]
}

func newTestChatService(t *testing.T, model ChatModel, config ChatServiceConfig) *ChatService {
	t.Helper()
	pdf := NewPDFService(types.DocumentServiceConfig{}, zap.NewNop())
	pdf.readPages = pagesByFormFeed
	store := database.NewMemoryStore(time.Hour)
	t.Cleanup(func() { store.Close() })
	return NewChatService(store, pdf, NewFileService("", zap.NewNop()), model, config, zap.NewNop())
}

func readySession(t *testing.T, s *ChatService, corpus string) string {
	t.Helper()
	ctx := context.Background()
	session, err := s.CreateSession(ctx)
	require.NoError(t, err)
	_, err = s.ProcessDocuments(ctx, session.ID, []types.UploadedFile{{Name: "doc.pdf", Data: []byte(corpus)}}, types.ProcessOptions{})
	require.NoError(t, err)
	return session.ID
}

// drain collects a turn and returns the deltas and the final chunk.
func drain(turn *Turn) ([]string, types.StreamChunk) {
	var deltas []string
	var last types.StreamChunk
	for chunk := range turn.Fragments() {
		if chunk.Delta != "" {
			deltas = append(deltas, chunk.Delta)
		}
		if chunk.Done {
			last = chunk
		}
	}
	return deltas, last
}

func TestCreateSessionStartsIdle(t *testing.T) {
	s := newTestChatService(t, &fakeModel{}, ChatServiceConfig{})
	ctx := context.Background()

	session, err := s.CreateSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.SessionStateIdle, session.State)
	assert.Len(t, session.ID, 36)

	got, err := s.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, got.History)
	assert.Nil(t, got.Template)
}

func TestProcessDocumentsMakesSessionReady(t *testing.T) {
	s := newTestChatService(t, &fakeModel{}, ChatServiceConfig{})
	ctx := context.Background()
	session, err := s.CreateSession(ctx)
	require.NoError(t, err)

	got, err := s.ProcessDocuments(ctx, session.ID, []types.UploadedFile{
		{Name: "a.pdf", Data: []byte("Hello {world}")},
		{Name: "b.pdf", Data: []byte("second")},
	}, types.ProcessOptions{})
	require.NoError(t, err)

	assert.True(t, got.Ready())
	assert.Contains(t, got.Template.System, "Hello {{world}}\nsecond")
	require.Len(t, got.Documents, 2)
	assert.Equal(t, "b.pdf", got.Documents[1].Name)

	_, err = Format(got.Template.System, nil)
	assert.NoError(t, err)
}

func TestProcessDocumentsFailureLeavesSessionUnchanged(t *testing.T) {
	s := newTestChatService(t, &fakeModel{}, ChatServiceConfig{})
	ctx := context.Background()
	session, err := s.CreateSession(ctx)
	require.NoError(t, err)

	_, err = s.ProcessDocuments(ctx, session.ID, []types.UploadedFile{{Name: "a.txt", Data: []byte("x")}}, types.ProcessOptions{})
	assert.ErrorIs(t, err, types.ErrUnsupportedFile)

	got, err := s.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SessionStateIdle, got.State)

	_, err = s.ProcessDocuments(ctx, "missing", []types.UploadedFile{{Name: "a.pdf", Data: []byte("x")}}, types.ProcessOptions{})
	assert.ErrorIs(t, err, types.ErrSessionNotFound)
}

func TestSendMessageAppendsHumanThenAI(t *testing.T) {
	model := &fakeModel{fragments: []string{"The answer", " is ", "42."}}
	s := newTestChatService(t, model, ChatServiceConfig{})
	id := readySession(t, s, "The answer is 42.")
	ctx := context.Background()

	turn, err := s.SendMessage(ctx, id, "What is the {answer}?")
	require.NoError(t, err)
	deltas, last := drain(turn)

	assert.Equal(t, []string{"The answer", " is ", "42."}, deltas)
	require.NoError(t, last.Err)
	assert.Equal(t, "The answer is 42.", last.FullText)

	req := model.lastRequest(t)
	assert.Empty(t, req.History)
	assert.Equal(t, "What is the {answer}?", req.Input)
	assert.Contains(t, req.System, "The answer is 42.")

	history, err := s.History(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []types.Message{
		types.HumanMessage("What is the {answer}?"),
		types.AIMessage("The answer is 42."),
	}, history)
}

func TestEveryMessageAddsTwoTurns(t *testing.T) {
	model := &fakeModel{fragments: []string{"ok"}}
	s := newTestChatService(t, model, ChatServiceConfig{})
	id := readySession(t, s, "doc")
	ctx := context.Background()

	const n = 4
	for i := 0; i < n; i++ {
		answer, err := s.Chat(ctx, id, fmt.Sprintf("question %d", i), nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", answer)
		assert.Len(t, model.lastRequest(t).History, 2*i)
	}

	history, err := s.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2*n)
	for i := 0; i < n; i++ {
		assert.Equal(t, types.HumanMessage(fmt.Sprintf("question %d", i)), history[2*i])
		assert.Equal(t, types.AIMessage("ok"), history[2*i+1])
	}
}

func TestSendMessageRejections(t *testing.T) {
	s := newTestChatService(t, &fakeModel{fragments: []string{"x"}}, ChatServiceConfig{})
	ctx := context.Background()

	idle, err := s.CreateSession(ctx)
	require.NoError(t, err)
	_, err = s.SendMessage(ctx, idle.ID, "hello")
	assert.ErrorIs(t, err, types.ErrNotReady)

	_, err = s.SendMessage(ctx, "missing", "hello")
	assert.ErrorIs(t, err, types.ErrSessionNotFound)

	id := readySession(t, s, "doc")
	_, err = s.SendMessage(ctx, id, "   ")
	assert.ErrorIs(t, err, types.ErrEmptyMessage)

	// rejected calls must not leave the session locked
	answer, err := s.Chat(ctx, id, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "x", answer)
}

func TestModelErrorAppendsNothing(t *testing.T) {
	ctx := context.Background()

	t.Run("mid stream", func(t *testing.T) {
		model := &fakeModel{fragments: []string{"partial"}, streamErr: fmt.Errorf("%w: boom", types.ErrModel)}
		s := newTestChatService(t, model, ChatServiceConfig{})
		id := readySession(t, s, "doc")

		turn, err := s.SendMessage(ctx, id, "q")
		require.NoError(t, err)
		deltas, last := drain(turn)
		assert.Equal(t, []string{"partial"}, deltas)
		assert.ErrorIs(t, last.Err, types.ErrModel)

		history, err := s.History(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("on open", func(t *testing.T) {
		model := &fakeModel{openErr: fmt.Errorf("%w: unauthorized", types.ErrModel)}
		s := newTestChatService(t, model, ChatServiceConfig{})
		id := readySession(t, s, "doc")

		_, err := s.SendMessage(ctx, id, "q")
		assert.ErrorIs(t, err, types.ErrModel)

		history, err := s.History(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, history)

		// the lock was released
		model.openErr = nil
		model.fragments = []string{"fine"}
		_, err = s.Chat(ctx, id, "q", nil)
		assert.NoError(t, err)
	})
}

func TestConcurrentTurnIsRejected(t *testing.T) {
	model := &fakeModel{fragments: []string{"done"}, gate: make(chan struct{})}
	s := newTestChatService(t, model, ChatServiceConfig{})
	id := readySession(t, s, "doc")
	other := readySession(t, s, "other doc")
	ctx := context.Background()

	first, err := s.SendMessage(ctx, id, "first")
	require.NoError(t, err)

	_, err = s.SendMessage(ctx, id, "second")
	assert.ErrorIs(t, err, types.ErrSessionBusy)
	_, err = s.ProcessDocuments(ctx, id, []types.UploadedFile{{Name: "a.pdf", Data: []byte("x")}}, types.ProcessOptions{})
	assert.ErrorIs(t, err, types.ErrSessionBusy)

	// other sessions are independent
	otherTurn, err := s.SendMessage(ctx, other, "hello")
	require.NoError(t, err)

	close(model.gate)
	_, last := drain(first)
	assert.Equal(t, "done", last.FullText)
	_, last = drain(otherTurn)
	assert.Equal(t, "done", last.FullText)

	history, err := s.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestCancelledTurnAppendsNothing(t *testing.T) {
	model := &fakeModel{fragments: []string{"late"}, gate: make(chan struct{})}
	s := newTestChatService(t, model, ChatServiceConfig{})
	id := readySession(t, s, "doc")

	ctx, cancel := context.WithCancel(context.Background())
	turn, err := s.SendMessage(ctx, id, "q")
	require.NoError(t, err)
	cancel()
	_, last := drain(turn)
	assert.Empty(t, last.FullText)

	history, err := s.History(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, history)

	close(model.gate)
	_, err = s.Chat(context.Background(), id, "again", nil)
	assert.NoError(t, err)
}

func TestRequestTimeoutEndsTurn(t *testing.T) {
	model := &fakeModel{fragments: []string{"never"}, gate: make(chan struct{})}
	defer close(model.gate)
	s := newTestChatService(t, model, ChatServiceConfig{RequestTimeout: 20 * time.Millisecond})
	id := readySession(t, s, "doc")

	_, err := s.Chat(context.Background(), id, "q", nil)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)

	history, err := s.History(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestReprocessHistory(t *testing.T) {
	ctx := context.Background()
	files := []types.UploadedFile{{Name: "new.pdf", Data: []byte("new corpus")}}

	tests := []struct {
		name        string
		config      ChatServiceConfig
		opts        types.ProcessOptions
		wantHistory int
	}{
		{name: "kept by default", wantHistory: 2},
		{name: "reset on request", opts: types.ProcessOptions{ResetHistory: true}, wantHistory: 0},
		{name: "reset by config", config: ChatServiceConfig{ResetHistoryOnProcess: true}, wantHistory: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &fakeModel{fragments: []string{"a"}}
			s := newTestChatService(t, model, tt.config)
			id := readySession(t, s, "old corpus")
			_, err := s.Chat(ctx, id, "q", nil)
			require.NoError(t, err)

			session, err := s.ProcessDocuments(ctx, id, files, tt.opts)
			require.NoError(t, err)
			assert.Len(t, session.History, tt.wantHistory)
			assert.Contains(t, session.Template.System, "new corpus")
			assert.NotContains(t, session.Template.System, "old corpus")

			_, err = s.Chat(ctx, id, "q2", nil)
			require.NoError(t, err)
			assert.Len(t, model.lastRequest(t).History, tt.wantHistory)
			assert.Contains(t, model.lastRequest(t).System, "new corpus")
		})
	}
}

func TestResetAndDeleteSession(t *testing.T) {
	s := newTestChatService(t, &fakeModel{fragments: []string{"a"}}, ChatServiceConfig{})
	id := readySession(t, s, "doc")
	ctx := context.Background()

	_, err := s.Chat(ctx, id, "q", nil)
	require.NoError(t, err)

	require.NoError(t, s.ResetHistory(ctx, id))
	session, err := s.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, session.History)
	assert.True(t, session.Ready())

	require.NoError(t, s.DeleteSession(ctx, id))
	_, err = s.GetSession(ctx, id)
	assert.ErrorIs(t, err, types.ErrSessionNotFound)
	assert.ErrorIs(t, s.DeleteSession(ctx, id), types.ErrSessionNotFound)
}

func TestEchoServiceStreamsInput(t *testing.T) {
	ch, err := NewEchoService("").Stream(context.Background(), types.ModelRequest{Input: "what is this"})
	require.NoError(t, err)

	var deltas []string
	text, err := CollectStream(context.Background(), ch, func(d string) { deltas = append(deltas, d) })
	require.NoError(t, err)
	assert.Equal(t, "what is this", text)
	assert.Equal(t, []string{"what ", "is ", "this"}, deltas)
}

func TestCollectStreamWithoutCompletion(t *testing.T) {
	ch := make(chan types.StreamChunk, 1)
	ch <- types.StreamChunk{Delta: "half"}
	close(ch)

	_, err := CollectStream(context.Background(), ch, nil)
	assert.ErrorIs(t, err, types.ErrModel)
}
