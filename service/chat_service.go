package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tieubaoca/pdfchat/database"
	"github.com/tieubaoca/pdfchat/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ChatServiceConfig struct {
	// Instructions replaces the default system instructions. It must contain
	// the {document} marker.
	Instructions string
	// ResetHistoryOnProcess clears the history whenever documents are processed again.
	ResetHistoryOnProcess bool
	// RequestTimeout bounds one model turn. Zero means no limit.
	RequestTimeout time.Duration
}

// ChatService runs the conversation loop of every session: document
// processing, turn streaming and history bookkeeping.
type ChatService struct {
	store  database.SessionStore
	pdf    *PDFService
	files  *FileService
	model  ChatModel
	config ChatServiceConfig
	logger *zap.Logger
	tracer trace.Tracer

	mu   sync.Mutex
	busy map[string]struct{}
}

func NewChatService(
	store database.SessionStore,
	pdf *PDFService,
	files *FileService,
	model ChatModel,
	config ChatServiceConfig,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		store:  store,
		pdf:    pdf,
		files:  files,
		model:  model,
		config: config,
		logger: logger,
		tracer: otel.Tracer("github.com/tieubaoca/pdfchat/service"),
		busy:   make(map[string]struct{}),
	}
}

// Turn is one streaming answer. Fragments can be read once.
type Turn struct {
	SessionID string
	Input     string
	fragments <-chan types.StreamChunk
}

// Fragments yields the answer deltas, then a final chunk with Done set that
// carries FullText or Err. The channel is closed afterwards.
func (t *Turn) Fragments() <-chan types.StreamChunk {
	return t.fragments
}

// acquire marks a session as busy. The returned func releases it and is safe
// to call more than once.
func (s *ChatService) acquire(id string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.busy[id]; ok {
		return nil, types.ErrSessionBusy
	}
	s.busy[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.busy, id)
			s.mu.Unlock()
		})
	}, nil
}

func (s *ChatService) CreateSession(ctx context.Context) (*types.Session, error) {
	session := types.NewSession(uuid.New().String())
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Info("session created", zap.String("session_id", session.ID))
	return session, nil
}

func (s *ChatService) GetSession(ctx context.Context, id string) (*types.Session, error) {
	return s.store.Get(ctx, id)
}

// ProcessDocuments extracts the uploaded PDFs into one corpus and compiles
// the session prompt from it. On failure the session is left unchanged.
func (s *ChatService) ProcessDocuments(ctx context.Context, id string, files []types.UploadedFile, opts types.ProcessOptions) (*types.Session, error) {
	release, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := s.tracer.Start(ctx, "ChatService.ProcessDocuments", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.Int("files", len(files)),
	))
	defer span.End()

	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := s.pdf.ExtractText(ctx, files, opts.Progress)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		return nil, err
	}

	tpl, err := NewPromptTemplate(result.Corpus, s.config.Instructions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "template failed")
		return nil, err
	}

	if s.files != nil && s.files.Enabled() {
		stored, err := s.files.SaveUploads(id, files)
		if err != nil {
			s.logger.Warn("failed to retain uploads", zap.String("session_id", id), zap.Error(err))
		}
		for i, name := range stored {
			result.Documents[i].StoredAs = name
		}
	}

	session.Template = tpl
	session.State = types.SessionStateReady
	session.Documents = result.Documents
	if opts.ResetHistory || s.config.ResetHistoryOnProcess {
		session.History = []types.Message{}
	}
	session.UpdatedAt = time.Now().Unix()

	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	documentsProcessed.Add(float64(len(files)))

	s.logger.Info("documents processed",
		zap.String("session_id", id),
		zap.Int("files", len(files)),
		zap.Int("corpus_chars", len(result.Corpus)),
		zap.Int("history_turns", len(session.History)))
	return session, nil
}

// SendMessage starts one turn. The human and AI turns are appended to the
// history only once the model stream has ended successfully; a failed or
// cancelled turn leaves the history as it was.
func (s *ChatService) SendMessage(ctx context.Context, id, input string) (*Turn, error) {
	if strings.TrimSpace(input) == "" {
		return nil, types.ErrEmptyMessage
	}

	release, err := s.acquire(id)
	if err != nil {
		return nil, err
	}

	session, err := s.store.Get(ctx, id)
	if err != nil {
		release()
		return nil, err
	}
	if !session.Ready() {
		release()
		return nil, types.ErrNotReady
	}

	req, err := BuildModelRequest(session.Template, session.Snapshot(), input)
	if err != nil {
		release()
		return nil, err
	}

	var (
		streamCtx context.Context
		cancel    context.CancelFunc
	)
	if s.config.RequestTimeout > 0 {
		streamCtx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
	} else {
		streamCtx, cancel = context.WithCancel(ctx)
	}
	streamCtx, span := s.tracer.Start(streamCtx, "ChatService.SendMessage", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.String("llm.provider", s.model.Name()),
		attribute.Int("history.turns", len(req.History)),
	))

	provider := s.model.Name()
	start := time.Now()
	src, err := s.model.Stream(streamCtx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stream failed")
		span.End()
		cancel()
		release()
		chatTurns.WithLabelValues(provider, "error").Inc()
		s.logger.Error("model stream failed", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}

	out := make(chan types.StreamChunk)
	go func() {
		defer close(out)
		defer span.End()
		defer cancel()
		defer release()

		fail := func(err error, result string) {
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
			chatTurns.WithLabelValues(provider, result).Inc()
			release()
			emit(ctx, out, types.StreamChunk{Done: true, Err: err})
		}

		var sb strings.Builder
		for chunk := range src {
			if chunk.Err != nil {
				s.logger.Error("model stream failed", zap.String("session_id", id), zap.Error(chunk.Err))
				fail(chunk.Err, "error")
				return
			}
			if chunk.Delta != "" {
				sb.WriteString(chunk.Delta)
				streamFragments.WithLabelValues(provider).Inc()
				if !emit(ctx, out, types.StreamChunk{Delta: chunk.Delta}) {
					chatTurns.WithLabelValues(provider, "cancelled").Inc()
					return
				}
			}
			if !chunk.Done {
				continue
			}

			if err := streamCtx.Err(); err != nil {
				fail(err, "cancelled")
				return
			}
			answer := sb.String()
			if err := s.appendTurn(streamCtx, id, input, answer); err != nil {
				s.logger.Error("failed to save turn", zap.String("session_id", id), zap.Error(err))
				fail(err, "error")
				return
			}
			turnDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
			chatTurns.WithLabelValues(provider, "success").Inc()
			release()
			emit(ctx, out, types.StreamChunk{Done: true, FullText: answer})
			return
		}

		// the producer stopped without a final chunk
		if err := streamCtx.Err(); err != nil {
			fail(err, "cancelled")
			return
		}
		fail(modelError(provider, errors.New("stream ended without completion")), "error")
	}()

	return &Turn{SessionID: id, Input: input, fragments: out}, nil
}

func (s *ChatService) appendTurn(ctx context.Context, id, input, answer string) error {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	session.Append(types.HumanMessage(input), types.AIMessage(answer))
	return s.store.Save(ctx, session)
}

// Chat runs a whole turn, passing every delta to handler, and returns the
// answer once it has been recorded.
func (s *ChatService) Chat(ctx context.Context, id, input string, handler types.StreamHandler) (string, error) {
	turn, err := s.SendMessage(ctx, id, input)
	if err != nil {
		return "", err
	}
	return CollectStream(ctx, turn.Fragments(), handler)
}

func (s *ChatService) History(ctx context.Context, id string) ([]types.Message, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return session.Snapshot(), nil
}

// ResetHistory clears the conversation but keeps the processed documents.
func (s *ChatService) ResetHistory(ctx context.Context, id string) error {
	release, err := s.acquire(id)
	if err != nil {
		return err
	}
	defer release()

	session, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	session.History = []types.Message{}
	session.UpdatedAt = time.Now().Unix()
	return s.store.Save(ctx, session)
}

func (s *ChatService) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if s.files != nil {
		if err := s.files.RemoveSession(id); err != nil {
			s.logger.Warn("failed to remove retained files", zap.String("session_id", id), zap.Error(err))
		}
	}
	s.logger.Info("session deleted", zap.String("session_id", id))
	return nil
}

func (s *ChatService) ModelName() string {
	return s.model.Name()
}
