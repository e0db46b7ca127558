package service

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tieubaoca/pdfchat/types"
	"go.uber.org/zap"
)

const (
	wsReadLimit = 512 * 1024
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
)

type WebSocketService struct {
	chat     *ChatService
	upgrader websocket.Upgrader
	logger   *zap.Logger

	// pings go out every pingPeriod; a client silent for pongWait is dropped
	pongWait   time.Duration
	pingPeriod time.Duration
}

func NewWebSocketService(chat *ChatService, logger *zap.Logger) *WebSocketService {
	return &WebSocketService{
		chat:       chat,
		logger:     logger,
		pongWait:   wsPongWait,
		pingPeriod: (wsPongWait * 9) / 10,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins (adjust for production)
			},
		},
	}
}

// HandleChat serves one websocket connection bound to a session. Requests
// are handled in order; a chat request streams token frames then a done or
// error frame.
func (s *WebSocketService) HandleChat(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)
	conn.SetReadDeadline(time.Now().Add(s.pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.pongWait))
		return nil
	})

	// cancelled when the client goes away so a running turn stops
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.keepAlive(ctx, cancel, conn, sessionID)

	requests := make(chan types.WebsocketRequest)
	go func() {
		defer cancel()
		defer close(requests)
		for {
			_, p, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					s.logger.Warn("websocket read error", zap.String("session_id", sessionID), zap.Error(err))
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(s.pongWait))

			var req types.WebsocketRequest
			if err := json.Unmarshal(p, &req); err != nil {
				req = types.WebsocketRequest{}
			}
			select {
			case requests <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	for req := range requests {
		switch req.Type {
		case types.TypeWebsocketChat:
			var payload types.WebSocketChatPayload
			payloadBytes, err := json.Marshal(req.Payload)
			if err == nil {
				err = json.Unmarshal(payloadBytes, &payload)
			}
			if err != nil {
				s.writeError(conn, "invalid chat payload")
				continue
			}
			s.streamTurn(ctx, cancel, conn, sessionID, payload.Message)
		case types.TypeWebsocketPing:
			s.write(conn, types.WebSocketResponse{Type: types.TypeWebsocketPong})
		default:
			s.writeError(conn, "invalid message type")
		}
	}
}

// keepAlive pings the client so its pongs extend the read deadline while a
// long turn streams nothing. WriteControl may run alongside WriteJSON.
func (s *WebSocketService) keepAlive(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sessionID string) {
	ticker := time.NewTicker(s.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				s.logger.Debug("websocket ping failed", zap.String("session_id", sessionID), zap.Error(err))
				cancel()
				return
			}
		}
	}
}

func (s *WebSocketService) streamTurn(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sessionID, message string) {
	turn, err := s.chat.SendMessage(ctx, sessionID, message)
	if err != nil {
		s.logger.Warn("websocket chat rejected", zap.String("session_id", sessionID), zap.Error(err))
		s.writeError(conn, err.Error())
		return
	}

	for chunk := range turn.Fragments() {
		var res types.WebSocketResponse
		switch {
		case chunk.Err != nil:
			res = types.WebSocketResponse{
				Type:    types.TypeWebsocketError,
				Payload: types.WebSocketErrorResponse{Error: chunk.Err.Error()},
			}
		case chunk.Done:
			res = types.WebSocketResponse{
				Type:    types.TypeWebsocketDone,
				Payload: types.WebSocketDoneResponse{Message: chunk.FullText},
			}
		default:
			res = types.WebSocketResponse{
				Type:    types.TypeWebsocketToken,
				Payload: types.WebSocketTokenResponse{Delta: chunk.Delta},
			}
		}
		if !s.write(conn, res) {
			cancel()
		}
	}
}

func (s *WebSocketService) write(conn *websocket.Conn, res types.WebSocketResponse) bool {
	if err := conn.WriteJSON(res); err != nil {
		s.logger.Debug("websocket write failed", zap.Error(err))
		return false
	}
	return true
}

func (s *WebSocketService) writeError(conn *websocket.Conn, message string) {
	s.write(conn, types.WebSocketResponse{
		Type:    types.TypeWebsocketError,
		Payload: types.WebSocketErrorResponse{Error: message},
	})
}
