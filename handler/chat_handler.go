package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/pdfchat/service"
	"github.com/tieubaoca/pdfchat/types"
	"go.uber.org/zap"
)

type ChatHandler struct {
	chatService *service.ChatService
	wsService   *service.WebSocketService
	logger      *zap.Logger
}

func NewChatHandler(chatService *service.ChatService, wsService *service.WebSocketService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		wsService:   wsService,
		logger:      logger,
	}
}

// HandleSendMessage answers one message as a server-sent event stream:
// a token event per fragment, then done with the full answer or error.
func (h *ChatHandler) HandleSendMessage(c *gin.Context) {
	var chatRequest types.ChatRequest
	if err := c.ShouldBindJSON(&chatRequest); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid request body",
		})
		return
	}

	sessionID := c.Param("id")
	turn, err := h.chatService.SendMessage(c.Request.Context(), sessionID, chatRequest.Message)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	setSSEHeaders(c)
	c.Status(http.StatusOK)
	for chunk := range turn.Fragments() {
		switch {
		case chunk.Err != nil:
			h.logger.Warn("chat turn failed", zap.String("session_id", sessionID), zap.Error(chunk.Err))
			c.SSEvent("error", types.WebSocketErrorResponse{Error: chunk.Err.Error()})
		case chunk.Done:
			msg := types.AIMessage(chunk.FullText)
			c.SSEvent("done", types.ChatResponse{SessionID: sessionID, Message: &msg})
		default:
			c.SSEvent("token", types.WebSocketTokenResponse{Delta: chunk.Delta})
		}
		c.Writer.Flush()
	}
}

func (h *ChatHandler) HandleWebSocket(c *gin.Context) {
	sessionID := c.Query("session_id")
	if _, err := h.chatService.GetSession(c.Request.Context(), sessionID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.wsService.HandleChat(c.Writer, c.Request, sessionID)
}
