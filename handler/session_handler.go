package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/pdfchat/service"
	"github.com/tieubaoca/pdfchat/types"
	"github.com/tieubaoca/pdfchat/utils"
	"go.uber.org/zap"
)

type SessionHandler struct {
	chatService *service.ChatService
	issuer      *utils.TokenIssuer
	logger      *zap.Logger
}

func NewSessionHandler(chatService *service.ChatService, issuer *utils.TokenIssuer, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		chatService: chatService,
		issuer:      issuer,
		logger:      logger,
	}
}

func toSessionResponse(session *types.Session) types.SessionResponse {
	return types.SessionResponse{
		SessionID: session.ID,
		State:     session.State,
		Documents: session.Documents,
		History:   session.Snapshot(),
	}
}

func (h *SessionHandler) HandleCreateSession(c *gin.Context) {
	session, err := h.chatService.CreateSession(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	token, err := h.issuer.GenerateSessionToken(session.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	res := toSessionResponse(session)
	res.Token = token
	c.JSON(http.StatusCreated, types.DataResponse{
		Status: true,
		Data:   res,
	})
}

func (h *SessionHandler) HandleGetSession(c *gin.Context) {
	session, err := h.chatService.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data:   toSessionResponse(session),
	})
}

func (h *SessionHandler) HandleDeleteSession(c *gin.Context) {
	if err := h.chatService.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status:  true,
		Message: "Session deleted",
	})
}

func (h *SessionHandler) HandleResetHistory(c *gin.Context) {
	if err := h.chatService.ResetHistory(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status:  true,
		Message: "History cleared",
	})
}
