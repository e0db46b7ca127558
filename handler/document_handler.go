package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/pdfchat/service"
	"go.uber.org/zap"
)

type DocumentHandler struct {
	chatService *service.ChatService
	fileService *service.FileService
	logger      *zap.Logger
}

func NewDocumentHandler(chatService *service.ChatService, fileService *service.FileService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		chatService: chatService,
		fileService: fileService,
		logger:      logger,
	}
}

// ServeDocument streams a retained upload back to the session owner.
func (h *DocumentHandler) ServeDocument(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := h.chatService.GetSession(c.Request.Context(), sessionID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	name := c.Param("name")
	path, err := h.fileService.ResolvePath(sessionID, name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	c.File(path)
}
