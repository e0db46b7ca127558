package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/pdfchat/service"
	"github.com/tieubaoca/pdfchat/types"
	"go.uber.org/zap"
)

type UploadHandler struct {
	chatService    *service.ChatService
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewUploadHandler(chatService *service.ChatService, maxUploadBytes int64, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		chatService:    chatService,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

type processResult struct {
	session *types.Session
	err     error
}

func readUploads(headers []*multipart.FileHeader) ([]types.UploadedFile, error) {
	files := make([]types.UploadedFile, 0, len(headers))
	for _, header := range headers {
		src, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, types.UploadedFile{Name: header.Filename, Data: data})
	}
	return files, nil
}

func toProcessResponse(session *types.Session) types.ProcessResponse {
	return types.ProcessResponse{
		SessionID: session.ID,
		State:     session.State,
		Documents: session.Documents,
		Turns:     len(session.History),
	}
}

// HandleProcessDocuments reads the repeated "files" form field, in order,
// and processes them into the session. Clients sending
// Accept: text/event-stream receive progress events while pages are read.
func (h *UploadHandler) HandleProcessDocuments(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: fmt.Sprintf("Invalid upload: %v", err),
		})
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		respondError(c, h.logger, types.ErrNoFiles)
		return
	}
	files, err := readUploads(headers)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid file",
		})
		return
	}

	opts := types.ProcessOptions{}
	opts.ResetHistory, _ = strconv.ParseBool(c.PostForm("reset_history"))
	sessionID := c.Param("id")

	if !wantsEventStream(c) {
		session, err := h.chatService.ProcessDocuments(c.Request.Context(), sessionID, files, opts)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, types.DataResponse{
			Status: true,
			Data:   toProcessResponse(session),
		})
		return
	}

	ctx := c.Request.Context()
	statusChan := make(chan types.ProcessingDocumentStatus)
	resultChan := make(chan processResult, 1)
	opts.Progress = func(status types.ProcessingDocumentStatus) {
		select {
		case statusChan <- status:
		case <-ctx.Done():
		}
	}
	go func() {
		session, err := h.chatService.ProcessDocuments(ctx, sessionID, files, opts)
		resultChan <- processResult{session: session, err: err}
	}()

	setSSEHeaders(c)
	c.Status(http.StatusOK)
	for {
		select {
		case <-ctx.Done():
			return // Client disconnected
		case status := <-statusChan:
			c.SSEvent("progress", status)
			c.Writer.Flush()
		case res := <-resultChan:
			if res.err != nil {
				h.logger.Warn("document processing failed", zap.String("session_id", sessionID), zap.Error(res.err))
				c.SSEvent("error", types.WebSocketErrorResponse{Error: res.err.Error()})
			} else {
				c.SSEvent("done", toProcessResponse(res.session))
			}
			c.Writer.Flush()
			return
		}
	}
}
