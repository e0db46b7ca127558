package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/pdfchat/types"
	"go.uber.org/zap"
)

// statusFromError maps service errors onto HTTP status codes.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, types.ErrSessionNotFound), errors.Is(err, types.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrNotReady), errors.Is(err, types.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, types.ErrEmptyMessage), errors.Is(err, types.ErrNoFiles):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrUnsupportedFile), errors.Is(err, types.ErrExtraction), errors.Is(err, types.ErrTemplate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrModel):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFromError(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		logger.Info("request rejected", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, types.DataResponse{
		Status:  false,
		Message: err.Error(),
	})
}

func setSSEHeaders(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
}

func wantsEventStream(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEJSON, "text/event-stream") == "text/event-stream"
}
