package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tieubaoca/pdfchat/middleware"
	"github.com/tieubaoca/pdfchat/service"
	"github.com/tieubaoca/pdfchat/types"
	"github.com/tieubaoca/pdfchat/utils"
	"github.com/tieubaoca/pdfchat/web"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

type RouterConfig struct {
	ServiceName    string
	MaxUploadBytes int64
}

// NewRouter wires every HTTP and websocket route onto a gin engine.
func NewRouter(
	cfg RouterConfig,
	chatService *service.ChatService,
	fileService *service.FileService,
	issuer *utils.TokenIssuer,
	logger *zap.Logger,
) *gin.Engine {
	wsService := service.NewWebSocketService(chatService, logger)

	corsHandler := NewCorsHandler()
	sessionHandler := NewSessionHandler(chatService, issuer, logger)
	uploadHandler := NewUploadHandler(chatService, cfg.MaxUploadBytes, logger)
	chatHandler := NewChatHandler(chatService, wsService, logger)
	documentHandler := NewDocumentHandler(chatService, fileService, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(corsHandler.CorsMiddleware)

	ui := gin.WrapH(web.Handler())
	router.GET("/", ui)
	router.GET("/favicon.svg", ui)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, types.DataResponse{
			Status:  true,
			Message: "OK",
			Data:    gin.H{"model": chatService.ModelName()},
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := router.Group("/api/v1")
	apiV1.POST("/sessions", sessionHandler.HandleCreateSession)

	sessionRoutes := apiV1.Group("/sessions/:id")
	sessionRoutes.Use(middleware.SessionAuth(issuer))
	{
		sessionRoutes.GET("", sessionHandler.HandleGetSession)
		sessionRoutes.DELETE("", sessionHandler.HandleDeleteSession)
		sessionRoutes.POST("/documents", uploadHandler.HandleProcessDocuments)
		sessionRoutes.POST("/messages", chatHandler.HandleSendMessage)
		sessionRoutes.DELETE("/history", sessionHandler.HandleResetHistory)
		sessionRoutes.GET("/files/:name", documentHandler.ServeDocument)
	}

	router.GET("/ws", middleware.SessionAuth(issuer), chatHandler.HandleWebSocket)

	return router
}
