/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/pdfchat/handler"
	"github.com/tieubaoca/pdfchat/utils"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"start"},
	Short:   "Start the chat server",
	Long:    `Starts the HTTP server with the web interface, the REST/SSE API and the websocket chat endpoint`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig("")
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shutdownTracer := utils.InitTracer(ctx, cfg.Tracing.Enabled, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName, logger)
		defer shutdownTracer(context.Background())

		chatService, fileService, closeStore, err := newChatService(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore()

		issuer := utils.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		router := handler.NewRouter(
			handler.RouterConfig{
				ServiceName:    cfg.Tracing.ServiceName,
				MaxUploadBytes: cfg.MaxUploadBytes,
			},
			chatService,
			fileService,
			issuer,
			logger,
		)

		srv := &http.Server{
			Addr:        ":" + cfg.Port,
			Handler:     router,
			ReadTimeout: 30 * time.Second,
			IdleTimeout: 120 * time.Second,
			// no write timeout: answers are streamed
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("starting server", zap.String("port", cfg.Port), zap.Bool("session_tokens", issuer.Enabled()))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				logger.Error("server error", zap.Error(err))
				return err
			}
		case <-ctx.Done():
		}
		stop()

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
