/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/pdfchat/config"
	"github.com/tieubaoca/pdfchat/database"
	"github.com/tieubaoca/pdfchat/service"
	"github.com/tieubaoca/pdfchat/types"
	"github.com/tieubaoca/pdfchat/utils"
	"go.uber.org/zap"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pdfchat",
	Short: "Chat with the content of your PDF files",
	Long: `pdfchat extracts the text of one or more PDF files and lets you ask
questions about it. Answers are produced by a chat model that is told to
rely only on the documents and the conversation so far.

Run "pdfchat serve" for the web interface or "pdfchat chat FILE..." for a
terminal session.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigPath, "config file")
}

// loadConfig reads the configuration and builds the logger. A non-empty
// level overrides log.level, which keeps terminal commands quiet.
func loadConfig(level string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level == "" {
		level = cfg.Log.Level
	}
	logger, err := utils.NewLogger(level, cfg.Log.File, cfg.Log.Production)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

func newPDFService(cfg *config.Config, logger *zap.Logger) *service.PDFService {
	return service.NewPDFService(
		types.DocumentServiceConfig{
			PdftotextFallback: cfg.PDF.PdftotextFallback,
		}, logger)
}

// newChatService builds the conversation loop with its store and model.
// The returned func releases the store.
func newChatService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*service.ChatService, *service.FileService, func(), error) {
	store, err := database.NewSessionStore(ctx, cfg.Session.Store, cfg.Session.RedisURL, cfg.Session.TTL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open session store: %w", err)
	}
	model, err := service.NewChatModel(ctx, cfg.LLM)
	if err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	fileService := service.NewFileService(cfg.UploadDir, logger)
	chatService := service.NewChatService(
		store,
		newPDFService(cfg, logger),
		fileService,
		model,
		service.ChatServiceConfig{
			Instructions:          cfg.Chat.Instructions,
			ResetHistoryOnProcess: cfg.Chat.ResetHistoryOnProcess,
			RequestTimeout:        cfg.LLM.RequestTimeout,
		},
		logger,
	)
	logger.Info("chat service ready",
		zap.String("provider", model.Name()),
		zap.String("model", cfg.LLM.Model),
		zap.String("session_store", cfg.Session.Store))

	return chatService, fileService, func() { store.Close() }, nil
}

// readPDFFiles loads the given paths, in order, as uploads.
func readPDFFiles(paths []string) ([]types.UploadedFile, error) {
	files := make([]types.UploadedFile, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, types.UploadedFile{Name: filepath.Base(path), Data: data})
	}
	return files, nil
}
