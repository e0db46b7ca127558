package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tieubaoca/pdfchat/types"
	"github.com/tieubaoca/pdfchat/utils"
	"go.uber.org/zap"
)

// FileService keeps uploaded PDFs on disk under uploadDir/<session>/.
// An empty uploadDir disables retention.
type FileService struct {
	uploadDir string
	logger    *zap.Logger
}

func NewFileService(uploadDir string, logger *zap.Logger) *FileService {
	return &FileService{
		uploadDir: uploadDir,
		logger:    logger,
	}
}

func (s *FileService) Enabled() bool {
	return s.uploadDir != ""
}

func (s *FileService) sessionDir(sessionID string) (string, error) {
	if sessionID == "" || sessionID != filepath.Base(sessionID) || strings.HasPrefix(sessionID, ".") {
		return "", fmt.Errorf("%w: invalid session id", types.ErrSessionNotFound)
	}
	return filepath.Join(s.uploadDir, sessionID), nil
}

// SaveUploads writes every file and returns the stored names in upload order.
func (s *FileService) SaveUploads(sessionID string, files []types.UploadedFile) ([]string, error) {
	if !s.Enabled() {
		return nil, nil
	}
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return nil, err
	}

	stored := make([]string, 0, len(files))
	for _, f := range files {
		name, err := utils.WriteUniqueFile(dir, f.Name, f.Data)
		if err != nil {
			return stored, err
		}
		stored = append(stored, name)
		s.logger.Debug("stored upload",
			zap.String("session_id", sessionID),
			zap.String("file", f.Name),
			zap.String("stored_as", name))
	}
	return stored, nil
}

// ResolvePath returns the on-disk path of a retained file.
func (s *FileService) ResolvePath(sessionID, name string) (string, error) {
	if !s.Enabled() {
		return "", types.ErrFileNotFound
	}
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return "", err
	}
	if name == "" || name != filepath.Base(name) || name != utils.SanitizeFileName(name) {
		return "", types.ErrFileNotFound
	}

	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", types.ErrFileNotFound
	}
	return path, nil
}

// RemoveSession deletes every retained file of a session.
func (s *FileService) RemoveSession(sessionID string) error {
	if !s.Enabled() {
		return nil
	}
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}
