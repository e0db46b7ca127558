package types

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionBusy     = errors.New("session is already answering a message")
	ErrNotReady        = errors.New("no documents processed for this session")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrNoFiles         = errors.New("no files uploaded")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrExtraction      = errors.New("failed to extract text from PDF")
	ErrTemplate        = errors.New("invalid prompt template")
	ErrModel           = errors.New("model request failed")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrFileNotFound    = errors.New("file not found")
)
