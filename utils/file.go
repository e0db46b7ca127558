package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const uniqueWriteAttempts = 3

// SanitizeFileName keeps ASCII letters, digits, '-', '_' and '.', replacing
// everything else with '_'.
func SanitizeFileName(name string) string {
	name = filepath.Base(name)
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			return r
		}
		return '_'
	}, name)
}

// WriteUniqueFile writes data into dir as name_<unix>_<id>.ext and returns
// the stored file name. An existing file is never overwritten.
func WriteUniqueFile(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	originalName := SanitizeFileName(name)
	ext := filepath.Ext(originalName)
	baseFileName := strings.TrimSuffix(originalName, ext)

	for attempt := 0; attempt < uniqueWriteAttempts; attempt++ {
		id := strings.SplitN(uuid.NewString(), "-", 2)[0]
		destFileName := fmt.Sprintf("%s_%d_%s%s", baseFileName, time.Now().Unix(), id, ext)

		f, err := os.OpenFile(filepath.Join(dir, destFileName), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create file: %w", err)
		}
		_, err = f.Write(data)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return "", fmt.Errorf("failed to write file: %w", err)
		}
		return destFileName, nil
	}
	return "", fmt.Errorf("failed to pick a unique name for %s", originalName)
}
