package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/tieubaoca/pdfchat/types"
	"go.uber.org/zap"
)

var pdfMagic = []byte("%PDF-")

// ProgressFunc receives a status update after every extracted page
type ProgressFunc func(types.ProcessingDocumentStatus)

// PDFService turns uploaded PDFs into one corpus string
type PDFService struct {
	pdftotextFallback bool
	logger            *zap.Logger

	// readPages extracts the text of every page of one file, in page order.
	readPages func(ctx context.Context, file types.UploadedFile, onPage func(page, total int)) ([]string, error)
}

func NewPDFService(config types.DocumentServiceConfig, logger *zap.Logger) *PDFService {
	s := &PDFService{
		pdftotextFallback: config.PdftotextFallback,
		logger:            logger,
	}
	s.readPages = s.extractPages
	return s
}

// ExtractText reads every file in upload order and joins the text of all
// pages of all files with newlines. Any unreadable file fails the whole call.
func (s *PDFService) ExtractText(ctx context.Context, files []types.UploadedFile, progress ProgressFunc) (*types.ExtractResult, error) {
	if len(files) == 0 {
		return nil, types.ErrNoFiles
	}
	for _, f := range files {
		if err := ValidatePDF(f); err != nil {
			return nil, err
		}
	}

	var pages []string
	result := &types.ExtractResult{Documents: make([]types.DocumentInfo, 0, len(files))}
	for _, f := range files {
		name := f.Name
		filePages, err := s.readPages(ctx, f, func(page, total int) {
			if progress == nil {
				return
			}
			progress(types.ProcessingDocumentStatus{
				Status:         "processing",
				Message:        "Processing document",
				File:           name,
				Progress:       float64(page) / float64(total),
				TotalPages:     total,
				ProcessedPages: page,
			})
		})
		if err != nil {
			extractionFailures.Inc()
			return nil, err
		}

		chars := 0
		for _, p := range filePages {
			chars += len(p)
		}
		pagesExtracted.Add(float64(len(filePages)))
		result.Documents = append(result.Documents, types.DocumentInfo{
			Name:       name,
			Pages:      len(filePages),
			Characters: chars,
		})
		pages = append(pages, filePages...)

		s.logger.Debug("extracted PDF", zap.String("file", name), zap.Int("pages", len(filePages)))
	}

	result.Corpus = JoinPages(pages)
	if progress != nil {
		progress(types.ProcessingDocumentStatus{
			Status:   "completed",
			Message:  "Done processing PDF",
			Progress: 1,
		})
	}
	return result, nil
}

// JoinPages concatenates page texts in order, separated by newlines.
func JoinPages(pages []string) string {
	return strings.Join(pages, "\n")
}

// ValidatePDF accepts files with a .pdf extension or PDF header bytes.
func ValidatePDF(f types.UploadedFile) error {
	if strings.EqualFold(filepath.Ext(f.Name), ".pdf") || bytes.HasPrefix(f.Data, pdfMagic) {
		return nil
	}
	return fmt.Errorf("%w: %s", types.ErrUnsupportedFile, f.Name)
}

func (s *PDFService) extractPages(ctx context.Context, file types.UploadedFile, onPage func(page, total int)) (pages []string, err error) {
	// the pdf package panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %s: %v", types.ErrExtraction, file.Name, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(file.Data), int64(len(file.Data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrExtraction, file.Name, err)
	}

	totalPages := reader.NumPage()
	pages = make([]string, 0, totalPages)
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var text string
		page := reader.Page(pageNum)
		if !page.V.IsNull() {
			raw, err := page.GetPlainText(nil)
			if err != nil {
				return nil, fmt.Errorf("%w: %s page %d: %v", types.ErrExtraction, file.Name, pageNum, err)
			}
			text = cleanText(raw)
		}

		if text == "" && s.pdftotextFallback {
			fallback, err := s.extractTextWithPdftotext(ctx, file, pageNum)
			if err != nil {
				s.logger.Warn("pdftotext fallback failed",
					zap.String("file", file.Name), zap.Int("page", pageNum), zap.Error(err))
			} else {
				text = fallback
			}
		}

		pages = append(pages, text)
		if onPage != nil {
			onPage(pageNum, totalPages)
		}
	}
	return pages, nil
}

// extractTextWithPdftotext runs the pdftotext utility on a single page.
func (s *PDFService) extractTextWithPdftotext(ctx context.Context, file types.UploadedFile, pageNumber int) (string, error) {
	tmp, err := os.CreateTemp("", "pdfchat-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(file.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, "pdftotext",
		"-f", strconv.Itoa(pageNumber),
		"-l", strconv.Itoa(pageNumber),
		"-enc", "UTF-8", "-nopgbrk",
		tmp.Name(), "-")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext page %d: %w", pageNumber, err)
	}
	return cleanText(out.String()), nil
}

var textCleaner = strings.NewReplacer(
	"\u0000", "", // Null character
	"\ufffd", "", // Unicode replacement character
	"\u001b", "", // Escape character
	"\r", "",
	"\f", "\n",
)

// cleanText normalises one page's text before pages are joined with newlines.
// Surrounding whitespace is trimmed.
func cleanText(text string) string {
	return strings.TrimSpace(textCleaner.Replace(text))
}
