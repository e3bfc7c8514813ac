package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"geoassist-be/internal/pkg/logger"
	"geoassist-be/pkg/workflow"

	"code.sajari.com/docconv"
)

type IExtractorService interface {
	workflow.TextExtractor
}

// extractorService reads text out of uploaded files with docconv. Images
// need a build with the ocr tag and tesseract installed.
type extractorService struct {
	logger logger.ILogger
}

func NewExtractorService(log logger.ILogger) IExtractorService {
	return &extractorService{logger: log}
}

type convertResult struct {
	text string
	err  error
}

func (s *extractorService) ExtractText(ctx context.Context, image workflow.FileRef) (string, error) {
	f, err := os.Open(image.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	contentType := image.MimeType
	if contentType == "" {
		contentType = docconv.MimeTypeByExtension(filepath.Base(image.Path))
	}

	done := make(chan convertResult, 1)
	go func() {
		res, err := docconv.Convert(f, contentType, false)
		if err != nil {
			done <- convertResult{err: err}
			return
		}
		done <- convertResult{text: strings.TrimSpace(res.Body)}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			s.logger.Warn("OCR", "Text extraction failed", map[string]interface{}{
				"file":         image.Name,
				"content_type": contentType,
				"error":        r.err.Error(),
			})
			return "", r.err
		}
		return r.text, nil
	}
}
