package filetext

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

const (
	pdfUnreadable = "[PDF CONTENT COULD NOT BE EXTRACTED - May be image-based or encrypted]"
	imageNotice   = "[IMAGE FILE: %s] - This is an image file that may contain text. Please process using OCR if text extraction is needed."
)

// Extractor turns uploaded bytes into plain text by file extension. It never
// fails: problems come back as bracketed diagnostics so the pipeline can
// carry on with them.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

func (e *Extractor) Extract(_ context.Context, data []byte, filename string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extractor.panic", "filename", filename, "panic", r)
			text = fmt.Sprintf("[ERROR EXTRACTING TEXT FROM %s] - %v", filename, r)
		}
	}()

	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "pdf":
		return e.extractPDF(data)
	case "docx":
		out, err := extractDOCX(data)
		if err != nil {
			return fmt.Sprintf("[ERROR READING DOCX] - %v", err)
		}
		return out
	case "png", "jpg", "jpeg":
		return fmt.Sprintf(imageNotice, filename)
	default:
		return strings.ToValidUTF8(string(data), "")
	}
}

func (e *Extractor) extractPDF(data []byte) string {
	text, err := readPDFPlainText(data)
	if err != nil {
		return fmt.Sprintf("[ERROR READING PDF] - %v", err)
	}
	if strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text)
	}

	text, err = readPDFContentStreams(data)
	if err != nil {
		e.logger.Warn("extractor.pdf.content_fallback_failed", "error", err)
	}
	if strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text)
	}
	return pdfUnreadable
}
