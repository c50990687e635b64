package usecase

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

// NewUpload reads one submitted file. An empty hint leaves classification
// to the oracle; an unknown hint is rejected.
func NewUpload(filename, hint string, body io.Reader) (domain.Upload, error) {
	if strings.TrimSpace(filename) == "" {
		return domain.Upload{}, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("filename is required"))
	}

	upload := domain.Upload{Filename: filename}
	if strings.TrimSpace(hint) != "" {
		category, ok := domain.ParseCategory(hint)
		if !ok || !category.Valid() {
			return domain.Upload{}, domain.WrapError(domain.ErrInvalidInput, "read upload", fmt.Errorf("unknown category %q", hint))
		}
		upload.CategoryHint = category
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return domain.Upload{}, domain.WrapError(domain.ErrInvalidInput, "read upload", err)
	}
	upload.Data = data
	return upload, nil
}

// StorageKey places a document under its category folder.
func StorageKey(category domain.Category, filename string) string {
	return category.Folder() + "/" + sanitizeFilename(filename)
}

// sanitizeFilename keeps the last path element of name and drops control
// characters. Other characters pass through so distinct names stay distinct.
func sanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, base)
	if strings.TrimSpace(base) == "" || base == "." || base == ".." || base == "/" {
		return "document.bin"
	}
	return base
}
