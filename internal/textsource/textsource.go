// Package textsource turns uploaded documents into raw text plus structural
// layout hints for the downstream extraction stages.
package textsource

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/paperlens/api/schemas"
)

// ForChoice maps an extractor choice string onto a concrete extractor.
// "auto" (or empty) picks by file extension, defaulting to PDF.
func ForChoice(choice, path string, logger *zap.Logger) (schemas.TextExtractor, error) {
	switch strings.ToLower(strings.TrimSpace(choice)) {
	case "pdf":
		return NewPDFExtractor(logger), nil
	case "text", "txt", "plain":
		return NewPlainTextExtractor(logger), nil
	case "auto", "":
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md", ".markdown", ".text":
			return NewPlainTextExtractor(logger), nil
		default:
			return NewPDFExtractor(logger), nil
		}
	default:
		return nil, fmt.Errorf("unknown extractor choice: %q (supported: pdf, text, auto)", choice)
	}
}
