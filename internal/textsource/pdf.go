// internal/textsource/pdf.go
package textsource

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/xkilldash9x/paperlens/api/schemas"
)

// PDFExtractor pulls text out of a PDF page by page and recovers a coarse
// section structure from heading-looking lines.
type PDFExtractor struct {
	logger *zap.Logger
}

func NewPDFExtractor(logger *zap.Logger) *PDFExtractor {
	return &PDFExtractor{logger: logger.Named("textsource.pdf")}
}

func (e *PDFExtractor) Name() string { return "pdf" }

// Extract reads every page, concatenates the plain text, and splits it into
// layout sections on detected headings. Pages that fail to decode are skipped
// rather than failing the whole document.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (string, *schemas.StructuralMetadata, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	var fullText strings.Builder
	var sections []schemas.LayoutSection

	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("Skipping page that failed to extract",
				zap.Int("page", i), zap.Error(err))
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if fullText.Len() > 0 {
			fullText.WriteString("\n\n")
		}
		fullText.WriteString(text)

		sections = append(sections, splitPageIntoSections(text, i)...)
	}

	raw := strings.TrimSpace(fullText.String())
	if raw == "" {
		return "", nil, fmt.Errorf("no extractable text in PDF (%d pages)", totalPages)
	}

	meta := &schemas.StructuralMetadata{
		Pages:    totalPages,
		Sections: sections,
	}
	e.logger.Info("PDF text extracted",
		zap.Int("pages", totalPages),
		zap.Int("chars", len(raw)),
		zap.Int("layout_sections", len(sections)),
	)
	return raw, meta, nil
}

// splitPageIntoSections breaks one page of text into heading-delimited spans.
func splitPageIntoSections(text string, pageNum int) []schemas.LayoutSection {
	lines := strings.Split(text, "\n")
	var sections []schemas.LayoutSection
	var currentContent strings.Builder
	var currentTitle string
	paragraph := 0

	flush := func() {
		body := strings.TrimSpace(currentContent.String())
		if body == "" && currentTitle == "" {
			return
		}
		sections = append(sections, schemas.LayoutSection{
			Title: currentTitle,
			Text:  body,
			Start: schemas.Location{Page: pageNum, Paragraph: paragraph},
			End:   schemas.Location{Page: pageNum, Paragraph: paragraph + strings.Count(body, "\n")},
		})
		currentContent.Reset()
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if currentContent.Len() > 0 {
				currentContent.WriteString("\n")
				paragraph++
			}
			continue
		}

		if isLikelyHeading(trimmed) {
			flush()
			currentTitle = trimmed
			continue
		}

		if currentContent.Len() > 0 {
			currentContent.WriteString("\n")
		}
		currentContent.WriteString(trimmed)
	}
	flush()

	// No headings found: the whole page is one untitled section.
	if len(sections) == 0 {
		sections = append(sections, schemas.LayoutSection{
			Text:  text,
			Start: schemas.Location{Page: pageNum},
			End:   schemas.Location{Page: pageNum},
		})
	}
	return sections
}

// isLikelyHeading flags short all-caps lines, numbered section markers like
// "3.1 Method", and common heading prefixes.
func isLikelyHeading(line string) bool {
	if line == "" {
		return false
	}
	if len(line) < 100 && len(line) > 2 && line == strings.ToUpper(line) && strings.ContainsAny(line, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return true
	}
	if len(line) < 120 {
		if line[0] >= '0' && line[0] <= '9' {
			head := line
			if len(head) > 10 {
				head = head[:10]
			}
			if strings.Contains(head, ".") || strings.Contains(head, " ") {
				return true
			}
		}
		lower := strings.ToLower(line)
		for _, prefix := range []string{"section ", "chapter ", "appendix ", "abstract", "introduction", "references", "acknowledg"} {
			if strings.HasPrefix(lower, prefix) {
				return true
			}
		}
	}
	return false
}
