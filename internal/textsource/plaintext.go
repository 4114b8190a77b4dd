// internal/textsource/plaintext.go
package textsource

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/paperlens/api/schemas"
)

// PlainTextExtractor handles .txt and .md inputs. Markdown headings become
// layout sections; a headingless file is a single untitled section.
type PlainTextExtractor struct {
	logger *zap.Logger
}

func NewPlainTextExtractor(logger *zap.Logger) *PlainTextExtractor {
	return &PlainTextExtractor{logger: logger.Named("textsource.plaintext")}
}

func (e *PlainTextExtractor) Name() string { return "text" }

func (e *PlainTextExtractor) Extract(ctx context.Context, path string) (string, *schemas.StructuralMetadata, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("reading text file: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", nil, fmt.Errorf("text file is empty: %s", path)
	}

	meta := &schemas.StructuralMetadata{
		Pages:    1,
		Sections: splitMarkdownSections(text),
	}
	e.logger.Info("Plain text loaded",
		zap.Int("chars", len(text)),
		zap.Int("layout_sections", len(meta.Sections)),
	)
	return text, meta, nil
}

// splitMarkdownSections splits on markdown '#' headings. Text before the first
// heading becomes an untitled leading section.
func splitMarkdownSections(text string) []schemas.LayoutSection {
	lines := strings.Split(text, "\n")
	var sections []schemas.LayoutSection
	var body strings.Builder
	var title string
	start := 0

	flush := func(end int) {
		content := strings.TrimSpace(body.String())
		if content == "" && title == "" {
			return
		}
		sections = append(sections, schemas.LayoutSection{
			Title: title,
			Text:  content,
			Start: schemas.Location{Page: 1, Paragraph: start},
			End:   schemas.Location{Page: 1, Paragraph: end},
		})
		body.Reset()
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			flush(i)
			title = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			start = i
			continue
		}
		if body.Len() > 0 {
			body.WriteString("\n")
		}
		body.WriteString(line)
	}
	flush(len(lines))

	if len(sections) == 0 {
		sections = append(sections, schemas.LayoutSection{
			Text:  text,
			Start: schemas.Location{Page: 1},
			End:   schemas.Location{Page: 1, Paragraph: len(lines)},
		})
	}
	return sections
}
