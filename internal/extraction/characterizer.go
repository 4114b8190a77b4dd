// internal/extraction/characterizer.go
package extraction

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/paperlens/api/schemas"
	"github.com/xkilldash9x/paperlens/internal/llmutil"
)

// Characterizer classifies a paper into the closed taxonomy and proposes a
// section map, with exactly one model call per paper.
type Characterizer struct {
	llm            schemas.LLMClient
	logger         *zap.Logger
	maxPromptChars int
}

func NewCharacterizer(llm schemas.LLMClient, logger *zap.Logger, maxPromptChars int) *Characterizer {
	return &Characterizer{
		llm:            llm,
		logger:         logger.Named("characterizer"),
		maxPromptChars: maxPromptChars,
	}
}

// characterizationResponse is the model's reported shape.
type characterizationResponse struct {
	PaperType string                    `json:"paper_type"`
	Sections  map[string]sectionPayload `json:"sections"`
}

type sectionPayload struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Characterize sends one strict-JSON model call and validates the result.
// Unknown paper types collapse to unknown; sections missing a name or title
// are dropped with a warning. A response that cannot be decoded at all comes
// back as a *CharacterizationError carrying the raw text.
func (c *Characterizer) Characterize(ctx context.Context, fullText string) (schemas.PaperType, map[string]schemas.Section, error) {
	prompt := characterizationPrompt + llmutil.Truncate(fullText, c.maxPromptChars)

	response, err := c.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: characterizationSystemPrompt,
		UserPrompt:   prompt,
		Tier:         schemas.TierFast,
		Options: schemas.GenerationOptions{
			Temperature:     0.1,
			ForceJSONFormat: true,
		},
	})
	if err != nil {
		return "", nil, err
	}

	parsed, err := llmutil.ParseJSONResponse[characterizationResponse](response)
	if err != nil {
		c.logger.Error("Characterization response is not usable JSON",
			zap.String("raw_head", llmutil.Truncate(response, 500)))
		return "", nil, &CharacterizationError{Raw: response, Err: err}
	}

	paperType := schemas.ParsePaperType(parsed.PaperType)
	if paperType == schemas.PaperUnknown && parsed.PaperType != "" && !strings.EqualFold(parsed.PaperType, "unknown") {
		c.logger.Warn("Invalid paper type from model, falling back to unknown",
			zap.String("reported", parsed.PaperType))
	}

	sections := make(map[string]schemas.Section, len(parsed.Sections))
	for name, payload := range parsed.Sections {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || strings.TrimSpace(payload.Title) == "" {
			c.logger.Warn("Dropping section missing name or title",
				zap.String("name", name), zap.String("title", payload.Title))
			continue
		}
		sections[name] = schemas.Section{
			Name:    name,
			Title:   payload.Title,
			Summary: payload.Summary,
		}
	}

	c.logger.Info("Paper characterized",
		zap.String("paper_type", string(paperType)),
		zap.Int("sections", len(sections)),
	)
	return paperType, sections, nil
}

// MapSections enriches AI-identified sections with location anchors and text
// from the layout sections the extractor detected. The similarity heuristic is
// deliberately crude: case-insensitive exact title match, score 1.0 or 0.0.
func (c *Characterizer) MapSections(sections map[string]schemas.Section, layout []schemas.LayoutSection) map[string]schemas.Section {
	if len(sections) == 0 || len(layout) == 0 {
		return sections
	}

	byTitle := make(map[string]schemas.LayoutSection, len(layout))
	for _, ls := range layout {
		key := strings.ToLower(strings.TrimSpace(ls.Title))
		if key == "" {
			continue
		}
		if _, exists := byTitle[key]; !exists {
			byTitle[key] = ls
		}
	}

	mapped := make(map[string]schemas.Section, len(sections))
	matches := 0
	for name, section := range sections {
		if ls, ok := byTitle[strings.ToLower(strings.TrimSpace(section.Title))]; ok {
			section.Start = ls.Start
			section.End = ls.End
			section.Text = ls.Text
			matches++
		}
		mapped[name] = section
	}

	c.logger.Debug("Sections mapped onto layout",
		zap.Int("sections", len(sections)), zap.Int("matched", matches))
	return mapped
}
