// internal/extraction/components.go
package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/paperlens/api/schemas"
	"github.com/xkilldash9x/paperlens/internal/llmutil"
)

// ComponentExtractor converts paper text into a flat list of typed components.
// A degradation ladder guarantees the result is never empty: hierarchical
// extraction, then a simpler flat extraction, then a single synthetic
// placeholder component.
type ComponentExtractor struct {
	llm            schemas.LLMClient
	logger         *zap.Logger
	maxPromptChars int
}

func NewComponentExtractor(llm schemas.LLMClient, logger *zap.Logger, maxPromptChars int) *ComponentExtractor {
	return &ComponentExtractor{
		llm:            llm,
		logger:         logger.Named("component_extractor"),
		maxPromptChars: maxPromptChars,
	}
}

// ExtractionOutcome reports which ladder rung produced the components.
type ExtractionOutcome struct {
	Components     []schemas.Component
	PrimaryFailed  bool
	FallbackFailed bool
	UsedLastResort bool
	PaperSummary   string
}

// componentNode is one node of the hierarchical extraction response.
type componentNode struct {
	ID          string          `json:"id"`
	Category    string          `json:"category"`
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Details     map[string]any  `json:"details"`
	IsNovel     bool            `json:"is_novel"`
	Children    []componentNode `json:"children"`
}

type pipelineStage struct {
	StageName  string          `json:"stage_name"`
	Components []componentNode `json:"components"`
}

type hierarchicalResponse struct {
	PaperSummary   string          `json:"paper_summary"`
	PipelineStages []pipelineStage `json:"pipeline_stages"`
}

// flatComponent is the fallback extraction item shape.
type flatComponent struct {
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details"`
	IsNovel     bool           `json:"is_novel"`
}

// Extract runs the degradation ladder. The returned component list always has
// at least one entry.
func (e *ComponentExtractor) Extract(ctx context.Context, paperID string, paperType schemas.PaperType, fullText string) ExtractionOutcome {
	outcome := ExtractionOutcome{}

	components, summary, err := e.extractHierarchical(ctx, paperID, paperType, fullText)
	if err == nil && len(components) > 0 {
		outcome.Components = components
		outcome.PaperSummary = summary
		return outcome
	}
	outcome.PrimaryFailed = true
	e.logger.Warn("Primary component extraction failed, trying flat fallback", zap.Error(err))

	components, err = e.extractFlat(ctx, paperID, paperType, fullText)
	if err == nil && len(components) > 0 {
		outcome.Components = components
		return outcome
	}
	outcome.FallbackFailed = true
	e.logger.Warn("Fallback component extraction failed, synthesizing placeholder", zap.Error(err))

	outcome.UsedLastResort = true
	outcome.Components = []schemas.Component{e.synthesizeMinimal(paperID, paperType)}
	return outcome
}

// extractHierarchical is the primary strategy: one large prompt requesting
// pipeline stages with component trees, recursively flattened. The stage name
// becomes each component's source section; nesting is preserved via ParentID.
func (e *ComponentExtractor) extractHierarchical(ctx context.Context, paperID string, paperType schemas.PaperType, fullText string) ([]schemas.Component, string, error) {
	prompt := fmt.Sprintf(componentPrimaryPrompt, paperType) + llmutil.Truncate(fullText, e.maxPromptChars)

	response, err := e.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: componentSystemPrompt,
		UserPrompt:   prompt,
		Tier:         schemas.TierPowerful,
		Options: schemas.GenerationOptions{
			Temperature:     0.2,
			ForceJSONFormat: true,
		},
	})
	if err != nil {
		return nil, "", err
	}

	parsed, err := llmutil.ParseJSONResponse[hierarchicalResponse](response)
	if err != nil {
		return nil, "", err
	}

	var components []schemas.Component
	for _, stage := range parsed.PipelineStages {
		for _, node := range stage.Components {
			e.flattenNode(paperID, stage.StageName, node, "", &components)
		}
	}
	e.logger.Info("Hierarchical extraction complete",
		zap.Int("components", len(components)),
		zap.Int("stages", len(parsed.PipelineStages)),
	)
	return components, parsed.PaperSummary, nil
}

func (e *ComponentExtractor) flattenNode(paperID, stageName string, node componentNode, parentID string, out *[]schemas.Component) {
	name := strings.TrimSpace(node.Name)
	if name == "" {
		e.logger.Warn("Dropping unnamed component node", zap.String("stage", stageName))
		return
	}

	comp := schemas.Component{
		ID:            uuid.NewString(),
		PaperID:       paperID,
		Type:          e.coerceType(node.Type, node.Name, node.Description, stageName),
		Name:          name,
		Description:   node.Description,
		Details:       node.Details,
		SourceSection: stageName,
		IsNovel:       node.IsNovel,
		ParentID:      parentID,
	}
	*out = append(*out, comp)

	for _, child := range node.Children {
		e.flattenNode(paperID, stageName, child, comp.ID, out)
	}
}

// extractFlat is the simpler fallback call: main model, datasets, key metrics
// as a flat list, decoded tolerantly.
func (e *ComponentExtractor) extractFlat(ctx context.Context, paperID string, paperType schemas.PaperType, fullText string) ([]schemas.Component, error) {
	prompt := componentFallbackPrompt + llmutil.Truncate(fullText, e.maxPromptChars)

	response, err := e.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: componentSystemPrompt,
		UserPrompt:   prompt,
		Tier:         schemas.TierFast,
		Options: schemas.GenerationOptions{
			Temperature:     0.2,
			ForceJSONFormat: true,
		},
	})
	if err != nil {
		return nil, err
	}

	items, err := llmutil.DecodeList[flatComponent](response, "components")
	if err != nil {
		return nil, err
	}

	var components []schemas.Component
	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		components = append(components, schemas.Component{
			ID:          uuid.NewString(),
			PaperID:     paperID,
			Type:        e.coerceType(item.Type, item.Name, item.Description, ""),
			Name:        name,
			Description: item.Description,
			Details:     item.Details,
			IsNovel:     item.IsNovel,
		})
	}
	e.logger.Info("Flat extraction complete", zap.Int("components", len(components)))
	return components, nil
}

// synthesizeMinimal is the last resort: exactly one placeholder component so
// downstream stages and callers never see an empty list.
func (e *ComponentExtractor) synthesizeMinimal(paperID string, paperType schemas.PaperType) schemas.Component {
	return schemas.Component{
		ID:          uuid.NewString(),
		PaperID:     paperID,
		Type:        schemas.ComponentOther,
		Name:        fmt.Sprintf("Unidentified %s paper content", paperType),
		Description: "Automatic component extraction could not identify the paper's structure.",
		Details: map[string]any{
			"extraction_note": "automatic extraction failed; this is a synthetic placeholder",
		},
	}
}

// coerceType resolves a model-reported type string to an enum member:
// exact (case-insensitive) match, then keyword heuristics over name and
// description, then a default derived from the source section, then other.
func (e *ComponentExtractor) coerceType(reported, name, description, sectionName string) schemas.ComponentType {
	if ct, ok := schemas.ParseComponentType(reported); ok {
		return ct
	}

	haystack := strings.ToLower(name + " " + description)
	containsAny := func(terms ...string) bool {
		for _, t := range terms {
			if strings.Contains(haystack, t) {
				return true
			}
		}
		return false
	}

	switch {
	case containsAny("dataset", "corpus", "data"):
		return schemas.ComponentDataset
	case containsAny("model", "network", "architecture"):
		return schemas.ComponentModel
	case containsAny("layer", "block", "attention"):
		return schemas.ComponentLayer
	case containsAny("accuracy", "precision", "recall", "f1", "loss"):
		return schemas.ComponentMetric
	}

	switch normalizeSectionName(sectionName) {
	case "methods":
		return schemas.ComponentAlgorithm
	case "architecture":
		return schemas.ComponentModule
	case "data":
		return schemas.ComponentPreprocessing
	case "results":
		return schemas.ComponentResults
	case "experiments":
		return schemas.ComponentEvaluation
	}

	e.logger.Debug("Component type unresolvable, defaulting to other",
		zap.String("reported", reported), zap.String("name", name))
	return schemas.ComponentOther
}

// normalizeSectionName maps common section name variants onto the canonical
// vocabulary used for type defaults.
func normalizeSectionName(sectionName string) string {
	s := strings.ToLower(sectionName)
	switch {
	case strings.Contains(s, "architecture"), strings.Contains(s, "model"), strings.Contains(s, "network"):
		return "architecture"
	case strings.Contains(s, "method"), strings.Contains(s, "approach"), strings.Contains(s, "technique"):
		return "methods"
	case strings.Contains(s, "experiment"), strings.Contains(s, "evaluation"), strings.Contains(s, "test"):
		return "experiments"
	case strings.Contains(s, "data"), strings.Contains(s, "corpus"):
		return "data"
	case strings.Contains(s, "result"), strings.Contains(s, "performance"), strings.Contains(s, "finding"):
		return "results"
	}
	return s
}
