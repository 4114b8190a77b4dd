// internal/extraction/relationships.go
package extraction

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/paperlens/api/schemas"
	"github.com/xkilldash9x/paperlens/internal/llmutil"
)

// RelationshipExtractor infers typed edges between components via one model
// call, with a pure deterministic fallback when the model yields nothing
// usable.
type RelationshipExtractor struct {
	llm            schemas.LLMClient
	logger         *zap.Logger
	maxPromptChars int
}

func NewRelationshipExtractor(llm schemas.LLMClient, logger *zap.Logger, maxPromptChars int) *RelationshipExtractor {
	return &RelationshipExtractor{
		llm:            llm,
		logger:         logger.Named("relationship_extractor"),
		maxPromptChars: maxPromptChars,
	}
}

// relationshipPayload is one edge as reported by the model.
type relationshipPayload struct {
	SourceID    string `json:"source_id"`
	TargetID    string `json:"target_id"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Extract returns the validated model edges, or the deterministic fallback
// when the call fails or yields zero valid edges. Fewer than two components
// means nothing to relate: empty result, no model call.
func (r *RelationshipExtractor) Extract(ctx context.Context, paperID string, paperType schemas.PaperType, components []schemas.Component) []schemas.Relationship {
	if len(components) < 2 {
		r.logger.Debug("Not enough components to extract relationships",
			zap.Int("components", len(components)))
		return nil
	}

	relationships, err := r.extractViaModel(ctx, paperID, paperType, components)
	if err != nil {
		r.logger.Warn("Model relationship extraction failed, using deterministic fallback", zap.Error(err))
	}
	if len(relationships) == 0 {
		relationships = r.FallbackRelationships(paperID, components)
		r.logger.Info("Deterministic fallback relationships generated",
			zap.Int("relationships", len(relationships)))
	}
	return relationships
}

func (r *RelationshipExtractor) extractViaModel(ctx context.Context, paperID string, paperType schemas.PaperType, components []schemas.Component) ([]schemas.Relationship, error) {
	var list strings.Builder
	for _, c := range components {
		fmt.Fprintf(&list, "ID: %s | Type: %s | Name: %s | Description: %s\n",
			c.ID, c.Type, c.Name, llmutil.Truncate(c.Description, 200))
	}

	response, err := r.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: relationshipSystemPrompt,
		UserPrompt:   fmt.Sprintf(relationshipPrompt, paperType, list.String()),
		Tier:         schemas.TierPowerful,
		Options: schemas.GenerationOptions{
			Temperature:     0.2,
			ForceJSONFormat: true,
		},
	})
	if err != nil {
		return nil, err
	}

	items, err := llmutil.DecodeList[relationshipPayload](response, "relationships")
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(components))
	for _, c := range components {
		known[c.ID] = struct{}{}
	}

	var relationships []schemas.Relationship
	for _, item := range items {
		relType := strings.ToLower(strings.TrimSpace(item.Type))
		if item.SourceID == "" || item.TargetID == "" || relType == "" {
			r.logger.Warn("Dropping relationship with missing fields",
				zap.String("source", item.SourceID), zap.String("target", item.TargetID))
			continue
		}
		if _, ok := known[item.SourceID]; !ok {
			r.logger.Warn("Dropping relationship with unknown source", zap.String("source", item.SourceID))
			continue
		}
		if _, ok := known[item.TargetID]; !ok {
			r.logger.Warn("Dropping relationship with unknown target", zap.String("target", item.TargetID))
			continue
		}
		if item.SourceID == item.TargetID {
			continue
		}

		description := item.Description
		if description == "" {
			description = fmt.Sprintf("Relationship from %s to %s", item.SourceID, item.TargetID)
		}
		relationships = append(relationships, schemas.Relationship{
			ID:          uuid.NewString(),
			PaperID:     paperID,
			SourceID:    item.SourceID,
			TargetID:    item.TargetID,
			Type:        relType,
			Description: description,
		})
	}
	return relationships, nil
}

// typePrecedence fixes the logical pipeline ordering used by the fallback.
// Types not listed sort last.
var typePrecedence = map[schemas.ComponentType]int{
	schemas.ComponentDataset:       1,
	schemas.ComponentPreprocessing: 2,
	schemas.ComponentModel:         3,
	schemas.ComponentLayer:         4,
	schemas.ComponentModule:        5,
	schemas.ComponentTraining:      6,
	schemas.ComponentEvaluation:    7,
	schemas.ComponentMetric:        8,
	schemas.ComponentResults:       9,
}

const unknownPrecedence = 100

// FallbackRelationships builds a deterministic edge set: a linear flow chain
// over the precedence-sorted components, plus dataset→model and
// evaluation→metric "uses" edges. Pure — the same ordered input always
// produces the same edges (IDs aside).
func (r *RelationshipExtractor) FallbackRelationships(paperID string, components []schemas.Component) []schemas.Relationship {
	if len(components) < 2 {
		return nil
	}

	sorted := make([]schemas.Component, len(components))
	copy(sorted, components)
	sort.SliceStable(sorted, func(i, j int) bool {
		return precedenceOf(sorted[i].Type) < precedenceOf(sorted[j].Type)
	})

	var relationships []schemas.Relationship
	for i := 0; i < len(sorted)-1; i++ {
		source, target := sorted[i], sorted[i+1]
		relationships = append(relationships, schemas.Relationship{
			ID:          uuid.NewString(),
			PaperID:     paperID,
			SourceID:    source.ID,
			TargetID:    target.ID,
			Type:        schemas.RelFlow,
			Description: fmt.Sprintf("Flow from %s to %s", source.Name, target.Name),
		})
	}

	var datasets, models, evaluations, metrics []schemas.Component
	for _, c := range components {
		switch c.Type {
		case schemas.ComponentDataset:
			datasets = append(datasets, c)
		case schemas.ComponentModel:
			models = append(models, c)
		case schemas.ComponentEvaluation:
			evaluations = append(evaluations, c)
		case schemas.ComponentMetric:
			metrics = append(metrics, c)
		}
	}

	for _, dataset := range datasets {
		for _, model := range models {
			relationships = append(relationships, schemas.Relationship{
				ID:          uuid.NewString(),
				PaperID:     paperID,
				SourceID:    dataset.ID,
				TargetID:    model.ID,
				Type:        schemas.RelUses,
				Description: fmt.Sprintf("%s uses %s", model.Name, dataset.Name),
			})
		}
	}
	for _, evaluation := range evaluations {
		for _, metric := range metrics {
			relationships = append(relationships, schemas.Relationship{
				ID:          uuid.NewString(),
				PaperID:     paperID,
				SourceID:    evaluation.ID,
				TargetID:    metric.ID,
				Type:        schemas.RelUses,
				Description: fmt.Sprintf("%s uses %s", evaluation.Name, metric.Name),
			})
		}
	}
	return relationships
}

func precedenceOf(t schemas.ComponentType) int {
	if p, ok := typePrecedence[t]; ok {
		return p
	}
	return unknownPrecedence
}

// RelationshipAnalysis summarizes an extracted relationship set for
// diagnostics.
type RelationshipAnalysis struct {
	RelationshipTypes  map[string]int     `json:"relationship_types"`
	CentralComponents  []CentralComponent `json:"central_components"`
	TotalRelationships int                `json:"total_relationships"`
}

// CentralComponent is one of the most connected components.
type CentralComponent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Connections int    `json:"connections"`
}

// Analyze computes relationship counts by type, per-component degree, and the
// top three components by degree with ties broken by component input order.
// Pure function, no I/O.
func Analyze(components []schemas.Component, relationships []schemas.Relationship) RelationshipAnalysis {
	analysis := RelationshipAnalysis{
		RelationshipTypes:  make(map[string]int),
		TotalRelationships: len(relationships),
	}

	degrees := make(map[string]int)
	for _, rel := range relationships {
		analysis.RelationshipTypes[rel.Type]++
		degrees[rel.SourceID]++
		degrees[rel.TargetID]++
	}

	// Rank by degree descending, component input order breaking ties.
	ranked := make([]schemas.Component, 0, len(components))
	for _, c := range components {
		if degrees[c.ID] > 0 {
			ranked = append(ranked, c)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return degrees[ranked[i].ID] > degrees[ranked[j].ID]
	})

	for i := 0; i < len(ranked) && i < 3; i++ {
		c := ranked[i]
		analysis.CentralComponents = append(analysis.CentralComponents, CentralComponent{
			ID:          c.ID,
			Name:        c.Name,
			Type:        string(c.Type),
			Connections: degrees[c.ID],
		})
	}
	return analysis
}
