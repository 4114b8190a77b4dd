// internal/extraction/diagram.go
package extraction

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/paperlens/api/schemas"
	"github.com/xkilldash9x/paperlens/internal/llmutil"
)

const diagramFormat = "mermaid"

// DiagramGenerator renders components and relationships into Mermaid source.
// Deterministic templating is the primary mode; the AI mode asks the model for
// the diagram directly and falls back to templating on any failure.
type DiagramGenerator struct {
	llm            schemas.LLMClient
	logger         *zap.Logger
	maxPromptChars int
}

func NewDiagramGenerator(llm schemas.LLMClient, logger *zap.Logger, maxPromptChars int) *DiagramGenerator {
	return &DiagramGenerator{
		llm:            llm,
		logger:         logger.Named("diagram_generator"),
		maxPromptChars: maxPromptChars,
	}
}

// typeClasses maps component types to Mermaid class names and their styling.
var typeClasses = map[schemas.ComponentType]string{
	schemas.ComponentDataset:       "dataset",
	schemas.ComponentPreprocessing: "preprocessing",
	schemas.ComponentModel:         "model",
	schemas.ComponentLayer:         "layer",
	schemas.ComponentModule:        "module",
	schemas.ComponentTraining:      "training",
	schemas.ComponentEvaluation:    "evaluation",
	schemas.ComponentMetric:        "metric",
	schemas.ComponentResults:       "results",
}

var classDefs = []string{
	"classDef dataset fill:#10B981,stroke:#047857,color:white;",
	"classDef preprocessing fill:#6366F1,stroke:#4338CA,color:white;",
	"classDef model fill:#EF4444,stroke:#B91C1C,color:white;",
	"classDef layer fill:#F97316,stroke:#C2410C,color:white;",
	"classDef module fill:#F59E0B,stroke:#B45309,color:white;",
	"classDef training fill:#8B5CF6,stroke:#6D28D9,color:white;",
	"classDef evaluation fill:#EC4899,stroke:#BE185D,color:white;",
	"classDef metric fill:#14B8A6,stroke:#0F766E,color:white;",
	"classDef results fill:#0EA5E9,stroke:#0369A1,color:white;",
}

// Render produces a diagram by deterministic templating. Zero components
// yields a minimal valid placeholder rather than an error.
func (g *DiagramGenerator) Render(paperID string, components []schemas.Component, relationships []schemas.Relationship) *schemas.Diagram {
	if len(components) == 0 {
		return &schemas.Diagram{
			PaperID: paperID,
			Format:  diagramFormat,
			Source:  "flowchart TD\n    empty[\"No components extracted\"]\n",
			NodeMap: map[string]string{},
		}
	}

	nodeIDs := make(map[string]string, len(components))
	nodeMap := make(map[string]string, len(components))
	var b strings.Builder
	b.WriteString("flowchart TD\n")

	for i, c := range components {
		nodeID := nodeID(i)
		nodeIDs[c.ID] = nodeID
		nodeMap[nodeID] = c.ID
		fmt.Fprintf(&b, "    %s[\"%s\"]\n", nodeID, escapeLabel(c.Name))
	}

	edges := 0
	for _, rel := range relationships {
		source, okS := nodeIDs[rel.SourceID]
		target, okT := nodeIDs[rel.TargetID]
		if !okS || !okT {
			g.logger.Warn("Skipping diagram edge with unknown endpoint",
				zap.String("source", rel.SourceID), zap.String("target", rel.TargetID))
			continue
		}
		if rel.Type == schemas.RelFlow {
			fmt.Fprintf(&b, "    %s --> %s\n", source, target)
		} else {
			fmt.Fprintf(&b, "    %s -.->|%s| %s\n", source, escapeLabel(rel.Type), target)
		}
		edges++
	}

	b.WriteString("\n")
	for _, def := range classDefs {
		fmt.Fprintf(&b, "    %s\n", def)
	}
	b.WriteString("\n")
	for _, c := range components {
		if class, ok := typeClasses[c.Type]; ok {
			fmt.Fprintf(&b, "    class %s %s;\n", nodeIDs[c.ID], class)
		}
	}

	g.logger.Debug("Diagram templated",
		zap.Int("nodes", len(components)), zap.Int("edges", edges))
	return &schemas.Diagram{
		PaperID: paperID,
		Format:  diagramFormat,
		Source:  b.String(),
		NodeMap: nodeMap,
	}
}

// RenderAI asks the model for the diagram source directly from paper text.
// Any failure (call, fence extraction, sanity check) falls back to Render.
func (g *DiagramGenerator) RenderAI(ctx context.Context, paperID, fullText string, components []schemas.Component, relationships []schemas.Relationship) *schemas.Diagram {
	response, err := g.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: diagramSystemPrompt,
		UserPrompt:   diagramPrompt + llmutil.Truncate(fullText, g.maxPromptChars),
		Tier:         schemas.TierPowerful,
		Options:      schemas.GenerationOptions{Temperature: 0.2},
	})
	if err != nil {
		g.logger.Warn("AI diagram call failed, falling back to templating", zap.Error(err))
		return g.Render(paperID, components, relationships)
	}

	source := llmutil.ExtractFencedBlock(response)
	if !strings.HasPrefix(strings.TrimSpace(source), "flowchart") {
		g.logger.Warn("AI diagram failed sanity check, falling back to templating",
			zap.String("head", llmutil.Truncate(source, 80)))
		return g.Render(paperID, components, relationships)
	}

	return &schemas.Diagram{
		PaperID: paperID,
		Format:  diagramFormat,
		Source:  source,
	}
}

// nodeID assigns alphabetic identifiers in input order: A..Z, AA, AB, ...
// so component counts above 26 stay unambiguous.
func nodeID(i int) string {
	var b []byte
	for {
		b = append([]byte{byte('A' + i%26)}, b...)
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	return string(b)
}

// escapeLabel neutralizes characters that break Mermaid node labels.
func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, `"`, "#quot;")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
