// internal/extraction/service.go
package extraction

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/paperlens/api/schemas"
	"github.com/xkilldash9x/paperlens/internal/config"
	"github.com/xkilldash9x/paperlens/internal/textsource"
)

// Service orchestrates the extraction pipeline: text extraction,
// characterization, component extraction, relationship extraction, diagram
// generation. It is the only component aware of all stages and the sole
// mutator of the Paper record during a run.
type Service struct {
	llm    schemas.LLMClient
	store  schemas.PaperStore
	logger *zap.Logger
	cfg    config.PipelineConfig

	characterizer *Characterizer
	components    *ComponentExtractor
	relationships *RelationshipExtractor
	diagrams      *DiagramGenerator
}

// NewService wires the stage components around one shared LLM client. The
// client's lifecycle belongs to the caller.
func NewService(llm schemas.LLMClient, store schemas.PaperStore, logger *zap.Logger, cfg config.PipelineConfig) *Service {
	logger = logger.Named("extraction")
	return &Service{
		llm:           llm,
		store:         store,
		logger:        logger,
		cfg:           cfg,
		characterizer: NewCharacterizer(llm, logger, cfg.MaxPromptChars),
		components:    NewComponentExtractor(llm, logger, cfg.MaxPromptChars),
		relationships: NewRelationshipExtractor(llm, logger, cfg.MaxPromptChars),
		diagrams:      NewDiagramGenerator(llm, logger, cfg.MaxPromptChars),
	}
}

// Process runs the full pipeline for one paper, mutating it in place and
// updating the store after every status transition. The temp file at filePath
// is removed on every exit path. Returns whether the run produced a usable,
// non-degenerate result.
func (s *Service) Process(ctx context.Context, paper *schemas.Paper, filePath, extractorChoice string) bool {
	defer func() {
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to remove temp file",
				zap.String("path", filePath), zap.Error(err))
		}
	}()

	log := s.logger.With(zap.String("paper_id", paper.ID))
	start := time.Now()

	paper.Status = schemas.StatusProcessing
	paper.Diagnostics = schemas.NewDiagnostics()
	s.store.Update(paper)

	defer func() {
		paper.Diagnostics.TotalDurationMS = time.Since(start).Milliseconds()
		s.store.Update(paper)
	}()

	// Stage 1: text extraction. No text means no fallback: terminal failure.
	fullText, meta, err := s.runTextExtraction(ctx, paper, filePath, extractorChoice)
	if err != nil {
		s.fail(paper, ErrKindTextExtraction, fmt.Sprintf("text extraction failed: %v", err))
		log.Error("Pipeline failed at text extraction", zap.Error(err))
		return false
	}

	// Stage 2: characterization. An unusable response degrades the paper to
	// type unknown with no sections; the pipeline continues.
	s.runCharacterization(ctx, paper, fullText, meta, log)

	// Stage 3: component extraction. The ladder guarantees >= 1 component
	// unless the whole stage crashed, which is terminal.
	degenerate := s.runComponents(ctx, paper, fullText, log)
	if len(paper.Components) == 0 {
		s.fail(paper, ErrKindComponents, "component extraction produced no components")
		log.Error("Pipeline failed at component extraction")
		return false
	}

	// Stage 4: relationships. Never fails; empty is a legal outcome.
	s.runRelationships(ctx, paper, log)

	// Stage 5: diagram. Never fails; falls back to templating.
	s.runDiagram(ctx, paper, fullText, log)

	if degenerate {
		paper.Status = schemas.StatusCompletedMinimal
	} else {
		paper.Status = schemas.StatusCompleted
	}
	log.Info("Pipeline complete",
		zap.String("status", string(paper.Status)),
		zap.Int("components", len(paper.Components)),
		zap.Int("relationships", len(paper.Relationships)),
	)
	return !degenerate
}

func (s *Service) runTextExtraction(ctx context.Context, paper *schemas.Paper, filePath, extractorChoice string) (text string, meta *schemas.StructuralMetadata, err error) {
	start := time.Now()
	defer func() {
		sd := schemas.StageDiagnostics{Status: schemas.StageSuccess, DurationMS: time.Since(start).Milliseconds()}
		if err != nil {
			sd.Status = schemas.StageFailed
			sd.Error = err.Error()
		}
		paper.Diagnostics.Record(StageTextExtraction, sd)
	}()
	defer s.recoverStage(paper, StageTextExtraction, &err)

	extractor, err := textsource.ForChoice(extractorChoice, filePath, s.logger)
	if err != nil {
		return "", nil, err
	}

	text, meta, err = extractor.Extract(ctx, filePath)
	if err != nil {
		return "", nil, err
	}
	if text == "" {
		return "", nil, fmt.Errorf("extractor %q produced no text", extractor.Name())
	}
	return text, meta, nil
}

func (s *Service) runCharacterization(ctx context.Context, paper *schemas.Paper, fullText string, meta *schemas.StructuralMetadata, log *zap.Logger) {
	start := time.Now()
	var err error
	defer func() {
		sd := schemas.StageDiagnostics{Status: schemas.StageSuccess, DurationMS: time.Since(start).Milliseconds()}
		if err != nil {
			sd.Status = schemas.StageFailed
			sd.Error = err.Error()
		}
		paper.Diagnostics.Record(StageCharacterization, sd)
	}()
	defer s.recoverStage(paper, StageCharacterization, &err)

	paperType, sections, err := s.characterizer.Characterize(ctx, fullText)
	if err != nil {
		log.Warn("Characterization failed, continuing with unknown type", zap.Error(err))
		paper.PaperType = schemas.PaperUnknown
		return
	}

	if meta != nil {
		sections = s.characterizer.MapSections(sections, meta.Sections)
	}
	paper.PaperType = paperType
	paper.Sections = sections
	s.store.Update(paper)
}

func (s *Service) runComponents(ctx context.Context, paper *schemas.Paper, fullText string, log *zap.Logger) (degenerate bool) {
	start := time.Now()
	var err error
	defer func() {
		sd := schemas.StageDiagnostics{
			Status:     schemas.StageSuccess,
			Components: len(paper.Components),
			DurationMS: time.Since(start).Milliseconds(),
		}
		if err != nil {
			sd.Status = schemas.StageFailed
			sd.Error = err.Error()
		}
		paper.Diagnostics.Record(StageComponents, sd)
	}()
	defer s.recoverStage(paper, StageComponents, &err)

	paperType := paper.PaperType
	if paperType == "" {
		paperType = schemas.PaperUnknown
	}

	outcome := s.components.Extract(ctx, paper.ID, paperType, fullText)
	paper.Components = outcome.Components
	if outcome.PaperSummary != "" {
		paper.Diagnostics.Notes = ensureNotes(paper.Diagnostics)
		paper.Diagnostics.Notes["paper_summary"] = outcome.PaperSummary
	}
	if outcome.PrimaryFailed {
		paper.Diagnostics.Notes = ensureNotes(paper.Diagnostics)
		paper.Diagnostics.Notes["component_primary_failed"] = true
	}
	if outcome.FallbackFailed {
		paper.Diagnostics.Notes = ensureNotes(paper.Diagnostics)
		paper.Diagnostics.Notes["component_fallback_failed"] = true
	}
	s.store.Update(paper)
	return outcome.UsedLastResort
}

func (s *Service) runRelationships(ctx context.Context, paper *schemas.Paper, log *zap.Logger) {
	start := time.Now()
	var err error
	defer func() {
		sd := schemas.StageDiagnostics{
			Status:        schemas.StageSuccess,
			Relationships: len(paper.Relationships),
			DurationMS:    time.Since(start).Milliseconds(),
		}
		if err != nil {
			sd.Status = schemas.StageFailed
			sd.Error = err.Error()
		}
		if len(paper.Components) < 2 {
			sd.Status = schemas.StageSkipped
		}
		paper.Diagnostics.Record(StageRelationships, sd)
	}()
	defer s.recoverStage(paper, StageRelationships, &err)

	paper.Relationships = s.relationships.Extract(ctx, paper.ID, paper.PaperType, paper.Components)

	analysis := Analyze(paper.Components, paper.Relationships)
	paper.Diagnostics.Notes = ensureNotes(paper.Diagnostics)
	paper.Diagnostics.Notes["relationship_analysis"] = analysis
	s.store.Update(paper)
}

func (s *Service) runDiagram(ctx context.Context, paper *schemas.Paper, fullText string, log *zap.Logger) {
	start := time.Now()
	var err error
	defer func() {
		sd := schemas.StageDiagnostics{Status: schemas.StageSuccess, DurationMS: time.Since(start).Milliseconds()}
		if err != nil {
			sd.Status = schemas.StageFailed
			sd.Error = err.Error()
		}
		paper.Diagnostics.Record(StageDiagram, sd)
	}()
	defer s.recoverStage(paper, StageDiagram, &err)

	if s.cfg.AIDiagram {
		paper.Diagram = s.diagrams.RenderAI(ctx, paper.ID, fullText, paper.Components, paper.Relationships)
	} else {
		paper.Diagram = s.diagrams.Render(paper.ID, paper.Components, paper.Relationships)
	}
	s.store.Update(paper)
}

// recoverStage converts a stage panic into a recorded "unexpected" failure so
// no run ever escapes with an unhandled crash.
func (s *Service) recoverStage(paper *schemas.Paper, stage string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("unexpected failure in %s stage: %v", stage, r)
		s.logger.Error("Stage panicked",
			zap.String("stage", stage),
			zap.String("paper_id", paper.ID),
			zap.Any("panic", r),
		)
		paper.Diagnostics.Notes = ensureNotes(paper.Diagnostics)
		paper.Diagnostics.Notes[stage+"_panic"] = ErrKindUnexpected
	}
}

func (s *Service) fail(paper *schemas.Paper, kind, message string) {
	paper.Status = schemas.StatusFailed
	paper.Error = message
	paper.ErrorKind = kind
}

func ensureNotes(d *schemas.Diagnostics) map[string]any {
	if d.Notes == nil {
		d.Notes = make(map[string]any)
	}
	return d.Notes
}
