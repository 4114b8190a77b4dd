// api/schemas/schemas.go
package schemas

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaperStatus tracks the lifecycle of a paper through the extraction pipeline.
// A paper is terminal once it reaches Completed, CompletedMinimal, Error or Failed.
type PaperStatus string

const (
	StatusPending          PaperStatus = "pending"
	StatusProcessing       PaperStatus = "processing"
	StatusCompleted        PaperStatus = "completed"
	StatusCompletedMinimal PaperStatus = "completed_minimal"
	StatusError            PaperStatus = "error"
	StatusFailed           PaperStatus = "failed"
)

// Terminal reports whether the status admits no further pipeline transitions.
func (s PaperStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedMinimal, StatusError, StatusFailed:
		return true
	}
	return false
}

// PaperType is the closed classification taxonomy assigned by the characterizer.
type PaperType string

const (
	PaperNewArchitecture PaperType = "new_architecture"
	PaperSurvey          PaperType = "survey"
	PaperApplication     PaperType = "application"
	PaperTheoretical     PaperType = "theoretical"
	PaperUnknown         PaperType = "unknown"
)

// ParsePaperType validates a model-reported paper type string. Unknown or
// malformed values collapse to PaperUnknown rather than erroring.
func ParsePaperType(s string) PaperType {
	switch PaperType(strings.ToLower(strings.TrimSpace(s))) {
	case PaperNewArchitecture:
		return PaperNewArchitecture
	case PaperSurvey:
		return PaperSurvey
	case PaperApplication:
		return PaperApplication
	case PaperTheoretical:
		return PaperTheoretical
	default:
		return PaperUnknown
	}
}

// ComponentType is the closed enumeration of pipeline component categories.
type ComponentType string

const (
	ComponentDataset        ComponentType = "dataset"
	ComponentPreprocessing  ComponentType = "preprocessing"
	ComponentModel          ComponentType = "model"
	ComponentTraining       ComponentType = "training"
	ComponentEvaluation     ComponentType = "evaluation"
	ComponentResults        ComponentType = "results"
	ComponentLayer          ComponentType = "layer"
	ComponentModule         ComponentType = "module"
	ComponentHyperparameter ComponentType = "hyperparameter"
	ComponentAlgorithm      ComponentType = "algorithm"
	ComponentMetric         ComponentType = "metric"
	ComponentOther          ComponentType = "other"
)

// componentTypes holds every valid member for O(1) validation.
var componentTypes = map[ComponentType]struct{}{
	ComponentDataset:        {},
	ComponentPreprocessing:  {},
	ComponentModel:          {},
	ComponentTraining:       {},
	ComponentEvaluation:     {},
	ComponentResults:        {},
	ComponentLayer:          {},
	ComponentModule:         {},
	ComponentHyperparameter: {},
	ComponentAlgorithm:      {},
	ComponentMetric:         {},
	ComponentOther:          {},
}

// ParseComponentType validates a type string case-insensitively. The second
// return reports whether the input named a real member; callers that need a
// heuristic fallback check it before accepting ComponentOther. Feeding an
// already-valid value through returns it unchanged.
func ParseComponentType(s string) (ComponentType, bool) {
	ct := ComponentType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := componentTypes[ct]; ok {
		return ct, true
	}
	return ComponentOther, false
}

// Canonical relationship types. The vocabulary is open: the model may emit
// types outside this list and they are stored as-is (lowercased), never
// rejected.
const (
	RelFlow      = "flow"
	RelUses      = "uses"
	RelContains  = "contains"
	RelEvaluates = "evaluates"
	RelCompares  = "compares"
	RelImproves  = "improves"
	RelPartOf    = "part_of"
)

// Location anchors a section within the source document. Best effort only;
// page/offset accuracy is never guaranteed.
type Location struct {
	Page      int `json:"page,omitempty"`
	Paragraph int `json:"paragraph,omitempty"`
	Position  int `json:"position,omitempty"`
}

// Section is one logical part of a paper (abstract, methods, ...), produced by
// the characterizer and consumed by the component extractor.
type Section struct {
	Name     string   `json:"name"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Start    Location `json:"start_location"`
	End      Location `json:"end_location"`
	Text     string   `json:"text,omitempty"`
}

// Component is a typed, named unit of the paper's ML pipeline. Components are
// immutable once created; the full set for a paper is produced once per run.
type Component struct {
	ID            string         `json:"id"`
	PaperID       string         `json:"paper_id"`
	Type          ComponentType  `json:"type"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Details       map[string]any `json:"details,omitempty"`
	SourceSection string         `json:"source_section,omitempty"`
	SourcePage    int            `json:"source_page,omitempty"`
	IsNovel       bool           `json:"is_novel,omitempty"`
	// ParentID preserves the hierarchy reported by the model when components
	// arrive as a tree. Empty for roots and for flat extraction results.
	ParentID string `json:"parent_id,omitempty"`
}

// Relationship is a typed directed edge between two components of one paper.
// Invariants: SourceID != TargetID and both reference components in the same
// paper's component set.
type Relationship struct {
	ID          string `json:"id"`
	PaperID     string `json:"paper_id"`
	SourceID    string `json:"source_id"`
	TargetID    string `json:"target_id"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Diagram is the rendered output of a pipeline run. NodeMap maps
// diagram-internal node identifiers to component IDs; it is empty when the
// diagram came straight from the model rather than from templating.
type Diagram struct {
	PaperID string            `json:"paper_id"`
	Format  string            `json:"format"`
	Source  string            `json:"source"`
	NodeMap map[string]string `json:"node_map,omitempty"`
}

// Stage status values used in diagnostics.
const (
	StageSuccess = "success"
	StageFailed  = "failed"
	StageSkipped = "skipped"
)

// StageDiagnostics records the outcome of a single pipeline stage. It is the
// principal observability surface and is populated even on failure paths.
type StageDiagnostics struct {
	Status        string `json:"status"`
	Components    int    `json:"components,omitempty"`
	Relationships int    `json:"relationships,omitempty"`
	DurationMS    int64  `json:"duration_ms"`
	Error         string `json:"error,omitempty"`
}

// Diagnostics aggregates per-stage outcomes plus free-form notes such as the
// relationship analysis summary.
type Diagnostics struct {
	Stages          map[string]StageDiagnostics `json:"stages"`
	TotalDurationMS int64                       `json:"total_duration_ms"`
	Notes           map[string]any              `json:"notes,omitempty"`
}

// NewDiagnostics returns an empty diagnostics record ready for stage entries.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{Stages: make(map[string]StageDiagnostics)}
}

// Record stores the outcome for a named stage.
func (d *Diagnostics) Record(stage string, sd StageDiagnostics) {
	if d.Stages == nil {
		d.Stages = make(map[string]StageDiagnostics)
	}
	d.Stages[stage] = sd
}

// Paper is the root record for one ingested document. Created on upload and
// mutated exclusively by the pipeline orchestrator until it reaches a terminal
// status.
type Paper struct {
	ID            string             `json:"id"`
	Title         string             `json:"title,omitempty"`
	URL           string             `json:"url,omitempty"`
	Status        PaperStatus        `json:"status"`
	UploadedAt    time.Time          `json:"uploaded_at"`
	PaperType     PaperType          `json:"paper_type,omitempty"`
	Sections      map[string]Section `json:"sections,omitempty"`
	Components    []Component        `json:"components,omitempty"`
	Relationships []Relationship     `json:"relationships,omitempty"`
	Diagram       *Diagram           `json:"diagram,omitempty"`
	Diagnostics   *Diagnostics       `json:"diagnostics,omitempty"`
	Error         string             `json:"error,omitempty"`
	ErrorKind     string             `json:"error_kind,omitempty"`
}

// NewPaper creates a pending paper record with a fresh identity.
func NewPaper(title string) *Paper {
	return &Paper{
		ID:         uuid.NewString(),
		Title:      title,
		Status:     StatusPending,
		UploadedAt: time.Now().UTC(),
		Sections:   make(map[string]Section),
	}
}
